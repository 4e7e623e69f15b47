// Package memory is an in-memory trace store used in tests and for running
// the service without a database.
package memory

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/RonitGandotra05/agent-xray/internal/domain"
	"github.com/RonitGandotra05/agent-xray/internal/storage"
)

const defaultListLimit = 50

// Store keeps everything in maps guarded by one mutex.
type Store struct {
	mu        sync.RWMutex
	pipelines map[string]*storage.Pipeline // by ID
	byName    map[string]string            // pipeline name -> ID
	runs      map[string]*storage.Run      // by ID
}

var _ storage.TraceStore = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		pipelines: make(map[string]*storage.Pipeline),
		byName:    make(map[string]string),
		runs:      make(map[string]*storage.Run),
	}
}

func (s *Store) GetOrCreatePipeline(_ context.Context, name string) (*storage.Pipeline, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.byName[name]; ok {
		p := *s.pipelines[id]
		return &p, nil
	}

	p := &storage.Pipeline{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	s.pipelines[p.ID] = p
	s.byName[name] = p.ID
	out := *p
	return &out, nil
}

func (s *Store) CreateRun(_ context.Context, run *storage.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	for _, step := range run.Steps {
		if step.ID == "" {
			step.ID = uuid.New().String()
		}
		step.RunID = run.ID
		if step.CreatedAt.IsZero() {
			step.CreatedAt = run.CreatedAt
		}
	}
	if p, ok := s.pipelines[run.PipelineID]; ok {
		run.PipelineName = p.Name
	}

	stored := *run
	stored.Steps = append([]*storage.StoredStep(nil), run.Steps...)
	s.runs[run.ID] = &stored
	return nil
}

func (s *Store) UpdateRunAnalysis(_ context.Context, runID, status string, result json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[runID]
	if !ok {
		return domain.ErrRunNotFound
	}
	run.Status = status
	run.AnalysisResult = result
	return nil
}

func (s *Store) GetRun(_ context.Context, id string) (*storage.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	if !ok {
		return nil, domain.ErrRunNotFound
	}

	out := *run
	out.Steps = append([]*storage.StoredStep(nil), run.Steps...)
	sort.SliceStable(out.Steps, func(i, j int) bool {
		return out.Steps[i].Order < out.Steps[j].Order
	})
	return &out, nil
}

func (s *Store) ListRuns(_ context.Context, opts storage.ListRunsOptions) ([]*storage.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var runs []*storage.Run
	for _, run := range s.runs {
		if opts.PipelineName != "" && run.PipelineName != opts.PipelineName {
			continue
		}
		if opts.Status != "" && run.Status != opts.Status {
			continue
		}
		out := *run
		out.Steps = nil
		runs = append(runs, &out)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})

	limit := opts.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

func (s *Store) ListPipelines(_ context.Context) ([]*storage.Pipeline, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pipelines := make([]*storage.Pipeline, 0, len(s.pipelines))
	for _, p := range s.pipelines {
		out := *p
		pipelines = append(pipelines, &out)
	}
	sort.Slice(pipelines, func(i, j int) bool {
		return pipelines[i].CreatedAt.After(pipelines[j].CreatedAt)
	})
	return pipelines, nil
}

func (s *Store) SearchSteps(_ context.Context, opts storage.SearchStepsOptions) ([]*storage.StoredStep, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var steps []*storage.StoredStep
	for _, run := range s.runs {
		if opts.PipelineName != "" && run.PipelineName != opts.PipelineName {
			continue
		}
		for _, step := range run.Steps {
			if opts.StepName != "" && !strings.Contains(strings.ToLower(step.Name), strings.ToLower(opts.StepName)) {
				continue
			}
			out := *step
			steps = append(steps, &out)
		}
	}

	sort.Slice(steps, func(i, j int) bool {
		return steps[i].CreatedAt.After(steps[j].CreatedAt)
	})

	limit := opts.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if len(steps) > limit {
		steps = steps[:limit]
	}
	return steps, nil
}

func (s *Store) Close() error { return nil }
