// Package sqldb is the SQL implementation of the trace store. It supports
// multiple database dialects; SQLite via modernc.org/sqlite is the default.
package sqldb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/RonitGandotra05/agent-xray/internal/domain"
	"github.com/RonitGandotra05/agent-xray/internal/storage"
	"github.com/RonitGandotra05/agent-xray/internal/storage/dialect"
)

const defaultListLimit = 50

// Store is a SQL-backed storage.TraceStore.
type Store struct {
	db      *sqlx.DB
	dialect dialect.Dialect
}

var _ storage.TraceStore = (*Store)(nil)

// Config holds database connection configuration.
type Config struct {
	Driver string // sqlite, postgres, mysql
	DSN    string
}

// New opens a store with the given configuration and initializes the schema.
func New(cfg Config) (*Store, error) {
	d, err := dialect.FromDriverName(cfg.Driver)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open(d.DriverName(), cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	for _, stmt := range d.PragmaStatements() {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute pragma: %w", err)
		}
	}

	s := &Store{db: db, dialect: d}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// NewSQLite opens a SQLite store at the given path.
func NewSQLite(path string) (*Store, error) {
	return New(Config{Driver: "sqlite", DSN: path})
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS pipelines (
id TEXT PRIMARY KEY,
name TEXT NOT NULL UNIQUE,
description TEXT,
created_at TIMESTAMP NOT NULL
)`,
		`CREATE TABLE IF NOT EXISTS runs (
id TEXT PRIMARY KEY,
pipeline_id TEXT NOT NULL,
status TEXT NOT NULL,
metadata TEXT,
analysis_result TEXT,
created_at TIMESTAMP NOT NULL,
FOREIGN KEY (pipeline_id) REFERENCES pipelines(id) ON DELETE CASCADE
)`,
		`CREATE TABLE IF NOT EXISTS steps (
id TEXT PRIMARY KEY,
run_id TEXT NOT NULL,
step_name TEXT NOT NULL,
step_order REAL NOT NULL,
description TEXT,
inputs TEXT,
outputs TEXT,
reasons TEXT,
metrics TEXT,
created_at TIMESTAMP NOT NULL,
FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_pipeline ON runs(pipeline_id)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status)`,
		`CREATE INDEX IF NOT EXISTS idx_steps_run ON steps(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_steps_name ON steps(step_name)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(s.dialect.Rebind(stmt)); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}
	return nil
}

func (s *Store) GetOrCreatePipeline(ctx context.Context, name string) (*storage.Pipeline, error) {
	query := s.dialect.Rebind(`SELECT id, name, description, created_at FROM pipelines WHERE name = ?`)

	var p storage.Pipeline
	var description sql.NullString
	err := s.db.QueryRowContext(ctx, query, name).Scan(&p.ID, &p.Name, &description, &p.CreatedAt)
	if err == nil {
		p.Description = description.String
		return &p, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to look up pipeline: %w", err)
	}

	p = storage.Pipeline{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	insert := s.dialect.Rebind(`INSERT INTO pipelines (id, name, description, created_at) VALUES (?, ?, ?, ?)`)
	if _, err := s.db.ExecContext(ctx, insert, p.ID, p.Name, p.Description, p.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to create pipeline: %w", err)
	}
	return &p, nil
}

func (s *Store) CreateRun(ctx context.Context, run *storage.Run) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	metadata, err := json.Marshal(run.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	insertRun := s.dialect.Rebind(`INSERT INTO runs (id, pipeline_id, status, metadata, analysis_result, created_at)
	          VALUES (?, ?, ?, ?, ?, ?)`)
	if _, err := tx.ExecContext(ctx, insertRun,
		run.ID, run.PipelineID, run.Status, string(metadata), nullableJSON(run.AnalysisResult), run.CreatedAt); err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}

	insertStep := s.dialect.Rebind(`INSERT INTO steps (id, run_id, step_name, step_order, description, inputs, outputs, reasons, metrics, created_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	for _, step := range run.Steps {
		if step.ID == "" {
			step.ID = uuid.New().String()
		}
		step.RunID = run.ID
		if step.CreatedAt.IsZero() {
			step.CreatedAt = run.CreatedAt
		}

		inputs, err := encodeValue(step.Inputs)
		if err != nil {
			return fmt.Errorf("failed to marshal step inputs: %w", err)
		}
		outputs, err := encodeValue(step.Outputs)
		if err != nil {
			return fmt.Errorf("failed to marshal step outputs: %w", err)
		}
		reasons, err := encodeValue(step.Reasons)
		if err != nil {
			return fmt.Errorf("failed to marshal step reasons: %w", err)
		}
		metrics, err := encodeValue(step.Metrics)
		if err != nil {
			return fmt.Errorf("failed to marshal step metrics: %w", err)
		}

		if _, err := tx.ExecContext(ctx, insertStep,
			step.ID, step.RunID, step.Name, step.Order, step.Description,
			inputs, outputs, reasons, metrics, step.CreatedAt); err != nil {
			return fmt.Errorf("failed to create step %q: %w", step.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

func (s *Store) UpdateRunAnalysis(ctx context.Context, runID, status string, result json.RawMessage) error {
	query := s.dialect.Rebind(`UPDATE runs SET status = ?, analysis_result = ? WHERE id = ?`)

	res, err := s.db.ExecContext(ctx, query, status, nullableJSON(result), runID)
	if err != nil {
		return fmt.Errorf("failed to update run analysis: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrRunNotFound
	}
	return nil
}

func (s *Store) GetRun(ctx context.Context, id string) (*storage.Run, error) {
	query := s.dialect.Rebind(`SELECT r.id, r.pipeline_id, p.name, r.status, r.metadata, r.analysis_result, r.created_at
	          FROM runs r JOIN pipelines p ON p.id = r.pipeline_id WHERE r.id = ?`)

	run, err := scanRun(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	steps, err := s.getSteps(ctx, id)
	if err != nil {
		return nil, err
	}
	run.Steps = steps
	return run, nil
}

func (s *Store) ListRuns(ctx context.Context, opts storage.ListRunsOptions) ([]*storage.Run, error) {
	query := `SELECT r.id, r.pipeline_id, p.name, r.status, r.metadata, r.analysis_result, r.created_at
	          FROM runs r JOIN pipelines p ON p.id = r.pipeline_id`
	var clauses []string
	var args []any

	if opts.PipelineName != "" {
		clauses = append(clauses, "p.name = ?")
		args = append(args, opts.PipelineName)
	}
	if opts.Status != "" {
		clauses = append(clauses, "r.status = ?")
		args = append(args, opts.Status)
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query += " ORDER BY r.created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, s.dialect.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*storage.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (s *Store) ListPipelines(ctx context.Context) ([]*storage.Pipeline, error) {
	query := s.dialect.Rebind(`SELECT id, name, description, created_at FROM pipelines ORDER BY created_at DESC`)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list pipelines: %w", err)
	}
	defer rows.Close()

	var pipelines []*storage.Pipeline
	for rows.Next() {
		var p storage.Pipeline
		var description sql.NullString
		if err := rows.Scan(&p.ID, &p.Name, &description, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan pipeline: %w", err)
		}
		p.Description = description.String
		pipelines = append(pipelines, &p)
	}
	return pipelines, rows.Err()
}

func (s *Store) SearchSteps(ctx context.Context, opts storage.SearchStepsOptions) ([]*storage.StoredStep, error) {
	query := `SELECT s.id, s.run_id, s.step_name, s.step_order, s.description, s.inputs, s.outputs, s.reasons, s.metrics, s.created_at
	          FROM steps s`
	var clauses []string
	var args []any

	if opts.PipelineName != "" {
		query += ` JOIN runs r ON r.id = s.run_id JOIN pipelines p ON p.id = r.pipeline_id`
		clauses = append(clauses, "p.name = ?")
		args = append(args, opts.PipelineName)
	}
	if opts.StepName != "" {
		clauses = append(clauses, "LOWER(s.step_name) LIKE ?")
		args = append(args, "%"+strings.ToLower(opts.StepName)+"%")
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query += " ORDER BY s.created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, s.dialect.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search steps: %w", err)
	}
	defer rows.Close()

	var steps []*storage.StoredStep
	for rows.Next() {
		step, err := scanStep(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan step: %w", err)
		}
		steps = append(steps, step)
	}
	return steps, rows.Err()
}

func (s *Store) getSteps(ctx context.Context, runID string) ([]*storage.StoredStep, error) {
	query := s.dialect.Rebind(`SELECT id, run_id, step_name, step_order, description, inputs, outputs, reasons, metrics, created_at
	          FROM steps WHERE run_id = ? ORDER BY step_order ASC`)

	rows, err := s.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get steps: %w", err)
	}
	defer rows.Close()

	var steps []*storage.StoredStep
	for rows.Next() {
		step, err := scanStep(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan step: %w", err)
		}
		steps = append(steps, step)
	}
	return steps, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*storage.Run, error) {
	var run storage.Run
	var metadataJSON, analysisJSON sql.NullString

	if err := row.Scan(&run.ID, &run.PipelineID, &run.PipelineName, &run.Status,
		&metadataJSON, &analysisJSON, &run.CreatedAt); err != nil {
		return nil, err
	}

	if metadataJSON.Valid && metadataJSON.String != "" && metadataJSON.String != "null" {
		if err := json.Unmarshal([]byte(metadataJSON.String), &run.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}
	if analysisJSON.Valid && analysisJSON.String != "" {
		run.AnalysisResult = json.RawMessage(analysisJSON.String)
	}
	return &run, nil
}

func scanStep(row rowScanner) (*storage.StoredStep, error) {
	var step storage.StoredStep
	var description sql.NullString
	var inputs, outputs, reasons, metrics sql.NullString

	if err := row.Scan(&step.ID, &step.RunID, &step.Name, &step.Order, &description,
		&inputs, &outputs, &reasons, &metrics, &step.CreatedAt); err != nil {
		return nil, err
	}
	step.Description = description.String

	var err error
	if step.Inputs, err = decodeValue(inputs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal step inputs: %w", err)
	}
	if step.Outputs, err = decodeValue(outputs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal step outputs: %w", err)
	}
	if step.Reasons, err = decodeValue(reasons); err != nil {
		return nil, fmt.Errorf("failed to unmarshal step reasons: %w", err)
	}
	if step.Metrics, err = decodeValue(metrics); err != nil {
		return nil, fmt.Errorf("failed to unmarshal step metrics: %w", err)
	}
	return &step, nil
}

func encodeValue(v domain.Value) (string, error) {
	b, err := v.MarshalJSON()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeValue(col sql.NullString) (domain.Value, error) {
	if !col.Valid || col.String == "" {
		return domain.Null(), nil
	}
	var v domain.Value
	if err := v.UnmarshalJSON([]byte(col.String)); err != nil {
		return domain.Value{}, err
	}
	return v, nil
}

func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
