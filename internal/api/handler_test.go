package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/RonitGandotra05/agent-xray/internal/domain"
	"github.com/RonitGandotra05/agent-xray/internal/storage"
	"github.com/RonitGandotra05/agent-xray/internal/storage/memory"
)

// fakeAnalyzer returns a canned report and records the traces it saw.
type fakeAnalyzer struct {
	report *domain.DiagnosticReport
	err    error
	traces []*domain.PipelineTrace
}

func (f *fakeAnalyzer) Diagnose(_ context.Context, trace *domain.PipelineTrace) (*domain.DiagnosticReport, error) {
	f.traces = append(f.traces, trace)
	if f.err != nil {
		return nil, f.err
	}
	return f.report, nil
}

func cleanReport() *domain.DiagnosticReport {
	return &domain.DiagnosticReport{
		Reason:          "All step transitions appear correct",
		AnalysisMethod:  domain.AnalysisMethodSlidingWindow,
		WindowsAnalyzed: 1,
	}
}

func newTestRouter(analyzer Analyzer) (*chi.Mux, *memory.Store) {
	store := memory.New()
	h := NewHandler(store, analyzer, slog.New(slog.DiscardHandler))
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r, store
}

func postJSON(t *testing.T, router http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw)))
	return rec
}

func validIngest() map[string]any {
	return map[string]any{
		"pipeline_name": "competitor_selection",
		"metadata":      map[string]string{"product_id": "123"},
		"steps": []map[string]any{
			{"name": "keyword_gen", "order": 1, "inputs": map[string]any{"query": "phone case"}, "outputs": map[string]any{"keywords": []any{"a", "b"}}},
			{"name": "filter", "order": 2, "outputs": map[string]any{"kept": 1}},
		},
	}
}

func TestIngest_StoresAndAnalyzes(t *testing.T) {
	analyzer := &fakeAnalyzer{report: cleanReport()}
	router, store := newTestRouter(analyzer)

	rec := postJSON(t, router, "/api/ingest", validIngest())

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body)
	}

	var resp IngestResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success || resp.RunID == "" {
		t.Errorf("response = %+v", resp)
	}
	if resp.Status != storage.RunStatusAnalyzed {
		t.Errorf("Status = %q, want analyzed", resp.Status)
	}
	if len(analyzer.traces) != 1 {
		t.Fatalf("analyzer calls = %d, want 1", len(analyzer.traces))
	}
	if got := analyzer.traces[0].Name; got != "competitor_selection" {
		t.Errorf("trace name = %q", got)
	}

	run, err := store.GetRun(context.Background(), resp.RunID)
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if run.Status != storage.RunStatusAnalyzed || len(run.AnalysisResult) == 0 {
		t.Errorf("stored run = %+v", run)
	}
	if len(run.Steps) != 2 {
		t.Errorf("stored steps = %d, want 2", len(run.Steps))
	}
}

func TestIngest_AnalyzeFalseSkipsAnalyzer(t *testing.T) {
	analyzer := &fakeAnalyzer{report: cleanReport()}
	router, _ := newTestRouter(analyzer)

	body := validIngest()
	body["analyze"] = false
	rec := postJSON(t, router, "/api/ingest", body)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	var resp IngestResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Status != storage.RunStatusStored {
		t.Errorf("Status = %q, want stored", resp.Status)
	}
	if len(analyzer.traces) != 0 {
		t.Errorf("analyzer calls = %d, want 0", len(analyzer.traces))
	}
}

func TestIngest_Validation(t *testing.T) {
	router, _ := newTestRouter(&fakeAnalyzer{report: cleanReport()})

	tests := []struct {
		name string
		body map[string]any
	}{
		{"missing pipeline_name", map[string]any{"steps": []map[string]any{{"name": "s", "order": 1}}}},
		{"empty steps", map[string]any{"pipeline_name": "p", "steps": []map[string]any{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(t, router, "/api/ingest", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestIngest_AnalysisFailureRecordedNotFatal(t *testing.T) {
	analyzer := &fakeAnalyzer{err: errors.New("oracle unreachable")}
	router, store := newTestRouter(analyzer)

	rec := postJSON(t, router, "/api/ingest", validIngest())

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 even when analysis fails: %s", rec.Code, rec.Body)
	}
	var resp IngestResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Status != storage.RunStatusAnalysisFailed {
		t.Errorf("Status = %q, want analysis_failed", resp.Status)
	}

	run, _ := store.GetRun(context.Background(), resp.RunID)
	if run.Status != storage.RunStatusAnalysisFailed {
		t.Errorf("stored status = %q", run.Status)
	}
}

func TestGetRunAndAnalysis(t *testing.T) {
	analyzer := &fakeAnalyzer{report: cleanReport()}
	router, _ := newTestRouter(analyzer)

	rec := postJSON(t, router, "/api/ingest", validIngest())
	var created IngestResponse
	json.Unmarshal(rec.Body.Bytes(), &created)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/runs/"+created.RunID, nil))
	if rec.Code != http.StatusOK {
		t.Errorf("GetRun status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/runs/"+created.RunID+"/analysis", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("GetAnalysis status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/runs/does-not-exist", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing run status = %d, want 404", rec.Code)
	}
}

func TestTriggerAnalysis_Reanalyzes(t *testing.T) {
	analyzer := &fakeAnalyzer{report: cleanReport()}
	router, _ := newTestRouter(analyzer)

	body := validIngest()
	body["analyze"] = false
	rec := postJSON(t, router, "/api/ingest", body)
	var created IngestResponse
	json.Unmarshal(rec.Body.Bytes(), &created)

	rec = postJSON(t, router, "/api/analyze/"+created.RunID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("TriggerAnalysis status = %d: %s", rec.Code, rec.Body)
	}
	if len(analyzer.traces) != 1 {
		t.Errorf("analyzer calls = %d, want 1", len(analyzer.traces))
	}
	// The rebuilt trace carries the stored steps in order.
	if steps := analyzer.traces[0].Steps; len(steps) != 2 || steps[0].Name != "keyword_gen" {
		t.Errorf("rebuilt trace steps = %+v", analyzer.traces[0].Steps)
	}
}

func TestListAndSearchEndpoints(t *testing.T) {
	router, _ := newTestRouter(&fakeAnalyzer{report: cleanReport()})
	postJSON(t, router, "/api/ingest", validIngest())

	for _, path := range []string{
		"/health",
		"/api/pipelines",
		"/api/runs?pipeline=competitor_selection",
		"/api/runs?status=analyzed&limit=10",
		"/api/search/steps?step_name=keyword",
	} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s status = %d", path, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/search/steps?step_name=keyword", nil))
	var body struct {
		Steps []json.RawMessage `json:"steps"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode search body: %v", err)
	}
	if len(body.Steps) != 1 {
		t.Errorf("search results = %d, want 1", len(body.Steps))
	}
}
