package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"marketpulse/internal/config"
	"marketpulse/internal/logger"
	"marketpulse/internal/models"
	"marketpulse/internal/providers"
	"marketpulse/internal/storage"
	"marketpulse/internal/vector"
	"marketpulse/internal/workflows"

	"github.com/stretchr/testify/require"
	"go.temporal.io/api/serviceerror"
	tclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/converter"
)

type fakeProjects struct {
	created []models.ResearchProject
	status  map[string]models.ProjectStatus
}

func (f *fakeProjects) UpdateStatus(_ context.Context, id string, st models.ProjectStatus) error {
	if f.status == nil {
		f.status = map[string]models.ProjectStatus{}
	}
	f.status[id] = st
	return nil
}

func (f *fakeProjects) Create(_ context.Context, p models.ResearchProject) (string, error) {
	f.created = append(f.created, p)
	return "p-new", nil
}

func (f *fakeProjects) Get(_ context.Context, id string) (models.ResearchProject, error) {
	return models.ResearchProject{}, fmt.Errorf("get project %s: %w", id, storage.ErrNotFound)
}

func (f *fakeProjects) AppendDescription(context.Context, string, string) error { return nil }

type fakeRuns struct {
	latest models.ResearchRun
	err    error
	limit  int
}

func (f *fakeRuns) ListByProject(_ context.Context, _ string, limit int) ([]models.ResearchRun, error) {
	f.limit = limit
	return []models.ResearchRun{f.latest}, f.err
}

func (f *fakeRuns) Latest(context.Context, string) (models.ResearchRun, error) {
	return f.latest, f.err
}

type fakeRun struct {
	tclient.WorkflowRun
	result workflows.PipelineResult
}

func (r fakeRun) GetID() string { return "research-p-new" }
func (r fakeRun) GetRunID() string { return "wf-run" }
func (r fakeRun) Get(_ context.Context, valuePtr interface{}) error {
	*(valuePtr.(*workflows.PipelineResult)) = r.result
	return nil
}

type jsonValue struct{ v any }

func (j jsonValue) HasValue() bool { return true }
func (j jsonValue) Get(valuePtr interface{}) error {
	b, err := json.Marshal(j.v)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, valuePtr)
}

type fakeTemporal struct {
	startedID string
	input     workflows.PipelineInput
	startErr  error
	status    *workflows.PipelineStatus
}

func (f *fakeTemporal) ExecuteWorkflow(_ context.Context, opts tclient.StartWorkflowOptions, _ interface{}, args ...interface{}) (tclient.WorkflowRun, error) {
	if f.startErr != nil {
		return nil, f.startErr
	}
	f.startedID = opts.ID
	f.input = args[0].(workflows.PipelineInput)
	return fakeRun{result: workflows.PipelineResult{Success: true, ProjectID: f.input.ProjectID, RunID: "run-1"}}, nil
}

func (f *fakeTemporal) QueryWorkflow(context.Context, string, string, string, ...interface{}) (converter.EncodedValue, error) {
	if f.status == nil {
		return nil, errors.New("workflow not found")
	}
	return jsonValue{v: *f.status}, nil
}

type fakeInsights struct {
	insight models.Insight
	err     error
}

func (f *fakeInsights) Latest(_ context.Context, _, insightType string) (models.Insight, error) {
	if f.err != nil {
		return models.Insight{}, f.err
	}
	out := f.insight
	out.InsightType = insightType
	return out, nil
}

type fakeSearcher struct {
	topK int
}

func (f *fakeSearcher) SearchProject(_ context.Context, projectID string, _ []float32, topK int, _ vector.SearchFilters) ([]models.EmbeddingMatch, error) {
	f.topK = topK
	return []models.EmbeddingMatch{{ID: "e1", ProjectID: projectID, ContentType: "sentiment", ChunkText: "Customers praise battery life. Shipping was slow.", Similarity: 0.9}}, nil
}

const testProjectID = "3f0c8a52-2d7e-4c43-9a71-6f1d2b9e0a11"

func newTestServer(deps Deps) http.Handler {
	cfg := config.Config{}
	cfg.App.RequestTimeout = 5 * time.Second
	cfg.Temporal.TaskQueue = "marketpulse"
	cfg.Embedding.Dimension = 8
	return NewServer(cfg, logger.Nop(), deps).Routes()
}

func decodeErr(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body struct {
		Error map[string]any `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

func TestResearchRequiresNames(t *testing.T) {
	h := newTestServer(Deps{Projects: &fakeProjects{}, Temporal: &fakeTemporal{}})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/research", strings.NewReader(`{"productName":"Widget"}`)))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	e := decodeErr(t, rec)
	require.Equal(t, "MP-API-4001", e["code"])
	require.Equal(t, "Product name and company name are required.", e["message"])
}

func TestResearchRejectsMalformedJSON(t *testing.T) {
	h := newTestServer(Deps{Projects: &fakeProjects{}, Temporal: &fakeTemporal{}})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/research", strings.NewReader(`{`)))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Malformed JSON request body.", decodeErr(t, rec)["message"])
}

func TestResearchCreatesProjectAndRunsWorkflow(t *testing.T) {
	projects := &fakeProjects{}
	tc := &fakeTemporal{}
	h := newTestServer(Deps{Projects: projects, Temporal: tc})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/research",
		strings.NewReader(`{"productName":"Widget","companyName":"Acme","description":"d","userGeminiKey":"k"}`)))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, projects.created, 1)
	require.Equal(t, "research-p-new", tc.startedID)
	require.Equal(t, "p-new", tc.input.ProjectID)
	require.Equal(t, "k", tc.input.GeminiKey)

	var out workflows.PipelineResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.True(t, out.Success)
	require.Equal(t, "run-1", out.RunID)
}

func TestResearchUsesExistingProject(t *testing.T) {
	projects := &fakeProjects{}
	tc := &fakeTemporal{}
	h := newTestServer(Deps{Projects: projects, Temporal: tc})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/research",
		strings.NewReader(`{"projectId":"3f0c8a52-2d7e-4c43-9a71-6f1d2b9e0a11","productName":"Widget","companyName":"Acme"}`)))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, projects.created)
	require.Equal(t, "research-"+testProjectID, tc.startedID)
}

func TestResearchAlreadyRunningIsConflict(t *testing.T) {
	tc := &fakeTemporal{startErr: serviceerror.NewWorkflowExecutionAlreadyStarted("workflow execution already started", "req-1", "run-0")}
	projects := &fakeProjects{}
	h := newTestServer(Deps{Projects: projects, Temporal: tc})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/research",
		strings.NewReader(`{"projectId":"3f0c8a52-2d7e-4c43-9a71-6f1d2b9e0a11","productName":"Widget","companyName":"Acme"}`)))

	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "MP-API-4009", decodeErr(t, rec)["code"])
	// The running pipeline owns the existing project's status.
	require.Empty(t, projects.status)
}

func TestResearchStartFailureFailsNewProject(t *testing.T) {
	tc := &fakeTemporal{startErr: errors.New("dial tcp 127.0.0.1:7233: connect: connection refused")}
	projects := &fakeProjects{}
	h := newTestServer(Deps{Projects: projects, Temporal: tc})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/research",
		strings.NewReader(`{"productName":"Widget","companyName":"Acme"}`)))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Equal(t, "MP-API-5030", decodeErr(t, rec)["code"])
	require.Len(t, projects.created, 1)
	require.Equal(t, models.ProjectFailed, projects.status["p-new"])
}

func TestResearchStartFailureLeavesExistingProject(t *testing.T) {
	tc := &fakeTemporal{startErr: errors.New("dial tcp 127.0.0.1:7233: connect: connection refused")}
	projects := &fakeProjects{}
	h := newTestServer(Deps{Projects: projects, Temporal: tc})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/research",
		strings.NewReader(`{"projectId":"`+testProjectID+`","productName":"Widget","companyName":"Acme"}`)))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Empty(t, projects.status)
}

func TestProgressFromLiveWorkflow(t *testing.T) {
	tc := &fakeTemporal{status: &workflows.PipelineStatus{ProjectID: "p1", CurrentStep: "step3", Status: "running"}}
	h := newTestServer(Deps{Temporal: tc, Runs: &fakeRuns{}})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/projects/3f0c8a52-2d7e-4c43-9a71-6f1d2b9e0a11/progress", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var st workflows.PipelineStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	require.Equal(t, "step3", st.CurrentStep)
}

func TestProgressFallsBackToLatestRun(t *testing.T) {
	runs := &fakeRuns{latest: models.ResearchRun{
		ID:              "run-1",
		ProjectID:       "p1",
		Status:          models.RunCompleted,
		EmbeddingsCount: 4,
		Metadata: map[string]any{
			"steps": map[string]any{"step1": "completed", "step4": "not_needed", "step6": "completed"},
		},
	}}
	h := newTestServer(Deps{Temporal: &fakeTemporal{}, Runs: runs})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/projects/3f0c8a52-2d7e-4c43-9a71-6f1d2b9e0a11/progress", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var st workflows.PipelineStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	require.Equal(t, "completed", st.Status)
	require.Equal(t, 4, st.EmbeddingsCount)
	require.Equal(t, "not_needed", st.Pipeline.Step4)
}

func TestProgressUnknownProject(t *testing.T) {
	runs := &fakeRuns{err: fmt.Errorf("latest: %w", storage.ErrNotFound)}
	h := newTestServer(Deps{Temporal: &fakeTemporal{}, Runs: runs})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/projects/3f0c8a52-2d7e-4c43-9a71-6f1d2b9e0a11/progress", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRunsLimitValidation(t *testing.T) {
	runs := &fakeRuns{}
	h := newTestServer(Deps{Runs: runs})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/projects/3f0c8a52-2d7e-4c43-9a71-6f1d2b9e0a11/runs?limit=abc", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/projects/3f0c8a52-2d7e-4c43-9a71-6f1d2b9e0a11/runs?limit=5", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 5, runs.limit)
}

func TestBriefUnknownProject(t *testing.T) {
	h := newTestServer(Deps{Projects: &fakeProjects{}})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/projects/3f0c8a52-2d7e-4c43-9a71-6f1d2b9e0a11/brief", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSearchRequiresQuery(t *testing.T) {
	h := newTestServer(Deps{Embedder: providers.NewMockProvider(8), Searcher: &fakeSearcher{}})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/projects/3f0c8a52-2d7e-4c43-9a71-6f1d2b9e0a11/search", strings.NewReader(`{"query":"  "}`)))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "A search query is required.", decodeErr(t, rec)["message"])
}

func TestSearchReturnsSnippets(t *testing.T) {
	s := &fakeSearcher{}
	h := newTestServer(Deps{Embedder: providers.NewMockProvider(8), Searcher: s})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/projects/3f0c8a52-2d7e-4c43-9a71-6f1d2b9e0a11/search", strings.NewReader(`{"query":"battery life","topK":3}`)))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 3, s.topK)
	var body struct {
		Matches []models.EmbeddingMatch `json:"matches"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Matches, 1)
	require.NotEmpty(t, body.Matches[0].Snippet)
}

func TestHealthzReportsPingFailure(t *testing.T) {
	h := newTestServer(Deps{Ping: func(context.Context) error { return errors.New("dial tcp: connection refused") }})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	h = newTestServer(Deps{Ping: func(context.Context) error { return nil }})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestUnknownRouteAndMethod(t *testing.T) {
	h := newTestServer(Deps{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "MP-API-4004", decodeErr(t, rec)["code"])

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/research", nil))
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestProjectRoutesRejectBadIDs(t *testing.T) {
	h := newTestServer(Deps{Runs: &fakeRuns{}})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/projects/not-a-uuid/runs", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Project id must be a valid UUID.", decodeErr(t, rec)["message"])

	h = newTestServer(Deps{Projects: &fakeProjects{}, Temporal: &fakeTemporal{}})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/research",
		strings.NewReader(`{"projectId":"p1","productName":"Widget","companyName":"Acme"}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	h := newTestServer(Deps{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/research", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestInsightsReturnsLatestSummary(t *testing.T) {
	ins := &fakeInsights{insight: models.Insight{ID: "i1", ProjectID: testProjectID, Data: json.RawMessage(`{"summary":"ok"}`)}}
	h := newTestServer(Deps{Insights: ins, Temporal: &fakeTemporal{}})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/projects/"+testProjectID+"/insights", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var got models.Insight
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, "i1", got.ID)
	require.Equal(t, models.InsightTypeAISummary, got.InsightType)
	require.JSONEq(t, `{"summary":"ok"}`, string(got.Data))
}

func TestInsightsMissingIsNotFound(t *testing.T) {
	ins := &fakeInsights{err: fmt.Errorf("latest insight: %w", storage.ErrNotFound)}
	h := newTestServer(Deps{Insights: ins, Temporal: &fakeTemporal{}})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/projects/"+testProjectID+"/insights", nil))

	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "MP-API-4004", decodeErr(t, rec)["code"])
}
