package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"marketpulse/internal/activities"
	"marketpulse/internal/config"
	"marketpulse/internal/logger"
	"marketpulse/internal/metrics"
	"marketpulse/internal/models"
	"marketpulse/internal/providers"
	"marketpulse/internal/storage"
	"marketpulse/internal/util"
	"marketpulse/internal/vector"
	"marketpulse/internal/workflows"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	tclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/converter"
)

type ProjectStore interface {
	Create(ctx context.Context, p models.ResearchProject) (string, error)
	Get(ctx context.Context, id string) (models.ResearchProject, error)
	AppendDescription(ctx context.Context, id, text string) error
	UpdateStatus(ctx context.Context, id string, status models.ProjectStatus) error
}

type RunStore interface {
	ListByProject(ctx context.Context, projectID string, limit int) ([]models.ResearchRun, error)
	Latest(ctx context.Context, projectID string) (models.ResearchRun, error)
}

type InsightStore interface {
	Latest(ctx context.Context, projectID, insightType string) (models.Insight, error)
}

type EmbeddingSearcher interface {
	SearchProject(ctx context.Context, projectID string, queryVec []float32, topK int, filters vector.SearchFilters) ([]models.EmbeddingMatch, error)
}

// WorkflowClient is the part of the Temporal client the API uses.
type WorkflowClient interface {
	ExecuteWorkflow(ctx context.Context, options tclient.StartWorkflowOptions, workflow interface{}, args ...interface{}) (tclient.WorkflowRun, error)
	QueryWorkflow(ctx context.Context, workflowID, runID, queryType string, args ...interface{}) (converter.EncodedValue, error)
}

type Deps struct {
	Projects ProjectStore
	Runs     RunStore
	Insights InsightStore
	Searcher EmbeddingSearcher
	Embedder providers.EmbeddingProvider
	Temporal WorkflowClient
	Ping     func(ctx context.Context) error
}

// NewDeps wires the Postgres-backed stores and the configured embedder.
func NewDeps(db *storage.DB, tc WorkflowClient, pm *providers.Manager) Deps {
	return Deps{
		Projects: storage.NewProjectRepo(db),
		Runs:     storage.NewRunRepo(db),
		Insights: storage.NewInsightRepo(db),
		Searcher: vector.NewSearcher(db.Pool),
		Embedder: pm.Embedder(),
		Temporal: tc,
		Ping:     db.Ping,
	}
}

type Server struct {
	cfg  config.Config
	log  *logger.Logger
	deps Deps
}

func NewServer(cfg config.Config, log *logger.Logger, deps Deps) *Server {
	return &Server{cfg: cfg, log: log, deps: deps}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(withCORS)

	r.Get("/healthz", s.handleHealthz)
	r.Handle("/metrics", metrics.Handler())
	r.Post("/research", s.handleResearch)
	r.Route("/projects/{projectID}", func(r chi.Router) {
		r.Use(requireProjectID)
		r.Get("/progress", s.handleProgress)
		r.Get("/runs", s.handleRuns)
		r.Get("/insights", s.handleInsights)
		r.Post("/brief", s.handleBrief)
		r.Post("/search", s.handleSearch)
	})
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
	})
	return r
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ping != nil {
		if err := s.deps.Ping(r.Context()); err != nil {
			writeErr(w, http.StatusServiceUnavailable, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

type researchRequest struct {
	ProjectID     string `json:"projectId"`
	ProductName   string `json:"productName"`
	CompanyName   string `json:"companyName"`
	Description   string `json:"description"`
	UserID        string `json:"userId"`
	UserGeminiKey string `json:"userGeminiKey"`
}

func (req researchRequest) validate() error {
	if strings.TrimSpace(req.ProductName) == "" || strings.TrimSpace(req.CompanyName) == "" {
		return fmt.Errorf("productName and companyName are required")
	}
	if req.ProjectID != "" {
		if _, err := uuid.Parse(req.ProjectID); err != nil {
			return fmt.Errorf("projectId must be a valid uuid")
		}
	}
	return nil
}

func requireProjectID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := uuid.Parse(chi.URLParam(r, "projectID")); err != nil {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("projectId must be a valid uuid"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handleResearch starts the pipeline and blocks until it returns, so the
// caller gets the full PipelineResult from a single request.
func (s *Server) handleResearch(w http.ResponseWriter, r *http.Request) {
	var req researchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
		return
	}
	if err := req.validate(); err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}

	projectID := strings.TrimSpace(req.ProjectID)
	created := false
	if projectID == "" {
		id, err := s.deps.Projects.Create(r.Context(), models.ResearchProject{
			UserID:      req.UserID,
			ProductName: req.ProductName,
			CompanyName: req.CompanyName,
			Description: req.Description,
		})
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		projectID = id
		created = true
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.App.RequestTimeout)
	defer cancel()
	we, err := s.deps.Temporal.ExecuteWorkflow(ctx, workflows.StartOptions(projectID, s.cfg.Temporal.TaskQueue), workflows.ResearchPipelineWorkflow, workflows.PipelineInput{
		ProjectID:         projectID,
		ProductName:       req.ProductName,
		CompanyName:       req.CompanyName,
		Description:       req.Description,
		UserID:            req.UserID,
		GeminiKey:         req.UserGeminiKey,
		FeedbackThreshold: s.cfg.Pipeline.FeedbackThreshold,
		StepTimeout:       s.cfg.Pipeline.StepTimeout,
	})
	if err != nil {
		if created {
			s.failProject(r.Context(), projectID, err)
		}
		code := http.StatusServiceUnavailable
		if workflows.IsAlreadyStarted(err) {
			code = http.StatusConflict
		}
		writeErr(w, code, fmt.Errorf("start research workflow: %w", err))
		return
	}
	s.log.Info("research workflow started", "project_id", projectID, "workflow_id", we.GetID(), "run_id", we.GetRunID())

	var result workflows.PipelineResult
	if err := we.Get(ctx, &result); err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, context.DeadlineExceeded) {
			code = http.StatusGatewayTimeout
		}
		writeErr(w, code, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// failProject closes a project created by a request whose pipeline never
// started, so it does not stay in_progress.
func (s *Server) failProject(ctx context.Context, projectID string, cause error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.deps.Projects.UpdateStatus(ctx, projectID, models.ProjectFailed); err != nil {
		s.log.Error("mark project failed", "project_id", projectID, "cause", cause, "error", err)
		return
	}
	s.log.Warn("pipeline not started, project marked failed", "project_id", projectID, "error", cause)
}

// handleProgress answers from the live workflow and falls back to the latest
// stored run once the workflow is gone.
func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	resp, err := s.deps.Temporal.QueryWorkflow(r.Context(), workflows.WorkflowID(projectID), "", workflows.QueryGetPipelineStatus)
	if err == nil {
		var st workflows.PipelineStatus
		if err := resp.Get(&st); err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, st)
		return
	}

	run, rErr := s.deps.Runs.Latest(r.Context(), projectID)
	if rErr != nil {
		if errors.Is(rErr, storage.ErrNotFound) {
			writeErr(w, http.StatusNotFound, rErr)
			return
		}
		writeErr(w, http.StatusInternalServerError, rErr)
		return
	}
	writeJSON(w, http.StatusOK, workflows.StatusFromRun(run))
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("limit must be a positive integer"))
			return
		}
		limit = n
	}
	runs, err := s.deps.Runs.ListByProject(r.Context(), projectID, limit)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	ins, err := s.deps.Insights.Latest(r.Context(), projectID, models.InsightTypeAISummary)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeErr(w, http.StatusNotFound, fmt.Errorf("no insights for project: %w", err))
			return
		}
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, ins)
}

// handleBrief stores an uploaded PDF brief and appends its text to the project description.
func (s *Server) handleBrief(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	if _, err := s.deps.Projects.Get(r.Context(), projectID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeErr(w, http.StatusNotFound, err)
			return
		}
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("parse multipart: %w", err))
		return
	}
	fh, ok := firstSingleFile(r.MultipartForm.File)
	if !ok {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("no files provided"))
		return
	}
	if !strings.HasSuffix(strings.ToLower(fh.Filename), ".pdf") {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("brief must be a pdf"))
		return
	}

	dir := filepath.Join(s.cfg.App.DataDir, "briefs", projectID)
	if err := util.EnsureDir(dir); err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	hash, path, err := saveUploadedFile(dir, fh)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	text, err := activities.ExtractPDFText(path)
	if err != nil {
		writeErr(w, http.StatusUnprocessableEntity, err)
		return
	}
	text = util.CleanText(text, activities.MaxBriefRunes)
	if err := util.WriteTextAtomic(path+".txt", text); err != nil {
		s.log.Warn("write brief text failed", "project_id", projectID, "error", err)
	}
	if err := s.deps.Projects.AppendDescription(r.Context(), projectID, text); err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"filename": filepath.Base(path),
		"sha256":   hash,
		"chars":    len([]rune(text)),
	})
}

type searchRequest struct {
	Query         string  `json:"query"`
	TopK          int     `json:"topK"`
	MinSimilarity float64 `json:"minSimilarity"`
	UserGeminiKey string  `json:"userGeminiKey"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
		return
	}
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("query is required"))
		return
	}
	key := req.UserGeminiKey
	if key == "" {
		key = s.cfg.Embedding.GeminiKey
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()
	vec, _, err := s.deps.Embedder.Embed(ctx, providers.EmbedRequest{
		Operation: "search",
		Input:     req.Query,
		Dimension: s.cfg.Embedding.Dimension,
		APIKey:    key,
	})
	if err != nil {
		writeErr(w, http.StatusBadGateway, fmt.Errorf("embed query: %w", err))
		return
	}
	matches, err := s.deps.Searcher.SearchProject(ctx, projectID, vec, req.TopK, vector.SearchFilters{MinSimilarity: req.MinSimilarity})
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"matches": vector.WithSnippets(matches, req.Query, 280)})
}
