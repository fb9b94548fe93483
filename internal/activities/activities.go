package activities

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"marketpulse/internal/agents"
	"marketpulse/internal/config"
	"marketpulse/internal/embedding"
	"marketpulse/internal/insights"
	"marketpulse/internal/logger"
	"marketpulse/internal/metrics"
	"marketpulse/internal/models"
	"marketpulse/internal/observability"
	"marketpulse/internal/providers"
	"marketpulse/internal/storage"
	"marketpulse/internal/util"

	"github.com/ledongthuc/pdf"
	"go.opentelemetry.io/otel/attribute"
)

// embedDeadlineMargin is kept free before the activity deadline so a cut-short
// embedding pass can still report its partial counts.
const embedDeadlineMargin = 5 * time.Second

// MaxBriefRunes bounds how much of an uploaded brief is appended to a project description.
const MaxBriefRunes = 4000

type projectStore interface {
	UpdateStatus(ctx context.Context, id string, status models.ProjectStatus) error
	AppendDescription(ctx context.Context, id, text string) error
}

type runStore interface {
	Create(ctx context.Context, projectID string, agents []string) (string, error)
	Finish(ctx context.Context, f storage.RunFinish) error
}

type sufficiencyChecker interface {
	Check(ctx context.Context, projectID string) (models.SufficiencyReport, error)
}

type agentRunner interface {
	Run(ctx context.Context, req agents.AgentRequest) (agents.RunOutput, error)
}

type embeddingGenerator interface {
	Generate(ctx context.Context, in embedding.GenerateInput) (embedding.GenerateOutput, error)
}

type insightAggregator interface {
	Aggregate(ctx context.Context, projectID string) (models.Insight, error)
}

type Activities struct {
	cfg         config.Config
	log         *logger.Logger
	tracker     observability.ErrorTracker
	projects    projectStore
	runs        runStore
	sufficiency sufficiencyChecker
	runner      agentRunner
	embedder    embeddingGenerator
	aggregator  insightAggregator
}

func New(cfg config.Config, db *storage.DB, log *logger.Logger, tracker observability.ErrorTracker) (*Activities, error) {
	pm, err := providers.NewManager(cfg)
	if err != nil {
		return nil, err
	}
	results := storage.NewAgentResultRepo(db)
	search, _ := pm.Search()
	runner := agents.NewRunner(pm.Gateway(), search, results, log, agents.Options{SearchMaxTokens: cfg.Search.MaxTokens})
	generator := embedding.NewGenerator(pm.Embedder(), storage.NewEmbeddingRepo(db), log, embedding.Options{
		ChunkWords:   cfg.Embedding.ChunkWords,
		ChunkOverlap: cfg.Embedding.ChunkOverlap,
		MaxChars:     cfg.Embedding.MaxChars,
		Dimension:    cfg.Embedding.Dimension,
		CallDelay:    cfg.Embedding.CallDelay,
	})
	aggregator := insights.NewAggregator(pm.Gateway(), results, storage.NewInsightRepo(db), log)

	if tracker == nil {
		tracker = observability.NopTracker{}
	}
	return &Activities{
		cfg:         cfg,
		log:         log,
		tracker:     tracker,
		projects:    storage.NewProjectRepo(db),
		runs:        storage.NewRunRepo(db),
		sufficiency: storage.NewSufficiencyRepo(db),
		runner:      runner,
		embedder:    generator,
		aggregator:  aggregator,
	}, nil
}

func (a *Activities) CreateRunActivity(ctx context.Context, in CreateRunInput) (out CreateRunOutput, err error) {
	ctx, done := a.step(ctx, "create_run", in.ProjectID)
	defer func() { done(err) }()

	id, err := a.runs.Create(ctx, in.ProjectID, in.Agents)
	if err != nil {
		return CreateRunOutput{}, err
	}
	a.log.Info("research run started", "project_id", in.ProjectID, "run_id", id)
	return CreateRunOutput{RunID: id}, nil
}

func (a *Activities) RunAgentsActivity(ctx context.Context, in RunAgentsInput) (out agents.RunOutput, err error) {
	ctx, done := a.step(ctx, "agents", in.ProjectID)
	defer func() { done(err) }()

	out, err = a.runner.Run(ctx, agents.AgentRequest{
		ProjectID:   in.ProjectID,
		RunID:       in.RunID,
		ProductName: in.ProductName,
		CompanyName: in.CompanyName,
		Description: in.Description,
	})
	if err != nil {
		return agents.RunOutput{}, fmt.Errorf("agent runner: %w", err)
	}
	a.log.Info("agents finished", "project_id", in.ProjectID, "run_id", in.RunID,
		"succeeded", out.Summary.Succeeded, "failed", out.Summary.Failed, "fallbacks", out.Summary.Fallbacks)
	return out, nil
}

func (a *Activities) CheckSufficiencyActivity(ctx context.Context, in CheckSufficiencyInput) (out models.SufficiencyReport, err error) {
	ctx, done := a.step(ctx, "sufficiency", in.ProjectID)
	defer func() { done(err) }()

	return a.sufficiency.Check(ctx, in.ProjectID)
}

// GenerateEmbeddingsActivity embeds every completed outcome. Failed agent
// rows only hold fallback filler and are not embedded.
func (a *Activities) GenerateEmbeddingsActivity(ctx context.Context, in GenerateEmbeddingsInput) (out embedding.GenerateOutput, err error) {
	ctx, done := a.step(ctx, "embeddings", in.ProjectID)
	defer func() { done(err) }()

	key := strings.TrimSpace(in.GeminiKey)
	if key == "" {
		key = a.cfg.Embedding.GeminiKey
	}
	genCtx := ctx
	if dl, ok := ctx.Deadline(); ok && time.Until(dl) > 2*embedDeadlineMargin {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithDeadline(ctx, dl.Add(-embedDeadlineMargin))
		defer cancel()
	}
	out, genErr := a.embedder.Generate(genCtx, embedding.GenerateInput{
		ProjectID: in.ProjectID,
		RunID:     in.RunID,
		GeminiKey: key,
		Items:     embeddingItems(in.Results),
	})
	if genErr != nil {
		// Rows already inserted stay counted; an activity error would drop the output.
		out.Error = genErr.Error()
		a.log.Warn("embedding pass stopped early", "project_id", in.ProjectID, "run_id", in.RunID,
			"inserted", out.EmbeddingsCount, "error", genErr)
	}
	return out, nil
}

func embeddingItems(results []agents.AgentOutcome) []embedding.Item {
	items := make([]embedding.Item, 0, len(results))
	for _, r := range results {
		if r.Status != models.ResultCompleted {
			continue
		}
		items = append(items, embedding.Item{AgentType: string(r.AgentType), Result: r.Result, ResultID: r.ResultID})
	}
	return items
}

func (a *Activities) AggregateInsightsActivity(ctx context.Context, in AggregateInsightsInput) (out AggregateInsightsOutput, err error) {
	ctx, done := a.step(ctx, "insights", in.ProjectID)
	defer func() { done(err) }()

	ins, err := a.aggregator.Aggregate(ctx, in.ProjectID)
	if err != nil {
		return AggregateInsightsOutput{}, err
	}
	return AggregateInsightsOutput{InsightID: ins.ID, Data: ins.Data}, nil
}

// FinishRunActivity closes the run row and moves the project to its final status.
func (a *Activities) FinishRunActivity(ctx context.Context, in FinishRunInput) (err error) {
	ctx, done := a.step(ctx, "finish_run", in.ProjectID)
	defer func() { done(err) }()

	meta := map[string]any{
		"results_count": in.ResultsCount,
		"steps":         in.Steps,
	}
	if in.Error != "" {
		meta["error"] = in.Error
	}
	if in.RunID != "" {
		if err := a.runs.Finish(ctx, storage.RunFinish{
			ID:                    in.RunID,
			Status:                in.Status,
			EmbeddingsCount:       in.EmbeddingsCount,
			FeedbackLoopTriggered: in.FeedbackLoopTriggered,
			Metadata:              meta,
		}); err != nil {
			return err
		}
	}

	projectStatus := models.ProjectCompleted
	if in.Status == models.RunFailed {
		projectStatus = models.ProjectFailed
		a.tracker.CaptureError(ctx, errors.New(in.Error), map[string]string{
			"project_id": in.ProjectID,
			"run_id":     in.RunID,
		})
	}
	if err := a.projects.UpdateStatus(ctx, in.ProjectID, projectStatus); err != nil {
		return err
	}
	metrics.RecordPipelineRun(string(in.Status), in.FeedbackLoopTriggered)
	a.log.Info("research run finished", "project_id", in.ProjectID, "run_id", in.RunID,
		"status", in.Status, "embeddings", in.EmbeddingsCount, "feedback_loop", in.FeedbackLoopTriggered)
	return nil
}

// ExtractBriefActivity reads an uploaded PDF brief and appends its text to the project description.
func (a *Activities) ExtractBriefActivity(ctx context.Context, in ExtractBriefInput) (out ExtractBriefOutput, err error) {
	ctx, done := a.step(ctx, "brief", in.ProjectID)
	defer func() { done(err) }()

	text, err := ExtractPDFText(in.Path)
	if err != nil {
		return ExtractBriefOutput{}, err
	}
	text = util.CleanText(text, MaxBriefRunes)
	if err := a.projects.AppendDescription(ctx, in.ProjectID, text); err != nil {
		return ExtractBriefOutput{}, err
	}
	return ExtractBriefOutput{Text: text}, nil
}

// ExtractPDFText returns the sanitized plain text of the PDF at path.
func ExtractPDFText(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	reader, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}
	buf := new(strings.Builder)
	if _, err := io.Copy(buf, reader); err != nil {
		return "", fmt.Errorf("read extracted text: %w", err)
	}
	text := util.SanitizeText(buf.String())
	if text == "" {
		return "", util.ErrNoExtractableText
	}
	return text, nil
}

// step opens a span for one pipeline step and returns the func that closes it.
func (a *Activities) step(ctx context.Context, name, projectID string) (context.Context, func(error)) {
	started := time.Now()
	ctx, span := observability.StartSpan(ctx, "activity."+name, attribute.String("project_id", projectID))
	return ctx, func(err error) {
		metrics.RecordStep(name, started, err)
		if err != nil {
			a.log.Warn("step failed", "step", name, "project_id", projectID, "error", err)
		}
		observability.EndSpan(span, err)
	}
}
