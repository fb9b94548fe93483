package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"marketpulse/internal/fanout"
	"marketpulse/internal/logger"
	"marketpulse/internal/metrics"
	"marketpulse/internal/models"
	"marketpulse/internal/providers"
)

// ResultWriter persists one AgentResult row and returns its id.
type ResultWriter interface {
	Insert(ctx context.Context, r models.AgentResult) (string, error)
}

type Options struct {
	// SearchMaxTokens caps answers from the web-search LLM.
	SearchMaxTokens int64
}

// Runner launches the sentiment, competitor and trend agents concurrently.
type Runner struct {
	gateway providers.ChatProvider
	search  providers.ChatProvider
	results ResultWriter
	log     *logger.Logger
	opts    Options
}

// NewRunner builds a Runner. search may be nil, in which case every agent
// uses the gateway.
func NewRunner(gateway, search providers.ChatProvider, results ResultWriter, log *logger.Logger, opts Options) *Runner {
	if log == nil {
		log = logger.Nop()
	}
	return &Runner{gateway: gateway, search: search, results: results, log: log, opts: opts}
}

// Run calls every agent, writes one row per agent and returns once all have
// settled. Individual agent failures are recorded, not returned; the error is
// reserved for invalid input or when no row could be written at all.
func (r *Runner) Run(ctx context.Context, req AgentRequest) (RunOutput, error) {
	if err := req.Validate(); err != nil {
		return RunOutput{}, err
	}
	tasks := make([]fanout.Task[AgentOutcome], 0, len(models.AllAgents))
	for _, t := range models.AllAgents {
		tasks = append(tasks, fanout.Task[AgentOutcome]{
			Name: string(t),
			Run: func(ctx context.Context) (AgentOutcome, error) {
				return r.runAgent(ctx, t, req)
			},
		})
	}
	outcomes := fanout.Settle(ctx, tasks)

	settled, unsaved := fanout.Split(outcomes)
	out := RunOutput{Results: make([]AgentOutcome, 0, len(settled))}
	out.Summary.Total = len(outcomes)
	out.Summary.Failed = len(unsaved)
	for _, o := range unsaved {
		r.log.Error("agent result not persisted", "agent", o.Name, "project_id", req.ProjectID, "error", o.Err)
	}
	for _, o := range settled {
		out.Results = append(out.Results, o.Value)
		if o.Value.Status == models.ResultCompleted {
			out.Summary.Succeeded++
		} else {
			out.Summary.Failed++
		}
		if o.Value.Fallback {
			out.Summary.Fallbacks++
		}
	}
	if len(out.Results) == 0 {
		return out, fmt.Errorf("no agent results persisted: %w", unsaved[len(unsaved)-1].Err)
	}
	return out, nil
}

func (r *Runner) providerFor(t models.AgentType) (providers.ChatProvider, int64) {
	if t != models.AgentSentiment && r.search != nil {
		return r.search, r.opts.SearchMaxTokens
	}
	return r.gateway, 0
}

func (r *Runner) runAgent(ctx context.Context, t models.AgentType, req AgentRequest) (AgentOutcome, error) {
	provider, maxTokens := r.providerFor(t)
	started := time.Now()
	resp, info, callErr := provider.Chat(ctx, providers.ChatRequest{
		Operation: "agent:" + string(t),
		System:    systemPrompt,
		Prompt:    buildPrompt(t, req),
		MaxTokens: maxTokens,
	})
	latency := time.Since(started)

	outcome := AgentOutcome{
		AgentType: t,
		Provider:  info.Name,
		Model:     info.Model,
		LatencyMS: latency.Milliseconds(),
		Status:    models.ResultCompleted,
	}
	var (
		payload any
		err     error
	)
	if callErr != nil {
		// Failed rows still carry the fallback shape.
		outcome.Status = models.ResultFailed
		outcome.Error = callErr.Error()
		outcome.Fallback = true
		outcome.FallbackReason = "request failed"
		payload = fallbackFor(t)
	} else {
		payload, outcome.Fallback, outcome.FallbackReason = parseFor(t, resp.Text)
	}
	outcome.Result, err = json.Marshal(payload)
	if err != nil {
		return outcome, fmt.Errorf("marshal %s result: %w", t, err)
	}

	status := string(outcome.Status)
	if outcome.Fallback && callErr == nil {
		status = "fallback"
	}
	metrics.RecordAgentCall(string(t), info.Name, status, latency, resp.Tokens)

	row := models.AgentResult{
		ProjectID:    req.ProjectID,
		AgentType:    t,
		Status:       outcome.Status,
		Result:       outcome.Result,
		ErrorMessage: outcome.Error,
		Metadata: models.ResultMetadata{
			Model:          info.Model,
			Provider:       info.Name,
			LatencyMS:      outcome.LatencyMS,
			Tokens:         resp.Tokens,
			Fallback:       outcome.Fallback,
			FallbackReason: outcome.FallbackReason,
			RunID:          req.RunID,
		},
	}
	id, err := r.results.Insert(ctx, row)
	if err != nil {
		return outcome, fmt.Errorf("insert %s result: %w", t, err)
	}
	outcome.ResultID = id

	if callErr != nil {
		r.log.Warn("agent call failed", "agent", t, "project_id", req.ProjectID, "error_type", providers.ClassifyError(callErr), "error", callErr)
	} else if outcome.Fallback {
		r.log.Warn("agent answer unparseable, stored fallback", "agent", t, "project_id", req.ProjectID, "reason", outcome.FallbackReason)
	} else {
		r.log.Info("agent completed", "agent", t, "project_id", req.ProjectID, "latency_ms", outcome.LatencyMS)
	}
	return outcome, nil
}

func parseFor(t models.AgentType, text string) (any, bool, string) {
	switch t {
	case models.AgentSentiment:
		p := ParseSentiment(text)
		return p.Value, p.Fallback, p.Reason
	case models.AgentCompetitor:
		p := ParseCompetitors(text)
		return p.Value, p.Fallback, p.Reason
	default:
		p := ParseTrend(text)
		return p.Value, p.Fallback, p.Reason
	}
}

func fallbackFor(t models.AgentType) any {
	switch t {
	case models.AgentSentiment:
		return SentimentFallback()
	case models.AgentCompetitor:
		return CompetitorFallback()
	default:
		return TrendFallback()
	}
}
