package insights

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"marketpulse/internal/logger"
	"marketpulse/internal/metrics"
	"marketpulse/internal/models"
	"marketpulse/internal/providers"
)

var (
	ErrNoResults       = errors.New("no data: project has no agent results")
	ErrNoInsights      = errors.New("no insights generated")
	ErrRateLimited     = errors.New("rate limited")
	ErrPaymentRequired = errors.New("payment required")
	ErrGateway         = errors.New("AI gateway error")
)

type ResultReader interface {
	ListByProject(ctx context.Context, projectID string) ([]models.AgentResult, error)
}

type InsightWriter interface {
	Insert(ctx context.Context, in models.Insight) (string, error)
}

type Aggregator struct {
	gateway  providers.ChatProvider
	results  ResultReader
	insights InsightWriter
	log      *logger.Logger
	// maxPromptChars bounds the serialized agent results.
	maxPromptChars int
}

func NewAggregator(gateway providers.ChatProvider, results ResultReader, insights InsightWriter, log *logger.Logger) *Aggregator {
	if log == nil {
		log = logger.Nop()
	}
	return &Aggregator{gateway: gateway, results: results, insights: insights, log: log, maxPromptChars: 60000}
}

// Aggregate summarizes every stored agent result of the project into one
// ai_summary Insight row.
func (a *Aggregator) Aggregate(ctx context.Context, projectID string) (models.Insight, error) {
	rows, err := a.results.ListByProject(ctx, projectID)
	if err != nil {
		return models.Insight{}, fmt.Errorf("load agent results: %w", err)
	}
	if len(rows) == 0 {
		return models.Insight{}, ErrNoResults
	}

	resp, _, err := a.gateway.Chat(ctx, providers.ChatRequest{
		Operation: "insights",
		System:    "You are a senior market analyst. Summarize the research data by calling the provided function.",
		Prompt:    a.prompt(rows),
		Tool:      Tool(),
	})
	if err != nil {
		mapped := mapGatewayError(err)
		metrics.RecordInsight(statusLabel(mapped))
		return models.Insight{}, mapped
	}

	report, err := decodeReport(resp.ToolCalls)
	if err != nil {
		metrics.RecordInsight("no_insights")
		return models.Insight{}, err
	}
	data, err := json.Marshal(report)
	if err != nil {
		return models.Insight{}, fmt.Errorf("marshal insight report: %w", err)
	}
	insight := models.Insight{ProjectID: projectID, InsightType: models.InsightTypeAISummary, Data: data}
	id, err := a.insights.Insert(ctx, insight)
	if err != nil {
		metrics.RecordInsight("store_failed")
		return models.Insight{}, fmt.Errorf("insert insight: %w", err)
	}
	insight.ID = id
	metrics.RecordInsight("completed")
	a.log.Info("insights generated", "project_id", projectID, "results", len(rows), "findings", len(report.KeyFindings))
	return insight, nil
}

func (a *Aggregator) prompt(rows []models.AgentResult) string {
	var b strings.Builder
	b.WriteString("Research data collected by the analysis agents:\n\n")
	for _, r := range rows {
		entry := fmt.Sprintf("### %s (%s)\n%s\n\n", r.AgentType, r.Status, string(r.Result))
		if b.Len()+len(entry) > a.maxPromptChars {
			break
		}
		b.WriteString(entry)
	}
	b.WriteString("Produce key findings, a sentiment percentage breakdown, trends, anomalies and recommendations.")
	return b.String()
}

func decodeReport(calls []providers.ToolCall) (Report, error) {
	for _, c := range calls {
		if c.Name != ToolName {
			continue
		}
		var r Report
		if err := json.Unmarshal([]byte(c.Arguments), &r); err != nil {
			return Report{}, fmt.Errorf("%w: parse tool arguments: %v", ErrNoInsights, err)
		}
		r.normalize()
		return r, nil
	}
	return Report{}, ErrNoInsights
}

func (r *Report) normalize() {
	if r.KeyFindings == nil {
		r.KeyFindings = []string{}
	}
	if r.Trends == nil {
		r.Trends = []string{}
	}
	if r.Anomalies == nil {
		r.Anomalies = []string{}
	}
	if r.Recommendations == nil {
		r.Recommendations = []string{}
	}
}

func mapGatewayError(err error) error {
	switch providers.StatusCode(err) {
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %v", ErrRateLimited, err)
	case http.StatusPaymentRequired:
		return fmt.Errorf("%w: %v", ErrPaymentRequired, err)
	default:
		return fmt.Errorf("%w: %v", ErrGateway, err)
	}
}

func statusLabel(err error) string {
	switch {
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrPaymentRequired):
		return "payment_required"
	default:
		return "gateway_error"
	}
}
