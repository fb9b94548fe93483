package activities

import (
	"encoding/json"

	"marketpulse/internal/agents"
	"marketpulse/internal/models"
)

type CreateRunInput struct {
	ProjectID string   `json:"project_id"`
	Agents    []string `json:"agents"`
}

type CreateRunOutput struct {
	RunID string `json:"run_id"`
}

type RunAgentsInput struct {
	ProjectID   string `json:"project_id"`
	RunID       string `json:"run_id"`
	ProductName string `json:"product_name"`
	CompanyName string `json:"company_name"`
	Description string `json:"description,omitempty"`
}

type CheckSufficiencyInput struct {
	ProjectID string `json:"project_id"`
}

// GenerateEmbeddingsInput carries the outcomes of one Agent Runner call.
// GeminiKey is the caller's own key; empty falls back to the worker's key.
// Like the workflow input it comes from, it is recorded in history as is.
type GenerateEmbeddingsInput struct {
	ProjectID string                `json:"project_id"`
	RunID     string                `json:"run_id"`
	GeminiKey string                `json:"gemini_key,omitempty"`
	Results   []agents.AgentOutcome `json:"results"`
}

type AggregateInsightsInput struct {
	ProjectID string `json:"project_id"`
}

type AggregateInsightsOutput struct {
	InsightID string          `json:"insight_id"`
	Data      json.RawMessage `json:"data"`
}

type FinishRunInput struct {
	RunID                 string            `json:"run_id"`
	ProjectID             string            `json:"project_id"`
	Status                models.RunStatus  `json:"status"`
	ResultsCount          int               `json:"results_count"`
	EmbeddingsCount       int               `json:"embeddings_count"`
	FeedbackLoopTriggered bool              `json:"feedback_loop_triggered"`
	Steps                 map[string]string `json:"steps"`
	Error                 string            `json:"error,omitempty"`
}

type ExtractBriefInput struct {
	ProjectID string `json:"project_id"`
	Path      string `json:"path"`
}

type ExtractBriefOutput struct {
	Text string `json:"text"`
}
