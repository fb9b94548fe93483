package models

import (
	"encoding/json"
	"time"
)

type ProjectStatus string

const (
	ProjectInProgress ProjectStatus = "in_progress"
	ProjectCompleted  ProjectStatus = "completed"
	ProjectFailed     ProjectStatus = "failed"
)

type AgentType string

const (
	AgentSentiment  AgentType = "sentiment"
	AgentCompetitor AgentType = "competitor"
	AgentTrend      AgentType = "trend"
)

// AllAgents is the fixed fan-out order used when launching agents.
var AllAgents = []AgentType{AgentSentiment, AgentCompetitor, AgentTrend}

func (t AgentType) Valid() bool {
	switch t {
	case AgentSentiment, AgentCompetitor, AgentTrend:
		return true
	}
	return false
}

type ResultStatus string

const (
	ResultCompleted ResultStatus = "completed"
	ResultFailed    ResultStatus = "failed"
)

type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

const InsightTypeAISummary = "ai_summary"

type ResearchProject struct {
	ID          string        `json:"id"`
	UserID      string        `json:"user_id"`
	ProductName string        `json:"product_name"`
	CompanyName string        `json:"company_name"`
	Description string        `json:"description,omitempty"`
	Status      ProjectStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// AgentResult rows are append-only; a feedback pass adds new rows rather than
// replacing the first ones.
type AgentResult struct {
	ID           string          `json:"id"`
	ProjectID    string          `json:"project_id"`
	AgentType    AgentType       `json:"agent_type"`
	Status       ResultStatus    `json:"status"`
	Result       json.RawMessage `json:"result"`
	ErrorMessage string          `json:"error_message,omitempty"`
	Metadata     ResultMetadata  `json:"metadata"`
	CreatedAt    time.Time       `json:"created_at"`
}

type ResultMetadata struct {
	Model          string `json:"model,omitempty"`
	Provider       string `json:"provider,omitempty"`
	LatencyMS      int64  `json:"latency_ms"`
	Tokens         int64  `json:"tokens,omitempty"`
	Fallback       bool   `json:"fallback"`
	FallbackReason string `json:"fallback_reason,omitempty"`
	RunID          string `json:"run_id,omitempty"`
}

type ResearchRun struct {
	ID                    string         `json:"id"`
	ProjectID             string         `json:"project_id"`
	Status                RunStatus      `json:"status"`
	AgentsTriggered       []string       `json:"agents_triggered"`
	EmbeddingsCount       int            `json:"embeddings_count"`
	FeedbackLoopTriggered bool           `json:"feedback_loop_triggered"`
	Metadata              map[string]any `json:"metadata,omitempty"`
	StartedAt             time.Time      `json:"started_at"`
	CompletedAt           *time.Time     `json:"completed_at,omitempty"`
}

type ResearchEmbedding struct {
	ID            string            `json:"id"`
	ProjectID     string            `json:"project_id"`
	AgentResultID string            `json:"agent_result_id,omitempty"`
	ContentType   string            `json:"content_type"`
	FullText      string            `json:"full_text"`
	ChunkText     string            `json:"chunk_text"`
	Embedding     []float32         `json:"-"`
	RunID         string            `json:"run_id,omitempty"`
	Metadata      EmbeddingMetadata `json:"metadata"`
	CreatedAt     time.Time         `json:"created_at"`
}

type EmbeddingMetadata struct {
	ChunkIndex  int    `json:"chunk_index"`
	TotalChunks int    `json:"total_chunks"`
	ContentHash string `json:"content_hash"`
	Model       string `json:"model,omitempty"`
}

type Insight struct {
	ID          string          `json:"id"`
	ProjectID   string          `json:"project_id"`
	InsightType string          `json:"insight_type"`
	Data        json.RawMessage `json:"data"`
	CreatedAt   time.Time       `json:"created_at"`
}

// SufficiencyReport mirrors the JSON returned by check_data_sufficiency.
type SufficiencyReport struct {
	NeedsFeedbackLoop bool     `json:"needs_feedback_loop"`
	AgentResultsCount int      `json:"agent_results_count"`
	EmbeddingsCount   int      `json:"embeddings_count"`
	CompletedAgents   []string `json:"completed_agents,omitempty"`
	Reason            string   `json:"reason,omitempty"`
}

type EmbeddingMatch struct {
	ID          string  `json:"id"`
	ProjectID   string  `json:"project_id"`
	ContentType string  `json:"content_type"`
	ChunkText   string  `json:"chunk_text"`
	Snippet     string  `json:"snippet"`
	Similarity  float64 `json:"similarity"`
}
