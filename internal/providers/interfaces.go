package providers

import "context"

type ProviderInfo struct {
	Name  string `json:"name"`
	Model string `json:"model"`
}

// ToolSpec describes a single function tool. When set on a ChatRequest the
// provider forces the model to call it.
type ToolSpec struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

type ChatRequest struct {
	Operation string    `json:"operation"`
	System    string    `json:"system"`
	Prompt    string    `json:"prompt"`
	MaxTokens int64     `json:"max_tokens,omitempty"`
	Tool      *ToolSpec `json:"tool,omitempty"`
}

type ToolCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type ChatResponse struct {
	Text      string     `json:"text"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	Tokens    int64      `json:"tokens"`
}

type EmbedRequest struct {
	Operation string `json:"operation"`
	Input     string `json:"input"`
	Dimension int    `json:"dimension"`
	// APIKey overrides the provider's configured key for this call.
	APIKey string `json:"-"`
}

type ChatProvider interface {
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, ProviderInfo, error)
}

type EmbeddingProvider interface {
	Embed(ctx context.Context, req EmbedRequest) ([]float32, ProviderInfo, error)
}
