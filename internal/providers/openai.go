package providers

import (
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAICompatProvider talks to any OpenAI-compatible chat completions API.
// The AI gateway and the web-search LLM are both served by it.
type OpenAICompatProvider struct {
	name    string
	model   string
	hasKey  bool
	client  openai.Client
	reqOpts []option.RequestOption
}

type OpenAICompatConfig struct {
	Name    string
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
	// Extra top-level JSON fields sent with every request.
	ExtraFields map[string]any
}

func NewOpenAICompatProvider(cfg OpenAICompatConfig) *OpenAICompatProvider {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		// Retries are the caller's decision, not the SDK's.
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	reqOpts := make([]option.RequestOption, 0, len(cfg.ExtraFields))
	for k, v := range cfg.ExtraFields {
		reqOpts = append(reqOpts, option.WithJSONSet(k, v))
	}
	return &OpenAICompatProvider{
		name:    cfg.Name,
		model:   cfg.Model,
		hasKey:  cfg.APIKey != "",
		client:  openai.NewClient(opts...),
		reqOpts: reqOpts,
	}
}

func (p *OpenAICompatProvider) Chat(ctx context.Context, req ChatRequest) (ChatResponse, ProviderInfo, error) {
	info := ProviderInfo{Name: p.name, Model: p.model}
	if !p.hasKey {
		return ChatResponse{}, info, fmt.Errorf("%s api key missing", p.name)
	}
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(p.model),
		Messages: messages,
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(req.MaxTokens)
	}
	if req.Tool != nil {
		params.Tools = []openai.ChatCompletionToolUnionParam{
			openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
				Name:        req.Tool.Name,
				Description: openai.String(req.Tool.Description),
				Parameters:  openai.FunctionParameters(req.Tool.Parameters),
			}),
		}
		params.ToolChoice = openai.ChatCompletionToolChoiceOptionUnionParam{
			OfFunctionToolChoice: &openai.ChatCompletionNamedToolChoiceParam{
				Function: openai.ChatCompletionNamedToolChoiceFunctionParam{Name: req.Tool.Name},
			},
		}
	}

	resp, err := p.client.Chat.Completions.New(ctx, params, p.reqOpts...)
	if err != nil {
		return ChatResponse{}, info, wrapStatus(p.name, err)
	}
	if len(resp.Choices) == 0 {
		return ChatResponse{}, info, fmt.Errorf("%s returned empty choices", p.name)
	}
	if resp.Model != "" {
		info.Model = resp.Model
	}
	msg := resp.Choices[0].Message
	out := ChatResponse{Text: msg.Content, Tokens: resp.Usage.TotalTokens}
	for _, tc := range msg.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, ToolCall{Name: tc.Function.Name, Arguments: tc.Function.Arguments})
	}
	return out, info, nil
}
