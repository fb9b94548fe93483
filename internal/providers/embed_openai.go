package providers

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAIEmbeddingProvider embeds through an OpenAI-compatible embeddings API.
type OpenAIEmbeddingProvider struct {
	model  string
	hasKey bool
	client openai.Client
}

func NewOpenAIEmbeddingProvider(baseURL, apiKey, model string) *OpenAIEmbeddingProvider {
	if model == "" {
		model = openai.EmbeddingModelTextEmbedding3Small
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIEmbeddingProvider{model: model, hasKey: apiKey != "", client: openai.NewClient(opts...)}
}

func (o *OpenAIEmbeddingProvider) Embed(ctx context.Context, req EmbedRequest) ([]float32, ProviderInfo, error) {
	info := ProviderInfo{Name: "openai", Model: o.model}
	if !o.hasKey {
		return nil, info, fmt.Errorf("openai api key missing")
	}
	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(req.Input)},
		Model: openai.EmbeddingModel(o.model),
	}
	if req.Dimension > 0 {
		params.Dimensions = openai.Int(int64(req.Dimension))
	}
	resp, err := o.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, info, wrapStatus("openai", err)
	}
	if len(resp.Data) == 0 {
		return nil, info, fmt.Errorf("openai returned no embedding")
	}
	vec := make([]float32, len(resp.Data[0].Embedding))
	for i, x := range resp.Data[0].Embedding {
		vec[i] = float32(x)
	}
	return matchDimension(vec, req.Dimension), info, nil
}
