package providers

import (
	"context"
	"fmt"
	"sync"

	"google.golang.org/genai"
)

// GeminiEmbeddingProvider embeds text with the Gemini API. A client is kept
// per API key because requests may carry a user-supplied key.
type GeminiEmbeddingProvider struct {
	model      string
	defaultKey string
	dim        int

	mu      sync.Mutex
	clients map[string]*genai.Client
}

func NewGeminiEmbeddingProvider(model, defaultKey string, dim int) *GeminiEmbeddingProvider {
	if model == "" {
		model = "text-embedding-004"
	}
	return &GeminiEmbeddingProvider{
		model:      model,
		defaultKey: defaultKey,
		dim:        dim,
		clients:    map[string]*genai.Client{},
	}
}

func (g *GeminiEmbeddingProvider) Embed(ctx context.Context, req EmbedRequest) ([]float32, ProviderInfo, error) {
	info := ProviderInfo{Name: "gemini", Model: g.model}
	key := req.APIKey
	if key == "" {
		key = g.defaultKey
	}
	if key == "" {
		return nil, info, fmt.Errorf("gemini api key missing")
	}
	client, err := g.client(ctx, key)
	if err != nil {
		return nil, info, err
	}
	dim := req.Dimension
	if dim <= 0 {
		dim = g.dim
	}
	var cfg *genai.EmbedContentConfig
	if dim > 0 {
		d := int32(dim)
		cfg = &genai.EmbedContentConfig{OutputDimensionality: &d}
	}
	res, err := client.Models.EmbedContent(ctx, g.model, genai.Text(req.Input), cfg)
	if err != nil {
		return nil, info, fmt.Errorf("gemini embedding request failed: %w", err)
	}
	if res == nil || len(res.Embeddings) == 0 || len(res.Embeddings[0].Values) == 0 {
		return nil, info, fmt.Errorf("gemini returned no embedding")
	}
	return matchDimension(res.Embeddings[0].Values, dim), info, nil
}

func (g *GeminiEmbeddingProvider) client(ctx context.Context, key string) (*genai.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if c, ok := g.clients[key]; ok {
		return c, nil
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: key, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	g.clients[key] = c
	return c, nil
}

// matchDimension pads or truncates v so it fits a fixed-width vector column.
func matchDimension(v []float32, dim int) []float32 {
	if dim <= 0 || len(v) == dim {
		return v
	}
	out := make([]float32, dim)
	copy(out, v)
	return out
}
