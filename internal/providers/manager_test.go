package providers

import (
	"testing"

	"marketpulse/internal/config"

	"github.com/stretchr/testify/require"
)

func TestNewManagerMock(t *testing.T) {
	var cfg config.Config
	cfg.Pipeline.LLMProviders = "mock"
	cfg.Embedding.Providers = "gemini"
	cfg.Embedding.Dimension = 8

	m, err := NewManager(cfg)
	require.NoError(t, err)
	require.IsType(t, &MockProvider{}, m.Gateway())
	_, ok := m.Search()
	require.False(t, ok)
	require.IsType(t, &GeminiEmbeddingProvider{}, m.Embedder())
}

func TestNewManagerChainsProviderLists(t *testing.T) {
	var cfg config.Config
	cfg.Pipeline.LLMProviders = "gateway|mock"
	cfg.Gateway.APIKey = "k"
	cfg.Embedding.Providers = "mock|gemini"
	cfg.Embedding.Dimension = 8

	m, err := NewManager(cfg)
	require.NoError(t, err)
	require.Equal(t, []int{1, 0}, m.PreferredEmbedOrder())

	chat, ok := m.Gateway().(*FailoverChat)
	require.True(t, ok)
	require.Len(t, chat.providers, 2)
	require.IsType(t, &OpenAICompatProvider{}, chat.providers[0])
	require.IsType(t, &MockProvider{}, chat.providers[1])

	emb, ok := m.Embedder().(*FailoverEmbedder)
	require.True(t, ok)
	require.Len(t, emb.providers, 2)
	require.IsType(t, &GeminiEmbeddingProvider{}, emb.providers[0])
	require.IsType(t, &MockProvider{}, emb.providers[1])
}

func TestNewManagerGatewayWithSearch(t *testing.T) {
	var cfg config.Config
	cfg.Pipeline.LLMProviders = "gateway"
	cfg.Gateway.APIKey = "k"
	cfg.Search.APIKey = "s"
	cfg.Embedding.Providers = "mock"

	m, err := NewManager(cfg)
	require.NoError(t, err)
	require.IsType(t, &OpenAICompatProvider{}, m.Gateway())
	s, ok := m.Search()
	require.True(t, ok)
	require.IsType(t, &OpenAICompatProvider{}, s)
}

func TestNewManagerRejectsUnknown(t *testing.T) {
	var cfg config.Config
	cfg.Pipeline.LLMProviders = "mock"
	cfg.Embedding.Providers = "ollama"
	_, err := NewManager(cfg)
	require.EqualError(t, err, "unsupported embedding provider: ollama")
}
