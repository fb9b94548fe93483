package providers

import (
	"fmt"
	"strings"
	"time"

	"marketpulse/internal/config"
)

type NamedEmbedProvider struct {
	Ref      ProviderRef
	Provider EmbeddingProvider
}

// Manager owns the model clients built from configuration. Keys are read
// from config once here and passed into each provider. Lists with more than
// one entry are wrapped so a failing provider hands over to the next.
type Manager struct {
	gateway        ChatProvider
	search         ChatProvider
	embedder       EmbeddingProvider
	chatProviders  []ChatProvider
	embedProviders []NamedEmbedProvider
	cooldown       time.Duration
}

func NewManager(cfg config.Config) (*Manager, error) {
	m := &Manager{cooldown: cfg.Pipeline.ProviderCooldown}

	for _, ref := range ParseProviderList(cfg.Pipeline.LLMProviders) {
		switch ref.Name {
		case "mock":
			m.chatProviders = append(m.chatProviders, NewMockProvider(cfg.Embedding.Dimension))
		case "gateway":
			m.chatProviders = append(m.chatProviders, NewOpenAICompatProvider(OpenAICompatConfig{
				Name:    "gateway",
				BaseURL: cfg.Gateway.BaseURL,
				APIKey:  cfg.Gateway.APIKey,
				Model:   cfg.Gateway.Model,
				Timeout: cfg.Gateway.Timeout,
			}))
			if m.search == nil && strings.TrimSpace(cfg.Search.APIKey) != "" {
				m.search = NewOpenAICompatProvider(OpenAICompatConfig{
					Name:    "perplexity",
					BaseURL: cfg.Search.BaseURL,
					APIKey:  cfg.Search.APIKey,
					Model:   cfg.Search.Model,
					Timeout: cfg.Search.Timeout,
					ExtraFields: map[string]any{
						"search_recency_filter": cfg.Search.RecencyFilter,
					},
				})
			}
		default:
			return nil, fmt.Errorf("unsupported llm provider: %s", ref.Raw)
		}
	}

	for _, ref := range ParseProviderList(cfg.Embedding.Providers) {
		p, err := buildEmbedProvider(ref, cfg)
		if err != nil {
			return nil, err
		}
		m.embedProviders = append(m.embedProviders, NamedEmbedProvider{Ref: ref, Provider: p})
	}

	if len(m.chatProviders) == 1 {
		m.gateway = m.chatProviders[0]
	} else {
		m.gateway = NewFailoverChat(m.cooldown, m.chatProviders...)
	}
	order := m.PreferredEmbedOrder()
	if len(order) == 1 {
		m.embedder = m.embedProviders[order[0]].Provider
	} else {
		ps := make([]EmbeddingProvider, 0, len(order))
		for _, i := range order {
			ps = append(ps, m.embedProviders[i].Provider)
		}
		m.embedder = NewFailoverEmbedder(m.cooldown, ps...)
	}
	return m, nil
}

func (m *Manager) Gateway() ChatProvider {
	return m.gateway
}

// Search returns the web-search-augmented LLM when one is configured.
func (m *Manager) Search() (ChatProvider, bool) {
	return m.search, m.search != nil
}

// Embedder returns the embedding provider chain, real providers before mock.
func (m *Manager) Embedder() EmbeddingProvider {
	return m.embedder
}

func (m *Manager) PreferredEmbedOrder() []int {
	return preferredOrder(len(m.embedProviders), func(i int) string { return m.embedProviders[i].Ref.Name })
}

func preferredOrder(n int, nameAt func(i int) string) []int {
	if n <= 0 {
		return nil
	}
	out := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if nameAt(i) != "mock" {
			out = append(out, i)
		}
	}
	for i := 0; i < n; i++ {
		if nameAt(i) == "mock" {
			out = append(out, i)
		}
	}
	return out
}

func buildEmbedProvider(ref ProviderRef, cfg config.Config) (EmbeddingProvider, error) {
	switch ref.Name {
	case "mock":
		return NewMockProvider(cfg.Embedding.Dimension), nil
	case "gemini":
		return NewGeminiEmbeddingProvider(cfg.Embedding.Model, cfg.Embedding.GeminiKey, cfg.Embedding.Dimension), nil
	case "openai":
		model := ref.Option
		return NewOpenAIEmbeddingProvider(cfg.Gateway.BaseURL, cfg.Gateway.APIKey, model), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", ref.Name)
	}
}
