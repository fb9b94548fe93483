package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.App.APIAddr)
	require.Equal(t, "marketpulse", cfg.Temporal.TaskQueue)
	require.Equal(t, 500, cfg.Embedding.ChunkWords)
	require.Equal(t, 50, cfg.Embedding.ChunkOverlap)
	require.Equal(t, 10000, cfg.Embedding.MaxChars)
	require.Equal(t, 100*time.Millisecond, cfg.Embedding.CallDelay)
	require.Equal(t, 3, cfg.Pipeline.FeedbackThreshold)
	require.Equal(t, "gateway", cfg.Pipeline.LLMProviders)
	require.Equal(t, 15*time.Minute, cfg.Pipeline.ProviderCooldown)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("MARKETPULSE_CHUNK_WORDS", "200")
	t.Setenv("MARKETPULSE_SEARCH_KEY", "pplx-test")
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 200, cfg.Embedding.ChunkWords)
	require.Equal(t, "pplx-test", cfg.Search.APIKey)
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("MARKETPULSE_EMBED_DELAY", "soon")
	_, err := Load()
	require.Error(t, err)
}
