package logger

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRedactKVs(t *testing.T) {
	out := redactKVs([]interface{}{"project_id", "p1", "gemini_key", "AIza-secret", "keywords", 3, "dangling"})
	require.Equal(t, []interface{}{"project_id", "p1", "gemini_key", "[REDACTED]", "keywords", 3, "dangling"}, out)
}

func TestNewFallsBackToInfoLevel(t *testing.T) {
	l, err := New("development", "not-a-level")
	require.NoError(t, err)
	require.False(t, l.SugaredLogger.Desugar().Core().Enabled(-1))
	require.True(t, l.SugaredLogger.Desugar().Core().Enabled(0))
}
