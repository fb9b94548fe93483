package vector

import (
	"testing"

	"marketpulse/internal/models"

	"github.com/stretchr/testify/require"
)

func TestWithSnippets(t *testing.T) {
	out := WithSnippets([]models.EmbeddingMatch{{
		ChunkText: "Trend Analysis. Trend Score: 70. Keywords: sustainability, recycled packaging.",
	}}, "recycled packaging interest", 120)
	require.Contains(t, out[0].Snippet, "recycled packaging")
	require.NotContains(t, out[0].Snippet, "Trend Score")
}
