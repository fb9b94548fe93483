package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"marketpulse/internal/models"
	"marketpulse/internal/providers"

	"github.com/stretchr/testify/require"
)

type fakeEmbedder struct {
	calls  []time.Time
	keys   []string
	failAt map[int]bool
}

func (f *fakeEmbedder) Embed(_ context.Context, req providers.EmbedRequest) ([]float32, providers.ProviderInfo, error) {
	n := len(f.calls)
	f.calls = append(f.calls, time.Now())
	f.keys = append(f.keys, req.APIKey)
	if f.failAt[n] {
		return nil, providers.ProviderInfo{Name: "fake"}, errors.New("429 rate limit")
	}
	return []float32{float32(n), 1}, providers.ProviderInfo{Name: "fake", Model: "fake-embed"}, nil
}

type memStore struct {
	rows []models.ResearchEmbedding
}

func (m *memStore) Insert(_ context.Context, e models.ResearchEmbedding) (string, error) {
	m.rows = append(m.rows, e)
	return fmt.Sprintf("emb-%d", len(m.rows)), nil
}

func longResult(words int) json.RawMessage {
	w := make([]string, words)
	for i := range w {
		w[i] = fmt.Sprintf("theme%d", i)
	}
	b, _ := json.Marshal(map[string]any{"overallScore": 80, "themes": []string{strings.Join(w, " ")}})
	return b
}

func TestGenerateCountsOnlyInsertedRows(t *testing.T) {
	emb := &fakeEmbedder{failAt: map[int]bool{1: true}}
	store := &memStore{}
	g := NewGenerator(emb, store, nil, Options{ChunkWords: 500, ChunkOverlap: 50, MaxChars: 100000, CallDelay: time.Millisecond})

	out, err := g.Generate(context.Background(), GenerateInput{
		ProjectID: "p1",
		RunID:     "run1",
		GeminiKey: "user-key",
		Items: []Item{
			{AgentType: "sentiment", Result: longResult(1000), ResultID: "r1"},
			{AgentType: "trend", Result: json.RawMessage(`{"trendScore":70}`), ResultID: "r2"},
		},
	})
	require.NoError(t, err)
	require.Equal(t, 4, out.Chunks)
	require.Equal(t, 1, out.Failed)
	require.Equal(t, 3, out.EmbeddingsCount)
	require.Len(t, store.rows, out.EmbeddingsCount)
	require.Equal(t, []string{"user-key", "user-key", "user-key", "user-key"}, emb.keys)

	first := store.rows[0]
	require.Equal(t, "p1", first.ProjectID)
	require.Equal(t, "run1", first.RunID)
	require.Equal(t, "r1", first.AgentResultID)
	require.Equal(t, "sentiment", first.ContentType)
	require.Equal(t, 0, first.Metadata.ChunkIndex)
	require.Equal(t, 3, first.Metadata.TotalChunks)
	require.Len(t, first.Metadata.ContentHash, 64)
	require.Equal(t, 2, store.rows[1].Metadata.ChunkIndex)
	require.Equal(t, "trend", store.rows[2].ContentType)
}

func TestGenerateThrottlesCalls(t *testing.T) {
	emb := &fakeEmbedder{}
	g := NewGenerator(emb, &memStore{}, nil, Options{ChunkWords: 500, ChunkOverlap: 50, CallDelay: 20 * time.Millisecond})
	_, err := g.Generate(context.Background(), GenerateInput{ProjectID: "p", Items: []Item{
		{AgentType: "trend", Result: json.RawMessage(`{"trendScore":1}`)},
		{AgentType: "trend", Result: json.RawMessage(`{"trendScore":2}`)},
		{AgentType: "trend", Result: json.RawMessage(`{"trendScore":3}`)},
	}})
	require.NoError(t, err)
	require.Len(t, emb.calls, 3)
	require.GreaterOrEqual(t, emb.calls[2].Sub(emb.calls[0]), 35*time.Millisecond)
}

func TestGenerateStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	g := NewGenerator(&fakeEmbedder{}, &memStore{}, nil, Options{CallDelay: time.Millisecond})
	out, err := g.Generate(ctx, GenerateInput{Items: []Item{{AgentType: "trend", Result: json.RawMessage(`{"trendScore":1}`)}}})
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, out.EmbeddingsCount)
}

func TestChunksCleansAndTruncates(t *testing.T) {
	g := NewGenerator(&fakeEmbedder{}, &memStore{}, nil, Options{MaxChars: 40})
	text, chunks := g.Chunks(Item{AgentType: "trend", Result: json.RawMessage(`{"trendScore":70,"keywords":["alpha","beta"]}`)})
	require.LessOrEqual(t, len([]rune(text)), 40)
	require.NotContains(t, text, "\n")
	require.Len(t, chunks, 1)

	_, chunks = g.Chunks(Item{AgentType: "x", Result: json.RawMessage("")})
	require.Empty(t, chunks)
}
