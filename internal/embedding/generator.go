package embedding

import (
	"context"
	"encoding/json"
	"time"

	"marketpulse/internal/logger"
	"marketpulse/internal/metrics"
	"marketpulse/internal/models"
	"marketpulse/internal/providers"
	"marketpulse/internal/util"

	"golang.org/x/time/rate"
)

// Writer persists one embedding row and returns its id.
type Writer interface {
	Insert(ctx context.Context, e models.ResearchEmbedding) (string, error)
}

type Options struct {
	ChunkWords   int
	ChunkOverlap int
	MaxChars     int
	Dimension    int
	// CallDelay is the minimum spacing between two embedding calls.
	CallDelay time.Duration
}

func DefaultOptions() Options {
	return Options{ChunkWords: 500, ChunkOverlap: 50, MaxChars: 10000, Dimension: 768, CallDelay: 100 * time.Millisecond}
}

type Item struct {
	AgentType string          `json:"agent_type"`
	Result    json.RawMessage `json:"result"`
	ResultID  string          `json:"result_id,omitempty"`
}

type GenerateInput struct {
	ProjectID string `json:"project_id"`
	RunID     string `json:"run_id"`
	GeminiKey string `json:"-"`
	Items     []Item `json:"items"`
}

type GenerateOutput struct {
	// EmbeddingsCount is the number of rows actually inserted.
	EmbeddingsCount int `json:"embeddings_count"`
	Failed          int `json:"failed"`
	Chunks          int `json:"chunks"`
	// Error is set when the pass stopped early; the counts still cover
	// every row written before it stopped.
	Error string `json:"error,omitempty"`
}

type Generator struct {
	embedder providers.EmbeddingProvider
	store    Writer
	log      *logger.Logger
	opts     Options
}

func NewGenerator(embedder providers.EmbeddingProvider, store Writer, log *logger.Logger, opts Options) *Generator {
	if log == nil {
		log = logger.Nop()
	}
	d := DefaultOptions()
	if opts.ChunkWords <= 0 {
		opts.ChunkWords = d.ChunkWords
	}
	if opts.ChunkOverlap < 0 {
		opts.ChunkOverlap = d.ChunkOverlap
	}
	if opts.MaxChars <= 0 {
		opts.MaxChars = d.MaxChars
	}
	return &Generator{embedder: embedder, store: store, log: log, opts: opts}
}

// Chunks returns the cleaned document for one item and its word chunks.
func (g *Generator) Chunks(item Item) (string, []string) {
	text := util.CleanText(BuildDocument(item.AgentType, item.Result), g.opts.MaxChars)
	return text, util.ChunkWords(text, g.opts.ChunkWords, g.opts.ChunkOverlap)
}

// Generate embeds every chunk of every item, one call per chunk, spaced by
// CallDelay. A failing chunk is logged and skipped. The only error returned
// is context cancellation, together with the counts reached so far.
func (g *Generator) Generate(ctx context.Context, in GenerateInput) (GenerateOutput, error) {
	limit := rate.Inf
	if g.opts.CallDelay > 0 {
		limit = rate.Every(g.opts.CallDelay)
	}
	limiter := rate.NewLimiter(limit, 1)
	log := g.log.With("project_id", in.ProjectID, "run_id", in.RunID)

	var out GenerateOutput
	for _, item := range in.Items {
		text, chunks := g.Chunks(item)
		out.Chunks += len(chunks)
		for i, chunk := range chunks {
			if err := limiter.Wait(ctx); err != nil {
				return out, err
			}
			vec, info, err := g.embedder.Embed(ctx, providers.EmbedRequest{
				Operation: "embed_chunk",
				Input:     chunk,
				Dimension: g.opts.Dimension,
				APIKey:    in.GeminiKey,
			})
			if err != nil {
				out.Failed++
				metrics.RecordEmbeddingChunk(err)
				log.Warn("embedding chunk failed", "agent", item.AgentType, "chunk_index", i, "error_type", providers.ClassifyError(err), "error", err)
				continue
			}
			_, err = g.store.Insert(ctx, models.ResearchEmbedding{
				ProjectID:     in.ProjectID,
				AgentResultID: item.ResultID,
				ContentType:   item.AgentType,
				FullText:      text,
				ChunkText:     chunk,
				Embedding:     vec,
				RunID:         in.RunID,
				Metadata: models.EmbeddingMetadata{
					ChunkIndex:  i,
					TotalChunks: len(chunks),
					ContentHash: util.ContentHash(chunk),
					Model:       info.Model,
				},
			})
			metrics.RecordEmbeddingChunk(err)
			if err != nil {
				out.Failed++
				log.Warn("embedding insert failed", "agent", item.AgentType, "chunk_index", i, "error", err)
				continue
			}
			out.EmbeddingsCount++
		}
	}
	log.Info("embeddings generated", "inserted", out.EmbeddingsCount, "failed", out.Failed, "chunks", out.Chunks)
	return out, nil
}
