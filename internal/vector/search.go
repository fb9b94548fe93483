package vector

import (
	"context"
	"fmt"

	"marketpulse/internal/embedding"
	"marketpulse/internal/models"
	"marketpulse/internal/util"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"
)

type SearchFilters struct {
	// MinSimilarity drops matches below this cosine similarity.
	MinSimilarity float64
}

type Searcher struct {
	q Queryer
}

type Queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func NewSearcher(q Queryer) *Searcher {
	return &Searcher{q: q}
}

// SearchProject runs the match_embeddings stored function for one project.
func (s *Searcher) SearchProject(ctx context.Context, projectID string, queryVec []float32, topK int, filters SearchFilters) ([]models.EmbeddingMatch, error) {
	if topK <= 0 {
		topK = 8
	}
	threshold := filters.MinSimilarity
	if threshold <= 0 {
		threshold = 0.5
	}
	rows, err := s.q.Query(ctx, `
SELECT id::text, project_id::text, content_type, chunk_text, similarity
FROM match_embeddings($1, $2, $3, $4::uuid)`,
		pgvector.NewVector(queryVec), threshold, topK, projectID)
	if err != nil {
		return nil, fmt.Errorf("query match_embeddings: %w", err)
	}
	defer rows.Close()

	results := make([]models.EmbeddingMatch, 0, topK)
	for rows.Next() {
		var m models.EmbeddingMatch
		if err := rows.Scan(&m.ID, &m.ProjectID, &m.ContentType, &m.ChunkText, &m.Similarity); err != nil {
			return nil, fmt.Errorf("scan embedding match: %w", err)
		}
		results = append(results, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate search rows: %w", err)
	}
	return results, nil
}

// WithSnippets fills Snippet with the document fields of each match most relevant to query.
func WithSnippets(matches []models.EmbeddingMatch, query string, maxRunes int) []models.EmbeddingMatch {
	for i := range matches {
		matches[i].Snippet = util.EvidenceSnippet(matches[i].ChunkText, query, embedding.DocumentLabels, maxRunes)
	}
	return matches
}
