package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"marketpulse/internal/models"

	"github.com/pgvector/pgvector-go"
)

type EmbeddingRepo struct {
	db *DB
}

func NewEmbeddingRepo(db *DB) *EmbeddingRepo {
	return &EmbeddingRepo{db: db}
}

func (r *EmbeddingRepo) Insert(ctx context.Context, e models.ResearchEmbedding) (string, error) {
	meta, err := json.Marshal(e.Metadata)
	if err != nil {
		return "", fmt.Errorf("marshal embedding metadata: %w", err)
	}
	var id string
	err = r.db.Pool.QueryRow(ctx, `
INSERT INTO research_embeddings (project_id, agent_result_id, content_type, full_text, chunk_text, embedding, run_id, metadata)
VALUES ($1::uuid, NULLIF($2,'')::uuid, $3, $4, $5, $6, NULLIF($7,'')::uuid, $8::jsonb)
RETURNING id::text`,
		e.ProjectID, e.AgentResultID, e.ContentType, e.FullText, e.ChunkText, pgvector.NewVector(e.Embedding), e.RunID, string(meta),
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("insert embedding: %w", err)
	}
	return id, nil
}
