package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"marketpulse/internal/models"
)

type AgentResultRepo struct {
	db *DB
}

func NewAgentResultRepo(db *DB) *AgentResultRepo {
	return &AgentResultRepo{db: db}
}

func (r *AgentResultRepo) Insert(ctx context.Context, res models.AgentResult) (string, error) {
	meta, err := json.Marshal(res.Metadata)
	if err != nil {
		return "", fmt.Errorf("marshal agent result metadata: %w", err)
	}
	result := res.Result
	if len(result) == 0 {
		result = json.RawMessage("null")
	}
	var id string
	err = r.db.Pool.QueryRow(ctx, `
INSERT INTO agent_results (project_id, agent_type, status, result, error_message, metadata)
VALUES ($1::uuid, $2, $3, $4::jsonb, NULLIF($5,''), $6::jsonb)
RETURNING id::text`, res.ProjectID, res.AgentType, res.Status, string(result), res.ErrorMessage, string(meta)).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("insert agent result: %w", err)
	}
	return id, nil
}

func (r *AgentResultRepo) ListByProject(ctx context.Context, projectID string) ([]models.AgentResult, error) {
	rows, err := r.db.Pool.Query(ctx, `
SELECT id::text, project_id::text, agent_type, status, COALESCE(result,'null'::jsonb)::text,
       COALESCE(error_message,''), COALESCE(metadata,'{}'::jsonb)::text, created_at
FROM agent_results
WHERE project_id=$1::uuid
ORDER BY created_at ASC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list agent results: %w", err)
	}
	defer rows.Close()
	out := make([]models.AgentResult, 0, 8)
	for rows.Next() {
		var (
			res          models.AgentResult
			result, meta string
		)
		if err := rows.Scan(&res.ID, &res.ProjectID, &res.AgentType, &res.Status, &result, &res.ErrorMessage, &meta, &res.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan agent result: %w", err)
		}
		res.Result = json.RawMessage(result)
		_ = json.Unmarshal([]byte(meta), &res.Metadata)
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate agent results: %w", err)
	}
	return out, nil
}
