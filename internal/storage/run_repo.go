package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"marketpulse/internal/models"
)

type RunRepo struct {
	db *DB
}

func NewRunRepo(db *DB) *RunRepo {
	return &RunRepo{db: db}
}

// RunFinish is the final state written over a running ResearchRun.
type RunFinish struct {
	ID                    string
	Status                models.RunStatus
	EmbeddingsCount       int
	FeedbackLoopTriggered bool
	Metadata              map[string]any
}

func (r *RunRepo) Create(ctx context.Context, projectID string, agents []string) (string, error) {
	agentsJSON, _ := json.Marshal(agents)
	var id string
	err := r.db.Pool.QueryRow(ctx, `
INSERT INTO research_runs (project_id, status, agents_triggered, embeddings_count, feedback_loop_triggered, metadata)
VALUES ($1::uuid, $2, $3::jsonb, 0, false, '{}'::jsonb)
RETURNING id::text`, projectID, models.RunRunning, string(agentsJSON)).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("create research run: %w", err)
	}
	return id, nil
}

func (r *RunRepo) Finish(ctx context.Context, f RunFinish) error {
	meta, err := json.Marshal(f.Metadata)
	if err != nil {
		return fmt.Errorf("marshal run metadata: %w", err)
	}
	tag, err := r.db.Pool.Exec(ctx, `
UPDATE research_runs
SET status=$2, embeddings_count=$3, feedback_loop_triggered=$4, metadata=$5::jsonb, completed_at=NOW()
WHERE id=$1::uuid`, f.ID, f.Status, f.EmbeddingsCount, f.FeedbackLoopTriggered, string(meta))
	if err != nil {
		return fmt.Errorf("finish research run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("finish research run %s: %w", f.ID, ErrNotFound)
	}
	return nil
}

func (r *RunRepo) ListByProject(ctx context.Context, projectID string, limit int) ([]models.ResearchRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.Pool.Query(ctx, `
SELECT id::text, project_id::text, status, COALESCE(agents_triggered,'[]'::jsonb)::text, embeddings_count,
       feedback_loop_triggered, COALESCE(metadata,'{}'::jsonb)::text, started_at, completed_at
FROM research_runs
WHERE project_id=$1::uuid
ORDER BY started_at DESC
LIMIT $2`, projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("list research runs: %w", err)
	}
	defer rows.Close()
	out := make([]models.ResearchRun, 0, limit)
	for rows.Next() {
		var (
			run          models.ResearchRun
			agents, meta string
		)
		if err := rows.Scan(&run.ID, &run.ProjectID, &run.Status, &agents, &run.EmbeddingsCount,
			&run.FeedbackLoopTriggered, &meta, &run.StartedAt, &run.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan research run: %w", err)
		}
		_ = json.Unmarshal([]byte(agents), &run.AgentsTriggered)
		_ = json.Unmarshal([]byte(meta), &run.Metadata)
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate research runs: %w", err)
	}
	return out, nil
}

func (r *RunRepo) Latest(ctx context.Context, projectID string) (models.ResearchRun, error) {
	runs, err := r.ListByProject(ctx, projectID, 1)
	if err != nil {
		return models.ResearchRun{}, err
	}
	if len(runs) == 0 {
		return models.ResearchRun{}, fmt.Errorf("latest research run for %s: %w", projectID, ErrNotFound)
	}
	return runs[0], nil
}
