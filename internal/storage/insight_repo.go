package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"marketpulse/internal/models"
)

type InsightRepo struct {
	db *DB
}

func NewInsightRepo(db *DB) *InsightRepo {
	return &InsightRepo{db: db}
}

func (r *InsightRepo) Insert(ctx context.Context, in models.Insight) (string, error) {
	var id string
	err := r.db.Pool.QueryRow(ctx, `
INSERT INTO insights (project_id, insight_type, data)
VALUES ($1::uuid, $2, $3::jsonb)
RETURNING id::text`, in.ProjectID, in.InsightType, string(in.Data)).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("insert insight: %w", err)
	}
	return id, nil
}

func (r *InsightRepo) Latest(ctx context.Context, projectID, insightType string) (models.Insight, error) {
	var (
		in   models.Insight
		data string
	)
	err := r.db.Pool.QueryRow(ctx, `
SELECT id::text, project_id::text, insight_type, data::text, created_at
FROM insights
WHERE project_id=$1::uuid AND insight_type=$2
ORDER BY created_at DESC
LIMIT 1`, projectID, insightType).Scan(&in.ID, &in.ProjectID, &in.InsightType, &data, &in.CreatedAt)
	if err != nil {
		return models.Insight{}, fmt.Errorf("latest insight: %w", notFound(err))
	}
	in.Data = json.RawMessage(data)
	return in, nil
}
