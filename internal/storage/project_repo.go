package storage

import (
	"context"
	"fmt"

	"marketpulse/internal/models"
)

type ProjectRepo struct {
	db *DB
}

func NewProjectRepo(db *DB) *ProjectRepo {
	return &ProjectRepo{db: db}
}

func (r *ProjectRepo) Create(ctx context.Context, p models.ResearchProject) (string, error) {
	var id string
	err := r.db.Pool.QueryRow(ctx, `
INSERT INTO research_projects (user_id, product_name, company_name, description, status)
VALUES (NULLIF($1,'')::uuid, $2, $3, NULLIF($4,''), $5)
RETURNING id::text`, p.UserID, p.ProductName, p.CompanyName, p.Description, models.ProjectInProgress).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("create project: %w", err)
	}
	return id, nil
}

func (r *ProjectRepo) Get(ctx context.Context, id string) (models.ResearchProject, error) {
	var p models.ResearchProject
	err := r.db.Pool.QueryRow(ctx, `
SELECT id::text, COALESCE(user_id::text,''), product_name, company_name, COALESCE(description,''), status, created_at, updated_at
FROM research_projects
WHERE id=$1::uuid`, id).Scan(&p.ID, &p.UserID, &p.ProductName, &p.CompanyName, &p.Description, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return models.ResearchProject{}, fmt.Errorf("get project %s: %w", id, notFound(err))
	}
	return p, nil
}

func (r *ProjectRepo) UpdateStatus(ctx context.Context, id string, status models.ProjectStatus) error {
	tag, err := r.db.Pool.Exec(ctx, `UPDATE research_projects SET status=$2, updated_at=NOW() WHERE id=$1::uuid`, id, status)
	if err != nil {
		return fmt.Errorf("update project status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update project status %s: %w", id, ErrNotFound)
	}
	return nil
}

// AppendDescription adds text (for example an uploaded brief) to the project description.
func (r *ProjectRepo) AppendDescription(ctx context.Context, id, text string) error {
	tag, err := r.db.Pool.Exec(ctx, `
UPDATE research_projects
SET description = CONCAT_WS(E'\n\n', NULLIF(description,''), $2::text), updated_at = NOW()
WHERE id=$1::uuid`, id, text)
	if err != nil {
		return fmt.Errorf("append project description: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("append project description %s: %w", id, ErrNotFound)
	}
	return nil
}
