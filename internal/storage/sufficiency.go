package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"marketpulse/internal/models"
)

// SufficiencyRepo calls the check_data_sufficiency stored function. Its
// decision logic lives in the database; only the JSON answer is read here.
type SufficiencyRepo struct {
	db *DB
}

func NewSufficiencyRepo(db *DB) *SufficiencyRepo {
	return &SufficiencyRepo{db: db}
}

func (r *SufficiencyRepo) Check(ctx context.Context, projectID string) (models.SufficiencyReport, error) {
	var raw []byte
	if err := r.db.Pool.QueryRow(ctx, `SELECT check_data_sufficiency($1::uuid)::text`, projectID).Scan(&raw); err != nil {
		return models.SufficiencyReport{}, fmt.Errorf("check data sufficiency: %w", err)
	}
	return decodeSufficiency(raw)
}

func decodeSufficiency(raw []byte) (models.SufficiencyReport, error) {
	var rep models.SufficiencyReport
	if len(raw) == 0 || string(raw) == "null" {
		return rep, fmt.Errorf("check data sufficiency: empty result")
	}
	if err := json.Unmarshal(raw, &rep); err != nil {
		return models.SufficiencyReport{}, fmt.Errorf("decode sufficiency report: %w", err)
	}
	return rep, nil
}
