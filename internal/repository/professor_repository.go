package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/univ-exams/exam-planner-api/internal/models"
)

// ProfessorRepository handles persistence of professors and their
// supervision counters.
type ProfessorRepository struct {
	db *sqlx.DB
}

// NewProfessorRepository constructs the repository.
func NewProfessorRepository(db *sqlx.DB) *ProfessorRepository {
	return &ProfessorRepository{db: db}
}

// ListActive returns the supervision pool in a stable order.
func (r *ProfessorRepository) ListActive(ctx context.Context) ([]models.Professor, error) {
	const query = `SELECT id, first_name, last_name, department_id, max_exams_per_day,
        supervision_count, is_active, created_at
        FROM professors
        WHERE is_active = TRUE
        ORDER BY last_name, first_name, id`
	var professors []models.Professor
	if err := r.db.SelectContext(ctx, &professors, query); err != nil {
		return nil, fmt.Errorf("list active professors: %w", err)
	}
	return professors, nil
}

// AdjustSupervisionCounts applies per-professor deltas, clamping at
// zero. Positive deltas come from the assigner, negative from a
// schedule clear.
func (r *ProfessorRepository) AdjustSupervisionCounts(ctx context.Context, exec sqlx.ExtContext, deltas map[string]int) error {
	const query = `UPDATE professors SET supervision_count = GREATEST(0, supervision_count + $2) WHERE id = $1`
	for professorID, delta := range deltas {
		if delta == 0 {
			continue
		}
		if _, err := exec.ExecContext(ctx, query, professorID, delta); err != nil {
			return fmt.Errorf("adjust supervision count for %s: %w", professorID, err)
		}
	}
	return nil
}
