package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/univ-exams/exam-planner-api/internal/models"
)

// ModuleRepository handles read access to modules and their formations.
type ModuleRepository struct {
	db *sqlx.DB
}

// NewModuleRepository constructs the repository.
func NewModuleRepository(db *sqlx.DB) *ModuleRepository {
	return &ModuleRepository{db: db}
}

// ListActiveByAcademicYear returns active modules whose formation runs
// in the given academic year, ordered by name for stable preparation.
func (r *ModuleRepository) ListActiveByAcademicYear(ctx context.Context, academicYear string) ([]models.Module, error) {
	const query = `SELECT m.id, m.name, m.formation_id, m.credits, m.exam_duration_minutes,
        m.requires_computer, m.requires_lab, m.is_active, m.created_at
        FROM modules m
        JOIN formations f ON f.id = m.formation_id
        WHERE m.is_active = TRUE AND f.academic_year = $1
        ORDER BY m.name, m.id`
	var modules []models.Module
	if err := r.db.SelectContext(ctx, &modules, query, academicYear); err != nil {
		return nil, fmt.Errorf("list active modules: %w", err)
	}
	return modules, nil
}

// MapDepartmentsByModule returns module ID to department ID for every
// module, used when ranking supervisor candidates.
func (r *ModuleRepository) MapDepartmentsByModule(ctx context.Context) (map[string]string, error) {
	const query = `SELECT m.id AS module_id, f.department_id
        FROM modules m
        JOIN formations f ON f.id = m.formation_id`
	rows := []struct {
		ModuleID     string `db:"module_id"`
		DepartmentID string `db:"department_id"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("map module departments: %w", err)
	}
	departments := make(map[string]string, len(rows))
	for _, row := range rows {
		departments[row.ModuleID] = row.DepartmentID
	}
	return departments, nil
}
