package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/univ-exams/exam-planner-api/internal/models"
)

// EnrollmentRepository handles read access to student enrollments. The
// scheduler only ever consumes enrollments in bulk, so both queries
// return maps keyed by module.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// MapStudentsByModule returns, for every module, the IDs of its
// currently enrolled students. Dropped and completed enrollments are
// excluded.
func (r *EnrollmentRepository) MapStudentsByModule(ctx context.Context) (map[string][]string, error) {
	const query = `SELECT module_id, student_id FROM enrollments
        WHERE status = $1 ORDER BY module_id, student_id`
	rows := []struct {
		ModuleID  string `db:"module_id"`
		StudentID string `db:"student_id"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query, models.EnrollmentStatusEnrolled); err != nil {
		return nil, fmt.Errorf("map students by module: %w", err)
	}
	students := make(map[string][]string)
	for _, row := range rows {
		students[row.ModuleID] = append(students[row.ModuleID], row.StudentID)
	}
	return students, nil
}

// CountByModule returns the enrolled head count per module.
func (r *EnrollmentRepository) CountByModule(ctx context.Context) (map[string]int, error) {
	const query = `SELECT module_id, COUNT(*) AS students FROM enrollments
        WHERE status = $1 GROUP BY module_id`
	rows := []struct {
		ModuleID string `db:"module_id"`
		Students int    `db:"students"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query, models.EnrollmentStatusEnrolled); err != nil {
		return nil, fmt.Errorf("count enrollments by module: %w", err)
	}
	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.ModuleID] = row.Students
	}
	return counts, nil
}
