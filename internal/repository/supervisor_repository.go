package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/univ-exams/exam-planner-api/internal/models"
)

// SupervisorRepository handles persistence of supervisor assignments.
type SupervisorRepository struct {
	db *sqlx.DB
}

// NewSupervisorRepository constructs the repository.
func NewSupervisorRepository(db *sqlx.DB) *SupervisorRepository {
	return &SupervisorRepository{db: db}
}

// ListBySession returns every assignment of the session joined with
// professor and exam timing, ordered chronologically.
func (r *SupervisorRepository) ListBySession(ctx context.Context, sessionID string) ([]models.SupervisionDetail, error) {
	const query = `SELECT sa.id, sa.exam_id, sa.professor_id, sa.role, sa.is_department_exam, sa.created_at,
        p.first_name AS professor_first_name, p.last_name AS professor_last_name, p.max_exams_per_day,
        m.name AS module_name, e.scheduled_date, e.start_time, e.duration_minutes
        FROM supervisor_assignments sa
        JOIN professors p ON p.id = sa.professor_id
        JOIN exams e ON e.id = sa.exam_id
        JOIN modules m ON m.id = e.module_id
        WHERE e.session_id = $1
        ORDER BY e.scheduled_date NULLS LAST, e.start_time NULLS LAST, sa.created_at, sa.id`
	var details []models.SupervisionDetail
	if err := r.db.SelectContext(ctx, &details, query, sessionID); err != nil {
		return nil, fmt.Errorf("list supervisions: %w", err)
	}
	return details, nil
}

// BulkInsert persists the given assignments in one statement.
func (r *SupervisorRepository) BulkInsert(ctx context.Context, exec sqlx.ExtContext, assignments []models.SupervisorAssignment) error {
	if len(assignments) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for i := range assignments {
		assignments[i].CreatedAt = now
	}
	const query = `INSERT INTO supervisor_assignments (id, exam_id, professor_id, role, is_department_exam, created_at)
        VALUES (:id, :exam_id, :professor_id, :role, :is_department_exam, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, assignments); err != nil {
		return fmt.Errorf("bulk insert assignments: %w", err)
	}
	return nil
}

// DeleteBySession removes every assignment tied to the session's exams
// and returns how many rows it touched.
func (r *SupervisorRepository) DeleteBySession(ctx context.Context, exec sqlx.ExtContext, sessionID string) (int64, error) {
	const query = `DELETE FROM supervisor_assignments sa
        USING exams e WHERE e.id = sa.exam_id AND e.session_id = $1`
	result, err := exec.ExecContext(ctx, query, sessionID)
	if err != nil {
		return 0, fmt.Errorf("delete assignments: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete assignments rows: %w", err)
	}
	return affected, nil
}

// CountPerProfessorBySession returns how many assignments each
// professor holds in the session, used to roll counters back on clear.
func (r *SupervisorRepository) CountPerProfessorBySession(ctx context.Context, sessionID string) (map[string]int, error) {
	const query = `SELECT sa.professor_id, COUNT(*) AS assignments
        FROM supervisor_assignments sa
        JOIN exams e ON e.id = sa.exam_id
        WHERE e.session_id = $1
        GROUP BY sa.professor_id`
	rows := []struct {
		ProfessorID string `db:"professor_id"`
		Assignments int    `db:"assignments"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query, sessionID); err != nil {
		return nil, fmt.Errorf("count supervisions: %w", err)
	}
	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.ProfessorID] = row.Assignments
	}
	return counts, nil
}
