package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/univ-exams/exam-planner-api/internal/dto"
	"github.com/univ-exams/exam-planner-api/internal/models"
)

// ExamRepository handles persistence of exams. Mutations used by the
// scheduler take an sqlx.ExtContext so they run inside the caller's
// transaction.
type ExamRepository struct {
	db *sqlx.DB
}

// NewExamRepository constructs the repository.
func NewExamRepository(db *sqlx.DB) *ExamRepository {
	return &ExamRepository{db: db}
}

const examColumns = `id, module_id, session_id, room_id, scheduled_date, start_time, duration_minutes,
        status, expected_students, requires_computer, requires_lab, created_at, updated_at`

// FindByID returns an exam by its ID.
func (r *ExamRepository) FindByID(ctx context.Context, id string) (*models.Exam, error) {
	query := fmt.Sprintf(`SELECT %s FROM exams WHERE id = $1`, examColumns)
	var exam models.Exam
	if err := r.db.GetContext(ctx, &exam, query, id); err != nil {
		return nil, err
	}
	return &exam, nil
}

// ListBySessionAndStatus returns the session's exams in a given state.
func (r *ExamRepository) ListBySessionAndStatus(ctx context.Context, sessionID string, status models.ExamStatus) ([]models.Exam, error) {
	query := fmt.Sprintf(`SELECT %s FROM exams WHERE session_id = $1 AND status = $2 ORDER BY created_at, id`, examColumns)
	var exams []models.Exam
	if err := r.db.SelectContext(ctx, &exams, query, sessionID, status); err != nil {
		return nil, fmt.Errorf("list exams: %w", err)
	}
	return exams, nil
}

// ListDetailsBySession returns every exam of the session joined with
// module and room context.
func (r *ExamRepository) ListDetailsBySession(ctx context.Context, sessionID string) ([]models.ExamDetail, error) {
	const query = `SELECT e.id, e.module_id, e.session_id, e.room_id, e.scheduled_date, e.start_time, e.duration_minutes,
        e.status, e.expected_students, e.requires_computer, e.requires_lab, e.created_at, e.updated_at,
        m.name AS module_name, COALESCE(r.name, '') AS room_name, COALESCE(r.exam_capacity, 0) AS room_capacity
        FROM exams e
        JOIN modules m ON m.id = e.module_id
        LEFT JOIN rooms r ON r.id = e.room_id
        WHERE e.session_id = $1
        ORDER BY e.scheduled_date NULLS LAST, e.start_time NULLS LAST, m.name`
	var details []models.ExamDetail
	if err := r.db.SelectContext(ctx, &details, query, sessionID); err != nil {
		return nil, fmt.Errorf("list exam details: %w", err)
	}
	return details, nil
}

// ExistingModuleIDs returns the modules that already have an exam in
// the session.
func (r *ExamRepository) ExistingModuleIDs(ctx context.Context, sessionID string) (map[string]struct{}, error) {
	const query = `SELECT module_id FROM exams WHERE session_id = $1`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, sessionID); err != nil {
		return nil, fmt.Errorf("list exam modules: %w", err)
	}
	existing := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		existing[id] = struct{}{}
	}
	return existing, nil
}

// BulkInsert persists the given exams in one statement.
func (r *ExamRepository) BulkInsert(ctx context.Context, exec sqlx.ExtContext, exams []models.Exam) error {
	if len(exams) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for i := range exams {
		exams[i].CreatedAt = now
		exams[i].UpdatedAt = now
	}
	const query = `INSERT INTO exams (id, module_id, session_id, room_id, scheduled_date, start_time, duration_minutes,
        status, expected_students, requires_computer, requires_lab, created_at, updated_at)
        VALUES (:id, :module_id, :session_id, :room_id, :scheduled_date, :start_time, :duration_minutes,
        :status, :expected_students, :requires_computer, :requires_lab, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, exams); err != nil {
		return fmt.Errorf("bulk insert exams: %w", err)
	}
	return nil
}

// UpdateScheduleBatch writes the committed placements back. Only the
// scheduling columns change.
func (r *ExamRepository) UpdateScheduleBatch(ctx context.Context, exec sqlx.ExtContext, exams []models.Exam) error {
	const query = `UPDATE exams SET room_id = $2, scheduled_date = $3, start_time = $4, status = $5,
        expected_students = $6, updated_at = NOW() WHERE id = $1`
	for i := range exams {
		exam := &exams[i]
		if _, err := exec.ExecContext(ctx, query, exam.ID, exam.RoomID, exam.ScheduledDate, exam.StartTime, exam.Status, exam.ExpectedStudents); err != nil {
			return fmt.Errorf("update exam %s: %w", exam.ID, err)
		}
	}
	return nil
}

// ClearSchedule resets the session's scheduled exams to pending and
// returns how many rows it touched.
func (r *ExamRepository) ClearSchedule(ctx context.Context, exec sqlx.ExtContext, sessionID string) (int64, error) {
	const query = `UPDATE exams SET room_id = NULL, scheduled_date = NULL, start_time = NULL,
        status = $2, updated_at = NOW() WHERE session_id = $1 AND status = $3`
	result, err := exec.ExecContext(ctx, query, sessionID, models.ExamStatusPending, models.ExamStatusScheduled)
	if err != nil {
		return 0, fmt.Errorf("clear schedule: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("clear schedule rows: %w", err)
	}
	return affected, nil
}

// StatsBySession aggregates scheduling progress counters.
func (r *ExamRepository) StatsBySession(ctx context.Context, sessionID string) (*dto.SessionStats, error) {
	const query = `SELECT
        COUNT(*) AS total_exams,
        COUNT(*) FILTER (WHERE status = 'scheduled') AS scheduled_exams,
        COUNT(*) FILTER (WHERE status = 'pending') AS pending_exams,
        COUNT(DISTINCT room_id) FILTER (WHERE room_id IS NOT NULL) AS rooms_used,
        (SELECT COUNT(DISTINCT sa.professor_id)
            FROM supervisor_assignments sa
            JOIN exams se ON se.id = sa.exam_id
            WHERE se.session_id = $1) AS professors_assigned
        FROM exams WHERE session_id = $1`
	var stats dto.SessionStats
	if err := r.db.GetContext(ctx, &stats, query, sessionID); err != nil {
		return nil, fmt.Errorf("session stats: %w", err)
	}
	return &stats, nil
}
