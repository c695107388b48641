package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/univ-exams/exam-planner-api/internal/models"
)

// SessionRepository handles persistence of exam sessions.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository constructs the repository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// FindByID returns a session by its ID.
func (r *SessionRepository) FindByID(ctx context.Context, id string) (*models.Session, error) {
	const query = `SELECT id, name, session_type, start_date, end_date, academic_year, status, created_at, updated_at
        FROM exam_sessions WHERE id = $1`
	var session models.Session
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		return nil, err
	}
	return &session, nil
}

// List returns sessions for an academic year, newest first. An empty
// year returns everything.
func (r *SessionRepository) List(ctx context.Context, academicYear string) ([]models.Session, error) {
	query := `SELECT id, name, session_type, start_date, end_date, academic_year, status, created_at, updated_at
        FROM exam_sessions`
	var args []interface{}
	if academicYear != "" {
		query += " WHERE academic_year = $1"
		args = append(args, academicYear)
	}
	query += " ORDER BY start_date DESC"

	var sessions []models.Session
	if err := r.db.SelectContext(ctx, &sessions, query, args...); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// Create persists a new session.
func (r *SessionRepository) Create(ctx context.Context, session *models.Session) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	if session.Status == "" {
		session.Status = models.SessionStatusDraft
	}
	now := time.Now().UTC()
	session.CreatedAt = now
	session.UpdatedAt = now
	const query = `INSERT INTO exam_sessions (id, name, session_type, start_date, end_date, academic_year, status, created_at, updated_at)
        VALUES (:id, :name, :session_type, :start_date, :end_date, :academic_year, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, session); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// UpdateStatus moves a session through its lifecycle.
func (r *SessionRepository) UpdateStatus(ctx context.Context, id string, status models.SessionStatus) error {
	const query = `UPDATE exam_sessions SET status = $2, updated_at = NOW() WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status); err != nil {
		return fmt.Errorf("update session status: %w", err)
	}
	return nil
}
