package models

import "time"

// SessionStatus describes the lifecycle of an exam session.
type SessionStatus string

const (
	SessionStatusDraft      SessionStatus = "draft"
	SessionStatusPublished  SessionStatus = "published"
	SessionStatusInProgress SessionStatus = "in_progress"
	SessionStatusCompleted  SessionStatus = "completed"
)

// Session represents an exam period within which exams are scheduled.
// The date range is inclusive on both ends and becomes immutable once
// exams have been committed against the session.
type Session struct {
	ID           string        `db:"id" json:"id"`
	Name         string        `db:"name" json:"name"`
	SessionType  string        `db:"session_type" json:"session_type"`
	StartDate    time.Time     `db:"start_date" json:"start_date"`
	EndDate      time.Time     `db:"end_date" json:"end_date"`
	AcademicYear string        `db:"academic_year" json:"academic_year"`
	Status       SessionStatus `db:"status" json:"status"`
	CreatedAt    time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time     `db:"updated_at" json:"updated_at"`
}
