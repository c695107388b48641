package models

import "time"

// Professor supervises exams. SupervisionCount is owned mutable state,
// incremented by the supervisor assigner and decremented when a schedule
// is cleared; it is never touched outside those batch operations.
type Professor struct {
	ID               string    `db:"id" json:"id"`
	FirstName        string    `db:"first_name" json:"first_name"`
	LastName         string    `db:"last_name" json:"last_name"`
	DepartmentID     string    `db:"department_id" json:"department_id"`
	MaxExamsPerDay   int       `db:"max_exams_per_day" json:"max_exams_per_day"`
	SupervisionCount int       `db:"supervision_count" json:"supervision_count"`
	IsActive         bool      `db:"is_active" json:"is_active"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}

// FullName returns the display name used in conflict reports.
func (p Professor) FullName() string {
	return p.FirstName + " " + p.LastName
}
