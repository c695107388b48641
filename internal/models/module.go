package models

import "time"

// Module is a course that gets exactly one exam per session.
// Read-only input to scheduling.
type Module struct {
	ID                  string    `db:"id" json:"id"`
	Name                string    `db:"name" json:"name"`
	FormationID         string    `db:"formation_id" json:"formation_id"`
	Credits             int       `db:"credits" json:"credits"`
	ExamDurationMinutes int       `db:"exam_duration_minutes" json:"exam_duration_minutes"`
	RequiresComputer    bool      `db:"requires_computer" json:"requires_computer"`
	RequiresLab         bool      `db:"requires_lab" json:"requires_lab"`
	IsActive            bool      `db:"is_active" json:"is_active"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
}

// Formation is an academic program grouping modules under a department.
type Formation struct {
	ID           string `db:"id" json:"id"`
	Name         string `db:"name" json:"name"`
	DepartmentID string `db:"department_id" json:"department_id"`
	AcademicYear string `db:"academic_year" json:"academic_year"`
	IsActive     bool   `db:"is_active" json:"is_active"`
}
