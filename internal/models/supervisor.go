package models

import "time"

// SupervisorRole describes a professor's duty on an exam.
type SupervisorRole string

const (
	SupervisorRoleResponsible SupervisorRole = "responsible"
	SupervisorRoleSupervisor  SupervisorRole = "supervisor"
	SupervisorRoleAssistant   SupervisorRole = "assistant"
)

// SupervisorAssignment links a professor to an exam, unique per
// (exam, professor).
type SupervisorAssignment struct {
	ID               string         `db:"id" json:"id"`
	ExamID           string         `db:"exam_id" json:"exam_id"`
	ProfessorID      string         `db:"professor_id" json:"professor_id"`
	Role             SupervisorRole `db:"role" json:"role"`
	IsDepartmentExam bool           `db:"is_department_exam" json:"is_department_exam"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
}

// SupervisionDetail joins an assignment with the professor and the
// exam timing needed for overlap and overload checks.
type SupervisionDetail struct {
	SupervisorAssignment
	ProfessorFirstName string     `db:"professor_first_name" json:"professor_first_name"`
	ProfessorLastName  string     `db:"professor_last_name" json:"professor_last_name"`
	MaxExamsPerDay     int        `db:"max_exams_per_day" json:"max_exams_per_day"`
	ModuleName         string     `db:"module_name" json:"module_name"`
	ScheduledDate      *time.Time `db:"scheduled_date" json:"scheduled_date,omitempty"`
	StartTime          *string    `db:"start_time" json:"start_time,omitempty"`
	DurationMinutes    int        `db:"duration_minutes" json:"duration_minutes"`
}

// ProfessorName returns the display name for reports.
func (d SupervisionDetail) ProfessorName() string {
	return d.ProfessorFirstName + " " + d.ProfessorLastName
}
