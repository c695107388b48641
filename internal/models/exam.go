package models

import "time"

// ExamStatus is the scheduling state of an exam.
type ExamStatus string

const (
	ExamStatusPending    ExamStatus = "pending"
	ExamStatusScheduled  ExamStatus = "scheduled"
	ExamStatusInProgress ExamStatus = "in_progress"
	ExamStatusCompleted  ExamStatus = "completed"
	ExamStatusCancelled  ExamStatus = "cancelled"
)

// Exam is the scheduled unit: one module's assessment within a session.
// ScheduledDate, StartTime and RoomID are nil while the exam is pending;
// they are set together when the scheduler commits a slot.
type Exam struct {
	ID               string     `db:"id" json:"id"`
	ModuleID         string     `db:"module_id" json:"module_id"`
	SessionID        string     `db:"session_id" json:"session_id"`
	RoomID           *string    `db:"room_id" json:"room_id,omitempty"`
	ScheduledDate    *time.Time `db:"scheduled_date" json:"scheduled_date,omitempty"`
	StartTime        *string    `db:"start_time" json:"start_time,omitempty"`
	DurationMinutes  int        `db:"duration_minutes" json:"duration_minutes"`
	Status           ExamStatus `db:"status" json:"status"`
	ExpectedStudents int        `db:"expected_students" json:"expected_students"`
	RequiresComputer bool       `db:"requires_computer" json:"requires_computer"`
	RequiresLab      bool       `db:"requires_lab" json:"requires_lab"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// ExamDetail joins an exam with its module and room context for
// conflict detection and exports.
type ExamDetail struct {
	Exam
	ModuleName   string `db:"module_name" json:"module_name"`
	RoomName     string `db:"room_name" json:"room_name"`
	RoomCapacity int    `db:"room_capacity" json:"room_capacity"`
}
