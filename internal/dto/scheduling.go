package dto

import "time"

// PrepareSessionResult reports how many pending exams were materialized.
type PrepareSessionResult struct {
	ExamsCreated  int   `json:"exams_created"`
	ModulesTotal  int   `json:"modules_total"`
	AlreadyExists int   `json:"already_exists"`
	ExecutionMs   int64 `json:"execution_time_ms"`
}

// ScheduleFailure describes one exam the scheduler could not place.
type ScheduleFailure struct {
	ExamID   string `json:"exam_id"`
	ModuleID string `json:"module_id"`
	Reason   string `json:"reason"`
}

// ScheduleRunResult aggregates one auto-scheduling pass. Per-exam
// infeasibility is reported here; it never aborts the batch.
type ScheduleRunResult struct {
	TotalExams     int               `json:"total_exams"`
	ScheduledCount int               `json:"scheduled_count"`
	FailedCount    int               `json:"failed_count"`
	ExecutionMs    int64             `json:"execution_time_ms"`
	Failures       []ScheduleFailure `json:"failures,omitempty"`
}

// AvailableSlot is one scored feasible (date, time, room) candidate.
type AvailableSlot struct {
	Date         time.Time `json:"slot_date"`
	StartTime    string    `json:"slot_time"`
	RoomID       string    `json:"room_id"`
	RoomName     string    `json:"room_name"`
	RoomCapacity int       `json:"room_capacity"`
	Score        int       `json:"score"`
}

// SupervisorShortfall records an exam that received fewer supervisors
// than required.
type SupervisorShortfall struct {
	ExamID   string `json:"exam_id"`
	Needed   int    `json:"needed"`
	Assigned int    `json:"assigned"`
}

// SupervisorRunResult aggregates one supervisor assignment pass.
type SupervisorRunResult struct {
	ExamsProcessed  int                   `json:"exams_processed"`
	AssignmentsMade int                   `json:"assignments_made"`
	ProfessorsUsed  int                   `json:"professors_used"`
	AvgSupervisions float64               `json:"avg_supervisions"`
	Shortfalls      []SupervisorShortfall `json:"shortfalls,omitempty"`
	ExecutionMs     int64                 `json:"execution_time_ms"`
}

// ClearScheduleResult reports a session reset.
type ClearScheduleResult struct {
	ExamsCleared       int64 `json:"exams_cleared"`
	AssignmentsRemoved int64 `json:"assignments_removed"`
	ExecutionMs        int64 `json:"execution_time_ms"`
}

// Conflict severity levels.
const (
	SeverityHigh     = "high"
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
)

// Conflict types.
const (
	ConflictStudentDay     = "student_day"
	ConflictProfessorLoad  = "professor_overload"
	ConflictProfessorTime  = "professor_overlap"
	ConflictRoomDoubleBook = "room_double_booking"
	ConflictRoomCapacity   = "capacity"
)

// Conflict is a single detected violation of a hard constraint.
type Conflict struct {
	Type     string `json:"type"`
	Severity string `json:"severity"`
	Item     string `json:"item"`
	Detail   string `json:"detail"`
	Overflow int    `json:"overflow,omitempty"`
}

// ConflictSummary is a convenience aggregation over a report.
type ConflictSummary struct {
	Total      int            `json:"total"`
	BySeverity map[string]int `json:"by_severity"`
	ByType     map[string]int `json:"by_type"`
}

// ConflictReport is the full audit output for a session.
type ConflictReport struct {
	SessionID   string          `json:"session_id"`
	GeneratedAt time.Time       `json:"generated_at"`
	Conflicts   []Conflict      `json:"conflicts"`
	Summary     ConflictSummary `json:"summary"`
}

// SessionStats summarises scheduling progress for dashboards.
type SessionStats struct {
	TotalExams         int `db:"total_exams" json:"total_exams"`
	ScheduledExams     int `db:"scheduled_exams" json:"scheduled_exams"`
	PendingExams       int `db:"pending_exams" json:"pending_exams"`
	RoomsUsed          int `db:"rooms_used" json:"rooms_used"`
	ProfessorsAssigned int `db:"professors_assigned" json:"professors_assigned"`
}
