package service

import (
	"time"

	"github.com/univ-exams/exam-planner-api/internal/models"
)

type interval struct {
	start int
	end   int
}

// AvailabilityIndex tracks committed exams of a single scheduling run
// so feasibility checks never re-scan the exam list. It is exclusively
// owned by one run; commits update room occupancy and the student-day
// set together with no partial state visible between them.
type AvailabilityIndex struct {
	moduleStudents map[string][]string
	roomBusy       map[string]map[string][]interval
	studentDay     map[string]map[string]struct{}
}

// NewAvailabilityIndex builds an empty index over the module→students
// mapping derived from enrolled rows.
func NewAvailabilityIndex(moduleStudents map[string][]string) *AvailabilityIndex {
	return &AvailabilityIndex{
		moduleStudents: moduleStudents,
		roomBusy:       make(map[string]map[string][]interval),
		studentDay:     make(map[string]map[string]struct{}),
	}
}

// Seed pre-loads the index with exams already committed in the session,
// so a partial re-run respects earlier decisions.
func (x *AvailabilityIndex) Seed(exams []models.Exam) {
	for _, exam := range exams {
		if exam.Status != models.ExamStatusScheduled || exam.ScheduledDate == nil || exam.StartTime == nil || exam.RoomID == nil {
			continue
		}
		start, err := parseClock(*exam.StartTime)
		if err != nil {
			continue
		}
		x.Commit(exam.ModuleID, *exam.RoomID, *exam.ScheduledDate, start, start+exam.DurationMinutes)
	}
}

// IsRoomFree reports whether the room has no committed interval
// overlapping [start,end) on the given date.
func (x *AvailabilityIndex) IsRoomFree(roomID string, date time.Time, start, end int) bool {
	byDate, ok := x.roomBusy[roomID]
	if !ok {
		return true
	}
	for _, busy := range byDate[dateKey(date)] {
		if intervalsOverlap(start, end, busy.start, busy.end) {
			return false
		}
	}
	return true
}

// IsDayFreeForModule is true only when no enrolled student of the
// module already has a committed exam on that date.
func (x *AvailabilityIndex) IsDayFreeForModule(moduleID string, date time.Time) bool {
	busy, ok := x.studentDay[dateKey(date)]
	if !ok || len(busy) == 0 {
		return true
	}
	for _, student := range x.moduleStudents[moduleID] {
		if _, taken := busy[student]; taken {
			return false
		}
	}
	return true
}

// Commit records a placement, updating room occupancy and the
// student-day set in one step.
func (x *AvailabilityIndex) Commit(moduleID, roomID string, date time.Time, start, end int) {
	key := dateKey(date)

	byDate, ok := x.roomBusy[roomID]
	if !ok {
		byDate = make(map[string][]interval)
		x.roomBusy[roomID] = byDate
	}
	byDate[key] = append(byDate[key], interval{start: start, end: end})

	students, ok := x.studentDay[key]
	if !ok {
		students = make(map[string]struct{})
		x.studentDay[key] = students
	}
	for _, student := range x.moduleStudents[moduleID] {
		students[student] = struct{}{}
	}
}
