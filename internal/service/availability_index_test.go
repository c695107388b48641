package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/univ-exams/exam-planner-api/internal/models"
)

func TestAvailabilityIndexRoomOccupancy(t *testing.T) {
	index := NewAvailabilityIndex(nil)
	monday := day(2026, time.January, 5)

	index.Commit("m1", "r1", monday, 8*60, 10*60)

	assert.False(t, index.IsRoomFree("r1", monday, 9*60, 11*60), "overlapping interval")
	assert.True(t, index.IsRoomFree("r1", monday, 10*60, 12*60), "back to back is allowed")
	assert.True(t, index.IsRoomFree("r1", day(2026, time.January, 6), 8*60, 10*60), "other day")
	assert.True(t, index.IsRoomFree("r2", monday, 8*60, 10*60), "other room")
}

func TestAvailabilityIndexStudentDay(t *testing.T) {
	students := map[string][]string{
		"m1": {"s1", "s2"},
		"m2": {"s2", "s3"},
		"m3": {"s4"},
	}
	index := NewAvailabilityIndex(students)
	monday := day(2026, time.January, 5)

	index.Commit("m1", "r1", monday, 8*60, 10*60)

	assert.False(t, index.IsDayFreeForModule("m2", monday), "s2 already sits an exam that day")
	assert.True(t, index.IsDayFreeForModule("m3", monday), "disjoint cohort")
	assert.True(t, index.IsDayFreeForModule("m2", day(2026, time.January, 6)), "next day is clear")
}

func TestAvailabilityIndexSeedSkipsIncompleteRows(t *testing.T) {
	index := NewAvailabilityIndex(map[string][]string{"m1": {"s1"}})
	monday := day(2026, time.January, 5)

	index.Seed([]models.Exam{
		{ModuleID: "m1", Status: models.ExamStatusPending},
		{ModuleID: "m1", Status: models.ExamStatusScheduled, ScheduledDate: timePtr(monday)},
		{
			ModuleID:        "m1",
			Status:          models.ExamStatusScheduled,
			ScheduledDate:   timePtr(monday),
			StartTime:       strPtr("08:00"),
			RoomID:          strPtr("r1"),
			DurationMinutes: 120,
		},
	})

	assert.False(t, index.IsRoomFree("r1", monday, 9*60, 10*60))
	assert.False(t, index.IsDayFreeForModule("m1", monday))
}
