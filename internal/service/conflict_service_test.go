package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/univ-exams/exam-planner-api/internal/dto"
	"github.com/univ-exams/exam-planner-api/internal/models"
)

func detailRow(id, moduleID, moduleName, roomID, roomName string, capacity int, date time.Time, start string, duration, expected int) models.ExamDetail {
	return models.ExamDetail{
		Exam: models.Exam{
			ID:               id,
			ModuleID:         moduleID,
			SessionID:        "sess-1",
			RoomID:           strPtr(roomID),
			ScheduledDate:    timePtr(date),
			StartTime:        strPtr(start),
			DurationMinutes:  duration,
			Status:           models.ExamStatusScheduled,
			ExpectedStudents: expected,
		},
		ModuleName:   moduleName,
		RoomName:     roomName,
		RoomCapacity: capacity,
	}
}

func newConflictFixture(session *models.Session, details []models.ExamDetail, students map[string][]string, supervisions []models.SupervisionDetail) *ConflictService {
	return NewConflictService(
		sessionReaderStub{session: session},
		examDetailStub{details: details},
		enrollmentStub{students: students},
		&supervisorStoreStub{details: supervisions},
		&cacheStub{},
		nil,
		testSchedulerConfig(),
		nil,
	)
}

func TestReportCleanSchedule(t *testing.T) {
	session := testSession(models.SessionStatusInProgress, day(2026, time.January, 5), day(2026, time.January, 8))
	details := []models.ExamDetail{
		detailRow("e1", "m1", "Algorithms", "r1", "Room A", 30, day(2026, time.January, 5), "08:00", 120, 25),
		detailRow("e2", "m2", "Databases", "r1", "Room A", 30, day(2026, time.January, 6), "08:00", 120, 25),
	}
	students := map[string][]string{"m1": studentIDs("a", 25), "m2": studentIDs("b", 25)}
	svc := newConflictFixture(session, details, students, nil)

	report, err := svc.Report(context.Background(), "sess-1")
	require.NoError(t, err)

	assert.Equal(t, 0, report.Summary.Total)
	assert.Empty(t, report.Conflicts)
	assert.Equal(t, "sess-1", report.SessionID)
}

func TestReportStudentSameDay(t *testing.T) {
	session := testSession(models.SessionStatusInProgress, day(2026, time.January, 5), day(2026, time.January, 8))
	monday := day(2026, time.January, 5)
	// Non-overlapping times on the same day still violate the rule.
	details := []models.ExamDetail{
		detailRow("e1", "m1", "Algorithms", "r1", "Room A", 30, monday, "08:00", 120, 2),
		detailRow("e2", "m2", "Databases", "r2", "Room B", 30, monday, "14:00", 120, 2),
	}
	students := map[string][]string{
		"m1": {"s1", "s2"},
		"m2": {"s1", "s3"},
	}
	svc := newConflictFixture(session, details, students, nil)

	report, err := svc.Report(context.Background(), "sess-1")
	require.NoError(t, err)

	require.Equal(t, 1, report.Summary.ByType[dto.ConflictStudentDay])
	conflict := report.Conflicts[0]
	assert.Equal(t, "s1", conflict.Item)
	assert.Equal(t, dto.SeverityHigh, conflict.Severity)
}

func TestReportRoomDoubleBooking(t *testing.T) {
	session := testSession(models.SessionStatusInProgress, day(2026, time.January, 5), day(2026, time.January, 8))
	monday := day(2026, time.January, 5)
	details := []models.ExamDetail{
		detailRow("e1", "m1", "Algorithms", "r1", "Room A", 30, monday, "08:00", 120, 10),
		detailRow("e2", "m2", "Databases", "r1", "Room A", 30, monday, "09:00", 120, 10),
		detailRow("e3", "m3", "Networks", "r1", "Room A", 30, monday, "10:00", 60, 10),
	}
	svc := newConflictFixture(session, details, nil, nil)

	report, err := svc.Report(context.Background(), "sess-1")
	require.NoError(t, err)

	// e1/e2 overlap, e2/e3 overlap; e1 ends exactly when e3 starts.
	assert.Equal(t, 2, report.Summary.ByType[dto.ConflictRoomDoubleBook])
	assert.Equal(t, 2, report.Summary.BySeverity[dto.SeverityCritical])
}

func TestReportProfessorOverloadAndOverlap(t *testing.T) {
	session := testSession(models.SessionStatusInProgress, day(2026, time.January, 5), day(2026, time.January, 8))
	monday := day(2026, time.January, 5)
	duty := func(id, examID, start string, duration int) models.SupervisionDetail {
		return models.SupervisionDetail{
			SupervisorAssignment: models.SupervisorAssignment{ID: id, ExamID: examID, ProfessorID: "p1", Role: models.SupervisorRoleSupervisor},
			ProfessorFirstName:   "Aicha",
			ProfessorLastName:    "Benali",
			MaxExamsPerDay:       2,
			ModuleName:           "Module " + examID,
			ScheduledDate:        timePtr(monday),
			StartTime:            strPtr(start),
			DurationMinutes:      duration,
		}
	}
	supervisions := []models.SupervisionDetail{
		duty("d1", "e1", "08:00", 120),
		duty("d2", "e2", "09:00", 120),
		duty("d3", "e3", "14:00", 120),
	}
	svc := newConflictFixture(session, nil, nil, supervisions)

	report, err := svc.Report(context.Background(), "sess-1")
	require.NoError(t, err)

	assert.Equal(t, 1, report.Summary.ByType[dto.ConflictProfessorLoad], "three duties against a cap of two")
	assert.Equal(t, 1, report.Summary.ByType[dto.ConflictProfessorTime], "only the first pair overlaps")
	for _, conflict := range report.Conflicts {
		switch conflict.Type {
		case dto.ConflictProfessorLoad:
			assert.Equal(t, dto.SeverityWarning, conflict.Severity, "overload is the advisory tier")
		case dto.ConflictProfessorTime:
			assert.Equal(t, dto.SeverityCritical, conflict.Severity)
		}
	}
}

func TestReportCapacityOverflowSortedWorstFirst(t *testing.T) {
	session := testSession(models.SessionStatusInProgress, day(2026, time.January, 5), day(2026, time.January, 8))
	details := []models.ExamDetail{
		detailRow("e1", "m1", "Algorithms", "r1", "Room A", 30, day(2026, time.January, 5), "08:00", 120, 35),
		detailRow("e2", "m2", "Databases", "r2", "Room B", 30, day(2026, time.January, 6), "08:00", 120, 50),
	}
	svc := newConflictFixture(session, details, nil, nil)

	report, err := svc.Report(context.Background(), "sess-1")
	require.NoError(t, err)

	var capacity []dto.Conflict
	for _, conflict := range report.Conflicts {
		if conflict.Type == dto.ConflictRoomCapacity {
			capacity = append(capacity, conflict)
		}
	}
	require.Len(t, capacity, 2)
	assert.Equal(t, "Databases", capacity[0].Item)
	assert.Equal(t, 20, capacity[0].Overflow)
	assert.Equal(t, "Algorithms", capacity[1].Item)
	assert.Equal(t, 5, capacity[1].Overflow)
	// Overcrowded rooms cannot run the exam as scheduled.
	assert.Equal(t, dto.SeverityHigh, capacity[0].Severity)
	assert.Equal(t, dto.SeverityHigh, capacity[1].Severity)
	assert.Equal(t, 2, report.Summary.BySeverity[dto.SeverityHigh])
}

func TestReportIgnoresPendingExams(t *testing.T) {
	session := testSession(models.SessionStatusInProgress, day(2026, time.January, 5), day(2026, time.January, 8))
	pending := models.ExamDetail{
		Exam:       models.Exam{ID: "e1", ModuleID: "m1", SessionID: "sess-1", Status: models.ExamStatusPending},
		ModuleName: "Algorithms",
	}
	svc := newConflictFixture(session, []models.ExamDetail{pending}, nil, nil)

	report, err := svc.Report(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, 0, report.Summary.Total)
}
