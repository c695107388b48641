package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/univ-exams/exam-planner-api/internal/models"
	appErrors "github.com/univ-exams/exam-planner-api/pkg/errors"
)

func studentIDs(prefix string, n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("%s-%03d", prefix, i)
	}
	return ids
}

func testSession(status models.SessionStatus, start, end time.Time) *models.Session {
	return &models.Session{
		ID:           "sess-1",
		Name:         "January 2026",
		SessionType:  "normal",
		StartDate:    start,
		EndDate:      end,
		AcademicYear: "2025-2026",
		Status:       status,
	}
}

func testRooms() []models.Room {
	return []models.Room{
		{ID: "r-small", Name: "Room A", RoomType: models.RoomTypeClassroom, ExamCapacity: 30, IsActive: true, IsAvailable: true},
		{ID: "r-big", Name: "Amphi 1", RoomType: models.RoomTypeAmphitheater, ExamCapacity: 50, IsActive: true, IsAvailable: true},
	}
}

type schedulerFixture struct {
	exams *examStoreStub
	cache *cacheStub
	svc   *SchedulerService
}

func newSchedulerFixture(t *testing.T, session *models.Session, exams *examStoreStub, students map[string][]string, rooms []models.Room, modules []models.Module) (*schedulerFixture, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := newTxProviderMock(t)
	cache := &cacheStub{}
	svc, err := NewSchedulerService(
		sessionReaderStub{session: session},
		exams,
		enrollmentStub{students: students},
		roomReaderStub{rooms: rooms},
		moduleReaderStub{modules: modules},
		&supervisorStoreStub{},
		&professorStoreStub{},
		db,
		cache,
		nil,
		testSchedulerConfig(),
		nil,
	)
	require.NoError(t, err)
	return &schedulerFixture{exams: exams, cache: cache, svc: svc}, mock
}

func TestAutoSchedulePlacesMostConstrainedFirst(t *testing.T) {
	session := testSession(models.SessionStatusDraft, day(2026, time.January, 5), day(2026, time.January, 8))
	exams := &examStoreStub{
		pending: []models.Exam{
			{ID: "e2", ModuleID: "m2", SessionID: "sess-1", DurationMinutes: 90, Status: models.ExamStatusPending},
			{ID: "e1", ModuleID: "m1", SessionID: "sess-1", DurationMinutes: 120, Status: models.ExamStatusPending},
		},
	}
	students := map[string][]string{
		"m1": studentIDs("a", 40),
		"m2": studentIDs("b", 20),
	}
	fixture, mock := newSchedulerFixture(t, session, exams, students, testRooms(), nil)
	mock.ExpectBegin()
	mock.ExpectCommit()

	result, err := fixture.svc.AutoSchedule(context.Background(), "sess-1")
	require.NoError(t, err)

	assert.Equal(t, 2, result.TotalExams)
	assert.Equal(t, 2, result.ScheduledCount)
	assert.Equal(t, 0, result.FailedCount)
	require.Len(t, exams.updated, 2)

	// Largest cohort goes first and claims the big room; both land on the
	// earliest slot of the first day.
	first, second := exams.updated[0], exams.updated[1]
	assert.Equal(t, "e1", first.ID)
	assert.Equal(t, "r-big", *first.RoomID)
	assert.Equal(t, day(2026, time.January, 5), *first.ScheduledDate)
	assert.Equal(t, "08:00", *first.StartTime)
	assert.Equal(t, 40, first.ExpectedStudents)

	assert.Equal(t, "e2", second.ID)
	assert.Equal(t, "r-small", *second.RoomID)
	assert.Equal(t, day(2026, time.January, 5), *second.ScheduledDate)
	assert.Equal(t, "08:00", *second.StartTime)

	assert.NotEmpty(t, fixture.cache.invalidated, "mutating run drops cached reports")
}

func TestAutoScheduleSeparatesSharedStudents(t *testing.T) {
	session := testSession(models.SessionStatusDraft, day(2026, time.January, 5), day(2026, time.January, 8))
	exams := &examStoreStub{
		pending: []models.Exam{
			{ID: "e1", ModuleID: "m1", SessionID: "sess-1", DurationMinutes: 120, Status: models.ExamStatusPending},
			{ID: "e2", ModuleID: "m2", SessionID: "sess-1", DurationMinutes: 90, Status: models.ExamStatusPending},
		},
	}
	shared := append(studentIDs("b", 19), "a-000")
	students := map[string][]string{
		"m1": studentIDs("a", 40),
		"m2": shared,
	}
	fixture, mock := newSchedulerFixture(t, session, exams, students, testRooms(), nil)
	mock.ExpectBegin()
	mock.ExpectCommit()

	result, err := fixture.svc.AutoSchedule(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, 2, result.ScheduledCount)

	require.Len(t, exams.updated, 2)
	first, second := exams.updated[0], exams.updated[1]
	assert.Equal(t, day(2026, time.January, 5), *first.ScheduledDate)
	assert.Equal(t, day(2026, time.January, 6), *second.ScheduledDate, "shared student forces the next day")
	assert.Equal(t, "08:00", *second.StartTime)
}

func TestAutoScheduleUsesLiveEnrollmentCount(t *testing.T) {
	session := testSession(models.SessionStatusDraft, day(2026, time.January, 5), day(2026, time.January, 8))
	exams := &examStoreStub{
		pending: []models.Exam{
			{ID: "e1", ModuleID: "m1", SessionID: "sess-1", DurationMinutes: 120, Status: models.ExamStatusPending, ExpectedStudents: 40},
		},
	}
	// Everyone dropped the module after the exam row was prepared.
	fixture, mock := newSchedulerFixture(t, session, exams, map[string][]string{}, testRooms(), nil)
	mock.ExpectBegin()
	mock.ExpectCommit()

	result, err := fixture.svc.AutoSchedule(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, 1, result.ScheduledCount)

	require.Len(t, exams.updated, 1)
	updated := exams.updated[0]
	assert.Equal(t, 0, updated.ExpectedStudents, "stored head count is stale, live enrollment wins")
	assert.Equal(t, "r-small", *updated.RoomID, "no need to hold the big room for departed students")
}

func TestAutoScheduleReportsInfeasibleExamAndContinues(t *testing.T) {
	session := testSession(models.SessionStatusDraft, day(2026, time.January, 5), day(2026, time.January, 8))
	exams := &examStoreStub{
		pending: []models.Exam{
			{ID: "e-huge", ModuleID: "m-huge", SessionID: "sess-1", DurationMinutes: 120, Status: models.ExamStatusPending},
			{ID: "e2", ModuleID: "m2", SessionID: "sess-1", DurationMinutes: 90, Status: models.ExamStatusPending},
		},
	}
	students := map[string][]string{
		"m-huge": studentIDs("a", 100),
		"m2":     studentIDs("b", 20),
	}
	fixture, mock := newSchedulerFixture(t, session, exams, students, testRooms(), nil)
	mock.ExpectBegin()
	mock.ExpectCommit()

	result, err := fixture.svc.AutoSchedule(context.Background(), "sess-1")
	require.NoError(t, err, "one infeasible exam never aborts the batch")

	assert.Equal(t, 1, result.ScheduledCount)
	assert.Equal(t, 1, result.FailedCount)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "e-huge", result.Failures[0].ExamID)
	assert.Contains(t, result.Failures[0].Reason, appErrors.ErrInfeasible.Code)
	require.Len(t, exams.updated, 1)
	assert.Equal(t, "e2", exams.updated[0].ID)
}

func TestAutoScheduleSkipsRestDay(t *testing.T) {
	// The session window is the rest day only, so nothing can fit.
	session := testSession(models.SessionStatusDraft, day(2026, time.January, 9), day(2026, time.January, 9))
	exams := &examStoreStub{
		pending: []models.Exam{
			{ID: "e1", ModuleID: "m1", SessionID: "sess-1", DurationMinutes: 120, Status: models.ExamStatusPending},
		},
	}
	fixture, _ := newSchedulerFixture(t, session, exams, map[string][]string{"m1": studentIDs("a", 20)}, testRooms(), nil)

	result, err := fixture.svc.AutoSchedule(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, 0, result.ScheduledCount)
	assert.Equal(t, 1, result.FailedCount)
	assert.Empty(t, exams.updated)
}

func TestAutoScheduleIsDeterministic(t *testing.T) {
	run := func() []models.Exam {
		session := testSession(models.SessionStatusDraft, day(2026, time.January, 5), day(2026, time.January, 8))
		exams := &examStoreStub{
			pending: []models.Exam{
				{ID: "e1", ModuleID: "m1", SessionID: "sess-1", DurationMinutes: 120, Status: models.ExamStatusPending},
				{ID: "e2", ModuleID: "m2", SessionID: "sess-1", DurationMinutes: 120, Status: models.ExamStatusPending},
				{ID: "e3", ModuleID: "m3", SessionID: "sess-1", DurationMinutes: 90, Status: models.ExamStatusPending},
			},
		}
		students := map[string][]string{
			"m1": studentIDs("a", 25),
			"m2": studentIDs("b", 25),
			"m3": studentIDs("c", 25),
		}
		fixture, mock := newSchedulerFixture(t, session, exams, students, testRooms(), nil)
		mock.ExpectBegin()
		mock.ExpectCommit()
		_, err := fixture.svc.AutoSchedule(context.Background(), "sess-1")
		require.NoError(t, err)
		return exams.updated
	}

	first := run()
	second := run()
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
		assert.Equal(t, *first[i].RoomID, *second[i].RoomID)
		assert.Equal(t, *first[i].ScheduledDate, *second[i].ScheduledDate)
		assert.Equal(t, *first[i].StartTime, *second[i].StartTime)
	}
}

func TestAutoScheduleRejectsCompletedSession(t *testing.T) {
	session := testSession(models.SessionStatusCompleted, day(2026, time.January, 5), day(2026, time.January, 8))
	fixture, _ := newSchedulerFixture(t, session, &examStoreStub{}, nil, testRooms(), nil)

	_, err := fixture.svc.AutoSchedule(context.Background(), "sess-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrSessionState.Code, appErrors.FromError(err).Code)
}

func TestAutoScheduleUnknownSession(t *testing.T) {
	session := testSession(models.SessionStatusDraft, day(2026, time.January, 5), day(2026, time.January, 8))
	fixture, _ := newSchedulerFixture(t, session, &examStoreStub{}, nil, testRooms(), nil)

	_, err := fixture.svc.AutoSchedule(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestPrepareSessionSkipsExistingModules(t *testing.T) {
	session := testSession(models.SessionStatusDraft, day(2026, time.January, 5), day(2026, time.January, 8))
	exams := &examStoreStub{
		pending: []models.Exam{
			{ID: "e1", ModuleID: "m1", SessionID: "sess-1", Status: models.ExamStatusPending},
		},
	}
	modules := []models.Module{
		{ID: "m1", Name: "Algorithms", ExamDurationMinutes: 120, IsActive: true},
		{ID: "m2", Name: "Databases", ExamDurationMinutes: 90, RequiresLab: true, IsActive: true},
	}
	students := map[string][]string{"m2": studentIDs("b", 25)}
	fixture, mock := newSchedulerFixture(t, session, exams, students, testRooms(), modules)
	mock.ExpectBegin()
	mock.ExpectCommit()

	result, err := fixture.svc.PrepareSession(context.Background(), "sess-1")
	require.NoError(t, err)

	assert.Equal(t, 1, result.ExamsCreated)
	assert.Equal(t, 2, result.ModulesTotal)
	assert.Equal(t, 1, result.AlreadyExists)
	require.Len(t, exams.inserted, 1)

	created := exams.inserted[0]
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "m2", created.ModuleID)
	assert.Equal(t, models.ExamStatusPending, created.Status)
	assert.Equal(t, 90, created.DurationMinutes)
	assert.Equal(t, 25, created.ExpectedStudents)
	assert.True(t, created.RequiresLab)
}

func TestAvailableSlotsRanksByScore(t *testing.T) {
	session := testSession(models.SessionStatusDraft, day(2026, time.January, 5), day(2026, time.January, 6))
	exam := models.Exam{ID: "e1", ModuleID: "m1", SessionID: "sess-1", DurationMinutes: 120, Status: models.ExamStatusPending}
	exams := &examStoreStub{byID: map[string]models.Exam{"e1": exam}}
	students := map[string][]string{"m1": studentIDs("a", 28)}
	fixture, _ := newSchedulerFixture(t, session, exams, students, testRooms(), nil)

	slots, err := fixture.svc.AvailableSlots(context.Background(), "e1", 5)
	require.NoError(t, err)
	require.Len(t, slots, 5)

	for i := 1; i < len(slots); i++ {
		assert.GreaterOrEqual(t, slots[i-1].Score, slots[i].Score, "scores descend")
	}
	// 28 students in a 30 seat room beats the 50 seat amphitheater.
	assert.Equal(t, "r-small", slots[0].RoomID)
	assert.Equal(t, "08:00", slots[0].StartTime)
	assert.Equal(t, day(2026, time.January, 5), slots[0].Date)
}

func TestAvailableSlotsUnknownExam(t *testing.T) {
	session := testSession(models.SessionStatusDraft, day(2026, time.January, 5), day(2026, time.January, 6))
	fixture, _ := newSchedulerFixture(t, session, &examStoreStub{}, nil, testRooms(), nil)

	_, err := fixture.svc.AvailableSlots(context.Background(), "missing", 5)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestClearScheduleRollsBackCounters(t *testing.T) {
	session := testSession(models.SessionStatusInProgress, day(2026, time.January, 5), day(2026, time.January, 8))
	db, mock := newTxProviderMock(t)
	exams := &examStoreStub{clearedN: 4}
	supervisors := &supervisorStoreStub{counts: map[string]int{"p1": 2, "p2": 1}, deletedN: 3}
	professors := &professorStoreStub{}
	cache := &cacheStub{}

	svc, err := NewSchedulerService(
		sessionReaderStub{session: session}, exams, enrollmentStub{}, roomReaderStub{rooms: testRooms()},
		moduleReaderStub{}, supervisors, professors, db, cache, nil, testSchedulerConfig(), nil,
	)
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectCommit()

	result, err := svc.ClearSchedule(context.Background(), "sess-1")
	require.NoError(t, err)

	assert.Equal(t, int64(4), result.ExamsCleared)
	assert.Equal(t, int64(3), result.AssignmentsRemoved)
	assert.Equal(t, map[string]int{"p1": -2, "p2": -1}, professors.deltas)
	assert.NotEmpty(t, cache.invalidated)
	assert.NoError(t, mock.ExpectationsWereMet())
}
