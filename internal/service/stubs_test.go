package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/univ-exams/exam-planner-api/internal/models"
	"github.com/univ-exams/exam-planner-api/pkg/config"
	appErrors "github.com/univ-exams/exam-planner-api/pkg/errors"
)

func testSchedulerConfig() config.SchedulerConfig {
	return config.SchedulerConfig{
		SlotTimes:             []string{"08:00", "10:30", "14:00", "16:30"},
		SlotWeights:           []int{10, 8, 6, 4},
		RestDay:               time.Friday,
		StudentsPerSupervisor: 30,
		DefaultMaxExamsPerDay: 3,
		ConflictCacheTTL:      5 * time.Minute,
		StatsCacheTTL:         time.Minute,
	}
}

func day(yyyy int, mm time.Month, dd int) time.Time {
	return time.Date(yyyy, mm, dd, 0, 0, 0, 0, time.UTC)
}

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }

func newTxProviderMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	wrapped := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { wrapped.Close() })
	return wrapped, mock
}

type sessionReaderStub struct {
	session *models.Session
	err     error
}

func (s sessionReaderStub) FindByID(_ context.Context, id string) (*models.Session, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.session == nil || s.session.ID != id {
		return nil, sql.ErrNoRows
	}
	clone := *s.session
	return &clone, nil
}

type examStoreStub struct {
	byID      map[string]models.Exam
	pending   []models.Exam
	scheduled []models.Exam
	inserted  []models.Exam
	updated   []models.Exam
	clearedN  int64
}

func (s *examStoreStub) FindByID(_ context.Context, id string) (*models.Exam, error) {
	exam, ok := s.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &exam, nil
}

func (s *examStoreStub) ListBySessionAndStatus(_ context.Context, _ string, status models.ExamStatus) ([]models.Exam, error) {
	if status == models.ExamStatusPending {
		return append([]models.Exam(nil), s.pending...), nil
	}
	return append([]models.Exam(nil), s.scheduled...), nil
}

func (s *examStoreStub) ExistingModuleIDs(_ context.Context, _ string) (map[string]struct{}, error) {
	existing := make(map[string]struct{})
	for _, exam := range append(append([]models.Exam(nil), s.pending...), s.scheduled...) {
		existing[exam.ModuleID] = struct{}{}
	}
	return existing, nil
}

func (s *examStoreStub) BulkInsert(_ context.Context, _ sqlx.ExtContext, exams []models.Exam) error {
	s.inserted = append(s.inserted, exams...)
	return nil
}

func (s *examStoreStub) UpdateScheduleBatch(_ context.Context, _ sqlx.ExtContext, exams []models.Exam) error {
	s.updated = append(s.updated, exams...)
	return nil
}

func (s *examStoreStub) ClearSchedule(_ context.Context, _ sqlx.ExtContext, _ string) (int64, error) {
	return s.clearedN, nil
}

type enrollmentStub struct {
	students map[string][]string
}

func (s enrollmentStub) MapStudentsByModule(_ context.Context) (map[string][]string, error) {
	return s.students, nil
}

func (s enrollmentStub) CountByModule(_ context.Context) (map[string]int, error) {
	counts := make(map[string]int, len(s.students))
	for moduleID, students := range s.students {
		counts[moduleID] = len(students)
	}
	return counts, nil
}

type roomReaderStub struct {
	rooms []models.Room
}

func (s roomReaderStub) ListAvailable(_ context.Context) ([]models.Room, error) {
	return append([]models.Room(nil), s.rooms...), nil
}

type moduleReaderStub struct {
	modules []models.Module
	depts   map[string]string
}

func (s moduleReaderStub) ListActiveByAcademicYear(_ context.Context, _ string) ([]models.Module, error) {
	return append([]models.Module(nil), s.modules...), nil
}

func (s moduleReaderStub) MapDepartmentsByModule(_ context.Context) (map[string]string, error) {
	return s.depts, nil
}

type supervisorStoreStub struct {
	details  []models.SupervisionDetail
	inserted []models.SupervisorAssignment
	counts   map[string]int
	deletedN int64
}

func (s *supervisorStoreStub) ListBySession(_ context.Context, _ string) ([]models.SupervisionDetail, error) {
	return append([]models.SupervisionDetail(nil), s.details...), nil
}

func (s *supervisorStoreStub) BulkInsert(_ context.Context, _ sqlx.ExtContext, assignments []models.SupervisorAssignment) error {
	s.inserted = append(s.inserted, assignments...)
	return nil
}

func (s *supervisorStoreStub) DeleteBySession(_ context.Context, _ sqlx.ExtContext, _ string) (int64, error) {
	return s.deletedN, nil
}

func (s *supervisorStoreStub) CountPerProfessorBySession(_ context.Context, _ string) (map[string]int, error) {
	counts := make(map[string]int, len(s.counts))
	for id, n := range s.counts {
		counts[id] = n
	}
	return counts, nil
}

type professorStoreStub struct {
	professors []models.Professor
	deltas     map[string]int
}

func (s *professorStoreStub) ListActive(_ context.Context) ([]models.Professor, error) {
	return append([]models.Professor(nil), s.professors...), nil
}

func (s *professorStoreStub) AdjustSupervisionCounts(_ context.Context, _ sqlx.ExtContext, deltas map[string]int) error {
	s.deltas = deltas
	return nil
}

type examDetailStub struct {
	details []models.ExamDetail
}

func (s examDetailStub) ListDetailsBySession(_ context.Context, _ string) ([]models.ExamDetail, error) {
	return append([]models.ExamDetail(nil), s.details...), nil
}

type cacheStub struct {
	invalidated []string
}

func (s *cacheStub) DeleteByPattern(_ context.Context, pattern string) error {
	s.invalidated = append(s.invalidated, pattern)
	return nil
}

func (s *cacheStub) Get(_ context.Context, _ string, _ any) error {
	return appErrors.ErrCacheMiss
}

func (s *cacheStub) Set(_ context.Context, _ string, _ any, _ time.Duration) error {
	return nil
}
