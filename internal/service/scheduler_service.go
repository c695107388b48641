package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/univ-exams/exam-planner-api/internal/dto"
	"github.com/univ-exams/exam-planner-api/internal/models"
	"github.com/univ-exams/exam-planner-api/pkg/config"
	appErrors "github.com/univ-exams/exam-planner-api/pkg/errors"
)

type sessionReader interface {
	FindByID(ctx context.Context, id string) (*models.Session, error)
}

type examStore interface {
	FindByID(ctx context.Context, id string) (*models.Exam, error)
	ListBySessionAndStatus(ctx context.Context, sessionID string, status models.ExamStatus) ([]models.Exam, error)
	ExistingModuleIDs(ctx context.Context, sessionID string) (map[string]struct{}, error)
	BulkInsert(ctx context.Context, exec sqlx.ExtContext, exams []models.Exam) error
	UpdateScheduleBatch(ctx context.Context, exec sqlx.ExtContext, exams []models.Exam) error
	ClearSchedule(ctx context.Context, exec sqlx.ExtContext, sessionID string) (int64, error)
}

type enrollmentReader interface {
	MapStudentsByModule(ctx context.Context) (map[string][]string, error)
	CountByModule(ctx context.Context) (map[string]int, error)
}

type roomReader interface {
	ListAvailable(ctx context.Context) ([]models.Room, error)
}

type moduleReader interface {
	ListActiveByAcademicYear(ctx context.Context, academicYear string) ([]models.Module, error)
}

type supervisorCleaner interface {
	CountPerProfessorBySession(ctx context.Context, sessionID string) (map[string]int, error)
	DeleteBySession(ctx context.Context, exec sqlx.ExtContext, sessionID string) (int64, error)
}

type professorCounter interface {
	AdjustSupervisionCounts(ctx context.Context, exec sqlx.ExtContext, deltas map[string]int) error
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type cacheInvalidator interface {
	DeleteByPattern(ctx context.Context, pattern string) error
}

// SchedulerService runs the greedy single-pass exam scheduler. All data
// is batch-loaded before the per-exam loop and written back in one
// transaction afterwards; no query runs inside the decision loop.
type SchedulerService struct {
	sessions    sessionReader
	exams       examStore
	enrollments enrollmentReader
	rooms       roomReader
	modules     moduleReader
	supervisors supervisorCleaner
	professors  professorCounter
	tx          txProvider
	cache       cacheInvalidator
	metrics     *MetricsService
	slots       *SlotCatalog
	scorer      *SlotScorer
	logger      *zap.Logger
}

// NewSchedulerService wires the scheduler dependencies.
func NewSchedulerService(
	sessions sessionReader,
	exams examStore,
	enrollments enrollmentReader,
	rooms roomReader,
	modules moduleReader,
	supervisors supervisorCleaner,
	professors professorCounter,
	tx txProvider,
	cache cacheInvalidator,
	metrics *MetricsService,
	cfg config.SchedulerConfig,
	logger *zap.Logger,
) (*SchedulerService, error) {
	slots, err := NewSlotCatalog(cfg)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SchedulerService{
		sessions:    sessions,
		exams:       exams,
		enrollments: enrollments,
		rooms:       rooms,
		modules:     modules,
		supervisors: supervisors,
		professors:  professors,
		tx:          tx,
		cache:       cache,
		metrics:     metrics,
		slots:       slots,
		scorer:      NewSlotScorer(cfg, slots.SlotsPerDay()),
		logger:      logger,
	}, nil
}

// PrepareSession materializes one pending exam per active module of the
// session's academic year. Modules that already have an exam in the
// session are skipped, keeping the (module, session) pair unique.
func (s *SchedulerService) PrepareSession(ctx context.Context, sessionID string) (*dto.PrepareSessionResult, error) {
	started := time.Now()

	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	modules, err := s.modules.ListActiveByAcademicYear(ctx, session.AcademicYear)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load modules")
	}
	existing, err := s.exams.ExistingModuleIDs(ctx, sessionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load existing exams")
	}
	counts, err := s.enrollments.CountByModule(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment counts")
	}

	newExams := make([]models.Exam, 0, len(modules))
	for _, module := range modules {
		if _, ok := existing[module.ID]; ok {
			continue
		}
		newExams = append(newExams, models.Exam{
			ID:               uuid.NewString(),
			ModuleID:         module.ID,
			SessionID:        sessionID,
			DurationMinutes:  module.ExamDurationMinutes,
			Status:           models.ExamStatusPending,
			ExpectedStudents: counts[module.ID],
			RequiresComputer: module.RequiresComputer,
			RequiresLab:      module.RequiresLab,
		})
	}

	if len(newExams) > 0 {
		tx, err := s.tx.BeginTxx(ctx, nil)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
		}
		if err := s.exams.BulkInsert(ctx, tx, newExams); err != nil {
			_ = tx.Rollback()
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create exams")
		}
		if err := tx.Commit(); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit exams")
		}
	}

	s.invalidate(ctx, sessionID)
	s.logger.Info("session prepared",
		zap.String("session_id", sessionID),
		zap.Int("exams_created", len(newExams)),
		zap.Int("modules_total", len(modules)),
	)

	return &dto.PrepareSessionResult{
		ExamsCreated:  len(newExams),
		ModulesTotal:  len(modules),
		AlreadyExists: len(modules) - len(newExams),
		ExecutionMs:   time.Since(started).Milliseconds(),
	}, nil
}

type placement struct {
	slot  Slot
	room  models.Room
	score int
}

// AutoSchedule places every pending exam of the session, most
// constrained first. A single infeasible exam is reported and skipped;
// it never aborts the batch. The pass is deterministic: re-running
// after a clear with unchanged inputs yields identical results.
func (s *SchedulerService) AutoSchedule(ctx context.Context, sessionID string) (*dto.ScheduleRunResult, error) {
	started := time.Now()

	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status == models.SessionStatusCompleted {
		return nil, appErrors.Clone(appErrors.ErrSessionState, "cannot schedule a completed session")
	}

	// Batch load phase: the only queries of the run.
	moduleStudents, err := s.enrollments.MapStudentsByModule(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollments")
	}
	rooms, err := s.rooms.ListAvailable(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rooms")
	}
	pending, err := s.exams.ListBySessionAndStatus(ctx, sessionID, models.ExamStatusPending)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load pending exams")
	}
	scheduled, err := s.exams.ListBySessionAndStatus(ctx, sessionID, models.ExamStatusScheduled)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load scheduled exams")
	}

	index := NewAvailabilityIndex(moduleStudents)
	index.Seed(scheduled)
	catalog := NewRoomCatalog(rooms)

	// Most-constrained-first: large exams claim scarce large rooms
	// before small exams crowd them out. Module ID breaks ties so runs
	// stay reproducible.
	sort.SliceStable(pending, func(i, j int) bool {
		if pending[i].ExpectedStudents != pending[j].ExpectedStudents {
			return pending[i].ExpectedStudents > pending[j].ExpectedStudents
		}
		return pending[i].ModuleID < pending[j].ModuleID
	})

	result := &dto.ScheduleRunResult{TotalExams: len(pending)}
	committed := make([]models.Exam, 0, len(pending))

	for i := range pending {
		exam := pending[i]
		// Live enrollment, not the head count stored at preparation
		// time: drops and late registrations must affect room choice.
		expected := len(moduleStudents[exam.ModuleID])

		candidates := catalog.Candidates(expected, exam.RequiresComputer, exam.RequiresLab)
		if len(candidates) == 0 {
			result.FailedCount++
			result.Failures = append(result.Failures, dto.ScheduleFailure{
				ExamID:   exam.ID,
				ModuleID: exam.ModuleID,
				Reason:   fmt.Sprintf("%s: no room fits %d students with required equipment", appErrors.ErrInfeasible.Code, expected),
			})
			continue
		}

		best := s.pickBest(session, &exam, expected, candidates, index)
		if best == nil {
			result.FailedCount++
			result.Failures = append(result.Failures, dto.ScheduleFailure{
				ExamID:   exam.ID,
				ModuleID: exam.ModuleID,
				Reason:   fmt.Sprintf("%s: no free slot within the session window", appErrors.ErrInfeasible.Code),
			})
			continue
		}

		slotDate := best.slot.Date
		startClock := formatClock(best.slot.Start)
		roomID := best.room.ID
		exam.ScheduledDate = &slotDate
		exam.StartTime = &startClock
		exam.RoomID = &roomID
		exam.Status = models.ExamStatusScheduled
		exam.ExpectedStudents = expected

		index.Commit(exam.ModuleID, roomID, slotDate, best.slot.Start, best.slot.Start+exam.DurationMinutes)
		committed = append(committed, exam)
		result.ScheduledCount++
	}

	// Single write-back phase.
	if len(committed) > 0 {
		tx, err := s.tx.BeginTxx(ctx, nil)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
		}
		if err := s.exams.UpdateScheduleBatch(ctx, tx, committed); err != nil {
			_ = tx.Rollback()
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist schedule")
		}
		if err := tx.Commit(); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit schedule")
		}
	}

	result.ExecutionMs = time.Since(started).Milliseconds()
	s.invalidate(ctx, sessionID)
	s.metrics.ObserveScheduleRun(time.Since(started), result.ScheduledCount, result.FailedCount)
	s.logger.Info("auto schedule finished",
		zap.String("session_id", sessionID),
		zap.Int("total", result.TotalExams),
		zap.Int("scheduled", result.ScheduledCount),
		zap.Int("failed", result.FailedCount),
		zap.Int64("elapsed_ms", result.ExecutionMs),
	)
	return result, nil
}

// pickBest enumerates SlotCatalog × candidate rooms and keeps the
// highest score. Strictly-greater comparison over the date asc, time
// asc, room load order enumeration implements the documented
// tie-break without a second pass.
func (s *SchedulerService) pickBest(session *models.Session, exam *models.Exam, expected int, candidates []models.Room, index *AvailabilityIndex) *placement {
	var best *placement
	s.slots.ForEach(session.StartDate, session.EndDate, func(slot Slot) bool {
		if !index.IsDayFreeForModule(exam.ModuleID, slot.Date) {
			return true
		}
		end := slot.Start + exam.DurationMinutes
		for _, room := range candidates {
			if !index.IsRoomFree(room.ID, slot.Date, slot.Start, end) {
				continue
			}
			score := s.scorer.Score(slot, room.ExamCapacity, expected, session.EndDate)
			if best == nil || score > best.score {
				best = &placement{slot: slot, room: room, score: score}
			}
		}
		return true
	})
	return best
}

// AvailableSlots previews the scored feasible slots for one exam
// without committing anything.
func (s *SchedulerService) AvailableSlots(ctx context.Context, examID string, limit int) ([]dto.AvailableSlot, error) {
	if limit <= 0 {
		limit = 20
	}

	exam, err := s.exams.FindByID(ctx, examID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "exam not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam")
	}
	session, err := s.loadSession(ctx, exam.SessionID)
	if err != nil {
		return nil, err
	}
	moduleStudents, err := s.enrollments.MapStudentsByModule(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollments")
	}
	rooms, err := s.rooms.ListAvailable(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rooms")
	}
	scheduled, err := s.exams.ListBySessionAndStatus(ctx, exam.SessionID, models.ExamStatusScheduled)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load scheduled exams")
	}

	index := NewAvailabilityIndex(moduleStudents)
	index.Seed(filterOut(scheduled, exam.ID))

	expected := len(moduleStudents[exam.ModuleID])
	candidates := NewRoomCatalog(rooms).Candidates(expected, exam.RequiresComputer, exam.RequiresLab)

	var slots []dto.AvailableSlot
	s.slots.ForEach(session.StartDate, session.EndDate, func(slot Slot) bool {
		if !index.IsDayFreeForModule(exam.ModuleID, slot.Date) {
			return true
		}
		end := slot.Start + exam.DurationMinutes
		for _, room := range candidates {
			if !index.IsRoomFree(room.ID, slot.Date, slot.Start, end) {
				continue
			}
			slots = append(slots, dto.AvailableSlot{
				Date:         slot.Date,
				StartTime:    formatClock(slot.Start),
				RoomID:       room.ID,
				RoomName:     room.Name,
				RoomCapacity: room.ExamCapacity,
				Score:        s.scorer.Score(slot, room.ExamCapacity, expected, session.EndDate),
			})
		}
		return true
	})

	sort.SliceStable(slots, func(i, j int) bool {
		return slots[i].Score > slots[j].Score
	})
	if len(slots) > limit {
		slots = slots[:limit]
	}
	return slots, nil
}

// ClearSchedule resets every exam of the session to pending, removes
// their supervisor assignments and walks the professors' supervision
// counters back down. This is the recovery path after a cancelled or
// unwanted run.
func (s *SchedulerService) ClearSchedule(ctx context.Context, sessionID string) (*dto.ClearScheduleResult, error) {
	started := time.Now()

	if _, err := s.loadSession(ctx, sessionID); err != nil {
		return nil, err
	}

	deltas, err := s.supervisors.CountPerProfessorBySession(ctx, sessionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load supervision counts")
	}
	for professorID, count := range deltas {
		deltas[professorID] = -count
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	if err := s.professors.AdjustSupervisionCounts(ctx, tx, deltas); err != nil {
		_ = tx.Rollback()
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to adjust supervision counts")
	}
	removed, err := s.supervisors.DeleteBySession(ctx, tx, sessionID)
	if err != nil {
		_ = tx.Rollback()
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove supervisor assignments")
	}
	cleared, err := s.exams.ClearSchedule(ctx, tx, sessionID)
	if err != nil {
		_ = tx.Rollback()
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reset exams")
	}
	if err := tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit reset")
	}

	s.invalidate(ctx, sessionID)
	s.logger.Info("schedule cleared",
		zap.String("session_id", sessionID),
		zap.Int64("exams_cleared", cleared),
		zap.Int64("assignments_removed", removed),
	)

	return &dto.ClearScheduleResult{
		ExamsCleared:       cleared,
		AssignmentsRemoved: removed,
		ExecutionMs:        time.Since(started).Milliseconds(),
	}, nil
}

func (s *SchedulerService) loadSession(ctx context.Context, sessionID string) (*models.Session, error) {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	return session, nil
}

func (s *SchedulerService) invalidate(ctx context.Context, sessionID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "session:"+sessionID+":*"); err != nil {
		s.logger.Warn("cache invalidation failed", zap.String("session_id", sessionID), zap.Error(err))
	}
}

func filterOut(exams []models.Exam, examID string) []models.Exam {
	filtered := make([]models.Exam, 0, len(exams))
	for _, exam := range exams {
		if exam.ID == examID {
			continue
		}
		filtered = append(filtered, exam)
	}
	return filtered
}
