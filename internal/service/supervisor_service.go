package service

import (
	"context"
	"database/sql"
	"errors"
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

type supervisorStore interface {
	ListBySession(ctx context.Context, sessionID string) ([]models.SupervisionDetail, error)
	BulkInsert(ctx context.Context, exec sqlx.ExtContext, assignments []models.SupervisorAssignment) error
}

type professorStore interface {
	ListActive(ctx context.Context) ([]models.Professor, error)
	AdjustSupervisionCounts(ctx context.Context, exec sqlx.ExtContext, deltas map[string]int) error
}

type moduleDeptReader interface {
	MapDepartmentsByModule(ctx context.Context) (map[string]string, error)
}

// SupervisorService distributes supervision duty over the active
// professor pool, same department first, least loaded next. Exams are
// processed in chronological order so earlier exams never lose
// candidates to later ones.
type SupervisorService struct {
	sessions     sessionReader
	exams        examStore
	supervisors  supervisorStore
	professors   professorStore
	modules      moduleDeptReader
	tx           txProvider
	cache        cacheInvalidator
	metrics      *MetricsService
	perSuperv    int
	defaultDaily int
	logger       *zap.Logger
}

// NewSupervisorService wires the assigner dependencies.
func NewSupervisorService(
	sessions sessionReader,
	exams examStore,
	supervisors supervisorStore,
	professors professorStore,
	modules moduleDeptReader,
	tx txProvider,
	cache cacheInvalidator,
	metrics *MetricsService,
	cfg config.SchedulerConfig,
	logger *zap.Logger,
) *SupervisorService {
	perSuperv := cfg.StudentsPerSupervisor
	if perSuperv <= 0 {
		perSuperv = 30
	}
	defaultDaily := cfg.DefaultMaxExamsPerDay
	if defaultDaily <= 0 {
		defaultDaily = 3
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SupervisorService{
		sessions:     sessions,
		exams:        exams,
		supervisors:  supervisors,
		professors:   professors,
		modules:      modules,
		tx:           tx,
		cache:        cache,
		metrics:      metrics,
		perSuperv:    perSuperv,
		defaultDaily: defaultDaily,
		logger:       logger,
	}
}

// professorState is the in-memory view of one professor during a pass.
type professorState struct {
	models.Professor
	runningCount int
	dailyExams   map[string]int
	busy         map[string][]interval
}

func (p *professorState) dailyCap() int {
	if p.MaxExamsPerDay > 0 {
		return p.MaxExamsPerDay
	}
	return 0
}

// Assign staffs every scheduled exam of the session with
// max(1, ceil(expected/studentsPerSupervisor)) professors. A shortage
// is reported per exam, never fatal; partial staffing still counts.
func (s *SupervisorService) Assign(ctx context.Context, sessionID string) (*dto.SupervisorRunResult, error) {
	started := time.Now()

	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status == models.SessionStatusCompleted {
		return nil, appErrors.Clone(appErrors.ErrSessionState, "cannot assign supervisors on a completed session")
	}

	exams, err := s.exams.ListBySessionAndStatus(ctx, sessionID, models.ExamStatusScheduled)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load scheduled exams")
	}
	professors, err := s.professors.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load professors")
	}
	existing, err := s.supervisors.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignments")
	}
	moduleDepts, err := s.modules.MapDepartmentsByModule(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load module departments")
	}

	pool := make([]*professorState, 0, len(professors))
	byID := make(map[string]*professorState, len(professors))
	for i := range professors {
		state := &professorState{
			Professor:  professors[i],
			dailyExams: make(map[string]int),
			busy:       make(map[string][]interval),
		}
		pool = append(pool, state)
		byID[state.ID] = state
	}

	assignedOnExam := make(map[string]map[string]struct{})
	for _, detail := range existing {
		onExam, ok := assignedOnExam[detail.ExamID]
		if !ok {
			onExam = make(map[string]struct{})
			assignedOnExam[detail.ExamID] = onExam
		}
		onExam[detail.ProfessorID] = struct{}{}

		state, ok := byID[detail.ProfessorID]
		if !ok || detail.ScheduledDate == nil || detail.StartTime == nil {
			continue
		}
		start, err := parseClock(*detail.StartTime)
		if err != nil {
			continue
		}
		key := dateKey(*detail.ScheduledDate)
		state.dailyExams[key]++
		state.busy[key] = append(state.busy[key], interval{start: start, end: start + detail.DurationMinutes})
	}

	// Chronological pass keeps repeated runs stable: date asc, start
	// time asc, module ID as the final tie-break.
	sort.SliceStable(exams, func(i, j int) bool {
		a, b := exams[i], exams[j]
		if !a.ScheduledDate.Equal(*b.ScheduledDate) {
			return a.ScheduledDate.Before(*b.ScheduledDate)
		}
		if *a.StartTime != *b.StartTime {
			return *a.StartTime < *b.StartTime
		}
		return a.ModuleID < b.ModuleID
	})

	result := &dto.SupervisorRunResult{}
	var newAssignments []models.SupervisorAssignment
	deltas := make(map[string]int)
	usedProfessors := make(map[string]struct{})

	for i := range exams {
		exam := exams[i]
		if exam.ScheduledDate == nil || exam.StartTime == nil {
			continue
		}
		result.ExamsProcessed++

		needed := s.supervisorsNeeded(exam.ExpectedStudents)
		already := len(assignedOnExam[exam.ID])
		if already >= needed {
			continue
		}

		start, err := parseClock(*exam.StartTime)
		if err != nil {
			continue
		}
		end := start + exam.DurationMinutes
		key := dateKey(*exam.ScheduledDate)
		department := moduleDepts[exam.ModuleID]

		candidates := s.eligible(pool, assignedOnExam[exam.ID], key, start, end)
		s.rank(candidates, department)

		missing := needed - already
		for _, state := range candidates {
			if missing == 0 {
				break
			}
			role := models.SupervisorRoleSupervisor
			if already == 0 && len(assignedOnExam[exam.ID]) == 0 {
				role = models.SupervisorRoleResponsible
			}
			newAssignments = append(newAssignments, models.SupervisorAssignment{
				ID:               uuid.NewString(),
				ExamID:           exam.ID,
				ProfessorID:      state.ID,
				Role:             role,
				IsDepartmentExam: department != "" && state.DepartmentID == department,
			})
			onExam, ok := assignedOnExam[exam.ID]
			if !ok {
				onExam = make(map[string]struct{})
				assignedOnExam[exam.ID] = onExam
			}
			onExam[state.ID] = struct{}{}

			state.runningCount++
			state.dailyExams[key]++
			state.busy[key] = append(state.busy[key], interval{start: start, end: end})
			deltas[state.ID]++
			usedProfessors[state.ID] = struct{}{}
			result.AssignmentsMade++
			missing--
		}

		if missing > 0 {
			result.Shortfalls = append(result.Shortfalls, dto.SupervisorShortfall{
				ExamID:   exam.ID,
				Needed:   needed,
				Assigned: needed - missing,
			})
		}
	}

	if len(newAssignments) > 0 {
		tx, err := s.tx.BeginTxx(ctx, nil)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
		}
		if err := s.supervisors.BulkInsert(ctx, tx, newAssignments); err != nil {
			_ = tx.Rollback()
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist assignments")
		}
		if err := s.professors.AdjustSupervisionCounts(ctx, tx, deltas); err != nil {
			_ = tx.Rollback()
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to adjust supervision counts")
		}
		if err := tx.Commit(); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit assignments")
		}
	}

	result.ProfessorsUsed = len(usedProfessors)
	if result.ProfessorsUsed > 0 {
		result.AvgSupervisions = float64(result.AssignmentsMade) / float64(result.ProfessorsUsed)
	}
	result.ExecutionMs = time.Since(started).Milliseconds()

	s.invalidate(ctx, sessionID)
	s.metrics.ObserveSupervisorRun(result.AssignmentsMade)
	s.logger.Info("supervisor assignment finished",
		zap.String("session_id", sessionID),
		zap.Int("exams", result.ExamsProcessed),
		zap.Int("assignments", result.AssignmentsMade),
		zap.Int("shortfalls", len(result.Shortfalls)),
	)
	return result, nil
}

func (s *SupervisorService) supervisorsNeeded(expectedStudents int) int {
	needed := (expectedStudents + s.perSuperv - 1) / s.perSuperv
	if needed < 1 {
		needed = 1
	}
	return needed
}

// eligible filters the pool to professors free at the exam's interval,
// under their daily cap and not already on the exam.
func (s *SupervisorService) eligible(pool []*professorState, onExam map[string]struct{}, key string, start, end int) []*professorState {
	var candidates []*professorState
	for _, state := range pool {
		if _, taken := onExam[state.ID]; taken {
			continue
		}
		limit := state.dailyCap()
		if limit == 0 {
			limit = s.defaultDaily
		}
		if state.dailyExams[key] >= limit {
			continue
		}
		overlaps := false
		for _, busy := range state.busy[key] {
			if intervalsOverlap(start, end, busy.start, busy.end) {
				overlaps = true
				break
			}
		}
		if overlaps {
			continue
		}
		candidates = append(candidates, state)
	}
	return candidates
}

// rank orders candidates same-department first, then by total
// supervision load ascending. The sort is stable so professor list
// order settles any remaining tie.
func (s *SupervisorService) rank(candidates []*professorState, department string) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		aDept := department != "" && a.DepartmentID == department
		bDept := department != "" && b.DepartmentID == department
		if aDept != bDept {
			return aDept
		}
		return a.SupervisionCount+a.runningCount < b.SupervisionCount+b.runningCount
	})
}

func (s *SupervisorService) loadSession(ctx context.Context, sessionID string) (*models.Session, error) {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	return session, nil
}

func (s *SupervisorService) invalidate(ctx context.Context, sessionID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "session:"+sessionID+":*"); err != nil {
		s.logger.Warn("cache invalidation failed", zap.String("session_id", sessionID), zap.Error(err))
	}
}
