package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/univ-exams/exam-planner-api/internal/dto"
	"github.com/univ-exams/exam-planner-api/internal/models"
	"github.com/univ-exams/exam-planner-api/pkg/config"
	appErrors "github.com/univ-exams/exam-planner-api/pkg/errors"
)

type examDetailReader interface {
	ListDetailsBySession(ctx context.Context, sessionID string) ([]models.ExamDetail, error)
}

type reportCache interface {
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

// ConflictService audits a session's committed schedule against the
// hard constraints. It is read-only diagnosis; it never mutates exams
// or assignments.
type ConflictService struct {
	sessions     sessionReader
	examDetails  examDetailReader
	enrollments  enrollmentReader
	supervisors  supervisorStore
	cache        reportCache
	metrics      *MetricsService
	cacheTTL     time.Duration
	defaultDaily int
	logger       *zap.Logger
}

// NewConflictService wires the detector dependencies.
func NewConflictService(
	sessions sessionReader,
	examDetails examDetailReader,
	enrollments enrollmentReader,
	supervisors supervisorStore,
	cache reportCache,
	metrics *MetricsService,
	cfg config.SchedulerConfig,
	logger *zap.Logger,
) *ConflictService {
	defaultDaily := cfg.DefaultMaxExamsPerDay
	if defaultDaily <= 0 {
		defaultDaily = 3
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConflictService{
		sessions:     sessions,
		examDetails:  examDetails,
		enrollments:  enrollments,
		supervisors:  supervisors,
		cache:        cache,
		metrics:      metrics,
		cacheTTL:     cfg.ConflictCacheTTL,
		defaultDaily: defaultDaily,
		logger:       logger,
	}
}

// scheduledExam is one exam with its clock already parsed.
type scheduledExam struct {
	models.ExamDetail
	date  string
	start int
	end   int
}

// Report runs every check over a fresh snapshot of the session. The
// result is cached until the next mutating run invalidates it.
func (s *ConflictService) Report(ctx context.Context, sessionID string) (*dto.ConflictReport, error) {
	cacheKey := "session:" + sessionID + ":conflicts"
	if s.cache != nil {
		var cached dto.ConflictReport
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			s.metrics.RecordCacheOperation(true)
			return &cached, nil
		}
		s.metrics.RecordCacheOperation(false)
	}

	if _, err := s.sessions.FindByID(ctx, sessionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}

	details, err := s.examDetails.ListDetailsBySession(ctx, sessionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exams")
	}
	moduleStudents, err := s.enrollments.MapStudentsByModule(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollments")
	}
	supervisions, err := s.supervisors.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignments")
	}

	scheduled := make([]scheduledExam, 0, len(details))
	for _, detail := range details {
		if detail.Status != models.ExamStatusScheduled || detail.ScheduledDate == nil || detail.StartTime == nil {
			continue
		}
		start, err := parseClock(*detail.StartTime)
		if err != nil {
			continue
		}
		scheduled = append(scheduled, scheduledExam{
			ExamDetail: detail,
			date:       dateKey(*detail.ScheduledDate),
			start:      start,
			end:        start + detail.DurationMinutes,
		})
	}

	report := &dto.ConflictReport{
		SessionID:   sessionID,
		GeneratedAt: time.Now().UTC(),
		Conflicts:   []dto.Conflict{},
	}
	report.Conflicts = append(report.Conflicts, s.studentDayConflicts(scheduled, moduleStudents)...)
	report.Conflicts = append(report.Conflicts, s.professorConflicts(supervisions)...)
	report.Conflicts = append(report.Conflicts, s.roomConflicts(scheduled)...)
	report.Conflicts = append(report.Conflicts, s.capacityConflicts(scheduled)...)
	report.Summary = summarize(report.Conflicts)

	if s.cache != nil && s.cacheTTL > 0 {
		if err := s.cache.Set(ctx, cacheKey, report, s.cacheTTL); err != nil {
			s.logger.Warn("conflict report cache write failed", zap.String("session_id", sessionID), zap.Error(err))
		}
	}
	s.metrics.RecordConflicts(sessionID, report.Summary.BySeverity)
	s.logger.Info("conflict report generated",
		zap.String("session_id", sessionID),
		zap.Int("exams", len(scheduled)),
		zap.Int("conflicts", report.Summary.Total),
	)
	return report, nil
}

// studentDayConflicts flags students sitting more than one exam on the
// same calendar day. The check is date-granular on purpose: two exams
// on one day are a violation even when their times do not overlap.
func (s *ConflictService) studentDayConflicts(scheduled []scheduledExam, moduleStudents map[string][]string) []dto.Conflict {
	type studentDay struct {
		student string
		date    string
	}
	counts := make(map[studentDay]int)
	for _, exam := range scheduled {
		for _, student := range moduleStudents[exam.ModuleID] {
			counts[studentDay{student: student, date: exam.date}]++
		}
	}

	keys := make([]studentDay, 0, len(counts))
	for key, count := range counts {
		if count > 1 {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].date != keys[j].date {
			return keys[i].date < keys[j].date
		}
		return keys[i].student < keys[j].student
	})

	conflicts := make([]dto.Conflict, 0, len(keys))
	for _, key := range keys {
		severity := dto.SeverityHigh
		if counts[key] > 2 {
			severity = dto.SeverityCritical
		}
		conflicts = append(conflicts, dto.Conflict{
			Type:     dto.ConflictStudentDay,
			Severity: severity,
			Item:     key.student,
			Detail:   fmt.Sprintf("%d exams on %s", counts[key], key.date),
		})
	}
	return conflicts
}

// professorConflicts flags professors over their daily cap and pairs of
// assignments whose exam intervals overlap.
func (s *ConflictService) professorConflicts(supervisions []models.SupervisionDetail) []dto.Conflict {
	type profDay struct {
		professor string
		date      string
	}
	perDay := make(map[profDay][]models.SupervisionDetail)
	var order []profDay
	for _, detail := range supervisions {
		if detail.ScheduledDate == nil || detail.StartTime == nil {
			continue
		}
		key := profDay{professor: detail.ProfessorID, date: dateKey(*detail.ScheduledDate)}
		if _, seen := perDay[key]; !seen {
			order = append(order, key)
		}
		perDay[key] = append(perDay[key], detail)
	}
	sort.Slice(order, func(i, j int) bool {
		if order[i].date != order[j].date {
			return order[i].date < order[j].date
		}
		return order[i].professor < order[j].professor
	})

	var conflicts []dto.Conflict
	for _, key := range order {
		duties := perDay[key]

		limit := duties[0].MaxExamsPerDay
		if limit <= 0 {
			limit = s.defaultDaily
		}
		if len(duties) > limit {
			conflicts = append(conflicts, dto.Conflict{
				Type:     dto.ConflictProfessorLoad,
				Severity: dto.SeverityWarning,
				Item:     duties[0].ProfessorName(),
				Detail:   fmt.Sprintf("%d supervisions on %s, cap is %d", len(duties), key.date, limit),
			})
		}

		for i := 0; i < len(duties); i++ {
			for j := i + 1; j < len(duties); j++ {
				a, b := duties[i], duties[j]
				aStart, errA := parseClock(*a.StartTime)
				bStart, errB := parseClock(*b.StartTime)
				if errA != nil || errB != nil {
					continue
				}
				if intervalsOverlap(aStart, aStart+a.DurationMinutes, bStart, bStart+b.DurationMinutes) {
					conflicts = append(conflicts, dto.Conflict{
						Type:     dto.ConflictProfessorTime,
						Severity: dto.SeverityCritical,
						Item:     a.ProfessorName(),
						Detail:   fmt.Sprintf("%s and %s overlap on %s", a.ModuleName, b.ModuleName, key.date),
					})
				}
			}
		}
	}
	return conflicts
}

// roomConflicts flags rooms hosting two exams whose intervals overlap
// on the same day.
func (s *ConflictService) roomConflicts(scheduled []scheduledExam) []dto.Conflict {
	type roomDay struct {
		room string
		date string
	}
	perDay := make(map[roomDay][]scheduledExam)
	var order []roomDay
	for _, exam := range scheduled {
		if exam.RoomID == nil {
			continue
		}
		key := roomDay{room: *exam.RoomID, date: exam.date}
		if _, seen := perDay[key]; !seen {
			order = append(order, key)
		}
		perDay[key] = append(perDay[key], exam)
	}
	sort.Slice(order, func(i, j int) bool {
		if order[i].date != order[j].date {
			return order[i].date < order[j].date
		}
		return order[i].room < order[j].room
	})

	var conflicts []dto.Conflict
	for _, key := range order {
		exams := perDay[key]
		for i := 0; i < len(exams); i++ {
			for j := i + 1; j < len(exams); j++ {
				a, b := exams[i], exams[j]
				if intervalsOverlap(a.start, a.end, b.start, b.end) {
					conflicts = append(conflicts, dto.Conflict{
						Type:     dto.ConflictRoomDoubleBook,
						Severity: dto.SeverityCritical,
						Item:     a.RoomName,
						Detail:   fmt.Sprintf("%s and %s overlap on %s", a.ModuleName, b.ModuleName, key.date),
					})
				}
			}
		}
	}
	return conflicts
}

// capacityConflicts flags exams expecting more students than their room
// seats, worst overflow first. Overcrowding blocks the exam from
// running, so it ranks high; a daily overload is a staffing smell,
// not a broken timetable.
func (s *ConflictService) capacityConflicts(scheduled []scheduledExam) []dto.Conflict {
	var overflowing []scheduledExam
	for _, exam := range scheduled {
		if exam.ExpectedStudents > exam.RoomCapacity {
			overflowing = append(overflowing, exam)
		}
	}
	sort.SliceStable(overflowing, func(i, j int) bool {
		oi := overflowing[i].ExpectedStudents - overflowing[i].RoomCapacity
		oj := overflowing[j].ExpectedStudents - overflowing[j].RoomCapacity
		if oi != oj {
			return oi > oj
		}
		return overflowing[i].ModuleID < overflowing[j].ModuleID
	})

	conflicts := make([]dto.Conflict, 0, len(overflowing))
	for _, exam := range overflowing {
		overflow := exam.ExpectedStudents - exam.RoomCapacity
		conflicts = append(conflicts, dto.Conflict{
			Type:     dto.ConflictRoomCapacity,
			Severity: dto.SeverityHigh,
			Item:     exam.ModuleName,
			Detail:   fmt.Sprintf("%d students in %s (%d seats)", exam.ExpectedStudents, exam.RoomName, exam.RoomCapacity),
			Overflow: overflow,
		})
	}
	return conflicts
}

func summarize(conflicts []dto.Conflict) dto.ConflictSummary {
	summary := dto.ConflictSummary{
		Total:      len(conflicts),
		BySeverity: make(map[string]int),
		ByType:     make(map[string]int),
	}
	for _, conflict := range conflicts {
		summary.BySeverity[conflict.Severity]++
		summary.ByType[conflict.Type]++
	}
	return summary
}
