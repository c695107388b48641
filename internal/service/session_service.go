package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/univ-exams/exam-planner-api/internal/models"
	appErrors "github.com/univ-exams/exam-planner-api/pkg/errors"
)

type sessionStore interface {
	FindByID(ctx context.Context, id string) (*models.Session, error)
	List(ctx context.Context, academicYear string) ([]models.Session, error)
	Create(ctx context.Context, session *models.Session) error
	UpdateStatus(ctx context.Context, id string, status models.SessionStatus) error
}

// CreateSessionRequest is the payload for opening an exam session.
type CreateSessionRequest struct {
	Name         string    `json:"name" validate:"required,min=3,max=120"`
	SessionType  string    `json:"session_type" validate:"required,oneof=normal retake"`
	StartDate    time.Time `json:"start_date" validate:"required"`
	EndDate      time.Time `json:"end_date" validate:"required"`
	AcademicYear string    `json:"academic_year" validate:"required"`
}

// SessionService manages the exam session lifecycle.
type SessionService struct {
	sessions  sessionStore
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSessionService constructs a SessionService.
func NewSessionService(sessions sessionStore, validate *validator.Validate, logger *zap.Logger) *SessionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{sessions: sessions, validator: validate, logger: logger}
}

// List returns sessions, optionally filtered by academic year.
func (s *SessionService) List(ctx context.Context, academicYear string) ([]models.Session, error) {
	sessions, err := s.sessions.List(ctx, academicYear)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sessions")
	}
	return sessions, nil
}

// Get returns one session.
func (s *SessionService) Get(ctx context.Context, id string) (*models.Session, error) {
	session, err := s.sessions.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	return session, nil
}

// Create opens a new draft session after validating the date range.
func (s *SessionService) Create(ctx context.Context, req CreateSessionRequest) (*models.Session, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session payload")
	}
	if req.EndDate.Before(req.StartDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end date precedes start date")
	}

	session := &models.Session{
		Name:         req.Name,
		SessionType:  req.SessionType,
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
		AcademicYear: req.AcademicYear,
		Status:       models.SessionStatusDraft,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create session")
	}
	s.logger.Info("session created", zap.String("session_id", session.ID), zap.String("name", session.Name))
	return session, nil
}

// UpdateStatus moves a session through its lifecycle. Completed is a
// terminal state.
func (s *SessionService) UpdateStatus(ctx context.Context, id string, status models.SessionStatus) (*models.Session, error) {
	switch status {
	case models.SessionStatusDraft, models.SessionStatusPublished, models.SessionStatusInProgress, models.SessionStatusCompleted:
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown session status")
	}

	session, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.Status == models.SessionStatusCompleted && status != models.SessionStatusCompleted {
		return nil, appErrors.Clone(appErrors.ErrSessionState, "completed sessions cannot be reopened")
	}

	if err := s.sessions.UpdateStatus(ctx, id, status); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update session status")
	}
	session.Status = status
	return session, nil
}
