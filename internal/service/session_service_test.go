package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/univ-exams/exam-planner-api/internal/models"
	appErrors "github.com/univ-exams/exam-planner-api/pkg/errors"
)

type sessionStoreStub struct {
	sessionReaderStub
	created    []*models.Session
	statusSets map[string]models.SessionStatus
}

func (s *sessionStoreStub) List(_ context.Context, _ string) ([]models.Session, error) {
	if s.session == nil {
		return nil, nil
	}
	return []models.Session{*s.session}, nil
}

func (s *sessionStoreStub) Create(_ context.Context, session *models.Session) error {
	session.ID = "generated-id"
	s.created = append(s.created, session)
	return nil
}

func (s *sessionStoreStub) UpdateStatus(_ context.Context, id string, status models.SessionStatus) error {
	if s.statusSets == nil {
		s.statusSets = make(map[string]models.SessionStatus)
	}
	s.statusSets[id] = status
	return nil
}

func TestSessionServiceCreateValidates(t *testing.T) {
	store := &sessionStoreStub{}
	svc := NewSessionService(store, nil, nil)

	_, err := svc.Create(context.Background(), CreateSessionRequest{Name: "x"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, store.created)
}

func TestSessionServiceCreateRejectsInvertedRange(t *testing.T) {
	store := &sessionStoreStub{}
	svc := NewSessionService(store, nil, nil)

	_, err := svc.Create(context.Background(), CreateSessionRequest{
		Name:         "January 2026",
		SessionType:  "normal",
		StartDate:    day(2026, time.January, 20),
		EndDate:      day(2026, time.January, 5),
		AcademicYear: "2025-2026",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSessionServiceCreateSuccess(t *testing.T) {
	store := &sessionStoreStub{}
	svc := NewSessionService(store, nil, nil)

	session, err := svc.Create(context.Background(), CreateSessionRequest{
		Name:         "January 2026",
		SessionType:  "normal",
		StartDate:    day(2026, time.January, 5),
		EndDate:      day(2026, time.January, 20),
		AcademicYear: "2025-2026",
	})
	require.NoError(t, err)
	assert.Equal(t, "generated-id", session.ID)
	assert.Equal(t, models.SessionStatusDraft, session.Status)
	require.Len(t, store.created, 1)
}

func TestSessionServiceCompletedIsTerminal(t *testing.T) {
	session := testSession(models.SessionStatusCompleted, day(2026, time.January, 5), day(2026, time.January, 20))
	store := &sessionStoreStub{sessionReaderStub: sessionReaderStub{session: session}}
	svc := NewSessionService(store, nil, nil)

	_, err := svc.UpdateStatus(context.Background(), "sess-1", models.SessionStatusDraft)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrSessionState.Code, appErrors.FromError(err).Code)
	assert.Empty(t, store.statusSets)
}

func TestSessionServiceUpdateStatus(t *testing.T) {
	session := testSession(models.SessionStatusDraft, day(2026, time.January, 5), day(2026, time.January, 20))
	store := &sessionStoreStub{sessionReaderStub: sessionReaderStub{session: session}}
	svc := NewSessionService(store, nil, nil)

	updated, err := svc.UpdateStatus(context.Background(), "sess-1", models.SessionStatusPublished)
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusPublished, updated.Status)
	assert.Equal(t, models.SessionStatusPublished, store.statusSets["sess-1"])

	_, err = svc.UpdateStatus(context.Background(), "sess-1", models.SessionStatus("bogus"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
