package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/univ-exams/exam-planner-api/internal/dto"
	"github.com/univ-exams/exam-planner-api/pkg/config"
	appErrors "github.com/univ-exams/exam-planner-api/pkg/errors"
)

type statsReader interface {
	StatsBySession(ctx context.Context, sessionID string) (*dto.SessionStats, error)
}

// StatsService serves scheduling progress numbers for dashboards. The
// aggregates come straight from the database and are cached briefly;
// mutating runs invalidate the session's keys.
type StatsService struct {
	sessions sessionReader
	stats    statsReader
	cache    reportCache
	metrics  *MetricsService
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewStatsService wires the stats dependencies.
func NewStatsService(sessions sessionReader, stats statsReader, cache reportCache, metrics *MetricsService, cfg config.SchedulerConfig, logger *zap.Logger) *StatsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatsService{
		sessions: sessions,
		stats:    stats,
		cache:    cache,
		metrics:  metrics,
		cacheTTL: cfg.StatsCacheTTL,
		logger:   logger,
	}
}

// SessionStats returns the aggregate counters for one session.
func (s *StatsService) SessionStats(ctx context.Context, sessionID string) (*dto.SessionStats, error) {
	cacheKey := "session:" + sessionID + ":stats"
	if s.cache != nil {
		var cached dto.SessionStats
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

	stats, err := s.stats.StatsBySession(ctx, sessionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session stats")
	}

	if s.cache != nil && s.cacheTTL > 0 {
		if err := s.cache.Set(ctx, cacheKey, stats, s.cacheTTL); err != nil {
			s.logger.Warn("stats cache write failed", zap.String("session_id", sessionID), zap.Error(err))
		}
	}
	return stats, nil
}
