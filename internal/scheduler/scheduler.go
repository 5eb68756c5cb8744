// Package scheduler re-runs cacheable query definitions on a cron schedule so
// dashboard loads hit a warm cache.
package scheduler

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"

	"chartly/internal/domain"
	"chartly/internal/service/pipeline"
)

// Scheduler manages cron-based cache warming.
type Scheduler struct {
	cron    *cron.Cron
	engine  *pipeline.Engine
	queries domain.QueryRepository
	logger  *slog.Logger
}

// New creates a cache-warming Scheduler.
func New(engine *pipeline.Engine, queries domain.QueryRepository, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		engine:  engine,
		queries: queries,
		logger:  logger,
	}
}

// Start registers the warm job under the given cron spec and starts the
// scheduler. An empty spec disables warming.
func (s *Scheduler) Start(spec string) error {
	if spec == "" {
		s.logger.Info("cache warming disabled")
		return nil
	}
	if _, err := s.cron.AddFunc(spec, func() { s.Warm(context.Background()) }); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("cache warming scheduler started", "spec", spec)
	return nil
}

// Stop gracefully stops the cron scheduler.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.logger.Info("cache warming scheduler stopped")
}

// Warm executes every cacheable definition once. Runs without a user context,
// which the permission evaluator treats as an internal, authorized path.
// Individual failures are logged and do not stop the sweep.
func (s *Scheduler) Warm(ctx context.Context) {
	defs, err := s.queries.ListCacheable(ctx)
	if err != nil {
		s.logger.Error("list cacheable queries", "error", err)
		return
	}
	for _, def := range defs {
		if _, err := s.engine.Run(ctx, pipeline.Request{QueryID: def.ID}); err != nil {
			s.logger.Warn("warm query failed", "query_id", def.ID, "error", err)
		}
	}
}
