package app

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ClassJobs is the background work the scheduler drives.
type ClassJobs interface {
	CompleteEndedClasses(ctx context.Context) (int64, error)
	MaterializeUpcoming(ctx context.Context, lookahead time.Duration) (int64, error)
}

type ScheduleConfig struct {
	CloseClassesSpec string
	RosterSpec       string
	RosterLookahead  time.Duration
	Location         *time.Location
}

// Scheduler runs class housekeeping on cron schedules.
type Scheduler struct {
	cron   *cron.Cron
	jobs   ClassJobs
	cfg    ScheduleConfig
	logger *zap.Logger
	ctx    context.Context
}

func NewScheduler(jobs ClassJobs, cfg ScheduleConfig, logger *zap.Logger) *Scheduler {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithChain(cron.Recover(cron.DiscardLogger), cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		jobs:   jobs,
		cfg:    cfg,
		logger: logger,
	}
}

// Start registers the jobs, runs each once immediately and starts the cron loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.ctx = ctx
	s.logger.Info("Starting background scheduler")

	if _, err := s.cron.AddFunc(s.cfg.CloseClassesSpec, func() { s.completeClasses(s.ctx) }); err != nil {
		return fmt.Errorf("schedule class completion: %w", err)
	}
	if _, err := s.cron.AddFunc(s.cfg.RosterSpec, func() { s.materializeRosters(s.ctx) }); err != nil {
		return fmt.Errorf("schedule roster materialization: %w", err)
	}

	s.completeClasses(ctx)
	s.materializeRosters(ctx)

	s.cron.Start()
	return nil
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping background scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) completeClasses(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	n, err := s.jobs.CompleteEndedClasses(ctx)
	if err != nil {
		s.logger.Error("Failed to complete ended classes", zap.Error(err))
		return
	}
	s.logger.Debug("Class completion finished", zap.Int64("completed", n))
}

func (s *Scheduler) materializeRosters(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	n, err := s.jobs.MaterializeUpcoming(ctx, s.cfg.RosterLookahead)
	if err != nil {
		s.logger.Error("Failed to materialize upcoming rosters", zap.Error(err))
		return
	}
	s.logger.Debug("Roster materialization finished", zap.Int64("inserted", n))
}
