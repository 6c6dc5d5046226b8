// Package scheduler runs the periodic jobs: the SLA breach sweep,
// time-based rule evaluation, and deferred action dispatch.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ticketflow-io/ticketflow/internal/config"
)

// Service wires the periodic jobs onto a cron runner.
type Service struct {
	cron    *cron.Cron
	jobs    *Jobs
	cfg     config.SchedulerConfig
	logger  *log.Logger
	rootCtx context.Context

	startOnce sync.Once
	stopOnce  sync.Once
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithServiceLogger overrides the default logger.
func WithServiceLogger(logger *log.Logger) ServiceOption {
	return func(s *Service) { s.logger = logger }
}

// WithRootContext sets the context handed to every job run.
func WithRootContext(ctx context.Context) ServiceOption {
	return func(s *Service) { s.rootCtx = ctx }
}

// NewService creates a scheduler around the given jobs.
func NewService(jobs *Jobs, cfg config.SchedulerConfig, opts ...ServiceOption) *Service {
	s := &Service{
		cron:    cron.New(),
		jobs:    jobs,
		cfg:     cfg,
		logger:  log.Default(),
		rootCtx: context.Background(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start registers the jobs and begins running them. Idempotent.
func (s *Service) Start() error {
	var err error
	s.startOnce.Do(func() {
		entries := []struct {
			name string
			spec string
			run  func(context.Context) error
		}{
			{"breach_sweep", s.cfg.BreachSweepSpec, s.jobs.BreachSweep},
			{"time_based_rules", s.cfg.TimeBasedSpec, s.jobs.TimeBasedRules},
			{"deferred_dispatch", s.cfg.DeferredSpec, s.jobs.DispatchDeferred},
		}
		for _, entry := range entries {
			if entry.spec == "" {
				continue
			}
			name, run := entry.name, entry.run
			if _, addErr := s.cron.AddFunc(entry.spec, func() {
				if jobErr := run(s.rootCtx); jobErr != nil {
					s.logger.Printf("scheduler: job %s failed: %v", name, jobErr)
				}
			}); addErr != nil {
				err = fmt.Errorf("failed to schedule %s (%q): %w", entry.name, entry.spec, addErr)
				return
			}
		}
		s.cron.Start()
		s.logger.Printf("scheduler: started with sweep=%q time_based=%q deferred=%q",
			s.cfg.BreachSweepSpec, s.cfg.TimeBasedSpec, s.cfg.DeferredSpec)
	})
	return err
}

// Stop halts scheduling and waits for running jobs, bounded by ctx.
func (s *Service) Stop(ctx context.Context) {
	s.stopOnce.Do(func() {
		done := s.cron.Stop().Done()
		select {
		case <-done:
		case <-ctx.Done():
			s.logger.Printf("scheduler: shutdown timed out after %v", s.cfg.ShutdownTimeout)
		}
	})
}

// RunOnce executes every job a single time, for operational triggers.
func (s *Service) RunOnce(ctx context.Context) error {
	if err := s.jobs.BreachSweep(ctx); err != nil {
		return err
	}
	if err := s.jobs.TimeBasedRules(ctx); err != nil {
		return err
	}
	return s.jobs.DispatchDeferred(ctx)
}

// NextRuns reports upcoming job times, exposed through the ops surface.
func (s *Service) NextRuns() []time.Time {
	entries := s.cron.Entries()
	next := make([]time.Time, 0, len(entries))
	for _, e := range entries {
		next = append(next, e.Next)
	}
	return next
}
