package usecase

import (
	"context"
	"log/slog"
	"time"

	"ShortsFactory/internal/ports"
)

// Scheduler wires the daily driver with the pipeline use case.
type Scheduler struct {
	driver   ports.Scheduler
	pipeline *Pipeline
	loc      *time.Location
	template RunRequest
	logger   *slog.Logger
}

// NewScheduler returns a helper to start/stop the daily run. Each trigger
// runs template for the trigger's date in loc.
func NewScheduler(driver ports.Scheduler, pipeline *Pipeline, loc *time.Location, template RunRequest, logger *slog.Logger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	if logger != nil {
		logger = logger.With("component", "scheduler")
	}
	return &Scheduler{driver: driver, pipeline: pipeline, loc: loc, template: template, logger: logger}
}

// Start registers the pipeline with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.pipeline == nil {
		return nil
	}

	job := func(trigger time.Time) {
		s.runFor(ctx, trigger)
	}

	return s.driver.Start(ctx, job)
}

func (s *Scheduler) runFor(ctx context.Context, trigger time.Time) Report {
	req := s.template
	req.Date = trigger.In(s.loc).Format(time.DateOnly)
	rep, err := s.pipeline.Run(ctx, req)
	if s.logger == nil {
		return rep
	}
	if err != nil {
		s.logger.Error("scheduled run failed", "date", req.Date, "error", err)
	} else {
		s.logger.Info("scheduled run finished", "date", req.Date, "url", rep.URL)
	}
	return rep
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
