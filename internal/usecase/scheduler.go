package usecase

import (
	"context"
	"time"

	"NewsHarvester/internal/ports"
)

// Scheduler wires the cron-like driver with the harvest coordinator.
type Scheduler struct {
	driver   ports.Scheduler
	ingestor *Ingestor
}

// NewScheduler returns a helper to start/stop recurring harvest runs.
func NewScheduler(driver ports.Scheduler, ingestor *Ingestor) *Scheduler {
	return &Scheduler{driver: driver, ingestor: ingestor}
}

// Start registers the harvest run with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.ingestor == nil {
		return nil
	}

	job := func(trigger time.Time) {
		s.ingestor.Run(ctx, trigger)
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
