package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// Sweeper periodically reconciles event statuses against the clock, catching
// the events nobody happened to read around their start or end dates.
type Sweeper struct {
	events    *EventService
	scheduler gocron.Scheduler
	interval  time.Duration
	logger    *zap.Logger
}

func NewSweeper(events *EventService, interval time.Duration, logger *zap.Logger) (*Sweeper, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("gocron.NewScheduler -> %w", err)
	}

	return &Sweeper{
		events:    events,
		scheduler: scheduler,
		interval:  interval,
		logger:    logger,
	}, nil
}

func (s *Sweeper) Start() error {
	_, err := s.scheduler.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(s.run),
	)
	if err != nil {
		return fmt.Errorf("s.scheduler.NewJob -> %w", err)
	}

	s.scheduler.Start()
	s.logger.Info("status sweeper started", zap.Duration("interval", s.interval))

	return nil
}

func (s *Sweeper) Stop() error {
	return s.scheduler.Shutdown()
}

func (s *Sweeper) run() {
	started, completed, err := s.events.SweepStatuses(context.Background())
	if err != nil {
		s.logger.Error("status sweep failed", zap.Error(err))
		return
	}

	if len(started) > 0 || len(completed) > 0 {
		s.logger.Info("status sweep applied transitions",
			zap.Uints("started", started),
			zap.Uints("completed", completed))
	}
}
