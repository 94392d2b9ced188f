// Package scheduler drives periodic upkeep checks against the raffle engine.
package scheduler

import (
	"context"
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/R3E-Network/charity-raffle/pkg/logger"
	"github.com/R3E-Network/charity-raffle/raffle"
)

// Scheduler runs the closure guard on a cron schedule and performs upkeep
// when the guard passes.
type Scheduler struct {
	engine *raffle.Engine
	cron   *cron.Cron
	log    *logger.Logger
}

// New creates a scheduler with the given cron expression, e.g. "@every 30s".
func New(engine *raffle.Engine, schedule string, log *logger.Logger) (*Scheduler, error) {
	if log == nil {
		log = logger.NewDefault("scheduler")
	}
	s := &Scheduler{
		engine: engine,
		cron:   cron.New(),
		log:    log,
	}
	if _, err := s.cron.AddFunc(schedule, s.tick); err != nil {
		return nil, fmt.Errorf("invalid upkeep schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start begins ticking in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("upkeep scheduler started")
}

// Stop halts ticking and waits for a running tick to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info("upkeep scheduler stopped")
}

func (s *Scheduler) tick() {
	ctx := context.Background()

	status, err := s.engine.CheckUpkeep(ctx)
	if err != nil {
		s.log.WithError(err).Warn("upkeep check failed")
		return
	}
	if !status.Needed {
		return
	}

	requestID, err := s.engine.PerformUpkeep(ctx)
	if err != nil {
		// another caller may have closed the raffle between check and perform
		if errors.Is(err, raffle.ErrUpkeepNotNeeded) {
			return
		}
		s.log.WithError(err).Warn("upkeep failed")
		return
	}
	s.log.WithField("request_id", requestID).Info("upkeep performed")
}
