package main

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"doom-index/internal/orchestrator"
	"doom-index/internal/server"
)

// cycleRunner runs one generation cycle.
type cycleRunner interface {
	Run(ctx context.Context) (*orchestrator.Result, error)
}

// scheduler runs cycles on a ticker. A tick that arrives while a cycle is
// still running is dropped.
type scheduler struct {
	runner     cycleRunner
	tracker    *server.Tracker
	interval   time.Duration
	runOnStart bool
	logger     zerolog.Logger
	now        func() time.Time

	mu      sync.Mutex
	running bool
	skipped int
	wg      sync.WaitGroup
}

func newScheduler(runner cycleRunner, tracker *server.Tracker, interval time.Duration, runOnStart bool, logger zerolog.Logger) *scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &scheduler{
		runner:     runner,
		tracker:    tracker,
		interval:   interval,
		runOnStart: runOnStart,
		logger:     logger.With().Str("component", "scheduler").Logger(),
		now:        time.Now,
	}
}

// Run blocks until ctx is cancelled and in-flight cycles have returned.
func (s *scheduler) Run(ctx context.Context) error {
	s.logger.Info().Dur("interval", s.interval).Msg("scheduler started")
	defer s.wg.Wait()

	if s.runOnStart {
		s.tick(ctx)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				s.tick(ctx)
			}()
		}
	}
}

// tick runs one cycle unless one is already in flight. Reports whether it ran.
func (s *scheduler) tick(ctx context.Context) bool {
	s.mu.Lock()
	if s.running {
		s.skipped++
		s.mu.Unlock()
		s.logger.Warn().Msg("previous cycle still running, skipping tick")
		return false
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	s.tracker.Begin()
	res, err := s.runner.Run(ctx)
	s.tracker.Finish(res, err, s.now())
	return true
}

func (s *scheduler) skippedTicks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.skipped
}
