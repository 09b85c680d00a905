// ABOUTME: Scheduled housekeeping: expired one-time token purge and API key sweep
// ABOUTME: Runs on a cron schedule; auth-time checks stay authoritative regardless

package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// TokenPurger clears expired verification/reset token hashes.
type TokenPurger interface {
	PurgeExpiredUserTokens(ctx context.Context, now time.Time) (int64, error)
}

// KeySweeper deactivates expired API keys.
type KeySweeper interface {
	SweepExpired(ctx context.Context) (int64, error)
}

// Scheduler runs the housekeeping jobs on a cron schedule.
// An empty schedule disables it.
type Scheduler struct {
	schedule string
	purger   TokenPurger
	sweeper  KeySweeper
	cron     *cron.Cron
	mu       sync.Mutex
	running  bool
	logger   *slog.Logger
}

// NewScheduler creates a maintenance scheduler.
func NewScheduler(schedule string, purger TokenPurger, sweeper KeySweeper) *Scheduler {
	return &Scheduler{
		schedule: schedule,
		purger:   purger,
		sweeper:  sweeper,
		cron:     cron.New(),
		logger:   slog.Default().With("component", "maintenance"),
	}
}

// Start begins scheduled housekeeping and stops it when the context is
// cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.schedule == "" {
		s.logger.Info("maintenance schedule not configured, skipping")
		return nil
	}

	if _, err := cron.ParseStandard(s.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", s.schedule, err)
	}

	if _, err := s.cron.AddFunc(s.schedule, func() {
		s.runOnce(ctx)
	}); err != nil {
		return fmt.Errorf("scheduling maintenance: %w", err)
	}

	s.cron.Start()
	s.running = true
	s.logger.Info("maintenance scheduler started", "schedule", s.schedule)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// runOnce executes one housekeeping cycle.
func (s *Scheduler) runOnce(ctx context.Context) {
	purged, err := s.purger.PurgeExpiredUserTokens(ctx, time.Now())
	if err != nil {
		s.logger.Error("purging expired user tokens failed", "error", err)
	} else if purged > 0 {
		s.logger.Info("purged expired user tokens", "count", purged)
	}

	if _, err := s.sweeper.SweepExpired(ctx); err != nil {
		s.logger.Error("sweeping expired api keys failed", "error", err)
	}
}

// Stop halts the scheduler. Safe to call more than once.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		s.cron.Stop()
		s.running = false
		s.logger.Info("maintenance scheduler stopped")
	}
}
