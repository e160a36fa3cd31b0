// Package sweeper runs the scheduled maintenance jobs: releasing escrow
// whose auto-release date has passed and expiring market events whose bid
// deadline has passed.
package sweeper

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"gigmarket/pkg/auth"
	"gigmarket/pkg/config"
	"gigmarket/pkg/logger"
	"gigmarket/pkg/model"
)

type EscrowReleaser interface {
	DueForRelease(ctx context.Context, now time.Time, limit int) ([]*model.Booking, error)
	BulkRelease(ctx context.Context, caller auth.Context, bookingIDs []string) (int, error)
}

type EventExpirer interface {
	ExpireEvents(ctx context.Context, now time.Time) (int, error)
}

type Sweeper struct {
	escrow EscrowReleaser
	events EventExpirer
	cfg    *config.Config
	cron   *cron.Cron
	now    func() time.Time
}

func New(escrow EscrowReleaser, events EventExpirer, cfg *config.Config) *Sweeper {
	c := cron.New(
		cron.WithParser(cron.NewParser(cron.Minute|cron.Hour|cron.Dom|cron.Month|cron.Dow|cron.Descriptor)),
		cron.WithLogger(cronLogger{cfg.Log}),
		cron.WithChain(
			cron.Recover(cronLogger{cfg.Log}),
			cron.SkipIfStillRunning(cronLogger{cfg.Log}),
		),
	)
	return &Sweeper{
		escrow: escrow,
		events: events,
		cfg:    cfg,
		cron:   c,
		now:    time.Now,
	}
}

// SweepEscrow releases every booking due for automatic release.
func (s *Sweeper) SweepEscrow(ctx context.Context) (int, error) {
	now := s.now().UTC()
	due, err := s.escrow.DueForRelease(ctx, now, s.cfg.SweepBatchSize)
	if err != nil {
		return 0, fmt.Errorf("list bookings due for release: %w", err)
	}
	if len(due) == 0 {
		return 0, nil
	}

	ids := make([]string, 0, len(due))
	for _, b := range due {
		ids = append(ids, b.ID)
	}
	released, err := s.escrow.BulkRelease(ctx, auth.System(), ids)
	if err != nil {
		return released, fmt.Errorf("release escrow: %w", err)
	}
	return released, nil
}

func (s *Sweeper) ExpireEvents(ctx context.Context) (int, error) {
	expired, err := s.events.ExpireEvents(ctx, s.now().UTC())
	if err != nil {
		return expired, fmt.Errorf("expire market events: %w", err)
	}
	return expired, nil
}

// Start schedules both jobs. Runs are skipped once ctx is done.
func (s *Sweeper) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.cfg.EscrowSweepSchedule, s.job(ctx, "escrow", s.SweepEscrow)); err != nil {
		return fmt.Errorf("schedule escrow sweep %q: %w", s.cfg.EscrowSweepSchedule, err)
	}
	if _, err := s.cron.AddFunc(s.cfg.EventSweepSchedule, s.job(ctx, "events", s.ExpireEvents)); err != nil {
		return fmt.Errorf("schedule event sweep %q: %w", s.cfg.EventSweepSchedule, err)
	}

	s.cron.Start()
	s.cfg.Log.Info("Sweeper started",
		"escrow_schedule", s.cfg.EscrowSweepSchedule,
		"event_schedule", s.cfg.EventSweepSchedule,
		"batch_size", s.cfg.SweepBatchSize,
	)
	return nil
}

// Stop stops scheduling and waits for running jobs, up to ctx's deadline.
func (s *Sweeper) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.cfg.Log.Info("Sweeper stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("sweeper did not stop in time: %w", ctx.Err())
	}
}

func (s *Sweeper) job(ctx context.Context, name string, run func(context.Context) (int, error)) func() {
	return func() {
		if ctx.Err() != nil {
			return
		}
		start := time.Now()
		n, err := run(ctx)
		if err != nil {
			s.cfg.Log.Error("Sweep failed", "job", name, "processed", n, "duration", time.Since(start), "error", err)
			return
		}
		s.cfg.Log.Info("Sweep finished", "job", name, "processed", n, "duration", time.Since(start))
	}
}

// cronLogger adapts the service logger to cron.Logger
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error(msg, append(keysAndValues, "error", err)...)
}
