package sweeper

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gigmarket/internal/bookings/bookingstest"
	escrowservice "gigmarket/internal/escrow/service"
	"gigmarket/pkg/auth"
	"gigmarket/pkg/config"
	"gigmarket/pkg/logger"
	"gigmarket/pkg/model"
)

var fixedNow = time.Date(2026, time.April, 1, 9, 0, 0, 0, time.UTC)

func testConfig() *config.Config {
	return &config.Config{
		Log:                 logger.Discard(),
		SweepBatchSize:      50,
		EscrowSweepSchedule: "@every 1h",
		EventSweepSchedule:  "@every 15m",
	}
}

type expirer struct {
	calls atomic.Int32
	at    time.Time
	err   error
	mu    sync.Mutex
}

func (e *expirer) ExpireEvents(ctx context.Context, now time.Time) (int, error) {
	e.calls.Add(1)
	e.mu.Lock()
	e.at = now
	e.mu.Unlock()
	return 3, e.err
}

func completed(id string, releaseAt time.Time) *model.Booking {
	return &model.Booking{
		ID:              id,
		CustomerID:      "cust-1",
		PerformerID:     "65a1b2c3d4e5f60718293a4b",
		Status:          model.BookingCompleted,
		EscrowStatus:    model.EscrowHeld,
		TotalAmount:     400,
		PayoutAmount:    340,
		AutoReleaseDate: &releaseAt,
	}
}

func TestSweepEscrow(t *testing.T) {
	due := completed("65a1b2c3d4e5f60718293a01", fixedNow.Add(-time.Hour))
	later := completed("65a1b2c3d4e5f60718293a02", fixedNow.Add(time.Hour))
	repo := bookingstest.NewRepository(due, later)

	cfg := testConfig()
	s := New(escrowservice.NewEscrowService(repo, nil, cfg), &expirer{}, cfg)
	s.now = func() time.Time { return fixedNow }

	released, err := s.SweepEscrow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, released)
	assert.Equal(t, model.EscrowReleased, repo.Get(due.ID).EscrowStatus)
	assert.Equal(t, model.EscrowHeld, repo.Get(later.ID).EscrowStatus)

	released, err = s.SweepEscrow(context.Background())
	require.NoError(t, err)
	assert.Zero(t, released)
}

type failingEscrow struct{}

func (failingEscrow) DueForRelease(context.Context, time.Time, int) ([]*model.Booking, error) {
	return nil, errors.New("mongo down")
}

func (failingEscrow) BulkRelease(context.Context, auth.Context, []string) (int, error) {
	return 0, nil
}

func TestSweepEscrow_ListFailure(t *testing.T) {
	s := New(failingEscrow{}, &expirer{}, testConfig())
	_, err := s.SweepEscrow(context.Background())
	assert.ErrorContains(t, err, "mongo down")
}

func TestExpireEvents(t *testing.T) {
	ex := &expirer{}
	s := New(failingEscrow{}, ex, testConfig())
	s.now = func() time.Time { return fixedNow }

	n, err := s.ExpireEvents(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, fixedNow, ex.at)

	ex.err = errors.New("boom")
	_, err = s.ExpireEvents(context.Background())
	assert.ErrorContains(t, err, "boom")
}

func TestStart_InvalidSchedule(t *testing.T) {
	cfg := testConfig()
	cfg.EventSweepSchedule = "whenever"
	s := New(failingEscrow{}, &expirer{}, cfg)
	assert.Error(t, s.Start(context.Background()))
}

func TestStartAndStop(t *testing.T) {
	cfg := testConfig()
	cfg.EventSweepSchedule = "@every 1s"
	ex := &expirer{}
	s := New(failingEscrow{}, ex, cfg)

	require.NoError(t, s.Start(context.Background()))
	assert.Eventually(t, func() bool { return ex.calls.Load() > 0 }, 3*time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, s.Stop(ctx))
}
