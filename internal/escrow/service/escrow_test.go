package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"gigmarket/internal/bookings/bookingstest"
	"gigmarket/pkg/auth"
	"gigmarket/pkg/config"
	apperrors "gigmarket/pkg/errors"
	"gigmarket/pkg/logger"
	"gigmarket/pkg/model"
	"gigmarket/pkg/notify"
	"gigmarket/pkg/notify/notifytest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, time.May, 2, 9, 0, 0, 0, time.UTC)

var (
	customer = auth.New("cust-1", auth.RoleCustomer)
	stranger = auth.New("cust-2", auth.RoleCustomer)
)

func newTestService(repo *bookingstest.Repository, notes notify.Dispatcher) *escrowService {
	cfg := &config.Config{Log: logger.Discard(), SweepBatchSize: 50}
	svc := NewEscrowService(repo, notes, cfg).(*escrowService)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func booking(status model.BookingStatus, escrow model.EscrowStatus) *model.Booking {
	release := fixedNow.AddDate(0, 0, -1)
	return &model.Booking{
		PerformerID:      "65a1b2c3d4e5f60718293a4b",
		CustomerID:       "cust-1",
		TotalAmount:      400,
		CommissionAmount: 60,
		PayoutAmount:     340,
		Status:           status,
		EscrowStatus:     escrow,
		AutoReleaseDate:  &release,
		Version:          3,
	}
}

func TestComputeAutoReleaseDate(t *testing.T) {
	completion := time.Date(2026, time.February, 25, 18, 30, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2026, time.March, 4, 18, 30, 0, 0, time.UTC), ComputeAutoReleaseDate(completion, 7))
	assert.Equal(t, completion, ComputeAutoReleaseDate(completion, 0))
}

func TestRelease(t *testing.T) {
	b := booking(model.BookingCompleted, model.EscrowHeld)
	repo := bookingstest.NewRepository(b)
	notes := &notifytest.Recorder{}
	svc := newTestService(repo, notes)

	released, err := svc.Release(context.Background(), customer, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.EscrowReleased, released.EscrowStatus)
	require.NotNil(t, released.PayoutDate)
	assert.True(t, released.PayoutDate.Equal(fixedNow))

	sent := notes.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, notify.PayoutReleased, sent[0].Type)
	assert.Equal(t, 340.0, sent[0].Amount)

	_, err = svc.Release(context.Background(), customer, b.ID)
	assert.True(t, errors.Is(err, apperrors.ErrAlreadyReleased))
}

func TestRelease_Guards(t *testing.T) {
	tests := []struct {
		name    string
		booking *model.Booking
		caller  auth.Context
		want    error
	}{
		{name: "not completed", booking: booking(model.BookingConfirmed, model.EscrowHeld), caller: customer, want: apperrors.ErrInvalidState},
		{name: "refunded escrow", booking: booking(model.BookingCompleted, model.EscrowRefunded), caller: auth.System(), want: apperrors.ErrInvalidState},
		{name: "stranger", booking: booking(model.BookingCompleted, model.EscrowHeld), caller: stranger, want: apperrors.ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := bookingstest.NewRepository(tt.booking)
			svc := newTestService(repo, nil)

			_, err := svc.Release(context.Background(), tt.caller, tt.booking.ID)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			assert.Zero(t, repo.Writes())
		})
	}
}

func TestRelease_ConcurrentExactlyOneWins(t *testing.T) {
	b := booking(model.BookingCompleted, model.EscrowFullHeld)
	repo := bookingstest.NewRepository(b)
	notes := &notifytest.Recorder{}
	svc := newTestService(repo, notes)

	const n = 20
	var wins, already atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Release(context.Background(), auth.System(), b.ID)
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, apperrors.ErrAlreadyReleased):
				already.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, int32(n-1), already.Load())
	assert.Equal(t, 1, repo.Writes())
	assert.Len(t, notes.Sent(), 1)
}

func TestBulkRelease(t *testing.T) {
	ok1 := booking(model.BookingCompleted, model.EscrowHeld)
	ok2 := booking(model.BookingCompleted, model.EscrowPending)
	pending := booking(model.BookingPending, model.EscrowPending)
	done := booking(model.BookingCompleted, model.EscrowReleased)
	repo := bookingstest.NewRepository(ok1, ok2, pending, done)
	svc := newTestService(repo, nil)

	ids := []string{ok1.ID, pending.ID, ok2.ID, done.ID, ok1.ID, "bogus", "65a1b2c3d4e5f60718293fff"}
	n, err := svc.BulkRelease(context.Background(), auth.System(), ids)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, model.EscrowReleased, repo.Get(ok2.ID).EscrowStatus)
	assert.Equal(t, model.EscrowPending, repo.Get(pending.ID).EscrowStatus)

	n, err = svc.BulkRelease(context.Background(), auth.System(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestBulkRelease_CustomerOnlyReleasesOwn(t *testing.T) {
	mine := booking(model.BookingCompleted, model.EscrowHeld)
	theirs := booking(model.BookingCompleted, model.EscrowHeld)
	theirs.CustomerID = "cust-2"
	repo := bookingstest.NewRepository(mine, theirs)
	svc := newTestService(repo, nil)

	n, err := svc.BulkRelease(context.Background(), customer, []string{mine.ID, theirs.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, model.EscrowHeld, repo.Get(theirs.ID).EscrowStatus)
}

func TestMarkHeld(t *testing.T) {
	b := booking(model.BookingConfirmed, model.EscrowPending)
	repo := bookingstest.NewRepository(b)
	svc := newTestService(repo, nil)
	ctx := context.Background()

	_, err := svc.MarkHeld(ctx, customer, b.ID, false)
	assert.True(t, errors.Is(err, apperrors.ErrForbidden))

	held, err := svc.MarkHeld(ctx, auth.System(), b.ID, false)
	require.NoError(t, err)
	assert.Equal(t, model.EscrowHeld, held.EscrowStatus)

	full, err := svc.MarkHeld(ctx, auth.System(), b.ID, true)
	require.NoError(t, err)
	assert.Equal(t, model.EscrowFullHeld, full.EscrowStatus)

	_, err = svc.MarkHeld(ctx, auth.System(), b.ID, false)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidState), "full hold cannot drop back to deposit")

	same, err := svc.MarkHeld(ctx, auth.System(), b.ID, true)
	require.NoError(t, err)
	assert.Equal(t, full.Version, same.Version)
}

func TestMarkHeld_SettledOrCancelled(t *testing.T) {
	released := booking(model.BookingCompleted, model.EscrowReleased)
	cancelled := booking(model.BookingCancelled, model.EscrowPending)
	repo := bookingstest.NewRepository(released, cancelled)
	svc := newTestService(repo, nil)

	_, err := svc.MarkHeld(context.Background(), auth.System(), released.ID, true)
	assert.True(t, errors.Is(err, apperrors.ErrAlreadyReleased))

	_, err = svc.MarkHeld(context.Background(), auth.System(), cancelled.ID, false)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidState))
}

func TestDueForRelease(t *testing.T) {
	due := booking(model.BookingCompleted, model.EscrowHeld)
	later := booking(model.BookingCompleted, model.EscrowHeld)
	future := fixedNow.AddDate(0, 0, 3)
	later.AutoReleaseDate = &future
	settled := booking(model.BookingCompleted, model.EscrowReleased)
	repo := bookingstest.NewRepository(due, later, settled)
	svc := newTestService(repo, nil)

	bookings, err := svc.DueForRelease(context.Background(), fixedNow, 0)
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Equal(t, due.ID, bookings[0].ID)
}
