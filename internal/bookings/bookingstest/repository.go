// Package bookingstest provides an in-memory BookingRepository with the
// same guard semantics as the Mongo repository.
package bookingstest

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	bookingserrors "gigmarket/internal/bookings/errors"
	"gigmarket/internal/bookings/repository"
	"gigmarket/pkg/model"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var _ repository.BookingRepository = (*Repository)(nil)

type Repository struct {
	mu       sync.Mutex
	bookings map[string]*model.Booking
	writes   int
}

func NewRepository(bookings ...*model.Booking) *Repository {
	r := &Repository{bookings: map[string]*model.Booking{}}
	for _, b := range bookings {
		r.Put(b)
	}
	return r
}

// Put stores a copy of b, assigning an id when it has none
func (r *Repository) Put(b *model.Booking) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b.ID == "" {
		b.ID = primitive.NewObjectID().Hex()
	}
	cp := *b
	r.bookings[b.ID] = &cp
}

// Get returns a copy of the stored booking, or nil
func (r *Repository) Get(id string) *model.Booking {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil
	}
	cp := *b
	return &cp
}

// Writes counts successful mutations
func (r *Repository) Writes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writes
}

func (r *Repository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bookings)
}

func (r *Repository) Create(ctx context.Context, booking *model.Booking) error {
	now := time.Now().UTC()
	booking.CreatedAt = now
	booking.UpdatedAt = now
	booking.ID = ""
	r.Put(booking)

	r.mu.Lock()
	r.writes++
	r.mu.Unlock()
	return nil
}

func (r *Repository) lookup(id string) (*model.Booking, error) {
	if !primitive.IsValidObjectID(id) {
		return nil, fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}
	b, ok := r.bookings[id]
	if !ok {
		return nil, bookingserrors.ErrNotFound
	}
	return b, nil
}

func (r *Repository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, err := r.lookup(id)
	if err != nil {
		return nil, err
	}
	cp := *b
	return &cp, nil
}

func (r *Repository) filter(match func(b *model.Booking) bool) []*model.Booking {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*model.Booking{}
	for _, b := range r.bookings {
		if match(b) {
			cp := *b
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].EventDate.Equal(out[j].EventDate) {
			return out[i].EventDate.After(out[j].EventDate)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func page(bookings []*model.Booking, limit int, offset int64) []*model.Booking {
	if offset >= int64(len(bookings)) {
		return []*model.Booking{}
	}
	bookings = bookings[offset:]
	if limit > 0 && limit < len(bookings) {
		bookings = bookings[:limit]
	}
	return bookings
}

func (r *Repository) FindByCustomer(ctx context.Context, customerID string, limit int, offset int64) ([]*model.Booking, error) {
	return page(r.filter(func(b *model.Booking) bool { return b.CustomerID == customerID }), limit, offset), nil
}

func (r *Repository) CountByCustomer(ctx context.Context, customerID string) (int64, error) {
	return int64(len(r.filter(func(b *model.Booking) bool { return b.CustomerID == customerID }))), nil
}

func (r *Repository) FindByPerformer(ctx context.Context, performerID string, limit int, offset int64) ([]*model.Booking, error) {
	return page(r.filter(func(b *model.Booking) bool { return b.PerformerID == performerID }), limit, offset), nil
}

func (r *Repository) CountByPerformer(ctx context.Context, performerID string) (int64, error) {
	return int64(len(r.filter(func(b *model.Booking) bool { return b.PerformerID == performerID }))), nil
}

func (r *Repository) mutate(id string, guard error, match func(b *model.Booking) bool, apply func(b *model.Booking)) (*model.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, err := r.lookup(id)
	if err != nil {
		return nil, err
	}
	if match != nil && !match(b) {
		return nil, guard
	}
	apply(b)
	b.Version++
	r.writes++
	cp := *b
	return &cp, nil
}

func (r *Repository) ApplyStatusChange(ctx context.Context, id string, change model.StatusChange) (*model.Booking, error) {
	return r.mutate(id, bookingserrors.ErrVersionConflict,
		func(b *model.Booking) bool { return b.Status == change.From && b.Version == change.Version },
		func(b *model.Booking) {
			b.Status = change.To
			b.UpdatedAt = change.At
			if change.CompletionDate != nil {
				b.CompletionDate = change.CompletionDate
			}
			if change.AutoReleaseDate != nil {
				b.AutoReleaseDate = change.AutoReleaseDate
			}
			if change.To == model.BookingCancelled {
				at := change.At
				b.CancellationDate = &at
				b.CancellationReason = change.CancellationReason
				b.CancelledBy = change.CancelledBy
			}
			if change.EscrowStatus != "" {
				b.EscrowStatus = change.EscrowStatus
			}
		},
	)
}

func (r *Repository) ConfirmPerformer(ctx context.Context, id string) (*model.Booking, error) {
	return r.mutate(id, nil, nil, func(b *model.Booking) { b.PerformerConfirmed = true })
}

func (r *Repository) ConfirmCompletion(ctx context.Context, id string) (*model.Booking, error) {
	return r.mutate(id, nil, nil, func(b *model.Booking) { b.CustomerConfirmedCompletion = true })
}

func (r *Repository) ReleaseEscrow(ctx context.Context, id string, at time.Time) (*model.Booking, error) {
	return r.mutate(id, bookingserrors.ErrGuardFailed,
		func(b *model.Booking) bool { return b.Status == model.BookingCompleted && !b.EscrowStatus.Settled() },
		func(b *model.Booking) {
			b.EscrowStatus = model.EscrowReleased
			b.PayoutDate = &at
			b.UpdatedAt = at
		},
	)
}

func (r *Repository) HoldEscrow(ctx context.Context, id string, status model.EscrowStatus, from []model.EscrowStatus) (*model.Booking, error) {
	return r.mutate(id, bookingserrors.ErrGuardFailed,
		func(b *model.Booking) bool {
			return b.Status != model.BookingCancelled && b.Status != model.BookingRefunded && slices.Contains(from, b.EscrowStatus)
		},
		func(b *model.Booking) { b.EscrowStatus = status },
	)
}

func (r *Repository) DueForRelease(ctx context.Context, now time.Time, limit int) ([]*model.Booking, error) {
	due := r.filter(func(b *model.Booking) bool {
		return b.Status == model.BookingCompleted &&
			!b.EscrowStatus.Settled() &&
			b.AutoReleaseDate != nil && !b.AutoReleaseDate.After(now)
	})
	return page(due, limit, 0), nil
}
