package service

import (
	"context"
	"errors"
	"time"

	bookingserrors "gigmarket/internal/bookings/errors"
	"gigmarket/internal/bookings/repository"
	"gigmarket/pkg/auth"
	"gigmarket/pkg/config"
	apperrors "gigmarket/pkg/errors"
	"gigmarket/pkg/model"
	"gigmarket/pkg/notify"
)

// ComputeAutoReleaseDate is the day escrow releases on its own after completion
func ComputeAutoReleaseDate(completion time.Time, days int) time.Time {
	return completion.AddDate(0, 0, days)
}

type EscrowService interface {
	Release(ctx context.Context, caller auth.Context, bookingID string) (*model.Booking, error)
	// BulkRelease releases every eligible booking and returns how many were
	// released. Failures are logged and skipped.
	BulkRelease(ctx context.Context, caller auth.Context, bookingIDs []string) (int, error)
	MarkHeld(ctx context.Context, caller auth.Context, bookingID string, full bool) (*model.Booking, error)
	DueForRelease(ctx context.Context, now time.Time, limit int) ([]*model.Booking, error)
}

type escrowService struct {
	repo     repository.BookingRepository
	notifier notify.Dispatcher
	cfg      *config.Config
	now      func() time.Time
}

func NewEscrowService(repo repository.BookingRepository, notifier notify.Dispatcher, cfg *config.Config) EscrowService {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &escrowService{
		repo:     repo,
		notifier: notifier,
		cfg:      cfg,
		now:      time.Now,
	}
}

func (s *escrowService) Release(ctx context.Context, caller auth.Context, bookingID string) (*model.Booking, error) {
	booking, err := s.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !caller.OwnsOrAdmin(booking.CustomerID) {
		return nil, apperrors.Forbidden("Only the customer or an admin can release escrow")
	}
	if err := releasable(booking); err != nil {
		return nil, err
	}

	now := s.now().UTC().Truncate(time.Millisecond)
	released, err := s.repo.ReleaseEscrow(ctx, bookingID, now)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrGuardFailed) {
			return nil, s.guardFailure(ctx, bookingID)
		}
		return nil, s.mapRepoError(err, bookingID, "Failed to release escrow")
	}

	s.cfg.Log.Info("Escrow released successfully",
		"booking_id", released.ID,
		"payout_amount", released.PayoutAmount,
		"by", caller.AccountID,
	)
	s.notifier.Dispatch(ctx, notify.Notification{
		Type:        notify.PayoutReleased,
		BookingID:   released.ID,
		PerformerID: released.PerformerID,
		CustomerID:  released.CustomerID,
		Amount:      released.PayoutAmount,
		OccurredAt:  now,
	})
	return released, nil
}

func releasable(b *model.Booking) error {
	if b.EscrowStatus == model.EscrowReleased {
		return apperrors.AlreadyReleased(b.ID)
	}
	if b.Status != model.BookingCompleted {
		return apperrors.InvalidState("Escrow can only be released for completed bookings").
			WithDetails(map[string]any{"booking_id": b.ID, "status": b.Status})
	}
	if b.EscrowStatus == model.EscrowRefunded {
		return apperrors.InvalidState("Escrow was refunded").
			WithDetails(map[string]any{"booking_id": b.ID})
	}
	return nil
}

// guardFailure re-reads a booking after a lost race to report why
func (s *escrowService) guardFailure(ctx context.Context, bookingID string) error {
	booking, err := s.load(ctx, bookingID)
	if err != nil {
		return err
	}
	if err := releasable(booking); err != nil {
		return err
	}
	return apperrors.Conflict("Escrow changed concurrently").
		WithDetails(map[string]any{"booking_id": bookingID})
}

func (s *escrowService) BulkRelease(ctx context.Context, caller auth.Context, bookingIDs []string) (int, error) {
	if len(bookingIDs) == 0 {
		return 0, nil
	}

	seen := make(map[string]struct{}, len(bookingIDs))
	released := 0
	for _, id := range bookingIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		if err := ctx.Err(); err != nil {
			return released, apperrors.Timeout("Bulk release interrupted")
		}
		if _, err := s.Release(ctx, caller, id); err != nil {
			s.cfg.Log.Warn("Skipping escrow release", "booking_id", id, "error", err)
			continue
		}
		released++
	}

	s.cfg.Log.Info("Bulk escrow release finished",
		"requested", len(bookingIDs),
		"released", released,
		"by", caller.AccountID,
	)
	return released, nil
}

func (s *escrowService) MarkHeld(ctx context.Context, caller auth.Context, bookingID string, full bool) (*model.Booking, error) {
	if !caller.IsAdmin() {
		return nil, apperrors.Forbidden("Only an admin can record escrow holds")
	}

	booking, err := s.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	target, from := model.EscrowHeld, []model.EscrowStatus{model.EscrowPending}
	if full {
		target, from = model.EscrowFullHeld, []model.EscrowStatus{model.EscrowPending, model.EscrowHeld}
	}
	if booking.EscrowStatus == target {
		return booking, nil
	}
	if err := holdable(booking, from); err != nil {
		return nil, err
	}

	updated, err := s.repo.HoldEscrow(ctx, bookingID, target, from)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrGuardFailed) {
			return nil, apperrors.Conflict("Escrow changed concurrently").
				WithDetails(map[string]any{"booking_id": bookingID})
		}
		return nil, s.mapRepoError(err, bookingID, "Failed to record escrow hold")
	}

	s.cfg.Log.Info("Escrow hold recorded", "booking_id", bookingID, "escrow_status", target, "by", caller.AccountID)
	return updated, nil
}

func holdable(b *model.Booking, from []model.EscrowStatus) error {
	if b.EscrowStatus == model.EscrowReleased {
		return apperrors.AlreadyReleased(b.ID)
	}
	if b.Status == model.BookingCancelled || b.Status == model.BookingRefunded || b.EscrowStatus.Settled() {
		return apperrors.InvalidState("Escrow can no longer be held").
			WithDetails(map[string]any{"booking_id": b.ID, "status": b.Status, "escrow_status": b.EscrowStatus})
	}
	for _, st := range from {
		if b.EscrowStatus == st {
			return nil
		}
	}
	return apperrors.InvalidState("Escrow hold cannot be downgraded").
		WithDetails(map[string]any{"booking_id": b.ID, "escrow_status": b.EscrowStatus})
}

func (s *escrowService) DueForRelease(ctx context.Context, now time.Time, limit int) ([]*model.Booking, error) {
	if limit <= 0 {
		limit = s.cfg.SweepBatchSize
	}
	bookings, err := s.repo.DueForRelease(ctx, now, limit)
	if err != nil {
		s.cfg.Log.Error("Failed to list bookings due for release", "error", err)
		return nil, apperrors.Internal("Failed to list bookings due for release", err)
	}
	return bookings, nil
}

func (s *escrowService) load(ctx context.Context, id string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}
	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapRepoError(err, id, "Failed to retrieve booking")
	}
	return booking, nil
}

func (s *escrowService) mapRepoError(err error, id, message string) error {
	switch {
	case errors.Is(err, bookingserrors.ErrNotFound):
		return apperrors.NotFoundWithID("Booking", id)
	case errors.Is(err, bookingserrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid booking ID format")
	default:
		s.cfg.Log.Error(message, "id", id, "error", err)
		return apperrors.Internal(message, err)
	}
}
