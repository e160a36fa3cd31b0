package service

import (
	"context"
	"errors"
	"sync"
	"time"

	bookingserrors "gigmarket/internal/bookings/errors"
	"gigmarket/internal/bookings/repository"
	"gigmarket/internal/bookings/validator"
	escrowservice "gigmarket/internal/escrow/service"
	"gigmarket/pkg/auth"
	"gigmarket/pkg/config"
	apperrors "gigmarket/pkg/errors"
	"gigmarket/pkg/model"
	"gigmarket/pkg/money"
	"gigmarket/pkg/notify"
	"gigmarket/pkg/sanitizer"
	"gigmarket/pkg/validation"
)

type BookingService interface {
	Create(ctx context.Context, caller auth.Context, booking *model.Booking) error
	// CreateFromMarket materializes an accepted bid. The caller is the
	// event's customer or an admin.
	CreateFromMarket(ctx context.Context, caller auth.Context, booking *model.Booking) error
	GetByID(ctx context.Context, caller auth.Context, id string) (*model.Booking, error)
	ListForCustomer(ctx context.Context, caller auth.Context, customerID string, limit int, offset int64) ([]*model.Booking, int64, error)
	ListForPerformer(ctx context.Context, caller auth.Context, performerID string, limit int, offset int64) ([]*model.Booking, int64, error)
	UpdateStatus(ctx context.Context, caller auth.Context, id string, status string) (*model.Booking, error)
	Cancel(ctx context.Context, caller auth.Context, id string, reason string) (*model.Booking, error)
	PerformerConfirm(ctx context.Context, caller auth.Context, id string) (*model.Booking, error)
	CustomerConfirmCompletion(ctx context.Context, caller auth.Context, id string) (*model.Booking, error)
}

// PerformerDirectory is the part of the performer directory bookings depend on
type PerformerDirectory interface {
	Get(ctx context.Context, id string) (*model.Performer, error)
	RecordCompletedBooking(ctx context.Context, id string) error
}

type bookingService struct {
	repo       repository.BookingRepository
	validator  *validator.BookingValidator
	performers PerformerDirectory
	notifier   notify.Dispatcher
	cfg        *config.Config
	now        func() time.Time
}

func NewBookingService(
	repo repository.BookingRepository,
	validator *validator.BookingValidator,
	performers PerformerDirectory,
	notifier notify.Dispatcher,
	cfg *config.Config,
) BookingService {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &bookingService{
		repo:       repo,
		validator:  validator,
		performers: performers,
		notifier:   notifier,
		cfg:        cfg,
		now:        time.Now,
	}
}

func (s *bookingService) Create(ctx context.Context, caller auth.Context, booking *model.Booking) error {
	booking.Source = model.SourceDirect
	booking.MarketEventID = ""
	booking.BidID = ""
	return s.create(ctx, caller, booking)
}

func (s *bookingService) CreateFromMarket(ctx context.Context, caller auth.Context, booking *model.Booking) error {
	booking.Source = model.SourceMarket
	return s.create(ctx, caller, booking)
}

func (s *bookingService) create(ctx context.Context, caller auth.Context, booking *model.Booking) error {
	booking.ID = ""
	s.sanitize(booking)

	if missing := s.validator.MissingFields(booking); len(missing) > 0 {
		return apperrors.MissingField(missing...)
	}
	if !caller.OwnsOrAdmin(booking.CustomerID) {
		return apperrors.Forbidden("Bookings can only be created for the calling customer")
	}

	now := s.now().UTC()
	if !model.AfterToday(booking.EventDate, now) {
		return apperrors.InvalidDate("Event date must be after today").
			WithDetails(map[string]any{"event_date": booking.EventDate.Format(time.DateOnly)})
	}

	if err := s.validator.Validate(booking); err != nil {
		s.cfg.Log.Warn("Booking validation failed", "customer_id", booking.CustomerID, "error", err)
		return validation.ToAppError(err)
	}

	performer, err := s.performers.Get(ctx, booking.PerformerID)
	if err != nil {
		return err
	}
	if !performer.Bookable() {
		return apperrors.InvalidState("Performer is not accepting bookings").
			WithDetails(map[string]any{"performer_id": performer.ID, "status": performer.Status})
	}

	split := money.Compute(booking.TotalAmount, s.cfg.CommissionRate(performer.Tier), performer.DepositPercentage)
	booking.PerformerAccountID = performer.AccountID
	booking.TotalAmount = split.Total
	booking.CommissionRate = split.Rate
	booking.CommissionAmount = split.Commission
	booking.PayoutAmount = split.Payout
	booking.DepositAmount = split.Deposit
	booking.Status = model.BookingPending
	booking.EscrowStatus = model.EscrowPending
	booking.PerformerConfirmed = false
	booking.CustomerConfirmedCompletion = false
	booking.CompletionDate = nil
	booking.AutoReleaseDate = nil
	booking.PayoutDate = nil
	booking.CancellationDate = nil
	booking.CancellationReason = ""
	booking.CancelledBy = ""
	booking.Version = 1

	if err := s.repo.Create(ctx, booking); err != nil {
		s.cfg.Log.Error("Failed to create booking", "performer_id", booking.PerformerID, "error", err)
		return apperrors.Internal("Failed to create booking", err)
	}

	s.cfg.Log.Info("Booking created successfully",
		"id", booking.ID,
		"performer_id", booking.PerformerID,
		"customer_id", booking.CustomerID,
		"source", booking.Source,
		"total_amount", booking.TotalAmount,
	)
	return nil
}

func (s *bookingService) sanitize(b *model.Booking) {
	b.PerformerID = sanitizer.SanitizeIdentifier(b.PerformerID)
	b.CustomerID = sanitizer.SanitizeIdentifier(b.CustomerID)
	b.Title = sanitizer.SanitizeText(b.Title)
	b.Location = sanitizer.SanitizeText(b.Location)
	b.EventTime = sanitizer.SanitizeIdentifier(b.EventTime)
}

func (s *bookingService) GetByID(ctx context.Context, caller auth.Context, id string) (*model.Booking, error) {
	booking, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !isParticipant(caller, booking) && !caller.IsAdmin() {
		return nil, apperrors.Forbidden("Only booking participants can view this booking")
	}
	return booking, nil
}

func (s *bookingService) load(ctx context.Context, id string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}
	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapRepoError(err, id, "Failed to retrieve booking")
	}
	return booking, nil
}

func isParticipant(caller auth.Context, b *model.Booking) bool {
	return caller.Owns(b.CustomerID) || caller.Owns(b.PerformerAccountID)
}

func (s *bookingService) ListForCustomer(ctx context.Context, caller auth.Context, customerID string, limit int, offset int64) ([]*model.Booking, int64, error) {
	if customerID == "" {
		return nil, 0, apperrors.InvalidInput("Customer ID cannot be empty")
	}
	if !caller.OwnsOrAdmin(customerID) {
		return nil, 0, apperrors.Forbidden("Customers can only list their own bookings")
	}

	return s.list(ctx, limit, offset,
		func(ctx context.Context) (int64, error) { return s.repo.CountByCustomer(ctx, customerID) },
		func(ctx context.Context, limit int, offset int64) ([]*model.Booking, error) {
			return s.repo.FindByCustomer(ctx, customerID, limit, offset)
		},
	)
}

func (s *bookingService) ListForPerformer(ctx context.Context, caller auth.Context, performerID string, limit int, offset int64) ([]*model.Booking, int64, error) {
	if performerID == "" {
		return nil, 0, apperrors.InvalidInput("Performer ID cannot be empty")
	}
	if !caller.IsAdmin() {
		performer, err := s.performers.Get(ctx, performerID)
		if err != nil {
			return nil, 0, err
		}
		if !caller.Owns(performer.AccountID) {
			return nil, 0, apperrors.Forbidden("Performers can only list their own bookings")
		}
	}

	return s.list(ctx, limit, offset,
		func(ctx context.Context) (int64, error) { return s.repo.CountByPerformer(ctx, performerID) },
		func(ctx context.Context, limit int, offset int64) ([]*model.Booking, error) {
			return s.repo.FindByPerformer(ctx, performerID, limit, offset)
		},
	)
}

func (s *bookingService) list(
	ctx context.Context,
	limit int,
	offset int64,
	countFn func(ctx context.Context) (int64, error),
	findFn func(ctx context.Context, limit int, offset int64) ([]*model.Booking, error),
) ([]*model.Booking, int64, error) {
	limit = config.NormalizePaginationLimit(limit, s.cfg.MaxPaginationLimit)
	offset = config.NormalizeOffset(offset)

	var count int64
	var bookings []*model.Booking
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = countFn(ctx)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count bookings", "error", errCount)
			errCount = apperrors.Internal("Failed to count bookings", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		bookings, errFind = findFn(ctx, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list bookings", "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve bookings", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}
	return bookings, count, nil
}

func (s *bookingService) UpdateStatus(ctx context.Context, caller auth.Context, id string, status string) (*model.Booking, error) {
	next := model.BookingStatus(status)
	if !next.Valid() {
		return nil, apperrors.InvalidStatus(status)
	}

	booking, err := s.GetByID(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if booking.Status == next {
		return booking, nil
	}
	if err := authorizeTransition(caller, booking, next); err != nil {
		return nil, err
	}
	if !booking.Status.CanTransitionTo(next) {
		return nil, invalidTransition(booking.Status, next)
	}

	now := s.now().UTC().Truncate(time.Millisecond)
	change := model.StatusChange{
		From:    booking.Status,
		To:      next,
		Version: booking.Version,
		At:      now,
	}
	switch next {
	case model.BookingCompleted:
		release := escrowservice.ComputeAutoReleaseDate(now, s.cfg.AutoReleaseDays)
		change.CompletionDate = &now
		change.AutoReleaseDate = &release
	case model.BookingCancelled:
		change.CancelledBy = caller.AccountID
	case model.BookingRefunded:
		if booking.EscrowStatus != model.EscrowReleased {
			change.EscrowStatus = model.EscrowRefunded
		}
	}

	return s.apply(ctx, caller, booking, change)
}

// authorizeTransition checks who may move a booking into next
func authorizeTransition(caller auth.Context, b *model.Booking, next model.BookingStatus) error {
	if caller.IsAdmin() {
		return nil
	}
	switch next {
	case model.BookingConfirmed:
		if caller.Owns(b.PerformerAccountID) {
			return nil
		}
		return apperrors.Forbidden("Only the performer can confirm a booking")
	case model.BookingCompleted:
		if caller.Owns(b.CustomerID) {
			return nil
		}
		return apperrors.Forbidden("Only the customer can complete a booking")
	case model.BookingDisputed, model.BookingCancelled:
		if isParticipant(caller, b) {
			return nil
		}
		return apperrors.Forbidden("Only booking participants can change this booking")
	default:
		return apperrors.Forbidden("Only an admin can set this status").
			WithDetails(map[string]any{"status": next})
	}
}

func invalidTransition(from, to model.BookingStatus) error {
	return apperrors.InvalidState("Booking status transition is not allowed").
		WithDetails(map[string]any{"from": from, "to": to})
}

func (s *bookingService) Cancel(ctx context.Context, caller auth.Context, id string, reason string) (*model.Booking, error) {
	req := model.CancelRequest{Reason: sanitizer.SanitizeMultiline(reason)}
	if err := s.validator.ValidateCancel(&req); err != nil {
		return nil, validation.ToAppError(err)
	}

	booking, err := s.GetByID(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if booking.Status == model.BookingCancelled {
		return booking, nil
	}
	if !booking.Status.CanTransitionTo(model.BookingCancelled) {
		return nil, invalidTransition(booking.Status, model.BookingCancelled)
	}

	return s.apply(ctx, caller, booking, model.StatusChange{
		From:               booking.Status,
		To:                 model.BookingCancelled,
		Version:            booking.Version,
		At:                 s.now().UTC().Truncate(time.Millisecond),
		CancellationReason: req.Reason,
		CancelledBy:        caller.AccountID,
	})
}

func (s *bookingService) apply(ctx context.Context, caller auth.Context, booking *model.Booking, change model.StatusChange) (*model.Booking, error) {
	updated, err := s.repo.ApplyStatusChange(ctx, booking.ID, change)
	if err != nil {
		return nil, s.mapRepoError(err, booking.ID, "Failed to update booking status")
	}

	s.cfg.Log.Info("Booking status changed",
		"id", updated.ID,
		"from", change.From,
		"to", change.To,
		"version", updated.Version,
		"by", caller.AccountID,
	)

	if change.To == model.BookingCompleted {
		if err := s.performers.RecordCompletedBooking(ctx, updated.PerformerID); err != nil {
			s.cfg.Log.Error("Failed to record completed booking on performer",
				"booking_id", updated.ID,
				"performer_id", updated.PerformerID,
				"error", err,
			)
		}
	}

	if typ, ok := statusNotifications[change.To]; ok {
		s.notifier.Dispatch(ctx, notify.Notification{
			Type:        typ,
			BookingID:   updated.ID,
			PerformerID: updated.PerformerID,
			CustomerID:  updated.CustomerID,
			Amount:      updated.TotalAmount,
			OccurredAt:  change.At,
			Data:        map[string]any{"from": change.From, "by": caller.AccountID},
		})
	}
	return updated, nil
}

var statusNotifications = map[model.BookingStatus]notify.Type{
	model.BookingConfirmed: notify.BookingConfirmed,
	model.BookingCompleted: notify.BookingCompleted,
	model.BookingCancelled: notify.BookingCancelled,
	model.BookingRefunded:  notify.BookingRefunded,
	model.BookingDisputed:  notify.BookingDisputed,
}

func (s *bookingService) PerformerConfirm(ctx context.Context, caller auth.Context, id string) (*model.Booking, error) {
	booking, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.OwnsOrAdmin(booking.PerformerAccountID) {
		return nil, apperrors.Forbidden("Only the performer can confirm attendance")
	}
	if booking.PerformerConfirmed {
		return booking, nil
	}

	updated, err := s.repo.ConfirmPerformer(ctx, id)
	if err != nil {
		return nil, s.mapRepoError(err, id, "Failed to confirm booking")
	}
	s.cfg.Log.Info("Performer confirmed booking", "id", id, "by", caller.AccountID)
	return updated, nil
}

func (s *bookingService) CustomerConfirmCompletion(ctx context.Context, caller auth.Context, id string) (*model.Booking, error) {
	booking, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.OwnsOrAdmin(booking.CustomerID) {
		return nil, apperrors.Forbidden("Only the customer can confirm completion")
	}
	if booking.CustomerConfirmedCompletion {
		return booking, nil
	}

	updated, err := s.repo.ConfirmCompletion(ctx, id)
	if err != nil {
		return nil, s.mapRepoError(err, id, "Failed to confirm completion")
	}
	s.cfg.Log.Info("Customer confirmed completion", "id", id, "by", caller.AccountID)
	return updated, nil
}

func (s *bookingService) mapRepoError(err error, id, message string) error {
	switch {
	case errors.Is(err, bookingserrors.ErrNotFound):
		return apperrors.NotFoundWithID("Booking", id)
	case errors.Is(err, bookingserrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid booking ID format")
	case errors.Is(err, bookingserrors.ErrVersionConflict):
		return apperrors.Conflict("Booking was modified concurrently, retry with the current version").
			WithDetails(map[string]any{"booking_id": id})
	default:
		s.cfg.Log.Error(message, "id", id, "error", err)
		return apperrors.Internal(message, err)
	}
}
