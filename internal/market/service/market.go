package service

import (
	"context"
	"errors"
	"sync"
	"time"

	marketerrors "gigmarket/internal/market/errors"
	"gigmarket/internal/market/repository"
	"gigmarket/internal/market/validator"
	"gigmarket/pkg/auth"
	"gigmarket/pkg/config"
	mongotx "gigmarket/pkg/db/mongo"
	apperrors "gigmarket/pkg/errors"
	"gigmarket/pkg/model"
	"gigmarket/pkg/notify"
	"gigmarket/pkg/sanitizer"
	"gigmarket/pkg/validation"
)

// defaultBookingLocation fills the booking location when the event has none
const defaultBookingLocation = "To be confirmed"

type MarketService interface {
	CreateEvent(ctx context.Context, caller auth.Context, event *model.MarketEvent) error
	GetEvent(ctx context.Context, id string) (*model.MarketEvent, error)
	Query(ctx context.Context, filter model.MarketEventFilter, limit int, offset int64) ([]*model.MarketEvent, int64, error)
	GetCustomerEvents(ctx context.Context, customerID string, limit int, offset int64) ([]*model.MarketEvent, int64, error)
	GetEventBids(ctx context.Context, caller auth.Context, eventID string) ([]*model.Bid, error)
	GetPerformerBids(ctx context.Context, caller auth.Context, performerID string, limit int, offset int64) ([]*model.Bid, int64, error)
	SubmitBid(ctx context.Context, caller auth.Context, bid *model.Bid) error
	AcceptBid(ctx context.Context, caller auth.Context, bidID string) (*model.AcceptedBid, error)
	RejectBid(ctx context.Context, caller auth.Context, bidID string) (*model.Bid, error)
	WithdrawBid(ctx context.Context, caller auth.Context, bidID string) (*model.Bid, error)
	CloseEvent(ctx context.Context, caller auth.Context, eventID string) (*model.MarketEvent, error)
	CancelEvent(ctx context.Context, caller auth.Context, eventID string) (*model.MarketEvent, error)
	// ExpireEvents expires open and closed events whose bid deadline has
	// passed at now. It returns how many events were expired.
	ExpireEvents(ctx context.Context, now time.Time) (int, error)
}

// BookingCreator materializes accepted bids as bookings
type BookingCreator interface {
	CreateFromMarket(ctx context.Context, caller auth.Context, booking *model.Booking) error
}

type PerformerLookup interface {
	Get(ctx context.Context, id string) (*model.Performer, error)
}

type marketService struct {
	events     repository.EventRepository
	bids       repository.BidRepository
	tx         mongotx.TransactionManager
	bookings   BookingCreator
	performers PerformerLookup
	validator  *validator.MarketValidator
	notifier   notify.Dispatcher
	cfg        *config.Config
	now        func() time.Time
}

func NewMarketService(
	events repository.EventRepository,
	bids repository.BidRepository,
	tx mongotx.TransactionManager,
	bookings BookingCreator,
	performers PerformerLookup,
	validator *validator.MarketValidator,
	notifier notify.Dispatcher,
	cfg *config.Config,
) MarketService {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &marketService{
		events:     events,
		bids:       bids,
		tx:         tx,
		bookings:   bookings,
		performers: performers,
		validator:  validator,
		notifier:   notifier,
		cfg:        cfg,
		now:        time.Now,
	}
}

// ────────────────────────────────────────────────
// Events
// ────────────────────────────────────────────────

func (s *marketService) CreateEvent(ctx context.Context, caller auth.Context, event *model.MarketEvent) error {
	if event.CustomerID == "" {
		event.CustomerID = caller.AccountID
	}
	event.ID = ""
	event.CustomerID = sanitizer.SanitizeIdentifier(event.CustomerID)
	event.Title = sanitizer.SanitizeText(event.Title)
	event.Description = sanitizer.SanitizeMultiline(event.Description)
	event.Location = sanitizer.SanitizeText(event.Location)

	if missing := s.validator.MissingEventFields(event); len(missing) > 0 {
		return apperrors.MissingField(missing...)
	}
	if !caller.OwnsOrAdmin(event.CustomerID) {
		return apperrors.Forbidden("Events can only be posted for the calling customer")
	}

	now := s.now().UTC()
	if !model.AfterToday(event.EventDate, now) {
		return apperrors.InvalidDate("Event date must be after today").
			WithDetails(map[string]any{"event_date": event.EventDate.Format(time.DateOnly)})
	}
	if event.BidDeadline != nil {
		if !event.BidDeadline.After(now) {
			return apperrors.InvalidDate("Bid deadline must be in the future")
		}
		if !event.BidDeadline.Before(event.EventDate) {
			return apperrors.InvalidDate("Bid deadline must be before the event date")
		}
	}
	if event.BudgetMin > 0 && event.BudgetMax > 0 && event.BudgetMin > event.BudgetMax {
		return apperrors.Validation("Budget minimum exceeds maximum", map[string]any{
			"budget_min": event.BudgetMin,
			"budget_max": event.BudgetMax,
		})
	}
	if err := s.validator.ValidateEvent(event); err != nil {
		return validation.ToAppError(err)
	}

	event.Status = model.EventOpen
	event.TotalBids = 0
	event.AcceptedBidID = nil
	event.BookingID = nil

	if err := s.events.Create(ctx, event); err != nil {
		s.cfg.Log.Error("Failed to create market event", "customer_id", event.CustomerID, "error", err)
		return apperrors.Internal("Failed to create market event", err)
	}

	s.cfg.Log.Info("Market event created successfully",
		"id", event.ID,
		"customer_id", event.CustomerID,
		"event_date", event.EventDate,
	)
	return nil
}

func (s *marketService) GetEvent(ctx context.Context, id string) (*model.MarketEvent, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Event ID cannot be empty")
	}
	event, err := s.events.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapRepoError(err, id, "Failed to retrieve market event")
	}
	return event, nil
}

func (s *marketService) Query(ctx context.Context, filter model.MarketEventFilter, limit int, offset int64) ([]*model.MarketEvent, int64, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, apperrors.InvalidStatus(string(filter.Status))
	}
	limit = config.NormalizePaginationLimit(limit, s.cfg.MaxPaginationLimit)
	offset = config.NormalizeOffset(offset)

	var count int64
	var events []*model.MarketEvent
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.events.Count(ctx, filter)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count market events", "error", errCount)
			errCount = apperrors.Internal("Failed to count market events", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		events, errFind = s.events.FindAll(ctx, filter, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list market events", "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve market events", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}
	return events, count, nil
}

func (s *marketService) GetCustomerEvents(ctx context.Context, customerID string, limit int, offset int64) ([]*model.MarketEvent, int64, error) {
	if customerID == "" {
		return nil, 0, apperrors.InvalidInput("Customer ID cannot be empty")
	}
	return s.Query(ctx, model.MarketEventFilter{CustomerID: customerID}, limit, offset)
}

func (s *marketService) CloseEvent(ctx context.Context, caller auth.Context, eventID string) (*model.MarketEvent, error) {
	event, err := s.ownedEvent(ctx, caller, eventID)
	if err != nil {
		return nil, err
	}
	if event.Status == model.EventClosed {
		return event, nil
	}
	if event.Status != model.EventOpen {
		return nil, invalidEventTransition(event.Status, model.EventClosed)
	}

	closed, err := s.events.SetStatus(ctx, eventID, []model.MarketEventStatus{model.EventOpen}, model.EventClosed)
	if err != nil {
		return nil, s.mapRepoError(err, eventID, "Failed to close market event")
	}

	s.cfg.Log.Info("Market event closed", "id", eventID, "by", caller.AccountID)
	return closed, nil
}

func (s *marketService) CancelEvent(ctx context.Context, caller auth.Context, eventID string) (*model.MarketEvent, error) {
	event, err := s.ownedEvent(ctx, caller, eventID)
	if err != nil {
		return nil, err
	}
	if event.Status == model.EventCancelled {
		return event, nil
	}
	if !event.Status.CanTransitionTo(model.EventCancelled) {
		return nil, invalidEventTransition(event.Status, model.EventCancelled)
	}

	cancelled, rejected, err := s.retire(ctx, eventID, model.EventCancelled)
	if err != nil {
		return nil, err
	}

	s.cfg.Log.Info("Market event cancelled", "id", eventID, "rejected_bids", rejected, "by", caller.AccountID)
	s.notifier.Dispatch(ctx, notify.Notification{
		Type:       notify.EventCancelled,
		EventID:    cancelled.ID,
		CustomerID: cancelled.CustomerID,
		OccurredAt: cancelled.UpdatedAt,
		Data:       map[string]any{"rejected_bids": rejected},
	})
	return cancelled, nil
}

// retire moves an undecided event to a terminal status and rejects its
// pending bids in one transaction.
func (s *marketService) retire(ctx context.Context, eventID string, status model.MarketEventStatus) (*model.MarketEvent, int64, error) {
	var retired *model.MarketEvent
	var rejected int64
	err := s.tx.ExecuteTransaction(ctx, func(ctx context.Context) error {
		var err error
		retired, err = s.events.SetStatus(ctx, eventID, []model.MarketEventStatus{model.EventOpen, model.EventClosed}, status)
		if err != nil {
			return s.mapRepoError(err, eventID, "Failed to update market event")
		}
		rejected, err = s.bids.RejectPending(ctx, eventID, "")
		if err != nil {
			return apperrors.Internal("Failed to reject pending bids", err)
		}
		return nil
	})
	if err != nil {
		return nil, 0, s.toAppError(err, "Failed to update market event")
	}
	return retired, rejected, nil
}

func (s *marketService) ExpireEvents(ctx context.Context, now time.Time) (int, error) {
	due, err := s.events.FindExpired(ctx, now, s.cfg.SweepBatchSize)
	if err != nil {
		s.cfg.Log.Error("Failed to list expired market events", "error", err)
		return 0, apperrors.Internal("Failed to list expired market events", err)
	}

	expired := 0
	for _, event := range due {
		if err := ctx.Err(); err != nil {
			return expired, apperrors.Timeout("Event expiry interrupted")
		}
		retired, rejected, err := s.retire(ctx, event.ID, model.EventExpired)
		if err != nil {
			s.cfg.Log.Warn("Skipping market event expiry", "id", event.ID, "error", err)
			continue
		}
		expired++
		s.notifier.Dispatch(ctx, notify.Notification{
			Type:       notify.EventExpired,
			EventID:    retired.ID,
			CustomerID: retired.CustomerID,
			OccurredAt: now,
			Data:       map[string]any{"rejected_bids": rejected},
		})
	}

	if len(due) > 0 {
		s.cfg.Log.Info("Market events expired", "candidates", len(due), "expired", expired)
	}
	return expired, nil
}

func (s *marketService) ownedEvent(ctx context.Context, caller auth.Context, eventID string) (*model.MarketEvent, error) {
	event, err := s.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !caller.OwnsOrAdmin(event.CustomerID) {
		return nil, apperrors.Forbidden("Only the event's customer can manage this event")
	}
	return event, nil
}

func invalidEventTransition(from, to model.MarketEventStatus) error {
	return apperrors.InvalidState("Market event status transition is not allowed").
		WithDetails(map[string]any{"from": from, "to": to})
}

// ────────────────────────────────────────────────
// Bids
// ────────────────────────────────────────────────

func (s *marketService) GetEventBids(ctx context.Context, caller auth.Context, eventID string) ([]*model.Bid, error) {
	if _, err := s.ownedEvent(ctx, caller, eventID); err != nil {
		return nil, err
	}
	bids, err := s.bids.FindByEvent(ctx, eventID)
	if err != nil {
		s.cfg.Log.Error("Failed to list event bids", "event_id", eventID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve bids", err)
	}
	return bids, nil
}

func (s *marketService) GetPerformerBids(ctx context.Context, caller auth.Context, performerID string, limit int, offset int64) ([]*model.Bid, int64, error) {
	if performerID == "" {
		return nil, 0, apperrors.InvalidInput("Performer ID cannot be empty")
	}
	if !caller.IsAdmin() {
		performer, err := s.performers.Get(ctx, performerID)
		if err != nil {
			return nil, 0, err
		}
		if !caller.Owns(performer.AccountID) {
			return nil, 0, apperrors.Forbidden("Performers can only list their own bids")
		}
	}
	limit = config.NormalizePaginationLimit(limit, s.cfg.MaxPaginationLimit)
	offset = config.NormalizeOffset(offset)

	var count int64
	var bids []*model.Bid
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.bids.CountByPerformer(ctx, performerID)
	}()

	go func() {
		defer wg.Done()
		bids, errFind = s.bids.FindByPerformer(ctx, performerID, limit, offset)
	}()

	wg.Wait()
	if err := errors.Join(errCount, errFind); err != nil {
		s.cfg.Log.Error("Failed to list performer bids", "performer_id", performerID, "error", err)
		return nil, 0, apperrors.Internal("Failed to retrieve bids", err)
	}
	return bids, count, nil
}

func (s *marketService) SubmitBid(ctx context.Context, caller auth.Context, bid *model.Bid) error {
	bid.ID = ""
	bid.PerformerID = sanitizer.SanitizeIdentifier(bid.PerformerID)
	bid.Message = sanitizer.SanitizeMultiline(bid.Message)

	if missing := s.validator.MissingBidFields(bid); len(missing) > 0 {
		return apperrors.MissingField(missing...)
	}

	now := s.now().UTC()
	event, err := s.events.FindByID(ctx, bid.EventID)
	if err != nil {
		if errors.Is(err, marketerrors.ErrEventNotFound) || errors.Is(err, marketerrors.ErrInvalidID) {
			return apperrors.EventClosed(bid.EventID)
		}
		return s.mapRepoError(err, bid.EventID, "Failed to retrieve market event")
	}
	if event.Status != model.EventOpen || event.DeadlinePassed(now) {
		return apperrors.EventClosed(event.ID)
	}

	if err := s.validator.ValidateBid(bid); err != nil {
		return validation.ToAppError(err)
	}

	performer, err := s.performers.Get(ctx, bid.PerformerID)
	if err != nil {
		return err
	}
	if !caller.OwnsOrAdmin(performer.AccountID) {
		return apperrors.Forbidden("Bids can only be submitted for the calling performer")
	}
	if !performer.Bookable() {
		return apperrors.InvalidState("Performer is not accepting bookings").
			WithDetails(map[string]any{"performer_id": performer.ID, "status": performer.Status})
	}

	bid.PerformerAccountID = performer.AccountID
	bid.Status = model.BidPending

	err = s.tx.ExecuteTransaction(ctx, func(ctx context.Context) error {
		pending, err := s.bids.HasPending(ctx, bid.EventID, bid.PerformerID)
		if err != nil {
			return apperrors.Internal("Failed to check pending bids", err)
		}
		if pending {
			return duplicateBid(bid)
		}
		if err := s.bids.Create(ctx, bid); err != nil {
			if errors.Is(err, marketerrors.ErrDuplicateBid) {
				return duplicateBid(bid)
			}
			return apperrors.Internal("Failed to submit bid", err)
		}
		if err := s.events.IncrementBids(ctx, bid.EventID, now); err != nil {
			if errors.Is(err, marketerrors.ErrEventNotOpen) {
				return apperrors.EventClosed(bid.EventID)
			}
			return apperrors.Internal("Failed to count bid", err)
		}
		return nil
	})
	if err != nil {
		bid.ID = ""
		return s.toAppError(err, "Failed to submit bid")
	}

	s.cfg.Log.Info("Bid submitted successfully",
		"id", bid.ID,
		"event_id", bid.EventID,
		"performer_id", bid.PerformerID,
		"bid_amount", bid.BidAmount,
	)
	s.notifier.Dispatch(ctx, notify.Notification{
		Type:        notify.BidSubmitted,
		EventID:     bid.EventID,
		BidID:       bid.ID,
		PerformerID: bid.PerformerID,
		CustomerID:  event.CustomerID,
		Amount:      bid.BidAmount,
		OccurredAt:  now,
	})
	return nil
}

func duplicateBid(bid *model.Bid) error {
	return apperrors.Conflict("Performer already has a pending bid on this event").
		WithDetails(map[string]any{"event_id": bid.EventID, "performer_id": bid.PerformerID})
}

// decision loads a bid and its event and checks that caller owns the event
func (s *marketService) decision(ctx context.Context, caller auth.Context, bidID string) (*model.Bid, *model.MarketEvent, error) {
	bid, err := s.bid(ctx, bidID)
	if err != nil {
		return nil, nil, err
	}
	event, err := s.ownedEvent(ctx, caller, bid.EventID)
	if err != nil {
		return nil, nil, err
	}
	if bid.Status != model.BidPending {
		return nil, nil, apperrors.InvalidState("Bid is no longer pending").
			WithDetails(map[string]any{"bid_id": bid.ID, "status": bid.Status})
	}
	if !event.Status.AcceptsDecisions() {
		return nil, nil, apperrors.InvalidState("Event no longer accepts bid decisions").
			WithDetails(map[string]any{"event_id": event.ID, "status": event.Status})
	}
	return bid, event, nil
}

func (s *marketService) AcceptBid(ctx context.Context, caller auth.Context, bidID string) (*model.AcceptedBid, error) {
	bid, event, err := s.decision(ctx, caller, bidID)
	if err != nil {
		return nil, err
	}

	location := event.Location
	if location == "" {
		location = defaultBookingLocation
	}

	result := &model.AcceptedBid{}
	var rejected int64
	err = s.tx.ExecuteTransaction(ctx, func(ctx context.Context) error {
		accepted, err := s.bids.SetStatus(ctx, bid.ID, model.BidPending, model.BidAccepted)
		if err != nil {
			if errors.Is(err, marketerrors.ErrGuardFailed) {
				return apperrors.InvalidState("Bid is no longer pending").WithDetails(map[string]any{"bid_id": bid.ID})
			}
			return apperrors.Internal("Failed to accept bid", err)
		}

		booking := &model.Booking{
			PerformerID:   bid.PerformerID,
			CustomerID:    event.CustomerID,
			MarketEventID: event.ID,
			BidID:         bid.ID,
			Title:         event.Title,
			Location:      location,
			EventDate:     event.EventDate,
			TotalAmount:   bid.BidAmount,
		}
		if err := s.bookings.CreateFromMarket(ctx, caller, booking); err != nil {
			return err
		}

		filled, err := s.events.Fill(ctx, event.ID, bid.ID, booking.ID)
		if err != nil {
			if errors.Is(err, marketerrors.ErrGuardFailed) {
				return apperrors.InvalidState("Event already has an accepted bid").WithDetails(map[string]any{"event_id": event.ID})
			}
			return apperrors.Internal("Failed to fill market event", err)
		}

		rejected, err = s.bids.RejectPending(ctx, event.ID, bid.ID)
		if err != nil {
			return apperrors.Internal("Failed to reject competing bids", err)
		}

		result.Bid, result.Event, result.Booking = accepted, filled, booking
		return nil
	})
	if err != nil {
		return nil, s.toAppError(err, "Failed to accept bid")
	}

	s.cfg.Log.Info("Bid accepted successfully",
		"bid_id", bid.ID,
		"event_id", event.ID,
		"booking_id", result.Booking.ID,
		"rejected_bids", rejected,
		"by", caller.AccountID,
	)
	s.notifier.Dispatch(ctx, notify.Notification{
		Type:        notify.BidAccepted,
		EventID:     event.ID,
		BidID:       bid.ID,
		BookingID:   result.Booking.ID,
		PerformerID: bid.PerformerID,
		CustomerID:  event.CustomerID,
		Amount:      bid.BidAmount,
		OccurredAt:  s.now().UTC(),
		Data:        map[string]any{"rejected_bids": rejected},
	})
	return result, nil
}

func (s *marketService) RejectBid(ctx context.Context, caller auth.Context, bidID string) (*model.Bid, error) {
	bid, event, err := s.decision(ctx, caller, bidID)
	if err != nil {
		return nil, err
	}

	rejected, err := s.bids.SetStatus(ctx, bid.ID, model.BidPending, model.BidRejected)
	if err != nil {
		return nil, s.bidGuardError(err, bid.ID, "Failed to reject bid")
	}

	s.cfg.Log.Info("Bid rejected", "bid_id", bid.ID, "event_id", event.ID, "by", caller.AccountID)
	s.notifier.Dispatch(ctx, notify.Notification{
		Type:        notify.BidRejected,
		EventID:     event.ID,
		BidID:       bid.ID,
		PerformerID: bid.PerformerID,
		CustomerID:  event.CustomerID,
	})
	return rejected, nil
}

func (s *marketService) WithdrawBid(ctx context.Context, caller auth.Context, bidID string) (*model.Bid, error) {
	bid, err := s.bid(ctx, bidID)
	if err != nil {
		return nil, err
	}
	if !caller.OwnsOrAdmin(bid.PerformerAccountID) {
		return nil, apperrors.Forbidden("Only the bidding performer can withdraw this bid")
	}
	if bid.Status == model.BidWithdrawn {
		return bid, nil
	}
	if bid.Status != model.BidPending {
		return nil, apperrors.InvalidState("Bid is no longer pending").
			WithDetails(map[string]any{"bid_id": bid.ID, "status": bid.Status})
	}

	withdrawn, err := s.bids.SetStatus(ctx, bid.ID, model.BidPending, model.BidWithdrawn)
	if err != nil {
		return nil, s.bidGuardError(err, bid.ID, "Failed to withdraw bid")
	}

	s.cfg.Log.Info("Bid withdrawn", "bid_id", bid.ID, "event_id", bid.EventID, "by", caller.AccountID)
	return withdrawn, nil
}

func (s *marketService) bid(ctx context.Context, id string) (*model.Bid, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Bid ID cannot be empty")
	}
	bid, err := s.bids.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapRepoError(err, id, "Failed to retrieve bid")
	}
	return bid, nil
}

func (s *marketService) bidGuardError(err error, bidID, message string) error {
	if errors.Is(err, marketerrors.ErrGuardFailed) {
		return apperrors.InvalidState("Bid is no longer pending").WithDetails(map[string]any{"bid_id": bidID})
	}
	return s.mapRepoError(err, bidID, message)
}

func (s *marketService) toAppError(err error, message string) error {
	if apperrors.IsAppError(err) {
		return err
	}
	s.cfg.Log.Error(message, "error", err)
	return apperrors.Internal(message, err)
}

func (s *marketService) mapRepoError(err error, id, message string) error {
	switch {
	case errors.Is(err, marketerrors.ErrEventNotFound):
		return apperrors.NotFoundWithID("Market event", id)
	case errors.Is(err, marketerrors.ErrBidNotFound):
		return apperrors.NotFoundWithID("Bid", id)
	case errors.Is(err, marketerrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid ID format")
	case errors.Is(err, marketerrors.ErrGuardFailed):
		return apperrors.InvalidState("Market event changed concurrently").WithDetails(map[string]any{"event_id": id})
	default:
		s.cfg.Log.Error(message, "id", id, "error", err)
		return apperrors.Internal(message, err)
	}
}
