package model

import "time"

type MarketEventStatus string

const (
	EventOpen      MarketEventStatus = "open"
	EventClosed    MarketEventStatus = "closed"
	EventFilled    MarketEventStatus = "filled"
	EventExpired   MarketEventStatus = "expired"
	EventCancelled MarketEventStatus = "cancelled"
)

var eventTransitions = map[MarketEventStatus][]MarketEventStatus{
	EventOpen:      {EventClosed, EventFilled, EventExpired, EventCancelled},
	EventClosed:    {EventFilled, EventExpired, EventCancelled},
	EventFilled:    {},
	EventExpired:   {},
	EventCancelled: {},
}

func (s MarketEventStatus) Valid() bool {
	_, ok := eventTransitions[s]
	return ok
}

func (s MarketEventStatus) IsTerminal() bool {
	next, ok := eventTransitions[s]
	return ok && len(next) == 0
}

func (s MarketEventStatus) CanTransitionTo(next MarketEventStatus) bool {
	for _, allowed := range eventTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// AcceptsDecisions reports whether bids on the event can still be accepted.
func (s MarketEventStatus) AcceptsDecisions() bool {
	return s == EventOpen || s == EventClosed
}

type MarketEvent struct {
	ID          string            `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	CustomerID  string            `json:"customer_id" bson:"customer_id" validate:"required,max=64"`
	Title       string            `json:"title" bson:"title" validate:"required,min=2,max=200"`
	Description string            `json:"description" bson:"description" validate:"required,min=2,max=5000"`
	Location    string            `json:"location,omitempty" bson:"location,omitempty" validate:"omitempty,max=300"`
	EventDate   time.Time         `json:"event_date" bson:"event_date" validate:"required"`
	BudgetMin   float64           `json:"budget_min,omitempty" bson:"budget_min,omitempty" validate:"min=0"`
	BudgetMax   float64           `json:"budget_max,omitempty" bson:"budget_max,omitempty" validate:"min=0"`
	BidDeadline *time.Time        `json:"bid_deadline,omitempty" bson:"bid_deadline,omitempty"`
	Status      MarketEventStatus `json:"status" bson:"status"`
	TotalBids   int64             `json:"total_bids" bson:"total_bids"`

	AcceptedBidID *string `json:"accepted_bid_id" bson:"accepted_bid_id"`
	BookingID     *string `json:"booking_id,omitempty" bson:"booking_id,omitempty"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// Deadline is when bidding closes. Without a bid deadline bidding closes
// when the event day starts.
func (e *MarketEvent) Deadline() time.Time {
	if e.BidDeadline != nil {
		return *e.BidDeadline
	}
	return DateOnly(e.EventDate)
}

// DeadlinePassed reports whether bidding closed by deadline at now.
func (e *MarketEvent) DeadlinePassed(now time.Time) bool {
	return !now.Before(e.Deadline())
}

type MarketEventFilter struct {
	Status     MarketEventStatus
	CustomerID string
}

type BidStatus string

const (
	BidPending   BidStatus = "pending"
	BidAccepted  BidStatus = "accepted"
	BidRejected  BidStatus = "rejected"
	BidWithdrawn BidStatus = "withdrawn"
)

type Bid struct {
	ID                 string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	EventID            string    `json:"event_id" bson:"event_id" validate:"required,mongodb"`
	PerformerID        string    `json:"performer_id" bson:"performer_id" validate:"required,mongodb"`
	PerformerAccountID string    `json:"performer_account_id" bson:"performer_account_id"`
	BidAmount          float64   `json:"bid_amount" bson:"bid_amount" validate:"required,gt=0"`
	Message            string    `json:"message,omitempty" bson:"message,omitempty" validate:"omitempty,max=2000"`
	Status             BidStatus `json:"status" bson:"status"`
	CreatedAt          time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt          time.Time `json:"updated_at" bson:"updated_at"`
}

// AcceptedBid is the outcome of accepting a bid.
type AcceptedBid struct {
	Bid     *Bid         `json:"bid"`
	Event   *MarketEvent `json:"event"`
	Booking *Booking     `json:"booking"`
}
