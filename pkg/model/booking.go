package model

import (
	"time"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCompleted BookingStatus = "completed"
	BookingCancelled BookingStatus = "cancelled"
	BookingRefunded  BookingStatus = "refunded"
	BookingDisputed  BookingStatus = "disputed"
)

var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingPending:   {BookingConfirmed, BookingCancelled, BookingRefunded, BookingDisputed},
	BookingConfirmed: {BookingCompleted, BookingCancelled, BookingRefunded, BookingDisputed},
	BookingDisputed:  {BookingConfirmed, BookingCompleted, BookingCancelled, BookingRefunded},
	BookingCompleted: {},
	BookingCancelled: {},
	BookingRefunded:  {},
}

func (s BookingStatus) Valid() bool {
	_, ok := bookingTransitions[s]
	return ok
}

func (s BookingStatus) IsTerminal() bool {
	next, ok := bookingTransitions[s]
	return ok && len(next) == 0
}

func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	for _, allowed := range bookingTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type EscrowStatus string

const (
	EscrowPending  EscrowStatus = "pending"
	EscrowHeld     EscrowStatus = "held"
	EscrowFullHeld EscrowStatus = "full_held"
	EscrowReleased EscrowStatus = "released"
	EscrowRefunded EscrowStatus = "refunded"
)

func (s EscrowStatus) Settled() bool {
	return s == EscrowReleased || s == EscrowRefunded
}

type BookingSource string

const (
	SourceDirect BookingSource = "direct"
	SourceMarket BookingSource = "market"
)

type Booking struct {
	ID                 string        `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	PerformerID        string        `json:"performer_id" bson:"performer_id" validate:"required,mongodb"`
	PerformerAccountID string        `json:"performer_account_id" bson:"performer_account_id"`
	CustomerID         string        `json:"customer_id" bson:"customer_id" validate:"required,max=64"`
	Source             BookingSource `json:"source" bson:"source" validate:"omitempty,oneof=direct market"`
	MarketEventID      string        `json:"market_event_id,omitempty" bson:"market_event_id,omitempty" validate:"omitempty,mongodb"`
	BidID              string        `json:"bid_id,omitempty" bson:"bid_id,omitempty" validate:"omitempty,mongodb"`

	Title     string    `json:"title" bson:"title" validate:"required,min=2,max=200"`
	Location  string    `json:"location" bson:"location" validate:"required,min=2,max=300"`
	EventDate time.Time `json:"event_date" bson:"event_date" validate:"required"`
	EventTime string    `json:"event_time,omitempty" bson:"event_time,omitempty" validate:"omitempty,datetime=15:04"`

	TotalAmount      float64 `json:"total_amount" bson:"total_amount" validate:"required,gt=0"`
	DepositAmount    float64 `json:"deposit_amount" bson:"deposit_amount"`
	CommissionRate   float64 `json:"commission_rate" bson:"commission_rate"`
	CommissionAmount float64 `json:"commission_amount" bson:"commission_amount"`
	PayoutAmount     float64 `json:"payout_amount" bson:"payout_amount"`

	Status       BookingStatus `json:"status" bson:"status"`
	EscrowStatus EscrowStatus  `json:"escrow_status" bson:"escrow_status"`

	PerformerConfirmed          bool `json:"performer_confirmed" bson:"performer_confirmed"`
	CustomerConfirmedCompletion bool `json:"customer_confirmed_completion" bson:"customer_confirmed_completion"`

	CompletionDate     *time.Time `json:"completion_date,omitempty" bson:"completion_date,omitempty"`
	AutoReleaseDate    *time.Time `json:"auto_release_date,omitempty" bson:"auto_release_date,omitempty"`
	PayoutDate         *time.Time `json:"payout_date,omitempty" bson:"payout_date,omitempty"`
	CancellationDate   *time.Time `json:"cancellation_date,omitempty" bson:"cancellation_date,omitempty"`
	CancellationReason string     `json:"cancellation_reason,omitempty" bson:"cancellation_reason,omitempty"`
	CancelledBy        string     `json:"cancelled_by,omitempty" bson:"cancelled_by,omitempty"`

	Version   int64     `json:"version" bson:"version"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// StatusChange is a compare-and-swap write on a booking. The write applies
// only while the stored status and version still equal From and Version.
type StatusChange struct {
	From    BookingStatus
	To      BookingStatus
	Version int64
	At      time.Time

	CompletionDate     *time.Time
	AutoReleaseDate    *time.Time
	CancellationReason string
	CancelledBy        string
	EscrowStatus       EscrowStatus
}

type StatusUpdateRequest struct {
	Status string `json:"status"`
}

type CancelRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type BulkReleaseRequest struct {
	BookingIDs []string `json:"booking_ids"`
}

type EscrowHoldRequest struct {
	Full bool `json:"full"`
}
