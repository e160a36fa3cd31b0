// Package markettest provides in-memory event and bid repositories with the
// same guard semantics as the Mongo repositories, plus a transaction
// manager that serializes transactions and rolls them back on error.
package markettest

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	marketerrors "gigmarket/internal/market/errors"
	"gigmarket/internal/market/repository"
	mongotx "gigmarket/pkg/db/mongo"
	"gigmarket/pkg/model"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	_ repository.EventRepository = (*Events)(nil)
	_ repository.BidRepository   = (*Bids)(nil)
	_ mongotx.TransactionManager = (*TxManager)(nil)
)

// Store backs Events and Bids with one lock so a TxManager can snapshot both.
type Store struct {
	mu     sync.Mutex
	events map[string]*model.MarketEvent
	bids   map[string]*model.Bid
}

func NewStore() *Store {
	return &Store{
		events: map[string]*model.MarketEvent{},
		bids:   map[string]*model.Bid{},
	}
}

func (s *Store) Events() *Events { return &Events{s: s} }
func (s *Store) Bids() *Bids { return &Bids{s: s} }
func (s *Store) Tx() *TxManager { return &TxManager{s: s} }

// PutEvent stores a copy of e, assigning an id when it has none
func (s *Store) PutEvent(e *model.MarketEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == "" {
		e.ID = primitive.NewObjectID().Hex()
	}
	cp := *e
	s.events[e.ID] = &cp
}

func (s *Store) PutBid(b *model.Bid) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.ID == "" {
		b.ID = primitive.NewObjectID().Hex()
	}
	cp := *b
	s.bids[b.ID] = &cp
}

func (s *Store) Event(id string) *model.MarketEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return nil
	}
	cp := *e
	return &cp
}

func (s *Store) Bid(id string) *model.Bid {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bids[id]
	if !ok {
		return nil
	}
	cp := *b
	return &cp
}

// BidCount counts stored bids in status, or all bids when status is empty
func (s *Store) BidCount(status model.BidStatus) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, b := range s.bids {
		if status == "" || b.Status == status {
			n++
		}
	}
	return n
}

func (s *Store) snapshot() (map[string]*model.MarketEvent, map[string]*model.Bid) {
	s.mu.Lock()
	defer s.mu.Unlock()
	events := make(map[string]*model.MarketEvent, len(s.events))
	for id, e := range s.events {
		cp := *e
		events[id] = &cp
	}
	bids := make(map[string]*model.Bid, len(s.bids))
	for id, b := range s.bids {
		cp := *b
		bids[id] = &cp
	}
	return events, bids
}

func (s *Store) restore(events map[string]*model.MarketEvent, bids map[string]*model.Bid) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = events
	s.bids = bids
}

func checkID(id string) error {
	if !primitive.IsValidObjectID(id) {
		return fmt.Errorf("%w: %s", marketerrors.ErrInvalidID, id)
	}
	return nil
}

func stamp() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// ────────────────────────────────────────────────
// Transactions
// ────────────────────────────────────────────────

type TxManager struct {
	s       *Store
	mu      sync.Mutex
	commits int
	aborts  int
}

func (m *TxManager) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	events, bids := m.s.snapshot()
	if err := fn(ctx); err != nil {
		m.s.restore(events, bids)
		m.aborts++
		return err
	}
	m.commits++
	return nil
}

func (m *TxManager) Commits() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.commits
}

func (m *TxManager) Aborts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.aborts
}

// ────────────────────────────────────────────────
// Events
// ────────────────────────────────────────────────

type Events struct {
	s *Store
}

func (r *Events) Create(ctx context.Context, event *model.MarketEvent) error {
	ts := stamp()
	event.CreatedAt = ts
	event.UpdatedAt = ts
	event.ID = ""
	r.s.PutEvent(event)
	return nil
}

func (r *Events) FindByID(ctx context.Context, id string) (*model.MarketEvent, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	e := r.s.Event(id)
	if e == nil {
		return nil, marketerrors.ErrEventNotFound
	}
	return e, nil
}

func (r *Events) matching(filter model.MarketEventFilter) []*model.MarketEvent {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*model.MarketEvent{}
	for _, e := range r.s.events {
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		if filter.CustomerID != "" && e.CustomerID != filter.CustomerID {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (r *Events) FindAll(ctx context.Context, filter model.MarketEventFilter, limit int, offset int64) ([]*model.MarketEvent, error) {
	return page(r.matching(filter), limit, offset), nil
}

func (r *Events) Count(ctx context.Context, filter model.MarketEventFilter) (int64, error) {
	return int64(len(r.matching(filter))), nil
}

func (r *Events) IncrementBids(ctx context.Context, id string, now time.Time) error {
	if err := checkID(id); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.events[id]
	if !ok || e.Status != model.EventOpen || e.DeadlinePassed(now) {
		return marketerrors.ErrEventNotOpen
	}
	e.TotalBids++
	e.UpdatedAt = stamp()
	return nil
}

func (r *Events) Fill(ctx context.Context, id, bidID, bookingID string) (*model.MarketEvent, error) {
	return r.update(id, func(e *model.MarketEvent) bool {
		if !e.Status.AcceptsDecisions() || e.AcceptedBidID != nil {
			return false
		}
		e.Status = model.EventFilled
		e.AcceptedBidID = &bidID
		e.BookingID = &bookingID
		return true
	})
}

func (r *Events) SetStatus(ctx context.Context, id string, from []model.MarketEventStatus, status model.MarketEventStatus) (*model.MarketEvent, error) {
	return r.update(id, func(e *model.MarketEvent) bool {
		if !slices.Contains(from, e.Status) || e.AcceptedBidID != nil {
			return false
		}
		e.Status = status
		return true
	})
}

func (r *Events) FindExpired(ctx context.Context, now time.Time, limit int) ([]*model.MarketEvent, error) {
	var out []*model.MarketEvent
	for _, e := range r.matching(model.MarketEventFilter{}) {
		if e.Status.AcceptsDecisions() && e.AcceptedBidID == nil && e.DeadlinePassed(now) {
			out = append(out, e)
		}
	}
	return page(out, limit, 0), nil
}

func (r *Events) update(id string, apply func(*model.MarketEvent) bool) (*model.MarketEvent, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.events[id]
	if !ok {
		return nil, marketerrors.ErrGuardFailed
	}
	next := *e
	if !apply(&next) {
		return nil, marketerrors.ErrGuardFailed
	}
	next.UpdatedAt = stamp()
	r.s.events[id] = &next
	cp := next
	return &cp, nil
}

// ────────────────────────────────────────────────
// Bids
// ────────────────────────────────────────────────

type Bids struct {
	s *Store
}

func (r *Bids) Create(ctx context.Context, bid *model.Bid) error {
	r.s.mu.Lock()
	for _, b := range r.s.bids {
		if b.EventID == bid.EventID && b.PerformerID == bid.PerformerID && b.Status == model.BidPending {
			r.s.mu.Unlock()
			return marketerrors.ErrDuplicateBid
		}
	}
	r.s.mu.Unlock()

	ts := stamp()
	bid.CreatedAt = ts
	bid.UpdatedAt = ts
	bid.ID = ""
	r.s.PutBid(bid)
	return nil
}

func (r *Bids) FindByID(ctx context.Context, id string) (*model.Bid, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	b := r.s.Bid(id)
	if b == nil {
		return nil, marketerrors.ErrBidNotFound
	}
	return b, nil
}

func (r *Bids) where(match func(*model.Bid) bool, less func(a, b *model.Bid) bool) []*model.Bid {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*model.Bid{}
	for _, b := range r.s.bids {
		if match(b) {
			cp := *b
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func (r *Bids) FindByEvent(ctx context.Context, eventID string) ([]*model.Bid, error) {
	return r.where(
		func(b *model.Bid) bool { return b.EventID == eventID },
		func(a, b *model.Bid) bool {
			if a.BidAmount != b.BidAmount {
				return a.BidAmount < b.BidAmount
			}
			return a.CreatedAt.Before(b.CreatedAt)
		},
	), nil
}

func (r *Bids) byPerformer(performerID string) []*model.Bid {
	return r.where(
		func(b *model.Bid) bool { return b.PerformerID == performerID },
		func(a, b *model.Bid) bool { return a.CreatedAt.After(b.CreatedAt) },
	)
}

func (r *Bids) FindByPerformer(ctx context.Context, performerID string, limit int, offset int64) ([]*model.Bid, error) {
	return page(r.byPerformer(performerID), limit, offset), nil
}

func (r *Bids) CountByPerformer(ctx context.Context, performerID string) (int64, error) {
	return int64(len(r.byPerformer(performerID))), nil
}

func (r *Bids) HasPending(ctx context.Context, eventID, performerID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, b := range r.s.bids {
		if b.EventID == eventID && b.PerformerID == performerID && b.Status == model.BidPending {
			return true, nil
		}
	}
	return false, nil
}

func (r *Bids) SetStatus(ctx context.Context, id string, from, to model.BidStatus) (*model.Bid, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.bids[id]
	if !ok || b.Status != from {
		return nil, marketerrors.ErrGuardFailed
	}
	next := *b
	next.Status = to
	next.UpdatedAt = stamp()
	r.s.bids[id] = &next
	cp := next
	return &cp, nil
}

func (r *Bids) RejectPending(ctx context.Context, eventID, keepBidID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, b := range r.s.bids {
		if b.EventID != eventID || b.Status != model.BidPending || id == keepBidID {
			continue
		}
		next := *b
		next.Status = model.BidRejected
		next.UpdatedAt = stamp()
		r.s.bids[id] = &next
		n++
	}
	return n, nil
}

func page[T any](items []T, limit int, offset int64) []T {
	if offset >= int64(len(items)) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
