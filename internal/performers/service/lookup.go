package service

import (
	"context"

	"gigmarket/pkg/cache"
	"gigmarket/pkg/model"
)

// Lookup resolves performers for the booking and market engines
type Lookup interface {
	Get(ctx context.Context, id string) (*model.Performer, error)
	RecordCompletedBooking(ctx context.Context, id string) error
}

type cachedLookup struct {
	svc   PerformerService
	cache cache.Cache[*model.Performer]
}

// NewCachedLookup reads through c. Returned performers are copies, so
// callers may not mutate cached entries.
func NewCachedLookup(svc PerformerService, c cache.Cache[*model.Performer]) Lookup {
	if c == nil {
		c = cache.Nop[*model.Performer]{}
	}
	return &cachedLookup{svc: svc, cache: c}
}

func (l *cachedLookup) Get(ctx context.Context, id string) (*model.Performer, error) {
	if p, ok := l.cache.Get(ctx, id); ok && p != nil {
		cp := *p
		return &cp, nil
	}

	p, err := l.svc.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	cp := *p
	l.cache.Set(ctx, id, &cp)
	return p, nil
}

func (l *cachedLookup) RecordCompletedBooking(ctx context.Context, id string) error {
	defer l.cache.Delete(ctx, id)
	return l.svc.RecordCompletedBooking(ctx, id)
}
