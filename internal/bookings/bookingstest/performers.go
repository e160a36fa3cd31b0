package bookingstest

import (
	"context"
	"sync"

	apperrors "gigmarket/pkg/errors"
	"gigmarket/pkg/model"
)

// Performers is a static performer directory that counts completions
type Performers struct {
	mu         sync.Mutex
	performers map[string]*model.Performer
	completed  map[string]int
}

func NewPerformers(performers ...*model.Performer) *Performers {
	d := &Performers{performers: map[string]*model.Performer{}, completed: map[string]int{}}
	for _, p := range performers {
		cp := *p
		d.performers[p.ID] = &cp
	}
	return d
}

func (d *Performers) Get(ctx context.Context, id string) (*model.Performer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.performers[id]
	if !ok {
		return nil, apperrors.NotFoundWithID("Performer", id)
	}
	cp := *p
	return &cp, nil
}

func (d *Performers) RecordCompletedBooking(ctx context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.performers[id]; !ok {
		return apperrors.NotFoundWithID("Performer", id)
	}
	d.completed[id]++
	return nil
}

func (d *Performers) Completed(id string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.completed[id]
}
