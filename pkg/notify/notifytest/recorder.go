// Package notifytest provides a recording dispatcher for tests.
package notifytest

import (
	"context"
	"sync"

	"gigmarket/pkg/notify"
)

type Recorder struct {
	mu   sync.Mutex
	sent []notify.Notification
}

func (r *Recorder) Dispatch(_ context.Context, n notify.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
}

func (r *Recorder) Sent() []notify.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.Notification(nil), r.sent...)
}

// Types lists the dispatched notification types in order
func (r *Recorder) Types() []notify.Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]notify.Type, 0, len(r.sent))
	for _, n := range r.sent {
		types = append(types, n.Type)
	}
	return types
}
