// Package realtime fans view-count events out to subscribers.
package realtime

import (
	"context"
	"sync"

	"animeportal/internal/models"
)

const subscriberBuffer = 32

// Hub delivers events to cancellable subscriptions. A slow subscriber whose
// buffer is full misses events instead of blocking publishers.
type Hub struct {
	mu      sync.Mutex
	nextID  uint64
	subs    map[uint64]*subscription
	dropped uint64
}

type subscription struct {
	ch     chan models.ViewEvent
	filter map[string]struct{}
	once   sync.Once
}

func NewHub() *Hub {
	return &Hub{subs: make(map[uint64]*subscription)}
}

// Subscribe registers a subscriber for events about articleIDs, or all
// events when none are given. The channel is closed when cancel is called
// or ctx ends, whichever comes first.
func (h *Hub) Subscribe(ctx context.Context, articleIDs ...string) (<-chan models.ViewEvent, func()) {
	sub := &subscription{ch: make(chan models.ViewEvent, subscriberBuffer)}
	if len(articleIDs) > 0 {
		sub.filter = make(map[string]struct{}, len(articleIDs))
		for _, id := range articleIDs {
			sub.filter[id] = struct{}{}
		}
	}

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = sub
	h.mu.Unlock()

	done := make(chan struct{})
	cancel := func() {
		sub.once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			close(sub.ch)
			h.mu.Unlock()
			close(done)
		})
	}

	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-done:
		}
	}()

	return sub.ch, cancel
}

// Publish sends event to every matching subscriber.
func (h *Hub) Publish(event models.ViewEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, sub := range h.subs {
		if sub.filter != nil {
			if _, ok := sub.filter[event.ArticleID]; !ok {
				continue
			}
		}
		select {
		case sub.ch <- event:
		default:
			h.dropped++
		}
	}
}

// Count returns the number of live subscriptions.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Dropped returns how many events were skipped for full subscribers.
func (h *Hub) Dropped() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dropped
}
