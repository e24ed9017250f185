// Package views keeps live article view counts as two layers: the last
// snapshot confirmed by the counter store and the local increments that
// store has not reflected yet. Reads merge both.
package views

import (
	"context"
	"sync"

	"animeportal/internal/models"
)

// Counter is the authoritative view-count store. SeedViews installs starting
// counts for articles the store has never seen and leaves the others alone.
type Counter interface {
	IncrementView(ctx context.Context, articleID string) (int64, error)
	ViewCounts(ctx context.Context) (map[string]int64, error)
	SeedViews(ctx context.Context, counts map[string]int64) error
}

// Overlay merges confirmed counts with pending local increments
type Overlay struct {
	mu        sync.RWMutex
	confirmed map[string]int64
	pending   map[string]int64
	version   uint64
}

func NewOverlay() *Overlay {
	return &Overlay{
		confirmed: make(map[string]int64),
		pending:   make(map[string]int64),
	}
}

// Increment records one local view of articleID and returns the merged count.
func (o *Overlay) Increment(articleID string) int64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pending[articleID]++
	o.version++
	return o.confirmed[articleID] + o.pending[articleID]
}

// ApplySnapshot installs counts confirmed by the store. Growth of a confirmed
// count absorbs that many pending increments. Counts never go down: a
// snapshot lower than the known value is ignored for that article. It returns
// the articles whose merged count changed, with their new value.
func (o *Overlay) ApplySnapshot(counts map[string]int64) map[string]int64 {
	o.mu.Lock()
	defer o.mu.Unlock()

	changed := make(map[string]int64)
	for id, count := range counts {
		prev := o.confirmed[id]
		if count <= prev {
			continue
		}
		before := prev + o.pending[id]
		growth := count - prev
		o.confirmed[id] = count
		if p := o.pending[id]; p > 0 {
			if growth >= p {
				delete(o.pending, id)
			} else {
				o.pending[id] = p - growth
			}
		}
		if after := o.confirmed[id] + o.pending[id]; after != before {
			changed[id] = after
		}
	}
	if len(changed) > 0 {
		o.version++
	}
	return changed
}

// Get returns the merged count of articleID and whether anything is known.
func (o *Overlay) Get(articleID string) (int64, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	c, okC := o.confirmed[articleID]
	p, okP := o.pending[articleID]
	return c + p, okC || okP
}

// Pending returns the local increments not yet confirmed for articleID.
func (o *Overlay) Pending(articleID string) int64 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.pending[articleID]
}

// Version changes whenever a merged count changes.
func (o *Overlay) Version() uint64 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.version
}

// Merge returns a copy of articles with known counts replacing the seeded
// ones. Articles the overlay knows nothing about keep their value.
func (o *Overlay) Merge(articles []models.Article) []models.Article {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]models.Article, len(articles))
	copy(out, articles)
	for i := range out {
		id := out[i].ID
		c, okC := o.confirmed[id]
		p := o.pending[id]
		switch {
		case okC:
			out[i].Views = c + p
		case p > 0:
			out[i].Views += p
		}
	}
	return out
}
