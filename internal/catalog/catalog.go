// Package catalog holds the article collection as an immutable snapshot that
// is replaced wholesale on reload. Live view counts are merged in at read
// time from a views.Overlay.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"animeportal/internal/cache"
	"animeportal/internal/filter"
	"animeportal/internal/models"
	"animeportal/internal/realtime"
	"animeportal/internal/views"
)

var ErrNotFound = errors.New("article not found")

type snapshot struct {
	articles []models.Article
	byID     map[string]int
	info     models.CatalogInfo
}

type Catalog struct {
	current      atomic.Pointer[snapshot]
	versions     atomic.Uint64
	overlay      *views.Overlay
	cacheManager *cache.Manager
	counter      views.Counter
	hub          *realtime.Hub
	ttl          time.Duration
}

// New returns an empty catalog. counter and hub may be nil.
func New(cacheManager *cache.Manager, overlay *views.Overlay, counter views.Counter, hub *realtime.Hub, ttl time.Duration) *Catalog {
	if overlay == nil {
		overlay = views.NewOverlay()
	}
	c := &Catalog{
		overlay:      overlay,
		cacheManager: cacheManager,
		counter:      counter,
		hub:          hub,
		ttl:          ttl,
	}
	c.current.Store(&snapshot{byID: map[string]int{}})
	return c
}

// Replace installs articles as the new snapshot. The slice is copied and must
// already be in display order.
func (c *Catalog) Replace(articles []models.Article, source string) models.CatalogInfo {
	own := make([]models.Article, len(articles))
	copy(own, articles)
	byID := make(map[string]int, len(own))
	for i := range own {
		byID[own[i].ID] = i
	}

	info := models.CatalogInfo{
		Version:      c.versions.Add(1),
		ArticleCount: len(own),
		LoadedAt:     time.Now(),
		Source:       source,
	}
	c.current.Store(&snapshot{articles: own, byID: byID, info: info})

	if c.cacheManager != nil {
		c.cacheManager.DeletePrefix("query:")
	}
	log.Printf("Catalog replaced: %d articles from %s (version %d)", info.ArticleCount, source, info.Version)
	return info
}

func (c *Catalog) Info() models.CatalogInfo {
	return c.current.Load().info
}

// Articles returns every article with live view counts, in snapshot order.
func (c *Catalog) Articles() []models.Article {
	return c.overlay.Merge(c.current.Load().articles)
}

// Article returns one article with its live view count.
func (c *Catalog) Article(id string) (*models.Article, error) {
	snap := c.current.Load()
	i, ok := snap.byID[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	merged := c.overlay.Merge(snap.articles[i : i+1])
	return &merged[0], nil
}

// Query filters, sorts and paginates the collection. Results without a
// bookmark filter are cached per snapshot and overlay version.
func (c *Catalog) Query(f models.FilterState, bookmarks map[string]struct{}, offset, limit int) (models.ArticlePage, error) {
	snap := c.current.Load()
	load := func() ([]models.Article, error) {
		return filter.Apply(c.overlay.Merge(snap.articles), f, bookmarks), nil
	}

	var matched []models.Article
	if f.BookmarkOnly || c.cacheManager == nil {
		matched, _ = load()
	} else {
		key := fmt.Sprintf("query:%d:%d:%s", snap.info.Version, c.overlay.Version(), f.Key())
		var err error
		matched, err = cache.Remember(c.cacheManager, key, c.ttl, load)
		if err != nil {
			return models.ArticlePage{}, err
		}
	}
	return filter.Paginate(matched, offset, limit), nil
}

// RecordView counts one view of id. The local count is bumped and published
// immediately; the remote write follows and its failure is only logged.
func (c *Catalog) RecordView(ctx context.Context, id string) (int64, error) {
	if _, ok := c.current.Load().byID[id]; !ok {
		return 0, fmt.Errorf("%s: %w", id, ErrNotFound)
	}

	c.overlay.Increment(id)
	count := c.mergedViews(id)
	c.publish(id, count)

	if c.counter == nil {
		return count, nil
	}
	confirmed, err := c.counter.IncrementView(ctx, id)
	if err != nil {
		log.Printf("Warning: failed to record view of %s: %v", id, err)
		return count, nil
	}
	if changed := c.overlay.ApplySnapshot(map[string]int64{id: confirmed}); len(changed) > 0 {
		count = changed[id]
		c.publish(id, count)
	}
	return count, nil
}

// ApplyViewSnapshot installs counts confirmed by the store and publishes the
// articles whose merged count changed.
func (c *Catalog) ApplyViewSnapshot(counts map[string]int64) map[string]int64 {
	changed := c.overlay.ApplySnapshot(counts)
	for id, n := range changed {
		c.publish(id, n)
	}
	return changed
}

// SyncViews seeds the counter with the placeholder counts of the current
// snapshot and pulls the confirmed counts back.
func (c *Catalog) SyncViews(ctx context.Context) (map[string]int64, error) {
	if c.counter == nil {
		return nil, nil
	}
	snap := c.current.Load()
	seeds := make(map[string]int64, len(snap.articles))
	for i := range snap.articles {
		seeds[snap.articles[i].ID] = snap.articles[i].Views
	}
	if err := c.counter.SeedViews(ctx, seeds); err != nil {
		return nil, fmt.Errorf("failed to seed view counts: %w", err)
	}
	return c.RefreshViews(ctx)
}

// RefreshViews pulls the confirmed counts from the counter and applies them.
func (c *Catalog) RefreshViews(ctx context.Context) (map[string]int64, error) {
	if c.counter == nil {
		return nil, nil
	}
	counts, err := c.counter.ViewCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch view counts: %w", err)
	}
	return c.ApplyViewSnapshot(counts), nil
}

// Subscribers returns the number of live view-count subscriptions.
func (c *Catalog) Subscribers() int {
	if c.hub == nil {
		return 0
	}
	return c.hub.Count()
}

func (c *Catalog) mergedViews(id string) int64 {
	a, err := c.Article(id)
	if err != nil {
		return 0
	}
	return a.Views
}

func (c *Catalog) publish(id string, count int64) {
	if c.hub == nil {
		return
	}
	c.hub.Publish(models.ViewEvent{ArticleID: id, Views: count, At: time.Now().UTC()})
}
