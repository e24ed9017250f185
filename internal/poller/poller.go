package poller

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"animeportal/internal/cache"
	"animeportal/internal/catalog"
	"animeportal/internal/content"
	"animeportal/internal/metrics"
	"animeportal/internal/models"
)

const (
	TargetContent = "content"
	TargetViews   = "views"
)

// Archive keeps the last good article collection for starts where the
// content directory cannot be read.
type Archive interface {
	SaveArticles(ctx context.Context, articles []models.Article) error
	LoadArticles(ctx context.Context) ([]models.Article, error)
}

type Poller struct {
	catalog      *catalog.Catalog
	cacheManager *cache.Manager
	archive      Archive
	loader       *content.Loader
	metrics      *metrics.Metrics
	contentDir   string
	pollInterval time.Duration
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	pollMu       sync.Mutex
	mu           sync.RWMutex
	lastPolled   map[string]time.Time
	isPolling    bool
	fingerprint  string
	lastResult   *content.Result
	lastCache    cache.Stats
}

func New(cat *catalog.Catalog, cacheManager *cache.Manager, archive Archive, loader *content.Loader, contentDir string, pollInterval time.Duration) *Poller {
	ctx, cancel := context.WithCancel(context.Background())
	return &Poller{
		catalog:      cat,
		cacheManager: cacheManager,
		archive:      archive,
		loader:       loader,
		contentDir:   contentDir,
		pollInterval: pollInterval,
		ctx:          ctx,
		cancel:       cancel,
		lastPolled:   make(map[string]time.Time),
	}
}

// SetMetrics enables instrumentation of reloads and view snapshots.
func (p *Poller) SetMetrics(m *metrics.Metrics) {
	p.metrics = m
}

// Bootstrap performs the first load. When the content directory yields no
// articles the archived snapshot is installed instead.
func (p *Poller) Bootstrap(ctx context.Context) error {
	err := p.reloadContent(ctx, true)
	if err == nil && p.catalog.Info().ArticleCount > 0 {
		p.syncViews(ctx)
		return nil
	}
	if err != nil {
		log.Printf("Warning: initial content load failed: %v", err)
	}
	if p.archive == nil {
		return err
	}

	articles, aerr := p.archive.LoadArticles(ctx)
	if aerr != nil {
		return fmt.Errorf("failed to load archived articles: %w", aerr)
	}
	if len(articles) > 0 {
		p.catalog.Replace(articles, "archive")
		log.Printf("Serving %d archived articles", len(articles))
	}
	p.syncViews(ctx)
	return nil
}

func (p *Poller) Start() {
	p.mu.Lock()
	if p.isPolling {
		p.mu.Unlock()
		return
	}
	p.isPolling = true
	p.mu.Unlock()

	log.Printf("Starting content poller with interval: %v", p.pollInterval)

	p.wg.Add(1)
	go p.pollLoop()
}

func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.isPolling {
		p.mu.Unlock()
		return
	}
	p.isPolling = false
	p.mu.Unlock()

	log.Println("Stopping content poller...")
	p.cancel()
	p.wg.Wait()
	log.Println("Content poller stopped")
}

func (p *Poller) pollLoop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.pollAll()
		case <-p.ctx.Done():
			return
		}
	}
}

func (p *Poller) pollAll() {
	if err := p.reloadContent(p.ctx, false); err != nil {
		log.Printf("Error reloading content: %v", err)
	}
	p.refreshViews(p.ctx)
}

// reloadContent re-ingests the content tree when its fingerprint changed, or
// unconditionally when force is set.
func (p *Poller) reloadContent(ctx context.Context, force bool) error {
	p.pollMu.Lock()
	defer p.pollMu.Unlock()
	defer p.markPolled(TargetContent)

	fp, err := content.Fingerprint(p.contentDir)
	if err != nil {
		p.metrics.ObserveReload("error", 0, 0, 0, 0)
		return err
	}
	p.mu.RLock()
	unchanged := fp == p.fingerprint
	p.mu.RUnlock()
	if unchanged && !force {
		return nil
	}

	start := time.Now()
	result, err := p.loader.LoadDir(ctx, p.contentDir)
	if err != nil {
		p.metrics.ObserveReload("error", 0, 0, 0, time.Since(start))
		return err
	}
	p.catalog.Replace(result.Articles, "content")
	p.metrics.ObserveReload("ok", len(result.Articles), len(result.Failures), len(result.Warnings), time.Since(start))

	p.mu.Lock()
	p.fingerprint = fp
	p.lastResult = result
	p.mu.Unlock()

	if p.archive != nil && len(result.Articles) > 0 {
		if err := p.archive.SaveArticles(ctx, result.Articles); err != nil {
			log.Printf("Warning: failed to archive articles: %v", err)
		}
	}
	if !force {
		p.syncViews(ctx)
	}
	return nil
}

// syncViews seeds new articles into the counter and applies its counts.
func (p *Poller) syncViews(ctx context.Context) {
	changed, err := p.catalog.SyncViews(ctx)
	if err != nil {
		log.Printf("Warning: failed to sync view counts: %v", err)
		return
	}
	p.metrics.ObserveViewSnapshot(len(changed), p.catalog.Subscribers())
}

func (p *Poller) refreshViews(ctx context.Context) {
	defer p.markPolled(TargetViews)

	changed, err := p.catalog.RefreshViews(ctx)
	if err != nil {
		log.Printf("Warning: failed to refresh view counts: %v", err)
		return
	}
	if len(changed) > 0 {
		log.Printf("View snapshot changed %d articles", len(changed))
	}
	p.metrics.ObserveViewSnapshot(len(changed), p.catalog.Subscribers())

	if p.cacheManager != nil {
		stats := p.cacheManager.Stats()
		p.metrics.ObserveCache(stats.Hits, stats.Misses, p.lastCache.Hits, p.lastCache.Misses)
		p.lastCache = stats
	}
}

func (p *Poller) markPolled(target string) {
	p.mu.Lock()
	p.lastPolled[target] = time.Now()
	p.mu.Unlock()
}

func (p *Poller) GetLastPolledTime() map[string]time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()

	result := make(map[string]time.Time)
	for target, t := range p.lastPolled {
		result[target] = t
	}
	return result
}

func (p *Poller) IsPolling() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.isPolling
}

// LastResult returns the outcome of the last successful content load.
func (p *Poller) LastResult() *content.Result {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastResult
}

// ForcePoll runs one poll of target ("content", "views" or "" for both)
// immediately. A forced content poll reloads even an unchanged tree.
func (p *Poller) ForcePoll(ctx context.Context, target string) error {
	log.Printf("Force polling target: %q", target)

	switch target {
	case TargetContent:
		if err := p.reloadContent(ctx, true); err != nil {
			return err
		}
		p.syncViews(ctx)
	case TargetViews:
		p.refreshViews(ctx)
	case "":
		if err := p.reloadContent(ctx, true); err != nil {
			return err
		}
		p.syncViews(ctx)
		p.refreshViews(ctx)
	default:
		return fmt.Errorf("target '%s' not found", target)
	}
	return nil
}
