// Copyright (c) 2024 cblomart
// Licensed under the MIT License

package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	_ "animeportal/docs"
	"animeportal/internal/api"
	"animeportal/internal/cache"
	"animeportal/internal/catalog"
	"animeportal/internal/config"
	"animeportal/internal/content"
	"animeportal/internal/metrics"
	"animeportal/internal/models"
	"animeportal/internal/poller"
	"animeportal/internal/prefs"
	"animeportal/internal/realtime"
	"animeportal/internal/storage"
	"animeportal/internal/taxonomy"
	"animeportal/internal/views"
)

func main() {
	cfg := config.Load()

	if err := taxonomy.ValidateAliases(); err != nil {
		log.Fatal("Invalid taxonomy:", err)
	}

	cacheManager := cache.NewManager(cfg.CacheTTL)

	// Document store: preferences, comments, archived articles
	store, err := storage.NewSQLiteStorage(cfg.DataDir)
	if err != nil {
		log.Fatal("Failed to initialize storage:", err)
	}
	defer store.Close()

	viewStore, err := storage.NewViewStore(cfg, store)
	if err != nil {
		log.Fatal("Failed to initialize view store:", err)
	}
	if viewStore != storage.ViewStore(store) {
		defer viewStore.Close()
	}

	m := metrics.New()
	hub := realtime.NewHub()
	cat := catalog.New(cacheManager, views.NewOverlay(), viewStore, hub, cfg.CacheTTL)

	loader := content.NewLoader(content.NewDetector())
	backgroundPoller := poller.New(cat, cacheManager, store, loader, cfg.ContentDir, cfg.PollInterval)
	backgroundPoller.SetMetrics(m)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Printf("Loading content from %s...", cfg.ContentDir)
	if err := backgroundPoller.Bootstrap(ctx); err != nil {
		log.Printf("Warning: starting without articles: %v", err)
	}
	if result := backgroundPoller.LastResult(); result != nil {
		for _, f := range result.Failures {
			log.Printf("Warning: skipped %s: %s", f.File, f.Error)
		}
		log.Printf("Loaded %d articles (%d failures, %d warnings)",
			len(result.Articles), len(result.Failures), len(result.Warnings))
	}

	backgroundPoller.Start()

	// Cross-instance view events when counts live in redis
	if rv, ok := viewStore.(*storage.RedisViews); ok {
		go func() {
			err := rv.Watch(ctx, func(ev models.ViewEvent) {
				cat.ApplyViewSnapshot(map[string]int64{ev.ArticleID: ev.Views})
			})
			if err != nil {
				log.Printf("Warning: view event subscription ended: %v", err)
			}
		}()
	}

	localPrefs, err := prefs.NewFileStore(filepath.Join(cfg.DataDir, "preferences"))
	if err != nil {
		log.Fatal("Failed to initialize preference store:", err)
	}
	sessions := prefs.NewManager(cacheManager, localPrefs, store, cfg.CacheTTL)

	server := api.NewServer(cat, backgroundPoller, store, sessions, hub, m, cfg)

	log.Printf("Starting AnimePortal server on port %d", cfg.Port)
	log.Printf("Data directory: %s", cfg.DataDir)
	log.Printf("Cache TTL: %v", cfg.CacheTTL)
	log.Printf("Content polling interval: %v", cfg.PollInterval)
	log.Printf("View store: %s", cfg.ViewStore)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Println("Received shutdown signal, stopping services...")
		backgroundPoller.Stop()
		cancel()
	}()

	if err := server.StartWithContext(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal("Failed to start server:", err)
	}
}
