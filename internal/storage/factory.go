package storage

import (
	"fmt"
	"log"
	"strings"

	"animeportal/internal/config"
)

// NewViewStore returns the view counter selected by cfg.ViewStore. The sqlite
// document store doubles as the counter unless redis is configured.
func NewViewStore(cfg *config.Config, docs *SQLiteStorage) (ViewStore, error) {
	switch strings.ToLower(cfg.ViewStore) {
	case "", "sqlite":
		return docs, nil
	case "redis":
		rv, err := NewRedisViews(RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, err
		}
		log.Printf("Using redis view counter at %s", cfg.RedisAddr)
		return rv, nil
	default:
		return nil, fmt.Errorf("unknown view store %q", cfg.ViewStore)
	}
}
