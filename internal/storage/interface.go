package storage

import (
	"context"

	"animeportal/internal/models"
)

// ViewStore is the authoritative view counter shared by every reader.
type ViewStore interface {
	IncrementView(ctx context.Context, articleID string) (int64, error)
	ViewCounts(ctx context.Context) (map[string]int64, error)
	SeedViews(ctx context.Context, counts map[string]int64) error
	Close() error
}

// Storage defines the document store behind the portal
type Storage interface {
	ViewStore

	// Preference documents
	LoadPreferences(ctx context.Context, userID string) (*models.Preferences, error)
	SavePreferences(ctx context.Context, p *models.Preferences) error

	// Comments
	AddComment(ctx context.Context, c *models.Comment) error
	ListComments(ctx context.Context, articleID string) ([]models.Comment, error)

	// Archived article snapshot
	SaveArticles(ctx context.Context, articles []models.Article) error
	LoadArticles(ctx context.Context) ([]models.Article, error)

	// Maintenance
	OptimizeDatabase() error
	GetDatabaseStats(ctx context.Context) (map[string]interface{}, error)
}
