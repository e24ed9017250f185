package storage

import (
	"bytes"
	"compress/gzip"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"animeportal/internal/locale"
	"animeportal/internal/models"
	"animeportal/internal/prefs"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

type SQLiteStorage struct {
	db    *sql.DB
	mutex sync.RWMutex
}

func NewSQLiteStorage(dataDir string) (*SQLiteStorage, error) {
	// Ensure data directory exists with secure permissions (0750)
	if err := os.MkdirAll(dataDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "animeportal.db")
	log.Printf("Initializing database at: %s", dbPath)

	needsRecreation := false
	if os.Getenv("FORCE_DB_RECREATE") == "true" {
		log.Printf("Force database recreation requested via environment variable")
		needsRecreation = true
	} else if _, err := os.Stat(dbPath); err == nil {
		if !validateSchema(dbPath) {
			log.Printf("Database schema validation failed, will recreate database")
			needsRecreation = true
		}
	}

	if needsRecreation {
		if err := os.Remove(dbPath); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to remove existing database: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal=WAL&_synchronous=NORMAL&_busy_timeout=30000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA busy_timeout = 30000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			log.Printf("Warning: failed to set %s: %v", pragma, err)
		}
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func createTables(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS article_views (
		article_id TEXT PRIMARY KEY,
		views INTEGER NOT NULL DEFAULT 0,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS preferences (
		user_id TEXT PRIMARY KEY,
		document TEXT NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS comments (
		id TEXT PRIMARY KEY,
		article_id TEXT NOT NULL,
		parent_id TEXT,
		user_id TEXT NOT NULL,
		author TEXT,
		body TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_comments_article ON comments(article_id, created_at);

	-- Last successfully loaded article collection; bodies are gzip-compressed
	CREATE TABLE IF NOT EXISTS archived_articles (
		article_id TEXT PRIMARY KEY,
		folder TEXT NOT NULL,
		published_at DATETIME NOT NULL,
		metadata TEXT NOT NULL,
		compressed_content BLOB,
		archived_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_archived_published ON archived_articles(published_at DESC);
	`
	_, err := db.Exec(schema)
	return err
}

func validateSchema(dbPath string) bool {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		log.Printf("Failed to open database for schema validation: %v", err)
		return false
	}
	defer db.Close()

	required := map[string][]string{
		"article_views":     {"article_id", "views"},
		"preferences":       {"user_id", "document", "updated_at"},
		"comments":          {"id", "article_id", "parent_id", "user_id", "author", "body", "created_at"},
		"archived_articles": {"article_id", "folder", "published_at", "metadata", "compressed_content"},
	}
	for table, columns := range required {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
		if err != nil {
			log.Printf("Failed to inspect table %s: %v", table, err)
			return false
		}
		if count == 0 {
			// missing tables are created on open
			continue
		}
		for _, column := range columns {
			err := db.QueryRow("SELECT COUNT(*) FROM pragma_table_info(?) WHERE name=?", table, column).Scan(&count)
			if err != nil || count == 0 {
				log.Printf("Missing required column in %s table: %s", table, column)
				return false
			}
		}
	}
	return true
}

// IncrementView adds one view to articleID and returns the stored count.
func (s *SQLiteStorage) IncrementView(ctx context.Context, articleID string) (int64, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO article_views (article_id, views, updated_at) VALUES (?, 1, ?)
		ON CONFLICT(article_id) DO UPDATE SET views = views + 1, updated_at = excluded.updated_at`,
		articleID, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to increment views for %s: %w", articleID, err)
	}

	var views int64
	if err := s.db.QueryRowContext(ctx, "SELECT views FROM article_views WHERE article_id = ?", articleID).Scan(&views); err != nil {
		return 0, fmt.Errorf("failed to read views for %s: %w", articleID, err)
	}
	return views, nil
}

// ViewCounts returns every stored view count.
func (s *SQLiteStorage) ViewCounts(ctx context.Context) (map[string]int64, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT article_id, views FROM article_views")
	if err != nil {
		return nil, fmt.Errorf("failed to query view counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var id string
		var views int64
		if err := rows.Scan(&id, &views); err != nil {
			return nil, fmt.Errorf("failed to scan view count: %w", err)
		}
		counts[id] = views
	}
	return counts, rows.Err()
}

func (s *SQLiteStorage) SeedViews(ctx context.Context, counts map[string]int64) error {
	if len(counts) == 0 {
		return nil
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, "INSERT OR IGNORE INTO article_views (article_id, views) VALUES (?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare seed insert: %w", err)
	}
	defer stmt.Close()
	for id, n := range counts {
		if _, err := stmt.ExecContext(ctx, id, n); err != nil {
			return fmt.Errorf("failed to seed views for %s: %w", id, err)
		}
	}
	return tx.Commit()
}

// LoadPreferences returns prefs.ErrNotFound when the user has no document.
func (s *SQLiteStorage) LoadPreferences(ctx context.Context, userID string) (*models.Preferences, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var doc string
	err := s.db.QueryRowContext(ctx, "SELECT document FROM preferences WHERE user_id = ?", userID).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, prefs.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load preferences: %w", err)
	}

	var p models.Preferences
	if err := json.Unmarshal([]byte(doc), &p); err != nil {
		return nil, fmt.Errorf("failed to decode preferences: %w", err)
	}
	return &p, nil
}

func (s *SQLiteStorage) SavePreferences(ctx context.Context, p *models.Preferences) error {
	if p == nil || p.UserID == "" {
		return errors.New("preferences without user id")
	}
	doc, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode preferences: %w", err)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO preferences (user_id, document, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET document = excluded.document, updated_at = excluded.updated_at`,
		p.UserID, string(doc), p.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to save preferences: %w", err)
	}
	return nil
}

// AddComment stores c, assigning an id and timestamp when missing.
func (s *SQLiteStorage) AddComment(ctx context.Context, c *models.Comment) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO comments (id, article_id, parent_id, user_id, author, body, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		c.ID, c.ArticleID, c.ParentID, c.UserID, c.Author, c.Body, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert comment: %w", err)
	}
	return nil
}

// ListComments returns the comments on articleID, oldest first.
func (s *SQLiteStorage) ListComments(ctx context.Context, articleID string) ([]models.Comment, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, article_id, COALESCE(parent_id, ''), user_id, COALESCE(author, ''), body, created_at
		FROM comments WHERE article_id = ? ORDER BY created_at ASC, id ASC`, articleID)
	if err != nil {
		return nil, fmt.Errorf("failed to query comments: %w", err)
	}
	defer rows.Close()

	comments := []models.Comment{}
	for rows.Next() {
		var c models.Comment
		if err := rows.Scan(&c.ID, &c.ArticleID, &c.ParentID, &c.UserID, &c.Author, &c.Body, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

// SaveArticles replaces the archived snapshot with articles.
func (s *SQLiteStorage) SaveArticles(ctx context.Context, articles []models.Article) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM archived_articles"); err != nil {
		return fmt.Errorf("failed to clear archive: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO archived_articles (article_id, folder, published_at, metadata, compressed_content)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare archive insert: %w", err)
	}
	defer stmt.Close()

	for i := range articles {
		a := articles[i]
		body, err := json.Marshal(a.Content)
		if err != nil {
			return fmt.Errorf("failed to encode content of %s: %w", a.ID, err)
		}
		compressed, err := compressContent(string(body))
		if err != nil {
			return err
		}
		a.Content = locale.Text{}
		meta, err := json.Marshal(a)
		if err != nil {
			return fmt.Errorf("failed to encode article %s: %w", a.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, a.ID, string(a.Folder), a.PublishedAt.UTC(), string(meta), compressed); err != nil {
			return fmt.Errorf("failed to archive article %s: %w", a.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit archive: %w", err)
	}
	return nil
}

// LoadArticles returns the archived snapshot, newest first.
func (s *SQLiteStorage) LoadArticles(ctx context.Context) ([]models.Article, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT metadata, compressed_content FROM archived_articles ORDER BY published_at DESC, article_id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query archive: %w", err)
	}
	defer rows.Close()

	var articles []models.Article
	for rows.Next() {
		var meta string
		var compressed []byte
		if err := rows.Scan(&meta, &compressed); err != nil {
			return nil, fmt.Errorf("failed to scan archived article: %w", err)
		}
		var a models.Article
		if err := json.Unmarshal([]byte(meta), &a); err != nil {
			return nil, fmt.Errorf("failed to decode archived article: %w", err)
		}
		body, err := decompressContent(compressed)
		if err != nil {
			return nil, err
		}
		if body != "" {
			if err := json.Unmarshal([]byte(body), &a.Content); err != nil {
				return nil, fmt.Errorf("failed to decode content of %s: %w", a.ID, err)
			}
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func (s *SQLiteStorage) OptimizeDatabase() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, err := s.db.Exec("VACUUM"); err != nil {
		return fmt.Errorf("failed to vacuum database: %w", err)
	}
	if _, err := s.db.Exec("ANALYZE"); err != nil {
		return fmt.Errorf("failed to analyze database: %w", err)
	}

	log.Printf("Database optimization completed")
	return nil
}

// GetDatabaseStats returns database statistics
func (s *SQLiteStorage) GetDatabaseStats(ctx context.Context) (map[string]interface{}, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	stats := make(map[string]interface{})
	counts := []struct {
		key   string
		query string
	}{
		{"archived_articles", "SELECT COUNT(*) FROM archived_articles"},
		{"tracked_articles", "SELECT COUNT(*) FROM article_views"},
		{"total_views", "SELECT COALESCE(SUM(views), 0) FROM article_views"},
		{"preference_documents", "SELECT COUNT(*) FROM preferences"},
		{"comments", "SELECT COUNT(*) FROM comments"},
	}
	for _, c := range counts {
		var n int64
		if err := s.db.QueryRowContext(ctx, c.query).Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to get %s count: %w", c.key, err)
		}
		stats[c.key] = n
	}

	var dbSize int64
	err := s.db.QueryRowContext(ctx, "SELECT page_count * page_size as size FROM pragma_page_count(), pragma_page_size()").Scan(&dbSize)
	if err != nil {
		return nil, fmt.Errorf("failed to get database size: %w", err)
	}
	stats["database_size_bytes"] = dbSize

	return stats, nil
}

// compressContent compresses text content using gzip
func compressContent(content string) ([]byte, error) {
	if content == "" {
		return nil, nil
	}

	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	if _, err := gw.Write([]byte(content)); err != nil {
		return nil, fmt.Errorf("failed to compress content: %w", err)
	}
	if err := gw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close gzip writer: %w", err)
	}
	return buf.Bytes(), nil
}

// decompressContent decompresses gzipped content
func decompressContent(compressed []byte) (string, error) {
	if len(compressed) == 0 {
		return "", nil
	}

	gr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return "", fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gr.Close()

	decompressed, err := io.ReadAll(gr)
	if err != nil {
		return "", fmt.Errorf("failed to decompress content: %w", err)
	}
	return string(decompressed), nil
}
