package prefs

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"animeportal/internal/cache"
	"animeportal/internal/locale"
	"animeportal/internal/models"
)

// ErrNotFound is returned by stores that hold no document for a user.
var ErrNotFound = errors.New("preferences not found")

// LocalStore is the device-local persistence boundary: loaded once when a
// session starts and written on every change.
type LocalStore interface {
	Load(userID string) (models.Preferences, error)
	Save(p models.Preferences) error
}

// RemoteStore is the shared document store. Writes are best-effort.
type RemoteStore interface {
	LoadPreferences(ctx context.Context, userID string) (*models.Preferences, error)
	SavePreferences(ctx context.Context, p *models.Preferences) error
}

// FileStore keeps one JSON document per user under a directory
type FileStore struct {
	dir string
	mu  sync.Mutex
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create preferences directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (f *FileStore) path(userID string) string {
	return filepath.Join(f.dir, base64.RawURLEncoding.EncodeToString([]byte(userID))+".json")
}

func (f *FileStore) Load(userID string) (models.Preferences, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path(userID))
	if errors.Is(err, fs.ErrNotExist) {
		return models.Preferences{}, ErrNotFound
	}
	if err != nil {
		return models.Preferences{}, fmt.Errorf("failed to read preferences: %w", err)
	}
	var p models.Preferences
	if err := json.Unmarshal(data, &p); err != nil {
		return models.Preferences{}, fmt.Errorf("failed to decode preferences: %w", err)
	}
	return p, nil
}

func (f *FileStore) Save(p models.Preferences) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode preferences: %w", err)
	}
	target := f.path(p.UserID)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write preferences: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		return fmt.Errorf("failed to replace preferences: %w", err)
	}
	return nil
}

// Session is one user's preference state. Mutations apply locally first,
// then are written to the local store and the remote store. A failed remote
// write is logged and the local change is kept. Writes reach the stores in
// mutation order.
type Session struct {
	mu     sync.Mutex
	saveMu sync.Mutex
	prefs  models.Preferences
	local  LocalStore
	remote RemoteStore
	now    func() time.Time
}

// NewSession loads userID's local copy and reconciles it with the remote one.
// Either store may be nil.
func NewSession(ctx context.Context, userID string, local LocalStore, remote RemoteStore) *Session {
	s := &Session{prefs: New(userID), local: local, remote: remote, now: time.Now}
	if local != nil {
		p, err := local.Load(userID)
		switch {
		case err == nil:
			p.UserID = userID
			s.prefs = p
		case !errors.Is(err, ErrNotFound):
			log.Printf("Warning: failed to load local preferences for %s: %v", userID, err)
		}
	}
	s.SignIn(ctx, userID)
	return s
}

// SignIn attaches the session to userID and merges the remote copy into the
// local state.
func (s *Session) SignIn(ctx context.Context, userID string) models.Preferences {
	s.mu.Lock()
	s.prefs.UserID = userID
	s.mu.Unlock()

	if s.remote == nil {
		return s.Snapshot()
	}
	remote, err := s.remote.LoadPreferences(ctx, userID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.Printf("Warning: failed to load remote preferences for %s: %v", userID, err)
		}
		return s.Snapshot()
	}
	return s.Sync(ctx, *remote)
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() models.Preferences {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.prefs)
}

func (s *Session) RecordView(ctx context.Context, articleID string) models.Preferences {
	return s.update(ctx, func(p models.Preferences, now time.Time) models.Preferences {
		return RecordView(p, articleID, now)
	})
}

// ToggleBookmark flips the bookmark on articleID and reports whether it is
// now bookmarked.
func (s *Session) ToggleBookmark(ctx context.Context, articleID string) (models.Preferences, bool) {
	var bookmarked bool
	p := s.update(ctx, func(p models.Preferences, now time.Time) models.Preferences {
		p, bookmarked = ToggleBookmark(p, articleID, now)
		return p
	})
	return p, bookmarked
}

func (s *Session) RecordSearch(ctx context.Context, query string) models.Preferences {
	return s.update(ctx, func(p models.Preferences, now time.Time) models.Preferences {
		return RecordSearch(p, query, now)
	})
}

func (s *Session) SetTheme(ctx context.Context, theme string) models.Preferences {
	return s.update(ctx, func(p models.Preferences, now time.Time) models.Preferences {
		return SetTheme(p, theme, now)
	})
}

func (s *Session) SetLanguage(ctx context.Context, lang locale.Language) models.Preferences {
	return s.update(ctx, func(p models.Preferences, now time.Time) models.Preferences {
		return SetLanguage(p, lang, now)
	})
}

// Sync reconciles another copy (a client or the remote store) into the session.
func (s *Session) Sync(ctx context.Context, other models.Preferences) models.Preferences {
	return s.update(ctx, func(p models.Preferences, _ time.Time) models.Preferences {
		other.UserID = p.UserID
		return Reconcile(p, other)
	})
}

func (s *Session) update(ctx context.Context, apply func(models.Preferences, time.Time) models.Preferences) models.Preferences {
	// saveMu spans apply and both saves so an older snapshot never lands
	// after a newer one; readers only take mu.
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	s.prefs = apply(s.prefs, s.now().UTC())
	current := clone(s.prefs)
	s.mu.Unlock()

	if s.local != nil {
		if err := s.local.Save(current); err != nil {
			log.Printf("Warning: failed to save local preferences for %s: %v", current.UserID, err)
		}
	}
	if s.remote != nil {
		if err := s.remote.SavePreferences(ctx, &current); err != nil {
			log.Printf("Warning: failed to sync preferences for %s: %v", current.UserID, err)
		}
	}
	return current
}

func clone(p models.Preferences) models.Preferences {
	p.History = append([]models.HistoryEntry(nil), p.History...)
	p.Bookmarks = append([]models.Bookmark(nil), p.Bookmarks...)
	p.SearchHistory = append([]models.SearchEntry(nil), p.SearchHistory...)
	return p
}

const sessionPrefix = "session:"

// Manager hands out one Session per user, kept in the TTL cache
type Manager struct {
	cache  *cache.Manager
	local  LocalStore
	remote RemoteStore
	ttl    time.Duration
	mu     sync.Mutex
}

func NewManager(c *cache.Manager, local LocalStore, remote RemoteStore, ttl time.Duration) *Manager {
	return &Manager{cache: c, local: local, remote: remote, ttl: ttl}
}

// Session returns the cached session for userID, opening it on first use.
func (m *Manager) Session(ctx context.Context, userID string) *Session {
	key := sessionPrefix + userID
	if v, ok := m.cache.Get(key); ok {
		if s, ok := v.(*Session); ok {
			m.cache.Set(key, s, m.ttl)
			return s
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.cache.Get(key); ok {
		if s, ok := v.(*Session); ok {
			return s
		}
	}
	s := NewSession(ctx, userID, m.local, m.remote)
	m.cache.Set(key, s, m.ttl)
	return s
}

// Forget drops the cached session for userID.
func (m *Manager) Forget(userID string) {
	m.cache.Delete(sessionPrefix + userID)
}
