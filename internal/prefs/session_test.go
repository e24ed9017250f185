package prefs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"animeportal/internal/cache"
	"animeportal/internal/models"
)

type fakeRemote struct {
	mu     sync.Mutex
	docs   map[string]models.Preferences
	fail   bool
	writes int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{docs: make(map[string]models.Preferences)}
}

func (f *fakeRemote) LoadPreferences(_ context.Context, userID string) (*models.Preferences, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.docs[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (f *fakeRemote) SavePreferences(_ context.Context, p *models.Preferences) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	if f.fail {
		return errors.New("remote unavailable")
	}
	f.docs[p.UserID] = *p
	return nil
}

// slowStore delays its first Save until released.
type slowStore struct {
	mu      sync.Mutex
	saved   models.Preferences
	saves   int
	entered chan struct{}
	release chan struct{}
}

func (s *slowStore) Load(string) (models.Preferences, error) {
	return models.Preferences{}, ErrNotFound
}

func (s *slowStore) Save(p models.Preferences) error {
	s.mu.Lock()
	s.saves++
	first := s.saves == 1
	s.mu.Unlock()
	if first {
		close(s.entered)
		<-s.release
	}
	s.mu.Lock()
	s.saved = p
	s.mu.Unlock()
	return nil
}

func TestFileStore_SaveLoad(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	if _, err := store.Load("google|123"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	p, _ := ToggleBookmark(New("google|123"), "a", t0)
	if err := store.Save(p); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	loaded, err := store.Load("google|123")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !IsBookmarked(loaded, "a") {
		t.Errorf("Expected bookmark to survive round trip, got %+v", loaded)
	}
}

func TestSession_OptimisticWrites(t *testing.T) {
	ctx := context.Background()
	store, _ := NewFileStore(t.TempDir())
	remote := newFakeRemote()
	remote.fail = true

	s := NewSession(ctx, "u1", store, remote)
	p, on := s.ToggleBookmark(ctx, "a")
	if !on || !IsBookmarked(p, "a") {
		t.Fatal("Expected bookmark to be applied locally")
	}
	if !IsBookmarked(s.Snapshot(), "a") {
		t.Error("Expected failed remote write not to roll back the local change")
	}

	persisted, err := store.Load("u1")
	if err != nil || !IsBookmarked(persisted, "a") {
		t.Errorf("Expected local store to hold the bookmark, got %+v (%v)", persisted, err)
	}

	remote.fail = false
	s.RecordView(ctx, "b")
	doc, err := remote.LoadPreferences(ctx, "u1")
	if err != nil {
		t.Fatalf("Expected remote document after recovery: %v", err)
	}
	if !IsBookmarked(*doc, "a") || len(doc.History) != 1 {
		t.Errorf("Expected remote copy to catch up, got %+v", doc)
	}
}

func TestSession_SavesInMutationOrder(t *testing.T) {
	ctx := context.Background()
	store := &slowStore{entered: make(chan struct{}), release: make(chan struct{})}
	s := NewSession(ctx, "u1", store, nil)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.ToggleBookmark(ctx, "a")
	}()
	<-store.entered
	go func() {
		defer wg.Done()
		s.ToggleBookmark(ctx, "b")
	}()
	time.Sleep(20 * time.Millisecond)
	close(store.release)
	wg.Wait()

	if len(s.Snapshot().Bookmarks) != 2 {
		t.Fatalf("Expected 2 bookmarks in memory, got %+v", s.Snapshot().Bookmarks)
	}
	store.mu.Lock()
	defer store.mu.Unlock()
	if store.saves != 2 {
		t.Errorf("Expected 2 saves, got %d", store.saves)
	}
	if !IsBookmarked(store.saved, "a") || !IsBookmarked(store.saved, "b") {
		t.Errorf("Expected the last save to hold both bookmarks, got %+v", store.saved.Bookmarks)
	}
}

func TestSession_SignInReconciles(t *testing.T) {
	ctx := context.Background()
	store, _ := NewFileStore(t.TempDir())
	remote := newFakeRemote()

	remoteCopy, _ := ToggleBookmark(New("u1"), "remote-article", t0)
	remote.docs["u1"] = remoteCopy

	local, _ := ToggleBookmark(New("u1"), "local-article", t0.Add(time.Minute))
	if err := store.Save(local); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	s := NewSession(ctx, "u1", store, remote)
	p := s.Snapshot()
	if !IsBookmarked(p, "remote-article") || !IsBookmarked(p, "local-article") {
		t.Errorf("Expected both bookmarks after sign-in, got %+v", p.Bookmarks)
	}
}

func TestSession_SnapshotIsCopy(t *testing.T) {
	s := NewSession(context.Background(), "u1", nil, nil)
	s.RecordView(context.Background(), "a")
	snap := s.Snapshot()
	snap.History[0].ArticleID = "mutated"
	if s.Snapshot().History[0].ArticleID != "a" {
		t.Error("Expected snapshot mutation not to leak into the session")
	}
}

func TestManager_Session(t *testing.T) {
	ctx := context.Background()
	m := NewManager(cache.NewManager(time.Minute), nil, newFakeRemote(), time.Minute)

	a := m.Session(ctx, "u1")
	b := m.Session(ctx, "u1")
	if a != b {
		t.Error("Expected the same session for the same user")
	}
	if m.Session(ctx, "u2") == a {
		t.Error("Expected distinct sessions per user")
	}

	a.ToggleBookmark(ctx, "x")
	m.Forget("u1")
	c := m.Session(ctx, "u1")
	if c == a {
		t.Error("Expected a fresh session after Forget")
	}
	if !IsBookmarked(c.Snapshot(), "x") {
		t.Error("Expected fresh session to be restored from the remote store")
	}
}
