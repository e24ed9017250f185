package prefs

import (
	"fmt"
	"reflect"
	"testing"
	"time"

	"animeportal/internal/locale"
	"animeportal/internal/models"

	"pgregory.net/rapid"
)

var t0 = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

func TestRecordView(t *testing.T) {
	p := New("u1")
	p = RecordView(p, "a", t0)
	p = RecordView(p, "b", t0.Add(time.Minute))
	p = RecordView(p, "a", t0.Add(2*time.Minute))

	if len(p.History) != 2 {
		t.Fatalf("Expected 2 history entries, got %d", len(p.History))
	}
	if p.History[0].ArticleID != "a" || p.History[1].ArticleID != "b" {
		t.Errorf("Expected most recent first [a b], got %+v", p.History)
	}
	if !p.UpdatedAt.Equal(t0.Add(2 * time.Minute)) {
		t.Errorf("Expected UpdatedAt to advance, got %v", p.UpdatedAt)
	}
}

func TestRecordView_Capped(t *testing.T) {
	p := New("u1")
	for i := 0; i < MaxHistory+10; i++ {
		p = RecordView(p, fmt.Sprintf("a%d", i), t0.Add(time.Duration(i)*time.Second))
	}
	if len(p.History) != MaxHistory {
		t.Errorf("Expected history capped at %d, got %d", MaxHistory, len(p.History))
	}
	if p.History[0].ArticleID != fmt.Sprintf("a%d", MaxHistory+9) {
		t.Errorf("Expected newest entry first, got %s", p.History[0].ArticleID)
	}
}

func TestRecordView_DoesNotAlias(t *testing.T) {
	p := RecordView(New("u1"), "a", t0)
	q := RecordView(p, "b", t0.Add(time.Second))
	if len(p.History) != 1 || p.History[0].ArticleID != "a" {
		t.Errorf("Expected original value untouched, got %+v", p.History)
	}
	if len(q.History) != 2 {
		t.Errorf("Expected new value to have 2 entries, got %d", len(q.History))
	}
}

func TestRecordSearch(t *testing.T) {
	p := New("u1")
	p = RecordSearch(p, "One Piece", t0)
	p = RecordSearch(p, "  ", t0)
	p = RecordSearch(p, "gundam", t0.Add(time.Second))
	p = RecordSearch(p, "one piece", t0.Add(2*time.Second))

	if len(p.SearchHistory) != 2 {
		t.Fatalf("Expected 2 searches, got %+v", p.SearchHistory)
	}
	if p.SearchHistory[0].Query != "one piece" {
		t.Errorf("Expected latest spelling first, got %s", p.SearchHistory[0].Query)
	}

	for i := 0; i < 20; i++ {
		p = RecordSearch(p, fmt.Sprintf("q%d", i), t0.Add(time.Duration(10+i)*time.Second))
	}
	if len(p.SearchHistory) != MaxSearches {
		t.Errorf("Expected searches capped at %d, got %d", MaxSearches, len(p.SearchHistory))
	}
}

func TestToggleBookmark(t *testing.T) {
	p := New("u1")
	p, on := ToggleBookmark(p, "a", t0)
	if !on || !IsBookmarked(p, "a") {
		t.Error("Expected bookmark to be added")
	}
	p, on = ToggleBookmark(p, "a", t0.Add(time.Second))
	if on || IsBookmarked(p, "a") {
		t.Error("Expected bookmark to be removed")
	}
}

func TestToggleBookmark_RoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ids := rapid.SliceOfDistinct(rapid.StringMatching(`[a-z0-9-]{1,8}`), rapid.ID[string]).Draw(t, "bookmarks")
		target := rapid.StringMatching(`[a-z0-9-]{1,8}`).Draw(t, "target")

		p := New("u1")
		for i, id := range ids {
			p, _ = ToggleBookmark(p, id, t0.Add(time.Duration(i)*time.Second))
		}
		before := BookmarkSet(p)

		once, _ := ToggleBookmark(p, target, t0.Add(time.Hour))
		twice, _ := ToggleBookmark(once, target, t0.Add(2*time.Hour))

		if !reflect.DeepEqual(BookmarkSet(twice), before) {
			t.Fatalf("bookmark set changed after double toggle of %q: %v -> %v", target, before, BookmarkSet(twice))
		}
		_, inBefore := before[target]
		_, inOnce := BookmarkSet(once)[target]
		if inBefore == inOnce {
			t.Fatalf("single toggle of %q did not flip membership", target)
		}
	})
}

func TestSetLanguage(t *testing.T) {
	p := SetLanguage(New("u1"), locale.English, t0)
	if p.Language != locale.English {
		t.Errorf("Expected English, got %s", p.Language)
	}
	p = SetLanguage(p, locale.Language("fr"), t0.Add(time.Second))
	if p.Language != locale.English {
		t.Errorf("Expected invalid language to be ignored, got %s", p.Language)
	}
}

func TestReconcile(t *testing.T) {
	local := models.Preferences{
		UserID:        "u1",
		Theme:         "dark",
		UpdatedAt:     t0.Add(time.Hour),
		History:       []models.HistoryEntry{{ArticleID: "a", ViewedAt: t0.Add(time.Hour)}, {ArticleID: "b", ViewedAt: t0}},
		Bookmarks:     []models.Bookmark{{ArticleID: "x", At: t0}},
		SearchHistory: []models.SearchEntry{{Query: "Gundam", At: t0.Add(time.Hour)}},
	}
	remote := models.Preferences{
		UserID:        "u1",
		Theme:         "light",
		Language:      locale.English,
		UpdatedAt:     t0.Add(30 * time.Minute),
		History:       []models.HistoryEntry{{ArticleID: "b", ViewedAt: t0.Add(30 * time.Minute)}, {ArticleID: "c", ViewedAt: t0.Add(10 * time.Minute)}},
		Bookmarks:     []models.Bookmark{{ArticleID: "y", At: t0.Add(time.Minute)}},
		SearchHistory: []models.SearchEntry{{Query: "gundam", At: t0}},
	}

	merged := Reconcile(local, remote)

	if merged.Theme != "dark" {
		t.Errorf("Expected theme from newer copy, got %s", merged.Theme)
	}
	if merged.Language != locale.English {
		t.Errorf("Expected language filled from older copy, got %s", merged.Language)
	}
	var history []string
	for _, h := range merged.History {
		history = append(history, h.ArticleID)
	}
	if !reflect.DeepEqual(history, []string{"a", "b", "c"}) {
		t.Errorf("Expected history [a b c], got %v", history)
	}
	if !merged.History[1].ViewedAt.Equal(t0.Add(30 * time.Minute)) {
		t.Errorf("Expected most recent view of b, got %v", merged.History[1].ViewedAt)
	}
	if len(merged.Bookmarks) != 2 {
		t.Errorf("Expected union of bookmarks, got %+v", merged.Bookmarks)
	}
	if len(merged.SearchHistory) != 1 || merged.SearchHistory[0].Query != "Gundam" {
		t.Errorf("Expected case-insensitive search dedup, got %+v", merged.SearchHistory)
	}

	if !reflect.DeepEqual(Reconcile(remote, local), merged) {
		t.Error("Expected reconcile to be symmetric")
	}
}
