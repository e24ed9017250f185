// Package prefs holds per-user preference state: reading history,
// bookmarks, recent searches, theme and language.
//
// The functions in this file are pure: they take a Preferences value and
// return a new one without touching the input's slices.
package prefs

import (
	"sort"
	"strings"
	"time"

	"animeportal/internal/locale"
	"animeportal/internal/models"
)

const (
	MaxHistory  = 50
	MaxSearches = 10
)

// New returns empty preferences for userID.
func New(userID string) models.Preferences {
	return models.Preferences{UserID: userID}
}

// RecordView moves articleID to the front of the reading history.
func RecordView(p models.Preferences, articleID string, at time.Time) models.Preferences {
	history := make([]models.HistoryEntry, 0, len(p.History)+1)
	history = append(history, models.HistoryEntry{ArticleID: articleID, ViewedAt: at})
	for _, h := range p.History {
		if h.ArticleID != articleID {
			history = append(history, h)
		}
	}
	p.History = capHistory(history)
	p.UpdatedAt = at
	return p
}

// ToggleBookmark adds articleID to the bookmarks or removes it, and reports
// whether it is bookmarked afterwards.
func ToggleBookmark(p models.Preferences, articleID string, at time.Time) (models.Preferences, bool) {
	bookmarks := make([]models.Bookmark, 0, len(p.Bookmarks)+1)
	removed := false
	for _, b := range p.Bookmarks {
		if b.ArticleID == articleID {
			removed = true
			continue
		}
		bookmarks = append(bookmarks, b)
	}
	if !removed {
		bookmarks = append([]models.Bookmark{{ArticleID: articleID, At: at}}, bookmarks...)
	}
	p.Bookmarks = bookmarks
	p.UpdatedAt = at
	return p, !removed
}

// RecordSearch remembers a query, most recent first, ignoring case when
// removing an earlier identical query.
func RecordSearch(p models.Preferences, query string, at time.Time) models.Preferences {
	query = strings.TrimSpace(query)
	if query == "" {
		return p
	}
	searches := make([]models.SearchEntry, 0, len(p.SearchHistory)+1)
	searches = append(searches, models.SearchEntry{Query: query, At: at})
	for _, s := range p.SearchHistory {
		if !strings.EqualFold(s.Query, query) {
			searches = append(searches, s)
		}
	}
	p.SearchHistory = capSearches(searches)
	p.UpdatedAt = at
	return p
}

func SetTheme(p models.Preferences, theme string, at time.Time) models.Preferences {
	p.Theme = strings.TrimSpace(theme)
	p.UpdatedAt = at
	return p
}

func SetLanguage(p models.Preferences, lang locale.Language, at time.Time) models.Preferences {
	if !lang.Valid() {
		return p
	}
	p.Language = lang
	p.UpdatedAt = at
	return p
}

// BookmarkSet returns the bookmarked ids as a set.
func BookmarkSet(p models.Preferences) map[string]struct{} {
	set := make(map[string]struct{}, len(p.Bookmarks))
	for _, b := range p.Bookmarks {
		set[b.ArticleID] = struct{}{}
	}
	return set
}

// IsBookmarked reports whether articleID is bookmarked.
func IsBookmarked(p models.Preferences, articleID string) bool {
	for _, b := range p.Bookmarks {
		if b.ArticleID == articleID {
			return true
		}
	}
	return false
}

// Reconcile merges two copies of the same user's preferences. Lists are
// unioned keeping the most recent timestamp per entry; scalar fields come
// from the copy with the newer UpdatedAt.
func Reconcile(local, remote models.Preferences) models.Preferences {
	newer, older := local, remote
	if remote.UpdatedAt.After(local.UpdatedAt) {
		newer, older = remote, local
	}

	out := models.Preferences{
		UserID:    newer.UserID,
		Theme:     newer.Theme,
		Language:  newer.Language,
		UpdatedAt: newer.UpdatedAt,
	}
	if out.UserID == "" {
		out.UserID = older.UserID
	}
	if out.Theme == "" {
		out.Theme = older.Theme
	}
	if out.Language == "" {
		out.Language = older.Language
	}

	history := make(map[string]models.HistoryEntry)
	for _, h := range append(append([]models.HistoryEntry(nil), local.History...), remote.History...) {
		if cur, ok := history[h.ArticleID]; !ok || h.ViewedAt.After(cur.ViewedAt) {
			history[h.ArticleID] = h
		}
	}
	for _, h := range history {
		out.History = append(out.History, h)
	}
	sort.Slice(out.History, func(i, j int) bool {
		a, b := out.History[i], out.History[j]
		if !a.ViewedAt.Equal(b.ViewedAt) {
			return a.ViewedAt.After(b.ViewedAt)
		}
		return a.ArticleID < b.ArticleID
	})
	out.History = capHistory(out.History)

	bookmarks := make(map[string]models.Bookmark)
	for _, b := range append(append([]models.Bookmark(nil), local.Bookmarks...), remote.Bookmarks...) {
		if cur, ok := bookmarks[b.ArticleID]; !ok || b.At.After(cur.At) {
			bookmarks[b.ArticleID] = b
		}
	}
	for _, b := range bookmarks {
		out.Bookmarks = append(out.Bookmarks, b)
	}
	sort.Slice(out.Bookmarks, func(i, j int) bool {
		a, b := out.Bookmarks[i], out.Bookmarks[j]
		if !a.At.Equal(b.At) {
			return a.At.After(b.At)
		}
		return a.ArticleID < b.ArticleID
	})

	searches := make(map[string]models.SearchEntry)
	for _, s := range append(append([]models.SearchEntry(nil), local.SearchHistory...), remote.SearchHistory...) {
		key := strings.ToLower(s.Query)
		if cur, ok := searches[key]; !ok || s.At.After(cur.At) {
			searches[key] = s
		}
	}
	for _, s := range searches {
		out.SearchHistory = append(out.SearchHistory, s)
	}
	sort.Slice(out.SearchHistory, func(i, j int) bool {
		a, b := out.SearchHistory[i], out.SearchHistory[j]
		if !a.At.Equal(b.At) {
			return a.At.After(b.At)
		}
		return a.Query < b.Query
	})
	out.SearchHistory = capSearches(out.SearchHistory)

	return out
}

func capHistory(h []models.HistoryEntry) []models.HistoryEntry {
	if len(h) > MaxHistory {
		return h[:MaxHistory]
	}
	return h
}

func capSearches(s []models.SearchEntry) []models.SearchEntry {
	if len(s) > MaxSearches {
		return s[:MaxSearches]
	}
	return s
}
