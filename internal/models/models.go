package models

import (
	"fmt"
	"strings"
	"time"

	"animeportal/internal/locale"
	"animeportal/internal/taxonomy"
)

// GalleryItem is one entry of an article's image gallery
type GalleryItem struct {
	URL      string      `json:"url"`
	VideoURL string      `json:"video_url,omitempty"`
	Caption  locale.Text `json:"caption"`
	Source   string      `json:"source,omitempty"`
}

// Article represents a single ingested article
type Article struct {
	ID          string           `json:"id"`
	Title       locale.Text      `json:"title"`
	Excerpt     locale.Text      `json:"excerpt"`
	Content     locale.Text      `json:"content"`
	Category    locale.Text      `json:"category"`
	SubCategory locale.Text      `json:"sub_category"`
	Folder      taxonomy.Section `json:"folder"`
	Author      string           `json:"author"`
	Date        locale.Text      `json:"date"`
	PublishedAt time.Time        `json:"published_at"`
	ImageURL    string           `json:"image_url"`
	VideoURL    string           `json:"video_url,omitempty"`
	Gallery     []GalleryItem    `json:"gallery,omitempty"`
	Tags        []locale.Text    `json:"tags"`
	Views       int64            `json:"views"`
	Translated  bool             `json:"translated"`

	Source         string `json:"source,omitempty"`
	SourceURL      string `json:"source_url,omitempty"`
	ImageSource    string `json:"image_source,omitempty"`
	ImageSourceURL string `json:"image_source_url,omitempty"`
}

// HasTag reports whether the article carries tag in either language.
func (a *Article) HasTag(tag string) bool {
	for _, t := range a.Tags {
		if t.EqualFold(tag) {
			return true
		}
	}
	return false
}

// Section classifies the article by its primary category.
func (a *Article) Section() taxonomy.Section {
	return taxonomy.SectionOf(a.Category)
}

// SortMode selects the ordering of a filtered article list
type SortMode string

const (
	SortLatest  SortMode = "latest"
	SortOldest  SortMode = "oldest"
	SortPopular SortMode = "popular"
)

// ParseSortMode maps a query value to a sort mode, defaulting to latest.
func ParseSortMode(s string) SortMode {
	switch SortMode(strings.ToLower(strings.TrimSpace(s))) {
	case SortOldest:
		return SortOldest
	case SortPopular:
		return SortPopular
	}
	return SortLatest
}

// FilterState is the set of active filters derived from the current location.
// It is a value type: every navigation produces a new one.
type FilterState struct {
	Section      taxonomy.Section `json:"section,omitempty" yaml:"section,omitempty"`
	Vertical     string           `json:"vertical,omitempty" yaml:"vertical,omitempty"`
	Tag          string           `json:"tag,omitempty" yaml:"tag,omitempty"`
	Topic        string           `json:"topic,omitempty" yaml:"topic,omitempty"`
	Category     string           `json:"category,omitempty" yaml:"category,omitempty"`
	Query        string           `json:"q,omitempty" yaml:"q,omitempty"`
	Sort         SortMode         `json:"sort" yaml:"sort"`
	BookmarkOnly bool             `json:"bookmark_only,omitempty" yaml:"bookmark_only,omitempty"`
}

// Key returns a stable identifier of the filter state, suitable as a cache key.
func (f FilterState) Key() string {
	sort := f.Sort
	if sort == "" {
		sort = SortLatest
	}
	return fmt.Sprintf("s=%s|v=%s|t=%s|p=%s|c=%s|q=%s|o=%s|b=%t",
		f.Section,
		strings.ToLower(f.Vertical),
		strings.ToLower(f.Tag),
		strings.ToLower(f.Topic),
		strings.ToLower(f.Category),
		strings.ToLower(f.Query),
		sort,
		f.BookmarkOnly,
	)
}

// ArticlePage is a window over a filtered and sorted article list
type ArticlePage struct {
	Articles []Article `json:"articles"`
	Total    int       `json:"total"`
	Offset   int       `json:"offset"`
	Limit    int       `json:"limit"`
	HasMore  bool      `json:"has_more"`
}

// HistoryEntry records one article view of a user
type HistoryEntry struct {
	ArticleID string    `json:"article_id"`
	ViewedAt  time.Time `json:"viewed_at"`
}

// Bookmark is a saved article
type Bookmark struct {
	ArticleID string    `json:"article_id"`
	At        time.Time `json:"at"`
}

// SearchEntry is one remembered search query
type SearchEntry struct {
	Query string    `json:"query"`
	At    time.Time `json:"at"`
}

// Preferences is the per-user state owned by the client session
type Preferences struct {
	UserID        string          `json:"user_id"`
	History       []HistoryEntry  `json:"history"`
	Bookmarks     []Bookmark      `json:"bookmarks"`
	SearchHistory []SearchEntry   `json:"search_history"`
	Theme         string          `json:"theme,omitempty"`
	Language      locale.Language `json:"language,omitempty"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Comment is a reader comment on an article
type Comment struct {
	ID        string    `json:"id"`
	ArticleID string    `json:"article_id"`
	ParentID  string    `json:"parent_id,omitempty"`
	UserID    string    `json:"user_id"`
	Author    string    `json:"author"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// ViewEvent is pushed to subscribers when an article's view count changes
type ViewEvent struct {
	ArticleID string    `json:"article_id"`
	Views     int64     `json:"views"`
	At        time.Time `json:"at"`
}

// CatalogInfo describes the currently loaded article snapshot
type CatalogInfo struct {
	Version      uint64    `json:"version"`
	ArticleCount int       `json:"article_count"`
	LoadedAt     time.Time `json:"loaded_at"`
	Source       string    `json:"source"`
}
