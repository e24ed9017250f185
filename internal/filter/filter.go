// Package filter narrows and orders article lists for a FilterState.
package filter

import (
	"sort"
	"strings"

	"animeportal/internal/models"
	"animeportal/internal/taxonomy"
)

// DefaultPageSize is the number of articles revealed per "load more" step.
const DefaultPageSize = 4

// Apply runs the filter pipeline over all and returns a new slice. Stages
// run in a fixed order: tag, free-text query, topic, section (with
// vertical), generic category, bookmarks, then sort. all is never modified.
func Apply(all []models.Article, f models.FilterState, bookmarks map[string]struct{}) []models.Article {
	out := make([]models.Article, 0, len(all))
	for i := range all {
		if matches(&all[i], f, bookmarks) {
			out = append(out, all[i])
		}
	}
	Sort(out, f.Sort)
	return out
}

func matches(a *models.Article, f models.FilterState, bookmarks map[string]struct{}) bool {
	if tag := strings.TrimSpace(f.Tag); tag != "" && !a.HasTag(tag) {
		return false
	}
	if q := strings.TrimSpace(f.Query); q != "" && !matchesQuery(a, q) {
		return false
	}
	if topic := strings.TrimSpace(f.Topic); topic != "" && !matchesTopic(a, topic) {
		return false
	}
	if !matchesSection(a, f.Section, f.Vertical) {
		return false
	}
	if category := strings.TrimSpace(f.Category); category != "" && !matchesCategory(a, category) {
		return false
	}
	if f.BookmarkOnly {
		if _, ok := bookmarks[a.ID]; !ok {
			return false
		}
	}
	return true
}

func matchesQuery(a *models.Article, q string) bool {
	return a.Title.ContainsFold(q) || a.Excerpt.ContainsFold(q)
}

// matchesTopic accepts a tag or a category/sub-category label. Topic path
// segments are slugs, so labels are compared in slug form too.
func matchesTopic(a *models.Article, topic string) bool {
	if a.HasTag(topic) || a.Category.EqualFold(topic) || a.SubCategory.EqualFold(topic) {
		return true
	}
	slug := taxonomy.Slugify(topic)
	for _, t := range a.Tags {
		if taxonomy.Slugify(t.ID) == slug || taxonomy.Slugify(t.EN) == slug {
			return true
		}
	}
	return taxonomy.Slugify(a.SubCategory.EN) == slug || taxonomy.Slugify(a.SubCategory.ID) == slug
}

func matchesSection(a *models.Article, section taxonomy.Section, vertical string) bool {
	switch section {
	case taxonomy.Opinion, taxonomy.Reviews:
		return taxonomy.SectionOf(a.Category) == section
	case taxonomy.News:
		if taxonomy.SectionOf(a.Category) != taxonomy.News {
			return false
		}
		if strings.TrimSpace(vertical) == "" {
			return true
		}
		if !taxonomy.IsNewsLabel(a.Category) {
			return false
		}
		return taxonomy.VerticalMatches(a.SubCategory.EN, vertical) || taxonomy.VerticalMatches(a.SubCategory.ID, vertical)
	}
	return true
}

func matchesCategory(a *models.Article, category string) bool {
	if a.Category.EqualFold(category) || a.SubCategory.EqualFold(category) {
		return true
	}
	slug := taxonomy.Slugify(category)
	for _, label := range []string{a.Category.ID, a.Category.EN, a.SubCategory.ID, a.SubCategory.EN} {
		if slug != "" && taxonomy.Slugify(label) == slug {
			return true
		}
	}
	return false
}

// Sort orders articles in place. Popular sorts by views, newest first on
// ties; latest and oldest sort by publication time with ids breaking ties.
func Sort(articles []models.Article, mode models.SortMode) {
	sort.SliceStable(articles, func(i, j int) bool {
		a, b := &articles[i], &articles[j]
		switch mode {
		case models.SortPopular:
			if a.Views != b.Views {
				return a.Views > b.Views
			}
			if !a.PublishedAt.Equal(b.PublishedAt) {
				return a.PublishedAt.After(b.PublishedAt)
			}
		case models.SortOldest:
			if !a.PublishedAt.Equal(b.PublishedAt) {
				return a.PublishedAt.Before(b.PublishedAt)
			}
		default:
			if !a.PublishedAt.Equal(b.PublishedAt) {
				return a.PublishedAt.After(b.PublishedAt)
			}
		}
		return a.ID < b.ID
	})
}

// Paginate returns the window [offset, offset+limit) of articles.
func Paginate(articles []models.Article, offset, limit int) models.ArticlePage {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	total := len(articles)
	start := offset
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	page := make([]models.Article, end-start)
	copy(page, articles[start:end])
	return models.ArticlePage{
		Articles: page,
		Total:    total,
		Offset:   offset,
		Limit:    limit,
		HasMore:  end < total,
	}
}

// Window is the visible prefix of a filtered list. LoadMore grows it by one
// page without re-filtering.
type Window struct {
	Size    int
	Visible int
}

// NewWindow opens a window showing the first page.
func NewWindow(size int) Window {
	if size <= 0 {
		size = DefaultPageSize
	}
	return Window{Size: size, Visible: size}
}

// LoadMore returns the window extended by one page.
func (w Window) LoadMore() Window {
	w.Visible += w.Size
	return w
}

// Slice returns the visible part of articles.
func (w Window) Slice(articles []models.Article) []models.Article {
	if w.Visible >= len(articles) {
		return articles
	}
	return articles[:w.Visible]
}

// HasMore reports whether articles extend past the window.
func (w Window) HasMore(articles []models.Article) bool {
	return w.Visible < len(articles)
}
