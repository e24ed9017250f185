// Package routes produces canonical paths for articles and labels and parses
// site URLs back into a location with its filter state.
package routes

import (
	"net/url"
	"strings"

	"animeportal/internal/models"
	"animeportal/internal/taxonomy"
)

// ArticleLink returns the canonical path of an article. Opinion and review
// articles live directly under their section; everything else is nested
// under its news vertical. A missing vertical degrades to /news/{id}.
func ArticleLink(a *models.Article) string {
	switch taxonomy.SectionOf(a.Category) {
	case taxonomy.Opinion:
		return "/opinion/" + a.ID
	case taxonomy.Reviews:
		return "/reviews/" + a.ID
	}
	slug := VerticalSlug(a)
	if slug == "" {
		return "/news/" + a.ID
	}
	return "/news/" + slug + "/" + a.ID
}

// VerticalSlug is the path segment for an article's sub-category. Known
// vertical aliases map to the vertical slug; other labels are slugified.
func VerticalSlug(a *models.Article) string {
	label := strings.TrimSpace(a.SubCategory.EN)
	if label == "" {
		label = strings.TrimSpace(a.SubCategory.ID)
	}
	if slug, ok := taxonomy.CanonicalVertical(label); ok {
		return slug
	}
	return taxonomy.Slugify(label)
}

// SectionLink resolves a free-text label to a path. Vertical aliases are only
// honored for header navigation labels. The result always starts with "/".
func SectionLink(label string, headerNav bool) string {
	return taxonomy.Canonicalize(label, headerNav).Path
}

// IsSafeID reports whether id can be used as a path segment unescaped.
func IsSafeID(id string) bool {
	if id == "" {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '-', c == '.', c == '_', c == '~':
		default:
			return false
		}
	}
	return id != "." && id != ".."
}

// Kind is the type of page a URL points at.
type Kind string

const (
	KindHome     Kind = "home"
	KindSection  Kind = "section"
	KindVertical Kind = "vertical"
	KindArticle  Kind = "article"
	KindCategory Kind = "category"
	KindTopic    Kind = "topic"
	KindStatic   Kind = "static"
	KindNotFound Kind = "not_found"
)

// Location is a parsed site URL
type Location struct {
	Kind      Kind               `json:"kind" yaml:"kind"`
	Path      string             `json:"path" yaml:"path"`
	Section   taxonomy.Section   `json:"section,omitempty" yaml:"section,omitempty"`
	Vertical  string             `json:"vertical,omitempty" yaml:"vertical,omitempty"`
	ArticleID string             `json:"article_id,omitempty" yaml:"article_id,omitempty"`
	Category  string             `json:"category,omitempty" yaml:"category,omitempty"`
	Topic     string             `json:"topic,omitempty" yaml:"topic,omitempty"`
	Static    string             `json:"static,omitempty" yaml:"static,omitempty"`
	Filter    models.FilterState `json:"filter" yaml:"filter"`
}

// Parse maps a path and its query parameters to a Location. Query filters
// (q, tag, category, filter=bookmarks, sort) compose with any listing path.
// Paths outside the URL surface yield KindNotFound.
func Parse(path string, query url.Values) Location {
	segments := splitPath(path)
	loc := Location{Path: "/" + strings.Join(segments, "/")}

	switch {
	case len(segments) == 0:
		loc.Kind = KindHome
	case len(segments) <= 3 && segments[0] == string(taxonomy.News):
		parseNews(&loc, segments[1:])
	case len(segments) <= 2 && (segments[0] == string(taxonomy.Opinion) || segments[0] == string(taxonomy.Reviews)):
		loc.Section = taxonomy.Section(segments[0])
		loc.Kind = KindSection
		if len(segments) == 2 {
			loc.Kind = KindArticle
			loc.ArticleID = segments[1]
		}
	case len(segments) == 2 && segments[0] == "category":
		loc.Kind = KindCategory
		loc.Category = segments[1]
	case len(segments) == 2 && segments[0] == "topic":
		loc.Kind = KindTopic
		loc.Topic = segments[1]
	case len(segments) == 1:
		if page, ok := taxonomy.StaticPageBySlug(strings.ToLower(segments[0])); ok {
			loc.Kind = KindStatic
			loc.Static = page.Slug
		} else {
			loc.Kind = KindNotFound
		}
	default:
		loc.Kind = KindNotFound
	}

	if loc.Kind == KindArticle && !IsSafeID(loc.ArticleID) {
		loc = Location{Kind: KindNotFound, Path: loc.Path}
	}

	loc.Filter = models.FilterState{
		Section:  loc.Section,
		Vertical: loc.Vertical,
		Topic:    loc.Topic,
		Category: loc.Category,
		Sort:     models.SortLatest,
	}
	applyQuery(&loc.Filter, query)
	return loc
}

func parseNews(loc *Location, rest []string) {
	loc.Section = taxonomy.News
	switch len(rest) {
	case 0:
		loc.Kind = KindSection
	case 1:
		if slug, ok := taxonomy.CanonicalVertical(rest[0]); ok {
			loc.Kind = KindVertical
			loc.Vertical = slug
			return
		}
		loc.Kind = KindArticle
		loc.ArticleID = rest[0]
	case 2:
		loc.Kind = KindArticle
		loc.Vertical = rest[0]
		if slug, ok := taxonomy.CanonicalVertical(rest[0]); ok {
			loc.Vertical = slug
		}
		loc.ArticleID = rest[1]
	}
}

func applyQuery(f *models.FilterState, query url.Values) {
	if query == nil {
		return
	}
	if q := strings.TrimSpace(query.Get("q")); q != "" {
		f.Query = q
	}
	if tag := strings.TrimSpace(query.Get("tag")); tag != "" {
		f.Tag = tag
	}
	if category := strings.TrimSpace(query.Get("category")); category != "" {
		f.Category = category
	}
	if strings.EqualFold(strings.TrimSpace(query.Get("filter")), "bookmarks") {
		f.BookmarkOnly = true
	}
	if sort := query.Get("sort"); sort != "" {
		f.Sort = models.ParseSortMode(sort)
	}
}

func splitPath(path string) []string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	var segments []string
	for _, s := range strings.Split(path, "/") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if unescaped, err := url.PathUnescape(s); err == nil {
			s = unescaped
		}
		segments = append(segments, s)
	}
	// section names are matched case-insensitively, ids are kept as written
	if len(segments) > 0 {
		head := strings.ToLower(segments[0])
		switch head {
		case "news", "opinion", "reviews", "category", "topic":
			segments[0] = head
		}
		if head == "news" && len(segments) > 1 {
			if _, ok := taxonomy.CanonicalVertical(segments[1]); ok {
				segments[1] = strings.ToLower(segments[1])
			}
		}
	}
	return segments
}
