package api

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"animeportal/internal/auth"
	"animeportal/internal/catalog"
	"animeportal/internal/locale"
	"animeportal/internal/markdown"
	"animeportal/internal/models"
	"animeportal/internal/prefs"
	"animeportal/internal/routes"
	"animeportal/internal/syndication"
	"animeportal/internal/taxonomy"

	"github.com/gin-gonic/gin"
)

const relatedCount = 3

var feedDescription = locale.NewText(
	"Berita, opini, dan ulasan anime terbaru",
	"The latest anime news, opinion and reviews",
)

// articleSummary is an article resolved to one language for listings
type articleSummary struct {
	ID          string           `json:"id"`
	Link        string           `json:"link"`
	Title       string           `json:"title"`
	Excerpt     string           `json:"excerpt"`
	Category    string           `json:"category"`
	SubCategory string           `json:"sub_category,omitempty"`
	Section     taxonomy.Section `json:"section"`
	Author      string           `json:"author"`
	Date        string           `json:"date"`
	PublishedAt time.Time        `json:"published_at"`
	ImageURL    string           `json:"image_url"`
	Tags        []string         `json:"tags"`
	Views       int64            `json:"views"`
	Bookmarked  bool             `json:"bookmarked,omitempty"`
}

type galleryView struct {
	URL      string `json:"url"`
	VideoURL string `json:"video_url,omitempty"`
	Caption  string `json:"caption,omitempty"`
	Source   string `json:"source,omitempty"`
}

type articleDetail struct {
	articleSummary
	Content        string             `json:"content"`
	HTML           string             `json:"html"`
	Headings       []markdown.Heading `json:"headings"`
	Translated     bool               `json:"translated"`
	VideoURL       string             `json:"video_url,omitempty"`
	Gallery        []galleryView      `json:"gallery,omitempty"`
	Source         string             `json:"source,omitempty"`
	SourceURL      string             `json:"source_url,omitempty"`
	ImageSource    string             `json:"image_source,omitempty"`
	ImageSourceURL string             `json:"image_source_url,omitempty"`
	Related        []articleSummary   `json:"related"`
}

func summarize(a *models.Article, lang locale.Language, bookmarks map[string]struct{}) articleSummary {
	tags := make([]string, 0, len(a.Tags))
	for _, t := range a.Tags {
		tags = append(tags, t.Get(lang))
	}
	_, bookmarked := bookmarks[a.ID]
	return articleSummary{
		ID:          a.ID,
		Link:        routes.ArticleLink(a),
		Title:       a.Title.Get(lang),
		Excerpt:     a.Excerpt.Get(lang),
		Category:    a.Category.Get(lang),
		SubCategory: a.SubCategory.Get(lang),
		Section:     a.Section(),
		Author:      a.Author,
		Date:        a.Date.Get(lang),
		PublishedAt: a.PublishedAt,
		ImageURL:    a.ImageURL,
		Tags:        tags,
		Views:       a.Views,
		Bookmarked:  bookmarked,
	}
}

func summarizeAll(articles []models.Article, lang locale.Language, bookmarks map[string]struct{}) []articleSummary {
	out := make([]articleSummary, 0, len(articles))
	for i := range articles {
		out = append(out, summarize(&articles[i], lang, bookmarks))
	}
	return out
}

// bookmarks returns the signed-in reader's bookmark set, or nil for
// anonymous requests.
func (s *Server) bookmarks(c *gin.Context) map[string]struct{} {
	claims := auth.MustGetClaims(c)
	if claims == nil || s.sessions == nil {
		return nil
	}
	return prefs.BookmarkSet(s.sessions.Session(c.Request.Context(), claims.UserID).Snapshot())
}

// filterFromQuery builds a filter state from listing query parameters.
// Section and vertical accept any of their aliases.
func filterFromQuery(c *gin.Context) (models.FilterState, error) {
	f := models.FilterState{
		Tag:          strings.TrimSpace(c.Query("tag")),
		Topic:        strings.TrimSpace(c.Query("topic")),
		Category:     strings.TrimSpace(c.Query("category")),
		Query:        strings.TrimSpace(c.Query("q")),
		Sort:         models.ParseSortMode(c.Query("sort")),
		BookmarkOnly: strings.EqualFold(c.Query("filter"), "bookmarks"),
	}
	if label := strings.TrimSpace(c.Query("section")); label != "" {
		section, ok := taxonomy.CanonicalSection(label)
		if !ok {
			return f, errors.New("unknown section: " + label)
		}
		f.Section = section
	}
	if label := strings.TrimSpace(c.Query("vertical")); label != "" {
		f.Vertical = label
		if slug, ok := taxonomy.CanonicalVertical(label); ok {
			f.Vertical = slug
		}
		if f.Section == "" || f.Section == taxonomy.Home {
			f.Section = taxonomy.News
		}
	}
	return f, nil
}

func (s *Server) listArticles(c *gin.Context) {
	lang := s.language(c)
	f, err := filterFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	offset, limit := s.pageParams(c)
	bookmarks := s.bookmarks(c)

	page, err := s.catalog.Query(f, bookmarks, offset, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"lang":     lang,
		"filter":   f,
		"articles": summarizeAll(page.Articles, lang, bookmarks),
		"total":    page.Total,
		"offset":   page.Offset,
		"limit":    page.Limit,
		"has_more": page.HasMore,
	})
}

func (s *Server) getArticle(c *gin.Context) {
	lang := s.language(c)
	a, err := s.catalog.Article(c.Param("id"))
	if err != nil {
		s.articleError(c, err)
		return
	}

	body := a.Content.Get(lang)
	html, err := markdown.Render(body)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	detail := articleDetail{
		articleSummary: summarize(a, lang, nil),
		Content:        body,
		HTML:           html,
		Headings:       markdown.Headings(body),
		Translated:     a.Translated,
		VideoURL:       a.VideoURL,
		Source:         a.Source,
		SourceURL:      a.SourceURL,
		ImageSource:    a.ImageSource,
		ImageSourceURL: a.ImageSourceURL,
		Related:        s.related(a, lang),
	}
	for _, g := range a.Gallery {
		detail.Gallery = append(detail.Gallery, galleryView{
			URL:      g.URL,
			VideoURL: g.VideoURL,
			Caption:  g.Caption.Get(lang),
			Source:   g.Source,
		})
	}

	c.JSON(http.StatusOK, detail)
}

// related lists the newest other articles of the same section.
func (s *Server) related(a *models.Article, lang locale.Language) []articleSummary {
	f := models.FilterState{Section: a.Section(), Sort: models.SortLatest}
	page, err := s.catalog.Query(f, nil, 0, relatedCount+1)
	if err != nil {
		return []articleSummary{}
	}
	out := make([]articleSummary, 0, relatedCount)
	for i := range page.Articles {
		if page.Articles[i].ID == a.ID || len(out) == relatedCount {
			continue
		}
		out = append(out, summarize(&page.Articles[i], lang, nil))
	}
	return out
}

func (s *Server) recordView(c *gin.Context) {
	id := c.Param("id")
	a, err := s.catalog.Article(id)
	if err != nil {
		s.articleError(c, err)
		return
	}

	views, err := s.catalog.RecordView(c.Request.Context(), id)
	if err != nil {
		s.articleError(c, err)
		return
	}
	s.metrics.ObserveView(string(a.Section()))

	if claims := auth.MustGetClaims(c); claims != nil && s.sessions != nil {
		s.sessions.Session(c.Request.Context(), claims.UserID).RecordView(c.Request.Context(), id)
	}

	c.JSON(http.StatusOK, gin.H{
		"article_id": id,
		"views":      views,
	})
}

func (s *Server) resolve(c *gin.Context) {
	lang := s.language(c)
	raw := strings.TrimSpace(c.Query("path"))
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "path is required"})
		return
	}
	u, err := url.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid path: " + err.Error()})
		return
	}

	loc := routes.Parse(u.Path, u.Query())
	resp := gin.H{"lang": lang, "location": loc}

	switch loc.Kind {
	case routes.KindNotFound:
		resp["error"] = "page not found"
		c.JSON(http.StatusNotFound, resp)
		return

	case routes.KindArticle:
		a, err := s.catalog.Article(loc.ArticleID)
		if err != nil {
			resp["error"] = err.Error()
			c.JSON(http.StatusNotFound, resp)
			return
		}
		summary := summarize(a, lang, s.bookmarks(c))
		resp["article"] = summary
		if summary.Link != loc.Path {
			resp["canonical"] = summary.Link
		}

	case routes.KindStatic:
		if page, ok := taxonomy.StaticPageBySlug(loc.Static); ok {
			resp["page"] = gin.H{"slug": page.Slug, "title": page.Name.Get(lang), "path": page.Path}
		}

	default:
		offset, limit := s.pageParams(c)
		bookmarks := s.bookmarks(c)
		page, err := s.catalog.Query(loc.Filter, bookmarks, offset, limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		resp["articles"] = summarizeAll(page.Articles, lang, bookmarks)
		resp["total"] = page.Total
		resp["offset"] = page.Offset
		resp["limit"] = page.Limit
		resp["has_more"] = page.HasMore
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) sectionLink(c *gin.Context) {
	label := c.Query("label")
	header, _ := strconv.ParseBool(c.DefaultQuery("header", "false"))
	canonical := taxonomy.Canonicalize(label, header)
	c.JSON(http.StatusOK, gin.H{
		"label": label,
		"path":  routes.SectionLink(label, header),
		"kind":  canonical.Kind,
		"slug":  canonical.Slug,
	})
}

func (s *Server) articleLink(c *gin.Context) {
	a, err := s.catalog.Article(c.Param("id"))
	if err != nil {
		s.articleError(c, err)
		return
	}
	path := routes.ArticleLink(a)
	c.JSON(http.StatusOK, gin.H{
		"id":   a.ID,
		"path": path,
		"url":  s.cfg.BaseURL + path,
	})
}

type navItem struct {
	Label string `json:"label"`
	Slug  string `json:"slug"`
	Path  string `json:"path"`
}

func navItems(entries []taxonomy.Entry, lang locale.Language) []navItem {
	out := make([]navItem, 0, len(entries))
	for _, e := range entries {
		out = append(out, navItem{Label: e.Name.Get(lang), Slug: e.Slug, Path: e.Path})
	}
	return out
}

func (s *Server) getTaxonomy(c *gin.Context) {
	lang := s.language(c)
	c.JSON(http.StatusOK, gin.H{
		"lang":         lang,
		"sections":     navItems(taxonomy.Sections(), lang),
		"verticals":    navItems(taxonomy.Verticals(), lang),
		"static_pages": navItems(taxonomy.StaticPages(), lang),
		"aliases": gin.H{
			"sections":     taxonomy.Sections(),
			"verticals":    taxonomy.Verticals(),
			"static_pages": taxonomy.StaticPages(),
		},
	})
}

func (s *Server) getFeed(c *gin.Context) {
	lang := s.language(c)
	f := models.FilterState{Sort: models.SortLatest}
	if label := strings.TrimSpace(c.Query("section")); label != "" {
		section, ok := taxonomy.CanonicalSection(label)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown section: " + label})
			return
		}
		f.Section = section
	}

	page, err := s.catalog.Query(f, nil, 0, syndication.DefaultItems)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	out, err := syndication.Marshal(syndication.Build(page.Articles, syndication.Options{
		Title:       s.cfg.SiteTitle,
		BaseURL:     s.cfg.BaseURL,
		Description: feedDescription,
		Language:    lang,
	}))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "application/rss+xml; charset=utf-8", out)
}

func (s *Server) articleError(c *gin.Context, err error) {
	if errors.Is(err, catalog.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
