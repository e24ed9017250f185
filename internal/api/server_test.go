package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"animeportal/internal/auth"
	"animeportal/internal/cache"
	"animeportal/internal/catalog"
	"animeportal/internal/config"
	"animeportal/internal/content"
	"animeportal/internal/locale"
	"animeportal/internal/metrics"
	"animeportal/internal/models"
	"animeportal/internal/poller"
	"animeportal/internal/prefs"
	"animeportal/internal/realtime"
	"animeportal/internal/storage"
	"animeportal/internal/taxonomy"
	"animeportal/internal/views"

	"github.com/PuerkitoBio/goquery"
	"github.com/gin-gonic/gin"
	"github.com/mmcdole/gofeed"
)

const testSecret = "test-secret"

func testArticles() []models.Article {
	return []models.Article{
		{
			ID:          "frieren-s2",
			Title:       locale.NewText("Frieren Musim 2 Diumumkan", "Frieren Season 2 Announced"),
			Excerpt:     locale.NewText("Kabar gembira.", "Good news."),
			Content:     locale.NewText("## Sinopsis\n\nFrieren kembali.", "## Synopsis\n\nFrieren returns."),
			Category:    locale.NewText("Berita", "News"),
			SubCategory: locale.NewText("Anime", "Anime"),
			Folder:      taxonomy.News,
			Author:      "Rina",
			PublishedAt: time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC),
			ImageURL:    "/images/frieren.png",
			Tags:        []locale.Text{locale.Plain("Frieren")},
			Views:       10,
			Translated:  true,
		},
		{
			ID:          "chainsaw-movie",
			Title:       locale.NewText("Film Chainsaw Man", "Chainsaw Man Movie"),
			Category:    locale.NewText("Berita", "News"),
			SubCategory: locale.NewText("Film", "Movies"),
			Folder:      taxonomy.News,
			PublishedAt: time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC),
			Views:       50,
		},
		{
			ID:          "take-isekai",
			Title:       locale.NewText("Isekai Sudah Jenuh?", "Is Isekai Tired?"),
			Category:    locale.NewText("Opini", "Opinion"),
			Folder:      taxonomy.Opinion,
			PublishedAt: time.Date(2025, 1, 4, 0, 0, 0, 0, time.UTC),
			Views:       500,
		},
		{
			ID:          "review-dandadan",
			Title:       locale.NewText("Ulasan Dandadan", "Dandadan Review"),
			Category:    locale.NewText("Ulasan", "Reviews"),
			Folder:      taxonomy.Reviews,
			PublishedAt: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC),
			Views:       5,
		},
	}
}

type testServer struct {
	server  *Server
	catalog *catalog.Catalog
	store   *storage.SQLiteStorage
	metrics *metrics.Metrics
	token   string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := storage.NewSQLiteStorage(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create SQLite storage: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	cacheManager := cache.NewManager(time.Minute)
	hub := realtime.NewHub()
	cat := catalog.New(cacheManager, views.NewOverlay(), store, hub, time.Minute)
	cat.Replace(testArticles(), "test")
	if _, err := cat.SyncViews(context.Background()); err != nil {
		t.Fatalf("SyncViews() error = %v", err)
	}

	p := poller.New(cat, cacheManager, store, content.NewLoader(nil), t.TempDir(), time.Minute)
	sessions := prefs.NewManager(cacheManager, nil, store, time.Minute)
	m := metrics.New()

	cfg := &config.Config{
		PageSize:        4,
		DefaultLanguage: "id",
		BaseURL:         "https://example.com",
		SiteTitle:       "AnimePortal",
		JWTSecret:       testSecret,
		JWTIssuer:       "animeportal",
		EnableMetrics:   true,
		Security:        config.SecurityConfig{MaxRequestSize: 1 << 20},
	}

	tokens := auth.TokenService{Secret: []byte(testSecret), Issuer: "animeportal", Duration: time.Hour}
	token, _, err := tokens.Sign("user-1", "Rina")
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}

	return &testServer{
		server:  NewServer(cat, p, store, sessions, hub, m, cfg),
		catalog: cat,
		store:   store,
		metrics: m,
		token:   token,
	}
}

func (ts *testServer) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.server.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("failed to decode %q: %v", w.Body.String(), err)
	}
	return out
}

type listResponse struct {
	Lang     string           `json:"lang"`
	Articles []articleSummary `json:"articles"`
	Total    int              `json:"total"`
	HasMore  bool             `json:"has_more"`
}

func ids(articles []articleSummary) string {
	out := make([]string, len(articles))
	for i, a := range articles {
		out[i] = a.ID
	}
	return strings.Join(out, ",")
}

func TestServer_Health(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, http.MethodGet, "/health", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	resp := decode[map[string]any](t, w)
	if resp["status"] != "healthy" || resp["articles"] != float64(4) || resp["poller_active"] != false {
		t.Errorf("Unexpected health response: %v", resp)
	}
}

func TestServer_ListArticles(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name    string
		path    string
		headers map[string]string
		code    int
		want    string
		hasMore bool
		lang    string
	}{
		{name: "home latest", path: "/api/v1/articles", code: 200, want: "frieren-s2,take-isekai,chainsaw-movie,review-dandadan", lang: "id"},
		{name: "news section", path: "/api/v1/articles?section=berita", code: 200, want: "frieren-s2,chainsaw-movie", lang: "id"},
		{name: "vertical alias", path: "/api/v1/articles?vertical=film", code: 200, want: "chainsaw-movie", lang: "id"},
		{name: "popular page", path: "/api/v1/articles?sort=popular&limit=2", code: 200, want: "take-isekai,chainsaw-movie", hasMore: true, lang: "id"},
		{name: "second page", path: "/api/v1/articles?sort=popular&limit=2&offset=2", code: 200, want: "frieren-s2,review-dandadan", lang: "id"},
		{name: "tag", path: "/api/v1/articles?tag=frieren", code: 200, want: "frieren-s2", lang: "id"},
		{name: "query either language", path: "/api/v1/articles?q=review", code: 200, want: "review-dandadan", lang: "id"},
		{name: "accept language", path: "/api/v1/articles?section=opinion", headers: map[string]string{"Accept-Language": "en-US,en;q=0.9"}, code: 200, want: "take-isekai", lang: "en"},
		{name: "lang param wins", path: "/api/v1/articles?section=opinion&lang=id", headers: map[string]string{"Accept-Language": "en"}, code: 200, want: "take-isekai", lang: "id"},
		{name: "anonymous bookmarks", path: "/api/v1/articles?filter=bookmarks", code: 200, want: "", lang: "id"},
		{name: "unknown section", path: "/api/v1/articles?section=sports", code: 400},
		{name: "bad sort", path: "/api/v1/articles?sort=random", code: 400},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()
			ts.server.Handler().ServeHTTP(w, req)

			if w.Code != tt.code {
				t.Fatalf("Expected status %d, got %d: %s", tt.code, w.Code, w.Body.String())
			}
			if tt.code != http.StatusOK {
				return
			}
			resp := decode[listResponse](t, w)
			if got := ids(resp.Articles); got != tt.want {
				t.Errorf("Expected [%s], got [%s]", tt.want, got)
			}
			if resp.HasMore != tt.hasMore {
				t.Errorf("Expected has_more %v, got %v", tt.hasMore, resp.HasMore)
			}
			if resp.Lang != tt.lang || w.Header().Get("Content-Language") != tt.lang {
				t.Errorf("Expected language %s, got %s (header %s)", tt.lang, resp.Lang, w.Header().Get("Content-Language"))
			}
		})
	}
}

func TestServer_ListArticlesLocalizesSummaries(t *testing.T) {
	ts := newTestServer(t)

	resp := decode[listResponse](t, ts.do(t, http.MethodGet, "/api/v1/articles?tag=frieren&lang=en", nil, ""))
	if len(resp.Articles) != 1 {
		t.Fatalf("Expected 1 article, got %d", len(resp.Articles))
	}
	a := resp.Articles[0]
	if a.Title != "Frieren Season 2 Announced" || a.Category != "News" {
		t.Errorf("Expected English fields, got %q / %q", a.Title, a.Category)
	}
	if a.Link != "/news/anime/frieren-s2" {
		t.Errorf("Expected canonical link, got %q", a.Link)
	}

	resp = decode[listResponse](t, ts.do(t, http.MethodGet, "/api/v1/articles?tag=frieren", nil, ""))
	if resp.Articles[0].Title != "Frieren Musim 2 Diumumkan" {
		t.Errorf("Expected Indonesian default, got %q", resp.Articles[0].Title)
	}
}

func TestServer_GetArticle(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/api/v1/articles/frieren-s2?lang=en", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	detail := decode[articleDetail](t, w)
	if detail.Link != "/news/anime/frieren-s2" || !detail.Translated {
		t.Errorf("Unexpected detail %+v", detail.articleSummary)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(detail.HTML))
	if err != nil {
		t.Fatalf("failed to parse html: %v", err)
	}
	if got := doc.Find("h2#synopsis").Text(); got != "Synopsis" {
		t.Errorf("Expected rendered heading, got %q in %s", got, detail.HTML)
	}
	if !strings.Contains(doc.Find("p").Text(), "Frieren returns.") {
		t.Errorf("Expected English body, got %s", detail.HTML)
	}
	if len(detail.Headings) != 1 || detail.Headings[0].ID != "synopsis" {
		t.Errorf("Expected one heading, got %+v", detail.Headings)
	}
	if got := ids(detail.Related); got != "chainsaw-movie" {
		t.Errorf("Expected related news [chainsaw-movie], got [%s]", got)
	}

	if w := ts.do(t, http.MethodGet, "/api/v1/articles/missing", nil, ""); w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
	if w := ts.do(t, http.MethodGet, "/api/v1/articles/bad@id", nil, ""); w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for unsafe id, got %d", w.Code)
	}
}

func TestServer_RecordView(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/v1/articles/frieren-s2/views", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := decode[map[string]any](t, w)
	if resp["views"] != float64(11) {
		t.Errorf("Expected 11 views, got %v", resp["views"])
	}

	a, _ := ts.catalog.Article("frieren-s2")
	if a.Views != 11 {
		t.Errorf("Expected catalog to show 11 views, got %d", a.Views)
	}
	counts, _ := ts.store.ViewCounts(context.Background())
	if counts["frieren-s2"] != 11 {
		t.Errorf("Expected store to hold 11 views, got %d", counts["frieren-s2"])
	}

	// signed-in views also land in the reading history
	ts.do(t, http.MethodPost, "/api/v1/articles/chainsaw-movie/views", nil, ts.token)
	p := decode[models.Preferences](t, ts.do(t, http.MethodGet, "/api/v1/me/preferences", nil, ts.token))
	if len(p.History) != 1 || p.History[0].ArticleID != "chainsaw-movie" {
		t.Errorf("Expected history [chainsaw-movie], got %+v", p.History)
	}

	if w := ts.do(t, http.MethodPost, "/api/v1/articles/missing/views", nil, ""); w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestServer_Comments(t *testing.T) {
	ts := newTestServer(t)
	path := "/api/v1/articles/take-isekai/comments"

	if w := ts.do(t, http.MethodPost, path, gin.H{"body": "Setuju!"}, ""); w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401 without token, got %d", w.Code)
	}

	w := ts.do(t, http.MethodPost, path, gin.H{"body": "  Setuju!  "}, ts.token)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	first := decode[models.Comment](t, w)
	if first.ID == "" || first.Body != "Setuju!" || first.Author != "Rina" || first.UserID != "user-1" {
		t.Errorf("Unexpected comment %+v", first)
	}

	if w := ts.do(t, http.MethodPost, path, gin.H{"body": "Balasan", "parent_id": first.ID}, ts.token); w.Code != http.StatusCreated {
		t.Errorf("Expected reply to be created, got %d", w.Code)
	}
	if w := ts.do(t, http.MethodPost, path, gin.H{"body": "Balasan", "parent_id": "nope"}, ts.token); w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for unknown parent, got %d", w.Code)
	}
	if w := ts.do(t, http.MethodPost, path, gin.H{"body": "   "}, ts.token); w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for blank body, got %d", w.Code)
	}
	if w := ts.do(t, http.MethodPost, "/api/v1/articles/missing/comments", gin.H{"body": "x"}, ts.token); w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for unknown article, got %d", w.Code)
	}

	list := decode[struct {
		Comments []models.Comment `json:"comments"`
		Count    int              `json:"count"`
	}](t, ts.do(t, http.MethodGet, path, nil, ""))
	if list.Count != 2 || list.Comments[0].ID != first.ID || list.Comments[1].ParentID != first.ID {
		t.Errorf("Expected comment then reply, got %+v", list.Comments)
	}
}

func TestServer_Resolve(t *testing.T) {
	ts := newTestServer(t)

	type resolveResponse struct {
		Location struct {
			Kind      string `json:"kind"`
			ArticleID string `json:"article_id"`
			Vertical  string `json:"vertical"`
		} `json:"location"`
		Article   *articleSummary  `json:"article"`
		Canonical string           `json:"canonical"`
		Articles  []articleSummary `json:"articles"`
		Page      map[string]any   `json:"page"`
	}

	w := ts.do(t, http.MethodGet, "/api/v1/resolve?path=/news/animes/frieren-s2", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	resp := decode[resolveResponse](t, w)
	if resp.Location.Kind != "article" || resp.Article == nil || resp.Article.ID != "frieren-s2" {
		t.Errorf("Expected article location, got %+v", resp)
	}
	if resp.Canonical != "/news/anime/frieren-s2" {
		t.Errorf("Expected canonical hint, got %q", resp.Canonical)
	}

	resp = decode[resolveResponse](t, ts.do(t, http.MethodGet, "/api/v1/resolve?path=/news/anime/frieren-s2", nil, ""))
	if resp.Canonical != "" {
		t.Errorf("Expected no canonical hint for canonical path, got %q", resp.Canonical)
	}

	resp = decode[resolveResponse](t, ts.do(t, http.MethodGet, "/api/v1/resolve?path="+urlEncode("/news?sort=popular"), nil, ""))
	if resp.Location.Kind != "section" || ids(resp.Articles) != "chainsaw-movie,frieren-s2" {
		t.Errorf("Expected popular news listing, got %s [%s]", resp.Location.Kind, ids(resp.Articles))
	}

	resp = decode[resolveResponse](t, ts.do(t, http.MethodGet, "/api/v1/resolve?path=/news/games", nil, ""))
	if resp.Location.Kind != "vertical" || len(resp.Articles) != 0 {
		t.Errorf("Expected empty games vertical, got %s [%s]", resp.Location.Kind, ids(resp.Articles))
	}

	resp = decode[resolveResponse](t, ts.do(t, http.MethodGet, "/api/v1/resolve?path=/about&lang=en", nil, ""))
	if resp.Location.Kind != "static" || resp.Page["title"] != "About Us" {
		t.Errorf("Expected static about page, got %+v", resp)
	}

	if w := ts.do(t, http.MethodGet, "/api/v1/resolve?path=/news/anime/missing", nil, ""); w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for unknown article, got %d", w.Code)
	}
	if w := ts.do(t, http.MethodGet, "/api/v1/resolve?path=/a/b/c", nil, ""); w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 outside the URL surface, got %d", w.Code)
	}
	if w := ts.do(t, http.MethodGet, "/api/v1/resolve", nil, ""); w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 without path, got %d", w.Code)
	}
}

func urlEncode(s string) string {
	return strings.NewReplacer("?", "%3F", "&", "%26", "=", "%3D").Replace(s)
}

func TestServer_Links(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		query string
		want  string
	}{
		{"label=Berita", "/news"},
		{"label=Ulasan", "/reviews"},
		{"label=Anime&header=true", "/news/anime"},
		{"label=Anime", "/category/anime"},
		{"label=Tentang%20Kami", "/about"},
		{"label=", "/"},
	}
	for _, tt := range tests {
		resp := decode[map[string]any](t, ts.do(t, http.MethodGet, "/api/v1/links/section?"+tt.query, nil, ""))
		if resp["path"] != tt.want {
			t.Errorf("%s: Expected %s, got %v", tt.query, tt.want, resp["path"])
		}
	}

	resp := decode[map[string]any](t, ts.do(t, http.MethodGet, "/api/v1/links/article/chainsaw-movie", nil, ""))
	if resp["path"] != "/news/movies/chainsaw-movie" || resp["url"] != "https://example.com/news/movies/chainsaw-movie" {
		t.Errorf("Unexpected article link %v", resp)
	}
	if w := ts.do(t, http.MethodGet, "/api/v1/links/article/missing", nil, ""); w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestServer_Taxonomy(t *testing.T) {
	ts := newTestServer(t)
	resp := decode[struct {
		Sections  []navItem `json:"sections"`
		Verticals []navItem `json:"verticals"`
	}](t, ts.do(t, http.MethodGet, "/api/v1/taxonomy?lang=en", nil, ""))

	if len(resp.Sections) != 4 || resp.Sections[1].Label != "News" || resp.Sections[1].Path != "/news" {
		t.Errorf("Unexpected sections %+v", resp.Sections)
	}
	if len(resp.Verticals) != 4 {
		t.Errorf("Expected 4 verticals, got %d", len(resp.Verticals))
	}
}

func TestServer_Preferences(t *testing.T) {
	ts := newTestServer(t)

	if w := ts.do(t, http.MethodGet, "/api/v1/me/preferences", nil, ""); w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401 without token, got %d", w.Code)
	}
	if w := ts.do(t, http.MethodGet, "/api/v1/me/preferences", nil, "garbage"); w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401 with bad token, got %d", w.Code)
	}

	toggle := decode[map[string]any](t, ts.do(t, http.MethodPut, "/api/v1/me/bookmarks/take-isekai", nil, ts.token))
	if toggle["bookmarked"] != true {
		t.Errorf("Expected bookmark to be set, got %v", toggle)
	}
	if w := ts.do(t, http.MethodPut, "/api/v1/me/bookmarks/missing", nil, ts.token); w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for unknown article, got %d", w.Code)
	}

	list := decode[listResponse](t, ts.do(t, http.MethodGet, "/api/v1/articles?filter=bookmarks", nil, ts.token))
	if ids(list.Articles) != "take-isekai" || !list.Articles[0].Bookmarked {
		t.Errorf("Expected bookmarked [take-isekai], got [%s]", ids(list.Articles))
	}

	// the client copy carries a bookmark made while offline
	client := models.Preferences{
		Bookmarks: []models.Bookmark{{ArticleID: "review-dandadan", At: time.Now().UTC()}},
		UpdatedAt: time.Now().UTC(),
	}
	synced := decode[models.Preferences](t, ts.do(t, http.MethodPost, "/api/v1/me/preferences/sync", client, ts.token))
	if !prefs.IsBookmarked(synced, "review-dandadan") || !prefs.IsBookmarked(synced, "take-isekai") {
		t.Errorf("Expected union of bookmarks, got %+v", synced.Bookmarks)
	}
	if synced.UserID != "user-1" {
		t.Errorf("Expected user id from token, got %q", synced.UserID)
	}

	toggle = decode[map[string]any](t, ts.do(t, http.MethodPut, "/api/v1/me/bookmarks/take-isekai", nil, ts.token))
	if toggle["bookmarked"] != false {
		t.Errorf("Expected bookmark to be cleared, got %v", toggle)
	}

	p := decode[models.Preferences](t, ts.do(t, http.MethodPost, "/api/v1/me/searches", gin.H{"query": "frieren"}, ts.token))
	if len(p.SearchHistory) != 1 || p.SearchHistory[0].Query != "frieren" {
		t.Errorf("Expected search history [frieren], got %+v", p.SearchHistory)
	}
	if w := ts.do(t, http.MethodPost, "/api/v1/me/searches", gin.H{"query": "  "}, ts.token); w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for blank query, got %d", w.Code)
	}

	p = decode[models.Preferences](t, ts.do(t, http.MethodPost, "/api/v1/me/history", gin.H{"article_id": "frieren-s2"}, ts.token))
	if len(p.History) != 1 || p.History[0].ArticleID != "frieren-s2" {
		t.Errorf("Expected history [frieren-s2], got %+v", p.History)
	}
	if a, _ := ts.catalog.Article("frieren-s2"); a.Views != 10 {
		t.Errorf("Expected history not to count a view, got %d", a.Views)
	}

	p = decode[models.Preferences](t, ts.do(t, http.MethodPut, "/api/v1/me/settings", gin.H{"theme": "Dark", "language": "en"}, ts.token))
	if p.Theme != "dark" || p.Language != locale.English {
		t.Errorf("Expected dark/en settings, got %q/%q", p.Theme, p.Language)
	}
	if w := ts.do(t, http.MethodPut, "/api/v1/me/settings", gin.H{"theme": "neon"}, ts.token); w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for unknown theme, got %d", w.Code)
	}
	if w := ts.do(t, http.MethodPut, "/api/v1/me/settings", gin.H{"language": "fr"}, ts.token); w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for unknown language, got %d", w.Code)
	}

	stored, err := ts.store.LoadPreferences(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("LoadPreferences() error = %v", err)
	}
	if stored.Theme != "dark" {
		t.Errorf("Expected preferences persisted remotely, got %+v", stored)
	}
}

func TestServer_PollerEndpoints(t *testing.T) {
	ts := newTestServer(t)

	status := decode[map[string]any](t, ts.do(t, http.MethodGet, "/api/v1/poller/status", nil, ""))
	if status["is_polling"] != false {
		t.Errorf("Expected poller idle, got %v", status)
	}

	if w := ts.do(t, http.MethodPost, "/api/v1/poller/force-poll?target=views", nil, ""); w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401 without token, got %d", w.Code)
	}
	if w := ts.do(t, http.MethodPost, "/api/v1/poller/force-poll?target=views", nil, ts.token); w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if w := ts.do(t, http.MethodPost, "/api/v1/poller/force-poll?target=feeds", nil, ts.token); w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for unknown target, got %d", w.Code)
	}

	polled := decode[map[string]time.Time](t, ts.do(t, http.MethodGet, "/api/v1/poller/last-polled", nil, ""))
	if polled[poller.TargetViews].IsZero() {
		t.Errorf("Expected views target polled, got %v", polled)
	}
}

func TestServer_Feed(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/feed.xml?lang=en", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/rss+xml") {
		t.Errorf("Expected RSS content type, got %q", ct)
	}
	feed, err := gofeed.NewParser().ParseString(w.Body.String())
	if err != nil {
		t.Fatalf("Expected valid RSS: %v", err)
	}
	if feed.Title != "AnimePortal" || feed.Language != "en" || len(feed.Items) != 4 {
		t.Errorf("Unexpected feed %q %q %d items", feed.Title, feed.Language, len(feed.Items))
	}
	if feed.Items[0].Link != "https://example.com/news/anime/frieren-s2" {
		t.Errorf("Expected newest article first, got %q", feed.Items[0].Link)
	}

	w = ts.do(t, http.MethodGet, "/feed.xml?section=ulasan", nil, "")
	feed, err = gofeed.NewParser().ParseString(w.Body.String())
	if err != nil {
		t.Fatalf("Expected valid RSS: %v", err)
	}
	if len(feed.Items) != 1 || feed.Items[0].Title != "Ulasan Dandadan" {
		t.Errorf("Expected the single Indonesian review item, got %d items", len(feed.Items))
	}
}

func TestServer_MetricsAndStats(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodGet, "/health", nil, "")
	ts.do(t, http.MethodPost, "/api/v1/articles/take-isekai/views", nil, "")

	w := ts.do(t, http.MethodGet, "/metrics", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, `route="/health"`) {
		t.Errorf("Expected request metrics for /health")
	}
	if !strings.Contains(body, `animeportal_views_recorded_total{section="opinion"} 1`) {
		t.Errorf("Expected opinion view to be counted")
	}

	stats := decode[map[string]any](t, ts.do(t, http.MethodGet, "/api/v1/storage/stats", nil, ""))
	if stats["tracked_articles"] != float64(4) {
		t.Errorf("Expected 4 tracked articles, got %v", stats["tracked_articles"])
	}
	if w := ts.do(t, http.MethodPost, "/api/v1/storage/optimize", nil, ts.token); w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
}

func TestStartWithContext_ShutsDownOnCancel(t *testing.T) {
	ts := newTestServer(t)
	ts.server.cfg.Port = 0

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ts.server.StartWithContext(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Expected server to stop after cancel")
	}
}
