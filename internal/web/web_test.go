package web

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func writeBuild(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "assets"), 0755); err != nil {
		t.Fatalf("failed to create assets: %v", err)
	}
	files := map[string]string{
		"index.html":    "<!doctype html><html><body><div id=\"root\"></div></body></html>",
		"assets/app.js": "console.log('portal')",
		"robots.txt":    "User-agent: *",
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0644); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
	return dir
}

func TestSPAServer_New(t *testing.T) {
	spaServer := NewSPAServer(true, "./dist")
	if !spaServer.enabled || spaServer.dir != "./dist" {
		t.Errorf("Expected enabled SPA server for ./dist, got %+v", spaServer)
	}

	spaServer = NewSPAServer(false, "")
	if spaServer.enabled {
		t.Error("Expected SPA server to be disabled")
	}
}

func TestSPAServer_HistoryFallback(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/api/v1/taxonomy", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{}) })
	NewSPAServer(true, writeBuild(t)).RegisterRoutes(router)

	tests := []struct {
		name     string
		method   string
		path     string
		wantCode int
		wantBody string
	}{
		{"home", http.MethodGet, "/", http.StatusOK, `id="root"`},
		{"article path", http.MethodGet, "/news/anime/frieren-s2", http.StatusOK, `id="root"`},
		{"static page", http.MethodGet, "/about", http.StatusOK, `id="root"`},
		{"asset", http.MethodGet, "/assets/app.js", http.StatusOK, "portal"},
		{"robots", http.MethodGet, "/robots.txt", http.StatusOK, "User-agent"},
		{"api route kept", http.MethodGet, "/api/v1/taxonomy", http.StatusOK, "{}"},
		{"unknown api", http.MethodGet, "/api/v1/nope", http.StatusNotFound, "Not found"},
		{"websocket prefix", http.MethodGet, "/ws/other", http.StatusNotFound, "Not found"},
		{"post", http.MethodPost, "/news", http.StatusNotFound, "Not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			if w.Code != tt.wantCode {
				t.Errorf("Expected status %d, got %d", tt.wantCode, w.Code)
			}
			if !strings.Contains(w.Body.String(), tt.wantBody) {
				t.Errorf("Expected body to contain %q, got %q", tt.wantBody, w.Body.String())
			}
		})
	}
}

func TestSPAServer_MissingBuild(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewSPAServer(true, filepath.Join(t.TempDir(), "missing")).RegisterRoutes(router)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/news", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 without a build, got %d", w.Code)
	}
}

func TestSPAServer_Disabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewSPAServer(false, writeBuild(t)).RegisterRoutes(router)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 when disabled, got %d", w.Code)
	}
}

func TestSwaggerServer(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	NewSwaggerServer(true).RegisterRoutes(router)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil))
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200 for swagger UI, got %d", w.Code)
	}

	router = gin.New()
	NewSwaggerServer(false).RegisterRoutes(router)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 when swagger is disabled, got %d", w.Code)
	}
}
