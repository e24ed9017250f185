package web

import (
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
)

// prefixes owned by the backend; unknown paths below them are real 404s
var apiPrefixes = []string{"/api/", "/ws/", "/swagger/", "/metrics", "/feed.xml", "/health"}

// SPAServer serves the built reader application. Every unknown GET path
// falls back to index.html so the client router can resolve it.
type SPAServer struct {
	enabled bool
	dir     string
}

// NewSPAServer creates a new SPA server instance
func NewSPAServer(enabled bool, dir string) *SPAServer {
	if enabled {
		log.Printf("SPA Server enabled, serving %s", dir)
	}
	return &SPAServer{enabled: enabled, dir: dir}
}

// RegisterRoutes registers the SPA routes with the Gin router
func (s *SPAServer) RegisterRoutes(router *gin.Engine) {
	if !s.enabled {
		log.Println("SPA Server is disabled")
		router.NoRoute(notFound)
		return
	}

	index := filepath.Join(s.dir, "index.html")
	if _, err := os.Stat(index); err != nil {
		log.Printf("Warning: SPA index not found at %s, serving API only", index)
		router.NoRoute(notFound)
		return
	}

	if info, err := os.Stat(filepath.Join(s.dir, "assets")); err == nil && info.IsDir() {
		router.Static("/assets", filepath.Join(s.dir, "assets"))
	}
	for _, name := range []string{"favicon.ico", "robots.txt"} {
		if _, err := os.Stat(filepath.Join(s.dir, name)); err == nil {
			router.StaticFile("/"+name, filepath.Join(s.dir, name))
		}
	}

	router.NoRoute(func(c *gin.Context) {
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			notFound(c)
			return
		}
		if isAPIPath(c.Request.URL.Path) {
			notFound(c)
			return
		}
		c.File(index)
	})

	log.Println("SPA routes registered successfully")
}

func isAPIPath(path string) bool {
	for _, prefix := range apiPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func notFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
}
