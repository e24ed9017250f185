package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"animeportal/internal/auth"
	"animeportal/internal/catalog"
	"animeportal/internal/config"
	"animeportal/internal/locale"
	"animeportal/internal/metrics"
	"animeportal/internal/poller"
	"animeportal/internal/prefs"
	"animeportal/internal/realtime"
	"animeportal/internal/security"
	"animeportal/internal/storage"
	"animeportal/internal/web"

	"github.com/gin-gonic/gin"
)

const maxPageSize = 50

type Server struct {
	router        *gin.Engine
	catalog       *catalog.Catalog
	poller        *poller.Poller
	store         storage.Storage
	sessions      *prefs.Manager
	hub           *realtime.Hub
	metrics       *metrics.Metrics
	tokens        auth.TokenService
	cfg           *config.Config
	defaultLang   locale.Language
	spaServer     *web.SPAServer
	swaggerServer *web.SwaggerServer
}

func NewServer(cat *catalog.Catalog, p *poller.Poller, store storage.Storage, sessions *prefs.Manager, hub *realtime.Hub, m *metrics.Metrics, cfg *config.Config) *Server {
	router := gin.New()
	router.Use(gin.Recovery())

	security.SetupSecurityMiddleware(router, &cfg.Security)
	if m != nil {
		router.Use(m.Middleware())
	}

	server := &Server{
		router:   router,
		catalog:  cat,
		poller:   p,
		store:    store,
		sessions: sessions,
		hub:      hub,
		metrics:  m,
		tokens: auth.TokenService{
			Secret:   []byte(cfg.JWTSecret),
			Issuer:   cfg.JWTIssuer,
			Duration: 30 * 24 * time.Hour,
		},
		cfg:           cfg,
		defaultLang:   locale.ParseLanguage(cfg.DefaultLanguage),
		spaServer:     web.NewSPAServer(cfg.EnableSPA, cfg.SPADir),
		swaggerServer: web.NewSwaggerServer(cfg.EnableSwagger),
	}

	server.setupRoutes()
	return server
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthCheck)
	s.router.GET("/feed.xml", s.getFeed)
	if s.hub != nil {
		s.router.GET("/ws/views", realtime.WSHandler(s.hub))
	}
	if s.metrics != nil && s.cfg.EnableMetrics {
		s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	optional := auth.OptionalAuth(s.tokens)
	required := auth.AuthMiddleware(s.tokens)

	api := s.router.Group("/api/v1")
	{
		api.GET("/articles", optional, s.listArticles)
		api.GET("/articles/:id", s.getArticle)
		api.POST("/articles/:id/views", optional, s.recordView)
		api.GET("/articles/:id/comments", s.listComments)
		api.POST("/articles/:id/comments", required, s.addComment)

		api.GET("/resolve", optional, s.resolve)
		api.GET("/links/section", s.sectionLink)
		api.GET("/links/article/:id", s.articleLink)
		api.GET("/taxonomy", s.getTaxonomy)
		api.GET("/catalog", s.getCatalogInfo)

		me := api.Group("/me", required)
		{
			me.GET("/preferences", s.getPreferences)
			me.POST("/preferences/sync", s.syncPreferences)
			me.PUT("/settings", s.updateSettings)
			me.PUT("/bookmarks/:id", s.toggleBookmark)
			me.POST("/history", s.recordHistory)
			me.POST("/searches", s.recordSearch)
		}

		api.GET("/poller/status", s.getPollerStatus)
		api.POST("/poller/force-poll", required, s.forcePoll)
		api.GET("/poller/last-polled", s.getLastPolledTimes)

		api.GET("/storage/stats", s.getStorageStats)
		api.POST("/storage/optimize", required, s.optimizeStorage)
	}

	s.swaggerServer.RegisterRoutes(s.router)
	s.spaServer.RegisterRoutes(s.router)
}

// Handler exposes the router for embedding and tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// StartWithContext serves until ctx is cancelled, then drains open requests
// for up to ten seconds.
func (s *Server) StartWithContext(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(s.cfg.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Println("Shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return ctx.Err()
}

// language picks the response language: ?lang=, then Accept-Language, then
// the configured default.
func (s *Server) language(c *gin.Context) locale.Language {
	var lang locale.Language
	if q := strings.TrimSpace(c.Query("lang")); q != "" {
		lang = locale.ParseLanguage(q)
	} else {
		lang = locale.Match(c.GetHeader("Accept-Language"), s.defaultLang)
	}
	c.Header("Content-Language", string(lang))
	return lang
}

func (s *Server) healthCheck(c *gin.Context) {
	info := s.catalog.Info()
	c.JSON(http.StatusOK, gin.H{
		"status":        "healthy",
		"service":       "animeportal",
		"poller_active": s.poller != nil && s.poller.IsPolling(),
		"articles":      info.ArticleCount,
		"catalog":       info.Source,
		"subscribers":   s.catalog.Subscribers(),
	})
}

func (s *Server) getCatalogInfo(c *gin.Context) {
	resp := gin.H{"catalog": s.catalog.Info()}
	if s.poller != nil {
		if result := s.poller.LastResult(); result != nil {
			resp["failures"] = result.Failures
			resp["warnings"] = result.Warnings
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) getPollerStatus(c *gin.Context) {
	if s.poller == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "poller not configured"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"is_polling":  s.poller.IsPolling(),
		"status":      "active",
		"last_polled": s.poller.GetLastPolledTime(),
		"catalog":     s.catalog.Info(),
	})
}

func (s *Server) forcePoll(c *gin.Context) {
	if s.poller == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "poller not configured"})
		return
	}
	target := c.Query("target")

	if err := s.poller.ForcePoll(c.Request.Context(), target); err != nil {
		status := http.StatusInternalServerError
		if target != "" && target != poller.TargetContent && target != poller.TargetViews {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Force poll completed successfully",
		"target":  target,
		"catalog": s.catalog.Info(),
	})
}

func (s *Server) getLastPolledTimes(c *gin.Context) {
	if s.poller == nil {
		c.JSON(http.StatusOK, gin.H{})
		return
	}
	c.JSON(http.StatusOK, s.poller.GetLastPolledTime())
}

func (s *Server) getStorageStats(c *gin.Context) {
	stats, err := s.store.GetDatabaseStats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) optimizeStorage(c *gin.Context) {
	if err := s.store.OptimizeDatabase(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Database optimized successfully"})
}

// pageParams reads offset and limit, clamping limit to the page size bounds.
func (s *Server) pageParams(c *gin.Context) (int, int) {
	offset, _ := strconv.Atoi(c.Query("offset"))
	if offset < 0 {
		offset = 0
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	if limit <= 0 {
		limit = s.cfg.PageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return offset, limit
}
