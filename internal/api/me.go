package api

import (
	"net/http"
	"strings"

	"animeportal/internal/auth"
	"animeportal/internal/locale"
	"animeportal/internal/models"
	"animeportal/internal/prefs"
	"animeportal/internal/security"

	"github.com/gin-gonic/gin"
)

type historyRequest struct {
	ArticleID string `json:"article_id" binding:"required"`
}

type searchRequest struct {
	Query string `json:"query" binding:"required"`
}

type settingsRequest struct {
	Theme    *string `json:"theme"`
	Language *string `json:"language"`
}

type commentRequest struct {
	Body     string `json:"body" binding:"required"`
	ParentID string `json:"parent_id"`
}

var themes = map[string]bool{"light": true, "dark": true, "system": true}

func (s *Server) session(c *gin.Context) (*prefs.Session, bool) {
	claims := auth.MustGetClaims(c)
	if claims == nil || s.sessions == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return nil, false
	}
	return s.sessions.Session(c.Request.Context(), claims.UserID), true
}

func (s *Server) getPreferences(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sess.Snapshot())
}

// syncPreferences merges the client's copy into the server session and
// returns the reconciled state.
func (s *Server) syncPreferences(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	var client models.Preferences
	if err := c.ShouldBindJSON(&client); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid preferences: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, sess.Sync(c.Request.Context(), client))
}

func (s *Server) updateSettings(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	var req settingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	if req.Theme != nil {
		theme := strings.ToLower(strings.TrimSpace(*req.Theme))
		if !themes[theme] {
			c.JSON(http.StatusBadRequest, gin.H{"error": "theme must be light, dark or system"})
			return
		}
		sess.SetTheme(ctx, theme)
	}
	if req.Language != nil {
		lang := locale.Language(strings.ToLower(strings.TrimSpace(*req.Language)))
		if !lang.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "language must be id or en"})
			return
		}
		sess.SetLanguage(ctx, lang)
	}
	c.JSON(http.StatusOK, sess.Snapshot())
}

func (s *Server) toggleBookmark(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	id := c.Param("id")
	if _, err := s.catalog.Article(id); err != nil {
		s.articleError(c, err)
		return
	}

	p, bookmarked := sess.ToggleBookmark(c.Request.Context(), id)
	c.JSON(http.StatusOK, gin.H{
		"article_id":  id,
		"bookmarked":  bookmarked,
		"preferences": p,
	})
}

// recordHistory adds a reading-history entry without counting a view.
func (s *Server) recordHistory(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	var req historyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if _, err := s.catalog.Article(req.ArticleID); err != nil {
		s.articleError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess.RecordView(c.Request.Context(), req.ArticleID))
}

func (s *Server) recordSearch(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Query) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query is required"})
		return
	}
	c.JSON(http.StatusOK, sess.RecordSearch(c.Request.Context(), strings.TrimSpace(req.Query)))
}

func (s *Server) listComments(c *gin.Context) {
	id := c.Param("id")
	if _, err := s.catalog.Article(id); err != nil {
		s.articleError(c, err)
		return
	}
	comments, err := s.store.ListComments(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"article_id": id,
		"comments":   comments,
		"count":      len(comments),
	})
}

func (s *Server) addComment(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	id := c.Param("id")
	if _, err := s.catalog.Article(id); err != nil {
		s.articleError(c, err)
		return
	}

	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "comment body is required"})
		return
	}
	body, err := security.SanitizeComment(req.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	if req.ParentID != "" {
		existing, err := s.store.ListComments(ctx, id)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		found := false
		for _, e := range existing {
			if e.ID == req.ParentID {
				found = true
				break
			}
		}
		if !found {
			c.JSON(http.StatusBadRequest, gin.H{"error": "parent comment not found"})
			return
		}
	}

	author := claims.Name
	if author == "" {
		author = claims.UserID
	}
	comment := &models.Comment{
		ArticleID: id,
		ParentID:  req.ParentID,
		UserID:    claims.UserID,
		Author:    author,
		Body:      body,
	}
	if err := s.store.AddComment(ctx, comment); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, comment)
}
