package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/ian-seymour/gamma/internal/models"
	"github.com/ian-seymour/gamma/internal/services"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const (
	sessionUserKey = "user_id"
	contextUserKey = "current_user"
	apiKeyHeader   = "X-API-Key"
)

// AuthRequired resolves the session (or X-API-Key header) to a user once per
// request. Handlers behind it read the user with currentUser.
func (h *Handler) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := h.sessionUser(c)
		if err != nil {
			h.logger.Error("Failed to load session user", "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}

		if user == nil {
			if apiKey := c.GetHeader(apiKeyHeader); apiKey != "" {
				if u, err := h.credentials.GetByAPIKey(c.Request.Context(), apiKey); err == nil {
					user = u
				}
			}
		}

		if user == nil {
			h.unauthorized(c)
			return
		}

		c.Set(contextUserKey, user)
		c.Next()
	}
}

// RedirectIfAuthenticated keeps signed-in users away from the login, register
// and reset pages.
func (h *Handler) RedirectIfAuthenticated() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := h.sessionUser(c)
		if err == nil && user != nil {
			c.Redirect(http.StatusFound, "/")
			c.Abort()
			return
		}
		c.Next()
	}
}

// sessionUser returns the user named by the session cookie, or nil. A session
// pointing at a deleted account is cleared.
func (h *Handler) sessionUser(c *gin.Context) (*models.User, error) {
	session := sessions.Default(c)
	id, ok := session.Get(sessionUserKey).(uint)
	if !ok {
		return nil, nil
	}

	user, err := h.credentials.GetByID(c.Request.Context(), id)
	if errors.Is(err, services.ErrUserNotFound) {
		session.Clear()
		if err := session.Save(); err != nil {
			h.logger.Warn("Failed to clear stale session", "error", err)
		}
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (h *Handler) unauthorized(c *gin.Context) {
	path := c.Request.URL.Path
	if strings.HasPrefix(path, "/api/") || strings.HasPrefix(path, "/radar/") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	target := "/auth/login"
	if uri := c.Request.URL.RequestURI(); c.Request.Method == http.MethodGet && uri != "/" {
		target += "?next=" + url.QueryEscape(uri)
	}
	c.Redirect(http.StatusFound, target)
	c.Abort()
}

func currentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(contextUserKey); ok {
		if user, ok := v.(*models.User); ok {
			return user
		}
	}
	return nil
}

// safeNext only allows same-site relative paths as post-login targets.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return "/"
	}
	return next
}

func (h *Handler) RateLimitMiddleware(limiter *services.IPRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Rate limit exceeded. Please try again later.",
			})
			return
		}
		c.Next()
	}
}
