package handlers

import (
	"encoding/gob"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const (
	flashSuccess = "success"
	flashInfo    = "info"
	flashWarning = "warning"
	flashDanger  = "danger"
)

var flashCategories = []string{flashSuccess, flashInfo, flashWarning, flashDanger}

func init() {
	// Flashes are stored as []interface{} in the cookie.
	gob.Register([]interface{}{})
}

type flashMessage struct {
	Category string
	Message  string
}

// redirectWithFlash queues a message for the next rendered page and redirects.
func (h *Handler) redirectWithFlash(c *gin.Context, category, message, location string) {
	session := sessions.Default(c)
	session.AddFlash(message, category)
	if err := session.Save(); err != nil {
		h.logger.Warn("Failed to save flash message", "error", err)
	}
	c.Redirect(http.StatusFound, location)
}

// popFlashes drains every queued flash message.
func (h *Handler) popFlashes(c *gin.Context) []flashMessage {
	session := sessions.Default(c)

	var out []flashMessage
	for _, category := range flashCategories {
		for _, f := range session.Flashes(category) {
			if msg, ok := f.(string); ok {
				out = append(out, flashMessage{Category: category, Message: msg})
			}
		}
	}
	if len(out) > 0 {
		if err := session.Save(); err != nil {
			h.logger.Warn("Failed to clear flash messages", "error", err)
		}
	}
	return out
}

// page builds template data with the fields every layout expects.
func (h *Handler) page(c *gin.Context, title string, data gin.H) gin.H {
	if data == nil {
		data = gin.H{}
	}
	data["Title"] = title
	data["Flashes"] = h.popFlashes(c)
	if _, ok := data["User"]; !ok {
		if user := currentUser(c); user != nil {
			data["User"] = user
		}
	}
	return data
}
