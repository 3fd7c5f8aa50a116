package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/ian-seymour/gamma/internal/services"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

func (h *Handler) ShowLogin(c *gin.Context) {
	c.HTML(http.StatusOK, "login.html", h.page(c, "Sign In", gin.H{
		"Next": c.Query("next"),
	}))
}

func (h *Handler) HandleLoginForm(c *gin.Context) {
	var form LoginForm
	if err := c.ShouldBind(&form); err != nil {
		c.HTML(http.StatusBadRequest, "login.html", h.page(c, "Sign In", gin.H{
			"Error": describeBindError(err),
			"Email": form.Email,
			"Next":  form.Next,
		}))
		return
	}
	if form.Next == "" {
		form.Next = c.Query("next")
	}
	email := strings.TrimSpace(form.Email)

	user, err := h.credentials.Authenticate(c.Request.Context(), email, form.Password)
	if errors.Is(err, services.ErrInvalidCredentials) {
		h.logAction(nil, services.ActionLoginFailed, email, nil, c.ClientIP(), c.Request.UserAgent())
		target := "/auth/login"
		if form.Next != "" && safeNext(form.Next) == form.Next {
			target += "?next=" + url.QueryEscape(form.Next)
		}
		h.redirectWithFlash(c, flashDanger, "Invalid email or password", target)
		return
	}
	if err != nil {
		h.logger.Error("Login failed", "error", err)
		c.HTML(http.StatusInternalServerError, "login.html", h.page(c, "Sign In", gin.H{
			"Error": "Something went wrong. Please try again.",
			"Email": email,
		}))
		return
	}

	// Set Session
	session := sessions.Default(c)
	session.Clear()
	session.Set(sessionUserKey, user.ID)
	if err := session.Save(); err != nil {
		c.HTML(http.StatusInternalServerError, "login.html", h.page(c, "Sign In", gin.H{"Error": "Failed to save session"}))
		return
	}

	h.logAction(&user.ID, services.ActionLogin, user.Email, nil, c.ClientIP(), c.Request.UserAgent())
	c.Redirect(http.StatusFound, safeNext(form.Next))
}

func (h *Handler) ShowRegister(c *gin.Context) {
	c.HTML(http.StatusOK, "register.html", h.page(c, "Create Account", nil))
}

func (h *Handler) HandleRegisterForm(c *gin.Context) {
	var form RegisterForm
	if err := c.ShouldBind(&form); err != nil {
		c.HTML(http.StatusBadRequest, "register.html", h.page(c, "Create Account", gin.H{
			"Error": describeBindError(err),
			"Email": form.Email,
		}))
		return
	}

	user, err := h.credentials.Register(c.Request.Context(), form.Email, form.Password)
	if errors.Is(err, services.ErrDuplicateEmail) {
		c.HTML(http.StatusConflict, "register.html", h.page(c, "Create Account", gin.H{
			"Error": "That email is already registered. Please use a different one.",
			"Email": form.Email,
		}))
		return
	}
	if err != nil {
		h.logger.Error("Registration failed", "error", err)
		c.HTML(http.StatusInternalServerError, "register.html", h.page(c, "Create Account", gin.H{
			"Error": "Failed to create account",
			"Email": form.Email,
		}))
		return
	}

	h.logAction(&user.ID, services.ActionRegister, user.Email, nil, c.ClientIP(), c.Request.UserAgent())
	h.redirectWithFlash(c, flashSuccess, "You are now registered! Please log in.", "/auth/login")
}

func (h *Handler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	if id, ok := session.Get(sessionUserKey).(uint); ok {
		h.logAction(&id, services.ActionLogout, "", nil, c.ClientIP(), c.Request.UserAgent())
	}

	session.Clear()
	h.redirectWithFlash(c, flashInfo, "You have been logged out.", "/auth/login")
}
