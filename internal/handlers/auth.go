package handlers

import (
	"errors"
	"net/http"

	"github.com/ian-seymour/gamma/internal/services"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email,max=120"`
	Password string `json:"password" binding:"required,min=6"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) RegisterUser(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": describeBindError(err)})
		return
	}

	user, err := h.credentials.Register(c.Request.Context(), req.Email, req.Password)
	if errors.Is(err, services.ErrDuplicateEmail) {
		c.JSON(http.StatusConflict, gin.H{"error": "Email already exists"})
		return
	}
	if err != nil {
		h.logger.Error("Registration failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	h.logAction(&user.ID, services.ActionRegister, user.Email, nil, c.ClientIP(), c.Request.UserAgent())

	c.JSON(http.StatusCreated, gin.H{"message": "User created successfully", "id": user.ID})
}

func (h *Handler) LoginUser(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": describeBindError(err)})
		return
	}

	user, err := h.credentials.Authenticate(c.Request.Context(), req.Email, req.Password)
	if errors.Is(err, services.ErrInvalidCredentials) {
		h.logAction(nil, services.ActionLoginFailed, req.Email, nil, c.ClientIP(), c.Request.UserAgent())
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}
	if err != nil {
		h.logger.Error("Login failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	// Set Session
	session := sessions.Default(c)
	session.Clear()
	session.Set(sessionUserKey, user.ID)
	if err := session.Save(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save session"})
		return
	}

	h.logAction(&user.ID, services.ActionLogin, user.Email, nil, c.ClientIP(), c.Request.UserAgent())

	c.JSON(http.StatusOK, gin.H{"message": "Login successful", "api_key": user.APIKey})
}

func (h *Handler) DeleteAccount(c *gin.Context) {
	user := currentUser(c)

	if err := h.credentials.DeleteAccount(c.Request.Context(), user.ID); err != nil {
		h.logger.Error("Failed to delete account", "user_id", user.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete account"})
		return
	}

	h.logAction(&user.ID, services.ActionAccountDeleted, user.Email, nil, c.ClientIP(), c.Request.UserAgent())

	// Clear session
	session := sessions.Default(c)
	session.Clear()
	if err := session.Save(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Account deleted successfully"})
}
