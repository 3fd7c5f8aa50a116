package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ian-seymour/gamma/internal/services"

	"github.com/gin-gonic/gin"
)

const resetRequestedMessage = "If an account exists with that email, you will receive password reset instructions."

func (h *Handler) ShowResetRequest(c *gin.Context) {
	c.HTML(http.StatusOK, "reset_password.html", h.page(c, "Reset Password", nil))
}

// HandleResetRequest answers identically whether or not the email is known.
func (h *Handler) HandleResetRequest(c *gin.Context) {
	var form ResetRequestForm
	if err := c.ShouldBind(&form); err != nil {
		c.HTML(http.StatusBadRequest, "reset_password.html", h.page(c, "Reset Password", gin.H{
			"Error": describeBindError(err),
			"Email": form.Email,
		}))
		return
	}

	ctx := c.Request.Context()
	user, err := h.credentials.GetByEmail(ctx, form.Email)
	switch {
	case errors.Is(err, services.ErrUserNotFound):
	case err != nil:
		h.logger.Error("Reset lookup failed", "error", err)
	default:
		token, err := h.credentials.IssueResetToken(user)
		if err != nil {
			h.logger.Error("Failed to issue reset token", "user_id", user.ID, "error", err)
			break
		}
		link := h.resetURL(token)
		if err := h.mailer.SendPasswordReset(ctx, user.Email, link); err != nil {
			h.logger.Error("Failed to send reset email", "user_id", user.ID, "error", err)
		}
		h.logAction(&user.ID, services.ActionResetRequested, user.Email, nil, c.ClientIP(), c.Request.UserAgent())
	}

	h.redirectWithFlash(c, flashInfo, resetRequestedMessage, "/auth/login")
}

func (h *Handler) resetURL(token string) string {
	return strings.TrimRight(h.cfg.PublicBaseURL, "/") + "/auth/reset-password/" + token
}

func (h *Handler) ShowResetConfirm(c *gin.Context) {
	token := c.Param("token")
	if _, err := h.credentials.VerifyResetToken(c.Request.Context(), token); err != nil {
		h.invalidResetLink(c, err)
		return
	}

	c.HTML(http.StatusOK, "reset_password_confirm.html", h.page(c, "Reset Password", gin.H{
		"Token": token,
	}))
}

func (h *Handler) HandleResetConfirm(c *gin.Context) {
	token := c.Param("token")
	ctx := c.Request.Context()

	if _, err := h.credentials.VerifyResetToken(ctx, token); err != nil {
		h.invalidResetLink(c, err)
		return
	}

	var form NewPasswordForm
	if err := c.ShouldBind(&form); err != nil {
		c.HTML(http.StatusBadRequest, "reset_password_confirm.html", h.page(c, "Reset Password", gin.H{
			"Token": token,
			"Error": describeBindError(err),
		}))
		return
	}

	user, err := h.credentials.ResetPassword(ctx, token, form.Password)
	if err != nil {
		h.invalidResetLink(c, err)
		return
	}

	h.logAction(&user.ID, services.ActionPasswordReset, user.Email, nil, c.ClientIP(), c.Request.UserAgent())
	h.redirectWithFlash(c, flashSuccess, "Your password has been reset. Please log in.", "/auth/login")
}

func (h *Handler) invalidResetLink(c *gin.Context, err error) {
	if !errors.Is(err, services.ErrInvalidResetToken) {
		h.logger.Error("Password reset failed", "error", err)
	}
	h.redirectWithFlash(c, flashDanger, "That reset link is invalid or has expired.", "/auth/reset-password")
}
