package handlers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ian-seymour/gamma/internal/services"

	"github.com/gin-gonic/gin"
)

func (h *Handler) AddFavorite(c *gin.Context) {
	user := currentUser(c)

	city := strings.TrimSpace(c.PostForm("city"))
	lat, latErr := strconv.ParseFloat(c.PostForm("latitude"), 64)
	lon, lonErr := strconv.ParseFloat(c.PostForm("longitude"), 64)
	if city == "" || latErr != nil || lonErr != nil {
		h.redirectWithFlash(c, flashDanger, "Invalid location data", "/")
		return
	}

	fav, err := h.favorites.Add(c.Request.Context(), user.ID, city, lat, lon)
	switch {
	case errors.Is(err, services.ErrQuotaExceeded):
		h.redirectWithFlash(c, flashWarning, "You can only have 10 favorite locations.", "/")
		return
	case errors.Is(err, services.ErrDuplicateFavorite):
		h.redirectWithFlash(c, flashInfo, fmt.Sprintf("%s is already in your favorites.", city), "/")
		return
	case errors.Is(err, services.ErrInvalidFavorite):
		h.redirectWithFlash(c, flashDanger, "Invalid location data", "/")
		return
	case err != nil:
		h.logger.Error("Failed to add favorite", "user_id", user.ID, "error", err)
		h.redirectWithFlash(c, flashDanger, "Could not save that favorite. Please try again.", "/")
		return
	}

	h.logAction(&user.ID, services.ActionFavoriteAdd, strconv.FormatUint(uint64(fav.ID), 10),
		map[string]any{"city": fav.City, "latitude": fav.Latitude, "longitude": fav.Longitude},
		c.ClientIP(), c.Request.UserAgent())

	h.redirectWithFlash(c, flashSuccess, fmt.Sprintf("%s added to favorites!", fav.City),
		fmt.Sprintf("/?favorite_id=%d", fav.ID))
}

func (h *Handler) RemoveFavorite(c *gin.Context) {
	user := currentUser(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		h.redirectWithFlash(c, flashDanger, "Favorite not found.", "/")
		return
	}

	fav, err := h.favorites.Remove(c.Request.Context(), user.ID, uint(id))
	if errors.Is(err, services.ErrFavoriteNotFound) || errors.Is(err, services.ErrNotOwner) {
		h.redirectWithFlash(c, flashDanger, "Favorite not found.", "/")
		return
	}
	if err != nil {
		h.logger.Error("Failed to remove favorite", "user_id", user.ID, "favorite_id", id, "error", err)
		h.redirectWithFlash(c, flashDanger, "Could not remove that favorite. Please try again.", "/")
		return
	}

	h.logAction(&user.ID, services.ActionFavoriteRemove, strconv.FormatUint(uint64(fav.ID), 10),
		map[string]any{"city": fav.City}, c.ClientIP(), c.Request.UserAgent())

	h.redirectWithFlash(c, flashSuccess, fmt.Sprintf("%s removed from favorites.", fav.City), "/")
}
