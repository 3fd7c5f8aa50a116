package handlers

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/ian-seymour/gamma/internal/models"
	"github.com/ian-seymour/gamma/internal/services"

	"github.com/gin-gonic/gin"
)

// coordinates parses the :lat and :lon path parameters, answering 400 on bad input.
func coordinates(c *gin.Context) (lat, lon float64, ok bool) {
	lat, latErr := strconv.ParseFloat(c.Param("lat"), 64)
	lon, lonErr := strconv.ParseFloat(c.Param("lon"), 64)
	if latErr != nil || lonErr != nil || math.IsNaN(lat) || math.IsNaN(lon) ||
		lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid coordinates"})
		return 0, 0, false
	}
	return lat, lon, true
}

func (h *Handler) GetWeather(c *gin.Context) {
	lat, lon, ok := coordinates(c)
	if !ok {
		return
	}

	snapshot, err := h.weather.FetchConditions(c.Request.Context(), lat, lon)
	if err != nil {
		h.logger.Warn("Weather unavailable", "lat", lat, "lon", lon, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Unable to fetch weather data"})
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

func (h *Handler) GetRadar(c *gin.Context) {
	lat, lon, ok := coordinates(c)
	if !ok {
		return
	}

	info, err := h.radar.RadarInfo(c.Request.Context(), lat, lon)
	if errors.Is(err, services.ErrNoStation) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Radar not found"})
		return
	}
	if err != nil {
		h.logger.Warn("Radar unavailable", "lat", lat, "lon", lon, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Unable to fetch radar data"})
		return
	}

	c.JSON(http.StatusOK, info)
}

func (h *Handler) GetAirQuality(c *gin.Context) {
	lat, lon, ok := coordinates(c)
	if !ok {
		return
	}

	reading, err := h.airQuality.AirQuality(c.Request.Context(), lat, lon)
	switch {
	case errors.Is(err, services.ErrMissingCredential):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Air quality data is not configured"})
		return
	case err != nil:
		h.logger.Warn("Air quality unavailable", "lat", lat, "lon", lon, "error", err)
		c.JSON(http.StatusNotFound, gin.H{"error": "No air quality data available"})
		return
	}

	c.JSON(http.StatusOK, reading)
}

func (h *Handler) ListFavorites(c *gin.Context) {
	user := currentUser(c)

	favorites, err := h.favorites.List(c.Request.Context(), user.ID)
	if err != nil {
		h.logger.Error("Failed to list favorites", "user_id", user.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list favorites"})
		return
	}

	if favorites == nil {
		favorites = []models.Favorite{}
	}
	c.JSON(http.StatusOK, gin.H{"favorites": favorites, "limit": models.MaxFavoritesPerUser})
}
