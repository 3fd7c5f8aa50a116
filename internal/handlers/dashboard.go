package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/ian-seymour/gamma/internal/models"
	"github.com/ian-seymour/gamma/internal/services"

	"github.com/gin-gonic/gin"
)

// locationView is the place the dashboard is showing. FavoriteID is zero for
// searches and the default location.
type locationView struct {
	FavoriteID uint
	City       string
	Latitude   float64
	Longitude  float64
}

// reports holds the optional dashboard sections. A nil section is rendered
// with its fallback message.
type reports struct {
	Weather         *services.Snapshot
	Radar           *services.RadarInfo
	AirQuality      *services.AirQualityReading
	WeatherError    string
	RadarError      string
	AirQualityError string
}

func (h *Handler) ShowDashboard(c *gin.Context) {
	user := currentUser(c)
	ctx := c.Request.Context()

	location := h.defaultLocation(c)
	if raw := c.Query("favorite_id"); raw != "" {
		if id, err := strconv.ParseUint(raw, 10, 64); err == nil {
			fav, err := h.favorites.Get(ctx, user.ID, uint(id))
			switch {
			case err == nil:
				location = favoriteLocation(fav)
			case !errors.Is(err, services.ErrFavoriteNotFound) && !errors.Is(err, services.ErrNotOwner):
				h.logger.Error("Failed to load favorite", "favorite_id", id, "error", err)
			}
		}
	}

	h.renderDashboard(c, user, location, h.loadReports(ctx, location))
}

func (h *Handler) SearchLocation(c *gin.Context) {
	query := strings.TrimSpace(c.PostForm("search"))
	if query == "" {
		h.redirectWithFlash(c, flashWarning, "Please enter a location", "/")
		return
	}

	ctx := c.Request.Context()
	result, err := h.geocoder.Geocode(ctx, query)
	if err != nil {
		if !errors.Is(err, services.ErrLocationNotFound) {
			h.logger.Error("Geocoding failed", "query", query, "error", err)
		} else {
			h.logger.Info("Location not found", "query", query, "error", err)
		}
		h.redirectWithFlash(c, flashDanger, "Location not found. Please try another search.", "/")
		return
	}

	location := locationView{
		City:      result.DisplayName,
		Latitude:  result.Latitude,
		Longitude: result.Longitude,
	}
	data := h.loadReports(ctx, location)
	if data.Weather == nil {
		h.redirectWithFlash(c, flashDanger, "Unable to fetch weather data. Please try again.", "/")
		return
	}

	h.renderDashboard(c, currentUser(c), location, data)
}

func (h *Handler) renderDashboard(c *gin.Context, user *models.User, location locationView, data reports) {
	favorites, err := h.favorites.List(c.Request.Context(), user.ID)
	if err != nil {
		h.logger.Error("Failed to list favorites", "user_id", user.ID, "error", err)
	}

	c.HTML(http.StatusOK, "dashboard.html", h.page(c, "Dashboard", gin.H{
		"User":           user,
		"Favorites":      favorites,
		"CanAddFavorite": len(favorites) < models.MaxFavoritesPerUser,
		"Location":       location,
		"Reports":        data,
	}))
}

// loadReports calls the weather, radar and air quality clients one after the
// other. Failures are logged and leave their section empty.
func (h *Handler) loadReports(ctx context.Context, loc locationView) reports {
	var out reports
	lat, lon := loc.Latitude, loc.Longitude

	snapshot, err := h.weather.FetchConditions(ctx, lat, lon)
	if err != nil {
		h.logger.Warn("Weather unavailable", "lat", lat, "lon", lon, "error", err)
		out.WeatherError = "Weather data is not available for this location right now."
	} else {
		out.Weather = snapshot
	}

	radar, err := h.radar.RadarInfo(ctx, lat, lon)
	if err != nil {
		h.logger.Warn("Radar unavailable", "lat", lat, "lon", lon, "error", err)
		out.RadarError = "Radar imagery is not available for this location."
	} else {
		out.Radar = radar
	}

	aq, err := h.airQuality.AirQuality(ctx, lat, lon)
	switch {
	case err == nil:
		out.AirQuality = aq
	case errors.Is(err, services.ErrMissingCredential):
		out.AirQualityError = "Air quality data is not configured."
	default:
		h.logger.Warn("Air quality unavailable", "lat", lat, "lon", lon, "error", err)
		out.AirQualityError = "Air quality data is not available for this location."
	}

	return out
}

// defaultLocation uses the client's GeoIP position when known and the
// configured default city otherwise.
func (h *Handler) defaultLocation(c *gin.Context) locationView {
	if h.geoIP != nil {
		if geo, ok := h.geoIP.Locate(c.ClientIP()); ok {
			return locationView{City: geo.City, Latitude: geo.Latitude, Longitude: geo.Longitude}
		}
	}
	return locationView{
		City:      h.cfg.DefaultCity,
		Latitude:  h.cfg.DefaultLatitude,
		Longitude: h.cfg.DefaultLongitude,
	}
}

func favoriteLocation(fav *models.Favorite) locationView {
	return locationView{
		FavoriteID: fav.ID,
		City:       fav.City,
		Latitude:   fav.Latitude,
		Longitude:  fav.Longitude,
	}
}
