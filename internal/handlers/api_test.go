package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/ian-seymour/gamma/internal/models"
	"github.com/ian-seymour/gamma/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeatherAPI(t *testing.T) {
	env := setupTestHandler(t)
	env.createUser(t, "a@b.com", "Secret1!")
	client := env.client()
	client.login(t, "a@b.com", "Secret1!")

	t.Run("Success", func(t *testing.T) {
		w := client.get("/api/weather/46.9965/-120.5478")
		require.Equal(t, http.StatusOK, w.Code)
		body := decodeJSON(t, w)
		current := body["current"].(map[string]any)
		assert.Equal(t, float64(68), current["temperature"])
		assert.Equal(t, float64(75), body["high"])
		assert.Equal(t, float64(48), body["low"])
	})

	t.Run("Invalid Coordinates", func(t *testing.T) {
		for _, path := range []string{"/api/weather/abc/1", "/api/weather/91/0", "/api/weather/0/181", "/api/weather/NaN/0"} {
			w := client.get(path)
			assert.Equal(t, http.StatusBadRequest, w.Code, path)
			assert.Equal(t, "Invalid coordinates", decodeJSON(t, w)["error"])
		}
	})

	t.Run("Upstream Down", func(t *testing.T) {
		env.upstream.mu.Lock()
		env.upstream.nwsDown = true
		env.upstream.mu.Unlock()
		defer func() {
			env.upstream.mu.Lock()
			env.upstream.nwsDown = false
			env.upstream.mu.Unlock()
		}()

		w := client.get("/api/weather/10/10")
		assert.Equal(t, http.StatusBadGateway, w.Code)
	})
}

func TestRadarAPI(t *testing.T) {
	env := setupTestHandler(t)
	env.createUser(t, "a@b.com", "Secret1!")
	client := env.client()
	client.login(t, "a@b.com", "Secret1!")

	t.Run("Success", func(t *testing.T) {
		w := client.get("/radar/46.9965/-120.5478")
		require.Equal(t, http.StatusOK, w.Code)
		body := decodeJSON(t, w)
		assert.Equal(t, "KPDT", body["station"])
		assert.Equal(t, "https://radar.weather.gov/ridge/standard/KPDT_0.gif", body["static_url"])
		assert.Equal(t, "https://radar.weather.gov/ridge/standard/KPDT_loop.gif", body["loop_url"])
	})

	t.Run("No Station", func(t *testing.T) {
		env.upstream.mu.Lock()
		env.upstream.station = ""
		env.upstream.mu.Unlock()

		w := client.get("/radar/20.5/-150.25")
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "Radar not found", decodeJSON(t, w)["error"])
	})

	t.Run("Unauthenticated", func(t *testing.T) {
		w := env.client().get("/radar/46.9965/-120.5478")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestAirQualityAPI(t *testing.T) {
	env := setupTestHandler(t)
	env.createUser(t, "a@b.com", "Secret1!")
	client := env.client()
	client.login(t, "a@b.com", "Secret1!")

	t.Run("Highest Reading Wins", func(t *testing.T) {
		w := client.get("/api/air-quality/46.9965/-120.5478")
		require.Equal(t, http.StatusOK, w.Code)
		body := decodeJSON(t, w)
		assert.Equal(t, float64(87), body["AQI"])
		assert.Equal(t, "PM2.5", body["ParameterName"])
	})

	t.Run("No Data", func(t *testing.T) {
		env.upstream.mu.Lock()
		env.upstream.aqi = nil
		env.upstream.mu.Unlock()

		w := client.get("/api/air-quality/46.9965/-120.5478")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Not Configured", func(t *testing.T) {
		cfg := env.h.cfg
		cfg.AirNowAPIKey = ""
		env.h.airQuality = services.NewAirQualityClient(cfg, services.NewHTTPClient(time.Second))

		w := client.get("/api/air-quality/46.9965/-120.5478")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestListFavoritesAPI(t *testing.T) {
	env := setupTestHandler(t)
	user := env.createUser(t, "a@b.com", "Secret1!")

	t.Run("Empty", func(t *testing.T) {
		w := env.client().do(apiKeyRequest(t, "/api/favorites", user.APIKey))
		require.Equal(t, http.StatusOK, w.Code)
		body := decodeJSON(t, w)
		assert.Equal(t, []any{}, body["favorites"])
		assert.Equal(t, float64(models.MaxFavoritesPerUser), body["limit"])
	})

	t.Run("Ordered", func(t *testing.T) {
		for _, city := range []string{"Yakima", "Spokane"} {
			_, err := env.favorites.Add(context.Background(), user.ID, city, 46.6, -120.5)
			require.NoError(t, err)
		}

		w := env.client().do(apiKeyRequest(t, "/api/favorites", user.APIKey))
		require.Equal(t, http.StatusOK, w.Code)
		favorites := decodeJSON(t, w)["favorites"].([]any)
		require.Len(t, favorites, 2)
		assert.Equal(t, "Yakima", favorites[0].(map[string]any)["city"])
		assert.Equal(t, "Spokane", favorites[1].(map[string]any)["city"])
	})

	t.Run("Bad API Key", func(t *testing.T) {
		w := env.client().do(apiKeyRequest(t, "/api/favorites", "nope"))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func apiKeyRequest(t *testing.T, path, key string) *http.Request {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, path, nil)
	require.NoError(t, err)
	req.Header.Set("X-API-Key", key)
	return req
}
