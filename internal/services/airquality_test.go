package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func airNowServer(t *testing.T, status int, readings []AirQualityReading, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "/aq/observation/latLong/current/", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "application/json", q.Get("format"))
		assert.Equal(t, "50", q.Get("distance"))
		assert.Equal(t, "test-key", q.Get("API_KEY"))
		assert.NotEmpty(t, q.Get("latitude"))
		assert.NotEmpty(t, q.Get("longitude"))

		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		writeJSON(w, readings)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestAirQualityClient_AirQuality(t *testing.T) {
	ctx := context.Background()

	t.Run("Worst Pollutant", func(t *testing.T) {
		var hits atomic.Int32
		srv := airNowServer(t, http.StatusOK, []AirQualityReading{
			{ParameterName: "O3", AQI: 42, Category: AQICategory{Number: 1, Name: "Good"}},
			{ParameterName: "PM2.5", AQI: 87, Category: AQICategory{Number: 2, Name: "Moderate"}},
			{ParameterName: "PM10", AQI: 10, Category: AQICategory{Number: 1, Name: "Good"}},
		}, &hits)
		client := NewAirQualityClient(testConfig(srv.URL), NewHTTPClient(0))

		reading, err := client.AirQuality(ctx, 46.9965, -120.5478)
		require.NoError(t, err)
		assert.Equal(t, 87, reading.AQI)
		assert.Equal(t, "PM2.5", reading.ParameterName)
		assert.Equal(t, "Moderate", reading.Category.Name)
	})

	t.Run("Empty Result", func(t *testing.T) {
		var hits atomic.Int32
		srv := airNowServer(t, http.StatusOK, []AirQualityReading{}, &hits)
		client := NewAirQualityClient(testConfig(srv.URL), NewHTTPClient(0))

		_, err := client.AirQuality(ctx, 46.9965, -120.5478)
		assert.ErrorIs(t, err, ErrNoData)
	})

	t.Run("Upstream Error", func(t *testing.T) {
		var hits atomic.Int32
		srv := airNowServer(t, http.StatusBadGateway, nil, &hits)
		client := NewAirQualityClient(testConfig(srv.URL), NewHTTPClient(0))

		_, err := client.AirQuality(ctx, 46.9965, -120.5478)
		assert.ErrorIs(t, err, ErrNoData)
	})

	t.Run("Missing Key", func(t *testing.T) {
		var hits atomic.Int32
		srv := airNowServer(t, http.StatusOK, nil, &hits)
		cfg := testConfig(srv.URL)
		cfg.AirNowAPIKey = ""
		client := NewAirQualityClient(cfg, NewHTTPClient(0))

		_, err := client.AirQuality(ctx, 46.9965, -120.5478)
		assert.ErrorIs(t, err, ErrMissingCredential)
		assert.Equal(t, int32(0), hits.Load())
	})
}

func TestWorstPollutant(t *testing.T) {
	assert.Nil(t, worstPollutant(nil))

	tie := worstPollutant([]AirQualityReading{
		{ParameterName: "O3", AQI: 50},
		{ParameterName: "PM2.5", AQI: 50},
		{ParameterName: "PM10", AQI: 12},
	})
	require.NotNil(t, tie)
	assert.Equal(t, "PM2.5", tie.ParameterName)

	single := worstPollutant([]AirQualityReading{{ParameterName: "O3", AQI: 0}})
	assert.Equal(t, "O3", single.ParameterName)
}
