package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ian-seymour/gamma/internal/config"
	"github.com/ian-seymour/gamma/internal/models"
	"github.com/ian-seymour/gamma/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// fakeUpstream stands in for NWS, AirNow and Nominatim on one server.
type fakeUpstream struct {
	mu          sync.Mutex
	station     string
	nwsDown     bool
	aqi         []services.AirQualityReading
	places      []map[string]string
	pointsCalls int
}

func (f *fakeUpstream) handler() http.Handler {
	mux := http.NewServeMux()
	reply := func(w http.ResponseWriter, v any) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(v)
	}

	mux.HandleFunc("/points/", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.pointsCalls++
		down, station := f.nwsDown, f.station
		f.mu.Unlock()
		if down {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		base := "http://" + r.Host
		reply(w, map[string]any{"properties": map[string]any{
			"forecast":       base + "/gridpoints/PDT/1,1/forecast",
			"forecastHourly": base + "/gridpoints/PDT/1,1/forecast/hourly",
			"radarStation":   station,
			"elevation":      map[string]any{"unitCode": "wmoUnit:m", "value": 100.0},
		}})
	})
	mux.HandleFunc("/gridpoints/PDT/1,1/forecast", func(w http.ResponseWriter, r *http.Request) {
		reply(w, map[string]any{"properties": map[string]any{"periods": []map[string]any{
			{"name": "Today", "isDaytime": true, "temperature": 75, "temperatureUnit": "F", "shortForecast": "Sunny", "detailedForecast": "Sunny and warm."},
			{"name": "Tonight", "isDaytime": false, "temperature": 48, "temperatureUnit": "F", "shortForecast": "Clear"},
		}}})
	})
	mux.HandleFunc("/gridpoints/PDT/1,1/forecast/hourly", func(w http.ResponseWriter, r *http.Request) {
		reply(w, map[string]any{"properties": map[string]any{"periods": []map[string]any{
			{"isDaytime": true, "temperature": 68, "temperatureUnit": "F", "shortForecast": "Mostly Sunny", "windSpeed": "5 mph", "windDirection": "NW",
				"dewpoint": map[string]any{"unitCode": "wmoUnit:degC", "value": 10.0}},
		}}})
	})
	mux.HandleFunc("/aq/observation/latLong/current/", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		reply(w, f.aqi)
	})
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		reply(w, f.places)
	})
	return mux
}

type recordingMailer struct {
	mu    sync.Mutex
	to    []string
	links []string
}

func (m *recordingMailer) SendPasswordReset(ctx context.Context, to, resetURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.to = append(m.to, to)
	m.links = append(m.links, resetURL)
	return nil
}

func (m *recordingMailer) sent() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.links...)
}

type testEnv struct {
	h           *Handler
	db          *gorm.DB
	router      *gin.Engine
	upstream    *fakeUpstream
	mailer      *recordingMailer
	credentials *services.CredentialService
	favorites   *services.FavoritesService
	tokens      *services.ResetTokenManager
}

func setupTestDB() *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		panic("failed to connect database")
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	db.AutoMigrate(&models.User{}, &models.Favorite{}, &models.AuditLog{})
	return db
}

func setupTestHandler(t *testing.T) *testEnv {
	return setupTestHandlerWith(t, nil)
}

func setupTestHandlerWith(t *testing.T, rateLimiter *services.IPRateLimiter) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	upstream := &fakeUpstream{
		station: "KPDT",
		aqi: []services.AirQualityReading{
			{ParameterName: "O3", AQI: 42, Category: services.AQICategory{Number: 1, Name: "Good"}},
			{ParameterName: "PM2.5", AQI: 87, Category: services.AQICategory{Number: 2, Name: "Moderate"}},
		},
		places: []map[string]string{{"lat": "47.6062", "lon": "-122.3321", "name": "Seattle"}},
	}
	srv := httptest.NewServer(upstream.handler())
	t.Cleanup(srv.Close)

	cfg := config.Config{
		SecretKey:        "test-secret-12345678901234567890123456789012",
		PublicBaseURL:    "http://gamma.test",
		UserAgent:        "gamma-test",
		NWSBaseURL:       srv.URL,
		RadarBaseURL:     "https://radar.weather.gov",
		AirNowBaseURL:    srv.URL,
		AirNowAPIKey:     "test-key",
		NominatimBaseURL: srv.URL,
		DefaultCity:      "Ellensburg",
		DefaultLatitude:  46.9965,
		DefaultLongitude: -120.5478,
	}

	db := setupTestDB()
	log := discardHandlerLogger()
	httpClient := services.NewHTTPClient(2 * time.Second)

	tokens := services.NewResetTokenManager(cfg.SecretKey, services.PasswordResetSalt)
	credentials := services.NewCredentialService(db, tokens)
	favorites := services.NewFavoritesService(db)
	weather := services.NewWeatherClient(cfg, httpClient, nil, log)
	radar := services.NewRadarClient(cfg, weather)
	airQuality := services.NewAirQualityClient(cfg, httpClient)
	geocoder := services.NewGeocoder(cfg, httpClient)
	geoIP := services.NewGeoIPService(cfg, log)
	audit := services.NewAuditService(db, log)
	mailer := &recordingMailer{}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go audit.Start(ctx)

	h := NewHandler(cfg, log, credentials, favorites, weather, radar, airQuality, geocoder, geoIP, audit, mailer)

	return &testEnv{
		h:           h,
		db:          db,
		router:      h.SetupRouter(rateLimiter, "../../web/templates/*.html", ""),
		upstream:    upstream,
		mailer:      mailer,
		credentials: credentials,
		favorites:   favorites,
		tokens:      tokens,
	}
}

func (e *testEnv) createUser(t *testing.T, email, password string) *models.User {
	t.Helper()
	user, err := e.credentials.Register(context.Background(), email, password)
	require.NoError(t, err)
	return user
}

// testClient replays cookies between requests like a browser.
type testClient struct {
	router  *gin.Engine
	cookies map[string]*http.Cookie
}

func (e *testEnv) client() *testClient {
	return &testClient{router: e.router, cookies: map[string]*http.Cookie{}}
}

func (c *testClient) do(req *http.Request) *httptest.ResponseRecorder {
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	c.router.ServeHTTP(w, req)
	for _, ck := range w.Result().Cookies() {
		if ck.MaxAge < 0 {
			delete(c.cookies, ck.Name)
			continue
		}
		c.cookies[ck.Name] = ck
	}
	return w
}

func (c *testClient) get(path string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(http.MethodGet, path, nil)
	return c.do(req)
}

func (c *testClient) postForm(path string, form url.Values) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

func (c *testClient) postJSON(path string, body any) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	req, _ := http.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *testClient) delete(path string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(http.MethodDelete, path, nil)
	return c.do(req)
}

func (c *testClient) login(t *testing.T, email, password string) {
	t.Helper()
	w := c.postForm("/auth/login", url.Values{"email": {email}, "password": {password}})
	require.Equal(t, http.StatusFound, w.Code)
	require.Equal(t, "/", w.Header().Get("Location"))
}

func discardHandlerLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}
