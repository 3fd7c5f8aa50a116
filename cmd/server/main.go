package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ian-seymour/gamma/internal/config"
	"github.com/ian-seymour/gamma/internal/handlers"
	"github.com/ian-seymour/gamma/internal/repository"
	"github.com/ian-seymour/gamma/internal/services"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func Run(ctx context.Context) error {
	// 1. Load Config
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// 2. Setup Logger
	var handler slog.Handler
	if cfg.AppEnv == "production" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)

	if cfg.UsesDefaultSecret() {
		if cfg.AppEnv == "production" {
			return errors.New("SECRET_KEY must be set in production")
		}
		logger.Warn("SECRET_KEY is not set, using the development default")
	}

	// 3. Initialize Database
	db, err := repository.InitDB(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	// 4. Run Migrations
	if repository.IsPostgres(cfg.DatabaseURL) {
		logger.Info("Running database migrations...")
		if err := repository.RunMigrations(cfg.DatabaseURL, ""); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	} else if err := repository.AutoMigrate(db); err != nil {
		return err
	}

	// 5. Initialize Redis (optional grid point cache)
	var pointCache services.PointCache
	if cfg.RedisURL != "" {
		rdb, err := repository.InitRedis(cfg.RedisURL, cfg.RedisPassword, 0)
		if err != nil {
			logger.Warn("Failed to connect to Redis, grid point caching disabled", "error", err)
		} else {
			defer rdb.Close()
			pointCache = services.NewRedisPointCache(rdb, cfg.PointCacheTTL)
		}
	}

	// 6. Initialize Services
	httpClient := services.NewHTTPClient(cfg.UpstreamTimeout)
	resetTokens := services.NewResetTokenManager(cfg.SecretKey, services.PasswordResetSalt)
	credentialService := services.NewCredentialService(db, resetTokens)
	favoritesService := services.NewFavoritesService(db)
	weatherClient := services.NewWeatherClient(cfg, httpClient, pointCache, logger)
	radarClient := services.NewRadarClient(cfg, weatherClient)
	airQualityClient := services.NewAirQualityClient(cfg, httpClient)
	geocoder := services.NewGeocoder(cfg, httpClient)
	auditService := services.NewAuditService(db, logger)
	geoIPService := services.NewGeoIPService(cfg, logger)
	mailQueue := services.NewMailQueue(services.NewMailer(cfg, logger), logger)
	rateLimiter := services.NewIPRateLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst, logger)

	if cfg.AirNowAPIKey == "" {
		logger.Warn("AIRNOW_API_KEY is not set, air quality will be unavailable")
	}

	// 7. Initialize Handler
	h := handlers.NewHandler(cfg, logger, credentialService, favoritesService, weatherClient, radarClient,
		airQualityClient, geocoder, geoIPService, auditService, mailQueue)

	// 8. Setup Router
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := h.SetupRouter(rateLimiter, "web/templates/*.html", "")

	// 9. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Background Context for workers
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	// Start Background Workers
	go auditService.Start(workerCtx)
	go mailQueue.Start(workerCtx)
	go geoIPService.Init()
	go geoIPService.StartUpdater(workerCtx)
	rateLimiter.StartCleanup(workerCtx, 10*time.Minute)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Starting server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for context cancellation or server error
	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		logger.Info("Shutting down server...")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	workerCancel()
	// Give the audit and mail workers a moment to flush.
	time.Sleep(100 * time.Millisecond)

	logger.Info("Server exiting")
	return nil
}
