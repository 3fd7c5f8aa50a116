package services

import (
	"io"
	"log/slog"
	"time"

	"github.com/ian-seymour/gamma/internal/config"
	"github.com/ian-seymour/gamma/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

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

	if err := db.AutoMigrate(&models.User{}, &models.Favorite{}, &models.AuditLog{}); err != nil {
		panic("failed to migrate database")
	}
	return db
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(baseURL string) config.Config {
	return config.Config{
		UserAgent:        "gamma-test/1.0",
		NWSBaseURL:       baseURL,
		RadarBaseURL:     "https://radar.weather.gov",
		AirNowBaseURL:    baseURL,
		AirNowAPIKey:     "test-key",
		NominatimBaseURL: baseURL,
		UpstreamTimeout:  2 * time.Second,
	}
}
