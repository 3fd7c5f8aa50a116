package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const defaultSecretKey = "dev-secret-key-change-in-production"

type Config struct {
	AppEnv        string `mapstructure:"APP_ENV"`
	Port          string `mapstructure:"PORT"`
	DatabaseURL   string `mapstructure:"DATABASE_URL"`
	RedisURL      string `mapstructure:"REDIS_URL"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	SecretKey     string `mapstructure:"SECRET_KEY"`
	PublicBaseURL string `mapstructure:"PUBLIC_BASE_URL"`

	// Upstream APIs. NWS rejects requests without an identifying User-Agent.
	UserAgent        string        `mapstructure:"NOAA_USER_AGENT"`
	NWSBaseURL       string        `mapstructure:"NWS_BASE_URL"`
	RadarBaseURL     string        `mapstructure:"RADAR_BASE_URL"`
	AirNowBaseURL    string        `mapstructure:"AIRNOW_BASE_URL"`
	AirNowAPIKey     string        `mapstructure:"AIRNOW_API_KEY"`
	NominatimBaseURL string        `mapstructure:"NOMINATIM_BASE_URL"`
	UpstreamTimeout  time.Duration `mapstructure:"UPSTREAM_TIMEOUT"`
	PointCacheTTL    time.Duration `mapstructure:"POINT_CACHE_TTL"`

	DefaultCity      string  `mapstructure:"DEFAULT_CITY"`
	DefaultLatitude  float64 `mapstructure:"DEFAULT_LATITUDE"`
	DefaultLongitude float64 `mapstructure:"DEFAULT_LONGITUDE"`

	RateLimitRPS   float64 `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int     `mapstructure:"RATE_LIMIT_BURST"`

	SMTPHost     string `mapstructure:"SMTP_HOST"`
	SMTPPort     string `mapstructure:"SMTP_PORT"`
	SMTPUsername string `mapstructure:"SMTP_USERNAME"`
	SMTPPassword string `mapstructure:"SMTP_PASSWORD"`
	MailFrom     string `mapstructure:"MAIL_FROM"`

	MaxMindAccountID  string `mapstructure:"MAXMIND_ACCOUNT_ID"`
	MaxMindLicenseKey string `mapstructure:"MAXMIND_LICENSE_KEY"`
	MaxMindEditionIDs string `mapstructure:"MAXMIND_EDITION_IDS"`
	MaxMindDBPath     string `mapstructure:"GEOIP_DB_PATH"`
}

// UsesDefaultSecret reports whether SECRET_KEY was left at its development value.
func (c Config) UsesDefaultSecret() bool {
	return c.SecretKey == defaultSecretKey
}

func LoadConfig() (config Config, err error) {
	// A missing .env file is normal outside local development.
	_ = godotenv.Load()

	viper.SetDefault("APP_ENV", "local")
	viper.SetDefault("PORT", "5000")
	viper.SetDefault("DATABASE_URL", "sqlite://gamma.db")
	viper.SetDefault("REDIS_URL", "")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("SECRET_KEY", defaultSecretKey)
	viper.SetDefault("PUBLIC_BASE_URL", "http://localhost:5000")

	viper.SetDefault("NOAA_USER_AGENT", "gamma/ianseymourhansel@gmail.com")
	viper.SetDefault("NWS_BASE_URL", "https://api.weather.gov")
	viper.SetDefault("RADAR_BASE_URL", "https://radar.weather.gov")
	viper.SetDefault("AIRNOW_BASE_URL", "https://www.airnowapi.org")
	viper.SetDefault("AIRNOW_API_KEY", "")
	viper.SetDefault("NOMINATIM_BASE_URL", "https://nominatim.openstreetmap.org")
	viper.SetDefault("UPSTREAM_TIMEOUT", "10s")
	viper.SetDefault("POINT_CACHE_TTL", "1h")

	viper.SetDefault("DEFAULT_CITY", "Ellensburg")
	viper.SetDefault("DEFAULT_LATITUDE", 46.9965)
	viper.SetDefault("DEFAULT_LONGITUDE", -120.5478)

	viper.SetDefault("RATE_LIMIT_RPS", 5)
	viper.SetDefault("RATE_LIMIT_BURST", 10)

	viper.SetDefault("SMTP_HOST", "")
	viper.SetDefault("SMTP_PORT", "587")
	viper.SetDefault("SMTP_USERNAME", "")
	viper.SetDefault("SMTP_PASSWORD", "")
	viper.SetDefault("MAIL_FROM", "Gamma Weather <no-reply@localhost>")

	viper.SetDefault("MAXMIND_ACCOUNT_ID", "")
	viper.SetDefault("MAXMIND_LICENSE_KEY", "")
	viper.SetDefault("GEOIP_DB_PATH", "./geoip/GeoLite2-City.mmdb")
	viper.SetDefault("MAXMIND_EDITION_IDS", "GeoLite2-City")

	viper.AutomaticEnv()

	err = viper.Unmarshal(&config)
	if err != nil {
		log.Printf("unable to decode into struct, %v", err)
		return
	}

	return
}
