package handlers

import (
	"log/slog"

	"github.com/ian-seymour/gamma/internal/config"
	"github.com/ian-seymour/gamma/internal/services"
)

type Handler struct {
	cfg         config.Config
	logger      *slog.Logger
	credentials *services.CredentialService
	favorites   *services.FavoritesService
	weather     *services.WeatherClient
	radar       *services.RadarClient
	airQuality  *services.AirQualityClient
	geocoder    *services.Geocoder
	geoIP       *services.GeoIPService
	audit       *services.AuditService
	mailer      services.Mailer
}

func NewHandler(
	cfg config.Config,
	logger *slog.Logger,
	credentials *services.CredentialService,
	favorites *services.FavoritesService,
	weather *services.WeatherClient,
	radar *services.RadarClient,
	airQuality *services.AirQualityClient,
	geocoder *services.Geocoder,
	geoIP *services.GeoIPService,
	audit *services.AuditService,
	mailer services.Mailer,
) *Handler {
	return &Handler{
		cfg:         cfg,
		logger:      logger,
		credentials: credentials,
		favorites:   favorites,
		weather:     weather,
		radar:       radar,
		airQuality:  airQuality,
		geocoder:    geocoder,
		geoIP:       geoIP,
		audit:       audit,
		mailer:      mailer,
	}
}

func (h *Handler) logAction(userID *uint, action, entityID string, details any, ip, userAgent string) {
	if h.audit == nil {
		return
	}
	h.audit.LogAction(userID, action, entityID, details, ip, userAgent)
}
