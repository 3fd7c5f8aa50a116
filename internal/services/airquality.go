package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ian-seymour/gamma/internal/config"
)

// airNowSearchRadius is the AirNow "distance" parameter, in miles.
const airNowSearchRadius = 50

type AQICategory struct {
	Number int    `json:"Number"`
	Name   string `json:"Name"`
}

// AirQualityReading mirrors one AirNow observation.
type AirQualityReading struct {
	DateObserved  string      `json:"DateObserved"`
	HourObserved  int         `json:"HourObserved"`
	LocalTimeZone string      `json:"LocalTimeZone"`
	ReportingArea string      `json:"ReportingArea"`
	StateCode     string      `json:"StateCode"`
	Latitude      float64     `json:"Latitude"`
	Longitude     float64     `json:"Longitude"`
	ParameterName string      `json:"ParameterName"`
	AQI           int         `json:"AQI"`
	Category      AQICategory `json:"Category"`
}

type AirQualityClient struct {
	api     *upstream
	baseURL string
	apiKey  string
}

func NewAirQualityClient(cfg config.Config, httpClient *http.Client) *AirQualityClient {
	return &AirQualityClient{
		api:     newUpstream("airnow", httpClient, cfg.UserAgent),
		baseURL: strings.TrimRight(cfg.AirNowBaseURL, "/"),
		apiKey:  cfg.AirNowAPIKey,
	}
}

// AirQuality returns the worst pollutant reported near the coordinate.
func (c *AirQualityClient) AirQuality(ctx context.Context, lat, lon float64) (*AirQualityReading, error) {
	if c.apiKey == "" {
		return nil, ErrMissingCredential
	}

	query := url.Values{}
	query.Set("format", "application/json")
	query.Set("latitude", fmt.Sprintf("%f", lat))
	query.Set("longitude", fmt.Sprintf("%f", lon))
	query.Set("distance", fmt.Sprintf("%d", airNowSearchRadius))
	query.Set("API_KEY", c.apiKey)

	var readings []AirQualityReading
	if err := c.api.getJSON(ctx, c.baseURL+"/aq/observation/latLong/current/", query, &readings); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoData, err)
	}

	worst := worstPollutant(readings)
	if worst == nil {
		return nil, fmt.Errorf("%w: no observations within %d miles", ErrNoData, airNowSearchRadius)
	}
	return worst, nil
}

// worstPollutant picks the highest AQI. Ties go to the later entry.
func worstPollutant(readings []AirQualityReading) *AirQualityReading {
	if len(readings) == 0 {
		return nil
	}

	worst := 0
	for i := range readings {
		if readings[i].AQI >= readings[worst].AQI {
			worst = i
		}
	}

	reading := readings[worst]
	return &reading
}
