package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strings"

	"github.com/ian-seymour/gamma/internal/config"
)

// GridPoint is the NWS metadata for a coordinate: where its forecasts live and
// which radar covers it.
type GridPoint struct {
	ForecastURL       string   `json:"forecast_url"`
	ForecastHourlyURL string   `json:"forecast_hourly_url"`
	RadarStation      string   `json:"radar_station"`
	ElevationMeters   *float64 `json:"elevation_meters,omitempty"`
	GridID            string   `json:"grid_id"`
	GridX             int      `json:"grid_x"`
	GridY             int      `json:"grid_y"`
	City              string   `json:"city,omitempty"`
	State             string   `json:"state,omitempty"`
}

type Conditions struct {
	Name            string `json:"name"`
	ShortForecast   string `json:"short_forecast"`
	Temperature     int    `json:"temperature"`
	TemperatureUnit string `json:"temperature_unit"`
	WindSpeed       string `json:"wind_speed"`
	WindDirection   string `json:"wind_direction"`
	Icon            string `json:"icon"`
	IsDaytime       bool   `json:"is_daytime"`
	StartTime       string `json:"start_time"`
}

// Snapshot is the current-conditions summary rendered on the dashboard.
// Pointer fields are nil when the forecast did not provide them.
type Snapshot struct {
	Current                  Conditions `json:"current"`
	Outlook                  string     `json:"outlook"`
	DetailedForecast         string     `json:"detailed_forecast"`
	High                     *int       `json:"high,omitempty"`
	Low                      *int       `json:"low,omitempty"`
	DewpointF                *int       `json:"dewpoint_f,omitempty"`
	PrecipitationProbability *int       `json:"precipitation_probability,omitempty"`
	ElevationFt              *int       `json:"elevation_ft,omitempty"`
	City                     string     `json:"city,omitempty"`
	State                    string     `json:"state,omitempty"`
	Latitude                 float64    `json:"latitude"`
	Longitude                float64    `json:"longitude"`
}

type quantity struct {
	UnitCode string   `json:"unitCode"`
	Value    *float64 `json:"value"`
}

type pointsResponse struct {
	Properties *struct {
		GridID           string    `json:"gridId"`
		GridX            int       `json:"gridX"`
		GridY            int       `json:"gridY"`
		Forecast         string    `json:"forecast"`
		ForecastHourly   string    `json:"forecastHourly"`
		RadarStation     string    `json:"radarStation"`
		Elevation        *quantity `json:"elevation"`
		RelativeLocation struct {
			Properties struct {
				City  string `json:"city"`
				State string `json:"state"`
			} `json:"properties"`
		} `json:"relativeLocation"`
	} `json:"properties"`
}

type forecastPeriod struct {
	Number                     int      `json:"number"`
	Name                       string   `json:"name"`
	StartTime                  string   `json:"startTime"`
	IsDaytime                  bool     `json:"isDaytime"`
	Temperature                float64  `json:"temperature"`
	TemperatureUnit            string   `json:"temperatureUnit"`
	ProbabilityOfPrecipitation quantity `json:"probabilityOfPrecipitation"`
	Dewpoint                   quantity `json:"dewpoint"`
	WindSpeed                  string   `json:"windSpeed"`
	WindDirection              string   `json:"windDirection"`
	Icon                       string   `json:"icon"`
	ShortForecast              string   `json:"shortForecast"`
	DetailedForecast           string   `json:"detailedForecast"`
}

type forecastResponse struct {
	Properties *struct {
		Elevation *quantity        `json:"elevation"`
		Periods   []forecastPeriod `json:"periods"`
	} `json:"properties"`
}

type WeatherClient struct {
	api     *upstream
	baseURL string
	cache   PointCache
	logger  *slog.Logger
}

func NewWeatherClient(cfg config.Config, httpClient *http.Client, cache PointCache, logger *slog.Logger) *WeatherClient {
	return &WeatherClient{
		api:     newUpstream("nws", httpClient, cfg.UserAgent),
		baseURL: strings.TrimRight(cfg.NWSBaseURL, "/"),
		cache:   cache,
		logger:  logger,
	}
}

// ResolvePoint looks up the grid metadata for a coordinate. NWS only accepts
// four decimal places, so coordinates are formatted to that precision.
func (c *WeatherClient) ResolvePoint(ctx context.Context, lat, lon float64) (*GridPoint, error) {
	if c.cache != nil {
		point, ok, err := c.cache.Get(ctx, lat, lon)
		if err != nil {
			c.logger.Warn("Point cache read failed", "error", err)
		} else if ok {
			return point, nil
		}
	}

	var payload pointsResponse
	u := fmt.Sprintf("%s/points/%.4f,%.4f", c.baseURL, lat, lon)
	if err := c.api.getJSON(ctx, u, nil, &payload); err != nil {
		if errors.Is(err, ErrUpstreamUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	if payload.Properties == nil {
		return nil, fmt.Errorf("%w: points response has no properties", ErrUpstreamUnavailable)
	}

	props := payload.Properties
	point := &GridPoint{
		ForecastURL:       props.Forecast,
		ForecastHourlyURL: props.ForecastHourly,
		RadarStation:      props.RadarStation,
		GridID:            props.GridID,
		GridX:             props.GridX,
		GridY:             props.GridY,
		City:              props.RelativeLocation.Properties.City,
		State:             props.RelativeLocation.Properties.State,
	}
	if props.Elevation != nil {
		point.ElevationMeters = props.Elevation.Value
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, lat, lon, point); err != nil {
			c.logger.Warn("Point cache write failed", "error", err)
		}
	}

	return point, nil
}

// FetchConditions assembles the current-conditions snapshot for a coordinate.
// Any failure along the way is reported as ErrNoData.
func (c *WeatherClient) FetchConditions(ctx context.Context, lat, lon float64) (*Snapshot, error) {
	point, err := c.ResolvePoint(ctx, lat, lon)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoData, err)
	}
	if point.ForecastURL == "" || point.ForecastHourlyURL == "" {
		return nil, fmt.Errorf("%w: grid point has no forecast links", ErrNoData)
	}

	hourly, _, err := c.fetchPeriods(ctx, point.ForecastHourlyURL)
	if err != nil {
		return nil, fmt.Errorf("%w: hourly forecast: %v", ErrNoData, err)
	}
	if len(hourly) == 0 {
		return nil, fmt.Errorf("%w: hourly forecast has no periods", ErrNoData)
	}

	standard, forecastElevation, err := c.fetchPeriods(ctx, point.ForecastURL)
	if err != nil {
		return nil, fmt.Errorf("%w: forecast: %v", ErrNoData, err)
	}
	if len(standard) == 0 {
		return nil, fmt.Errorf("%w: forecast has no periods", ErrNoData)
	}

	current := hourly[0]
	today := standard[0]
	var next *forecastPeriod
	if len(standard) > 1 {
		next = &standard[1]
	}

	snapshot := &Snapshot{
		Current: Conditions{
			Name:            current.Name,
			ShortForecast:   current.ShortForecast,
			Temperature:     roundInt(current.Temperature),
			TemperatureUnit: current.TemperatureUnit,
			WindSpeed:       current.WindSpeed,
			WindDirection:   current.WindDirection,
			Icon:            current.Icon,
			IsDaytime:       current.IsDaytime,
			StartTime:       current.StartTime,
		},
		Outlook:          today.Name,
		DetailedForecast: today.DetailedForecast,
		City:             point.City,
		State:            point.State,
		Latitude:         lat,
		Longitude:        lon,
	}
	snapshot.High, snapshot.Low = deriveHighLow(today, next)

	elevation := point.ElevationMeters
	if elevation == nil && forecastElevation != nil {
		elevation = forecastElevation.Value
	}
	if elevation != nil {
		ft := MetersToFeet(*elevation)
		snapshot.ElevationFt = &ft
	}

	dewpoint := current.Dewpoint
	if dewpoint.Value == nil {
		dewpoint = today.Dewpoint
	}
	if dewpoint.Value != nil {
		f := roundInt(*dewpoint.Value)
		if !strings.HasSuffix(dewpoint.UnitCode, "degF") {
			f = CelsiusToFahrenheit(*dewpoint.Value)
		}
		snapshot.DewpointF = &f
	}

	precip := current.ProbabilityOfPrecipitation.Value
	if precip == nil {
		precip = today.ProbabilityOfPrecipitation.Value
	}
	if precip != nil {
		p := roundInt(*precip)
		snapshot.PrecipitationProbability = &p
	}

	return snapshot, nil
}

func (c *WeatherClient) fetchPeriods(ctx context.Context, forecastURL string) ([]forecastPeriod, *quantity, error) {
	var payload forecastResponse
	if err := c.api.getJSON(ctx, forecastURL, nil, &payload); err != nil {
		return nil, nil, err
	}
	if payload.Properties == nil {
		return nil, nil, errors.New("forecast response has no properties")
	}
	return payload.Properties.Periods, payload.Properties.Elevation, nil
}

// deriveHighLow reads today's range from the first two forecast periods. A
// daytime period carries the high and the following night the low; when the
// first period is already a night the roles swap.
func deriveHighLow(today forecastPeriod, next *forecastPeriod) (high, low *int) {
	todayTemp := roundInt(today.Temperature)

	var nextTemp *int
	if next != nil {
		t := roundInt(next.Temperature)
		nextTemp = &t
	}

	if today.IsDaytime {
		return &todayTemp, nextTemp
	}
	return nextTemp, &todayTemp
}

func CelsiusToFahrenheit(c float64) int {
	return roundInt(c*9/5 + 32)
}

func MetersToFeet(m float64) int {
	return roundInt(m * 3.28084)
}

func roundInt(v float64) int {
	return int(math.Round(v))
}
