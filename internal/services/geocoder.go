package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/ian-seymour/gamma/internal/config"
)

type GeocodeResult struct {
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	DisplayName string  `json:"display_name"`
}

type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
}

// Geocoder resolves free text to coordinates with OpenStreetMap Nominatim.
type Geocoder struct {
	api     *upstream
	baseURL string
}

func NewGeocoder(cfg config.Config, httpClient *http.Client) *Geocoder {
	return &Geocoder{
		api:     newUpstream("nominatim", httpClient, cfg.UserAgent),
		baseURL: strings.TrimRight(cfg.NominatimBaseURL, "/"),
	}
}

// Geocode returns the best city-level match. Every failure, including an empty
// result set, is reported as ErrLocationNotFound.
func (g *Geocoder) Geocode(ctx context.Context, query string) (*GeocodeResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", ErrLocationNotFound)
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("limit", "1")
	params.Set("featureType", "city")

	var places []nominatimPlace
	if err := g.api.getJSON(ctx, g.baseURL+"/search", params, &places); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLocationNotFound, err)
	}
	if len(places) == 0 {
		return nil, fmt.Errorf("%w: no results for %q", ErrLocationNotFound, query)
	}

	place := places[0]
	lat, err := strconv.ParseFloat(place.Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad latitude %q", ErrLocationNotFound, place.Lat)
	}
	lon, err := strconv.ParseFloat(place.Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad longitude %q", ErrLocationNotFound, place.Lon)
	}

	name := place.Name
	if name == "" {
		name = place.DisplayName
	}
	if name == "" {
		name = query
	}

	return &GeocodeResult{Latitude: lat, Longitude: lon, DisplayName: name}, nil
}
