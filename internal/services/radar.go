package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/ian-seymour/gamma/internal/config"
)

type PointResolver interface {
	ResolvePoint(ctx context.Context, lat, lon float64) (*GridPoint, error)
}

type RadarInfo struct {
	Station   string `json:"station"`
	StaticURL string `json:"static_url"`
	LoopURL   string `json:"loop_url"`
}

// RadarClient builds NWS RIDGE image URLs. Images are linked, never fetched.
type RadarClient struct {
	points  PointResolver
	baseURL string
}

func NewRadarClient(cfg config.Config, points PointResolver) *RadarClient {
	return &RadarClient{
		points:  points,
		baseURL: strings.TrimRight(cfg.RadarBaseURL, "/"),
	}
}

func (c *RadarClient) RadarInfo(ctx context.Context, lat, lon float64) (*RadarInfo, error) {
	point, err := c.points.ResolvePoint(ctx, lat, lon)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	station := strings.TrimSpace(point.RadarStation)
	if station == "" {
		return nil, ErrNoStation
	}

	info := c.URLsFor(station)
	return &info, nil
}

func (c *RadarClient) URLsFor(station string) RadarInfo {
	return RadarInfo{
		Station:   station,
		StaticURL: fmt.Sprintf("%s/ridge/standard/%s_0.gif", c.baseURL, station),
		LoopURL:   fmt.Sprintf("%s/ridge/standard/%s_loop.gif", c.baseURL, station),
	}
}
