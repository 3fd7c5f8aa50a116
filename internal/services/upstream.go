package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ian-seymour/gamma/internal/observability"

	"github.com/sony/gobreaker"
)

const maxErrorBody = 512

type httpStatusError struct {
	status int
	body   string
}

func (e httpStatusError) Error() string {
	if e.body == "" {
		return fmt.Sprintf("API returned status %d", e.status)
	}
	return fmt.Sprintf("API returned status %d: %s", e.status, e.body)
}

// upstream wraps one third-party JSON API. Each call is a single request:
// no retries, one circuit breaker per upstream.
type upstream struct {
	name      string
	client    *http.Client
	userAgent string
	breaker   *gobreaker.CircuitBreaker
}

func newUpstream(name string, client *http.Client, userAgent string) *upstream {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// Client errors (bad coordinates, outside coverage) say nothing about upstream health.
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var se httpStatusError
			return errors.As(err, &se) && se.status < http.StatusInternalServerError
		},
	})

	return &upstream{
		name:      name,
		client:    client,
		userAgent: userAgent,
		breaker:   cb,
	}
}

// NewHTTPClient returns the client shared by all upstream APIs.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// getJSON issues a GET and decodes the body into out. Transport failures,
// non-2xx answers and an open breaker are reported as ErrUpstreamUnavailable;
// a body that does not decode is returned as a plain error.
func (u *upstream) getJSON(ctx context.Context, rawURL string, query url.Values, out any) error {
	if len(query) > 0 {
		rawURL = rawURL + "?" + query.Encode()
	}

	result, err := u.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", u.userAgent)
		req.Header.Set("Accept", "application/geo+json, application/json")

		resp, err := u.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			if len(body) > maxErrorBody {
				body = body[:maxErrorBody]
			}
			return nil, httpStatusError{status: resp.StatusCode, body: string(body)}
		}
		return body, nil
	})
	if err != nil {
		outcome := "error"
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			outcome = "circuit_open"
		}
		observability.UpstreamCounter.WithLabelValues(u.name, outcome).Inc()
		return fmt.Errorf("%w: %s: %v", ErrUpstreamUnavailable, u.name, err)
	}

	if err := json.Unmarshal(result.([]byte), out); err != nil {
		observability.UpstreamCounter.WithLabelValues(u.name, "malformed").Inc()
		return fmt.Errorf("%s: decoding response: %w", u.name, err)
	}

	observability.UpstreamCounter.WithLabelValues(u.name, "ok").Inc()
	return nil
}
