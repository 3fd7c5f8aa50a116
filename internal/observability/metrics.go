package observability

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gamma_http_requests_total",
			Help: "Total requests by route, method and status.",
		},
		[]string{"route", "method", "status"},
	)

	UpstreamCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gamma_upstream_requests_total",
			Help: "Upstream API calls by upstream and outcome.",
		},
		[]string{"upstream", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(RequestCounter, UpstreamCounter)
}

// Handler exposes the default registry for scraping.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RequestMetrics counts every request by its route template, not the raw path,
// so /radar/:lat/:lon stays a single series.
func RequestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		RequestCounter.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
	}
}
