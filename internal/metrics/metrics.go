// Package metrics holds the Prometheus collectors for the API and the
// middleware that feeds them.  GET /metrics serves Handler().
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "flick_http_requests_total",
	Help: "Total HTTP requests handled.",
}, []string{"method", "route", "status"})

var HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "flick_http_request_duration_seconds",
	Help:    "HTTP request latency in seconds.",
	Buckets: prometheus.DefBuckets,
}, []string{"method", "route"})

// StreamBytes counts bytes piped from blob storage to clients.
var StreamBytes = promauto.NewCounter(prometheus.CounterOpts{
	Name: "flick_stream_bytes_total",
	Help: "Bytes written to clients by the media stream endpoint.",
})

// ActiveStreams is the number of range responses currently being copied.
var ActiveStreams = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "flick_active_streams",
	Help: "Range responses currently in flight.",
})

// CacheLookups counts response cache outcomes: hit, miss or bypass.
var CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "flick_cache_lookups_total",
	Help: "Catalog response cache lookups by result.",
}, []string{"result"})

var WatchlistUpdates = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "flick_watchlist_updates_total",
	Help: "Watchlist mutations by operation.",
}, []string{"operation"})

// Middleware records request count and latency keyed by the route pattern,
// not the raw path, so ids do not explode label cardinality.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				} else if status < http.StatusBadRequest {
					status = http.StatusInternalServerError
				}
			}
			HTTPRequests.WithLabelValues(c.Request().Method, route, strconv.Itoa(status)).Inc()
			HTTPDuration.WithLabelValues(c.Request().Method, route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
