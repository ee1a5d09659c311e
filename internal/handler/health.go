package handler // declare the package name; contains HTTP handlers

import (
	"context"  // context bounds the readiness probe
	"net/http" // net/http provides status codes and response helpers
	"time"     // time sets the probe deadline

	"github.com/labstack/echo/v4" // echo is the web framework used for this project
)

// Health is a simple health‑check endpoint used by load balancers and
// monitoring systems to verify that the service is running.  It returns
// a plain text "ok" message with an HTTP 200 status code.
func Health(c echo.Context) error { // Health handler signature accepts an echo context and returns an error
	return c.String(http.StatusOK, "ok") // write "ok" with a 200 OK status; String writes plain text
}

// PingFunc checks a backing service.
type PingFunc func(ctx context.Context) error

// Ready returns a readiness endpoint that answers 200 only while ping
// succeeds, so the load balancer stops routing when the database is gone.
func Ready(ping PingFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := ping(ctx); err != nil {
			return c.String(http.StatusServiceUnavailable, "unavailable") // the database did not answer in time
		}
		return c.String(http.StatusOK, "ready")
	}
}
