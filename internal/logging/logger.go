// Package logging provides the service-wide logrus logger and an Echo
// middleware that writes one structured line per request.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// New returns a JSON logger tagged with the service name.  Unknown or empty
// levels fall back to info.
func New(service, level string) *logrus.Entry {
	return NewWithOutput(os.Stdout, service, level)
}

// NewWithOutput is New with an explicit destination, used by tests.
func NewWithOutput(out io.Writer, service, level string) *logrus.Entry {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	log.SetOutput(out)
	lvl, err := logrus.ParseLevel(level)
	if err != nil || level == "" {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
	return log.WithField("service", service)
}

// UserIDFunc extracts the authenticated user id from a request, if any.
type UserIDFunc func(c echo.Context) string

// Requests logs method, route, status, latency and caller for every request.
func Requests(log *logrus.Entry, userID UserIDFunc) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				// let the error handler write the response so the status is final
				c.Error(err)
			}
			fields := logrus.Fields{
				"method":     c.Request().Method,
				"path":       c.Request().URL.Path,
				"status":     c.Response().Status,
				"latency_ms": time.Since(start).Milliseconds(),
				"ip":         c.RealIP(),
				"bytes_out":  c.Response().Size,
			}
			if userID != nil {
				if id := userID(c); id != "" {
					fields["user_id"] = id
				}
			}
			log.WithFields(fields).Info("request")
			return nil
		}
	}
}
