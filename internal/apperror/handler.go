package apperror

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/flick-backend/internal/telemetry"
)

// Rule maps a sentinel error (matched with errors.Is) to a status code and
// name.  The response message is the full error text so wrapped details such
// as the offending query key reach the client.
type Rule struct {
	Target error
	Code   int
	Name   string
}

// Classify converts any error into an *Error.  Already-classified errors are
// returned as is, echo.HTTPError keeps its code, rules are tried in order and
// everything else becomes a generic 500.
func Classify(err error, rules []Rule) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if s, ok := he.Message.(string); ok && s != "" {
			msg = s
		}
		return Wrap(err, he.Code, http.StatusText(he.Code), msg)
	}
	for _, r := range rules {
		if errors.Is(err, r.Target) {
			return Wrap(err, r.Code, r.Name, err.Error())
		}
	}
	return Internal(err, "Something went wrong")
}

type body struct {
	Status  string `json:"status"`
	Name    string `json:"name"`
	Message string `json:"message"`
	Stack   string `json:"stack,omitempty"`
}

// Handler returns the central echo.HTTPErrorHandler.  Server errors are
// logged and reported; the stack is included in the body only outside
// production.
func Handler(env string, log *logrus.Entry, rules []Rule) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		ae := Classify(err, rules)
		if ae.Code >= http.StatusInternalServerError {
			log.WithError(err).WithFields(logrus.Fields{
				"method": c.Request().Method,
				"path":   c.Request().URL.Path,
			}).Error("request failed")
			telemetry.CaptureError(err, map[string]string{"path": c.Path()})
		}
		out := body{Status: ae.Status(), Name: ae.Name, Message: ae.Message}
		if env != "production" {
			out.Stack = ae.Stack()
		}
		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(ae.Code)
		} else {
			werr = c.JSON(ae.Code, out)
		}
		if werr != nil {
			log.WithError(werr).Warn("write error response")
		}
	}
}
