package middleware

// identity.go defines helper functions shared across middleware files and
// the request logger.  UserID returns the hex id of the user attached by
// Authenticate, or "" when the request is anonymous.

import (
	"github.com/labstack/echo/v4"
)

// UserID extracts the authenticated user's id from the request context.
func UserID(c echo.Context) string {
	if u, ok := CurrentUser(c); ok {
		return u.ID.Hex()
	}
	return ""
}

// userID is UserID with "anon" for anonymous callers, used in rate limit keys.
func userID(c echo.Context) string {
	if id := UserID(c); id != "" {
		return id
	}
	return "anon"
}
