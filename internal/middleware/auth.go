package middleware // middleware provides shared request processing for handlers

import (
	"context"  // context carries the resolved user to handlers
	"errors"   // errors distinguishes a missing user from a storage failure
	"net/http" // http exposes cookie parsing on the request
	"strings"  // strings utilities for bearer prefix handling
	"time"     // time is used for the expiry check

	"github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers

	"github.com/iliyamo/flick-backend/internal/apperror"
	"github.com/iliyamo/flick-backend/internal/model"
	"github.com/iliyamo/flick-backend/internal/repository"
	"github.com/iliyamo/flick-backend/internal/utils"
)

// UserFinder resolves the email in a session token to a stored user.
type UserFinder interface {
	FindByEmail(ctx context.Context, email string) (*model.User, error)
}

// userKey is the context key for the authenticated user.  An unexported
// struct type cannot collide with keys from other packages.
type userKey struct{}

// WithUser returns a copy of ctx carrying u.
func WithUser(ctx context.Context, u *model.User) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

// UserFrom returns the user stored by WithUser, if any.
func UserFrom(ctx context.Context) (*model.User, bool) {
	u, ok := ctx.Value(userKey{}).(*model.User)
	return u, ok && u != nil
}

// CurrentUser returns the user resolved by Authenticate for this request.
func CurrentUser(c echo.Context) (*model.User, bool) {
	return UserFrom(c.Request().Context())
}

// Authenticate returns an Echo middleware that resolves the session token
// to a stored user.  The token is read from the session cookie first and the
// Authorization header second.  Checks run in a fixed order and each failure
// has its own error name, all answered with 401:
//
//	NotAuthenticated  no token at all
//	InvalidToken      bad signature, wrong algorithm or no email claim
//	UserNotFound      no user has the token's email
//	TokenExpired      the exp claim is in the past
//
// On success the user is attached to the request context; handlers read it
// with CurrentUser.
func Authenticate(secret, cookieName string, users UserFinder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := sessionToken(c.Request(), cookieName)
			if raw == "" {
				return apperror.Unauthorized("NotAuthenticated", "You are not authenticated to access these routes")
			}

			claims, err := utils.ParseSessionToken(secret, raw)
			if err != nil {
				return apperror.Unauthorized("InvalidToken", "Invalid token")
			}

			// The user lookup happens before the expiry check so a token
			// for a removed account reports the account, not the expiry.
			ctx := c.Request().Context()
			u, err := users.FindByEmail(ctx, claims.Email)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return apperror.Unauthorized("UserNotFound", "User associated with this token no longer exists.")
				}
				return err
			}

			if claims.Expired(time.Now()) {
				return apperror.Unauthorized("TokenExpired", "Provided token is already expired")
			}

			c.SetRequest(c.Request().WithContext(WithUser(ctx, u)))
			return next(c)
		}
	}
}

// sessionToken reads the cookie first, then "Authorization: Bearer <token>".
func sessionToken(r *http.Request, cookieName string) string {
	if cookieName != "" {
		if ck, err := r.Cookie(cookieName); err == nil && ck.Value != "" {
			return ck.Value
		}
	}
	auth := r.Header.Get(echo.HeaderAuthorization)
	const prefix = "Bearer "
	if len(auth) > len(prefix) && strings.EqualFold(auth[:len(prefix)], prefix) {
		return strings.TrimSpace(auth[len(prefix):])
	}
	return ""
}
