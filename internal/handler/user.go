package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/flick-backend/internal/apperror"
	"github.com/iliyamo/flick-backend/internal/middleware"
	"github.com/iliyamo/flick-backend/internal/model"
	"github.com/iliyamo/flick-backend/internal/service"
)

// UserStore is the persistence needed by sign-in.
type UserStore interface {
	FindOrCreate(ctx context.Context, candidate *model.User) (*model.User, bool, error)
}

// UserHandler serves /users: sign-in and the caller's watchlist.
type UserHandler struct {
	Users     UserStore
	Watchlist *service.WatchlistService
	Log       *logrus.Entry
	now       func() time.Time
}

func NewUserHandler(users UserStore, wl *service.WatchlistService, log *logrus.Entry) *UserHandler {
	return &UserHandler{Users: users, Watchlist: wl, Log: log, now: time.Now}
}

// SignIn handles POST /users/signin.  The identity provider has already
// authenticated the person; this finds or creates the matching record by
// email.  A returning user's stored profile is not updated.
func (h *UserHandler) SignIn(c echo.Context) error {
	var in model.SignInInput
	if err := c.Bind(&in); err != nil {
		return apperror.BadRequest("Invalid request body")
	}
	candidate, err := model.NewUser(in, h.now().UTC())
	if err != nil {
		return err
	}
	u, created, err := h.Users.FindOrCreate(c.Request().Context(), candidate)
	if err != nil {
		return err
	}
	if created {
		h.Log.WithField("user_id", u.ID.Hex()).Info("user created on first sign-in")
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "success", "user": u})
}

// GetWatchlist handles GET /users/watchlist.
func (h *UserHandler) GetWatchlist(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return apperror.Unauthorized("NotAuthenticated", "You are not authenticated to access these routes")
	}
	list, err := h.Watchlist.List(c.Request().Context(), u)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, watchlistBody(list))
}

// UpdateWatchlist handles PATCH /users/watchlist/:operation with body
// {"movieId": "..."}.
func (h *UserHandler) UpdateWatchlist(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return apperror.Unauthorized("NotAuthenticated", "You are not authenticated to access these routes")
	}
	var body struct {
		MovieID string `json:"movieId" form:"movieId"`
	}
	if err := c.Bind(&body); err != nil {
		return apperror.BadRequest("Invalid request body")
	}
	list, err := h.Watchlist.Apply(c.Request().Context(), u, c.Param("operation"), body.MovieID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, watchlistBody(list))
}

func watchlistBody(list []model.WatchlistEntry) echo.Map {
	if list == nil {
		list = []model.WatchlistEntry{}
	}
	return echo.Map{"status": "success", "data": echo.Map{"watchlist": list}}
}
