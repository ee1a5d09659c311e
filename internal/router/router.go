package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/iliyamo/flick-backend/internal/handler"    // import the handlers that implement business logic
	"github.com/iliyamo/flick-backend/internal/metrics"    // Prometheus scrape endpoint
	"github.com/iliyamo/flick-backend/internal/middleware" // import middleware for authentication and role enforcement
	"github.com/iliyamo/flick-backend/internal/model"
)

// Deps bundles what the API routes need.  Cache wraps the public movie
// reads; Auth resolves the session token on protected routes.
type Deps struct {
	Movies  *handler.MovieHandler
	Streams *handler.StreamHandler
	Users   *handler.UserHandler
	Auth    echo.MiddlewareFunc
	Cache   echo.MiddlewareFunc
}

// RegisterRoutes registers routes that do not require authentication:
// liveness, readiness and the metrics scrape.
func RegisterRoutes(e *echo.Echo, ping handler.PingFunc) {
	// Map the GET request at path "/healthz" to the Health handler.  This
	// endpoint can be used by load balancers or monitoring systems to verify
	// that the service is up and running.
	e.GET("/healthz", handler.Health)
	if ping != nil {
		e.GET("/readyz", handler.Ready(ping))
	}
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
}

// RegisterAPI mounts the versioned API under /api/v1.
func RegisterAPI(e *echo.Echo, d Deps) {
	v1 := e.Group("/api/v1")
	registerMovies(v1, d)
	registerUsers(v1, d)
	registerStreams(v1, d)
}

// registerMovies: reads are public and cached, writes need an admin.
func registerMovies(v1 *echo.Group, d Deps) {
	g := v1.Group("/movies")
	read := []echo.MiddlewareFunc{}
	if d.Cache != nil {
		read = append(read, d.Cache)
	}
	g.GET("", d.Movies.List, read...)
	g.GET("/:id", d.Movies.Get, read...)

	admin := []echo.MiddlewareFunc{d.Auth, middleware.RequireRole(model.RoleAdmin)}
	g.POST("", d.Movies.Create, admin...)
	g.PATCH("/:id", d.Movies.Update, admin...)
	g.DELETE("/:id", d.Movies.Delete, admin...)
}

// registerUsers: sign-in is public, the watchlist needs any signed-in user.
func registerUsers(v1 *echo.Group, d Deps) {
	g := v1.Group("/users")
	g.POST("/signin", d.Users.SignIn)
	g.GET("/watchlist", d.Users.GetWatchlist, d.Auth)
	g.PATCH("/watchlist/:operation", d.Users.UpdateWatchlist, d.Auth)
}

// registerStreams: any signed-in user may stream.
func registerStreams(v1 *echo.Group, d Deps) {
	v1.GET("/streams/:media", d.Streams.Stream, d.Auth)
}
