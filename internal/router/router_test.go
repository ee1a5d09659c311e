package router

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/iliyamo/flick-backend/internal/apperror"
	"github.com/iliyamo/flick-backend/internal/handler"
	"github.com/iliyamo/flick-backend/internal/media"
	"github.com/iliyamo/flick-backend/internal/middleware"
	"github.com/iliyamo/flick-backend/internal/model"
	"github.com/iliyamo/flick-backend/internal/repository"
	"github.com/iliyamo/flick-backend/internal/utils"
)

const secret = "router-secret"

type users map[string]*model.User

func (u users) FindByEmail(_ context.Context, email string) (*model.User, error) {
	if x, ok := u[email]; ok {
		return x, nil
	}
	return nil, repository.ErrNotFound
}

func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()
	l := logrus.New()
	l.SetOutput(io.Discard)
	log := logrus.NewEntry(l)

	e := echo.New()
	e.HTTPErrorHandler = apperror.Handler("test", log, handler.ErrorRules())
	RegisterRoutes(e, func(context.Context) error { return nil })
	RegisterAPI(e, Deps{
		Movies:  handler.NewMovieHandler(nil, nil, nil, nil, log, 0),
		Streams: handler.NewStreamHandler(media.NewStreamer(nil, 0, log)),
		Users:   handler.NewUserHandler(nil, nil, log),
		Auth: middleware.Authenticate(secret, "session", users{
			"ada@example.com": {ID: bson.NewObjectID(), Email: "ada@example.com", Role: model.RoleUser},
		}),
	})
	return e
}

func bearer(t *testing.T, email string) string {
	t.Helper()
	raw, err := utils.NewSessionToken(secret, email, "sub", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	return "Bearer " + raw
}

func TestRoutes(t *testing.T) {
	e := newTestServer(t)
	tests := []struct {
		name   string
		method string
		target string
		auth   bool
		want   int
	}{
		{"liveness", http.MethodGet, "/healthz", false, http.StatusOK},
		{"readiness", http.MethodGet, "/readyz", false, http.StatusOK},
		{"metrics", http.MethodGet, "/metrics", false, http.StatusOK},
		{"create needs auth", http.MethodPost, "/api/v1/movies", false, http.StatusUnauthorized},
		{"create needs admin", http.MethodPost, "/api/v1/movies", true, http.StatusForbidden},
		{"update needs admin", http.MethodPatch, "/api/v1/movies/" + bson.NewObjectID().Hex(), true, http.StatusForbidden},
		{"delete needs admin", http.MethodDelete, "/api/v1/movies/" + bson.NewObjectID().Hex(), true, http.StatusForbidden},
		{"watchlist needs auth", http.MethodGet, "/api/v1/users/watchlist", false, http.StatusUnauthorized},
		{"stream needs auth", http.MethodGet, "/api/v1/streams/abc.mp4", false, http.StatusUnauthorized},
		{"stream needs range", http.MethodGet, "/api/v1/streams/abc.mp4", true, http.StatusBadRequest},
		{"unknown route", http.MethodGet, "/api/v2/movies", false, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.target, strings.NewReader("{}"))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			if tt.auth {
				req.Header.Set(echo.HeaderAuthorization, bearer(t, "ada@example.com"))
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}
