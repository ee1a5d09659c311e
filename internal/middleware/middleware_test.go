package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/iliyamo/flick-backend/internal/apperror"
	"github.com/iliyamo/flick-backend/internal/config"
	"github.com/iliyamo/flick-backend/internal/model"
	"github.com/iliyamo/flick-backend/internal/repository"
	"github.com/iliyamo/flick-backend/internal/utils"
)

const (
	testSecret = "s3cret"
	cookieName = "next-auth.session-token"
)

type fakeUsers map[string]*model.User

func (f fakeUsers) FindByEmail(_ context.Context, email string) (*model.User, error) {
	if u, ok := f[email]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

type failingUsers struct{}

func (failingUsers) FindByEmail(context.Context, string) (*model.User, error) {
	return nil, errors.New("server selection timeout")
}

func newTestEcho() *echo.Echo {
	e := echo.New()
	log := logrus.New()
	log.SetOutput(io.Discard)
	e.HTTPErrorHandler = apperror.Handler("test", logrus.NewEntry(log), nil)
	return e
}

func token(t *testing.T, email string, ttl time.Duration) string {
	t.Helper()
	raw, err := utils.NewSessionToken(testSecret, email, "sub-"+email, ttl)
	if err != nil {
		t.Fatal(err)
	}
	return raw
}

type errBody struct {
	Status string `json:"status"`
	Name   string `json:"name"`
}

func decodeErr(t *testing.T, rec *httptest.ResponseRecorder) errBody {
	t.Helper()
	var b errBody
	if err := json.Unmarshal(rec.Body.Bytes(), &b); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return b
}

func TestAuthenticate(t *testing.T) {
	users := fakeUsers{
		"ada@example.com":   {ID: bson.NewObjectID(), Email: "ada@example.com", Role: model.RoleUser},
		"admin@example.com": {ID: bson.NewObjectID(), Email: "admin@example.com", Role: model.RoleAdmin},
	}
	valid := token(t, "ada@example.com", time.Hour)

	tests := []struct {
		name     string
		prepare  func(r *http.Request)
		finder   UserFinder
		wantCode int
		wantName string
	}{
		{"no token", func(r *http.Request) {}, users, http.StatusUnauthorized, "NotAuthenticated"},
		{"bearer ok", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+valid) }, users, http.StatusOK, ""},
		{"cookie ok", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: cookieName, Value: valid}) }, users, http.StatusOK, ""},
		{"cookie wins over bad header", func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: cookieName, Value: valid})
			r.Header.Set("Authorization", "Bearer junk")
		}, users, http.StatusOK, ""},
		{"bad signature", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+valid+"x") }, users, http.StatusUnauthorized, "InvalidToken"},
		{"unknown user", func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+token(t, "ghost@example.com", time.Hour))
		}, users, http.StatusUnauthorized, "UserNotFound"},
		{"expired", func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+token(t, "ada@example.com", -time.Minute))
		}, users, http.StatusUnauthorized, "TokenExpired"},
		{"unknown user beats expired", func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+token(t, "ghost@example.com", -time.Minute))
		}, users, http.StatusUnauthorized, "UserNotFound"},
		{"store failure", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+valid) }, failingUsers{}, http.StatusInternalServerError, "InternalServerError"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEcho()
			e.GET("/me", func(c echo.Context) error {
				u, ok := CurrentUser(c)
				if !ok {
					return errors.New("no user in context")
				}
				return c.String(http.StatusOK, u.Email)
			}, Authenticate(testSecret, cookieName, tt.finder))

			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			tt.prepare(req)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantName != "" {
				if b := decodeErr(t, rec); b.Name != tt.wantName {
					t.Fatalf("name = %q, want %q", b.Name, tt.wantName)
				}
			} else if rec.Body.String() != "ada@example.com" {
				t.Fatalf("body = %q", rec.Body.String())
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	users := fakeUsers{
		"ada@example.com":   {ID: bson.NewObjectID(), Email: "ada@example.com", Role: model.RoleUser},
		"admin@example.com": {ID: bson.NewObjectID(), Email: "admin@example.com", Role: model.RoleAdmin},
	}
	e := newTestEcho()
	e.POST("/movies", func(c echo.Context) error { return c.NoContent(http.StatusCreated) },
		Authenticate(testSecret, cookieName, users), RequireRole(model.RoleAdmin))

	tests := []struct {
		email string
		want  int
	}{
		{"ada@example.com", http.StatusForbidden},
		{"admin@example.com", http.StatusCreated},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodPost, "/movies", nil)
		req.Header.Set("Authorization", "Bearer "+token(t, tt.email, time.Hour))
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		if rec.Code != tt.want {
			t.Fatalf("%s: status = %d, want %d", tt.email, rec.Code, tt.want)
		}
		if tt.want == http.StatusForbidden {
			if b := decodeErr(t, rec); b.Status != "fail" {
				t.Fatalf("status field = %q, want fail", b.Status)
			}
		}
	}
}

func TestRequireRole_WithoutAuthenticate(t *testing.T) {
	e := newTestEcho()
	e.GET("/x", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, RequireRole(model.RoleAdmin))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestUserID(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	if UserID(c) != "" || userID(c) != "anon" {
		t.Fatal("anonymous request should have no id")
	}
	id := bson.NewObjectID()
	c.SetRequest(req.WithContext(WithUser(req.Context(), &model.User{ID: id})))
	if UserID(c) != id.Hex() {
		t.Fatalf("UserID = %q", UserID(c))
	}
}

func TestLocalLimiter(t *testing.T) {
	cfg := config.RateLimitConfig{
		Enabled:        true,
		Capacity:       2,
		RefillTokens:   1,
		RefillInterval: time.Hour,
		TTL:            time.Hour,
		KeyStrategy:    "ip",
		Prefix:         "test:rl",
	}
	e := newTestEcho()
	e.Use(NewTokenBucket(cfg, nil))
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
		if rec.Code == http.StatusTooManyRequests && rec.Header().Get("Retry-After") == "" {
			t.Fatal("429 without Retry-After")
		}
	}
	if codes[0] != 200 || codes[1] != 200 || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("codes = %v", codes)
	}

	// a different client has its own bucket
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("second client status = %d", rec.Code)
	}
}

func TestCacheKeyDistinguishesPaths(t *testing.T) {
	cfg := config.CacheConfig{Prefix: "flick:cache", KeyStrategy: "route_query"}
	e := echo.New()
	key := func(target string) string {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, target, nil), httptest.NewRecorder())
		c.SetPath("/api/v1/movies/:id")
		return cacheKeyFrom(cfg, c)
	}
	a, b := key("/api/v1/movies/1"), key("/api/v1/movies/2")
	if a == b {
		t.Fatal("different ids share a cache key")
	}
	if key("/api/v1/movies/1?fields=title") == a {
		t.Fatal("query string ignored")
	}
	if a != key("/api/v1/movies/1") {
		t.Fatal("key is not stable")
	}
}

func TestCachePayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`{"ok":true}`))
	if err != nil {
		t.Fatal(err)
	}
	status, gotHdr, body, ok := decodePayload(bs)
	if !ok || status != http.StatusOK || gotHdr.Get("Content-Type") != "application/json" || string(body) != `{"ok":true}` {
		t.Fatalf("decoded %d %v %q %v", status, gotHdr, body, ok)
	}
	if _, _, _, ok := decodePayload([]byte{1, 2}); ok {
		t.Fatal("short payload decoded")
	}
}

func TestCaptureWriterMarksTruncatedBodies(t *testing.T) {
	rec := httptest.NewRecorder()
	cw := &captureWriter{ResponseWriter: rec, status: http.StatusOK, limit: 4}
	cw.Write([]byte("abc"))
	if cw.truncated {
		t.Fatal("truncated too early")
	}
	cw.Write([]byte("defg"))
	if !cw.truncated || rec.Body.String() != "abcdefg" {
		t.Fatalf("truncated=%v client body=%q", cw.truncated, rec.Body.String())
	}
}

func TestRedisCacheDisabledWithoutClient(t *testing.T) {
	e := newTestEcho()
	e.GET("/movies", func(c echo.Context) error { return c.String(http.StatusOK, "list") },
		NewRedisCache(config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}}, nil))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/movies", nil))
	if rec.Code != http.StatusOK || rec.Header().Get("X-Cache") != "" {
		t.Fatalf("status=%d X-Cache=%q", rec.Code, rec.Header().Get("X-Cache"))
	}
}
