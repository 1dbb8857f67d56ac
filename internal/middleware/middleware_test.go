package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/iliyamo/bus-seat-reservation/internal/config"
	"github.com/iliyamo/bus-seat-reservation/internal/utils"
)

const secret = "test-secret"

func newEcho() *echo.Echo {
	e := echo.New()
	guarded := e.Group("", JWTAuth(secret))
	guarded.GET("/me", func(c echo.Context) error {
		id, _ := UserID(c)
		return c.JSON(http.StatusOK, echo.Map{"id": id, "role": Role(c)})
	})
	guarded.GET("/admin", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, RequireRole("ADMIN"))
	return e
}

func do(e *echo.Echo, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func token(t *testing.T, id uint64, role string) string {
	t.Helper()
	tok, err := utils.NewAccessToken(secret, id, role, 5)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tok.Token
}

func TestJWTAuth(t *testing.T) {
	e := newEcho()
	if rec := do(e, "/me", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing token: expected 401, got %d", rec.Code)
	}
	if rec := do(e, "/me", "garbage"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: expected 401, got %d", rec.Code)
	}
	rec := do(e, "/me", token(t, 7, "CUSTOMER"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body := rec.Body.String(); body != "{\"id\":7,\"role\":\"CUSTOMER\"}\n" {
		t.Fatalf("unexpected body %q", body)
	}
}

func TestRequireRole(t *testing.T) {
	e := newEcho()
	if rec := do(e, "/admin", token(t, 7, "CUSTOMER")); rec.Code != http.StatusForbidden {
		t.Fatalf("customer: expected 403, got %d", rec.Code)
	}
	if rec := do(e, "/admin", token(t, 1, "ADMIN")); rec.Code != http.StatusNoContent {
		t.Fatalf("admin: expected 204, got %d", rec.Code)
	}
}

func TestTokenBucketWithoutRedisPassesThrough(t *testing.T) {
	e := echo.New()
	e.POST("/bookings", func(c echo.Context) error { return c.NoContent(http.StatusCreated) },
		NewTokenBucket(config.RateLimitConfig{Enabled: true, Capacity: 1}, nil, nil))
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/bookings", nil))
		if rec.Code != http.StatusCreated {
			t.Fatalf("request %d: expected 201, got %d", i, rec.Code)
		}
	}
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/bookings", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/bookings")
	c.Set(ContextUserID, uint64(9))

	cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: "user_route"}
	if got := buildRateKey(cfg, c); got != "rl:user:9:route:POST /bookings" {
		t.Fatalf("unexpected key %q", got)
	}
	cfg.KeyStrategy = "ip"
	if got := buildRateKey(cfg, c); got != "rl:ip:10.0.0.1" {
		t.Fatalf("unexpected key %q", got)
	}
}

func TestRequestLoggerLevels(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	e := echo.New()
	e.Use(RequestLogger(zap.New(core)))
	e.GET("/ok", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/boom", func(c echo.Context) error { return echo.NewHTTPError(http.StatusInternalServerError, "boom") })

	for _, p := range []string{"/ok", "/missing", "/boom"} {
		e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, nil))
	}
	entries := logs.All()
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	want := []zapcore.Level{zap.InfoLevel, zap.WarnLevel, zap.ErrorLevel}
	for i, entry := range entries {
		if entry.Level != want[i] {
			t.Fatalf("entry %d: expected %s, got %s", i, want[i], entry.Level)
		}
	}
}
