package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apphttp "winetopia_backend/internal/http"
	"winetopia_backend/platform/httpkit"
	"winetopia_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "router-test-secret"

type testConfig struct {
	origins []string
}

func (c testConfig) GetHTTPAddr() string        { return ":0" }
func (c testConfig) GetCORSAllowAll() bool      { return false }
func (c testConfig) GetCORSOrigins() []string   { return c.origins }
func (c testConfig) GetCORSAllowCreds() bool    { return false }
func (c testConfig) GetJWTAccessSecret() string { return testSecret }

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type echoModule struct{}

func (echoModule) Name() string { return "echo" }

func (echoModule) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.V1.GET("/echo", func(c *gin.Context) { c.String(http.StatusOK, "public") })
	ctx.Admin.GET("/whoami", func(c *gin.Context) {
		p, _ := httpkit.GetPrincipal(c)
		c.String(http.StatusOK, p.Subject)
	})
}

func newTestEngine(health apphttp.HealthChecker) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return New(&apphttp.App{
		Config:  testConfig{origins: []string{"https://winetopia.example"}},
		Logger:  logger.NewNop(),
		Health:  health,
		Modules: []apphttp.Module{echoModule{}},
	})
}

func signToken(t *testing.T, roles []string, tokenType string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   "user-1",
		"type":  tokenType,
		"roles": roles,
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func serve(engine *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := serve(newTestEngine(nil), httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	down := newTestEngine(pingFunc(func(context.Context) error { return errors.New("db down") }))
	rec = serve(down, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when the health check fails, got %d", rec.Code)
	}
}

func TestRequestIDIsEchoed(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/echo", nil)
	req.Header.Set(httpkit.HeaderRequestID, "req-123")

	rec := serve(newTestEngine(nil), req)
	if got := rec.Header().Get(httpkit.HeaderRequestID); got != "req-123" {
		t.Fatalf("expected request id to be echoed, got %q", got)
	}

	rec = serve(newTestEngine(nil), httptest.NewRequest(http.MethodGet, "/api/v1/echo", nil))
	if rec.Header().Get(httpkit.HeaderRequestID) == "" {
		t.Fatal("expected a generated request id")
	}
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	engine := newTestEngine(nil)

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"no token", "", http.StatusUnauthorized},
		{"garbage token", "Bearer nope", http.StatusUnauthorized},
		{"refresh token", "Bearer " + signToken(t, []string{"admin"}, "refresh"), http.StatusUnauthorized},
		{"non admin", "Bearer " + signToken(t, []string{"staff"}, "access"), http.StatusForbidden},
		{"admin", "Bearer " + signToken(t, []string{"admin"}, "access"), http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/whoami", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := serve(engine, req)
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d (%s)", tc.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestPublicRoutesSkipAuth(t *testing.T) {
	rec := serve(newTestEngine(nil), httptest.NewRequest(http.MethodGet, "/api/v1/echo", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "public" {
		t.Fatalf("unexpected response %d %q", rec.Code, rec.Body.String())
	}
}

func TestCORSPreflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/echo", nil)
	req.Header.Set("Origin", "https://winetopia.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)

	rec := serve(newTestEngine(nil), req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://winetopia.example" {
		t.Fatalf("expected allowed origin header, got %q", got)
	}
}
