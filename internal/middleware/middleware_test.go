package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/gym-session-reservation/internal/config"
	"github.com/iliyamo/gym-session-reservation/internal/model"
	"github.com/iliyamo/gym-session-reservation/internal/utils"
)

const secret = "test-secret"

func protected(roles ...model.Role) *echo.Echo {
	e := echo.New()
	g := e.Group("/v1", JWTAuth(secret))
	if len(roles) > 0 {
		g.Use(RequireRole(roles...))
	}
	g.GET("/whoami", func(c echo.Context) error {
		id, role, _ := Identity(c)
		return c.JSON(http.StatusOK, echo.Map{"id": id, "role": role})
	})
	return e
}

func call(e *echo.Echo, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/v1/whoami", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuth(t *testing.T) {
	e := protected()
	if rec := call(e, ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token: %d", rec.Code)
	}
	if rec := call(e, "garbage"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: %d", rec.Code)
	}
	tok, _ := utils.NewAccessToken(secret, 12, model.RoleMember, time.Minute, time.Now())
	rec := call(e, tok.Token)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"id":12`) || !strings.Contains(rec.Body.String(), `"role":"member"`) {
		t.Fatalf("valid token: %d %s", rec.Code, rec.Body)
	}
}

func TestRequireRole(t *testing.T) {
	e := protected(model.RoleAdmin, model.RoleTrainer)
	member, _ := utils.NewAccessToken(secret, 3, model.RoleMember, time.Minute, time.Now())
	trainer, _ := utils.NewAccessToken(secret, 4, model.RoleTrainer, time.Minute, time.Now())
	if rec := call(e, member.Token); rec.Code != http.StatusForbidden {
		t.Fatalf("member: %d", rec.Code)
	}
	if rec := call(e, trainer.Token); rec.Code != http.StatusOK {
		t.Fatalf("trainer: %d", rec.Code)
	}
}

func TestIdentityWithoutAuth(t *testing.T) {
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	if _, _, ok := Identity(c); ok {
		t.Fatal("anonymous context reported an identity")
	}
	if userKey(c) != "anon" {
		t.Fatal("anonymous rate key")
	}
	SetIdentity(c, 9, model.RoleAdmin)
	if id, role, ok := Identity(c); !ok || id != 9 || role != model.RoleAdmin {
		t.Fatalf("identity = %d %s %v", id, role, ok)
	}
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/sessions/5/reserve", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.1")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/sessions/:id/reserve")
	SetIdentity(c, 7, model.RoleMember)

	cfg := config.RateLimitConfig{Prefix: "gym:rl", KeyStrategy: "ip_user_route"}
	if got := buildRateKey(cfg, c); got != "gym:rl:ip:10.0.0.1:user:7:route:POST /v1/sessions/:id/reserve" {
		t.Fatalf("key = %q", got)
	}
	cfg.KeyStrategy = "user_route"
	if got := buildRateKey(cfg, c); got != "gym:rl:user:7:route:POST /v1/sessions/:id/reserve" {
		t.Fatalf("key = %q", got)
	}
	if retryAfterSeconds(1001) != 2 || retryAfterSeconds(-5) != 0 {
		t.Fatal("retry-after rounding")
	}
}

func TestPayloadRoundTrip(t *testing.T) {
	h := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(200, h, []byte(`{"ok":true}`))
	if err != nil {
		t.Fatal(err)
	}
	status, hdr, body, ok := decodePayload(bs)
	if !ok || status != 200 || hdr.Get("Content-Type") != "application/json" || string(body) != `{"ok":true}` {
		t.Fatalf("decoded %d %v %q %v", status, hdr, body, ok)
	}
	if _, _, _, ok := decodePayload([]byte{0, 0}); ok {
		t.Fatal("short payload decoded")
	}
}

func TestDisabledMiddlewarePassesThrough(t *testing.T) {
	e := echo.New()
	e.Use(NewTokenBucket(config.RateLimitConfig{Enabled: true}, nil))
	e.Use(NewRedisCache(config.CacheConfig{Enabled: true}, nil))
	e.GET("/x", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	if rec.Code != http.StatusOK || rec.Header().Get("X-Cache") != "" {
		t.Fatalf("passthrough: %d %v", rec.Code, rec.Header())
	}
	p := NewCachePurger(config.CacheConfig{Enabled: true}, nil)
	if err := p.Purge(context.Background()); err != nil {
		t.Fatal(err)
	}
}
