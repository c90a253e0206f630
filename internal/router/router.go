// Package router wires handlers and middleware onto an Echo instance.
// Every API route lives under /v1; /healthz stays at the root for load
// balancers.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/gym-session-reservation/internal/handler"
	"github.com/iliyamo/gym-session-reservation/internal/middleware"
	"github.com/iliyamo/gym-session-reservation/internal/model"
)

// Handlers groups the endpoint handlers registered by Register.
type Handlers struct {
	Auth         *handler.AuthHandler
	Sessions     *handler.SessionHandler
	Reservations *handler.ReservationHandler
	Admin        *handler.AdminHandler
}

// Options carries the optional per-route middleware.  Nil entries are
// skipped.
type Options struct {
	JWTSecret    string
	BookingLimit echo.MiddlewareFunc // tighter bucket on reserve/cancel
	Cache        echo.MiddlewareFunc // response cache for public session reads
}

// anyRole is every authenticated role.
var anyRole = []model.Role{model.RoleMember, model.RoleTrainer, model.RoleAdmin}

// Register mounts the whole API.
func Register(e *echo.Echo, db handler.Pinger, h Handlers, opts Options) {
	RegisterRoutes(e, db)
	RegisterAuth(e, h.Auth, opts.JWTSecret)
	RegisterSessions(e, h.Sessions, opts)
	RegisterMember(e, h.Reservations, opts)
	RegisterStaff(e, h.Sessions, h.Reservations, opts.JWTSecret)
	RegisterAdmin(e, h.Admin, h.Sessions, opts.JWTSecret)
}

// RegisterRoutes registers routes that do not require authentication and
// sit outside /v1.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health(db))
}

// RegisterAuth registers the token endpoints.  Register, login, refresh
// and logout only need the request body; /v1/me and /v1/auth/logout-all
// need an access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)

	auth := middleware.JWTAuth(jwtSecret)
	g.POST("/logout-all", a.LogoutAll, auth)
	e.GET("/v1/me", a.Me, auth, middleware.RequireRole(anyRole...))
}

// RegisterSessions registers the public session catalogue.
func RegisterSessions(e *echo.Echo, h *handler.SessionHandler, opts Options) {
	mw := optional(opts.Cache)
	e.GET("/v1/sessions", h.List, mw...)
	e.GET("/v1/sessions/upcoming", h.Upcoming, mw...)
	e.GET("/v1/sessions/:id", h.Get, mw...)
}

// restricted is the chain for a route that needs an access token held by
// one of roles, followed by any extra middleware.  It is attached per
// route: middleware on a /v1 group installs a catch-all that would answer
// unknown paths with 401 instead of 404.
func restricted(secret string, roles []model.Role, extra ...echo.MiddlewareFunc) []echo.MiddlewareFunc {
	out := []echo.MiddlewareFunc{middleware.JWTAuth(secret), middleware.RequireRole(roles...)}
	return append(out, optional(extra...)...)
}

func optional(mw ...echo.MiddlewareFunc) []echo.MiddlewareFunc {
	out := make([]echo.MiddlewareFunc, 0, len(mw))
	for _, m := range mw {
		if m != nil {
			out = append(out, m)
		}
	}
	return out
}
