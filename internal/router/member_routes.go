package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/gym-session-reservation/internal/handler"
)

// RegisterMember registers booking endpoints open to any authenticated
// account.  Ownership of a reservation is checked by the engine, not here.
func RegisterMember(e *echo.Echo, h *handler.ReservationHandler, opts Options) {
	g := e.Group("/v1")
	auth := restricted(opts.JWTSecret, anyRole)
	limited := restricted(opts.JWTSecret, anyRole, opts.BookingLimit)

	g.POST("/sessions/:id/reserve", h.Reserve, limited...)
	g.GET("/reservations", h.ListMine, auth...)
	g.GET("/reservations/policy", h.CancelWindow, auth...)
	g.GET("/reservations/:id", h.Get, auth...)
	g.PUT("/reservations/:id/cancel", h.Cancel, limited...)
	g.DELETE("/reservations/:id", h.Cancel, limited...)
}
