package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/gym-session-reservation/internal/handler"
	"github.com/iliyamo/gym-session-reservation/internal/model"
)

// RegisterAdmin registers admin-only endpoints: session management and
// the back office under /v1/admin.
func RegisterAdmin(e *echo.Echo, a *handler.AdminHandler, s *handler.SessionHandler, jwtSecret string) {
	g := e.Group("/v1")
	admin := restricted(jwtSecret, []model.Role{model.RoleAdmin})

	// ---- Sessions ----
	g.POST("/sessions", s.Create, admin...)
	g.PUT("/sessions/:id", s.Update, admin...)
	g.PATCH("/sessions/:id", s.Update, admin...)
	g.DELETE("/sessions/:id", s.Delete, admin...)
	g.GET("/admin/sessions/stats", s.Stats, admin...)

	// ---- Reservations ----
	g.GET("/admin/reservations", a.ListReservations, admin...)
	g.GET("/admin/reservations/stats", a.ReservationStats, admin...)
	g.PUT("/admin/reservations/:id/payment", a.UpdatePayment, admin...)
	g.GET("/admin/revenue", a.Revenue, admin...)

	// ---- Members ----
	g.GET("/admin/members", a.ListMembers, admin...)
	g.PUT("/admin/members/:id/benefits/reset", a.ResetMemberBenefits, admin...)
}
