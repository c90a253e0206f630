package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/gym-session-reservation/internal/handler"
	"github.com/iliyamo/gym-session-reservation/internal/model"
)

// RegisterStaff registers the front-desk endpoints shared by trainers and
// admins: attendee lists and attendance marking.
func RegisterStaff(e *echo.Echo, s *handler.SessionHandler, r *handler.ReservationHandler, jwtSecret string) {
	g := e.Group("/v1")
	staff := restricted(jwtSecret, []model.Role{model.RoleTrainer, model.RoleAdmin})

	g.GET("/sessions/:id/attendees", s.Attendees, staff...)
	g.PUT("/reservations/:id/attend", r.MarkAttended, staff...)
	g.PUT("/reservations/:id/no-show", r.MarkNoShow, staff...)
	g.PUT("/reservations/:id/check-out", r.CheckOut, staff...)
}
