package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/gym-session-reservation/internal/booking"
	"github.com/iliyamo/gym-session-reservation/internal/model"
	"github.com/iliyamo/gym-session-reservation/internal/repository"
)

// ReservationHandler exposes the booking engine over HTTP.
type ReservationHandler struct {
	Engine       *booking.Engine
	Reservations *repository.ReservationRepo
	Sessions     *repository.SessionRepo
	Cache        Purger
	Logger       *slog.Logger
}

func NewReservationHandler(e *booking.Engine, r *repository.ReservationRepo, s *repository.SessionRepo,
	cache Purger, logger *slog.Logger) *ReservationHandler {
	return &ReservationHandler{Engine: e, Reservations: r, Sessions: s, Cache: cache, Logger: logger.With("handler", "reservations")}
}

// seatsChanged drops cached listings once a booking moved a counter.
func (h *ReservationHandler) seatsChanged(c echo.Context) {
	if h.Cache == nil {
		return
	}
	if err := h.Cache.Purge(c.Request().Context()); err != nil {
		h.Logger.Warn("purge session cache failed", "error", err)
	}
}

// Reserve books the caller into session :id.
func (h *ReservationHandler) Reserve(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	sid, ok := pathID(c, "id")
	if !ok {
		return invalid(c, "invalid session id")
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	res, err := h.Engine.Reserve(ctx, a.ID, sid)
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	h.seatsChanged(c)
	msg := "Reservation confirmed"
	if !res.Reservation.IsPaid && res.Reservation.PaymentAmountCents > 0 {
		msg = "Reservation confirmed; payment due at the front desk"
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"message":     msg,
		"reservation": res.Reservation,
		"user": echo.Map{
			"personal_training_sessions_remaining": res.TrainingSessionsRemaining,
		},
	})
}

// ListMine returns the caller's reservations.  Query: status, limit.
func (h *ReservationHandler) ListMine(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	status := model.ReservationStatus(c.QueryParam("status"))
	if status != "" && !status.Valid() {
		return invalid(c, "invalid status")
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 || limit > repository.MaxPageSize {
		limit = 50
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	list, err := h.Reservations.ListByUser(ctx, a.ID, status, limit, h.Engine.Location())
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"reservations": list, "count": len(list)})
}

// Get returns one reservation to its owner, a trainer or an admin.
func (h *ReservationHandler) Get(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return invalid(c, "invalid reservation id")
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	res, err := h.Reservations.GetByID(ctx, id)
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	if !booking.CanView(a, res) {
		return respondError(c, h.Logger, booking.ErrForbidden)
	}
	detail := model.ReservationDetail{Reservation: res, State: res.State()}
	s, err := h.Sessions.GetByID(ctx, res.SessionID)
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	view := s.View(h.Engine.Location())
	detail.Session = &view
	return c.JSON(http.StatusOK, echo.Map{"reservation": detail})
}

type cancelReq struct {
	Reason string `json:"reason"`
}

// Cancel cancels reservation :id for its owner or an admin.
func (h *ReservationHandler) Cancel(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return invalid(c, "invalid reservation id")
	}
	var req cancelReq
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return invalid(c, "invalid body")
		}
	}
	if utf8.RuneCountInString(strings.TrimSpace(req.Reason)) > booking.MaxReasonLength {
		return invalid(c, "Cancellation reason cannot exceed 200 characters")
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	res, err := h.Engine.Cancel(ctx, id, a, req.Reason)
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	h.seatsChanged(c)
	return c.JSON(http.StatusOK, echo.Map{"message": "Reservation cancelled", "reservation": res})
}

type transition func(ctx context.Context, id uint64, a booking.Actor) (model.Reservation, error)

// settle runs an attendance transition on reservation :id.
func (h *ReservationHandler) settle(c echo.Context, msg string, fn transition) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return invalid(c, "invalid reservation id")
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	res, err := fn(ctx, id, a)
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": msg, "reservation": res})
}

// MarkAttended records attendance (admin, trainer).
func (h *ReservationHandler) MarkAttended(c echo.Context) error {
	return h.settle(c, "Marked as attended", h.Engine.MarkAttended)
}

// MarkNoShow records a no-show (admin, trainer).
func (h *ReservationHandler) MarkNoShow(c echo.Context) error {
	return h.settle(c, "Marked as no-show", h.Engine.MarkNoShow)
}

// CheckOut stamps the check-out time of an attended reservation.
func (h *ReservationHandler) CheckOut(c echo.Context) error {
	return h.settle(c, "Checked out", h.Engine.CheckOut)
}

// CancelWindow reports the configured cancellation lead time so clients
// can grey out the cancel button.
func (h *ReservationHandler) CancelWindow(c echo.Context) error {
	w := h.Engine.CancelWindow()
	return c.JSON(http.StatusOK, echo.Map{"cancel_window_minutes": int(w / time.Minute)})
}
