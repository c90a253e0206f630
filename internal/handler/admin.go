package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/gym-session-reservation/internal/model"
	"github.com/iliyamo/gym-session-reservation/internal/repository"
)

// AdminHandler serves the staff back office: reservation oversight,
// payments, revenue and member benefits.
type AdminHandler struct {
	Reservations *repository.ReservationRepo
	Members      *repository.MemberRepo
	Loc          *time.Location
	Logger       *slog.Logger
}

func NewAdminHandler(r *repository.ReservationRepo, m *repository.MemberRepo, loc *time.Location, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{Reservations: r, Members: m, Loc: loc, Logger: logger.With("handler", "admin")}
}

// ListReservations returns a page of all reservations.
// Query: status, session_id, user_id, date, is_paid, page, limit.
func (h *AdminHandler) ListReservations(c echo.Context) error {
	var f repository.ReservationFilter
	var ok bool
	f.Status = model.ReservationStatus(c.QueryParam("status"))
	if f.Status != "" && !f.Status.Valid() {
		return invalid(c, "invalid status")
	}
	if f.SessionID, ok = uintQuery(c, "session_id"); !ok {
		return invalid(c, "invalid session_id")
	}
	if f.UserID, ok = uintQuery(c, "user_id"); !ok {
		return invalid(c, "invalid user_id")
	}
	if f.Date = c.QueryParam("date"); !validDate(f.Date) {
		return invalid(c, "date must be YYYY-MM-DD")
	}
	if f.IsPaid, ok = boolQuery(c, "is_paid"); !ok {
		return invalid(c, "is_paid must be true or false")
	}
	page := pageFrom(c)

	ctx, cancel := requestContext(c)
	defer cancel()
	list, total, err := h.Reservations.List(ctx, f, page, h.Loc)
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"reservations": list,
		"pagination":   repository.NewPagination(page, total),
	})
}

// ReservationStats returns booking, attendance and payment aggregates.
func (h *AdminHandler) ReservationStats(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	st, err := h.Reservations.Stats(ctx)
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"stats": st})
}

// Revenue sums paid reservations.  Query: from, to (YYYY-MM-DD, optional).
func (h *AdminHandler) Revenue(c echo.Context) error {
	from, to := c.QueryParam("from"), c.QueryParam("to")
	if !validDate(from) || !validDate(to) {
		return invalid(c, "from/to must be YYYY-MM-DD")
	}
	if from != "" && to != "" && from > to {
		return invalid(c, "from must not be after to")
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	rev, err := h.Reservations.Revenue(ctx, from, to)
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"revenue": rev, "from": from, "to": to})
}

type paymentReq struct {
	IsPaid             *bool   `json:"is_paid"`
	PaymentAmountCents *uint32 `json:"payment_amount_cents"`
}

// UpdatePayment records a front-desk payment on reservation :id.
func (h *AdminHandler) UpdatePayment(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return invalid(c, "invalid reservation id")
	}
	var req paymentReq
	if err := c.Bind(&req); err != nil {
		return invalid(c, "invalid body")
	}
	if req.IsPaid == nil {
		return invalid(c, "is_paid is required")
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	res, err := h.Reservations.UpdatePayment(ctx, id, *req.IsPaid, req.PaymentAmountCents)
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	h.Logger.Info("payment updated", "reservation_id", id, "is_paid", res.IsPaid, "amount_cents", res.PaymentAmountCents)
	return c.JSON(http.StatusOK, echo.Map{"message": "Payment updated", "reservation": res})
}

// ListMembers returns a page of accounts.  Query: role, membership_type, page, limit.
func (h *AdminHandler) ListMembers(c echo.Context) error {
	f := repository.MemberFilter{
		Role: model.Role(c.QueryParam("role")),
		Tier: model.Tier(c.QueryParam("membership_type")),
	}
	if f.Role != "" && !f.Role.Valid() {
		return invalid(c, "invalid role")
	}
	if f.Tier != "" && !f.Tier.Valid() {
		return invalid(c, "invalid membership_type")
	}
	page := pageFrom(c)
	ctx, cancel := requestContext(c)
	defer cancel()
	list, total, err := h.Members.List(ctx, f, page)
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"members":    list,
		"pagination": repository.NewPagination(page, total),
	})
}

// ResetMemberBenefits restores member :id's tier allowance outside the
// scheduled replenishment.
func (h *AdminHandler) ResetMemberBenefits(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return invalid(c, "invalid member id")
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	m, err := h.Members.ResetBenefits(ctx, id)
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	h.Logger.Info("benefits reset", "user_id", id, "remaining", m.PersonalTrainingSessionsRemaining)
	return c.JSON(http.StatusOK, echo.Map{"user": m})
}
