package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/gym-session-reservation/internal/model"
	"github.com/iliyamo/gym-session-reservation/internal/repository"
)

// Purger drops cached listings after a write.  *middleware.CachePurger
// satisfies it; nil disables purging.
type Purger interface {
	Purge(ctx context.Context) error
}

// SessionHandler serves the public schedule and the admin session
// management endpoints.
type SessionHandler struct {
	Sessions     *repository.SessionRepo
	Members      *repository.MemberRepo
	Reservations *repository.ReservationRepo
	Loc          *time.Location
	Cache        Purger
	Logger       *slog.Logger
	Now          func() time.Time
}

func NewSessionHandler(s *repository.SessionRepo, m *repository.MemberRepo, r *repository.ReservationRepo,
	loc *time.Location, cache Purger, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		Sessions: s, Members: m, Reservations: r, Loc: loc, Cache: cache,
		Logger: logger.With("handler", "sessions"), Now: time.Now,
	}
}

func (h *SessionHandler) purge(ctx context.Context) {
	if h.Cache == nil {
		return
	}
	if err := h.Cache.Purge(ctx); err != nil {
		h.Logger.Warn("purge session cache failed", "error", err)
	}
}

func (h *SessionHandler) views(list []model.Session) []model.SessionView {
	out := make([]model.SessionView, len(list))
	for i, s := range list {
		out[i] = s.View(h.Loc)
	}
	return out
}

// List returns a page of sessions.  Filters: type, date, difficulty,
// trainer_id and active (default true; "all" lists both).
func (h *SessionHandler) List(c echo.Context) error {
	f := repository.SessionFilter{
		Type:       model.SessionType(c.QueryParam("type")),
		Difficulty: model.Difficulty(c.QueryParam("difficulty")),
		Date:       c.QueryParam("date"),
	}
	if f.Type != "" && !f.Type.Valid() {
		return invalid(c, "invalid session type")
	}
	if f.Difficulty != "" && !f.Difficulty.Valid() {
		return invalid(c, "invalid difficulty level")
	}
	if !validDate(f.Date) {
		return invalid(c, "date must be YYYY-MM-DD")
	}
	var ok bool
	if f.TrainerID, ok = uintQuery(c, "trainer_id"); !ok {
		return invalid(c, "invalid trainer_id")
	}
	if v := c.QueryParam("active"); v != "all" {
		active := true
		if v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return invalid(c, "active must be true, false or all")
			}
			active = b
		}
		f.Active = &active
	}

	page := pageFrom(c)
	ctx, cancel := requestContext(c)
	defer cancel()
	list, total, err := h.Sessions.List(ctx, f, page)
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"sessions":   h.views(list),
		"pagination": repository.NewPagination(page, total),
	})
}

// Upcoming lists active sessions from today on, soonest first.
func (h *SessionHandler) Upcoming(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit < 1 || limit > 50 {
		limit = 10
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	list, err := h.Sessions.Upcoming(ctx, h.Now().In(h.Loc), limit)
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"sessions": h.views(list)})
}

// Get returns one session with its derived fields.
func (h *SessionHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return invalid(c, "invalid session id")
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	s, err := h.Sessions.GetByID(ctx, id)
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"session": s.View(h.Loc)})
}

// Attendees lists members with a confirmed reservation (admin, trainer).
func (h *SessionHandler) Attendees(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return invalid(c, "invalid session id")
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	s, err := h.Sessions.GetByID(ctx, id)
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	list, err := h.Reservations.ListAttendees(ctx, id)
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"session": s.View(h.Loc), "attendees": list})
}

// sessionReq is the create body and, with every field optional, the
// update body.  Counters are not accepted.
type sessionReq struct {
	Name            *string            `json:"name"`
	Type            *model.SessionType `json:"type"`
	Date            *string            `json:"date"`
	Time            *string            `json:"time"`
	DurationMinutes *int               `json:"duration_minutes"`
	MaxCapacity     *int               `json:"max_capacity"`
	TrainerID       *uint64            `json:"trainer_id"`
	PriceCents      *int64             `json:"price_cents"`
	Description     *string            `json:"description"`
	Location        *string            `json:"location"`
	Difficulty      *model.Difficulty  `json:"difficulty"`
	IsActive        *bool              `json:"is_active"`
}

// apply copies the fields present in req onto s and validates the
// result.  It returns a user-facing message on the first violation.
func (req sessionReq) apply(s *model.Session) string {
	if req.Name != nil {
		s.Name = strings.TrimSpace(*req.Name)
	}
	if n := utf8.RuneCountInString(s.Name); n < 3 || n > 100 {
		return "Session name must be between 3 and 100 characters"
	}
	if req.Type != nil {
		s.Type = *req.Type
	}
	if !s.Type.Valid() {
		return "Invalid session type"
	}
	if req.Date != nil {
		d, err := time.Parse(model.DateLayout, *req.Date)
		if err != nil {
			return "Invalid date format (YYYY-MM-DD)"
		}
		s.Date = d
	}
	if s.Date.IsZero() {
		return "date is required"
	}
	if req.Time != nil {
		t, err := model.ParseTimeOfDay(*req.Time)
		if err != nil {
			return `Invalid time format (e.g., "10:00 AM")`
		}
		s.Time = t
	}
	if req.DurationMinutes != nil {
		s.DurationMinutes = *req.DurationMinutes
	}
	if s.DurationMinutes < 15 || s.DurationMinutes > 180 {
		return "Duration must be between 15 and 180 minutes"
	}
	if req.MaxCapacity != nil {
		if *req.MaxCapacity < 1 || *req.MaxCapacity > 100 {
			return "Max capacity must be between 1 and 100"
		}
		s.MaxCapacity = uint32(*req.MaxCapacity)
	}
	if s.MaxCapacity < 1 {
		return "max_capacity is required"
	}
	if req.TrainerID != nil {
		if *req.TrainerID == 0 {
			s.TrainerID = nil
		} else {
			id := *req.TrainerID
			s.TrainerID = &id
		}
	}
	if s.Type.IsPrivate() && s.TrainerID == nil {
		return "Private sessions require a trainer"
	}
	if req.PriceCents != nil {
		if *req.PriceCents < 0 || *req.PriceCents > 1_000_000 {
			return "Price must be a positive number"
		}
		s.PriceCents = uint32(*req.PriceCents)
	}
	if req.Description != nil {
		s.Description = strings.TrimSpace(*req.Description)
	}
	if utf8.RuneCountInString(s.Description) > 500 {
		return "Description cannot exceed 500 characters"
	}
	if req.Location != nil {
		s.Location = strings.TrimSpace(*req.Location)
	}
	if s.Location == "" {
		s.Location = "Main Gym Area"
	}
	if req.Difficulty != nil {
		s.Difficulty = *req.Difficulty
	}
	if s.Difficulty == "" {
		s.Difficulty = model.DifficultyBeginner
	}
	if !s.Difficulty.Valid() {
		return "Invalid difficulty level"
	}
	if req.IsActive != nil {
		s.IsActive = *req.IsActive
	}
	return ""
}

// checkTrainer verifies that a referenced trainer exists and is a trainer.
func (h *SessionHandler) checkTrainer(ctx context.Context, s model.Session) (string, error) {
	if s.TrainerID == nil {
		return "", nil
	}
	m, err := h.Members.GetByID(ctx, *s.TrainerID)
	if errors.Is(err, repository.ErrMemberNotFound) {
		return "trainer_id does not reference a member", nil
	}
	if err != nil {
		return "", err
	}
	if m.Role != model.RoleTrainer {
		return "trainer_id must reference a trainer", nil
	}
	return "", nil
}

// Create adds a session (admin).
func (h *SessionHandler) Create(c echo.Context) error {
	var req sessionReq
	if err := c.Bind(&req); err != nil {
		return invalid(c, "invalid body")
	}
	if req.Time == nil {
		return invalid(c, "time is required")
	}
	s := model.Session{DurationMinutes: 60, IsActive: true}
	if msg := req.apply(&s); msg != "" {
		return invalid(c, msg)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	if msg, err := h.checkTrainer(ctx, s); err != nil {
		return respondError(c, h.Logger, err)
	} else if msg != "" {
		return invalid(c, msg)
	}
	if err := h.Sessions.Create(ctx, &s); err != nil {
		return respondError(c, h.Logger, err)
	}
	h.purge(ctx)
	h.Logger.Info("session created", "session_id", s.ID, "type", s.Type, "date", s.Date.Format(model.DateLayout))
	return c.JSON(http.StatusCreated, echo.Map{"session": s.View(h.Loc)})
}

// Update applies a partial update (admin).  Shrinking max_capacity below
// the seats already booked is a conflict.
func (h *SessionHandler) Update(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return invalid(c, "invalid session id")
	}
	var req sessionReq
	if err := c.Bind(&req); err != nil {
		return invalid(c, "invalid body")
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	s, err := h.Sessions.GetByID(ctx, id)
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	if msg := req.apply(&s); msg != "" {
		return invalid(c, msg)
	}
	if msg, err := h.checkTrainer(ctx, s); err != nil {
		return respondError(c, h.Logger, err)
	} else if msg != "" {
		return invalid(c, msg)
	}
	if err := h.Sessions.Update(ctx, &s); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "capacity_below_bookings",
				"message": "max_capacity cannot be lower than current bookings"})
		}
		return respondError(c, h.Logger, err)
	}
	updated, err := h.Sessions.GetByID(ctx, id)
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	h.purge(ctx)
	h.Logger.Info("session updated", "session_id", id)
	return c.JSON(http.StatusOK, echo.Map{"session": updated.View(h.Loc)})
}

// Delete removes a session (admin).  Sessions with reservation history
// are deactivated instead; sessions with open reservations are kept.
func (h *SessionHandler) Delete(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return invalid(c, "invalid session id")
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	soft, err := h.Sessions.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "session_has_reservations",
				"message": "Cannot delete session with open reservations"})
		}
		return respondError(c, h.Logger, err)
	}
	h.purge(ctx)
	h.Logger.Info("session deleted", "session_id", id, "soft", soft)
	msg := "Session deleted"
	if soft {
		msg = "Session deactivated"
	}
	return c.JSON(http.StatusOK, echo.Map{"message": msg, "deactivated": soft})
}

// Stats returns the per-type breakdown of active sessions (admin).
func (h *SessionHandler) Stats(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	st, err := h.Sessions.Stats(ctx, h.Now().In(h.Loc))
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, st)
}
