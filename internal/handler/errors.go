package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/gym-session-reservation/internal/booking"
	"github.com/iliyamo/gym-session-reservation/internal/model"
	"github.com/iliyamo/gym-session-reservation/internal/repository"
)

// statusFor maps an engine rejection kind onto an HTTP status.
func statusFor(k booking.Kind) int {
	switch k {
	case booking.KindNotFound:
		return http.StatusNotFound
	case booking.KindConflict:
		return http.StatusConflict
	case booking.KindInvalidState, booking.KindPolicyViolation:
		return http.StatusBadRequest
	case booking.KindForbidden:
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

// respondError writes err as {"error": code, "message": text}.  Engine
// errors keep their code; repository sentinels that reach a handler
// directly are mapped here; everything else is a logged 500.
func respondError(c echo.Context, logger *slog.Logger, err error) error {
	if errors.Is(err, model.ErrMalformedTime) && booking.KindOf(err) == 0 {
		err = booking.ErrMalformedSessionTime.With(err)
	}
	var be *booking.Error
	if errors.As(err, &be) {
		status := statusFor(be.Kind)
		if status >= 500 {
			logger.Error("request failed", "path", c.Path(), "code", be.Code, "error", err)
		}
		return c.JSON(status, echo.Map{"error": be.Code, "message": be.Message})
	}
	switch {
	case errors.Is(err, repository.ErrSessionNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "session_not_found", "message": "Session not found"})
	case errors.Is(err, repository.ErrMemberNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "member_not_found", "message": "Member not found"})
	case errors.Is(err, repository.ErrReservationNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation_not_found", "message": "Reservation not found"})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "conflict", "message": "Conflicts with existing reservations"})
	case errors.Is(err, repository.ErrEmailExists):
		return c.JSON(http.StatusConflict, echo.Map{"error": "email_exists", "message": "Email already registered"})
	}
	logger.Error("request failed", "path", c.Path(), "error", err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal_error", "message": "Internal server error"})
}
