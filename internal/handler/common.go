// Package handler contains the Echo HTTP handlers.  Handlers parse and
// validate input, call the booking engine or a repository under a bounded
// context, and translate results into JSON.  Business rules live in
// internal/booking, not here.
package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/gym-session-reservation/internal/booking"
	"github.com/iliyamo/gym-session-reservation/internal/middleware"
	"github.com/iliyamo/gym-session-reservation/internal/repository"
)

// requestTimeout bounds the database work of a single request.
const requestTimeout = 5 * time.Second

func requestContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// actor returns the authenticated caller.  Routes using it sit behind
// JWTAuth, so ok is false only when the router is miswired.
func actor(c echo.Context) (booking.Actor, bool) {
	id, role, ok := middleware.Identity(c)
	return booking.Actor{ID: id, Role: role}, ok
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "message": "authentication required"})
}

// pathID parses the positive integer path parameter name.
func pathID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

func invalid(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation_failed", "message": msg})
}

// pageFrom reads ?page= and ?limit=.  Bad values fall back to defaults.
func pageFrom(c echo.Context) repository.Page {
	p := repository.Page{}
	p.Number, _ = strconv.Atoi(c.QueryParam("page"))
	p.Size, _ = strconv.Atoi(c.QueryParam("limit"))
	return p.Normalize()
}

// boolQuery parses an optional boolean query parameter.
func boolQuery(c echo.Context, name string) (*bool, bool) {
	v := c.QueryParam(name)
	if v == "" {
		return nil, true
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, false
	}
	return &b, true
}

// uintQuery parses an optional positive integer query parameter; 0 means
// absent.
func uintQuery(c echo.Context, name string) (uint64, bool) {
	v := c.QueryParam(name)
	if v == "" {
		return 0, true
	}
	n, err := strconv.ParseUint(v, 10, 64)
	return n, err == nil && n > 0
}

// validDate reports whether s is empty or a YYYY-MM-DD day.
func validDate(s string) bool {
	if s == "" {
		return true
	}
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}
