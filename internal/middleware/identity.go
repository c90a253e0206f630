package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/gym-session-reservation/internal/model"
)

// Context keys written by JWTAuth.
const (
	ctxUserID = "user_id"
	ctxRole   = "role"
)

// Identity returns the authenticated member id and role stored by JWTAuth.
// ok is false on routes that were not authenticated.
func Identity(c echo.Context) (id uint64, role model.Role, ok bool) {
	switch v := c.Get(ctxUserID).(type) {
	case uint64:
		id = v
	case string:
		id, _ = strconv.ParseUint(v, 10, 64)
	}
	role, _ = c.Get(ctxRole).(model.Role)
	return id, role, id != 0 && role.Valid()
}

// SetIdentity stores an identity the way JWTAuth does.  Tests use it to
// call handlers without a token.
func SetIdentity(c echo.Context, id uint64, role model.Role) {
	c.Set(ctxUserID, id)
	c.Set(ctxRole, role)
}

// userKey is the identity component of rate limit keys.
func userKey(c echo.Context) string {
	if id, _, ok := Identity(c); ok {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}
