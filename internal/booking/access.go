package booking

import "github.com/iliyamo/gym-session-reservation/internal/model"

// Actor is the authenticated identity performing an operation.
type Actor struct {
	ID   uint64
	Role model.Role
}

func (a Actor) IsAdmin() bool { return a.Role == model.RoleAdmin }

// CanCancel reports whether a may cancel r: the owning member or an admin.
func CanCancel(a Actor, r model.Reservation) bool {
	return a.IsAdmin() || (a.ID != 0 && a.ID == r.UserID)
}

// CanView reports whether a may read r.
func CanView(a Actor, r model.Reservation) bool {
	return CanCancel(a, r) || a.Role == model.RoleTrainer
}

// CanMarkAttendance reports whether a may record attendance outcomes.
func CanMarkAttendance(a Actor) bool {
	return a.Role == model.RoleAdmin || a.Role == model.RoleTrainer
}
