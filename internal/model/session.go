package model

import "time"

// SessionType classifies a class or training slot.
type SessionType string

const (
	SessionGroup          SessionType = "group"
	SessionPrivateCoach   SessionType = "private-coach"
	SessionPrivateSession SessionType = "private-session"
)

// Valid reports whether t is a known session type.
func (t SessionType) Valid() bool {
	switch t {
	case SessionGroup, SessionPrivateCoach, SessionPrivateSession:
		return true
	}
	return false
}

// IsPrivate reports whether the session is one-to-one with a coach.
func (t SessionType) IsPrivate() bool {
	return t == SessionPrivateCoach || t == SessionPrivateSession
}

// Difficulty is the advertised level of a session.
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

// Valid reports whether d is a known difficulty.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced:
		return true
	}
	return false
}

// DateLayout is the wire and storage layout of Session.Date.
const DateLayout = "2006-01-02"

// Session represents a schedulable class or training slot stored in the
// `sessions` table.  CurrentBookings is owned by the booking engine and
// is only changed through conditional updates that keep it within
// [0, MaxCapacity].
//
// Fields:
//
//	ID              – sessions.id
//	Name            – display name.
//	Type            – group, private-coach or private-session.
//	Date            – calendar day of the session (time part ignored).
//	Time            – start time of day.
//	DurationMinutes – 15..180.
//	MaxCapacity     – at least 1.
//	CurrentBookings – confirmed seats taken.
//	TrainerID       – required for private sessions.
//	PriceCents      – list price in cents.
//	IsActive        – false once soft deleted.
type Session struct {
	ID              uint64      `json:"id"`
	Name            string      `json:"name"`
	Type            SessionType `json:"type"`
	Date            time.Time   `json:"-"`
	Time            TimeOfDay   `json:"time"`
	DurationMinutes int         `json:"duration_minutes"`
	MaxCapacity     uint32      `json:"max_capacity"`
	CurrentBookings uint32      `json:"current_bookings"`
	TrainerID       *uint64     `json:"trainer_id,omitempty"`
	PriceCents      uint32      `json:"price_cents"`
	Description     string      `json:"description,omitempty"`
	Location        string      `json:"location"`
	Difficulty      Difficulty  `json:"difficulty"`
	IsActive        bool        `json:"is_active"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// AvailableSlots is max(0, MaxCapacity − CurrentBookings).
func (s Session) AvailableSlots() uint32 {
	if s.CurrentBookings >= s.MaxCapacity {
		return 0
	}
	return s.MaxCapacity - s.CurrentBookings
}

// IsFull reports whether every seat is taken.
func (s Session) IsFull() bool {
	return s.CurrentBookings >= s.MaxCapacity
}

// CanAcceptBookings reports whether a new reservation may be attempted.
func (s Session) CanAcceptBookings() bool {
	return s.IsActive && !s.IsFull()
}

// StartsAt is the absolute start of the session in loc.
func (s Session) StartsAt(loc *time.Location) time.Time {
	return s.Time.On(s.Date, loc)
}

// SessionView is the JSON shape returned to clients: the stored session
// plus its derived fields.
type SessionView struct {
	Session
	Date           string `json:"date"`
	AvailableSlots uint32 `json:"available_slots"`
	IsFull         bool   `json:"is_full"`
	StartsAt       string `json:"starts_at"`
}

// View builds the client representation of s in loc.
func (s Session) View(loc *time.Location) SessionView {
	return SessionView{
		Session:        s,
		Date:           s.Date.Format(DateLayout),
		AvailableSlots: s.AvailableSlots(),
		IsFull:         s.IsFull(),
		StartsAt:       s.StartsAt(loc).Format(time.RFC3339),
	}
}
