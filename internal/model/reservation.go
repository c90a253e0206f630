package model

import "time"

// ReservationStatus is the stored lifecycle status of a reservation.
type ReservationStatus string

const (
	ReservationConfirmed ReservationStatus = "confirmed"
	ReservationPending   ReservationStatus = "pending"
	ReservationCancelled ReservationStatus = "cancelled"
	ReservationCompleted ReservationStatus = "completed"
)

// Valid reports whether s is a known status.
func (s ReservationStatus) Valid() bool {
	switch s {
	case ReservationConfirmed, ReservationPending, ReservationCancelled, ReservationCompleted:
		return true
	}
	return false
}

// Attendance is the outcome recorded for a confirmed reservation.
type Attendance string

const (
	AttendanceAttended  Attendance = "attended"
	AttendanceNoShow    Attendance = "no-show"
	AttendanceCancelled Attendance = "cancelled"
)

// Reservation records a member's booking of one session.  At most one
// row exists per (UserID, SessionID); the database enforces it.
//
// Fields:
//
//	ID                  – reservations.id
//	UserID              – member who booked.
//	SessionID           – booked session.
//	BookingDate         – when the booking was made.
//	IsPaid              – true when nothing is owed.
//	PaymentAmountCents  – amount owed or recorded, in cents.
//	TrainingSessionUsed – a personal-training benefit was consumed.
//	Status              – confirmed, pending, cancelled, completed.
//	Attendance          – set once a confirmed reservation is settled.
type Reservation struct {
	ID                  uint64            `json:"id"`
	UserID              uint64            `json:"user_id"`
	SessionID           uint64            `json:"session_id"`
	BookingDate         time.Time         `json:"booking_date"`
	IsPaid              bool              `json:"is_paid"`
	PaymentAmountCents  uint32            `json:"payment_amount_cents"`
	TrainingSessionUsed bool              `json:"training_session_used"`
	Status              ReservationStatus `json:"status"`
	Attendance          *Attendance       `json:"attendance,omitempty"`
	Notes               string            `json:"notes,omitempty"`
	CancellationReason  *string           `json:"cancellation_reason,omitempty"`
	CancelledAt         *time.Time        `json:"cancelled_at,omitempty"`
	CancelledBy         *uint64           `json:"cancelled_by,omitempty"`
	CheckInTime         *time.Time        `json:"check_in_time,omitempty"`
	CheckOutTime        *time.Time        `json:"check_out_time,omitempty"`
	CreatedAt           time.Time         `json:"created_at"`
	UpdatedAt           time.Time         `json:"updated_at"`
}

// IsOpen reports whether the reservation can still move along the state
// machine: confirmed and not yet settled by attendance.
func (r Reservation) IsOpen() bool {
	return r.Status == ReservationConfirmed && r.Attendance == nil
}

// State collapses status and attendance into the single state used by the
// reservation state machine: confirmed, cancelled, attended, no-show,
// pending or completed.
func (r Reservation) State() string {
	if r.Status == ReservationConfirmed && r.Attendance != nil {
		return string(*r.Attendance)
	}
	return string(r.Status)
}

// ReservationDetail is a reservation joined with the session it books,
// used for listings.
type ReservationDetail struct {
	Reservation
	State   string       `json:"state"`
	Session *SessionView `json:"session,omitempty"`
	Member  *MemberBrief `json:"member,omitempty"`
}

// MemberBrief is the subset of a member shown next to reservations.
type MemberBrief struct {
	ID    uint64 `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}
