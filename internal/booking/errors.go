package booking

import (
	"errors"
	"fmt"
)

// Kind classifies an engine rejection.  Handlers map kinds to HTTP status
// codes; nothing else should inspect them.
type Kind int

const (
	KindNotFound Kind = iota + 1
	KindConflict
	KindInvalidState
	KindForbidden
	KindPolicyViolation
	KindMalformedInput
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindInvalidState:
		return "invalid_state"
	case KindForbidden:
		return "forbidden"
	case KindPolicyViolation:
		return "policy_violation"
	case KindMalformedInput:
		return "malformed_input"
	}
	return "unknown"
}

// Error is a rejection with a stable machine-readable Code and a human
// Message.  Two Errors match under errors.Is when their codes are equal,
// so the package-level values below can be used as sentinels even after
// they are wrapped with a cause.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// With returns a copy of e carrying cause.
func (e *Error) With(cause error) *Error {
	c := *e
	c.Err = cause
	return &c
}

var (
	ErrSessionNotFound     = &Error{Kind: KindNotFound, Code: "session_not_found", Message: "Session not found"}
	ErrMemberNotFound      = &Error{Kind: KindNotFound, Code: "member_not_found", Message: "Member not found"}
	ErrReservationNotFound = &Error{Kind: KindNotFound, Code: "reservation_not_found", Message: "Reservation not found"}

	ErrSessionFull          = &Error{Kind: KindConflict, Code: "session_full", Message: "Session is at full capacity"}
	ErrDuplicateReservation = &Error{Kind: KindConflict, Code: "duplicate_reservation", Message: "You already have a reservation for this session"}
	ErrContended            = &Error{Kind: KindConflict, Code: "contended", Message: "Another booking changed this session at the same time, please retry"}

	ErrSessionInactive = &Error{Kind: KindInvalidState, Code: "session_inactive", Message: "Session is not available for booking"}
	ErrNotCancellable  = &Error{Kind: KindInvalidState, Code: "not_cancellable", Message: "Only confirmed reservations can be cancelled"}
	ErrNotMarkable     = &Error{Kind: KindInvalidState, Code: "not_confirmed", Message: "Only confirmed reservations can be marked"}
	ErrNotCheckedIn    = &Error{Kind: KindInvalidState, Code: "not_checked_in", Message: "Only attended reservations that are not checked out can be checked out"}

	ErrForbidden = &Error{Kind: KindForbidden, Code: "forbidden", Message: "Not authorized to modify this reservation"}

	ErrInsideCancelWindow = &Error{Kind: KindPolicyViolation, Code: "cancellation_window", Message: "Cannot cancel reservation less than 2 hours before session"}

	ErrMalformedSessionTime = &Error{Kind: KindMalformedInput, Code: "configuration_error", Message: "Session time is misconfigured"}
)

// KindOf returns the kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
