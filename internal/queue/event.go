// Package queue defines message payloads exchanged over the message broker.
package queue

import "time"

// ReservationQueue is the durable queue every reservation event is routed
// to.  Consumers switch on ReservationEvent.Type.
const ReservationQueue = "reservation.events"

// EventType names a reservation lifecycle transition.
type EventType string

const (
	EventConfirmed  EventType = "reservation.confirmed"
	EventCancelled  EventType = "reservation.cancelled"
	EventAttended   EventType = "reservation.attended"
	EventNoShow     EventType = "reservation.no_show"
	EventCheckedOut EventType = "reservation.checked_out"
)

// ReservationEvent is published after a reservation transition commits.
// It contains enough information for downstream consumers to log, notify,
// or trigger analytics without querying the primary database.
type ReservationEvent struct {
	Type                EventType `json:"type"`
	ReservationID       uint64    `json:"reservation_id"`
	UserID              uint64    `json:"user_id"`
	SessionID           uint64    `json:"session_id"`
	SessionName         string    `json:"session_name"`
	SessionType         string    `json:"session_type"`
	StartsAt            time.Time `json:"starts_at"`
	IsPaid              bool      `json:"is_paid"`
	PaymentAmountCents  uint32    `json:"payment_amount_cents"`
	TrainingSessionUsed bool      `json:"training_session_used"`
	ActorID             uint64    `json:"actor_id,omitempty"`
	Reason              string    `json:"reason,omitempty"`
	OccurredAt          time.Time `json:"occurred_at"`
}
