// Package booking is the reservation core: it books members into sessions,
// cancels and settles reservations, and is the only code path that moves
// a session's booking counter or a member's benefit counters.  Each
// operation runs inside one BookingTransaction; the conditional updates
// in the repositories and the (user_id, session_id) unique key close the
// races between concurrent requests.
package booking

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/iliyamo/gym-session-reservation/internal/model"
	"github.com/iliyamo/gym-session-reservation/internal/queue"
)

// DefaultCancelWindow is the minimum lead time before a session start at
// which a reservation may still be cancelled.
const DefaultCancelWindow = 2 * time.Hour

// SessionStore is the part of the session repository the engine uses.
type SessionStore interface {
	GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Session, error)
	IncrementBookingsTx(ctx context.Context, tx *sql.Tx, id uint64) error
	DecrementBookingsTx(ctx context.Context, tx *sql.Tx, id uint64) error
}

// MemberStore is the part of the member repository the engine uses.
type MemberStore interface {
	GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Member, error)
	ConsumeTrainingSessionTx(ctx context.Context, tx *sql.Tx, id uint64) error
	RefundTrainingSessionTx(ctx context.Context, tx *sql.Tx, id uint64) error
}

// ReservationStore is the part of the reservation repository the engine uses.
type ReservationStore interface {
	GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Reservation, error)
	ExistsTx(ctx context.Context, tx *sql.Tx, userID, sessionID uint64) (bool, error)
	CreateTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) error
	CancelTx(ctx context.Context, tx *sql.Tx, id, by uint64, reason *string, at time.Time) error
	SetAttendanceTx(ctx context.Context, tx *sql.Tx, id uint64, a model.Attendance, checkIn *time.Time) error
	CheckOutTx(ctx context.Context, tx *sql.Tx, id uint64, at time.Time) error
}

// EventPublisher receives an event after each committed transition.
type EventPublisher interface {
	PublishReservationEvent(ctx context.Context, ev queue.ReservationEvent) error
}

// Engine runs reservation operations.  It is safe for concurrent use.
type Engine struct {
	db           TxBeginner
	sessions     SessionStore
	members      MemberStore
	reservations ReservationStore

	events       EventPublisher
	cancelWindow time.Duration
	loc          *time.Location
	now          func() time.Time
	logger       *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithPublisher sets where committed transitions are announced.
func WithPublisher(p EventPublisher) Option { return func(e *Engine) { e.events = p } }

// WithCancelWindow overrides DefaultCancelWindow.
func WithCancelWindow(d time.Duration) Option { return func(e *Engine) { e.cancelWindow = d } }

// WithLocation sets the time zone session dates and times are given in.
func WithLocation(loc *time.Location) Option { return func(e *Engine) { e.loc = loc } }

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option { return func(e *Engine) { e.logger = l } }

// NewEngine wires an engine over the given stores.
func NewEngine(db TxBeginner, sessions SessionStore, members MemberStore, reservations ReservationStore, opts ...Option) *Engine {
	e := &Engine{
		db:           db,
		sessions:     sessions,
		members:      members,
		reservations: reservations,
		cancelWindow: DefaultCancelWindow,
		loc:          time.UTC,
		now:          time.Now,
		logger:       slog.Default(),
	}
	for _, o := range opts {
		o(e)
	}
	e.logger = e.logger.With("module", "booking")
	return e
}

// Location is the zone session start times are interpreted in.
func (e *Engine) Location() *time.Location { return e.loc }

// CancelWindow is the configured minimum cancellation lead time.
func (e *Engine) CancelWindow() time.Duration { return e.cancelWindow }

// publishAfterCommit announces ev once bt commits.  Publishing is best
// effort and detached from the request context so a client disconnect
// cannot drop an event for a committed change.
func (e *Engine) publishAfterCommit(bt *BookingTransaction, ev queue.ReservationEvent) {
	if e.events == nil {
		return
	}
	bt.AfterCommit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := e.events.PublishReservationEvent(ctx, ev); err != nil {
			e.logger.Warn("publish reservation event failed",
				"event", ev.Type, "reservation_id", ev.ReservationID, "error", err)
		}
	})
}

func newEvent(t queue.EventType, r model.Reservation, s model.Session, loc *time.Location, at time.Time) queue.ReservationEvent {
	return queue.ReservationEvent{
		Type:                t,
		ReservationID:       r.ID,
		UserID:              r.UserID,
		SessionID:           s.ID,
		SessionName:         s.Name,
		SessionType:         string(s.Type),
		StartsAt:            s.StartsAt(loc),
		IsPaid:              r.IsPaid,
		PaymentAmountCents:  r.PaymentAmountCents,
		TrainingSessionUsed: r.TrainingSessionUsed,
		OccurredAt:          at.UTC(),
	}
}
