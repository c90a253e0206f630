package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/gym-session-reservation/internal/model"
	"github.com/iliyamo/gym-session-reservation/internal/queue"
	"github.com/iliyamo/gym-session-reservation/internal/repository"
)

// MarkAttended records that the member showed up and stamps the check-in
// time.  Session counters are untouched: the seat was taken at booking.
func (e *Engine) MarkAttended(ctx context.Context, id uint64, actor Actor) (model.Reservation, error) {
	return e.settle(ctx, id, actor, model.AttendanceAttended)
}

// MarkNoShow records that the member did not show up.
func (e *Engine) MarkNoShow(ctx context.Context, id uint64, actor Actor) (model.Reservation, error) {
	return e.settle(ctx, id, actor, model.AttendanceNoShow)
}

func (e *Engine) settle(ctx context.Context, id uint64, actor Actor, a model.Attendance) (model.Reservation, error) {
	if !CanMarkAttendance(actor) {
		return model.Reservation{}, ErrForbidden
	}
	var (
		checkIn *time.Time
		evType  = queue.EventNoShow
	)
	now := e.now()
	if a == model.AttendanceAttended {
		checkIn = &now
		evType = queue.EventAttended
	}
	return e.transition(ctx, id, actor, evType, ErrNotMarkable, func(bt *BookingTransaction) error {
		return e.reservations.SetAttendanceTx(ctx, bt.Tx(), id, a, checkIn)
	})
}

// CheckOut stamps the check-out time on an attended reservation.
func (e *Engine) CheckOut(ctx context.Context, id uint64, actor Actor) (model.Reservation, error) {
	if !CanMarkAttendance(actor) {
		return model.Reservation{}, ErrForbidden
	}
	now := e.now()
	return e.transition(ctx, id, actor, queue.EventCheckedOut, ErrNotCheckedIn, func(bt *BookingTransaction) error {
		return e.reservations.CheckOutTx(ctx, bt.Tx(), id, now)
	})
}

// transition loads reservation id, applies update and publishes evType.
// A lost guard (repository.ErrNotOpen) is reported as stale.
func (e *Engine) transition(ctx context.Context, id uint64, actor Actor, evType queue.EventType, stale *Error,
	update func(*BookingTransaction) error) (model.Reservation, error) {
	bt, err := Begin(ctx, e.db)
	if err != nil {
		return model.Reservation{}, fmt.Errorf("begin %s: %w", evType, err)
	}
	defer bt.Rollback()

	if _, err := e.reservations.GetByIDTx(ctx, bt.Tx(), id); err != nil {
		return model.Reservation{}, translate(err)
	}
	if err := update(bt); err != nil {
		if errors.Is(err, repository.ErrNotOpen) {
			return model.Reservation{}, stale
		}
		return model.Reservation{}, err
	}
	updated, err := e.reservations.GetByIDTx(ctx, bt.Tx(), id)
	if err != nil {
		return model.Reservation{}, err
	}
	session, err := e.sessions.GetByIDTx(ctx, bt.Tx(), updated.SessionID)
	if err != nil {
		return model.Reservation{}, translate(err)
	}

	ev := newEvent(evType, updated, session, e.loc, e.now())
	ev.ActorID = actor.ID
	e.publishAfterCommit(bt, ev)
	if err := bt.Commit(); err != nil {
		return model.Reservation{}, fmt.Errorf("commit %s: %w", evType, err)
	}
	e.logger.Info("reservation updated", "event", evType, "reservation_id", id, "actor_id", actor.ID)
	return updated, nil
}
