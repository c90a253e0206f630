package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/gym-session-reservation/internal/model"
	"github.com/iliyamo/gym-session-reservation/internal/queue"
	"github.com/iliyamo/gym-session-reservation/internal/repository"
)

// MaxReasonLength bounds the stored cancellation reason, in characters.
const MaxReasonLength = 200

// Cancel cancels reservation id on behalf of actor.
//
// Rejections, in order: not found, actor is neither owner nor admin,
// reservation not open, session starts in less than the cancel window
// (a session exactly at the window boundary can still be cancelled).
// The commit releases the seat with a floor-at-zero decrement, gives back
// a consumed training session and marks the reservation cancelled.
func (e *Engine) Cancel(ctx context.Context, id uint64, actor Actor, reason string) (model.Reservation, error) {
	reason = strings.TrimSpace(reason)
	if r := []rune(reason); len(r) > MaxReasonLength {
		reason = string(r[:MaxReasonLength])
	}

	bt, err := Begin(ctx, e.db)
	if err != nil {
		return model.Reservation{}, fmt.Errorf("begin cancel: %w", err)
	}
	defer bt.Rollback()
	tx := bt.Tx()

	res, err := e.reservations.GetByIDTx(ctx, tx, id)
	if err != nil {
		return model.Reservation{}, translate(err)
	}
	if !CanCancel(actor, res) {
		return model.Reservation{}, ErrForbidden
	}
	if !res.IsOpen() {
		return model.Reservation{}, ErrNotCancellable
	}
	session, err := e.sessions.GetByIDTx(ctx, tx, res.SessionID)
	if err != nil {
		return model.Reservation{}, translate(err)
	}
	now := e.now()
	if lead := session.StartsAt(e.loc).Sub(now); lead < e.cancelWindow {
		v := *ErrInsideCancelWindow
		v.Message = fmt.Sprintf("Cannot cancel reservation less than %s before session", humanDuration(e.cancelWindow))
		return model.Reservation{}, &v
	}

	var reasonPtr *string
	if reason != "" {
		reasonPtr = &reason
	}
	// Lock order matches Reserve: session, member, reservation.
	if err := e.sessions.DecrementBookingsTx(ctx, tx, res.SessionID); err != nil {
		return model.Reservation{}, translate(err)
	}
	if res.TrainingSessionUsed {
		if err := e.members.RefundTrainingSessionTx(ctx, tx, res.UserID); err != nil {
			return model.Reservation{}, translate(err)
		}
	}
	if err := e.reservations.CancelTx(ctx, tx, id, actor.ID, reasonPtr, now); err != nil {
		if errors.Is(err, repository.ErrNotOpen) {
			return model.Reservation{}, ErrNotCancellable
		}
		return model.Reservation{}, translate(err)
	}
	updated, err := e.reservations.GetByIDTx(ctx, tx, id)
	if err != nil {
		return model.Reservation{}, translate(err)
	}

	ev := newEvent(queue.EventCancelled, updated, session, e.loc, now)
	ev.ActorID = actor.ID
	ev.Reason = reason
	e.publishAfterCommit(bt, ev)
	if err := bt.Commit(); err != nil {
		return model.Reservation{}, fmt.Errorf("commit cancel: %w", translate(err))
	}
	e.logger.Info("reservation cancelled",
		"reservation_id", id, "user_id", res.UserID, "session_id", res.SessionID,
		"actor_id", actor.ID, "refunded_training_session", res.TrainingSessionUsed)
	return updated, nil
}

// humanDuration renders whole hours as "2 hours" and anything else in
// time.Duration notation.
func humanDuration(d time.Duration) string {
	if d%time.Hour == 0 {
		h := int(d / time.Hour)
		if h == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", h)
	}
	return d.String()
}
