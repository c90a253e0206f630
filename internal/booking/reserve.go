package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/iliyamo/gym-session-reservation/internal/model"
	"github.com/iliyamo/gym-session-reservation/internal/queue"
	"github.com/iliyamo/gym-session-reservation/internal/repository"
)

// ReserveResult is a committed booking and the member's remaining
// personal training sessions after it.
type ReserveResult struct {
	Reservation               model.Reservation
	Outcome                   Outcome
	TrainingSessionsRemaining uint32
}

// translate maps repository sentinels onto engine errors.  Unknown errors
// are returned wrapped so callers still see the cause.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrSessionNotFound):
		return ErrSessionNotFound
	case errors.Is(err, repository.ErrMemberNotFound):
		return ErrMemberNotFound
	case errors.Is(err, repository.ErrReservationNotFound):
		return ErrReservationNotFound
	case errors.Is(err, repository.ErrSessionFull):
		return ErrSessionFull
	case errors.Is(err, repository.ErrDuplicateReservation):
		return ErrDuplicateReservation
	case errors.Is(err, model.ErrMalformedTime):
		return ErrMalformedSessionTime.With(err)
	case repository.IsLockContention(err):
		return ErrContended.With(err)
	}
	return err
}

// Reserve books member memberID into session sessionID.
//
// Rejections, checked in order: session not found, session inactive,
// session full, member not found, duplicate reservation.  The commit
// takes a seat with a capacity-guarded increment, consumes a training
// session when the quote asks for one and inserts the reservation, all in
// one transaction.  Rows are locked session, member, reservation, the
// same order Cancel uses.  A capacity or uniqueness race lost to a
// concurrent request surfaces as ErrSessionFull or ErrDuplicateReservation;
// a lock race surfaces as ErrContended.
func (e *Engine) Reserve(ctx context.Context, memberID, sessionID uint64) (ReserveResult, error) {
	bt, err := Begin(ctx, e.db)
	if err != nil {
		return ReserveResult{}, fmt.Errorf("begin booking: %w", err)
	}
	defer bt.Rollback()
	tx := bt.Tx()

	session, err := e.sessions.GetByIDTx(ctx, tx, sessionID)
	if err != nil {
		return ReserveResult{}, translate(err)
	}
	if !session.IsActive {
		return ReserveResult{}, ErrSessionInactive
	}
	if session.IsFull() {
		return ReserveResult{}, ErrSessionFull
	}
	member, err := e.members.GetByIDTx(ctx, tx, memberID)
	if err != nil {
		return ReserveResult{}, translate(err)
	}
	exists, err := e.reservations.ExistsTx(ctx, tx, memberID, sessionID)
	if err != nil {
		return ReserveResult{}, translate(err)
	}
	if exists {
		return ReserveResult{}, ErrDuplicateReservation
	}

	if err := e.sessions.IncrementBookingsTx(ctx, tx, sessionID); err != nil {
		return ReserveResult{}, translate(err)
	}

	outcome := Quote(member, session)
	remaining := member.PersonalTrainingSessionsRemaining
	if outcome.ConsumeTrainingSession {
		switch err := e.members.ConsumeTrainingSessionTx(ctx, tx, memberID); {
		case errors.Is(err, repository.ErrNoTrainingSessions):
			// Drained by a concurrent booking since the read above.
			member.PersonalTrainingSessionsRemaining = 0
			outcome = Quote(member, session)
			remaining = 0
		case err != nil:
			return ReserveResult{}, translate(err)
		default:
			remaining--
		}
	}

	res := model.Reservation{
		UserID:              memberID,
		SessionID:           sessionID,
		BookingDate:         e.now(),
		IsPaid:              outcome.IsPaid,
		PaymentAmountCents:  outcome.AmountCents,
		TrainingSessionUsed: outcome.ConsumeTrainingSession,
		Status:              model.ReservationConfirmed,
	}
	if err := e.reservations.CreateTx(ctx, tx, &res); err != nil {
		return ReserveResult{}, translate(err)
	}

	e.publishAfterCommit(bt, newEvent(queue.EventConfirmed, res, session, e.loc, e.now()))
	if err := bt.Commit(); err != nil {
		return ReserveResult{}, fmt.Errorf("commit booking: %w", translate(err))
	}
	e.logger.Info("reservation confirmed",
		"reservation_id", res.ID, "user_id", memberID, "session_id", sessionID,
		"is_paid", res.IsPaid, "amount_cents", res.PaymentAmountCents,
		"training_session_used", res.TrainingSessionUsed)
	return ReserveResult{Reservation: res, Outcome: outcome, TrainingSessionsRemaining: remaining}, nil
}
