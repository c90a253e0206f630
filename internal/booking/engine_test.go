package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/iliyamo/gym-session-reservation/internal/database"
	"github.com/iliyamo/gym-session-reservation/internal/model"
	"github.com/iliyamo/gym-session-reservation/internal/queue"
	"github.com/iliyamo/gym-session-reservation/internal/repository"
)

// sessionDay is the calendar day every test session is scheduled on.
var sessionDay = time.Date(2030, 1, 15, 0, 0, 0, 0, time.UTC)

type recorder struct {
	mu     sync.Mutex
	events []queue.ReservationEvent
}

func (r *recorder) PublishReservationEvent(_ context.Context, ev queue.ReservationEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) types() []queue.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]queue.EventType, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

type fixture struct {
	db           *sql.DB
	engine       *Engine
	members      *repository.MemberRepo
	sessions     *repository.SessionRepo
	reservations *repository.ReservationRepo
	events       *recorder
	now          time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "booking.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := database.Migrate(context.Background(), db, database.SQLite); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	f := &fixture{
		db:           db,
		members:      repository.NewMemberRepo(db),
		sessions:     repository.NewSessionRepo(db),
		reservations: repository.NewReservationRepo(db),
		events:       &recorder{},
		// 07:00 on the session day: a 9:00 AM session is exactly 2h away.
		now: sessionDay.Add(7 * time.Hour),
	}
	f.engine = NewEngine(db, f.sessions, f.members, f.reservations,
		WithPublisher(f.events),
		WithClock(func() time.Time { return f.now }),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	return f
}

var memberSeq int

func (f *fixture) member(t *testing.T, tier model.Tier) uint64 {
	t.Helper()
	memberSeq++
	id, err := f.members.Create(context.Background(), repository.NewMember{
		Name: "Member", Email: fmt.Sprintf("m%d@gym.test", memberSeq), Password: "secret123", Tier: tier,
	}, 4)
	if err != nil {
		t.Fatalf("create member: %v", err)
	}
	return id
}

func (f *fixture) session(t *testing.T, typ model.SessionType, capacity, price uint32) model.Session {
	t.Helper()
	s := model.Session{
		Name: string(typ), Type: typ, Date: sessionDay, Time: model.MustTimeOfDay("9:00 AM"),
		DurationMinutes: 60, MaxCapacity: capacity, PriceCents: price,
		Location: "Main Gym Area", Difficulty: model.DifficultyBeginner, IsActive: true,
	}
	if err := f.sessions.Create(context.Background(), &s); err != nil {
		t.Fatalf("create session: %v", err)
	}
	return s
}

func (f *fixture) bookings(t *testing.T, id uint64) uint32 {
	t.Helper()
	s, err := f.sessions.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	return s.CurrentBookings
}

func (f *fixture) training(t *testing.T, id uint64) uint32 {
	t.Helper()
	m, err := f.members.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get member: %v", err)
	}
	return m.PersonalTrainingSessionsRemaining
}

func TestReserveGroupPricingByTier(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.session(t, model.SessionGroup, 10, 2000)

	standard := f.member(t, model.TierStandard)
	got, err := f.engine.Reserve(ctx, standard, s.ID)
	if err != nil {
		t.Fatalf("standard reserve: %v", err)
	}
	if got.Reservation.IsPaid || got.Reservation.PaymentAmountCents != 2000 {
		t.Fatalf("standard: %+v", got.Reservation)
	}

	premium := f.member(t, model.TierPremium)
	got, err = f.engine.Reserve(ctx, premium, s.ID)
	if err != nil {
		t.Fatalf("premium reserve: %v", err)
	}
	if !got.Reservation.IsPaid || got.Reservation.PaymentAmountCents != 0 || got.Reservation.TrainingSessionUsed {
		t.Fatalf("premium: %+v", got.Reservation)
	}
	m, _ := f.members.GetByID(ctx, premium)
	if m.GuestPassesRemaining != 2 || m.PersonalTrainingSessionsRemaining != 0 {
		t.Fatalf("premium counters touched: %+v", m.Benefits())
	}
	if f.bookings(t, s.ID) != 2 {
		t.Fatalf("current_bookings = %d, want 2", f.bookings(t, s.ID))
	}
	if got.Reservation.Status != model.ReservationConfirmed {
		t.Fatalf("status = %s", got.Reservation.Status)
	}
}

func TestTrainingSessionCounterConservation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	elite := f.member(t, model.TierElite)
	// Leave the member with exactly one training session.
	if _, err := f.db.Exec(`UPDATE users SET personal_training_sessions_remaining = 1 WHERE id = ?`, elite); err != nil {
		t.Fatal(err)
	}
	first := f.session(t, model.SessionPrivateCoach, 1, 5000)
	second := f.session(t, model.SessionPrivateSession, 1, 4500)

	got, err := f.engine.Reserve(ctx, elite, first.ID)
	if err != nil {
		t.Fatalf("first reserve: %v", err)
	}
	if !got.Reservation.IsPaid || got.Reservation.PaymentAmountCents != 0 || !got.Reservation.TrainingSessionUsed {
		t.Fatalf("first: %+v", got.Reservation)
	}
	if got.TrainingSessionsRemaining != 0 || f.training(t, elite) != 0 {
		t.Fatalf("remaining = %d/%d, want 0", got.TrainingSessionsRemaining, f.training(t, elite))
	}

	got, err = f.engine.Reserve(ctx, elite, second.ID)
	if err != nil {
		t.Fatalf("second reserve: %v", err)
	}
	if got.Reservation.IsPaid || got.Reservation.PaymentAmountCents != 4500 || got.Reservation.TrainingSessionUsed {
		t.Fatalf("second: %+v", got.Reservation)
	}
	if f.training(t, elite) != 0 {
		t.Fatalf("counter went below zero or changed: %d", f.training(t, elite))
	}
}

func TestReserveRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	uid := f.member(t, model.TierStandard)

	if _, err := f.engine.Reserve(ctx, uid, 404); !errors.Is(err, ErrSessionNotFound) || KindOf(err) != KindNotFound {
		t.Fatalf("missing session: %v", err)
	}

	inactive := f.session(t, model.SessionGroup, 5, 0)
	inactive.IsActive = false
	if err := f.sessions.Update(ctx, &inactive); err != nil {
		t.Fatal(err)
	}
	if _, err := f.engine.Reserve(ctx, uid, inactive.ID); !errors.Is(err, ErrSessionInactive) || KindOf(err) != KindInvalidState {
		t.Fatalf("inactive session: %v", err)
	}

	full := f.session(t, model.SessionGroup, 1, 0)
	if _, err := f.engine.Reserve(ctx, f.member(t, model.TierStandard), full.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := f.engine.Reserve(ctx, uid, full.ID); !errors.Is(err, ErrSessionFull) || KindOf(err) != KindConflict {
		t.Fatalf("full session: %v", err)
	}

	open := f.session(t, model.SessionGroup, 5, 0)
	if _, err := f.engine.Reserve(ctx, 9999, open.ID); !errors.Is(err, ErrMemberNotFound) {
		t.Fatalf("missing member: %v", err)
	}
	if f.bookings(t, open.ID) != 0 {
		t.Fatal("rejected booking moved the counter")
	}
}

func TestReserveDuplicateIsConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	uid := f.member(t, model.TierStandard)
	s := f.session(t, model.SessionGroup, 5, 0)

	if _, err := f.engine.Reserve(ctx, uid, s.ID); err != nil {
		t.Fatal(err)
	}
	_, err := f.engine.Reserve(ctx, uid, s.ID)
	if !errors.Is(err, ErrDuplicateReservation) || KindOf(err) != KindConflict {
		t.Fatalf("duplicate: %v", err)
	}
	list, total, _ := f.reservations.List(ctx, repository.ReservationFilter{UserID: uid}, repository.Page{Number: 1, Size: 10}, time.UTC)
	if total != 1 || len(list) != 1 {
		t.Fatalf("rows = %d, want 1", total)
	}
	if f.bookings(t, s.ID) != 1 {
		t.Fatalf("current_bookings = %d, want 1", f.bookings(t, s.ID))
	}

	// A cancelled reservation still occupies the (member, session) pair.
	f.now = sessionDay
	if _, err := f.engine.Cancel(ctx, list[0].ID, Actor{ID: uid, Role: model.RoleMember}, ""); err != nil {
		t.Fatal(err)
	}
	if _, err := f.engine.Reserve(ctx, uid, s.ID); !errors.Is(err, ErrDuplicateReservation) {
		t.Fatalf("rebook after cancel: %v", err)
	}
}

func TestConcurrentReserveLastSeat(t *testing.T) {
	f := newFixture(t)
	s := f.session(t, model.SessionGroup, 1, 0)
	a := f.member(t, model.TierStandard)
	b := f.member(t, model.TierStandard)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, uid := range []uint64{a, b} {
		wg.Add(1)
		go func(i int, uid uint64) {
			defer wg.Done()
			_, errs[i] = f.engine.Reserve(context.Background(), uid, s.ID)
		}(i, uid)
	}
	wg.Wait()

	var ok, conflict int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case KindOf(err) == KindConflict:
			conflict++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || conflict != 1 {
		t.Fatalf("ok=%d conflict=%d, want 1/1", ok, conflict)
	}
	if got := f.bookings(t, s.ID); got != 1 {
		t.Fatalf("current_bookings = %d, want 1", got)
	}
}

func TestCapacityInvariantUnderLoad(t *testing.T) {
	f := newFixture(t)
	const capacity, callers = 5, 20
	s := f.session(t, model.SessionGroup, capacity, 0)
	ids := make([]uint64, callers)
	for i := range ids {
		ids[i] = f.member(t, model.TierPremium)
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for _, uid := range ids {
		wg.Add(1)
		go func(uid uint64) {
			defer wg.Done()
			_, err := f.engine.Reserve(context.Background(), uid, s.ID)
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			} else if KindOf(err) != KindConflict {
				t.Errorf("unexpected error: %v", err)
			}
		}(uid)
	}
	wg.Wait()
	if wins != capacity {
		t.Fatalf("successful bookings = %d, want %d", wins, capacity)
	}
	if got := f.bookings(t, s.ID); got != capacity {
		t.Fatalf("current_bookings = %d, want %d", got, capacity)
	}
}

func TestCancelWindowBoundary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.session(t, model.SessionGroup, 5, 0)
	a := f.member(t, model.TierStandard)
	b := f.member(t, model.TierStandard)
	ra, _ := f.engine.Reserve(ctx, a, s.ID)
	rb, _ := f.engine.Reserve(ctx, b, s.ID)

	f.now = sessionDay.Add(7*time.Hour + time.Minute) // 1h59m before start
	_, err := f.engine.Cancel(ctx, rb.Reservation.ID, Actor{ID: b, Role: model.RoleMember}, "")
	if !errors.Is(err, ErrInsideCancelWindow) || KindOf(err) != KindPolicyViolation {
		t.Fatalf("1h59m: %v", err)
	}
	if f.bookings(t, s.ID) != 2 {
		t.Fatal("rejected cancel moved the counter")
	}

	f.now = sessionDay.Add(7 * time.Hour) // exactly 2h before start
	got, err := f.engine.Cancel(ctx, ra.Reservation.ID, Actor{ID: a, Role: model.RoleMember}, "  running late  ")
	if err != nil {
		t.Fatalf("2h0m: %v", err)
	}
	if got.Status != model.ReservationCancelled || got.CancelledAt == nil || got.CancelledBy == nil || *got.CancelledBy != a {
		t.Fatalf("cancelled row: %+v", got)
	}
	if got.CancellationReason == nil || *got.CancellationReason != "running late" {
		t.Fatalf("reason: %v", got.CancellationReason)
	}
}

func TestCancelWindowIsConfigurable(t *testing.T) {
	f := newFixture(t)
	f.engine = NewEngine(f.db, f.sessions, f.members, f.reservations,
		WithCancelWindow(30*time.Minute), WithClock(func() time.Time { return f.now }))
	ctx := context.Background()
	s := f.session(t, model.SessionGroup, 5, 0)
	uid := f.member(t, model.TierStandard)
	r, _ := f.engine.Reserve(ctx, uid, s.ID)

	f.now = sessionDay.Add(8*time.Hour + 15*time.Minute)
	if _, err := f.engine.Cancel(ctx, r.Reservation.ID, Actor{ID: uid, Role: model.RoleMember}, ""); err != nil {
		t.Fatalf("45m before with 30m window: %v", err)
	}
}

func TestCancelTwiceIsInvalidStateWithoutSideEffects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.session(t, model.SessionGroup, 5, 0)
	uid := f.member(t, model.TierStandard)
	other := f.member(t, model.TierStandard)
	r, _ := f.engine.Reserve(ctx, uid, s.ID)
	f.engine.Reserve(ctx, other, s.ID)
	actor := Actor{ID: uid, Role: model.RoleMember}

	if _, err := f.engine.Cancel(ctx, r.Reservation.ID, actor, ""); err != nil {
		t.Fatal(err)
	}
	before := f.bookings(t, s.ID)
	_, err := f.engine.Cancel(ctx, r.Reservation.ID, actor, "")
	if !errors.Is(err, ErrNotCancellable) || KindOf(err) != KindInvalidState {
		t.Fatalf("second cancel: %v", err)
	}
	if after := f.bookings(t, s.ID); after != before {
		t.Fatalf("counter moved from %d to %d", before, after)
	}
}

func TestReserveCancelRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.session(t, model.SessionGroup, 5, 0)
	f.engine.Reserve(ctx, f.member(t, model.TierStandard), s.ID)
	before := f.bookings(t, s.ID)

	uid := f.member(t, model.TierPremium)
	r, err := f.engine.Reserve(ctx, uid, s.ID)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.engine.Cancel(ctx, r.Reservation.ID, Actor{ID: uid, Role: model.RoleMember}, ""); err != nil {
		t.Fatal(err)
	}
	if after := f.bookings(t, s.ID); after != before {
		t.Fatalf("current_bookings = %d, want %d", after, before)
	}
}

func TestCancelAuthorization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.session(t, model.SessionGroup, 5, 0)
	owner := f.member(t, model.TierStandard)
	r, _ := f.engine.Reserve(ctx, owner, s.ID)

	if _, err := f.engine.Cancel(ctx, 9999, Actor{ID: owner, Role: model.RoleMember}, ""); !errors.Is(err, ErrReservationNotFound) {
		t.Fatalf("missing reservation: %v", err)
	}
	for _, a := range []Actor{{ID: owner + 100, Role: model.RoleMember}, {ID: owner + 101, Role: model.RoleTrainer}} {
		if _, err := f.engine.Cancel(ctx, r.Reservation.ID, a, ""); !errors.Is(err, ErrForbidden) || KindOf(err) != KindForbidden {
			t.Fatalf("actor %+v: %v", a, err)
		}
	}
	got, err := f.engine.Cancel(ctx, r.Reservation.ID, Actor{ID: 1, Role: model.RoleAdmin}, "admin override")
	if err != nil {
		t.Fatalf("admin cancel: %v", err)
	}
	if *got.CancelledBy != 1 {
		t.Fatalf("cancelled_by = %d", *got.CancelledBy)
	}
}

func TestCancelRefundsConsumedTrainingSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	elite := f.member(t, model.TierElite)
	s := f.session(t, model.SessionPrivateCoach, 1, 5000)

	r, err := f.engine.Reserve(ctx, elite, s.ID)
	if err != nil {
		t.Fatal(err)
	}
	if f.training(t, elite) != 3 {
		t.Fatalf("after booking: %d", f.training(t, elite))
	}
	if _, err := f.engine.Cancel(ctx, r.Reservation.ID, Actor{ID: elite, Role: model.RoleMember}, ""); err != nil {
		t.Fatal(err)
	}
	if f.training(t, elite) != 4 {
		t.Fatalf("after cancel: %d, want 4", f.training(t, elite))
	}
}

func TestCancelDoesNotRefundUnpaidEliteBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	elite := f.member(t, model.TierElite)
	if _, err := f.db.Exec(`UPDATE users SET personal_training_sessions_remaining = 0 WHERE id = ?`, elite); err != nil {
		t.Fatal(err)
	}
	s := f.session(t, model.SessionPrivateSession, 1, 5000)
	r, _ := f.engine.Reserve(ctx, elite, s.ID)
	if r.Reservation.IsPaid || r.Reservation.PaymentAmountCents != 5000 {
		t.Fatalf("booking: %+v", r.Reservation)
	}
	if _, err := f.engine.Cancel(ctx, r.Reservation.ID, Actor{ID: elite, Role: model.RoleMember}, ""); err != nil {
		t.Fatal(err)
	}
	if f.training(t, elite) != 0 {
		t.Fatalf("unconsumed booking refunded a session: %d", f.training(t, elite))
	}
}

func TestAttendanceTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.session(t, model.SessionGroup, 5, 0)
	a := f.member(t, model.TierStandard)
	b := f.member(t, model.TierStandard)
	ra, _ := f.engine.Reserve(ctx, a, s.ID)
	rb, _ := f.engine.Reserve(ctx, b, s.ID)
	trainer := Actor{ID: 50, Role: model.RoleTrainer}

	if _, err := f.engine.MarkAttended(ctx, ra.Reservation.ID, Actor{ID: a, Role: model.RoleMember}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("member marking attendance: %v", err)
	}
	got, err := f.engine.MarkAttended(ctx, ra.Reservation.ID, trainer)
	if err != nil {
		t.Fatal(err)
	}
	if got.State() != "attended" || got.CheckInTime == nil {
		t.Fatalf("attended row: %+v", got)
	}
	if _, err := f.engine.MarkNoShow(ctx, ra.Reservation.ID, trainer); !errors.Is(err, ErrNotMarkable) || KindOf(err) != KindInvalidState {
		t.Fatalf("no-show after attended: %v", err)
	}
	f.now = sessionDay
	if _, err := f.engine.Cancel(ctx, ra.Reservation.ID, Actor{ID: a, Role: model.RoleMember}, ""); !errors.Is(err, ErrNotCancellable) {
		t.Fatalf("cancel after attended: %v", err)
	}

	got, err = f.engine.MarkNoShow(ctx, rb.Reservation.ID, Actor{ID: 1, Role: model.RoleAdmin})
	if err != nil {
		t.Fatal(err)
	}
	if got.State() != "no-show" || got.CheckInTime != nil {
		t.Fatalf("no-show row: %+v", got)
	}
	if _, err := f.engine.CheckOut(ctx, rb.Reservation.ID, trainer); !errors.Is(err, ErrNotCheckedIn) {
		t.Fatalf("check out of no-show: %v", err)
	}
	if _, err := f.engine.CheckOut(ctx, ra.Reservation.ID, trainer); err != nil {
		t.Fatalf("check out: %v", err)
	}
	if _, err := f.engine.MarkAttended(ctx, 9999, trainer); !errors.Is(err, ErrReservationNotFound) {
		t.Fatalf("missing reservation: %v", err)
	}
	if f.bookings(t, s.ID) != 2 {
		t.Fatalf("attendance moved counters: %d", f.bookings(t, s.ID))
	}
}

func TestMarkCancelledReservationIsInvalidState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.session(t, model.SessionGroup, 5, 0)
	uid := f.member(t, model.TierStandard)
	r, _ := f.engine.Reserve(ctx, uid, s.ID)
	f.now = sessionDay
	f.engine.Cancel(ctx, r.Reservation.ID, Actor{ID: uid, Role: model.RoleMember}, "")

	if _, err := f.engine.MarkAttended(ctx, r.Reservation.ID, Actor{ID: 1, Role: model.RoleAdmin}); KindOf(err) != KindInvalidState {
		t.Fatalf("attend cancelled: %v", err)
	}
}

func TestMalformedSessionTimeIsReported(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.session(t, model.SessionGroup, 5, 0)
	uid := f.member(t, model.TierStandard)
	r, _ := f.engine.Reserve(ctx, uid, s.ID)

	if _, err := f.db.Exec(`UPDATE sessions SET start_time = 'noonish' WHERE id = ?`, s.ID); err != nil {
		t.Fatal(err)
	}
	_, err := f.engine.Cancel(ctx, r.Reservation.ID, Actor{ID: uid, Role: model.RoleMember}, "")
	if KindOf(err) != KindMalformedInput || !errors.Is(err, model.ErrMalformedTime) {
		t.Fatalf("cancel with malformed time: %v", err)
	}
	if _, err := f.engine.Reserve(ctx, f.member(t, model.TierStandard), s.ID); KindOf(err) != KindMalformedInput {
		t.Fatalf("reserve with malformed time: %v", err)
	}
}

func TestEventsPublishedOnlyAfterCommit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.session(t, model.SessionGroup, 1, 0)
	uid := f.member(t, model.TierStandard)

	r, err := f.engine.Reserve(ctx, uid, s.ID)
	if err != nil {
		t.Fatal(err)
	}
	f.engine.Reserve(ctx, f.member(t, model.TierStandard), s.ID) // full, rolled back
	if _, err := f.engine.Cancel(ctx, r.Reservation.ID, Actor{ID: uid, Role: model.RoleMember}, "bye"); err != nil {
		t.Fatal(err)
	}

	got := f.events.types()
	want := []queue.EventType{queue.EventConfirmed, queue.EventCancelled}
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events = %v, want %v", got, want)
		}
	}
	ev := f.events.events[1]
	if ev.Reason != "bye" || ev.ActorID != uid || !ev.StartsAt.Equal(sessionDay.Add(9*time.Hour)) {
		t.Fatalf("cancel event: %+v", ev)
	}
}

func TestBookingTransactionHooks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bt, err := Begin(ctx, f.db)
	if err != nil {
		t.Fatal(err)
	}
	ran := 0
	bt.AfterCommit(func() { ran++ })
	if err := bt.Rollback(); err != nil {
		t.Fatal(err)
	}
	if ran != 0 {
		t.Fatal("hook ran after rollback")
	}

	bt, _ = Begin(ctx, f.db)
	bt.AfterCommit(func() { ran++ })
	if err := bt.Commit(); err != nil {
		t.Fatal(err)
	}
	if err := bt.Rollback(); err != nil {
		t.Fatalf("rollback after commit: %v", err)
	}
	if err := bt.Commit(); !errors.Is(err, sql.ErrTxDone) {
		t.Fatalf("second commit: %v", err)
	}
	if ran != 1 {
		t.Fatalf("hook ran %d times, want 1", ran)
	}
}
