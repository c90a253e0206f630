package repository

import (
	"context"
	"database/sql"
	"math"
	"strings"
	"time"

	"github.com/iliyamo/gym-session-reservation/internal/model"
)

// ReservationRepo provides access to the `reservations` table.  Every
// lifecycle transition is a conditional update guarded by
// `status = 'confirmed' AND attendance IS NULL`, so two racing requests
// can never both move the same reservation.  All timestamp fields are
// stored in UTC.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

const reservationColumns = `r.id, r.user_id, r.session_id, r.booking_date, r.is_paid, r.payment_amount_cents,
	r.training_session_used, r.status, r.attendance, r.notes, r.cancellation_reason, r.cancelled_at,
	r.cancelled_by, r.check_in_time, r.check_out_time, r.created_at, r.updated_at`

// openGuard is appended to every transition's WHERE clause.
const openGuard = ` AND status = 'confirmed' AND attendance IS NULL`

// reservationDest collects the nullable columns of one reservation row.
type reservationDest struct {
	res         model.Reservation
	attendance  sql.NullString
	reason      sql.NullString
	cancelledAt sql.NullTime
	cancelledBy sql.NullInt64
	checkIn     sql.NullTime
	checkOut    sql.NullTime
}

func (d *reservationDest) targets() []any {
	r := &d.res
	return []any{&r.ID, &r.UserID, &r.SessionID, &r.BookingDate, &r.IsPaid, &r.PaymentAmountCents,
		&r.TrainingSessionUsed, &r.Status, &d.attendance, &r.Notes, &d.reason, &d.cancelledAt,
		&d.cancelledBy, &d.checkIn, &d.checkOut, &r.CreatedAt, &r.UpdatedAt}
}

func (d *reservationDest) finish() model.Reservation {
	r := d.res
	if d.attendance.Valid {
		a := model.Attendance(d.attendance.String)
		r.Attendance = &a
	}
	if d.reason.Valid {
		s := d.reason.String
		r.CancellationReason = &s
	}
	if d.cancelledAt.Valid {
		t := d.cancelledAt.Time
		r.CancelledAt = &t
	}
	if d.cancelledBy.Valid {
		id := uint64(d.cancelledBy.Int64)
		r.CancelledBy = &id
	}
	if d.checkIn.Valid {
		t := d.checkIn.Time
		r.CheckInTime = &t
	}
	if d.checkOut.Valid {
		t := d.checkOut.Time
		r.CheckOutTime = &t
	}
	return r
}

func getReservation(ctx context.Context, q querier, id uint64) (model.Reservation, error) {
	var d reservationDest
	err := q.QueryRowContext(ctx, "SELECT "+reservationColumns+" FROM reservations r WHERE r.id = ?", id).Scan(d.targets()...)
	if err != nil {
		return model.Reservation{}, notFound(err, ErrReservationNotFound)
	}
	return d.finish(), nil
}

// GetByID loads a reservation, returning ErrReservationNotFound when absent.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (model.Reservation, error) {
	return getReservation(ctx, r.db, id)
}

// GetByIDTx is GetByID inside a transaction.
func (r *ReservationRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Reservation, error) {
	return getReservation(ctx, tx, id)
}

// ExistsTx reports whether the member has ever reserved the session, in
// any status.
func (r *ReservationRepo) ExistsTx(ctx context.Context, tx *sql.Tx, userID, sessionID uint64) (bool, error) {
	var n int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reservations WHERE user_id = ? AND session_id = ?`, userID, sessionID).Scan(&n)
	return n > 0, err
}

// CreateTx inserts a new reservation within the scope of an existing
// transaction and populates the generated fields on res.  A unique-key
// violation on (user_id, session_id) is reported as
// ErrDuplicateReservation.  The caller must commit or rollback.
func (r *ReservationRepo) CreateTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) error {
	const q = `INSERT INTO reservations (user_id, session_id, booking_date, is_paid, payment_amount_cents,
		training_session_used, status, notes) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	if res.Status == "" {
		res.Status = model.ReservationConfirmed
	}
	result, err := tx.ExecContext(ctx, q, res.UserID, res.SessionID, res.BookingDate.UTC(), res.IsPaid,
		res.PaymentAmountCents, res.TrainingSessionUsed, res.Status, res.Notes)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicateReservation
		}
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	// Query back the full row to populate timestamps and defaults
	created, err := getReservation(ctx, tx, uint64(id))
	if err != nil {
		return err
	}
	*res = created
	return nil
}

// CancelTx moves an open reservation to cancelled.  ErrNotOpen means a
// concurrent request already settled it.
func (r *ReservationRepo) CancelTx(ctx context.Context, tx *sql.Tx, id, by uint64, reason *string, at time.Time) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE reservations SET status = 'cancelled', cancelled_at = ?,
			cancelled_by = ?, cancellation_reason = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`+openGuard, at.UTC(), by, reason, id)
	return affectedOne(res, err)
}

// SetAttendanceTx records attended or no-show on an open reservation.
// checkIn is stored when non-nil.
func (r *ReservationRepo) SetAttendanceTx(ctx context.Context, tx *sql.Tx, id uint64, a model.Attendance, checkIn *time.Time) error {
	var in any
	if checkIn != nil {
		in = checkIn.UTC()
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE reservations SET attendance = ?, check_in_time = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`+openGuard, a, in, id)
	return affectedOne(res, err)
}

// CheckOutTx stamps check_out_time on an attended reservation that has
// not been checked out yet.
func (r *ReservationRepo) CheckOutTx(ctx context.Context, tx *sql.Tx, id uint64, at time.Time) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE reservations SET check_out_time = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND status = 'confirmed' AND attendance = 'attended' AND check_out_time IS NULL`,
		at.UTC(), id)
	return affectedOne(res, err)
}

func affectedOne(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotOpen
	}
	return nil
}

// UpdatePayment records the payment state of a reservation.  amount is
// left unchanged when nil.
func (r *ReservationRepo) UpdatePayment(ctx context.Context, id uint64, isPaid bool, amount *uint32) (model.Reservation, error) {
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return model.Reservation{}, err
	}
	cents := current.PaymentAmountCents
	if amount != nil {
		cents = *amount
	}
	if _, err := r.db.ExecContext(ctx,
		`UPDATE reservations SET is_paid = ?, payment_amount_cents = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		isPaid, cents, id); err != nil {
		return model.Reservation{}, err
	}
	return r.GetByID(ctx, id)
}

// ReservationFilter narrows listings.  Zero values are ignored.
type ReservationFilter struct {
	Status    model.ReservationStatus
	SessionID uint64
	UserID    uint64
	Date      string // session date, YYYY-MM-DD
	IsPaid    *bool
}

func (f ReservationFilter) where() (string, []any) {
	where := " WHERE 1=1"
	var args []any
	if f.Status != "" {
		where += " AND r.status = ?"
		args = append(args, f.Status)
	}
	if f.SessionID != 0 {
		where += " AND r.session_id = ?"
		args = append(args, f.SessionID)
	}
	if f.UserID != 0 {
		where += " AND r.user_id = ?"
		args = append(args, f.UserID)
	}
	if f.Date != "" {
		where += " AND s.session_date = ?"
		args = append(args, f.Date)
	}
	if f.IsPaid != nil {
		where += " AND r.is_paid = ?"
		args = append(args, *f.IsPaid)
	}
	return where, args
}

// detailSelect joins each reservation with its session and member.
var detailSelect = func() string {
	cols := strings.Split(sessionColumns, ",")
	for i, c := range cols {
		cols[i] = "s." + strings.TrimSpace(c)
	}
	return "SELECT " + reservationColumns + ", " + strings.Join(cols, ", ") + ", u.id, u.name, u.email" +
		" FROM reservations r JOIN sessions s ON s.id = r.session_id JOIN users u ON u.id = r.user_id"
}()

func scanDetails(rows *sql.Rows, loc *time.Location) ([]model.ReservationDetail, error) {
	defer rows.Close()
	out := []model.ReservationDetail{}
	for rows.Next() {
		var (
			d       reservationDest
			s       model.Session
			trainer sql.NullInt64
			m       model.MemberBrief
		)
		dest := append(d.targets(), &s.ID, &s.Name, &s.Type, &s.Date, &s.Time, &s.DurationMinutes,
			&s.MaxCapacity, &s.CurrentBookings, &trainer, &s.PriceCents, &s.Description, &s.Location,
			&s.Difficulty, &s.IsActive, &s.CreatedAt, &s.UpdatedAt, &m.ID, &m.Name, &m.Email)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		if trainer.Valid {
			id := uint64(trainer.Int64)
			s.TrainerID = &id
		}
		res := d.finish()
		view := s.View(loc)
		out = append(out, model.ReservationDetail{Reservation: res, State: res.State(), Session: &view, Member: &m})
	}
	return out, rows.Err()
}

// ListByUser returns a member's reservations, newest booking first.
// status and limit are optional (zero values ignored).
func (r *ReservationRepo) ListByUser(ctx context.Context, userID uint64, status model.ReservationStatus, limit int, loc *time.Location) ([]model.ReservationDetail, error) {
	where, args := ReservationFilter{UserID: userID, Status: status}.where()
	q := detailSelect + where + " ORDER BY r.booking_date DESC, r.id DESC"
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return scanDetails(rows, loc)
}

// List returns one page of reservations matching f and the total count.
func (r *ReservationRepo) List(ctx context.Context, f ReservationFilter, p Page, loc *time.Location) ([]model.ReservationDetail, int, error) {
	p = p.Normalize()
	where, args := f.where()
	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reservations r JOIN sessions s ON s.id = r.session_id`+where, args...).Scan(&total)
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx, detailSelect+where+" ORDER BY r.booking_date DESC, r.id DESC LIMIT ? OFFSET ?",
		append(args, p.Size, p.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	list, err := scanDetails(rows, loc)
	return list, total, err
}

// Attendee is a member holding a confirmed reservation on a session.
type Attendee struct {
	model.MemberBrief
	ReservationID uint64            `json:"reservation_id"`
	Attendance    *model.Attendance `json:"attendance,omitempty"`
}

// ListAttendees returns the members with a confirmed reservation on the
// session, in booking order.
func (r *ReservationRepo) ListAttendees(ctx context.Context, sessionID uint64) ([]Attendee, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT u.id, u.name, u.email, r.id, r.attendance FROM reservations r
		 JOIN users u ON u.id = r.user_id
		 WHERE r.session_id = ? AND r.status = 'confirmed'
		 ORDER BY r.booking_date, r.id`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Attendee{}
	for rows.Next() {
		var (
			a   Attendee
			att sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.Name, &a.Email, &a.ReservationID, &att); err != nil {
			return nil, err
		}
		if att.Valid {
			v := model.Attendance(att.String)
			a.Attendance = &v
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ReservationStats summarises every reservation for the admin dashboard.
type ReservationStats struct {
	Total          int            `json:"total_reservations"`
	Confirmed      int            `json:"confirmed_reservations"`
	Paid           int            `json:"paid_reservations"`
	Attended       int            `json:"attended_reservations"`
	AttendanceRate int            `json:"attendance_rate"`
	Breakdown      map[string]int `json:"status_breakdown"`
}

// Stats counts reservations by status and attendance.  AttendanceRate is
// attended over settled (attended or no-show) reservations, as a whole
// percentage.
func (r *ReservationRepo) Stats(ctx context.Context) (ReservationStats, error) {
	st := ReservationStats{Breakdown: map[string]int{}}
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM reservations GROUP BY status`)
	if err != nil {
		return st, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return st, err
		}
		st.Breakdown[status] = n
		st.Total += n
	}
	if err := rows.Err(); err != nil {
		return st, err
	}
	st.Confirmed = st.Breakdown[string(model.ReservationConfirmed)]
	var settled int
	err = r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(CASE WHEN is_paid = 1 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN attendance = 'attended' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN attendance IN ('attended','no-show') THEN 1 ELSE 0 END), 0)
		 FROM reservations`).Scan(&st.Paid, &st.Attended, &settled)
	if err != nil {
		return st, err
	}
	if settled > 0 {
		st.AttendanceRate = int(math.Round(float64(st.Attended) / float64(settled) * 100))
	}
	return st, nil
}

// RevenueStats sums recorded payments.
type RevenueStats struct {
	TotalRevenueCents     int64   `json:"total_revenue_cents"`
	TotalPaidReservations int     `json:"total_paid_reservations"`
	AvgPaymentCents       float64 `json:"avg_payment_cents"`
}

// Revenue sums payment_amount_cents over paid reservations whose booking
// date falls in [from, to].  Both bounds are optional YYYY-MM-DD days.
func (r *ReservationRepo) Revenue(ctx context.Context, from, to string) (RevenueStats, error) {
	q := `SELECT COALESCE(SUM(payment_amount_cents), 0), COUNT(*), COALESCE(AVG(payment_amount_cents), 0)
		FROM reservations WHERE is_paid = 1`
	var args []any
	if from != "" {
		q += " AND booking_date >= ?"
		args = append(args, from)
	}
	if to != "" {
		end, err := time.Parse(model.DateLayout, to)
		if err != nil {
			return RevenueStats{}, err
		}
		q += " AND booking_date < ?"
		args = append(args, end.AddDate(0, 0, 1).Format(model.DateLayout))
	}
	var st RevenueStats
	err := r.db.QueryRowContext(ctx, q, args...).Scan(&st.TotalRevenueCents, &st.TotalPaidReservations, &st.AvgPaymentCents)
	return st, err
}
