package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/gym-session-reservation/internal/model"
)

// SessionRepo provides access to the `sessions` table.  current_bookings is
// never written directly: it only moves through IncrementBookingsTx and
// DecrementBookingsTx, whose WHERE clauses keep it in [0, max_capacity].
type SessionRepo struct {
	db *sql.DB
}

func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{db: db} }

// DB exposes the underlying handle so callers can start transactions.
func (r *SessionRepo) DB() *sql.DB { return r.db }

const sessionColumns = `id, name, type, session_date, start_time, duration_minutes, max_capacity,
	current_bookings, trainer_id, price_cents, description, location, difficulty, is_active,
	created_at, updated_at`

// scanSession reads one row selected with sessionColumns.  A start_time
// that no longer parses surfaces as model.ErrMalformedTime.
func scanSession(row rowScanner) (model.Session, error) {
	var (
		s       model.Session
		trainer sql.NullInt64
	)
	err := row.Scan(&s.ID, &s.Name, &s.Type, &s.Date, &s.Time, &s.DurationMinutes, &s.MaxCapacity,
		&s.CurrentBookings, &trainer, &s.PriceCents, &s.Description, &s.Location, &s.Difficulty,
		&s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return model.Session{}, err
	}
	if trainer.Valid {
		id := uint64(trainer.Int64)
		s.TrainerID = &id
	}
	return s, nil
}

// Create inserts a session and fills in its generated fields.
func (r *SessionRepo) Create(ctx context.Context, s *model.Session) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (name, type, session_date, start_time, start_minutes, duration_minutes,
			max_capacity, current_bookings, trainer_id, price_cents, description, location, difficulty, is_active)
		 VALUES (?,?,?,?,?,?,?,0,?,?,?,?,?,?)`,
		s.Name, s.Type, s.Date.Format(model.DateLayout), s.Time, s.Time.Minutes(), s.DurationMinutes,
		s.MaxCapacity, s.TrainerID, s.PriceCents, s.Description, s.Location, s.Difficulty, s.IsActive)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	created, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*s = created
	return nil
}

// GetByID loads a session, returning ErrSessionNotFound when absent.
func (r *SessionRepo) GetByID(ctx context.Context, id uint64) (model.Session, error) {
	return getSession(ctx, r.db, id)
}

// GetByIDTx is GetByID inside a booking transaction.
func (r *SessionRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Session, error) {
	return getSession(ctx, tx, id)
}

func getSession(ctx context.Context, q querier, id uint64) (model.Session, error) {
	row := q.QueryRowContext(ctx, "SELECT "+sessionColumns+" FROM sessions WHERE id = ?", id)
	s, err := scanSession(row)
	return s, notFound(err, ErrSessionNotFound)
}

// IncrementBookingsTx takes one seat.  The update only matches an active
// session with a free seat; otherwise ErrSessionFull is returned and
// nothing changes.
func (r *SessionRepo) IncrementBookingsTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE sessions SET current_bookings = current_bookings + 1, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND is_active = 1 AND current_bookings < max_capacity`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrSessionFull
	}
	return nil
}

// DecrementBookingsTx releases one seat, flooring the counter at zero in
// the same statement.
func (r *SessionRepo) DecrementBookingsTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE sessions SET current_bookings = CASE WHEN current_bookings > 0 THEN current_bookings - 1 ELSE 0 END,
			updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`, id)
	return err
}

// Update writes the editable fields of s.  The update is rejected with
// ErrConflict when the new max_capacity is below the seats already
// booked, and with ErrSessionNotFound when the row does not exist.
func (r *SessionRepo) Update(ctx context.Context, s *model.Session) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET name = ?, type = ?, session_date = ?, start_time = ?, start_minutes = ?,
			duration_minutes = ?, max_capacity = ?, trainer_id = ?, price_cents = ?, description = ?,
			location = ?, difficulty = ?, is_active = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND current_bookings <= ?`,
		s.Name, s.Type, s.Date.Format(model.DateLayout), s.Time, s.Time.Minutes(), s.DurationMinutes,
		s.MaxCapacity, s.TrainerID, s.PriceCents, s.Description, s.Location, s.Difficulty, s.IsActive,
		s.ID, s.MaxCapacity)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := r.GetByID(ctx, s.ID); err != nil {
			return err
		}
		return ErrConflict
	}
	updated, err := r.GetByID(ctx, s.ID)
	if err != nil {
		return err
	}
	*s = updated
	return nil
}

// Delete removes a session.  A session with open reservations (confirmed
// and not yet settled) cannot be deleted (ErrConflict).  A session that still has reservation history
// is deactivated instead of removed; soft reports which path was taken.
func (r *SessionRepo) Delete(ctx context.Context, id uint64) (soft bool, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if _, err := getSession(ctx, tx, id); err != nil {
		return false, err
	}
	var open, total int
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(CASE WHEN status = 'confirmed' AND attendance IS NULL THEN 1 ELSE 0 END), 0), COUNT(*)
		 FROM reservations WHERE session_id = ?`, id).Scan(&open, &total)
	if err != nil {
		return false, err
	}
	if open > 0 {
		return false, ErrConflict
	}
	if total > 0 {
		_, err = tx.ExecContext(ctx, `UPDATE sessions SET is_active = 0, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, id)
		soft = true
	} else {
		_, err = tx.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	}
	if err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	committed = true
	return soft, nil
}

// SessionFilter narrows List.  Zero values are ignored; Active nil means
// both active and inactive sessions.
type SessionFilter struct {
	Type       model.SessionType
	Difficulty model.Difficulty
	Date       string // YYYY-MM-DD
	From       string // YYYY-MM-DD, inclusive
	TrainerID  uint64
	Active     *bool
}

func (f SessionFilter) where() (string, []any) {
	where := " WHERE 1=1"
	var args []any
	if f.Type != "" {
		where += " AND type = ?"
		args = append(args, f.Type)
	}
	if f.Difficulty != "" {
		where += " AND difficulty = ?"
		args = append(args, f.Difficulty)
	}
	if f.Date != "" {
		where += " AND session_date = ?"
		args = append(args, f.Date)
	}
	if f.From != "" {
		where += " AND session_date >= ?"
		args = append(args, f.From)
	}
	if f.TrainerID != 0 {
		where += " AND trainer_id = ?"
		args = append(args, f.TrainerID)
	}
	if f.Active != nil {
		if *f.Active {
			where += " AND is_active = 1"
		} else {
			where += " AND is_active = 0"
		}
	}
	return where, args
}

// List returns one page of sessions in chronological order and the total
// number matching f.
func (r *SessionRepo) List(ctx context.Context, f SessionFilter, p Page) ([]model.Session, int, error) {
	p = p.Normalize()
	where, args := f.where()
	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sessions"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+sessionColumns+" FROM sessions"+where+" ORDER BY session_date, start_minutes, id LIMIT ? OFFSET ?",
		append(args, p.Size, p.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := make([]model.Session, 0, p.Size)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, s)
	}
	return out, total, rows.Err()
}

// Upcoming returns up to limit active sessions dated on or after the
// calendar day of from.
func (r *SessionRepo) Upcoming(ctx context.Context, from time.Time, limit int) ([]model.Session, error) {
	active := true
	list, _, err := r.List(ctx, SessionFilter{From: from.Format(model.DateLayout), Active: &active}, Page{Number: 1, Size: limit})
	return list, err
}

// TypeStats is one row of the per-type session breakdown.
type TypeStats struct {
	Type          model.SessionType `json:"type"`
	Count         int               `json:"count"`
	TotalBookings int               `json:"total_bookings"`
	AvgCapacity   float64           `json:"avg_capacity"`
}

// SessionStats summarises active sessions for the admin dashboard.
type SessionStats struct {
	Breakdown     []TypeStats `json:"breakdown"`
	TotalSessions int         `json:"total_sessions"`
	Upcoming      int         `json:"upcoming_sessions"`
}

// Stats aggregates active sessions by type and counts those dated on or
// after today.
func (r *SessionRepo) Stats(ctx context.Context, today time.Time) (SessionStats, error) {
	var st SessionStats
	rows, err := r.db.QueryContext(ctx,
		`SELECT type, COUNT(*), COALESCE(SUM(current_bookings), 0), COALESCE(AVG(max_capacity), 0)
		 FROM sessions WHERE is_active = 1 GROUP BY type ORDER BY type`)
	if err != nil {
		return st, err
	}
	defer rows.Close()
	st.Breakdown = []TypeStats{}
	for rows.Next() {
		var ts TypeStats
		if err := rows.Scan(&ts.Type, &ts.Count, &ts.TotalBookings, &ts.AvgCapacity); err != nil {
			return st, err
		}
		st.TotalSessions += ts.Count
		st.Breakdown = append(st.Breakdown, ts)
	}
	if err := rows.Err(); err != nil {
		return st, err
	}
	err = r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sessions WHERE is_active = 1 AND session_date >= ?`,
		today.Format(model.DateLayout)).Scan(&st.Upcoming)
	return st, err
}
