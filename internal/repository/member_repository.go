package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/gym-session-reservation/internal/model"
	"github.com/iliyamo/gym-session-reservation/internal/utils"
)

// MemberRepo reads and writes the `users` table.  Benefit counters are only
// changed through the guarded *Tx methods used by the booking engine or
// through ResetBenefits.
type MemberRepo struct{ db *sql.DB }

func NewMemberRepo(db *sql.DB) *MemberRepo { return &MemberRepo{db: db} }

// NewMember carries the fields accepted at registration.
type NewMember struct {
	Name     string
	Email    string
	Password string
	Role     model.Role
	Tier     model.Tier
}

const memberColumns = `id, name, email, password_hash, role, membership_type, membership_status,
	guest_passes_remaining, personal_training_sessions_remaining, is_active, last_login_at,
	created_at, updated_at`

// Create inserts a member with the counters of their tier and returns its ID.
func (r *MemberRepo) Create(ctx context.Context, m NewMember, cost int) (uint64, error) {
	email := strings.ToLower(strings.TrimSpace(m.Email))
	hash, err := utils.HashPassword(m.Password, cost)
	if err != nil {
		return 0, err
	}
	if m.Role == "" {
		m.Role = model.RoleMember
	}
	if m.Tier == "" {
		m.Tier = model.TierStandard
	}
	b := model.InitialBenefits(m.Tier)
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (name, email, password_hash, role, membership_type, membership_status,
			guest_passes_remaining, personal_training_sessions_remaining)
		 VALUES (?,?,?,?,?,?,?,?)`,
		strings.TrimSpace(m.Name), email, hash, m.Role, m.Tier, model.MembershipActive,
		b.GuestPasses, b.TrainingSessions)
	if err != nil {
		if isDuplicateKey(err) {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a member by normalized email.
func (r *MemberRepo) GetByEmail(ctx context.Context, email string) (model.Member, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	row := r.db.QueryRowContext(ctx, "SELECT "+memberColumns+" FROM users WHERE email=? LIMIT 1", email)
	m, err := scanMember(row)
	return m, notFound(err, ErrMemberNotFound)
}

// GetByID fetches a member by id.
func (r *MemberRepo) GetByID(ctx context.Context, id uint64) (model.Member, error) {
	return getMember(ctx, r.db, id)
}

// GetByIDTx is GetByID inside a booking transaction.
func (r *MemberRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Member, error) {
	return getMember(ctx, tx, id)
}

func getMember(ctx context.Context, q querier, id uint64) (model.Member, error) {
	row := q.QueryRowContext(ctx, "SELECT "+memberColumns+" FROM users WHERE id=? LIMIT 1", id)
	m, err := scanMember(row)
	return m, notFound(err, ErrMemberNotFound)
}

type rowScanner interface{ Scan(dest ...any) error }

func scanMember(row rowScanner) (model.Member, error) {
	var (
		m         model.Member
		lastLogin sql.NullTime
	)
	err := row.Scan(&m.ID, &m.Name, &m.Email, &m.PasswordHash, &m.Role, &m.MembershipType,
		&m.MembershipStatus, &m.GuestPassesRemaining, &m.PersonalTrainingSessionsRemaining,
		&m.IsActive, &lastLogin, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return model.Member{}, err
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		m.LastLoginAt = &t
	}
	return m, nil
}

// ConsumeTrainingSessionTx decrements the personal training counter by one.
// The update is guarded so the counter never goes below zero; when it is
// already zero ErrNoTrainingSessions is returned.
func (r *MemberRepo) ConsumeTrainingSessionTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE users SET personal_training_sessions_remaining = personal_training_sessions_remaining - 1,
			updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND personal_training_sessions_remaining > 0`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNoTrainingSessions
	}
	return nil
}

// RefundTrainingSessionTx gives one personal training session back.
func (r *MemberRepo) RefundTrainingSessionTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE users SET personal_training_sessions_remaining = personal_training_sessions_remaining + 1,
			updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`, id)
	return err
}

// TouchLogin records a successful login.
func (r *MemberRepo) TouchLogin(ctx context.Context, id uint64, at time.Time) error {
	_, err := r.db.ExecContext(ctx, "UPDATE users SET last_login_at = ? WHERE id = ?", at.UTC(), id)
	return err
}

// ResetBenefits restores a member's counters to the defaults of their tier.
func (r *MemberRepo) ResetBenefits(ctx context.Context, id uint64) (model.Member, error) {
	m, err := r.GetByID(ctx, id)
	if err != nil {
		return model.Member{}, err
	}
	b := model.InitialBenefits(m.MembershipType)
	if _, err := r.db.ExecContext(ctx,
		`UPDATE users SET guest_passes_remaining = ?, personal_training_sessions_remaining = ?,
			updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		b.GuestPasses, b.TrainingSessions, id); err != nil {
		return model.Member{}, err
	}
	m.GuestPassesRemaining = b.GuestPasses
	m.PersonalTrainingSessionsRemaining = b.TrainingSessions
	return m, nil
}

// ResetAllBenefits restores the counters of every active member, one
// statement per tier, and returns the number of rows touched.
func (r *MemberRepo) ResetAllBenefits(ctx context.Context) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	var total int64
	for _, tier := range []model.Tier{model.TierStandard, model.TierPremium, model.TierElite} {
		b := model.InitialBenefits(tier)
		res, err := tx.ExecContext(ctx,
			`UPDATE users SET guest_passes_remaining = ?, personal_training_sessions_remaining = ?,
				updated_at = CURRENT_TIMESTAMP
			 WHERE membership_type = ? AND is_active = 1 AND membership_status = ?`,
			b.GuestPasses, b.TrainingSessions, tier, model.MembershipActive)
		if err != nil {
			return 0, err
		}
		n, _ := res.RowsAffected()
		total += n
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	committed = true
	return total, nil
}

// MemberFilter narrows List.  Zero values are ignored.
type MemberFilter struct {
	Role model.Role
	Tier model.Tier
}

// List returns one page of members ordered by id and the total count.
func (r *MemberRepo) List(ctx context.Context, f MemberFilter, p Page) ([]model.Member, int, error) {
	p = p.Normalize()
	where := " WHERE 1=1"
	var args []any
	if f.Role != "" {
		where += " AND role = ?"
		args = append(args, f.Role)
	}
	if f.Tier != "" {
		where += " AND membership_type = ?"
		args = append(args, f.Tier)
	}
	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+memberColumns+" FROM users"+where+" ORDER BY id LIMIT ? OFFSET ?",
		append(args, p.Size, p.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := make([]model.Member, 0, p.Size)
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, m)
	}
	return out, total, rows.Err()
}
