package model

import "time"

// Tier is a membership level.  It decides which sessions are included in
// the membership and which benefit counters a member starts with.
type Tier string

const (
	TierStandard Tier = "standard"
	TierPremium  Tier = "premium"
	TierElite    Tier = "elite"
)

// Valid reports whether t is one of the known tiers.
func (t Tier) Valid() bool {
	switch t {
	case TierStandard, TierPremium, TierElite:
		return true
	}
	return false
}

// MembershipStatus tracks the billing state of a membership.
type MembershipStatus string

const (
	MembershipActive   MembershipStatus = "active"
	MembershipInactive MembershipStatus = "inactive"
	MembershipExpired  MembershipStatus = "expired"
	MembershipPending  MembershipStatus = "pending"
)

// Role is the authorization role carried in access tokens.
type Role string

const (
	RoleMember  Role = "member"
	RoleTrainer Role = "trainer"
	RoleAdmin   Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleMember, RoleTrainer, RoleAdmin:
		return true
	}
	return false
}

// UnlimitedGuestPasses is the sentinel stored for tiers whose guest passes
// are not capped.
const UnlimitedGuestPasses = 999

// Benefits holds the per-member remaining-use counters.
type Benefits struct {
	GuestPasses      uint32 `json:"guest_passes_remaining"`
	TrainingSessions uint32 `json:"personal_training_sessions_remaining"`
}

// InitialBenefits returns the counters a member of tier t starts every
// membership period with.
func InitialBenefits(t Tier) Benefits {
	switch t {
	case TierPremium:
		return Benefits{GuestPasses: 2}
	case TierElite:
		return Benefits{GuestPasses: UnlimitedGuestPasses, TrainingSessions: 4}
	}
	return Benefits{}
}

// Member represents a row in the `users` table.  The password hash is
// never serialised.
//
// Fields:
//
//	ID                                – users.id
//	Name, Email                       – identity; email is unique.
//	Role                              – member, trainer or admin.
//	MembershipType                    – standard, premium or elite.
//	MembershipStatus                  – active, inactive, expired, pending.
//	GuestPassesRemaining              – never negative.
//	PersonalTrainingSessionsRemaining – never negative.
//	IsActive                          – account enabled flag.
type Member struct {
	ID                                uint64           `json:"id"`
	Name                              string           `json:"name"`
	Email                             string           `json:"email"`
	PasswordHash                      string           `json:"-"`
	Role                              Role             `json:"role"`
	MembershipType                    Tier             `json:"membership_type"`
	MembershipStatus                  MembershipStatus `json:"membership_status"`
	GuestPassesRemaining              uint32           `json:"guest_passes_remaining"`
	PersonalTrainingSessionsRemaining uint32           `json:"personal_training_sessions_remaining"`
	IsActive                          bool             `json:"is_active"`
	LastLoginAt                       *time.Time       `json:"last_login_at,omitempty"`
	CreatedAt                         time.Time        `json:"created_at"`
	UpdatedAt                         time.Time        `json:"updated_at"`
}

// Benefits returns the member's current counters.
func (m Member) Benefits() Benefits {
	return Benefits{
		GuestPasses:      m.GuestPassesRemaining,
		TrainingSessions: m.PersonalTrainingSessionsRemaining,
	}
}

// RefreshToken models an entry in the `refresh_tokens` table.  The plain
// token is not stored; only its SHA‑256 hash.
type RefreshToken struct {
	ID        uint64
	UserID    uint64
	TokenHash string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}
