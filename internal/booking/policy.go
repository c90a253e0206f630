package booking

import "github.com/iliyamo/gym-session-reservation/internal/model"

// Outcome is what a booking costs a member: whether it is covered, the
// amount recorded as owed, and whether a personal training benefit is
// spent on it.
type Outcome struct {
	IsPaid                 bool   `json:"is_paid"`
	AmountCents            uint32 `json:"payment_amount_cents"`
	ConsumeTrainingSession bool   `json:"consume_training_session"`
}

// Quote decides the outcome of booking s for m.  It is pure: it reads
// the tier, the remaining training counter and the session type/price,
// and never touches storage.
//
//	private-*  standard|premium           unpaid, price
//	private-*  elite, training > 0        paid, 0, consume one session
//	private-*  elite, training == 0       unpaid, price
//	group      premium|elite              paid, 0
//	group      standard                   unpaid, price
func Quote(m model.Member, s model.Session) Outcome {
	unpaid := Outcome{AmountCents: s.PriceCents}
	if s.Type.IsPrivate() {
		if m.MembershipType == model.TierElite && m.PersonalTrainingSessionsRemaining > 0 {
			return Outcome{IsPaid: true, ConsumeTrainingSession: true}
		}
		return unpaid
	}
	switch m.MembershipType {
	case model.TierPremium, model.TierElite:
		return Outcome{IsPaid: true}
	}
	return unpaid
}
