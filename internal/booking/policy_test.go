package booking

import (
	"testing"

	"github.com/iliyamo/gym-session-reservation/internal/model"
)

func TestQuote(t *testing.T) {
	const price = 2000
	cases := []struct {
		name     string
		tier     model.Tier
		training uint32
		typ      model.SessionType
		want     Outcome
	}{
		{"private standard", model.TierStandard, 0, model.SessionPrivateSession, Outcome{AmountCents: price}},
		{"private premium", model.TierPremium, 0, model.SessionPrivateCoach, Outcome{AmountCents: price}},
		{"private standard ignores stray counter", model.TierStandard, 3, model.SessionPrivateCoach, Outcome{AmountCents: price}},
		{"private elite with training", model.TierElite, 1, model.SessionPrivateSession, Outcome{IsPaid: true, ConsumeTrainingSession: true}},
		{"coach elite with training", model.TierElite, 4, model.SessionPrivateCoach, Outcome{IsPaid: true, ConsumeTrainingSession: true}},
		{"private elite without training", model.TierElite, 0, model.SessionPrivateSession, Outcome{AmountCents: price}},
		{"group premium", model.TierPremium, 0, model.SessionGroup, Outcome{IsPaid: true}},
		{"group elite keeps training", model.TierElite, 4, model.SessionGroup, Outcome{IsPaid: true}},
		{"group standard", model.TierStandard, 0, model.SessionGroup, Outcome{AmountCents: price}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			m := model.Member{MembershipType: c.tier, PersonalTrainingSessionsRemaining: c.training}
			s := model.Session{Type: c.typ, PriceCents: price}
			if got := Quote(m, s); got != c.want {
				t.Fatalf("Quote = %+v, want %+v", got, c.want)
			}
		})
	}
}

func TestQuoteFreeSession(t *testing.T) {
	got := Quote(model.Member{MembershipType: model.TierStandard}, model.Session{Type: model.SessionGroup})
	if got.IsPaid || got.AmountCents != 0 || got.ConsumeTrainingSession {
		t.Fatalf("free group session for standard: %+v", got)
	}
}

func TestAccess(t *testing.T) {
	res := model.Reservation{UserID: 7}
	owner := Actor{ID: 7, Role: model.RoleMember}
	other := Actor{ID: 8, Role: model.RoleMember}
	trainer := Actor{ID: 9, Role: model.RoleTrainer}
	admin := Actor{ID: 1, Role: model.RoleAdmin}

	if !CanCancel(owner, res) || !CanCancel(admin, res) {
		t.Fatal("owner and admin must be able to cancel")
	}
	if CanCancel(other, res) || CanCancel(trainer, res) || CanCancel(Actor{}, model.Reservation{}) {
		t.Fatal("non-owner non-admin must not cancel")
	}
	if !CanView(trainer, res) || CanView(other, res) {
		t.Fatal("view rules")
	}
	if CanMarkAttendance(owner) || !CanMarkAttendance(trainer) || !CanMarkAttendance(admin) {
		t.Fatal("attendance rules")
	}
}
