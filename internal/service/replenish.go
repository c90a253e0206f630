package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/teambition/rrule-go"
)

// BenefitResetter restores every active member's benefit counters to the
// defaults of their tier and reports how many members were touched.
type BenefitResetter interface {
	ResetAllBenefits(ctx context.Context) (int64, error)
}

// BenefitReplenisher resets membership benefits on an RFC 5545 schedule,
// typically the first day of every month.
type BenefitReplenisher struct {
	rule    *rrule.RRule
	members BenefitResetter
	logger  *slog.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) bool
}

// NewBenefitReplenisher parses rule (for example
// "FREQ=MONTHLY;BYMONTHDAY=1;BYHOUR=0;BYMINUTE=0;BYSECOND=0") and evaluates
// it in loc.
func NewBenefitReplenisher(rule string, loc *time.Location, members BenefitResetter, logger *slog.Logger) (*BenefitReplenisher, error) {
	r, err := rrule.StrToRRule(rule)
	if err != nil {
		return nil, fmt.Errorf("parse benefit reset rule %q: %w", rule, err)
	}
	if loc == nil {
		loc = time.UTC
	}
	// DTSTART only anchors the series; the rule's BYxxx parts pick the instants.
	r.DTStart(time.Date(2020, 1, 1, 0, 0, 0, 0, loc))
	if logger == nil {
		logger = slog.Default()
	}
	return &BenefitReplenisher{
		rule:    r,
		members: members,
		logger:  logger.With("component", "benefit_replenisher"),
		now:     time.Now,
		sleep:   sleepCtx,
	}, nil
}

// NextRun is the first scheduled reset strictly after t, or the zero time
// when the rule has no further occurrences.
func (b *BenefitReplenisher) NextRun(t time.Time) time.Time {
	return b.rule.After(t, false)
}

// Run blocks, resetting benefits at each occurrence, until ctx is done or
// the rule is exhausted.  A failed reset is logged and retried at the next
// occurrence.
func (b *BenefitReplenisher) Run(ctx context.Context) error {
	for {
		next := b.NextRun(b.now())
		if next.IsZero() {
			b.logger.Info("benefit reset schedule exhausted")
			return nil
		}
		b.logger.Info("next benefit reset scheduled", "at", next.Format(time.RFC3339))
		if !b.sleep(ctx, next.Sub(b.now())) {
			return ctx.Err()
		}
		n, err := b.members.ResetAllBenefits(ctx)
		if err != nil {
			b.logger.Error("benefit reset failed", "error", err)
			continue
		}
		b.logger.Info("benefits reset", "members", n)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
