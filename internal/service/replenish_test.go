package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

type resetCounter struct {
	calls  int
	fail   bool
	cancel context.CancelFunc
	stop   int
}

func (r *resetCounter) ResetAllBenefits(context.Context) (int64, error) {
	r.calls++
	if r.calls >= r.stop {
		r.cancel()
	}
	if r.fail {
		return 0, errors.New("db down")
	}
	return 3, nil
}

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestNextRunMonthly(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	b, err := NewBenefitReplenisher("FREQ=MONTHLY;BYMONTHDAY=1;BYHOUR=0;BYMINUTE=0;BYSECOND=0", loc, nil, quiet)
	if err != nil {
		t.Fatal(err)
	}
	from := time.Date(2030, 1, 15, 12, 0, 0, 0, loc)
	if got, want := b.NextRun(from), time.Date(2030, 2, 1, 0, 0, 0, 0, loc); !got.Equal(want) {
		t.Fatalf("NextRun = %v, want %v", got, want)
	}
	// Exactly on an occurrence moves to the following one.
	on := time.Date(2030, 2, 1, 0, 0, 0, 0, loc)
	if got, want := b.NextRun(on), time.Date(2030, 3, 1, 0, 0, 0, 0, loc); !got.Equal(want) {
		t.Fatalf("NextRun(on) = %v, want %v", got, want)
	}
}

func TestBadRule(t *testing.T) {
	if _, err := NewBenefitReplenisher("FREQ=SOMETIMES", nil, nil, quiet); err == nil {
		t.Fatal("bad rule accepted")
	}
}

func TestRunResetsOnEachOccurrence(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rc := &resetCounter{cancel: cancel, stop: 3, fail: true}
	b, err := NewBenefitReplenisher("FREQ=DAILY;BYHOUR=0;BYMINUTE=0;BYSECOND=0", time.UTC, rc, quiet)
	if err != nil {
		t.Fatal(err)
	}
	clock := time.Date(2030, 1, 1, 6, 0, 0, 0, time.UTC)
	var waits []time.Time
	b.now = func() time.Time { return clock }
	b.sleep = func(ctx context.Context, _ time.Duration) bool {
		clock = b.NextRun(clock)
		waits = append(waits, clock)
		return ctx.Err() == nil
	}

	if err := b.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run = %v", err)
	}
	if rc.calls != 3 {
		t.Fatalf("resets = %d, want 3 (failures must not stop the loop)", rc.calls)
	}
	if len(waits) < 3 || !waits[0].Equal(time.Date(2030, 1, 2, 0, 0, 0, 0, time.UTC)) || !waits[2].Equal(time.Date(2030, 1, 4, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("waits = %v", waits)
	}
}

func TestRunSleepsOnInjectedClock(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rc := &resetCounter{cancel: cancel, stop: 1}
	b, err := NewBenefitReplenisher("FREQ=MONTHLY;BYMONTHDAY=1;BYHOUR=0;BYMINUTE=0;BYSECOND=0", time.UTC, rc, quiet)
	if err != nil {
		t.Fatal(err)
	}
	b.now = func() time.Time { return time.Date(2030, 1, 31, 12, 0, 0, 0, time.UTC) }
	var slept time.Duration
	b.sleep = func(ctx context.Context, d time.Duration) bool {
		slept = d
		return ctx.Err() == nil
	}
	if err := b.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run = %v", err)
	}
	if slept != 12*time.Hour {
		t.Fatalf("slept %v, want 12h", slept)
	}
}

func TestRunStopsWhenRuleExhausted(t *testing.T) {
	rc := &resetCounter{cancel: func() {}, stop: 100}
	b, _ := NewBenefitReplenisher("FREQ=YEARLY;COUNT=1", time.UTC, rc, quiet)
	b.now = func() time.Time { return time.Date(2031, 1, 1, 0, 0, 0, 0, time.UTC) }
	if err := b.Run(context.Background()); err != nil {
		t.Fatalf("Run = %v", err)
	}
	if rc.calls != 0 {
		t.Fatalf("resets = %d", rc.calls)
	}
}
