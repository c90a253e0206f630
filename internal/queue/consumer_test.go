package queue

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func sampleEvent() ReservationEvent {
	return ReservationEvent{
		Type:               EventCancelled,
		ReservationID:      7,
		UserID:             3,
		SessionID:          11,
		SessionName:        "Morning Yoga",
		StartsAt:           time.Date(2030, 1, 15, 9, 0, 0, 0, time.UTC),
		PaymentAmountCents: 2000,
		ActorID:            1,
		Reason:             "sick",
		OccurredAt:         time.Date(2030, 1, 14, 8, 30, 0, 0, time.UTC),
	}
}

func TestFormatEvent(t *testing.T) {
	got := FormatEvent(sampleEvent())
	want := `[2030-01-14T08:30:00Z] reservation.cancelled | reservation_id=7 | user_id=3 | session_id=11 | session="Morning Yoga" | starts_at=2030-01-15T09:00:00Z | paid=false | amount=2000 cents | actor_id=1 | reason="sick"` + "\n"
	if got != want {
		t.Fatalf("FormatEvent:\n got %s\nwant %s", got, want)
	}
}

func TestWriteEventRejectsGarbage(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteEvent(&buf, []byte("{not json")); err == nil {
		t.Fatal("expected unmarshal error")
	}
	if err := WriteEvent(&buf, []byte(`{"type":""}`)); err == nil {
		t.Fatal("expected error for empty event")
	}
	if buf.Len() != 0 {
		t.Fatalf("nothing should be written, got %q", buf.String())
	}
}

func TestHandleAppendsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "reservations.log")
	c := &Consumer{LogPath: path}
	body, _ := json.Marshal(sampleEvent())
	for i := 0; i < 2; i++ {
		if err := c.handle(body); err != nil {
			t.Fatalf("handle: %v", err)
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(string(data), "\n"); n != 2 {
		t.Fatalf("want 2 lines, got %d: %q", n, data)
	}
}
