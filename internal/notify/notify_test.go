package notify

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/example/dine-alert/internal/dining"
)

func testQuery() dining.ReservationQuery {
	date, _ := dining.ParseDate("2026-12-25")
	return dining.ReservationQuery{
		EntityID:  "rest-123",
		Date:      date,
		Meal:      dining.Dinner,
		PartySize: 4,
	}
}

func TestMatchMessageText(t *testing.T) {
	slot, _ := dining.ParseClock("18:15")
	m := Message{
		Kind:  KindMatch,
		Query: testQuery(),
		Slot:  slot,
		Link:  "https://example.com/dine-reservation/rest-123/2026-12-25/4",
	}
	text := m.Text()
	for _, want := range []string{"rest-123", "2026-12-25", "18:15", "party of 4", m.Link} {
		if !strings.Contains(text, want) {
			t.Errorf("match text %q missing %q", text, want)
		}
	}
}

func TestFailureMessageText(t *testing.T) {
	m := Message{
		Kind:   KindFailure,
		Query:  testQuery(),
		Reason: "5 consecutive failed checks",
	}
	text := m.Text()
	for _, want := range []string{"rest-123", "2026-12-25", "dinner", m.Reason} {
		if !strings.Contains(text, want) {
			t.Errorf("failure text %q missing %q", text, want)
		}
	}
}

func TestLogSinkDelivers(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := (LogSink{}).Deliver(ctx, "user-1", Message{Kind: KindMatch, Query: testQuery()}); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
}
