package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/example/dine-alert/internal/dining"
)

type Kind string

const (
	KindMatch   Kind = "match"
	KindFailure Kind = "failure"
)

// Message is the payload delivered to a notification target.
type Message struct {
	Kind   Kind
	Query  dining.ReservationQuery
	Slot   dining.ClockTime // set for KindMatch
	Link   string           // set for KindMatch
	Reason string           // set for KindFailure
}

func (m Message) Text() string {
	switch m.Kind {
	case KindMatch:
		return fmt.Sprintf("Table found at %s on %s at %s for a party of %d. Book: %s",
			m.Query.EntityID, m.Query.DateString(), m.Slot, m.Query.PartySize, m.Link)
	case KindFailure:
		return fmt.Sprintf("Stopped watching %s on %s (%s, party of %d): %s",
			m.Query.EntityID, m.Query.DateString(), m.Query.Meal, m.Query.PartySize, m.Reason)
	}
	return ""
}

// Sink delivers a message to an opaque target owned by the caller. The
// watcher never constructs targets, only forwards them.
type Sink interface {
	Deliver(ctx context.Context, target string, m Message) error
}

// LogSink writes alerts to the process log. Stands in for a chat
// delivery channel during local runs and tests.
type LogSink struct {
	Logger *slog.Logger
}

func (s LogSink) Deliver(ctx context.Context, target string, m Message) error {
	lg := s.Logger
	if lg == nil {
		lg = slog.Default()
	}
	lg.Info("alert", "target", target, "kind", string(m.Kind), "text", m.Text())
	return nil
}
