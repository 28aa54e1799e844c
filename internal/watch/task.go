package watch

import (
	"sync"
	"time"

	"github.com/example/dine-alert/internal/dining"
)

// State is the lifecycle position of a watch task. Matched, Cancelled
// and Failed are terminal; a terminal task is never polled again.
type State int

const (
	Pending State = iota
	Matched
	Cancelled
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Matched:
		return "matched"
	case Cancelled:
		return "cancelled"
	case Failed:
		return "failed"
	}
	return "unknown"
}

func (s State) Terminal() bool { return s != Pending }

// Task is the unit of outstanding polling work for one query. The query
// and target are immutable; everything else is guarded by mu.
type Task struct {
	ID     string
	Query  dining.ReservationQuery
	Target string // opaque notify handle, owned by the caller

	mu          sync.Mutex
	state       State
	nextCheckAt time.Time
	failures    int // consecutive transient failures
	inFlight    bool
	reason      string // set on the Failed transition
}

func (t *Task) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Task) NextCheckAt() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.nextCheckAt
}

// FailureReason returns the reason recorded when the task failed.
func (t *Task) FailureReason() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.reason
}

// claim marks a poll in flight if the task is still pending, due, and
// has no other poll outstanding. At most one goroutine holds the claim,
// which is what makes terminal transitions exactly-once.
func (t *Task) claim(now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != Pending || t.inFlight || t.nextCheckAt.After(now) {
		return false
	}
	t.inFlight = true
	return true
}
