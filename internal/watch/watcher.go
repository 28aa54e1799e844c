package watch

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/dine-alert/internal/dining"
	"github.com/example/dine-alert/internal/notify"
)

// Checker is the availability dependency; satisfied by *dining.Client.
type Checker interface {
	CheckAvailability(ctx context.Context, q dining.ReservationQuery) ([]dining.TimeSlot, error)
}

type Config struct {
	PollInterval     time.Duration // delay between polls for one task (default 5m)
	CheckTimeout     time.Duration // bound on one availability call (default 15s)
	FailureThreshold int           // consecutive transient failures before Failed (default 5)
	SubmitJitter     time.Duration // upper bound of the random delay before the first check
	TickInterval     time.Duration // scheduler scan granularity (default 1s)
	SiteRoot         string        // root for booking deep links
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = 5 * time.Minute
	}
	if c.CheckTimeout <= 0 {
		c.CheckTimeout = 15 * time.Second
	}
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 5
	}
	if c.TickInterval <= 0 {
		c.TickInterval = time.Second
	}
	if c.SiteRoot == "" {
		c.SiteRoot = "https://disneyworld.disney.go.com"
	}
	return c
}

// Watcher owns every outstanding task and drives their polls. Polls for
// different tasks run concurrently; each task has at most one poll in
// flight, so a task leaves Pending exactly once and its notification
// fires exactly once.
type Watcher struct {
	checker Checker
	sink    notify.Sink
	cfg     Config
	log     *slog.Logger
	now     func() time.Time

	mu    sync.Mutex
	tasks map[string]*Task

	wg sync.WaitGroup
}

func New(checker Checker, sink notify.Sink, cfg Config) *Watcher {
	return &Watcher{
		checker: checker,
		sink:    sink,
		cfg:     cfg.withDefaults(),
		log:     slog.Default(),
		now:     time.Now,
		tasks:   make(map[string]*Task),
	}
}

// WithClock overrides the scheduling clock.
func (w *Watcher) WithClock(now func() time.Time) *Watcher {
	w.now = now
	return w
}

func (w *Watcher) WithLogger(lg *slog.Logger) *Watcher {
	if lg != nil {
		w.log = lg
	}
	return w
}

// Submit registers a watch for the query and schedules its first check
// immediately (plus jitter, when configured). It validates before
// touching the network and never blocks on a poll.
func (w *Watcher) Submit(q dining.ReservationQuery, target string) (*Task, error) {
	now := w.now()
	if err := q.Validate(now); err != nil {
		return nil, err
	}
	t := &Task{
		ID:          uuid.NewString(),
		Query:       q,
		Target:      target,
		state:       Pending,
		nextCheckAt: now,
	}
	if w.cfg.SubmitJitter > 0 {
		t.nextCheckAt = now.Add(time.Duration(rand.Int63n(int64(w.cfg.SubmitJitter))))
	}

	w.mu.Lock()
	w.tasks[t.ID] = t
	w.mu.Unlock()

	w.log.Info("watch submitted",
		"task", t.ID, "entity", q.EntityID, "date", q.DateString(),
		"meal", string(q.Meal), "party", q.PartySize)
	return t, nil
}

// Cancel withdraws a task. Cancelling an already-terminal task is a
// no-op. A poll already in flight completes, but its result is discarded
// and no notification is sent.
func (w *Watcher) Cancel(t *Task) {
	if t == nil {
		return
	}
	t.mu.Lock()
	if t.state != Pending {
		t.mu.Unlock()
		return
	}
	t.state = Cancelled
	t.mu.Unlock()

	w.remove(t.ID)
	w.log.Info("watch cancelled", "task", t.ID)
}

// Len reports the number of outstanding (non-terminal) tasks.
func (w *Watcher) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.tasks)
}

// Run drives the scheduling loop until ctx is done, then waits for
// in-flight polls to drain.
func (w *Watcher) Run(ctx context.Context) error {
	t := time.NewTicker(w.cfg.TickInterval)
	defer t.Stop()

	// kick immediately
	w.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			w.wg.Wait()
			return ctx.Err()
		case <-t.C:
			w.tick(ctx)
		}
	}
}

// tick launches one poll per due pending task. The per-task in-flight
// claim keeps polls sequential per task even when ticks outpace slow
// network calls. Submission and cancellation never wait on a tick.
func (w *Watcher) tick(ctx context.Context) {
	now := w.now()

	w.mu.Lock()
	outstanding := make([]*Task, 0, len(w.tasks))
	for _, t := range w.tasks {
		outstanding = append(outstanding, t)
	}
	w.mu.Unlock()

	for _, t := range outstanding {
		if !t.claim(now) {
			continue
		}
		t := t
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			w.poll(ctx, t)
		}()
	}
}

// poll runs one availability check for a claimed task and applies the
// outcome. Only the goroutine holding the claim may move the task out of
// Pending, and cancellation is re-checked before acting on the result.
func (w *Watcher) poll(ctx context.Context, t *Task) {
	cctx, cancel := context.WithTimeout(ctx, w.cfg.CheckTimeout)
	slots, err := w.checker.CheckAvailability(cctx, t.Query)
	cancel()

	t.mu.Lock()
	t.inFlight = false
	if t.state != Pending {
		// cancelled while the call was out; the result is discarded
		t.mu.Unlock()
		return
	}

	now := w.now()
	switch {
	case err == nil:
		if slot, ok := dining.EarliestInWindow(t.Query.Meal, slots); ok {
			t.state = Matched
			t.mu.Unlock()
			w.finish(ctx, t, notify.Message{
				Kind:  notify.KindMatch,
				Query: t.Query,
				Slot:  slot.Time,
				Link:  dining.BookingLink(w.cfg.SiteRoot, t.Query.EntityID, t.Query.Date, t.Query.PartySize),
			})
			return
		}
		t.failures = 0
		t.nextCheckAt = now.Add(w.cfg.PollInterval)
		t.mu.Unlock()
		w.log.Debug("no qualifying slot", "task", t.ID, "open", len(slots))

	case dining.IsTransient(err):
		t.failures++
		if t.failures >= w.cfg.FailureThreshold {
			t.state = Failed
			t.reason = fmt.Sprintf("%d consecutive failed checks, last: %v", t.failures, err)
			reason := t.reason
			t.mu.Unlock()
			w.finish(ctx, t, notify.Message{Kind: notify.KindFailure, Query: t.Query, Reason: reason})
			return
		}
		failures := t.failures
		t.nextCheckAt = now.Add(w.cfg.PollInterval)
		t.mu.Unlock()
		w.log.Warn("availability check failed", "task", t.ID, "failures", failures, "err", err)

	default:
		// permanent; unclassified errors are not retried either
		t.state = Failed
		t.reason = err.Error()
		t.mu.Unlock()
		w.finish(ctx, t, notify.Message{Kind: notify.KindFailure, Query: t.Query, Reason: err.Error()})
	}
}

// finish deregisters a task that reached a terminal state and delivers
// its single notification. Delivery failure is logged, never retried,
// and never re-triggers a poll.
func (w *Watcher) finish(ctx context.Context, t *Task, m notify.Message) {
	w.remove(t.ID)
	if err := w.sink.Deliver(ctx, t.Target, m); err != nil {
		w.log.Error("alert delivery failed", "task", t.ID, "err", err)
	}
	w.log.Info("watch finished", "task", t.ID, "state", t.State().String())
}

func (w *Watcher) remove(id string) {
	w.mu.Lock()
	delete(w.tasks, id)
	w.mu.Unlock()
}
