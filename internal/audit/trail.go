// Package audit records the append-only decision trail of a run.
package audit

import (
	"fmt"
	"sync"
	"time"

	"revrecon/internal/domain"
)

// Clock abstracts wall-clock time so tests can pin timestamps.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real time in UTC.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// FixedClock always returns the same instant.
type FixedClock struct {
	Time time.Time
}

// Now returns the fixed instant.
func (c FixedClock) Now() time.Time { return c.Time }

// Trail is the append-only audit record of one run. Event ids are a per-run
// sequence, so two runs over the same input produce identical trails apart
// from run id and timestamps. Events are never mutated or removed.
type Trail struct {
	runID string
	clock Clock

	mu     sync.Mutex
	seq    int
	events []domain.AuditEvent
}

// NewTrail creates an empty trail for a run.
func NewTrail(runID string, clock Clock) *Trail {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Trail{runID: runID, clock: clock}
}

// Record appends one event and returns it.
func (t *Trail) Record(stage domain.Stage, inputRefs, outputRefs []string, note string) domain.AuditEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seq++
	ev := domain.AuditEvent{
		EventID:    fmt.Sprintf("EV-%06d", t.seq),
		Stage:      stage,
		InputRefs:  inputRefs,
		OutputRefs: outputRefs,
		Note:       note,
		Timestamp:  t.clock.Now(),
		RunID:      t.runID,
	}
	t.events = append(t.events, ev)
	return ev
}

// Events returns a copy of the trail in append order.
func (t *Trail) Events() []domain.AuditEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]domain.AuditEvent, len(t.events))
	copy(out, t.events)
	return out
}
