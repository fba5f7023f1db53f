package audit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"revrecon/internal/domain"
)

func TestTrailSequentialIDs(t *testing.T) {
	trail := NewTrail("run-1", FixedClock{Time: time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)})

	first := trail.Record(domain.StageExactMatch, []string{"C1", "L1"}, []string{"C1<->L1"}, "paired on exact key")
	second := trail.Record(domain.StageDiff, []string{"C1<->L1"}, nil, "delta $0")

	assert.Equal(t, "EV-000001", first.EventID)
	assert.Equal(t, "EV-000002", second.EventID)
	assert.Equal(t, "run-1", first.RunID)
	assert.Equal(t, time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC), first.Timestamp)
}

func TestTrailEventsPreserveAppendOrder(t *testing.T) {
	trail := NewTrail("run-1", FixedClock{Time: time.Unix(0, 0).UTC()})
	stages := []domain.Stage{
		domain.StageQuarantine,
		domain.StageExactMatch,
		domain.StageFuzzyMatch,
		domain.StageResolve,
		domain.StageDiff,
		domain.StageClassify,
		domain.StageRoute,
		domain.StageRunComplete,
	}
	for _, s := range stages {
		trail.Record(s, nil, nil, "")
	}

	events := trail.Events()
	require.Len(t, events, len(stages))
	for i, ev := range events {
		assert.Equal(t, stages[i], ev.Stage)
	}
}

func TestTrailEventsReturnsCopy(t *testing.T) {
	trail := NewTrail("run-1", nil)
	trail.Record(domain.StageRunComplete, nil, nil, "done")

	events := trail.Events()
	events[0].Note = "tampered"

	assert.Equal(t, "done", trail.Events()[0].Note)
}

func TestTrailDefaultsToSystemClock(t *testing.T) {
	trail := NewTrail("run-1", nil)
	before := time.Now().UTC().Add(-time.Second)

	ev := trail.Record(domain.StageQuarantine, nil, nil, "")

	assert.False(t, ev.Timestamp.Before(before))
	assert.False(t, ev.Timestamp.After(time.Now().UTC().Add(time.Second)))
}
