package analysis

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"revrecon/internal/domain"
)

func matchedDiff(clientID, ledgerID string, delta int64, pct float64) domain.DifferenceRecord {
	m := match(clientID, ledgerID)
	dir := domain.DirectionEqual
	switch {
	case delta > 0:
		dir = domain.DirectionClientHigher
	case delta < 0:
		dir = domain.DirectionLedgerHigher
	}
	return domain.DifferenceRecord{Match: &m, DollarDelta: delta, PercentDelta: pct, Direction: dir}
}

func missingDiff(u domain.UnmatchedRecord, delta int64) domain.DifferenceRecord {
	dir := domain.DirectionMissingLedger
	pct := 1.0
	if u.Source == domain.SourceLedger {
		dir = domain.DirectionMissingClient
		pct = -1.0
	}
	return domain.DifferenceRecord{Unmatched: &u, DollarDelta: delta, PercentDelta: pct, Direction: dir}
}

func TestSummarizeCountsAndRates(t *testing.T) {
	differences := []domain.DifferenceRecord{
		matchedDiff("C1", "L1", 0, 0),
		matchedDiff("C2", "L2", 100, 0.1),
		missingDiff(unmatchedClient("C3"), 50),
		missingDiff(unmatchedClient("C4"), 25),
	}
	decisions := []domain.RoutingDecision{
		{Exception: exception(0.90, 50), Action: domain.ActionAutoResolved},
		{Exception: exception(0.10, 25), Action: domain.ActionEscalated},
	}

	s := Summarize("2025-01", 4, 2, differences, decisions, 1, testConfig())

	assert.Equal(t, "2025-01", s.Period)
	assert.Equal(t, 4, s.TotalClientRecords)
	assert.Equal(t, 2, s.TotalLedgerRecords)
	assert.Equal(t, 2, s.MatchedPairs)
	assert.Equal(t, 50.0, s.MatchRatePct)
	assert.Equal(t, 5.0, s.AvgVariancePct)
	assert.Equal(t, 50.0, s.WithinTolerancePct)
	assert.Equal(t, int64(175), s.TotalVarianceDollars)
	assert.Equal(t, 2, s.UnmatchedClient)
	assert.Equal(t, 0, s.UnmatchedLedger)
	assert.Equal(t, 1, s.Quarantined)
	assert.Equal(t, 1, s.AutoResolved)
	assert.Equal(t, 1, s.Escalated)
}

func TestSummarizeEmptyRun(t *testing.T) {
	s := Summarize("2025-02", 0, 0, nil, nil, 0, testConfig())

	assert.Equal(t, 0, s.MatchedPairs)
	assert.Equal(t, 0.0, s.MatchRatePct)
	assert.Equal(t, 0.0, s.AvgVariancePct)
	assert.Equal(t, 0.0, s.WithinTolerancePct)
	assert.Equal(t, int64(0), s.TotalVarianceDollars)
}

func TestSummarizeMatchRateUsesLargerSide(t *testing.T) {
	// One match plus three unmatched ledger records: the denominator is the
	// side with more jobs.
	differences := []domain.DifferenceRecord{
		matchedDiff("C1", "L1", 0, 0),
		missingDiff(unmatchedLedger("L2"), -10),
		missingDiff(unmatchedLedger("L3"), -10),
		missingDiff(unmatchedLedger("L4"), -10),
	}

	s := Summarize("2025-01", 1, 4, differences, nil, 0, testConfig())

	assert.Equal(t, 1, s.MatchedPairs)
	assert.Equal(t, 3, s.UnmatchedLedger)
	assert.Equal(t, 25.0, s.MatchRatePct)
	assert.Equal(t, int64(30), s.TotalVarianceDollars)
}

func TestSummarizeGolden(t *testing.T) {
	differences := []domain.DifferenceRecord{
		matchedDiff("C1", "L1", 0, 0),
		matchedDiff("C2", "L2", 100, 0.1),
		missingDiff(unmatchedClient("C3"), 50),
		missingDiff(unmatchedClient("C4"), 25),
	}
	decisions := []domain.RoutingDecision{
		{Exception: exception(0.90, 50), Action: domain.ActionAutoResolved},
		{Exception: exception(0.10, 25), Action: domain.ActionEscalated},
	}

	s := Summarize("2025-01", 4, 2, differences, decisions, 1, testConfig())

	data, err := json.MarshalIndent(s, "", "  ")
	require.NoError(t, err)

	g := goldie.New(t)
	g.Assert(t, "summary", data)
}
