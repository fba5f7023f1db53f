package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"revrecon/internal/domain"
)

func TestMatchFuzzyNoisySiteName(t *testing.T) {
	// Deterministic matching misses on the site text; the fuzzy pass should
	// still score this pair well above the floor.
	cfg := testConfig()
	client := []domain.NormalizedRecord{clientRecord("C1", "2025-01-05", "Riverside Depot", "HAUL", 100000)}
	ledger := []domain.NormalizedRecord{ledgerRecord("L9", "2025-01-06", "Riverside Dpt", "HAUL", 100000)}

	candidates := MatchFuzzy(cfg, client, ledger)

	require.Len(t, candidates, 1)
	cand := candidates[0]
	assert.Equal(t, "C1", cand.ClientRecordID)
	assert.Equal(t, "L9", cand.LedgerRecordID)
	assert.Equal(t, domain.MatchBasisFuzzy, cand.Basis)
	assert.GreaterOrEqual(t, cand.Score, cfg.FuzzyFloor)
	assert.Greater(t, cand.Features.Site, 0.8)
	assert.InDelta(t, 0.75, cand.Features.Date, 1e-9) // 1 day inside a 3-day window
	assert.Equal(t, 1.0, cand.Features.Service)
	assert.Equal(t, 1.0, cand.Features.Amount)
}

func TestMatchFuzzyBlocksOnServiceType(t *testing.T) {
	cfg := testConfig()
	client := []domain.NormalizedRecord{clientRecord("C1", "2025-01-05", "riverside depot", "HAUL", 100000)}
	ledger := []domain.NormalizedRecord{ledgerRecord("L1", "2025-01-05", "riverside depot", "SWEEP", 100000)}

	assert.Empty(t, MatchFuzzy(cfg, client, ledger))
}

func TestMatchFuzzyBlocksOutsideDateWindow(t *testing.T) {
	cfg := testConfig()
	cfg.DateWindowDays = 3
	client := []domain.NormalizedRecord{clientRecord("C1", "2025-01-05", "riverside depot", "HAUL", 100000)}
	ledger := []domain.NormalizedRecord{ledgerRecord("L1", "2025-01-09", "riverside depot", "HAUL", 100000)}

	assert.Empty(t, MatchFuzzy(cfg, client, ledger))
}

func TestMatchFuzzyBelowFloorDropped(t *testing.T) {
	cfg := testConfig()
	client := []domain.NormalizedRecord{clientRecord("C1", "2025-01-05", "riverside depot", "HAUL", 100000)}
	// Unrelated site and far-off amount.
	ledger := []domain.NormalizedRecord{ledgerRecord("L1", "2025-01-08", "gx", "HAUL", 900000)}

	assert.Empty(t, MatchFuzzy(cfg, client, ledger))
}

func TestMatchFuzzyManyToManyCandidates(t *testing.T) {
	// Two near-identical ledger records: both become candidates, unresolved.
	cfg := testConfig()
	client := []domain.NormalizedRecord{clientRecord("C1", "2025-01-05", "riverside depot", "HAUL", 100000)}
	ledger := []domain.NormalizedRecord{
		ledgerRecord("L1", "2025-01-05", "riverside depo", "HAUL", 100000),
		ledgerRecord("L2", "2025-01-06", "riverside depot", "HAUL", 100000),
	}

	candidates := MatchFuzzy(cfg, client, ledger)
	require.Len(t, candidates, 2)
	assert.Equal(t, "L1", candidates[0].LedgerRecordID)
	assert.Equal(t, "L2", candidates[1].LedgerRecordID)
}

func TestAmountScore(t *testing.T) {
	cfg := testConfig() // 5% or $50, whichever is larger

	tests := []struct {
		name   string
		client int64
		ledger int64
		want   float64
	}{
		{name: "equal", client: 100000, ledger: 100000, want: 1.0},
		{name: "at half the pct tolerance", client: 102500, ledger: 100000, want: 1 - 2500.0/5125.0},
		{name: "outside tolerance", client: 100000, ledger: 50000, want: 0.0},
		{name: "absolute band dominates for small amounts", client: 3000, ledger: 1000, want: 1 - 2000.0/5000.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, amountScore(tt.client, tt.ledger, cfg), 1e-9)
		})
	}
}

func TestMatchFuzzyDeterministicOrder(t *testing.T) {
	cfg := testConfig()
	client := []domain.NormalizedRecord{
		clientRecord("C2", "2025-01-05", "riverside depot", "HAUL", 100000),
		clientRecord("C1", "2025-01-05", "riverside depot", "HAUL", 100000),
	}
	ledger := []domain.NormalizedRecord{
		ledgerRecord("L2", "2025-01-05", "riverside depot", "HAUL", 100000),
		ledgerRecord("L1", "2025-01-05", "riverside depot", "HAUL", 100000),
	}

	first := MatchFuzzy(cfg, client, ledger)
	second := MatchFuzzy(cfg, client, ledger)
	assert.Equal(t, first, second)
	require.Len(t, first, 4)
	// Sorted by client id, then ledger id within the block.
	assert.Equal(t, "C1", first[0].ClientRecordID)
	assert.Equal(t, "L1", first[0].LedgerRecordID)
	assert.Equal(t, "C1", first[1].ClientRecordID)
	assert.Equal(t, "L2", first[1].LedgerRecordID)
}
