package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"revrecon/internal/domain"
)

func candidate(clientID, ledgerID string, score float64) domain.CandidateMatch {
	return domain.CandidateMatch{
		ClientRecordID: clientID,
		LedgerRecordID: ledgerID,
		Score:          score,
		Basis:          domain.MatchBasisFuzzy,
	}
}

func TestResolveGreedyPicksHighestScore(t *testing.T) {
	client := []domain.NormalizedRecord{
		clientRecord("C1", "2025-01-05", "riverside depot", "HAUL", 100000),
		clientRecord("C2", "2025-01-05", "riverside dpt", "HAUL", 100000),
	}
	ledger := []domain.NormalizedRecord{
		ledgerRecord("L1", "2025-01-05", "riverside depot", "HAUL", 100000),
	}
	idx := domain.NewRecordIndex(client, ledger)

	candidates := []domain.CandidateMatch{
		candidate("C1", "L1", 0.90),
		candidate("C2", "L1", 0.70),
	}

	res := Resolve(nil, candidates, client, ledger, idx)

	require.Len(t, res.Matches, 1)
	assert.Equal(t, "C1", res.Matches[0].ClientRecordID)
	assert.Equal(t, "L1", res.Matches[0].LedgerRecordID)

	require.Len(t, res.Unmatched, 1)
	assert.Equal(t, domain.UnmatchedRecord{RecordID: "C2", Source: domain.SourceClient}, res.Unmatched[0])
}

func TestResolveExactMatchesClaimFirst(t *testing.T) {
	client := []domain.NormalizedRecord{
		clientRecord("C1", "2025-01-05", "riverside depot", "HAUL", 100000),
	}
	ledger := []domain.NormalizedRecord{
		ledgerRecord("L1", "2025-01-05", "riverside depot", "HAUL", 100000),
	}
	idx := domain.NewRecordIndex(client, ledger)

	exact := []domain.ResolvedMatch{{ClientRecordID: "C1", LedgerRecordID: "L1", Score: 1.0, Basis: domain.MatchBasisExact}}
	// A stray fuzzy candidate for an already-claimed side is skipped.
	candidates := []domain.CandidateMatch{candidate("C1", "L1", 0.80)}

	res := Resolve(exact, candidates, client, ledger, idx)
	require.Len(t, res.Matches, 1)
	assert.Equal(t, domain.MatchBasisExact, res.Matches[0].Basis)
	assert.Empty(t, res.Unmatched)
}

func TestResolveOneToOneInvariant(t *testing.T) {
	client := []domain.NormalizedRecord{
		clientRecord("C1", "2025-01-05", "a", "HAUL", 100000),
		clientRecord("C2", "2025-01-05", "b", "HAUL", 100000),
		clientRecord("C3", "2025-01-05", "c", "HAUL", 100000),
	}
	ledger := []domain.NormalizedRecord{
		ledgerRecord("L1", "2025-01-05", "a", "HAUL", 100000),
		ledgerRecord("L2", "2025-01-05", "b", "HAUL", 100000),
	}
	idx := domain.NewRecordIndex(client, ledger)

	// Dense many-to-many candidate set.
	var candidates []domain.CandidateMatch
	scores := map[string]float64{
		"C1L1": 0.9, "C1L2": 0.8,
		"C2L1": 0.85, "C2L2": 0.75,
		"C3L1": 0.7, "C3L2": 0.65,
	}
	for _, c := range []string{"C1", "C2", "C3"} {
		for _, l := range []string{"L1", "L2"} {
			candidates = append(candidates, candidate(c, l, scores[c+l]))
		}
	}

	res := Resolve(nil, candidates, client, ledger, idx)

	seenClient := map[string]bool{}
	seenLedger := map[string]bool{}
	for _, m := range res.Matches {
		assert.False(t, seenClient[m.ClientRecordID], "client %s resolved twice", m.ClientRecordID)
		assert.False(t, seenLedger[m.LedgerRecordID], "ledger %s resolved twice", m.LedgerRecordID)
		seenClient[m.ClientRecordID] = true
		seenLedger[m.LedgerRecordID] = true
	}
	// C1 takes L1 (0.9), then C2's best remaining is L2 (0.75), C3 is out.
	require.Len(t, res.Matches, 2)
	assert.Equal(t, "C1", res.Matches[0].ClientRecordID)
	assert.Equal(t, "L1", res.Matches[0].LedgerRecordID)
	assert.Equal(t, "C2", res.Matches[1].ClientRecordID)
	assert.Equal(t, "L2", res.Matches[1].LedgerRecordID)
	require.Len(t, res.Unmatched, 1)
	assert.Equal(t, "C3", res.Unmatched[0].RecordID)
}

func TestResolveTieBreakByDateThenIDs(t *testing.T) {
	client := []domain.NormalizedRecord{
		clientRecord("C1", "2025-01-07", "riverside depot", "HAUL", 100000),
		clientRecord("C2", "2025-01-05", "riverside depot", "HAUL", 100000),
	}
	ledger := []domain.NormalizedRecord{
		ledgerRecord("L1", "2025-01-06", "riverside depot", "HAUL", 100000),
	}
	idx := domain.NewRecordIndex(client, ledger)

	// Equal scores: the earlier client event date wins.
	candidates := []domain.CandidateMatch{
		candidate("C1", "L1", 0.8),
		candidate("C2", "L1", 0.8),
	}

	res := Resolve(nil, candidates, client, ledger, idx)
	require.Len(t, res.Matches, 1)
	assert.Equal(t, "C2", res.Matches[0].ClientRecordID)
}

func TestResolveTieBreakByLedgerID(t *testing.T) {
	client := []domain.NormalizedRecord{
		clientRecord("C1", "2025-01-05", "riverside depot", "HAUL", 100000),
	}
	ledger := []domain.NormalizedRecord{
		ledgerRecord("L1", "2025-01-05", "riverside depot", "HAUL", 100000),
		ledgerRecord("L2", "2025-01-05", "riverside depot", "HAUL", 100000),
	}
	idx := domain.NewRecordIndex(client, ledger)

	candidates := []domain.CandidateMatch{
		candidate("C1", "L2", 0.8),
		candidate("C1", "L1", 0.8),
	}

	res := Resolve(nil, candidates, client, ledger, idx)
	require.Len(t, res.Matches, 1)
	assert.Equal(t, "L1", res.Matches[0].LedgerRecordID)
}

func TestResolveReportsAmbiguousDuplicateCandidates(t *testing.T) {
	client := []domain.NormalizedRecord{clientRecord("C1", "2025-01-05", "riverside depot", "HAUL", 100000)}
	ledger := []domain.NormalizedRecord{ledgerRecord("L1", "2025-01-05", "riverside depot", "HAUL", 100000)}
	idx := domain.NewRecordIndex(client, ledger)

	// The same pair submitted twice is indistinguishable on every tie-break
	// key: it must be surfaced, not silently deduplicated.
	candidates := []domain.CandidateMatch{
		candidate("C1", "L1", 0.8),
		candidate("C1", "L1", 0.8),
	}

	res := Resolve(nil, candidates, client, ledger, idx)
	require.Len(t, res.Matches, 1)
	require.Len(t, res.Ambiguous, 1)
	assert.Equal(t, "C1", res.Ambiguous[0].ClientRecordID)
	assert.Equal(t, "L1", res.Ambiguous[0].LedgerRecordID)
}

func TestResolveEverythingUnmatchedWithoutCandidates(t *testing.T) {
	client := []domain.NormalizedRecord{clientRecord("C2", "2025-01-05", "a", "HAUL", 500000)}
	ledger := []domain.NormalizedRecord{ledgerRecord("L7", "2025-01-20", "b", "HAUL", 100)}
	idx := domain.NewRecordIndex(client, ledger)

	res := Resolve(nil, nil, client, ledger, idx)
	assert.Empty(t, res.Matches)
	require.Len(t, res.Unmatched, 2)
	// Client side first, then ledger.
	assert.Equal(t, domain.SourceClient, res.Unmatched[0].Source)
	assert.Equal(t, domain.SourceLedger, res.Unmatched[1].Source)
}
