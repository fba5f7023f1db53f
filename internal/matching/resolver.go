package matching

import (
	"sort"
	"time"

	"revrecon/internal/domain"
)

// Resolution is the final 1:1 assignment over one partition.
type Resolution struct {
	Matches   []domain.ResolvedMatch
	Unmatched []domain.UnmatchedRecord
	Ambiguous []domain.AmbiguousTie
}

// Resolve converts candidate matches into a strict 1:1 assignment. Exact
// matches are fixed first; fuzzy candidates are claimed greedily in
// descending score order with a full deterministic tie-break chain (score,
// client event date, ledger event date, ledger id, client id). A candidate is
// skipped when either side is already claimed. Records left unclaimed become
// UnmatchedRecord entries.
//
// Greedy assignment approximates maximum-weight bipartite matching. It is not
// optimal, but it is deterministic, explainable, and linear in candidates,
// which the domain values over the last basis point of match rate.
func Resolve(exact []domain.ResolvedMatch, candidates []domain.CandidateMatch,
	client, ledger []domain.NormalizedRecord, idx *domain.RecordIndex) Resolution {

	claimedClient := make(map[string]bool, len(client))
	claimedLedger := make(map[string]bool, len(ledger))

	res := Resolution{}
	res.Matches = append(res.Matches, exact...)
	for _, m := range exact {
		claimedClient[m.ClientRecordID] = true
		claimedLedger[m.LedgerRecordID] = true
	}

	ordered := make([]domain.CandidateMatch, len(candidates))
	copy(ordered, candidates)
	sort.SliceStable(ordered, func(i, j int) bool {
		return candidateLess(ordered[i], ordered[j], idx)
	})

	for i, cand := range ordered {
		// Two candidates identical on every tie-break key cannot be ordered
		// meaningfully; surface the pair instead of pretending the pick was
		// principled.
		if i > 0 && candidateEqual(ordered[i-1], cand, idx) {
			res.Ambiguous = append(res.Ambiguous, domain.AmbiguousTie{
				ClientRecordID: cand.ClientRecordID,
				LedgerRecordID: cand.LedgerRecordID,
				Score:          cand.Score,
			})
		}
		if claimedClient[cand.ClientRecordID] || claimedLedger[cand.LedgerRecordID] {
			continue
		}
		claimedClient[cand.ClientRecordID] = true
		claimedLedger[cand.LedgerRecordID] = true
		res.Matches = append(res.Matches, domain.ResolvedMatch{
			ClientRecordID: cand.ClientRecordID,
			LedgerRecordID: cand.LedgerRecordID,
			Score:          cand.Score,
			Basis:          cand.Basis,
		})
	}

	for _, r := range sortedByID(client) {
		if !claimedClient[r.RecordID] {
			res.Unmatched = append(res.Unmatched, domain.UnmatchedRecord{RecordID: r.RecordID, Source: domain.SourceClient})
		}
	}
	for _, r := range sortedByID(ledger) {
		if !claimedLedger[r.RecordID] {
			res.Unmatched = append(res.Unmatched, domain.UnmatchedRecord{RecordID: r.RecordID, Source: domain.SourceLedger})
		}
	}
	return res
}

func candidateLess(a, b domain.CandidateMatch, idx *domain.RecordIndex) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	ad, bd := candidateDates(a, idx), candidateDates(b, idx)
	if !ad[0].Equal(bd[0]) {
		return ad[0].Before(bd[0])
	}
	if !ad[1].Equal(bd[1]) {
		return ad[1].Before(bd[1])
	}
	if a.LedgerRecordID != b.LedgerRecordID {
		return a.LedgerRecordID < b.LedgerRecordID
	}
	return a.ClientRecordID < b.ClientRecordID
}

func candidateEqual(a, b domain.CandidateMatch, idx *domain.RecordIndex) bool {
	return !candidateLess(a, b, idx) && !candidateLess(b, a, idx)
}

func candidateDates(c domain.CandidateMatch, idx *domain.RecordIndex) [2]time.Time {
	var dates [2]time.Time
	if r, ok := idx.Client(c.ClientRecordID); ok {
		dates[0] = r.EventDate
	}
	if r, ok := idx.Ledger(c.LedgerRecordID); ok {
		dates[1] = r.EventDate
	}
	return dates
}

func sortedByID(records []domain.NormalizedRecord) []domain.NormalizedRecord {
	out := make([]domain.NormalizedRecord, len(records))
	copy(out, records)
	sort.Slice(out, func(i, j int) bool { return out[i].RecordID < out[j].RecordID })
	return out
}
