package matching

import (
	"sort"

	"revrecon/internal/domain"
)

// DeterministicResult is the output of the exact composite-key pass.
type DeterministicResult struct {
	Matches        []domain.ResolvedMatch
	ResidualClient []domain.NormalizedRecord
	ResidualLedger []domain.NormalizedRecord
	// DuplicateSuspects holds residual records from key groups where the two
	// sides were unbalanced while at least one pair matched. Those residuals
	// are same-key collisions the classifier reads as likely duplicates.
	DuplicateSuspects map[domain.RecordRef]bool
}

// MatchDeterministic joins the two record sets on the exact composite key
// (site, date, service, whole-dollar amount). Within a key group records pair
// 1:1 in ascending record id order until one side runs out; the excess passes
// through as residue for the fuzzy matcher. Matches come back sorted by
// ascending client record id, independent of key iteration order.
func MatchDeterministic(client, ledger []domain.NormalizedRecord) DeterministicResult {
	clientGroups := groupByKey(client)
	ledgerGroups := groupByKey(ledger)

	keys := make([]domain.CompositeKey, 0, len(clientGroups))
	for key := range clientGroups {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })

	result := DeterministicResult{
		DuplicateSuspects: make(map[domain.RecordRef]bool),
	}
	matchedClient := make(map[string]bool)
	matchedLedger := make(map[string]bool)

	for _, key := range keys {
		cGroup := clientGroups[key]
		lGroup := ledgerGroups[key]
		n := len(cGroup)
		if len(lGroup) < n {
			n = len(lGroup)
		}
		for i := 0; i < n; i++ {
			result.Matches = append(result.Matches, domain.ResolvedMatch{
				ClientRecordID: cGroup[i].RecordID,
				LedgerRecordID: lGroup[i].RecordID,
				Score:          1.0,
				Basis:          domain.MatchBasisExact,
			})
			matchedClient[cGroup[i].RecordID] = true
			matchedLedger[lGroup[i].RecordID] = true
		}
		// Unbalanced group with at least one pairing: the leftovers collided
		// on an exact key that was already consumed.
		if n > 0 && len(cGroup) != len(lGroup) {
			for _, r := range cGroup[n:] {
				result.DuplicateSuspects[r.Ref()] = true
			}
			for _, r := range lGroup[n:] {
				result.DuplicateSuspects[r.Ref()] = true
			}
		}
	}

	for _, r := range client {
		if !matchedClient[r.RecordID] {
			result.ResidualClient = append(result.ResidualClient, r)
		}
	}
	for _, r := range ledger {
		if !matchedLedger[r.RecordID] {
			result.ResidualLedger = append(result.ResidualLedger, r)
		}
	}
	sort.Slice(result.Matches, func(i, j int) bool {
		return result.Matches[i].ClientRecordID < result.Matches[j].ClientRecordID
	})
	return result
}

func groupByKey(records []domain.NormalizedRecord) map[domain.CompositeKey][]domain.NormalizedRecord {
	groups := make(map[domain.CompositeKey][]domain.NormalizedRecord)
	for _, r := range records {
		key := r.Key()
		groups[key] = append(groups[key], r)
	}
	for key := range groups {
		group := groups[key]
		sort.Slice(group, func(i, j int) bool { return group[i].RecordID < group[j].RecordID })
	}
	return groups
}
