// Package analysis computes variances, assigns root-cause categories, routes
// exceptions, and summarizes run KPIs.
package analysis

import (
	"revrecon/internal/domain"
)

// Diff computes one DifferenceRecord per resolved match and per unmatched
// singleton. Deltas are in whole dollars (cents are ignored per domain rule);
// PercentDelta is the signed fraction dollar_delta / max(client, ledger, 1).
// Pure function of its inputs: no randomness, no mutation.
func Diff(matches []domain.ResolvedMatch, unmatched []domain.UnmatchedRecord, idx *domain.RecordIndex) []domain.DifferenceRecord {
	out := make([]domain.DifferenceRecord, 0, len(matches)+len(unmatched))

	for i := range matches {
		m := matches[i]
		client, _ := idx.Client(m.ClientRecordID)
		ledger, _ := idx.Ledger(m.LedgerRecordID)
		delta := domain.RoundCentsToDollars(client.AmountCents - ledger.AmountCents)

		direction := domain.DirectionEqual
		switch {
		case delta > 0:
			direction = domain.DirectionClientHigher
		case delta < 0:
			direction = domain.DirectionLedgerHigher
		}

		out = append(out, domain.DifferenceRecord{
			Match:        &matches[i],
			DollarDelta:  delta,
			PercentDelta: percentDelta(delta, client.AmountCents, ledger.AmountCents),
			Direction:    direction,
		})
	}

	for i := range unmatched {
		u := unmatched[i]
		rec, _ := idx.Lookup(u.Ref())
		dollars := domain.RoundCentsToDollars(rec.AmountCents)

		diff := domain.DifferenceRecord{Unmatched: &unmatched[i]}
		if u.Source == domain.SourceClient {
			// Client record with no ledger counterpart.
			diff.Direction = domain.DirectionMissingLedger
			diff.DollarDelta = dollars
			diff.PercentDelta = 1
		} else {
			diff.Direction = domain.DirectionMissingClient
			diff.DollarDelta = -dollars
			diff.PercentDelta = -1
		}
		out = append(out, diff)
	}

	return out
}

func percentDelta(deltaDollars, clientCents, ledgerCents int64) float64 {
	base := domain.RoundCentsToDollars(clientCents)
	if l := domain.RoundCentsToDollars(ledgerCents); l > base {
		base = l
	}
	if base < 1 {
		base = 1
	}
	return float64(deltaDollars) / float64(base)
}
