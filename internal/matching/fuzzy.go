package matching

import (
	"sort"
	"time"

	"revrecon/internal/config"
	"revrecon/internal/domain"
)

// MatchFuzzy generates similarity-scored candidates for the residue the
// deterministic pass could not pair. Candidates are blocked by service type
// and a bounded date window, so no full cross product is ever scored. The
// output is unresolved: the same record may appear in many candidates.
func MatchFuzzy(cfg *config.Config, residualClient, residualLedger []domain.NormalizedRecord) []domain.CandidateMatch {
	ledgerByService := make(map[string][]domain.NormalizedRecord)
	for _, r := range residualLedger {
		ledgerByService[r.ServiceType] = append(ledgerByService[r.ServiceType], r)
	}
	for svc := range ledgerByService {
		block := ledgerByService[svc]
		sort.Slice(block, func(i, j int) bool { return block[i].RecordID < block[j].RecordID })
	}

	client := make([]domain.NormalizedRecord, len(residualClient))
	copy(client, residualClient)
	sort.Slice(client, func(i, j int) bool { return client[i].RecordID < client[j].RecordID })

	var candidates []domain.CandidateMatch
	for _, c := range client {
		for _, l := range ledgerByService[c.ServiceType] {
			days := dateDistanceDays(c.EventDate, l.EventDate)
			if days > cfg.DateWindowDays {
				continue
			}
			features := domain.FeatureBreakdown{
				Site:    Similarity(c.SiteKey, l.SiteKey),
				Date:    dateScore(days, cfg.DateWindowDays),
				Service: 1.0, // equal by blocking
				Amount:  amountScore(c.AmountCents, l.AmountCents, cfg),
			}
			score := weighted(features, cfg.FieldWeights)
			if score < cfg.FuzzyFloor {
				continue
			}
			candidates = append(candidates, domain.CandidateMatch{
				ClientRecordID: c.RecordID,
				LedgerRecordID: l.RecordID,
				Score:          score,
				Basis:          domain.MatchBasisFuzzy,
				Features:       features,
			})
		}
	}
	return candidates
}

func weighted(f domain.FeatureBreakdown, w config.FieldWeights) float64 {
	total := w.Sum()
	if total <= 0 {
		return 0
	}
	return (f.Site*w.Site + f.Date*w.Date + f.Service*w.Service + f.Amount*w.Amount) / total
}

// dateScore decays linearly from 1 at zero distance to just above 0 at the
// window edge. Distance beyond the window never reaches here (blocking).
func dateScore(days, windowDays int) float64 {
	if days == 0 {
		return 1
	}
	return 1 - float64(days)/float64(windowDays+1)
}

// amountScore decays linearly within the configured tolerance, which is the
// wider of the percentage band and the absolute cent band.
func amountScore(clientCents, ledgerCents int64, cfg *config.Config) float64 {
	diff := clientCents - ledgerCents
	if diff < 0 {
		diff = -diff
	}
	if diff == 0 {
		return 1
	}
	larger := clientCents
	if ledgerCents > larger {
		larger = ledgerCents
	}
	if larger < 0 {
		larger = -larger
	}
	tolerance := float64(larger) * cfg.AmountTolerancePct / 100
	if abs := float64(cfg.AmountToleranceCents); abs > tolerance {
		tolerance = abs
	}
	if tolerance <= 0 || float64(diff) >= tolerance {
		return 0
	}
	return 1 - float64(diff)/tolerance
}

// dateDistanceDays returns the absolute distance in whole days between two
// event dates, comparing calendar days in UTC.
func dateDistanceDays(a, b time.Time) int {
	da := a.UTC().Truncate(24 * time.Hour)
	db := b.UTC().Truncate(24 * time.Hour)
	days := int(da.Sub(db).Hours() / 24)
	if days < 0 {
		days = -days
	}
	return days
}
