package analysis

import (
	"math"

	"revrecon/internal/config"
	"revrecon/internal/domain"
)

// Summarize rolls the run outputs into the dashboard KPIs: match rate,
// average absolute variance, the share of matched pairs inside the variance
// tolerance, and the total absolute variance in dollars.
func Summarize(period string, totalClient, totalLedger int,
	differences []domain.DifferenceRecord, decisions []domain.RoutingDecision,
	quarantined int, cfg *config.Config) domain.Summary {

	s := domain.Summary{
		Period:             period,
		TotalClientRecords: totalClient,
		TotalLedgerRecords: totalLedger,
		Quarantined:        quarantined,
	}

	var matchedVariancePctSum float64
	var withinTolerance int
	for _, d := range differences {
		if d.IsMissing() {
			if d.Unmatched.Source == domain.SourceClient {
				s.UnmatchedClient++
			} else {
				s.UnmatchedLedger++
			}
			s.TotalVarianceDollars += abs64(d.DollarDelta)
			continue
		}
		s.MatchedPairs++
		pct := math.Abs(d.PercentDelta) * 100
		matchedVariancePctSum += pct
		if pct <= cfg.VarianceTolerancePct {
			withinTolerance++
		}
		s.TotalVarianceDollars += abs64(d.DollarDelta)
	}

	totalJobs := s.MatchedPairs + s.UnmatchedClient
	if alt := s.MatchedPairs + s.UnmatchedLedger; alt > totalJobs {
		totalJobs = alt
	}
	if totalJobs > 0 {
		s.MatchRatePct = round2(float64(s.MatchedPairs) / float64(totalJobs) * 100)
	}
	if s.MatchedPairs > 0 {
		s.AvgVariancePct = round2(matchedVariancePctSum / float64(s.MatchedPairs))
		s.WithinTolerancePct = round2(float64(withinTolerance) / float64(s.MatchedPairs) * 100)
	}

	for _, dec := range decisions {
		switch dec.Action {
		case domain.ActionAutoResolved:
			s.AutoResolved++
		case domain.ActionEscalated:
			s.Escalated++
		}
	}
	return s
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
