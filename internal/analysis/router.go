package analysis

import (
	"fmt"

	"revrecon/internal/config"
	"revrecon/internal/domain"
)

// Route applies the (confidence, impact) decision table to every classified
// exception. High confidence plus low impact auto-resolves with the
// classifier's suggested fix recorded for audit; everything else escalates to
// the review queue. Nothing is dropped: every exception yields exactly one
// decision.
func Route(exceptions []domain.ClassifiedException, cfg *config.Config) []domain.RoutingDecision {
	decisions := make([]domain.RoutingDecision, 0, len(exceptions))
	for _, exc := range exceptions {
		decisions = append(decisions, route(exc, cfg))
	}
	return decisions
}

func route(exc domain.ClassifiedException, cfg *config.Config) domain.RoutingDecision {
	impact := exc.Difference.DollarDelta
	if impact < 0 {
		impact = -impact
	}

	if exc.Confidence >= cfg.AutoResolveConfidenceFloor && impact <= cfg.AutoResolveImpactCeiling {
		return domain.RoutingDecision{
			Exception: exc,
			Action:    domain.ActionAutoResolved,
			Reason: fmt.Sprintf("confidence %.2f >= %.2f and impact $%d <= $%d",
				exc.Confidence, cfg.AutoResolveConfidenceFloor, impact, cfg.AutoResolveImpactCeiling),
		}
	}

	reason := fmt.Sprintf("impact $%d exceeds $%d ceiling", impact, cfg.AutoResolveImpactCeiling)
	if exc.Confidence < cfg.AutoResolveConfidenceFloor {
		reason = fmt.Sprintf("confidence %.2f below %.2f floor", exc.Confidence, cfg.AutoResolveConfidenceFloor)
	}
	return domain.RoutingDecision{
		Exception: exc,
		Action:    domain.ActionEscalated,
		Reason:    reason,
	}
}
