// Package escalate holds the rule-based escalation decision engine and the
// deep-research collaborator boundary.
package escalate

import (
	"fmt"

	"github.com/peterbitar/holdingswatch/internal/domain"
)

const (
	highImpactFloor      = 7
	ambiguousImpactFloor = 5
	ambiguousImpactCeil  = 6
	confidentMatchFloor  = 0.8
)

// Evaluate runs the escalation rules over the enriched batch. Rules are
// checked in priority order and the engine returns after the first rule
// fires; lower-priority rules are never reached once one has matched.
// Pure and deterministic, no I/O.
func Evaluate(items []domain.EnrichedItem, holdings []domain.Holding, topHoldings []string) []domain.EscalationDecision {
	if d, ok := uncoveredTopHolding(items, topHoldings); ok {
		return []domain.EscalationDecision{d}
	}
	if d, ok := filteredHighImpact(items); ok {
		return []domain.EscalationDecision{d}
	}
	if d, ok := ambiguousRelevance(items); ok {
		return []domain.EscalationDecision{d}
	}
	return nil
}

// TopCoverageDecision is the deep-research decision fired when non-empty top
// holdings have zero approved coverage. Shared with the orchestrator's
// unconditional check so duplicate decisions can be recognized.
func TopCoverageDecision(topHoldings []string) domain.EscalationDecision {
	return domain.EscalationDecision{
		Kind:           domain.EscalateDeepResearch,
		Reason:         fmt.Sprintf("no approved coverage for top holdings %v", topHoldings),
		RelatedHolding: topHoldings[0],
	}
}

// TopHoldingsCovered reports whether any approved item matches one of the
// top holdings.
func TopHoldingsCovered(items []domain.EnrichedItem, topHoldings []string) bool {
	for _, it := range items {
		if !it.Decision.Approved {
			continue
		}
		for _, symbol := range topHoldings {
			if it.MatchesSymbol(symbol) {
				return true
			}
		}
	}
	return false
}

// Rule 1: non-empty top holdings with zero approved coverage always warrant
// deep research.
func uncoveredTopHolding(items []domain.EnrichedItem, topHoldings []string) (domain.EscalationDecision, bool) {
	if len(topHoldings) == 0 {
		return domain.EscalationDecision{}, false
	}
	if TopHoldingsCovered(items, topHoldings) {
		return domain.EscalationDecision{}, false
	}
	return TopCoverageDecision(topHoldings), true
}

// Rule 2: an impactful on-topic item was filtered out; worth a second look.
func filteredHighImpact(items []domain.EnrichedItem) (domain.EscalationDecision, bool) {
	for _, it := range items {
		if it.Score.Impact >= highImpactFloor && len(it.Matches) > 0 && !it.Decision.Approved {
			return domain.EscalationDecision{
				Kind:           domain.EscalateDeepResearch,
				Reason:         fmt.Sprintf("high-impact item rejected: %q (impact %d)", it.Item.Title, it.Score.Impact),
				RelatedHolding: it.Matches[0].HoldingSymbol,
			}, true
		}
	}
	return domain.EscalationDecision{}, false
}

// Rule 3: genuinely ambiguous relevance; not worth deep research, but worth
// a human glance.
func ambiguousRelevance(items []domain.EnrichedItem) (domain.EscalationDecision, bool) {
	for _, it := range items {
		if it.Score.Impact < ambiguousImpactFloor || it.Score.Impact > ambiguousImpactCeil || len(it.Matches) == 0 {
			continue
		}
		allWeak := true
		for _, m := range it.Matches {
			if m.Confidence >= confidentMatchFloor {
				allWeak = false
				break
			}
		}
		if allWeak {
			return domain.EscalationDecision{
				Kind:           domain.EscalateAskHuman,
				Reason:         fmt.Sprintf("ambiguous relevance for %q (impact %d, weak matches only)", it.Item.Title, it.Score.Impact),
				RelatedHolding: it.Matches[0].HoldingSymbol,
			}, true
		}
	}
	return domain.EscalationDecision{}, false
}
