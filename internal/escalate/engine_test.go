package escalate

import (
	"testing"

	"github.com/peterbitar/holdingswatch/internal/domain"
)

func approvedItem(symbol string, impact int) domain.EnrichedItem {
	return domain.EnrichedItem{
		Item:  domain.CandidateItem{URL: "https://example.com/" + symbol, Title: symbol + " news"},
		Score: domain.ArticleScore{Impact: impact, Relevance: 0.9, Composite: 7.5},
		Matches: []domain.MatchResult{
			{HoldingSymbol: symbol, Type: domain.MatchSymbol, Confidence: 0.95},
		},
		Decision: domain.Decision{Approved: true},
	}
}

func rejectedItem(symbol string, impact int, confidence float64) domain.EnrichedItem {
	return domain.EnrichedItem{
		Item:  domain.CandidateItem{URL: "https://example.com/r-" + symbol, Title: symbol + " rumor"},
		Score: domain.ArticleScore{Impact: impact, Relevance: 0.3, Composite: 4.0},
		Matches: []domain.MatchResult{
			{HoldingSymbol: symbol, Type: domain.MatchEntity, Confidence: confidence},
		},
		Decision: domain.Decision{Approved: false, RejectionReason: "composite below threshold"},
	}
}

func TestUncoveredTopHoldings(t *testing.T) {
	items := []domain.EnrichedItem{approvedItem("MSFT", 8)}

	decisions := Evaluate(items, nil, []string{"AAPL", "BTC"})
	if len(decisions) != 1 {
		t.Fatalf("expected 1 decision, got %d", len(decisions))
	}
	if decisions[0].Kind != domain.EscalateDeepResearch {
		t.Fatalf("uncovered top holdings must trigger deep research, got %s", decisions[0].Kind)
	}
	if decisions[0].RelatedHolding != "AAPL" {
		t.Fatalf("unexpected related holding %q", decisions[0].RelatedHolding)
	}
}

func TestTopCoverageSatisfied(t *testing.T) {
	items := []domain.EnrichedItem{approvedItem("AAPL", 8)}

	decisions := Evaluate(items, nil, []string{"AAPL"})
	if decisions != nil {
		t.Fatalf("covered top holdings should not escalate, got %+v", decisions)
	}
}

func TestEmptyBatchWithTopHoldings(t *testing.T) {
	decisions := Evaluate(nil, nil, []string{"AAPL"})
	if len(decisions) != 1 || decisions[0].Kind != domain.EscalateDeepResearch {
		t.Fatalf("an empty batch leaves top holdings uncovered, got %+v", decisions)
	}
}

func TestFilteredHighImpact(t *testing.T) {
	items := []domain.EnrichedItem{
		approvedItem("AAPL", 6),
		rejectedItem("AAPL", 8, 0.95),
	}

	decisions := Evaluate(items, nil, []string{"AAPL"})
	if len(decisions) != 1 {
		t.Fatalf("expected 1 decision, got %+v", decisions)
	}
	if decisions[0].Kind != domain.EscalateDeepResearch {
		t.Fatalf("rejected high-impact item must trigger deep research, got %s", decisions[0].Kind)
	}
}

func TestRulePriority(t *testing.T) {
	// Both rule 1 (uncovered top holding) and rule 2 (rejected high-impact
	// item) are satisfied here. Only rule 1 may fire.
	items := []domain.EnrichedItem{rejectedItem("MSFT", 9, 0.95)}

	decisions := Evaluate(items, nil, []string{"AAPL"})
	if len(decisions) != 1 {
		t.Fatalf("expected exactly 1 decision, got %+v", decisions)
	}
	if decisions[0].RelatedHolding != "AAPL" {
		t.Fatalf("higher-priority rule must win, got decision for %q", decisions[0].RelatedHolding)
	}
}

func TestAmbiguousRelevance(t *testing.T) {
	items := []domain.EnrichedItem{
		approvedItem("AAPL", 6),
		rejectedItem("MSFT", 5, 0.6),
	}

	decisions := Evaluate(items, nil, []string{"AAPL"})
	if len(decisions) != 1 {
		t.Fatalf("expected 1 decision, got %+v", decisions)
	}
	if decisions[0].Kind != domain.EscalateAskHuman {
		t.Fatalf("weak mid-impact matches should ask a human, got %s", decisions[0].Kind)
	}
	if decisions[0].RelatedHolding != "MSFT" {
		t.Fatalf("unexpected related holding %q", decisions[0].RelatedHolding)
	}
}

func TestAmbiguityNeedsAllMatchesWeak(t *testing.T) {
	item := rejectedItem("MSFT", 5, 0.6)
	item.Matches = append(item.Matches, domain.MatchResult{
		HoldingSymbol: "MSFT", Type: domain.MatchSymbol, Confidence: 0.95,
	})
	items := []domain.EnrichedItem{approvedItem("AAPL", 6), item}

	if decisions := Evaluate(items, nil, []string{"AAPL"}); decisions != nil {
		t.Fatalf("one confident match should suppress the ambiguity rule, got %+v", decisions)
	}
}

func TestNoRuleFires(t *testing.T) {
	items := []domain.EnrichedItem{approvedItem("AAPL", 6)}

	if decisions := Evaluate(items, nil, []string{"AAPL"}); decisions != nil {
		t.Fatalf("expected no escalation, got %+v", decisions)
	}
}
