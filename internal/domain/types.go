package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// HoldingKind classifies a tracked instrument.
type HoldingKind string

const (
	KindStock     HoldingKind = "stock"
	KindCrypto    HoldingKind = "crypto"
	KindCommodity HoldingKind = "commodity"
)

// Holding is a user-tracked financial instrument. Immutable for a pipeline run.
type Holding struct {
	Symbol      string
	Kind        HoldingKind
	DisplayName string
}

// CandidateItem is one raw news item produced by the search collaborator.
// URL is the identity key.
type CandidateItem struct {
	URL         string
	Title       string
	Description string
	SourceHost  string
}

// ArticleScore is the derived scoring record for one candidate item.
// Composite = Impact*0.6 + Relevance*10*0.3 + SourceQuality*10*0.1.
type ArticleScore struct {
	Impact        int
	Relevance     float64
	SourceQuality float64
	Composite     float64
	Reasoning     string
}

// MatchType identifies which matching method fired for a holding.
type MatchType string

const (
	MatchSymbol   MatchType = "symbol"
	MatchEntity   MatchType = "entity"
	MatchSoftLink MatchType = "soft-link"
)

// MatchResult links one candidate item to one holding.
type MatchResult struct {
	HoldingSymbol string
	Type          MatchType
	Confidence    float64
}

// Decision records the accept/reject outcome for an enriched item.
type Decision struct {
	Approved        bool
	RejectionReason string
}

// EnrichedItem is a candidate item after classification and matching.
type EnrichedItem struct {
	Item     CandidateItem
	Score    ArticleScore
	Matches  []MatchResult
	Decision Decision
}

// MatchesSymbol reports whether any match on the item references symbol.
func (e EnrichedItem) MatchesSymbol(symbol string) bool {
	for _, m := range e.Matches {
		if m.HoldingSymbol == symbol {
			return true
		}
	}
	return false
}

// PriceSnapshot is one normalized point-in-time price read for a symbol.
// Symbol is always the caller's uppercased symbol, never a provider alias.
// ChangePercent is 0 when the provider used offers no 7-day look-back.
type PriceSnapshot struct {
	Symbol          string
	CurrentPrice    decimal.Decimal
	Price7DaysAgo   decimal.Decimal
	ChangePercent   decimal.Decimal
	ChangePercent1D *decimal.Decimal
	Provider        string
	FetchedAt       time.Time
}

// PriceAlert marks a snapshot whose 7-day move exceeded the alert threshold.
type PriceAlert struct {
	Symbol    string
	Snapshot  PriceSnapshot
	Escalated bool
}

// EscalationKind enumerates possible escalation outcomes.
type EscalationKind string

const (
	EscalateNone         EscalationKind = "none"
	EscalateAskHuman     EscalationKind = "ask-human"
	EscalateDeepResearch EscalationKind = "deep-research"
)

// EscalationDecision is one fired trigger condition.
type EscalationDecision struct {
	Kind           EscalationKind
	Reason         string
	RelatedHolding string
}

// Finding is the output of one deep-research invocation.
type Finding struct {
	Learnings   []string
	VisitedURLs []string
}

// EscalationOutcome pairs a decision with its dispatch result. Error is the
// human-readable failure reason when the deep-research collaborator errored.
type EscalationOutcome struct {
	Decision EscalationDecision
	Findings *Finding
	Error    string
}

// SkippedItem records a candidate item excluded from the run, with reason.
type SkippedItem struct {
	URL    string
	Reason string
}

// SymbolFailure records a symbol whose price could not be resolved.
type SymbolFailure struct {
	Symbol string
	Reason string
}

// PipelineResult is the complete outcome of one pipeline run. A run always
// completes; partial failures are listed here, never silently dropped.
type PipelineResult struct {
	Items         []EnrichedItem
	Skipped       []SkippedItem
	Snapshots     []PriceSnapshot
	FailedSymbols []SymbolFailure
	Alerts        []PriceAlert
	Escalations   []EscalationOutcome
	StartedAt     time.Time
	FinishedAt    time.Time
}

// ApprovedCount returns the number of approved items in the result.
func (r PipelineResult) ApprovedCount() int {
	n := 0
	for _, it := range r.Items {
		if it.Decision.Approved {
			n++
		}
	}
	return n
}
