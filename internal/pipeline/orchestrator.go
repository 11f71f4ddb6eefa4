// Package pipeline orchestrates one research pass: classification and
// matching of candidate items, price cross-checks for stock holdings, and
// escalation dispatch. A run always completes and reports which items,
// symbols, and escalations succeeded or failed.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/peterbitar/holdingswatch/internal/classify"
	"github.com/peterbitar/holdingswatch/internal/domain"
	"github.com/peterbitar/holdingswatch/internal/escalate"
	"github.com/peterbitar/holdingswatch/internal/match"
	"github.com/peterbitar/holdingswatch/internal/price"
	"github.com/peterbitar/holdingswatch/internal/telemetry"
)

// Options tune one pipeline run.
type Options struct {
	// MaxConcurrent bounds the classify+match fan-out, to respect rate
	// limits on the scoring collaborator.
	MaxConcurrent int
	// MinComposite is the acceptance threshold on the composite score.
	MinComposite float64
	// AlertThresholdPct marks a 7-day move as a price alert when exceeded
	// in absolute value.
	AlertThresholdPct float64
}

func (o Options) withDefaults() Options {
	if o.MaxConcurrent <= 0 {
		o.MaxConcurrent = 4
	}
	if o.MinComposite <= 0 {
		o.MinComposite = 5
	}
	if o.AlertThresholdPct <= 0 {
		o.AlertThresholdPct = 5
	}
	return o
}

// Orchestrator consumes a batch of candidate items plus the holdings list
// and produces the full pipeline result.
type Orchestrator struct {
	classifier *classify.Classifier
	resolver   *price.Resolver
	invoker    escalate.Invoker
	sink       telemetry.Sink
	logger     zerolog.Logger
}

// New wires the orchestrator. Resolver and invoker may be nil: without a
// resolver the price cross-check is skipped, without an invoker escalations
// are recorded but not dispatched.
func New(classifier *classify.Classifier, resolver *price.Resolver, invoker escalate.Invoker, sink telemetry.Sink, logger zerolog.Logger) *Orchestrator {
	if sink == nil {
		sink = telemetry.NopSink{}
	}
	return &Orchestrator{
		classifier: classifier,
		resolver:   resolver,
		invoker:    invoker,
		sink:       sink,
		logger:     logger.With().Str("component", "pipeline").Logger(),
	}
}

// Run executes the full pass. Only a configuration error (empty holdings)
// is fatal; per-item and per-symbol failures are isolated and reported on
// the result.
func (o *Orchestrator) Run(ctx context.Context, items []domain.CandidateItem, holdings []domain.Holding, topHoldings []string, opts Options) (domain.PipelineResult, error) {
	if len(holdings) == 0 {
		return domain.PipelineResult{}, errors.New("holdings list must not be empty")
	}
	opts = opts.withDefaults()

	result := domain.PipelineResult{StartedAt: time.Now().UTC()}

	enriched, skipped := o.enrich(ctx, items, holdings, opts)
	result.Items = enriched
	result.Skipped = skipped

	var priceEscalations []domain.EscalationDecision
	if o.resolver != nil {
		priceEscalations = o.crossCheckPrices(ctx, &result, holdings, opts)
	}

	decisions := escalate.Evaluate(result.Items, holdings, topHoldings)

	// Top holdings must always have either coverage or an explicit
	// escalation. Rule 1 of the engine normally produces this decision;
	// the check here keeps the guarantee even when the engine is bypassed
	// or changed, without dispatching the same research twice.
	if len(topHoldings) > 0 && !escalate.TopHoldingsCovered(result.Items, topHoldings) {
		want := escalate.TopCoverageDecision(topHoldings)
		if !containsDecision(decisions, want) {
			decisions = append(decisions, want)
		}
	}

	// Price-move escalations are independent of and additive to the
	// engine's decisions.
	decisions = append(decisions, priceEscalations...)

	result.Escalations = o.dispatch(ctx, decisions)
	result.FinishedAt = time.Now().UTC()

	o.logger.Info().
		Int("items", len(result.Items)).
		Int("skipped", len(result.Skipped)).
		Int("approved", result.ApprovedCount()).
		Int("alerts", len(result.Alerts)).
		Int("escalations", len(result.Escalations)).
		Msg("pipeline run complete")

	return result, nil
}

// enrich classifies and matches every item with bounded concurrency. The
// returned slice preserves input order regardless of completion order; a
// failed item is excluded with a logged skip and never surfaces partial
// fields.
func (o *Orchestrator) enrich(ctx context.Context, items []domain.CandidateItem, holdings []domain.Holding, opts Options) ([]domain.EnrichedItem, []domain.SkippedItem) {
	type slot struct {
		item domain.EnrichedItem
		skip *domain.SkippedItem
	}
	slots := make([]slot, len(items))

	g := &errgroup.Group{}
	g.SetLimit(opts.MaxConcurrent)

	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			score, err := o.classifier.Classify(ctx, item, holdings)
			if err != nil {
				o.logger.Warn().Err(err).Str("url", item.URL).Msg("item skipped")
				slots[i].skip = &domain.SkippedItem{URL: item.URL, Reason: err.Error()}
				return nil
			}

			matches := match.Match(item, holdings)
			slots[i].item = domain.EnrichedItem{
				Item:     item,
				Score:    score,
				Matches:  matches,
				Decision: decide(score, matches, opts.MinComposite),
			}
			return nil
		})
	}
	_ = g.Wait()

	enriched := make([]domain.EnrichedItem, 0, len(items))
	var skipped []domain.SkippedItem
	for _, s := range slots {
		if s.skip != nil {
			skipped = append(skipped, *s.skip)
			continue
		}
		enriched = append(enriched, s.item)
	}
	return enriched, skipped
}

// decide applies the single acceptance rule: approved iff the composite
// score meets the threshold and at least one holding matched.
func decide(score domain.ArticleScore, matches []domain.MatchResult, minComposite float64) domain.Decision {
	if score.Composite >= minComposite && len(matches) > 0 {
		return domain.Decision{Approved: true}
	}
	if len(matches) == 0 {
		return domain.Decision{RejectionReason: "no tracked holding matched"}
	}
	return domain.Decision{RejectionReason: fmt.Sprintf("composite score %.2f below threshold %.1f", score.Composite, minComposite)}
}

// crossCheckPrices resolves snapshots for all stock holdings and flags
// large unexplained moves. A large move with zero corroborating approved
// coverage is inherently suspicious and must be explained.
func (o *Orchestrator) crossCheckPrices(ctx context.Context, result *domain.PipelineResult, holdings []domain.Holding, opts Options) []domain.EscalationDecision {
	var stocks []domain.Holding
	for _, h := range holdings {
		if h.Kind == domain.KindStock {
			stocks = append(stocks, h)
		}
	}
	if len(stocks) == 0 {
		return nil
	}

	batch := o.resolver.ResolveBatch(ctx, stocks)
	result.Snapshots = batch.Snapshots
	result.FailedSymbols = batch.Failed

	for _, snap := range batch.Snapshots {
		o.sink.Record(telemetry.Event{
			Kind:     telemetry.KindProviderCall,
			Provider: snap.Provider,
			Symbol:   snap.Symbol,
		})
	}

	threshold := decimal.NewFromFloat(opts.AlertThresholdPct)
	var escalations []domain.EscalationDecision
	for _, snap := range batch.Snapshots {
		if !snap.ChangePercent.Abs().GreaterThan(threshold) {
			continue
		}

		alert := domain.PriceAlert{Symbol: snap.Symbol, Snapshot: snap}
		if !hasApprovedCoverage(result.Items, snap.Symbol) {
			alert.Escalated = true
			escalations = append(escalations, domain.EscalationDecision{
				Kind:           domain.EscalateDeepResearch,
				Reason:         fmt.Sprintf("unexplained price move: %s changed %s%% over 7 days with no approved coverage", snap.Symbol, snap.ChangePercent.StringFixed(2)),
				RelatedHolding: snap.Symbol,
			})
		}
		result.Alerts = append(result.Alerts, alert)
	}
	return escalations
}

func hasApprovedCoverage(items []domain.EnrichedItem, symbol string) bool {
	for _, it := range items {
		if it.Decision.Approved && it.MatchesSymbol(symbol) {
			return true
		}
	}
	return false
}

// dispatch sends each deep-research decision to the collaborator. A failed
// invocation is reported on its own escalation entry and does not abort the
// others; the orchestrator performs no retries of its own.
func (o *Orchestrator) dispatch(ctx context.Context, decisions []domain.EscalationDecision) []domain.EscalationOutcome {
	outcomes := make([]domain.EscalationOutcome, 0, len(decisions))
	for _, d := range decisions {
		outcome := domain.EscalationOutcome{Decision: d}

		if d.Kind == domain.EscalateDeepResearch && o.invoker != nil {
			findings, err := o.invoker.Research(ctx, d.Reason)
			if err != nil {
				wrapped := fmt.Errorf("%w: %v", domain.ErrDeepResearchFailed, err)
				o.logger.Error().Err(wrapped).Str("holding", d.RelatedHolding).Msg("deep research dispatch failed")
				outcome.Error = wrapped.Error()
			} else {
				outcome.Findings = &findings
			}
			o.sink.Record(telemetry.Event{
				Kind:   telemetry.KindEscalation,
				Symbol: d.RelatedHolding,
				Detail: string(d.Kind),
			})
		}

		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

func containsDecision(decisions []domain.EscalationDecision, want domain.EscalationDecision) bool {
	for _, d := range decisions {
		if d.Kind == want.Kind && d.Reason == want.Reason {
			return true
		}
	}
	return false
}
