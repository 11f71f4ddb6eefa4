package price

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/peterbitar/holdingswatch/internal/domain"
	"github.com/peterbitar/holdingswatch/internal/refdata"
)

var dec100 = decimal.NewFromInt(100)

// Options tune resolver behaviour.
type Options struct {
	// AttemptTimeout bounds each individual provider call.
	AttemptTimeout time.Duration
	// RetryBackoff is the fixed pause before the single retry of a
	// retryable failure.
	RetryBackoff time.Duration
	// BatchConcurrency caps in-flight symbol look-ups during batch
	// resolution, to respect provider-side connection and rate limits.
	BatchConcurrency int
	// CacheTTL enables the advisory read-through snapshot cache when
	// positive. Correctness never depends on cache hits.
	CacheTTL time.Duration
}

func (o Options) withDefaults() Options {
	if o.AttemptTimeout <= 0 {
		o.AttemptTimeout = 15 * time.Second
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = 2 * time.Second
	}
	if o.BatchConcurrency <= 0 {
		o.BatchConcurrency = 3
	}
	return o
}

// Resolver walks an ordered provider chain per symbol class, first success
// wins. Stateless per call apart from the optional TTL cache.
type Resolver struct {
	crypto   Provider
	enriched Provider
	series   Provider
	general  Provider
	opts     Options
	logger   zerolog.Logger
	cache    *ttlcache.Cache[string, domain.PriceSnapshot]
}

// Chain providers may be nil; nil entries are skipped when walking.
type Chain struct {
	Crypto   Provider // dedicated crypto quote API
	Enriched Provider // quote + fundamentals + news, richer payload
	Series   Provider // price time series, gives the 7-day look-back
	General  Provider // general-purpose, always-available last resort
}

// NewResolver builds a resolver over the configured provider chain.
func NewResolver(chain Chain, opts Options, logger zerolog.Logger) *Resolver {
	opts = opts.withDefaults()
	r := &Resolver{
		crypto:   chain.Crypto,
		enriched: chain.Enriched,
		series:   chain.Series,
		general:  chain.General,
		opts:     opts,
		logger:   logger.With().Str("component", "price_resolver").Logger(),
	}
	if opts.CacheTTL > 0 {
		r.cache = ttlcache.New[string, domain.PriceSnapshot](
			ttlcache.WithTTL[string, domain.PriceSnapshot](opts.CacheTTL),
		)
	}
	return r
}

// chainFor orders providers for one symbol class. Crypto symbols prefer the
// dedicated crypto API, known ETFs the cheaper general-purpose provider;
// everything else walks enriched, then time-series, then general-purpose.
func (r *Resolver) chainFor(symbol string, kind domain.HoldingKind) []Provider {
	equities := []Provider{r.enriched, r.series, r.general}

	var ordered []Provider
	switch {
	case kind == domain.KindCrypto:
		ordered = append([]Provider{r.crypto}, equities...)
	case refdata.IsKnownETF(symbol):
		ordered = []Provider{r.general, r.enriched, r.series}
	default:
		ordered = equities
	}

	chain := make([]Provider, 0, len(ordered))
	for _, p := range ordered {
		if p != nil {
			chain = append(chain, p)
		}
	}
	return chain
}

// Resolve fetches and normalizes one snapshot. Total time is bounded by the
// per-provider timeouts across the attempted chain. When every provider
// fails the error wraps domain.ErrAllProvidersExhausted; the caller treats
// that as an explicit no-data outcome.
func (r *Resolver) Resolve(ctx context.Context, symbol string, kind domain.HoldingKind) (domain.PriceSnapshot, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return domain.PriceSnapshot{}, fmt.Errorf("empty symbol")
	}

	if r.cache != nil {
		if item := r.cache.Get(symbol); item != nil {
			return item.Value(), nil
		}
	}

	chain := r.chainFor(symbol, kind)
	if len(chain) == 0 {
		return domain.PriceSnapshot{}, fmt.Errorf("%w: no providers configured for %s", domain.ErrAllProvidersExhausted, symbol)
	}

	var lastErr error
	for _, p := range chain {
		quote, err := r.attempt(ctx, p, symbol)
		if err != nil {
			lastErr = err
			r.logger.Warn().Err(err).
				Str("provider", p.Name()).
				Str("symbol", symbol).
				Msg("provider failed, falling back")
			if ctx.Err() != nil {
				break
			}
			continue
		}

		snap := normalize(symbol, p.Name(), quote)
		if r.cache != nil {
			r.cache.Set(symbol, snap, ttlcache.DefaultTTL)
		}
		return snap, nil
	}

	return domain.PriceSnapshot{}, fmt.Errorf("%w: %s: %v", domain.ErrAllProvidersExhausted, symbol, lastErr)
}

// attempt runs one provider call with its own timeout, retrying exactly once
// with fixed backoff on a retryable failure.
func (r *Resolver) attempt(ctx context.Context, p Provider, symbol string) (Quote, error) {
	quote, err := r.boundedQuote(ctx, p, symbol)
	if err == nil {
		return quote, nil
	}
	if !retryable(err) || ctx.Err() != nil {
		return Quote{}, fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}

	select {
	case <-ctx.Done():
		return Quote{}, fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, ctx.Err())
	case <-time.After(r.opts.RetryBackoff):
	}

	quote, err = r.boundedQuote(ctx, p, symbol)
	if err != nil {
		return Quote{}, fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}
	return quote, nil
}

func (r *Resolver) boundedQuote(ctx context.Context, p Provider, symbol string) (Quote, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, r.opts.AttemptTimeout)
	defer cancel()
	return p.Quote(attemptCtx, symbol)
}

// normalize builds the snapshot shape from one provider call. ChangePercent
// is derived from prices of the same call, never merged across providers,
// and explicitly zero when the 7-day look-back was unavailable.
func normalize(symbol, provider string, q Quote) domain.PriceSnapshot {
	snap := domain.PriceSnapshot{
		Symbol:          symbol,
		CurrentPrice:    q.CurrentPrice,
		Provider:        provider,
		ChangePercent1D: q.ChangePercent1D,
		FetchedAt:       time.Now().UTC(),
	}
	if q.Has7Day && !q.Price7DaysAgo.IsZero() {
		snap.Price7DaysAgo = q.Price7DaysAgo
		snap.ChangePercent = q.CurrentPrice.Sub(q.Price7DaysAgo).Div(q.Price7DaysAgo).Mul(dec100)
	}
	return snap
}

// BatchResult reports a batch resolution, including which symbols failed.
type BatchResult struct {
	Snapshots []domain.PriceSnapshot
	Failed    []domain.SymbolFailure
}

// ResolveBatch resolves snapshots for many holdings with bounded concurrency.
// Failures are collected per symbol; one symbol failing never aborts the rest.
func (r *Resolver) ResolveBatch(ctx context.Context, holdings []domain.Holding) BatchResult {
	var (
		mu     sync.Mutex
		result BatchResult
	)

	g := &errgroup.Group{}
	g.SetLimit(r.opts.BatchConcurrency)

	for _, h := range holdings {
		h := h
		g.Go(func() error {
			snap, err := r.Resolve(ctx, h.Symbol, h.Kind)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed = append(result.Failed, domain.SymbolFailure{
					Symbol: strings.ToUpper(h.Symbol),
					Reason: err.Error(),
				})
				return nil
			}
			result.Snapshots = append(result.Snapshots, snap)
			return nil
		})
	}
	_ = g.Wait()

	return result
}
