package price

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/peterbitar/holdingswatch/internal/domain"
)

// scriptedProvider returns the scripted result for each successive call.
type scriptedProvider struct {
	name string
	fn   func(call int) (Quote, error)

	mu      sync.Mutex
	calls   int
	symbols []string
}

func (p *scriptedProvider) Name() string { return p.name }

func (p *scriptedProvider) Quote(ctx context.Context, symbol string) (Quote, error) {
	p.mu.Lock()
	p.calls++
	n := p.calls
	p.symbols = append(p.symbols, symbol)
	p.mu.Unlock()
	return p.fn(n)
}

func (p *scriptedProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func quoteAt(current, weekAgo float64) Quote {
	return Quote{
		CurrentPrice:  decimal.NewFromFloat(current),
		Price7DaysAgo: decimal.NewFromFloat(weekAgo),
		Has7Day:       true,
	}
}

func alwaysQuote(q Quote) func(int) (Quote, error) {
	return func(int) (Quote, error) { return q, nil }
}

func alwaysFail(err error) func(int) (Quote, error) {
	return func(int) (Quote, error) { return Quote{}, err }
}

func fastOpts() Options {
	return Options{
		AttemptTimeout:   time.Second,
		RetryBackoff:     time.Millisecond,
		BatchConcurrency: 3,
	}
}

func TestFallbackWalksChainInOrder(t *testing.T) {
	enriched := &scriptedProvider{name: "enriched", fn: alwaysFail(&StatusError{Provider: "enriched", Status: 500})}
	series := &scriptedProvider{name: "series", fn: alwaysFail(&StatusError{Provider: "series", Status: 404})}
	general := &scriptedProvider{name: "general", fn: alwaysQuote(quoteAt(100, 95))}

	r := NewResolver(Chain{Enriched: enriched, Series: series, General: general}, fastOpts(), zerolog.Nop())

	snap, err := r.Resolve(context.Background(), "NVDA", domain.KindStock)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if snap.Provider != "general" {
		t.Fatalf("expected the last provider to serve the quote, got %q", snap.Provider)
	}
	// (100-95)/95*100 = 5.263...
	want := decimal.RequireFromString("5.263")
	if snap.ChangePercent.Sub(want).Abs().GreaterThan(decimal.RequireFromString("0.001")) {
		t.Fatalf("expected 7-day change near 5.263, got %s", snap.ChangePercent)
	}
	// Retryable 500 gets exactly one retry; permanent 404 gets none.
	if got := enriched.callCount(); got != 2 {
		t.Fatalf("retryable failure should be attempted twice, got %d calls", got)
	}
	if got := series.callCount(); got != 1 {
		t.Fatalf("permanent failure should not be retried, got %d calls", got)
	}
}

func TestRetryThenSuccess(t *testing.T) {
	flaky := &scriptedProvider{name: "enriched", fn: func(call int) (Quote, error) {
		if call == 1 {
			return Quote{}, &StatusError{Provider: "enriched", Status: 429}
		}
		return quoteAt(50, 48), nil
	}}

	r := NewResolver(Chain{Enriched: flaky}, fastOpts(), zerolog.Nop())

	snap, err := r.Resolve(context.Background(), "NVDA", domain.KindStock)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if snap.Provider != "enriched" || flaky.callCount() != 2 {
		t.Fatalf("expected success on the retry, provider=%q calls=%d", snap.Provider, flaky.callCount())
	}
}

func TestAllProvidersExhausted(t *testing.T) {
	down := &scriptedProvider{name: "enriched", fn: alwaysFail(&StatusError{Provider: "enriched", Status: 503})}
	gone := &scriptedProvider{name: "general", fn: alwaysFail(&StatusError{Provider: "general", Status: 404})}

	r := NewResolver(Chain{Enriched: down, General: gone}, fastOpts(), zerolog.Nop())

	_, err := r.Resolve(context.Background(), "NVDA", domain.KindStock)
	if !errors.Is(err, domain.ErrAllProvidersExhausted) {
		t.Fatalf("expected ErrAllProvidersExhausted, got %v", err)
	}
}

func TestSymbolNormalized(t *testing.T) {
	p := &scriptedProvider{name: "general", fn: alwaysQuote(quoteAt(10, 9))}
	r := NewResolver(Chain{General: p}, fastOpts(), zerolog.Nop())

	snap, err := r.Resolve(context.Background(), "  nvda ", domain.KindStock)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if snap.Symbol != "NVDA" {
		t.Fatalf("snapshot symbol should be uppercased, got %q", snap.Symbol)
	}
	if p.symbols[0] != "NVDA" {
		t.Fatalf("provider should receive the normalized symbol, got %q", p.symbols[0])
	}
}

func TestNoSevenDayLookback(t *testing.T) {
	p := &scriptedProvider{name: "enriched", fn: alwaysQuote(Quote{
		CurrentPrice: decimal.NewFromFloat(123.45),
		Has7Day:      false,
	})}
	r := NewResolver(Chain{Enriched: p}, fastOpts(), zerolog.Nop())

	snap, err := r.Resolve(context.Background(), "NVDA", domain.KindStock)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if !snap.ChangePercent.IsZero() {
		t.Fatalf("change percent must be zero without a 7-day look-back, got %s", snap.ChangePercent)
	}
	if !snap.Price7DaysAgo.IsZero() {
		t.Fatalf("no 7-day price should be reported, got %s", snap.Price7DaysAgo)
	}
}

func TestCryptoPrefersCryptoProvider(t *testing.T) {
	crypto := &scriptedProvider{name: "crypto", fn: alwaysQuote(quoteAt(60000, 58000))}
	enriched := &scriptedProvider{name: "enriched", fn: alwaysQuote(quoteAt(1, 1))}

	r := NewResolver(Chain{Crypto: crypto, Enriched: enriched}, fastOpts(), zerolog.Nop())

	snap, err := r.Resolve(context.Background(), "BTC", domain.KindCrypto)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if snap.Provider != "crypto" || enriched.callCount() != 0 {
		t.Fatalf("crypto chain should start at the crypto provider, got %q", snap.Provider)
	}
}

func TestKnownETFPrefersGeneralProvider(t *testing.T) {
	enriched := &scriptedProvider{name: "enriched", fn: alwaysQuote(quoteAt(1, 1))}
	general := &scriptedProvider{name: "general", fn: alwaysQuote(quoteAt(500, 490))}

	r := NewResolver(Chain{Enriched: enriched, General: general}, fastOpts(), zerolog.Nop())

	snap, err := r.Resolve(context.Background(), "SPY", domain.KindStock)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if snap.Provider != "general" || enriched.callCount() != 0 {
		t.Fatalf("known ETF should start at the general provider, got %q", snap.Provider)
	}
}

func TestCacheServesRepeatLookups(t *testing.T) {
	p := &scriptedProvider{name: "general", fn: alwaysQuote(quoteAt(10, 9))}
	opts := fastOpts()
	opts.CacheTTL = time.Minute
	r := NewResolver(Chain{General: p}, opts, zerolog.Nop())

	if _, err := r.Resolve(context.Background(), "NVDA", domain.KindStock); err != nil {
		t.Fatalf("first resolve failed: %v", err)
	}
	if _, err := r.Resolve(context.Background(), "NVDA", domain.KindStock); err != nil {
		t.Fatalf("second resolve failed: %v", err)
	}
	if got := p.callCount(); got != 1 {
		t.Fatalf("second lookup should hit the cache, got %d provider calls", got)
	}
}

func TestResolveBatchCollectsFailures(t *testing.T) {
	p := &scriptedProvider{name: "general", fn: alwaysQuote(quoteAt(10, 9))}
	crypto := &scriptedProvider{name: "crypto", fn: alwaysFail(&StatusError{Provider: "crypto", Status: 404})}

	r := NewResolver(Chain{Crypto: crypto, General: p}, fastOpts(), zerolog.Nop())

	holdings := []domain.Holding{
		{Symbol: "NVDA", Kind: domain.KindStock},
		{Symbol: "msft", Kind: domain.KindStock},
	}
	res := r.ResolveBatch(context.Background(), holdings)
	if len(res.Snapshots) != 2 || len(res.Failed) != 0 {
		t.Fatalf("expected 2 snapshots and no failures, got %d/%d", len(res.Snapshots), len(res.Failed))
	}

	// A crypto symbol with only a broken crypto provider and a working
	// general fallback still resolves; break the fallback too.
	rBroken := NewResolver(Chain{Crypto: crypto}, fastOpts(), zerolog.Nop())
	res = rBroken.ResolveBatch(context.Background(), []domain.Holding{
		{Symbol: "btc", Kind: domain.KindCrypto},
	})
	if len(res.Failed) != 1 {
		t.Fatalf("expected 1 failure, got %+v", res.Failed)
	}
	if res.Failed[0].Symbol != "BTC" {
		t.Fatalf("failed symbol should be uppercased, got %q", res.Failed[0].Symbol)
	}
}

func TestRetryableClassification(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{&StatusError{Status: 429}, true},
		{&StatusError{Status: 500}, true},
		{&StatusError{Status: 503}, true},
		{&StatusError{Status: 404}, false},
		{&StatusError{Status: 400}, false},
		{context.DeadlineExceeded, true},
		{errors.New("malformed payload"), false},
	}
	for _, tc := range cases {
		if got := retryable(tc.err); got != tc.want {
			t.Fatalf("retryable(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}
