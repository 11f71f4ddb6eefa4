package price

import (
	"context"
	"fmt"
	"net/http"
	"time"

	finnhub "github.com/Finnhub-Stock-API/finnhub-go/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const finnhubName = "finnhub"

// FinnhubOptions parameterise the enriched quote provider.
type FinnhubOptions struct {
	APIKey  string
	Timeout time.Duration
}

// Finnhub is the enriched equity provider: real-time quote with previous
// close. The quote endpoint carries no 7-day look-back, so snapshots from
// this provider report a zero 7-day change by contract.
type Finnhub struct {
	api    *finnhub.DefaultApiService
	logger zerolog.Logger
}

// NewFinnhub constructs the enriched provider from an API key.
func NewFinnhub(opts FinnhubOptions, logger zerolog.Logger) *Finnhub {
	cfg := finnhub.NewConfiguration()
	cfg.AddDefaultHeader("X-Finnhub-Token", opts.APIKey)
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	cfg.HTTPClient = &http.Client{Timeout: timeout}
	return &Finnhub{
		api:    finnhub.NewAPIClient(cfg).DefaultApi,
		logger: logger.With().Str("component", "finnhub_provider").Logger(),
	}
}

// Name identifies the provider in snapshots and logs.
func (f *Finnhub) Name() string { return finnhubName }

// Quote fetches the current quote for one equity symbol.
func (f *Finnhub) Quote(ctx context.Context, symbol string) (Quote, error) {
	res, httpRes, err := f.api.Quote(ctx).Symbol(symbol).Execute()
	if err != nil {
		if httpRes != nil && httpRes.StatusCode != http.StatusOK {
			return Quote{}, &StatusError{Provider: finnhubName, Status: httpRes.StatusCode, Message: err.Error()}
		}
		return Quote{}, fmt.Errorf("finnhub quote: %w", err)
	}

	current := decimal.NewFromFloat32(res.GetC())
	if current.IsZero() {
		// Finnhub reports zeroes for unknown symbols instead of a 404.
		return Quote{}, &StatusError{Provider: finnhubName, Status: http.StatusNotFound, Message: "no quote for " + symbol}
	}

	quote := Quote{CurrentPrice: current}
	if prevClose := decimal.NewFromFloat32(res.GetPc()); !prevClose.IsZero() {
		change := current.Sub(prevClose).Div(prevClose).Mul(dec100)
		quote.ChangePercent1D = &change
	}
	return quote, nil
}

var _ Provider = (*Finnhub)(nil)
