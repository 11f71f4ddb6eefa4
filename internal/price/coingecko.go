package price

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/peterbitar/holdingswatch/internal/refdata"
)

const coingeckoName = "coingecko"

// CoinGeckoOptions parameterise the dedicated crypto quote provider.
type CoinGeckoOptions struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// CoinGecko fetches crypto quotes from the CoinGecko markets endpoint.
type CoinGecko struct {
	opts    CoinGeckoOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewCoinGecko constructs the crypto provider.
func NewCoinGecko(opts CoinGeckoOptions, logger zerolog.Logger) *CoinGecko {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.coingecko.com/api/v3"
	}
	return &CoinGecko{
		opts:    opts,
		logger:  logger.With().Str("component", "coingecko_provider").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// Name identifies the provider in snapshots and logs.
func (c *CoinGecko) Name() string { return coingeckoName }

type coingeckoMarket struct {
	ID            string   `json:"id"`
	CurrentPrice  float64  `json:"current_price"`
	Change24h     *float64 `json:"price_change_percentage_24h_in_currency"`
	Change7d      *float64 `json:"price_change_percentage_7d_in_currency"`
}

// Quote fetches one crypto quote. Tickers without a known coin identifier
// fail permanently so the resolver moves on without wasting the retry.
func (c *CoinGecko) Quote(ctx context.Context, symbol string) (Quote, error) {
	coinID, ok := refdata.CoinID(symbol)
	if !ok {
		return Quote{}, &StatusError{Provider: coingeckoName, Status: http.StatusNotFound, Message: "unknown coin ticker " + symbol}
	}

	params := url.Values{}
	params.Set("vs_currency", "usd")
	params.Set("ids", coinID)
	params.Set("price_change_percentage", "24h,7d")
	endpoint := c.baseURL + "/coins/markets?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Quote{}, err
	}
	req.Header.Set("Accept", "application/json")
	if c.opts.APIKey != "" {
		req.Header.Set("x-cg-demo-api-key", c.opts.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Quote{}, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return Quote{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return Quote{}, &StatusError{Provider: coingeckoName, Status: resp.StatusCode, Message: strings.TrimSpace(string(payload))}
	}

	var markets []coingeckoMarket
	if err := json.Unmarshal(payload, &markets); err != nil {
		return Quote{}, fmt.Errorf("coingecko decode: %w", err)
	}
	if len(markets) == 0 {
		return Quote{}, fmt.Errorf("coingecko returned no market for %s", coinID)
	}

	m := markets[0]
	current := decimal.NewFromFloat(m.CurrentPrice)
	if current.IsZero() {
		return Quote{}, fmt.Errorf("coingecko returned zero price for %s", coinID)
	}

	quote := Quote{CurrentPrice: current}
	if m.Change24h != nil {
		change := decimal.NewFromFloat(*m.Change24h)
		quote.ChangePercent1D = &change
	}
	if m.Change7d != nil {
		// The endpoint reports a percentage, not the historical price.
		// Derive the 7-day-ago price from the same call so the snapshot
		// invariant holds without mixing providers.
		ratio := decimal.NewFromFloat(*m.Change7d).Div(dec100).Add(decimal.NewFromInt(1))
		if !ratio.IsZero() {
			quote.Price7DaysAgo = current.Div(ratio)
			quote.Has7Day = true
		}
	}
	return quote, nil
}

var _ Provider = (*CoinGecko)(nil)
