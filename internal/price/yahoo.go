package price

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const yahooName = "yahoo"

// YahooOptions parameterise the general-purpose provider.
type YahooOptions struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// Yahoo is the general-purpose, keyless, always-available last-resort
// provider. One chart call yields both the current price and the close a
// week back.
type Yahoo struct {
	opts    YahooOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewYahoo constructs the general-purpose provider.
func NewYahoo(opts YahooOptions, logger zerolog.Logger) *Yahoo {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://query1.finance.yahoo.com"
	}
	return &Yahoo{
		opts:    opts,
		logger:  logger.With().Str("component", "yahoo_provider").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// Name identifies the provider in snapshots and logs.
func (y *Yahoo) Name() string { return yahooName }

type yahooChart struct {
	Chart struct {
		Result []struct {
			Meta struct {
				RegularMarketPrice float64 `json:"regularMarketPrice"`
			} `json:"meta"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// Quote fetches a 7-day daily chart for one symbol.
func (y *Yahoo) Quote(ctx context.Context, symbol string) (Quote, error) {
	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?range=7d&interval=1d", y.baseURL, symbol)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Quote{}, err
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(y.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	} else {
		req.Header.Set("User-Agent", "holdingswatch/1.0")
	}

	resp, err := y.client.Do(req)
	if err != nil {
		return Quote{}, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return Quote{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return Quote{}, &StatusError{Provider: yahooName, Status: resp.StatusCode, Message: strings.TrimSpace(string(payload))}
	}

	var chart yahooChart
	if err := json.Unmarshal(payload, &chart); err != nil {
		return Quote{}, fmt.Errorf("yahoo decode: %w", err)
	}
	if chart.Chart.Error != nil {
		return Quote{}, fmt.Errorf("yahoo chart error: %s: %s", chart.Chart.Error.Code, chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 {
		return Quote{}, fmt.Errorf("yahoo returned no result for %s", symbol)
	}

	result := chart.Chart.Result[0]
	closes := collectCloses(result.Indicators.Quote)

	current := decimal.NewFromFloat(result.Meta.RegularMarketPrice)
	if current.IsZero() && len(closes) > 0 {
		current = closes[len(closes)-1]
	}
	if current.IsZero() {
		return Quote{}, fmt.Errorf("yahoo returned zero price for %s", symbol)
	}

	quote := Quote{CurrentPrice: current}
	if len(closes) > 0 && !closes[0].IsZero() {
		quote.Price7DaysAgo = closes[0]
		quote.Has7Day = true
	}
	if len(closes) >= 2 {
		prev := closes[len(closes)-2]
		if !prev.IsZero() {
			change := current.Sub(prev).Div(prev).Mul(dec100)
			quote.ChangePercent1D = &change
		}
	}
	return quote, nil
}

func collectCloses(quotes []struct {
	Close []*float64 `json:"close"`
}) []decimal.Decimal {
	if len(quotes) == 0 {
		return nil
	}
	closes := make([]decimal.Decimal, 0, len(quotes[0].Close))
	for _, c := range quotes[0].Close {
		if c == nil {
			continue
		}
		closes = append(closes, decimal.NewFromFloat(*c))
	}
	return closes
}

var _ Provider = (*Yahoo)(nil)
