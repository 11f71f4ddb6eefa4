package price

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	alphaVantageName    = "alphavantage"
	alphaVantageDateFmt = "2006-01-02"
)

// AlphaVantageOptions parameterise the time-series provider.
type AlphaVantageOptions struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// AlphaVantage is the price-time-series provider. The daily series gives a
// real 7-day look-back close, unlike the quote-only providers.
type AlphaVantage struct {
	opts    AlphaVantageOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewAlphaVantage constructs the time-series provider.
func NewAlphaVantage(opts AlphaVantageOptions, logger zerolog.Logger) *AlphaVantage {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 25 * time.Second
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://www.alphavantage.co"
	}
	return &AlphaVantage{
		opts:    opts,
		logger:  logger.With().Str("component", "alphavantage_provider").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// Name identifies the provider in snapshots and logs.
func (a *AlphaVantage) Name() string { return alphaVantageName }

type alphaVantageSeries struct {
	Series map[string]struct {
		Close string `json:"4. close"`
	} `json:"Time Series (Daily)"`
	Note        string `json:"Note"`
	Information string `json:"Information"`
}

// Quote fetches the daily close series and derives current plus 7-day-ago
// prices from the same response.
func (a *AlphaVantage) Quote(ctx context.Context, symbol string) (Quote, error) {
	params := url.Values{}
	params.Set("function", "TIME_SERIES_DAILY")
	params.Set("symbol", symbol)
	params.Set("outputsize", "compact")
	params.Set("apikey", a.opts.APIKey)
	endpoint := a.baseURL + "/query?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Quote{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return Quote{}, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return Quote{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return Quote{}, &StatusError{Provider: alphaVantageName, Status: resp.StatusCode, Message: strings.TrimSpace(string(payload))}
	}

	var series alphaVantageSeries
	if err := json.Unmarshal(payload, &series); err != nil {
		return Quote{}, fmt.Errorf("alphavantage decode: %w", err)
	}
	if series.Note != "" || series.Information != "" {
		// Rate-limit notices come back as HTTP 200 with a prose body.
		msg := series.Note
		if msg == "" {
			msg = series.Information
		}
		return Quote{}, &StatusError{Provider: alphaVantageName, Status: http.StatusTooManyRequests, Message: msg}
	}
	if len(series.Series) == 0 {
		return Quote{}, fmt.Errorf("alphavantage returned empty series for %s", symbol)
	}

	dates := make([]string, 0, len(series.Series))
	for d := range series.Series {
		dates = append(dates, d)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))

	current, err := decimal.NewFromString(series.Series[dates[0]].Close)
	if err != nil {
		return Quote{}, fmt.Errorf("alphavantage parse close: %w", err)
	}

	latest, err := time.Parse(alphaVantageDateFmt, dates[0])
	if err != nil {
		return Quote{}, fmt.Errorf("alphavantage parse date: %w", err)
	}

	quote := Quote{CurrentPrice: current}
	cutoff := latest.AddDate(0, 0, -7).Format(alphaVantageDateFmt)
	for _, d := range dates[1:] {
		if d > cutoff {
			continue
		}
		// First trading day at or before the 7-day cutoff.
		weekAgo, parseErr := decimal.NewFromString(series.Series[d].Close)
		if parseErr != nil {
			return Quote{}, fmt.Errorf("alphavantage parse close: %w", parseErr)
		}
		if !weekAgo.IsZero() {
			quote.Price7DaysAgo = weekAgo
			quote.Has7Day = true
		}
		break
	}

	if len(dates) > 1 {
		if prev, parseErr := decimal.NewFromString(series.Series[dates[1]].Close); parseErr == nil && !prev.IsZero() {
			change := current.Sub(prev).Div(prev).Mul(dec100)
			quote.ChangePercent1D = &change
		}
	}

	return quote, nil
}

var _ Provider = (*AlphaVantage)(nil)
