package price

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func TestCoinGeckoQuote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/coins/markets" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("ids"); got != "bitcoin" {
			t.Errorf("unexpected ids param %q", got)
		}
		fmt.Fprint(w, `[{"id":"bitcoin","current_price":63000,"price_change_percentage_24h_in_currency":1.2,"price_change_percentage_7d_in_currency":5.0}]`)
	}))
	defer server.Close()

	p := NewCoinGecko(CoinGeckoOptions{BaseURL: server.URL}, zerolog.Nop())

	quote, err := p.Quote(context.Background(), "BTC")
	if err != nil {
		t.Fatalf("quote failed: %v", err)
	}
	if !quote.CurrentPrice.Equal(decimal.NewFromInt(63000)) {
		t.Fatalf("unexpected current price %s", quote.CurrentPrice)
	}
	if !quote.Has7Day {
		t.Fatal("expected a derived 7-day price")
	}
	// 63000 / 1.05 = 60000
	if quote.Price7DaysAgo.Sub(decimal.NewFromInt(60000)).Abs().GreaterThan(decimal.RequireFromString("0.01")) {
		t.Fatalf("expected 7-day price near 60000, got %s", quote.Price7DaysAgo)
	}
	if quote.ChangePercent1D == nil || !quote.ChangePercent1D.Equal(decimal.RequireFromString("1.2")) {
		t.Fatalf("unexpected 1-day change %v", quote.ChangePercent1D)
	}
}

func TestCoinGeckoUnknownTicker(t *testing.T) {
	p := NewCoinGecko(CoinGeckoOptions{BaseURL: "http://127.0.0.1:0"}, zerolog.Nop())

	_, err := p.Quote(context.Background(), "NOTACOIN")
	var se *StatusError
	if !errors.As(err, &se) || se.Status != http.StatusNotFound {
		t.Fatalf("unknown ticker should fail permanently, got %v", err)
	}
	if retryable(err) {
		t.Fatal("unknown ticker must not be retried")
	}
}

func TestAlphaVantageQuote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("function"); got != "TIME_SERIES_DAILY" {
			t.Errorf("unexpected function param %q", got)
		}
		fmt.Fprint(w, `{"Time Series (Daily)":{
			"2025-08-29":{"4. close":"100.00"},
			"2025-08-28":{"4. close":"99.00"},
			"2025-08-25":{"4. close":"97.00"},
			"2025-08-22":{"4. close":"95.00"}
		}}`)
	}))
	defer server.Close()

	p := NewAlphaVantage(AlphaVantageOptions{BaseURL: server.URL, APIKey: "demo"}, zerolog.Nop())

	quote, err := p.Quote(context.Background(), "NVDA")
	if err != nil {
		t.Fatalf("quote failed: %v", err)
	}
	if !quote.CurrentPrice.Equal(decimal.RequireFromString("100.00")) {
		t.Fatalf("unexpected current price %s", quote.CurrentPrice)
	}
	// The first trading day at or before the 7-day cutoff is 2025-08-22.
	if !quote.Has7Day || !quote.Price7DaysAgo.Equal(decimal.RequireFromString("95.00")) {
		t.Fatalf("unexpected 7-day price %s (has7day=%v)", quote.Price7DaysAgo, quote.Has7Day)
	}
	if quote.ChangePercent1D == nil {
		t.Fatal("expected a 1-day change")
	}
}

func TestAlphaVantageRateLimitNote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"Note":"Thank you for using Alpha Vantage! Please slow down."}`)
	}))
	defer server.Close()

	p := NewAlphaVantage(AlphaVantageOptions{BaseURL: server.URL, APIKey: "demo"}, zerolog.Nop())

	_, err := p.Quote(context.Background(), "NVDA")
	var se *StatusError
	if !errors.As(err, &se) || se.Status != http.StatusTooManyRequests {
		t.Fatalf("rate-limit note should map to http 429, got %v", err)
	}
	if !retryable(err) {
		t.Fatal("rate limit must be retryable")
	}
}

func TestYahooQuote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v8/finance/chart/SPY" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"chart":{"result":[{
			"meta":{"regularMarketPrice":505.5},
			"indicators":{"quote":[{"close":[480.0,null,500.0]}]}
		}],"error":null}}`)
	}))
	defer server.Close()

	p := NewYahoo(YahooOptions{BaseURL: server.URL}, zerolog.Nop())

	quote, err := p.Quote(context.Background(), "SPY")
	if err != nil {
		t.Fatalf("quote failed: %v", err)
	}
	if !quote.CurrentPrice.Equal(decimal.RequireFromString("505.5")) {
		t.Fatalf("unexpected current price %s", quote.CurrentPrice)
	}
	if !quote.Has7Day || !quote.Price7DaysAgo.Equal(decimal.NewFromInt(480)) {
		t.Fatalf("unexpected 7-day price %s (has7day=%v)", quote.Price7DaysAgo, quote.Has7Day)
	}
}

func TestYahooServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream broke", http.StatusInternalServerError)
	}))
	defer server.Close()

	p := NewYahoo(YahooOptions{BaseURL: server.URL}, zerolog.Nop())

	_, err := p.Quote(context.Background(), "SPY")
	var se *StatusError
	if !errors.As(err, &se) || se.Status != http.StatusInternalServerError {
		t.Fatalf("expected a status error, got %v", err)
	}
	if !retryable(err) {
		t.Fatal("5xx must be retryable")
	}
}
