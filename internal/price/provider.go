// Package price resolves normalized price snapshots across an ordered chain
// of interchangeable market-data providers, with per-attempt timeouts, a
// single fixed-backoff retry, and fallback on failure.
package price

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"

	"github.com/shopspring/decimal"
)

// Quote is the raw normalized payload from one provider call. Has7Day is
// false when the provider offers only a current quote; the resolver then
// reports a zero 7-day change rather than extrapolating one.
type Quote struct {
	CurrentPrice    decimal.Decimal
	Price7DaysAgo   decimal.Decimal
	Has7Day         bool
	ChangePercent1D *decimal.Decimal
}

// Provider exposes one market-data source. Quote returns a snapshot already
// normalized into the domain shape; the resolver overwrites the Symbol field
// with the caller's original symbol.
type Provider interface {
	Name() string
	Quote(ctx context.Context, symbol string) (Quote, error)
}

// StatusError carries an HTTP status from a provider so the resolver can
// distinguish retryable failures (429, 5xx) from permanent ones.
type StatusError struct {
	Provider string
	Status   int
	Message  string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: http %d: %s", e.Provider, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: http %d", e.Provider, e.Status)
}

// retryable reports whether a failed attempt deserves the single fixed-backoff
// retry before the resolver moves to the next provider. Timeouts, transient
// network failures, 429s, and 5xx responses are retryable; any other 4xx and
// malformed payloads are not.
func retryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status == 429 || se.Status >= 500
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	var ue *url.Error
	return errors.As(err, &ue)
}
