package domain

import "errors"

var (
	// ErrClassificationFailed indicates the scoring collaborator was
	// unreachable or returned a malformed response. The affected item must
	// be treated as not-yet-scored, never given a fabricated score.
	ErrClassificationFailed = errors.New("classification failed")

	// ErrProviderUnavailable indicates a single market-data provider failed.
	// Not fatal; the resolver falls back to the next provider in the chain.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrAllProvidersExhausted indicates every provider in a symbol's chain
	// failed. The resolver reports this as an explicit no-data outcome.
	ErrAllProvidersExhausted = errors.New("all providers exhausted")

	// ErrDeepResearchFailed indicates an escalation was attempted but the
	// research collaborator errored. Recorded on the escalation entry.
	ErrDeepResearchFailed = errors.New("deep research failed")
)
