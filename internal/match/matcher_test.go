package match

import (
	"reflect"
	"testing"

	"github.com/peterbitar/holdingswatch/internal/domain"
)

func holdingsFixture() []domain.Holding {
	return []domain.Holding{
		{Symbol: "AAPL", Kind: domain.KindStock, DisplayName: "Apple Inc."},
		{Symbol: "SPY", Kind: domain.KindStock, DisplayName: "S&P 500 ETF"},
		{Symbol: "BTC", Kind: domain.KindCrypto, DisplayName: "Bitcoin"},
	}
}

func TestSymbolMatch(t *testing.T) {
	item := domain.CandidateItem{
		URL:   "https://example.com/a",
		Title: "AAPL beats expectations in Q3",
	}

	results := Match(item, holdingsFixture())
	if len(results) != 1 {
		t.Fatalf("expected 1 match, got %d", len(results))
	}
	if results[0].HoldingSymbol != "AAPL" || results[0].Type != domain.MatchSymbol {
		t.Fatalf("unexpected match: %+v", results[0])
	}
	if results[0].Confidence != 0.95 {
		t.Fatalf("symbol match confidence should be 0.95, got %f", results[0].Confidence)
	}
}

func TestDollarPrefixedTicker(t *testing.T) {
	item := domain.CandidateItem{
		URL:   "https://example.com/b",
		Title: "Why $aapl is still a buy",
	}

	results := Match(item, holdingsFixture())
	if len(results) != 1 || results[0].Type != domain.MatchSymbol {
		t.Fatalf("expected a symbol match for $-prefixed ticker, got %+v", results)
	}
}

func TestTickerInsideWordDoesNotMatch(t *testing.T) {
	item := domain.CandidateItem{
		URL:   "https://example.com/c",
		Title: "The snAAPLe market report",
	}

	results := Match(item, holdingsFixture())
	if len(results) != 0 {
		t.Fatalf("embedded ticker should not match, got %+v", results)
	}
}

func TestSymbolSuppressesEntityMatch(t *testing.T) {
	item := domain.CandidateItem{
		URL:   "https://example.com/d",
		Title: "Apple announces record iPhone sales, AAPL up",
	}

	results := Match(item, holdingsFixture())
	if len(results) != 1 {
		t.Fatalf("a holding must match at most once per item, got %d results", len(results))
	}
	if results[0].Type != domain.MatchSymbol {
		t.Fatalf("symbol match must win over entity match, got %s", results[0].Type)
	}
}

func TestEntityMatch(t *testing.T) {
	item := domain.CandidateItem{
		URL:   "https://example.com/e",
		Title: "Apple unveils new hardware lineup",
	}

	results := Match(item, holdingsFixture())
	if len(results) != 1 || results[0].Type != domain.MatchEntity {
		t.Fatalf("expected an entity match, got %+v", results)
	}
	if results[0].Confidence != 0.80 {
		t.Fatalf("entity match confidence should be 0.80, got %f", results[0].Confidence)
	}
}

func TestIndexAliasMatch(t *testing.T) {
	item := domain.CandidateItem{
		URL:   "https://example.com/f",
		Title: "The S&P 500 closed at a record high",
	}

	results := Match(item, holdingsFixture())
	if len(results) != 1 {
		t.Fatalf("expected 1 match, got %+v", results)
	}
	if results[0].HoldingSymbol != "SPY" || results[0].Type != domain.MatchSoftLink {
		t.Fatalf("expected SPY soft-link match, got %+v", results[0])
	}
	if results[0].Confidence != 0.90 {
		t.Fatalf("index match confidence should be 0.90, got %f", results[0].Confidence)
	}
}

func TestMultipleHoldings(t *testing.T) {
	item := domain.CandidateItem{
		URL:         "https://example.com/g",
		Title:       "AAPL rallies as Bitcoin slides",
		Description: "Tech and crypto diverge",
	}

	results := Match(item, holdingsFixture())
	if len(results) != 2 {
		t.Fatalf("expected 2 matches, got %+v", results)
	}
}

func TestMatchIsIdempotent(t *testing.T) {
	item := domain.CandidateItem{
		URL:         "https://example.com/h",
		Title:       "Apple and the S&P 500: what BTC holders should know",
		Description: "A cross-market look",
	}
	holdings := holdingsFixture()

	first := Match(item, holdings)
	second := Match(item, holdings)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("matching must be idempotent:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestNoHoldings(t *testing.T) {
	item := domain.CandidateItem{URL: "https://example.com/i", Title: "AAPL news"}
	if results := Match(item, nil); len(results) != 0 {
		t.Fatalf("no holdings should yield no matches, got %+v", results)
	}
}
