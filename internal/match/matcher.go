// Package match links candidate items to configured holdings. Matching is
// pure and deterministic: no network calls, identical inputs yield identical
// results.
package match

import (
	"strings"

	"github.com/peterbitar/holdingswatch/internal/domain"
	"github.com/peterbitar/holdingswatch/internal/refdata"
)

const (
	symbolConfidence = 0.95
	indexConfidence  = 0.90
	entityConfidence = 0.80
)

// Match determines which holdings (if any) the item concerns. A holding is
// matched at most once per item, by the highest-precision method that fired:
// ticker token, spelled-out index name, then display-name entity word.
func Match(item domain.CandidateItem, holdings []domain.Holding) []domain.MatchResult {
	text := strings.ToLower(item.Title + " " + item.Description)

	var results []domain.MatchResult
	for _, h := range holdings {
		if r, ok := matchHolding(text, h); ok {
			results = append(results, r)
		}
	}
	return results
}

func matchHolding(text string, h domain.Holding) (domain.MatchResult, bool) {
	ticker := strings.ToLower(h.Symbol)
	if ticker != "" && containsToken(text, ticker) {
		return domain.MatchResult{
			HoldingSymbol: h.Symbol,
			Type:          domain.MatchSymbol,
			Confidence:    symbolConfidence,
		}, true
	}

	for _, alias := range refdata.IndexAliases(h.Symbol) {
		if strings.Contains(text, alias) {
			return domain.MatchResult{
				HoldingSymbol: h.Symbol,
				Type:          domain.MatchSoftLink,
				Confidence:    indexConfidence,
			}, true
		}
	}

	if word := significantWord(h.DisplayName); word != "" && strings.Contains(text, word) {
		return domain.MatchResult{
			HoldingSymbol: h.Symbol,
			Type:          domain.MatchEntity,
			Confidence:    entityConfidence,
		}, true
	}

	return domain.MatchResult{}, false
}

// containsToken reports whether token appears in text as a bare word or
// prefixed with '$'. Both inputs must already be lowercased.
func containsToken(text, token string) bool {
	for start := 0; ; {
		idx := strings.Index(text[start:], token)
		if idx < 0 {
			return false
		}
		idx += start

		boundedLeft := idx == 0 || !isWordChar(text[idx-1])
		end := idx + len(token)
		boundedRight := end >= len(text) || !isWordChar(text[end])
		if boundedLeft && boundedRight {
			return true
		}
		start = idx + 1
	}
}

func isWordChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= '0' && c <= '9'
}

// significantWord returns the first word of the display name with at least
// three characters, lowercased. Short leading words ("AB Corp") are skipped.
func significantWord(name string) string {
	for _, w := range strings.Fields(strings.ToLower(name)) {
		trimmed := strings.Trim(w, ".,()&")
		if len(trimmed) >= 3 {
			return trimmed
		}
	}
	return ""
}
