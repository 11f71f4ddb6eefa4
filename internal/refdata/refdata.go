// Package refdata holds the process-wide constant lookup tables: publisher
// trust tiers, index-tracker aliases, and ticker maps for provider routing.
// All tables are initialized once and never mutated.
package refdata

import "strings"

// Tier-ordered publisher host fragments. First list that matches wins.
var (
	tierOneHosts = []string{
		"reuters.com",
		"bloomberg.com",
		"wsj.com",
		"ft.com",
		"apnews.com",
		"economist.com",
	}
	tierTwoHosts = []string{
		"cnbc.com",
		"marketwatch.com",
		"finance.yahoo.com",
		"businessinsider.com",
		"fortune.com",
		"barrons.com",
		"investors.com",
	}
	tierThreeHosts = []string{
		"seekingalpha.com",
		"fool.com",
		"benzinga.com",
		"reddit.com",
		"substack.com",
		"medium.com",
	}
)

// SourceQuality maps a publisher host to its trust weighting: 1.0 for
// tier one, 0.5 for tier two, 0.0 for tier three, 0.5 when unlisted.
// Matching is exact substring containment, checked tier one first.
func SourceQuality(host string) float64 {
	h := strings.ToLower(host)
	for _, fragment := range tierOneHosts {
		if strings.Contains(h, fragment) {
			return 1.0
		}
	}
	for _, fragment := range tierTwoHosts {
		if strings.Contains(h, fragment) {
			return 0.5
		}
	}
	for _, fragment := range tierThreeHosts {
		if strings.Contains(h, fragment) {
			return 0.0
		}
	}
	return 0.5
}

// indexAliases maps an index-tracking ETF symbol to the spelled-out names of
// the index it tracks, lowercased.
var indexAliases = map[string][]string{
	"SPY": {"s&p 500", "s&p500", "standard & poor"},
	"VOO": {"s&p 500", "s&p500", "standard & poor"},
	"IVV": {"s&p 500", "s&p500", "standard & poor"},
	"QQQ": {"nasdaq 100", "nasdaq-100"},
	"DIA": {"dow jones"},
	"VTI": {"total stock market"},
	"IWM": {"russell 2000"},
}

// IndexAliases returns the spelled-out index names for an index-tracking
// holding, or nil when the symbol does not track an index.
func IndexAliases(symbol string) []string {
	return indexAliases[strings.ToUpper(symbol)]
}

// IsKnownETF reports whether the symbol is a recognized exchange-traded fund.
// ETFs are routed to the general-purpose provider first, which is cheaper and
// less rate-limited than the enriched quote endpoint.
func IsKnownETF(symbol string) bool {
	_, ok := indexAliases[strings.ToUpper(symbol)]
	return ok
}

// coinIDs maps a crypto ticker to the identifier the dedicated crypto quote
// API uses. The resolver always reports the caller's ticker, never the alias.
var coinIDs = map[string]string{
	"BTC":   "bitcoin",
	"ETH":   "ethereum",
	"SOL":   "solana",
	"ADA":   "cardano",
	"XRP":   "ripple",
	"DOGE":  "dogecoin",
	"DOT":   "polkadot",
	"AVAX":  "avalanche-2",
	"LINK":  "chainlink",
	"MATIC": "matic-network",
	"LTC":   "litecoin",
}

// CoinID resolves a crypto ticker to the provider-internal coin identifier.
func CoinID(symbol string) (string, bool) {
	id, ok := coinIDs[strings.ToUpper(symbol)]
	return id, ok
}
