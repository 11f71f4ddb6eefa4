package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/peterbitar/holdingswatch/internal/domain"
	"github.com/peterbitar/holdingswatch/internal/refdata"
)

// Price resolves and prints snapshots for the given symbols. Symbols not in
// the configured holdings are assumed crypto when the ticker is a known
// coin, stock otherwise.
func (a *App) Price(ctx context.Context, symbols []string) error {
	if len(symbols) == 0 {
		return errors.New("at least one symbol is required")
	}

	kinds := make(map[string]domain.HoldingKind)
	for _, h := range a.Config.Holdings.Domain() {
		kinds[h.Symbol] = h.Kind
	}

	resolver := a.newResolver()

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Symbol\tPrice\t7d Ago\t7d Change%\t1d Change%\tProvider")

	for _, raw := range symbols {
		symbol := strings.ToUpper(strings.TrimSpace(raw))
		kind, ok := kinds[symbol]
		if !ok {
			kind = domain.KindStock
			if _, crypto := refdata.CoinID(symbol); crypto {
				kind = domain.KindCrypto
			}
		}

		snap, err := resolver.Resolve(ctx, symbol, kind)
		if err != nil {
			fmt.Fprintf(writer, "%s\t-\t-\t-\t-\t%s\n", symbol, sanitizeCell(err.Error()))
			continue
		}

		oneDay := "-"
		if snap.ChangePercent1D != nil {
			oneDay = snap.ChangePercent1D.StringFixed(2)
		}
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\t%s\n",
			snap.Symbol,
			snap.CurrentPrice.StringFixed(2),
			snap.Price7DaysAgo.StringFixed(2),
			snap.ChangePercent.StringFixed(2),
			oneDay,
			snap.Provider,
		)
	}

	return writer.Flush()
}

func sanitizeCell(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\t", " ")
	return cleaned
}
