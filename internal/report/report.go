// Package report renders a pipeline result for human consumption and
// exports it as CSV or a PNG chart of price moves.
package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/peterbitar/holdingswatch/internal/domain"
)

// Render writes a plain-text summary of one pipeline run.
func Render(w io.Writer, result domain.PipelineResult) {
	fmt.Fprintf(w, "Pipeline run %s -> %s\n\n",
		result.StartedAt.UTC().Format(time.RFC3339),
		result.FinishedAt.UTC().Format(time.RFC3339))

	writer := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintln(writer, "Item\tComposite\tImpact\tMatches\tApproved\tReason")
	for _, it := range result.Items {
		fmt.Fprintf(writer, "%s\t%.2f\t%d\t%s\t%t\t%s\n",
			truncate(it.Item.Title, 60),
			it.Score.Composite,
			it.Score.Impact,
			matchSummary(it.Matches),
			it.Decision.Approved,
			sanitizeInline(it.Decision.RejectionReason),
		)
	}
	writer.Flush()

	if len(result.Skipped) > 0 {
		fmt.Fprintf(w, "\nSkipped items (%d):\n", len(result.Skipped))
		for _, s := range result.Skipped {
			fmt.Fprintf(w, "  %s: %s\n", s.URL, sanitizeInline(s.Reason))
		}
	}

	if len(result.Snapshots) > 0 {
		fmt.Fprintln(w, "\nPrices:")
		writer = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(writer, "Symbol\tPrice\t7d Change%\tProvider")
		for _, snap := range result.Snapshots {
			fmt.Fprintf(writer, "%s\t%s\t%s\t%s\n",
				snap.Symbol,
				snap.CurrentPrice.StringFixed(2),
				snap.ChangePercent.StringFixed(2),
				snap.Provider,
			)
		}
		writer.Flush()
	}

	for _, f := range result.FailedSymbols {
		fmt.Fprintf(w, "  price unavailable for %s: %s\n", f.Symbol, sanitizeInline(f.Reason))
	}

	if len(result.Alerts) > 0 {
		fmt.Fprintln(w, "\nPrice alerts:")
		for _, alert := range result.Alerts {
			note := ""
			if alert.Escalated {
				note = " (escalated: no approved coverage)"
			}
			fmt.Fprintf(w, "  %s moved %s%% over 7 days%s\n",
				alert.Symbol, alert.Snapshot.ChangePercent.StringFixed(2), note)
		}
	}

	if len(result.Escalations) > 0 {
		fmt.Fprintln(w, "\nEscalations:")
		for _, esc := range result.Escalations {
			fmt.Fprintf(w, "  [%s] %s\n", esc.Decision.Kind, esc.Decision.Reason)
			if esc.Error != "" {
				fmt.Fprintf(w, "    failed: %s\n", sanitizeInline(esc.Error))
			}
			if esc.Findings != nil {
				for _, l := range esc.Findings.Learnings {
					fmt.Fprintf(w, "    - %s\n", l)
				}
				for _, u := range esc.Findings.VisitedURLs {
					fmt.Fprintf(w, "    src: %s\n", u)
				}
			}
		}
	}
}

func matchSummary(matches []domain.MatchResult) string {
	if len(matches) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(matches))
	for _, m := range matches {
		parts = append(parts, fmt.Sprintf("%s(%.2f)", m.HoldingSymbol, m.Confidence))
	}
	return strings.Join(parts, ",")
}

func truncate(v string, max int) string {
	if len(v) <= max {
		return v
	}
	return v[:max-3] + "..."
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}
