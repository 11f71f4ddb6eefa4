package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"
)

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}

// Show prints recent pipeline runs and cost events from the audit store.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show run history")
	}
	if closeStore != nil {
		defer closeStore()
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}

	runs, err := store.ListRecentRuns(ctx, limit)
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Fprintln(os.Stdout, "no runs recorded")
	} else {
		writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(writer, "Started (UTC)\tItems\tApproved\tSkipped\tAlerts\tEscalations\tStatus")
		for _, run := range runs {
			fmt.Fprintf(writer, "%s\t%d\t%d\t%d\t%d\t%d\t%s\n",
				run.StartedAt.UTC().Format(time.RFC3339),
				run.ItemsTotal,
				run.ItemsApproved,
				run.ItemsSkipped,
				run.PriceAlerts,
				run.Escalations,
				run.Status,
			)
		}
		writer.Flush()
	}

	events, err := store.ListRecentEvents(ctx, limit)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}

	fmt.Fprintln(os.Stdout, "\nRecent cost events:")
	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Time (UTC)\tKind\tProvider\tSymbol\tModel\tTokens")
	for _, e := range events {
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\t%d/%d\n",
			e.OccurredAt.UTC().Format(time.RFC3339),
			e.Kind,
			e.Provider,
			e.Symbol,
			e.Model,
			e.PromptTokens,
			e.CompletionTokens,
		)
	}
	return writer.Flush()
}
