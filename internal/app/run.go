package app

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/peterbitar/holdingswatch/internal/classify"
	"github.com/peterbitar/holdingswatch/internal/domain"
	"github.com/peterbitar/holdingswatch/internal/pipeline"
	"github.com/peterbitar/holdingswatch/internal/report"
	"github.com/peterbitar/holdingswatch/internal/telemetry"
)

// RunOptions hold parameters for a single pipeline pass.
type RunOptions struct {
	// Query overrides the ticker query sent to the news source. Defaults
	// to the comma-joined tracked symbols.
	Query string
	// Limit caps fetched candidate items; defaults to config.
	Limit int
	// CSVPath, when set, exports the enriched items after the run.
	CSVPath string
	// ChartPath, when set, renders the price moves as a PNG bar chart.
	ChartPath string
}

// Run executes one full pipeline pass and renders the result to stdout.
func (a *App) Run(ctx context.Context, opts RunOptions) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; run auditing disabled")
	}
	if closeStore != nil {
		defer closeStore()
	}

	sink, closeSink := a.newSink(store)
	defer closeSink()

	result, err := a.executePass(ctx, sink, store, opts)
	if err != nil {
		return err
	}

	report.Render(os.Stdout, result)

	if opts.CSVPath != "" {
		if err := report.WriteCSV(opts.CSVPath, result); err != nil {
			return err
		}
		a.Logger.Info().Str("path", opts.CSVPath).Msg("items exported")
	}
	if opts.ChartPath != "" {
		if err := report.WriteChart(opts.ChartPath, result.Snapshots); err != nil {
			return err
		}
		a.Logger.Info().Str("path", opts.ChartPath).Msg("price chart written")
	}

	return nil
}

// executePass fetches candidate items and runs the orchestrator once.
// Shared by the run command and the watch loop.
func (a *App) executePass(ctx context.Context, sink telemetry.Sink, store *telemetry.Store, opts RunOptions) (domain.PipelineResult, error) {
	holdings := a.Config.Holdings.Domain()
	if len(holdings) == 0 {
		return domain.PipelineResult{}, errors.New("holdings.tracked must not be empty")
	}

	scorer := a.newScorer(sink)
	if scorer == nil {
		return domain.PipelineResult{}, errors.New("llm.api_key is required to score candidate items")
	}

	query := opts.Query
	if query == "" {
		symbols := make([]string, 0, len(holdings))
		for _, h := range holdings {
			symbols = append(symbols, h.Symbol)
		}
		query = strings.Join(symbols, ",")
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = a.Config.News.Limit
	}

	items, err := a.newSource().Fetch(ctx, query, limit)
	if err != nil {
		// An empty batch is still a valid run: the escalation engine
		// flags missing top-holding coverage on its own.
		a.Logger.Error().Err(err).Msg("candidate item fetch failed; proceeding with empty batch")
		items = nil
	}

	orch := pipeline.New(
		classify.New(scorer, a.Logger),
		a.newResolver(),
		a.newInvoker(sink),
		sink,
		a.Logger,
	)

	result, err := orch.Run(ctx, items, holdings, a.Config.Holdings.TopSymbols(), a.pipelineOptions())
	if err != nil {
		return domain.PipelineResult{}, err
	}

	a.recordRun(ctx, store, result)
	return result, nil
}

func (a *App) recordRun(ctx context.Context, store *telemetry.Store, result domain.PipelineResult) {
	if store == nil {
		return
	}

	record := telemetry.RunRecord{
		StartedAt:     result.StartedAt,
		FinishedAt:    result.FinishedAt,
		ItemsTotal:    len(result.Items),
		ItemsApproved: result.ApprovedCount(),
		ItemsSkipped:  len(result.Skipped),
		PriceAlerts:   len(result.Alerts),
		Escalations:   len(result.Escalations),
		Status:        "complete",
	}

	insertCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := store.InsertRun(insertCtx, record); err != nil {
		a.Logger.Error().Err(err).Msg("failed to persist run record")
	}
}
