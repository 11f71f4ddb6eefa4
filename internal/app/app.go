package app

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/peterbitar/holdingswatch/internal/config"
	"github.com/peterbitar/holdingswatch/internal/escalate"
	"github.com/peterbitar/holdingswatch/internal/llm"
	"github.com/peterbitar/holdingswatch/internal/newsfeed"
	"github.com/peterbitar/holdingswatch/internal/pipeline"
	"github.com/peterbitar/holdingswatch/internal/price"
	"github.com/peterbitar/holdingswatch/internal/telemetry"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

// newResolver assembles the provider chain from configuration. Providers
// without required credentials are left out of the chain.
func (a *App) newResolver() *price.Resolver {
	providers := a.Config.Providers

	chain := price.Chain{
		General: price.NewYahoo(price.YahooOptions{
			BaseURL: providers.Yahoo.BaseURL,
			Timeout: providers.Yahoo.RequestTimeout,
		}, a.Logger),
		Crypto: price.NewCoinGecko(price.CoinGeckoOptions{
			BaseURL: providers.CoinGecko.BaseURL,
			APIKey:  providers.CoinGecko.APIKey,
			Timeout: providers.CoinGecko.RequestTimeout,
		}, a.Logger),
	}
	if providers.Finnhub.APIKey != "" {
		chain.Enriched = price.NewFinnhub(price.FinnhubOptions{
			APIKey:  providers.Finnhub.APIKey,
			Timeout: providers.Finnhub.RequestTimeout,
		}, a.Logger)
	}
	if providers.AlphaVantage.APIKey != "" {
		chain.Series = price.NewAlphaVantage(price.AlphaVantageOptions{
			BaseURL: providers.AlphaVantage.BaseURL,
			APIKey:  providers.AlphaVantage.APIKey,
			Timeout: providers.AlphaVantage.RequestTimeout,
		}, a.Logger)
	}

	return price.NewResolver(chain, price.Options{
		AttemptTimeout:   providers.AttemptTimeout,
		RetryBackoff:     providers.RetryBackoff,
		BatchConcurrency: providers.BatchConcurrency,
		CacheTTL:         providers.CacheTTL,
	}, a.Logger)
}

func (a *App) newScorer(sink telemetry.Sink) *llm.Scorer {
	if a.Config.LLM.APIKey == "" {
		return nil
	}
	return llm.NewScorer(llm.Options{
		APIKey: a.Config.LLM.APIKey,
		Model:  a.Config.LLM.ScorerModel,
	}, sink, a.Logger)
}

func (a *App) newInvoker(sink telemetry.Sink) escalate.Invoker {
	if a.Config.LLM.APIKey == "" {
		return nil
	}
	return llm.NewResearcher(llm.Options{
		APIKey: a.Config.LLM.APIKey,
		Model:  a.Config.LLM.ResearchModel,
	}, sink, a.Logger)
}

func (a *App) newSource() newsfeed.Source {
	return newsfeed.NewAlphaVantage(newsfeed.AlphaVantageOptions{
		BaseURL: a.Config.News.BaseURL,
		APIKey:  a.Config.News.APIKey,
		Timeout: a.Config.News.RequestTimeout,
	}, a.Logger)
}

func (a *App) openStore(ctx context.Context) (*telemetry.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := telemetry.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := telemetry.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// newSink builds the fire-and-forget telemetry sink. Without a store the
// sink discards events.
func (a *App) newSink(store *telemetry.Store) (telemetry.Sink, func()) {
	if store == nil {
		return telemetry.NopSink{}, func() {}
	}
	async := telemetry.NewAsyncSink(store, 256, a.Logger)
	return async, async.Close
}

func (a *App) pipelineOptions() pipeline.Options {
	return pipeline.Options{
		MaxConcurrent:     a.Config.Pipeline.MaxConcurrent,
		MinComposite:      a.Config.Pipeline.MinComposite,
		AlertThresholdPct: a.Config.Pipeline.AlertThresholdPct,
	}
}
