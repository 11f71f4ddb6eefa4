package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/peterbitar/holdingswatch/internal/domain"
	"github.com/peterbitar/holdingswatch/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	Holdings  HoldingsConfig  `mapstructure:"holdings"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Providers ProvidersConfig `mapstructure:"providers"`
	LLM       LLMConfig       `mapstructure:"llm"`
	News      NewsConfig      `mapstructure:"news"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Watch     WatchConfig     `mapstructure:"watch"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// HoldingConfig declares one tracked instrument.
type HoldingConfig struct {
	Symbol string `mapstructure:"symbol"`
	Kind   string `mapstructure:"kind"`
	Name   string `mapstructure:"name"`
}

// HoldingsConfig declares the tracked portfolio and its priority subset.
type HoldingsConfig struct {
	Tracked []HoldingConfig `mapstructure:"tracked"`
	Top     []string        `mapstructure:"top"`
}

// Domain converts the configured holdings to their run-time shape.
func (h HoldingsConfig) Domain() []domain.Holding {
	holdings := make([]domain.Holding, 0, len(h.Tracked))
	for _, entry := range h.Tracked {
		holdings = append(holdings, domain.Holding{
			Symbol:      strings.ToUpper(entry.Symbol),
			Kind:        domain.HoldingKind(strings.ToLower(entry.Kind)),
			DisplayName: entry.Name,
		})
	}
	return holdings
}

// TopSymbols returns the uppercased priority symbols.
func (h HoldingsConfig) TopSymbols() []string {
	top := make([]string, 0, len(h.Top))
	for _, s := range h.Top {
		top = append(top, strings.ToUpper(s))
	}
	return top
}

// PipelineConfig tunes the orchestrator.
type PipelineConfig struct {
	MaxConcurrent     int     `mapstructure:"max_concurrent"`
	MinComposite      float64 `mapstructure:"min_composite"`
	AlertThresholdPct float64 `mapstructure:"alert_threshold_pct"`
}

// ProviderConfig covers one market-data provider endpoint.
type ProviderConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	APIKey         string        `mapstructure:"api_key"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// ProvidersConfig covers the price resolver and its provider chain.
type ProvidersConfig struct {
	CoinGecko        ProviderConfig `mapstructure:"coingecko"`
	Finnhub          ProviderConfig `mapstructure:"finnhub"`
	AlphaVantage     ProviderConfig `mapstructure:"alphavantage"`
	Yahoo            ProviderConfig `mapstructure:"yahoo"`
	AttemptTimeout   time.Duration  `mapstructure:"attempt_timeout"`
	RetryBackoff     time.Duration  `mapstructure:"retry_backoff"`
	BatchConcurrency int            `mapstructure:"batch_concurrency"`
	CacheTTL         time.Duration  `mapstructure:"cache_ttl"`
}

// LLMConfig wires the scoring and deep-research collaborators.
type LLMConfig struct {
	APIKey        string `mapstructure:"api_key"`
	ScorerModel   string `mapstructure:"scorer_model"`
	ResearchModel string `mapstructure:"research_model"`
}

// NewsConfig covers the candidate-item source.
type NewsConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	APIKey         string        `mapstructure:"api_key"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	Limit          int           `mapstructure:"limit"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity for the telemetry and
// run-audit store. Persistence is disabled without a DSN.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// WatchConfig governs the scheduled-run loop.
type WatchConfig struct {
	Interval        time.Duration `mapstructure:"interval"`
	StartupDelay    time.Duration `mapstructure:"startup_delay"`
	AdvisoryLockKey int64         `mapstructure:"advisory_lock_key"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("HOLDINGSWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "holdingswatch")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("pipeline.max_concurrent", 4)
	v.SetDefault("pipeline.min_composite", 5.0)
	v.SetDefault("pipeline.alert_threshold_pct", 5.0)

	v.SetDefault("providers.coingecko.base_url", "https://api.coingecko.com/api/v3")
	v.SetDefault("providers.coingecko.request_timeout", "10s")
	v.SetDefault("providers.finnhub.request_timeout", "10s")
	v.SetDefault("providers.alphavantage.base_url", "https://www.alphavantage.co")
	v.SetDefault("providers.alphavantage.request_timeout", "25s")
	v.SetDefault("providers.yahoo.base_url", "https://query1.finance.yahoo.com")
	v.SetDefault("providers.yahoo.request_timeout", "10s")
	v.SetDefault("providers.attempt_timeout", "15s")
	v.SetDefault("providers.retry_backoff", "2s")
	v.SetDefault("providers.batch_concurrency", 3)
	v.SetDefault("providers.cache_ttl", "5m")

	v.SetDefault("llm.scorer_model", "gpt-4o-mini")
	v.SetDefault("llm.research_model", "gpt-4o")

	v.SetDefault("news.base_url", "https://www.alphavantage.co")
	v.SetDefault("news.request_timeout", "30s")
	v.SetDefault("news.limit", 50)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")

	v.SetDefault("watch.interval", "24h")
	v.SetDefault("watch.startup_delay", "0s")
	v.SetDefault("watch.advisory_lock_key", int64(0x686f6c64))
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Pipeline.MaxConcurrent <= 0 {
		return fmt.Errorf("pipeline.max_concurrent must be greater than zero")
	}
	if c.Pipeline.MinComposite < 0 || c.Pipeline.MinComposite > 10 {
		return fmt.Errorf("pipeline.min_composite must be within [0,10]")
	}
	if c.Pipeline.AlertThresholdPct < 0 {
		return fmt.Errorf("pipeline.alert_threshold_pct cannot be negative")
	}
	if c.Watch.Interval <= 0 {
		return fmt.Errorf("watch.interval must be greater than zero")
	}

	symbols := make(map[string]bool, len(c.Holdings.Tracked))
	for _, h := range c.Holdings.Tracked {
		if h.Symbol == "" {
			return fmt.Errorf("holdings.tracked entries require a symbol")
		}
		upper := strings.ToUpper(h.Symbol)
		if symbols[upper] {
			return fmt.Errorf("duplicate holding symbol %s", upper)
		}
		symbols[upper] = true

		switch domain.HoldingKind(strings.ToLower(h.Kind)) {
		case domain.KindStock, domain.KindCrypto, domain.KindCommodity:
		default:
			return fmt.Errorf("holding %s has unknown kind %q", upper, h.Kind)
		}
	}
	for _, top := range c.Holdings.Top {
		if !symbols[strings.ToUpper(top)] {
			return fmt.Errorf("top holding %s is not in holdings.tracked", top)
		}
	}
	return nil
}
