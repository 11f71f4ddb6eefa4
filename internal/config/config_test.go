package config

import (
	"strings"
	"testing"
	"time"

	"github.com/peterbitar/holdingswatch/internal/domain"
)

func validConfig() *Config {
	return &Config{
		Pipeline: PipelineConfig{MaxConcurrent: 4, MinComposite: 5, AlertThresholdPct: 5},
		Watch:    WatchConfig{Interval: 24 * time.Hour},
		Holdings: HoldingsConfig{
			Tracked: []HoldingConfig{
				{Symbol: "aapl", Kind: "stock", Name: "Apple Inc."},
				{Symbol: "BTC", Kind: "crypto", Name: "Bitcoin"},
			},
			Top: []string{"AAPL"},
		},
	}
}

func TestValidateAccepts(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"zero concurrency", func(c *Config) { c.Pipeline.MaxConcurrent = 0 }, "max_concurrent"},
		{"composite out of range", func(c *Config) { c.Pipeline.MinComposite = 11 }, "min_composite"},
		{"negative threshold", func(c *Config) { c.Pipeline.AlertThresholdPct = -1 }, "alert_threshold_pct"},
		{"zero watch interval", func(c *Config) { c.Watch.Interval = 0 }, "watch.interval"},
		{"missing symbol", func(c *Config) { c.Holdings.Tracked[0].Symbol = "" }, "require a symbol"},
		{"duplicate symbol", func(c *Config) { c.Holdings.Tracked[1] = HoldingConfig{Symbol: "AAPL", Kind: "stock"} }, "duplicate"},
		{"unknown kind", func(c *Config) { c.Holdings.Tracked[0].Kind = "bond" }, "unknown kind"},
		{"top not tracked", func(c *Config) { c.Holdings.Top = []string{"NVDA"} }, "not in holdings.tracked"},
	}
	for _, tc := range cases {
		cfg := validConfig()
		tc.mutate(cfg)
		err := cfg.Validate()
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: expected error containing %q, got %v", tc.name, tc.want, err)
		}
	}
}

func TestHoldingsDomainNormalizes(t *testing.T) {
	cfg := validConfig()
	holdings := cfg.Holdings.Domain()
	if len(holdings) != 2 {
		t.Fatalf("expected 2 holdings, got %d", len(holdings))
	}
	if holdings[0].Symbol != "AAPL" || holdings[0].Kind != domain.KindStock {
		t.Fatalf("symbols must be uppercased and kinds lowercased, got %+v", holdings[0])
	}
	if top := cfg.Holdings.TopSymbols(); len(top) != 1 || top[0] != "AAPL" {
		t.Fatalf("unexpected top symbols %v", top)
	}
}
