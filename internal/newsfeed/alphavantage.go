// Package newsfeed supplies candidate items from upstream news sources.
package newsfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/peterbitar/holdingswatch/internal/domain"
)

// Source supplies candidate items for a query string. No ordering guarantee.
type Source interface {
	Fetch(ctx context.Context, query string, limit int) ([]domain.CandidateItem, error)
}

// AlphaVantageOptions parameterise the news source.
type AlphaVantageOptions struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// AlphaVantage pulls the NEWS_SENTIMENT feed filtered by tickers.
type AlphaVantage struct {
	opts    AlphaVantageOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewAlphaVantage constructs the news source.
func NewAlphaVantage(opts AlphaVantageOptions, logger zerolog.Logger) *AlphaVantage {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://www.alphavantage.co"
	}
	return &AlphaVantage{
		opts:    opts,
		logger:  logger.With().Str("component", "news_source").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

type newsResponse struct {
	Feed []struct {
		Title   string `json:"title"`
		Summary string `json:"summary"`
		URL     string `json:"url"`
		Source  string `json:"source"`
	} `json:"feed"`
	Note        string `json:"Note"`
	Information string `json:"Information"`
}

// Fetch pulls up to limit candidate items for a comma-separated ticker query.
func (a *AlphaVantage) Fetch(ctx context.Context, query string, limit int) ([]domain.CandidateItem, error) {
	if limit <= 0 {
		limit = 50
	}

	params := url.Values{}
	params.Set("function", "NEWS_SENTIMENT")
	params.Set("limit", fmt.Sprintf("%d", limit))
	params.Set("sort", "LATEST")
	params.Set("apikey", a.opts.APIKey)
	if query != "" {
		params.Set("tickers", query)
	}
	endpoint := a.baseURL + "/query?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("news fetch: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("news fetch: http %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var raw newsResponse
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("news decode: %w", err)
	}
	if raw.Note != "" || raw.Information != "" {
		msg := raw.Note
		if msg == "" {
			msg = raw.Information
		}
		return nil, fmt.Errorf("news feed rate limited: %s", msg)
	}

	items := make([]domain.CandidateItem, 0, len(raw.Feed))
	for _, entry := range raw.Feed {
		if entry.URL == "" {
			continue
		}
		items = append(items, domain.CandidateItem{
			URL:         entry.URL,
			Title:       entry.Title,
			Description: entry.Summary,
			SourceHost:  sourceHost(entry.URL, entry.Source),
		})
	}

	a.logger.Info().Int("items", len(items)).Str("query", query).Msg("candidate items fetched")
	return items, nil
}

func sourceHost(rawURL, fallback string) string {
	if u, err := url.Parse(rawURL); err == nil && u.Hostname() != "" {
		return u.Hostname()
	}
	return strings.ToLower(fallback)
}

var _ Source = (*AlphaVantage)(nil)
