// Package classify turns raw candidate items into typed, comparable scoring
// records. Impact and relevance come from an opaque scoring collaborator;
// source quality is a pure lookup against the static publisher tiers.
package classify

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/peterbitar/holdingswatch/internal/domain"
	"github.com/peterbitar/holdingswatch/internal/refdata"
)

// Composite weighting. The composite score always lands in [0,10].
const (
	impactWeight    = 0.6
	relevanceWeight = 0.3
	qualityWeight   = 0.1
)

// ScoreResult is the raw output of the scoring collaborator.
type ScoreResult struct {
	Impact    int
	Relevance float64
	Reasoning string
}

// Scorer is the opaque scoring capability. Implementations must fail loudly
// rather than return zeros on failure.
type Scorer interface {
	Score(ctx context.Context, itemText string, holdings []domain.Holding) (ScoreResult, error)
}

// Classifier scores one candidate item for impact, holding relevance, and
// source trust tier.
type Classifier struct {
	scorer Scorer
	logger zerolog.Logger
}

// New constructs a Classifier around the given scorer.
func New(scorer Scorer, logger zerolog.Logger) *Classifier {
	return &Classifier{
		scorer: scorer,
		logger: logger.With().Str("component", "classifier").Logger(),
	}
}

// Classify scores one item. A scorer failure or malformed scorer response
// surfaces as ErrClassificationFailed; the caller must treat the item as
// not-yet-scored rather than defaulting to a fabricated score.
func (c *Classifier) Classify(ctx context.Context, item domain.CandidateItem, holdings []domain.Holding) (domain.ArticleScore, error) {
	if item.URL == "" {
		return domain.ArticleScore{}, errors.New("candidate item has empty url")
	}

	text := item.Title + "\n" + item.Description
	res, err := c.scorer.Score(ctx, text, holdings)
	if err != nil {
		return domain.ArticleScore{}, fmt.Errorf("%w: %v", domain.ErrClassificationFailed, err)
	}
	if res.Impact < 1 || res.Impact > 10 {
		return domain.ArticleScore{}, fmt.Errorf("%w: impact %d out of range", domain.ErrClassificationFailed, res.Impact)
	}
	if res.Relevance < 0 || res.Relevance > 1 {
		return domain.ArticleScore{}, fmt.Errorf("%w: relevance %f out of range", domain.ErrClassificationFailed, res.Relevance)
	}

	relevance := res.Relevance
	if len(holdings) == 0 {
		relevance = 0
	}

	quality := refdata.SourceQuality(item.SourceHost)
	score := domain.ArticleScore{
		Impact:        res.Impact,
		Relevance:     relevance,
		SourceQuality: quality,
		Composite:     Composite(res.Impact, relevance, quality),
		Reasoning:     res.Reasoning,
	}

	c.logger.Debug().
		Str("url", item.URL).
		Int("impact", score.Impact).
		Float64("composite", score.Composite).
		Msg("item classified")

	return score, nil
}

// Composite computes the fixed weighted score from its three inputs.
func Composite(impact int, relevance, quality float64) float64 {
	return float64(impact)*impactWeight + relevance*10*relevanceWeight + quality*10*qualityWeight
}
