// Package llm wires the OpenAI API in as the opaque scoring and
// deep-research collaborators. Core pipeline logic never imports this
// package directly; it sees only the capability interfaces.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rs/zerolog"

	"github.com/peterbitar/holdingswatch/internal/classify"
	"github.com/peterbitar/holdingswatch/internal/domain"
	"github.com/peterbitar/holdingswatch/internal/telemetry"
)

const scorerSystemPrompt = `You are a financial news triage analyst. Given a news item and a list of tracked holdings, rate the item.

Output as JSON only, no other text:
{
  "impact": 1-10 how market-moving this news is (10 = major),
  "relevance": 0.0-1.0 how directly it concerns the tracked holdings,
  "reasoning": "one or two sentences"
}`

// Options configure the OpenAI-backed collaborators.
type Options struct {
	APIKey string
	Model  string
}

// Scorer scores candidate items with a chat completion.
type Scorer struct {
	client *openai.Client
	model  openai.ChatModel
	sink   telemetry.Sink
	logger zerolog.Logger
}

// NewScorer constructs the production scorer.
func NewScorer(opts Options, sink telemetry.Sink, logger zerolog.Logger) *Scorer {
	client := openai.NewClient(option.WithAPIKey(opts.APIKey))
	model := openai.ChatModelGPT4oMini
	if opts.Model != "" {
		model = openai.ChatModel(opts.Model)
	}
	if sink == nil {
		sink = telemetry.NopSink{}
	}
	return &Scorer{
		client: &client,
		model:  model,
		sink:   sink,
		logger: logger.With().Str("component", "llm_scorer").Logger(),
	}
}

// Score asks the model for impact and relevance. Any transport or parse
// failure is returned as an error; the scorer never fabricates a score.
func (s *Scorer) Score(ctx context.Context, itemText string, holdings []domain.Holding) (classify.ScoreResult, error) {
	var sb strings.Builder
	sb.WriteString("Tracked holdings:\n")
	for _, h := range holdings {
		fmt.Fprintf(&sb, "- %s (%s, %s)\n", h.Symbol, h.DisplayName, h.Kind)
	}
	sb.WriteString("\nNews item:\n")
	sb.WriteString(itemText)

	resp, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: s.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(scorerSystemPrompt),
			openai.UserMessage(sb.String()),
		},
	})
	if err != nil {
		return classify.ScoreResult{}, fmt.Errorf("openai API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return classify.ScoreResult{}, fmt.Errorf("no response from openai")
	}

	s.sink.Record(telemetry.Event{
		Kind:             telemetry.KindLLMCall,
		Provider:         "openai",
		Model:            string(s.model),
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		Detail:           "score",
	})

	content := cleanJSONResponse(resp.Choices[0].Message.Content)

	var parsed struct {
		Impact    int     `json:"impact"`
		Relevance float64 `json:"relevance"`
		Reasoning string  `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return classify.ScoreResult{}, fmt.Errorf("failed to parse score response: %w, content: %s", err, content)
	}

	return classify.ScoreResult{
		Impact:    parsed.Impact,
		Relevance: parsed.Relevance,
		Reasoning: parsed.Reasoning,
	}, nil
}

// cleanJSONResponse strips markdown code fences some models wrap around
// JSON output.
func cleanJSONResponse(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}

var _ classify.Scorer = (*Scorer)(nil)
