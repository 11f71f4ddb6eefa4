package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rs/zerolog"

	"github.com/peterbitar/holdingswatch/internal/domain"
	"github.com/peterbitar/holdingswatch/internal/escalate"
	"github.com/peterbitar/holdingswatch/internal/telemetry"
)

const researchSystemPrompt = `You are a financial research assistant performing a broad research pass on an escalated question about tracked holdings. Draw on everything you know; list concrete findings and the sources you would consult.

Output as JSON only, no other text:
{
  "learnings": ["finding 1", "finding 2", ...],
  "visited_urls": ["https://...", ...]
}`

// Researcher is the deep-research collaborator backed by a larger model.
type Researcher struct {
	client *openai.Client
	model  openai.ChatModel
	sink   telemetry.Sink
	logger zerolog.Logger
}

// NewResearcher constructs the production deep-research invoker.
func NewResearcher(opts Options, sink telemetry.Sink, logger zerolog.Logger) *Researcher {
	client := openai.NewClient(option.WithAPIKey(opts.APIKey))
	model := openai.ChatModelGPT4o
	if opts.Model != "" {
		model = openai.ChatModel(opts.Model)
	}
	if sink == nil {
		sink = telemetry.NopSink{}
	}
	return &Researcher{
		client: &client,
		model:  model,
		sink:   sink,
		logger: logger.With().Str("component", "llm_researcher").Logger(),
	}
}

// Research performs one deep-research pass for an escalation reason.
func (r *Researcher) Research(ctx context.Context, query string) (domain.Finding, error) {
	resp, err := r.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: r.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(researchSystemPrompt),
			openai.UserMessage(query),
		},
	})
	if err != nil {
		return domain.Finding{}, fmt.Errorf("openai API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return domain.Finding{}, fmt.Errorf("no response from openai")
	}

	r.sink.Record(telemetry.Event{
		Kind:             telemetry.KindLLMCall,
		Provider:         "openai",
		Model:            string(r.model),
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		Detail:           "deep_research",
	})

	content := cleanJSONResponse(resp.Choices[0].Message.Content)

	var parsed struct {
		Learnings   []string `json:"learnings"`
		VisitedURLs []string `json:"visited_urls"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return domain.Finding{}, fmt.Errorf("failed to parse research response: %w, content: %s", err, content)
	}

	return domain.Finding{
		Learnings:   parsed.Learnings,
		VisitedURLs: parsed.VisitedURLs,
	}, nil
}

var _ escalate.Invoker = (*Researcher)(nil)
