package openai

import (
	"context"
	"fmt"
	"strings"

	oa "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/pemodest0/Assyntrax-sub000/internal/regime"
	"github.com/pemodest0/Assyntrax-sub000/internal/storage"
)

// Explainer describes one asset's regime and how it got there.
type Explainer struct {
	cli     oa.Client
	enabled bool
}

func NewExplainer(apiKey string) *Explainer {
	if apiKey == "" {
		return &Explainer{}
	}
	client := oa.NewClient(option.WithAPIKey(apiKey))
	return &Explainer{cli: client, enabled: true}
}

func (e *Explainer) Explain(ctx context.Context, asset string, s regime.Summary, hist []storage.HistoryEntry) (string, error) {
	facts := ExplainFacts(asset, s, hist)
	if !e.enabled {
		return facts, nil
	}

	systemPrompt := `You explain market regime classifications to non-specialists.

Your response must follow this exact structure:

**Current regime:**
[One sentence on what the current label means for this asset]

**Recent path:**
[How the label changed across recent runs, if history is given]

**What to watch:**
[Which kind of price behaviour would move it to another regime]

Guidelines:
- STABLE means small relative moves, UNSTABLE means large ones, TRANSITION is in between
- INCONCLUSIVE means the pipeline could not decide; say so plainly
- Do not give investment advice
- Keep it under 120 words`

	resp, err := e.cli.Chat.Completions.New(ctx, oa.ChatCompletionNewParams{
		Model: "gpt-4",
		Messages: []oa.ChatCompletionMessageParamUnion{
			oa.SystemMessage(systemPrompt),
			oa.UserMessage(facts),
		},
		MaxTokens: oa.Int(600), // Limit response length for telegram
	})
	if err != nil {
		return facts, fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return facts, fmt.Errorf("no response from OpenAI")
	}
	return resp.Choices[0].Message.Content, nil
}

// ExplainFacts is the factual block sent to the model, and the reply when
// no model is configured.
func ExplainFacts(asset string, s regime.Summary, hist []storage.HistoryEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: latest regime %s", asset, orDash(string(s.Last)))
	if s.LastDate != "" {
		fmt.Fprintf(&b, " (%s)", s.LastDate)
	}
	b.WriteString("\n")
	for _, l := range []regime.Label{regime.Stable, regime.Transition, regime.Unstable, regime.Inconclusive} {
		if n := s.Counts[l]; n > 0 {
			fmt.Fprintf(&b, "%s: %d points (%.0f%%)\n", l, n, s.Share(l)*100)
		}
	}
	if s.MeanDiff > 0 {
		fmt.Fprintf(&b, "mean move %.2f%%, std %.2f%%\n", s.MeanDiff*100, s.StdDiff*100)
	}
	if len(hist) > 0 {
		path := make([]string, len(hist))
		for i, h := range hist {
			path[i] = string(h.Regime)
		}
		fmt.Fprintf(&b, "runs: %s\n", strings.Join(path, " -> "))
	}
	return strings.TrimSpace(b.String())
}
