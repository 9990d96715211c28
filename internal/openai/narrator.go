package openai

import (
	"context"
	"fmt"
	"sort"
	"strings"

	oa "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/pemodest0/Assyntrax-sub000/internal/feed"
	"github.com/pemodest0/Assyntrax-sub000/internal/regime"
)

// Narrator writes a short text summary of a regime board. Without an API
// key it falls back to a plain listing.
type Narrator struct {
	cli     oa.Client
	enabled bool
}

func NewNarrator(apiKey string) *Narrator {
	if apiKey == "" {
		return &Narrator{}
	}
	client := oa.NewClient(option.WithAPIKey(apiKey))
	return &Narrator{cli: client, enabled: true}
}

func (n *Narrator) Narrate(ctx context.Context, b feed.Board) (string, error) {
	lines := BoardLines(b)
	if len(lines) == 0 {
		return "No assets in the current run.", nil
	}
	if !n.enabled {
		return Plain(b), nil
	}
	// chunk to keep tokens reasonable
	const chunk = 60
	var partials []string
	for i := 0; i < len(lines); i += chunk {
		end := i + chunk
		if end > len(lines) {
			end = len(lines)
		}
		part := strings.Join(lines[i:end], "\n")

		resp, err := n.cli.Chat.Completions.New(ctx, oa.ChatCompletionNewParams{
			Model: "gpt-4",
			Messages: []oa.ChatCompletionMessageParamUnion{
				oa.SystemMessage("You describe market regime tables. Regimes are STABLE, TRANSITION, UNSTABLE and INCONCLUSIVE. Be factual and brief. Do not give investment advice or predictions beyond the forecasts given."),
				oa.UserMessage("Summarize this regime table in a few bullets:\n" + part),
			},
		})
		if err != nil {
			return Plain(b), err
		}
		if len(resp.Choices) > 0 {
			partials = append(partials, resp.Choices[0].Message.Content)
		}
	}
	if len(partials) == 1 {
		return strings.TrimSpace(partials[0]), nil
	}

	final, err := n.cli.Chat.Completions.New(ctx, oa.ChatCompletionNewParams{
		Model: "gpt-4",
		Messages: []oa.ChatCompletionMessageParamUnion{
			oa.SystemMessage("Merge these partial regime summaries into one compact text with sections: Overview, Unstable assets, Transitions to watch. No links."),
			oa.UserMessage(strings.Join(partials, "\n\n")),
		},
	})
	if err != nil || len(final.Choices) == 0 {
		return strings.Join(partials, "\n\n"), err
	}
	return strings.TrimSpace(final.Choices[0].Message.Content), nil
}

// BoardLines renders one line per asset record, sorted by asset.
func BoardLines(b feed.Board) []string {
	recs := append(b.Assets.Records[:0:0], b.Assets.Records...)
	sort.Slice(recs, func(i, j int) bool { return recs[i].Asset < recs[j].Asset })
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		line := fmt.Sprintf("%s (%s): %s, confidence %.0f%%", r.Asset, r.Domain, r.Regime, r.Confidence*100)
		if s, ok := seriesSummary(b, r.Asset); ok {
			line += fmt.Sprintf(", %d points, %.0f%% unstable", total(s), s.Share(regime.Unstable)*100)
		}
		if fc := b.Forecasts[r.Asset]; len(fc) > 0 {
			hs := make([]int, 0, len(fc))
			for h := range fc {
				hs = append(hs, h)
			}
			sort.Ints(hs)
			parts := make([]string, len(hs))
			for i, h := range hs {
				parts[i] = fmt.Sprintf("h%d %+.4f", h, fc[h])
			}
			line += ", forecast " + strings.Join(parts, " ")
		}
		out = append(out, line)
	}
	return out
}

// Plain is the deterministic summary used without a model.
func Plain(b feed.Board) string {
	counts := map[regime.Label]int{}
	for _, r := range b.Assets.Records {
		counts[r.Regime]++
	}
	head := fmt.Sprintf("Run %s: %d stable, %d transition, %d unstable, %d inconclusive.",
		orDash(b.Run.RunID), counts[regime.Stable], counts[regime.Transition], counts[regime.Unstable], counts[regime.Inconclusive])
	lines := BoardLines(b)
	if len(lines) == 0 {
		return head
	}
	return head + "\n" + strings.Join(lines, "\n")
}

func seriesSummary(b feed.Board, asset string) (regime.Summary, bool) {
	pts := b.Series[asset]
	if len(pts) == 0 {
		return regime.Summary{}, false
	}
	return regime.Summarize(pts), true
}

func total(s regime.Summary) int {
	n := 0
	for _, c := range s.Counts {
		n += c
	}
	return n
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
