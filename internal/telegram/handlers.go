package telegram

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/pemodest0/Assyntrax-sub000/internal/chart"
	"github.com/pemodest0/Assyntrax-sub000/internal/dashboard"
	"github.com/pemodest0/Assyntrax-sub000/internal/feed"
	"github.com/pemodest0/Assyntrax-sub000/internal/metrics"
	"github.com/pemodest0/Assyntrax-sub000/internal/regime"
	"github.com/pemodest0/Assyntrax-sub000/internal/series"
	"github.com/pemodest0/Assyntrax-sub000/internal/snapshot"
	"github.com/pemodest0/Assyntrax-sub000/internal/storage"
)

var (
	// /regime ASSET [30d|90d|180d|1y|all]
	reRegime = regexp.MustCompile(`^/regime(?:@[\w_]+)?\s+([A-Za-z0-9\.^_=+-]+)(?:\s+(30d|90d|180d|1y|all))?$`)
	// /compare A1 A2 ... [range]
	reCompare   = regexp.MustCompile(`^/compare(?:@[\w_]+)?\s+([A-Za-z0-9\.^_=+\-\s]+?)(?:\s+(30d|90d|180d|1y|all))?$`)
	reNormalize = regexp.MustCompile(`^/normalize(?:@[\w_]+)?\s+(on|off)$`)
	reSmooth    = regexp.MustCompile(`^/smooth(?:@[\w_]+)?\s+(none|short|long)$`)
	reAlign     = regexp.MustCompile(`^/align(?:@[\w_]+)?\s+(positional|date)$`)
	// /board [domain]
	reBoard   = regexp.MustCompile(`^/board(?:@[\w_]+)?(?:\s+([A-Za-z_]+))?$`)
	reHistory = regexp.MustCompile(`^/history(?:@[\w_]+)?\s+([A-Za-z0-9\.^_=+-]+)$`)
	reExplain = regexp.MustCompile(`^/explain(?:@[\w_]+)?\s+([A-Za-z0-9\.^_=+-]+)$`)
	reHelp    = regexp.MustCompile(`^/(help|start)(?:@[\w_]+)?$`)
)

// Narrator summarizes a whole board.
type Narrator interface {
	Narrate(ctx context.Context, b feed.Board) (string, error)
}

// Explainer describes a single asset.
type Explainer interface {
	Explain(ctx context.Context, asset string, s regime.Summary, hist []storage.HistoryEntry) (string, error)
}

// Deps are the bot's collaborators. Source is required.
type Deps struct {
	Source          feed.Source
	History         *storage.Store
	Narrator        Narrator
	Explainer       Explainer
	Metrics         *metrics.Registry
	Cache           *chart.Cache
	MaxRenderPoints int
}

type Handlers struct {
	api  Sender
	deps Deps

	mu       sync.Mutex
	sessions map[int64]*dashboard.Session
}

func NewHandlers(api Sender, deps Deps) *Handlers {
	return &Handlers{api: api, deps: deps, sessions: map[int64]*dashboard.Session{}}
}

// session returns the chat's dashboard, creating it on first use.
func (h *Handlers) session(chatID int64) *dashboard.Session {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.sessions[chatID]
	if !ok {
		s = dashboard.NewSession(h.deps.Source, dashboard.Config{
			MaxRenderPoints: h.deps.MaxRenderPoints,
			Metrics:         h.deps.Metrics,
			Cache:           h.deps.Cache,
		})
		h.sessions[chatID] = s
	}
	return s
}

func (h *Handlers) HandleMessage(m *tgbotapi.Message) {
	txt := strings.TrimSpace(m.Text)
	chatID := m.Chat.ID
	switch {
	case reRegime.MatchString(txt):
		g := reRegime.FindStringSubmatch(txt)
		h.handleChart(chatID, []string{g[1]}, g[2], false)

	case reCompare.MatchString(txt):
		g := reCompare.FindStringSubmatch(txt)
		assets := parseAssets(g[1])
		if len(assets) < 2 {
			h.reply(chatID, "Please provide at least two assets, e.g. /compare SPY QQQ 1y")
			return
		}
		h.handleChart(chatID, assets, g[2], true)

	case reNormalize.MatchString(txt):
		on := reNormalize.FindStringSubmatch(txt)[1] == "on"
		h.update(chatID, dashboard.SetNormalize{On: on})
		h.reply(chatID, fmt.Sprintf("Base-100 normalization %s.", onOff(on)))

	case reSmooth.MatchString(txt):
		word := reSmooth.FindStringSubmatch(txt)[1]
		h.update(chatID, dashboard.SetSmoothing{Smoothing: series.ParseSmoothing(word)})
		h.reply(chatID, "Smoothing set to "+word+".")

	case reAlign.MatchString(txt):
		al := series.ParseAlignment(reAlign.FindStringSubmatch(txt)[1])
		gap := series.GapNone
		if al == series.AlignmentDate {
			gap = series.GapForward
		}
		h.update(chatID, dashboard.SetAlignment{Alignment: al, GapFill: gap})
		h.reply(chatID, "Alignment set to "+string(al)+".")

	case reBoard.MatchString(txt):
		h.handleBoard(chatID, reBoard.FindStringSubmatch(txt)[1])

	case reHistory.MatchString(txt):
		h.handleHistory(chatID, reHistory.FindStringSubmatch(txt)[1])

	case reExplain.MatchString(txt):
		h.handleExplain(chatID, reExplain.FindStringSubmatch(txt)[1])

	case reHelp.MatchString(txt):
		h.handleHelp(chatID)
	}
}

func parseAssets(field string) []string {
	raw := strings.Fields(strings.TrimSpace(field))
	seen := map[string]struct{}{}
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		su := strings.TrimSpace(s)
		if su == "" {
			continue
		}
		if _, ok := seen[su]; ok {
			continue
		}
		seen[su] = struct{}{}
		out = append(out, su)
	}
	return out
}

// update applies a presentation action without loading anything.
func (h *Handlers) update(chatID int64, a dashboard.Action) {
	h.session(chatID).Dispatch(context.Background(), a)
}

func (h *Handlers) handleChart(chatID int64, assets []string, rng string, compare bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	s := h.session(chatID)
	s.Dispatch(ctx, dashboard.SelectAssets{Assets: assets})
	if rng != "" {
		s.Dispatch(ctx, dashboard.SetRange{Range: series.ParseRange(rng)})
	}
	if compare {
		s.Dispatch(ctx, dashboard.SetNormalize{On: true})
	}

	img, err := s.Image(980, 420)
	if errors.Is(err, chart.ErrNoData) {
		h.reply(chatID, "No data for "+strings.Join(assets, ", ")+".")
		return
	}
	if err != nil {
		h.reply(chatID, "Chart failed: "+err.Error())
		return
	}
	st := s.State()
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: strings.Join(assets, "_") + "_" + string(st.Range) + ".png", Bytes: img})
	photo.Caption = caption(s, st)
	h.send(photo)
}

func caption(s *dashboard.Session, st dashboard.State) string {
	p, ok := s.Prepared()
	if !ok {
		return ""
	}
	names := make([]string, len(p.Series))
	for i, ps := range p.Series {
		names[i] = ps.Asset
	}
	parts := []string{strings.Join(names, ", "), strings.ToUpper(string(st.Range))}
	if n := len(p.Focus); n > 0 {
		last := p.Focus[n-1]
		if last.Regime != "" {
			parts = append(parts, fmt.Sprintf("%s %s (%.0f%%)", p.Primary(), last.Regime, last.Confidence*100))
		}
	}
	if st.Normalize {
		parts = append(parts, "base 100")
	}
	return strings.Join(parts, " • ")
}

func (h *Handlers) handleBoard(chatID int64, domain string) {
	ctx, cancel := context.WithTimeout(context.Background(), 45*time.Second)
	defer cancel()
	f := snapshot.Filter{Domain: domain}
	payload := h.deps.Source.Assets(ctx, f)
	assets := make([]string, 0, len(payload.Records))
	for _, r := range payload.Records {
		assets = append(assets, r.Asset)
	}
	b := feed.LoadBoard(ctx, h.deps.Source, feed.Request{Filter: f, Assets: assets, TF: dashboard.Initial().TF})
	if h.deps.Narrator == nil {
		h.reply(chatID, "Board summaries are not configured.")
		return
	}
	out, err := h.deps.Narrator.Narrate(ctx, b)
	if err != nil {
		log.Warn().Err(err).Msg("telegram: narrate failed")
	}
	h.reply(chatID, out)
}

func (h *Handlers) handleHistory(chatID int64, asset string) {
	if h.deps.History == nil {
		h.reply(chatID, "History is not available.")
		return
	}
	entries, err := h.deps.History.History(asset, 12)
	if err != nil {
		h.reply(chatID, "History failed: "+err.Error())
		return
	}
	if len(entries) == 0 {
		h.reply(chatID, "No recorded runs for "+asset+".")
		return
	}
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = fmt.Sprintf("%s • %s • %.0f%%", time.Unix(e.TS, 0).UTC().Format("2006-01-02"), e.Regime, e.Confidence*100)
	}
	h.reply(chatID, asset+" regime history\n"+strings.Join(lines, "\n"))
}

func (h *Handlers) handleExplain(chatID int64, asset string) {
	if h.deps.Explainer == nil {
		h.reply(chatID, "Explanations are not configured.")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 45*time.Second)
	defer cancel()
	pts := h.deps.Source.SeriesBatch(ctx, []string{asset}, dashboard.Initial().TF, 0)[asset]
	if len(pts) == 0 {
		h.reply(chatID, "No data for "+asset+".")
		return
	}
	var hist []storage.HistoryEntry
	if h.deps.History != nil {
		hist, _ = h.deps.History.History(asset, 6)
	}
	out, err := h.deps.Explainer.Explain(ctx, asset, regime.Summarize(pts), hist)
	if err != nil {
		log.Warn().Err(err).Str("asset", asset).Msg("telegram: explain failed")
	}
	h.reply(chatID, out)
}

func (h *Handlers) handleHelp(chatID int64) {
	help := "Commands\n\n" +
		"- /regime ASSET [30d|90d|180d|1y|all] - Price chart with the latest regime\n" +
		"- /compare A1 A2 ... [range] - Several assets, indexed to base 100\n" +
		"- /normalize on|off - Toggle base-100 indexing for this chat\n" +
		"- /smooth none|short|long - EMA smoothing (8 or 20 points)\n" +
		"- /align positional|date - Line series up by position or by date\n" +
		"- /board [domain] - Summary of the current run\n" +
		"- /history ASSET - Regime across recorded runs\n" +
		"- /explain ASSET - What the asset's regime means\n" +
		"\nRegimes: STABLE, TRANSITION, UNSTABLE, INCONCLUSIVE."
	h.reply(chatID, help)
}

func (h *Handlers) reply(chatID int64, text string) {
	h.send(tgbotapi.NewMessage(chatID, text))
}

func (h *Handlers) send(c tgbotapi.Chattable) {
	if _, err := h.api.Send(c); err != nil {
		log.Warn().Err(err).Msg("telegram: send failed")
	}
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
