package dashboard

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/pemodest0/Assyntrax-sub000/internal/chart"
	"github.com/pemodest0/Assyntrax-sub000/internal/feed"
	"github.com/pemodest0/Assyntrax-sub000/internal/metrics"
	"github.com/pemodest0/Assyntrax-sub000/internal/regime"
	"github.com/pemodest0/Assyntrax-sub000/internal/series"
)

// Config holds the fixed parameters of a session.
type Config struct {
	Geometry        chart.Geometry
	MaxRenderPoints int
	Horizons        []int
	Metrics         *metrics.Registry
	Cache           *chart.Cache
}

// Session owns one dashboard's state and the board it was last loaded
// with. Loads are tagged with a generation; a load that finishes after a
// newer one started is dropped.
type Session struct {
	src feed.Source
	cfg Config

	gen atomic.Uint64

	mu     sync.Mutex
	state  State
	board  feed.Board
	loaded bool
}

func NewSession(src feed.Source, cfg Config) *Session {
	if cfg.Geometry.Width == 0 {
		cfg.Geometry = chart.DefaultGeometry()
	}
	return &Session{src: src, cfg: cfg, state: Initial()}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Board returns the last accepted board and whether one was loaded.
func (s *Session) Board() (feed.Board, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.board, s.loaded
}

// Dispatch applies a and reloads when the remote inputs changed.
func (s *Session) Dispatch(ctx context.Context, a Action) State {
	s.mu.Lock()
	prev := s.state
	if pm, ok := a.(PointerMove); ok {
		if pm.Geometry.Width == 0 {
			pm.Geometry = s.cfg.Geometry
		}
		if pm.Count == 0 {
			if p, ok := s.preparedLocked(); ok {
				pm.Count = p.Count
			}
		}
		a = pm
	}
	next := Reduce(prev, a)
	s.state = next
	needLoad := !s.loaded || prev.FetchKey() != next.FetchKey()
	s.mu.Unlock()

	if needLoad && len(next.Selected) > 0 {
		s.Load(ctx)
	}
	return s.State()
}

// Load fetches the board for the current state. It reports whether the
// result was accepted.
func (s *Session) Load(ctx context.Context) bool {
	gen := s.gen.Add(1)
	st := s.State()
	b := feed.LoadBoard(ctx, s.src, feed.Request{
		Filter:   st.Filter,
		Assets:   st.Selected,
		TF:       st.TF,
		Horizons: s.cfg.Horizons,
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen.Load() {
		log.Debug().Uint64("gen", gen).Msg("dashboard: stale load discarded")
		s.cfg.Metrics.RecordStaleLoad()
		return false
	}
	for _, pts := range b.Series {
		if len(pts) > 0 && !regime.HasRegimes(pts) {
			s.cfg.Metrics.RecordFallback()
		}
	}
	s.board, s.loaded = b, true
	return true
}

func (s *Session) preparedLocked() (series.Prepared, bool) {
	if !s.loaded {
		return series.Prepared{}, false
	}
	return series.Prepare(s.board.Series, s.state.Options(s.cfg.MaxRenderPoints))
}

// Prepared runs the series pipeline on the current board.
func (s *Session) Prepared() (series.Prepared, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.preparedLocked()
}

// View projects the current chart; ok is false when there is no data.
func (s *Session) View() (chart.View, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.preparedLocked()
	if !ok {
		return chart.View{}, false
	}
	return chart.Build(p, s.cfg.Geometry, s.state.Aggregation), true
}

// Tooltip describes the hovered point, if any.
func (s *Session) Tooltip() (chart.Tooltip, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.Hover.Active {
		return chart.Tooltip{}, false
	}
	p, ok := s.preparedLocked()
	if !ok || s.state.Hover.Index >= len(p.Focus) {
		return chart.Tooltip{}, false
	}
	idx := s.state.Hover.Index
	t := chart.BuildTooltip(p.Focus[idx], s.board.Quality(p.Primary()))
	t.Index = idx
	t.X = s.cfg.Geometry.ScaleX(idx, len(p.Focus))
	return t, true
}

// Image renders the current chart as PNG, using the cache when configured.
func (s *Session) Image(width, height int) ([]byte, error) {
	s.mu.Lock()
	st := s.state
	p, ok := s.preparedLocked()
	runID := s.board.Run.RunID
	s.mu.Unlock()
	if !ok {
		return nil, chart.ErrNoData
	}

	key := runID + "|" + st.CacheKey() + "|" + strconv.Itoa(width) + "x" + strconv.Itoa(height)
	if s.cfg.Cache != nil {
		if img, hit := s.cfg.Cache.Get(key); hit {
			s.cfg.Metrics.CacheLookup(true)
			return img, nil
		}
		s.cfg.Metrics.CacheLookup(false)
	}
	img, err := chart.RenderPNG(p, chart.RenderOptions{
		Width:       width,
		Height:      height,
		Aggregation: st.Aggregation,
		Normalized:  st.Normalize,
	})
	if err != nil {
		return nil, err
	}
	if s.cfg.Cache != nil {
		s.cfg.Cache.Set(key, img)
	}
	return img, nil
}
