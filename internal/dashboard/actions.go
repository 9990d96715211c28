package dashboard

import (
	"strings"

	"github.com/pemodest0/Assyntrax-sub000/internal/chart"
	"github.com/pemodest0/Assyntrax-sub000/internal/series"
	"github.com/pemodest0/Assyntrax-sub000/internal/snapshot"
)

// Action is a user intent applied by Reduce.
type Action interface{ isAction() }

type SelectAssets struct{ Assets []string }
type ToggleHidden struct{ Asset string }
type SetNormalize struct{ On bool }
type SetSmoothing struct{ Smoothing series.Smoothing }
type SetRange struct{ Range series.RangePreset }
type SetFilter struct{ Filter snapshot.Filter }
type SetAggregation struct{ Aggregation chart.Aggregation }
type SetTimeframe struct{ TF string }
type SetAlignment struct {
	Alignment series.Alignment
	GapFill   series.GapFill
}

// PointerMove carries the pointer position in rendered pixels and the
// number of points currently drawn.
type PointerMove struct {
	X             float64
	RenderedWidth float64
	Count         int
	Geometry      chart.Geometry
}
type PointerLeave struct{}

func (SelectAssets) isAction()   {}
func (ToggleHidden) isAction()   {}
func (SetNormalize) isAction()   {}
func (SetSmoothing) isAction()   {}
func (SetRange) isAction()       {}
func (SetFilter) isAction()      {}
func (SetAggregation) isAction() {}
func (SetTimeframe) isAction()   {}
func (SetAlignment) isAction()   {}
func (PointerMove) isAction()    {}
func (PointerLeave) isAction()   {}

// Reduce returns the state after applying a. Any change to what is drawn
// clears the hover.
func Reduce(s State, a Action) State {
	next := s
	switch a := a.(type) {
	case SelectAssets:
		next.Selected = dedupe(a.Assets)
		hidden := map[string]bool{}
		for _, asset := range next.Selected {
			if s.Hidden[asset] {
				hidden[asset] = true
			}
		}
		next.Hidden = hidden
		next.Hover = chart.HoverState{}
	case ToggleHidden:
		hidden := make(map[string]bool, len(s.Hidden)+1)
		for k, v := range s.Hidden {
			if v {
				hidden[k] = true
			}
		}
		if hidden[a.Asset] {
			delete(hidden, a.Asset)
		} else {
			hidden[a.Asset] = true
		}
		next.Hidden = hidden
		next.Hover = chart.HoverState{}
	case SetNormalize:
		next.Normalize = a.On
	case SetSmoothing:
		next.Smoothing = a.Smoothing
	case SetRange:
		next.Range = a.Range
		next.Hover = chart.HoverState{}
	case SetFilter:
		next.Filter = a.Filter
	case SetAggregation:
		next.Aggregation = a.Aggregation
	case SetTimeframe:
		next.TF = a.TF
		next.Hover = chart.HoverState{}
	case SetAlignment:
		next.Alignment = a.Alignment
		next.GapFill = a.GapFill
		next.Hover = chart.HoverState{}
	case PointerMove:
		next.Hover = s.Hover.Move(a.Geometry, a.X, a.RenderedWidth, a.Count)
	case PointerLeave:
		next.Hover = s.Hover.Leave()
	}
	return next
}

func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
