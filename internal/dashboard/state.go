package dashboard

import (
	"sort"
	"strings"

	"github.com/pemodest0/Assyntrax-sub000/internal/chart"
	"github.com/pemodest0/Assyntrax-sub000/internal/series"
	"github.com/pemodest0/Assyntrax-sub000/internal/snapshot"
)

// State is the whole dashboard UI state. It is treated as a value: Reduce
// never mutates its input.
type State struct {
	Filter      snapshot.Filter    `json:"filter"`
	Selected    []string           `json:"selected"`
	Hidden      map[string]bool    `json:"hidden"`
	Normalize   bool               `json:"normalize"`
	Smoothing   series.Smoothing   `json:"smoothing"`
	Range       series.RangePreset `json:"range"`
	Aggregation chart.Aggregation  `json:"aggregation"`
	TF          string             `json:"tf"`
	Alignment   series.Alignment   `json:"alignment"`
	GapFill     series.GapFill     `json:"gap_fill"`
	Hover       chart.HoverState   `json:"hover"`
}

// Initial is the state of a fresh dashboard.
func Initial() State {
	return State{
		Hidden:      map[string]bool{},
		Smoothing:   series.SmoothNone,
		Range:       series.Range1y,
		Aggregation: chart.AggDaily,
		TF:          "daily",
		Alignment:   series.AlignmentPositional,
		GapFill:     series.GapNone,
	}
}

// Options derives the preparation options for this state.
func (s State) Options(maxPoints int) series.Options {
	return series.Options{
		Selected:        s.Selected,
		Hidden:          s.Hidden,
		Range:           s.Range,
		Normalize:       s.Normalize,
		Smoothing:       s.Smoothing,
		MaxRenderPoints: maxPoints,
		Alignment:       s.Alignment,
		GapFill:         s.GapFill,
	}
}

// FetchKey identifies the remote data a state needs. Two states with the
// same key render from the same board.
func (s State) FetchKey() string {
	return strings.Join([]string{
		s.Filter.Domain,
		s.Filter.Status,
		boolKey(s.Filter.IncludeInconclusive),
		s.TF,
		strings.Join(s.Selected, ","),
	}, "|")
}

// CacheKey identifies the rendered chart for a state.
func (s State) CacheKey() string {
	hidden := make([]string, 0, len(s.Hidden))
	for a, h := range s.Hidden {
		if h {
			hidden = append(hidden, a)
		}
	}
	sort.Strings(hidden)
	return strings.Join([]string{
		s.FetchKey(),
		strings.Join(hidden, ","),
		boolKey(s.Normalize),
		string(s.Smoothing),
		string(s.Range),
		string(s.Aggregation),
		string(s.Alignment),
		string(s.GapFill),
	}, "|")
}

func boolKey(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
