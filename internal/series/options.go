package series

import (
	"strings"

	"github.com/pemodest0/Assyntrax-sub000/internal/regime"
)

// DefaultMaxRenderPoints caps the number of points drawn per series.
const DefaultMaxRenderPoints = 1600

// SeriesMap holds the raw point list of every asset, keyed by asset id.
type SeriesMap map[string][]regime.PricePoint

// RangePreset selects how many trailing observations are shown.
type RangePreset string

const (
	Range30d  RangePreset = "30d"
	Range90d  RangePreset = "90d"
	Range180d RangePreset = "180d"
	Range1y   RangePreset = "1y"
	RangeAll  RangePreset = "all"
)

var rangeCaps = map[RangePreset]int{
	Range30d:  30,
	Range90d:  90,
	Range180d: 180,
	Range1y:   252,
	RangeAll:  0,
}

// Cap returns the trailing observation cap; 0 means unbounded.
func (r RangePreset) Cap() int { return rangeCaps[r] }

// ParseRange accepts a preset name; anything unknown selects all.
func ParseRange(s string) RangePreset {
	r := RangePreset(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := rangeCaps[r]; ok {
		return r
	}
	return RangeAll
}

// Smoothing selects the moving average applied after normalization.
type Smoothing string

const (
	SmoothNone  Smoothing = "none"
	SmoothShort Smoothing = "ema_short"
	SmoothLong  Smoothing = "ema_long"
)

// Period is the EMA window; 0 disables smoothing.
func (s Smoothing) Period() int {
	switch s {
	case SmoothShort:
		return 8
	case SmoothLong:
		return 20
	}
	return 0
}

func ParseSmoothing(s string) Smoothing {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ema_short", "short":
		return SmoothShort
	case "ema_long", "long":
		return SmoothLong
	}
	return SmoothNone
}

// Alignment decides how series of different lengths are lined up.
type Alignment string

const (
	// AlignmentPositional keeps the trailing commonLen points of every
	// series and treats equal indices as the same time step.
	AlignmentPositional Alignment = "positional"
	// AlignmentDate outer-joins the series on their dates.
	AlignmentDate Alignment = "date"
)

func ParseAlignment(s string) Alignment {
	if strings.ToLower(strings.TrimSpace(s)) == string(AlignmentDate) {
		return AlignmentDate
	}
	return AlignmentPositional
}

// GapFill controls what a date-aligned series shows on dates it lacks.
type GapFill string

const (
	GapNone    GapFill = "none"
	GapForward GapFill = "forward"
)

// NaNPolicy controls how the EMA treats missing values.
type NaNPolicy int

const (
	// NaNResume emits NaN for a missing value and reseeds the average at
	// the next finite value.
	NaNResume NaNPolicy = iota
	// NaNPropagate feeds missing values into the recurrence, poisoning
	// every later output.
	NaNPropagate
)

// Options are the user-facing knobs of the preparation pipeline.
type Options struct {
	Selected        []string
	Hidden          map[string]bool
	Range           RangePreset
	Normalize       bool
	Smoothing       Smoothing
	MaxRenderPoints int
	Alignment       Alignment
	GapFill         GapFill
	NaNPolicy       NaNPolicy
}

func (o Options) maxPoints() int {
	if o.MaxRenderPoints == 0 {
		return DefaultMaxRenderPoints
	}
	return o.MaxRenderPoints
}
