package chart

import (
	"strconv"
	"strings"

	"github.com/pemodest0/Assyntrax-sub000/internal/regime"
)

const (
	yTickCount = 5
	xTickCount = 6
)

// Aggregation is the calendar bucket the upstream series was built with.
type Aggregation string

const (
	AggDaily   Aggregation = "diario"
	AggWeekly  Aggregation = "semanal"
	AggMonthly Aggregation = "mensal"
	AggYearly  Aggregation = "anual"
)

func ParseAggregation(s string) Aggregation {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "anual", "annual", "yearly":
		return AggYearly
	case "mensal", "monthly":
		return AggMonthly
	case "semanal", "weekly":
		return AggWeekly
	}
	return AggDaily
}

// FormatDate trims an ISO date to the aggregation's resolution.
func FormatDate(date string, agg Aggregation) string {
	switch agg {
	case AggYearly:
		if len(date) >= 4 {
			return date[:4]
		}
	case AggMonthly:
		if len(date) >= 7 {
			return date[:7]
		}
	}
	return date
}

// Tick is a labelled gridline.
type Tick struct {
	Pos   float64 `json:"pos"`
	Label string  `json:"label"`
}

// YTicks places five evenly spaced horizontal gridlines.
func YTicks(ymin, ymax float64, g Geometry) []Tick {
	out := make([]Tick, yTickCount)
	for i := 0; i < yTickCount; i++ {
		v := ymin + (ymax-ymin)*float64(i)/float64(yTickCount-1)
		out[i] = Tick{Pos: g.ScaleY(v, ymin, ymax), Label: formatValue(v)}
	}
	return out
}

// XTicks places up to n evenly spaced date labels along the focus series.
func XTicks(focus []regime.PricePoint, g Geometry, n int, agg Aggregation) []Tick {
	if len(focus) == 0 || n <= 0 {
		return []Tick{}
	}
	if n > len(focus) {
		n = len(focus)
	}
	out := make([]Tick, 0, n)
	last := -1
	for k := 0; k < n; k++ {
		idx := 0
		if n > 1 {
			idx = k * (len(focus) - 1) / (n - 1)
		}
		if idx == last {
			continue
		}
		last = idx
		out = append(out, Tick{Pos: g.ScaleX(idx, len(focus)), Label: FormatDate(focus[idx].Date, agg)})
	}
	return out
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
