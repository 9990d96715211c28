package chart

import (
	"math"

	"github.com/pemodest0/Assyntrax-sub000/internal/series"
)

// Point is a projected pixel position.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Line is one asset's polyline, split into segments at missing values.
type Line struct {
	Asset    string    `json:"asset"`
	Segments [][]Point `json:"segments"`
}

// View is the full geometry the UI needs to draw a chart.
type View struct {
	Geometry Geometry `json:"geometry"`
	YMin     float64  `json:"y_min"`
	YMax     float64  `json:"y_max"`
	Count    int      `json:"count"`
	Aligned  int      `json:"aligned"`
	Primary  string   `json:"primary"`
	Lines    []Line   `json:"lines"`
	Bands    []Band   `json:"bands"`
	XTicks   []Tick   `json:"x_ticks"`
	YTicks   []Tick   `json:"y_ticks"`
}

// Polylines projects every prepared series.
func Polylines(p series.Prepared, g Geometry) []Line {
	out := make([]Line, 0, len(p.Series))
	for _, s := range p.Series {
		line := Line{Asset: s.Asset, Segments: [][]Point{}}
		var cur []Point
		for i, v := range s.Values {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				if len(cur) > 0 {
					line.Segments = append(line.Segments, cur)
					cur = nil
				}
				continue
			}
			cur = append(cur, Point{X: g.ScaleX(i, len(s.Values)), Y: g.ScaleY(v, p.YMin, p.YMax)})
		}
		if len(cur) > 0 {
			line.Segments = append(line.Segments, cur)
		}
		out = append(out, line)
	}
	return out
}

// Build projects a prepared chart into view geometry.
func Build(p series.Prepared, g Geometry, agg Aggregation) View {
	return View{
		Geometry: g,
		YMin:     p.YMin,
		YMax:     p.YMax,
		Count:    p.Count,
		Aligned:  p.Aligned,
		Primary:  p.Primary(),
		Lines:    Polylines(p, g),
		Bands:    CoalesceBands(Bands(p.Focus, g)),
		XTicks:   XTicks(p.Focus, g, xTickCount, agg),
		YTicks:   YTicks(p.YMin, p.YMax, g),
	}
}

// Hover resolves a pointer position to a tooltip over the focus series.
func Hover(p series.Prepared, g Geometry, x, renderedWidth float64, quality *float64) (Tooltip, bool) {
	idx, ok := g.HoverIndex(x, renderedWidth, len(p.Focus))
	if !ok {
		return Tooltip{}, false
	}
	t := BuildTooltip(p.Focus[idx], quality)
	t.Index = idx
	t.X = g.ScaleX(idx, len(p.Focus))
	return t, true
}
