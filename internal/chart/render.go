package chart

import (
	"errors"
	"math"
	"strings"

	"github.com/vicanso/go-charts/v2"

	"github.com/pemodest0/Assyntrax-sub000/internal/series"
)

// RenderOptions controls the PNG export of a prepared chart.
type RenderOptions struct {
	Width       int
	Height      int
	Title       string
	Aggregation Aggregation
	Normalized  bool
}

// ErrNoData is returned when there is nothing to draw.
var ErrNoData = errors.New("no data")

// RenderPNG draws the prepared series as a line chart. The subtitle carries
// the primary asset's latest regime.
func RenderPNG(p series.Prepared, opt RenderOptions) ([]byte, error) {
	if len(p.Series) == 0 || p.Count == 0 {
		return nil, ErrNoData
	}
	values := make([][]float64, 0, len(p.Series))
	names := make([]string, 0, len(p.Series))
	for _, s := range p.Series {
		values = append(values, fillGaps(s.Values))
		names = append(names, s.Asset)
	}

	xLabels := make([]string, len(p.Focus))
	for i, pt := range p.Focus {
		xLabels[i] = FormatDate(pt.Date, opt.Aggregation)
	}

	// headroom so lines do not touch the frame
	pad := (p.YMax - p.YMin) * 0.05
	if pad == 0 {
		pad = math.Max(math.Abs(p.YMax)*0.01, 1)
	}
	yMin := p.YMin - pad
	yMax := p.YMax + pad

	title := opt.Title
	if title == "" {
		title = strings.Join(names, " • ")
	}
	subtitle := subtitleFor(p, opt)

	split := xTickCount
	if len(xLabels) < split {
		split = len(xLabels)
	}

	seriesList := charts.NewSeriesListDataFromValues(values, charts.ChartTypeLine)
	for i := range seriesList {
		seriesList[i].Name = names[i]
	}
	w, h := opt.Width, opt.Height
	if w <= 0 {
		w = 980
	}
	if h <= 0 {
		h = 420
	}
	painter, err := charts.Render(charts.ChartOption{SeriesList: seriesList},
		charts.TitleTextOptionFunc(title, subtitle),
		charts.XAxisOptionFunc(charts.XAxisOption{Data: xLabels, BoundaryGap: charts.FalseFlag(), SplitNumber: split}),
		charts.YAxisOptionFunc(charts.YAxisOption{Min: &yMin, Max: &yMax, DivideCount: 5}),
		charts.LegendOptionFunc(charts.LegendOption{Data: names}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(w),
		charts.HeightOptionFunc(h),
	)
	if err != nil {
		return nil, err
	}
	return painter.Bytes()
}

func subtitleFor(p series.Prepared, opt RenderOptions) string {
	parts := []string{}
	if n := len(p.Focus); n > 0 && p.Focus[n-1].Regime != "" {
		parts = append(parts, p.Primary()+": "+string(p.Focus[n-1].Regime))
	}
	if opt.Normalized {
		parts = append(parts, "base 100")
	}
	return strings.Join(parts, " • ")
}

// fillGaps carries the last finite value forward and the first finite value
// backward so the line renderer never sees NaN.
func fillGaps(values []float64) []float64 {
	out := make([]float64, len(values))
	copy(out, values)
	first := -1
	for i, v := range out {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			first = i
			break
		}
	}
	if first < 0 {
		return out
	}
	for i := 0; i < first; i++ {
		out[i] = out[first]
	}
	for i := first + 1; i < len(out); i++ {
		if math.IsNaN(out[i]) || math.IsInf(out[i], 0) {
			out[i] = out[i-1]
		}
	}
	return out
}
