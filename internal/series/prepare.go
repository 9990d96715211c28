package series

import "github.com/pemodest0/Assyntrax-sub000/internal/regime"

// PreparedSeries is one asset ready for projection. Points are the rendered
// (aligned, downsampled) observations; Values are what gets plotted.
type PreparedSeries struct {
	Asset  string              `json:"asset"`
	Points []regime.PricePoint `json:"points"`
	Values []float64           `json:"-"`
}

// Prepared is the pipeline output for one chart.
type Prepared struct {
	Series []PreparedSeries
	YMin   float64
	YMax   float64
	// Count is the number of rendered points per series.
	Count int
	// Aligned is the number of points per series before downsampling.
	Aligned int
	// Focus is the primary asset's rendered points. Their regimes were
	// filled on the full series before alignment. Regime bands are drawn
	// from it alone.
	Focus []regime.PricePoint
}

// Primary returns the first prepared series' asset.
func (p Prepared) Primary() string {
	if len(p.Series) == 0 {
		return ""
	}
	return p.Series[0].Asset
}

// Prepare runs filtering, regime fill, alignment, downsampling,
// normalization and smoothing. ok is false when there is nothing to draw.
func Prepare(m SeriesMap, opt Options) (Prepared, bool) {
	active := ActiveAssets(m, opt)
	if len(active) == 0 {
		return Prepared{}, false
	}

	// labels come from the full day-over-day series, never from the
	// truncated or decimated one
	filled := make(SeriesMap, len(active))
	for _, a := range active {
		filled[a] = regime.Fill(m[a])
	}
	m = filled

	var aligned [][]regime.PricePoint
	var n int
	if opt.Alignment == AlignmentDate {
		aligned, n = AlignByDate(m, active, opt.Range.Cap(), opt.GapFill)
	} else {
		aligned, n = AlignPositional(m, active, opt.Range.Cap())
	}
	if n == 0 {
		return Prepared{}, false
	}

	out := Prepared{Aligned: n, Series: make([]PreparedSeries, len(active))}
	all := make([][]float64, len(active))
	for i, a := range active {
		pts := Downsample(aligned[i], opt.maxPoints())
		vals := Values(pts)
		if opt.Normalize {
			vals = NormalizeBase100(vals)
		}
		if p := opt.Smoothing.Period(); p > 0 {
			vals = EMA(vals, p, opt.NaNPolicy)
		}
		out.Series[i] = PreparedSeries{Asset: a, Points: pts, Values: vals}
		all[i] = vals
	}

	lo, hi, ok := Bounds(all...)
	if !ok {
		return Prepared{}, false
	}
	out.YMin, out.YMax = lo, hi
	out.Count = len(out.Series[0].Points)
	out.Focus = append([]regime.PricePoint(nil), out.Series[0].Points...)
	return out, true
}
