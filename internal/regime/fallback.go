package regime

import (
	"math"
	"sort"
)

const (
	lowerQuantile = 0.35
	upperQuantile = 0.75
	minDenom      = 1e-9

	minConfidence = 0.30
	maxConfidence = 0.95
)

var baseConfidence = map[Label]float64{
	Stable:     0.75,
	Transition: 0.58,
	Unstable:   0.42,
}

// Thresholds are the two cut points of the absolute relative change
// distribution. Q1 <= Q2 always holds.
type Thresholds struct {
	Q1 float64 `json:"q1"`
	Q2 float64 `json:"q2"`
}

// Diffs returns the absolute relative change of every point versus its
// predecessor. The first point and any point adjacent to a gap get 0.
func Diffs(points []PricePoint) []float64 {
	out := make([]float64, len(points))
	for i := 1; i < len(points); i++ {
		prev, okPrev := points[i-1].Value()
		cur, okCur := points[i].Value()
		if !okPrev || !okCur {
			continue
		}
		out[i] = math.Abs(cur-prev) / math.Max(prev, minDenom)
	}
	return out
}

// Quantile picks the element at floor((n-1)*k) of an ascending slice.
// Empty input, zero or NaN yield 0.
func Quantile(sorted []float64, k float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Floor(float64(len(sorted)-1) * k))
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	v := sorted[idx]
	if v == 0 || math.IsNaN(v) {
		return 0
	}
	return v
}

// ComputeThresholds derives Q1 and Q2 from a diff series without mutating it.
func ComputeThresholds(diffs []float64) Thresholds {
	sorted := append([]float64(nil), diffs...)
	sort.Float64s(sorted)
	return Thresholds{
		Q1: Quantile(sorted, lowerQuantile),
		Q2: Quantile(sorted, upperQuantile),
	}
}

// Classify maps a single diff onto a regime. UNSTABLE wins ties on Q2.
func Classify(diff float64, th Thresholds) Label {
	switch {
	case diff >= th.Q2:
		return Unstable
	case diff >= th.Q1:
		return Transition
	default:
		return Stable
	}
}

// ConfidenceFor returns the fixed confidence for a label, clamped to
// [0.30, 0.95].
func ConfidenceFor(l Label) float64 {
	return clamp(baseConfidence[l], minConfidence, maxConfidence)
}

// Fallback classifies every point of a series from its own price changes.
// The output has the same length and order as the input.
func Fallback(points []PricePoint) []RegimePoint {
	if len(points) == 0 {
		return []RegimePoint{}
	}
	diffs := Diffs(points)
	th := ComputeThresholds(diffs)
	out := make([]RegimePoint, len(points))
	for i, p := range points {
		l := Classify(diffs[i], th)
		out[i] = RegimePoint{Date: p.Date, Regime: l, Confidence: ConfidenceFor(l)}
	}
	return out
}

// HasRegimes reports whether any point already carries a label.
func HasRegimes(points []PricePoint) bool {
	for _, p := range points {
		if p.Regime != "" {
			return true
		}
	}
	return false
}

// Fill returns a copy of points. When no point carries a label the copy is
// labelled by Fallback; otherwise the supplied labels are kept as is.
func Fill(points []PricePoint) []PricePoint {
	out := append([]PricePoint(nil), points...)
	if len(out) == 0 || HasRegimes(out) {
		return out
	}
	for i, rp := range Fallback(out) {
		out[i].Regime = rp.Regime
		out[i].Confidence = rp.Confidence
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
