package regime

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func series(prices ...float64) []PricePoint {
	out := make([]PricePoint, len(prices))
	for i, p := range prices {
		out[i] = PricePoint{Date: dateAt(i)}
		if !math.IsNaN(p) {
			out[i].Price = Price(p)
		}
	}
	return out
}

func dateAt(i int) string {
	return []string{"2024-01-01", "2024-02-01", "2024-03-01", "2024-04-01", "2024-05-01",
		"2024-06-01", "2024-07-01", "2024-08-01", "2024-09-01", "2024-10-01"}[i]
}

func TestDiffs(t *testing.T) {
	d := Diffs(series(100, 100, 120, 60, 61))
	require.Len(t, d, 5)
	assert.Equal(t, 0.0, d[0])
	assert.Equal(t, 0.0, d[1])
	assert.InDelta(t, 0.2, d[2], 1e-12)
	assert.InDelta(t, 0.5, d[3], 1e-12)
	assert.InDelta(t, 1.0/60, d[4], 1e-12)
}

func TestDiffsGapsAreZero(t *testing.T) {
	d := Diffs(series(100, math.NaN(), 120, 130))
	assert.Equal(t, []float64{0, 0, 0}, d[:3])
	assert.InDelta(t, 10.0/120, d[3], 1e-12)
}

func TestDiffsZeroPreviousPrice(t *testing.T) {
	d := Diffs(series(0, 1))
	assert.InDelta(t, 1/minDenom, d[1], 1)
}

func TestQuantile(t *testing.T) {
	tests := []struct {
		name   string
		sorted []float64
		k      float64
		want   float64
	}{
		{"empty", nil, 0.5, 0},
		{"zero element", []float64{0, 0, 1}, 0.35, 0},
		{"nan element", []float64{math.NaN(), 1}, 0.35, 0},
		{"floor index", []float64{1, 2, 3, 4, 5}, 0.75, 4},
		{"lower", []float64{1, 2, 3, 4, 5}, 0.35, 2},
		{"single", []float64{7}, 0.75, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Quantile(tt.sorted, tt.k))
		})
	}
}

func TestThresholdsOrdered(t *testing.T) {
	inputs := [][]float64{
		{100, 101, 99, 150, 80, 81, 81.5},
		{1, 1, 1, 1},
		{5, 10, 5, 10, 5},
		{},
	}
	for _, in := range inputs {
		th := ComputeThresholds(Diffs(series(in...)))
		assert.LessOrEqual(t, th.Q1, th.Q2)
	}
}

func TestComputeThresholdsDoesNotMutate(t *testing.T) {
	d := []float64{0.5, 0.1, 0.3}
	ComputeThresholds(d)
	assert.Equal(t, []float64{0.5, 0.1, 0.3}, d)
}

func TestClassifyBoundaries(t *testing.T) {
	th := Thresholds{Q1: 0.1, Q2: 0.2}
	assert.Equal(t, Stable, Classify(0.05, th))
	assert.Equal(t, Transition, Classify(0.1, th))
	assert.Equal(t, Unstable, Classify(0.2, th))
	assert.Equal(t, Unstable, Classify(0.9, th))
}

func TestConfidenceFor(t *testing.T) {
	assert.Equal(t, 0.75, ConfidenceFor(Stable))
	assert.Equal(t, 0.58, ConfidenceFor(Transition))
	assert.Equal(t, 0.42, ConfidenceFor(Unstable))
	assert.Equal(t, 0.30, ConfidenceFor(Inconclusive))
}

func TestFallbackWorkedExample(t *testing.T) {
	out := Fallback(series(100, 100, 120, 60, 61))
	require.Len(t, out, 5)
	got := make([]Label, len(out))
	for i, rp := range out {
		got[i] = rp.Regime
		assert.Equal(t, dateAt(i), rp.Date)
		assert.Equal(t, ConfidenceFor(rp.Regime), rp.Confidence)
	}
	assert.Equal(t, []Label{Transition, Transition, Unstable, Unstable, Transition}, got)
}

func TestFallbackFlatSeriesIsUnstable(t *testing.T) {
	for _, rp := range Fallback(series(50, 50, 50, 50, 50, 50)) {
		assert.Equal(t, Unstable, rp.Regime)
		assert.Equal(t, 0.42, rp.Confidence)
	}
}

func TestFallbackEmpty(t *testing.T) {
	out := Fallback(nil)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestFallbackIdempotent(t *testing.T) {
	in := series(10, 11, 9, 14, 13, 13.5, 20)
	assert.Equal(t, Fallback(in), Fallback(in))
}

func TestFillKeepsSuppliedLabels(t *testing.T) {
	in := series(10, 20, 30)
	in[1].Regime = Stable
	out := Fill(in)
	assert.Equal(t, Label(""), out[0].Regime)
	assert.Equal(t, Stable, out[1].Regime)
}

func TestFillLabelsUnlabelledSeries(t *testing.T) {
	in := series(100, 100, 120, 60, 61)
	out := Fill(in)
	assert.Equal(t, Label(""), in[0].Regime, "input must not be mutated")
	assert.Equal(t, Transition, out[0].Regime)
	assert.Equal(t, Unstable, out[3].Regime)
}
