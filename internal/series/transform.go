package series

import (
	"math"

	"github.com/pemodest0/Assyntrax-sub000/internal/regime"
)

// Values converts points to plot values, NaN where the price is missing.
func Values(points []regime.PricePoint) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		if v, ok := p.Value(); ok {
			out[i] = v
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}

// NormalizeBase100 rescales values so the first finite value is 100. When
// there is no finite value, or it is zero, the input is returned unchanged.
func NormalizeBase100(values []float64) []float64 {
	base := 0.0
	for _, v := range values {
		if finite(v) {
			base = v
			break
		}
	}
	out := make([]float64, len(values))
	if base == 0 {
		copy(out, values)
		return out
	}
	for i, v := range values {
		out[i] = v / base * 100
	}
	return out
}

// EMA is the exponential moving average with alpha = 2/(period+1),
// seeded with the first value.
func EMA(values []float64, period int, policy NaNPolicy) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	if period <= 1 {
		copy(out, values)
		return out
	}
	alpha := 2 / (float64(period) + 1)
	if policy == NaNPropagate {
		out[0] = values[0]
		for i := 1; i < len(values); i++ {
			out[i] = alpha*values[i] + (1-alpha)*out[i-1]
		}
		return out
	}

	prev, seeded := 0.0, false
	for i, v := range values {
		switch {
		case !finite(v):
			out[i] = math.NaN()
			seeded = false
		case !seeded:
			prev, seeded = v, true
			out[i] = v
		default:
			prev = alpha*v + (1-alpha)*prev
			out[i] = prev
		}
	}
	return out
}

// Bounds returns the min and max finite value across all series.
func Bounds(all ...[]float64) (lo, hi float64, ok bool) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, vs := range all {
		for _, v := range vs {
			if !finite(v) {
				continue
			}
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
			ok = true
		}
	}
	if !ok {
		return 0, 0, false
	}
	return lo, hi, true
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
