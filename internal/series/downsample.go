package series

import "github.com/pemodest0/Assyntrax-sub000/internal/regime"

// Downsample keeps every step-th point, step = ceil(n/max), when the series
// is longer than max. max <= 0 disables decimation.
func Downsample(points []regime.PricePoint, max int) []regime.PricePoint {
	if max <= 0 || len(points) <= max {
		return points
	}
	step := (len(points) + max - 1) / max
	out := make([]regime.PricePoint, 0, max)
	for i := 0; i < len(points); i += step {
		out = append(out, points[i])
	}
	return out
}
