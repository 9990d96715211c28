package chart

import "math"

// Geometry is the pixel frame a chart is projected into.
type Geometry struct {
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	Pad     float64 `json:"pad"`
	Epsilon float64 `json:"-"`
}

// DefaultGeometry matches the dashboard's main chart.
func DefaultGeometry() Geometry {
	return Geometry{Width: 980, Height: 360, Pad: 36, Epsilon: 1e-9}
}

func (g Geometry) eps() float64 {
	if g.Epsilon <= 0 {
		return 1e-9
	}
	return g.Epsilon
}

// ScaleX maps index i of total points onto the padded horizontal span.
func (g Geometry) ScaleX(i, total int) float64 {
	span := math.Max(1, float64(total-1))
	return g.Pad + float64(i)/span*(g.Width-2*g.Pad)
}

// ScaleY maps v in [ymin, ymax] onto the padded vertical span, top-down.
func (g Geometry) ScaleY(v, ymin, ymax float64) float64 {
	rng := math.Max(g.eps(), ymax-ymin)
	return g.Height - g.Pad - (v-ymin)/rng*(g.Height-2*g.Pad)
}

// InverseScaleX maps a pixel back to a fractional index.
func (g Geometry) InverseScaleX(x float64, total int) float64 {
	w := g.Width - 2*g.Pad
	if w <= 0 {
		return 0
	}
	return (x - g.Pad) / w * math.Max(1, float64(total-1))
}
