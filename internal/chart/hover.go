package chart

import "math"

// HoverIndex converts a pointer x, measured in the rendered element's
// pixels, to the nearest point index. The pads are taken in rendered pixels
// too. ok is false when the pointer is over the padding or the chart is
// empty.
func (g Geometry) HoverIndex(x, renderedWidth float64, count int) (int, bool) {
	inner := renderedWidth - 2*g.Pad
	if count <= 0 || inner <= 0 {
		return 0, false
	}
	if x < g.Pad || x > renderedWidth-g.Pad {
		return 0, false
	}
	idx := int(math.Round((x - g.Pad) / inner * float64(count-1)))
	if idx < 0 {
		idx = 0
	}
	if idx > count-1 {
		idx = count - 1
	}
	return idx, true
}

// HoverState is either no-hover or hover-at-index.
type HoverState struct {
	Active bool `json:"active"`
	Index  int  `json:"index"`
}

// Move returns the state after a pointer move.
func (h HoverState) Move(g Geometry, x, renderedWidth float64, count int) HoverState {
	idx, ok := g.HoverIndex(x, renderedWidth, count)
	if !ok {
		return HoverState{}
	}
	return HoverState{Active: true, Index: idx}
}

// Leave returns the state after the pointer leaves the chart.
func (h HoverState) Leave() HoverState { return HoverState{} }
