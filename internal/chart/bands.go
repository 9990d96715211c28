package chart

import "github.com/pemodest0/Assyntrax-sub000/internal/regime"

// Band is a shaded vertical stripe behind the lines.
type Band struct {
	X0     float64      `json:"x0"`
	X1     float64      `json:"x1"`
	Regime regime.Label `json:"regime"`
	Color  string       `json:"color"`
}

var regimeColors = map[regime.Label]string{
	regime.Stable:       "rgba(34,197,94,0.12)",
	regime.Transition:   "rgba(250,204,21,0.14)",
	regime.Unstable:     "rgba(239,68,68,0.14)",
	regime.Inconclusive: "rgba(148,163,184,0.14)",
}

// ColorFor returns the band fill for a label; unknown labels share
// TRANSITION's colour.
func ColorFor(l regime.Label) string {
	if c, ok := regimeColors[l]; ok {
		return c
	}
	return regimeColors[regime.Transition]
}

// Bands emits one band per adjacent pair of focus points, spanning
// [x(i-1), x(i)] and coloured by point i.
func Bands(focus []regime.PricePoint, g Geometry) []Band {
	if len(focus) < 2 {
		return []Band{}
	}
	out := make([]Band, 0, len(focus)-1)
	for i := 1; i < len(focus); i++ {
		l := focus[i].Regime
		out = append(out, Band{
			X0:     g.ScaleX(i-1, len(focus)),
			X1:     g.ScaleX(i, len(focus)),
			Regime: l,
			Color:  ColorFor(l),
		})
	}
	return out
}

// CoalesceBands merges touching bands of the same regime.
func CoalesceBands(bands []Band) []Band {
	out := make([]Band, 0, len(bands))
	for _, b := range bands {
		if n := len(out); n > 0 && out[n-1].Regime == b.Regime && out[n-1].X1 == b.X0 {
			out[n-1].X1 = b.X1
			continue
		}
		out = append(out, b)
	}
	return out
}
