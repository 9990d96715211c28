package regime

import "math"

// Label is the regime classification attached to a point. The empty label
// means the upstream pipeline did not supply one.
type Label string

const (
	Stable       Label = "STABLE"
	Transition   Label = "TRANSITION"
	Unstable     Label = "UNSTABLE"
	Inconclusive Label = "INCONCLUSIVE"
)

// Known reports whether l is one of the four labels the pipeline emits.
func (l Label) Known() bool {
	switch l {
	case Stable, Transition, Unstable, Inconclusive:
		return true
	}
	return false
}

// PricePoint is one dated observation of an asset. Price is nil when the
// upstream series has a gap.
type PricePoint struct {
	Date       string   `json:"date"`
	Price      *float64 `json:"price"`
	Regime     Label    `json:"regime,omitempty"`
	Confidence float64  `json:"confidence,omitempty"`
}

// Value returns the price and whether it is present and finite.
func (p PricePoint) Value() (float64, bool) {
	if p.Price == nil {
		return 0, false
	}
	v := *p.Price
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// Price is a helper for building points in code and tests.
func Price(v float64) *float64 { return &v }

// RegimePoint is the output of the fallback classifier for a single date.
type RegimePoint struct {
	Date       string  `json:"date"`
	Regime     Label   `json:"regime"`
	Confidence float64 `json:"confidence"`
}
