package chart

import (
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/pemodest0/Assyntrax-sub000/internal/regime"
)

// qualityFactor derives a quality score from confidence when the upstream
// record carries none.
const qualityFactor = 0.92

// Tooltip is the hover card for one point of the focus series.
type Tooltip struct {
	Index      int          `json:"index"`
	X          float64      `json:"x"`
	Date       string       `json:"date"`
	Price      string       `json:"price"`
	Regime     regime.Label `json:"regime"`
	Confidence string       `json:"confidence"`
	Quality    string       `json:"quality"`
}

// BuildTooltip formats a point. quality is the upstream quality score if
// known.
func BuildTooltip(p regime.PricePoint, quality *float64) Tooltip {
	t := Tooltip{Date: p.Date, Price: "--", Regime: p.Regime}
	if v, ok := p.Value(); ok {
		t.Price = decimal.NewFromFloat(v).StringFixed(2)
	}
	t.Confidence = percent(p.Confidence)
	q := p.Confidence * qualityFactor
	if quality != nil {
		q = *quality
	}
	t.Quality = percent(q)
	return t
}

func percent(v float64) string {
	return strconv.FormatFloat(v*100, 'f', 0, 64) + "%"
}
