package snapshot

import (
	"fmt"
	"math"
	"strings"

	"github.com/pemodest0/Assyntrax-sub000/internal/regime"
)

// RunInfo describes the latest completed pipeline run.
type RunInfo struct {
	RunID               string         `json:"run_id"`
	GlobalVerdictStatus string         `json:"global_verdict_status"`
	Summary             map[string]any `json:"summary,omitempty"`
}

// AssetRecord is one asset's row of the run's regime table.
type AssetRecord struct {
	Asset      string       `json:"asset"`
	Domain     string       `json:"domain"`
	Timeframe  string       `json:"timeframe,omitempty"`
	Regime     regime.Label `json:"regime"`
	Confidence float64      `json:"confidence"`
	Quality    *float64     `json:"quality,omitempty"`
	Warnings   []string     `json:"warnings,omitempty"`
}

// Validate rejects records the dashboard cannot display faithfully.
func (r AssetRecord) Validate() error {
	if strings.TrimSpace(r.Asset) == "" {
		return fmt.Errorf("missing asset")
	}
	if !r.Regime.Known() {
		return fmt.Errorf("asset %s: unknown regime %q", r.Asset, r.Regime)
	}
	if !unit(r.Confidence) {
		return fmt.Errorf("asset %s: confidence %v out of [0,1]", r.Asset, r.Confidence)
	}
	if r.Quality != nil && !unit(*r.Quality) {
		return fmt.Errorf("asset %s: quality %v out of [0,1]", r.Asset, *r.Quality)
	}
	return nil
}

func unit(v float64) bool { return !math.IsNaN(v) && v >= 0 && v <= 1 }

// AssetsPayload is the body of /api/assets.
type AssetsPayload struct {
	RunID       string         `json:"run_id"`
	Summary     map[string]any `json:"summary,omitempty"`
	Records     []AssetRecord  `json:"records"`
	Quarantined int            `json:"quarantined"`
}

// Quality returns the upstream quality score of asset, if the run has one.
func (p AssetsPayload) Quality(asset string) *float64 {
	for _, r := range p.Records {
		if r.Asset == asset {
			return r.Quality
		}
	}
	return nil
}

// RiskEntry is the risk-truth validation verdict for one asset.
type RiskEntry struct {
	AssetID string  `json:"asset_id"`
	Status  string  `json:"status"`
	Score   float64 `json:"score,omitempty"`
}

// RiskTruth is the risk validation panel.
type RiskTruth struct {
	Counts  map[string]int `json:"counts"`
	Entries []RiskEntry    `json:"entries"`
}

// Forecast is a per-asset per-horizon prediction file.
type Forecast struct {
	Asset       string    `json:"asset"`
	Timeframe   string    `json:"timeframe"`
	Horizon     int       `json:"horizon"`
	Predictions []float64 `json:"predictions"`
}

// Current is the last prediction, the value shown on the dashboard.
func (f Forecast) Current() (float64, bool) {
	if len(f.Predictions) == 0 {
		return 0, false
	}
	return f.Predictions[len(f.Predictions)-1], true
}

// Filter narrows the asset table.
type Filter struct {
	Domain              string
	Status              string
	IncludeInconclusive bool
}
