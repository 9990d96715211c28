package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/pemodest0/Assyntrax-sub000/internal/regime"
)

// ErrOutsideRoot is returned for paths that escape the data directory.
var ErrOutsideRoot = errors.New("path escapes data directory")

// Store reads pipeline artifacts from a directory. It never writes.
type Store struct {
	root string
}

func NewStore(root string) *Store { return &Store{root: filepath.Clean(root)} }

// resolve joins rel under the root and refuses anything that escapes it.
func (s *Store) resolve(rel string) (string, error) {
	clean := filepath.Clean("/" + filepath.ToSlash(rel))
	p := filepath.Join(s.root, clean)
	r, err := filepath.Rel(s.root, p)
	if err != nil || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
		return "", ErrOutsideRoot
	}
	return p, nil
}

func (s *Store) readJSON(rel string, v any) error {
	p, err := s.resolve(rel)
	if err != nil {
		return err
	}
	b, err := os.ReadFile(p)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode %s: %w", rel, err)
	}
	return nil
}

// LatestRun returns the latest run descriptor; ok is false when unavailable.
func (s *Store) LatestRun() (RunInfo, bool) {
	var run RunInfo
	if err := s.readJSON("latest_run.json", &run); err != nil {
		log.Warn().Err(err).Msg("snapshot: latest run unavailable")
		return RunInfo{}, false
	}
	return run, run.RunID != ""
}

// RiskTruth returns the risk validation panel, empty when unavailable.
func (s *Store) RiskTruth() RiskTruth {
	var rt RiskTruth
	if err := s.readJSON("risk_truth.json", &rt); err != nil {
		log.Warn().Err(err).Msg("snapshot: risk truth unavailable")
		return RiskTruth{Counts: map[string]int{}, Entries: []RiskEntry{}}
	}
	if rt.Counts == nil {
		rt.Counts = map[string]int{}
	}
	if rt.Entries == nil {
		rt.Entries = []RiskEntry{}
	}
	return rt
}

type assetsFile struct {
	RunID   string            `json:"run_id"`
	Summary map[string]any    `json:"summary"`
	Records []json.RawMessage `json:"records"`
}

// Assets returns the validated, filtered asset table. Records that fail to
// decode or validate are quarantined and counted.
func (s *Store) Assets(f Filter) AssetsPayload {
	out := AssetsPayload{Records: []AssetRecord{}}
	var file assetsFile
	if err := s.readJSON("assets.json", &file); err != nil {
		log.Warn().Err(err).Msg("snapshot: assets unavailable")
		return out
	}
	out.RunID, out.Summary = file.RunID, file.Summary

	var status map[string]string
	if f.Status != "" {
		status = map[string]string{}
		for _, e := range s.RiskTruth().Entries {
			status[e.AssetID] = e.Status
		}
	}

	for i, raw := range file.Records {
		var rec AssetRecord
		err := json.Unmarshal(raw, &rec)
		if err == nil {
			rec.Regime = regime.Label(strings.ToUpper(string(rec.Regime)))
			err = rec.Validate()
		}
		if err != nil {
			out.Quarantined++
			log.Warn().Err(err).Int("index", i).Msg("snapshot: record quarantined")
			continue
		}
		if f.Domain != "" && !strings.EqualFold(rec.Domain, f.Domain) {
			continue
		}
		if !f.IncludeInconclusive && rec.Regime == regime.Inconclusive {
			continue
		}
		if status != nil && !strings.EqualFold(status[rec.Asset], f.Status) {
			continue
		}
		out.Records = append(out.Records, rec)
	}
	return out
}

// Series loads one asset's price series for a timeframe. Regimes from the
// monthly CSV are merged in when the series carries none.
func (s *Store) Series(asset, tf string) []regime.PricePoint {
	if !validName(asset) || !validName(tf) {
		return []regime.PricePoint{}
	}
	var pts []regime.PricePoint
	if err := s.readJSON(filepath.Join("series", tf, asset+".json"), &pts); err != nil {
		log.Warn().Err(err).Str("asset", asset).Str("tf", tf).Msg("snapshot: series unavailable")
		return []regime.PricePoint{}
	}
	if !regime.HasRegimes(pts) {
		if rows := s.Regimes(asset); len(rows) > 0 {
			pts = regime.MergeRegimes(pts, rows)
		}
	}
	return pts
}

// SeriesBatch loads several assets at once, keeping the trailing limit
// points of each (0 keeps all).
func (s *Store) SeriesBatch(assets []string, tf string, limit int) map[string][]regime.PricePoint {
	out := make(map[string][]regime.PricePoint, len(assets))
	for _, a := range assets {
		pts := s.Series(a, tf)
		if limit > 0 && len(pts) > limit {
			pts = pts[len(pts)-limit:]
		}
		out[a] = pts
	}
	return out
}

// Regimes parses the asset's monthly regime CSV; nil when absent.
func (s *Store) Regimes(asset string) []regime.Row {
	if !validName(asset) {
		return nil
	}
	p, err := s.resolve(filepath.Join("regimes", regime.RegimeFileName(asset)))
	if err != nil {
		return nil
	}
	f, err := os.Open(p)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Warn().Err(err).Str("asset", asset).Msg("snapshot: regimes unreadable")
		}
		return nil
	}
	defer f.Close()
	rows, err := regime.ParseRegimeCSV(f)
	if err != nil {
		log.Warn().Err(err).Str("asset", asset).Msg("snapshot: regimes unparsable")
		return nil
	}
	return rows
}

// ForecastPath is the artifact path of a forecast file.
func ForecastPath(asset, tf string, horizon int) string {
	a := strings.ToLower(asset)
	return filepath.ToSlash(filepath.Join("forecast_suite", a, tf,
		a+"_"+tf+"_log_return_h"+strconv.Itoa(horizon)+".json"))
}

// Forecast loads one forecast file.
func (s *Store) Forecast(asset, tf string, horizon int) (Forecast, bool) {
	if !validName(asset) || !validName(tf) {
		return Forecast{}, false
	}
	var fc Forecast
	if err := s.readJSON(ForecastPath(asset, tf, horizon), &fc); err != nil {
		log.Debug().Err(err).Str("asset", asset).Int("h", horizon).Msg("snapshot: forecast unavailable")
		return Forecast{}, false
	}
	fc.Asset, fc.Timeframe, fc.Horizon = asset, tf, horizon
	return fc, true
}

// OpenFile opens an artifact by its path relative to the data directory.
func (s *Store) OpenFile(rel string) (io.ReadCloser, error) {
	p, err := s.resolve(rel)
	if err != nil {
		return nil, err
	}
	st, err := os.Stat(p)
	if err != nil {
		return nil, err
	}
	if st.IsDir() {
		return nil, fmt.Errorf("%s: %w", rel, os.ErrNotExist)
	}
	return os.Open(p)
}

func validName(s string) bool {
	if s == "" || s == "." || s == ".." {
		return false
	}
	return !strings.ContainsAny(s, `/\`)
}
