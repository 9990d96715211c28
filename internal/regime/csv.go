package regime

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strconv"
	"strings"
)

const regimeFileSuffix = "_monthly_regimes.csv"

// Row is one line of a monthly regime file.
type Row struct {
	Date       string  `json:"date"`
	Regime     Label   `json:"regime"`
	Confidence float64 `json:"confidence"`
}

// ParseRegimeCSV reads a `date,regime,confidence` file. The first line is a
// header. Lines are split on commas without quote handling; missing columns
// leave the date and regime empty and the confidence NaN.
func ParseRegimeCSV(r io.Reader) ([]Row, error) {
	sc := bufio.NewScanner(r)
	var rows []Row
	first := true
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if first {
			first = false
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		cols := strings.Split(line, ",")
		row := Row{Confidence: math.NaN()}
		if len(cols) > 0 {
			row.Date = strings.TrimSpace(cols[0])
		}
		if len(cols) > 1 {
			row.Regime = Label(strings.ToUpper(strings.TrimSpace(cols[1])))
		}
		if len(cols) > 2 {
			if v, err := strconv.ParseFloat(strings.TrimSpace(cols[2]), 64); err == nil {
				row.Confidence = v
			}
		}
		rows = append(rows, row)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read regime csv: %w", err)
	}
	return rows, nil
}

// MergeRegimes copies labels from rows onto a copy of points, matching on
// date. Points without a matching row keep whatever they had.
func MergeRegimes(points []PricePoint, rows []Row) []PricePoint {
	byDate := make(map[string]Row, len(rows))
	for _, r := range rows {
		if r.Date != "" && r.Regime != "" {
			byDate[r.Date] = r
		}
	}
	out := append([]PricePoint(nil), points...)
	for i := range out {
		r, ok := byDate[out[i].Date]
		if !ok {
			continue
		}
		out[i].Regime = r.Regime
		if !math.IsNaN(r.Confidence) {
			out[i].Confidence = r.Confidence
		}
	}
	return out
}

// RegimeFileName is the on-disk name of an asset's monthly regime file.
func RegimeFileName(asset string) string {
	return asset + regimeFileSuffix
}

// AssetFromRegimeFile extracts the asset from a regime file name.
func AssetFromRegimeFile(name string) (string, bool) {
	base := filepath.Base(name)
	if !strings.HasSuffix(base, regimeFileSuffix) {
		return "", false
	}
	asset := strings.TrimSuffix(base, regimeFileSuffix)
	return asset, asset != ""
}
