package series

import (
	"sort"

	"github.com/pemodest0/Assyntrax-sub000/internal/regime"
)

// ActiveAssets returns the selected assets that are visible and have data,
// in selection order.
func ActiveAssets(m SeriesMap, opt Options) []string {
	out := make([]string, 0, len(opt.Selected))
	seen := map[string]struct{}{}
	for _, a := range opt.Selected {
		if _, dup := seen[a]; dup {
			continue
		}
		seen[a] = struct{}{}
		if opt.Hidden[a] || len(m[a]) == 0 {
			continue
		}
		out = append(out, a)
	}
	return out
}

// AlignPositional trims every active series to the trailing commonLen
// points, where commonLen is the shortest length capped by limit (0 means
// no cap). It returns the aligned slices in the order of active.
func AlignPositional(m SeriesMap, active []string, limit int) ([][]regime.PricePoint, int) {
	if len(active) == 0 {
		return nil, 0
	}
	commonLen := -1
	for _, a := range active {
		if n := len(m[a]); commonLen < 0 || n < commonLen {
			commonLen = n
		}
	}
	if limit > 0 && limit < commonLen {
		commonLen = limit
	}
	out := make([][]regime.PricePoint, len(active))
	for i, a := range active {
		pts := m[a]
		out[i] = pts[len(pts)-commonLen:]
	}
	return out, commonLen
}

// AlignByDate outer-joins the active series on the union of their dates.
// Dates a series lacks hold a nil price, or the last seen price with
// GapForward. The trailing limit dates are kept.
func AlignByDate(m SeriesMap, active []string, limit int, fill GapFill) ([][]regime.PricePoint, int) {
	if len(active) == 0 {
		return nil, 0
	}
	dateSet := map[string]struct{}{}
	for _, a := range active {
		for _, p := range m[a] {
			dateSet[p.Date] = struct{}{}
		}
	}
	dates := make([]string, 0, len(dateSet))
	for d := range dateSet {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	if limit > 0 && limit < len(dates) {
		dates = dates[len(dates)-limit:]
	}

	out := make([][]regime.PricePoint, len(active))
	for i, a := range active {
		byDate := make(map[string]regime.PricePoint, len(m[a]))
		for _, p := range m[a] {
			byDate[p.Date] = p
		}
		var last *float64
		// seed forward fill from observations before the visible window
		if fill == GapForward && len(dates) > 0 {
			for _, p := range m[a] {
				if p.Date < dates[0] && p.Price != nil {
					last = p.Price
				}
			}
		}
		row := make([]regime.PricePoint, len(dates))
		for j, d := range dates {
			p, ok := byDate[d]
			if !ok {
				p = regime.PricePoint{Date: d}
				if fill == GapForward {
					p.Price = last
				}
			}
			if p.Price != nil {
				last = p.Price
			}
			row[j] = p
		}
		out[i] = row
	}
	return out, len(dates)
}
