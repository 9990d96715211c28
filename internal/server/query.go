package server

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/pemodest0/Assyntrax-sub000/internal/chart"
	"github.com/pemodest0/Assyntrax-sub000/internal/dashboard"
	"github.com/pemodest0/Assyntrax-sub000/internal/series"
	"github.com/pemodest0/Assyntrax-sub000/internal/snapshot"
)

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseBool(q url.Values, key string, def bool) (bool, error) {
	v := q.Get(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %q is not a boolean", key, v)
	}
	return b, nil
}

func parseInt(q url.Values, key string, def int) (int, error) {
	v := q.Get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s: %q is not a non-negative integer", key, v)
	}
	return n, nil
}

func parseFloat(q url.Values, key string) (float64, error) {
	v := q.Get(key)
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not a number", key, v)
	}
	return f, nil
}

func filterFromQuery(q url.Values) (snapshot.Filter, error) {
	inc, err := parseBool(q, "include_inconclusive", false)
	if err != nil {
		return snapshot.Filter{}, err
	}
	return snapshot.Filter{
		Domain:              q.Get("domain"),
		Status:              q.Get("status"),
		IncludeInconclusive: inc,
	}, nil
}

// stateFromQuery replays the query parameters as dashboard actions.
func stateFromQuery(q url.Values) (dashboard.State, error) {
	s := dashboard.Initial()
	f, err := filterFromQuery(q)
	if err != nil {
		return s, err
	}
	normalize, err := parseBool(q, "normalize", false)
	if err != nil {
		return s, err
	}
	s = dashboard.Reduce(s, dashboard.SetFilter{Filter: f})
	s = dashboard.Reduce(s, dashboard.SelectAssets{Assets: splitList(q.Get("assets"))})
	for _, h := range splitList(q.Get("hidden")) {
		s = dashboard.Reduce(s, dashboard.ToggleHidden{Asset: h})
	}
	s = dashboard.Reduce(s, dashboard.SetNormalize{On: normalize})
	if v := q.Get("smoothing"); v != "" {
		s = dashboard.Reduce(s, dashboard.SetSmoothing{Smoothing: series.ParseSmoothing(v)})
	}
	if v := q.Get("range"); v != "" {
		s = dashboard.Reduce(s, dashboard.SetRange{Range: series.ParseRange(v)})
	}
	if v := q.Get("agg"); v != "" {
		s = dashboard.Reduce(s, dashboard.SetAggregation{Aggregation: chart.ParseAggregation(v)})
	}
	if v := q.Get("tf"); v != "" {
		s = dashboard.Reduce(s, dashboard.SetTimeframe{TF: v})
	}
	if v := q.Get("align"); v != "" {
		gap := series.GapNone
		if q.Get("gap") == string(series.GapForward) {
			gap = series.GapForward
		}
		s = dashboard.Reduce(s, dashboard.SetAlignment{Alignment: series.ParseAlignment(v), GapFill: gap})
	}
	return s, nil
}

func geometryFromQuery(q url.Values, def chart.Geometry) (chart.Geometry, error) {
	g := def
	w, err := parseInt(q, "width", int(def.Width))
	if err != nil {
		return g, err
	}
	h, err := parseInt(q, "height", int(def.Height))
	if err != nil {
		return g, err
	}
	if float64(w) <= 2*g.Pad || float64(h) <= 2*g.Pad {
		return g, fmt.Errorf("width and height must exceed twice the padding (%v)", g.Pad)
	}
	g.Width, g.Height = float64(w), float64(h)
	return g, nil
}
