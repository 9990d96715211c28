package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"os"
	"path"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/pemodest0/Assyntrax-sub000/internal/chart"
	"github.com/pemodest0/Assyntrax-sub000/internal/dashboard"
	"github.com/pemodest0/Assyntrax-sub000/internal/feed"
	"github.com/pemodest0/Assyntrax-sub000/internal/regime"
	"github.com/pemodest0/Assyntrax-sub000/internal/series"
	"github.com/pemodest0/Assyntrax-sub000/internal/snapshot"
)

var noData = map[string]string{"status": "no_data"}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("http: encode response")
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

func (a *api) assets(w http.ResponseWriter, r *http.Request) {
	f, err := filterFromQuery(r.URL.Query())
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	p := a.Store.Assets(f)
	a.Metrics.RecordQuarantined(p.Quarantined)
	respondJSON(w, http.StatusOK, p)
}

func (a *api) seriesBatch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := parseInt(q, "limit", 0)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	tf := q.Get("tf")
	if tf == "" {
		tf = "daily"
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"tf":     tf,
		"series": a.Store.SeriesBatch(splitList(q.Get("assets")), tf, limit),
	})
}

func (a *api) files(w http.ResponseWriter, r *http.Request) {
	rel := mux.Vars(r)["path"]
	rc, err := a.Store.OpenFile(rel)
	switch {
	case errors.Is(err, snapshot.ErrOutsideRoot):
		respondError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, os.ErrNotExist):
		respondError(w, http.StatusNotFound, "not found")
		return
	case err != nil:
		log.Warn().Err(err).Str("path", rel).Msg("http: file unreadable")
		respondError(w, http.StatusNotFound, "not found")
		return
	}
	defer rc.Close()
	switch path.Ext(rel) {
	case ".json":
		w.Header().Set("Content-Type", "application/json")
	case ".csv":
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	default:
		w.Header().Set("Content-Type", "application/octet-stream")
	}
	if _, err := io.Copy(w, rc); err != nil {
		log.Warn().Err(err).Str("path", rel).Msg("http: file copy interrupted")
	}
}

func (a *api) riskTruth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, a.Store.RiskTruth())
}

func (a *api) latestRun(w http.ResponseWriter, _ *http.Request) {
	run, _ := a.Store.LatestRun()
	respondJSON(w, http.StatusOK, run)
}

type regimeRow struct {
	Date       string       `json:"date"`
	Regime     regime.Label `json:"regime"`
	Confidence *float64     `json:"confidence"`
}

func (a *api) regimes(w http.ResponseWriter, r *http.Request) {
	asset := mux.Vars(r)["asset"]
	rows := a.Store.Regimes(asset)
	out := make([]regimeRow, 0, len(rows))
	for _, row := range rows {
		rr := regimeRow{Date: row.Date, Regime: row.Regime}
		if !math.IsNaN(row.Confidence) {
			c := row.Confidence
			rr.Confidence = &c
		}
		out = append(out, rr)
	}
	respondJSON(w, http.StatusOK, map[string]any{"asset": asset, "rows": out})
}

func (a *api) history(w http.ResponseWriter, r *http.Request) {
	asset := mux.Vars(r)["asset"]
	limit, err := parseInt(r.URL.Query(), "limit", 24)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	out := map[string]any{"asset": asset, "entries": []any{}}
	if a.History != nil {
		entries, err := a.History.History(asset, limit)
		if err != nil {
			log.Warn().Err(err).Str("asset", asset).Msg("http: history unavailable")
		} else if len(entries) > 0 {
			out["entries"] = entries
		}
	}
	respondJSON(w, http.StatusOK, out)
}

// prepare resolves a chart request into prepared series.
func (a *api) prepare(r *http.Request) (dashboard.State, series.Prepared, bool, error) {
	st, err := stateFromQuery(r.URL.Query())
	if err != nil {
		return st, series.Prepared{}, false, err
	}
	m := series.SeriesMap(a.Store.SeriesBatch(st.Selected, st.TF, 0))
	for _, pts := range m {
		if len(pts) > 0 && !regime.HasRegimes(pts) {
			a.Metrics.RecordFallback()
		}
	}
	p, ok := series.Prepare(m, st.Options(a.MaxRenderPoints))
	return st, p, ok, nil
}

func (a *api) chartView(w http.ResponseWriter, r *http.Request) {
	g, err := geometryFromQuery(r.URL.Query(), a.Geometry)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	st, p, ok, err := a.prepare(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !ok {
		respondJSON(w, http.StatusOK, noData)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"view":   chart.Build(p, g, st.Aggregation),
	})
}

func (a *api) chartHover(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	g, err := geometryFromQuery(q, a.Geometry)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	x, err := parseFloat(q, "x")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	rendered := g.Width
	if q.Get("rendered_width") != "" {
		if rendered, err = parseFloat(q, "rendered_width"); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	_, p, ok, err := a.prepare(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !ok {
		respondJSON(w, http.StatusOK, map[string]any{"hover": nil})
		return
	}
	quality := a.Store.Assets(snapshot.Filter{IncludeInconclusive: true}).Quality(p.Primary())
	tip, ok := chart.Hover(p, g, x, rendered, quality)
	if !ok {
		respondJSON(w, http.StatusOK, map[string]any{"hover": nil})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"hover": tip})
}

func (a *api) chartImage(w http.ResponseWriter, r *http.Request) {
	g, err := geometryFromQuery(r.URL.Query(), chart.Geometry{Width: 980, Height: 420, Pad: 36})
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	st, p, ok, err := a.prepare(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	run, _ := a.Store.LatestRun()
	key := run.RunID + "|" + st.CacheKey() + "|" + r.URL.Query().Get("width") + "x" + r.URL.Query().Get("height")
	img, hit := []byte(nil), false
	if a.Cache != nil {
		img, hit = a.Cache.Get(key)
		a.Metrics.CacheLookup(hit)
	}
	if !hit {
		img, err = chart.RenderPNG(p, chart.RenderOptions{
			Width:       int(g.Width),
			Height:      int(g.Height),
			Aggregation: st.Aggregation,
			Normalized:  st.Normalize,
		})
		if errors.Is(err, chart.ErrNoData) {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		if err != nil {
			log.Error().Err(err).Msg("http: render chart")
			respondError(w, http.StatusInternalServerError, "render failed")
			return
		}
		if a.Cache != nil {
			a.Cache.Set(key, img)
		}
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img)
}

func (a *api) summary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f, err := filterFromQuery(q)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	tf := q.Get("tf")
	if tf == "" {
		tf = "daily"
	}
	ctx, cancel := context.WithTimeout(r.Context(), 45*time.Second)
	defer cancel()

	payload := a.Store.Assets(f)
	assets := make([]string, 0, len(payload.Records))
	for _, rec := range payload.Records {
		assets = append(assets, rec.Asset)
	}
	b := feed.LoadBoard(ctx, a.source, feed.Request{Filter: f, Assets: assets, TF: tf})
	if a.Narrator == nil {
		respondJSON(w, http.StatusOK, map[string]any{"run_id": b.Run.RunID, "summary": ""})
		return
	}
	text, err := a.Narrator.Narrate(ctx, b)
	if err != nil {
		log.Warn().Err(err).Msg("http: narrate failed")
	}
	respondJSON(w, http.StatusOK, map[string]any{"run_id": b.Run.RunID, "summary": text})
}
