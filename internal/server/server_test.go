package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pemodest0/Assyntrax-sub000/internal/chart"
	"github.com/pemodest0/Assyntrax-sub000/internal/feed"
	"github.com/pemodest0/Assyntrax-sub000/internal/metrics"
	"github.com/pemodest0/Assyntrax-sub000/internal/snapshot"
)

func writeFile(t *testing.T, root, rel, body string) {
	t.Helper()
	p := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
}

func seriesJSON(n int, start float64) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf(`{"date":"2024-01-%02d","price":%g}`, i+1, start+float64(i%4))
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func dataDir(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "latest_run.json", `{"run_id":"run-9","global_verdict_status":"ok"}`)
	writeFile(t, root, "assets.json", `{"run_id":"run-9","records":[
		{"asset":"SPY","domain":"finance","regime":"STABLE","confidence":0.8,"quality":0.66},
		{"asset":"HOUSE","domain":"realestate","regime":"INCONCLUSIVE","confidence":0.3},
		{"asset":"BAD","domain":"finance","regime":"??","confidence":0.3}
	]}`)
	writeFile(t, root, "risk_truth.json", `{"counts":{"validated":1},"entries":[{"asset_id":"SPY","status":"validated"}]}`)
	writeFile(t, root, "series/daily/SPY.json", seriesJSON(28, 100))
	writeFile(t, root, "series/daily/QQQ.json", seriesJSON(20, 300))
	writeFile(t, root, "regimes/SPY_monthly_regimes.csv", "date,regime,confidence\n2024-01-01,STABLE\n")
	writeFile(t, root, "forecast_suite/spy/daily/spy_daily_log_return_h5.json", `{"predictions":[0.1,0.2]}`)
	return root
}

type stubNarrator struct{ got feed.Board }

func (s *stubNarrator) Narrate(_ context.Context, b feed.Board) (string, error) {
	s.got = b
	return "calm markets", nil
}

func newTestServer(t *testing.T) (*httptest.Server, *metrics.Registry, *stubNarrator) {
	t.Helper()
	m := metrics.New()
	n := &stubNarrator{}
	h := NewRouter(Deps{
		Store:    snapshot.NewStore(dataDir(t)),
		Metrics:  m,
		Cache:    chart.NewCache(0),
		Narrator: n,
	})
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv, m, n
}

func getJSON(t *testing.T, url string, v any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if v != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp
}

func TestHealthAndRequestID(t *testing.T) {
	srv, _, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, 200, resp.StatusCode)
	assert.Len(t, resp.Header.Get("X-Request-ID"), 8)
}

func TestAssetsEndpoint(t *testing.T) {
	srv, m, _ := newTestServer(t)
	var p snapshot.AssetsPayload
	resp := getJSON(t, srv.URL+"/api/assets", &p)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "run-9", p.RunID)
	require.Len(t, p.Records, 1)
	assert.Equal(t, 1, p.Quarantined)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Quarantined))

	getJSON(t, srv.URL+"/api/assets?include_inconclusive=true&domain=realestate", &p)
	require.Len(t, p.Records, 1)
	assert.Equal(t, "HOUSE", p.Records[0].Asset)

	resp = getJSON(t, srv.URL+"/api/assets?include_inconclusive=maybe", nil)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestSeriesBatchEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t)
	var body struct {
		Series map[string][]map[string]any `json:"series"`
	}
	getJSON(t, srv.URL+"/api/graph/series-batch?assets=SPY,QQQ,NOPE&limit=10", &body)
	assert.Len(t, body.Series["SPY"], 10)
	assert.Len(t, body.Series["QQQ"], 10)
	assert.Empty(t, body.Series["NOPE"])

	resp := getJSON(t, srv.URL+"/api/graph/series-batch?assets=SPY&limit=-1", nil)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestFilesEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t)
	var fc snapshot.Forecast
	resp := getJSON(t, srv.URL+"/api/files/"+snapshot.ForecastPath("SPY", "daily", 5), &fc)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, []float64{0.1, 0.2}, fc.Predictions)

	resp = getJSON(t, srv.URL+"/api/files/forecast_suite/missing.json", nil)
	assert.Equal(t, 404, resp.StatusCode)
	resp = getJSON(t, srv.URL+"/api/files/series", nil)
	assert.Equal(t, 404, resp.StatusCode)
}

func TestRunAndRiskEndpoints(t *testing.T) {
	srv, _, _ := newTestServer(t)
	var run snapshot.RunInfo
	getJSON(t, srv.URL+"/api/run/latest", &run)
	assert.Equal(t, "run-9", run.RunID)

	var rt snapshot.RiskTruth
	getJSON(t, srv.URL+"/api/risk-truth", &rt)
	assert.Equal(t, 1, rt.Counts["validated"])
}

func TestRegimesEndpointNullConfidence(t *testing.T) {
	srv, _, _ := newTestServer(t)
	var body struct {
		Rows []struct {
			Regime     string   `json:"regime"`
			Confidence *float64 `json:"confidence"`
		} `json:"rows"`
	}
	getJSON(t, srv.URL+"/api/regimes/SPY", &body)
	require.Len(t, body.Rows, 1)
	assert.Equal(t, "STABLE", body.Rows[0].Regime)
	assert.Nil(t, body.Rows[0].Confidence)
}

func TestHistoryWithoutStore(t *testing.T) {
	srv, _, _ := newTestServer(t)
	var body map[string]any
	getJSON(t, srv.URL+"/api/history/SPY", &body)
	assert.Equal(t, []any{}, body["entries"])
}

func TestChartView(t *testing.T) {
	srv, _, _ := newTestServer(t)
	var body struct {
		Status string     `json:"status"`
		View   chart.View `json:"view"`
	}
	getJSON(t, srv.URL+"/api/chart/view?assets=SPY,QQQ&normalize=true&range=30d", &body)
	require.Equal(t, "ok", body.Status)
	assert.Equal(t, 20, body.View.Count)
	assert.Equal(t, "SPY", body.View.Primary)
	assert.Len(t, body.View.Lines, 2)
	assert.Len(t, body.View.YTicks, 5)
	assert.NotEmpty(t, body.View.Bands)

	getJSON(t, srv.URL+"/api/chart/view?assets=SPY,QQQ&hidden=SPY,QQQ", &body)
	assert.Equal(t, "no_data", body.Status)

	resp := getJSON(t, srv.URL+"/api/chart/view?assets=SPY&width=10", nil)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestChartHover(t *testing.T) {
	srv, _, _ := newTestServer(t)
	var body struct {
		Hover *chart.Tooltip `json:"hover"`
	}
	getJSON(t, srv.URL+"/api/chart/hover?assets=SPY&x=1", &body)
	assert.Nil(t, body.Hover)

	g := chart.DefaultGeometry()
	getJSON(t, srv.URL+fmt.Sprintf("/api/chart/hover?assets=SPY&x=%g", g.Width-g.Pad), &body)
	require.NotNil(t, body.Hover)
	assert.Equal(t, 27, body.Hover.Index)
	assert.Equal(t, "2024-01-28", body.Hover.Date)
	assert.Equal(t, "66%", body.Hover.Quality)

	resp := getJSON(t, srv.URL+"/api/chart/hover?assets=SPY", nil)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestChartImage(t *testing.T) {
	srv, m, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/api/chart/image?assets=NOPE")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	for i := 0; i < 2; i++ {
		resp, err = http.Get(srv.URL + "/api/chart/image?assets=SPY,QQQ&width=600&height=300")
		require.NoError(t, err)
		img, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		require.NoError(t, err)
		require.Equal(t, 200, resp.StatusCode)
		assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
		require.Greater(t, len(img), 4)
		assert.Equal(t, "\x89PNG", string(img[:4]))
	}
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ImageCache.WithLabelValues("hit")))
}

func TestSummaryUsesNarrator(t *testing.T) {
	srv, _, n := newTestServer(t)
	var body map[string]string
	getJSON(t, srv.URL+"/api/summary", &body)
	assert.Equal(t, "calm markets", body["summary"])
	assert.Equal(t, "run-9", body["run_id"])
	assert.Contains(t, n.got.Series, "SPY")
	assert.Equal(t, map[int]float64{5: 0.2}, n.got.Forecasts["SPY"])
}

func TestMetricsAndNotFound(t *testing.T) {
	srv, _, _ := newTestServer(t)
	getJSON(t, srv.URL+"/api/run/latest", nil)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	b, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(b), "dashboard_http_requests_total")

	resp = getJSON(t, srv.URL+"/nope", nil)
	assert.Equal(t, 404, resp.StatusCode)
}
