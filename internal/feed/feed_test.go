package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pemodest0/Assyntrax-sub000/internal/metrics"
	"github.com/pemodest0/Assyntrax-sub000/internal/snapshot"
)

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func apiServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/assets", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "finance", r.URL.Query().Get("domain"))
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	mux.HandleFunc("/api/graph/series-batch", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "SPY,QQQ", r.URL.Query().Get("assets"))
		writeJSON(w, map[string]any{"series": map[string]any{
			"SPY": []map[string]any{{"date": "2024-01-01", "price": 1}, {"date": "2024-01-02", "price": nil}},
			"QQQ": []map[string]any{},
		}})
	})
	mux.HandleFunc("/api/run/latest", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{"run_id": "run-1"})
	})
	mux.HandleFunc("/api/risk-truth", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("{not json"))
	})
	mux.HandleFunc("/api/files/forecast_suite/spy/daily/spy_daily_log_return_h5.json", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{"predictions": []float64{0.1, 0.2, 0.3}})
	})
	mux.HandleFunc("/api/files/forecast_suite/qqq/daily/qqq_daily_log_return_h1.json", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{"predictions": []float64{}})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestLoadBoardIsolatesFailures(t *testing.T) {
	srv := apiServer(t)
	m := metrics.New()
	c := NewClient(srv.URL, Options{Metrics: m})

	b := LoadBoard(context.Background(), c, Request{
		Filter: snapshot.Filter{Domain: "finance"},
		Assets: []string{"SPY", "QQQ"},
		TF:     "daily",
	})

	assert.Equal(t, "run-1", b.Run.RunID)
	assert.NotNil(t, b.Assets.Records)
	assert.Empty(t, b.Assets.Records)
	assert.NotNil(t, b.RiskTruth.Entries)
	require.Len(t, b.Series["SPY"], 2)
	assert.Nil(t, b.Series["SPY"][1].Price)

	require.Contains(t, b.Forecasts, "SPY")
	assert.Equal(t, map[int]float64{5: 0.3}, b.Forecasts["SPY"])
	assert.NotContains(t, b.Forecasts, "QQQ")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.FeedFailures.WithLabelValues("assets")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FeedFailures.WithLabelValues("risk-truth")))
}

func TestBreakerOpensAfterFailures(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, Options{Failures: 2, Cooldown: time.Hour})
	for i := 0; i < 5; i++ {
		run := c.LatestRun(context.Background())
		assert.Empty(t, run.RunID)
	}
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestNotFoundDoesNotTripBreaker(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&hits, 1)
		http.NotFound(w, nil)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, Options{Failures: 1, Cooldown: time.Hour})
	for i := 0; i < 4; i++ {
		_, ok := c.Forecast(context.Background(), "SPY", "daily", i)
		assert.False(t, ok)
	}
	assert.Equal(t, int32(4), atomic.LoadInt32(&hits))
}

func TestSeriesBatchEmptyAssetsSkipsRequest(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", Options{})
	assert.Empty(t, c.SeriesBatch(context.Background(), nil, "daily", 0))
}

func TestBoardQuality(t *testing.T) {
	q := 0.7
	b := Board{Assets: snapshot.AssetsPayload{Records: []snapshot.AssetRecord{{Asset: "SPY", Quality: &q}}}}
	require.NotNil(t, b.Quality("SPY"))
	assert.Equal(t, 0.7, *b.Quality("SPY"))
	assert.Nil(t, b.Quality("QQQ"))
}
