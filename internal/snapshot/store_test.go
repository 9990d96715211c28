package snapshot

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pemodest0/Assyntrax-sub000/internal/regime"
)

func writeFile(t *testing.T, root, rel, body string) {
	t.Helper()
	p := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
}

func fixture(t *testing.T) *Store {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "latest_run.json", `{"run_id":"run-7","global_verdict_status":"ok"}`)
	writeFile(t, root, "assets.json", `{"run_id":"run-7","records":[
		{"asset":"SPY","domain":"finance","regime":"stable","confidence":0.8,"quality":0.9},
		{"asset":"QQQ","domain":"finance","regime":"UNSTABLE","confidence":0.4},
		{"asset":"SP_HOUSING","domain":"realestate","regime":"INCONCLUSIVE","confidence":0.3},
		{"asset":"","domain":"finance","regime":"STABLE","confidence":0.5},
		{"asset":"BAD","domain":"finance","regime":"SIDEWAYS","confidence":0.5},
		{"asset":"BIG","domain":"finance","regime":"STABLE","confidence":1.5},
		"not an object"
	]}`)
	writeFile(t, root, "risk_truth.json", `{"counts":{"validated":1},"entries":[{"asset_id":"SPY","status":"validated"},{"asset_id":"QQQ","status":"watch"}]}`)
	writeFile(t, root, "series/daily/SPY.json", `[
		{"date":"2024-01-01","price":100},
		{"date":"2024-02-01","price":null},
		{"date":"2024-03-01","price":102}
	]`)
	writeFile(t, root, "regimes/SPY_monthly_regimes.csv", "date,regime,confidence\n2024-03-01,TRANSITION,0.6\n")
	writeFile(t, root, "forecast_suite/spy/daily/spy_daily_log_return_h5.json", `{"predictions":[0.01,0.02,-0.005]}`)
	return NewStore(root)
}

func TestLatestRun(t *testing.T) {
	s := fixture(t)
	run, ok := s.LatestRun()
	require.True(t, ok)
	assert.Equal(t, "run-7", run.RunID)

	_, ok = NewStore(t.TempDir()).LatestRun()
	assert.False(t, ok)
}

func TestAssetsQuarantinesInvalidRecords(t *testing.T) {
	s := fixture(t)
	p := s.Assets(Filter{IncludeInconclusive: true})
	assert.Equal(t, "run-7", p.RunID)
	assert.Equal(t, 4, p.Quarantined)
	require.Len(t, p.Records, 3)
	assert.Equal(t, regime.Stable, p.Records[0].Regime)
}

func TestAssetsFilters(t *testing.T) {
	s := fixture(t)

	p := s.Assets(Filter{})
	assert.Len(t, p.Records, 2, "inconclusive excluded by default")

	p = s.Assets(Filter{Domain: "realestate", IncludeInconclusive: true})
	require.Len(t, p.Records, 1)
	assert.Equal(t, "SP_HOUSING", p.Records[0].Asset)

	p = s.Assets(Filter{Status: "validated"})
	require.Len(t, p.Records, 1)
	assert.Equal(t, "SPY", p.Records[0].Asset)
}

func TestAssetsMissingFileDegrades(t *testing.T) {
	p := NewStore(t.TempDir()).Assets(Filter{})
	assert.NotNil(t, p.Records)
	assert.Empty(t, p.Records)
}

func TestSeriesMergesCSVRegimes(t *testing.T) {
	s := fixture(t)
	pts := s.Series("SPY", "daily")
	require.Len(t, pts, 3)
	assert.Nil(t, pts[1].Price)
	assert.Equal(t, regime.Transition, pts[2].Regime)
	assert.Equal(t, 0.6, pts[2].Confidence)

	assert.Empty(t, s.Series("../SPY", "daily"))
	assert.Empty(t, s.Series("NOPE", "daily"))
}

func TestSeriesBatchLimit(t *testing.T) {
	s := fixture(t)
	m := s.SeriesBatch([]string{"SPY", "QQQ"}, "daily", 2)
	assert.Len(t, m["SPY"], 2)
	assert.Empty(t, m["QQQ"])
	assert.Contains(t, m, "QQQ")
}

func TestForecast(t *testing.T) {
	s := fixture(t)
	fc, ok := s.Forecast("SPY", "daily", 5)
	require.True(t, ok)
	cur, ok := fc.Current()
	require.True(t, ok)
	assert.Equal(t, -0.005, cur)

	_, ok = s.Forecast("SPY", "daily", 10)
	assert.False(t, ok)
	assert.Equal(t, "forecast_suite/qqq/weekly/qqq_weekly_log_return_h1.json", ForecastPath("QQQ", "weekly", 1))
}

func TestOpenFileStaysInRoot(t *testing.T) {
	s := fixture(t)
	rc, err := s.OpenFile("latest_run.json")
	require.NoError(t, err)
	b, _ := io.ReadAll(rc)
	rc.Close()
	assert.Contains(t, string(b), "run-7")

	_, err = s.OpenFile("../../etc/passwd")
	assert.Error(t, err)
	_, err = s.OpenFile("series")
	assert.Error(t, err)
}

func TestRiskTruthDefaults(t *testing.T) {
	rt := NewStore(t.TempDir()).RiskTruth()
	assert.NotNil(t, rt.Counts)
	assert.NotNil(t, rt.Entries)
}

func TestValidate(t *testing.T) {
	q := 1.2
	assert.Error(t, AssetRecord{Asset: "X", Regime: regime.Stable, Confidence: 0.5, Quality: &q}.Validate())
	assert.NoError(t, AssetRecord{Asset: "X", Regime: regime.Inconclusive, Confidence: 0}.Validate())
}
