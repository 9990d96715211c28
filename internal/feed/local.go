package feed

import (
	"context"

	"github.com/pemodest0/Assyntrax-sub000/internal/series"
	"github.com/pemodest0/Assyntrax-sub000/internal/snapshot"
)

// Local serves a board straight from the artifact directory, for callers
// running in the same process as the API.
type Local struct {
	Store *snapshot.Store
}

func (l Local) Assets(_ context.Context, f snapshot.Filter) snapshot.AssetsPayload {
	return l.Store.Assets(f)
}

func (l Local) SeriesBatch(_ context.Context, assets []string, tf string, limit int) series.SeriesMap {
	return series.SeriesMap(l.Store.SeriesBatch(assets, tf, limit))
}

func (l Local) LatestRun(context.Context) snapshot.RunInfo {
	run, _ := l.Store.LatestRun()
	return run
}

func (l Local) RiskTruth(context.Context) snapshot.RiskTruth {
	return l.Store.RiskTruth()
}

func (l Local) Forecast(_ context.Context, asset, tf string, horizon int) (snapshot.Forecast, bool) {
	return l.Store.Forecast(asset, tf, horizon)
}
