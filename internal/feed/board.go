package feed

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/pemodest0/Assyntrax-sub000/internal/series"
	"github.com/pemodest0/Assyntrax-sub000/internal/snapshot"
)

// DefaultHorizons are the forecast horizons shown per asset.
var DefaultHorizons = []int{1, 5, 20}

// Request describes everything a board load needs.
type Request struct {
	Filter   snapshot.Filter
	Assets   []string
	TF       string
	Limit    int
	Horizons []int
}

// Board is one consistent load of the dashboard's remote data.
type Board struct {
	Run       snapshot.RunInfo       `json:"run"`
	Assets    snapshot.AssetsPayload `json:"assets"`
	RiskTruth snapshot.RiskTruth     `json:"risk_truth"`
	Series    series.SeriesMap       `json:"series"`
	// Forecasts maps asset -> horizon -> current (last) prediction.
	Forecasts map[string]map[int]float64 `json:"forecasts"`
}

// Quality returns the upstream quality score for asset, if the run has one.
func (b Board) Quality(asset string) *float64 { return b.Assets.Quality(asset) }

// Source is what a board load reads from. *Client satisfies it.
type Source interface {
	Assets(ctx context.Context, f snapshot.Filter) snapshot.AssetsPayload
	SeriesBatch(ctx context.Context, assets []string, tf string, limit int) series.SeriesMap
	LatestRun(ctx context.Context) snapshot.RunInfo
	RiskTruth(ctx context.Context) snapshot.RiskTruth
	Forecast(ctx context.Context, asset, tf string, horizon int) (snapshot.Forecast, bool)
}

// LoadBoard issues every request concurrently and waits for all of them.
// Each request degrades on its own; a missing forecast leaves a hole for that
// asset and horizon only.
func LoadBoard(ctx context.Context, src Source, req Request) Board {
	horizons := req.Horizons
	if horizons == nil {
		horizons = DefaultHorizons
	}
	b := Board{Forecasts: map[string]map[int]float64{}}
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		b.Assets = src.Assets(gctx, req.Filter)
		return nil
	})
	g.Go(func() error {
		b.Series = src.SeriesBatch(gctx, req.Assets, req.TF, req.Limit)
		return nil
	})
	g.Go(func() error {
		b.Run = src.LatestRun(gctx)
		return nil
	})
	g.Go(func() error {
		b.RiskTruth = src.RiskTruth(gctx)
		return nil
	})
	for _, asset := range req.Assets {
		for _, h := range horizons {
			g.Go(func() error {
				fc, ok := src.Forecast(gctx, asset, req.TF, h)
				if !ok {
					return nil
				}
				cur, ok := fc.Current()
				if !ok {
					return nil
				}
				mu.Lock()
				if b.Forecasts[asset] == nil {
					b.Forecasts[asset] = map[int]float64{}
				}
				b.Forecasts[asset][h] = cur
				mu.Unlock()
				return nil
			})
		}
	}
	_ = g.Wait()
	if b.Series == nil {
		b.Series = series.SeriesMap{}
	}
	return b
}
