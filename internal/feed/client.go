package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/pemodest0/Assyntrax-sub000/internal/metrics"
	"github.com/pemodest0/Assyntrax-sub000/internal/regime"
	"github.com/pemodest0/Assyntrax-sub000/internal/series"
	"github.com/pemodest0/Assyntrax-sub000/internal/snapshot"
)

// errNotFound marks a missing artifact. It does not count against the
// breaker.
var errNotFound = errors.New("not found")

// Options configures a Client.
type Options struct {
	Timeout time.Duration
	// RPS limits outgoing requests; 0 disables limiting.
	RPS      float64
	Burst    int
	Failures uint32
	Cooldown time.Duration
	Metrics  *metrics.Registry
}

// Client reads the dashboard API. Every call degrades to an empty value on
// failure; errors are logged and counted, never returned.
type Client struct {
	base    string
	http    *http.Client
	cb      *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	metrics *metrics.Registry
}

func NewClient(base string, opt Options) *Client {
	if opt.Timeout <= 0 {
		opt.Timeout = 10 * time.Second
	}
	if opt.Failures == 0 {
		opt.Failures = 5
	}
	if opt.Cooldown <= 0 {
		opt.Cooldown = 30 * time.Second
	}
	limit := rate.Inf
	if opt.RPS > 0 {
		limit = rate.Limit(opt.RPS)
	}
	if opt.Burst <= 0 {
		opt.Burst = 10
	}
	failures := opt.Failures
	st := gobreaker.Settings{
		Name:    "dashboard-feed",
		Timeout: opt.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, errNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("feed: breaker state change")
		},
	}
	return &Client{
		base:    strings.TrimRight(base, "/"),
		http:    &http.Client{Timeout: opt.Timeout},
		cb:      gobreaker.NewCircuitBreaker(st),
		limiter: rate.NewLimiter(limit, opt.Burst),
		metrics: opt.Metrics,
	}
}

func (c *Client) getJSON(ctx context.Context, path string, q url.Values, v any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}
	_, err := c.cb.Execute(func() (interface{}, error) {
		u := c.base + path
		if len(q) > 0 {
			u += "?" + q.Encode()
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("GET %s: %w", path, errNotFound)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("GET %s: status %d", path, resp.StatusCode)
		}
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		return nil, nil
	})
	return err
}

func (c *Client) degrade(endpoint string, err error) {
	log.Warn().Err(err).Str("endpoint", endpoint).Msg("feed: degraded to empty")
	c.metrics.FeedFailure(endpoint)
}

// Assets fetches the filtered asset table.
func (c *Client) Assets(ctx context.Context, f snapshot.Filter) snapshot.AssetsPayload {
	q := url.Values{}
	if f.Domain != "" {
		q.Set("domain", f.Domain)
	}
	if f.Status != "" {
		q.Set("status", f.Status)
	}
	q.Set("include_inconclusive", strconv.FormatBool(f.IncludeInconclusive))
	var out snapshot.AssetsPayload
	if err := c.getJSON(ctx, "/api/assets", q, &out); err != nil {
		c.degrade("assets", err)
		return snapshot.AssetsPayload{Records: []snapshot.AssetRecord{}}
	}
	if out.Records == nil {
		out.Records = []snapshot.AssetRecord{}
	}
	return out
}

// SeriesBatch fetches several assets' series in one request.
func (c *Client) SeriesBatch(ctx context.Context, assets []string, tf string, limit int) series.SeriesMap {
	out := series.SeriesMap{}
	if len(assets) == 0 {
		return out
	}
	q := url.Values{}
	q.Set("assets", strings.Join(assets, ","))
	if tf != "" {
		q.Set("tf", tf)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var body struct {
		Series map[string][]regime.PricePoint `json:"series"`
	}
	if err := c.getJSON(ctx, "/api/graph/series-batch", q, &body); err != nil {
		c.degrade("series-batch", err)
		return out
	}
	for a, pts := range body.Series {
		out[a] = pts
	}
	return out
}

// LatestRun fetches the latest run descriptor.
func (c *Client) LatestRun(ctx context.Context) snapshot.RunInfo {
	var out snapshot.RunInfo
	if err := c.getJSON(ctx, "/api/run/latest", nil, &out); err != nil {
		c.degrade("run-latest", err)
		return snapshot.RunInfo{}
	}
	return out
}

// RiskTruth fetches the risk validation panel.
func (c *Client) RiskTruth(ctx context.Context) snapshot.RiskTruth {
	var out snapshot.RiskTruth
	if err := c.getJSON(ctx, "/api/risk-truth", nil, &out); err != nil {
		c.degrade("risk-truth", err)
		return snapshot.RiskTruth{Counts: map[string]int{}, Entries: []snapshot.RiskEntry{}}
	}
	return out
}

// Forecast fetches a single forecast artifact; ok is false when it is
// missing or unreadable.
func (c *Client) Forecast(ctx context.Context, asset, tf string, horizon int) (snapshot.Forecast, bool) {
	var out snapshot.Forecast
	if err := c.getJSON(ctx, "/api/files/"+snapshot.ForecastPath(asset, tf, horizon), nil, &out); err != nil {
		c.degrade("forecast", err)
		return snapshot.Forecast{}, false
	}
	out.Asset, out.Timeframe, out.Horizon = asset, tf, horizon
	return out, true
}
