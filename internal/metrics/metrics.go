package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds the dashboard's Prometheus collectors. All record methods
// are safe on a nil *Registry.
type Registry struct {
	reg *prometheus.Registry

	RequestDuration   *prometheus.HistogramVec
	Requests          *prometheus.CounterVec
	FeedFailures      *prometheus.CounterVec
	Quarantined       prometheus.Counter
	FallbackSeries    prometheus.Counter
	ImageCache        *prometheus.CounterVec
	RegimeTransitions *prometheus.CounterVec
	StaleLoads        prometheus.Counter
	LatestRunSeen     prometheus.Gauge
}

// New builds a registry with every dashboard collector registered.
func New() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dashboard_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_http_requests_total",
			Help: "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		FeedFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_feed_failures_total",
			Help: "Feed calls that degraded to an empty payload.",
		}, []string{"endpoint"}),
		Quarantined: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dashboard_records_quarantined_total",
			Help: "Asset records rejected by boundary validation.",
		}),
		FallbackSeries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dashboard_fallback_series_total",
			Help: "Series labelled by the fallback classifier.",
		}),
		ImageCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_image_cache_total",
			Help: "Chart image cache lookups by result.",
		}, []string{"result"}),
		RegimeTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_regime_transitions_total",
			Help: "Regime changes observed between runs, by new regime.",
		}, []string{"regime"}),
		StaleLoads: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dashboard_stale_loads_total",
			Help: "Board loads discarded because a newer load superseded them.",
		}),
		LatestRunSeen: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dashboard_latest_run_seen_timestamp_seconds",
			Help: "Unix time the watcher last recorded a new run.",
		}),
	}
	r.reg.MustRegister(
		r.RequestDuration,
		r.Requests,
		r.FeedFailures,
		r.Quarantined,
		r.FallbackSeries,
		r.ImageCache,
		r.RegimeTransitions,
		r.StaleLoads,
		r.LatestRunSeen,
	)
	return r
}

// Handler exposes the registry for scraping.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

func (r *Registry) ObserveRequest(route, code string, d time.Duration) {
	if r == nil {
		return
	}
	r.RequestDuration.WithLabelValues(route).Observe(d.Seconds())
	r.Requests.WithLabelValues(route, code).Inc()
}

func (r *Registry) FeedFailure(endpoint string) {
	if r == nil {
		return
	}
	r.FeedFailures.WithLabelValues(endpoint).Inc()
}

func (r *Registry) RecordQuarantined(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.Quarantined.Add(float64(n))
}

func (r *Registry) RecordFallback() {
	if r == nil {
		return
	}
	r.FallbackSeries.Inc()
}

func (r *Registry) CacheLookup(hit bool) {
	if r == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	r.ImageCache.WithLabelValues(result).Inc()
}

func (r *Registry) RecordTransition(to string) {
	if r == nil {
		return
	}
	r.RegimeTransitions.WithLabelValues(to).Inc()
}

func (r *Registry) RecordStaleLoad() {
	if r == nil {
		return
	}
	r.StaleLoads.Inc()
}

func (r *Registry) RecordRunSeen(t time.Time) {
	if r == nil {
		return
	}
	r.LatestRunSeen.Set(float64(t.Unix()))
}
