package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/pemodest0/Assyntrax-sub000/internal/chart"
	"github.com/pemodest0/Assyntrax-sub000/internal/feed"
	"github.com/pemodest0/Assyntrax-sub000/internal/metrics"
	"github.com/pemodest0/Assyntrax-sub000/internal/snapshot"
	"github.com/pemodest0/Assyntrax-sub000/internal/storage"
)

// Narrator turns a board into a short text summary.
type Narrator interface {
	Narrate(ctx context.Context, b feed.Board) (string, error)
}

// Deps are the collaborators of the HTTP API. Only Store is required.
type Deps struct {
	Store           *snapshot.Store
	History         *storage.Store
	Metrics         *metrics.Registry
	Cache           *chart.Cache
	Narrator        Narrator
	Webhook         http.HandlerFunc
	Geometry        chart.Geometry
	MaxRenderPoints int
}

type api struct {
	Deps
	source feed.Local
}

// NewRouter registers every route of the dashboard API.
func NewRouter(d Deps) *mux.Router {
	if d.Geometry.Width == 0 {
		d.Geometry = chart.DefaultGeometry()
	}
	a := &api{Deps: d, source: feed.Local{Store: d.Store}}

	r := mux.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware)
	r.Use(metricsMiddleware(d.Metrics))
	r.Use(corsMiddleware)

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(200) }).Methods("GET")
	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics.Handler()).Methods("GET")
	}
	if d.Webhook != nil {
		r.HandleFunc("/telegram/webhook", d.Webhook).Methods("POST")
	}

	apiR := r.PathPrefix("/api").Subrouter()
	apiR.HandleFunc("/assets", a.assets).Methods("GET")
	apiR.HandleFunc("/graph/series-batch", a.seriesBatch).Methods("GET")
	apiR.HandleFunc("/files/{path:.*}", a.files).Methods("GET")
	apiR.HandleFunc("/risk-truth", a.riskTruth).Methods("GET")
	apiR.HandleFunc("/run/latest", a.latestRun).Methods("GET")
	apiR.HandleFunc("/regimes/{asset}", a.regimes).Methods("GET")
	apiR.HandleFunc("/history/{asset}", a.history).Methods("GET")
	apiR.HandleFunc("/chart/view", a.chartView).Methods("GET")
	apiR.HandleFunc("/chart/hover", a.chartHover).Methods("GET")
	apiR.HandleFunc("/chart/image", a.chartImage).Methods("GET")
	apiR.HandleFunc("/summary", a.summary).Methods("GET")

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusNotFound, "not found")
	})
	return r
}

// ListenAndServe serves h until ctx is cancelled, then shuts down gracefully.
func ListenAndServe(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      h,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		log.Info().Msg("http: shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			return err
		}
		if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
