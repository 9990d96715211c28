package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/pemodest0/Assyntrax-sub000/internal/metrics"
	"github.com/pemodest0/Assyntrax-sub000/internal/snapshot"
	"github.com/pemodest0/Assyntrax-sub000/internal/storage"
)

// RunSource exposes the artifacts of the latest pipeline run.
type RunSource interface {
	LatestRun() (snapshot.RunInfo, bool)
	Assets(f snapshot.Filter) snapshot.AssetsPayload
}

// History persists runs and compares them.
type History interface {
	LastRunID() (string, error)
	SaveRun(runID, status string, records []storage.Record, ts int64) error
	Transitions(prev, cur string) ([]storage.Transition, error)
}

// Notifier is told about regime changes between consecutive runs.
type Notifier interface {
	NotifyTransitions(runID string, tr []storage.Transition) error
}

// Watcher polls for new pipeline runs and records them.
type Watcher struct {
	Cron     *cron.Cron
	Source   RunSource
	History  History
	Notifier Notifier
	Metrics  *metrics.Registry

	mu  sync.Mutex
	now func() time.Time
}

func NewWatcher(src RunSource, hist History, n Notifier, m *metrics.Registry) *Watcher {
	return &Watcher{
		Cron:     cron.New(),
		Source:   src,
		History:  hist,
		Notifier: n,
		Metrics:  m,
		now:      time.Now,
	}
}

// Register schedules the check on a cron spec such as "@every 5m".
func (w *Watcher) Register(spec string) error {
	if _, err := w.Cron.AddFunc(spec, func() {
		if _, err := w.Check(); err != nil {
			log.Error().Err(err).Msg("scheduler: run check failed")
		}
	}); err != nil {
		return fmt.Errorf("register watcher %q: %w", spec, err)
	}
	return nil
}

func (w *Watcher) Start() {
	w.Cron.Start()
	log.Info().Msg("scheduler: started")
}

func (w *Watcher) Stop() {
	<-w.Cron.Stop().Done()
	log.Info().Msg("scheduler: stopped")
}

// Check records the latest run if it is new and returns the transitions
// against the previous recorded run.
func (w *Watcher) Check() ([]storage.Transition, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	run, ok := w.Source.LatestRun()
	if !ok {
		log.Debug().Msg("scheduler: no run available")
		return nil, nil
	}
	prev, err := w.History.LastRunID()
	if err != nil {
		return nil, fmt.Errorf("last run: %w", err)
	}
	if prev == run.RunID {
		return nil, nil
	}

	payload := w.Source.Assets(snapshot.Filter{IncludeInconclusive: true})
	w.Metrics.RecordQuarantined(payload.Quarantined)
	records := make([]storage.Record, 0, len(payload.Records))
	for _, r := range payload.Records {
		records = append(records, storage.Record{Asset: r.Asset, Regime: r.Regime, Confidence: r.Confidence})
	}
	now := w.now()
	if err := w.History.SaveRun(run.RunID, run.GlobalVerdictStatus, records, now.Unix()); err != nil {
		return nil, err
	}
	w.Metrics.RecordRunSeen(now)
	log.Info().Str("run_id", run.RunID).Int("assets", len(records)).Msg("scheduler: new run recorded")

	if prev == "" {
		return nil, nil
	}
	tr, err := w.History.Transitions(prev, run.RunID)
	if err != nil {
		return nil, fmt.Errorf("transitions: %w", err)
	}
	for _, t := range tr {
		w.Metrics.RecordTransition(string(t.To))
	}
	if len(tr) > 0 && w.Notifier != nil {
		if err := w.Notifier.NotifyTransitions(run.RunID, tr); err != nil {
			log.Warn().Err(err).Msg("scheduler: notify failed")
		}
	}
	return tr, nil
}
