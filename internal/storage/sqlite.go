package storage

import (
	"database/sql"
	"fmt"
	"sort"

	// Register sqlite3 driver
	_ "github.com/mattn/go-sqlite3"

	"github.com/pemodest0/Assyntrax-sub000/internal/regime"
)

type DB interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	Begin() (*sql.Tx, error)
	Close() error
}

type Store struct{ db DB }

// OpenSQLite opens a single-connection pool so in-memory databases are
// shared by every query.
func OpenSQLite(dsn string) (DB, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

func InitSchema(db DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs(
			run_id TEXT PRIMARY KEY, status TEXT, ts INTEGER
		)`,
		`CREATE TABLE IF NOT EXISTS regime_history(
			run_id TEXT, asset TEXT, regime TEXT, confidence REAL, ts INTEGER,
			PRIMARY KEY(run_id, asset)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_regime_history_asset ON regime_history(asset, ts)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

func NewStore(db DB) *Store { return &Store{db: db} }

// Record is one asset's regime within a run.
type Record struct {
	Asset      string       `json:"asset"`
	Regime     regime.Label `json:"regime"`
	Confidence float64      `json:"confidence"`
}

// Transition is a regime change of one asset between two runs.
type Transition struct {
	Asset string       `json:"asset"`
	From  regime.Label `json:"from"`
	To    regime.Label `json:"to"`
}

// HistoryEntry is one asset's regime at one run.
type HistoryEntry struct {
	RunID      string       `json:"run_id"`
	Regime     regime.Label `json:"regime"`
	Confidence float64      `json:"confidence"`
	TS         int64        `json:"ts"`
}

// SaveRun records a run and its regime table in one transaction. Saving the
// same run twice replaces the earlier rows.
func (s *Store) SaveRun(runID, status string, records []Record, ts int64) (err error) {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("save run %s: %w", runID, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.Exec(`INSERT OR REPLACE INTO runs(run_id,status,ts) VALUES(?,?,?)`,
		runID, status, ts); err != nil {
		return fmt.Errorf("save run %s: %w", runID, err)
	}
	for _, r := range records {
		if _, err = tx.Exec(`INSERT OR REPLACE INTO regime_history(run_id,asset,regime,confidence,ts) VALUES(?,?,?,?,?)`,
			runID, r.Asset, string(r.Regime), r.Confidence, ts); err != nil {
			return fmt.Errorf("save run %s asset %s: %w", runID, r.Asset, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("save run %s: %w", runID, err)
	}
	return nil
}

// RecentRuns returns up to n run ids, newest first.
func (s *Store) RecentRuns(n int) ([]string, error) {
	rows, err := s.db.Query(`SELECT run_id FROM runs ORDER BY ts DESC, rowid DESC LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// LastRunID returns the newest recorded run, or "" when there is none.
func (s *Store) LastRunID() (string, error) {
	ids, err := s.RecentRuns(1)
	if err != nil || len(ids) == 0 {
		return "", err
	}
	return ids[0], nil
}

// RunRegimes returns the regime of every asset in a run.
func (s *Store) RunRegimes(runID string) (map[string]regime.Label, error) {
	rows, err := s.db.Query(`SELECT asset, regime FROM regime_history WHERE run_id=?`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]regime.Label{}
	for rows.Next() {
		var a, r string
		if err := rows.Scan(&a, &r); err != nil {
			return nil, fmt.Errorf("scan run %s: %w", runID, err)
		}
		if a != "" {
			out[a] = regime.Label(r)
		}
	}
	return out, rows.Err()
}

// Transitions lists assets whose regime differs between two runs. Assets
// new in cur are reported with an empty From.
func (s *Store) Transitions(prev, cur string) ([]Transition, error) {
	before, err := s.RunRegimes(prev)
	if err != nil {
		return nil, err
	}
	after, err := s.RunRegimes(cur)
	if err != nil {
		return nil, err
	}
	var out []Transition
	for asset, to := range after {
		if from := before[asset]; from != to {
			out = append(out, Transition{Asset: asset, From: from, To: to})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Asset < out[j].Asset })
	return out, nil
}

// History returns an asset's regimes across runs, oldest first.
func (s *Store) History(asset string, limit int) ([]HistoryEntry, error) {
	rows, err := s.db.Query(`SELECT run_id, regime, confidence, ts FROM regime_history
		WHERE asset=? ORDER BY ts DESC, rowid DESC LIMIT ?`, asset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		var r string
		if err := rows.Scan(&e.RunID, &r, &e.Confidence, &e.TS); err != nil {
			return nil, fmt.Errorf("scan history %s: %w", asset, err)
		}
		e.Regime = regime.Label(r)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}
