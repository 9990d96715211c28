package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pemodest0/Assyntrax-sub000/internal/regime"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	db, err := OpenSQLite("file::memory:?_fk=1")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, InitSchema(db))
	require.NoError(t, InitSchema(db), "schema is idempotent")
	return NewStore(db)
}

func TestLastRunIDEmpty(t *testing.T) {
	s := newStore(t)
	id, err := s.LastRunID()
	require.NoError(t, err)
	assert.Equal(t, "", id)
}

func TestSaveRunAndTransitions(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.SaveRun("r1", "ok", []Record{
		{Asset: "SPY", Regime: regime.Stable, Confidence: 0.75},
		{Asset: "QQQ", Regime: regime.Transition, Confidence: 0.58},
	}, 100))
	require.NoError(t, s.SaveRun("r2", "ok", []Record{
		{Asset: "SPY", Regime: regime.Unstable, Confidence: 0.42},
		{Asset: "QQQ", Regime: regime.Transition, Confidence: 0.6},
		{Asset: "GLD", Regime: regime.Stable, Confidence: 0.7},
	}, 200))

	id, err := s.LastRunID()
	require.NoError(t, err)
	assert.Equal(t, "r2", id)

	runs, err := s.RecentRuns(5)
	require.NoError(t, err)
	assert.Equal(t, []string{"r2", "r1"}, runs)

	tr, err := s.Transitions("r1", "r2")
	require.NoError(t, err)
	assert.Equal(t, []Transition{
		{Asset: "GLD", From: "", To: regime.Stable},
		{Asset: "SPY", From: regime.Stable, To: regime.Unstable},
	}, tr)
}

func TestSaveRunReplaces(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.SaveRun("r1", "ok", []Record{{Asset: "SPY", Regime: regime.Stable}}, 100))
	require.NoError(t, s.SaveRun("r1", "ok", []Record{{Asset: "SPY", Regime: regime.Unstable}}, 100))
	m, err := s.RunRegimes("r1")
	require.NoError(t, err)
	assert.Equal(t, map[string]regime.Label{"SPY": regime.Unstable}, m)
}

func TestHistoryOldestFirst(t *testing.T) {
	s := newStore(t)
	for i, l := range []regime.Label{regime.Stable, regime.Transition, regime.Unstable} {
		require.NoError(t, s.SaveRun(string(rune('a'+i)), "ok", []Record{{Asset: "SPY", Regime: l}}, int64(i)))
	}
	h, err := s.History("SPY", 2)
	require.NoError(t, err)
	require.Len(t, h, 2)
	assert.Equal(t, regime.Transition, h[0].Regime)
	assert.Equal(t, regime.Unstable, h[1].Regime)
}

func TestSaveRunIsAtomic(t *testing.T) {
	s := newStore(t)
	_, err := s.db.Exec(`CREATE TRIGGER reject_bad BEFORE INSERT ON regime_history
		WHEN NEW.asset = 'BAD' BEGIN SELECT RAISE(ABORT, 'rejected'); END`)
	require.NoError(t, err)

	err = s.SaveRun("r1", "ok", []Record{
		{Asset: "SPY", Regime: regime.Stable, Confidence: 0.9},
		{Asset: "BAD", Regime: regime.Stable, Confidence: 0.9},
	}, 100)
	require.Error(t, err)

	id, err := s.LastRunID()
	require.NoError(t, err)
	assert.Equal(t, "", id, "failed run leaves nothing behind")
	regimes, err := s.RunRegimes("r1")
	require.NoError(t, err)
	assert.Empty(t, regimes)

	require.NoError(t, s.SaveRun("r1", "ok", []Record{{Asset: "SPY", Regime: regime.Stable, Confidence: 0.9}}, 100))
	id, err = s.LastRunID()
	require.NoError(t, err)
	assert.Equal(t, "r1", id)
}

func TestScanErrorsAreReturned(t *testing.T) {
	s := newStore(t)
	_, err := s.db.Exec(`INSERT INTO regime_history(run_id,asset,regime,confidence,ts) VALUES('r9','X',NULL,0.5,1)`)
	require.NoError(t, err)

	_, err = s.RunRegimes("r9")
	assert.Error(t, err)
	_, err = s.History("X", 5)
	assert.Error(t, err)
}
