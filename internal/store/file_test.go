package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"cryptosignals/internal/model"
)

func tempStore(t *testing.T) *FileStore {
	t.Helper()
	return NewFileStore(filepath.Join(t.TempDir(), "data", "signals.json"))
}

func sample(symbol string, status model.Status, createdAt time.Time) model.Signal {
	return model.Signal{
		Symbol:      symbol,
		Direction:   model.DirectionBuy,
		EntryPrice:  100,
		TargetPrice: 105,
		StopLoss:    97,
		Score:       80,
		RiskReward:  1.67,
		Reasons:     []string{"MACD crossed above signal line"},
		Status:      status,
		CreatedAt:   model.NewFlexTime(createdAt),
	}
}

func TestFileStore_MissingFileIsEmpty(t *testing.T) {
	st := tempStore(t)
	signals, err := st.Load()
	require.NoError(t, err)
	require.Empty(t, signals)
}

func TestFileStore_AppendRoundTrip(t *testing.T) {
	st := tempStore(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, st.Append(sample("BTC-USDT", model.StatusActive, now)))
	require.NoError(t, st.Append(sample("ETH-USDT", model.StatusActive, now.Add(time.Minute))))

	signals, err := st.Load()
	require.NoError(t, err)
	require.Len(t, signals, 2)
	require.Equal(t, "BTC-USDT", signals[0].Symbol)
	require.True(t, signals[0].CreatedAt.Equal(now))
	require.Equal(t, []string{"MACD crossed above signal line"}, signals[0].Reasons)
}

func TestFileStore_LegacyTimestampsTolerated(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "signals.json")
	legacy := `[{
		"symbol": "BTC-USDT", "direction": "buy",
		"entry_price": 100, "target_price": 105, "stop_loss": 97,
		"score": 80, "risk_reward_ratio": 1.5, "reasons": [],
		"status": "active", "created_at": "2026-03-01 12:00:00"
	}]`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o644))

	st := NewFileStore(path)
	signals, err := st.Load()
	require.NoError(t, err)
	require.Len(t, signals, 1)
	require.True(t, signals[0].CreatedAt.Equal(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)))

	// A rewrite normalizes every timestamp to RFC3339.
	require.NoError(t, st.Update(func(s []model.Signal) ([]model.Signal, error) { return s, nil }))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "2026-03-01T12:00:00Z")
}

func TestFileStore_UpdateReleasesLock(t *testing.T) {
	st := tempStore(t)
	require.NoError(t, st.Append(sample("BTC-USDT", model.StatusActive, time.Now())))

	_, err := os.Stat(st.path + ".lock")
	require.True(t, os.IsNotExist(err), "lock file must be removed after Update")
}

func TestFileStore_UpdateErrorKeepsFile(t *testing.T) {
	st := tempStore(t)
	now := time.Now()
	require.NoError(t, st.Append(sample("BTC-USDT", model.StatusActive, now)))

	wantErr := os.ErrInvalid
	err := st.Update(func([]model.Signal) ([]model.Signal, error) { return nil, wantErr })
	require.ErrorIs(t, err, wantErr)

	signals, err := st.Load()
	require.NoError(t, err)
	require.Len(t, signals, 1, "a failed update must not touch the file")
}

func TestFileStore_AppendGuardedHoldsActiveCap(t *testing.T) {
	st := tempStore(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	added, err := st.AppendGuarded(sample("BTC-USDT", model.StatusActive, now), 0, 1)
	require.NoError(t, err)
	require.True(t, added)

	// A concurrent pass working from a stale snapshot produces a second
	// candidate; the locked re-check must drop it.
	added, err = st.AppendGuarded(sample("BTC-USDT", model.StatusActive, now.Add(time.Minute)), 0, 1)
	require.NoError(t, err)
	require.False(t, added)

	signals, err := st.Load()
	require.NoError(t, err)
	require.Len(t, signals, 1)
	require.Equal(t, 1, ActiveCount(signals, "BTC-USDT"))
}

func TestFileStore_AppendGuardedCooldown(t *testing.T) {
	st := tempStore(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cooldown := 15 * time.Minute

	added, err := st.AppendGuarded(sample("BTC-USDT", model.StatusActive, now), cooldown, 0)
	require.NoError(t, err)
	require.True(t, added)

	added, err = st.AppendGuarded(sample("BTC-USDT", model.StatusActive, now.Add(5*time.Minute)), cooldown, 0)
	require.NoError(t, err)
	require.False(t, added, "append within the cooldown window must be dropped")

	added, err = st.AppendGuarded(sample("BTC-USDT", model.StatusActive, now.Add(20*time.Minute)), cooldown, 0)
	require.NoError(t, err)
	require.True(t, added, "append past the cooldown window must go through")

	// Other symbols are unaffected.
	added, err = st.AppendGuarded(sample("ETH-USDT", model.StatusActive, now.Add(time.Minute)), cooldown, 1)
	require.NoError(t, err)
	require.True(t, added)
}

func TestFileStore_AppendGuardedIgnoresTerminal(t *testing.T) {
	st := tempStore(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, st.Append(sample("BTC-USDT", model.StatusTargetReached, now)))

	added, err := st.AppendGuarded(sample("BTC-USDT", model.StatusActive, now.Add(time.Minute)), 15*time.Minute, 1)
	require.NoError(t, err)
	require.True(t, added, "a terminal signal must not count against the cap or cooldown")
}

func TestFileLock_StaleTakeover(t *testing.T) {
	dir := t.TempDir()
	lockPath := filepath.Join(dir, "signals.json.lock")
	require.NoError(t, os.WriteFile(lockPath, []byte("12345\n"), 0o644))
	old := time.Now().Add(-10 * time.Minute)
	require.NoError(t, os.Chtimes(lockPath, old, old))

	l := newFileLock(lockPath)
	require.NoError(t, l.acquire(), "a stale lock must be taken over")
	l.release()
}

func TestFileLock_TouchKeepsLockFresh(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "signals.json.lock")
	l := newFileLock(lockPath)
	require.NoError(t, l.acquire())
	defer l.release()

	// Simulate a long-held lock that would otherwise look stale.
	old := time.Now().Add(-lockStaleAfter - time.Minute)
	require.NoError(t, os.Chtimes(lockPath, old, old))
	l.touch()

	info, err := os.Stat(lockPath)
	require.NoError(t, err)
	require.Less(t, time.Since(info.ModTime()), lockStaleAfter,
		"a touched lock must not be eligible for takeover")
}

func TestActiveHelpers(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	signals := []model.Signal{
		sample("BTC-USDT", model.StatusActive, now),
		sample("BTC-USDT", model.StatusActive, now.Add(time.Hour)),
		sample("BTC-USDT", model.StatusTargetReached, now.Add(2*time.Hour)),
		sample("ETH-USDT", model.StatusActive, now),
	}

	require.Equal(t, 2, ActiveCount(signals, "BTC-USDT"))
	require.Equal(t, 1, ActiveCount(signals, "ETH-USDT"))
	require.Zero(t, ActiveCount(signals, "SOL-USDT"))

	latest := LatestActive(signals, "BTC-USDT")
	require.NotNil(t, latest)
	require.True(t, latest.CreatedAt.Equal(now.Add(time.Hour)))
	require.Nil(t, LatestActive(signals, "SOL-USDT"))
}
