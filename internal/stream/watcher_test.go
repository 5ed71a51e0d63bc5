package stream

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"cryptosignals/internal/model"
	"cryptosignals/internal/notify"
	"cryptosignals/internal/store"
)

type recordingNotifier struct {
	msgs []notify.Message
}

func (r *recordingNotifier) Send(_ context.Context, msg notify.Message) error {
	r.msgs = append(r.msgs, msg)
	return nil
}

func newTestWatcher(t *testing.T, signals ...model.Signal) (*Watcher, *recordingNotifier) {
	t.Helper()
	st := store.NewFileStore(filepath.Join(t.TempDir(), "signals.json"))
	for _, sig := range signals {
		require.NoError(t, st.Append(sig))
	}
	rec := &recordingNotifier{}
	w := New("", st, rec, zerolog.Nop())
	require.NoError(t, w.refreshSignals())
	return w, rec
}

func buySignal(symbol string) model.Signal {
	return model.Signal{
		Symbol:      symbol,
		Direction:   model.DirectionBuy,
		EntryPrice:  100,
		TargetPrice: 105,
		StopLoss:    97,
		Status:      model.StatusActive,
		CreatedAt:   model.NewFlexTime(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)),
	}
}

func TestCheckLevels_TargetAlertOnce(t *testing.T) {
	w, rec := newTestWatcher(t, buySignal("BTC-USDT"))

	w.checkLevels(context.Background(), "BTC-USDT", 106)
	require.Len(t, rec.msgs, 1)
	require.Contains(t, rec.msgs[0].Text, "BTC-USDT")
	require.Contains(t, rec.msgs[0].Text, "target")

	// The same level never alerts twice.
	w.checkLevels(context.Background(), "BTC-USDT", 107)
	require.Len(t, rec.msgs, 1)
}

func TestCheckLevels_StopAlert(t *testing.T) {
	w, rec := newTestWatcher(t, buySignal("BTC-USDT"))

	w.checkLevels(context.Background(), "BTC-USDT", 96.5)
	require.Len(t, rec.msgs, 1)
	require.Contains(t, rec.msgs[0].Text, "stop")
}

func TestCheckLevels_InsideRangeSilent(t *testing.T) {
	w, rec := newTestWatcher(t, buySignal("BTC-USDT"))

	w.checkLevels(context.Background(), "BTC-USDT", 101)
	require.Empty(t, rec.msgs)
}

func TestCheckLevels_OtherSymbolIgnored(t *testing.T) {
	w, rec := newTestWatcher(t, buySignal("BTC-USDT"))

	w.checkLevels(context.Background(), "ETH-USDT", 1000)
	require.Empty(t, rec.msgs)
}

func TestRefreshSignals_OnlyActiveWatched(t *testing.T) {
	terminal := buySignal("ETH-USDT")
	terminal.Close(model.StatusTargetReached, 105.5, time.Now())
	w, _ := newTestWatcher(t, buySignal("BTC-USDT"), terminal)

	require.Equal(t, []string{"BTC-USDT"}, w.watchedSymbols())
}

func TestChanged(t *testing.T) {
	require.False(t, changed([]string{"a", "b"}, []string{"b", "a"}))
	require.True(t, changed([]string{"a"}, []string{"a", "b"}))
	require.True(t, changed([]string{"a", "b"}, []string{"a", "c"}))
	require.False(t, changed(nil, nil))
}
