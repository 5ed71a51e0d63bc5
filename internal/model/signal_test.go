package model

import (
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
)

func TestFlexTime_RFC3339RoundTrip(t *testing.T) {
	ts := NewFlexTime(time.Date(2026, 3, 1, 12, 30, 45, 999, time.FixedZone("IST", 5*3600+1800)))

	data, err := json.Marshal(ts)
	require.NoError(t, err)
	require.Equal(t, `"2026-03-01T07:00:45Z"`, string(data))

	var back FlexTime
	require.NoError(t, json.Unmarshal(data, &back))
	require.True(t, back.Equal(ts.Time))
}

func TestFlexTime_LegacyLayout(t *testing.T) {
	var ts FlexTime
	require.NoError(t, json.Unmarshal([]byte(`"2025-11-20 08:15:00"`), &ts))
	require.True(t, ts.Equal(time.Date(2025, 11, 20, 8, 15, 0, 0, time.UTC)))
}

func TestFlexTime_Garbage(t *testing.T) {
	var ts FlexTime
	require.Error(t, json.Unmarshal([]byte(`"yesterday"`), &ts))
}

func TestSignal_CloseIsIdempotent(t *testing.T) {
	sig := Signal{Status: StatusActive, EntryPrice: 100}

	first := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	sig.Close(StatusTargetReached, 105, first)
	require.Equal(t, StatusTargetReached, sig.Status)
	require.Equal(t, 105.0, *sig.ClosedPrice)

	// A second close attempt must not alter the terminal record.
	sig.Close(StatusStopLoss, 90, first.Add(time.Hour))
	require.Equal(t, StatusTargetReached, sig.Status)
	require.Equal(t, 105.0, *sig.ClosedPrice)
	require.True(t, sig.ClosedAt.Equal(first))
}

func TestStatus_Terminal(t *testing.T) {
	require.False(t, StatusActive.Terminal())
	require.True(t, StatusTargetReached.Terminal())
	require.True(t, StatusStopLoss.Terminal())
}

func TestSignal_ProfitLossPercent(t *testing.T) {
	buy := Signal{Direction: DirectionBuy, EntryPrice: 100}
	require.InDelta(t, 5.0, buy.ProfitLossPercent(105), 1e-9)
	require.InDelta(t, -3.0, buy.ProfitLossPercent(97), 1e-9)

	sell := Signal{Direction: DirectionSell, EntryPrice: 100}
	require.InDelta(t, 5.0, sell.ProfitLossPercent(95), 1e-9)
	require.InDelta(t, -3.0, sell.ProfitLossPercent(103), 1e-9)

	zero := Signal{EntryPrice: 0}
	require.Zero(t, zero.ProfitLossPercent(50))
}
