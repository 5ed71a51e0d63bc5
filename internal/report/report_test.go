package report

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"cryptosignals/internal/model"
)

type stubSource struct {
	price float64
}

func (s *stubSource) Candles(context.Context, string, model.Timeframe, time.Time, time.Time) ([]model.Candle, error) {
	return nil, nil
}
func (s *stubSource) DayVolume(context.Context, string) (float64, error) { return 0, nil }
func (s *stubSource) TickerPrice(context.Context, string) (float64, error) {
	return s.price, nil
}

func sampleSignals() []model.Signal {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	resolved := model.Signal{
		Symbol: "BTC-USDT", Direction: model.DirectionBuy,
		EntryPrice: 100, TargetPrice: 105, StopLoss: 97,
		Score: 82, RiskReward: 1.67,
		Reasons:   []string{"MACD crossed above signal line"},
		Status:    model.StatusActive,
		CreatedAt: model.NewFlexTime(now),
	}
	resolved.Close(model.StatusTargetReached, 105.5, now.Add(2*time.Hour))

	active := model.Signal{
		Symbol: "ETH-USDT", Direction: model.DirectionSell,
		EntryPrice: 200, TargetPrice: 190, StopLoss: 206,
		Score: 78, RiskReward: 1.67,
		Status:    model.StatusActive,
		CreatedAt: model.NewFlexTime(now.Add(time.Hour)),
	}
	return []model.Signal{resolved, active}
}

func TestWrite_Workbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xlsx")
	b := NewBuilder(&stubSource{price: 195}, zerolog.Nop())

	require.NoError(t, b.Write(context.Background(), sampleSignals(), path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	require.ElementsMatch(t, []string{sheetAll, sheetActive, sheetStats}, f.GetSheetList())

	// All Signals: header plus both rows.
	rows, err := f.GetRows(sheetAll)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, "Symbol", rows[0][0])
	require.Equal(t, "BTC-USDT", rows[1][0])
	require.Equal(t, "target_reached", rows[1][7])

	// Active Signals: only the unresolved sell, with live price and P/L.
	rows, err = f.GetRows(sheetActive)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "ETH-USDT", rows[1][0])
	require.Equal(t, "195", rows[1][7])
	require.Equal(t, "2.5", rows[1][8]) // (200-195)/200 short side

	// Statistics: win rate from the single resolved signal.
	rows, err = f.GetRows(sheetStats)
	require.NoError(t, err)
	stats := map[string]string{}
	for _, row := range rows[1:] {
		if len(row) >= 2 {
			stats[row[0]] = row[1]
		}
	}
	require.Equal(t, "2", stats["Total signals"])
	require.Equal(t, "1", stats["Active"])
	require.Equal(t, "100", stats["Win rate %"])
}

func TestWrite_NoLiveSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xlsx")
	b := NewBuilder(nil, zerolog.Nop())

	require.NoError(t, b.Write(context.Background(), sampleSignals(), path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetActive)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	// No source: the live price column stays empty.
	require.LessOrEqual(t, len(rows[1]), 7)
}

func TestWrite_EmptyStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xlsx")
	b := NewBuilder(nil, zerolog.Nop())
	require.NoError(t, b.Write(context.Background(), nil, path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetAll)
	require.NoError(t, err)
	require.Len(t, rows, 1, "only the header row")
}
