// Package market defines the market-data boundary: a Source of candles and
// ticker statistics, a retrying wrapper around any Source, and an optional
// redis-backed quote cache.
package market

import (
	"context"
	"errors"
	"time"

	"cryptosignals/internal/model"
)

// ErrUnavailable marks a provider that failed past all retries or returned
// an empty payload. Callers treat it as "no data" and skip the affected
// symbol or signal for the pass.
var ErrUnavailable = errors.New("market data unavailable")

// Source fetches market data for one provider.
//
// Candles returns candles ascending by timestamp for [start, end].
// DayVolume returns the 24h traded quote volume for the symbol.
// TickerPrice returns the latest trade price.
type Source interface {
	Candles(ctx context.Context, symbol string, tf model.Timeframe, start, end time.Time) ([]model.Candle, error)
	DayVolume(ctx context.Context, symbol string) (float64, error)
	TickerPrice(ctx context.Context, symbol string) (float64, error)
}
