package market

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"cryptosignals/internal/metrics"
	"cryptosignals/internal/model"
	"cryptosignals/internal/retry"
)

// Retrying decorates a Source with a bounded-retry policy. On exhaustion
// every method returns an error wrapping ErrUnavailable rather than the
// raw transport failure.
type Retrying struct {
	inner  Source
	policy retry.Policy
	log    zerolog.Logger
}

// NewRetrying wraps src with the given retry policy.
func NewRetrying(src Source, policy retry.Policy, log zerolog.Logger) *Retrying {
	return &Retrying{inner: src, policy: policy, log: log}
}

func (r *Retrying) Candles(ctx context.Context, symbol string, tf model.Timeframe, start, end time.Time) ([]model.Candle, error) {
	var candles []model.Candle
	err := r.do(ctx, "candles", symbol, func() error {
		var err error
		candles, err = r.inner.Candles(ctx, symbol, tf, start, end)
		return err
	})
	if err != nil {
		return nil, err
	}
	return candles, nil
}

func (r *Retrying) DayVolume(ctx context.Context, symbol string) (float64, error) {
	var volume float64
	err := r.do(ctx, "day_volume", symbol, func() error {
		var err error
		volume, err = r.inner.DayVolume(ctx, symbol)
		return err
	})
	return volume, err
}

func (r *Retrying) TickerPrice(ctx context.Context, symbol string) (float64, error) {
	var price float64
	err := r.do(ctx, "ticker_price", symbol, func() error {
		var err error
		price, err = r.inner.TickerPrice(ctx, symbol)
		return err
	})
	return price, err
}

func (r *Retrying) do(ctx context.Context, op, symbol string, fn func() error) error {
	attempt := 0
	err := r.policy.Do(ctx, func() error {
		attempt++
		err := fn()
		if err != nil && attempt > 1 {
			metrics.FetchRetriesTotal.WithLabelValues(op).Inc()
		}
		if err != nil {
			r.log.Warn().Err(err).Str("op", op).Str("symbol", symbol).
				Int("attempt", attempt).Msg("market fetch failed")
		}
		return err
	})
	if err != nil {
		metrics.FetchFailuresTotal.WithLabelValues(op).Inc()
		return fmt.Errorf("%w: %s %s: %v", ErrUnavailable, op, symbol, err)
	}
	return nil
}
