// Package tracker resolves active signals against candles observed since
// each signal was created.
package tracker

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"cryptosignals/internal/market"
	"cryptosignals/internal/metrics"
	"cryptosignals/internal/model"
	"cryptosignals/internal/store"
)

// Tracker walks the stored signal list, fetches candles covering each active
// signal's lifetime and applies the target/stop resolution rules.
type Tracker struct {
	source  market.Source
	store   *store.FileStore
	archive *store.Archive // optional, nil disables archiving
	tf      model.Timeframe
	log     zerolog.Logger
	now     func() time.Time
}

// New creates a tracker resolving against the given timeframe.
func New(source market.Source, st *store.FileStore, archive *store.Archive, tf model.Timeframe, log zerolog.Logger) *Tracker {
	return &Tracker{
		source:  source,
		store:   st,
		archive: archive,
		tf:      tf,
		log:     log.With().Str("component", "tracker").Logger(),
		now:     time.Now,
	}
}

// Result summarizes one tracking pass.
type Result struct {
	Checked       int
	TargetReached int
	StopLoss      int
	Errors        int
}

// Run performs one tracking pass. The whole pass runs inside a single locked
// read-modify-write cycle so overlapping invocations cannot lose updates.
// A fetch failure for one signal is logged and skips only that signal.
func (t *Tracker) Run(ctx context.Context) (Result, error) {
	var res Result
	var snapshot []model.Signal

	err := t.store.Update(func(signals []model.Signal) ([]model.Signal, error) {
		now := t.now()
		for i := range signals {
			sig := &signals[i]
			if sig.Status.Terminal() {
				continue
			}
			res.Checked++

			candles, err := t.source.Candles(ctx, sig.Symbol, t.tf, sig.CreatedAt.Time, now)
			if err != nil {
				res.Errors++
				t.log.Warn().Err(err).
					Str("symbol", sig.Symbol).
					Msg("fetch failed, signal left active")
				continue
			}

			if status, ok := resolve(sig, candles); ok {
				switch status {
				case model.StatusTargetReached:
					res.TargetReached++
				case model.StatusStopLoss:
					res.StopLoss++
				}
				metrics.SignalsResolvedTotal.WithLabelValues(string(status)).Inc()
				t.log.Info().
					Str("symbol", sig.Symbol).
					Str("direction", string(sig.Direction)).
					Str("status", string(status)).
					Float64("closed_price", *sig.ClosedPrice).
					Msg("signal resolved")
			}
		}
		snapshot = signals
		return signals, nil
	})
	if err != nil {
		return res, err
	}

	if t.archive != nil {
		if err := t.archive.RecordTerminal(snapshot); err != nil {
			t.log.Warn().Err(err).Msg("archive update failed")
		}
	}
	return res, nil
}

// resolve scans candles in ascending order and closes the signal on the
// first candle that touches target or stop. Candles at or before creation
// are skipped. Within one candle the target is checked first.
func resolve(sig *model.Signal, candles []model.Candle) (model.Status, bool) {
	for i := range candles {
		candle := &candles[i]
		if !candle.TS.After(sig.CreatedAt.Time) {
			continue
		}

		var status model.Status
		switch sig.Direction {
		case model.DirectionSell:
			if candle.Low <= sig.TargetPrice {
				status = model.StatusTargetReached
			} else if candle.High >= sig.StopLoss {
				status = model.StatusStopLoss
			}
		default:
			if candle.High >= sig.TargetPrice {
				status = model.StatusTargetReached
			} else if candle.Low <= sig.StopLoss {
				status = model.StatusStopLoss
			}
		}
		if status == "" {
			continue
		}

		sig.Close(status, candle.Close, candle.TS)
		return status, true
	}
	return "", false
}
