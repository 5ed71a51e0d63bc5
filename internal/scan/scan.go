// Package scan orchestrates one full pass over the configured watchlist:
// fetch, indicator preparation, evaluation, persistence and notification.
package scan

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"cryptosignals/internal/indicator"
	"cryptosignals/internal/market"
	"cryptosignals/internal/metrics"
	"cryptosignals/internal/model"
	"cryptosignals/internal/notify"
	"cryptosignals/internal/strategy"
)

// Config selects what a pass scans and how.
type Config struct {
	// Symbols are exchange pair symbols, e.g. "BTC-USDT".
	Symbols []string
	// Aliases remap pairs the exchange has renamed (MATIC-USDT to
	// POLY-USDT). The resolved symbol is used for fetching and storage.
	Aliases map[string]string

	PrimaryTF model.Timeframe
	HigherTF  model.Timeframe

	// Lookback is the number of candles fetched per timeframe. It must
	// cover the longest indicator warmup.
	Lookback int

	// InterSymbolDelay spaces out requests to stay under the public API
	// rate limits.
	InterSymbolDelay time.Duration

	// ConfirmHigherTF applies the trend confirmation window to the higher
	// timeframe as well; when false its raw per-candle trend is used.
	ConfirmHigherTF bool

	// Cooldown and MaxActivePerSymbol mirror the generation gate and are
	// re-checked inside the locked append, where they are authoritative.
	Cooldown           time.Duration
	MaxActivePerSymbol int
}

// SignalStore is the persistence surface a scan pass needs.
type SignalStore interface {
	Load() ([]model.Signal, error)
	AppendGuarded(sig model.Signal, cooldown time.Duration, maxActive int) (bool, error)
}

// Scanner runs scan passes.
type Scanner struct {
	cfg        Config
	indicators indicator.Config
	source     market.Source
	gen        *strategy.Generator
	store      SignalStore
	notifier   notify.Notifier
	log        zerolog.Logger
	now        func() time.Time
}

// New creates a scanner.
func New(cfg Config, indicators indicator.Config, source market.Source, gen *strategy.Generator,
	st SignalStore, notifier notify.Notifier, log zerolog.Logger) *Scanner {
	if cfg.Lookback <= 0 {
		cfg.Lookback = 200
	}
	return &Scanner{
		cfg:        cfg,
		indicators: indicators,
		source:     source,
		gen:        gen,
		store:      st,
		notifier:   notifier,
		log:        log.With().Str("component", "scan").Logger(),
		now:        time.Now,
	}
}

// Run scans every configured symbol once and returns the pass summary.
// Per-symbol failures are logged and counted, never fatal for the pass.
func (s *Scanner) Run(ctx context.Context) (notify.ScanSummary, error) {
	started := s.now()
	var summary notify.ScanSummary

	existing, err := s.store.Load()
	if err != nil {
		return summary, err
	}

	for i, configured := range s.cfg.Symbols {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		symbol := s.resolve(configured)
		summary.Scanned++
		metrics.SymbolsScannedTotal.Inc()

		signals, err := s.scanSymbol(ctx, symbol, existing)
		switch {
		case errors.Is(err, indicator.ErrInsufficientData):
			summary.Skipped++
			s.log.Debug().Str("symbol", symbol).Msg("not enough candles, skipped")
		case err != nil:
			summary.Errors++
			s.log.Warn().Err(err).Str("symbol", symbol).Msg("scan failed for symbol")
		}

		for _, sig := range signals {
			added, err := s.store.AppendGuarded(sig, s.cfg.Cooldown, s.cfg.MaxActivePerSymbol)
			if err != nil {
				summary.Errors++
				s.log.Error().Err(err).Str("symbol", symbol).Msg("persist failed")
				notify.NotifyFailure(ctx, s.notifier, "signal persistence for "+sig.Symbol, err)
				continue
			}
			if !added {
				// An overlapping pass filled the per-symbol cap after
				// our snapshot was taken.
				s.log.Info().Str("symbol", sig.Symbol).Msg("dropped, active cap reached")
				continue
			}
			existing = append(existing, sig)
			summary.Generated++
			metrics.SignalsGeneratedTotal.WithLabelValues(sig.Symbol, string(sig.Direction)).Inc()
			s.log.Info().
				Str("symbol", sig.Symbol).
				Str("direction", string(sig.Direction)).
				Int("score", sig.Score).
				Float64("risk_reward", sig.RiskReward).
				Msg("signal generated")

			if err := s.notifier.Send(ctx, notify.Message{Text: notify.FormatSignal(&sig)}); err != nil {
				s.log.Warn().Err(err).Str("symbol", sig.Symbol).Msg("notify failed")
			}
		}

		if s.cfg.InterSymbolDelay > 0 && i < len(s.cfg.Symbols)-1 {
			select {
			case <-time.After(s.cfg.InterSymbolDelay):
			case <-ctx.Done():
				return summary, ctx.Err()
			}
		}
	}

	summary.Elapsed = s.now().Sub(started)
	if err := s.notifier.Send(ctx, notify.Message{Text: notify.FormatScanSummary(summary), Silent: true}); err != nil {
		s.log.Warn().Err(err).Msg("summary notify failed")
	}
	return summary, nil
}

func (s *Scanner) scanSymbol(ctx context.Context, symbol string, existing []model.Signal) ([]model.Signal, error) {
	now := s.now()

	dayVolume, err := s.source.DayVolume(ctx, symbol)
	if err != nil {
		return nil, err
	}

	primary, err := s.prepare(ctx, symbol, s.cfg.PrimaryTF, now, true)
	if err != nil {
		return nil, err
	}
	higher, err := s.prepare(ctx, symbol, s.cfg.HigherTF, now, s.cfg.ConfirmHigherTF)
	if err != nil {
		return nil, err
	}

	return s.gen.Evaluate(strategy.Input{
		Symbol:    symbol,
		Primary:   primary,
		Higher:    higher,
		DayVolume: dayVolume,
		Existing:  existing,
		Now:       now,
	}), nil
}

func (s *Scanner) prepare(ctx context.Context, symbol string, tf model.Timeframe, now time.Time, confirm bool) (*model.Series, error) {
	start := now.Add(-time.Duration(s.cfg.Lookback) * tf.Duration())
	candles, err := s.source.Candles(ctx, symbol, tf, start, now)
	if err != nil {
		return nil, err
	}
	return indicator.Prepare(symbol, tf, candles, s.indicators, confirm)
}

func (s *Scanner) resolve(symbol string) string {
	if mapped, ok := s.cfg.Aliases[symbol]; ok {
		return mapped
	}
	return symbol
}
