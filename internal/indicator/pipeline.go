// Package indicator derives per-candle technical features from raw candle
// series: RSI, EMAs, MACD, Bollinger bands, ATR, rolling support/resistance
// and trend labels. Every derived value at index i depends only on candles
// at indices <= i.
package indicator

import (
	"errors"
	"fmt"

	"cryptosignals/internal/model"
)

// ErrInsufficientData is returned when a series is shorter than the trend
// confirmation window. Callers skip the symbol for the pass.
var ErrInsufficientData = errors.New("insufficient candle data")

// Config holds every indicator window used by the pipeline.
type Config struct {
	RSIPeriod  int     `yaml:"rsi_period" validate:"gt=1"`
	EMAShort   int     `yaml:"ema_short" validate:"gt=0"`
	EMAMedium  int     `yaml:"ema_medium" validate:"gt=0"`
	EMALong    int     `yaml:"ema_long" validate:"gt=0"`
	MACDFast   int     `yaml:"macd_fast" validate:"gt=0"`
	MACDSlow   int     `yaml:"macd_slow" validate:"gt=0"`
	MACDSignal int     `yaml:"macd_signal" validate:"gt=0"`
	BBPeriod   int     `yaml:"bb_period" validate:"gt=1"`
	BBStdDev   float64 `yaml:"bb_std" validate:"gt=0"`
	ATRPeriod  int     `yaml:"atr_period" validate:"gt=0"`
	// SRWindow is the lookback for rolling resistance (max high) and
	// support (min low).
	SRWindow int `yaml:"sr_window" validate:"gt=0"`
	// TrendWindow is the number of consecutive candles that must agree
	// unanimously before a trend is confirmed.
	TrendWindow int `yaml:"trend_confirmation_window" validate:"gt=0"`
}

// DefaultConfig returns the canonical scalping windows.
func DefaultConfig() Config {
	return Config{
		RSIPeriod:   14,
		EMAShort:    8,
		EMAMedium:   21,
		EMALong:     50,
		MACDFast:    12,
		MACDSlow:    26,
		MACDSignal:  9,
		BBPeriod:    20,
		BBStdDev:    2.0,
		ATRPeriod:   14,
		SRWindow:    10,
		TrendWindow: 10,
	}
}

// Prepare runs the full pipeline over an ascending candle sequence and
// returns a Series with every derived column attached.
//
// confirmTrend selects how the trend_confirmed column is produced: the
// unanimity window for the primary timeframe, or the raw per-candle trend
// for a lower-frequency context timeframe.
func Prepare(symbol string, tf model.Timeframe, candles []model.Candle, cfg Config, confirmTrend bool) (*model.Series, error) {
	if len(candles) < cfg.TrendWindow {
		return nil, fmt.Errorf("%w: %s %s has %d candles, need %d",
			ErrInsufficientData, symbol, tf, len(candles), cfg.TrendWindow)
	}

	rsi := NewRSI(cfg.RSIPeriod)
	emaShort := NewEMA(cfg.EMAShort)
	emaMedium := NewEMA(cfg.EMAMedium)
	emaLong := NewEMA(cfg.EMALong)
	macd := NewMACD(cfg.MACDFast, cfg.MACDSlow, cfg.MACDSignal)
	bb := NewBollinger(cfg.BBPeriod, cfg.BBStdDev)
	atr := NewATR(cfg.ATRPeriod)
	resistance := newRollingMax(cfg.SRWindow)
	support := newRollingMin(cfg.SRWindow)

	rows := make([]model.Row, len(candles))
	for i, c := range candles {
		rsi.Update(c.Close)
		emaShort.Update(c.Close)
		emaMedium.Update(c.Close)
		emaLong.Update(c.Close)
		macd.Update(c.Close)
		bb.Update(c.Close)
		atr.Update(c)
		resistance.Update(c.High)
		support.Update(c.Low)

		row := model.Row{Candle: c}
		row.RSI = rsi.Value()
		row.EMAShort = emaShort.Value()
		row.EMAMedium = emaMedium.Value()
		row.EMALong = emaLong.Value()
		row.MACD = macd.Line()
		row.MACDSignal = macd.Signal()
		row.MACDDiff = macd.Diff()
		row.BBUpper, row.BBMiddle, row.BBLower = bb.Bands()
		row.ATR = atr.Value()
		row.Resistance = resistance.Value()
		row.Support = support.Value()

		if i > 0 {
			prev := candles[i-1]
			if prev.Volume != 0 {
				row.VolumeChange = (c.Volume - prev.Volume) / prev.Volume
			}
			if prev.Close != 0 {
				row.PriceChange = (c.Close - prev.Close) / prev.Close
			}
		}

		if emaShort.Value() > emaLong.Value() {
			row.Trend = model.TrendUp
		} else {
			row.Trend = model.TrendDown
		}
		rows[i] = row
	}

	if confirmTrend {
		applyTrendConfirmation(rows, cfg.TrendWindow)
	} else {
		for i := range rows {
			rows[i].TrendConfirmed = rows[i].Trend
		}
	}

	return &model.Series{Symbol: symbol, Timeframe: tf, Rows: rows}, nil
}
