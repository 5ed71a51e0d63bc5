package model

import "time"

// Timeframe identifies a KuCoin kline granularity.
type Timeframe string

const (
	TF30Min Timeframe = "30min"
	TF1Hour Timeframe = "1hour"
)

// Duration returns the bucket length of the timeframe.
func (tf Timeframe) Duration() time.Duration {
	switch tf {
	case TF1Hour:
		return time.Hour
	default:
		return 30 * time.Minute
	}
}

// Candle is one OHLCV bucket for a (symbol, timeframe) pair.
// Immutable once fetched; TS is the bucket start time in UTC.
type Candle struct {
	TS     time.Time `json:"ts"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Trend is a per-candle trend label.
type Trend string

const (
	TrendUp      Trend = "up"
	TrendDown    Trend = "down"
	TrendNeutral Trend = "neutral"
)

// Row holds a candle plus every derived column for its index in a Series.
// Invariant: all values at index i are computed from candles at indices <= i.
type Row struct {
	Candle

	RSI       float64
	EMAShort  float64
	EMAMedium float64
	EMALong   float64

	MACD       float64
	MACDSignal float64
	MACDDiff   float64

	BBUpper  float64
	BBMiddle float64
	BBLower  float64

	ATR float64

	VolumeChange float64 // fractional change vs previous candle
	PriceChange  float64 // fractional close-over-close change

	Resistance float64 // rolling max high
	Support    float64 // rolling min low

	Trend          Trend
	TrendConfirmed Trend
}

// Series is an ascending-by-timestamp candle sequence for one symbol and
// timeframe, with derived columns attached by the indicator pipeline.
type Series struct {
	Symbol    string
	Timeframe Timeframe
	Rows      []Row
}

// Len returns the number of rows.
func (s *Series) Len() int { return len(s.Rows) }

// Last returns the most recent row. Callers must check Len() >= 1 first.
func (s *Series) Last() Row { return s.Rows[len(s.Rows)-1] }

// Prev returns the second most recent row. Callers must check Len() >= 2 first.
func (s *Series) Prev() Row { return s.Rows[len(s.Rows)-2] }
