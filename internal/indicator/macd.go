package indicator

// MACD tracks the Moving Average Convergence Divergence line, its signal
// line and the histogram (line minus signal).
type MACD struct {
	fast   *EMA
	slow   *EMA
	signal *EMA
	line   float64
}

// NewMACD creates a MACD with the given fast/slow/signal periods
// (typically 12/26/9).
func NewMACD(fastPeriod, slowPeriod, signalPeriod int) *MACD {
	return &MACD{
		fast:   NewEMA(fastPeriod),
		slow:   NewEMA(slowPeriod),
		signal: NewEMA(signalPeriod),
	}
}

func (m *MACD) Update(price float64) {
	m.fast.Update(price)
	m.slow.Update(price)
	if !m.slow.Ready() {
		return
	}
	m.line = m.fast.Value() - m.slow.Value()
	m.signal.Update(m.line)
}

func (m *MACD) Line() float64   { return m.line }
func (m *MACD) Signal() float64 { return m.signal.Value() }
func (m *MACD) Diff() float64   { return m.line - m.signal.Value() }
func (m *MACD) Ready() bool     { return m.slow.Ready() && m.signal.Ready() }
