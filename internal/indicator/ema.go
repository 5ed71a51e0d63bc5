package indicator

// EMA calculates an Exponential Moving Average over closes.
// Seeded with an SMA of the first period values, then O(1) per update.
type EMA struct {
	period     int
	multiplier float64
	current    float64
	count      int
	sum        float64
}

// NewEMA creates an EMA with the given period.
func NewEMA(period int) *EMA {
	return &EMA{
		period:     period,
		multiplier: 2.0 / float64(period+1),
	}
}

func (e *EMA) Update(price float64) {
	e.count++

	if e.count <= e.period {
		// Accumulate for the initial SMA seed
		e.sum += price
		if e.count == e.period {
			e.current = e.sum / float64(e.period)
		}
		return
	}

	e.current = (price * e.multiplier) + (e.current * (1 - e.multiplier))
}

func (e *EMA) Value() float64 { return e.current }
func (e *EMA) Ready() bool    { return e.count >= e.period }
