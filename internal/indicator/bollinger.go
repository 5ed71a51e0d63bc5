package indicator

import "math"

// Bollinger tracks a simple moving average of closes plus bands at
// +/- stdDev multiples of the rolling population standard deviation.
type Bollinger struct {
	period int
	stdDev float64
	buf    []float64
	idx    int
	count  int
}

// NewBollinger creates Bollinger bands with the given period and standard
// deviation multiplier (typically 20 and 2.0).
func NewBollinger(period int, stdDev float64) *Bollinger {
	return &Bollinger{
		period: period,
		stdDev: stdDev,
		buf:    make([]float64, period),
	}
}

func (b *Bollinger) Update(price float64) {
	b.buf[b.idx] = price
	b.idx = (b.idx + 1) % b.period
	b.count++
}

func (b *Bollinger) Ready() bool { return b.count >= b.period }

// Bands returns (upper, middle, lower) for the current window.
func (b *Bollinger) Bands() (float64, float64, float64) {
	if !b.Ready() {
		return 0, 0, 0
	}
	var sum float64
	for _, v := range b.buf {
		sum += v
	}
	mean := sum / float64(b.period)

	var variance float64
	for _, v := range b.buf {
		d := v - mean
		variance += d * d
	}
	sd := math.Sqrt(variance / float64(b.period))

	return mean + b.stdDev*sd, mean, mean - b.stdDev*sd
}
