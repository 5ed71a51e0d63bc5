package indicator

import (
	"math"

	"cryptosignals/internal/model"
)

// ATR calculates the Average True Range with Wilder's smoothing.
type ATR struct {
	period    int
	count     int
	prevClose float64
	sum       float64
	current   float64
}

// NewATR creates an ATR with the given period (typically 14).
func NewATR(period int) *ATR {
	return &ATR{period: period}
}

func (a *ATR) Update(c model.Candle) {
	a.count++

	if a.count == 1 {
		// No previous close yet; true range degenerates to high-low.
		a.prevClose = c.Close
		a.sum = c.High - c.Low
		return
	}

	tr := math.Max(c.High-c.Low, math.Max(
		math.Abs(c.High-a.prevClose),
		math.Abs(c.Low-a.prevClose),
	))
	a.prevClose = c.Close

	if a.count <= a.period {
		a.sum += tr
		if a.count == a.period {
			a.current = a.sum / float64(a.period)
		}
		return
	}

	p := float64(a.period)
	a.current = (a.current*(p-1) + tr) / p
}

func (a *ATR) Value() float64 { return a.current }
func (a *ATR) Ready() bool    { return a.count >= a.period }
