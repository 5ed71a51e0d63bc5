// Package scoring turns the set of triggered signal factors into a bounded,
// volatility-adjusted score in [0,100].
package scoring

import (
	"fmt"
	"math"
)

// Factor is a closed enumeration of everything that can contribute to a
// signal score. Using typed constants keeps a misspelled factor from being
// silently scored as zero.
type Factor string

const (
	FactorRSI         Factor = "rsi"
	FactorEMA         Factor = "ema"
	FactorMACD        Factor = "macd"
	FactorBB          Factor = "bb"
	FactorVolume      Factor = "volume"
	FactorSupport     Factor = "support"
	FactorResistance  Factor = "resistance"
	FactorPriceAction Factor = "price_action"
	FactorHigherTF    Factor = "higher_tf"
)

// Weights maps each factor to its score contribution.
type Weights map[Factor]int

// DefaultWeights is the canonical table. It sums above 100 on purpose; the
// raw sum is capped at 100 before the volatility adjustment, so a signal
// does not need every factor to reach a full score.
func DefaultWeights() Weights {
	return Weights{
		FactorRSI:         25,
		FactorEMA:         20,
		FactorMACD:        20,
		FactorBB:          15,
		FactorVolume:      10,
		FactorSupport:     10,
		FactorResistance:  10,
		FactorPriceAction: 10,
		FactorHigherTF:    10,
	}
}

// Validate rejects negative weights and unknown factor names.
func (w Weights) Validate() error {
	for f, weight := range w {
		switch f {
		case FactorRSI, FactorEMA, FactorMACD, FactorBB, FactorVolume,
			FactorSupport, FactorResistance, FactorPriceAction, FactorHigherTF:
		default:
			return fmt.Errorf("unknown scoring factor %q", f)
		}
		if weight < 0 {
			return fmt.Errorf("negative weight %d for factor %q", weight, f)
		}
	}
	return nil
}

// Engine computes scores from an immutable weight table.
type Engine struct {
	weights Weights
}

// NewEngine creates a scoring engine. The weights are copied so later
// mutation of the caller's map cannot change scoring behaviour.
func NewEngine(weights Weights) (*Engine, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	copied := make(Weights, len(weights))
	for f, w := range weights {
		copied[f] = w
	}
	return &Engine{weights: copied}, nil
}

// Score sums the weights of the triggered factors, caps the raw sum at 100,
// applies the volatility factor and floors the result. Always in [0,100].
func (e *Engine) Score(factors map[Factor]bool, atr, currentPrice float64) int {
	raw := 0
	for f, triggered := range factors {
		if triggered {
			raw += e.weights[f]
		}
	}
	if raw > 100 {
		raw = 100
	}

	score := int(math.Floor(float64(raw) * VolatilityFactor(atr, currentPrice)))
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// VolatilityFactor dampens confidence as relative volatility grows:
// 1.0 at zero ATR, falling linearly with atr/price and floored at 0.6.
func VolatilityFactor(atr, currentPrice float64) float64 {
	if atr <= 0 || currentPrice <= 0 {
		return 1.0
	}
	f := 1.0 - 10.0*(atr/currentPrice)
	if f < 0.6 {
		return 0.6
	}
	if f > 1.0 {
		return 1.0
	}
	return f
}
