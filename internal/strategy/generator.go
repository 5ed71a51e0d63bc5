// Package strategy evaluates prepared candle series against the factor
// battery and emits trade signals when every gate passes.
package strategy

import (
	"fmt"
	"time"

	"cryptosignals/internal/model"
	"cryptosignals/internal/scoring"
	"cryptosignals/internal/store"
)

// Settings are the generation thresholds. Immutable once the generator is
// constructed.
type Settings struct {
	RSIOverbought float64 `yaml:"rsi_overbought" validate:"gt=0,lte=100"`
	RSIOversold   float64 `yaml:"rsi_oversold" validate:"gte=0,lt=100"`

	// MinVolumeThreshold is the 24h quote-volume floor below which a
	// symbol is not evaluated at all.
	MinVolumeThreshold    float64 `yaml:"min_volume_threshold" validate:"gte=0"`
	VolumeChangeThreshold float64 `yaml:"volume_change_threshold" validate:"gte=0"`
	// PriceActionThreshold is the fractional close-over-close move that
	// counts as a strong directional candle (0.005 = 0.5%).
	PriceActionThreshold float64 `yaml:"price_action_threshold" validate:"gt=0"`

	MinReasons        int `yaml:"min_reasons" validate:"gte=1"`
	MinScoreThreshold int `yaml:"min_score_threshold" validate:"gte=0,lte=100"`

	// RiskMode selects how target and stop are derived: "atr" uses the
	// multipliers against current ATR, "percent" uses fixed percentages
	// of the entry price. The two are never mixed.
	RiskMode               string  `yaml:"risk_mode" validate:"oneof=atr percent"`
	ProfitTargetMultiplier float64 `yaml:"profit_target_multiplier" validate:"gt=0"`
	StopLossMultiplier     float64 `yaml:"stop_loss_multiplier" validate:"gt=0"`
	ProfitTargetPercent    float64 `yaml:"profit_target_percent" validate:"gte=0"`
	StopLossPercent        float64 `yaml:"stop_loss_percent" validate:"gte=0"`
	MinRiskReward          float64 `yaml:"min_risk_reward_ratio" validate:"gte=0"`

	CooldownMinutes     int `yaml:"signal_cooldown_minutes" validate:"gte=0"`
	MaxSignalsPerSymbol int `yaml:"max_signals_per_symbol" validate:"gte=1"`

	// HigherTFAllowNeutral lets a neutral higher-timeframe trend pass the
	// agreement gate instead of requiring strict up/down alignment.
	HigherTFAllowNeutral bool `yaml:"higher_tf_allow_neutral"`
}

// DefaultSettings mirrors the canonical scalping configuration.
func DefaultSettings() Settings {
	return Settings{
		RSIOverbought:          70,
		RSIOversold:            30,
		MinVolumeThreshold:     500_000,
		VolumeChangeThreshold:  1.5,
		PriceActionThreshold:   0.005,
		MinReasons:             2,
		MinScoreThreshold:      75,
		RiskMode:               "atr",
		ProfitTargetMultiplier: 2.0,
		StopLossMultiplier:     1.5,
		ProfitTargetPercent:    1.0,
		StopLossPercent:        0.5,
		MinRiskReward:          1.3,
		CooldownMinutes:        15,
		MaxSignalsPerSymbol:    1,
	}
}

// Generator performs the per-symbol, per-direction evaluation.
type Generator struct {
	settings Settings
	scorer   *scoring.Engine
}

// NewGenerator creates a generator with immutable settings and scorer.
func NewGenerator(settings Settings, scorer *scoring.Engine) *Generator {
	return &Generator{settings: settings, scorer: scorer}
}

// Input bundles everything one evaluation needs.
type Input struct {
	Symbol    string
	Primary   *model.Series // prepared primary-timeframe series
	Higher    *model.Series // prepared higher-timeframe series
	DayVolume float64       // 24h traded quote volume
	Existing  []model.Signal
	Now       time.Time
}

// Evaluate runs all gates for both directions and returns zero, one or two
// signals (at most one per direction).
func (g *Generator) Evaluate(in Input) []model.Signal {
	if in.Primary == nil || in.Higher == nil || in.Primary.Len() < 2 || in.Higher.Len() < 1 {
		return nil
	}

	// Gate 1: volume floor.
	if in.DayVolume < g.settings.MinVolumeThreshold {
		return nil
	}

	// Gate 2: cooldown / dedup against the current store contents.
	if g.onCooldown(in) {
		return nil
	}

	var out []model.Signal
	for _, dir := range []model.Direction{model.DirectionBuy, model.DirectionSell} {
		if sig, ok := g.evaluateDirection(in, dir); ok {
			out = append(out, sig)
		}
	}
	return out
}

func (g *Generator) onCooldown(in Input) bool {
	latest := store.LatestActive(in.Existing, in.Symbol)
	if latest == nil {
		return false
	}
	cooldown := time.Duration(g.settings.CooldownMinutes) * time.Minute
	if in.Now.Sub(latest.CreatedAt.Time) < cooldown {
		return true
	}
	return store.ActiveCount(in.Existing, in.Symbol) >= g.settings.MaxSignalsPerSymbol
}

func (g *Generator) evaluateDirection(in Input, dir model.Direction) (model.Signal, bool) {
	latest := in.Primary.Last()
	higherTrend := in.Higher.Last().TrendConfirmed

	factors, reasons := g.collectFactors(in.Primary, higherTrend, dir)

	// Gate 4: enough independent reasons, the primary confirmed trend must
	// itself agree, and the higher timeframe must not contradict.
	if len(reasons) < g.settings.MinReasons {
		return model.Signal{}, false
	}
	if latest.TrendConfirmed != trendFor(dir) {
		return model.Signal{}, false
	}
	if !g.higherAgrees(higherTrend, dir) {
		return model.Signal{}, false
	}

	// Gate 5: score threshold.
	score := g.scorer.Score(factors, latest.ATR, latest.Close)
	if score < g.settings.MinScoreThreshold {
		return model.Signal{}, false
	}

	// Gate 6: target and stop.
	entry := latest.Close
	target, stop := g.targetStop(entry, latest.ATR, dir)

	// Gate 7: risk/reward.
	risk := entry - stop
	reward := target - entry
	if dir == model.DirectionSell {
		risk, reward = -risk, -reward
	}
	if risk <= 0 {
		return model.Signal{}, false
	}
	rr := reward / risk
	if rr < g.settings.MinRiskReward {
		return model.Signal{}, false
	}

	return model.Signal{
		Symbol:      in.Symbol,
		Direction:   dir,
		EntryPrice:  entry,
		TargetPrice: target,
		StopLoss:    stop,
		Score:       score,
		RiskReward:  rr,
		Reasons:     reasons,
		Status:      model.StatusActive,
		CreatedAt:   model.NewFlexTime(in.Now),
	}, true
}

// collectFactors evaluates the factor battery on the latest two candles and
// returns the triggered factor set with one human-readable reason apiece.
func (g *Generator) collectFactors(primary *model.Series, higherTrend model.Trend, dir model.Direction) (map[scoring.Factor]bool, []string) {
	latest, prev := primary.Last(), primary.Prev()
	factors := make(map[scoring.Factor]bool)
	var reasons []string
	add := func(f scoring.Factor, reason string) {
		factors[f] = true
		reasons = append(reasons, reason)
	}

	if dir == model.DirectionBuy {
		if latest.RSI < g.settings.RSIOversold && prev.RSI < latest.RSI {
			add(scoring.FactorRSI, fmt.Sprintf("RSI oversold (%.2f) and improving", latest.RSI))
		}
		if prev.EMAShort <= prev.EMAMedium && latest.EMAShort > latest.EMAMedium {
			add(scoring.FactorEMA, "Short EMA crossed above medium EMA")
		}
		if prev.MACD <= prev.MACDSignal && latest.MACD > latest.MACDSignal {
			add(scoring.FactorMACD, "MACD crossed above signal line")
		}
		if latest.Close <= latest.BBLower*1.01 {
			add(scoring.FactorBB, "Price at or below lower Bollinger band")
		}
		if latest.VolumeChange > g.settings.VolumeChangeThreshold {
			add(scoring.FactorVolume, fmt.Sprintf("Volume surge (+%.0f%%)", latest.VolumeChange*100))
		}
		if latest.Support > 0 && latest.Close <= latest.Support*1.01 {
			add(scoring.FactorSupport, fmt.Sprintf("Price at support (%.4f)", latest.Support))
		}
		if latest.PriceChange > g.settings.PriceActionThreshold && latest.Close > latest.Open {
			add(scoring.FactorPriceAction, fmt.Sprintf("Strong bullish candle (+%.2f%%)", latest.PriceChange*100))
		}
		if higherTrend == model.TrendUp {
			add(scoring.FactorHigherTF, "Higher timeframe trend is up")
		}
		return factors, reasons
	}

	if latest.RSI > g.settings.RSIOverbought && prev.RSI > latest.RSI {
		add(scoring.FactorRSI, fmt.Sprintf("RSI overbought (%.2f) and declining", latest.RSI))
	}
	if prev.EMAShort >= prev.EMAMedium && latest.EMAShort < latest.EMAMedium {
		add(scoring.FactorEMA, "Short EMA crossed below medium EMA")
	}
	if prev.MACD >= prev.MACDSignal && latest.MACD < latest.MACDSignal {
		add(scoring.FactorMACD, "MACD crossed below signal line")
	}
	if latest.BBUpper > 0 && latest.Close >= latest.BBUpper*0.99 {
		add(scoring.FactorBB, "Price at or above upper Bollinger band")
	}
	if latest.VolumeChange > g.settings.VolumeChangeThreshold {
		add(scoring.FactorVolume, fmt.Sprintf("Volume surge (+%.0f%%)", latest.VolumeChange*100))
	}
	if latest.Resistance > 0 && latest.Close >= latest.Resistance*0.99 {
		add(scoring.FactorResistance, fmt.Sprintf("Price at resistance (%.4f)", latest.Resistance))
	}
	if latest.PriceChange < -g.settings.PriceActionThreshold && latest.Close < latest.Open {
		add(scoring.FactorPriceAction, fmt.Sprintf("Strong bearish candle (%.2f%%)", latest.PriceChange*100))
	}
	if higherTrend == model.TrendDown {
		add(scoring.FactorHigherTF, "Higher timeframe trend is down")
	}
	return factors, reasons
}

func (g *Generator) higherAgrees(higherTrend model.Trend, dir model.Direction) bool {
	if higherTrend == trendFor(dir) {
		return true
	}
	return g.settings.HigherTFAllowNeutral && higherTrend == model.TrendNeutral
}

func (g *Generator) targetStop(entry, atr float64, dir model.Direction) (target, stop float64) {
	var up, down float64
	if g.settings.RiskMode == "percent" {
		up = entry * g.settings.ProfitTargetPercent / 100
		down = entry * g.settings.StopLossPercent / 100
		if dir == model.DirectionSell {
			up = entry * g.settings.StopLossPercent / 100
			down = entry * g.settings.ProfitTargetPercent / 100
		}
	} else {
		up = g.settings.ProfitTargetMultiplier * atr
		down = g.settings.StopLossMultiplier * atr
		if dir == model.DirectionSell {
			up = g.settings.StopLossMultiplier * atr
			down = g.settings.ProfitTargetMultiplier * atr
		}
	}
	if dir == model.DirectionSell {
		return entry - down, entry + up
	}
	return entry + up, entry - down
}

func trendFor(dir model.Direction) model.Trend {
	if dir == model.DirectionSell {
		return model.TrendDown
	}
	return model.TrendUp
}
