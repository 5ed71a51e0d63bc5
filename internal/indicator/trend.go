package indicator

import "cryptosignals/internal/model"

// Consistency collapses a window of per-candle trends into one label:
// up or down when every value agrees, neutral otherwise. A single
// dissenting candle resets the window to neutral.
func Consistency(trends []model.Trend) model.Trend {
	if len(trends) == 0 {
		return model.TrendNeutral
	}
	first := trends[0]
	if first != model.TrendUp && first != model.TrendDown {
		return model.TrendNeutral
	}
	for _, t := range trends[1:] {
		if t != first {
			return model.TrendNeutral
		}
	}
	return first
}

// ConfirmTrend maps a raw trend sequence to its confirmed form: index i
// holds the consistency of the window [i-window+1, i], and indices before
// the first full window are neutral.
func ConfirmTrend(trends []model.Trend, window int) []model.Trend {
	confirmed := make([]model.Trend, len(trends))
	for i := range trends {
		if i < window-1 {
			confirmed[i] = model.TrendNeutral
			continue
		}
		confirmed[i] = Consistency(trends[i-window+1 : i+1])
	}
	return confirmed
}

func applyTrendConfirmation(rows []model.Row, window int) {
	trends := make([]model.Trend, len(rows))
	for i := range rows {
		trends[i] = rows[i].Trend
	}
	for i, t := range ConfirmTrend(trends, window) {
		rows[i].TrendConfirmed = t
	}
}
