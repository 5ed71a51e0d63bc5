package model

import (
	"fmt"
	"strings"
	"time"
)

// Direction is the side of a trade signal.
type Direction string

const (
	DirectionBuy  Direction = "buy"
	DirectionSell Direction = "sell"
)

// Status is the lifecycle state of a signal.
type Status string

const (
	StatusActive        Status = "active"
	StatusTargetReached Status = "target_reached"
	StatusStopLoss      Status = "stop_loss"
)

// Terminal reports whether the status is a final state.
func (s Status) Terminal() bool {
	return s == StatusTargetReached || s == StatusStopLoss
}

// legacyTimeLayout is the bare timestamp format older store files used.
const legacyTimeLayout = "2006-01-02 15:04:05"

// FlexTime is a timestamp that unmarshals from either RFC3339 or the legacy
// bare "YYYY-MM-DD HH:MM:SS" layout, and always marshals as RFC3339 UTC.
type FlexTime struct {
	time.Time
}

// NewFlexTime wraps t, truncated to seconds in UTC.
func NewFlexTime(t time.Time) FlexTime {
	return FlexTime{t.UTC().Truncate(time.Second)}
}

func (t FlexTime) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.UTC().Format(time.RFC3339) + `"`), nil
}

func (t *FlexTime) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		t.Time = time.Time{}
		return nil
	}
	if parsed, err := time.Parse(time.RFC3339, s); err == nil {
		t.Time = parsed.UTC()
		return nil
	}
	// Legacy records carry no zone; treat them as UTC.
	parsed, err := time.Parse(legacyTimeLayout, s)
	if err != nil {
		return fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	t.Time = parsed.UTC()
	return nil
}

// Signal is an append-only audit record of one emitted trade signal.
// After creation only Status, ClosedAt and ClosedPrice may change, exactly
// once, on the active -> terminal transition driven by the tracker.
type Signal struct {
	Symbol      string    `json:"symbol"`
	Direction   Direction `json:"direction"`
	EntryPrice  float64   `json:"entry_price"`
	TargetPrice float64   `json:"target_price"`
	StopLoss    float64   `json:"stop_loss"`
	Score       int       `json:"score"`
	RiskReward  float64   `json:"risk_reward_ratio"`
	Reasons     []string  `json:"reasons"`
	Status      Status    `json:"status"`
	CreatedAt   FlexTime  `json:"created_at"`
	ClosedAt    *FlexTime `json:"closed_at,omitempty"`
	ClosedPrice *float64  `json:"closed_price,omitempty"`
}

// Close transitions the signal into a terminal state. It is a no-op if the
// signal is already terminal.
func (s *Signal) Close(status Status, price float64, at time.Time) {
	if s.Status.Terminal() {
		return
	}
	s.Status = status
	ts := NewFlexTime(at)
	s.ClosedAt = &ts
	s.ClosedPrice = &price
}

// ProfitLossPercent returns the fractional gain in percent against the entry
// price, using closedOrCurrent as the exit price.
func (s *Signal) ProfitLossPercent(closedOrCurrent float64) float64 {
	if s.EntryPrice == 0 {
		return 0
	}
	if s.Direction == DirectionSell {
		return (s.EntryPrice - closedOrCurrent) / s.EntryPrice * 100
	}
	return (closedOrCurrent - s.EntryPrice) / s.EntryPrice * 100
}
