package notify

import (
	"fmt"
	"strings"
	"time"

	"cryptosignals/internal/model"
)

// FormatSignal renders a signal as the Telegram HTML alert body.
func FormatSignal(sig *model.Signal) string {
	arrow := "🟢 BUY"
	if sig.Direction == model.DirectionSell {
		arrow = "🔴 SELL"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s <b>%s</b>\n\n", arrow, sig.Symbol)
	fmt.Fprintf(&b, "Entry: <code>%.6g</code>\n", sig.EntryPrice)
	fmt.Fprintf(&b, "Target: <code>%.6g</code>\n", sig.TargetPrice)
	fmt.Fprintf(&b, "Stop: <code>%.6g</code>\n", sig.StopLoss)
	fmt.Fprintf(&b, "Score: <b>%d</b>  R/R: %.2f\n", sig.Score, sig.RiskReward)
	if len(sig.Reasons) > 0 {
		b.WriteString("\nReasons:\n")
		for _, r := range sig.Reasons {
			fmt.Fprintf(&b, "• %s\n", r)
		}
	}
	fmt.Fprintf(&b, "\n%s", sig.CreatedAt.UTC().Format(time.RFC3339))
	return b.String()
}

// FormatResolution renders the terminal-status update for a resolved signal.
func FormatResolution(sig *model.Signal) string {
	label := "🎯 Target reached"
	if sig.Status == model.StatusStopLoss {
		label = "🛑 Stop loss hit"
	}
	exit := sig.EntryPrice
	if sig.ClosedPrice != nil {
		exit = *sig.ClosedPrice
	}
	return fmt.Sprintf("%s: <b>%s</b> %s\nEntry %.6g → Exit %.6g (%+.2f%%)",
		label, sig.Symbol, strings.ToUpper(string(sig.Direction)),
		sig.EntryPrice, exit, sig.ProfitLossPercent(exit))
}

// ScanSummary is the per-run digest sent after a scan pass.
type ScanSummary struct {
	Scanned   int
	Skipped   int
	Generated int
	Errors    int
	Elapsed   time.Duration
}

// FormatScanSummary renders the digest message.
func FormatScanSummary(s ScanSummary) string {
	return fmt.Sprintf(
		"📊 Scan complete\nSymbols: %d (skipped %d)\nNew signals: %d\nErrors: %d\nElapsed: %s",
		s.Scanned, s.Skipped, s.Generated, s.Errors, s.Elapsed.Round(time.Second))
}
