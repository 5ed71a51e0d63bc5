// Package report renders the signal history as a styled xlsx workbook with
// three sheets: all signals, active signals with live profit/loss, and
// aggregate statistics.
package report

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"cryptosignals/internal/market"
	"cryptosignals/internal/model"
)

const (
	sheetAll    = "All Signals"
	sheetActive = "Active Signals"
	sheetStats  = "Statistics"

	maxColumnWidth = 50
)

// Builder renders workbooks. The market source is optional; without it the
// active sheet omits live prices.
type Builder struct {
	source market.Source
	log    zerolog.Logger
}

// NewBuilder creates a report builder.
func NewBuilder(source market.Source, log zerolog.Logger) *Builder {
	return &Builder{source: source, log: log.With().Str("component", "report").Logger()}
}

// Write renders the workbook for the given signals to path.
func (b *Builder) Write(ctx context.Context, signals []model.Signal, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"4472C4"}},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return fmt.Errorf("report: style: %w", err)
	}

	if err := b.writeAllSheet(f, signals, headerStyle); err != nil {
		return err
	}
	if err := b.writeActiveSheet(ctx, f, signals, headerStyle); err != nil {
		return err
	}
	if err := b.writeStatsSheet(f, signals, headerStyle); err != nil {
		return err
	}

	// excelize creates a default "Sheet1"; drop it once real sheets exist.
	f.DeleteSheet("Sheet1")
	idx, err := f.GetSheetIndex(sheetAll)
	if err == nil && idx >= 0 {
		f.SetActiveSheet(idx)
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("report: save %s: %w", path, err)
	}
	return nil
}

func (b *Builder) writeAllSheet(f *excelize.File, signals []model.Signal, headerStyle int) error {
	headers := []string{
		"Symbol", "Direction", "Entry", "Target", "Stop", "Score",
		"Risk/Reward", "Status", "Created", "Closed", "Closed Price", "P/L %", "Reasons",
	}
	rows := make([][]any, 0, len(signals))
	for i := range signals {
		sig := &signals[i]
		var closed, closedPrice, pl any
		if sig.ClosedAt != nil {
			closed = sig.ClosedAt.UTC().Format(time.RFC3339)
		}
		if sig.ClosedPrice != nil {
			closedPrice = *sig.ClosedPrice
			pl = round2(sig.ProfitLossPercent(*sig.ClosedPrice))
		}
		rows = append(rows, []any{
			sig.Symbol, string(sig.Direction), sig.EntryPrice, sig.TargetPrice,
			sig.StopLoss, sig.Score, round2(sig.RiskReward), string(sig.Status),
			sig.CreatedAt.UTC().Format(time.RFC3339), closed, closedPrice, pl,
			strings.Join(sig.Reasons, "; "),
		})
	}
	return writeSheet(f, sheetAll, headers, rows, headerStyle)
}

func (b *Builder) writeActiveSheet(ctx context.Context, f *excelize.File, signals []model.Signal, headerStyle int) error {
	headers := []string{
		"Symbol", "Direction", "Entry", "Target", "Stop", "Score",
		"Created", "Current Price", "Unrealized P/L %",
	}
	var rows [][]any
	for i := range signals {
		sig := &signals[i]
		if sig.Status != model.StatusActive {
			continue
		}
		var price, pl any
		if b.source != nil {
			p, err := b.source.TickerPrice(ctx, sig.Symbol)
			if err != nil {
				b.log.Warn().Err(err).Str("symbol", sig.Symbol).Msg("live price unavailable")
			} else {
				price = p
				pl = round2(sig.ProfitLossPercent(p))
			}
		}
		rows = append(rows, []any{
			sig.Symbol, string(sig.Direction), sig.EntryPrice, sig.TargetPrice,
			sig.StopLoss, sig.Score, sig.CreatedAt.UTC().Format(time.RFC3339),
			price, pl,
		})
	}
	return writeSheet(f, sheetActive, headers, rows, headerStyle)
}

func (b *Builder) writeStatsSheet(f *excelize.File, signals []model.Signal, headerStyle int) error {
	var active, won, lost int
	var plSum float64
	for i := range signals {
		sig := &signals[i]
		switch sig.Status {
		case model.StatusActive:
			active++
		case model.StatusTargetReached:
			won++
		case model.StatusStopLoss:
			lost++
		}
		if sig.ClosedPrice != nil {
			plSum += sig.ProfitLossPercent(*sig.ClosedPrice)
		}
	}

	resolved := won + lost
	winRate, avgPL := 0.0, 0.0
	if resolved > 0 {
		winRate = float64(won) / float64(resolved) * 100
		avgPL = plSum / float64(resolved)
	}

	rows := [][]any{
		{"Total signals", len(signals)},
		{"Active", active},
		{"Target reached", won},
		{"Stop loss", lost},
		{"Win rate %", round2(winRate)},
		{"Avg realized P/L %", round2(avgPL)},
		{"Generated at", time.Now().UTC().Format(time.RFC3339)},
	}
	return writeSheet(f, sheetStats, []string{"Metric", "Value"}, rows, headerStyle)
}

// writeSheet creates one sheet with a styled frozen header row and
// width-fitted columns.
func writeSheet(f *excelize.File, name string, headers []string, rows [][]any, headerStyle int) error {
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("report: sheet %s: %w", name, err)
	}

	widths := make([]int, len(headers))
	for col, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(name, cell, h); err != nil {
			return fmt.Errorf("report: %s header: %w", name, err)
		}
		widths[col] = len(h)
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	if err := f.SetCellStyle(name, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("report: %s header style: %w", name, err)
	}

	for r, row := range rows {
		for col, v := range row {
			cell, _ := excelize.CoordinatesToCellName(col+1, r+2)
			if err := f.SetCellValue(name, cell, v); err != nil {
				return fmt.Errorf("report: %s cell %s: %w", name, cell, err)
			}
			if col < len(widths) {
				if n := len(fmt.Sprint(v)); n > widths[col] {
					widths[col] = n
				}
			}
		}
	}

	for col := range headers {
		w := widths[col] + 2
		if w > maxColumnWidth {
			w = maxColumnWidth
		}
		colName, _ := excelize.ColumnNumberToName(col + 1)
		if err := f.SetColWidth(name, colName, colName, float64(w)); err != nil {
			return fmt.Errorf("report: %s width: %w", name, err)
		}
	}

	return f.SetPanes(name, &excelize.Panes{
		Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft",
	})
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
