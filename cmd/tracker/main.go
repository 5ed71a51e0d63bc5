// Command tracker resolves active signals against candles observed since
// their creation and optionally renders the xlsx report.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"cryptosignals/config"
	"cryptosignals/internal/kucoin"
	"cryptosignals/internal/market"
	"cryptosignals/internal/metrics"
	"cryptosignals/internal/notify"
	"cryptosignals/internal/report"
	"cryptosignals/internal/retry"
	"cryptosignals/internal/store"
	"cryptosignals/internal/tracker"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	reportPath := flag.String("report", "", "write the xlsx report to this path after tracking")
	sendReport := flag.Bool("send-report", false, "send the report as a Telegram document")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fallback := zerolog.New(os.Stderr)
		fallback.Fatal().Err(err).Msg("config")
	}
	log := newLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if srv := metrics.Serve(cfg.MetricsAddr); srv != nil {
		defer srv.Close()
	}

	var source market.Source = kucoin.New(cfg.KuCoinBaseURL)
	source = market.NewRetrying(source, retry.DefaultPolicy(), log)
	st := store.NewFileStore(cfg.Store.Path)
	notifier := buildNotifier(cfg, log)

	var archive *store.Archive
	if cfg.Store.ArchivePath != "" {
		archive, err = store.NewArchive(cfg.Store.ArchivePath)
		if err != nil {
			notify.NotifyFailure(ctx, notifier, "signal archive open", err)
			log.Fatal().Err(err).Msg("archive")
		}
		defer archive.Close()
	}

	t := tracker.New(source, st, archive, cfg.PrimaryTimeframe, log)
	res, err := t.Run(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			notify.NotifyFailure(ctx, notifier, "tracking pass", err)
		}
		log.Fatal().Err(err).Msg("tracking pass failed")
	}
	log.Info().
		Int("checked", res.Checked).
		Int("target_reached", res.TargetReached).
		Int("stop_loss", res.StopLoss).
		Int("errors", res.Errors).
		Msg("tracking pass complete")

	notifyResolutions(ctx, st, notifier, res, log)

	if *reportPath != "" {
		writeReport(ctx, cfg, source, st, notifier, *reportPath, *sendReport, log)
	}
}

// notifyResolutions sends one message per signal that resolved in this pass.
// Resolved-this-pass is approximated by closed_at within the last timeframe
// bucket, which is safe because terminal signals are never re-closed.
func notifyResolutions(ctx context.Context, st *store.FileStore, notifier notify.Notifier, res tracker.Result, log zerolog.Logger) {
	if res.TargetReached+res.StopLoss == 0 {
		return
	}
	signals, err := st.Load()
	if err != nil {
		log.Warn().Err(err).Msg("reload for notification failed")
		return
	}
	cutoff := time.Now().Add(-time.Hour)
	for i := range signals {
		sig := &signals[i]
		if !sig.Status.Terminal() || sig.ClosedAt == nil || sig.ClosedAt.Before(cutoff) {
			continue
		}
		if err := notifier.Send(ctx, notify.Message{Text: notify.FormatResolution(sig)}); err != nil {
			log.Warn().Err(err).Str("symbol", sig.Symbol).Msg("resolution notify failed")
		}
	}
}

func writeReport(ctx context.Context, cfg config.Config, source market.Source, st *store.FileStore,
	notifier notify.Notifier, path string, send bool, log zerolog.Logger) {
	signals, err := st.Load()
	if err != nil {
		notify.NotifyFailure(ctx, notifier, "report data load", err)
		log.Fatal().Err(err).Msg("load for report")
	}
	if err := report.NewBuilder(source, log).Write(ctx, signals, path); err != nil {
		notify.NotifyFailure(ctx, notifier, "report generation", err)
		log.Fatal().Err(err).Msg("report")
	}
	log.Info().Str("path", path).Int("signals", len(signals)).Msg("report written")

	if !send {
		return
	}
	sender, ok := notifier.(notify.FileSender)
	if !ok {
		log.Warn().Msg("notifier cannot send files, report kept local")
		return
	}
	caption := fmt.Sprintf("Signal report %s", time.Now().UTC().Format("2006-01-02"))
	if err := sender.SendFile(ctx, path, caption); err != nil {
		log.Warn().Err(err).Msg("report send failed")
	}
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
}

func buildNotifier(cfg config.Config, log zerolog.Logger) notify.Notifier {
	if cfg.Telegram.Enabled {
		return notify.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
	}
	return notify.NewLogNotifier(log)
}
