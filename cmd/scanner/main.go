// Command scanner runs signal scan passes over the configured watchlist.
// One-shot by default for cron use; -interval keeps it running.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"cryptosignals/config"
	"cryptosignals/internal/kucoin"
	"cryptosignals/internal/market"
	"cryptosignals/internal/metrics"
	"cryptosignals/internal/notify"
	"cryptosignals/internal/retry"
	"cryptosignals/internal/scan"
	"cryptosignals/internal/scoring"
	"cryptosignals/internal/store"
	"cryptosignals/internal/strategy"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	interval := flag.Duration("interval", 0, "rescan interval; 0 runs a single pass")
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
		log.Info().Str("addr", cfg.MetricsAddr).Msg("metrics listening")
	}

	source := buildSource(cfg, log)
	st := store.NewFileStore(cfg.Store.Path)
	notifier := buildNotifier(cfg, log)

	scorer, err := scoring.NewEngine(cfg.Weights)
	if err != nil {
		notify.NotifyFailure(ctx, notifier, "scanner startup", err)
		log.Fatal().Err(err).Msg("scoring weights")
	}
	gen := strategy.NewGenerator(cfg.Strategy, scorer)

	scanner := scan.New(scan.Config{
		Symbols:            cfg.Symbols,
		Aliases:            cfg.Aliases,
		PrimaryTF:          cfg.PrimaryTimeframe,
		HigherTF:           cfg.HigherTimeframe,
		Lookback:           cfg.LookbackCandles,
		InterSymbolDelay:   cfg.InterSymbolDelay(),
		ConfirmHigherTF:    cfg.ConfirmHigherTimeframe,
		Cooldown:           time.Duration(cfg.Strategy.CooldownMinutes) * time.Minute,
		MaxActivePerSymbol: cfg.Strategy.MaxSignalsPerSymbol,
	}, cfg.Indicators, source, gen, st, notifier, log)

	for {
		summary, err := scanner.Run(ctx)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				notify.NotifyFailure(ctx, notifier, "scan pass", err)
			}
			if *interval <= 0 {
				log.Fatal().Err(err).Msg("scan pass failed")
			}
			log.Error().Err(err).Msg("scan pass failed")
		} else {
			log.Info().
				Int("scanned", summary.Scanned).
				Int("generated", summary.Generated).
				Int("skipped", summary.Skipped).
				Int("errors", summary.Errors).
				Dur("elapsed", summary.Elapsed).
				Msg("scan pass complete")
		}

		if *interval <= 0 {
			return
		}
		select {
		case <-time.After(*interval):
		case <-ctx.Done():
			return
		}
	}
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
}

func buildSource(cfg config.Config, log zerolog.Logger) market.Source {
	var source market.Source = kucoin.New(cfg.KuCoinBaseURL)
	source = market.NewRetrying(source, retry.DefaultPolicy(), log)
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
		})
		source = market.NewQuoteCache(rdb, cfg.CacheTTL(), source)
		log.Info().Str("addr", cfg.Redis.Addr).Msg("quote cache enabled")
	}
	return source
}

func buildNotifier(cfg config.Config, log zerolog.Logger) notify.Notifier {
	if cfg.Telegram.Enabled {
		return notify.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
	}
	return notify.NewLogNotifier(log)
}
