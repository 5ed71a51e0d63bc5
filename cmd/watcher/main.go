// Command watcher streams live ticker prices for symbols with active
// signals and sends early target/stop alerts.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"cryptosignals/config"
	"cryptosignals/internal/notify"
	"cryptosignals/internal/store"
	"cryptosignals/internal/stream"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fallback := zerolog.New(os.Stderr)
		fallback.Fatal().Err(err).Msg("config")
	}

	lvl, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var notifier notify.Notifier = notify.NewLogNotifier(log)
	if cfg.Telegram.Enabled {
		notifier = notify.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
	}

	st := store.NewFileStore(cfg.Store.Path)
	w := stream.New(cfg.KuCoinBaseURL, st, notifier, log)

	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("watcher stopped")
	}
	log.Info().Msg("watcher shut down")
}
