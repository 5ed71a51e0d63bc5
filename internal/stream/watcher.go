// Package stream watches live KuCoin ticker prices over websocket and sends
// early alerts when an active signal's target or stop level trades. The
// authoritative resolution still happens on closed candles.
package stream

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"cryptosignals/internal/model"
	"cryptosignals/internal/notify"
	"cryptosignals/internal/store"
)

const (
	bulletPath = "/api/v1/bullet-public"

	reconnectBase = time.Second
	reconnectMax  = time.Minute

	// signalRefreshInterval bounds how stale the watched signal set can be.
	signalRefreshInterval = time.Minute
)

// Watcher maintains one websocket subscription per run over all symbols
// carrying active signals.
type Watcher struct {
	restBase string
	client   *http.Client
	store    *store.FileStore
	notifier notify.Notifier
	log      zerolog.Logger

	mu      sync.Mutex
	active  []model.Signal
	alerted map[string]bool
}

// New creates a watcher. restBase selects the REST host used for the
// bullet-public handshake; empty selects the public endpoint.
func New(restBase string, st *store.FileStore, notifier notify.Notifier, log zerolog.Logger) *Watcher {
	if restBase == "" {
		restBase = "https://api.kucoin.com"
	}
	return &Watcher{
		restBase: restBase,
		client:   &http.Client{Timeout: 10 * time.Second},
		store:    st,
		notifier: notifier,
		log:      log.With().Str("component", "watcher").Logger(),
		alerted:  make(map[string]bool),
	}
}

// Run connects and watches until ctx is cancelled, reconnecting with
// exponential backoff on any failure.
func (w *Watcher) Run(ctx context.Context) error {
	backoff := reconnectBase
	for {
		err := w.runOnce(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		w.log.Warn().Err(err).Dur("backoff", backoff).Msg("stream dropped, reconnecting")

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff *= 2
		if backoff > reconnectMax {
			backoff = reconnectMax
		}
	}
}

func (w *Watcher) runOnce(ctx context.Context) error {
	if err := w.refreshSignals(); err != nil {
		return err
	}
	symbols := w.watchedSymbols()
	if len(symbols) == 0 {
		// Nothing to watch yet; poll the store instead of holding an
		// idle subscription.
		select {
		case <-time.After(signalRefreshInterval):
			return fmt.Errorf("no active signals")
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	endpoint, token, pingEvery, err := w.bullet(ctx)
	if err != nil {
		return err
	}

	wsURL := fmt.Sprintf("%s?token=%s&connectId=%d", endpoint, token, time.Now().UnixNano())
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("stream: dial: %w", err)
	}
	defer conn.Close()

	sub := map[string]any{
		"id":             strconv.FormatInt(time.Now().UnixNano(), 10),
		"type":           "subscribe",
		"topic":          "/market/ticker:" + strings.Join(symbols, ","),
		"privateChannel": false,
		"response":       true,
	}
	if err := conn.WriteJSON(sub); err != nil {
		return fmt.Errorf("stream: subscribe: %w", err)
	}
	w.log.Info().Strs("symbols", symbols).Msg("subscribed")

	done := make(chan struct{})
	defer close(done)
	go w.keepAlive(conn, pingEvery, done)

	refresh := time.NewTicker(signalRefreshInterval)
	defer refresh.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-refresh.C:
			if err := w.refreshSignals(); err != nil {
				w.log.Warn().Err(err).Msg("signal refresh failed")
			}
			// A changed symbol set needs a fresh subscription.
			if changed(symbols, w.watchedSymbols()) {
				return fmt.Errorf("watched symbol set changed")
			}
		default:
		}

		_ = conn.SetReadDeadline(time.Now().Add(pingEvery * 3))
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return fmt.Errorf("stream: read: %w", err)
		}
		if msg.Type != "message" || msg.Data.Price == "" {
			continue
		}

		symbol := strings.TrimPrefix(msg.Topic, "/market/ticker:")
		price, err := strconv.ParseFloat(msg.Data.Price, 64)
		if err != nil {
			w.log.Warn().Str("price", msg.Data.Price).Msg("unparseable tick")
			continue
		}
		w.checkLevels(ctx, symbol, price)
	}
}

func (w *Watcher) keepAlive(conn *websocket.Conn, every time.Duration, done <-chan struct{}) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			ping := map[string]any{
				"id":   strconv.FormatInt(time.Now().UnixNano(), 10),
				"type": "ping",
			}
			if err := conn.WriteJSON(ping); err != nil {
				return
			}
		}
	}
}

type wsMessage struct {
	Type  string `json:"type"`
	Topic string `json:"topic"`
	Data  struct {
		Price string `json:"price"`
	} `json:"data"`
}

// checkLevels sends at most one alert per signal and level.
func (w *Watcher) checkLevels(ctx context.Context, symbol string, price float64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for i := range w.active {
		sig := &w.active[i]
		if sig.Symbol != symbol {
			continue
		}

		var level string
		if sig.Direction == model.DirectionBuy {
			if price >= sig.TargetPrice {
				level = "target"
			} else if price <= sig.StopLoss {
				level = "stop"
			}
		} else {
			if price <= sig.TargetPrice {
				level = "target"
			} else if price >= sig.StopLoss {
				level = "stop"
			}
		}
		if level == "" {
			continue
		}

		key := fmt.Sprintf("%s|%s|%s", sig.Symbol, sig.CreatedAt.UTC().Format(time.RFC3339), level)
		if w.alerted[key] {
			continue
		}
		w.alerted[key] = true

		text := fmt.Sprintf("⚡ %s %s trading at %.6g, %s level %.6g touched (%+.2f%%)",
			sig.Symbol, strings.ToUpper(string(sig.Direction)), price, level,
			levelPrice(sig, level), sig.ProfitLossPercent(price))
		if err := w.notifier.Send(ctx, notify.Message{Text: text}); err != nil {
			w.log.Warn().Err(err).Str("symbol", symbol).Msg("alert failed")
		}
	}
}

func levelPrice(sig *model.Signal, level string) float64 {
	if level == "stop" {
		return sig.StopLoss
	}
	return sig.TargetPrice
}

func (w *Watcher) refreshSignals() error {
	signals, err := w.store.Load()
	if err != nil {
		return err
	}
	var active []model.Signal
	for i := range signals {
		if signals[i].Status == model.StatusActive {
			active = append(active, signals[i])
		}
	}

	w.mu.Lock()
	w.active = active
	w.mu.Unlock()
	return nil
}

func (w *Watcher) watchedSymbols() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	seen := make(map[string]bool)
	var symbols []string
	for i := range w.active {
		if !seen[w.active[i].Symbol] {
			seen[w.active[i].Symbol] = true
			symbols = append(symbols, w.active[i].Symbol)
		}
	}
	return symbols
}

func changed(a, b []string) bool {
	if len(a) != len(b) {
		return true
	}
	set := make(map[string]bool, len(a))
	for _, s := range a {
		set[s] = true
	}
	for _, s := range b {
		if !set[s] {
			return true
		}
	}
	return false
}

// bullet performs the public websocket handshake and returns the endpoint,
// connection token and server ping interval.
func (w *Watcher) bullet(ctx context.Context) (endpoint, token string, pingEvery time.Duration, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.restBase+bulletPath, nil)
	if err != nil {
		return "", "", 0, fmt.Errorf("stream: bullet request: %w", err)
	}
	res, err := w.client.Do(req)
	if err != nil {
		return "", "", 0, fmt.Errorf("stream: bullet: %w", err)
	}
	defer res.Body.Close()

	var payload struct {
		Code string `json:"code"`
		Data struct {
			Token           string `json:"token"`
			InstanceServers []struct {
				Endpoint     string `json:"endpoint"`
				PingInterval int64  `json:"pingInterval"` // milliseconds
			} `json:"instanceServers"`
		} `json:"data"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return "", "", 0, fmt.Errorf("stream: decode bullet: %w", err)
	}
	if payload.Code != "200000" || len(payload.Data.InstanceServers) == 0 {
		return "", "", 0, fmt.Errorf("stream: bullet rejected, code %s", payload.Code)
	}

	srv := payload.Data.InstanceServers[0]
	pingEvery = time.Duration(srv.PingInterval) * time.Millisecond
	if pingEvery <= 0 {
		pingEvery = 30 * time.Second
	}
	return srv.Endpoint, payload.Data.Token, pingEvery, nil
}
