// Package kucoin implements the market.Source interface against the public
// KuCoin REST API. No authentication is required for any endpoint used.
package kucoin

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	json "github.com/goccy/go-json"

	"cryptosignals/internal/market"
	"cryptosignals/internal/model"
)

const (
	// DefaultBaseURL is the public KuCoin REST endpoint.
	DefaultBaseURL = "https://api.kucoin.com"

	klinePath  = "/api/v1/market/candles"
	statsPath  = "/api/v1/market/stats"
	tickerPath = "/api/v1/market/orderbook/level1"

	okCode = "200000"
)

// Client is a thin REST client for KuCoin public market data.
type Client struct {
	baseURL string
	client  *http.Client
}

var _ market.Source = (*Client)(nil)

// New creates a client. An empty baseURL selects the public endpoint.
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type envelope struct {
	Code string          `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// Candles fetches klines for [start, end]. KuCoin returns rows newest first
// as string tuples (time, open, close, high, low, volume, turnover); the
// result is reversed to ascending order.
func (c *Client) Candles(ctx context.Context, symbol string, tf model.Timeframe, start, end time.Time) ([]model.Candle, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("type", string(tf))
	q.Set("startAt", strconv.FormatInt(start.Unix(), 10))
	q.Set("endAt", strconv.FormatInt(end.Unix(), 10))

	var rows [][]string
	if err := c.get(ctx, klinePath, q, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("kucoin: empty kline payload for %s %s", symbol, tf)
	}

	candles := make([]model.Candle, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		candle, err := parseKline(rows[i])
		if err != nil {
			return nil, fmt.Errorf("kucoin: %s %s: %w", symbol, tf, err)
		}
		candles = append(candles, candle)
	}
	return candles, nil
}

// DayVolume returns the 24h traded quote volume (volValue) for the symbol.
func (c *Client) DayVolume(ctx context.Context, symbol string) (float64, error) {
	q := url.Values{}
	q.Set("symbol", symbol)

	var stats struct {
		VolValue string `json:"volValue"`
	}
	if err := c.get(ctx, statsPath, q, &stats); err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(stats.VolValue, 64)
	if err != nil {
		return 0, fmt.Errorf("kucoin: parse volValue %q: %w", stats.VolValue, err)
	}
	return v, nil
}

// TickerPrice returns the level-1 last trade price for the symbol.
func (c *Client) TickerPrice(ctx context.Context, symbol string) (float64, error) {
	q := url.Values{}
	q.Set("symbol", symbol)

	var ticker struct {
		Price string `json:"price"`
	}
	if err := c.get(ctx, tickerPath, q, &ticker); err != nil {
		return 0, err
	}
	if ticker.Price == "" {
		return 0, fmt.Errorf("kucoin: empty ticker for %s", symbol)
	}
	p, err := strconv.ParseFloat(ticker.Price, 64)
	if err != nil {
		return 0, fmt.Errorf("kucoin: parse price %q: %w", ticker.Price, err)
	}
	return p, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	u := fmt.Sprintf("%s%s?%s", c.baseURL, path, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("kucoin: create request: %w", err)
	}

	res, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("kucoin: %s: %w", path, err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 400 {
		return fmt.Errorf("kucoin: %s: http %d", path, res.StatusCode)
	}

	var env envelope
	if err := json.NewDecoder(res.Body).Decode(&env); err != nil {
		return fmt.Errorf("kucoin: decode %s: %w", path, err)
	}
	if env.Code != okCode {
		return fmt.Errorf("kucoin: %s: code %s %s", path, env.Code, env.Msg)
	}
	if len(env.Data) == 0 {
		return fmt.Errorf("kucoin: %s: missing data", path)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("kucoin: decode %s data: %w", path, err)
	}
	return nil
}

func parseKline(row []string) (model.Candle, error) {
	if len(row) < 6 {
		return model.Candle{}, fmt.Errorf("kline row has %d fields, want >= 6", len(row))
	}

	ts, err := strconv.ParseInt(row[0], 10, 64)
	if err != nil {
		return model.Candle{}, fmt.Errorf("parse kline time %q: %w", row[0], err)
	}

	fields := make([]float64, 5)
	for i, idx := range []int{1, 2, 3, 4, 5} { // open, close, high, low, volume
		v, err := strconv.ParseFloat(row[idx], 64)
		if err != nil {
			return model.Candle{}, fmt.Errorf("parse kline field %d %q: %w", idx, row[idx], err)
		}
		fields[i] = v
	}

	return model.Candle{
		TS:     time.Unix(ts, 0).UTC(),
		Open:   fields[0],
		Close:  fields[1],
		High:   fields[2],
		Low:    fields[3],
		Volume: fields[4],
	}, nil
}
