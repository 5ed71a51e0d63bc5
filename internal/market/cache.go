package market

import (
	"context"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"cryptosignals/internal/model"
)

// QuoteCache decorates a Source with short-lived redis caching of ticker
// quotes. Candle fetches pass through untouched; their windows differ per
// call and the scan already spaces requests out.
//
// The cache is best effort: redis failures fall back to the inner source.
type QuoteCache struct {
	inner     Source
	rdb       *redis.Client
	ttl       time.Duration
	namespace string
}

// NewQuoteCache creates a caching decorator. A zero ttl defaults to one
// minute.
func NewQuoteCache(rdb *redis.Client, ttl time.Duration, inner Source) *QuoteCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &QuoteCache{inner: inner, rdb: rdb, ttl: ttl, namespace: "quotes"}
}

func (c *QuoteCache) Candles(ctx context.Context, symbol string, tf model.Timeframe, start, end time.Time) ([]model.Candle, error) {
	return c.inner.Candles(ctx, symbol, tf, start, end)
}

func (c *QuoteCache) DayVolume(ctx context.Context, symbol string) (float64, error) {
	return c.cachedFloat(ctx, c.namespace+":vol24h:"+symbol, func() (float64, error) {
		return c.inner.DayVolume(ctx, symbol)
	})
}

func (c *QuoteCache) TickerPrice(ctx context.Context, symbol string) (float64, error) {
	return c.cachedFloat(ctx, c.namespace+":price:"+symbol, func() (float64, error) {
		return c.inner.TickerPrice(ctx, symbol)
	})
}

func (c *QuoteCache) cachedFloat(ctx context.Context, key string, fetch func() (float64, error)) (float64, error) {
	if c.rdb == nil {
		return fetch()
	}

	if s, err := c.rdb.Get(ctx, key).Result(); err == nil {
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			return v, nil
		}
		// Corrupted entry: drop it and refetch.
		_ = c.rdb.Del(ctx, key).Err()
	}

	v, err := fetch()
	if err != nil {
		return 0, err
	}
	_ = c.rdb.Set(ctx, key, strconv.FormatFloat(v, 'f', -1, 64), c.ttl).Err()
	return v, nil
}
