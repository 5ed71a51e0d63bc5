// Package retry provides a small bounded-retry policy with exponential
// backoff, decoupled from the calls it wraps.
package retry

import (
	"context"
	"time"
)

// Policy describes how often and how patiently an external call is retried.
type Policy struct {
	MaxAttempts int           // total attempts, including the first
	BaseDelay   time.Duration // delay before the second attempt; doubles per retry
}

// DefaultPolicy mirrors the provider contract: up to 3 attempts with a
// doubling backoff.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 3, BaseDelay: time.Second}
}

// Do runs fn until it succeeds, attempts are exhausted, or ctx is done.
// The last error is returned on exhaustion.
func (p Policy) Do(ctx context.Context, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	delay := p.BaseDelay
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return err
}
