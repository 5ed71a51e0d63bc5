package store

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// ErrLocked is returned when the store lock cannot be acquired before the
// acquisition timeout.
var ErrLocked = errors.New("store is locked by another process")

const (
	lockAcquireTimeout = 30 * time.Second
	lockPollInterval   = 100 * time.Millisecond
	// A lock older than this belongs to a crashed run and is taken over.
	lockStaleAfter = 5 * time.Minute
	// A held lock is touched at this cadence so a slow pass (candle
	// fetches with retries happen under the lock) is never mistaken for
	// a crashed one and stolen mid-cycle.
	lockRefreshInterval = time.Minute
)

// fileLock is a sidecar lock file created with O_EXCL, giving mutual
// exclusion between overlapping process invocations on one host.
type fileLock struct {
	path string
	stop chan struct{}
}

func newFileLock(path string) *fileLock {
	return &fileLock{path: path}
}

func (l *fileLock) acquire() error {
	deadline := time.Now().Add(lockAcquireTimeout)
	for {
		f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			_, _ = f.WriteString(strconv.Itoa(os.Getpid()) + "\n")
			if err := f.Close(); err != nil {
				return err
			}
			l.stop = make(chan struct{})
			go l.keepFresh(l.stop)
			return nil
		}
		if !errors.Is(err, os.ErrExist) {
			return fmt.Errorf("store: create lock %s: %w", l.path, err)
		}

		if info, statErr := os.Stat(l.path); statErr == nil && time.Since(info.ModTime()) > lockStaleAfter {
			_ = os.Remove(l.path)
			continue
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("%w: %s", ErrLocked, l.path)
		}
		time.Sleep(lockPollInterval)
	}
}

func (l *fileLock) keepFresh(stop <-chan struct{}) {
	ticker := time.NewTicker(lockRefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			l.touch()
		}
	}
}

func (l *fileLock) touch() {
	now := time.Now()
	_ = os.Chtimes(l.path, now, now)
}

func (l *fileLock) release() {
	if l.stop != nil {
		close(l.stop)
		l.stop = nil
	}
	_ = os.Remove(l.path)
}
