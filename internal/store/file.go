// Package store persists the signal list as a JSON file guarded by a
// sidecar lock, plus a sqlite archive of resolved signals for reporting.
//
// The JSON file is the unit of consistency: every read-modify-write cycle
// holds the exclusive lock for the whole cycle, because separate process
// invocations (a scan run and a tracking run) may overlap.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	json "github.com/goccy/go-json"

	"cryptosignals/internal/model"
)

// FileStore is a signal repository backed by one JSON file.
type FileStore struct {
	path string
	lock *fileLock
}

// NewFileStore creates a store for the given path. Parent directories are
// created on first write.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, lock: newFileLock(path + ".lock")}
}

// Load reads the full signal list without taking the lock. Use it for
// read-only consumers such as the report; mutating callers must go through
// Update.
func (s *FileStore) Load() ([]model.Signal, error) {
	return s.read()
}

// Update runs fn inside an exclusive locked read-modify-write cycle.
// fn receives the current list and returns the list to persist.
func (s *FileStore) Update(fn func(signals []model.Signal) ([]model.Signal, error)) error {
	if err := s.lock.acquire(); err != nil {
		return err
	}
	defer s.lock.release()

	signals, err := s.read()
	if err != nil {
		return err
	}

	updated, err := fn(signals)
	if err != nil {
		return err
	}
	return s.write(updated)
}

// Append adds one signal under the store lock.
func (s *FileStore) Append(sig model.Signal) error {
	return s.Update(func(signals []model.Signal) ([]model.Signal, error) {
		return append(signals, sig), nil
	})
}

// AppendGuarded adds one signal under the store lock, re-running the
// cooldown and per-symbol active cap against the locked contents. The
// generation gate works from a snapshot taken before the lock, so an
// overlapping pass may have appended in between; this check is the one
// that actually holds the cap. Returns false when the signal was dropped.
func (s *FileStore) AppendGuarded(sig model.Signal, cooldown time.Duration, maxActive int) (bool, error) {
	added := false
	err := s.Update(func(signals []model.Signal) ([]model.Signal, error) {
		if latest := LatestActive(signals, sig.Symbol); latest != nil {
			if sig.CreatedAt.Sub(latest.CreatedAt.Time) < cooldown {
				return signals, nil
			}
		}
		if maxActive > 0 && ActiveCount(signals, sig.Symbol) >= maxActive {
			return signals, nil
		}
		added = true
		return append(signals, sig), nil
	})
	return added, err
}

func (s *FileStore) read() ([]model.Signal, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: read %s: %w", s.path, err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var signals []model.Signal
	if err := json.Unmarshal(data, &signals); err != nil {
		return nil, fmt.Errorf("store: decode %s: %w", s.path, err)
	}
	return signals, nil
}

func (s *FileStore) write(signals []model.Signal) error {
	if signals == nil {
		signals = []model.Signal{}
	}
	data, err := json.MarshalIndent(signals, "", "  ")
	if err != nil {
		return fmt.Errorf("store: encode: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("store: mkdir: %w", err)
	}

	// Write-then-rename so a crashed run never leaves a torn file.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("store: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("store: rename: %w", err)
	}
	return nil
}

// ActiveCount returns the number of active signals for the symbol.
func ActiveCount(signals []model.Signal, symbol string) int {
	n := 0
	for i := range signals {
		if signals[i].Symbol == symbol && signals[i].Status == model.StatusActive {
			n++
		}
	}
	return n
}

// LatestActive returns the most recently created active signal for the
// symbol, or nil.
func LatestActive(signals []model.Signal, symbol string) *model.Signal {
	var latest *model.Signal
	for i := range signals {
		sig := &signals[i]
		if sig.Symbol != symbol || sig.Status != model.StatusActive {
			continue
		}
		if latest == nil || sig.CreatedAt.After(latest.CreatedAt.Time) {
			latest = sig
		}
	}
	return latest
}
