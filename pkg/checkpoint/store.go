// Package checkpoint persists crawl progress through a key/value store so a
// crawl can resume after a restart or migration without redoing completed
// work. Durability is best effort: the in-memory state is authoritative
// between flushes, and a failed write costs at most the items processed
// since the previous checkpoint.
package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"igcrawler/pkg/kv"
	"igcrawler/pkg/logger"
)

const (
	// DefaultStateKey is the well-known key the snapshot is stored under.
	DefaultStateKey = "CRAWL_STATE"
	// DefaultInterval is how many processed items trigger a flush.
	DefaultInterval = 10
)

// Store reads and writes CrawlState snapshots.
type Store struct {
	kv       kv.Store
	key      string
	interval int
	logger   logger.Logger
}

// NewStore creates a checkpoint store over the given key/value backend.
// Zero values for key and interval select the defaults.
func NewStore(backend kv.Store, key string, interval int, log logger.Logger) *Store {
	if key == "" {
		key = DefaultStateKey
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	if log == nil {
		log = logger.GetLogger()
	}
	return &Store{kv: backend, key: key, interval: interval, logger: log}
}

// Load reconstructs the state from the backend. A missing, unreadable, or
// corrupt snapshot degrades to a fresh empty state; it never fails the run.
func (s *Store) Load(ctx context.Context) *CrawlState {
	data, err := s.kv.Get(ctx, s.key)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			s.logger.Info("no previous crawl state found, starting fresh")
		} else {
			s.logger.WarnWithFields("could not load crawl state, starting fresh", map[string]interface{}{
				"error": err.Error(),
			})
		}
		return NewState()
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		s.logger.WarnWithFields("crawl state is corrupt, starting fresh", map[string]interface{}{
			"error": err.Error(),
		})
		return NewState()
	}

	st := stateFromSnapshot(snap)
	s.logger.InfoWithFields("resumed crawl state", st.ResumeInfo())
	return st
}

// Save writes the full snapshot unconditionally and resets the checkpoint
// cadence. Callers treat a returned error as a degradation, not a failure:
// progress stays in memory and is retried at the next checkpoint.
func (s *Store) Save(ctx context.Context, st *CrawlState) error {
	snap := st.toSnapshot()
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode crawl state: %w", err)
	}

	if err := s.kv.Set(ctx, s.key, data); err != nil {
		return fmt.Errorf("failed to persist crawl state: %w", err)
	}

	st.lastSaved = snap.LastSaved
	st.itemsSinceCheckpoint = 0

	s.logger.DebugWithFields("crawl state saved", map[string]interface{}{
		"videos_emitted":  st.videosEmitted,
		"processed_items": len(st.processedItems),
	})
	return nil
}

// CheckpointIfNeeded counts a processed item and flushes once the interval
// is reached.
func (s *Store) CheckpointIfNeeded(ctx context.Context, st *CrawlState) error {
	st.itemsSinceCheckpoint++
	if st.itemsSinceCheckpoint < s.interval {
		return nil
	}

	s.logger.InfoWithFields("checkpoint interval reached, saving state", map[string]interface{}{
		"items_since_checkpoint": st.itemsSinceCheckpoint,
	})
	return s.Save(ctx, st)
}

// Clear removes the persisted snapshot. Called only after a fully clean
// pass over every account.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.kv.Delete(ctx, s.key); err != nil {
		return fmt.Errorf("failed to clear crawl state: %w", err)
	}
	s.logger.Info("crawl state cleared")
	return nil
}

// LastSaved returns when the state last reached the backend.
func (s *CrawlState) LastSaved() time.Time { return s.lastSaved }
