package history

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/i474232898/weather-lookup/internal/logging"
	"github.com/i474232898/weather-lookup/internal/metrics"
)

// Default policy values.
const (
	DefaultDedupWindow = 3600 * time.Second
	DefaultRetention   = 7 * 24 * time.Hour
)

// Policy holds the dedup and retention windows.
type Policy struct {
	DedupWindow time.Duration
	Retention   time.Duration
}

// DefaultPolicy returns a one hour dedup window and seven day retention.
func DefaultPolicy() Policy {
	return Policy{
		DedupWindow: DefaultDedupWindow,
		Retention:   DefaultRetention,
	}
}

// Store applies the history policy on top of a Repository. It is the only
// writer of the entry collection and is safe for concurrent use.
type Store struct {
	// mu serializes the dedup check with the insert and sweep that follow.
	mu sync.Mutex

	repo    Repository
	policy  Policy
	now     func() time.Time
	logger  *logging.Logger
	metrics *metrics.Collector
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithMetrics records saves, skips, sweeps and storage errors on c.
func WithMetrics(c *metrics.Collector) Option {
	return func(s *Store) {
		s.metrics = c
	}
}

// NewStore creates a Store over repo. A non-positive retention falls back to
// DefaultRetention.
func NewStore(repo Repository, policy Policy, logger *logging.Logger, opts ...Option) *Store {
	if policy.Retention <= 0 {
		policy.Retention = DefaultRetention
	}
	if policy.DedupWindow < 0 {
		policy.DedupWindow = 0
	}

	s := &Store{
		repo:   repo,
		policy: policy,
		now:    time.Now,
		logger: logger.With("component", "history"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RecordLookup saves l unless the latest entry for the same city is younger
// than the dedup window, then sweeps expired entries.
//
// inserted reports whether a new entry was written. A sweep failure is
// returned as a *StorageError with inserted still true; the new entry is
// kept.
func (s *Store) RecordLookup(ctx context.Context, l Lookup) (inserted bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()

	prev, found, err := s.repo.LatestByCity(ctx, l.CityName)
	if err != nil {
		return false, s.storageError("latest", err)
	}
	if found && now.Sub(prev.SavedAt) < s.policy.DedupWindow {
		s.logger.Debug("skipping history entry inside dedup window",
			"city", l.CityName,
			"previous_saved_at", prev.SavedAt,
		)
		s.metrics.RecordHistorySkipped()
		return false, nil
	}

	entry := &Entry{
		CityName:    l.CityName,
		TempCelsius: l.TempCelsius,
		IconCode:    l.IconCode,
		Description: l.Description,
		SavedAt:     now,
	}
	if err := s.repo.Insert(ctx, entry); err != nil {
		return false, s.storageError("insert", err)
	}
	s.metrics.RecordHistorySaved()
	s.logger.Info("history entry saved", "id", entry.ID, "city", entry.CityName)

	if _, err := s.sweepAt(ctx, now); err != nil {
		return true, err
	}
	return true, nil
}

// SweepExpired deletes every entry saved strictly before now minus the
// retention period and returns the number removed.
func (s *Store) SweepExpired(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sweepAt(ctx, s.now().UTC())
}

func (s *Store) sweepAt(ctx context.Context, now time.Time) (int64, error) {
	cutoff := now.Add(-s.policy.Retention)

	n, err := s.repo.DeleteSavedBefore(ctx, cutoff)
	if err != nil {
		return 0, s.storageError("sweep", err)
	}
	if n > 0 {
		s.metrics.RecordSwept(n)
		s.logger.Info("expired history entries removed", "count", n, "cutoff", cutoff)
	}
	return n, nil
}

// ListAll returns every entry, newest first.
func (s *Store) ListAll(ctx context.Context) ([]Entry, error) {
	entries, err := s.repo.List(ctx)
	if err != nil {
		return nil, s.storageError("list", err)
	}
	return entries, nil
}

// Delete removes one entry. Unknown ids yield ErrEntryNotFound.
func (s *Store) Delete(ctx context.Context, id int64) error {
	err := s.repo.Delete(ctx, id)
	switch {
	case err == nil:
		s.logger.Info("history entry deleted", "id", id)
		return nil
	case errors.Is(err, ErrEntryNotFound):
		return err
	default:
		return s.storageError("delete", err)
	}
}

// Policy returns the windows in effect.
func (s *Store) Policy() Policy {
	return s.policy
}

func (s *Store) storageError(op string, err error) error {
	s.metrics.RecordStorageError(op)
	return &StorageError{Op: op, Err: err}
}
