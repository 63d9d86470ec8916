// Package history keeps a bounded record of location-based weather lookups.
//
// Entries are created only by successful coordinate lookups, never updated
// in place, and removed either individually or by the retention sweep.
// Two policies apply on every save:
//
//   - Dedup window: a lookup is not saved when the most recent entry for the
//     same city is younger than the window (default 3600 s).
//   - Retention: after each insert, entries older than the retention period
//     (default 7 days) are deleted in bulk.
//
// Store owns the policy; Repository implementations own the persistence.
package history

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Entry is one saved lookup.
type Entry struct {
	// ID is assigned by the repository on insert.
	ID          int64     `json:"id"`
	CityName    string    `json:"cityName"`
	TempCelsius float64   `json:"tempCelsius"`
	IconCode    *string   `json:"iconCode,omitempty"`
	Description *string   `json:"description,omitempty"`
	SavedAt     time.Time `json:"savedAt"` // UTC
}

// Lookup is the data recorded for a successful location-based lookup.
type Lookup struct {
	CityName    string
	TempCelsius float64
	IconCode    *string
	Description *string
}

// Repository persists entries. Implementations must be safe for concurrent
// use and return timestamps in UTC.
type Repository interface {
	// LatestByCity returns the most recently saved entry for city.
	// found is false when the city has no entries.
	LatestByCity(ctx context.Context, city string) (entry Entry, found bool, err error)

	// Insert stores e and sets e.ID.
	Insert(ctx context.Context, e *Entry) error

	// DeleteSavedBefore removes every entry saved strictly before cutoff in
	// a single bulk operation and returns how many were removed.
	DeleteSavedBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// List returns all entries ordered by SavedAt descending.
	List(ctx context.Context) ([]Entry, error)

	// Delete removes one entry. It returns ErrEntryNotFound when id is unknown.
	Delete(ctx context.Context, id int64) error
}

// ErrEntryNotFound is returned when deleting an unknown entry.
var ErrEntryNotFound = errors.New("history entry not found")

// ErrStorage matches any *StorageError with errors.Is.
var ErrStorage = errors.New("history storage error")

// StorageError reports a persistence failure during a history operation.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("history %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrStorage) true for every StorageError.
func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}
