package weather

import (
	"context"

	"github.com/i474232898/weather-lookup/internal/history"
)

// Fetcher abstracts the current-weather provider (e.g. OpenWeatherMap).
// Failures are returned as *Error.
type Fetcher interface {
	FetchByCity(ctx context.Context, name string) (Record, error)
	FetchByCoordinates(ctx context.Context, lat, lon float64) (Record, error)
}

// HistoryRecorder is the contract the history store must satisfy for the
// service to record location-based lookups.
type HistoryRecorder interface {
	RecordLookup(ctx context.Context, l history.Lookup) (inserted bool, err error)
}
