package weather

import (
	"context"
	"errors"
	"time"

	"github.com/i474232898/weather-lookup/internal/history"
	"github.com/i474232898/weather-lookup/internal/logging"
	"github.com/i474232898/weather-lookup/internal/metrics"
)

// Lookup sources, used as metric labels.
const (
	SourceCity        = "city"
	SourceCoordinates = "coordinates"
)

// Service sequences a provider fetch with history recording.
//
// Manual city searches are never recorded. Coordinate lookups are recorded
// on a best-effort basis: storage failures are logged and never fail the
// lookup.
type Service struct {
	fetcher  Fetcher
	recorder HistoryRecorder
	logger   *logging.Logger
	metrics  *metrics.Collector
}

// NewService creates a new Service. recorder may be nil, in which case no
// history is kept.
func NewService(fetcher Fetcher, recorder HistoryRecorder, logger *logging.Logger, m *metrics.Collector) *Service {
	return &Service{
		fetcher:  fetcher,
		recorder: recorder,
		logger:   logger.With("component", "weather"),
		metrics:  m,
	}
}

// ByCity fetches the current weather for a typed city name.
func (s *Service) ByCity(ctx context.Context, name string) (Record, error) {
	start := time.Now()
	rec, err := s.fetcher.FetchByCity(ctx, name)
	s.observe(SourceCity, start, err)
	if err != nil {
		s.logger.Debug("city lookup failed", "city", name, "error", err)
		return Record{}, err
	}
	return rec, nil
}

// ByCoordinates fetches the current weather for a coordinate pair and
// records the result in history.
func (s *Service) ByCoordinates(ctx context.Context, lat, lon float64) (Record, error) {
	start := time.Now()
	rec, err := s.fetcher.FetchByCoordinates(ctx, lat, lon)
	s.observe(SourceCoordinates, start, err)
	if err != nil {
		s.logger.Debug("coordinate lookup failed", "lat", lat, "lon", lon, "error", err)
		return Record{}, err
	}

	s.record(ctx, rec)
	return rec, nil
}

// CityAsync runs ByCity in the background.
func (s *Service) CityAsync(ctx context.Context, name string) *Future {
	return Go(ctx, func(ctx context.Context) (Record, error) {
		return s.ByCity(ctx, name)
	})
}

// CoordinatesAsync runs ByCoordinates in the background.
func (s *Service) CoordinatesAsync(ctx context.Context, lat, lon float64) *Future {
	return Go(ctx, func(ctx context.Context) (Record, error) {
		return s.ByCoordinates(ctx, lat, lon)
	})
}

func (s *Service) record(ctx context.Context, rec Record) {
	if s.recorder == nil {
		return
	}

	inserted, err := s.recorder.RecordLookup(ctx, LookupFromRecord(rec))
	if err != nil {
		// The entry may have been inserted even when the sweep failed.
		s.logger.Warn("history recording failed",
			"city", rec.LocationName,
			"inserted", inserted,
			"error", err,
		)
	}
}

// LookupFromRecord builds the history data for rec: the minimum temperature
// in Celsius and the primary condition's icon and description, if any.
func LookupFromRecord(rec Record) history.Lookup {
	l := history.Lookup{
		CityName:    rec.LocationName,
		TempCelsius: rec.TempMinCelsius(),
	}
	if c, ok := rec.Primary(); ok {
		icon, desc := c.Icon, c.Description
		l.IconCode = &icon
		l.Description = &desc
	}
	return l
}

func (s *Service) observe(source string, start time.Time, err error) {
	s.metrics.RecordLookup(source, outcome(err), time.Since(start))
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return KindOf(err).String()
	}
}
