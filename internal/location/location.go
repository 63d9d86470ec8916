// Package location resolves the device position used for location-based
// weather lookups.
package location

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/kelvins/geocoder"

	"github.com/i474232898/weather-lookup/internal/config"
)

// ErrUnavailable is returned when no position source is configured or the
// source cannot produce a fix.
var ErrUnavailable = errors.New("location unavailable")

// Coordinate is a WGS84 position in decimal degrees.
type Coordinate struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

func (c Coordinate) String() string {
	return strconv.FormatFloat(c.Latitude, 'f', -1, 64) + "," + strconv.FormatFloat(c.Longitude, 'f', -1, 64)
}

// Provider supplies a coordinate pair or fails. Each call resolves once.
type Provider interface {
	RequestLocation(ctx context.Context) (Coordinate, error)
}

// Result is the outcome of one asynchronous location request.
type Result struct {
	Coordinate Coordinate
	Err        error
}

// Request runs p.RequestLocation in the background. The returned channel
// yields exactly one Result and is then closed.
func Request(ctx context.Context, p Provider) <-chan Result {
	out := make(chan Result, 1)
	go func() {
		defer close(out)
		c, err := p.RequestLocation(ctx)
		out <- Result{Coordinate: c, Err: err}
	}()
	return out
}

// Static always reports the same coordinate.
type Static struct {
	coord Coordinate
}

// NewStatic returns a provider fixed at lat, lon.
func NewStatic(lat, lon float64) *Static {
	return &Static{coord: Coordinate{Latitude: lat, Longitude: lon}}
}

func (s *Static) RequestLocation(ctx context.Context) (Coordinate, error) {
	if err := ctx.Err(); err != nil {
		return Coordinate{}, err
	}
	return s.coord, nil
}

// Unavailable fails every request with ErrUnavailable.
type Unavailable struct{}

func (Unavailable) RequestLocation(context.Context) (Coordinate, error) {
	return Coordinate{}, ErrUnavailable
}

// geocodeFunc resolves an address; geocoder.Geocoding in production.
type geocodeFunc func(geocoder.Address) (geocoder.Location, error)

// Geocoded resolves a configured street address through the Google
// Geocoding API. The first successful fix is reused.
type Geocoded struct {
	address geocoder.Address
	geocode geocodeFunc

	mu     sync.Mutex
	cached *Coordinate
}

// NewGeocoded returns a provider for address. The geocoder package keeps its
// API key in a package variable, so apiKey is applied globally.
func NewGeocoded(address geocoder.Address, apiKey string) *Geocoded {
	geocoder.ApiKey = apiKey
	return &Geocoded{
		address: address,
		geocode: geocoder.Geocoding,
	}
}

func (g *Geocoded) RequestLocation(ctx context.Context) (Coordinate, error) {
	g.mu.Lock()
	if g.cached != nil {
		c := *g.cached
		g.mu.Unlock()
		return c, nil
	}
	g.mu.Unlock()

	// geocoder has no context support; abandon the call on cancellation.
	done := make(chan Result, 1)
	go func() {
		loc, err := g.geocode(g.address)
		done <- Result{Coordinate: Coordinate{Latitude: loc.Latitude, Longitude: loc.Longitude}, Err: err}
	}()

	select {
	case <-ctx.Done():
		return Coordinate{}, ctx.Err()
	case res := <-done:
		if res.Err != nil {
			return Coordinate{}, fmt.Errorf("%w: geocoding %s: %v", ErrUnavailable, g.address.City, res.Err)
		}
		g.mu.Lock()
		g.cached = &res.Coordinate
		g.mu.Unlock()
		return res.Coordinate, nil
	}
}

// FromConfig picks the provider for cfg: static coordinates first, then a
// geocoded address, otherwise Unavailable.
func FromConfig(cfg config.LocationConfig) Provider {
	switch {
	case cfg.HasCoordinates():
		return NewStatic(*cfg.Latitude, *cfg.Longitude)
	case cfg.HasAddress():
		return NewGeocoded(geocoder.Address{
			City:    cfg.City,
			Country: cfg.Country,
		}, cfg.GeocoderAPIKey)
	default:
		return Unavailable{}
	}
}
