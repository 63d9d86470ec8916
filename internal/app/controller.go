// Package app holds the session controller for the single weather screen.
//
// All view state is owned by the goroutine running Controller.Run. Searches,
// location fixes and lookup results are delivered to that goroutine as
// events, so state is only ever mutated in one place. Every new search or
// locate supersedes the previous one: its context is cancelled and any late
// result is dropped.
package app

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/i474232898/weather-lookup/internal/location"
	"github.com/i474232898/weather-lookup/internal/logging"
	"github.com/i474232898/weather-lookup/internal/weather"
)

// ErrStopped is returned once Run has exited.
var ErrStopped = errors.New("controller stopped")

// Lookup starts asynchronous weather lookups. *weather.Service satisfies it.
type Lookup interface {
	CityAsync(ctx context.Context, name string) *weather.Future
	CoordinatesAsync(ctx context.Context, lat, lon float64) *weather.Future
}

// State is what the screen renders.
type State struct {
	RequestID    string        `json:"requestId,omitempty"`
	CityInput    string        `json:"cityInput"`
	Weather      *weather.View `json:"weather,omitempty"`
	ErrorMessage string        `json:"errorMessage,omitempty"`
	Loading      bool          `json:"loading"`
	Locating     bool          `json:"locating"`
}

// Busy reports whether a request is in flight.
func (s State) Busy() bool {
	return s.Loading || s.Locating
}

func (s State) clone() State {
	if s.Weather != nil {
		v := *s.Weather
		s.Weather = &v
	}
	return s
}

// Option configures a Controller.
type Option func(*Controller)

// WithObserver registers fn to receive a snapshot after every state change.
// fn runs on the controller goroutine and must not call back into it.
func WithObserver(fn func(State)) Option {
	return func(c *Controller) {
		c.observer = fn
	}
}

// Controller is the session orchestrator.
type Controller struct {
	lookup   Lookup
	locator  location.Provider
	logger   *logging.Logger
	observer func(State)

	events  chan event
	stopped chan struct{}

	// Owned by the Run goroutine.
	state     State
	seq       uint64
	reqCtx    context.Context
	cancelReq context.CancelFunc
}

type event interface{}

type searchEvent struct {
	city  string
	reply chan State
}

type locateEvent struct {
	reply chan State
}

type stateEvent struct {
	reply chan State
}

type locationEvent struct {
	seq uint64
	res location.Result
}

type lookupEvent struct {
	seq uint64
	res weather.Result
}

// New creates a Controller. Call Run before issuing requests.
func New(lookup Lookup, locator location.Provider, logger *logging.Logger, opts ...Option) *Controller {
	c := &Controller{
		lookup:  lookup,
		locator: locator,
		logger:  logger.With("component", "controller"),
		events:  make(chan event),
		stopped: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run processes events until ctx is done. It must be called exactly once.
func (c *Controller) Run(ctx context.Context) error {
	defer close(c.stopped)
	defer c.cancelInFlight()

	c.logger.Info("session controller started")
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("session controller stopped")
			return ctx.Err()
		case ev := <-c.events:
			c.handle(ctx, ev)
		}
	}
}

// SearchCity starts a manual city search and returns the resulting
// loading state.
func (c *Controller) SearchCity(ctx context.Context, city string) (State, error) {
	reply := make(chan State, 1)
	return c.request(ctx, searchEvent{city: city, reply: reply}, reply)
}

// Locate requests the device location and then a coordinate lookup.
func (c *Controller) Locate(ctx context.Context) (State, error) {
	reply := make(chan State, 1)
	return c.request(ctx, locateEvent{reply: reply}, reply)
}

// State returns a snapshot of the current state.
func (c *Controller) State(ctx context.Context) (State, error) {
	reply := make(chan State, 1)
	return c.request(ctx, stateEvent{reply: reply}, reply)
}

func (c *Controller) request(ctx context.Context, ev event, reply chan State) (State, error) {
	select {
	case c.events <- ev:
	case <-c.stopped:
		return State{}, ErrStopped
	case <-ctx.Done():
		return State{}, ctx.Err()
	}

	select {
	case s := <-reply:
		return s, nil
	case <-c.stopped:
		return State{}, ErrStopped
	case <-ctx.Done():
		return State{}, ctx.Err()
	}
}

// post delivers an internal event unless the controller has stopped.
func (c *Controller) post(ev event) {
	select {
	case c.events <- ev:
	case <-c.stopped:
	}
}

func (c *Controller) handle(ctx context.Context, ev event) {
	switch e := ev.(type) {
	case searchEvent:
		c.startSearch(ctx, e.city)
		e.reply <- c.state.clone()
	case locateEvent:
		c.startLocate(ctx)
		e.reply <- c.state.clone()
	case stateEvent:
		e.reply <- c.state.clone()
	case locationEvent:
		c.onLocation(e)
	case lookupEvent:
		c.onLookup(e)
	}
}

// begin supersedes any in-flight request and returns the new sequence number.
func (c *Controller) begin(ctx context.Context) uint64 {
	c.cancelInFlight()
	c.seq++
	c.reqCtx, c.cancelReq = context.WithCancel(ctx)
	c.state.RequestID = uuid.NewString()
	return c.seq
}

func (c *Controller) cancelInFlight() {
	if c.cancelReq != nil {
		c.cancelReq()
		c.cancelReq = nil
	}
}

func (c *Controller) startSearch(ctx context.Context, city string) {
	seq := c.begin(ctx)

	c.state.CityInput = city
	c.state.Weather = nil
	c.state.ErrorMessage = ""
	c.state.Loading = true
	c.state.Locating = false
	c.notify()

	c.logger.Debug("city search started", "request_id", c.state.RequestID, "city", city)
	c.await(seq, c.lookup.CityAsync(c.reqCtx, city))
}

func (c *Controller) startLocate(ctx context.Context) {
	seq := c.begin(ctx)

	c.state.CityInput = ""
	c.state.Loading = false
	c.state.Locating = true
	c.notify()

	c.logger.Debug("location requested", "request_id", c.state.RequestID)
	fix := location.Request(c.reqCtx, c.locator)
	go func() {
		c.post(locationEvent{seq: seq, res: <-fix})
	}()
}

func (c *Controller) await(seq uint64, f *weather.Future) {
	go func() {
		c.post(lookupEvent{seq: seq, res: <-f.Done()})
	}()
}

func (c *Controller) onLocation(e locationEvent) {
	if e.seq != c.seq {
		return
	}

	c.state.Locating = false
	if e.res.Err != nil {
		c.logger.Warn("location request failed", "request_id", c.state.RequestID, "error", e.res.Err)
		c.notify()
		return
	}

	coord := e.res.Coordinate
	c.state.Loading = true
	c.notify()

	c.logger.Debug("coordinate lookup started", "request_id", c.state.RequestID, "coordinate", coord.String())
	c.await(e.seq, c.lookup.CoordinatesAsync(c.reqCtx, coord.Latitude, coord.Longitude))
}

func (c *Controller) onLookup(e lookupEvent) {
	if e.seq != c.seq {
		c.logger.Debug("dropping superseded lookup result", "seq", e.seq, "current", c.seq)
		return
	}

	c.state.Loading = false
	if e.res.Err != nil {
		c.state.ErrorMessage = weather.UserMessage(e.res.Err)
		c.logger.Info("lookup failed", "request_id", c.state.RequestID, "error", e.res.Err)
	} else {
		view := weather.NewView(e.res.Record)
		c.state.Weather = &view
		c.state.ErrorMessage = ""
	}
	c.cancelInFlight()
	c.notify()
}

func (c *Controller) notify() {
	if c.observer != nil {
		c.observer(c.state.clone())
	}
}
