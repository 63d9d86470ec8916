package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/i474232898/weather-lookup/internal/app"
	"github.com/i474232898/weather-lookup/internal/history"
	"github.com/i474232898/weather-lookup/internal/weather"
)

var validate = validator.New()

// WeatherLookup performs synchronous lookups. *weather.Service satisfies it.
type WeatherLookup interface {
	ByCity(ctx context.Context, name string) (weather.Record, error)
	ByCoordinates(ctx context.Context, lat, lon float64) (weather.Record, error)
}

// HistoryStore exposes saved lookups. *history.Store satisfies it.
type HistoryStore interface {
	ListAll(ctx context.Context) ([]history.Entry, error)
	Delete(ctx context.Context, id int64) error
	SweepExpired(ctx context.Context) (int64, error)
}

// Session drives the single screen. *app.Controller satisfies it.
type Session interface {
	State(ctx context.Context) (app.State, error)
	SearchCity(ctx context.Context, city string) (app.State, error)
	Locate(ctx context.Context) (app.State, error)
}

// HealthChecker reports whether a backing dependency is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// SweepStatus reports whether the background retention sweep is scheduled.
// *scheduler.Scheduler satisfies it.
type SweepStatus interface {
	Running() bool
}

// Deps are the collaborators the routes need. Health, Sweeper and Metrics
// are optional.
type Deps struct {
	Weather WeatherLookup
	History HistoryStore
	Session Session
	Health  HealthChecker
	Sweeper SweepStatus
	Metrics http.Handler
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(fa *fiber.App, deps Deps) {
	fa.Get("/health", func(c *fiber.Ctx) error {
		body := fiber.Map{
			"status":  "ok",
			"service": "weather-lookup",
		}
		if deps.Sweeper != nil {
			body["sweeper"] = "stopped"
			if deps.Sweeper.Running() {
				body["sweeper"] = "running"
			}
		}

		if deps.Health != nil {
			if err := deps.Health.HealthCheck(c.UserContext()); err != nil {
				body["status"] = "unavailable"
				return c.Status(fiber.StatusServiceUnavailable).JSON(body)
			}
		}
		return c.JSON(body)
	})

	if deps.Metrics != nil {
		fa.Get("/metrics", adaptor.HTTPHandler(deps.Metrics))
	}

	v1 := fa.Group("/api/v1")

	v1.Get("/weather/city", func(c *fiber.Ctx) error {
		q, err := parseCityQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		rec, err := deps.Weather.ByCity(c.UserContext(), q.Name)
		if err != nil {
			return err
		}
		return c.JSON(weather.NewView(rec))
	})

	v1.Get("/weather/coordinates", func(c *fiber.Ctx) error {
		q, err := parseCoordinatesQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		rec, err := deps.Weather.ByCoordinates(c.UserContext(), q.Lat, q.Lon)
		if err != nil {
			return err
		}
		return c.JSON(weather.NewView(rec))
	})

	v1.Get("/history", func(c *fiber.Ctx) error {
		entries, err := deps.History.ListAll(c.UserContext())
		if err != nil {
			return err
		}

		views := make([]historyEntryView, 0, len(entries))
		for _, e := range entries {
			views = append(views, newHistoryEntryView(e))
		}
		return c.JSON(fiber.Map{
			"entries": views,
			"count":   len(views),
		})
	})

	v1.Delete("/history/:id", func(c *fiber.Ctx) error {
		id, err := strconv.ParseInt(c.Params("id"), 10, 64)
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "id must be a positive integer")
		}

		if err := deps.History.Delete(c.UserContext(), id); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	v1.Post("/history/sweep", func(c *fiber.Ctx) error {
		n, err := deps.History.SweepExpired(c.UserContext())
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"removed": n})
	})

	v1.Get("/session", func(c *fiber.Ctx) error {
		s, err := deps.Session.State(c.UserContext())
		if err != nil {
			return err
		}
		return c.JSON(newSessionView(s))
	})

	v1.Post("/session/search", func(c *fiber.Ctx) error {
		var req searchRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		s, err := deps.Session.SearchCity(c.UserContext(), req.City)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusAccepted).JSON(newSessionView(s))
	})

	v1.Post("/session/locate", func(c *fiber.Ctx) error {
		s, err := deps.Session.Locate(c.UserContext())
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusAccepted).JSON(newSessionView(s))
	})
}

// ErrorHandler renders handler errors as JSON with a status derived from the
// error type.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code, message := classify(err)
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}

func classify(err error) (int, string) {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code, fe.Message
	}

	switch {
	case errors.Is(err, weather.ErrInvalidInput):
		return fiber.StatusBadRequest, weather.UserMessage(err)
	case errors.Is(err, weather.ErrNotFound):
		return fiber.StatusNotFound, weather.UserMessage(err)
	case errors.Is(err, weather.ErrTransport),
		errors.Is(err, weather.ErrEmptyResponse),
		errors.Is(err, weather.ErrDecode):
		return fiber.StatusBadGateway, weather.UserMessage(err)
	case errors.Is(err, history.ErrEntryNotFound):
		return fiber.StatusNotFound, "history entry not found"
	case errors.Is(err, history.ErrStorage):
		return fiber.StatusInternalServerError, "history storage unavailable"
	case errors.Is(err, app.ErrStopped):
		return fiber.StatusServiceUnavailable, "session unavailable"
	default:
		return fiber.StatusInternalServerError, "internal server error"
	}
}

// cityQuery holds query parameters for a manual city search.
type cityQuery struct {
	Name string `validate:"required,max=200"`
}

func parseCityQuery(c *fiber.Ctx) (cityQuery, error) {
	q := cityQuery{Name: strings.TrimSpace(c.Query("name"))}
	if err := validate.Struct(q); err != nil {
		return q, err
	}
	return q, nil
}

// coordinatesQuery holds query parameters for a location lookup.
type coordinatesQuery struct {
	Lat float64 `validate:"gte=-90,lte=90"`
	Lon float64 `validate:"gte=-180,lte=180"`
}

func parseCoordinatesQuery(c *fiber.Ctx) (coordinatesQuery, error) {
	var q coordinatesQuery

	latStr, lonStr := c.Query("lat"), c.Query("lon")
	if latStr == "" || lonStr == "" {
		return q, errors.New("lat and lon query parameters are required")
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return q, errors.New("lat must be a number")
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return q, errors.New("lon must be a number")
	}

	q.Lat, q.Lon = lat, lon
	if err := validate.Struct(q); err != nil {
		return q, err
	}
	return q, nil
}

type searchRequest struct {
	City string `json:"city" validate:"required"`
}

// sessionView is the screen state plus whether a request is in flight.
type sessionView struct {
	app.State
	Busy bool `json:"busy"`
}

func newSessionView(s app.State) sessionView {
	return sessionView{State: s, Busy: s.Busy()}
}

// historyEntryView is a history entry with its display fields.
type historyEntryView struct {
	history.Entry
	Temperature    string            `json:"temperature"`
	SavedAtDisplay string            `json:"savedAtDisplay"`
	Animation      weather.Animation `json:"animation,omitempty"`
}

func newHistoryEntryView(e history.Entry) historyEntryView {
	v := historyEntryView{
		Entry:          e,
		Temperature:    weather.FormatCelsius(e.TempCelsius),
		SavedAtDisplay: e.SavedAt.Local().Format(weather.SavedAtLayout),
	}
	if e.IconCode != nil {
		v.Animation = weather.AnimationFor(*e.IconCode)
	}
	return v
}
