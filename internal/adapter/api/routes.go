// Package api serves forecasts and stored samples over HTTP.
package api

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/couchcryptid/weather-forecast-service/internal/domain"
	"github.com/couchcryptid/weather-forecast-service/internal/forecast"
	"github.com/couchcryptid/weather-forecast-service/internal/model"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// MaxSampleRange bounds a single /samples query.
const MaxSampleRange = 31 * 24 * time.Hour

var validate = validator.New()

// SampleReader is the part of the sample store the API reads.
type SampleReader interface {
	QueryRange(ctx context.Context, from, to time.Time) ([]domain.Sample, error)
	Latest(ctx context.Context) (domain.Sample, bool, error)
}

// ModelInfoer describes the loaded forecast model.
type ModelInfoer interface {
	Info() model.Info
}

// Deps are the collaborators behind the routes.
type Deps struct {
	Forecaster forecast.Forecaster
	Samples    SampleReader
	Model      ModelInfoer
	Clock      clockwork.Clock
	Logger     *slog.Logger
}

// NewApp builds the Fiber app with every route registered.
func NewApp(deps Deps) *fiber.App {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(deps.Logger),
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
	})
	RegisterRoutes(app, deps)
	return app
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, deps Deps) {
	v1 := app.Group("/api/v1")

	v1.Get("/forecast", func(c *fiber.Ctx) error {
		result, err := deps.Forecaster.ForecastTomorrow(c.UserContext())
		if err != nil {
			return storeFailure(err)
		}
		return c.JSON(domain.NewForecast(uuid.NewString(), deps.Clock.Now(), result))
	})

	v1.Get("/samples/latest", func(c *fiber.Ctx) error {
		sample, ok, err := deps.Samples.Latest(c.UserContext())
		if err != nil {
			return storeFailure(err)
		}
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, "no samples recorded yet")
		}
		return c.JSON(sample)
	})

	v1.Get("/samples", func(c *fiber.Ctx) error {
		var q rangeQuery
		if err := q.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "to must be after from")
		}
		if q.To.Sub(q.From) > MaxSampleRange {
			return fiber.NewError(fiber.StatusBadRequest, "range must not exceed 31 days")
		}

		samples, err := deps.Samples.QueryRange(c.UserContext(), q.From, q.To)
		if err != nil {
			return storeFailure(err)
		}
		return c.JSON(fiber.Map{
			"from":    q.From,
			"to":      q.To,
			"count":   len(samples),
			"samples": samples,
		})
	})

	v1.Get("/model", func(c *fiber.Ctx) error {
		return c.JSON(deps.Model.Info())
	})
}

// rangeQuery holds the query parameters for the samples endpoint.
type rangeQuery struct {
	From time.Time `validate:"required"`
	To   time.Time `validate:"required,gtfield=From"`
}

func (q *rangeQuery) bind(c *fiber.Ctx) error {
	fromStr, toStr := c.Query("from"), c.Query("to")
	if fromStr == "" || toStr == "" {
		return errors.New("from and to query parameters are required")
	}
	from, err := time.Parse(time.RFC3339, fromStr)
	if err != nil {
		return errors.New("invalid from; use RFC3339")
	}
	to, err := time.Parse(time.RFC3339, toStr)
	if err != nil {
		return errors.New("invalid to; use RFC3339")
	}
	q.From, q.To = from.UTC(), to.UTC()
	return nil
}

func storeFailure(err error) error {
	if errors.Is(err, domain.ErrStoreUnavailable) {
		return fiber.NewError(fiber.StatusServiceUnavailable, "sample store unavailable")
	}
	return err
}

func errorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		msg := "internal error"
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code, msg = fe.Code, fe.Message
		}
		if code >= fiber.StatusInternalServerError && logger != nil {
			logger.Error("api request failed", "path", c.Path(), "status", code, "error", err)
		}
		return c.Status(code).JSON(fiber.Map{"error": msg})
	}
}
