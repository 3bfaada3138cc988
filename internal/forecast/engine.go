// Package forecast produces next-day forecasts by walking an ordered chain of
// tiers, from the quantized model down to fixed climatological defaults.
package forecast

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/weather-forecast-service/internal/domain"
	"github.com/couchcryptid/weather-forecast-service/internal/model"
	"github.com/couchcryptid/weather-forecast-service/internal/observability"
	"github.com/jonboulle/clockwork"
)

// SampleStore is the read side of the sample store.
type SampleStore interface {
	// QueryRange returns samples with from <= timestamp <= to, oldest first.
	QueryRange(ctx context.Context, from, to time.Time) ([]domain.Sample, error)
	// QueryRecentAverage averages samples taken at or after since. The bool
	// is false when the window holds no samples.
	QueryRecentAverage(ctx context.Context, since time.Time) (domain.RecentAverage, bool, error)
	// Latest returns the most recent sample, if any.
	Latest(ctx context.Context) (domain.Sample, bool, error)
}

// Predictor is the inference adapter as seen by the engine.
type Predictor interface {
	Available() bool
	Predict(days []domain.DailyFeatureVector) (model.Prediction, error)
}

// Forecaster produces tomorrow's forecast.
type Forecaster interface {
	ForecastTomorrow(ctx context.Context) (domain.PredictionResult, error)
}

// Skip reasons recorded when a tier cannot produce a result.
const (
	skipInsufficient = "insufficient"
	skipUnavailable  = "unavailable"
	skipFault        = "fault"
)

// outcome is what a tier hands back: a forecast, or the reason it had none.
type outcome struct {
	result domain.PredictionResult
	skip   string
}

func produced(r domain.PredictionResult) outcome { return outcome{result: r} }
func skipped(reason string) outcome              { return outcome{skip: reason} }

type tier struct {
	model domain.ModelUsed
	run   func(ctx context.Context, now, tomorrow time.Time) (outcome, error)
}

// Engine evaluates the tier chain afresh on every call. It holds no state
// beyond its collaborators and is safe for concurrent use.
type Engine struct {
	store     SampleStore
	predictor Predictor
	clock     clockwork.Clock
	logger    *slog.Logger
	metrics   *observability.Metrics
	tiers     []tier
}

// NewEngine creates an Engine. A nil predictor disables the model tier.
func NewEngine(store SampleStore, predictor Predictor, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Engine {
	e := &Engine{
		store:     store,
		predictor: predictor,
		clock:     clock,
		logger:    logger,
		metrics:   metrics,
	}
	e.tiers = []tier{
		{model: domain.ModelTFLite, run: e.modelTier},
		{model: domain.ModelStatisticalTrend, run: e.trendTier},
		{model: domain.ModelStatisticalFallback, run: e.averageTier},
		{model: domain.ModelDefault, run: e.defaultTier},
	}
	return e
}

// ForecastTomorrow returns the first forecast the tier chain produces for
// the day after the clock's current date. The only error it returns wraps
// domain.ErrStoreUnavailable.
func (e *Engine) ForecastTomorrow(ctx context.Context) (domain.PredictionResult, error) {
	start := time.Now()
	defer func() { e.metrics.ForecastDuration.Observe(time.Since(start).Seconds()) }()

	now := e.clock.Now()
	tomorrow := startOfDay(now).AddDate(0, 0, 1)

	for _, t := range e.tiers {
		out, err := t.run(ctx, now, tomorrow)
		if err != nil {
			e.metrics.ForecastErrors.Inc()
			return domain.PredictionResult{}, err
		}
		if out.skip != "" {
			e.metrics.TierSkipped.WithLabelValues(string(t.model), out.skip).Inc()
			e.logger.Debug("forecast tier skipped", "tier", t.model, "reason", out.skip)
			continue
		}

		e.metrics.Forecasts.WithLabelValues(string(out.result.ModelUsed)).Inc()
		e.logger.Debug("forecast produced",
			"model_used", out.result.ModelUsed,
			"confidence", out.result.Confidence,
			"data_points_used", out.result.DataPointsUsed,
		)
		return out.result, nil
	}

	return domain.DefaultPrediction(tomorrow), nil
}

// storeError tags collaborator failures so callers can match on ErrStoreUnavailable.
func storeError(op string, err error) error {
	if errors.Is(err, domain.ErrStoreUnavailable) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStoreUnavailable, err)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
