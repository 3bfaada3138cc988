// Package scheduler periodically publishes the next-day forecast.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/weather-forecast-service/internal/domain"
	"github.com/couchcryptid/weather-forecast-service/internal/forecast"
	"github.com/couchcryptid/weather-forecast-service/internal/observability"
	"github.com/go-co-op/gocron"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// jobTimeout bounds a single forecast-and-publish run.
const jobTimeout = 30 * time.Second

// Publisher delivers forecasts downstream.
type Publisher interface {
	Publish(ctx context.Context, forecast domain.Forecast) error
}

// Scheduler runs the forecast engine on a fixed interval and publishes the result.
type Scheduler struct {
	scheduler  *gocron.Scheduler
	forecaster forecast.Forecaster
	publisher  Publisher
	interval   time.Duration
	clock      clockwork.Clock
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// New creates a Scheduler. An interval of zero disables publishing.
func New(f forecast.Forecaster, p Publisher, interval time.Duration, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Scheduler {
	return &Scheduler{
		scheduler:  gocron.NewScheduler(time.UTC),
		forecaster: f,
		publisher:  p,
		interval:   interval,
		clock:      clock,
		logger:     logger,
		metrics:    metrics,
	}
}

// Start schedules the publish job and starts the underlying scheduler. The
// first run happens immediately.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		s.logger.Info("forecast publisher disabled")
		return nil
	}

	_, err := s.scheduler.Every(s.interval).Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		if err := s.RunOnce(ctx); err != nil {
			s.logger.Error("forecast publish failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule publisher: %w", err)
	}

	s.scheduler.StartAsync()
	s.logger.Info("forecast publisher started", "interval", s.interval)
	return nil
}

// RunOnce computes tomorrow's forecast and publishes it.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	result, err := s.forecaster.ForecastTomorrow(ctx)
	if err != nil {
		s.metrics.PublishErrors.Inc()
		return fmt.Errorf("forecast: %w", err)
	}

	f := domain.NewForecast(uuid.NewString(), s.clock.Now(), result)
	if err := s.publisher.Publish(ctx, f); err != nil {
		s.metrics.PublishErrors.Inc()
		return err
	}

	s.metrics.ForecastsPublished.Inc()
	s.logger.Info("forecast published",
		"prediction_date", f.PredictionDate.Format(time.DateOnly),
		"model_used", f.ModelUsed,
		"avg_temperature", f.AvgTemperature,
	)
	return nil
}

// Stop stops the scheduler and cancels any future runs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
