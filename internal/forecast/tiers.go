package forecast

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/couchcryptid/weather-forecast-service/internal/domain"
)

// Offsets applied to the trailing mean by the short-window tier. They are
// the expected values of the spread the dashboard used to draw at random.
const (
	fallbackMaxOffset = 5.0
	fallbackMinOffset = -2.5
	fallbackWindow    = 7 * 24 * time.Hour
)

// modelTier feeds the last 30 consecutive days to the inference adapter.
func (e *Engine) modelTier(ctx context.Context, now, tomorrow time.Time) (outcome, error) {
	if e.predictor == nil || !e.predictor.Available() {
		return skipped(skipUnavailable), nil
	}

	from := startOfDay(now).AddDate(0, 0, -domain.ModelWindowDays)
	samples, err := e.store.QueryRange(ctx, from, now)
	if err != nil {
		return outcome{}, storeError("model tier", err)
	}
	days, err := domain.Aggregate(samples, domain.ModelWindowDays, domain.ModelWindowDays)
	if err != nil || !consecutive(days) {
		return skipped(skipInsufficient), nil
	}

	pred, err := e.predictor.Predict(days)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrInsufficientData):
		return skipped(skipInsufficient), nil
	case errors.Is(err, domain.ErrModelUnavailable):
		return skipped(skipUnavailable), nil
	default:
		e.logger.Warn("inference failed, falling back", "error", err)
		return skipped(skipFault), nil
	}

	return produced(domain.NewPrediction(tomorrow, domain.ModelTFLite,
		pred.AvgTemperature, pred.MaxTemperature, pred.MinTemperature,
		math.Max(0, pred.Precipitation), nil, len(days))), nil
}

// trendTier steps the last three days forward by their least-squares slope.
func (e *Engine) trendTier(ctx context.Context, now, tomorrow time.Time) (outcome, error) {
	from := startOfDay(now).AddDate(0, 0, -domain.TrendWindowDays)
	samples, err := e.store.QueryRange(ctx, from, now)
	if err != nil {
		return outcome{}, storeError("trend tier", err)
	}
	days, err := domain.Aggregate(samples, domain.TrendWindowDays, domain.TrendMinDays)
	if err != nil {
		return skipped(skipInsufficient), nil
	}

	recent := days[len(days)-domain.TrendMinDays:]
	avgs := make([]float64, len(recent))
	maxs := make([]float64, len(recent))
	mins := make([]float64, len(recent))
	for i, d := range recent {
		avgs[i] = d.AvgTemperature
		maxs[i] = d.MaxTemperature
		mins[i] = d.MinTemperature
	}

	avg, okAvg := Extrapolate(avgs)
	maxTemp, okMax := Extrapolate(maxs)
	minTemp, okMin := Extrapolate(mins)
	if !okAvg || !okMax || !okMin {
		return skipped(skipFault), nil
	}

	adj := domain.SeasonalAdjustment(now)
	avg += adj
	maxTemp = math.Max(maxTemp+adj, avg)
	minTemp = math.Min(minTemp+adj, avg)

	var precipSum, humidSum float64
	for _, d := range days {
		precipSum += d.Precipitation
		humidSum += d.AvgHumidity
	}
	n := float64(len(days))
	humidity := humidSum / n

	return produced(domain.NewPrediction(tomorrow, domain.ModelStatisticalTrend,
		avg, maxTemp, minTemp, precipSum/n, &humidity, len(days))), nil
}

// averageTier derives a forecast from the trailing seven-day mean.
func (e *Engine) averageTier(ctx context.Context, now, tomorrow time.Time) (outcome, error) {
	recent, ok, err := e.store.QueryRecentAverage(ctx, now.Add(-fallbackWindow))
	if err != nil {
		return outcome{}, storeError("average tier", err)
	}
	if !ok || recent.Samples == 0 {
		return skipped(skipInsufficient), nil
	}

	humidity := recent.AvgHumidity
	return produced(domain.NewPrediction(tomorrow, domain.ModelStatisticalFallback,
		recent.AvgTemperature,
		recent.AvgTemperature+fallbackMaxOffset,
		recent.AvgTemperature+fallbackMinOffset,
		0, &humidity, recent.Samples)), nil
}

func (e *Engine) defaultTier(_ context.Context, _, tomorrow time.Time) (outcome, error) {
	return produced(domain.DefaultPrediction(tomorrow)), nil
}

// Extrapolate returns the last value plus the least-squares slope of values
// over x = 1..n. It reports false for fewer than two points or a non-finite
// result.
func Extrapolate(values []float64) (float64, bool) {
	n := float64(len(values))
	if len(values) < 2 {
		return 0, false
	}
	last := values[len(values)-1]

	var sumX, sumY, sumXY, sumXX float64
	for i, y := range values {
		x := float64(i + 1)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	slope := (n*sumXY - sumX*sumY) / (n*sumXX - sumX*sumX)
	next := last + slope

	if math.IsNaN(next) || math.IsInf(next, 0) {
		return 0, false
	}
	return next, true
}

// consecutive reports whether days are one calendar day apart with no gaps.
// Dates are compared by year, month and day so differing zones do not matter.
func consecutive(days []domain.DailyFeatureVector) bool {
	for i := 1; i < len(days); i++ {
		py, pm, pd := days[i-1].Date.Date()
		want := time.Date(py, pm, pd+1, 0, 0, 0, 0, time.UTC)
		y, m, d := days[i].Date.Date()
		if !want.Equal(time.Date(y, m, d, 0, 0, 0, 0, time.UTC)) {
			return false
		}
	}
	return true
}
