package model

import (
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/weather-forecast-service/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubRuntime struct {
	in, out Shape
	fn      func([]float32) ([]float32, error)
	calls   atomic.Int64
}

func (s *stubRuntime) InputShape() Shape  { return s.in }
func (s *stubRuntime) OutputShape() Shape { return s.out }

func (s *stubRuntime) Invoke(input []float32) ([]float32, error) {
	s.calls.Add(1)
	return s.fn(input)
}

func constantDays(n int, avg, maxTemp, minTemp float64) []domain.DailyFeatureVector {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	days := make([]domain.DailyFeatureVector, n)
	for i := range days {
		date := start.AddDate(0, 0, i)
		sin, cos := domain.SeasonalEncoding(date)
		days[i] = domain.DailyFeatureVector{
			Date:           date,
			AvgTemperature: avg,
			MaxTemperature: maxTemp,
			MinTemperature: minTemp,
			AvgHumidity:    60,
			DaySin:         sin,
			DayCos:         cos,
			Samples:        24,
		}
	}
	return days
}
