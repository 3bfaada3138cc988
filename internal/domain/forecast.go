package domain

import (
	"math"
	"time"
)

// Forecast is a PredictionResult as delivered to consumers: rounded for
// display, labelled with a condition, and stamped with an id.
type Forecast struct {
	ID          string    `json:"id"`
	GeneratedAt time.Time `json:"generated_at"`
	PredictionResult
	Condition
}

// NewForecast rounds result to one decimal and derives its condition from the
// rounded average temperature.
func NewForecast(id string, generatedAt time.Time, result PredictionResult) Forecast {
	rounded := result.Rounded()
	return Forecast{
		ID:               id,
		GeneratedAt:      generatedAt.UTC(),
		PredictionResult: rounded,
		Condition:        ConditionFor(rounded.AvgTemperature),
	}
}

// Rounded returns a copy with every physical quantity rounded to one decimal.
func (p PredictionResult) Rounded() PredictionResult {
	p.AvgTemperature = round1(p.AvgTemperature)
	p.MaxTemperature = round1(p.MaxTemperature)
	p.MinTemperature = round1(p.MinTemperature)
	p.Precipitation = round1(p.Precipitation)
	if p.Humidity != nil {
		h := round1(*p.Humidity)
		p.Humidity = &h
	}
	return p
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
