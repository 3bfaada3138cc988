package domain

import "time"

// ModelUsed identifies the tier that produced a forecast.
type ModelUsed string

const (
	ModelTFLite              ModelUsed = "tflite_model"
	ModelStatisticalTrend    ModelUsed = "statistical_trend"
	ModelStatisticalFallback ModelUsed = "statistical_fallback"
	ModelDefault             ModelUsed = "default"
)

// Confidence is an ordinal trust level that decreases with tier depth.
type Confidence string

const (
	ConfidenceHigh    Confidence = "high"
	ConfidenceMedium  Confidence = "medium"
	ConfidenceLow     Confidence = "low"
	ConfidenceVeryLow Confidence = "very_low"
)

// Confidence returns the trust level bound to the tier.
func (m ModelUsed) Confidence() Confidence {
	switch m {
	case ModelTFLite:
		return ConfidenceHigh
	case ModelStatisticalTrend:
		return ConfidenceMedium
	case ModelStatisticalFallback:
		return ConfidenceLow
	default:
		return ConfidenceVeryLow
	}
}

// Climatological constants returned when nothing better is available.
const (
	DefaultAvgTemperature = 20.0
	DefaultMaxTemperature = 25.0
	DefaultMinTemperature = 15.0
	DefaultHumidity       = 60.0
	DefaultPrecipitation  = 0.0
)

// PredictionResult is a next-day forecast tagged with its provenance.
type PredictionResult struct {
	PredictionDate time.Time  `json:"prediction_date"`
	AvgTemperature float64    `json:"avg_temperature"`
	MaxTemperature float64    `json:"max_temperature"`
	MinTemperature float64    `json:"min_temperature"`
	Humidity       *float64   `json:"humidity,omitempty"`
	Precipitation  float64    `json:"precipitation"`
	ModelUsed      ModelUsed  `json:"model_used"`
	Confidence     Confidence `json:"confidence"`
	DataPointsUsed int        `json:"data_points_used"`
}

// NewPrediction builds a result whose confidence always matches its tier.
func NewPrediction(date time.Time, model ModelUsed, avg, maxTemp, minTemp, precipitation float64, humidity *float64, points int) PredictionResult {
	return PredictionResult{
		PredictionDate: date,
		AvgTemperature: avg,
		MaxTemperature: maxTemp,
		MinTemperature: minTemp,
		Humidity:       humidity,
		Precipitation:  precipitation,
		ModelUsed:      model,
		Confidence:     model.Confidence(),
		DataPointsUsed: points,
	}
}

// DefaultPrediction returns the terminal-tier forecast for date.
func DefaultPrediction(date time.Time) PredictionResult {
	humidity := DefaultHumidity
	return NewPrediction(date, ModelDefault,
		DefaultAvgTemperature, DefaultMaxTemperature, DefaultMinTemperature,
		DefaultPrecipitation, &humidity, 0)
}
