// Package domain models sensor samples, the daily features derived from them,
// and the next-day forecasts the service produces.
//
// # Data Source
//
// Sensor nodes publish one JSON object per reading to the Kafka source topic:
//
//	{"timestamp": "2025-07-01 14:30:00", "temperature": 22.5, "humidity": 65.0, "pressure": 1013.2}
//
// Temperature is in °C, humidity in percent, pressure in hPa and optional.
// Timestamps are accepted as RFC 3339 or "YYYY-MM-DD HH:MM:SS" and converted
// to UTC. A reading without a timestamp takes the Kafka message time, or the
// parser's clock when the message has none. Readings outside the
// physical limits of the sensors are rejected with [ErrInvalidSample]:
//
//	temperature  -50 .. 60 °C
//	humidity       0 .. 100 %
//	pressure     800 .. 1200 hPa
//
// # Daily Features
//
// [Aggregate] groups samples by the calendar date of their own timestamp
// (UTC for everything ingested) and computes, per date:
//
//	precipitation   always 0, reserved for a future rain gauge
//	avg/max/min     temperature statistics for the day
//	avg_humidity    mean humidity for the day
//	day_sin/cos     sin and cos of 2π·day_of_year/365
//
// The column order fed to the model is fixed:
//
//	[precipitation, avg_temperature, max_temperature, min_temperature, day_sin, day_cos]
//
// # Normalization
//
// [FeatureRanges] scales physical values into [0, 1] with per-feature min-max
// bounds. Seasonal columns are already bounded and bypass scaling. Unknown
// features pass through unchanged. Defaults when no model config is found:
//
//	temperature    -20 .. 50
//	humidity         0 .. 100
//	precipitation    0 .. 100
//
// # Forecast Provenance
//
// Every [PredictionResult] names the tier that produced it and a confidence
// bound to that tier:
//
//	tflite_model          high
//	statistical_trend     medium
//	statistical_fallback  low
//	default               very_low
package domain
