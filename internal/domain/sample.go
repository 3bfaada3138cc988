package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jonboulle/clockwork"
)

var validate = validator.New()

// sampleTimeLayouts lists accepted timestamp formats, most specific first.
// The space-separated layout matches what SQL CURRENT_TIMESTAMP columns emit.
var sampleTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// Sample is a single sensor reading. Pressure is optional because not every
// sensor node carries a barometer.
type Sample struct {
	Timestamp   time.Time `json:"timestamp" validate:"required"`
	Temperature float64   `json:"temperature" validate:"gte=-50,lte=60"`
	Humidity    float64   `json:"humidity" validate:"gte=0,lte=100"`
	Pressure    *float64  `json:"pressure,omitempty" validate:"omitempty,gte=800,lte=1200"`
}

// RecentAverage summarizes the samples in a trailing window.
type RecentAverage struct {
	AvgTemperature float64 `json:"avg_temperature"`
	AvgHumidity    float64 `json:"avg_humidity"`
	Samples        int     `json:"samples"`
}

// RawEvent represents an unprocessed message from the source topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// rawSample mirrors the JSON the sensor nodes publish. Pointers distinguish
// a missing field from a zero reading.
type rawSample struct {
	Timestamp   string   `json:"timestamp"`
	Temperature *float64 `json:"temperature"`
	Humidity    *float64 `json:"humidity"`
	Pressure    *float64 `json:"pressure"`
}

// ParseSample decodes a RawEvent into a validated Sample stamped in UTC. When
// the payload has no timestamp the message timestamp is used, and failing that
// clock.Now().
func ParseSample(raw RawEvent, clock clockwork.Clock) (Sample, error) {
	var rec rawSample
	if err := json.Unmarshal(raw.Value, &rec); err != nil {
		return Sample{}, fmt.Errorf("parse sample: %w", err)
	}
	if rec.Temperature == nil {
		return Sample{}, fmt.Errorf("%w: temperature is required", ErrInvalidSample)
	}
	if rec.Humidity == nil {
		return Sample{}, fmt.Errorf("%w: humidity is required", ErrInvalidSample)
	}

	ts, err := parseSampleTime(rec.Timestamp, raw.Timestamp, clock)
	if err != nil {
		return Sample{}, err
	}

	s := Sample{
		Timestamp:   ts,
		Temperature: *rec.Temperature,
		Humidity:    *rec.Humidity,
		Pressure:    rec.Pressure,
	}
	if err := ValidateSample(s); err != nil {
		return Sample{}, err
	}
	return s, nil
}

// ValidateSample checks a reading against the physical limits of the sensors.
func ValidateSample(s Sample) error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSample, err)
	}
	return nil
}

func parseSampleTime(value string, fallback time.Time, clock clockwork.Clock) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		if !fallback.IsZero() {
			return fallback.UTC(), nil
		}
		return clock.Now().UTC(), nil
	}
	for _, layout := range sampleTimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unrecognized timestamp %q", ErrInvalidSample, value)
}
