// Package mockdata generates and reads deterministic sensor fixtures in the
// JSON-lines format the sensor nodes publish.
package mockdata

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/couchcryptid/weather-forecast-service/internal/domain"
	"github.com/jonboulle/clockwork"
)

const timestampLayout = "2006-01-02 15:04:05"

// Options shapes the synthetic signal.
type Options struct {
	Start       time.Time // first reading, truncated to the hour
	Days        int
	MeanTemp    float64 // annual mean, °C
	SeasonalAmp float64 // annual half-swing, °C
	DiurnalAmp  float64 // daily half-swing, °C
}

// DefaultOptions returns a mid-latitude climate starting at start.
func DefaultOptions(start time.Time, days int) Options {
	return Options{Start: start, Days: days, MeanTemp: 15, SeasonalAmp: 10, DiurnalAmp: 5}
}

// Generate returns one reading per hour. Temperature follows an annual sine
// peaking in late June plus a diurnal sine peaking mid-afternoon, with a small
// deterministic wobble so consecutive days differ. Humidity moves opposite to
// temperature.
func Generate(opts Options) []domain.Sample {
	start := opts.Start.Truncate(time.Hour)
	hours := opts.Days * 24
	samples := make([]domain.Sample, 0, hours)
	for i := 0; i < hours; i++ {
		ts := start.Add(time.Duration(i) * time.Hour)
		seasonal := opts.SeasonalAmp * math.Sin(2*math.Pi*float64(ts.YearDay()-80)/365)
		diurnal := opts.DiurnalAmp * math.Sin(2*math.Pi*float64(ts.Hour()-9)/24)
		wobble := 0.8*math.Sin(float64(i)*1.3) + 0.4*math.Cos(float64(i)*0.7)
		temp := round1(opts.MeanTemp + seasonal + diurnal + wobble)

		humidity := round1(clamp(60-1.5*(temp-opts.MeanTemp), 20, 95))
		pressure := round1(1013 + 4*math.Sin(2*math.Pi*float64(i)/96))

		samples = append(samples, domain.Sample{
			Timestamp:   ts,
			Temperature: temp,
			Humidity:    humidity,
			Pressure:    &pressure,
		})
	}
	return samples
}

type record struct {
	Timestamp   string   `json:"timestamp"`
	Temperature float64  `json:"temperature"`
	Humidity    float64  `json:"humidity"`
	Pressure    *float64 `json:"pressure,omitempty"`
}

// WriteJSONL writes one JSON object per line.
func WriteJSONL(w io.Writer, samples []domain.Sample) error {
	enc := json.NewEncoder(w)
	for _, s := range samples {
		rec := record{
			Timestamp:   s.Timestamp.UTC().Format(timestampLayout),
			Temperature: s.Temperature,
			Humidity:    s.Humidity,
			Pressure:    s.Pressure,
		}
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("encode sample: %w", err)
		}
	}
	return nil
}

// ReadRaw splits a JSON-lines stream into raw events, one per non-empty line,
// ready for domain.ParseSample.
func ReadRaw(r io.Reader) ([]domain.RawEvent, error) {
	var events []domain.RawEvent
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		b := sc.Bytes()
		if len(b) == 0 {
			continue
		}
		events = append(events, domain.RawEvent{
			Value:  append([]byte(nil), b...),
			Offset: int64(line),
		})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	return events, nil
}

// ReadJSONL parses every line into a validated sample.
func ReadJSONL(r io.Reader) ([]domain.Sample, error) {
	raws, err := ReadRaw(r)
	if err != nil {
		return nil, err
	}
	samples := make([]domain.Sample, 0, len(raws))
	for _, raw := range raws {
		s, err := domain.ParseSample(raw, clockwork.NewRealClock())
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", raw.Offset, err)
		}
		samples = append(samples, s)
	}
	return samples, nil
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
