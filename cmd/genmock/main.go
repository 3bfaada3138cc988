// Command genmock writes deterministic sensor fixtures in the JSON-lines
// format the sensor nodes publish, and optionally a persistence model artifact
// for exercising the model tier.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -out data/mock/sensor_readings_14d.jsonl \
//	  -start 2025-06-17 -days 14 \
//	  -model-out models/weather_prediction_model.qlm.json
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/weather-forecast-service/internal/adapter/memory"
	"github.com/couchcryptid/weather-forecast-service/internal/domain"
	"github.com/couchcryptid/weather-forecast-service/internal/forecast"
	"github.com/couchcryptid/weather-forecast-service/internal/mockdata"
	"github.com/couchcryptid/weather-forecast-service/internal/model"
	"github.com/couchcryptid/weather-forecast-service/internal/observability"
	"github.com/jonboulle/clockwork"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output path for the JSON-lines sample fixture")
	startStr := flag.String("start", "2025-06-17", "first day of the fixture (YYYY-MM-DD, UTC)")
	days := flag.Int("days", 14, "number of days to generate")
	modelOut := flag.String("model-out", "", "optional output path for a persistence model artifact")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}
	if *days < 1 {
		return fmt.Errorf("-days must be at least 1")
	}
	start, err := time.Parse(time.DateOnly, *startStr)
	if err != nil {
		return fmt.Errorf("parse -start: %w", err)
	}

	samples := mockdata.Generate(mockdata.DefaultOptions(start, *days))
	if err := writeFixture(*out, samples); err != nil {
		return fmt.Errorf("writing fixture: %w", err)
	}
	log.Printf("wrote %d samples to %s", len(samples), *out)

	if *modelOut != "" {
		if err := writeModel(*modelOut); err != nil {
			return fmt.Errorf("writing model: %w", err)
		}
		log.Printf("wrote persistence model: %s", *modelOut)
	}

	return printStats(samples, start.AddDate(0, 0, *days))
}

func writeFixture(path string, samples []domain.Sample) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := mockdata.WriteJSONL(f, samples); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func writeModel(path string) error {
	q, err := model.PersistenceModel()
	if err != nil {
		return err
	}
	data, err := q.MarshalArtifact()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// printStats reports per-day aggregates and the forecast the engine produces
// the morning after the fixture ends, for updating test assertions.
func printStats(samples []domain.Sample, morningAfter time.Time) error {
	daily, err := domain.Aggregate(samples, len(samples), 1)
	if err != nil {
		return err
	}

	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Samples: %d, days: %d\n", len(samples), len(daily))
	for _, d := range daily {
		fmt.Printf("%s  avg=%5.1f  max=%5.1f  min=%5.1f  humidity=%5.1f  n=%d\n",
			d.Date.Format(time.DateOnly), d.AvgTemperature, d.MaxTemperature, d.MinTemperature, d.AvgHumidity, d.Samples)
	}

	store := memory.NewStore(0)
	if err := store.InsertSamples(context.Background(), samples); err != nil {
		return err
	}
	clock := clockwork.NewFakeClockAt(morningAfter.Add(6 * time.Hour))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := forecast.NewEngine(store, nil, clock, logger, observability.NewMetricsForTesting())

	result, err := engine.ForecastTomorrow(context.Background())
	if err != nil {
		return err
	}
	r := result.Rounded()
	fmt.Printf("Forecast for %s: model=%s avg=%.1f max=%.1f min=%.1f points=%d\n",
		r.PredictionDate.Format(time.DateOnly), r.ModelUsed, r.AvgTemperature, r.MaxTemperature, r.MinTemperature, r.DataPointsUsed)
	return nil
}
