// Command validate checks a model artifact against the forecast model's shape
// contract, validates its feature ranges, and replays a sensor fixture through
// the full tier chain, reporting pass/fail per phase.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -model models/weather_prediction_model.qlm.json \
//	  -config models/model_config.json \
//	  -fixture data/mock/sensor_readings_14d.jsonl
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/couchcryptid/weather-forecast-service/internal/adapter/memory"
	"github.com/couchcryptid/weather-forecast-service/internal/domain"
	"github.com/couchcryptid/weather-forecast-service/internal/forecast"
	"github.com/couchcryptid/weather-forecast-service/internal/mockdata"
	"github.com/couchcryptid/weather-forecast-service/internal/model"
	"github.com/couchcryptid/weather-forecast-service/internal/observability"
	"github.com/jonboulle/clockwork"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	modelPath := flag.String("model", "", "model artifact (.qlm.json); the built-in persistence model when empty")
	configPath := flag.String("config", "", "feature range config (.json or .yaml); defaults when empty")
	fixturePath := flag.String("fixture", "", "JSON-lines sensor fixture")
	flag.Parse()

	if *fixturePath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*modelPath, *configPath, *fixturePath); code != 0 {
		os.Exit(code)
	}
}

func run(modelPath, configPath, fixturePath string) int {
	fmt.Println("=== Forecast Model Validation ===")
	fmt.Println()

	rt, err := loadRuntime(modelPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load model: %v\n", err)
		return 1
	}

	ranges, err := model.LoadFeatureRanges(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load feature ranges: %v\n", err)
		return 1
	}

	f, err := os.Open(fixturePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: open fixture: %v\n", err)
		return 1
	}
	samples, err := mockdata.ReadJSONL(f)
	_ = f.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: read fixture: %v\n", err)
		return 1
	}
	if len(samples) == 0 {
		fmt.Fprintln(os.Stderr, "FATAL: fixture is empty")
		return 1
	}

	phases := []*phase{
		validateShapes(rt),
		validateRanges(ranges),
		validateFixture(samples),
		validateTierChain(rt, ranges, samples),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Model: input %s, output %s; fixture: %d samples\n", rt.InputShape(), rt.OutputShape(), len(samples))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func loadRuntime(path string) (model.Runtime, error) {
	if path == "" {
		return model.PersistenceModel()
	}
	return model.Load(path)
}

// ── Phases ──

func validateShapes(rt model.Runtime) *phase {
	p := &phase{name: "Phase 1: Model shape contract"}
	if !rt.InputShape().Equal(model.InputShape) {
		p.errorf("input shape %s, want %s", rt.InputShape(), model.InputShape)
	}
	if !rt.OutputShape().Equal(model.OutputShape) {
		p.errorf("output shape %s, want %s", rt.OutputShape(), model.OutputShape)
	}
	if !p.passed() {
		return p
	}

	out, err := rt.Invoke(make([]float32, model.InputShape.Size()))
	if err != nil {
		p.errorf("invoke on zero input: %v", err)
		return p
	}
	for i, v := range out {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			p.errorf("output[%d] is not finite on zero input", i)
		}
	}
	return p
}

func validateRanges(ranges domain.FeatureRanges) *phase {
	p := &phase{name: "Phase 2: Feature ranges"}
	if err := ranges.Validate(); err != nil {
		p.errorf("%v", err)
		return p
	}
	for _, feature := range []string{domain.FeatureTemperature, domain.FeatureHumidity, domain.FeaturePrecipitation} {
		r, ok := ranges[feature]
		if !ok {
			p.errorf("missing range for %s", feature)
			continue
		}
		mid := (r.Min + r.Max) / 2
		if got := ranges.Normalize(mid, feature); math.Abs(got-0.5) > 1e-9 {
			p.errorf("%s midpoint normalizes to %.4f, want 0.5", feature, got)
		}
		if got := ranges.Denormalize(ranges.Normalize(mid, feature), feature); math.Abs(got-mid) > 1e-9 {
			p.errorf("%s round trip %.4f -> %.4f", feature, mid, got)
		}
	}
	return p
}

func validateFixture(samples []domain.Sample) *phase {
	p := &phase{name: "Phase 3: Fixture integrity"}
	for i := 1; i < len(samples); i++ {
		if samples[i].Timestamp.Before(samples[i-1].Timestamp) {
			p.errorf("sample %d at %s precedes sample %d", i, samples[i].Timestamp, i-1)
		}
	}

	days, err := domain.Aggregate(samples, len(samples), 1)
	if err != nil {
		p.errorf("aggregate: %v", err)
		return p
	}
	for i, d := range days {
		if d.MaxTemperature < d.AvgTemperature || d.AvgTemperature < d.MinTemperature {
			p.errorf("%s: max %.1f, avg %.1f, min %.1f out of order", d.Date.Format(time.DateOnly), d.MaxTemperature, d.AvgTemperature, d.MinTemperature)
		}
		if i > 0 && !days[i-1].Date.AddDate(0, 0, 1).Equal(d.Date) {
			p.errorf("gap between %s and %s", days[i-1].Date.Format(time.DateOnly), d.Date.Format(time.DateOnly))
		}
	}
	fmt.Printf("Fixture covers %d days (%s .. %s)\n", len(days),
		days[0].Date.Format(time.DateOnly), days[len(days)-1].Date.Format(time.DateOnly))
	return p
}

// validateTierChain replays the fixture at several depths and checks that each
// lands on the expected tier with a well-formed result.
func validateTierChain(rt model.Runtime, ranges domain.FeatureRanges, samples []domain.Sample) *phase {
	p := &phase{name: "Phase 4: Tier chain replay"}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := observability.NewMetricsForTesting()
	adapter := model.NewAdapter(rt, "validate", ranges,
		model.BreakerSettings{MaxFailures: 3, OpenTimeout: time.Minute}, logger, metrics)

	last := samples[len(samples)-1].Timestamp
	y, m, d := last.Date()
	morningAfter := time.Date(y, m, d+1, 6, 0, 0, 0, last.Location())

	days, _ := domain.Aggregate(samples, len(samples), 1)
	want := domain.ModelStatisticalTrend
	if len(days) >= domain.ModelWindowDays {
		want = domain.ModelTFLite
	}

	cases := []struct {
		name    string
		samples []domain.Sample
		want    domain.ModelUsed
	}{
		{name: "full fixture", samples: samples, want: want},
		{name: "last two days", samples: lastDays(samples, 2), want: domain.ModelStatisticalFallback},
		{name: "no samples", samples: nil, want: domain.ModelDefault},
	}

	for _, tc := range cases {
		store := memory.NewStore(0)
		if err := store.InsertSamples(context.Background(), tc.samples); err != nil {
			p.errorf("%s: insert: %v", tc.name, err)
			continue
		}
		engine := forecast.NewEngine(store, adapter, clockwork.NewFakeClockAt(morningAfter), logger, metrics)
		result, err := engine.ForecastTomorrow(context.Background())
		if err != nil {
			p.errorf("%s: %v", tc.name, err)
			continue
		}
		r := result.Rounded()
		fmt.Printf("  %-14s -> %-20s avg=%5.1f max=%5.1f min=%5.1f points=%d\n",
			tc.name, r.ModelUsed, r.AvgTemperature, r.MaxTemperature, r.MinTemperature, r.DataPointsUsed)

		if result.ModelUsed != tc.want {
			p.errorf("%s: model %s, want %s", tc.name, result.ModelUsed, tc.want)
		}
		if result.Confidence != result.ModelUsed.Confidence() {
			p.errorf("%s: confidence %s does not match tier %s", tc.name, result.Confidence, result.ModelUsed)
		}
		if result.MaxTemperature < result.AvgTemperature || result.AvgTemperature < result.MinTemperature {
			p.errorf("%s: max %.2f, avg %.2f, min %.2f out of order", tc.name, result.MaxTemperature, result.AvgTemperature, result.MinTemperature)
		}
		if !result.PredictionDate.Equal(time.Date(y, m, d+2, 0, 0, 0, 0, last.Location())) {
			p.errorf("%s: prediction date %s", tc.name, result.PredictionDate.Format(time.DateOnly))
		}
	}
	return p
}

func lastDays(samples []domain.Sample, n int) []domain.Sample {
	cutoff := samples[len(samples)-1].Timestamp.AddDate(0, 0, -n)
	out := make([]domain.Sample, 0, n*24)
	for _, s := range samples {
		if s.Timestamp.After(cutoff) {
			out = append(out, s)
		}
	}
	return out
}
