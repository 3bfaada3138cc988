package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/couchcryptid/weather-forecast-service/internal/adapter/memory"
	"github.com/couchcryptid/weather-forecast-service/internal/domain"
	"github.com/couchcryptid/weather-forecast-service/internal/model"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)

type stubForecaster struct {
	result domain.PredictionResult
	err    error
}

func (s stubForecaster) ForecastTomorrow(context.Context) (domain.PredictionResult, error) {
	return s.result, s.err
}

type failingSamples struct{}

func (failingSamples) QueryRange(context.Context, time.Time, time.Time) ([]domain.Sample, error) {
	return nil, fmt.Errorf("%w: dial tcp", domain.ErrStoreUnavailable)
}

func (failingSamples) Latest(context.Context) (domain.Sample, bool, error) {
	return domain.Sample{}, false, fmt.Errorf("%w: dial tcp", domain.ErrStoreUnavailable)
}

type stubModel struct{ info model.Info }

func (s stubModel) Info() model.Info { return s.info }

func testDeps(f stubForecaster, samples SampleReader) Deps {
	return Deps{
		Forecaster: f,
		Samples:    samples,
		Model:      stubModel{info: model.Info{Available: false, BreakerState: "closed", FeatureRanges: domain.DefaultFeatureRanges()}},
		Clock:      clockwork.NewFakeClockAt(now),
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func get(t *testing.T, deps Deps, target string) (int, map[string]any) {
	t.Helper()
	resp, err := NewApp(deps).Test(httptest.NewRequest(http.MethodGet, target, nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestForecastEndpoint(t *testing.T) {
	humidity := 58.04
	result := domain.NewPrediction(now.AddDate(0, 0, 1).Truncate(24*time.Hour), domain.ModelStatisticalFallback, 26.26, 31.26, 23.76, 0, &humidity, 120)

	code, body := get(t, testDeps(stubForecaster{result: result}, memory.NewStore(0)), "/api/v1/forecast")

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "statistical_fallback", body["model_used"])
	assert.Equal(t, "low", body["confidence"])
	assert.Equal(t, 26.3, body["avg_temperature"])
	assert.Equal(t, 58.0, body["humidity"])
	assert.Equal(t, "Warm", body["condition"])
	assert.Equal(t, "2025-07-01T12:00:00Z", body["generated_at"])
	assert.NotEmpty(t, body["id"])
}

func TestForecastEndpoint_StoreUnavailable(t *testing.T) {
	f := stubForecaster{err: fmt.Errorf("trend tier: %w", domain.ErrStoreUnavailable)}
	code, body := get(t, testDeps(f, memory.NewStore(0)), "/api/v1/forecast")

	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "sample store unavailable", body["error"])
}

func TestLatestSample(t *testing.T) {
	store := memory.NewStore(0)
	deps := testDeps(stubForecaster{}, store)

	code, _ := get(t, deps, "/api/v1/samples/latest")
	assert.Equal(t, http.StatusNotFound, code)

	require.NoError(t, store.InsertSamples(context.Background(), []domain.Sample{
		{Timestamp: now.Add(-2 * time.Hour), Temperature: 19, Humidity: 60},
		{Timestamp: now.Add(-time.Hour), Temperature: 21, Humidity: 55},
	}))
	code, body := get(t, deps, "/api/v1/samples/latest")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 21.0, body["temperature"])

	code, _ = get(t, testDeps(stubForecaster{}, failingSamples{}), "/api/v1/samples/latest")
	assert.Equal(t, http.StatusServiceUnavailable, code)
}

func TestSamplesRange(t *testing.T) {
	store := memory.NewStore(0)
	require.NoError(t, store.InsertSamples(context.Background(), []domain.Sample{
		{Timestamp: now.Add(-3 * time.Hour), Temperature: 18, Humidity: 60},
		{Timestamp: now.Add(-time.Hour), Temperature: 20, Humidity: 60},
	}))

	code, body := get(t, testDeps(stubForecaster{}, store), "/api/v1/samples?from=2025-07-01T10:00:00Z&to=2025-07-01T12:00:00Z")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1.0, body["count"])
}

func TestSamplesRange_Validation(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{name: "missing to", query: "from=2025-07-01T00:00:00Z"},
		{name: "bad format", query: "from=yesterday&to=2025-07-01T00:00:00Z"},
		{name: "to before from", query: "from=2025-07-02T00:00:00Z&to=2025-07-01T00:00:00Z"},
		{name: "equal bounds", query: "from=2025-07-01T00:00:00Z&to=2025-07-01T00:00:00Z"},
		{name: "too wide", query: "from=2025-05-01T00:00:00Z&to=2025-07-01T00:00:00Z"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := get(t, testDeps(stubForecaster{}, memory.NewStore(0)), "/api/v1/samples?"+tt.query)
			assert.Equal(t, http.StatusBadRequest, code)
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestSamplesRange_StoreUnavailable(t *testing.T) {
	code, _ := get(t, testDeps(stubForecaster{}, failingSamples{}), "/api/v1/samples?from=2025-07-01T00:00:00Z&to=2025-07-01T06:00:00Z")
	assert.Equal(t, http.StatusServiceUnavailable, code)
}

func TestModelEndpoint(t *testing.T) {
	code, body := get(t, testDeps(stubForecaster{}, memory.NewStore(0)), "/api/v1/model")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, body["available"])
	assert.Equal(t, "closed", body["breaker_state"])
	assert.Contains(t, body["feature_ranges"], "temperature")
}
