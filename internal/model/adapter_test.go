package model

import (
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/couchcryptid/weather-forecast-service/internal/domain"
	"github.com/couchcryptid/weather-forecast-service/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testBreaker = BreakerSettings{MaxFailures: 3, OpenTimeout: time.Minute}

func persistenceAdapter(t *testing.T) *Adapter {
	t.Helper()
	q, err := PersistenceModel()
	require.NoError(t, err)
	return NewAdapter(q, "persistence", domain.DefaultFeatureRanges(), testBreaker, discardLogger(), observability.NewMetricsForTesting())
}

func failingRuntime(fn func([]float32) ([]float32, error)) *stubRuntime {
	return &stubRuntime{in: InputShape, out: OutputShape, fn: fn}
}

func TestAdapter_Unavailable(t *testing.T) {
	metrics := observability.NewMetricsForTesting()
	a := NewAdapter(nil, "", nil, testBreaker, discardLogger(), metrics)

	assert.False(t, a.Available())
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.ModelAvailable))

	_, err := a.Predict(constantDays(30, 20, 25, 15))
	require.ErrorIs(t, err, domain.ErrModelUnavailable)
}

func TestAdapter_ShapeMismatchIsUnavailable(t *testing.T) {
	rt := &stubRuntime{in: Shape{14, 6}, out: OutputShape, fn: func([]float32) ([]float32, error) { return nil, nil }}
	a := NewAdapter(rt, "short.qlm.json", nil, testBreaker, discardLogger(), observability.NewMetricsForTesting())

	assert.False(t, a.Available())
	_, err := a.Predict(constantDays(30, 20, 25, 15))
	require.ErrorIs(t, err, domain.ErrModelUnavailable)
	assert.Equal(t, int64(0), rt.calls.Load())
}

func TestAdapter_OpenMissingArtifact(t *testing.T) {
	a := Open("does/not/exist.qlm.json", nil, testBreaker, discardLogger(), observability.NewMetricsForTesting())
	assert.False(t, a.Available())
	assert.Equal(t, "does/not/exist.qlm.json", a.Info().Path)

	a = Open("", nil, testBreaker, discardLogger(), observability.NewMetricsForTesting())
	assert.False(t, a.Available())
}

func TestAdapter_PredictPersistence(t *testing.T) {
	a := persistenceAdapter(t)
	require.True(t, a.Available())

	days := constantDays(30, 20, 26, 14)
	days[29].AvgTemperature = 22
	days[29].MaxTemperature = 28
	days[29].MinTemperature = 16

	pred, err := a.Predict(days)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, pred.Precipitation, 1e-3)
	assert.InDelta(t, 22.0, pred.AvgTemperature, 1e-3)
	assert.InDelta(t, 28.0, pred.MaxTemperature, 1e-3)
	assert.InDelta(t, 16.0, pred.MinTemperature, 1e-3)
}

func TestAdapter_RefusesWrongLength(t *testing.T) {
	for _, n := range []int{0, 29, 31} {
		a := persistenceAdapter(t)
		_, err := a.Predict(constantDays(n, 20, 25, 15))
		require.ErrorIs(t, err, domain.ErrInsufficientData, "n=%d", n)
	}
}

func TestAdapter_EncodesNormalizedRows(t *testing.T) {
	var got []float32
	rt := failingRuntime(func(in []float32) ([]float32, error) {
		got = append([]float32(nil), in...)
		return []float32{0, 0.5, 0.6, 0.4}, nil
	})
	a := NewAdapter(rt, "", domain.DefaultFeatureRanges(), testBreaker, discardLogger(), observability.NewMetricsForTesting())

	days := constantDays(30, 15, 50, -20)
	_, err := a.Predict(days)
	require.NoError(t, err)

	require.Len(t, got, 180)
	row := got[29*6 : 30*6]
	assert.InDelta(t, 0.0, row[0], 1e-6)
	assert.InDelta(t, 0.5, row[1], 1e-6)
	assert.InDelta(t, 1.0, row[2], 1e-6)
	assert.InDelta(t, 0.0, row[3], 1e-6)
	assert.InDelta(t, days[29].DaySin, row[4], 1e-6)
	assert.InDelta(t, days[29].DayCos, row[5], 1e-6)
}

func TestAdapter_Faults(t *testing.T) {
	tests := []struct {
		name string
		fn   func([]float32) ([]float32, error)
	}{
		{"runtime error", func([]float32) ([]float32, error) { return nil, errors.New("delegate failed") }},
		{"runtime panic", func([]float32) ([]float32, error) { panic("tensor arena exhausted") }},
		{"wrong output length", func([]float32) ([]float32, error) { return []float32{0.5}, nil }},
		{"NaN output", func([]float32) ([]float32, error) { return []float32{0, float32(math.NaN()), 0.5, 0.5}, nil }},
		{"infinite output", func([]float32) ([]float32, error) { return []float32{0, 0.5, float32(math.Inf(1)), 0.5}, nil }},
		{"max below min", func([]float32) ([]float32, error) { return []float32{0, 0.5, 0.2, 0.8}, nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			metrics := observability.NewMetricsForTesting()
			a := NewAdapter(failingRuntime(tt.fn), "", nil, testBreaker, discardLogger(), metrics)

			_, err := a.Predict(constantDays(30, 20, 25, 15))
			require.ErrorIs(t, err, domain.ErrInferenceFault)
			assert.Equal(t, 1.0, testutil.ToFloat64(metrics.InferenceRequests.WithLabelValues("fault")))
		})
	}
}

func TestAdapter_BreakerOpensAfterConsecutiveFaults(t *testing.T) {
	metrics := observability.NewMetricsForTesting()
	rt := failingRuntime(func([]float32) ([]float32, error) { return nil, errors.New("boom") })
	a := NewAdapter(rt, "", nil, BreakerSettings{MaxFailures: 2, OpenTimeout: time.Hour}, discardLogger(), metrics)
	days := constantDays(30, 20, 25, 15)

	for i := 0; i < 2; i++ {
		_, err := a.Predict(days)
		require.ErrorIs(t, err, domain.ErrInferenceFault)
	}
	assert.Equal(t, "open", a.Info().BreakerState)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.BreakerOpen))

	_, err := a.Predict(days)
	require.ErrorIs(t, err, domain.ErrInferenceFault)
	assert.Equal(t, int64(2), rt.calls.Load(), "open breaker must not reach the runtime")
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.InferenceRequests.WithLabelValues("rejected")))
}

func TestAdapter_InsufficientDataDoesNotTripBreaker(t *testing.T) {
	a := NewAdapter(failingRuntime(func([]float32) ([]float32, error) { return []float32{0, 0.5, 0.6, 0.4}, nil }),
		"", nil, BreakerSettings{MaxFailures: 1, OpenTimeout: time.Hour}, discardLogger(), observability.NewMetricsForTesting())

	for i := 0; i < 3; i++ {
		_, err := a.Predict(constantDays(10, 20, 25, 15))
		require.ErrorIs(t, err, domain.ErrInsufficientData)
	}
	assert.Equal(t, "closed", a.Info().BreakerState)
}

func TestAdapter_ConcurrentPredict(t *testing.T) {
	a := persistenceAdapter(t)
	days := constantDays(30, 18, 24, 12)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pred, err := a.Predict(days)
			assert.NoError(t, err)
			assert.InDelta(t, 18.0, pred.AvgTemperature, 1e-3)
		}()
	}
	wg.Wait()
}

func TestAdapter_Info(t *testing.T) {
	info := persistenceAdapter(t).Info()
	assert.True(t, info.Available)
	assert.Equal(t, "(30, 6)", info.InputShape)
	assert.Equal(t, "(4)", info.OutputShape)
	assert.Equal(t, "closed", info.BreakerState)
	assert.Contains(t, info.FeatureRanges, domain.FeatureTemperature)
}
