package model

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/couchcryptid/weather-forecast-service/internal/domain"
	"github.com/couchcryptid/weather-forecast-service/internal/observability"
	"github.com/sony/gobreaker"
)

// Prediction is the model output in physical units.
type Prediction struct {
	Precipitation  float64
	AvgTemperature float64
	MaxTemperature float64
	MinTemperature float64
}

// BreakerSettings controls when repeated inference faults stop reaching the model.
type BreakerSettings struct {
	MaxFailures uint32
	OpenTimeout time.Duration
}

// Info describes the loaded model for diagnostics.
type Info struct {
	Available     bool                 `json:"available"`
	Path          string               `json:"path,omitempty"`
	InputShape    string               `json:"input_shape,omitempty"`
	OutputShape   string               `json:"output_shape,omitempty"`
	BreakerState  string               `json:"breaker_state"`
	FeatureRanges domain.FeatureRanges `json:"feature_ranges"`
}

// Adapter runs the forecast model behind a capability check. An adapter
// without a usable runtime reports Available() == false and every Predict
// returns ErrModelUnavailable.
type Adapter struct {
	runtime Runtime
	path    string
	ranges  domain.FeatureRanges
	breaker *gobreaker.CircuitBreaker
	logger  *slog.Logger
	metrics *observability.Metrics
}

// Open loads the artifact at path. Load failures and shape mismatches are
// logged and leave the adapter unavailable.
func Open(path string, ranges domain.FeatureRanges, settings BreakerSettings, logger *slog.Logger, metrics *observability.Metrics) *Adapter {
	if path == "" {
		logger.Info("no model artifact found, model tier disabled")
		return NewAdapter(nil, "", ranges, settings, logger, metrics)
	}
	rt, err := Load(path)
	if err != nil {
		logger.Warn("model artifact failed to load, model tier disabled", "path", path, "error", err)
		return NewAdapter(nil, path, ranges, settings, logger, metrics)
	}
	return NewAdapter(rt, path, ranges, settings, logger, metrics)
}

// NewAdapter wraps an already loaded runtime. A nil runtime, or one whose
// shapes differ from InputShape and OutputShape, yields an unavailable adapter.
func NewAdapter(rt Runtime, path string, ranges domain.FeatureRanges, settings BreakerSettings, logger *slog.Logger, metrics *observability.Metrics) *Adapter {
	if rt != nil && (!rt.InputShape().Equal(InputShape) || !rt.OutputShape().Equal(OutputShape)) {
		logger.Warn("model shape mismatch, model tier disabled",
			"path", path,
			"input_shape", rt.InputShape().String(),
			"output_shape", rt.OutputShape().String(),
			"want_input", InputShape.String(),
			"want_output", OutputShape.String(),
		)
		rt = nil
	}
	if ranges == nil {
		ranges = domain.DefaultFeatureRanges()
	}

	a := &Adapter{
		runtime: rt,
		path:    path,
		ranges:  ranges,
		logger:  logger,
		metrics: metrics,
	}
	a.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "inference",
		MaxRequests: 1,
		Timeout:     settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return settings.MaxFailures > 0 && counts.ConsecutiveFailures >= settings.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("inference breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
			if to == gobreaker.StateOpen {
				metrics.BreakerOpen.Set(1)
			} else {
				metrics.BreakerOpen.Set(0)
			}
		},
	})

	if rt != nil {
		metrics.ModelAvailable.Set(1)
		logger.Info("model loaded", "path", path, "input_shape", rt.InputShape().String(), "output_shape", rt.OutputShape().String())
	} else {
		metrics.ModelAvailable.Set(0)
	}
	return a
}

// Available reports whether a model was loaded and passed the shape check.
func (a *Adapter) Available() bool {
	return a.runtime != nil
}

// Info returns the adapter's current state.
func (a *Adapter) Info() Info {
	info := Info{
		Available:     a.Available(),
		Path:          a.path,
		BreakerState:  a.breaker.State().String(),
		FeatureRanges: a.ranges,
	}
	if a.runtime != nil {
		info.InputShape = a.runtime.InputShape().String()
		info.OutputShape = a.runtime.OutputShape().String()
	}
	return info
}

// Predict runs the model on exactly 30 daily vectors, oldest first. It never
// pads or truncates. Runtime errors, panics, and implausible outputs are
// reported as ErrInferenceFault.
func (a *Adapter) Predict(days []domain.DailyFeatureVector) (Prediction, error) {
	if a.runtime == nil {
		return Prediction{}, domain.ErrModelUnavailable
	}
	if len(days) != InputShape[0] {
		return Prediction{}, fmt.Errorf("%w: model needs %d days, got %d", domain.ErrInsufficientData, InputShape[0], len(days))
	}

	input := a.encode(days)
	start := time.Now()
	result, err := a.breaker.Execute(func() (interface{}, error) {
		return a.invoke(input)
	})
	a.metrics.InferenceDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			a.metrics.InferenceRequests.WithLabelValues("rejected").Inc()
		} else {
			a.metrics.InferenceRequests.WithLabelValues("fault").Inc()
		}
		if errors.Is(err, domain.ErrInferenceFault) {
			return Prediction{}, err
		}
		return Prediction{}, fmt.Errorf("%w: %w", domain.ErrInferenceFault, err)
	}

	a.metrics.InferenceRequests.WithLabelValues("success").Inc()
	return result.(Prediction), nil
}

// encode normalizes each day into the model's column order. The seasonal
// columns are already in [-1, 1] and are passed through.
func (a *Adapter) encode(days []domain.DailyFeatureVector) []float32 {
	cols := InputShape[1]
	input := make([]float32, 0, len(days)*cols)
	for _, d := range days {
		input = append(input,
			float32(a.ranges.Normalize(d.Precipitation, domain.FeaturePrecipitation)),
			float32(a.ranges.Normalize(d.AvgTemperature, domain.FeatureTemperature)),
			float32(a.ranges.Normalize(d.MaxTemperature, domain.FeatureTemperature)),
			float32(a.ranges.Normalize(d.MinTemperature, domain.FeatureTemperature)),
			float32(d.DaySin),
			float32(d.DayCos),
		)
	}
	return input
}

func (a *Adapter) invoke(input []float32) (pred Prediction, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: runtime panic: %v", domain.ErrInferenceFault, r)
		}
	}()

	out, err := a.runtime.Invoke(input)
	if err != nil {
		return Prediction{}, fmt.Errorf("%w: %w", domain.ErrInferenceFault, err)
	}
	if len(out) != OutputShape[0] {
		return Prediction{}, fmt.Errorf("%w: model returned %d values, want %d", domain.ErrInferenceFault, len(out), OutputShape[0])
	}

	pred = Prediction{
		Precipitation:  a.ranges.Denormalize(float64(out[0]), domain.FeaturePrecipitation),
		AvgTemperature: a.ranges.Denormalize(float64(out[1]), domain.FeatureTemperature),
		MaxTemperature: a.ranges.Denormalize(float64(out[2]), domain.FeatureTemperature),
		MinTemperature: a.ranges.Denormalize(float64(out[3]), domain.FeatureTemperature),
	}
	for _, v := range []float64{pred.Precipitation, pred.AvgTemperature, pred.MaxTemperature, pred.MinTemperature} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Prediction{}, fmt.Errorf("%w: non-finite model output", domain.ErrInferenceFault)
		}
	}
	if pred.MaxTemperature < pred.MinTemperature {
		return Prediction{}, fmt.Errorf("%w: predicted max %.2f below min %.2f", domain.ErrInferenceFault, pred.MaxTemperature, pred.MinTemperature)
	}
	return pred, nil
}
