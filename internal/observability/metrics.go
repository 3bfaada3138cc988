package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "weather_forecast"

// Metrics holds the Prometheus counters, histograms, and gauges for sample
// ingestion and forecasting.
type Metrics struct {
	// Ingest pipeline metrics.
	MessagesConsumed        prometheus.Counter
	SamplesStored           prometheus.Counter
	InvalidSamples          prometheus.Counter
	PipelineRunning         prometheus.Gauge
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram

	// Forecast metrics.
	Forecasts        *prometheus.CounterVec // labels: model_used
	ForecastErrors   prometheus.Counter
	ForecastDuration prometheus.Histogram
	TierSkipped      *prometheus.CounterVec // labels: tier, reason={insufficient,unavailable,fault}
	ForecastCache    *prometheus.CounterVec // labels: result={hit,miss}

	// Inference metrics.
	InferenceRequests *prometheus.CounterVec // labels: outcome={success,fault,rejected}
	InferenceDuration prometheus.Histogram
	BreakerOpen       prometheus.Gauge
	ModelAvailable    prometheus.Gauge

	// Publisher metrics.
	ForecastsPublished prometheus.Counter
	PublishErrors      prometheus.Counter
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics(true)
	prometheus.MustRegister(
		m.MessagesConsumed,
		m.SamplesStored,
		m.InvalidSamples,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.Forecasts,
		m.ForecastErrors,
		m.ForecastDuration,
		m.TierSkipped,
		m.ForecastCache,
		m.InferenceRequests,
		m.InferenceDuration,
		m.BreakerOpen,
		m.ModelAvailable,
		m.ForecastsPublished,
		m.PublishErrors,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics(false)
}

func newMetrics(withHelp bool) *Metrics {
	help := func(s string) string {
		if withHelp {
			return s
		}
		return ""
	}
	return &Metrics{
		MessagesConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_consumed_total",
			Help:      help("Total messages read from the source topic."),
		}),
		SamplesStored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "samples_stored_total",
			Help:      help("Total samples written to the sample store."),
		}),
		InvalidSamples: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invalid_samples_total",
			Help:      help("Total messages rejected during parsing or validation."),
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      help("1 when the ingest pipeline is active, 0 when shut down."),
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      help("Number of messages per batch extracted from Kafka."),
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_processing_duration_seconds",
			Help:      help("Duration of a complete batch extract-parse-store cycle."),
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		Forecasts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forecasts_total",
			Help:      help("Forecasts produced by tier."),
		}, []string{"model_used"}),
		ForecastErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forecast_errors_total",
			Help:      help("Forecast requests that failed because the sample store was unavailable."),
		}),
		ForecastDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "forecast_duration_seconds",
			Help:      help("Duration of a full tiered forecast evaluation."),
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		TierSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tier_skipped_total",
			Help:      help("Forecast tiers that could not produce a result, by reason."),
		}, []string{"tier", "reason"}),
		ForecastCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forecast_cache_total",
			Help:      help("Forecast cache lookups by result."),
		}, []string{"result"}),
		InferenceRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inference_requests_total",
			Help:      help("Model invocations by outcome."),
		}, []string{"outcome"}),
		InferenceDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "inference_duration_seconds",
			Help:      help("Model invocation duration in seconds."),
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}),
		BreakerOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "inference_breaker_open",
			Help:      help("1 while the inference circuit breaker is open."),
		}),
		ModelAvailable: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_available",
			Help:      help("1 when a model artifact was loaded at startup, 0 otherwise."),
		}),
		ForecastsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forecasts_published_total",
			Help:      help("Forecasts written to the sink topic."),
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_errors_total",
			Help:      help("Scheduled forecast publications that failed."),
		}),
	}
}
