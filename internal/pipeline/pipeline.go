package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/weather-forecast-service/internal/domain"
	"github.com/couchcryptid/weather-forecast-service/internal/observability"
)

// Retry delays after a failed extract or store. The delay doubles on each
// consecutive failure and resets once a batch is ingested.
const (
	minRetryDelay = 200 * time.Millisecond
	maxRetryDelay = 5 * time.Second
)

// BatchExtractor reads up to batchSize raw events from the source.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawEvent, error)
}

// Transformer converts a raw event into a validated sample.
type Transformer interface {
	Transform(ctx context.Context, raw domain.RawEvent) (domain.Sample, error)
}

// SampleLoader writes a batch of samples to the sample store.
type SampleLoader interface {
	InsertSamples(ctx context.Context, samples []domain.Sample) error
}

// Pipeline moves sensor readings from the source topic into the sample store.
type Pipeline struct {
	extractor   BatchExtractor
	transformer Transformer
	loader      SampleLoader
	logger      *slog.Logger
	metrics     *observability.Metrics
	ready       atomic.Bool
	batchSize   int
}

// New creates a Pipeline with the given stages and observability.
func New(e BatchExtractor, t Transformer, l SampleLoader, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Pipeline {
	return &Pipeline{
		extractor:   e,
		transformer: t,
		loader:      l,
		logger:      logger,
		metrics:     metrics,
		batchSize:   batchSize,
	}
}

// CheckReadiness reports ready once at least one sample has reached the store.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not stored any samples yet")
	}
	return nil
}

// Run ingests batches until ctx is cancelled. Failures are logged and retried;
// Run itself only returns on shutdown.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("ingest started", "batch_size", p.batchSize)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	delay := minRetryDelay
	for ctx.Err() == nil {
		err := p.ingest(ctx)
		if err == nil {
			delay = minRetryDelay
			continue
		}
		if ctx.Err() != nil {
			break
		}
		p.logger.Error("ingest failed, retrying", "error", err, "retry_in", delay)
		if !sleep(ctx, delay) {
			break
		}
		delay = min(delay*2, maxRetryDelay)
	}

	p.logger.Info("ingest stopping", "reason", ctx.Err())
	return nil
}

// readings is one extracted batch split by validity. Accepted events keep the
// same order as samples.
type readings struct {
	samples  []domain.Sample
	accepted []domain.RawEvent
	rejected []domain.RawEvent
}

// ingest reads one batch and stores its valid samples. Rejected readings are
// committed straight away since redelivery cannot fix them. Accepted readings
// are committed only after the store has them, so a failed insert leaves them
// for redelivery.
func (p *Pipeline) ingest(ctx context.Context) error {
	start := time.Now()

	raws, err := p.extractor.ExtractBatch(ctx, p.batchSize)
	if err != nil {
		return fmt.Errorf("extract batch: %w", err)
	}
	if len(raws) == 0 {
		return nil
	}
	p.metrics.MessagesConsumed.Add(float64(len(raws)))
	p.metrics.BatchSize.Observe(float64(len(raws)))

	batch := p.split(ctx, raws)
	p.commit(ctx, batch.rejected)
	if len(batch.samples) == 0 {
		return nil
	}

	if err := p.loader.InsertSamples(ctx, batch.samples); err != nil {
		return fmt.Errorf("store %d samples: %w", len(batch.samples), err)
	}
	p.metrics.SamplesStored.Add(float64(len(batch.samples)))
	p.commit(ctx, batch.accepted)
	p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())

	if !p.ready.Swap(true) {
		p.logger.Info("first samples stored",
			"count", len(batch.samples),
			"newest", batch.samples[len(batch.samples)-1].Timestamp,
		)
	}
	return nil
}

func (p *Pipeline) split(ctx context.Context, raws []domain.RawEvent) readings {
	r := readings{
		samples:  make([]domain.Sample, 0, len(raws)),
		accepted: make([]domain.RawEvent, 0, len(raws)),
	}
	for _, raw := range raws {
		s, err := p.transformer.Transform(ctx, raw)
		if err != nil {
			p.logger.Warn("rejected sensor reading",
				"error", err,
				"partition", raw.Partition,
				"offset", raw.Offset,
			)
			p.metrics.InvalidSamples.Inc()
			r.rejected = append(r.rejected, raw)
			continue
		}
		r.samples = append(r.samples, s)
		r.accepted = append(r.accepted, raw)
	}
	return r
}

// commit acknowledges events that carry a commit callback. A failed commit
// only means the reading may be delivered again.
func (p *Pipeline) commit(ctx context.Context, raws []domain.RawEvent) {
	for _, raw := range raws {
		if raw.Commit == nil {
			continue
		}
		if err := raw.Commit(ctx); err != nil {
			p.logger.Warn("commit offset failed", "error", err,
				"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
