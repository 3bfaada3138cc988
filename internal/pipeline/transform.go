package pipeline

import (
	"context"

	"github.com/couchcryptid/weather-forecast-service/internal/domain"
	"github.com/jonboulle/clockwork"
)

// SampleTransformer implements Transformer by decoding and validating the
// sensor JSON payload. Readings with no timestamp anywhere are stamped with
// the transformer's clock.
type SampleTransformer struct {
	clock clockwork.Clock
}

// NewTransformer creates a SampleTransformer.
func NewTransformer(clock clockwork.Clock) *SampleTransformer {
	return &SampleTransformer{clock: clock}
}

func (t *SampleTransformer) Transform(_ context.Context, raw domain.RawEvent) (domain.Sample, error) {
	return domain.ParseSample(raw, t.clock)
}
