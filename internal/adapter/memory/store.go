// Package memory provides an in-process sample store for development and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/couchcryptid/weather-forecast-service/internal/domain"
)

// Store is a concurrency-safe in-memory sample store kept sorted by timestamp.
type Store struct {
	mu         sync.RWMutex
	samples    []domain.Sample
	maxSamples int // <= 0 means unlimited
}

// NewStore creates a Store that retains at most maxSamples of the newest samples.
func NewStore(maxSamples int) *Store {
	return &Store{maxSamples: maxSamples}
}

// InsertSamples adds samples, keeping the slice ordered by timestamp.
func (s *Store) InsertSamples(_ context.Context, samples []domain.Sample) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, smp := range samples {
		smp.Timestamp = smp.Timestamp.UTC()
		i := sort.Search(len(s.samples), func(i int) bool {
			return s.samples[i].Timestamp.After(smp.Timestamp)
		})
		s.samples = append(s.samples, domain.Sample{})
		copy(s.samples[i+1:], s.samples[i:])
		s.samples[i] = smp
	}

	if s.maxSamples > 0 && len(s.samples) > s.maxSamples {
		over := len(s.samples) - s.maxSamples
		s.samples = append([]domain.Sample(nil), s.samples[over:]...)
	}
	return nil
}

// QueryRange returns samples with from <= timestamp <= to, oldest first.
func (s *Store) QueryRange(_ context.Context, from, to time.Time) ([]domain.Sample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lo := sort.Search(len(s.samples), func(i int) bool { return !s.samples[i].Timestamp.Before(from) })
	hi := sort.Search(len(s.samples), func(i int) bool { return s.samples[i].Timestamp.After(to) })
	if lo >= hi {
		return []domain.Sample{}, nil
	}
	return append([]domain.Sample(nil), s.samples[lo:hi]...), nil
}

// QueryRecentAverage averages every sample at or after since.
func (s *Store) QueryRecentAverage(_ context.Context, since time.Time) (domain.RecentAverage, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lo := sort.Search(len(s.samples), func(i int) bool { return !s.samples[i].Timestamp.Before(since) })
	window := s.samples[lo:]
	if len(window) == 0 {
		return domain.RecentAverage{}, false, nil
	}

	var avg domain.RecentAverage
	for _, smp := range window {
		avg.AvgTemperature += smp.Temperature
		avg.AvgHumidity += smp.Humidity
	}
	n := float64(len(window))
	avg.AvgTemperature /= n
	avg.AvgHumidity /= n
	avg.Samples = len(window)
	return avg, true, nil
}

// Latest returns the newest sample.
func (s *Store) Latest(_ context.Context) (domain.Sample, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.samples) == 0 {
		return domain.Sample{}, false, nil
	}
	return s.samples[len(s.samples)-1], true, nil
}

// CheckReadiness always succeeds; the store lives in process memory.
func (s *Store) CheckReadiness(_ context.Context) error {
	return nil
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}
