package forecast

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/couchcryptid/weather-forecast-service/internal/domain"
	"github.com/couchcryptid/weather-forecast-service/internal/observability"
	"github.com/jonboulle/clockwork"
)

// LatestSampler exposes the most recent stored sample.
type LatestSampler interface {
	Latest(ctx context.Context) (domain.Sample, bool, error)
}

// CachedForecaster memoizes forecasts per prediction date and latest sample.
// A new sample or a new day changes the key, so stale entries are never served.
type CachedForecaster struct {
	inner   Forecaster
	latest  LatestSampler
	clock   clockwork.Clock
	metrics *observability.Metrics
	cache   *forecastLRU
}

// NewCachedForecaster creates a cache decorator around a forecaster.
func NewCachedForecaster(inner Forecaster, latest LatestSampler, clock clockwork.Clock, metrics *observability.Metrics, maxEntries int) *CachedForecaster {
	return &CachedForecaster{
		inner:   inner,
		latest:  latest,
		clock:   clock,
		metrics: metrics,
		cache:   newForecastLRU(maxEntries),
	}
}

func (c *CachedForecaster) ForecastTomorrow(ctx context.Context) (domain.PredictionResult, error) {
	last, ok, err := c.latest.Latest(ctx)
	if err != nil {
		return domain.PredictionResult{}, storeError("latest sample", err)
	}
	if !ok {
		return c.inner.ForecastTomorrow(ctx)
	}

	key := forecastKey{
		date:   startOfDay(c.clock.Now()).AddDate(0, 0, 1).Format(time.DateOnly),
		latest: last.Timestamp.UnixNano(),
	}
	if result, ok := c.cache.get(key); ok {
		c.metrics.ForecastCache.WithLabelValues("hit").Inc()
		return result, nil
	}
	c.metrics.ForecastCache.WithLabelValues("miss").Inc()

	result, err := c.inner.ForecastTomorrow(ctx)
	if err != nil {
		return result, err
	}
	// Default-tier results are never cached.
	if result.ModelUsed != domain.ModelDefault {
		c.cache.put(key, result)
	}
	return result, nil
}

// forecastKey identifies a forecast by the day it predicts and the newest
// sample it could have seen.
type forecastKey struct {
	date   string
	latest int64
}

type cachedForecast struct {
	key    forecastKey
	result domain.PredictionResult
}

// forecastLRU holds at most maxEntries forecasts, evicting the least recently
// read. The list front is the most recent entry.
type forecastLRU struct {
	maxEntries int
	mu         sync.Mutex
	order      *list.List
	byKey      map[forecastKey]*list.Element
}

func newForecastLRU(maxEntries int) *forecastLRU {
	return &forecastLRU{
		maxEntries: maxEntries,
		order:      list.New(),
		byKey:      make(map[forecastKey]*list.Element),
	}
}

func (c *forecastLRU) get(key forecastKey) (domain.PredictionResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.byKey[key]
	if !ok {
		return domain.PredictionResult{}, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*cachedForecast).result, true
}

func (c *forecastLRU) put(key forecastKey, result domain.PredictionResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.byKey[key]; ok {
		el.Value.(*cachedForecast).result = result
		c.order.MoveToFront(el)
		return
	}
	c.byKey[key] = c.order.PushFront(&cachedForecast{key: key, result: result})

	for c.order.Len() > c.maxEntries {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.byKey, oldest.Value.(*cachedForecast).key)
	}
}

func (c *forecastLRU) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
