package domain

import (
	"fmt"
	"sort"
)

// Feature names with configurable normalization ranges. Temperature covers
// the average, maximum and minimum columns alike.
const (
	FeatureTemperature   = "temperature"
	FeatureHumidity      = "humidity"
	FeaturePrecipitation = "precipitation"
)

// FeatureRange holds the min-max bounds used to scale one feature.
type FeatureRange struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// FeatureRanges maps feature names to their bounds.
type FeatureRanges map[string]FeatureRange

// DefaultFeatureRanges returns the bounds used when no model config is found.
func DefaultFeatureRanges() FeatureRanges {
	return FeatureRanges{
		FeatureTemperature:   {Min: -20, Max: 50},
		FeatureHumidity:      {Min: 0, Max: 100},
		FeaturePrecipitation: {Min: 0, Max: 100},
	}
}

// Validate rejects empty or inverted ranges.
func (r FeatureRanges) Validate() error {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fr := r[name]
		if fr.Max <= fr.Min {
			return fmt.Errorf("feature range %q: max (%g) must exceed min (%g)", name, fr.Max, fr.Min)
		}
	}
	return nil
}

// Normalize scales value into [0, 1] using the feature's range. Features
// without a usable range pass through unchanged.
func (r FeatureRanges) Normalize(value float64, feature string) float64 {
	fr, ok := r.lookup(feature)
	if !ok {
		return value
	}
	return (value - fr.Min) / (fr.Max - fr.Min)
}

// Denormalize is the exact inverse of Normalize.
func (r FeatureRanges) Denormalize(value float64, feature string) float64 {
	fr, ok := r.lookup(feature)
	if !ok {
		return value
	}
	return value*(fr.Max-fr.Min) + fr.Min
}

func (r FeatureRanges) lookup(feature string) (FeatureRange, bool) {
	fr, ok := r[feature]
	if !ok || fr.Max <= fr.Min {
		return FeatureRange{}, false
	}
	return fr, true
}
