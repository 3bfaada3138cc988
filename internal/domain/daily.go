package domain

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Window lengths, in calendar days, for the model and trend tiers.
const (
	ModelWindowDays = 30
	TrendWindowDays = 7
	TrendMinDays    = 3
)

// DailyFeatureVector is the one-row-per-day summary consumed by the model
// and trend tiers. It is derived on demand and never persisted.
type DailyFeatureVector struct {
	Date           time.Time `json:"date"`
	Precipitation  float64   `json:"precipitation"`
	AvgTemperature float64   `json:"avg_temperature"`
	MaxTemperature float64   `json:"max_temperature"`
	MinTemperature float64   `json:"min_temperature"`
	AvgHumidity    float64   `json:"avg_humidity"`
	DaySin         float64   `json:"day_sin"`
	DayCos         float64   `json:"day_cos"`
	Samples        int       `json:"samples"`
}

type dayKey struct {
	year  int
	month time.Month
	day   int
}

type dayAccumulator struct {
	date     time.Time
	count    int
	tempSum  float64
	tempMax  float64
	tempMin  float64
	humidSum float64
}

// Aggregate groups samples by the calendar date of their timestamp and returns
// at most want days, oldest first, ending at the most recent date present.
// Fewer than need distinct dates yields ErrInsufficientData.
func Aggregate(samples []Sample, want, need int) ([]DailyFeatureVector, error) {
	days := make(map[dayKey]*dayAccumulator)
	for _, s := range samples {
		y, m, d := s.Timestamp.Date()
		key := dayKey{year: y, month: m, day: d}
		acc, ok := days[key]
		if !ok {
			acc = &dayAccumulator{
				date:    time.Date(y, m, d, 0, 0, 0, 0, s.Timestamp.Location()),
				tempMax: s.Temperature,
				tempMin: s.Temperature,
			}
			days[key] = acc
		}
		acc.count++
		acc.tempSum += s.Temperature
		acc.humidSum += s.Humidity
		acc.tempMax = math.Max(acc.tempMax, s.Temperature)
		acc.tempMin = math.Min(acc.tempMin, s.Temperature)
	}

	if len(days) < need {
		return nil, fmt.Errorf("%w: %d distinct days, need %d", ErrInsufficientData, len(days), need)
	}

	accs := make([]*dayAccumulator, 0, len(days))
	for _, acc := range days {
		accs = append(accs, acc)
	}
	sort.Slice(accs, func(i, j int) bool { return accs[i].date.Before(accs[j].date) })
	if want > 0 && len(accs) > want {
		accs = accs[len(accs)-want:]
	}

	out := make([]DailyFeatureVector, len(accs))
	for i, acc := range accs {
		out[i] = acc.vector()
	}
	return out, nil
}

func (a *dayAccumulator) vector() DailyFeatureVector {
	n := float64(a.count)
	// Summation error can push the mean a hair outside [min, max].
	avg := math.Min(math.Max(a.tempSum/n, a.tempMin), a.tempMax)
	sin, cos := SeasonalEncoding(a.date)
	return DailyFeatureVector{
		Date:           a.date,
		Precipitation:  0,
		AvgTemperature: avg,
		MaxTemperature: a.tempMax,
		MinTemperature: a.tempMin,
		AvgHumidity:    a.humidSum / n,
		DaySin:         sin,
		DayCos:         cos,
		Samples:        a.count,
	}
}

// SeasonalEncoding maps the day of year onto the unit circle so that
// December 31 and January 1 sit next to each other.
func SeasonalEncoding(t time.Time) (sin, cos float64) {
	angle := 2 * math.Pi * float64(t.YearDay()) / 365
	return math.Sin(angle), math.Cos(angle)
}

// SeasonalAdjustment is the annual-cycle correction added to trend forecasts.
// It crosses zero at day 80 (spring equinox) and peaks around day 171.
func SeasonalAdjustment(t time.Time) float64 {
	return 0.5 * math.Sin(2*math.Pi*float64(t.YearDay()-80)/365)
}
