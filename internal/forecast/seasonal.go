// backend-go/internal/forecast/seasonal.go
package forecast

import (
	"fmt"
	"math"
	"time"

	"github.com/salescast/backend-go/internal/domain"
)

const (
	seasonalMinObservations = 14
	yearlyWindowDays        = 15
	trendFloor              = 1e-9
)

// seasonalBackend models weekly and yearly seasonality multiplicatively
// around a linear trend. The yearly component is always fitted, even
// when the training span is under one year; in that case the yearly
// factors are learned from a partial season and are unreliable. That is
// a documented accuracy caveat, not an error.
//
// Predictions are anchored: they start the day after the training
// series and the caller slices them onto the requested window.
type seasonalBackend struct{}

func (b *seasonalBackend) ID() string     { return "seasonal" }
func (b *seasonalBackend) Name() string   { return "Seasonal decomposition" }
func (b *seasonalBackend) Anchored() bool { return true }

func (b *seasonalBackend) FitAndPredict(s Series, periods int) ([]float64, error) {
	n := len(s.Values)
	if n < seasonalMinObservations {
		return nil, fmt.Errorf("%w: need at least %d observations, have %d",
			domain.ErrInsufficientData, seasonalMinObservations, n)
	}
	if periods <= 0 {
		return nil, nil
	}

	slope, intercept := olsLine(s.Values)

	weekly := weeklyFactors(s, slope, intercept)
	yearly := yearlyFactors(s, slope, intercept, weekly)

	out := make([]float64, periods)
	for h := 0; h < periods; h++ {
		t := n + h
		date := s.Date(t)
		base := intercept + slope*float64(t)
		out[h] = base * weekly[date.Weekday()] * yearly[dayOfYearIndex(date)]
	}
	return out, nil
}

// weeklyFactors averages the ratio of each observation to its trend
// value per weekday, normalized to mean one.
func weeklyFactors(s Series, slope, intercept float64) [7]float64 {
	var sums, counts [7]float64
	for i, y := range s.Values {
		trend := intercept + slope*float64(i)
		if trend <= trendFloor {
			continue
		}
		wd := s.Date(i).Weekday()
		sums[wd] += y / trend
		counts[wd]++
	}

	var factors [7]float64
	var total, used float64
	for wd := 0; wd < 7; wd++ {
		if counts[wd] > 0 {
			factors[wd] = sums[wd] / counts[wd]
			total += factors[wd]
			used++
		} else {
			factors[wd] = 1
		}
	}
	if used > 0 && total > 0 {
		mean := total / used
		for wd := 0; wd < 7; wd++ {
			factors[wd] /= mean
		}
	}
	return factors
}

// yearlyFactors learns a day-of-year factor from the weekly-adjusted
// residual ratios, smoothing each day over a +-15 day circular window.
// Days the training span never touched keep factor one.
func yearlyFactors(s Series, slope, intercept float64, weekly [7]float64) [366]float64 {
	var sums, counts [366]float64
	for i, y := range s.Values {
		trend := intercept + slope*float64(i)
		if trend <= trendFloor {
			continue
		}
		date := s.Date(i)
		expected := trend * weekly[date.Weekday()]
		if expected <= trendFloor {
			continue
		}
		idx := dayOfYearIndex(date)
		sums[idx] += y / expected
		counts[idx]++
	}

	var factors [366]float64
	var total, used float64
	for d := 0; d < 366; d++ {
		var sum, count float64
		for off := -yearlyWindowDays; off <= yearlyWindowDays; off++ {
			j := ((d+off)%366 + 366) % 366
			sum += sums[j]
			count += counts[j]
		}
		if count > 0 {
			factors[d] = sum / count
			total += factors[d]
			used++
		} else {
			factors[d] = 1
		}
	}
	if used > 0 && total > 0 {
		mean := total / used
		for d := 0; d < 366; d++ {
			if factors[d] != 1 || counts[d] > 0 {
				factors[d] /= mean
			}
		}
	}
	return factors
}

// dayOfYearIndex buckets a date by day of year on a leap-year calendar
// so February 29 gets its own slot.
func dayOfYearIndex(t time.Time) int {
	ref := time.Date(2000, t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return int(math.Min(365, float64(ref.YearDay()-1)))
}
