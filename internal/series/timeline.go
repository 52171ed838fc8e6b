// backend-go/internal/series/timeline.go
package series

import (
	"time"

	"github.com/salescast/backend-go/internal/domain"
)

// maxCutoffSlackDays bounds how far past the real data the operator may
// push the training cutoff; the synthesized days are all zeros.
const maxCutoffSlackDays = 365

// Plan reconciles the three "last date" notions of a forecast run: the
// true last date with data, the operator's training cutoff, and the
// forecast window. It carries everything a backend invocation needs.
type Plan struct {
	Training domain.DailySeries
	Window   domain.ForecastWindow
	TrueLast time.Time

	// Horizon is the number of days in [Start, End] inclusive.
	Horizon int
	// Periods is the number of future periods requested from a backend
	// that forecasts from its training anchor: the distance from the
	// true last data date to the window end, falling back to Horizon
	// when the window does not extend past the data.
	Periods int
	// Dates are the target dates Start through End.
	Dates []time.Time
}

// ResolvePlan builds the training series and horizon for a filtered
// daily series and a validated forecast window.
//
// The training series takes every entry up to the true last data date
// and re-runs the gap-fill over [true first date, cutoff]: a cutoff past
// the real data synthesizes zero days (the operator simulating "no sales
// since then"), a cutoff before it truncates training at the cutoff.
func ResolvePlan(s domain.DailySeries, w domain.ForecastWindow) (*Plan, error) {
	if len(s) == 0 {
		return nil, domain.ErrNoData
	}

	trueLast := Day(s.LastDate())
	w.Cutoff = ClampCutoff(s.FirstDate(), trueLast, w.Cutoff)

	training := FillForward(s, w.Cutoff)
	if len(training) == 0 {
		return nil, domain.ErrNoData
	}

	horizon := w.HorizonDays()
	periods := DaysBetween(trueLast, w.End)
	if periods <= 0 {
		// The window precedes or overlaps the existing data; fall back
		// to the nominal window length.
		periods = horizon
	}

	dates := make([]time.Time, 0, horizon)
	for d := Day(w.Start); !d.After(Day(w.End)); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}

	return &Plan{
		Training: training,
		Window:   w,
		TrueLast: trueLast,
		Horizon:  horizon,
		Periods:  periods,
		Dates:    dates,
	}, nil
}

// AlignAnchored trims a prediction array produced by a backend whose
// forecasts start the day after the training series (the cutoff):
// predicted dates before the window start are discarded and the result
// is truncated, never padded, to the horizon.
func (p *Plan) AlignAnchored(preds []float64) []float64 {
	cutoff := Day(p.Training.LastDate())
	start := Day(p.Window.Start)

	out := make([]float64, 0, p.Horizon)
	for i, v := range preds {
		date := cutoff.AddDate(0, 0, i+1)
		if date.Before(start) {
			continue
		}
		if len(out) == p.Horizon {
			break
		}
		out = append(out, v)
	}
	return out
}

// AlignDirect trims a prediction array whose entries map one-to-one onto
// the window days, truncating silently when the backend returned fewer
// periods than requested.
func (p *Plan) AlignDirect(preds []float64) []float64 {
	if len(preds) > p.Horizon {
		return preds[:p.Horizon]
	}
	return preds
}

// ClampCutoff bounds a requested cutoff to [first, last+365 days]. A
// zero cutoff resolves to the default.
func ClampCutoff(first, last, requested time.Time) time.Time {
	first, last = Day(first), Day(last)
	if requested.IsZero() {
		return DefaultCutoff(first, last, time.Now())
	}
	requested = Day(requested)
	if requested.Before(first) {
		return first
	}
	if max := last.AddDate(0, 0, maxCutoffSlackDays); requested.After(max) {
		return max
	}
	return requested
}

// DefaultCutoff picks yesterday when it falls inside the selectable
// range, otherwise the true last data date.
func DefaultCutoff(first, last, now time.Time) time.Time {
	first, last = Day(first), Day(last)
	yesterday := Day(now).AddDate(0, 0, -1)
	if !yesterday.Before(first) && !yesterday.After(last.AddDate(0, 0, maxCutoffSlackDays)) {
		return yesterday
	}
	return last
}

// AccuracyTier maps the training length to the rough reliability hint
// shown to the operator.
func AccuracyTier(trainingDays int) string {
	switch {
	case trainingDays < 30:
		return "insufficient"
	case trainingDays < 60:
		return "basic"
	case trainingDays < 90:
		return "weekly"
	case trainingDays < 180:
		return "seasonal"
	default:
		return "high"
	}
}
