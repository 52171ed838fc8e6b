// backend-go/internal/forecast/linear.go
package forecast

import (
	"fmt"

	"github.com/salescast/backend-go/internal/domain"
)

// linearBackend fits ordinary least squares of the target against a
// zero-based integer time index. It has no external dependency, runs in
// linear time, and is the degrade-to path when the data is too short for
// the seasonal models to be meaningful.
type linearBackend struct{}

func (b *linearBackend) ID() string     { return "linear" }
func (b *linearBackend) Name() string   { return "Linear regression" }
func (b *linearBackend) Anchored() bool { return false }

func (b *linearBackend) FitAndPredict(s Series, periods int) ([]float64, error) {
	n := len(s.Values)
	if n < 2 {
		return nil, fmt.Errorf("%w: need at least 2 observations, have %d", domain.ErrInsufficientData, n)
	}
	if periods <= 0 {
		return nil, nil
	}

	slope, intercept := olsLine(s.Values)

	out := make([]float64, periods)
	for h := 0; h < periods; h++ {
		out[h] = intercept + slope*float64(n+h)
	}
	return out, nil
}

// olsLine fits y = intercept + slope*t over t = 0..n-1.
func olsLine(values []float64) (slope, intercept float64) {
	n := float64(len(values))
	var sumT, sumY, sumTY, sumTT float64
	for i, y := range values {
		t := float64(i)
		sumT += t
		sumY += y
		sumTY += t * y
		sumTT += t * t
	}
	den := n*sumTT - sumT*sumT
	if den == 0 {
		return 0, sumY / n
	}
	slope = (n*sumTY - sumT*sumY) / den
	intercept = (sumY - slope*sumT) / n
	return slope, intercept
}
