package forecast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salescast/backend-go/internal/domain"
)

func TestArimaConstantSeries(t *testing.T) {
	b := &arimaBackend{}
	assert.False(t, b.Anchored())

	values := make([]float64, 30)
	for i := range values {
		values[i] = 5
	}
	preds, err := b.FitAndPredict(seriesFrom(monday(), values), 7)
	require.NoError(t, err)
	require.Len(t, preds, 7)
	for _, v := range preds {
		assert.InDelta(t, 5.0, v, 1e-6)
	}
}

func TestArimaLinearTrend(t *testing.T) {
	b := &arimaBackend{}

	// A pure ramp differences to a constant; the forecast must continue it.
	values := make([]float64, 30)
	for i := range values {
		values[i] = float64(i)
	}
	preds, err := b.FitAndPredict(seriesFrom(monday(), values), 5)
	require.NoError(t, err)
	require.Len(t, preds, 5)
	for h, v := range preds {
		assert.InDelta(t, float64(30+h), v, 1e-6, "step %d", h)
	}
}

func TestArimaInsufficientData(t *testing.T) {
	b := &arimaBackend{}
	_, err := b.FitAndPredict(seriesFrom(monday(), make([]float64, 5)), 7)
	assert.ErrorIs(t, err, domain.ErrInsufficientData)
}

func TestArimaZeroPeriods(t *testing.T) {
	b := &arimaBackend{}
	preds, err := b.FitAndPredict(seriesFrom(monday(), make([]float64, 20)), 0)
	require.NoError(t, err)
	assert.Empty(t, preds)
}

func TestDifferenceAndIntegrateRoundTrip(t *testing.T) {
	digits := []float64{3, 1, 4, 1, 5, 9, 2, 6, 5, 3, 5, 8, 9, 7, 9, 3, 2, 3, 8, 4, 6, 2, 6, 4, 3, 3, 8, 3}
	x := make([]float64, len(digits))
	for i, d := range digits {
		x[i] = 2*float64(i) + 0.1*d
	}

	stages, z := differenceStages(x)
	require.NotEmpty(t, stages, "a trending series must difference")
	require.NotNil(t, z)

	// Whatever differencing was chosen, integrating the tail of the
	// differenced series must reproduce the tail of the original.
	tail := 5
	future := append([]float64(nil), z[len(z)-tail:]...)

	trimmed := make([]diffStage, len(stages))
	for i, st := range stages {
		n := len(st.history)
		trimmed[i] = diffStage{lag: st.lag, history: st.history[:n-tail]}
	}
	restored := integrate(trimmed, future)
	require.Len(t, restored, tail)
	for i := range restored {
		assert.InDelta(t, x[len(x)-tail+i], restored[i], 1e-9)
	}
}

func TestVariance(t *testing.T) {
	assert.InDelta(t, 0.0, variance([]float64{4, 4, 4}), 1e-12)
	assert.InDelta(t, 2.0/3.0, variance([]float64{1, 2, 3}), 1e-12)
}

func TestSolveOLS(t *testing.T) {
	// y = 1 + 2*x fitted exactly.
	X := [][]float64{{1, 0}, {1, 1}, {1, 2}, {1, 3}}
	y := []float64{1, 3, 5, 7}
	beta, err := solveOLS(X, y)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, beta[0], 1e-9)
	assert.InDelta(t, 2.0, beta[1], 1e-9)
}

func TestSolveOLSSingular(t *testing.T) {
	X := [][]float64{{1, 1}, {2, 2}, {3, 3}}
	y := []float64{1, 2, 3}
	_, err := solveOLS(X, y)
	assert.Error(t, err)
}
