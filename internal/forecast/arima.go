// backend-go/internal/forecast/arima.go
package forecast

import (
	"fmt"
	"math"

	"github.com/salescast/backend-go/internal/domain"
)

// Search bounds for the stepwise order search. The seasonal period is
// fixed at 7: weekly seasonality only, a yearly period would make the
// search cost explode on daily data.
const (
	arimaSeason       = 7
	arimaMaxP         = 5
	arimaMaxQ         = 5
	arimaMaxD         = 2
	arimaMaxSeasonalP = 2
	arimaMaxSeasonalQ = 2
	arimaMaxSeasonalD = 1

	arimaMinObservations = 2 * arimaSeason
	arimaMaxEvaluations  = 64
)

// arimaBackend is an auto-tuned seasonal ARIMA. Differencing orders are
// chosen by variance reduction, AR/MA orders by a stepwise AIC search,
// and coefficients by Hannan-Rissanen style conditional least squares.
type arimaBackend struct{}

func (b *arimaBackend) ID() string     { return "arima" }
func (b *arimaBackend) Name() string   { return "Auto ARIMA" }
func (b *arimaBackend) Anchored() bool { return false }

func (b *arimaBackend) FitAndPredict(s Series, periods int) ([]float64, error) {
	n := len(s.Values)
	if n < arimaMinObservations {
		return nil, fmt.Errorf("%w: need at least %d observations, have %d",
			domain.ErrInsufficientData, arimaMinObservations, n)
	}
	if periods <= 0 {
		return nil, nil
	}

	// Difference first, then search orders on the stationary series.
	stages, z := differenceStages(s.Values)

	fit, err := stepwiseSearch(z)
	if err != nil {
		return nil, err
	}

	future := fit.forecast(z, periods)
	return integrate(stages, future), nil
}

type arimaOrder struct {
	p, q, sp, sq int
}

type arimaFit struct {
	order     arimaOrder
	intercept float64
	ar, ma    []float64
	sar, sma  []float64
	resid     []float64
	aic       float64
}

// differenceStages applies seasonal differencing (at most once), then
// ordinary differencing chosen by variance reduction, keeping every
// intermediate series so predictions can be integrated back.
func differenceStages(x []float64) (stages []diffStage, z []float64) {
	z = x

	if len(z) >= 3*arimaSeason {
		sd := diff(z, arimaSeason)
		if variance(sd) < variance(z) {
			stages = append(stages, diffStage{lag: arimaSeason, history: z})
			z = sd
		}
	}

	for d := 0; d < arimaMaxD; d++ {
		if len(z) < 3 {
			break
		}
		next := diff(z, 1)
		if variance(next) >= variance(z) {
			break
		}
		stages = append(stages, diffStage{lag: 1, history: z})
		z = next
	}
	return stages, z
}

type diffStage struct {
	lag     int
	history []float64
}

func diff(x []float64, lag int) []float64 {
	if len(x) <= lag {
		return nil
	}
	out := make([]float64, len(x)-lag)
	for i := range out {
		out[i] = x[i+lag] - x[i]
	}
	return out
}

// integrate inverts the differencing stages, innermost first.
func integrate(stages []diffStage, future []float64) []float64 {
	for i := len(stages) - 1; i >= 0; i-- {
		st := stages[i]
		extended := append(append([]float64(nil), st.history...), make([]float64, len(future))...)
		n := len(st.history)
		for h, v := range future {
			extended[n+h] = v + extended[n+h-st.lag]
		}
		future = extended[n:]
	}
	return future
}

func variance(x []float64) float64 {
	if len(x) == 0 {
		return math.Inf(1)
	}
	var mean float64
	for _, v := range x {
		mean += v
	}
	mean /= float64(len(x))
	var sum float64
	for _, v := range x {
		sum += (v - mean) * (v - mean)
	}
	return sum / float64(len(x))
}

// stepwiseSearch hill-climbs the (p, q, P, Q) grid from the origin,
// moving one step at a time toward lower AIC.
func stepwiseSearch(z []float64) (*arimaFit, error) {
	tried := make(map[arimaOrder]bool)
	evaluate := func(ord arimaOrder) *arimaFit {
		if tried[ord] || len(tried) >= arimaMaxEvaluations {
			return nil
		}
		tried[ord] = true
		fit, err := fitCSS(z, ord)
		if err != nil {
			return nil
		}
		return fit
	}

	var best *arimaFit
	for _, ord := range []arimaOrder{{0, 0, 0, 0}, {1, 0, 0, 0}, {0, 1, 0, 0}, {1, 1, 1, 1}} {
		if fit := evaluate(ord); fit != nil && (best == nil || fit.aic < best.aic) {
			best = fit
		}
	}
	if best == nil {
		return nil, fmt.Errorf("%w: no ARIMA candidate converged", domain.ErrInsufficientData)
	}

	for improved := true; improved; {
		improved = false
		for _, ord := range neighbors(best.order) {
			if fit := evaluate(ord); fit != nil && fit.aic < best.aic {
				best = fit
				improved = true
			}
		}
	}
	return best, nil
}

func neighbors(o arimaOrder) []arimaOrder {
	var out []arimaOrder
	step := func(p, q, sp, sq int) {
		if p < 0 || p > arimaMaxP || q < 0 || q > arimaMaxQ ||
			sp < 0 || sp > arimaMaxSeasonalP || sq < 0 || sq > arimaMaxSeasonalQ {
			return
		}
		out = append(out, arimaOrder{p, q, sp, sq})
	}
	for _, d := range []int{-1, 1} {
		step(o.p+d, o.q, o.sp, o.sq)
		step(o.p, o.q+d, o.sp, o.sq)
		step(o.p, o.q, o.sp+d, o.sq)
		step(o.p, o.q, o.sp, o.sq+d)
	}
	return out
}

// fitCSS estimates the coefficients in two stages: a long autoregression
// approximates the innovations, then the model regresses each value on
// its own lags and the lagged innovations.
func fitCSS(z []float64, ord arimaOrder) (*arimaFit, error) {
	n := len(z)

	longLag := 14
	if n/4 < longLag {
		longLag = n / 4
	}
	if longLag < 1 {
		longLag = 1
	}
	innov, err := longARResiduals(z, longLag)
	if err != nil {
		return nil, err
	}

	zMax := ord.p
	if s := ord.sp * arimaSeason; s > zMax {
		zMax = s
	}
	eMax := ord.q
	if s := ord.sq * arimaSeason; s > eMax {
		eMax = s
	}
	t0 := longLag
	if zMax > t0 {
		t0 = zMax
	}
	if eMax > t0 {
		t0 = eMax
	}

	k := 1 + ord.p + ord.q + ord.sp + ord.sq
	rows := n - t0
	if rows <= k+1 {
		return nil, fmt.Errorf("%w: %d rows for %d coefficients", domain.ErrInsufficientData, rows, k)
	}

	X := make([][]float64, rows)
	y := make([]float64, rows)
	for r := 0; r < rows; r++ {
		t := t0 + r
		row := make([]float64, 0, k)
		row = append(row, 1)
		for i := 1; i <= ord.p; i++ {
			row = append(row, z[t-i])
		}
		for j := 1; j <= ord.sp; j++ {
			row = append(row, z[t-j*arimaSeason])
		}
		for i := 1; i <= ord.q; i++ {
			row = append(row, innov[t-i])
		}
		for j := 1; j <= ord.sq; j++ {
			row = append(row, innov[t-j*arimaSeason])
		}
		X[r] = row
		y[r] = z[t]
	}

	beta, err := solveOLS(X, y)
	if err != nil {
		return nil, err
	}

	fit := &arimaFit{
		order:     ord,
		intercept: beta[0],
		ar:        beta[1 : 1+ord.p],
		ma:        beta[1+ord.p+ord.sp : 1+ord.p+ord.sp+ord.q],
		sar:       beta[1+ord.p : 1+ord.p+ord.sp],
		sma:       beta[1+ord.p+ord.sp+ord.q:],
	}

	// Refit residuals under the selected model for forecasting and AIC.
	fit.resid = make([]float64, n)
	var rss float64
	for r := 0; r < rows; r++ {
		t := t0 + r
		pred := dot(X[r], beta)
		fit.resid[t] = y[r] - pred
		rss += fit.resid[t] * fit.resid[t]
	}
	sigma2 := rss / float64(rows)
	if sigma2 <= 0 {
		sigma2 = 1e-12
	}
	fit.aic = float64(rows)*math.Log(sigma2) + 2*float64(k+1)
	return fit, nil
}

// forecast iterates the fitted recursion forward with future
// innovations set to zero.
func (f *arimaFit) forecast(z []float64, periods int) []float64 {
	zExt := append([]float64(nil), z...)
	eExt := append([]float64(nil), f.resid...)

	at := func(x []float64, i int) float64 {
		if i < 0 || i >= len(x) {
			return 0
		}
		return x[i]
	}

	n := len(z)
	for h := 0; h < periods; h++ {
		t := n + h
		v := f.intercept
		for i, c := range f.ar {
			v += c * at(zExt, t-i-1)
		}
		for j, c := range f.sar {
			v += c * at(zExt, t-(j+1)*arimaSeason)
		}
		for i, c := range f.ma {
			v += c * at(eExt, t-i-1)
		}
		for j, c := range f.sma {
			v += c * at(eExt, t-(j+1)*arimaSeason)
		}
		zExt = append(zExt, v)
		eExt = append(eExt, 0)
	}
	return zExt[n:]
}

// longARResiduals fits an AR(longLag) by least squares and returns its
// residuals, zero over the burn-in prefix. When the regression cannot be
// solved, for too few rows or a singular design (constant data), it
// degrades to deviations from the mean as crude innovations.
func longARResiduals(z []float64, longLag int) ([]float64, error) {
	n := len(z)
	rows := n - longLag
	if rows <= longLag+2 {
		return meanDeviations(z), nil
	}

	X := make([][]float64, rows)
	y := make([]float64, rows)
	for r := 0; r < rows; r++ {
		t := longLag + r
		row := make([]float64, 0, longLag+1)
		row = append(row, 1)
		for i := 1; i <= longLag; i++ {
			row = append(row, z[t-i])
		}
		X[r] = row
		y[r] = z[t]
	}
	beta, err := solveOLS(X, y)
	if err != nil {
		return meanDeviations(z), nil
	}

	out := make([]float64, n)
	for r := 0; r < rows; r++ {
		t := longLag + r
		out[t] = y[r] - dot(X[r], beta)
	}
	return out, nil
}

func meanDeviations(z []float64) []float64 {
	var mean float64
	for _, v := range z {
		mean += v
	}
	mean /= float64(len(z))
	out := make([]float64, len(z))
	for i, v := range z {
		out[i] = v - mean
	}
	return out
}

func dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// solveOLS solves the normal equations with Gaussian elimination and
// partial pivoting.
func solveOLS(X [][]float64, y []float64) ([]float64, error) {
	if len(X) == 0 {
		return nil, fmt.Errorf("empty design matrix")
	}
	k := len(X[0])

	A := make([][]float64, k)
	b := make([]float64, k)
	for i := 0; i < k; i++ {
		A[i] = make([]float64, k)
	}
	for r := range X {
		for i := 0; i < k; i++ {
			b[i] += X[r][i] * y[r]
			for j := i; j < k; j++ {
				A[i][j] += X[r][i] * X[r][j]
			}
		}
	}
	for i := 0; i < k; i++ {
		for j := 0; j < i; j++ {
			A[i][j] = A[j][i]
		}
	}

	for col := 0; col < k; col++ {
		pivot := col
		for r := col + 1; r < k; r++ {
			if math.Abs(A[r][col]) > math.Abs(A[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(A[pivot][col]) < 1e-10 {
			return nil, fmt.Errorf("singular design matrix")
		}
		A[col], A[pivot] = A[pivot], A[col]
		b[col], b[pivot] = b[pivot], b[col]

		for r := col + 1; r < k; r++ {
			factor := A[r][col] / A[col][col]
			for c := col; c < k; c++ {
				A[r][c] -= factor * A[col][c]
			}
			b[r] -= factor * b[col]
		}
	}

	beta := make([]float64, k)
	for i := k - 1; i >= 0; i-- {
		sum := b[i]
		for j := i + 1; j < k; j++ {
			sum -= A[i][j] * beta[j]
		}
		beta[i] = sum / A[i][i]
	}
	return beta, nil
}
