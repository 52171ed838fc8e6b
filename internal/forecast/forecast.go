// backend-go/internal/forecast/forecast.go
package forecast

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/salescast/backend-go/internal/config"
	"github.com/salescast/backend-go/internal/domain"
)

// Series is a univariate daily training series. Start dates the first
// observation; Values holds one entry per consecutive calendar day.
type Series struct {
	Start  time.Time
	Values []float64
}

// Date returns the calendar date of observation i.
func (s Series) Date(i int) time.Time {
	return s.Start.AddDate(0, 0, i)
}

// Backend is one interchangeable forecasting model.
type Backend interface {
	ID() string
	Name() string
	// Anchored reports whether predictions are counted from the end of
	// the training series rather than mapping one-to-one onto the
	// requested window. Anchored backends are asked for enough periods
	// to reach the window end and the caller slices the result.
	Anchored() bool
	// FitAndPredict fits the model and returns `periods` future values,
	// one per day after the training series. Output may be shorter than
	// requested but never longer.
	FitAndPredict(s Series, periods int) ([]float64, error)
}

// Info is the operator-facing description of a registered backend.
type Info struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Registry holds the backends available in this process. Availability
// is decided once at startup; the selection menu offered to the
// operator is exactly the registered set. The linear backend is always
// registered so a forecast path always exists.
type Registry struct {
	order []Backend
	byID  map[string]Backend
}

func NewRegistry(cfg config.ForecastConfig) *Registry {
	r := &Registry{byID: make(map[string]Backend)}
	if cfg.SeasonalEnabled {
		r.register(&seasonalBackend{})
	}
	if cfg.ArimaEnabled {
		r.register(&arimaBackend{})
	}
	r.register(&linearBackend{})

	ids := make([]string, 0, len(r.order))
	for _, b := range r.order {
		ids = append(ids, b.ID())
	}
	log.Info().Strs("backends", ids).Msg("forecast backends registered")
	return r
}

func (r *Registry) register(b Backend) {
	if _, ok := r.byID[b.ID()]; ok {
		return
	}
	r.order = append(r.order, b)
	r.byID[b.ID()] = b
}

// List returns the registered backends in registration order.
func (r *Registry) List() []Info {
	out := make([]Info, 0, len(r.order))
	for _, b := range r.order {
		out = append(out, Info{ID: b.ID(), Name: b.Name()})
	}
	return out
}

// Get resolves a backend id, reporting ErrBackendUnavailable for ids
// that are not registered in this process.
func (r *Registry) Get(id string) (Backend, error) {
	b, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrBackendUnavailable, id)
	}
	return b, nil
}

// Run dispatches to a backend and clamps its raw output elementwise to
// zero: neither sales quantity nor revenue can be negative. The clamp is
// uniform post-processing, never the backend's concern.
func (r *Registry) Run(id string, s Series, periods int) ([]float64, error) {
	b, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	preds, err := b.FitAndPredict(s, periods)
	if err != nil {
		return nil, fmt.Errorf("backend %s: %w", id, err)
	}
	return ClampNonNegative(preds), nil
}

// ClampNonNegative replaces negative predictions with zero, in place.
func ClampNonNegative(values []float64) []float64 {
	for i, v := range values {
		if v < 0 {
			values[i] = 0
		}
	}
	return values
}
