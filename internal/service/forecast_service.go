package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/salescast/backend-go/internal/domain"
	"github.com/salescast/backend-go/internal/export"
	"github.com/salescast/backend-go/internal/forecast"
	"github.com/salescast/backend-go/internal/series"
)

// ForecastService runs the two univariate forecasts (quantity and
// revenue) for a filtered dataset slice over an operator-chosen window.
type ForecastService struct {
	datasets   *DatasetService
	registry   *forecast.Registry
	maxHorizon int
}

func NewForecastService(datasets *DatasetService, registry *forecast.Registry, maxHorizonDays int) *ForecastService {
	if maxHorizonDays <= 0 {
		maxHorizonDays = 365
	}
	return &ForecastService{
		datasets:   datasets,
		registry:   registry,
		maxHorizon: maxHorizonDays,
	}
}

// Backends lists the forecast backends registered in this process.
func (s *ForecastService) Backends() []forecast.Info {
	return s.registry.List()
}

// Run produces a full forecast result for one dataset, selection,
// backend and window.
func (s *ForecastService) Run(ctx context.Context, datasetID string, sel domain.FilterSelection, backendID string, window domain.ForecastWindow) (*domain.ForecastResult, error) {
	daily, err := s.datasets.Series(ctx, datasetID, sel)
	if err != nil {
		return nil, err
	}

	window = resolveStart(daily, window)
	if err := s.validateWindow(window); err != nil {
		return nil, err
	}

	plan, err := series.ResolvePlan(daily, window)
	if err != nil {
		return nil, err
	}

	backend, err := s.registry.Get(backendID)
	if err != nil {
		return nil, err
	}

	periods := plan.Horizon
	if backend.Anchored() {
		periods = plan.Periods
	}

	trainingStart := series.Day(plan.Training.FirstDate())
	qtySeries := forecast.Series{Start: trainingStart, Values: plan.Training.Quantities()}
	revSeries := forecast.Series{Start: trainingStart, Values: plan.Training.Revenues()}

	started := time.Now()
	var qtyPreds, revPreds []float64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		qtyPreds, err = s.runSeries(gctx, backendID, qtySeries, periods)
		return err
	})
	g.Go(func() error {
		var err error
		revPreds, err = s.runSeries(gctx, backendID, revSeries, periods)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if backend.Anchored() {
		qtyPreds = plan.AlignAnchored(qtyPreds)
		revPreds = plan.AlignAnchored(revPreds)
	} else {
		qtyPreds = plan.AlignDirect(qtyPreds)
		revPreds = plan.AlignDirect(revPreds)
	}

	n := len(plan.Dates)
	if len(qtyPreds) < n {
		n = len(qtyPreds)
	}
	if len(revPreds) < n {
		n = len(revPreds)
	}

	rows := make([]domain.ForecastRow, n)
	for i := 0; i < n; i++ {
		rows[i] = domain.ForecastRow{
			Date:     plan.Dates[i],
			Quantity: qtyPreds[i],
			Revenue:  revPreds[i],
		}
	}

	result := &domain.ForecastResult{
		Backend: backendID,
		Rows:    rows,
		Summary: summarize(rows),
		Meta: domain.ForecastMeta{
			DataFirst:     series.Day(daily.FirstDate()),
			DataLast:      plan.TrueLast,
			DataDays:      len(daily),
			TrainingFirst: series.Day(plan.Training.FirstDate()),
			TrainingLast:  series.Day(plan.Training.LastDate()),
			TrainingDays:  len(plan.Training),
			Accuracy:      series.AccuracyTier(len(plan.Training)),
		},
	}

	log.Info().
		Str("dataset", datasetID).
		Str("backend", backendID).
		Int("training_days", len(plan.Training)).
		Int("rows", len(rows)).
		Dur("elapsed", time.Since(started)).
		Msg("forecast completed")

	return result, nil
}

// ExportCSV runs a forecast and renders it as the downloadable report.
func (s *ForecastService) ExportCSV(ctx context.Context, datasetID string, sel domain.FilterSelection, backendID string, window domain.ForecastWindow) ([]byte, error) {
	result, err := s.Run(ctx, datasetID, sel, backendID, window)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := export.WriteForecastCSV(&buf, result.Rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *ForecastService) runSeries(ctx context.Context, backendID string, series forecast.Series, periods int) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.registry.Run(backendID, series, periods)
}

// resolveStart turns a days-after-cutoff start into an explicit date.
// The cutoff is clamped here so the offset anchors on the same date the
// plan will train up to, including a server-side default cutoff.
func resolveStart(daily domain.DailySeries, w domain.ForecastWindow) domain.ForecastWindow {
	if !w.Start.IsZero() || w.StartOffsetDays <= 0 {
		return w
	}
	w.Cutoff = series.ClampCutoff(daily.FirstDate(), daily.LastDate(), w.Cutoff)
	w.Start = w.Cutoff.AddDate(0, 0, w.StartOffsetDays)
	return w
}

func (s *ForecastService) validateWindow(w domain.ForecastWindow) error {
	if w.End.IsZero() {
		return fmt.Errorf("%w: end date is required", domain.ErrInvalidWindow)
	}
	if w.Start.IsZero() {
		return fmt.Errorf("%w: a start date or a days-after-cutoff offset is required", domain.ErrInvalidWindow)
	}
	if w.End.Before(w.Start) {
		return fmt.Errorf("%w: end %s precedes start %s", domain.ErrInvalidWindow,
			w.End.Format("2006-01-02"), w.Start.Format("2006-01-02"))
	}
	if h := w.HorizonDays(); h > s.maxHorizon {
		return fmt.Errorf("%w: horizon %d days exceeds the %d day limit", domain.ErrInvalidWindow, h, s.maxHorizon)
	}
	return nil
}

func summarize(rows []domain.ForecastRow) domain.ForecastSummary {
	summary := domain.ForecastSummary{Days: len(rows)}
	for _, row := range rows {
		summary.TotalQuantity += row.Quantity
		summary.TotalRevenue += row.Revenue
		if row.Revenue > summary.MaxDailyRevenue {
			summary.MaxDailyRevenue = row.Revenue
		}
	}
	if len(rows) > 0 {
		summary.MeanQuantity = summary.TotalQuantity / float64(len(rows))
		summary.MeanRevenue = summary.TotalRevenue / float64(len(rows))
	}
	return summary
}
