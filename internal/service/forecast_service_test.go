package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salescast/backend-go/internal/config"
	"github.com/salescast/backend-go/internal/domain"
	"github.com/salescast/backend-go/internal/forecast"
	"github.com/salescast/backend-go/internal/series"
	"github.com/salescast/backend-go/internal/storage"
)

// salesCSV builds a synthetic January export: every day sells quantity 2
// at 300 per day in one department.
func salesCSV(days int) string {
	var sb strings.Builder
	sb.WriteString("売上日付,売上数量,税抜売上金額,部門コード,部門名\n")
	for d := 1; d <= days; d++ {
		fmt.Fprintf(&sb, "2025年1月%d日,2,300,10,ベーカリー\n", d)
	}
	return sb.String()
}

func newTestServices(t *testing.T) (*DatasetService, *ForecastService, *domain.Dataset) {
	t.Helper()

	datasets := NewDatasetService(series.LabelNames{}, nil, nil, nil)
	registry := forecast.NewRegistry(config.ForecastConfig{})
	forecasts := NewForecastService(datasets, registry, 365)

	ds, err := datasets.Ingest(context.Background(), "january.csv", []byte(salesCSV(30)))
	require.NoError(t, err)
	return datasets, forecasts, ds
}

func TestIngestAndInfo(t *testing.T) {
	datasets, _, ds := newTestServices(t)

	assert.NotEmpty(t, ds.ID)
	assert.Len(t, ds.Fingerprint, 40, "sha1 hex")
	assert.Equal(t, 30, ds.Rows)
	assert.True(t, ds.Axes.Department)
	assert.False(t, ds.Axes.Product)

	info := datasets.Info(ds)
	assert.Equal(t, "2025-01-01", info.FirstDate)
	assert.Equal(t, "2025-01-30", info.LastDate)
	assert.Equal(t, 30, info.Days)

	listed := datasets.List(context.Background())
	require.Len(t, listed, 1)
	assert.Equal(t, ds.ID, listed[0].ID)
}

func TestIngestArchivesToLocalDir(t *testing.T) {
	archive, err := storage.NewLocalDir(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	datasets := NewDatasetService(series.LabelNames{}, nil, archive, nil)
	ds, err := datasets.Ingest(ctx, "january.csv", []byte(salesCSV(5)))
	require.NoError(t, err)

	data, err := archive.DownloadObject(ctx, "uploads/"+ds.ID+"/january.csv")
	require.NoError(t, err)
	assert.Equal(t, salesCSV(5), string(data))
}

func TestGetUnknownDataset(t *testing.T) {
	datasets, _, _ := newTestServices(t)
	_, err := datasets.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrDatasetNotFound)
}

func TestSeriesAndMenus(t *testing.T) {
	datasets, _, ds := newTestServices(t)
	ctx := context.Background()

	daily, err := datasets.Series(ctx, ds.ID, domain.FilterSelection{})
	require.NoError(t, err)
	require.Len(t, daily, 30)
	assert.Equal(t, 2.0, daily[0].Quantity)

	menus, err := datasets.Menus(ctx, ds.ID, domain.FilterSelection{})
	require.NoError(t, err)
	require.Len(t, menus.Departments, 2)
	assert.True(t, menus.Departments[0].IsAll())
	assert.Nil(t, menus.Products)

	_, err = datasets.Series(ctx, ds.ID, domain.FilterSelection{Departments: []string{"99"}})
	assert.ErrorIs(t, err, domain.ErrNoData)
}

func TestForecastRun(t *testing.T) {
	_, forecasts, ds := newTestServices(t)

	window := domain.ForecastWindow{
		Cutoff: time.Date(2025, 1, 30, 0, 0, 0, 0, time.UTC),
		Start:  time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC),
		End:    time.Date(2025, 2, 13, 0, 0, 0, 0, time.UTC),
	}
	result, err := forecasts.Run(context.Background(), ds.ID, domain.FilterSelection{}, "linear", window)
	require.NoError(t, err)

	assert.Equal(t, "linear", result.Backend)
	require.Len(t, result.Rows, 14)
	assert.Equal(t, window.Start, result.Rows[0].Date)
	assert.Equal(t, window.End, result.Rows[13].Date)

	// Constant history extrapolates flat.
	for _, row := range result.Rows {
		assert.InDelta(t, 2.0, row.Quantity, 1e-6)
		assert.InDelta(t, 300.0, row.Revenue, 1e-6)
	}

	assert.Equal(t, 14, result.Summary.Days)
	assert.InDelta(t, 28.0, result.Summary.TotalQuantity, 1e-6)
	assert.InDelta(t, 2.0, result.Summary.MeanQuantity, 1e-6)
	assert.InDelta(t, 300.0, result.Summary.MaxDailyRevenue, 1e-6)

	assert.Equal(t, 30, result.Meta.TrainingDays)
	assert.Equal(t, "basic", result.Meta.Accuracy)
	assert.Equal(t, time.Date(2025, 1, 30, 0, 0, 0, 0, time.UTC), result.Meta.DataLast)
}

func TestForecastRunStartDaysAfterCutoff(t *testing.T) {
	_, forecasts, ds := newTestServices(t)

	window := domain.ForecastWindow{
		Cutoff:          time.Date(2025, 1, 30, 0, 0, 0, 0, time.UTC),
		StartOffsetDays: 1,
		End:             time.Date(2025, 2, 13, 0, 0, 0, 0, time.UTC),
	}
	result, err := forecasts.Run(context.Background(), ds.ID, domain.FilterSelection{}, "linear", window)
	require.NoError(t, err)

	require.Len(t, result.Rows, 14)
	assert.Equal(t, time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC), result.Rows[0].Date)
	assert.Equal(t, window.End, result.Rows[13].Date)

	// An explicit start date wins over the offset.
	window.Start = time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC)
	result, err = forecasts.Run(context.Background(), ds.ID, domain.FilterSelection{}, "linear", window)
	require.NoError(t, err)
	require.NotEmpty(t, result.Rows)
	assert.Equal(t, window.Start, result.Rows[0].Date)
}

func TestForecastUnknownBackend(t *testing.T) {
	_, forecasts, ds := newTestServices(t)

	window := domain.ForecastWindow{
		Start: time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 2, 5, 0, 0, 0, 0, time.UTC),
	}
	_, err := forecasts.Run(context.Background(), ds.ID, domain.FilterSelection{}, "prophet", window)
	assert.ErrorIs(t, err, domain.ErrBackendUnavailable)
}

func TestForecastWindowValidation(t *testing.T) {
	_, forecasts, ds := newTestServices(t)
	ctx := context.Background()

	_, err := forecasts.Run(ctx, ds.ID, domain.FilterSelection{}, "linear", domain.ForecastWindow{})
	assert.ErrorIs(t, err, domain.ErrInvalidWindow)

	_, err = forecasts.Run(ctx, ds.ID, domain.FilterSelection{}, "linear", domain.ForecastWindow{
		End: time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidWindow, "no start date and no offset")

	_, err = forecasts.Run(ctx, ds.ID, domain.FilterSelection{}, "linear", domain.ForecastWindow{
		Start: time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
	})
	assert.Error(t, err, "end before start")

	_, err = forecasts.Run(ctx, ds.ID, domain.FilterSelection{}, "linear", domain.ForecastWindow{
		Start: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2027, 2, 1, 0, 0, 0, 0, time.UTC),
	})
	assert.Error(t, err, "horizon over the limit")
}

func TestExportCSV(t *testing.T) {
	_, forecasts, ds := newTestServices(t)

	window := domain.ForecastWindow{
		Cutoff: time.Date(2025, 1, 30, 0, 0, 0, 0, time.UTC),
		Start:  time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC),
		End:    time.Date(2025, 2, 2, 0, 0, 0, 0, time.UTC),
	}
	data, err := forecasts.ExportCSV(context.Background(), ds.ID, domain.FilterSelection{}, "linear", window)
	require.NoError(t, err)

	text := strings.TrimPrefix(string(data), "\xEF\xBB\xBF")
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "date,predicted_quantity,predicted_revenue", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "2025/01/31,"), lines[1])
}

func TestDeleteDataset(t *testing.T) {
	datasets, _, ds := newTestServices(t)
	ctx := context.Background()

	require.NoError(t, datasets.Delete(ctx, ds.ID))
	_, err := datasets.Get(ctx, ds.ID)
	assert.ErrorIs(t, err, domain.ErrDatasetNotFound)
	assert.ErrorIs(t, datasets.Delete(ctx, ds.ID), domain.ErrDatasetNotFound)
}
