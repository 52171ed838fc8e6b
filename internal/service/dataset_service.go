package service

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/salescast/backend-go/internal/cache"
	"github.com/salescast/backend-go/internal/domain"
	"github.com/salescast/backend-go/internal/ingest"
	"github.com/salescast/backend-go/internal/repository"
	"github.com/salescast/backend-go/internal/series"
	"github.com/salescast/backend-go/internal/storage"
)

// DatasetService owns the uploaded datasets. Serving always happens from
// the in-memory map; the repository and object archive are optional
// durability layers and their failures degrade to warnings.
type DatasetService struct {
	mu       sync.RWMutex
	datasets map[string]*domain.Dataset

	labels  series.LabelNames
	repo    repository.DatasetRepository
	archive storage.ObjectStorage
	cache   cache.SeriesCache
}

func NewDatasetService(labels series.LabelNames, repo repository.DatasetRepository, archive storage.ObjectStorage, seriesCache cache.SeriesCache) *DatasetService {
	if seriesCache == nil {
		seriesCache = cache.NewNoopSeriesCache()
	}
	return &DatasetService{
		datasets: make(map[string]*domain.Dataset),
		labels:   labels,
		repo:     repo,
		archive:  archive,
		cache:    seriesCache,
	}
}

// Ingest parses a raw CSV upload and registers it as a new dataset.
func (s *DatasetService) Ingest(ctx context.Context, name string, raw []byte) (*domain.Dataset, error) {
	parsed, err := ingest.Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	if len(parsed.Records) == 0 {
		return nil, fmt.Errorf("%w: no usable rows in %s", domain.ErrNoData, name)
	}

	sum := sha1.Sum(raw)
	ds := &domain.Dataset{
		ID:               uuid.NewString(),
		Name:             name,
		Fingerprint:      hex.EncodeToString(sum[:]),
		UploadedAt:       time.Now().UTC(),
		Rows:             parsed.Rows,
		DroppedBadDate:   parsed.DroppedBadDate,
		DroppedBadAmount: parsed.DroppedBadAmount,
		Axes:             parsed.Axes,
		Records:          parsed.Records,
	}

	s.mu.Lock()
	s.datasets[ds.ID] = ds
	s.mu.Unlock()

	if err := s.cache.InvalidateDataset(ctx, ds.Fingerprint); err != nil {
		log.Warn().Err(err).Str("dataset", ds.ID).Msg("series cache invalidation failed")
	}

	if s.archive != nil {
		key := fmt.Sprintf("uploads/%s/%s", ds.ID, name)
		if err := s.archive.UploadObject(ctx, key, raw); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("upload archive failed")
		}
	}

	if s.repo != nil {
		if err := s.repo.SaveDataset(ctx, ds); err != nil {
			log.Warn().Err(err).Str("dataset", ds.ID).Msg("dataset persistence failed")
		}
	}

	log.Info().
		Str("dataset", ds.ID).
		Str("name", name).
		Int("rows", ds.Rows).
		Int("records", len(ds.Records)).
		Msg("dataset ingested")

	return ds, nil
}

// Get resolves a dataset by id, falling back to the repository for
// datasets ingested before the last restart.
func (s *DatasetService) Get(ctx context.Context, id string) (*domain.Dataset, error) {
	s.mu.RLock()
	ds, ok := s.datasets[id]
	s.mu.RUnlock()
	if ok {
		return ds, nil
	}

	if s.repo == nil {
		return nil, domain.ErrDatasetNotFound
	}
	ds, err := s.repo.GetDataset(ctx, id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.datasets[ds.ID] = ds
	s.mu.Unlock()
	return ds, nil
}

// List returns the known datasets, newest first.
func (s *DatasetService) List(ctx context.Context) []domain.DatasetInfo {
	s.mu.RLock()
	out := make([]domain.DatasetInfo, 0, len(s.datasets))
	for _, ds := range s.datasets {
		out = append(out, s.Info(ds))
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].UploadedAt.After(out[j].UploadedAt)
	})
	return out
}

// Info builds the listing view, including the raw data span.
func (s *DatasetService) Info(ds *domain.Dataset) domain.DatasetInfo {
	info := domain.DatasetInfo{
		ID:               ds.ID,
		Name:             ds.Name,
		Fingerprint:      ds.Fingerprint,
		UploadedAt:       ds.UploadedAt,
		Rows:             ds.Rows,
		DroppedBadDate:   ds.DroppedBadDate,
		DroppedBadAmount: ds.DroppedBadAmount,
		Axes:             ds.Axes,
	}

	var first, last time.Time
	for _, rec := range ds.Records {
		day := series.Day(rec.SaleDate)
		if first.IsZero() || day.Before(first) {
			first = day
		}
		if last.IsZero() || day.After(last) {
			last = day
		}
	}
	if !first.IsZero() {
		info.FirstDate = first.Format("2006-01-02")
		info.LastDate = last.Format("2006-01-02")
		info.Days = series.DaysBetween(first, last) + 1
	}
	return info
}

// Menus derives the cascading selection menus for a dataset.
func (s *DatasetService) Menus(ctx context.Context, id string, sel domain.FilterSelection) (series.Menus, error) {
	ds, err := s.Get(ctx, id)
	if err != nil {
		return series.Menus{}, err
	}
	engine := series.NewEngine(ds.Axes, s.labels)
	return engine.Menus(ds.Records, sel), nil
}

// Series filters and aggregates a dataset into a daily series, consulting
// the cache first. Cache failures fall through to recomputation.
func (s *DatasetService) Series(ctx context.Context, id string, sel domain.FilterSelection) (domain.DailySeries, error) {
	ds, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if cached, ok, err := s.cache.GetSeries(ctx, ds.Fingerprint, sel); err == nil && ok {
		return cached, nil
	} else if err != nil {
		log.Warn().Err(err).Str("dataset", id).Msg("series cache get failed")
	}

	engine := series.NewEngine(ds.Axes, s.labels)
	daily, err := engine.Series(ds.Records, sel)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetSeries(ctx, ds.Fingerprint, sel, daily); err != nil {
		log.Warn().Err(err).Str("dataset", id).Msg("series cache set failed")
	}
	return daily, nil
}

// Delete removes a dataset from memory and, when persistence is
// configured, from the repository.
func (s *DatasetService) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	ds, ok := s.datasets[id]
	delete(s.datasets, id)
	s.mu.Unlock()

	if ok {
		if err := s.cache.InvalidateDataset(ctx, ds.Fingerprint); err != nil {
			log.Warn().Err(err).Str("dataset", id).Msg("series cache invalidation failed")
		}
	}

	if s.repo != nil {
		if err := s.repo.DeleteDataset(ctx, id); err != nil && err != domain.ErrDatasetNotFound {
			return err
		}
		return nil
	}
	if !ok {
		return domain.ErrDatasetNotFound
	}
	return nil
}
