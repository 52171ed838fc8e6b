package repository

import (
	"context"

	"github.com/salescast/backend-go/internal/domain"
)

// DatasetRepository persists parsed uploads. The service keeps datasets
// in memory for serving; persistence is durability across restarts, not
// the read path.
type DatasetRepository interface {
	SaveDataset(ctx context.Context, ds *domain.Dataset) error
	GetDataset(ctx context.Context, id string) (*domain.Dataset, error)
	ListDatasets(ctx context.Context) ([]domain.DatasetInfo, error)
	DeleteDataset(ctx context.Context, id string) error
}
