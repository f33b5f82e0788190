package repository

import (
	"context"
	"errors"

	"github.com/rpattn/pivotql/internal/domain"

	"github.com/google/uuid"
)

// ErrDatasetNotFound is returned when a dataset lookup matches nothing.
var ErrDatasetNotFound = errors.New("dataset not found")

// DatasetRepository defines the interface for dataset operations
type DatasetRepository interface {
	Create(ctx context.Context, dataset domain.Dataset) (domain.Dataset, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Dataset, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Dataset, error)
	GetByName(ctx context.Context, name string) (domain.Dataset, error)
	List(ctx context.Context) ([]domain.Dataset, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// RecordRepository defines the interface for long-format record storage
type RecordRepository interface {
	CreateBatch(ctx context.Context, datasetID uuid.UUID, rows []domain.Row) (int, error)
	Count(ctx context.Context, datasetID uuid.UUID) (int64, error)
	DeleteByDataset(ctx context.Context, datasetID uuid.UUID) error
}

// AttributeRepository stores the per-dataset attribute lookup used for
// EAV-style column discovery.
type AttributeRepository interface {
	ReplaceAll(ctx context.Context, datasetID uuid.UUID, attributes []domain.Attribute) error
	List(ctx context.Context, datasetID uuid.UUID) ([]domain.Attribute, error)
}
