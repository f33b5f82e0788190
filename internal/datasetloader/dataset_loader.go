package datasetloader

import (
	"context"
	"fmt"
	"time"

	"github.com/rpattn/pivotql/internal/domain"
	"github.com/rpattn/pivotql/internal/repository"

	"github.com/google/uuid"
	"github.com/graph-gophers/dataloader"
)

// DatasetLoader batches and caches dataset lookups for one request. Pivot
// and export requests resolve the same dataset several times; the loader
// keeps that to a single round trip per request.
type DatasetLoader struct {
	Loader *dataloader.Loader
}

func NewDatasetLoader(repo repository.DatasetRepository) *DatasetLoader {
	batchFn := func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		// Convert keys to []uuid.UUID
		ids := make([]uuid.UUID, len(keys))
		for i, k := range keys {
			id, err := uuid.Parse(k.String())
			if err != nil {
				return []*dataloader.Result{{Error: fmt.Errorf("invalid UUID: %w", err)}}
			}
			ids[i] = id
		}

		// Fetch datasets in batch
		datasets, err := repo.GetByIDs(ctx, ids)
		if err != nil {
			results := make([]*dataloader.Result, len(keys))
			for i := range results {
				results[i] = &dataloader.Result{Error: err}
			}
			return results
		}

		// Map UUID -> dataset for ordering
		datasetMap := make(map[uuid.UUID]domain.Dataset)
		for _, d := range datasets {
			datasetMap[d.ID] = d
		}

		// Build results in the same order as keys
		results := make([]*dataloader.Result, len(keys))
		for i, id := range ids {
			if d, ok := datasetMap[id]; ok {
				results[i] = &dataloader.Result{Data: d}
			} else {
				results[i] = &dataloader.Result{Error: repository.ErrDatasetNotFound}
			}
		}

		return results
	}

	loader := dataloader.NewBatchedLoader(batchFn, dataloader.WithWait(5*time.Millisecond))

	return &DatasetLoader{Loader: loader}
}

// Load resolves one dataset through the request-scoped cache.
func (l *DatasetLoader) Load(ctx context.Context, id uuid.UUID) (domain.Dataset, error) {
	thunk := l.Loader.Load(ctx, dataloader.StringKey(id.String()))
	value, err := thunk()
	if err != nil {
		return domain.Dataset{}, err
	}
	dataset, ok := value.(domain.Dataset)
	if !ok {
		return domain.Dataset{}, repository.ErrDatasetNotFound
	}
	return dataset, nil
}
