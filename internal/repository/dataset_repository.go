package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rpattn/pivotql/internal/domain"
)

// datasetRepository implements DatasetRepository interface
type datasetRepository struct {
	pool *pgxpool.Pool
}

// NewDatasetRepository creates a new dataset repository
func NewDatasetRepository(pool *pgxpool.Pool) DatasetRepository {
	return &datasetRepository{pool: pool}
}

const datasetColumns = "id, name, description, created_at, updated_at"

func scanDataset(row pgx.Row) (domain.Dataset, error) {
	var dataset domain.Dataset
	err := row.Scan(&dataset.ID, &dataset.Name, &dataset.Description, &dataset.CreatedAt, &dataset.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Dataset{}, ErrDatasetNotFound
	}
	if err != nil {
		return domain.Dataset{}, fmt.Errorf("failed to scan dataset: %w", err)
	}
	return dataset, nil
}

// Create creates a new dataset
func (r *datasetRepository) Create(ctx context.Context, dataset domain.Dataset) (domain.Dataset, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO datasets (id, name, description, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+datasetColumns,
		dataset.ID, dataset.Name, dataset.Description, dataset.CreatedAt, dataset.UpdatedAt,
	)
	created, err := scanDataset(row)
	if err != nil {
		return domain.Dataset{}, fmt.Errorf("failed to create dataset: %w", err)
	}
	return created, nil
}

// GetByID retrieves a dataset by ID
func (r *datasetRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Dataset, error) {
	row := r.pool.QueryRow(ctx, "SELECT "+datasetColumns+" FROM datasets WHERE id = $1", id)
	return scanDataset(row)
}

// GetByIDs retrieves multiple datasets by their IDs.
func (r *datasetRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Dataset, error) {
	if len(ids) == 0 {
		return []domain.Dataset{}, nil
	}

	rows, err := r.pool.Query(ctx, "SELECT "+datasetColumns+" FROM datasets WHERE id = ANY($1)", ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get datasets by IDs: %w", err)
	}
	defer rows.Close()

	var datasets []domain.Dataset
	for rows.Next() {
		dataset, err := scanDataset(rows)
		if err != nil {
			return nil, err
		}
		datasets = append(datasets, dataset)
	}
	return datasets, rows.Err()
}

// GetByName retrieves a dataset by its unique name
func (r *datasetRepository) GetByName(ctx context.Context, name string) (domain.Dataset, error) {
	row := r.pool.QueryRow(ctx, "SELECT "+datasetColumns+" FROM datasets WHERE name = $1", name)
	return scanDataset(row)
}

// List retrieves all datasets
func (r *datasetRepository) List(ctx context.Context) ([]domain.Dataset, error) {
	rows, err := r.pool.Query(ctx, "SELECT "+datasetColumns+" FROM datasets ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to list datasets: %w", err)
	}
	defer rows.Close()

	var datasets []domain.Dataset
	for rows.Next() {
		dataset, err := scanDataset(rows)
		if err != nil {
			return nil, err
		}
		datasets = append(datasets, dataset)
	}
	return datasets, rows.Err()
}

// Delete deletes a dataset and, through cascading, its records and
// attributes
func (r *datasetRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM datasets WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete dataset: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDatasetNotFound
	}
	return nil
}
