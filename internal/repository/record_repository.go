package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rpattn/pivotql/internal/domain"
)

// recordRepository implements RecordRepository interface
type recordRepository struct {
	pool *pgxpool.Pool
}

// NewRecordRepository creates a new record repository
func NewRecordRepository(pool *pgxpool.Pool) RecordRepository {
	return &recordRepository{pool: pool}
}

// CreateBatch inserts long-format rows for a dataset in one round trip.
func (r *recordRepository) CreateBatch(ctx context.Context, datasetID uuid.UUID, rows []domain.Row) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, fields := range rows {
		payload, err := fields.AsJSONB()
		if err != nil {
			return 0, fmt.Errorf("failed to marshal record fields: %w", err)
		}
		record := domain.NewRecord(datasetID, nil)
		batch.Queue(
			"INSERT INTO records (id, dataset_id, fields, created_at) VALUES ($1, $2, $3, $4)",
			record.ID, datasetID, payload, record.CreatedAt,
		)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	inserted := 0
	for range rows {
		if _, err := results.Exec(); err != nil {
			return inserted, fmt.Errorf("failed to insert record batch: %w", err)
		}
		inserted++
	}
	return inserted, nil
}

// Count returns the number of raw records in a dataset
func (r *recordRepository) Count(ctx context.Context, datasetID uuid.UUID) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM records WHERE dataset_id = $1", datasetID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return count, nil
}

// DeleteByDataset removes all records belonging to a dataset
func (r *recordRepository) DeleteByDataset(ctx context.Context, datasetID uuid.UUID) error {
	if _, err := r.pool.Exec(ctx, "DELETE FROM records WHERE dataset_id = $1", datasetID); err != nil {
		return fmt.Errorf("failed to delete records: %w", err)
	}
	return nil
}
