package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rpattn/pivotql/internal/domain"
)

// attributeRepository implements AttributeRepository interface
type attributeRepository struct {
	pool *pgxpool.Pool
}

// NewAttributeRepository creates a new attribute repository
func NewAttributeRepository(pool *pgxpool.Pool) AttributeRepository {
	return &attributeRepository{pool: pool}
}

// ReplaceAll swaps a dataset's attribute lookup in one transaction.
func (r *attributeRepository) ReplaceAll(ctx context.Context, datasetID uuid.UUID, attributes []domain.Attribute) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to open transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM attributes WHERE dataset_id = $1", datasetID); err != nil {
		return fmt.Errorf("failed to clear attributes: %w", err)
	}

	batch := &pgx.Batch{}
	for _, attr := range attributes {
		batch.Queue(
			`INSERT INTO attributes (id, dataset_id, name, label, position, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			attr.ID, datasetID, attr.Name, attr.Label, attr.Position, attr.CreatedAt,
		)
	}
	results := tx.SendBatch(ctx, batch)
	for range attributes {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return fmt.Errorf("failed to insert attribute: %w", err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("failed to finish attribute batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit attributes: %w", err)
	}
	return nil
}

// List returns a dataset's attributes in lookup order
func (r *attributeRepository) List(ctx context.Context, datasetID uuid.UUID) ([]domain.Attribute, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, dataset_id, name, label, position, created_at
		 FROM attributes WHERE dataset_id = $1 ORDER BY position, name`,
		datasetID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list attributes: %w", err)
	}
	defer rows.Close()

	var attributes []domain.Attribute
	for rows.Next() {
		var attr domain.Attribute
		if err := rows.Scan(&attr.ID, &attr.DatasetID, &attr.Name, &attr.Label, &attr.Position, &attr.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan attribute: %w", err)
		}
		attributes = append(attributes, attr)
	}
	return attributes, rows.Err()
}
