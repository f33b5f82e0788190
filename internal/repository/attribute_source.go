package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rpattn/pivotql/internal/domain"
	"github.com/rpattn/pivotql/internal/pivot"
)

// attributeColumns whitelists the real columns the lookup source exposes.
var attributeColumns = map[string]string{
	"name":     "name",
	"label":    "label",
	"position": "position::text",
}

// AttributeSource implements the pivot query capability over a dataset's
// attribute lookup table. Pivots over EAV-style datasets discover their
// output columns here instead of scanning the records.
type AttributeSource struct {
	pool      *pgxpool.Pool
	datasetID uuid.UUID

	fields   []string
	distinct bool
	order    []string
	filters  []pivot.Between
}

// NewAttributeSource creates a lookup source scoped to a single dataset.
func NewAttributeSource(pool *pgxpool.Pool, datasetID uuid.UUID) *AttributeSource {
	return &AttributeSource{pool: pool, datasetID: datasetID}
}

func (s *AttributeSource) Select(fields ...string) pivot.Source {
	s.fields = fields
	return s
}

func (s *AttributeSource) Distinct() pivot.Source {
	s.distinct = true
	return s
}

func (s *AttributeSource) OrderBy(field string) pivot.Source {
	s.order = append(s.order, field)
	return s
}

func (s *AttributeSource) Where(cond pivot.Between) pivot.Source {
	s.filters = append(s.filters, cond)
	return s
}

func (s *AttributeSource) Clone() pivot.Source {
	clone := &AttributeSource{
		pool:      s.pool,
		datasetID: s.datasetID,
		distinct:  s.distinct,
	}
	clone.fields = append([]string(nil), s.fields...)
	clone.order = append([]string(nil), s.order...)
	clone.filters = append([]pivot.Between(nil), s.filters...)
	return clone
}

func attributeColumn(field string) (string, error) {
	expr, ok := attributeColumns[pivot.LastSegment(field)]
	if !ok {
		return "", fmt.Errorf("unknown attribute column %q", field)
	}
	return expr, nil
}

func (s *AttributeSource) whereSQL(args *[]any) (string, error) {
	*args = append(*args, s.datasetID)
	clauses := []string{fmt.Sprintf("dataset_id = $%d", len(*args))}

	for _, cond := range s.filters {
		expr, err := attributeColumn(cond.Field)
		if err != nil {
			return "", err
		}
		if cond.Lower == "" {
			*args = append(*args, cond.Upper)
			clauses = append(clauses, fmt.Sprintf("%s <= $%d", expr, len(*args)))
			continue
		}
		*args = append(*args, cond.Lower, cond.Upper)
		clauses = append(clauses, fmt.Sprintf("%s BETWEEN $%d AND $%d", expr, len(*args)-1, len(*args)))
	}

	return strings.Join(clauses, " AND "), nil
}

func (s *AttributeSource) Count(ctx context.Context, field string) (int, error) {
	expr, err := attributeColumn(field)
	if err != nil {
		return 0, err
	}
	counted := fmt.Sprintf("COUNT(%s)", expr)
	if s.distinct {
		counted = fmt.Sprintf("COUNT(DISTINCT %s)", expr)
	}

	var args []any
	where, err := s.whereSQL(&args)
	if err != nil {
		return 0, err
	}

	var count int64
	query := fmt.Sprintf("SELECT %s FROM attributes WHERE %s", counted, where)
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count attributes: %w", err)
	}
	return int(count), nil
}

func (s *AttributeSource) All(ctx context.Context) ([]domain.Row, error) {
	names := s.fields
	if len(names) == 0 {
		names = []string{"name", "label"}
	}

	exprs := make([]string, 0, len(names))
	keys := make([]string, 0, len(names))
	for _, field := range names {
		expr, err := attributeColumn(field)
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, expr)
		keys = append(keys, pivot.LastSegment(field))
	}

	var args []any
	where, err := s.whereSQL(&args)
	if err != nil {
		return nil, err
	}

	var query strings.Builder
	query.WriteString("SELECT ")
	if s.distinct {
		query.WriteString("DISTINCT ")
	}
	query.WriteString(strings.Join(exprs, ", "))
	query.WriteString(" FROM attributes WHERE ")
	query.WriteString(where)

	if len(s.order) > 0 {
		orderExprs := make([]string, 0, len(s.order))
		for _, field := range s.order {
			expr, err := attributeColumn(field)
			if err != nil {
				return nil, err
			}
			orderExprs = append(orderExprs, expr+" ASC")
		}
		query.WriteString(" ORDER BY " + strings.Join(orderExprs, ", "))
	}

	rows, err := s.pool.Query(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query attributes: %w", err)
	}
	defer rows.Close()

	var result []domain.Row
	for rows.Next() {
		values := make([]string, len(keys))
		dest := make([]any, len(keys))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan attribute: %w", err)
		}

		row := make(domain.Row, len(keys))
		for i, key := range keys {
			row[key] = values[i]
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read attributes: %w", err)
	}

	return result, nil
}
