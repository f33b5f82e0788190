package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rpattn/pivotql/internal/domain"
	"github.com/rpattn/pivotql/internal/pivot"
)

// RecordSource implements the pivot query capability over one dataset's
// JSONB records. Field references address keys of the records' fields
// document; nested relation values come back as nested rows when the full
// document is fetched.
type RecordSource struct {
	pool      *pgxpool.Pool
	datasetID uuid.UUID

	fields   []string
	distinct bool
	order    []string
	filters  []pivot.Between
}

// NewRecordSource creates a source scoped to a single dataset.
func NewRecordSource(pool *pgxpool.Pool, datasetID uuid.UUID) *RecordSource {
	return &RecordSource{pool: pool, datasetID: datasetID}
}

func (s *RecordSource) Select(fields ...string) pivot.Source {
	s.fields = fields
	return s
}

func (s *RecordSource) Distinct() pivot.Source {
	s.distinct = true
	return s
}

func (s *RecordSource) OrderBy(field string) pivot.Source {
	s.order = append(s.order, field)
	return s
}

func (s *RecordSource) Where(cond pivot.Between) pivot.Source {
	s.filters = append(s.filters, cond)
	return s
}

func (s *RecordSource) Clone() pivot.Source {
	clone := &RecordSource{
		pool:      s.pool,
		datasetID: s.datasetID,
		distinct:  s.distinct,
	}
	clone.fields = append([]string(nil), s.fields...)
	clone.order = append([]string(nil), s.order...)
	clone.filters = append([]pivot.Between(nil), s.filters...)
	return clone
}

// textExpr renders a field reference as a text-valued SQL expression.
// Field names are interpolated into SQL, so anything that is not a plain
// identifier is rejected outright.
func textExpr(field string) (string, error) {
	if !pivot.IsValidIdentifier(field) {
		return "", fmt.Errorf("unsafe field name %q", field)
	}
	return fmt.Sprintf("fields->>'%s'", field), nil
}

func jsonExpr(field string) (string, error) {
	if !pivot.IsValidIdentifier(field) {
		return "", fmt.Errorf("unsafe field name %q", field)
	}
	return fmt.Sprintf("fields->'%s'", field), nil
}

func (s *RecordSource) whereSQL(args *[]any) (string, error) {
	*args = append(*args, s.datasetID)
	clauses := []string{fmt.Sprintf("dataset_id = $%d", len(*args))}

	for _, cond := range s.filters {
		expr, err := textExpr(pivot.LastSegment(cond.Field))
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

func (s *RecordSource) buildAll() (string, []any, error) {
	projection := "fields"
	if len(s.fields) > 0 {
		pairs := make([]string, 0, len(s.fields))
		for _, field := range s.fields {
			name := pivot.LastSegment(field)
			expr, err := jsonExpr(name)
			if err != nil {
				return "", nil, err
			}
			pairs = append(pairs, fmt.Sprintf("'%s', %s", name, expr))
		}
		projection = "jsonb_build_object(" + strings.Join(pairs, ", ") + ")"
	}

	var args []any
	where, err := s.whereSQL(&args)
	if err != nil {
		return "", nil, err
	}

	var query strings.Builder
	query.WriteString("SELECT ")
	if s.distinct {
		query.WriteString("DISTINCT ")
	}
	query.WriteString(projection)
	query.WriteString(" AS doc FROM records WHERE ")
	query.WriteString(where)

	if len(s.order) > 0 {
		if s.distinct {
			// DISTINCT restricts ORDER BY to the select list; position 1
			// keeps the statement valid and the caller re-sorts anyway.
			query.WriteString(" ORDER BY 1")
		} else {
			exprs := make([]string, 0, len(s.order))
			for _, field := range s.order {
				expr, err := textExpr(pivot.LastSegment(field))
				if err != nil {
					return "", nil, err
				}
				exprs = append(exprs, expr+" ASC")
			}
			query.WriteString(" ORDER BY " + strings.Join(exprs, ", "))
		}
	}

	return query.String(), args, nil
}

func (s *RecordSource) buildCount(field string) (string, []any, error) {
	expr, err := textExpr(pivot.LastSegment(field))
	if err != nil {
		return "", nil, err
	}

	counted := fmt.Sprintf("COUNT(%s)", expr)
	if s.distinct {
		counted = fmt.Sprintf("COUNT(DISTINCT %s)", expr)
	}

	var args []any
	where, err := s.whereSQL(&args)
	if err != nil {
		return "", nil, err
	}

	return fmt.Sprintf("SELECT %s FROM records WHERE %s", counted, where), args, nil
}

func (s *RecordSource) Count(ctx context.Context, field string) (int, error) {
	query, args, err := s.buildCount(field)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return int(count), nil
}

func (s *RecordSource) All(ctx context.Context) ([]domain.Row, error) {
	query, args, err := s.buildAll()
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var result []domain.Row
	for rows.Next() {
		var doc json.RawMessage
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		row, err := domain.RowFromJSONB(doc)
		if err != nil {
			return nil, fmt.Errorf("failed to decode record fields: %w", err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}

	return result, nil
}
