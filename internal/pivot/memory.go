package pivot

import (
	"context"
	"sort"
	"strings"

	"github.com/rpattn/pivotql/internal/domain"
)

// MemorySource executes the Source capability set over an in-process row
// slice. It backs file pivots in the CLI and the engine's own tests; no
// database is involved.
type MemorySource struct {
	rows     []domain.Row
	fields   []string
	distinct bool
	order    []string
	filters  []Between
}

// NewMemorySource wraps rows in a queryable source. The slice is shared,
// not copied; rows are treated as immutable once handed over.
func NewMemorySource(rows []domain.Row) *MemorySource {
	return &MemorySource{rows: rows}
}

func (s *MemorySource) Select(fields ...string) Source {
	s.fields = fields
	return s
}

func (s *MemorySource) Distinct() Source {
	s.distinct = true
	return s
}

func (s *MemorySource) OrderBy(field string) Source {
	s.order = append(s.order, field)
	return s
}

func (s *MemorySource) Where(cond Between) Source {
	s.filters = append(s.filters, cond)
	return s
}

func (s *MemorySource) Clone() Source {
	clone := &MemorySource{
		rows:     s.rows,
		distinct: s.distinct,
	}
	clone.fields = append([]string(nil), s.fields...)
	clone.order = append([]string(nil), s.order...)
	clone.filters = append([]Between(nil), s.filters...)
	return clone
}

// Count returns the number of values of field visible through the source.
// With Distinct applied, duplicate values collapse.
func (s *MemorySource) Count(ctx context.Context, field string) (int, error) {
	rows, err := s.matching()
	if err != nil {
		return 0, err
	}

	if !s.distinct {
		return len(rows), nil
	}

	seen := make(map[string]struct{})
	for _, row := range rows {
		value, err := ResolveValue(row, field)
		if err != nil {
			return 0, err
		}
		seen[stringify(value)] = struct{}{}
	}
	return len(seen), nil
}

// All materializes the configured query: filters, projection, distinct and
// ordering, in that order.
func (s *MemorySource) All(ctx context.Context) ([]domain.Row, error) {
	rows, err := s.matching()
	if err != nil {
		return nil, err
	}

	if len(s.fields) > 0 {
		projected := make([]domain.Row, 0, len(rows))
		for _, row := range rows {
			out := make(domain.Row, len(s.fields))
			for _, field := range s.fields {
				value, err := ResolveValue(row, field)
				if err != nil {
					return nil, err
				}
				out[LastSegment(field)] = value
			}
			projected = append(projected, out)
		}
		rows = projected
	}

	if s.distinct {
		rows = dedupeRows(rows, s.fields)
	}

	if len(s.order) > 0 {
		rows = append([]domain.Row(nil), rows...)
		sort.SliceStable(rows, func(i, j int) bool {
			return compareRows(rows[i], rows[j], s.order) < 0
		})
	}

	return rows, nil
}

func (s *MemorySource) matching() ([]domain.Row, error) {
	if len(s.filters) == 0 {
		return s.rows, nil
	}

	var out []domain.Row
	for _, row := range s.rows {
		keep := true
		for _, cond := range s.filters {
			value, err := ResolveValue(row, cond.Field)
			if err != nil {
				return nil, err
			}
			rendered := stringify(value)
			if rendered < cond.Lower || (cond.Upper != "" && rendered > cond.Upper) {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, row)
		}
	}
	return out, nil
}

func dedupeRows(rows []domain.Row, fields []string) []domain.Row {
	seen := make(map[string]struct{}, len(rows))
	out := make([]domain.Row, 0, len(rows))
	for _, row := range rows {
		key := rowIdentity(row, fields)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, row)
	}
	return out
}

func rowIdentity(row domain.Row, fields []string) string {
	if len(fields) == 0 {
		fields = make([]string, 0, len(row))
		for field := range row {
			fields = append(fields, field)
		}
		sort.Strings(fields)
	}

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, stringify(row[LastSegment(field)]))
	}
	return strings.Join(parts, "\x1f")
}

func compareRows(a, b domain.Row, order []string) int {
	for _, field := range order {
		name := LastSegment(field)
		av := stringify(a[name])
		bv := stringify(b[name])
		if av != bv {
			return strings.Compare(av, bv)
		}
	}
	return 0
}
