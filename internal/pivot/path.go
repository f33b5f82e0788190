package pivot

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rpattn/pivotql/internal/domain"
)

// ErrFieldNotFound is returned when a configured field path does not
// resolve against a row.
var ErrFieldNotFound = errors.New("field not found")

const pathSeparator = "."

// ResolveValue looks up a possibly dotted field path against a row. Each
// separator descends one level into a nested row, so "plane.name" reads
// row["plane"]["name"]. Lookups fail hard when a segment is absent or an
// intermediate value is not a nested row.
func ResolveValue(row domain.Row, path string) (any, error) {
	head, tail, nested := strings.Cut(path, pathSeparator)

	value, ok := row[head]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrFieldNotFound, head)
	}
	if !nested {
		return value, nil
	}

	child, err := asRow(value)
	if err != nil {
		return nil, fmt.Errorf("resolving %q: %w", path, err)
	}
	return ResolveValue(child, tail)
}

func asRow(value any) (domain.Row, error) {
	switch v := value.(type) {
	case domain.Row:
		return v, nil
	case map[string]any:
		return domain.Row(v), nil
	}
	return nil, fmt.Errorf("%w: value is not a nested row", ErrFieldNotFound)
}

// LastSegment strips a dotted path to its final segment. Flat sources are
// always queried with the stripped name; the full path is only resolved
// against the richer data rows.
func LastSegment(path string) string {
	if idx := strings.LastIndex(path, pathSeparator); idx >= 0 {
		return path[idx+1:]
	}
	return path
}
