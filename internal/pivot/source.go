package pivot

import (
	"context"
	"fmt"

	"github.com/rpattn/pivotql/internal/domain"
)

// Between restricts a field to an inclusive [Lower, Upper] range. An empty
// Lower means the range is open at the start.
type Between struct {
	Field string
	Lower string
	Upper string
}

// Source is the query capability the pivot engine needs from a backing
// store: projection, distinct semantics, ascending ordering, inclusive
// range filtering, counting and materialization. Builder methods configure
// the receiver and return it; Clone takes an independent copy so one
// configured source can seed several queries.
type Source interface {
	Select(fields ...string) Source
	Distinct() Source
	OrderBy(field string) Source
	Where(cond Between) Source
	Count(ctx context.Context, field string) (int, error)
	All(ctx context.Context) ([]domain.Row, error)
	Clone() Source
}

// stringify renders a resolved field value the way it is compared and used
// as a key: strings pass through, nil becomes empty, everything else takes
// its default formatting.
func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
