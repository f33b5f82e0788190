package pivot

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rpattn/pivotql/internal/domain"
)

// ErrInvalidConfig is returned for configuration problems detected at
// provider construction. It is never recovered from.
var ErrInvalidConfig = errors.New("invalid pivot configuration")

// Config describes one pivot request.
type Config struct {
	// Source supplies the long-format data rows.
	Source Source
	// GroupFields names the field identifying the output row, or two
	// fields whose values concatenate into a composite key.
	GroupFields []string
	// ColumnsField names the field whose distinct values become output
	// columns. May be dotted one level; flat queries use the last segment.
	ColumnsField string
	// ValuesField supplies the cell value for a matched (group, column)
	// pair.
	ValuesField string
	// LabelsField optionally names a field holding display labels for the
	// discovered columns.
	LabelsField string
	// ExtraFields are copied into every matched output row.
	ExtraFields []ExtraField
	// ColumnsSource optionally discovers the column set from a separate
	// lookup source instead of the data itself (EAV-style datasets).
	ColumnsSource Source
	// Page enables windowing over distinct group keys. Nil disables it.
	Page *Page
}

// Provider runs one pivot request. It memoizes the discovered column set
// and the distinct group keys for its own lifetime; instances are
// request-scoped and must not be shared across concurrent requests.
type Provider struct {
	cfg Config

	columns     []domain.ColumnSpec
	haveColumns bool
	keys        []string
	haveKeys    bool
}

// NewProvider validates the configuration eagerly and returns a provider
// ready to serve one request.
func NewProvider(cfg Config) (*Provider, error) {
	if cfg.Source == nil {
		return nil, fmt.Errorf("%w: source is required", ErrInvalidConfig)
	}
	if n := len(cfg.GroupFields); n < 1 || n > 2 {
		return nil, fmt.Errorf("%w: group must name one or two fields, got %d", ErrInvalidConfig, n)
	}
	for _, field := range cfg.GroupFields {
		if field == "" {
			return nil, fmt.Errorf("%w: group field must not be empty", ErrInvalidConfig)
		}
	}
	if cfg.ColumnsField == "" {
		return nil, fmt.Errorf("%w: columns field is required", ErrInvalidConfig)
	}
	if cfg.ValuesField == "" {
		return nil, fmt.Errorf("%w: values field is required", ErrInvalidConfig)
	}
	return &Provider{cfg: cfg}, nil
}

func (p *Provider) primaryGroupField() string {
	return LastSegment(p.cfg.GroupFields[0])
}

// DistinctColumns discovers the ordered, deduplicated column set from the
// lookup source if configured, else from the data source. The result is
// memoized for the provider's lifetime.
func (p *Provider) DistinctColumns(ctx context.Context) ([]domain.ColumnSpec, error) {
	if p.haveColumns {
		return p.columns, nil
	}

	source := p.cfg.ColumnsSource
	if source == nil {
		source = p.cfg.Source
	}

	column := LastSegment(p.cfg.ColumnsField)
	fields := []string{column}
	label := ""
	if p.cfg.LabelsField != "" {
		label = LastSegment(p.cfg.LabelsField)
		if label != column {
			fields = append(fields, label)
		}
	}

	rows, err := source.Clone().Select(fields...).Distinct().OrderBy(column).All(ctx)
	if err != nil {
		return nil, fmt.Errorf("discovering columns: %w", err)
	}

	seen := make(map[string]struct{}, len(rows))
	specs := make([]domain.ColumnSpec, 0, len(rows))
	for _, row := range rows {
		value, err := ResolveValue(row, column)
		if err != nil {
			return nil, err
		}
		rawKey := stringify(value)
		if _, dup := seen[rawKey]; dup {
			continue
		}
		seen[rawKey] = struct{}{}

		specLabel := Normalize(rawKey)
		if label != "" {
			labelValue, err := ResolveValue(row, label)
			if err != nil {
				return nil, err
			}
			specLabel = Normalize(stringify(labelValue))
		}
		specs = append(specs, domain.ColumnSpec{RawKey: rawKey, Label: specLabel})
	}

	// The source already orders ascending, but the result must stay
	// deterministic even against a collaborator that does not honor it.
	sort.Slice(specs, func(i, j int) bool { return specs[i].RawKey < specs[j].RawKey })

	p.columns = specs
	p.haveColumns = true
	return specs, nil
}

// DistinctKeys computes the sorted, deduplicated, normalized distinct
// values of the primary group field. Memoized for the provider's lifetime;
// pagination windows and the total count are defined over these keys.
func (p *Provider) DistinctKeys(ctx context.Context) ([]string, error) {
	if p.haveKeys {
		return p.keys, nil
	}

	field := p.primaryGroupField()
	rows, err := p.cfg.Source.Clone().Select(field).Distinct().OrderBy(field).All(ctx)
	if err != nil {
		return nil, fmt.Errorf("discovering group keys: %w", err)
	}

	seen := make(map[string]struct{}, len(rows))
	keys := make([]string, 0, len(rows))
	for _, row := range rows {
		value, err := ResolveValue(row, field)
		if err != nil {
			return nil, err
		}
		key := Normalize(stringify(value))
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	p.keys = keys
	p.haveKeys = true
	return keys, nil
}

// TotalCount returns the number of distinct primary group-field values,
// not the raw row count. Pagination operates over groups.
func (p *Provider) TotalCount(ctx context.Context) (int, error) {
	field := p.primaryGroupField()
	count, err := p.cfg.Source.Clone().Select(field).Distinct().Count(ctx, field)
	if err != nil {
		return 0, fmt.Errorf("counting groups: %w", err)
	}
	return count, nil
}

// Data fetches the (optionally windowed) rows and assembles the pivoted
// table.
func (p *Provider) Data(ctx context.Context) (domain.PivotedTable, error) {
	columns, err := p.DistinctColumns(ctx)
	if err != nil {
		return nil, err
	}

	field := p.primaryGroupField()
	source := p.cfg.Source.Clone().OrderBy(field)

	if p.cfg.Page != nil {
		keys, err := p.DistinctKeys(ctx)
		if err != nil {
			return nil, err
		}
		upper := UpperBound(p.cfg.Page.Offset, p.cfg.Page.Limit, keys)
		// Without a usable upper bound the window degenerates to "no
		// additional filter".
		if upper != "" {
			source = source.Where(Between{
				Field: field,
				Lower: LowerBound(p.cfg.Page.Offset, keys),
				Upper: upper,
			})
		}
	}

	rows, err := source.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching rows: %w", err)
	}

	return Transpose(rows, p.cfg.GroupFields, p.cfg.ColumnsField, p.cfg.ValuesField, p.cfg.ExtraFields, columns)
}
