package pivot

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/rpattn/pivotql/internal/domain"
)

// flakySource wraps a Source and reverses every result set after the first
// call, to prove memoized computations stay deterministic regardless of
// collaborator ordering.
type flakySource struct {
	inner    Source
	allCalls *int
}

func (f *flakySource) Select(fields ...string) Source { f.inner = f.inner.Select(fields...); return f }
func (f *flakySource) Distinct() Source               { f.inner = f.inner.Distinct(); return f }
func (f *flakySource) OrderBy(field string) Source    { f.inner = f.inner.OrderBy(field); return f }
func (f *flakySource) Where(cond Between) Source      { f.inner = f.inner.Where(cond); return f }
func (f *flakySource) Clone() Source {
	return &flakySource{inner: f.inner.Clone(), allCalls: f.allCalls}
}

func (f *flakySource) Count(ctx context.Context, field string) (int, error) {
	return f.inner.Count(ctx, field)
}

func (f *flakySource) All(ctx context.Context) ([]domain.Row, error) {
	rows, err := f.inner.All(ctx)
	if err != nil {
		return nil, err
	}
	*f.allCalls++
	if *f.allCalls > 1 {
		reversed := make([]domain.Row, len(rows))
		for i, row := range rows {
			reversed[len(rows)-1-i] = row
		}
		return reversed, nil
	}
	return rows, nil
}

func newGradeProvider(t *testing.T, cfg Config) *Provider {
	t.Helper()
	if cfg.Source == nil {
		cfg.Source = NewMemorySource(gradeRows())
	}
	if cfg.GroupFields == nil {
		cfg.GroupFields = []string{"student"}
	}
	if cfg.ColumnsField == "" {
		cfg.ColumnsField = "subject"
	}
	if cfg.ValuesField == "" {
		cfg.ValuesField = "grade"
	}
	provider, err := NewProvider(cfg)
	if err != nil {
		t.Fatalf("unexpected config error: %v", err)
	}
	return provider
}

func TestNewProviderValidation(t *testing.T) {
	cases := []Config{
		{},
		{Source: NewMemorySource(nil)},
		{Source: NewMemorySource(nil), GroupFields: []string{"a", "b", "c"}, ColumnsField: "c", ValuesField: "v"},
		{Source: NewMemorySource(nil), GroupFields: []string{""}, ColumnsField: "c", ValuesField: "v"},
		{Source: NewMemorySource(nil), GroupFields: []string{"g"}, ValuesField: "v"},
		{Source: NewMemorySource(nil), GroupFields: []string{"g"}, ColumnsField: "c"},
	}
	for i, cfg := range cases {
		if _, err := NewProvider(cfg); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("case %d: expected ErrInvalidConfig, got %v", i, err)
		}
	}
}

func TestProviderEndToEnd(t *testing.T) {
	provider := newGradeProvider(t, Config{})

	table, err := provider.Data(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if keys := table.Keys(); !reflect.DeepEqual(keys, []string{"leon", "mat"}) {
		t.Errorf("expected keys [leon mat], got %v", keys)
	}
	if table["mat"]["cre"] != 52 || table["mat"]["ghc"] != 40 || table["leon"]["cre"] != 70 {
		t.Errorf("unexpected table: %v", table)
	}
}

func TestProviderTotalCountIsDistinct(t *testing.T) {
	// Three raw rows, two distinct students.
	provider := newGradeProvider(t, Config{})

	count, err := provider.TotalCount(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 distinct groups, got %d", count)
	}
}

func TestProviderMemoizesDistinctSets(t *testing.T) {
	calls := 0
	provider := newGradeProvider(t, Config{
		Source: &flakySource{inner: NewMemorySource(gradeRows()), allCalls: &calls},
	})
	ctx := context.Background()

	first, err := provider.DistinctColumns(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := provider.DistinctColumns(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("memoized columns differ: %v vs %v", first, second)
	}

	keysFirst, err := provider.DistinctKeys(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	keysSecond, err := provider.DistinctKeys(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(keysFirst, keysSecond) {
		t.Errorf("memoized keys differ: %v vs %v", keysFirst, keysSecond)
	}
	if !reflect.DeepEqual(keysFirst, []string{"leon", "mat"}) {
		t.Errorf("expected sorted keys [leon mat], got %v", keysFirst)
	}
}

func TestProviderColumnLookupSource(t *testing.T) {
	// EAV-style: column identity and display labels come from a separate
	// attribute lookup. The lookup query uses the stripped column field
	// ("name"), while matching resolves the full dotted path against the
	// richer data rows.
	rows := []domain.Row{
		{"student": "mat", "attr": domain.Row{"name": "cre"}, "grade": 52},
		{"student": "mat", "attr": domain.Row{"name": "ghc"}, "grade": 40},
		{"student": "leon", "attr": domain.Row{"name": "cre"}, "grade": 70},
	}
	lookup := NewMemorySource([]domain.Row{
		{"name": "cre", "label": "religious ed"},
		{"name": "ghc", "label": "geography"},
		{"name": "cre", "label": "religious ed"},
	})
	provider := newGradeProvider(t, Config{
		Source:        NewMemorySource(rows),
		ColumnsField:  "attr.name",
		ColumnsSource: lookup,
		LabelsField:   "label",
	})

	columns, err := provider.DistinctColumns(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := []domain.ColumnSpec{
		{RawKey: "cre", Label: "religious_ed"},
		{RawKey: "ghc", Label: "geography"},
	}
	if !reflect.DeepEqual(columns, expected) {
		t.Errorf("expected %v, got %v", expected, columns)
	}

	table, err := provider.Data(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if table["mat"]["religious_ed"] != 52 {
		t.Errorf("expected labelled column religious_ed=52, got %v", table["mat"])
	}
}

func TestProviderPagination(t *testing.T) {
	rows := []domain.Row{
		{"student": "0", "subject": "cre", "grade": 10},
		{"student": "1", "subject": "cre", "grade": 11},
		{"student": "2", "subject": "cre", "grade": 12},
		{"student": "3", "subject": "cre", "grade": 13},
		{"student": "4", "subject": "cre", "grade": 14},
	}
	provider := newGradeProvider(t, Config{
		Source: NewMemorySource(rows),
		Page:   &Page{Offset: 2, Limit: 2},
	})

	table, err := provider.Data(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Numeric group keys: offset 2 resolves positionally to key "2",
	// limit 2 closes the window at key "3".
	if keys := table.Keys(); !reflect.DeepEqual(keys, []string{"2", "3"}) {
		t.Errorf("expected window [2 3], got %v", keys)
	}
}

func TestProviderWindowEndingPastFinalGroup(t *testing.T) {
	rows := []domain.Row{
		{"student": "a", "subject": "cre", "grade": 10},
		{"student": "b", "subject": "cre", "grade": 11},
		{"student": "c", "subject": "cre", "grade": 12},
		{"student": "d", "subject": "cre", "grade": 13},
		{"student": "e", "subject": "cre", "grade": 14},
	}
	provider := newGradeProvider(t, Config{
		Source: NewMemorySource(rows),
		Page:   &Page{Offset: 1, Limit: 5},
	})

	table, err := provider.Data(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The window ends one past the final group, so there is no upper
	// bound and no range filter is applied at all.
	if len(table) != 5 {
		t.Errorf("expected all 5 groups, got %v", table.Keys())
	}
}

func TestProviderNoLimitDisablesWindow(t *testing.T) {
	provider := newGradeProvider(t, Config{
		Page: &Page{Offset: 1, Limit: 0},
	})

	table, err := provider.Data(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(table) != 2 {
		t.Errorf("limit 0 should fetch everything, got %v", table)
	}
}
