package pivot

import (
	"errors"
	"testing"

	"github.com/rpattn/pivotql/internal/domain"
)

func TestResolveValueFlatField(t *testing.T) {
	row := domain.Row{"grade": 52}

	value, err := ResolveValue(row, "grade")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if value != 52 {
		t.Errorf("expected 52, got %v", value)
	}
}

func TestResolveValueDottedPath(t *testing.T) {
	row := domain.Row{
		"user": domain.Row{"name": "Eddi"},
	}

	value, err := ResolveValue(row, "user.name")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if value != "Eddi" {
		t.Errorf("expected Eddi, got %v", value)
	}
}

func TestResolveValueDecodedNestedMap(t *testing.T) {
	// JSONB decoding leaves nested rows as plain maps.
	row := domain.Row{
		"plane": map[string]any{"name": "B737"},
	}

	value, err := ResolveValue(row, "plane.name")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if value != "B737" {
		t.Errorf("expected B737, got %v", value)
	}
}

func TestResolveValueMissingField(t *testing.T) {
	row := domain.Row{"grade": 52}

	if _, err := ResolveValue(row, "student"); !errors.Is(err, ErrFieldNotFound) {
		t.Fatalf("expected ErrFieldNotFound, got %v", err)
	}
	if _, err := ResolveValue(row, "grade.inner"); !errors.Is(err, ErrFieldNotFound) {
		t.Fatalf("expected ErrFieldNotFound for scalar descent, got %v", err)
	}
}

func TestLastSegment(t *testing.T) {
	cases := map[string]string{
		"user.name": "name",
		"grade":     "grade",
		"a.b.c":     "c",
		"trailing.": "",
	}
	for path, expected := range cases {
		if got := LastSegment(path); got != expected {
			t.Errorf("LastSegment(%q) = %q, expected %q", path, got, expected)
		}
	}
}
