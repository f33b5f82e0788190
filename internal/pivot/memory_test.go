package pivot

import (
	"context"
	"reflect"
	"testing"
)

func TestMemorySourceDistinctProjection(t *testing.T) {
	source := NewMemorySource(gradeRows())

	rows, err := source.Clone().Select("subject").Distinct().OrderBy("subject").All(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var subjects []string
	for _, row := range rows {
		subjects = append(subjects, stringify(row["subject"]))
	}
	if !reflect.DeepEqual(subjects, []string{"cre", "ghc"}) {
		t.Errorf("expected [cre ghc], got %v", subjects)
	}
}

func TestMemorySourceBetween(t *testing.T) {
	source := NewMemorySource(gradeRows())

	rows, err := source.Clone().Where(Between{Field: "student", Lower: "leon", Upper: "leon"}).All(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 || rows[0]["student"] != "leon" {
		t.Errorf("expected only leon's row, got %v", rows)
	}

	// Open start: empty lower bound keeps everything up to the upper key.
	rows, err = source.Clone().Where(Between{Field: "student", Lower: "", Upper: "leon"}).All(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("expected rows up to leon, got %v", rows)
	}
}

func TestMemorySourceCountDistinct(t *testing.T) {
	source := NewMemorySource(gradeRows())

	count, err := source.Clone().Distinct().Count(context.Background(), "student")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 distinct students, got %d", count)
	}

	count, err = source.Clone().Count(context.Background(), "student")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 raw rows, got %d", count)
	}
}

func TestMemorySourceCloneIsolation(t *testing.T) {
	source := NewMemorySource(gradeRows())

	filtered := source.Clone().Where(Between{Field: "student", Lower: "z", Upper: "zz"})
	rows, err := filtered.All(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("expected empty window, got %v", rows)
	}

	rows, err = source.Clone().All(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 3 {
		t.Errorf("clone leaked configuration into the base source: %v", rows)
	}
}
