package repository

import (
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/rpattn/pivotql/internal/pivot"
)

func TestRecordSourceBuildAllDistinctProjection(t *testing.T) {
	source := NewRecordSource(nil, uuid.New())
	source.Select("subject").Distinct().OrderBy("subject")

	query, args, err := source.buildAll()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := "SELECT DISTINCT jsonb_build_object('subject', fields->'subject') AS doc FROM records WHERE dataset_id = $1 ORDER BY 1"
	if query != expected {
		t.Errorf("unexpected query:\n got %s\nwant %s", query, expected)
	}
	if len(args) != 1 {
		t.Errorf("expected 1 arg, got %v", args)
	}
}

func TestRecordSourceBuildAllWindowed(t *testing.T) {
	source := NewRecordSource(nil, uuid.New())
	source.OrderBy("student")
	source.Where(pivot.Between{Field: "student", Lower: "c", Upper: "f"})

	query, args, err := source.buildAll()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := "SELECT fields AS doc FROM records WHERE dataset_id = $1 AND fields->>'student' BETWEEN $2 AND $3 ORDER BY fields->>'student' ASC"
	if query != expected {
		t.Errorf("unexpected query:\n got %s\nwant %s", query, expected)
	}
	if len(args) != 3 || args[1] != "c" || args[2] != "f" {
		t.Errorf("unexpected args: %v", args)
	}
}

func TestRecordSourceBuildAllOpenLowerBound(t *testing.T) {
	source := NewRecordSource(nil, uuid.New())
	source.Where(pivot.Between{Field: "student", Lower: "", Upper: "f"})

	query, _, err := source.buildAll()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(query, "fields->>'student' <= $2") {
		t.Errorf("open lower bound should degrade to <=, got %s", query)
	}
}

func TestRecordSourceBuildCountDistinct(t *testing.T) {
	source := NewRecordSource(nil, uuid.New())
	source.Select("student").Distinct()

	query, _, err := source.buildCount("student")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := "SELECT COUNT(DISTINCT fields->>'student') FROM records WHERE dataset_id = $1"
	if query != expected {
		t.Errorf("unexpected query:\n got %s\nwant %s", query, expected)
	}
}

func TestRecordSourceRejectsUnsafeFields(t *testing.T) {
	source := NewRecordSource(nil, uuid.New())
	source.Select("subject'; DROP TABLE records; --")

	if _, _, err := source.buildAll(); err == nil {
		t.Fatal("expected unsafe field name to be rejected")
	}

	// Dotted paths are stripped to their final segment before querying.
	clean := NewRecordSource(nil, uuid.New())
	clean.Select("attr.name")
	query, _, err := clean.buildAll()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(query, "'name', fields->'name'") {
		t.Errorf("expected stripped projection, got %s", query)
	}
}
