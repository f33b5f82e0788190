package ingestion

import (
	"context"
	"strings"
	"testing"

	"github.com/rpattn/pivotql/internal/domain"

	"github.com/google/uuid"
)

type stubRecordRepo struct {
	datasetID uuid.UUID
	created   []domain.Row
	cleared   bool
}

func (s *stubRecordRepo) CreateBatch(_ context.Context, datasetID uuid.UUID, rows []domain.Row) (int, error) {
	s.datasetID = datasetID
	s.created = append(s.created, rows...)
	return len(rows), nil
}

func (s *stubRecordRepo) Count(context.Context, uuid.UUID) (int64, error) {
	return int64(len(s.created)), nil
}

func (s *stubRecordRepo) DeleteByDataset(context.Context, uuid.UUID) error {
	s.created = nil
	s.cleared = true
	return nil
}

type stubAttributeRepo struct {
	replaced []domain.Attribute
}

func (s *stubAttributeRepo) ReplaceAll(_ context.Context, _ uuid.UUID, attributes []domain.Attribute) error {
	s.replaced = attributes
	return nil
}

func (s *stubAttributeRepo) List(context.Context, uuid.UUID) ([]domain.Attribute, error) {
	return s.replaced, nil
}

func TestServiceIngestRecords(t *testing.T) {
	datasetID := uuid.New()
	recordRepo := &stubRecordRepo{}
	service := NewService(recordRepo, &stubAttributeRepo{})

	data := "\ufeff" + `student,subject,score
mat,cre,52
leon,ghc,65
`
	summary, err := service.Ingest(context.Background(), Request{
		DatasetID: datasetID,
		FileName:  "grades.csv",
		Data:      strings.NewReader(data),
	})
	if err != nil {
		t.Fatalf("ingest returned error: %v", err)
	}

	if summary.TotalRows != 2 || summary.Ingested != 2 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if recordRepo.datasetID != datasetID {
		t.Fatalf("expected dataset %s, got %s", datasetID, recordRepo.datasetID)
	}
	if len(recordRepo.created) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recordRepo.created))
	}
	if recordRepo.created[0]["student"] != "mat" {
		t.Fatalf("unexpected first row: %+v", recordRepo.created[0])
	}
	if recordRepo.created[0]["score"] != int64(52) {
		t.Fatalf("expected numeric score, got %T %v", recordRepo.created[0]["score"], recordRepo.created[0]["score"])
	}
}

func TestServiceIngestReplaceClearsExistingRecords(t *testing.T) {
	datasetID := uuid.New()
	recordRepo := &stubRecordRepo{created: []domain.Row{{"student": "old"}}}
	service := NewService(recordRepo, &stubAttributeRepo{})

	data := `student,subject,score
mat,cre,52
`
	summary, err := service.Ingest(context.Background(), Request{
		DatasetID: datasetID,
		Replace:   true,
		FileName:  "grades.csv",
		Data:      strings.NewReader(data),
	})
	if err != nil {
		t.Fatalf("ingest returned error: %v", err)
	}

	if !recordRepo.cleared {
		t.Fatalf("expected existing records to be cleared")
	}
	if summary.Ingested != 1 || len(recordRepo.created) != 1 {
		t.Fatalf("expected only the new record, got %+v / %+v", summary, recordRepo.created)
	}
	if recordRepo.created[0]["student"] != "mat" {
		t.Fatalf("unexpected record: %+v", recordRepo.created[0])
	}
}

func TestServiceIngestAttributes(t *testing.T) {
	datasetID := uuid.New()
	attrRepo := &stubAttributeRepo{}
	service := NewService(&stubRecordRepo{}, attrRepo)

	data := `name,label
cre,Religious Ed
ghc,Geography
,ignored
`
	summary, err := service.Ingest(context.Background(), Request{
		DatasetID: datasetID,
		Target:    TargetAttributes,
		FileName:  "subjects.csv",
		Data:      strings.NewReader(data),
	})
	if err != nil {
		t.Fatalf("ingest returned error: %v", err)
	}

	if summary.Ingested != 2 || summary.Skipped != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if len(attrRepo.replaced) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrRepo.replaced))
	}
	if attrRepo.replaced[0].Name != "cre" || attrRepo.replaced[0].Label != "Religious Ed" {
		t.Fatalf("unexpected attribute: %+v", attrRepo.replaced[0])
	}
	if attrRepo.replaced[1].Position != 1 {
		t.Fatalf("expected position 1, got %d", attrRepo.replaced[1].Position)
	}
}

func TestParseFileNestedHeaders(t *testing.T) {
	data := `student,attr.name,attr.label,value
mat,cre,Religious Ed,52
`
	rows, err := ParseFile("lookup.csv", []byte(data))
	if err != nil {
		t.Fatalf("parse returned error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}

	attr, ok := rows[0]["attr"].(domain.Row)
	if !ok {
		t.Fatalf("expected nested row under attr, got %T", rows[0]["attr"])
	}
	if attr["name"] != "cre" || attr["label"] != "Religious Ed" {
		t.Fatalf("unexpected nested row: %+v", attr)
	}
	if rows[0]["value"] != int64(52) {
		t.Fatalf("expected numeric value, got %T", rows[0]["value"])
	}
}

func TestParseFileUnsupportedExtension(t *testing.T) {
	if _, err := ParseFile("data.pdf", []byte("x")); err == nil {
		t.Fatalf("expected error for unsupported extension")
	}
}

func TestSanitizeHeadersPreservesDots(t *testing.T) {
	headers := sanitizeHeaders([]string{" Fire Mode ", "plane.tail-number", "", "value", "value"})

	want := []string{"Fire_Mode", "plane.tail_number", "column_3", "value", "value_2"}
	for i, h := range headers {
		if h != want[i] {
			t.Fatalf("header %d: expected %q, got %q", i, want[i], h)
		}
	}
}
