package ingestion

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rpattn/pivotql/internal/domain"
	"github.com/rpattn/pivotql/internal/repository"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

var (
	// ErrUnsupportedFormat is returned when an uploaded file is not supported.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	byteOrderMark = []byte{0xEF, 0xBB, 0xBF}
)

// Target selects what an upload feeds: the dataset's long-format records,
// or its attribute lookup table.
type Target string

const (
	TargetRecords    Target = "records"
	TargetAttributes Target = "attributes"
)

// Service ingests tabular long-format data into datasets.
type Service struct {
	records    repository.RecordRepository
	attributes repository.AttributeRepository
}

// NewService creates a new ingestion service.
func NewService(records repository.RecordRepository, attributes repository.AttributeRepository) *Service {
	return &Service{
		records:    records,
		attributes: attributes,
	}
}

// Request describes the ingestion input. Replace clears the dataset's
// existing records before inserting; attribute uploads always replace.
type Request struct {
	DatasetID uuid.UUID
	Target    Target
	Replace   bool
	FileName  string
	Data      io.Reader
}

// Summary returns ingestion level metrics.
type Summary struct {
	TotalRows int `json:"totalRows"`
	Ingested  int `json:"ingested"`
	Skipped   int `json:"skipped"`
}

// Ingest reads the uploaded file and persists its rows.
func (s *Service) Ingest(ctx context.Context, req Request) (Summary, error) {
	var summary Summary

	if req.DatasetID == uuid.Nil {
		return summary, errors.New("dataset id is required")
	}
	if req.Data == nil {
		return summary, errors.New("data reader is required")
	}
	target := req.Target
	if target == "" {
		target = TargetRecords
	}

	payload, err := io.ReadAll(req.Data)
	if err != nil {
		return summary, fmt.Errorf("failed to read upload: %w", err)
	}
	if len(payload) == 0 {
		return summary, errors.New("file is empty")
	}

	rows, err := ParseFile(req.FileName, payload)
	if err != nil {
		return summary, err
	}
	summary.TotalRows = len(rows)

	switch target {
	case TargetRecords:
		if req.Replace {
			if err := s.records.DeleteByDataset(ctx, req.DatasetID); err != nil {
				return summary, fmt.Errorf("failed to clear records: %w", err)
			}
		}
		inserted, err := s.records.CreateBatch(ctx, req.DatasetID, rows)
		if err != nil {
			return summary, fmt.Errorf("failed to store records: %w", err)
		}
		summary.Ingested = inserted
	case TargetAttributes:
		attributes, skipped := buildAttributes(req.DatasetID, rows)
		if err := s.attributes.ReplaceAll(ctx, req.DatasetID, attributes); err != nil {
			return summary, fmt.Errorf("failed to store attributes: %w", err)
		}
		summary.Ingested = len(attributes)
		summary.Skipped = skipped
	default:
		return summary, fmt.Errorf("unknown ingest target %q", target)
	}

	return summary, nil
}

// buildAttributes converts parsed rows into lookup entries. Rows without a
// name field are skipped.
func buildAttributes(datasetID uuid.UUID, rows []domain.Row) ([]domain.Attribute, int) {
	var attributes []domain.Attribute
	skipped := 0
	for _, row := range rows {
		name := strings.TrimSpace(stringField(row, "name"))
		if name == "" {
			skipped++
			continue
		}
		attributes = append(attributes, domain.NewAttribute(datasetID, name, stringField(row, "label"), len(attributes)))
	}
	return attributes, skipped
}

func stringField(row domain.Row, field string) string {
	switch v := row[field].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// ParseFile parses a CSV or XLSX payload into long-format rows. The first
// non-empty row is the header; dotted headers ("plane.name") nest their
// values one level deep.
func ParseFile(fileName string, payload []byte) ([]domain.Row, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	switch ext {
	case ".csv":
		return parseCSV(payload)
	case ".xlsx":
		return parseExcel(payload)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
}

func parseCSV(payload []byte) ([]domain.Row, error) {
	reader := bufio.NewReader(bytes.NewReader(payload))
	if prefix, err := reader.Peek(len(byteOrderMark)); err == nil && bytes.Equal(prefix, byteOrderMark) {
		_, _ = reader.Discard(len(byteOrderMark))
	}

	csvReader := csv.NewReader(reader)
	csvReader.TrimLeadingSpace = true
	csvReader.FieldsPerRecord = -1

	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}

	return buildRows(records)
}

func parseExcel(payload []byte) ([]domain.Row, error) {
	f, err := excelize.OpenReader(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("excel file has no sheets")
	}

	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read rows from xlsx: %w", err)
	}

	return buildRows(records)
}

func buildRows(records [][]string) ([]domain.Row, error) {
	var headers []string
	var rows []domain.Row

	for _, record := range records {
		if len(cleanRow(record)) == 0 {
			continue
		}
		if headers == nil {
			headers = sanitizeHeaders(record)
			continue
		}

		record = padRow(record, len(headers))
		row := make(domain.Row, len(headers))
		for i, header := range headers {
			setField(row, header, typedValue(record[i]))
		}
		rows = append(rows, row)
	}

	if headers == nil {
		return nil, errors.New("header row could not be detected")
	}
	return rows, nil
}

// setField writes a value under a possibly dotted header, nesting one
// level per separator.
func setField(row domain.Row, header string, value any) {
	head, tail, nested := strings.Cut(header, ".")
	if !nested {
		row[header] = value
		return
	}

	child, ok := row[head].(domain.Row)
	if !ok {
		child = make(domain.Row)
		row[head] = child
	}
	setField(child, tail, value)
}

// typedValue parses numeric cells so values survive as numbers rather
// than strings.
func typedValue(cell string) any {
	trimmed := strings.TrimSpace(cell)
	if trimmed == "" {
		return ""
	}
	if i, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return f
	}
	return trimmed
}

func cleanRow(row []string) []string {
	var cleaned []string
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			cleaned = append(cleaned, cell)
		}
	}
	return cleaned
}

// sanitizeHeaders trims and de-duplicates header names. Dots survive as
// the nesting separator; spaces and hyphens become underscores.
func sanitizeHeaders(raw []string) []string {
	headers := make([]string, len(raw))
	seen := make(map[string]int)

	for idx, value := range raw {
		name := strings.TrimSpace(value)
		name = strings.ReplaceAll(name, " ", "_")
		name = strings.ReplaceAll(name, "-", "_")
		name = strings.Trim(name, "_")
		if name == "" {
			name = fmt.Sprintf("column_%d", idx+1)
		}

		base := name
		count := seen[base]
		if count > 0 {
			name = fmt.Sprintf("%s_%d", base, count+1)
		}
		seen[base] = count + 1

		headers[idx] = name
	}

	return headers
}

func padRow(row []string, length int) []string {
	if len(row) >= length {
		return row[:length]
	}
	padded := make([]string, length)
	copy(padded, row)
	for i := len(row); i < length; i++ {
		padded[i] = ""
	}
	return padded
}
