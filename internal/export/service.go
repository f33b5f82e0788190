package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/rpattn/pivotql/internal/domain"
	"github.com/rpattn/pivotql/internal/pivot"

	"github.com/xuri/excelize/v2"
)

// ErrUnsupportedFormat is returned for export formats the service cannot
// produce.
var ErrUnsupportedFormat = errors.New("unsupported export format")

// Format names a supported output encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ContentType returns the MIME type for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "text/csv"
	}
}

// Request describes a pivoted table to flatten. KeyLabel heads the group
// key column; Columns and ExtraFields fix the output column order.
type Request struct {
	Table       domain.PivotedTable
	KeyLabel    string
	Columns     []domain.ColumnSpec
	ExtraFields []pivot.ExtraField
}

// Write encodes the table in the requested format.
func Write(w io.Writer, format Format, req Request) error {
	switch format {
	case FormatCSV:
		return writeCSV(w, req)
	case FormatXLSX:
		return writeXLSX(w, req)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// header lists the output columns in their stable order: the group key
// first, then the pivoted column labels, then any extras.
func header(req Request) []string {
	keyLabel := req.KeyLabel
	if keyLabel == "" {
		keyLabel = "key"
	}

	columns := make([]string, 0, 1+len(req.Columns)+len(req.ExtraFields))
	columns = append(columns, keyLabel)
	for _, spec := range req.Columns {
		columns = append(columns, spec.Label)
	}
	for _, extra := range req.ExtraFields {
		columns = append(columns, extra.Label)
	}
	return columns
}

func cellValues(req Request, key string) []string {
	row := req.Table[key]
	columns := header(req)

	cells := make([]string, len(columns))
	cells[0] = key
	for i, column := range columns[1:] {
		if value, ok := row[column]; ok && value != nil {
			cells[i+1] = fmt.Sprint(value)
		}
	}
	return cells
}

func writeCSV(w io.Writer, req Request) error {
	csvWriter := csv.NewWriter(w)

	if err := csvWriter.Write(header(req)); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, key := range req.Table.Keys() {
		if err := csvWriter.Write(cellValues(req, key)); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}

	csvWriter.Flush()
	if err := csvWriter.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

func writeXLSX(w io.Writer, req Request) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	if err := writeSheetRow(f, sheet, 1, header(req)); err != nil {
		return err
	}
	for i, key := range req.Table.Keys() {
		if err := writeSheetRow(f, sheet, i+2, cellValues(req, key)); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

func writeSheetRow(f *excelize.File, sheet string, rowIndex int, cells []string) error {
	for col, value := range cells {
		cell, err := excelize.CoordinatesToCellName(col+1, rowIndex)
		if err != nil {
			return fmt.Errorf("resolve cell: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, value); err != nil {
			return fmt.Errorf("set cell %s: %w", cell, err)
		}
	}
	return nil
}
