package pivot

import (
	"strings"

	"github.com/rpattn/pivotql/internal/domain"
)

// ExtraField copies one additional source field into every matched output
// row. Named fields reuse the source field as the output label; keyed
// fields separate the two.
type ExtraField struct {
	SourceField string
	Label       string
}

// Named builds an extra field whose label doubles as the source field.
func Named(field string) ExtraField {
	return ExtraField{SourceField: field, Label: field}
}

// Keyed builds an extra field with an explicit source-to-label mapping.
func Keyed(source, label string) ExtraField {
	return ExtraField{SourceField: source, Label: label}
}

// ParseExtraFields reads a comma-separated extra-field spec as accepted by
// the HTTP and CLI surfaces: "serial" names a field, "serial:sn" maps the
// serial field to the sn label.
func ParseExtraFields(spec string) []ExtraField {
	if strings.TrimSpace(spec) == "" {
		return nil
	}

	var fields []ExtraField
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if source, label, ok := strings.Cut(part, ":"); ok {
			fields = append(fields, Keyed(strings.TrimSpace(source), strings.TrimSpace(label)))
		} else {
			fields = append(fields, Named(part))
		}
	}
	return fields
}

// Transpose pivots long-format rows into a wide table. Each row contributes
// to the output row identified by its group key; a row's columns-field
// value must match a discovered column's raw key, otherwise the pairing is
// skipped without error. Duplicate (group, label) writes resolve
// last-write-wins.
func Transpose(
	rows []domain.Row,
	groupFields []string,
	columnsField string,
	valuesField string,
	extraFields []ExtraField,
	columns []domain.ColumnSpec,
) (domain.PivotedTable, error) {
	table := make(domain.PivotedTable)

	for _, row := range rows {
		groupKey, err := groupKeyFor(row, groupFields)
		if err != nil {
			return nil, err
		}

		columnValue, err := ResolveValue(row, columnsField)
		if err != nil {
			return nil, err
		}
		rawKey := stringify(columnValue)

		for _, spec := range columns {
			if rawKey != spec.RawKey {
				continue
			}

			value, err := ResolveValue(row, valuesField)
			if err != nil {
				return nil, err
			}

			cells, ok := table[groupKey]
			if !ok {
				cells = make(domain.Row)
				table[groupKey] = cells
			}
			cells[spec.Label] = value

			for _, extra := range extraFields {
				extraValue, err := ResolveValue(row, extra.SourceField)
				if err != nil {
					return nil, err
				}
				cells[extra.Label] = extraValue
			}
		}
	}

	return table, nil
}

// groupKeyFor derives the output row key. Composite keys concatenate both
// resolved values; values are used as they appear in the row, not
// normalized, so they keep matching the richer data rows.
func groupKeyFor(row domain.Row, groupFields []string) (string, error) {
	var key strings.Builder
	for _, field := range groupFields {
		value, err := ResolveValue(row, field)
		if err != nil {
			return "", err
		}
		key.WriteString(stringify(value))
	}
	return key.String(), nil
}
