package domain

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Row holds one record's field values. Values are scalars, or nested Rows
// for relation fields resolved one level deep (e.g. row["plane"]["name"]).
type Row map[string]any

// Clone returns a shallow copy of the row's top-level fields.
func (r Row) Clone() Row {
	clone := make(Row, len(r))
	for k, v := range r {
		clone[k] = v
	}
	return clone
}

func (r Row) AsJSONB() (json.RawMessage, error) {
	if r == nil {
		return json.Marshal(Row{})
	}
	return json.Marshal(r)
}

// RowFromJSONB decodes a JSONB payload into a row. Nested objects stay as
// map[string]any and are treated as nested rows by the resolver.
func RowFromJSONB(raw json.RawMessage) (Row, error) {
	var row Row
	err := json.Unmarshal(raw, &row)
	return row, err
}

// Record is one stored long-format row belonging to a dataset.
type Record struct {
	ID        uuid.UUID `json:"id"`
	DatasetID uuid.UUID `json:"dataset_id"`
	Fields    Row       `json:"fields"`
	CreatedAt time.Time `json:"created_at"`
}

// NewRecord creates a new record for a dataset
func NewRecord(datasetID uuid.UUID, fields Row) Record {
	return Record{
		ID:        uuid.New(),
		DatasetID: datasetID,
		Fields:    fields.Clone(),
		CreatedAt: time.Now(),
	}
}

// ColumnSpec pairs the raw value found in the columns field with the label
// used as the output column key. Raw keys are unique within a discovered
// column set; label collisions overwrite during assembly.
type ColumnSpec struct {
	RawKey string `json:"rawKey"`
	Label  string `json:"label"`
}

// PivotedTable maps a group key to its assembled cells, one entry per group.
// encoding/json renders map keys in sorted order, so a serialized table is
// already key-sorted; Keys returns the same ordering for iteration.
type PivotedTable map[string]Row

// Keys returns the group keys in ascending order.
func (t PivotedTable) Keys() []string {
	keys := make([]string, 0, len(t))
	for key := range t {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
