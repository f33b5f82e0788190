package domain

import (
	"time"

	"github.com/google/uuid"
)

// Attribute is one entry of a dataset's attribute lookup table. For
// EAV-style datasets the set of pivoted output columns is discovered from
// these rows instead of from the record data itself.
type Attribute struct {
	ID        uuid.UUID `json:"id"`
	DatasetID uuid.UUID `json:"dataset_id"`
	Name      string    `json:"name"`
	Label     string    `json:"label"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"`
}

// NewAttribute creates a new attribute lookup entry
func NewAttribute(datasetID uuid.UUID, name, label string, position int) Attribute {
	if label == "" {
		label = name
	}
	return Attribute{
		ID:        uuid.New(),
		DatasetID: datasetID,
		Name:      name,
		Label:     label,
		Position:  position,
		CreatedAt: time.Now(),
	}
}
