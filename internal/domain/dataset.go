package domain

import (
	"time"

	"github.com/google/uuid"
)

// Dataset groups the long-format records that can be pivoted together
type Dataset struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewDataset creates a new dataset with immutable pattern
func NewDataset(name, description string) Dataset {
	now := time.Now()
	return Dataset{
		ID:          uuid.New(),
		Name:        name,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
