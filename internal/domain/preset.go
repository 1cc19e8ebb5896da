package domain

import (
	"encoding/json"
	"time"
)

// Preset is a saved table request. Request holds the JSON form of the
// request so the metastore stays independent of its shape.
type Preset struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Dataset     string          `json:"dataset"`
	Request     json.RawMessage `json:"request"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
