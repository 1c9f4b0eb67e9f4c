package models

import "time"

// FactSnapshot carries the externally supplied values conditions are evaluated against.
type FactSnapshot struct {
	Price   float64        `json:"price"`
	Balance float64        `json:"balance"`
	Now     time.Time      `json:"now"`
	Custom  map[string]any `json:"custom,omitempty"`
}
