package types

import "time"

// Event is the change notification emitted for every registry update. When
// delivered to a subscriber it is merged over the subscription's own fields.
type Event struct {
	ID        string         `json:"id"`
	Prefix    string         `json:"prefix,omitempty"`
	Type      string         `json:"type,omitempty"`
	Value     Value          `json:"value"`
	Previous  Value          `json:"previous"`
	Changed   bool           `json:"changed"`
	Trigger   Trigger        `json:"trigger"`
	Meta      map[string]any `json:"meta,omitempty"`
	UpdatedAt time.Time      `json:"updated_at"`
}
