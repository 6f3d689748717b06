// Package types provides the value types shared across tally: token
// amounts, account addresses and entity timestamps.
package types

import "time"

// Entity carries creation and modification timestamps. Embed it in
// persisted domain types.
type Entity struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewEntity creates a new Entity stamped with the current UTC time.
func NewEntity() Entity {
	now := time.Now().UTC()
	return Entity{
		CreatedAt: now,
		UpdatedAt: now,
	}
}
