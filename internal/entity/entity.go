// Package entity provides the embedded base for persisted Relay entities.
package entity

import "time"

// Entity carries the timestamps shared by every persisted Relay entity.
// Embed it by value; call Init on create and Touch on every mutation.
type Entity struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Init stamps both timestamps with the current UTC time.
func (e *Entity) Init() {
	now := time.Now().UTC()
	e.CreatedAt = now
	e.UpdatedAt = now
}

// Touch refreshes UpdatedAt with the current UTC time.
func (e *Entity) Touch() {
	e.UpdatedAt = time.Now().UTC()
}
