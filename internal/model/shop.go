package model

import "time"

// Shop mirrors the `shops` table.  A shop is a restaurant the group can
// order from; menus hang off it.
type Shop struct {
	ID          uint64    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
