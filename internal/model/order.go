package model

import "time"

// Order mirrors the `orders` table.  The schema enforces one order per
// (user, event) pair via a unique key.
type Order struct {
	ID         uint64      `json:"id"`
	UserID     uint64      `json:"user_id"`
	EventID    uint64      `json:"event_id"`
	Note       *string     `json:"note,omitempty"`
	TotalCents uint32      `json:"total_cents"`
	Items      []OrderItem `json:"items,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// OrderItem mirrors the `order_items` table.  PriceCents is a copy of the
// menu item price at ordering time, so later menu edits do not change past
// orders.
type OrderItem struct {
	ID         uint64    `json:"id"`
	OrderID    uint64    `json:"order_id"`
	MenuItemID uint64    `json:"menu_item_id"`
	Quantity   uint32    `json:"quantity"`
	PriceCents uint32    `json:"price_cents"`
	CreatedAt  time.Time `json:"created_at"`
}
