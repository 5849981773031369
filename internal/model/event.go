package model

import "time"

// Lunch event lifecycle states.
const (
	EventOpen      = "OPEN"
	EventClosed    = "CLOSED"
	EventCancelled = "CANCELLED"
)

// LunchEvent mirrors the `lunch_events` table.  Each event pins a shop and a
// date; users place at most one order per event before the deadline.
type LunchEvent struct {
	ID            uint64    `json:"id"`
	ShopID        uint64    `json:"shop_id"`
	Title         string    `json:"title"`
	EventDate     time.Time `json:"event_date"`
	OrderDeadline time.Time `json:"order_deadline"`
	Status        string    `json:"status"`
	CreatedBy     uint64    `json:"created_by"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// AcceptsOrders reports whether new orders may be placed at the given time.
func (e LunchEvent) AcceptsOrders(now time.Time) bool {
	return e.Status == EventOpen && now.Before(e.OrderDeadline)
}
