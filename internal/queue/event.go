// Package queue defines message payloads exchanged over the message broker
// and the background consumers that drain them.
package queue

// Queue names double as routing keys on the default exchange.
const (
	OrderPlacedQueue   = "order.placed"
	PasswordResetQueue = "auth.password_reset"
)

// OrderPlacedEvent is published when an order is successfully placed for a
// lunch event. It carries enough context for downstream consumers to log or
// notify without querying the primary database.
type OrderPlacedEvent struct {
	OrderID    uint64   `json:"order_id"`
	UserID     uint64   `json:"user_id"`
	UserName   string   `json:"user_name"`
	EventID    uint64   `json:"event_id"`
	EventTitle string   `json:"event_title"`
	ShopName   string   `json:"shop_name"`
	Items      []string `json:"items"`
	TotalCents uint32   `json:"total_cents"`
	PlacedAt   string   `json:"placed_at"`
}

// PasswordResetEvent is published when a reset token has been issued. A mail
// worker consumes it and delivers the reset link; the API itself never sends
// mail inline.
type PasswordResetEvent struct {
	UserID    uint64 `json:"user_id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}
