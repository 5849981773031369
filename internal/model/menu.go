package model

import "time"

// Menu mirrors the `menus` table.  A shop can carry several menus (e.g. a
// weekday menu and a seasonal one); only active menus are shown publicly.
type Menu struct {
	ID        uint64    `json:"id"`
	ShopID    uint64    `json:"shop_id"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MenuCategory mirrors the `menu_categories` table.  Position controls the
// display order inside a menu.
type MenuCategory struct {
	ID        uint64    `json:"id"`
	MenuID    uint64    `json:"menu_id"`
	Name      string    `json:"name"`
	Position  uint32    `json:"position"`
	CreatedAt time.Time `json:"created_at"`
}

// MenuItem mirrors the `menu_items` table.  Prices are stored in cents.
type MenuItem struct {
	ID          uint64    `json:"id"`
	CategoryID  uint64    `json:"category_id"`
	Name        string    `json:"name"`
	PriceCents  uint32    `json:"price_cents"`
	IsAvailable bool      `json:"is_available"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
