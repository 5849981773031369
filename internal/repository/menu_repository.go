package repository

import (
	"context"
	"database/sql"

	"github.com/lunchroom/lunchroom/internal/model"
)

// MenuRepo persists menus, their categories and items.
type MenuRepo struct{ DB *sql.DB }

func NewMenuRepo(db *sql.DB) *MenuRepo { return &MenuRepo{DB: db} }

// ----- menus -----

// CreateMenu inserts a menu for a shop and fills in its ID.
func (r *MenuRepo) CreateMenu(ctx context.Context, m *model.Menu) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO menus (shop_id, name) VALUES (?,?)", m.ShopID, m.Name)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = uint64(id)
	m.IsActive = true
	return nil
}

// GetMenu fetches a menu by id.
func (r *MenuRepo) GetMenu(ctx context.Context, id uint64) (model.Menu, error) {
	var m model.Menu
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,shop_id,name,is_active,created_at,updated_at FROM menus WHERE id=? LIMIT 1", id).
		Scan(&m.ID, &m.ShopID, &m.Name, &m.IsActive, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

// ListMenusByShop returns a shop's menus; activeOnly filters hidden ones.
func (r *MenuRepo) ListMenusByShop(ctx context.Context, shopID uint64, activeOnly bool) ([]model.Menu, error) {
	q := "SELECT id,shop_id,name,is_active,created_at,updated_at FROM menus WHERE shop_id=?"
	if activeOnly {
		q += " AND is_active=1"
	}
	q += " ORDER BY id"
	rows, err := r.DB.QueryContext(ctx, q, shopID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Menu
	for rows.Next() {
		var m model.Menu
		if err := rows.Scan(&m.ID, &m.ShopID, &m.Name, &m.IsActive, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// UpdateMenu renames a menu and/or flips its visibility.
func (r *MenuRepo) UpdateMenu(ctx context.Context, id uint64, name string, active bool) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE menus SET name=?, is_active=? WHERE id=?", name, active, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// DeleteMenu removes a menu; categories and items cascade.
func (r *MenuRepo) DeleteMenu(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM menus WHERE id=?", id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// ----- categories -----

// CreateCategory inserts a category and fills in its ID.
func (r *MenuRepo) CreateCategory(ctx context.Context, c *model.MenuCategory) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO menu_categories (menu_id, name, position) VALUES (?,?,?)",
		c.MenuID, c.Name, c.Position)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	return nil
}

// ListCategories returns a menu's categories in display order.
func (r *MenuRepo) ListCategories(ctx context.Context, menuID uint64) ([]model.MenuCategory, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id,menu_id,name,position,created_at FROM menu_categories WHERE menu_id=? ORDER BY position, id",
		menuID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.MenuCategory
	for rows.Next() {
		var c model.MenuCategory
		if err := rows.Scan(&c.ID, &c.MenuID, &c.Name, &c.Position, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// DeleteCategory removes a category; its items cascade.
func (r *MenuRepo) DeleteCategory(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM menu_categories WHERE id=?", id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// ----- items -----

// CreateItem inserts a menu item and fills in its ID.
func (r *MenuRepo) CreateItem(ctx context.Context, it *model.MenuItem) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO menu_items (category_id, name, price_cents) VALUES (?,?,?)",
		it.CategoryID, it.Name, it.PriceCents)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	it.ID = uint64(id)
	it.IsAvailable = true
	return nil
}

// GetItem fetches a menu item by id.
func (r *MenuRepo) GetItem(ctx context.Context, id uint64) (model.MenuItem, error) {
	var it model.MenuItem
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,category_id,name,price_cents,is_available,created_at,updated_at FROM menu_items WHERE id=? LIMIT 1", id).
		Scan(&it.ID, &it.CategoryID, &it.Name, &it.PriceCents, &it.IsAvailable, &it.CreatedAt, &it.UpdatedAt)
	return it, err
}

// ShopForItem resolves which shop sells an item via its category and menu,
// and reports whether that menu is currently active.  Misses surface as
// sql.ErrNoRows like the other lookups.
func (r *MenuRepo) ShopForItem(ctx context.Context, itemID uint64) (uint64, bool, error) {
	var shopID uint64
	var menuActive bool
	err := r.DB.QueryRowContext(ctx,
		"SELECT m.shop_id, m.is_active FROM menu_items i JOIN menu_categories c ON c.id=i.category_id JOIN menus m ON m.id=c.menu_id WHERE i.id=? LIMIT 1",
		itemID).Scan(&shopID, &menuActive)
	return shopID, menuActive, err
}

// ListItems returns a category's items.
func (r *MenuRepo) ListItems(ctx context.Context, categoryID uint64) ([]model.MenuItem, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id,category_id,name,price_cents,is_available,created_at,updated_at FROM menu_items WHERE category_id=? ORDER BY id",
		categoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.MenuItem
	for rows.Next() {
		var it model.MenuItem
		if err := rows.Scan(&it.ID, &it.CategoryID, &it.Name, &it.PriceCents, &it.IsAvailable, &it.CreatedAt, &it.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// UpdateItem changes name, price and availability.
func (r *MenuRepo) UpdateItem(ctx context.Context, id uint64, name string, priceCents uint32, available bool) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE menu_items SET name=?, price_cents=?, is_available=? WHERE id=?",
		name, priceCents, available, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// DeleteItem removes a menu item.  Items referenced by past orders cannot be
// removed; that surfaces as ErrConflict.
func (r *MenuRepo) DeleteItem(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM menu_items WHERE id=?", id)
	if err != nil {
		if isForeignKey(err) {
			return ErrConflict
		}
		return err
	}
	return requireRow(res)
}
