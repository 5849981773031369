package repository

import (
	"context"
	"database/sql"

	"github.com/lunchroom/lunchroom/internal/model"
)

// OrderRepo persists orders and their line items.
type OrderRepo struct{ DB *sql.DB }

func NewOrderRepo(db *sql.DB) *OrderRepo { return &OrderRepo{DB: db} }

// Place inserts an order with its items inside one transaction.  The unique
// (user_id, event_id) key turns a second order for the same event into
// ErrOrderExists regardless of interleaving.
func (r *OrderRepo) Place(ctx context.Context, o *model.Order) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		"INSERT INTO orders (user_id, event_id, note, total_cents) VALUES (?,?,?,?)",
		o.UserID, o.EventID, o.Note, o.TotalCents)
	if err != nil {
		if isDuplicate(err) {
			return ErrOrderExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	o.ID = uint64(id)

	for i := range o.Items {
		it := &o.Items[i]
		it.OrderID = o.ID
		res, err := tx.ExecContext(ctx,
			"INSERT INTO order_items (order_id, menu_item_id, quantity, price_cents) VALUES (?,?,?,?)",
			it.OrderID, it.MenuItemID, it.Quantity, it.PriceCents)
		if err != nil {
			return err
		}
		iid, err := res.LastInsertId()
		if err != nil {
			return err
		}
		it.ID = uint64(iid)
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// GetByID fetches an order including its items.
func (r *OrderRepo) GetByID(ctx context.Context, id uint64) (model.Order, error) {
	var o model.Order
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,user_id,event_id,note,total_cents,created_at,updated_at FROM orders WHERE id=? LIMIT 1", id).
		Scan(&o.ID, &o.UserID, &o.EventID, &o.Note, &o.TotalCents, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return o, err
	}
	o.Items, err = r.itemsFor(ctx, o.ID)
	return o, err
}

// ListByUser returns a user's orders, newest first, items included.
func (r *OrderRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Order, error) {
	return r.list(ctx,
		"SELECT id,user_id,event_id,note,total_cents,created_at,updated_at FROM orders WHERE user_id=? ORDER BY id DESC",
		userID)
}

// ListByEvent returns all orders placed for an event, items included.
func (r *OrderRepo) ListByEvent(ctx context.Context, eventID uint64) ([]model.Order, error) {
	return r.list(ctx,
		"SELECT id,user_id,event_id,note,total_cents,created_at,updated_at FROM orders WHERE event_id=? ORDER BY id",
		eventID)
}

// Delete removes an order; line items cascade.
func (r *OrderRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM orders WHERE id=?", id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *OrderRepo) list(ctx context.Context, query string, arg uint64) ([]model.Order, error) {
	rows, err := r.DB.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Order
	for rows.Next() {
		var o model.Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.EventID, &o.Note, &o.TotalCents, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		items, err := r.itemsFor(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Items = items
	}
	return out, nil
}

func (r *OrderRepo) itemsFor(ctx context.Context, orderID uint64) ([]model.OrderItem, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id,order_id,menu_item_id,quantity,price_cents,created_at FROM order_items WHERE order_id=? ORDER BY id",
		orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.OrderItem
	for rows.Next() {
		var it model.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.MenuItemID, &it.Quantity, &it.PriceCents, &it.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}
