package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/lunchroom/lunchroom/internal/model"
)

// ShopRepo persists shops.
type ShopRepo struct{ DB *sql.DB }

func NewShopRepo(db *sql.DB) *ShopRepo { return &ShopRepo{DB: db} }

const shopColumns = "id,name,description,is_active,created_at,updated_at"

// Create inserts a shop and fills in its ID.
func (r *ShopRepo) Create(ctx context.Context, s *model.Shop) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO shops (name, description) VALUES (?,?)",
		s.Name, s.Description)
	if err != nil {
		if isDuplicate(err) {
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	s.IsActive = true
	return nil
}

// GetByID fetches a shop by id.
func (r *ShopRepo) GetByID(ctx context.Context, id uint64) (model.Shop, error) {
	var s model.Shop
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+shopColumns+" FROM shops WHERE id=? LIMIT 1", id).
		Scan(&s.ID, &s.Name, &s.Description, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

// List returns shops; when activeOnly is set, deactivated shops are skipped.
func (r *ShopRepo) List(ctx context.Context, activeOnly bool) ([]model.Shop, error) {
	q := "SELECT " + shopColumns + " FROM shops"
	if activeOnly {
		q += " WHERE is_active=1"
	}
	q += " ORDER BY name"
	rows, err := r.DB.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Shop
	for rows.Next() {
		var s model.Shop
		if err := rows.Scan(&s.ID, &s.Name, &s.Description, &s.IsActive, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Update changes name/description.
func (r *ShopRepo) Update(ctx context.Context, id uint64, name string, description *string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE shops SET name=?, description=? WHERE id=?", name, description, id)
	if err != nil {
		if isDuplicate(err) {
			return ErrConflict
		}
		return err
	}
	return requireRow(res)
}

// SetActive flips the visibility flag.
func (r *ShopRepo) SetActive(ctx context.Context, id uint64, active bool) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE shops SET is_active=? WHERE id=?", active, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// Delete removes a shop.  Events reference shops without cascade, so a shop
// with history cannot be deleted; that surfaces as ErrConflict.
func (r *ShopRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM shops WHERE id=?", id)
	if err != nil {
		if isForeignKey(err) {
			return ErrConflict
		}
		return err
	}
	return requireRow(res)
}

// isForeignKey detects MySQL errors 1451/1452 (foreign key violation).
func isForeignKey(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "1451") || strings.Contains(msg, "1452")
}
