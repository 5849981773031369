package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/lunchroom/lunchroom/internal/model"
)

// EventRepo persists lunch events.
type EventRepo struct{ DB *sql.DB }

func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{DB: db} }

const eventColumns = "id,shop_id,title,event_date,order_deadline,status,created_by,created_at,updated_at"

// Create inserts an event and fills in its ID.
func (r *EventRepo) Create(ctx context.Context, e *model.LunchEvent) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO lunch_events (shop_id, title, event_date, order_deadline, created_by) VALUES (?,?,?,?,?)",
		e.ShopID, e.Title, e.EventDate, e.OrderDeadline, e.CreatedBy)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = uint64(id)
	e.Status = model.EventOpen
	return nil
}

// GetByID fetches an event by id.
func (r *EventRepo) GetByID(ctx context.Context, id uint64) (model.LunchEvent, error) {
	var e model.LunchEvent
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+eventColumns+" FROM lunch_events WHERE id=? LIMIT 1", id).
		Scan(&e.ID, &e.ShopID, &e.Title, &e.EventDate, &e.OrderDeadline, &e.Status, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

// List returns events, newest event date first.  When openOnly is set only
// events still in OPEN state are returned.
func (r *EventRepo) List(ctx context.Context, openOnly bool) ([]model.LunchEvent, error) {
	q := "SELECT " + eventColumns + " FROM lunch_events"
	if openOnly {
		q += " WHERE status='OPEN'"
	}
	q += " ORDER BY event_date DESC, id DESC"
	rows, err := r.DB.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.LunchEvent
	for rows.Next() {
		var e model.LunchEvent
		if err := rows.Scan(&e.ID, &e.ShopID, &e.Title, &e.EventDate, &e.OrderDeadline, &e.Status, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Update changes title, date and deadline of an event.
func (r *EventRepo) Update(ctx context.Context, id uint64, title string, eventDate, deadline time.Time) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE lunch_events SET title=?, event_date=?, order_deadline=? WHERE id=?",
		title, eventDate, deadline, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// SetStatus transitions the event state.
func (r *EventRepo) SetStatus(ctx context.Context, id uint64, status string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE lunch_events SET status=? WHERE id=?", status, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// Delete removes an event.  Events with orders cannot be deleted; that
// surfaces as ErrConflict.
func (r *EventRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM lunch_events WHERE id=?", id)
	if err != nil {
		if isForeignKey(err) {
			return ErrConflict
		}
		return err
	}
	return requireRow(res)
}
