package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/lunchroom/lunchroom/internal/middleware"
	"github.com/lunchroom/lunchroom/internal/model"
	"github.com/lunchroom/lunchroom/internal/repository"
)

// EventHandler serves lunch event endpoints.  Listing and fetching are open
// to every authenticated user; mutation is MODERATOR/ADMIN only and gated in
// the router.
type EventHandler struct {
	Events *repository.EventRepo
	Shops  *repository.ShopRepo
	Orders *repository.OrderRepo
}

func NewEventHandler(events *repository.EventRepo, shops *repository.ShopRepo, orders *repository.OrderRepo) *EventHandler {
	return &EventHandler{Events: events, Shops: shops, Orders: orders}
}

type eventReq struct {
	ShopID        uint64    `json:"shop_id"`
	Title         string    `json:"title"`
	EventDate     time.Time `json:"event_date"`
	OrderDeadline time.Time `json:"order_deadline"`
}

func (r eventReq) validate() string {
	if strings.TrimSpace(r.Title) == "" {
		return "title is required"
	}
	if r.EventDate.IsZero() || r.OrderDeadline.IsZero() {
		return "event_date and order_deadline are required"
	}
	if r.OrderDeadline.After(r.EventDate) {
		return "order_deadline must not be after event_date"
	}
	return ""
}

// List handles GET /api/events.  ?open=true narrows to events still taking
// orders.
func (h *EventHandler) List(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()

	events, err := h.Events.List(ctx, c.QueryParam("open") == "true")
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": events})
}

// Get handles GET /api/events/:id.
func (h *EventHandler) Get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	ev, err := h.Events.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, ev)
}

// Create handles POST /api/events.
func (h *EventHandler) Create(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	var body eventReq
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if msg := body.validate(); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	shop, err := h.Shops.GetByID(ctx, body.ShopID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "shop not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	if !shop.IsActive {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "shop is not active"})
	}

	ev := &model.LunchEvent{
		ShopID:        body.ShopID,
		Title:         strings.TrimSpace(body.Title),
		EventDate:     body.EventDate,
		OrderDeadline: body.OrderDeadline,
		CreatedBy:     uid,
	}
	if err := h.Events.Create(ctx, ev); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create failed"})
	}
	return c.JSON(http.StatusCreated, ev)
}

// Update handles PUT /api/events/:id.
func (h *EventHandler) Update(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var body eventReq
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if msg := body.validate(); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	if err := h.Events.Update(ctx, id, strings.TrimSpace(body.Title), body.EventDate, body.OrderDeadline); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	ev, err := h.Events.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, ev)
}

// Close handles POST /api/events/:id/close.  A closed event takes no further
// orders regardless of its deadline.
func (h *EventHandler) Close(c echo.Context) error {
	return h.transition(c, model.EventClosed)
}

// Cancel handles POST /api/events/:id/cancel.
func (h *EventHandler) Cancel(c echo.Context) error {
	return h.transition(c, model.EventCancelled)
}

func (h *EventHandler) transition(c echo.Context, status string) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	if err := h.Events.SetStatus(ctx, id, status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	ev, err := h.Events.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, ev)
}

// Delete handles DELETE /api/events/:id.  Events with orders cannot be
// deleted; cancel them instead.
func (h *EventHandler) Delete(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	if err := h.Events.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		if errors.Is(err, repository.ErrConflict) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "event has orders"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// ListOrders handles GET /api/events/:id/orders for moderators collecting
// the group order.
func (h *EventHandler) ListOrders(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	if _, err := h.Events.GetByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	orders, err := h.Orders.ListByEvent(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": orders})
}
