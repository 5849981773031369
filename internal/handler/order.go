package handler

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/lunchroom/lunchroom/internal/middleware"
	"github.com/lunchroom/lunchroom/internal/model"
	"github.com/lunchroom/lunchroom/internal/queue"
	"github.com/lunchroom/lunchroom/internal/repository"
)

// OrderPublisher dispatches an order.placed event.  *service.Publisher
// satisfies it; tests substitute a fake.
type OrderPublisher interface {
	PublishOrderPlaced(ctx context.Context, ev queue.OrderPlacedEvent) error
}

// The order flow touches several repositories; narrow interfaces keep the
// handler testable without a database.  The concrete repos satisfy them.
type OrderStore interface {
	Place(ctx context.Context, o *model.Order) error
	GetByID(ctx context.Context, id uint64) (model.Order, error)
	ListByUser(ctx context.Context, userID uint64) ([]model.Order, error)
	Delete(ctx context.Context, id uint64) error
}

type EventStore interface {
	GetByID(ctx context.Context, id uint64) (model.LunchEvent, error)
}

type MenuStore interface {
	GetItem(ctx context.Context, id uint64) (model.MenuItem, error)
	ShopForItem(ctx context.Context, itemID uint64) (uint64, bool, error)
}

type ShopStore interface {
	GetByID(ctx context.Context, id uint64) (model.Shop, error)
}

type UserStore interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

var (
	_ OrderStore = (*repository.OrderRepo)(nil)
	_ EventStore = (*repository.EventRepo)(nil)
	_ MenuStore  = (*repository.MenuRepo)(nil)
	_ ShopStore  = (*repository.ShopRepo)(nil)
	_ UserStore  = (*repository.UserRepo)(nil)
)

// maxLineQuantity bounds a single order line.  total_cents is an unsigned
// 32-bit column; quantities are capped and the total is summed in uint64 so
// a hostile quantity cannot wrap the stored amount.
const maxLineQuantity = 100

// OrderHandler serves order placement and retrieval.
type OrderHandler struct {
	Orders    OrderStore
	Events    EventStore
	Menus     MenuStore
	Shops     ShopStore
	Users     UserStore
	Publisher OrderPublisher
	Log       *zap.Logger
}

func NewOrderHandler(orders OrderStore, events EventStore, menus MenuStore, shops ShopStore, users UserStore, pub OrderPublisher, log *zap.Logger) *OrderHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &OrderHandler{Orders: orders, Events: events, Menus: menus, Shops: shops, Users: users, Publisher: pub, Log: log}
}

type orderItemReq struct {
	MenuItemID uint64 `json:"menu_item_id"`
	Quantity   uint32 `json:"quantity"`
}

type placeOrderReq struct {
	Note  *string        `json:"note"`
	Items []orderItemReq `json:"items"`
}

// Place handles POST /api/events/:id/orders.  One order per user and event;
// a second attempt gets 409.  Orders after the deadline or against a
// non-open event get 422.
func (h *OrderHandler) Place(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	eventID, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var body placeOrderReq
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if len(body.Items) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "at least one item is required"})
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	ev, err := h.Events.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	if !ev.AcceptsOrders(time.Now()) {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "ordering is closed for this event"})
	}

	// Price every line from the current menu so the order keeps its own
	// snapshot of what was charged.  Lines must come from the event's shop,
	// through an active menu, with a bounded quantity.
	order := model.Order{UserID: uid, EventID: eventID, Note: body.Note}
	itemNames := make([]string, 0, len(body.Items))
	var total uint64
	for _, line := range body.Items {
		if line.Quantity == 0 || line.Quantity > maxLineQuantity {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": fmt.Sprintf("quantity must be between 1 and %d", maxLineQuantity)})
		}
		it, err := h.Menus.GetItem(ctx, line.MenuItemID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown menu item"})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
		}
		if !it.IsAvailable {
			return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "menu item is unavailable"})
		}
		shopID, menuActive, err := h.Menus.ShopForItem(ctx, line.MenuItemID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown menu item"})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
		}
		if !menuActive {
			return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "menu item is unavailable"})
		}
		if shopID != ev.ShopID {
			return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "menu item is not offered by this event's shop"})
		}
		order.Items = append(order.Items, model.OrderItem{
			MenuItemID: it.ID,
			Quantity:   line.Quantity,
			PriceCents: it.PriceCents,
		})
		total += uint64(it.PriceCents) * uint64(line.Quantity)
		itemNames = append(itemNames, it.Name)
	}
	if total > math.MaxUint32 {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "order total is too large"})
	}
	order.TotalCents = uint32(total)

	if err := h.Orders.Place(ctx, &order); err != nil {
		if errors.Is(err, repository.ErrOrderExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "an order for this event already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "order failed"})
	}

	h.publishPlaced(ctx, order, ev, itemNames)
	return c.JSON(http.StatusCreated, order)
}

// publishPlaced emits the order.placed event.  Broker trouble never fails
// the request; the order is already committed.
func (h *OrderHandler) publishPlaced(ctx context.Context, order model.Order, ev model.LunchEvent, itemNames []string) {
	if h.Publisher == nil {
		return
	}
	msg := queue.OrderPlacedEvent{
		OrderID:    order.ID,
		UserID:     order.UserID,
		EventID:    ev.ID,
		EventTitle: ev.Title,
		Items:      itemNames,
		TotalCents: order.TotalCents,
		PlacedAt:   time.Now().UTC().Format(time.RFC3339),
	}
	if u, err := h.Users.GetByID(ctx, order.UserID); err == nil {
		msg.UserName = u.Name
	}
	if s, err := h.Shops.GetByID(ctx, ev.ShopID); err == nil {
		msg.ShopName = s.Name
	}
	if err := h.Publisher.PublishOrderPlaced(ctx, msg); err != nil {
		h.Log.Warn("order event publish failed", zap.Uint64("order_id", order.ID), zap.Error(err))
	}
}

// ListMine handles GET /api/orders.
func (h *OrderHandler) ListMine(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	orders, err := h.Orders.ListByUser(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": orders})
}

// Get handles GET /api/orders/:id.  Visible to the owner and to elevated
// roles.
func (h *OrderHandler) Get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	o, err := h.Orders.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	if !middleware.SelfOrRole(c, o.UserID, model.RoleModerator, model.RoleAdmin) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	return c.JSON(http.StatusOK, o)
}

// Cancel handles DELETE /api/orders/:id.  The owner may cancel while the
// event still takes orders; moderators and admins may cancel at any time.
func (h *OrderHandler) Cancel(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	o, err := h.Orders.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}

	uid, _ := middleware.UserID(c)
	role := middleware.Role(c)
	elevated := role == model.RoleModerator || role == model.RoleAdmin
	if o.UserID != uid && !elevated {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	if !elevated {
		ev, err := h.Events.GetByID(ctx, o.EventID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
		}
		if !ev.AcceptsOrders(time.Now()) {
			return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "ordering is closed for this event"})
		}
	}

	if err := h.Orders.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
