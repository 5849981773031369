package handler

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lunchroom/lunchroom/internal/model"
	"github.com/lunchroom/lunchroom/internal/repository"
)

type fakeOrderStore struct {
	placeFn func(ctx context.Context, o *model.Order) error
}

func (f *fakeOrderStore) Place(ctx context.Context, o *model.Order) error { return f.placeFn(ctx, o) }
func (f *fakeOrderStore) GetByID(context.Context, uint64) (model.Order, error) {
	return model.Order{}, sql.ErrNoRows
}
func (f *fakeOrderStore) ListByUser(context.Context, uint64) ([]model.Order, error) {
	return nil, nil
}
func (f *fakeOrderStore) Delete(context.Context, uint64) error { return sql.ErrNoRows }

type fakeEventStore struct {
	getFn func(ctx context.Context, id uint64) (model.LunchEvent, error)
}

func (f *fakeEventStore) GetByID(ctx context.Context, id uint64) (model.LunchEvent, error) {
	return f.getFn(ctx, id)
}

type fakeMenuStore struct {
	getItemFn     func(ctx context.Context, id uint64) (model.MenuItem, error)
	shopForItemFn func(ctx context.Context, itemID uint64) (uint64, bool, error)
}

func (f *fakeMenuStore) GetItem(ctx context.Context, id uint64) (model.MenuItem, error) {
	return f.getItemFn(ctx, id)
}
func (f *fakeMenuStore) ShopForItem(ctx context.Context, itemID uint64) (uint64, bool, error) {
	return f.shopForItemFn(ctx, itemID)
}

var (
	_ OrderStore = (*fakeOrderStore)(nil)
	_ EventStore = (*fakeEventStore)(nil)
	_ MenuStore  = (*fakeMenuStore)(nil)
)

type orderFixture struct {
	handler *OrderHandler
	orders  *fakeOrderStore
	placed  []model.Order
}

// newOrderFixture wires an OrderHandler over two shops.  The open event
// belongs to shop 1; item 2 is sold by shop 2, item 3 sits on a deactivated
// menu of shop 1, item 4 is shop 1's most expensive line.
func newOrderFixture() *orderFixture {
	f := &orderFixture{}

	items := map[uint64]model.MenuItem{
		1: {ID: 1, Name: "carnitas burrito", PriceCents: 150, IsAvailable: true},
		2: {ID: 2, Name: "salmon nigiri", PriceCents: 900, IsAvailable: true},
		3: {ID: 3, Name: "winter stew", PriceCents: 200, IsAvailable: true},
		4: {ID: 4, Name: "party platter", PriceCents: 3_000_000_000, IsAvailable: true},
	}
	ownership := map[uint64]struct {
		shopID     uint64
		menuActive bool
	}{
		1: {shopID: 1, menuActive: true},
		2: {shopID: 2, menuActive: true},
		3: {shopID: 1, menuActive: false},
		4: {shopID: 1, menuActive: true},
	}

	menus := &fakeMenuStore{
		getItemFn: func(_ context.Context, id uint64) (model.MenuItem, error) {
			it, ok := items[id]
			if !ok {
				return model.MenuItem{}, sql.ErrNoRows
			}
			return it, nil
		},
		shopForItemFn: func(_ context.Context, itemID uint64) (uint64, bool, error) {
			own, ok := ownership[itemID]
			if !ok {
				return 0, false, sql.ErrNoRows
			}
			return own.shopID, own.menuActive, nil
		},
	}
	events := &fakeEventStore{
		getFn: func(_ context.Context, id uint64) (model.LunchEvent, error) {
			if id != 9 {
				return model.LunchEvent{}, sql.ErrNoRows
			}
			return model.LunchEvent{
				ID:            9,
				ShopID:        1,
				Title:         "Friday tacos",
				Status:        model.EventOpen,
				OrderDeadline: time.Now().Add(time.Hour),
			}, nil
		},
	}
	f.orders = &fakeOrderStore{
		placeFn: func(_ context.Context, o *model.Order) error {
			o.ID = uint64(len(f.placed) + 1)
			f.placed = append(f.placed, *o)
			return nil
		},
	}

	f.handler = NewOrderHandler(f.orders, events, menus, nil, nil, nil, nil)
	return f
}

func (f *orderFixture) place(t *testing.T, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := jsonRequest(http.MethodPost, "/api/events/9/orders", body)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	c.SetPath("/api/events/:id/orders")
	c.SetParamNames("id")
	c.SetParamValues("9")
	c.Set("user_id", uint64(5))
	c.Set("role", model.RoleUser)
	require.NoError(t, f.handler.Place(c))
	return rec
}

func TestPlaceSnapshotsPricesAndTotal(t *testing.T) {
	f := newOrderFixture()

	rec := f.place(t, `{"items":[{"menu_item_id":1,"quantity":3},{"menu_item_id":1,"quantity":2}]}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, f.placed, 1)
	got := f.placed[0]
	assert.Equal(t, uint64(5), got.UserID)
	assert.Equal(t, uint64(9), got.EventID)
	assert.Equal(t, uint32(750), got.TotalCents)
	require.Len(t, got.Items, 2)
	assert.Equal(t, uint32(150), got.Items[0].PriceCents)
}

func TestPlaceRejectsWrappingQuantity(t *testing.T) {
	f := newOrderFixture()

	// 150 cents times 4294967295 wraps far below the honest total in 32-bit
	// arithmetic; the line must be refused outright.
	rec := f.place(t, `{"items":[{"menu_item_id":1,"quantity":4294967295}]}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "quantity")
	assert.Empty(t, f.placed)
}

func TestPlaceRejectsQuantityAboveCap(t *testing.T) {
	f := newOrderFixture()

	rec := f.place(t, `{"items":[{"menu_item_id":1,"quantity":101}]}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, f.placed)
}

func TestPlaceRejectsTotalBeyondColumnRange(t *testing.T) {
	f := newOrderFixture()

	// Two lines within the per-line cap whose sum no longer fits the
	// unsigned 32-bit total column.
	rec := f.place(t, `{"items":[{"menu_item_id":4,"quantity":1},{"menu_item_id":4,"quantity":1}]}`)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Empty(t, f.placed)
}

func TestPlaceRejectsItemFromAnotherShop(t *testing.T) {
	f := newOrderFixture()

	// The event is pinned to shop 1; item 2 is sold by shop 2.
	rec := f.place(t, `{"items":[{"menu_item_id":2,"quantity":1}]}`)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "shop")
	assert.Empty(t, f.placed)
}

func TestPlaceRejectsItemOnInactiveMenu(t *testing.T) {
	f := newOrderFixture()

	rec := f.place(t, `{"items":[{"menu_item_id":3,"quantity":1}]}`)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Empty(t, f.placed)
}

func TestPlaceDuplicateOrderConflicts(t *testing.T) {
	f := newOrderFixture()
	f.orders.placeFn = func(context.Context, *model.Order) error {
		return repository.ErrOrderExists
	}

	rec := f.place(t, `{"items":[{"menu_item_id":1,"quantity":1}]}`)

	assert.Equal(t, http.StatusConflict, rec.Code)
}
