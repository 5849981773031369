package handler

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/lunchroom/lunchroom/internal/model"
	"github.com/lunchroom/lunchroom/internal/repository"
)

// PublicHandler serves the unauthenticated browse endpoints.  Responses only
// contain active shops and menus; these routes sit behind the redis response
// cache.
type PublicHandler struct {
	Shops *repository.ShopRepo
	Menus *repository.MenuRepo
}

func NewPublicHandler(shops *repository.ShopRepo, menus *repository.MenuRepo) *PublicHandler {
	return &PublicHandler{Shops: shops, Menus: menus}
}

// ListShops handles GET /api/shops.
func (h *PublicHandler) ListShops(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()

	shops, err := h.Shops.List(ctx, true)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": shops})
}

// GetShop handles GET /api/shops/:id.  Deactivated shops are indistinguishable
// from missing ones.
func (h *PublicHandler) GetShop(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	shop, err := h.Shops.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "shop not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	if !shop.IsActive {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "shop not found"})
	}
	return c.JSON(http.StatusOK, shop)
}

type categoryView struct {
	model.MenuCategory
	Items []model.MenuItem `json:"items"`
}

type menuView struct {
	model.Menu
	Categories []categoryView `json:"categories"`
}

// GetShopMenu handles GET /api/shops/:id/menu and returns the shop's active
// menus with categories and items nested.
func (h *PublicHandler) GetShopMenu(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	shop, err := h.Shops.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "shop not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	if !shop.IsActive {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "shop not found"})
	}

	menus, err := h.Menus.ListMenusByShop(ctx, id, true)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}

	out := make([]menuView, 0, len(menus))
	for _, m := range menus {
		mv := menuView{Menu: m, Categories: []categoryView{}}
		cats, err := h.Menus.ListCategories(ctx, m.ID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
		}
		for _, cat := range cats {
			items, err := h.Menus.ListItems(ctx, cat.ID)
			if err != nil {
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
			}
			if items == nil {
				items = []model.MenuItem{}
			}
			mv.Categories = append(mv.Categories, categoryView{MenuCategory: cat, Items: items})
		}
		out = append(out, mv)
	}
	return c.JSON(http.StatusOK, echo.Map{"shop": shop, "menus": out})
}
