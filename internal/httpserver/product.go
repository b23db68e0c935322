package httpserver

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/shop_orders/internal/catalog"
	"github.com/Skotchmaster/shop_orders/internal/logging"
	"github.com/Skotchmaster/shop_orders/internal/models"
	"github.com/Skotchmaster/shop_orders/internal/money"
	"github.com/Skotchmaster/shop_orders/internal/reviews"
	"github.com/Skotchmaster/shop_orders/internal/search"
	"github.com/Skotchmaster/shop_orders/internal/util"
)

type Searcher interface {
	Search(ctx context.Context, query string, from, size int) (int64, []search.Document, error)
}

type CatalogHTTP struct {
	Svc     *catalog.Service
	Search  Searcher
	Reviews *reviews.Gate
}

func (h *CatalogHTTP) GetProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.get_product")

	id, ok := util.ParseID(c.Param("id"))
	if !ok {
		return badRequest(l, "get_product_failed", "id is not a positive integer", nil)
	}

	p, err := h.Svc.Get(ctx, id)
	if err != nil {
		return fail(c, l, "get_product_failed", err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *CatalogHTTP) GetProducts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.get_products")

	f := catalog.Filter{
		Search:       c.QueryParam("q"),
		Category:     models.Category(c.QueryParam("category")),
		Brand:        c.QueryParam("brand"),
		Author:       c.QueryParam("author"),
		ClothingSize: c.QueryParam("size_label"),
		Sort:         c.QueryParam("sort"),
		Dir:          c.QueryParam("dir"),
		Page:         util.ParseIntDefault(c.QueryParam("page"), 1),
		PageSize:     util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize),
	}
	var err error
	if f.MinPrice, err = priceParam(c, "min_price"); err != nil {
		return badRequest(l, "get_products_error", "min_price is not a price", err)
	}
	if f.MaxPrice, err = priceParam(c, "max_price"); err != nil {
		return badRequest(l, "get_products_error", "max_price is not a price", err)
	}

	page, err := h.Svc.List(ctx, f)
	if err != nil {
		return fail(c, l, "get_products_error", err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data": page.Items,
		"meta": pageMeta(page.Page, page.Size, page.Total),
	})
}

// SearchProducts uses the search index when configured and the catalog
// name filter otherwise.
func (h *CatalogHTTP) SearchProducts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.search")

	q := strings.TrimSpace(c.QueryParam("q"))
	if q == "" {
		return badRequest(l, "search_error", "q is required", nil)
	}
	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)

	if h.Search == nil {
		res, err := h.Svc.List(ctx, catalog.Filter{Search: q, Page: page, PageSize: size})
		if err != nil {
			return fail(c, l, "search_error", err)
		}
		return c.JSON(http.StatusOK, map[string]any{
			"data": res.Items,
			"meta": pageMeta(res.Page, res.Size, res.Total),
		})
	}

	offset, limit := util.Calculate(page, size)
	total, docs, err := h.Search.Search(ctx, q, offset, limit)
	if err != nil {
		l.Error("search_error", "status", 502, "error", err)
		return echo.NewHTTPError(http.StatusBadGateway, "search unavailable")
	}
	return c.JSON(http.StatusOK, map[string]any{
		"data": docs,
		"meta": pageMeta(page, limit, total),
	})
}

func (h *CatalogHTTP) CreateProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.create")

	var req catalog.ProductInput
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "product_create_error", "invalid body", err)
	}

	p, err := h.Svc.Create(ctx, req)
	if err != nil {
		return fail(c, l, "product_create_error", err)
	}

	l.Info("create_product_success", "product_id", p.ID)
	return c.JSON(http.StatusCreated, p)
}

func (h *CatalogHTTP) PatchProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.patch")

	id, ok := util.ParseID(c.Param("id"))
	if !ok {
		return badRequest(l, "product_patch_error", "id is not a positive integer", nil)
	}
	var req catalog.PatchInput
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "product_patch_error", "invalid body", err)
	}

	p, err := h.Svc.Patch(ctx, id, req)
	if err != nil {
		return fail(c, l, "product_patch_error", err)
	}

	l.Info("patch_product_success", "product_id", id)
	return c.JSON(http.StatusOK, p)
}

func (h *CatalogHTTP) DeleteProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.delete")

	id, ok := util.ParseID(c.Param("id"))
	if !ok {
		return badRequest(l, "product_delete_error", "id is not a positive integer", nil)
	}
	if err := h.Svc.Delete(ctx, id); err != nil {
		return fail(c, l, "product_delete_error", err)
	}

	l.Info("delete_product_success", "product_id", id)
	return c.NoContent(http.StatusNoContent)
}

func (h *CatalogHTTP) ProductReviews(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.reviews")

	id, ok := util.ParseID(c.Param("id"))
	if !ok {
		return badRequest(l, "product_reviews_error", "id is not a positive integer", nil)
	}
	if _, err := h.Svc.Get(ctx, id); err != nil {
		return fail(c, l, "product_reviews_error", err)
	}

	res, err := h.Reviews.ListForProduct(ctx, id)
	if err != nil {
		return fail(c, l, "product_reviews_error", err)
	}
	return c.JSON(http.StatusOK, res)
}

func priceParam(c echo.Context, name string) (*decimal.Decimal, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	d, err := money.ParsePrice(raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func pageMeta(page, size int, total int64) map[string]any {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = util.DefaultPageSize
	}
	return map[string]any{
		"page":        page,
		"size":        size,
		"total":       total,
		"total_pages": (total + int64(size) - 1) / int64(size),
		"has_prev":    page > 1,
		"has_next":    int64(page*size) < total,
	}
}
