package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/shop_orders/internal/invoice"
	"github.com/Skotchmaster/shop_orders/internal/logging"
	"github.com/Skotchmaster/shop_orders/internal/middleware/auth"
	"github.com/Skotchmaster/shop_orders/internal/orders"
	"github.com/Skotchmaster/shop_orders/internal/util"
)

type OrderHTTP struct {
	Repo     *orders.Repo
	Invoices *invoice.Generator
}

func (h *OrderHTTP) GetOrders(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.get_orders")

	customerID, _ := auth.CustomerID(c)
	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)

	total, items, err := h.Repo.ListOrders(ctx, customerID, page, size)
	if err != nil {
		return fail(c, l, "get_orders_error", err)
	}
	_, limit := util.Calculate(page, size)
	return c.JSON(http.StatusOK, map[string]any{
		"data": items,
		"meta": pageMeta(page, limit, total),
	})
}

func (h *OrderHTTP) History(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.history")

	customerID, _ := auth.CustomerID(c)
	hist, err := h.Repo.History(ctx, customerID)
	if err != nil {
		return fail(c, l, "order_history_error", err)
	}
	return c.JSON(http.StatusOK, hist)
}

func (h *OrderHTTP) GetOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.get_order")

	customerID, _ := auth.CustomerID(c)
	id, ok := util.ParseID(c.Param("id"))
	if !ok {
		return badRequest(l, "get_order_error", "id is not a positive integer", nil)
	}

	rec, err := h.Repo.GetForCustomer(ctx, customerID, id)
	if err != nil {
		return fail(c, l, "get_order_error", err)
	}
	return c.JSON(http.StatusOK, rec)
}

// GetInvoice regenerates the invoice text from the stored order.
func (h *OrderHTTP) GetInvoice(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.get_invoice")

	customerID, _ := auth.CustomerID(c)
	id, ok := util.ParseID(c.Param("id"))
	if !ok {
		return badRequest(l, "get_invoice_error", "id is not a positive integer", nil)
	}
	if _, err := h.Repo.GetForCustomer(ctx, customerID, id); err != nil {
		return fail(c, l, "get_invoice_error", err)
	}

	inv, err := h.Invoices.Build(ctx, id)
	if err != nil {
		return fail(c, l, "get_invoice_error", err)
	}
	body, err := invoice.Render(inv)
	if err != nil {
		return fail(c, l, "get_invoice_error", err)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, `inline; filename="`+invoice.FileName(id, inv.OrderDate)+`"`)
	return c.Blob(http.StatusOK, echo.MIMETextPlainCharsetUTF8, body)
}
