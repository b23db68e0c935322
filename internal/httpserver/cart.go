package httpserver

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/shop_orders/internal/cart"
	"github.com/Skotchmaster/shop_orders/internal/checkout"
	"github.com/Skotchmaster/shop_orders/internal/logging"
	"github.com/Skotchmaster/shop_orders/internal/middleware/auth"
	"github.com/Skotchmaster/shop_orders/internal/util"
)

const headerIdempotencyKey = "Idempotency-Key"

type CartHTTP struct {
	Carts    *cart.Service
	Checkout *checkout.Service
}

type cartItemRequest struct {
	ProductID uint `json:"product_id"`
	Quantity  int  `json:"quantity"`
}

// GetCart returns the cart priced at current catalog prices.
func (h *CartHTTP) GetCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.get")

	customerID, _ := auth.CustomerID(c)
	preview, err := h.Checkout.Preview(ctx, customerID)
	if err != nil {
		return fail(c, l, "get_cart_error", err)
	}
	return c.JSON(http.StatusOK, preview)
}

func (h *CartHTTP) AddItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.add_item")

	customerID, _ := auth.CustomerID(c)
	var req cartItemRequest
	if err := c.Bind(&req); err != nil || req.ProductID == 0 {
		return badRequest(l, "add_item_error", "invalid body", err)
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	crt, err := h.Carts.Add(ctx, customerID, req.ProductID, req.Quantity)
	if err != nil {
		return fail(c, l, "add_item_error", err)
	}

	l.Info("add_item_success", "product_id", req.ProductID, "quantity", req.Quantity)
	return c.JSON(http.StatusOK, crt.Snapshot())
}

func (h *CartHTTP) SetItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.set_item")

	customerID, _ := auth.CustomerID(c)
	productID, ok := util.ParseID(c.Param("product_id"))
	if !ok {
		return badRequest(l, "set_item_error", "product_id is not a positive integer", nil)
	}
	var req cartItemRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "set_item_error", "invalid body", err)
	}

	crt, err := h.Carts.SetQuantity(ctx, customerID, productID, req.Quantity)
	if err != nil {
		return fail(c, l, "set_item_error", err)
	}
	return c.JSON(http.StatusOK, crt.Snapshot())
}

func (h *CartHTTP) RemoveItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.remove_item")

	customerID, _ := auth.CustomerID(c)
	productID, ok := util.ParseID(c.Param("product_id"))
	if !ok {
		return badRequest(l, "remove_item_error", "product_id is not a positive integer", nil)
	}

	removed, crt, err := h.Carts.Remove(ctx, customerID, productID)
	if err != nil {
		return fail(c, l, "remove_item_error", err)
	}
	if !removed {
		l.Warn("remove_item_error", "status", 404, "reason", "product not in cart", "product_id", productID)
		return echo.NewHTTPError(http.StatusNotFound, "product not in cart")
	}
	return c.JSON(http.StatusOK, crt.Snapshot())
}

func (h *CartHTTP) ClearCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.clear")

	customerID, _ := auth.CustomerID(c)
	if err := h.Carts.Clear(ctx, customerID); err != nil {
		return fail(c, l, "clear_cart_error", err)
	}
	return c.NoContent(http.StatusNoContent)
}

// CheckoutCart commits the cart. Clients retrying a checkout send the same
// Idempotency-Key; without one a fresh key is generated per request.
func (h *CartHTTP) CheckoutCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.checkout")

	customerID, _ := auth.CustomerID(c)
	key := strings.TrimSpace(c.Request().Header.Get(headerIdempotencyKey))
	if key == "" {
		key = uuid.NewString()
	}

	res, err := h.Checkout.Checkout(ctx, customerID, key)
	if err != nil {
		return fail(c, l, "checkout_error", err)
	}

	status := http.StatusCreated
	if res.Receipt.Existed {
		status = http.StatusOK
	}
	c.Response().Header().Set(headerIdempotencyKey, key)
	l.Info("checkout_success", "order_id", res.Receipt.OrderID, "existed", res.Receipt.Existed)
	return c.JSON(status, res)
}
