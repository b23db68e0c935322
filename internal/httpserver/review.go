package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/shop_orders/internal/logging"
	"github.com/Skotchmaster/shop_orders/internal/middleware/auth"
	"github.com/Skotchmaster/shop_orders/internal/reviews"
	"github.com/Skotchmaster/shop_orders/internal/util"
)

type ReviewHTTP struct {
	Gate *reviews.Gate
}

func (h *ReviewHTTP) CreateReview(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "review.create")

	customerID, _ := auth.CustomerID(c)
	var req struct {
		ProductID uint   `json:"product_id"`
		Rating    int    `json:"rating"`
		Comment   string `json:"comment"`
	}
	if err := c.Bind(&req); err != nil || req.ProductID == 0 {
		return badRequest(l, "create_review_error", "invalid body", err)
	}

	rv, err := h.Gate.CreateReview(ctx, customerID, req.ProductID, req.Rating, req.Comment)
	if err != nil {
		return fail(c, l, "create_review_error", err)
	}
	return c.JSON(http.StatusCreated, rv)
}

func (h *ReviewHTTP) MyReviews(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "review.mine")

	customerID, _ := auth.CustomerID(c)
	list, err := h.Gate.ListForCustomer(ctx, customerID)
	if err != nil {
		return fail(c, l, "my_reviews_error", err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *ReviewHTTP) Reviewable(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "review.reviewable")

	customerID, _ := auth.CustomerID(c)
	list, err := h.Gate.Reviewable(ctx, customerID)
	if err != nil {
		return fail(c, l, "reviewable_error", err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *ReviewHTTP) DeleteReview(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "review.delete")

	customerID, _ := auth.CustomerID(c)
	id, ok := util.ParseID(c.Param("id"))
	if !ok {
		return badRequest(l, "delete_review_error", "id is not a positive integer", nil)
	}
	if err := h.Gate.Delete(ctx, id, customerID, auth.IsAdmin(c)); err != nil {
		return fail(c, l, "delete_review_error", err)
	}
	return c.NoContent(http.StatusNoContent)
}
