package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/shop_orders/internal/customers"
	"github.com/Skotchmaster/shop_orders/internal/logging"
	"github.com/Skotchmaster/shop_orders/internal/middleware/auth"
	"github.com/Skotchmaster/shop_orders/internal/tokens"
)

type AuthHTTP struct {
	Svc *customers.Service
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.register")

	var req customers.RegisterInput
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "register_error", "invalid body", err)
	}

	cust, err := h.Svc.Register(ctx, req)
	if err != nil {
		return fail(c, l, "register_error", err)
	}

	l.Info("register_success", "customer_id", cust.ID)
	return c.JSON(http.StatusCreated, cust)
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.login")

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "login_error", "invalid body", err)
	}

	res, err := h.Svc.Login(ctx, req.Email, req.Password)
	if err != nil {
		return fail(c, l, "login_failed", err)
	}

	c.SetCookie(tokens.CreateCookie(tokens.AccessCookie, res.AccessToken, "/", res.AccessExp))
	l.Info("login_successful", "customer_id", res.Customer.ID)

	return c.JSON(http.StatusOK, echo.Map{
		"customer": res.Customer,
		"is_admin": res.IsAdmin,
	})
}

func (h *AuthHTTP) LogOut(c echo.Context) error {
	c.SetCookie(tokens.DeleteCookie(tokens.AccessCookie, "/"))
	logging.FromContext(c.Request().Context()).Info("successful_logout")
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

func (h *AuthHTTP) Profile(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "customer.profile")

	customerID, _ := auth.CustomerID(c)
	cust, err := h.Svc.Get(ctx, customerID)
	if err != nil {
		return fail(c, l, "profile_error", err)
	}
	return c.JSON(http.StatusOK, cust)
}

func (h *AuthHTTP) UpdateProfile(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "customer.update_profile")

	customerID, _ := auth.CustomerID(c)
	var req customers.ProfileInput
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "update_profile_error", "invalid body", err)
	}

	cust, err := h.Svc.UpdateProfile(ctx, customerID, req)
	if err != nil {
		return fail(c, l, "update_profile_error", err)
	}

	l.Info("update_profile_success", "customer_id", cust.ID)
	return c.JSON(http.StatusOK, cust)
}
