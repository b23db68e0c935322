package auth

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/shop_orders/internal/models"
	"github.com/Skotchmaster/shop_orders/internal/tokens"
)

const (
	ctxCustomerID = "customer_id"
	ctxRole       = "role"
)

type Auth struct {
	JWTSecret []byte
}

func New(secret []byte) *Auth {
	return &Auth{JWTSecret: secret}
}

type validatorFunc func(claims *tokens.AccessClaims) error

func (m *Auth) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return m.require(next, nil)
}

func (m *Auth) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return m.require(next, func(claims *tokens.AccessClaims) error {
		if claims.Role != models.RoleAdmin {
			return echo.NewHTTPError(http.StatusForbidden, "admin access required")
		}
		return nil
	})
}

func (m *Auth) require(next echo.HandlerFunc, validator validatorFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		accessCookie, err := c.Cookie(tokens.AccessCookie)
		if err != nil || accessCookie.Value == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
		}

		claims, err := tokens.AccessClaimsFromToken(accessCookie.Value, m.JWTSecret)
		if err != nil || claims == nil {
			c.SetCookie(tokens.DeleteCookie(tokens.AccessCookie, "/"))
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
		}

		id, err := strconv.ParseUint(claims.Subject, 10, 64)
		if err != nil || id == 0 {
			c.SetCookie(tokens.DeleteCookie(tokens.AccessCookie, "/"))
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid token subject")
		}

		if validator != nil {
			if err := validator(claims); err != nil {
				return err
			}
		}

		c.Set(ctxCustomerID, uint(id))
		c.Set(ctxRole, claims.Role)
		return next(c)
	}
}

// CustomerID is only set behind RequireAuth or RequireAdmin.
func CustomerID(c echo.Context) (uint, bool) {
	id, ok := c.Get(ctxCustomerID).(uint)
	return id, ok && id != 0
}

func IsAdmin(c echo.Context) bool {
	role, _ := c.Get(ctxRole).(string)
	return role == models.RoleAdmin
}
