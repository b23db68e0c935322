package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/shop_orders/internal/middleware/auth"
)

type Deps struct {
	AuthHandler    *AuthHTTP
	CatalogHandler *CatalogHTTP
	CartHandler    *CartHTTP
	OrderHandler   *OrderHTTP
	ReviewHandler  *ReviewHTTP
	JWTSecret      []byte

	// Ready reports whether the backing stores answer.
	Ready func(ctx context.Context) error
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.Ready == nil {
			return c.NoContent(http.StatusOK)
		}
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := d.Ready(ctx); err != nil {
			return echo.NewHTTPError(http.StatusServiceUnavailable, "not ready")
		}
		return c.NoContent(http.StatusOK)
	})

	authMW := auth.New(d.JWTSecret)
	api := e.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.POST("/register", d.AuthHandler.Register)
	authGroup.POST("/login", d.AuthHandler.Login)
	authGroup.POST("/logout", d.AuthHandler.LogOut)

	me := api.Group("/customers/me", authMW.RequireAuth)
	me.GET("", d.AuthHandler.Profile)
	me.PATCH("", d.AuthHandler.UpdateProfile)

	products := api.Group("/products")
	products.GET("", d.CatalogHandler.GetProducts)
	products.GET("/search", d.CatalogHandler.SearchProducts)
	products.GET("/:id", d.CatalogHandler.GetProduct)
	products.GET("/:id/reviews", d.CatalogHandler.ProductReviews)

	admin := products.Group("", authMW.RequireAdmin)
	admin.POST("", d.CatalogHandler.CreateProduct)
	admin.PATCH("/:id", d.CatalogHandler.PatchProduct)
	admin.DELETE("/:id", d.CatalogHandler.DeleteProduct)

	crt := api.Group("/cart", authMW.RequireAuth)
	crt.GET("", d.CartHandler.GetCart)
	crt.POST("/items", d.CartHandler.AddItem)
	crt.PUT("/items/:product_id", d.CartHandler.SetItem)
	crt.DELETE("/items/:product_id", d.CartHandler.RemoveItem)
	crt.DELETE("", d.CartHandler.ClearCart)
	crt.POST("/checkout", d.CartHandler.CheckoutCart)

	ord := api.Group("/orders", authMW.RequireAuth)
	ord.GET("", d.OrderHandler.GetOrders)
	ord.GET("/history", d.OrderHandler.History)
	ord.GET("/:id", d.OrderHandler.GetOrder)
	ord.GET("/:id/invoice", d.OrderHandler.GetInvoice)

	rev := api.Group("/reviews", authMW.RequireAuth)
	rev.POST("", d.ReviewHandler.CreateReview)
	rev.GET("/mine", d.ReviewHandler.MyReviews)
	rev.GET("/reviewable", d.ReviewHandler.Reviewable)
	rev.DELETE("/:id", d.ReviewHandler.DeleteReview)
}
