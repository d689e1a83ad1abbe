package httpserver

import (
	"net/http"
	"path/filepath"

	"github.com/labstack/echo/v4"

	"github.com/liushenghao/taixuan_shop/internal/service/token"
)

type Deps struct {
	AuthHandler     *AuthHandler
	ProductHandler  *ProductHandler
	CartHandler     *CartHandler
	CheckoutHandler *CheckoutHandler
	WebhookHandler  *WebhookHandler
	OrderHandler    *OrderHandler
	UploadHandler   *UploadHandler
	Tokens          *token.Service
	PublicDir       string
}

func Register(e *echo.Echo, d *Deps) {
	e.Validator = NewValidator()
	e.HTTPErrorHandler = ErrorHandler
	e.Use(CSRF("/api/shop/webhook"))

	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	e.Static("/images", filepath.Join(d.PublicDir, "images"))

	auth := e.Group("/api/auth")
	auth.POST("/register", d.AuthHandler.Register)
	auth.POST("/login", d.AuthHandler.Login)
	auth.POST("/logout", d.AuthHandler.Logout)

	shop := e.Group("/api/shop")

	shop.GET("/products", d.ProductHandler.GetProducts)
	shop.GET("/products/:id", d.ProductHandler.GetProduct)
	shop.POST("/products", d.ProductHandler.CreateProduct, d.Tokens.RequireAdmin)
	shop.PUT("/products/:id", d.ProductHandler.UpdateProduct, d.Tokens.RequireAdmin)
	shop.DELETE("/products/:id", d.ProductHandler.DeleteProduct, d.Tokens.RequireAdmin)

	cart := shop.Group("/cart", d.Tokens.RequireUser)
	cart.GET("", d.CartHandler.GetCart)
	cart.POST("", d.CartHandler.AddToCart)
	cart.DELETE("", d.CartHandler.RemoveFromCart)

	shop.POST("/create-checkout-session", d.CheckoutHandler.CreateCheckoutSession, d.Tokens.RequireUser)

	// The processor authenticates with its signature header, not a session.
	shop.POST("/webhook", d.WebhookHandler.HandleWebhook)

	orders := shop.Group("/orders", d.Tokens.RequireUser)
	orders.GET("", d.OrderHandler.ListMyOrders)
	orders.POST("", d.OrderHandler.CreateOrder)
	orders.GET("/:id", d.OrderHandler.GetMyOrder)

	shop.POST("/upload", d.UploadHandler.Upload, d.Tokens.RequireAdmin)

	admin := e.Group("/api/admin", d.Tokens.RequireAdmin)
	admin.GET("/orders", d.OrderHandler.AdminListOrders)
	admin.GET("/orders/:id", d.OrderHandler.AdminGetOrder)
	admin.PATCH("/orders/:id", d.OrderHandler.AdminPatchOrder)
}
