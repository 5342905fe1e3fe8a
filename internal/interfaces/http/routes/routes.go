// internal/interfaces/http/routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/your-org/checkout-backend/internal/config"
	"github.com/your-org/checkout-backend/internal/domain/cart"
	"github.com/your-org/checkout-backend/internal/domain/checkout"
	"github.com/your-org/checkout-backend/internal/domain/coupon"
	"github.com/your-org/checkout-backend/internal/domain/order"
	"github.com/your-org/checkout-backend/internal/domain/payment"
	"github.com/your-org/checkout-backend/internal/domain/user"
	"github.com/your-org/checkout-backend/internal/interfaces/http/handlers"
	"github.com/your-org/checkout-backend/internal/interfaces/http/middleware"
	"gorm.io/gorm"
)

// SetupRoutes wires all API routes. Services are constructed once here and
// shared across the handlers that need them.
func SetupRoutes(rg *gin.RouterGroup, db *gorm.DB, redisClient *redis.Client, cfg *config.Config) {
	cartService := cart.NewService(db, redisClient, cfg)
	addressService := user.NewAddressService(db, cfg)
	couponService := coupon.NewService(db, cfg)
	orderService := order.NewService(db, cfg)
	gateway := payment.NewRazorpayGateway(cfg)
	paymentService := payment.NewService(db, cfg, orderService, gateway)
	checkoutService := checkout.NewService(db, cfg, cartService, addressService, couponService, orderService, paymentService)

	authHandler := handlers.NewAuthHandler(db, redisClient, cfg)
	cartHandler := handlers.NewCartHandler(db, redisClient, cfg)
	addressHandler := handlers.NewAddressHandler(db, cfg)
	checkoutHandler := handlers.NewCheckoutHandler(checkoutService)
	orderHandler := handlers.NewOrderHandler(orderService)
	paymentHandler := handlers.NewPaymentHandler(paymentService)
	adminHandler := handlers.NewAdminHandler(orderService, couponService)

	auth := rg.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.RefreshToken)
	}

	// Cart works for both guests (session cookie) and authenticated users
	cartRoutes := rg.Group("/cart")
	cartRoutes.Use(middleware.OptionalAuthMiddleware(cfg))
	{
		cartRoutes.GET("", cartHandler.GetCart)
		cartRoutes.DELETE("", cartHandler.ClearCart)
		cartRoutes.POST("/items", cartHandler.AddToCart)
		cartRoutes.PUT("/items/:product_id", cartHandler.UpdateCartItem)
		cartRoutes.DELETE("/items/:product_id", cartHandler.RemoveCartItem)
	}

	addresses := rg.Group("/addresses")
	addresses.Use(middleware.AuthMiddleware(cfg))
	{
		addresses.GET("", addressHandler.ListAddresses)
		addresses.POST("", addressHandler.CreateAddress)
		addresses.PUT("/:id", addressHandler.UpdateAddress)
		addresses.DELETE("/:id", addressHandler.DeleteAddress)
	}

	checkoutRoutes := rg.Group("/checkout")
	checkoutRoutes.Use(middleware.AuthMiddleware(cfg))
	{
		checkoutRoutes.POST("", checkoutHandler.PlaceOrder)
		checkoutRoutes.POST("/preview", checkoutHandler.Preview)
	}

	orders := rg.Group("/orders")
	orders.Use(middleware.AuthMiddleware(cfg))
	{
		orders.GET("", orderHandler.ListOrders)
		orders.GET("/:id", orderHandler.GetOrder)
		orders.POST("/:id/cancel", orderHandler.CancelOrder)
	}

	payments := rg.Group("/payments")
	{
		// Server-to-server callback, authenticated by signature
		payments.POST("/webhook", paymentHandler.PaymentWebhook)

		protected := payments.Group("")
		protected.Use(middleware.AuthMiddleware(cfg))
		{
			protected.POST("/verify", paymentHandler.VerifyPayment)
			protected.POST("/orders/:id/initiate", paymentHandler.InitiatePayment)
			protected.POST("/orders/:id/retry", paymentHandler.RetryPayment)
			protected.POST("/orders/:id/failure", paymentHandler.ReportFailure)
		}
	}

	admin := rg.Group("/admin")
	admin.Use(middleware.AuthMiddleware(cfg), middleware.AdminMiddleware())
	{
		admin.GET("/orders", adminHandler.ListOrders)
		admin.GET("/orders/:id", adminHandler.GetOrder)
		admin.PUT("/orders/:id/status", adminHandler.UpdateOrderStatus)
		admin.POST("/orders/:id/confirm-payment", adminHandler.ConfirmManualPayment)
		admin.POST("/orders/expire-stale", adminHandler.ExpireStaleOrders)

		admin.GET("/coupons", adminHandler.ListCoupons)
		admin.POST("/coupons", adminHandler.CreateCoupon)
		admin.PUT("/coupons/:id", adminHandler.UpdateCoupon)
		admin.GET("/coupons/:id/stats", adminHandler.GetCouponStats)
	}
}
