// internal/interfaces/http/routes/routes.go
package routes

import (
	"github.com/fixstar/storefront-backend/internal/config"
	"github.com/fixstar/storefront-backend/internal/interfaces/http/handlers"
	"github.com/fixstar/storefront-backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// SetupRoutes wires all API routes onto the given group
func SetupRoutes(rg *gin.RouterGroup, db *gorm.DB, redisClient *redis.Client, cfg *config.Config) {
	setupAuthRoutes(rg, db, redisClient, cfg)
	setupCatalogRoutes(rg, db, cfg)
	setupCartRoutes(rg, db, redisClient, cfg)
	setupOrderRoutes(rg, db, redisClient, cfg)
	setupAdminRoutes(rg, db, redisClient, cfg)
}

func setupAuthRoutes(rg *gin.RouterGroup, db *gorm.DB, redisClient *redis.Client, cfg *config.Config) {
	authHandler := handlers.NewAuthHandler(db, redisClient, cfg)

	auth := rg.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)

		protected := auth.Group("")
		protected.Use(middleware.AuthMiddleware(cfg))
		{
			protected.GET("/profile", authHandler.GetProfile)
		}
	}
}

func setupCatalogRoutes(rg *gin.RouterGroup, db *gorm.DB, cfg *config.Config) {
	catalogHandler := handlers.NewCatalogHandler(db, cfg)

	rg.GET("/categories", catalogHandler.GetCategories)

	products := rg.Group("/products")
	{
		products.GET("", catalogHandler.GetProducts)
		products.GET("/search", catalogHandler.SearchProducts)
		products.GET("/:id", catalogHandler.GetProduct)
		products.GET("/slug/:slug", catalogHandler.GetProductBySlug)
	}
}

func setupCartRoutes(rg *gin.RouterGroup, db *gorm.DB, redisClient *redis.Client, cfg *config.Config) {
	cartHandler := handlers.NewCartHandler(db, redisClient, cfg)

	cart := rg.Group("/cart")
	cart.Use(middleware.OptionalAuthMiddleware(cfg))
	{
		cart.GET("", cartHandler.GetCart)
		cart.GET("/count", cartHandler.GetCartCount)
		cart.POST("/items", cartHandler.AddItem)
		cart.PUT("/items/:product_id", cartHandler.UpdateItem)
		cart.DELETE("/items/:product_id", cartHandler.RemoveItem)
		cart.DELETE("", cartHandler.ClearCart)
	}

	merge := rg.Group("/cart/merge")
	merge.Use(middleware.AuthMiddleware(cfg))
	{
		merge.POST("", cartHandler.MergeGuestCart)
	}
}

func setupOrderRoutes(rg *gin.RouterGroup, db *gorm.DB, redisClient *redis.Client, cfg *config.Config) {
	orderHandler := handlers.NewOrderHandler(db, redisClient, cfg)

	// Guests may place orders against their session cart
	orders := rg.Group("/orders")
	orders.Use(middleware.OptionalAuthMiddleware(cfg))
	{
		orders.POST("", orderHandler.PlaceOrder)
	}

	protected := rg.Group("/orders")
	protected.Use(middleware.AuthMiddleware(cfg))
	{
		protected.GET("", orderHandler.GetMyOrders)
		protected.GET("/:id", orderHandler.GetOrder)
		protected.PUT("/:id/cancel", orderHandler.CancelOrder)
	}
}

func setupAdminRoutes(rg *gin.RouterGroup, db *gorm.DB, redisClient *redis.Client, cfg *config.Config) {
	adminHandler := handlers.NewAdminHandler(db, redisClient, cfg)

	admin := rg.Group("/admin")
	admin.Use(middleware.AuthMiddleware(cfg))
	admin.Use(middleware.AdminMiddleware())
	{
		orders := admin.Group("/orders")
		{
			orders.GET("", adminHandler.GetOrders)
			orders.PUT("/:id/status", adminHandler.UpdateOrderStatus)
			orders.PUT("/:id/cancel", adminHandler.CancelOrder)
		}

		admin.POST("/carts/cleanup", adminHandler.CleanupCarts)

		settings := admin.Group("/notification-settings")
		{
			settings.GET("", adminHandler.GetNotificationSettings)
			settings.POST("", adminHandler.CreateNotificationSettings)
			settings.PUT("/:id", adminHandler.UpdateNotificationSettings)
			settings.DELETE("/:id", adminHandler.DeleteNotificationSettings)
			settings.POST("/:id/test", adminHandler.TestNotificationSettings)
		}
	}
}
