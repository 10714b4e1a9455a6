package routes

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/mindymunchs/internal/config"
	"github.com/example/mindymunchs/internal/handlers"
	"github.com/example/mindymunchs/internal/middleware"
	"github.com/example/mindymunchs/internal/services"
)

// Register wires up all HTTP routes.
func Register(app *fiber.App, db *gorm.DB, cfg *config.Config) {
	gateway := services.NewRazorpayClient(cfg.RazorpayKeyID, cfg.RazorpayKeySecret)
	emailService := services.NewEmailService(cfg.BrevoAPIKey, cfg.SenderEmail, cfg.FrontendURL)
	orderService := services.NewOrderService(db, gateway, emailService, services.PricingConfig{
		ShippingFlatRate:      cfg.ShippingFlatRate,
		FreeShippingThreshold: cfg.FreeShippingThreshold,
		TaxRate:               cfg.TaxRate,
	})

	authHandler := handlers.NewAuthHandler(db, cfg)
	productHandler := handlers.NewProductHandler(db, emailService)
	cartHandler := handlers.NewCartHandler(db)
	orderHandler := handlers.NewOrderHandler(db, orderService)
	paymentHandler := handlers.NewPaymentHandler(gateway)
	adminHandler := handlers.NewAdminHandler(db, orderService, cfg.ProtectedAdminEmails)
	newsletterHandler := handlers.NewNewsletterHandler(db)

	authRequired := middleware.AuthMiddleware(cfg)
	adminOnly := middleware.RequireAdmin()

	api := app.Group("/api")

	// Auth
	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Get("/me", authRequired, authHandler.Me)

	// Catalog. Static paths go before the :id route.
	products := api.Group("/products")
	products.Get("/", productHandler.ListProducts)
	products.Get("/featured", productHandler.FeaturedProducts)
	products.Get("/bestsellers", productHandler.BestsellerProducts)
	products.Get("/:id", productHandler.GetProduct)
	products.Post("/", authRequired, adminOnly, productHandler.CreateProduct)
	products.Put("/:id", authRequired, adminOnly, productHandler.UpdateProduct)
	products.Delete("/:id", authRequired, adminOnly, productHandler.DeleteProduct)
	products.Patch("/:id/stock", authRequired, adminOnly, productHandler.UpdateStock)

	// Newsletter
	newsletter := api.Group("/newsletter")
	newsletter.Post("/subscribe", newsletterHandler.Subscribe)
	newsletter.Post("/unsubscribe", newsletterHandler.Unsubscribe)

	// Payment gateway
	payments := api.Group("/payments", authRequired)
	payments.Post("/create-razorpay-order", paymentHandler.CreateRazorpayOrder)
	payments.Post("/verify-payment", paymentHandler.VerifyPayment)

	// Cart
	cart := api.Group("/cart", authRequired)
	cart.Get("/", cartHandler.GetCart)
	cart.Delete("/", cartHandler.ClearCart)
	cart.Post("/items", cartHandler.AddItem)
	cart.Put("/items/:productId", cartHandler.SetQuantity)
	cart.Delete("/items/:productId", cartHandler.RemoveItem)

	// Orders. Static paths go before the :id routes.
	orders := api.Group("/orders", authRequired)
	orders.Post("/", orderHandler.CreateOrder)
	orders.Get("/my-orders", orderHandler.MyOrders)
	orders.Get("/analytics/summary", adminOnly, orderHandler.OrderAnalytics)
	orders.Get("/", adminOnly, orderHandler.ListAllOrders)
	orders.Get("/:id", orderHandler.GetOrder)
	orders.Post("/:id/cancel", orderHandler.CancelOrder)
	orders.Patch("/:id/status", adminOnly, orderHandler.UpdateOrderStatus)

	// Admin back-office
	admin := api.Group("/admin", authRequired, adminOnly)
	admin.Get("/overview-stats", adminHandler.DashboardStats)
	admin.Get("/users/search", adminHandler.SearchUsers)
	admin.Get("/admins", adminHandler.ListAdmins)
	admin.Post("/users/:id/promote", adminHandler.PromoteUser)
	admin.Post("/admins/:id/demote", adminHandler.DemoteAdmin)
}
