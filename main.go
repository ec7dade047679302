package main

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/designden/designden-api/config"
	"github.com/designden/designden-api/controllers"
	"github.com/designden/designden-api/middleware"
	"github.com/designden/designden-api/models"
	"github.com/designden/designden-api/services"
)

func main() {
	log.Println("Starting DesignDen API server...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Connect to database
	if err := config.ConnectDatabase(); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Auto-migrate database models
	db := config.GetDB()
	err = db.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.Design{},
		&models.Cart{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.OrderTimelineEntry{},
		&models.Earning{},
		&models.PayoutRequest{},
		&models.Message{},
		&models.Feedback{},
	)
	if err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.Println("Database migration completed successfully")

	// Initialize S3 and image services
	s3Service, err := services.InitS3Service()
	if err != nil {
		log.Fatalf("Failed to initialize S3 service: %v", err)
	}
	services.InitImageService(s3Service)

	// Optional side-effect services. Each stays disabled when its
	// backing system is not configured.
	services.InitKafkaNotifier(cfg)
	if _, err := services.InitCodeStore(cfg); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	services.InitMailSender(cfg)

	router := setupRouter(cfg)

	port := ":" + cfg.Port
	log.Printf("Server is running on http://localhost%s", port)
	if err := router.Run(port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// setupRouter builds the Gin engine with all middleware and routes
func setupRouter(cfg *config.Config) *gin.Engine {
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "http://localhost:5173"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	auth := middleware.EnsureValidToken(cfg)

	anyRole := []string{
		models.RoleCustomer, models.RoleDesigner, models.RoleManager,
		models.RoleAdmin, models.RoleDelivery,
	}

	v1 := router.Group("/api/v1")
	{
		// Health and status
		v1.GET("/health", healthCheck)
		v1.GET("/database/status", databaseStatus)

		// Public catalog browsing
		v1.GET("/products", controllers.ListProducts)
		v1.GET("/products/:id", controllers.GetProduct)
		v1.GET("/designs", controllers.ListDesigns)
		v1.GET("/designs/:id", controllers.GetDesign)
		v1.GET("/designers", controllers.ListDesigners)
		v1.GET("/uploads/:filename", controllers.GetUploadedImage)

		// Signup resolves the caller against Auth0, no local user yet
		v1.POST("/users", auth, controllers.CreateUser)

		// Profile
		me := v1.Group("", auth, middleware.RequireRole(anyRole...))
		{
			me.GET("/users/me", controllers.GetMyProfile)
			me.PUT("/users/me", controllers.UpdateMyProfile)
			me.POST("/auth/verification-code", controllers.SendVerificationCode)
			me.POST("/auth/verify", controllers.VerifyCode)
		}
		v1.PUT("/users/me/availability", auth,
			middleware.RequireRole(models.RoleDesigner), controllers.UpdateMyAvailability)

		// Catalog management
		managed := v1.Group("", auth, middleware.RequireRole(models.RoleManager, models.RoleAdmin))
		{
			managed.POST("/products", controllers.CreateProduct)
			managed.PUT("/products/:id", controllers.UpdateProduct)
			managed.DELETE("/products/:id", controllers.DeleteProduct)
			managed.PUT("/products/:id/stock", controllers.AdjustStock)
			managed.POST("/products/:id/image", controllers.UploadProductImage)
			managed.GET("/feedback", controllers.ListFeedback)
		}

		// Designer-owned designs
		designerOwned := v1.Group("", auth, middleware.RequireRole(models.RoleDesigner))
		{
			designerOwned.POST("/designs", controllers.CreateDesign)
			designerOwned.PUT("/designs/:id", controllers.UpdateDesign)
			designerOwned.PUT("/designs/:id/publish", controllers.PublishDesign)
			designerOwned.DELETE("/designs/:id", controllers.DeleteDesign)
			designerOwned.POST("/designs/:id/image", controllers.UploadDesignImage)
		}

		// Cart and checkout
		customer := v1.Group("", auth, middleware.RequireRole(models.RoleCustomer))
		{
			customer.GET("/cart", controllers.GetCart)
			customer.DELETE("/cart", controllers.ClearCart)
			customer.POST("/cart/items", controllers.AddCartItem)
			customer.PUT("/cart/items/:id", controllers.UpdateCartItem)
			customer.DELETE("/cart/items/:id", controllers.RemoveCartItem)
			customer.POST("/orders", controllers.Checkout)
			customer.POST("/feedback", controllers.CreateFeedback)
		}

		// Order visibility, scoped per role inside the handlers
		orders := v1.Group("", auth, middleware.RequireRole(anyRole...))
		{
			orders.GET("/orders", controllers.ListOrders)
			orders.GET("/orders/:id", controllers.GetOrder)
			orders.GET("/orders/:id/timeline", controllers.GetOrderTimeline)
		}

		// Order conversation, delivery personnel excluded
		chat := v1.Group("", auth, middleware.RequireRole(
			models.RoleCustomer, models.RoleDesigner, models.RoleManager, models.RoleAdmin))
		{
			chat.GET("/orders/:id/messages", controllers.GetOrderMessages)
			chat.POST("/orders/:id/messages", controllers.CreateOrderMessage)
		}

		// Workflow: manager-driven transitions
		manager := v1.Group("/manager", auth, middleware.RequireRole(models.RoleManager, models.RoleAdmin))
		{
			manager.POST("/orders/:id/assign-designer", controllers.AssignDesigner)
			manager.POST("/orders/:id/assign-delivery", controllers.AssignDelivery)
			manager.POST("/orders/:id/cancel", controllers.CancelOrder)
			manager.GET("/payouts", controllers.ListPayouts)
			manager.POST("/payouts/:id/process", controllers.ProcessPayout)
		}

		// Workflow: designer-driven transitions and earnings
		designer := v1.Group("/designer", auth, middleware.RequireRole(models.RoleDesigner))
		{
			designer.POST("/orders/:id/accept", controllers.AcceptOrder)
			designer.POST("/orders/:id/start", controllers.StartProduction)
			designer.POST("/orders/:id/progress", controllers.UpdateProgress)
			designer.POST("/orders/:id/complete", controllers.CompleteProduction)
			designer.GET("/designs", controllers.ListMyDesigns)
			designer.GET("/earnings", controllers.GetMyEarnings)
			designer.GET("/balance", controllers.GetMyBalance)
			designer.POST("/payouts", controllers.RequestPayout)
			designer.GET("/payouts", controllers.ListMyPayouts)
		}

		// Workflow: delivery-driven transitions
		delivery := v1.Group("/delivery", auth, middleware.RequireRole(models.RoleDelivery))
		{
			delivery.POST("/orders/:id/out-for-delivery", controllers.MarkOutForDelivery)
			delivery.POST("/orders/:id/deliver", controllers.DeliverOrder)
		}

		// Admin escape hatch
		admin := v1.Group("/admin", auth, middleware.RequireRole(models.RoleAdmin))
		{
			admin.PUT("/users/:id/approval", controllers.SetUserApproval)
			admin.PUT("/orders/:id/status", controllers.OverrideStatus)
		}
	}

	return router
}

// healthCheck handles the health check endpoint
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "DesignDen API is running",
	})
}

// databaseStatus checks database connectivity and returns table information
func databaseStatus(c *gin.Context) {
	db := config.GetDB()

	sqlDB, err := db.DB()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to get database instance",
			},
		})
		return
	}

	if err := sqlDB.Ping(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_CONNECTION_ERROR",
				"message": "Database connection failed",
			},
		})
		return
	}

	var tables []string
	if err := db.Raw("SELECT tablename FROM pg_tables WHERE schemaname = 'public'").Scan(&tables).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_QUERY_ERROR",
				"message": "Failed to query tables",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Database connected",
		"tables":  tables,
	})
}
