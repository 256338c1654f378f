package main

import (
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"pos-service/internal/handler"
	mid "pos-service/internal/middleware"
	"pos-service/internal/model"
	"pos-service/pkg/config"
	"pos-service/pkg/database"
	"pos-service/pkg/jwtutil"
	"pos-service/pkg/llm"
	"pos-service/pkg/logger"
	"pos-service/prometheus"
)

func main() {
	// Load .env file. Missing file is fine: production environments set
	// real environment variables instead.
	_ = godotenv.Load()

	// Load configuration
	appConfig, err := config.Load("pos-service")
	if err != nil {
		// Can't use structured logger yet since it's not initialized
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	if err := logger.InitLogger(appConfig); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	log := logger.GetLogger()
	defer log.Sync()

	log.Info("Starting pos-service", appConfig.LogConfig()...)

	// Initialize JWT utility
	jwtutil.Initialize(&appConfig.JWT)
	log.Info("JWT utility initialized")

	// Initialize Prometheus metrics
	prometheus.InitMetrics(appConfig)
	log.Info("Prometheus metrics initialized",
		zap.String("metrics_prefix", appConfig.Metrics.Prefix))

	// Initialize database
	if err := database.InitDB(appConfig); err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	log.Info("Database connection established")

	// Wire the chat endpoint's outbound collaborators
	handler.InitChat(appConfig, llm.NewClient(&appConfig.LLM, log))

	// Initialize Echo instance
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Recover())
	e.Use(mid.RequestIDMiddleware)
	e.Use(mid.MetricsMiddleware)

	// Metrics and health endpoints
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/health", handler.Health)

	// Auth routes
	authAPI := e.Group("/api/auth")
	authAPI.POST("/register", handler.Register)
	authAPI.POST("/login", handler.Login)

	ownerOnly := mid.RequireRole(model.RoleOwner)

	// Category routes - reads for any authenticated role, writes for owners
	categoryAPI := e.Group("/api/category", mid.AuthMiddleware)
	categoryAPI.GET("", handler.ListCategories)
	categoryAPI.POST("", handler.CreateCategory, ownerOnly)
	categoryAPI.PATCH("/:id", handler.UpdateCategory, ownerOnly)
	categoryAPI.DELETE("/:id", handler.DeleteCategory, ownerOnly)

	// Product routes
	productAPI := e.Group("/api/products", mid.AuthMiddleware)
	productAPI.GET("", handler.ListProducts)
	productAPI.POST("", handler.CreateProduct, ownerOnly)
	productAPI.PATCH("/:id", handler.UpdateProduct, ownerOnly)
	productAPI.DELETE("/:id", handler.DeleteProduct, ownerOnly)

	// Cashier routes - owner-only sub-account management
	cashierAPI := e.Group("/api/cashiers", mid.AuthMiddleware, ownerOnly)
	cashierAPI.GET("", handler.ListCashiers)
	cashierAPI.POST("", handler.CreateCashier)
	cashierAPI.PATCH("/:id", handler.EditCashier)
	cashierAPI.DELETE("/:id", handler.DeleteCashier)

	// Transaction routes - cashiers see the current day only, delete is owner-only
	transactionAPI := e.Group("/api/transactions", mid.AuthMiddleware)
	transactionAPI.GET("", handler.ListTransactions)
	transactionAPI.POST("", handler.CreateTransaction)
	transactionAPI.GET("/:id", handler.GetTransaction)
	transactionAPI.DELETE("/:id", handler.DeleteTransaction, ownerOnly)

	// Analytics routes - owner-only
	analyticsAPI := e.Group("/api/analytics", mid.AuthMiddleware, ownerOnly)
	analyticsAPI.GET("/revenue", handler.GetRevenue)
	analyticsAPI.GET("/top-products", handler.GetTopProducts)

	// Chat route - owner-only
	e.POST("/api/chat", handler.Ask, mid.AuthMiddleware, ownerOnly)

	// Start server
	port := appConfig.Server.Port
	log.Info("Starting server", zap.String("port", port))
	if err := e.Start(":" + port); err != nil {
		log.Fatal("Server error", zap.Error(err))
	}
}
