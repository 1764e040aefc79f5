// Package server assembles the HTTP router from the handlers and middleware.
package server

import (
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	_ "pennywise/internal/docs" // swagger docs
	"pennywise/internal/handlers"
	"pennywise/internal/middleware"
	"pennywise/internal/observability"
	"pennywise/internal/pagination"
	"pennywise/internal/services"
)

// Deps holds everything the router needs. Prom and ServiceName are optional:
// metrics are not exposed without Prom, and tracing middleware is only
// installed when ServiceName is set.
type Deps struct {
	Users        services.UserServicer
	Auth         services.AuthServicer
	Transactions services.TransactionServicer
	Reports      services.ReportServicer
	Tokens       middleware.TokenVerifier
	DB           handlers.Pinger

	Prom        *observability.Prom
	ServiceName string

	MaxBodyBytes   int64
	RequestTimeout time.Duration
	PageLimits     pagination.Limits
}

// NewRouter builds the gin engine serving the API under /api.
func NewRouter(d Deps) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	if d.ServiceName != "" {
		r.Use(otelgin.Middleware(d.ServiceName))
	}
	r.Use(middleware.RequestLogging())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS())
	r.Use(middleware.MaxBodyBytes(d.MaxBodyBytes))
	r.Use(middleware.RequestTimeout(d.RequestTimeout))
	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
		r.GET("/metrics", d.Prom.Handler())
	}
	r.Use(middleware.ErrorHandler())

	authHandler := handlers.NewAuthHandler(d.Auth, d.Users)
	transactionHandler := handlers.NewTransactionHandler(d.Transactions).WithPageLimits(d.PageLimits)
	reportHandler := handlers.NewReportHandler(d.Reports)
	healthHandler := handlers.NewHealthHandler(d.DB)

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.Group("/api")
	api.GET("/health", healthHandler.Health)
	api.GET("/ready", healthHandler.Ready)

	requireAuth := middleware.AuthMiddleware(d.Tokens)

	// User routes
	users := api.Group("/users")
	users.POST("/register", authHandler.Register)
	users.POST("/login", authHandler.Login)
	users.POST("/refresh", authHandler.Refresh)
	users.POST("/logout", authHandler.Logout)
	users.GET("/me", requireAuth, authHandler.GetProfile)

	// Expense routes
	expenses := api.Group("/expenses", requireAuth)
	expenses.POST("", transactionHandler.CreateTransaction)
	expenses.GET("", transactionHandler.ListTransactions)
	expenses.GET("/summary", transactionHandler.GetSummary)
	expenses.PUT("/:id", transactionHandler.UpdateTransaction)
	expenses.DELETE("/:id", transactionHandler.DeleteTransaction)
	expenses.POST("/export-to-mail", reportHandler.ExportToMail)

	return r
}
