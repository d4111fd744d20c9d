package api

import (
	"ledger_system/internal/middleware" // Auth middleware
	"ledger_system/internal/store"      // Persistence layer
	"time"                              // Cache TTL

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
)

// Deps bundles what the HTTP handlers need
type Deps struct {
	Users        *store.UserStore        // User persistence
	Transactions *store.TransactionStore // Transaction persistence
	Schedules    *store.ScheduleStore    // Job schedules
	Redis        *redis.Client           // Response cache
	JWTSecret    string                  // Token signing key
	CacheTTL     time.Duration           // Cache lifetime

	Jobs                   []string // Job names whose schedules admins may edit
	DefaultIntervalSeconds int      // Interval of a schedule created on first edit
}

// RegisterRoutes mounts every endpoint on r
func RegisterRoutes(r *gin.Engine, d Deps) {
	// Auth routes
	r.POST("/user", RegisterHandler(d.Users, d.Redis))        // Registration endpoint
	r.POST("/user/login", LoginHandler(d.Users, d.JWTSecret)) // Login endpoint

	// Transaction routes (protected by JWT)
	txGroup := r.Group("/transactions")
	txGroup.Use(middleware.JWTAuthMiddleware(d.JWTSecret))
	txGroup.POST("", CreateTransactionHandler(d.Users, d.Transactions))               // Create transaction endpoint
	txGroup.GET("/:id", CheckTransactionHandler(d.Transactions, d.Redis, d.CacheTTL)) // Check transaction endpoint
	txGroup.POST("/:id/cancel", CancelTransactionHandler(d.Transactions))             // Cancel transaction endpoint

	// Admin routes (protected, admin only)
	adminGroup := r.Group("/admin")
	adminGroup.Use(middleware.JWTAuthMiddleware(d.JWTSecret), middleware.AdminOnlyMiddleware(d.Users))
	adminGroup.GET("/dashboard", DashboardHandler(d.Transactions, d.Redis, d.CacheTTL))                      // Dashboard endpoint
	adminGroup.GET("/transactions", ListTransactionsHandler(d.Transactions, d.Redis, d.CacheTTL))            // List transactions endpoint
	adminGroup.POST("/transactions/:id/confirm", ConfirmTransactionHandler(d.Transactions))                  // Confirm transaction endpoint
	adminGroup.GET("/schedules", ListSchedulesHandler(d.Schedules))                                          // List schedules endpoint
	adminGroup.PUT("/schedules/:name", UpdateScheduleHandler(d.Schedules, d.Jobs, d.DefaultIntervalSeconds)) // Update schedule endpoint
	adminGroup.GET("/users", ListUsersHandler(d.Users, d.Redis, d.CacheTTL))                                 // List users endpoint
	adminGroup.PATCH("/users/:id", UpdateUserHandler(d.Users, d.Redis))                                      // Update user endpoint
}
