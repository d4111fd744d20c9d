package api

import (
	"errors"                            // Sentinel comparison
	"ledger_system/internal/domain"     // Importing domain models
	"ledger_system/internal/middleware" // Authenticated user lookup
	"ledger_system/internal/store"      // Persistence layer
	"ledger_system/internal/utils"      // Utility functions
	"net/http"                          // HTTP status codes
	"strconv"                           // String conversion
	"time"                              // Cache TTL

	"github.com/gin-gonic/gin"      // Gin web framework
	"github.com/redis/go-redis/v9"  // Redis client
	"github.com/shopspring/decimal" // Exact decimal amounts
	"github.com/sirupsen/logrus"    // Logging library
)

// CreateTransactionRequest represents a new transaction request
type CreateTransactionRequest struct {
	Amount *decimal.Decimal `json:"amount"` // Amount, accepted as a JSON number or string
}

// parseID reads a positive numeric path parameter
func parseID(c *gin.Context, name string) (uint, bool) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || v == 0 {
		return 0, false
	}
	return uint(v), true
}

// CreateTransactionHandler creates a pending transaction for the authenticated user
func CreateTransactionHandler(users *store.UserStore, txs *store.TransactionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := middleware.UserID(c) // Get userID from context
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var req CreateTransactionRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		if req.Amount == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Amount is required"})
			return
		}
		ctx := c.Request.Context()
		owner, err := users.GetByID(ctx, userID) // Commission rate comes from the owner
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		tx, err := domain.NewTransaction(*owner, *req.Amount)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Amount must be greater than 0"})
			return
		}
		if err := txs.Create(ctx, &tx); err != nil {
			logrus.WithFields(logrus.Fields{
				"user_id": userID,      // User ID
				"amount":  tx.Amount,   // Requested amount
				"error":   err.Error(), // Error message
			}).Error("Failed to create transaction")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create transaction"})
			return
		}
		// Log successful creation
		logrus.WithFields(logrus.Fields{
			"user_id":        userID,        // User ID
			"transaction_id": tx.ID,         // New transaction
			"amount":         tx.Amount,     // Amount
			"commission":     tx.Commission, // Frozen commission
		}).Info("Transaction created")
		c.JSON(http.StatusCreated, gin.H{"message": "Transaction created successfully", "transaction": tx})
	}
}

// CancelTransactionHandler lets the owner cancel one of their pending transactions
func CancelTransactionHandler(txs *store.TransactionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := middleware.UserID(c) // Get userID from context
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		id, ok := parseID(c, "id")
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid transaction id"})
			return
		}
		ctx := c.Request.Context()
		// Other users' transactions are reported as missing
		if _, err := txs.Get(ctx, id, &userID); err != nil {
			respondStoreError(c, err, "Failed to fetch transaction")
			return
		}
		if err := txs.SetStatus(ctx, id, domain.StatusCanceled); err != nil {
			if errors.Is(err, store.ErrStatusConflict) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Only pending transactions can be canceled"})
				return
			}
			respondStoreError(c, err, "Failed to cancel transaction")
			return
		}
		logrus.WithFields(logrus.Fields{
			"user_id":        userID, // User ID
			"transaction_id": id,     // Canceled transaction
		}).Info("Transaction canceled")
		c.JSON(http.StatusOK, gin.H{"message": "Transaction canceled", "transaction_id": id, "status": domain.StatusCanceled})
	}
}

// CheckTransactionHandler returns one of the authenticated user's transactions, cached in Redis
func CheckTransactionHandler(txs *store.TransactionStore, rdb *redis.Client, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := middleware.UserID(c) // Get userID from context
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		id, ok := parseID(c, "id")
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid transaction id"})
			return
		}
		ctx := c.Request.Context()
		cacheKey := utils.TransactionKey(id) // Cache key for the transaction
		var cached domain.Transaction
		found, err := utils.GetCache(ctx, rdb, cacheKey, &cached) // Try to get from cache
		if err == nil && found {
			// The cache is shared between owners, so ownership is checked on every hit
			if cached.UserID != userID {
				c.JSON(http.StatusNotFound, gin.H{"error": "Transaction not found"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"transaction": cached, "cached": true})
			return
		}
		tx, err := txs.Get(ctx, id, &userID)
		if err != nil {
			respondStoreError(c, err, "Failed to fetch transaction")
			return
		}
		_ = utils.SetCache(ctx, rdb, cacheKey, tx, ttl)                  // Cache the transaction
		c.JSON(http.StatusOK, gin.H{"transaction": tx, "cached": false}) // Return transaction
	}
}

// respondStoreError maps store errors to HTTP responses
func respondStoreError(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Transaction not found"})
	case errors.Is(err, store.ErrStatusConflict):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Transaction is no longer pending"})
	default:
		logrus.WithField("error", err.Error()).Error(message)
		c.JSON(http.StatusInternalServerError, gin.H{"error": message})
	}
}
