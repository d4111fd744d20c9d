package api

import (
	"errors"                        // Sentinel comparison
	"ledger_system/internal/domain" // Importing domain models
	"ledger_system/internal/store"  // Persistence layer
	"ledger_system/internal/utils"  // Utility functions
	"math"                          // Page count rounding
	"net/http"                      // HTTP status codes
	"strconv"                       // String conversion
	"strings"                       // String manipulation
	"time"                          // Time durations and filters

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
)

// transactionPage is the admin listing response, also stored in the cache
type transactionPage struct {
	Transactions []domain.Transaction `json:"transactions"` // List of transactions
	Page         int                  `json:"page"`         // Current page
	PageSize     int                  `json:"page_size"`    // Page size
	Total        int64                `json:"total"`        // Total number of transactions
	TotalPages   int                  `json:"total_pages"`  // Total pages
	Cached       bool                 `json:"cached"`       // Whether the response came from cache
}

// UpdateScheduleRequest sets the poll interval of a job
type UpdateScheduleRequest struct {
	IntervalSeconds *int `json:"interval_seconds" binding:"required"` // 0 disables the job
}

// DashboardHandler returns ledger totals and the latest transactions
func DashboardHandler(txs *store.TransactionStore, rdb *redis.Client, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		var cached store.Dashboard
		// If cached data found, return it
		found, err := utils.GetCache(ctx, rdb, utils.DashboardKey, &cached)
		if err == nil && found {
			c.JSON(http.StatusOK, gin.H{"dashboard": cached, "cached": true})
			return
		}
		dashboard, err := txs.Dashboard(ctx, time.Now())
		if err != nil {
			logrus.WithField("error", err.Error()).Error("Failed to build dashboard")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build dashboard"})
			return
		}
		_ = utils.SetCache(ctx, rdb, utils.DashboardKey, dashboard, ttl) // Cache the dashboard
		c.JSON(http.StatusOK, gin.H{"dashboard": dashboard, "cached": false})
	}
}

// parseTransactionFilter reads the admin listing query parameters
func parseTransactionFilter(c *gin.Context) (store.TransactionFilter, error) {
	var f store.TransactionFilter
	if v := c.Query("user_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return f, errors.New("user_id must be a positive integer")
		}
		uid := uint(id)
		f.UserID = &uid // Filter by owner
	}
	if v := c.Query("status"); v != "" {
		status := domain.TransactionStatus(strings.ToLower(v))
		if !status.Valid() {
			return f, errors.New("unknown status")
		}
		f.Status = status // Filter by status
	}
	for _, bound := range []struct {
		name string
		dst  **time.Time
	}{{"from", &f.From}, {"to", &f.To}} {
		v := c.Query(bound.name)
		if v == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return f, errors.New(bound.name + " must be an RFC3339 timestamp")
		}
		*bound.dst = &t // Filter by creation time
	}
	if p, err := strconv.Atoi(c.Query("page")); err == nil && p > 0 {
		f.Page.Page = p // Set page if valid
	}
	if ps, err := strconv.Atoi(c.Query("page_size")); err == nil && ps > 0 && ps <= 100 {
		f.PageSize = ps // Set page size if valid
	}
	return f, nil
}

// ListTransactionsHandler returns all transactions, with optional filtering by user, status, or date
func ListTransactionsHandler(txs *store.TransactionStore, rdb *redis.Client, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		// Build cache key from all query params
		var keyParts []string
		for _, k := range []string{"user_id", "status", "from", "to", "page", "page_size"} {
			keyParts = append(keyParts, k+"="+c.Query(k)) // Append key-value pair
		}
		cacheKey := utils.AdminTransactionKeyPrefix + strings.Join(keyParts, ":")

		var cached transactionPage
		found, err := utils.GetCache(ctx, rdb, cacheKey, &cached)
		if err == nil && found {
			cached.Cached = true // Indicate response is from cache
			c.JSON(http.StatusOK, cached)
			return
		}
		filter, err := parseTransactionFilter(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		list, total, err := txs.List(ctx, filter)
		if err != nil {
			logrus.WithField("error", err.Error()).Error("Failed to list transactions")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch transactions"})
			return
		}
		page, pageSize := filter.Page.Page, filter.PageSize
		if page == 0 {
			page = 1
		}
		if pageSize == 0 {
			pageSize = 20
		}
		resp := transactionPage{
			Transactions: list,                                               // List of transactions
			Page:         page,                                               // Current page
			PageSize:     pageSize,                                           // Page size
			Total:        total,                                              // Total matches
			TotalPages:   int(math.Ceil(float64(total) / float64(pageSize))), // Total pages
		}
		if resp.Transactions == nil {
			resp.Transactions = []domain.Transaction{}
		}
		_ = utils.SetCache(ctx, rdb, cacheKey, resp, ttl) // Cache the response for future requests
		c.JSON(http.StatusOK, resp)
	}
}

// ConfirmTransactionHandler confirms a pending transaction
func ConfirmTransactionHandler(txs *store.TransactionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid transaction id"})
			return
		}
		if err := txs.SetStatus(c.Request.Context(), id, domain.StatusConfirmed); err != nil {
			if errors.Is(err, store.ErrStatusConflict) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Only pending transactions can be confirmed"})
				return
			}
			respondStoreError(c, err, "Failed to confirm transaction")
			return
		}
		logrus.WithField("transaction_id", id).Info("Transaction confirmed")
		c.JSON(http.StatusOK, gin.H{"message": "Transaction confirmed", "transaction_id": id, "status": domain.StatusConfirmed})
	}
}

// ListSchedulesHandler returns every job schedule
func ListSchedulesHandler(schedules *store.ScheduleStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := schedules.List(c.Request.Context())
		if err != nil {
			logrus.WithField("error", err.Error()).Error("Failed to list schedules")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch schedules"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"schedules": list})
	}
}

// UpdateScheduleHandler sets the poll interval of a registered job. The schedule row is
// created with defaultInterval first when the scheduler has not run the job yet.
func UpdateScheduleHandler(schedules *store.ScheduleStore, jobs []string, defaultInterval int) gin.HandlerFunc {
	known := make(map[string]bool, len(jobs)) // Registered job names
	for _, name := range jobs {
		known[name] = true
	}
	return func(c *gin.Context) {
		name := c.Param("name")
		if !known[name] {
			c.JSON(http.StatusNotFound, gin.H{"error": "Unknown job"})
			return
		}
		var req UpdateScheduleRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		if err := domain.ValidateInterval(*req.IntervalSeconds); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		ctx := c.Request.Context()
		if _, err := schedules.GetOrCreate(ctx, name, defaultInterval); err != nil {
			logScheduleError(name, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update schedule"})
			return
		}
		entry, err := schedules.SetInterval(ctx, name, *req.IntervalSeconds)
		if err != nil {
			logScheduleError(name, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update schedule"})
			return
		}
		logrus.WithFields(logrus.Fields{
			"job":              name,                  // Schedule name
			"interval_seconds": entry.IntervalSeconds, // New interval
		}).Info("Schedule updated")
		c.JSON(http.StatusOK, gin.H{"schedule": entry})
	}
}

// logScheduleError records a failed schedule write
func logScheduleError(name string, err error) {
	logrus.WithFields(logrus.Fields{
		"job":   name,        // Schedule name
		"error": err.Error(), // Error message
	}).Error("Failed to update schedule")
}
