package api

import (
	"context"                       // Cache invalidation
	"errors"                        // Sentinel comparison
	"ledger_system/internal/domain" // Importing domain models
	"ledger_system/internal/store"  // Persistence layer
	"ledger_system/internal/utils"  // Utility functions
	"math"                          // Page count rounding
	"net/http"                      // HTTP status codes
	"strconv"                       // String conversion
	"time"                          // Cache TTL

	"github.com/gin-gonic/gin"      // Gin web framework
	"github.com/redis/go-redis/v9"  // Redis client
	"github.com/shopspring/decimal" // Commission rates
	"github.com/sirupsen/logrus"    // Logging library
)

// userPage is the admin user listing response, also stored in the cache
type userPage struct {
	Users      []domain.User `json:"users"`       // List of users
	Page       int           `json:"page"`        // Current page
	PageSize   int           `json:"page_size"`   // Page size
	Total      int64         `json:"total"`       // Total number of users
	TotalPages int           `json:"total_pages"` // Total pages
	Cached     bool          `json:"cached"`      // Whether the response came from cache
}

// UpdateUserRequest carries the admin-editable user settings
type UpdateUserRequest struct {
	CommissionRate *decimal.Decimal `json:"commission_rate"` // New commission rate, 0 to 1
	WebhookURL     *string          `json:"webhook_url"`     // New webhook URL, "" removes it
}

// invalidateUserViews drops cached admin views that show user data
func invalidateUserViews(ctx context.Context, rdb *redis.Client) {
	if err := utils.DeletePrefix(ctx, rdb, utils.AdminUserKeyPrefix); err != nil {
		logrus.WithField("error", err.Error()).Warn("Failed to invalidate user listings cache")
	}
	if err := utils.DeleteCache(ctx, rdb, utils.DashboardKey); err != nil {
		logrus.WithField("error", err.Error()).Warn("Failed to invalidate dashboard cache")
	}
}

// ListUsersHandler returns all users with their commission rate and webhook
func ListUsersHandler(users *store.UserStore, rdb *redis.Client, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		page := 1      // Default page number
		pageSize := 20 // Default page size
		if p, err := strconv.Atoi(c.Query("page")); err == nil && p > 0 {
			page = p // Set page if valid
		}
		if ps, err := strconv.Atoi(c.Query("page_size")); err == nil && ps > 0 && ps <= 100 {
			pageSize = ps // Set page size if valid
		}
		// Create a cache key based on pagination parameters
		cacheKey := utils.AdminUserKeyPrefix + "page=" + strconv.Itoa(page) + ":size=" + strconv.Itoa(pageSize)
		var cached userPage
		found, err := utils.GetCache(ctx, rdb, cacheKey, &cached)
		if err == nil && found {
			cached.Cached = true // Indicate response is from cache
			c.JSON(http.StatusOK, cached)
			return
		}
		list, total, err := users.List(ctx, store.Page{Page: page, PageSize: pageSize})
		if err != nil {
			logrus.WithField("error", err.Error()).Error("Failed to list users")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch users"})
			return
		}
		resp := userPage{
			Users:      list,                                               // List of users
			Page:       page,                                               // Current page
			PageSize:   pageSize,                                           // Page size
			Total:      total,                                              // Total number of users
			TotalPages: int(math.Ceil(float64(total) / float64(pageSize))), // Total pages
		}
		if resp.Users == nil {
			resp.Users = []domain.User{}
		}
		_ = utils.SetCache(ctx, rdb, cacheKey, resp, ttl) // Cache the response for future requests
		c.JSON(http.StatusOK, resp)
	}
}

// UpdateUserHandler changes a user's commission rate and webhook URL
func UpdateUserHandler(users *store.UserStore, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
			return
		}
		var req UpdateUserRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		if req.CommissionRate == nil && req.WebhookURL == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Nothing to update"})
			return
		}
		if req.WebhookURL != nil && *req.WebhookURL != "" && !isValidWebhookURL(*req.WebhookURL) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Webhook URL must be an absolute http(s) URL"})
			return
		}
		ctx := c.Request.Context()
		user, err := users.Update(ctx, id, store.UserUpdate{CommissionRate: req.CommissionRate, WebhookURL: req.WebhookURL})
		if err != nil {
			switch {
			case errors.Is(err, store.ErrNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			case errors.Is(err, domain.ErrInvalidCommissionRate):
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			default:
				logrus.WithFields(logrus.Fields{
					"user_id": id,          // Target user
					"error":   err.Error(), // Error message
				}).Error("Failed to update user")
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user"})
			}
			return
		}
		invalidateUserViews(ctx, rdb) // Listings show the old settings
		logrus.WithFields(logrus.Fields{
			"user_id":         user.ID,              // Updated user
			"commission_rate": user.CommissionRate,  // Current rate
			"has_webhook":     user.Webhook() != "", // Webhook registered
		}).Info("User updated")
		c.JSON(http.StatusOK, gin.H{"user": user})
	}
}
