package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ledger_system/internal/domain"
	"ledger_system/internal/store"
	"ledger_system/internal/testutil"
	"ledger_system/internal/utils"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret"

type testServer struct {
	router *gin.Engine
	deps   Deps
	redis  *miniredis.Miniredis
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	gdb := testutil.OpenDB(t)
	rdb, srv := testutil.Redis(t)
	deps := Deps{
		Users:        store.NewUserStore(gdb),
		Transactions: store.NewTransactionStore(gdb, rdb),
		Schedules:    store.NewScheduleStore(gdb),
		Redis:        rdb,
		JWTSecret:    testSecret,
		CacheTTL:     time.Minute,

		Jobs:                   []string{"check_expired_transactions"},
		DefaultIntervalSeconds: 60,
	}
	r := gin.New()
	RegisterRoutes(r, deps)
	return &testServer{router: r, deps: deps, redis: srv}
}

// seedUser creates a user directly in the store and returns it with a signed token.
func (s *testServer) seedUser(t *testing.T, name, role string) (domain.User, string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)
	u := domain.User{Username: name, Password: string(hash), Role: role, CommissionRate: domain.DefaultCommissionRate}
	require.NoError(t, s.deps.Users.Create(context.Background(), &u))
	token, err := utils.GenerateJWT(u.ID, testSecret)
	require.NoError(t, err)
	return u, token
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

type txResponse struct {
	Transaction domain.Transaction `json:"transaction"`
	Cached      bool               `json:"cached"`
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func (s *testServer) createTx(t *testing.T, token, amount string) domain.Transaction {
	t.Helper()
	w := s.do(t, http.MethodPost, "/transactions", token, map[string]any{"amount": amount})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[txResponse](t, w).Transaction
}

func TestAuth(t *testing.T) {
	t.Run("Register And Login", func(t *testing.T) {
		s := newTestServer(t)

		w := s.do(t, http.MethodPost, "/user", "", map[string]any{
			"username":    "Alice",
			"password":    "password123",
			"webhook_url": "https://hooks.example.com/alice",
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		u, err := s.deps.Users.GetByUsername(context.Background(), "alice")
		require.NoError(t, err)
		assert.Equal(t, domain.RoleRegular, u.Role)
		assert.True(t, u.CommissionRate.Equal(domain.DefaultCommissionRate))
		assert.Equal(t, "https://hooks.example.com/alice", u.Webhook())

		w = s.do(t, http.MethodPost, "/user/login", "", map[string]any{"username": "alice", "password": "password123"})
		require.Equal(t, http.StatusOK, w.Code)
		claims, err := utils.ParseJWT(decode[AuthResponse](t, w).Token, testSecret)
		require.NoError(t, err)
		assert.Equal(t, u.ID, claims.UserID)
	})

	t.Run("Register Rejects Bad Input", func(t *testing.T) {
		s := newTestServer(t)
		s.seedUser(t, "taken", domain.RoleRegular)

		cases := map[string]map[string]any{
			"non alphabetic username": {"username": "bob1", "password": "password123"},
			"short password":          {"username": "bob", "password": "short"},
			"relative webhook":        {"username": "bob", "password": "password123", "webhook_url": "/hook"},
			"ftp webhook":             {"username": "bob", "password": "password123", "webhook_url": "ftp://x.example.com"},
			"duplicate username":      {"username": "Taken", "password": "password123"},
			"missing password":        {"username": "bob"},
		}
		for name, body := range cases {
			t.Run(name, func(t *testing.T) {
				w := s.do(t, http.MethodPost, "/user", "", body)
				assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			})
		}
	})

	t.Run("Login Rejects Wrong Credentials", func(t *testing.T) {
		s := newTestServer(t)
		s.seedUser(t, "alice", domain.RoleRegular)

		w := s.do(t, http.MethodPost, "/user/login", "", map[string]any{"username": "alice", "password": "wrongpass1"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		w = s.do(t, http.MethodPost, "/user/login", "", map[string]any{"username": "nobody", "password": "password123"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestTransactions(t *testing.T) {
	t.Run("Create Computes Commission", func(t *testing.T) {
		s := newTestServer(t)
		u, token := s.seedUser(t, "alice", domain.RoleRegular)

		tx := s.createTx(t, token, "100.50")
		assert.Equal(t, u.ID, tx.UserID)
		assert.Equal(t, domain.StatusPending, tx.Status)
		assert.True(t, tx.Amount.Equal(decimal.RequireFromString("100.50")))
		assert.True(t, tx.Commission.Equal(decimal.RequireFromString("3.015")), tx.Commission.String())
	})

	t.Run("Create Rejects Invalid Amounts", func(t *testing.T) {
		s := newTestServer(t)
		_, token := s.seedUser(t, "alice", domain.RoleRegular)

		for _, body := range []map[string]any{{}, {"amount": "0"}, {"amount": -5}, {"amount": "abc"}} {
			w := s.do(t, http.MethodPost, "/transactions", token, body)
			assert.Equal(t, http.StatusBadRequest, w.Code, fmt.Sprint(body))
		}
	})

	t.Run("Requires Token", func(t *testing.T) {
		s := newTestServer(t)

		w := s.do(t, http.MethodPost, "/transactions", "", map[string]any{"amount": "1"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		w = s.do(t, http.MethodGet, "/transactions/1", "not-a-token", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Check Is Cached And Owner Scoped", func(t *testing.T) {
		s := newTestServer(t)
		_, alice := s.seedUser(t, "alice", domain.RoleRegular)
		_, bob := s.seedUser(t, "bob", domain.RoleRegular)
		tx := s.createTx(t, alice, "10")
		path := fmt.Sprintf("/transactions/%d", tx.ID)

		w := s.do(t, http.MethodGet, path, alice, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.False(t, decode[txResponse](t, w).Cached)
		assert.True(t, s.redis.Exists(utils.TransactionKey(tx.ID)))

		w = s.do(t, http.MethodGet, path, alice, nil)
		require.Equal(t, http.StatusOK, w.Code)
		got := decode[txResponse](t, w)
		assert.True(t, got.Cached)
		assert.Equal(t, tx.ID, got.Transaction.ID)

		w = s.do(t, http.MethodGet, path, bob, nil)
		assert.Equal(t, http.StatusNotFound, w.Code, "cached entry must not leak to other users")

		w = s.do(t, http.MethodGet, "/transactions/9999", alice, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		w = s.do(t, http.MethodGet, "/transactions/abc", alice, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Cancel Pending Only", func(t *testing.T) {
		s := newTestServer(t)
		_, alice := s.seedUser(t, "alice", domain.RoleRegular)
		_, bob := s.seedUser(t, "bob", domain.RoleRegular)
		tx := s.createTx(t, alice, "10")
		path := fmt.Sprintf("/transactions/%d", tx.ID)

		// Warm the cache so the cancel has something to invalidate
		require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, path, alice, nil).Code)

		w := s.do(t, http.MethodPost, path+"/cancel", bob, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)

		w = s.do(t, http.MethodPost, path+"/cancel", alice, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.False(t, s.redis.Exists(utils.TransactionKey(tx.ID)))

		w = s.do(t, http.MethodGet, path, alice, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, domain.StatusCanceled, decode[txResponse](t, w).Transaction.Status)

		w = s.do(t, http.MethodPost, path+"/cancel", alice, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAdmin(t *testing.T) {
	t.Run("Rejects Regular Users", func(t *testing.T) {
		s := newTestServer(t)
		_, token := s.seedUser(t, "alice", domain.RoleRegular)

		for _, path := range []string{"/admin/dashboard", "/admin/transactions", "/admin/schedules"} {
			w := s.do(t, http.MethodGet, path, token, nil)
			assert.Equal(t, http.StatusForbidden, w.Code, path)
		}
		w := s.do(t, http.MethodGet, "/admin/dashboard", "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Confirm", func(t *testing.T) {
		s := newTestServer(t)
		_, alice := s.seedUser(t, "alice", domain.RoleRegular)
		_, admin := s.seedUser(t, "root", domain.RoleAdmin)
		tx := s.createTx(t, alice, "10")
		path := fmt.Sprintf("/admin/transactions/%d/confirm", tx.ID)

		w := s.do(t, http.MethodPost, path, admin, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		got, err := s.deps.Transactions.Get(context.Background(), tx.ID, nil)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusConfirmed, got.Status)

		w = s.do(t, http.MethodPost, path, admin, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		w = s.do(t, http.MethodPost, "/admin/transactions/9999/confirm", admin, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("List Filters And Caches", func(t *testing.T) {
		s := newTestServer(t)
		alice, aliceToken := s.seedUser(t, "alice", domain.RoleRegular)
		_, bobToken := s.seedUser(t, "bob", domain.RoleRegular)
		_, admin := s.seedUser(t, "root", domain.RoleAdmin)
		first := s.createTx(t, aliceToken, "10")
		s.createTx(t, aliceToken, "20")
		s.createTx(t, bobToken, "30")
		require.NoError(t, s.deps.Transactions.SetStatus(context.Background(), first.ID, domain.StatusConfirmed))

		w := s.do(t, http.MethodGet, "/admin/transactions", admin, nil)
		require.Equal(t, http.StatusOK, w.Code)
		page := decode[transactionPage](t, w)
		assert.EqualValues(t, 3, page.Total)
		assert.Equal(t, 1, page.TotalPages)
		assert.False(t, page.Cached)

		w = s.do(t, http.MethodGet, "/admin/transactions", admin, nil)
		assert.True(t, decode[transactionPage](t, w).Cached)

		w = s.do(t, http.MethodGet, fmt.Sprintf("/admin/transactions?user_id=%d&status=pending", alice.ID), admin, nil)
		require.Equal(t, http.StatusOK, w.Code)
		page = decode[transactionPage](t, w)
		require.Len(t, page.Transactions, 1)
		assert.True(t, page.Transactions[0].Amount.Equal(decimal.RequireFromString("20")))

		w = s.do(t, http.MethodGet, "/admin/transactions?page_size=2&page=2", admin, nil)
		require.Equal(t, http.StatusOK, w.Code)
		page = decode[transactionPage](t, w)
		assert.Len(t, page.Transactions, 1)
		assert.Equal(t, 2, page.TotalPages)

		// A new transaction invalidates cached listings
		s.createTx(t, bobToken, "40")
		w = s.do(t, http.MethodGet, "/admin/transactions", admin, nil)
		page = decode[transactionPage](t, w)
		assert.False(t, page.Cached)
		assert.EqualValues(t, 4, page.Total)

		for _, q := range []string{"status=bogus", "user_id=x", "from=yesterday"} {
			w = s.do(t, http.MethodGet, "/admin/transactions?"+q, admin, nil)
			assert.Equal(t, http.StatusBadRequest, w.Code, q)
		}
	})

	t.Run("Dashboard", func(t *testing.T) {
		s := newTestServer(t)
		_, alice := s.seedUser(t, "alice", domain.RoleRegular)
		_, admin := s.seedUser(t, "root", domain.RoleAdmin)
		s.createTx(t, alice, "10.25")
		s.createTx(t, alice, "5")

		w := s.do(t, http.MethodGet, "/admin/dashboard", admin, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		resp := decode[struct {
			Dashboard store.Dashboard `json:"dashboard"`
			Cached    bool            `json:"cached"`
		}](t, w)
		assert.False(t, resp.Cached)
		assert.EqualValues(t, 2, resp.Dashboard.UserCount)
		assert.EqualValues(t, 2, resp.Dashboard.TransactionCount)
		assert.True(t, resp.Dashboard.DailyTotal.Equal(decimal.RequireFromString("15.25")), resp.Dashboard.DailyTotal.String())
		assert.Len(t, resp.Dashboard.Recent, 2)
		assert.True(t, s.redis.Exists(utils.DashboardKey))
	})

	t.Run("Schedules", func(t *testing.T) {
		s := newTestServer(t)
		_, admin := s.seedUser(t, "root", domain.RoleAdmin)

		w := s.do(t, http.MethodPut, "/admin/schedules/check_expired_transactions", admin, map[string]any{"interval_seconds": 30})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		w = s.do(t, http.MethodPut, "/admin/schedules/check_expired_transactions", admin, map[string]any{"interval_seconds": 0})
		require.Equal(t, http.StatusOK, w.Code, "zero disables the job")

		w = s.do(t, http.MethodPut, "/admin/schedules/no_such_job", admin, map[string]any{"interval_seconds": 30})
		assert.Equal(t, http.StatusNotFound, w.Code, "unknown jobs get no schedule row")

		for _, body := range []map[string]any{{"interval_seconds": -5}, {"interval_seconds": 90000}, {}} {
			w = s.do(t, http.MethodPut, "/admin/schedules/check_expired_transactions", admin, body)
			assert.Equal(t, http.StatusBadRequest, w.Code, fmt.Sprint(body))
		}

		w = s.do(t, http.MethodGet, "/admin/schedules", admin, nil)
		require.Equal(t, http.StatusOK, w.Code)
		resp := decode[struct {
			Schedules []domain.TaskSchedule `json:"schedules"`
		}](t, w)
		require.Len(t, resp.Schedules, 1)
		assert.Equal(t, "check_expired_transactions", resp.Schedules[0].TaskName)
		assert.Equal(t, 0, resp.Schedules[0].IntervalSeconds)
	})

	t.Run("List Users", func(t *testing.T) {
		s := newTestServer(t)
		s.seedUser(t, "alice", domain.RoleRegular)
		s.seedUser(t, "bob", domain.RoleRegular)
		_, admin := s.seedUser(t, "root", domain.RoleAdmin)

		w := s.do(t, http.MethodGet, "/admin/users?page_size=2", admin, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		page := decode[userPage](t, w)
		assert.EqualValues(t, 3, page.Total)
		assert.Equal(t, 2, page.TotalPages)
		require.Len(t, page.Users, 2)
		assert.Equal(t, "alice", page.Users[0].Username)
		assert.NotContains(t, w.Body.String(), "password")
		assert.False(t, page.Cached)

		w = s.do(t, http.MethodGet, "/admin/users?page_size=2", admin, nil)
		assert.True(t, decode[userPage](t, w).Cached)

		// Registration invalidates cached listings
		w = s.do(t, http.MethodPost, "/user", "", map[string]any{"username": "carol", "password": "password123"})
		require.Equal(t, http.StatusCreated, w.Code)
		w = s.do(t, http.MethodGet, "/admin/users?page_size=2", admin, nil)
		page = decode[userPage](t, w)
		assert.False(t, page.Cached)
		assert.EqualValues(t, 4, page.Total)
	})

	t.Run("Update User", func(t *testing.T) {
		s := newTestServer(t)
		alice, aliceToken := s.seedUser(t, "alice", domain.RoleRegular)
		_, admin := s.seedUser(t, "root", domain.RoleAdmin)
		path := fmt.Sprintf("/admin/users/%d", alice.ID)

		// Warm the listing cache so the update has something to invalidate
		require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/admin/users", admin, nil).Code)

		w := s.do(t, http.MethodPatch, path, admin, map[string]any{
			"commission_rate": "0.01",
			"webhook_url":     "https://hooks.example.com/alice",
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		got, err := s.deps.Users.GetByID(context.Background(), alice.ID)
		require.NoError(t, err)
		assert.True(t, got.CommissionRate.Equal(decimal.RequireFromString("0.01")), got.CommissionRate.String())
		assert.Equal(t, "https://hooks.example.com/alice", got.Webhook())

		w = s.do(t, http.MethodGet, "/admin/users", admin, nil)
		page := decode[userPage](t, w)
		assert.False(t, page.Cached)
		require.Len(t, page.Users, 2)
		assert.Equal(t, "https://hooks.example.com/alice", page.Users[0].Webhook())

		// New transactions use the updated rate
		tx := s.createTx(t, aliceToken, "200")
		assert.True(t, tx.Commission.Equal(decimal.RequireFromString("2")), tx.Commission.String())

		w = s.do(t, http.MethodPatch, path, admin, map[string]any{"webhook_url": ""})
		require.Equal(t, http.StatusOK, w.Code)
		got, err = s.deps.Users.GetByID(context.Background(), alice.ID)
		require.NoError(t, err)
		assert.Nil(t, got.WebhookURL)

		for _, body := range []map[string]any{
			{},
			{"commission_rate": "-0.1"},
			{"commission_rate": "2"},
			{"webhook_url": "not a url"},
		} {
			w = s.do(t, http.MethodPatch, path, admin, body)
			assert.Equal(t, http.StatusBadRequest, w.Code, fmt.Sprint(body))
		}

		w = s.do(t, http.MethodPatch, "/admin/users/9999", admin, map[string]any{"commission_rate": "0.02"})
		assert.Equal(t, http.StatusNotFound, w.Code)
		w = s.do(t, http.MethodPatch, path, aliceToken, map[string]any{"commission_rate": "0"})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}
