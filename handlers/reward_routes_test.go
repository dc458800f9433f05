package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"hubcoin-ledger/config"
	"hubcoin-ledger/middleware"
	"hubcoin-ledger/models"
	"hubcoin-ledger/services"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixedPartner struct{ balance float64 }

func (p fixedPartner) Balance(context.Context, string, map[string]string) (float64, error) {
	return p.balance, nil
}

var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func setupApp(t *testing.T, opts RouteOptions, partnerBalance float64) (*fiber.App, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, models.AutoMigrate(db))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	engine := services.NewRewardEngine(services.EngineConfig{
		DB: db,
		Rewards: config.RewardConfig{
			WelcomeBonus: 25, ReferralBonus: 25, ReferralGemBonus: 2, DailyGemCap: 6,
			PocketMoneyThreshold: 200, PocketMoneyReward: 10,
		},
		Ads:      config.AdConfig{RewardAmount: 15, RewardCurrency: "balance"},
		Location: time.UTC,
		Partner:  fixedPartner{balance: partnerBalance},
		Logger:   logger,
		Now:      func() time.Time { return fixedNow },
	})

	app := fiber.New()
	SetupRewardRoutes(app, engine, opts)
	SetupOpsRoutes(app, db)
	return app, db
}

func seedAccount(t *testing.T, db *gorm.DB, acct models.Account) {
	t.Helper()
	acct.DailyVouchers = models.NewVoucherFlags()
	require.NoError(t, db.Create(&acct).Error)
}

func doJSON(t *testing.T, app *fiber.App, method, path, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func TestClaimGemsRoute(t *testing.T) {
	app, db := setupApp(t, RouteOptions{}, 0)
	seedAccount(t, db, models.Account{ID: "1", UnclaimedGems: 10})

	status, body := doJSON(t, app, http.MethodPost, "/claim-gems", `{"userId": 1}`)
	assert.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 6, body["claimed"])
	assert.Contains(t, body["message"], "6 gems")

	status, body = doJSON(t, app, http.MethodPost, "/claim-gems", `{"userId": "1"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body["message"], "daily claim limit")

	status, body = doJSON(t, app, http.MethodPost, "/claim-gems", `{"userId": "2"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "User not found.", body["message"])

	status, _ = doJSON(t, app, http.MethodPost, "/claim-gems", `{}`)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestAdRewardRoutes(t *testing.T) {
	app, db := setupApp(t, RouteOptions{}, 0)
	seedAccount(t, db, models.Account{ID: "1"})

	status, body := doJSON(t, app, http.MethodGet, "/api/adsgram-reward?userid=1", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])
	assert.EqualValues(t, 15, body["reward"])

	status, _ = doJSON(t, app, http.MethodGet, "/api/grant-reward-firestore?userId=1&clickid=c-1", "")
	assert.Equal(t, http.StatusOK, status)
	status, _ = doJSON(t, app, http.MethodGet, "/api/grant-reward-firestore?userId=1&clickid=c-1", "")
	assert.Equal(t, http.StatusConflict, status)

	status, _ = doJSON(t, app, http.MethodGet, "/api/adsgram-reward", "")
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = doJSON(t, app, http.MethodGet, "/api/adsgram-reward?userid=404", "")
	assert.Equal(t, http.StatusNotFound, status)

	var acct models.Account
	require.NoError(t, db.First(&acct, "id = ?", "1").Error)
	assert.EqualValues(t, 30, acct.Balance)
	assert.EqualValues(t, 2, acct.AdWatch)
}

func TestAdRewardRouteGuards(t *testing.T) {
	limiter := middleware.NewRateLimiter(1, 1)
	app, db := setupApp(t, RouteOptions{CallbackSecret: "s3cret", AdLimiter: limiter}, 0)
	seedAccount(t, db, models.Account{ID: "1"})

	status, _ := doJSON(t, app, http.MethodGet, "/api/adsgram-reward?userid=1", "")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = doJSON(t, app, http.MethodGet, "/api/adsgram-reward?userid=1&secret=wrong", "")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = doJSON(t, app, http.MethodGet, "/api/adsgram-reward?userid=1&secret=s3cret", "")
	assert.Equal(t, http.StatusOK, status)

	status, _ = doJSON(t, app, http.MethodGet, "/api/adsgram-reward?userid=1&secret=s3cret", "")
	assert.Equal(t, http.StatusTooManyRequests, status)
}

func TestCheckBalanceRoute(t *testing.T) {
	app, db := setupApp(t, RouteOptions{}, 0)
	seedAccount(t, db, models.Account{ID: "1", Balance: 40, Gems: 2, UnclaimedGems: 1})

	status, body := doJSON(t, app, http.MethodPost, "/api/check-balance", `{"userId":"1"}`)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])
	assert.EqualValues(t, 40, body["balance"])
	assert.EqualValues(t, 2, body["gems"])

	status, _ = doJSON(t, app, http.MethodPost, "/api/check-balance", `{"userId":"9"}`)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestVerifyPocketMoneyRoute(t *testing.T) {
	t.Run("not qualified is a 200", func(t *testing.T) {
		app, db := setupApp(t, RouteOptions{}, 150)
		seedAccount(t, db, models.Account{ID: "1"})

		status, body := doJSON(t, app, http.MethodPost, "/verify-pocket-money", `{"userId":"1","taskId":"pocket_money"}`)
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, false, body["success"])
		assert.Contains(t, body["message"], "150")
		assert.Contains(t, body["message"], "200")
	})

	t.Run("qualified pays once", func(t *testing.T) {
		app, db := setupApp(t, RouteOptions{}, 250)
		seedAccount(t, db, models.Account{ID: "1"})

		status, body := doJSON(t, app, http.MethodPost, "/verify-pocket-money", `{"userId":"1","taskId":"pocket_money"}`)
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, true, body["success"])
		assert.EqualValues(t, 10, body["reward"])

		status, body = doJSON(t, app, http.MethodPost, "/verify-pocket-money", `{"userId":"1","taskId":"pocket_money"}`)
		assert.Equal(t, http.StatusOK, status)
		assert.Contains(t, body["message"], "already completed")

		var acct models.Account
		require.NoError(t, db.First(&acct, "id = ?", "1").Error)
		assert.EqualValues(t, 10, acct.Gems)
	})

	t.Run("unknown user is a 200", func(t *testing.T) {
		app, _ := setupApp(t, RouteOptions{}, 250)

		status, body := doJSON(t, app, http.MethodPost, "/verify-pocket-money", `{"userId":"404","taskId":"pocket_money"}`)
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, false, body["success"])
		assert.Equal(t, "User not found.", body["message"])
	})

	t.Run("missing fields", func(t *testing.T) {
		app, _ := setupApp(t, RouteOptions{}, 250)
		status, _ := doJSON(t, app, http.MethodPost, "/verify-pocket-money", `{"taskId":"pocket_money"}`)
		assert.Equal(t, http.StatusBadRequest, status)
	})
}

func TestVerifyHumanRoute(t *testing.T) {
	app, db := setupApp(t, RouteOptions{}, 0)
	seedAccount(t, db, models.Account{ID: "1"})

	status, _ := doJSON(t, app, http.MethodPost, "/api/verify-human", `{"userId":"1","name":"Rahim"}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, body := doJSON(t, app, http.MethodPost, "/api/verify-human", `{"userId":"1","name":"Rahim","age":24,"district":"Dhaka"}`)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])

	status, body = doJSON(t, app, http.MethodPost, "/api/verify-human", `{"userId":"1","name":"Rahim","age":"24","district":"Dhaka"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, false, body["success"])
}

func TestClaimRefVoucherRoute(t *testing.T) {
	app, db := setupApp(t, RouteOptions{}, 0)
	seedAccount(t, db, models.Account{ID: "1", LastRefDate: services.DateKey(fixedNow, time.UTC), DailyRefCount: 9})

	status, body := doJSON(t, app, http.MethodPost, "/api/claim-ref-voucher", `{"userId":"1","voucherType":"v19"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, false, body["success"])

	status, body = doJSON(t, app, http.MethodPost, "/api/claim-ref-voucher", `{"userId":"1","voucherType":"v9"}`)
	assert.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 10, body["reward"])

	status, body = doJSON(t, app, http.MethodPost, "/api/claim-ref-voucher", `{"userId":"1","voucherType":"v9"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body["message"], "already claimed")
}

func TestHealthz(t *testing.T) {
	app, _ := setupApp(t, RouteOptions{}, 0)
	status, body := doJSON(t, app, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}

func TestFlexString(t *testing.T) {
	var req userRequest
	require.NoError(t, json.Unmarshal([]byte(`{"userId": 123456789012}`), &req))
	assert.Equal(t, "123456789012", req.UserID.String())
	require.NoError(t, json.Unmarshal([]byte(`{"userId": " 42 "}`), &req))
	assert.Equal(t, "42", req.UserID.String())
	require.Error(t, json.Unmarshal([]byte(`{"userId": true}`), &req))
}
