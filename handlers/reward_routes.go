// handlers/reward_routes.go
package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"hubcoin-ledger/middleware"
	"hubcoin-ledger/services"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// FlexString accepts a JSON string or number. The mini-app sends Telegram ids
// as numbers from some screens and as strings from others.
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", string(b))
	}
	*f = FlexString(n.String())
	return nil
}

func (f FlexString) String() string { return string(f) }

// RewardHandler adapts HTTP requests to reward engine operations.
type RewardHandler struct {
	Engine *services.RewardEngine
	Log    *logrus.Entry
}

// RouteOptions carries the ad-callback guards.
type RouteOptions struct {
	CallbackSecret string
	AdLimiter      *middleware.RateLimiter
}

func SetupRewardRoutes(app *fiber.App, engine *services.RewardEngine, opts RouteOptions) {
	h := &RewardHandler{Engine: engine, Log: logrus.WithField("component", "http")}

	// 🎮 Mini-app endpoints
	app.Post("/claim-gems", h.ClaimGems)
	app.Post("/api/check-balance", h.CheckBalance)
	app.Post("/verify-pocket-money", h.VerifyPocketMoney)
	app.Post("/api/verify-human", h.VerifyHuman)
	app.Post("/api/claim-ref-voucher", h.ClaimRefVoucher)

	// 📺 Ad-network callbacks
	adGuards := []fiber.Handler{
		middleware.CallbackSecretMiddleware(opts.CallbackSecret),
		middleware.CallbackUserMiddleware(),
		opts.AdLimiter.Middleware(middleware.UserID),
	}
	app.Get("/api/adsgram-reward", append(adGuards, h.adReward("adsgram"))...)
	app.Get("/api/grant-reward-firestore", append(adGuards, h.adReward(""))...)
}

type userRequest struct {
	UserID FlexString `json:"userId"`
}

func (h *RewardHandler) ClaimGems(c *fiber.Ctx) error {
	var req userRequest
	if err := c.BodyParser(&req); err != nil || req.UserID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "User ID is required."})
	}

	res, err := h.Engine.ClaimGems(c.UserContext(), req.UserID.String())
	if err != nil {
		status := fiber.StatusBadRequest
		if services.KindOf(err) == services.KindInternal {
			status = fiber.StatusInternalServerError
			h.Log.WithError(err).WithField("user_id", req.UserID).Error("claim-gems failed")
		}
		return c.Status(status).JSON(fiber.Map{"message": claimMessage(err)})
	}

	return c.JSON(fiber.Map{
		"message":      fmt.Sprintf("Successfully claimed %d gems!", res.Claimed),
		"claimed":      res.Claimed,
		"claimedToday": res.ClaimedToday,
	})
}

func claimMessage(err error) string {
	switch {
	case errors.Is(err, services.ErrAccountNotFound):
		return "User not found."
	case errors.Is(err, services.ErrNoGemsAvailable):
		return "You have no gems to claim."
	case errors.Is(err, services.ErrDailyLimitReached):
		return "You have reached your daily claim limit."
	case errors.Is(err, services.ErrInputInvalid):
		return "User ID is required."
	default:
		return "Could not claim gems. Please try again."
	}
}

func (h *RewardHandler) adReward(provider string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := provider
		if p == "" {
			p = c.Query("provider", "adsgram")
		}
		impression := ""
		for _, key := range []string{"impressionid", "clickid", "token"} {
			if v := strings.TrimSpace(c.Query(key)); v != "" {
				impression = v
				break
			}
		}
		userID := middleware.UserID(c)

		res, err := h.Engine.GrantAdReward(c.UserContext(), services.AdRewardRequest{
			UserID:       userID,
			Provider:     p,
			ImpressionID: impression,
		})
		if err != nil {
			switch {
			case errors.Is(err, services.ErrAccountNotFound):
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"success": false, "message": "User not found."})
			case errors.Is(err, services.ErrDuplicateImpression):
				return c.Status(fiber.StatusConflict).JSON(fiber.Map{"success": false, "message": "Reward already granted for this ad."})
			case errors.Is(err, services.ErrInputInvalid):
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "User ID is required."})
			}
			h.Log.WithError(err).WithField("user_id", userID).Error("ad reward failed")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "message": "Internal server error."})
		}

		return c.JSON(fiber.Map{
			"success":  true,
			"reward":   res.Reward,
			"currency": res.Currency,
		})
	}
}

func (h *RewardHandler) CheckBalance(c *fiber.Ctx) error {
	var req userRequest
	if err := c.BodyParser(&req); err != nil || req.UserID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "User ID is required."})
	}

	view, err := h.Engine.CheckBalance(c.UserContext(), req.UserID.String())
	if err != nil {
		if errors.Is(err, services.ErrAccountNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"success": false, "message": "User not found."})
		}
		h.Log.WithError(err).WithField("user_id", req.UserID).Error("check-balance failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "message": "Internal server error."})
	}

	return c.JSON(fiber.Map{
		"success":       true,
		"balance":       view.Balance,
		"gems":          view.Gems,
		"unclaimedGems": view.UnclaimedGems,
	})
}

type taskRequest struct {
	UserID FlexString        `json:"userId"`
	TaskID string            `json:"taskId"`
	Extra  map[string]string `json:"payload"`
}

// VerifyPocketMoney reports business failures as 200 with success=false.
func (h *RewardHandler) VerifyPocketMoney(c *fiber.Ctx) error {
	var req taskRequest
	if err := c.BodyParser(&req); err != nil || req.UserID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "User ID and task ID are required."})
	}
	if req.TaskID == "" {
		req.TaskID = services.PocketMoneyTask
	}

	res, err := h.Engine.VerifyTask(c.UserContext(), req.UserID.String(), req.TaskID, req.Extra)
	if err != nil {
		var nq *services.NotQualifiedError
		switch {
		case errors.As(err, &nq):
			return c.JSON(fiber.Map{"success": false, "message": nq.UserMessage()})
		case errors.Is(err, services.ErrInputInvalid):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Unknown task."})
		case errors.Is(err, services.ErrAccountNotFound):
			return c.JSON(fiber.Map{"success": false, "message": "User not found."})
		case errors.Is(err, services.ErrVerificationUnavailable):
			return c.JSON(fiber.Map{"success": false, "message": "Could not verify your balance right now. Please try again later."})
		}
		h.Log.WithError(err).WithField("user_id", req.UserID).Error("verify-pocket-money failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "message": "Internal server error."})
	}

	if res.AlreadyCompleted {
		return c.JSON(fiber.Map{"success": true, "message": "You have already completed this task."})
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": fmt.Sprintf("Task verified! %d gems have been added to your account.", res.Granted),
		"reward":  res.Granted,
	})
}

type humanRequest struct {
	UserID   FlexString `json:"userId"`
	Name     string     `json:"name"`
	Age      FlexString `json:"age"`
	District string     `json:"district"`
}

func (h *RewardHandler) VerifyHuman(c *fiber.Ctx) error {
	var req humanRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "Invalid request body."})
	}

	err := h.Engine.VerifyHuman(c.UserContext(), services.HumanVerification{
		UserID:   req.UserID.String(),
		Name:     req.Name,
		Age:      req.Age.String(),
		District: req.District,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInputInvalid):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "All fields are required."})
		case errors.Is(err, services.ErrAlreadyVerified):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "You are already verified."})
		case errors.Is(err, services.ErrAccountNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"success": false, "message": "User not found."})
		}
		h.Log.WithError(err).WithField("user_id", req.UserID).Error("verify-human failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "message": "Internal server error."})
	}

	return c.JSON(fiber.Map{"success": true, "message": "Verification successful!"})
}

type voucherRequest struct {
	UserID      FlexString `json:"userId"`
	VoucherType string     `json:"voucherType"`
}

func (h *RewardHandler) ClaimRefVoucher(c *fiber.Ctx) error {
	var req voucherRequest
	if err := c.BodyParser(&req); err != nil || req.UserID == "" || req.VoucherType == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "User ID and voucher type are required."})
	}

	res, err := h.Engine.ClaimVoucher(c.UserContext(), req.UserID.String(), req.VoucherType)
	if err != nil {
		if services.KindOf(err) == services.KindInternal {
			h.Log.WithError(err).WithField("user_id", req.UserID).Error("claim-ref-voucher failed")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "message": "Internal server error."})
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": voucherMessage(err)})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": fmt.Sprintf("Voucher claimed! %d gems added.", res.Reward),
		"reward":  res.Reward,
	})
}

func voucherMessage(err error) string {
	switch {
	case errors.Is(err, services.ErrAccountNotFound):
		return "User not found."
	case errors.Is(err, services.ErrUnknownTier):
		return "Invalid voucher type."
	case errors.Is(err, services.ErrNoReferralDataToday):
		return "You have no referrals today."
	case errors.Is(err, services.ErrThresholdNotMet):
		return "You have not reached the required number of referrals today."
	case errors.Is(err, services.ErrVoucherAlreadyClaimed):
		return "You have already claimed this voucher today."
	default:
		return "Could not claim voucher."
	}
}
