// services/onboarding.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"hubcoin-ledger/config"
	"hubcoin-ledger/models"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"
)

// OnboardRequest is one /start event.
type OnboardRequest struct {
	UserID     string
	ReferrerID string
	Name       string
	Username   string
	PhotoURL   string
}

type OnboardResult struct {
	Created          bool
	ReferralCredited bool
	ReferrerID       string
}

// Onboard creates the account with its welcome bonus, or refreshes the
// profile of an existing one. A referrer is credited only when the account
// is new and the referrer exists at commit time.
func (e *RewardEngine) Onboard(ctx context.Context, req OnboardRequest) (OnboardResult, error) {
	res, err := e.onboard(ctx, req)
	e.observe("onboard", err)
	return res, err
}

func (e *RewardEngine) onboard(ctx context.Context, req OnboardRequest) (OnboardResult, error) {
	var res OnboardResult
	userID, err := requireUserID(req.UserID)
	if err != nil {
		return res, err
	}
	name := normalizeName(req.Name)
	referrerID := strings.TrimSpace(req.ReferrerID)
	if referrerID == userID {
		referrerID = ""
	}
	log := e.log.WithField("user_id", userID)
	today := e.today()

	err = runInTx(ctx, e.db, func(tx *gorm.DB) error {
		res = OnboardResult{}
		acct := &models.Account{
			ID:               userID,
			Name:             name,
			Username:         req.Username,
			PhotoURL:         req.PhotoURL,
			Balance:          e.rewards.WelcomeBonus,
			DailyVouchers:    models.NewVoucherFlags(),
			CompletedTasks:   models.StringSet{},
			VerificationData: models.JSONMap{},
		}
		if referrerID != "" {
			acct.ReferredBy = &referrerID
		}

		created, err := e.Accounts.CreateIfAbsent(tx, acct)
		if err != nil {
			return err
		}
		if !created {
			return e.Accounts.UpdateProfile(tx, userID, name, req.PhotoURL)
		}
		res.Created = true

		welcome := &models.Transaction{
			ID:          uuid.NewString(),
			UserID:      userID,
			Description: "Welcome Bonus",
			Amount:      e.rewards.WelcomeBonus,
			Type:        models.TransactionCredit,
		}
		if err := tx.Create(welcome).Error; err != nil {
			return fmt.Errorf("create welcome transaction: %w", err)
		}

		if referrerID == "" {
			return nil
		}
		// Savepoint: a failed referral must not cost the new user their account.
		err = tx.Transaction(func(sp *gorm.DB) error {
			return e.creditReferrer(sp, referrerID, today)
		})
		switch {
		case err == nil:
			res.ReferralCredited = true
			res.ReferrerID = referrerID
		case errors.Is(err, ErrAccountNotFound):
			log.WithField("referrer_id", referrerID).Info("ℹ️ referrer does not exist, no referral credited")
		default:
			log.WithError(err).WithField("referrer_id", referrerID).Warn("⚠️ referral credit failed")
		}
		return nil
	})
	if err != nil {
		return OnboardResult{}, err
	}

	if res.Created {
		log.Infof("✅ new account %s (%s)", userID, name)
		e.metrics.AddGranted("balance", "welcome", e.rewards.WelcomeBonus)
	}
	if res.ReferralCredited {
		e.metrics.AddGranted("balance", "referral", e.rewards.ReferralBonus)
		e.metrics.AddGranted("unclaimed_gems", "referral", e.rewards.ReferralGemBonus)
		e.Notices.Dispatch(referrerID, referralMessage(name, e.rewards))
	}
	return res, nil
}

// creditReferrer pays the referral bonus and advances the referrer's daily
// referral cycle. A new day restarts the count and clears voucher flags.
func (e *RewardEngine) creditReferrer(tx *gorm.DB, referrerID, today string) error {
	ref, err := e.Accounts.GetForUpdate(tx, referrerID)
	if err != nil {
		return err
	}
	count := EffectiveCounter(ref.LastRefDate, ref.DailyRefCount, today) + 1
	vouchers := EffectiveVouchers(ref.LastRefDate, ref.DailyVouchers, today)

	return e.Accounts.Apply(tx, referrerID, Mutation{
		Inc: Delta{
			"balance":        e.rewards.ReferralBonus,
			"unclaimed_gems": e.rewards.ReferralGemBonus,
			"refs":           1,
		},
		Set: map[string]any{
			"daily_ref_count": count,
			"last_ref_date":   today,
			"daily_vouchers":  vouchers,
		},
	})
}

func referralMessage(name string, r config.RewardConfig) string {
	if name == "" {
		name = "friend"
	}
	return fmt.Sprintf("🎉 Congratulations! A new user, %s, has joined using your link. You've earned %d TK and %d Gems!",
		name, r.ReferralBonus, r.ReferralGemBonus)
}

func normalizeName(name string) string {
	return strings.TrimSpace(norm.NFC.String(name))
}
