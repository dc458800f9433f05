// services/vouchers.go
package services

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

type VoucherResult struct {
	Tier   string `json:"tier"`
	Reward int64  `json:"reward"`
}

// ClaimVoucher pays a daily referral milestone once per referral day.
func (e *RewardEngine) ClaimVoucher(ctx context.Context, userID, tier string) (VoucherResult, error) {
	res, err := e.claimVoucher(ctx, userID, tier)
	e.observe("claim_voucher", err)
	if err == nil {
		e.metrics.AddGranted("gems", "voucher", res.Reward)
	}
	return res, err
}

func (e *RewardEngine) claimVoucher(ctx context.Context, userID, tier string) (VoucherResult, error) {
	userID, err := requireUserID(userID)
	if err != nil {
		return VoucherResult{}, err
	}
	tier = strings.ToLower(strings.TrimSpace(tier))
	tierDef, ok := VoucherTiers[tier]
	if !ok {
		return VoucherResult{}, fmt.Errorf("%w %q", ErrUnknownTier, tier)
	}
	today := e.today()

	err = runInTx(ctx, e.db, func(tx *gorm.DB) error {
		acct, err := e.Accounts.GetForUpdate(tx, userID)
		if err != nil {
			return err
		}
		if acct.LastRefDate != today {
			return ErrNoReferralDataToday
		}
		if acct.DailyRefCount < tierDef.Threshold {
			return ErrThresholdNotMet
		}
		vouchers := EffectiveVouchers(acct.LastRefDate, acct.DailyVouchers, today)
		if vouchers[tier] {
			return ErrVoucherAlreadyClaimed
		}
		vouchers[tier] = true
		return e.Accounts.Apply(tx, userID, Mutation{
			Inc: Delta{"gems": tierDef.Reward},
			Set: map[string]any{"daily_vouchers": vouchers},
		})
	})
	if err != nil {
		return VoucherResult{}, err
	}
	e.log.WithField("user_id", userID).Infof("🎟️ voucher %s claimed, +%d gems", tier, tierDef.Reward)
	return VoucherResult{Tier: tier, Reward: tierDef.Reward}, nil
}
