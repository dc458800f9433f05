// services/gems.go
package services

import (
	"context"

	"gorm.io/gorm"
)

type ClaimResult struct {
	Claimed      int64 `json:"claimed"`
	ClaimedToday int64 `json:"claimedToday"`
}

// ClaimGems moves unclaimed gems to gems, at most DailyGemCap per day.
// The account row stays locked from the cap check to the write.
func (e *RewardEngine) ClaimGems(ctx context.Context, userID string) (ClaimResult, error) {
	res, err := e.claimGems(ctx, userID)
	e.observe("claim_gems", err)
	if err == nil {
		e.metrics.AddGranted("gems", "claim", res.Claimed)
	}
	return res, err
}

func (e *RewardEngine) claimGems(ctx context.Context, userID string) (ClaimResult, error) {
	var res ClaimResult
	userID, err := requireUserID(userID)
	if err != nil {
		return res, err
	}
	today := e.today()
	dailyCap := e.rewards.DailyGemCap

	err = runInTx(ctx, e.db, func(tx *gorm.DB) error {
		acct, err := e.Accounts.GetForUpdate(tx, userID)
		if err != nil {
			return err
		}
		if acct.UnclaimedGems <= 0 {
			return ErrNoGemsAvailable
		}
		claimed := EffectiveCounter(acct.LastClaimDate, acct.ClaimedGemsToday, today)
		if claimed >= dailyCap {
			return ErrDailyLimitReached
		}

		toClaim := min(acct.UnclaimedGems, dailyCap-claimed)
		res = ClaimResult{Claimed: toClaim, ClaimedToday: claimed + toClaim}
		return e.Accounts.Apply(tx, userID, Mutation{
			Inc: Delta{"unclaimed_gems": -toClaim, "gems": toClaim},
			Set: map[string]any{
				"claimed_gems_today": res.ClaimedToday,
				"last_claim_date":    today,
			},
		})
	})
	if err != nil {
		return ClaimResult{}, err
	}
	e.log.WithField("user_id", userID).Infof("💎 claimed %d gems (%d today)", res.Claimed, res.ClaimedToday)
	return res, nil
}
