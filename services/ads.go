// services/ads.go
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"hubcoin-ledger/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AdRewardRequest is one ad-network callback. ImpressionID is optional;
// when present the same (Provider, ImpressionID) pays only once.
type AdRewardRequest struct {
	UserID       string
	Provider     string
	ImpressionID string
}

type AdRewardResult struct {
	Currency string `json:"currency"`
	Reward   int64  `json:"reward"`
}

// GrantAdReward credits the per-ad reward and bumps the watch counters.
func (e *RewardEngine) GrantAdReward(ctx context.Context, req AdRewardRequest) (AdRewardResult, error) {
	res, err := e.grantAdReward(ctx, req)
	e.observe("ad_reward", err)
	if err == nil {
		e.metrics.AddGranted(res.Currency, "ad", res.Reward)
	}
	return res, err
}

func (e *RewardEngine) grantAdReward(ctx context.Context, req AdRewardRequest) (AdRewardResult, error) {
	userID, err := requireUserID(req.UserID)
	if err != nil {
		return AdRewardResult{}, err
	}
	provider := strings.ToLower(strings.TrimSpace(req.Provider))
	if provider == "" {
		provider = "adsgram"
	}
	impression := strings.TrimSpace(req.ImpressionID)
	res := AdRewardResult{Currency: e.ads.RewardCurrency, Reward: e.ads.RewardAmount}

	err = runInTx(ctx, e.db, func(tx *gorm.DB) error {
		if impression != "" {
			ins := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.AdImpression{
				ID:           uuid.NewString(),
				Provider:     provider,
				ImpressionID: impression,
				UserID:       userID,
				CreatedAt:    e.now(),
			})
			if ins.Error != nil {
				return ins.Error
			}
			if ins.RowsAffected == 0 {
				return ErrDuplicateImpression
			}
		}
		return e.Accounts.ApplyDelta(tx, userID, Delta{
			e.ads.RewardCurrency: e.ads.RewardAmount,
			"ad_watch":           1,
			"total_ads_watched":  1,
		})
	})
	log := e.log.WithField("user_id", userID)
	if err != nil {
		if errors.Is(err, ErrDuplicateImpression) {
			log.WithField("impression_id", impression).Warn("⚠️ ad impression replayed, nothing paid")
		}
		return AdRewardResult{}, err
	}
	log.Infof("📺 ad reward +%d %s (%s)", res.Reward, res.Currency, provider)
	return res, nil
}

// PruneAdImpressions deletes dedupe keys older than maxAge and reports how many went.
func (e *RewardEngine) PruneAdImpressions(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := e.now().Add(-maxAge)
	res := e.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&models.AdImpression{})
	return res.RowsAffected, res.Error
}
