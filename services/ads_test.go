package services

import (
	"context"
	"testing"
	"time"

	"hubcoin-ledger/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrantAdRewardCreditsBalanceAndCounters(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, models.Account{ID: "1", Balance: 5})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		res, err := env.engine.GrantAdReward(ctx, AdRewardRequest{UserID: "1"})
		require.NoError(t, err)
		assert.Equal(t, AdRewardResult{Currency: "balance", Reward: 15}, res)
	}

	acct := env.load(t, "1")
	assert.EqualValues(t, 35, acct.Balance)
	assert.EqualValues(t, 2, acct.AdWatch)
	assert.EqualValues(t, 2, acct.TotalAds)
	assert.EqualValues(t, 0, acct.Gems)
}

func TestGrantAdRewardInGems(t *testing.T) {
	env := newTestEnv(t)
	env.engine.ads.RewardCurrency = "gems"
	env.seed(t, models.Account{ID: "1"})

	_, err := env.engine.GrantAdReward(context.Background(), AdRewardRequest{UserID: "1"})
	require.NoError(t, err)

	acct := env.load(t, "1")
	assert.EqualValues(t, 15, acct.Gems)
	assert.EqualValues(t, 0, acct.Balance)
}

func TestGrantAdRewardDeduplicatesImpressions(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, models.Account{ID: "1"})
	ctx := context.Background()

	req := AdRewardRequest{UserID: "1", Provider: "adsgram", ImpressionID: "imp-1"}
	_, err := env.engine.GrantAdReward(ctx, req)
	require.NoError(t, err)

	_, err = env.engine.GrantAdReward(ctx, req)
	require.ErrorIs(t, err, ErrDuplicateImpression)

	// Another provider may reuse the same id.
	_, err = env.engine.GrantAdReward(ctx, AdRewardRequest{UserID: "1", Provider: "monetag", ImpressionID: "imp-1"})
	require.NoError(t, err)

	acct := env.load(t, "1")
	assert.EqualValues(t, 30, acct.Balance)
	assert.EqualValues(t, 2, acct.AdWatch)
}

func TestGrantAdRewardUnknownUserRecordsNothing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.engine.GrantAdReward(ctx, AdRewardRequest{UserID: "404", ImpressionID: "imp-9"})
	require.ErrorIs(t, err, ErrAccountNotFound)

	var count int64
	require.NoError(t, env.db.Model(&models.AdImpression{}).Count(&count).Error)
	assert.Zero(t, count)

	_, err = env.engine.GrantAdReward(ctx, AdRewardRequest{})
	require.ErrorIs(t, err, ErrInputInvalid)
}

func TestPruneAdImpressions(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, models.Account{ID: "1"})
	ctx := context.Background()

	_, err := env.engine.GrantAdReward(ctx, AdRewardRequest{UserID: "1", ImpressionID: "old"})
	require.NoError(t, err)
	env.clock.Advance(48 * time.Hour)
	_, err = env.engine.GrantAdReward(ctx, AdRewardRequest{UserID: "1", ImpressionID: "new"})
	require.NoError(t, err)

	n, err := env.engine.PruneAdImpressions(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	var left []models.AdImpression
	require.NoError(t, env.db.Find(&left).Error)
	require.Len(t, left, 1)
	assert.Equal(t, "new", left[0].ImpressionID)
}
