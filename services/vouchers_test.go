package services

import (
	"context"
	"testing"

	"hubcoin-ledger/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClaimVoucherV9(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seed(t, models.Account{ID: "1", LastRefDate: env.today(), DailyRefCount: 8})

	_, err := env.engine.ClaimVoucher(ctx, "1", "v9")
	require.ErrorIs(t, err, ErrThresholdNotMet)

	require.NoError(t, env.db.Model(&models.Account{}).Where("id = ?", "1").Update("daily_ref_count", 9).Error)

	res, err := env.engine.ClaimVoucher(ctx, "1", "v9")
	require.NoError(t, err)
	assert.Equal(t, VoucherResult{Tier: "v9", Reward: 10}, res)

	acct := env.load(t, "1")
	assert.True(t, acct.DailyVouchers[models.VoucherV9])
	assert.False(t, acct.DailyVouchers[models.VoucherV19])
	assert.EqualValues(t, 10, acct.Gems)

	_, err = env.engine.ClaimVoucher(ctx, "1", "v9")
	require.ErrorIs(t, err, ErrVoucherAlreadyClaimed)
	assert.EqualValues(t, 10, env.load(t, "1").Gems)
}

func TestClaimVoucherV19(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, models.Account{ID: "1", LastRefDate: env.today(), DailyRefCount: 19})

	res, err := env.engine.ClaimVoucher(context.Background(), "1", "V19")
	require.NoError(t, err)
	assert.EqualValues(t, 25, res.Reward)
	assert.EqualValues(t, 25, env.load(t, "1").Gems)
}

func TestClaimVoucherRequiresReferralsToday(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, models.Account{
		ID:            "1",
		LastRefDate:   env.yesterday(),
		DailyRefCount: 30,
		DailyVouchers: models.VoucherFlags{models.VoucherV9: true, models.VoucherV19: true},
	})

	_, err := env.engine.ClaimVoucher(context.Background(), "1", "v9")
	require.ErrorIs(t, err, ErrNoReferralDataToday)
}

func TestClaimVoucherIgnoresStaleFlags(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seed(t, models.Account{
		ID:            "1",
		LastRefDate:   env.yesterday(),
		DailyRefCount: 8,
		DailyVouchers: models.VoucherFlags{models.VoucherV9: true},
	})

	// One referral today moves the cycle forward and clears yesterday's flags.
	_, err := env.engine.Onboard(ctx, OnboardRequest{UserID: "2", ReferrerID: "1"})
	require.NoError(t, err)
	require.NoError(t, env.db.Model(&models.Account{}).Where("id = ?", "1").Update("daily_ref_count", 9).Error)

	_, err = env.engine.ClaimVoucher(ctx, "1", "v9")
	require.NoError(t, err)
}

func TestClaimVoucherInputErrors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.engine.ClaimVoucher(ctx, "1", "v50")
	require.ErrorIs(t, err, ErrUnknownTier)
	require.ErrorIs(t, err, ErrInputInvalid)

	_, err = env.engine.ClaimVoucher(ctx, "404", "v9")
	require.ErrorIs(t, err, ErrAccountNotFound)
}

func TestVoucherTiersMatchStoredFlags(t *testing.T) {
	flags := models.NewVoucherFlags()
	require.Len(t, VoucherTiers, len(flags))
	for tier := range VoucherTiers {
		_, ok := flags[tier]
		assert.True(t, ok, "tier %s has no stored flag", tier)
	}
}
