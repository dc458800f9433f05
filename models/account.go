package models

import (
	"slices"
	"time"
)

// Voucher tiers unlocked by daily referral counts.
const (
	VoucherV9  = "v9"
	VoucherV19 = "v19"
)

// HumanVerificationTask is appended to CompletedTasks once a user passes verify-human.
const HumanVerificationTask = "human_verification"

// Account is one mini-app user, keyed by the Telegram user id.
// JSON names are the document field names the front end reads.
type Account struct {
	ID       string  `gorm:"primaryKey;size:32" json:"id"`
	Name     string  `json:"name"`
	Username string  `json:"username"`
	PhotoURL string  `gorm:"type:text" json:"photoUrl"`

	Balance        int64 `gorm:"not null;default:0" json:"balance"`
	Gems           int64 `gorm:"not null;default:0" json:"gems"`
	UnclaimedGems  int64 `gorm:"not null;default:0" json:"unclaimedGems"`
	Refs           int64 `gorm:"not null;default:0" json:"refs"`
	AdWatch        int64 `gorm:"not null;default:0" json:"adWatch"`
	TotalAds       int64 `gorm:"column:total_ads_watched;not null;default:0" json:"totalAdsWatched"`
	TodayIncome    int64 `gorm:"not null;default:0" json:"todayIncome"`
	TotalWithdrawn int64 `gorm:"not null;default:0" json:"totalWithdrawn"`

	// Claim cycle
	LastClaimDate    string `gorm:"size:10" json:"lastClaimDate"`
	ClaimedGemsToday int64  `gorm:"not null;default:0" json:"claimedGemsToday"`

	// Referral cycle
	LastRefDate   string       `gorm:"size:10" json:"lastRefDate"`
	DailyRefCount int64        `gorm:"not null;default:0" json:"dailyRefCount"`
	DailyVouchers VoucherFlags `gorm:"type:jsonb" json:"dailyVouchers"`

	ReferredBy       *string   `gorm:"index;size:32" json:"referredBy"`
	IsVerified       bool      `gorm:"not null;default:false" json:"isVerified"`
	VerificationData JSONMap   `gorm:"type:jsonb" json:"verificationData,omitempty"`
	CompletedTasks   StringSet `gorm:"type:jsonb" json:"completedTasks"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Account) TableName() string { return "users" }

// ApplyDefaults fills fields that older rows may not carry.
func (a *Account) ApplyDefaults() {
	if a.DailyVouchers == nil {
		a.DailyVouchers = NewVoucherFlags()
	}
	for _, tier := range []string{VoucherV9, VoucherV19} {
		if _, ok := a.DailyVouchers[tier]; !ok {
			a.DailyVouchers[tier] = false
		}
	}
	if a.CompletedTasks == nil {
		a.CompletedTasks = StringSet{}
	}
	if a.VerificationData == nil {
		a.VerificationData = JSONMap{}
	}
}

// HasCompleted reports whether taskID is already in CompletedTasks.
func (a *Account) HasCompleted(taskID string) bool {
	return slices.Contains(a.CompletedTasks, taskID)
}

// NewVoucherFlags returns a map with every tier unclaimed.
func NewVoucherFlags() VoucherFlags {
	return VoucherFlags{VoucherV9: false, VoucherV19: false}
}
