// services/engine.go
package services

import (
	"fmt"
	"strings"
	"time"

	"hubcoin-ledger/config"
	"hubcoin-ledger/metrics"
	"hubcoin-ledger/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// PocketMoneyTask is the partner-balance task checked by /verify-pocket-money.
const PocketMoneyTask = "pocket_money"

// TaskDefinition describes a task verified against an external balance.
type TaskDefinition struct {
	ID        string
	Threshold float64
	Reward    int64
}

// VoucherTier is a daily referral milestone.
type VoucherTier struct {
	Threshold int64
	Reward    int64
}

// VoucherTiers are fixed: v9 pays 10 gems, v19 pays 25 gems.
var VoucherTiers = map[string]VoucherTier{
	models.VoucherV9:  {Threshold: 9, Reward: 10},
	models.VoucherV19: {Threshold: 19, Reward: 25},
}

// EngineConfig wires a RewardEngine.
type EngineConfig struct {
	DB       *gorm.DB
	Rewards  config.RewardConfig
	Ads      config.AdConfig
	Location *time.Location
	Partner  BalanceChecker
	Notifier Notifier
	Logger   *logrus.Logger
	Now      func() time.Time
}

// RewardEngine owns every balance-mutating operation. Each operation is one
// atomic unit; operations on the same account serialize on its row lock.
type RewardEngine struct {
	Accounts *AccountRepository
	Notices  *Dispatcher

	db      *gorm.DB
	rewards config.RewardConfig
	ads     config.AdConfig
	tasks   map[string]TaskDefinition
	partner BalanceChecker
	loc     *time.Location
	now     func() time.Time
	log     *logrus.Entry
	metrics *metrics.LedgerMetrics
}

func NewRewardEngine(cfg EngineConfig) *RewardEngine {
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	log := logger.WithField("component", "rewards")
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = LogNotifier{Log: log}
	}
	ads := cfg.Ads
	if ads.RewardCurrency == "" {
		ads.RewardCurrency = "balance"
	}

	return &RewardEngine{
		Accounts: NewAccountRepository(cfg.DB),
		Notices:  NewDispatcher(notifier, log),
		db:       cfg.DB,
		rewards:  cfg.Rewards,
		ads:      ads,
		tasks: map[string]TaskDefinition{
			PocketMoneyTask: {
				ID:        PocketMoneyTask,
				Threshold: cfg.Rewards.PocketMoneyThreshold,
				Reward:    cfg.Rewards.PocketMoneyReward,
			},
		},
		partner: cfg.Partner,
		loc:     loc,
		now:     now,
		log:     log,
		metrics: metrics.Ledger(),
	}
}

func (e *RewardEngine) today() string {
	return DateKey(e.now(), e.loc)
}

func (e *RewardEngine) observe(operation string, err error) {
	outcome := "success"
	if err != nil {
		outcome = KindOf(err).String()
	}
	e.metrics.ObserveOperation(operation, outcome)
}

func requireUserID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", fmt.Errorf("%w: user id is required", ErrInputInvalid)
	}
	return id, nil
}
