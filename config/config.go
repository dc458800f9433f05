// config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds runtime settings for the bot, the mini-app API and the reward engine.
type Config struct {
	Port        string `env:"PORT" envDefault:"3000"`
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`
	FrontendURL string `env:"FRONTEND_URL" envDefault:"http://localhost:5173"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	BotToken    string `env:"BOT_TOKEN"`
	AdminUserID int64  `env:"ADMIN_USER_ID"`
	ChannelURL  string `env:"CHANNEL_URL" envDefault:"https://t.me/HubCoin_miner"`
	GuideURL    string `env:"GUIDE_URL" envDefault:"https://youtube.com/@hubcoin_miner"`
	WelcomeImg  string `env:"WELCOME_IMAGE_URL" envDefault:"https://i.postimg.cc/J4YSvR0M/start-image.png"`

	Rewards RewardConfig
	Ads     AdConfig
	Partner PartnerConfig

	Timezone string         `env:"LEDGER_TIMEZONE"`
	Location *time.Location `env:"-"`

	MailingSessionTTL time.Duration `env:"MAILING_SESSION_TTL" envDefault:"30m"`
	R2                R2Config
}

// RewardConfig carries the tunable amounts of the accounting core.
type RewardConfig struct {
	WelcomeBonus         int64   `env:"WELCOME_BONUS" envDefault:"25"`
	ReferralBonus        int64   `env:"REFERRAL_BONUS" envDefault:"25"`
	ReferralGemBonus     int64   `env:"REFERRAL_GEM_BONUS" envDefault:"2"`
	DailyGemCap          int64   `env:"DAILY_GEM_CAP" envDefault:"6"`
	PocketMoneyThreshold float64 `env:"POCKET_MONEY_THRESHOLD" envDefault:"200"`
	PocketMoneyReward    int64   `env:"POCKET_MONEY_REWARD" envDefault:"10"`
}

// AdConfig controls the ad-network callback.
type AdConfig struct {
	RewardAmount     int64         `env:"AD_REWARD_AMOUNT" envDefault:"15"`
	RewardCurrency   string        `env:"AD_REWARD_CURRENCY" envDefault:"balance"` // "balance" or "gems"
	CallbackSecret   string        `env:"AD_CALLBACK_SECRET"`
	RatePerMinute    int           `env:"AD_RATE_PER_MINUTE" envDefault:"30"`
	ImpressionMaxAge time.Duration `env:"AD_IMPRESSION_RETENTION" envDefault:"720h"`
}

// PartnerConfig points at the external service used for task verification.
type PartnerConfig struct {
	BaseURL string        `env:"PARTNER_BASE_URL"`
	APIKey  string        `env:"PARTNER_API_KEY"`
	Timeout time.Duration `env:"PARTNER_TIMEOUT" envDefault:"10s"`
}

// R2Config is optional; avatar mirroring is disabled unless the bucket is set.
type R2Config struct {
	AccountID       string `env:"R2_ACCOUNT_ID"`
	AccessKeyID     string `env:"R2_ACCESS_KEY_ID"`
	AccessKeySecret string `env:"R2_ACCESS_KEY_SECRET"`
	Bucket          string `env:"R2_BUCKET_NAME"`
	CDNBaseURL      string `env:"CDN_BASE_URL"`
}

// Enabled reports whether enough R2 settings are present to upload objects.
func (c R2Config) Enabled() bool {
	return c.AccountID != "" && c.AccessKeyID != "" && c.AccessKeySecret != "" && c.Bucket != ""
}

// FromEnv loads configuration from environment variables. Call godotenv.Load
// first when a .env file should be honoured.
func FromEnv() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// normalize trims free-form values and checks the rules tags cannot express.
func (c *Config) normalize() error {
	c.DatabaseURL = strings.TrimSpace(c.DatabaseURL)
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	c.BotToken = strings.TrimSpace(c.BotToken)
	c.Ads.CallbackSecret = strings.TrimSpace(c.Ads.CallbackSecret)
	c.Partner.APIKey = strings.TrimSpace(c.Partner.APIKey)
	c.Partner.BaseURL = strings.TrimRight(strings.TrimSpace(c.Partner.BaseURL), "/")

	amounts := []struct {
		key string
		v   int64
	}{
		{"WELCOME_BONUS", c.Rewards.WelcomeBonus},
		{"REFERRAL_BONUS", c.Rewards.ReferralBonus},
		{"REFERRAL_GEM_BONUS", c.Rewards.ReferralGemBonus},
		{"DAILY_GEM_CAP", c.Rewards.DailyGemCap},
		{"POCKET_MONEY_REWARD", c.Rewards.PocketMoneyReward},
		{"AD_REWARD_AMOUNT", c.Ads.RewardAmount},
	}
	for _, a := range amounts {
		if a.v < 0 {
			return fmt.Errorf("%s must not be negative", a.key)
		}
	}

	c.Ads.RewardCurrency = strings.ToLower(strings.TrimSpace(c.Ads.RewardCurrency))
	if c.Ads.RewardCurrency != "balance" && c.Ads.RewardCurrency != "gems" {
		return fmt.Errorf("AD_REWARD_CURRENCY must be balance or gems, got %q", c.Ads.RewardCurrency)
	}

	durations := []struct {
		key string
		v   time.Duration
	}{
		{"AD_IMPRESSION_RETENTION", c.Ads.ImpressionMaxAge},
		{"PARTNER_TIMEOUT", c.Partner.Timeout},
		{"MAILING_SESSION_TTL", c.MailingSessionTTL},
	}
	for _, d := range durations {
		if d.v <= 0 {
			return fmt.Errorf("%s must be positive", d.key)
		}
	}

	c.Location = time.Local
	if tz := strings.TrimSpace(c.Timezone); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return fmt.Errorf("invalid LEDGER_TIMEZONE %q: %w", tz, err)
		}
		c.Location = loc
	}
	return nil
}
