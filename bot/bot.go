// bot/bot.go
package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"hubcoin-ledger/services"
	"hubcoin-ledger/workers"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// API is the part of *tgbotapi.BotAPI the bot uses.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUserProfilePhotos(config tgbotapi.UserProfilePhotosConfig) (tgbotapi.UserProfilePhotos, error)
	GetFileDirectURL(fileID string) (string, error)
}

type Onboarder interface {
	Onboard(ctx context.Context, req services.OnboardRequest) (services.OnboardResult, error)
}

type Broadcaster interface {
	Broadcast(ctx context.Context, fromChatID int64, messageID int) (workers.BroadcastReport, error)
}

type AvatarMirror interface {
	Mirror(ctx context.Context, userID, handle, sourceURL string) (string, error)
}

// Options is the presentation config of the welcome message and the admin id.
type Options struct {
	AdminID       int64
	MiniAppURL    string
	ChannelURL    string
	GuideURL      string
	WelcomeImage  string
	AdReward      int64
	ReferralBonus int64
}

type Bot struct {
	api         API
	onboarder   Onboarder
	sessions    *services.MailingSessionStore
	broadcaster Broadcaster
	avatars     AvatarMirror
	opts        Options
	log         *logrus.Entry
	wg          sync.WaitGroup
}

func New(api API, onboarder Onboarder, sessions *services.MailingSessionStore, broadcaster Broadcaster, opts Options) *Bot {
	return &Bot{
		api:         api,
		onboarder:   onboarder,
		sessions:    sessions,
		broadcaster: broadcaster,
		opts:        opts,
		log:         logrus.WithField("component", "bot"),
	}
}

// WithAvatarMirror enables copying profile photos to object storage.
func (b *Bot) WithAvatarMirror(m AvatarMirror) *Bot {
	b.avatars = m
	return b
}

// Run handles updates until ctx ends or the channel closes. Each update runs
// on its own goroutine.
func (b *Bot) Run(ctx context.Context, updates <-chan tgbotapi.Update) {
	b.log.Info("🤖 bot polling started")
	for {
		select {
		case <-ctx.Done():
			b.log.Info("bot polling stopped")
			return
		case upd, ok := <-updates:
			if !ok {
				return
			}
			b.wg.Add(1)
			go func() {
				defer b.wg.Done()
				b.HandleUpdate(ctx, upd)
			}()
		}
	}
}

// Wait blocks until in-flight updates and broadcasts finish.
func (b *Bot) Wait() {
	b.wg.Wait()
}

func (b *Bot) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Errorf("❌ panic handling update %d: %v", upd.UpdateID, r)
		}
	}()

	switch {
	case upd.CallbackQuery != nil:
		b.handleCallback(ctx, upd.CallbackQuery)
	case upd.Message != nil && upd.Message.From != nil:
		msg := upd.Message
		if msg.IsCommand() {
			switch msg.Command() {
			case "start":
				b.handleStart(ctx, msg)
				return
			case "mailing":
				b.handleMailingCommand(ctx, msg)
				return
			}
		}
		b.handleAdminMessage(ctx, msg)
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	from := msg.From
	userID := strconv.FormatInt(from.ID, 10)
	log := b.log.WithField("user_id", userID)

	photoURL := b.resolvePhoto(ctx, from)
	res, err := b.onboarder.Onboard(ctx, services.OnboardRequest{
		UserID:     userID,
		ReferrerID: strings.TrimSpace(msg.CommandArguments()),
		Name:       from.FirstName,
		Username:   from.UserName,
		PhotoURL:   photoURL,
	})
	switch {
	case err != nil:
		log.WithError(err).Error("❌ onboarding failed, profile not updated")
	case res.Created:
		log.Infof("👋 new user %s joined", from.FirstName)
	}

	if err := b.sendWelcome(msg.Chat.ID, from.FirstName); err != nil {
		log.WithError(err).Warn("⚠️ failed to send welcome message")
	}
}

func (b *Bot) resolvePhoto(ctx context.Context, user *tgbotapi.User) string {
	userID := strconv.FormatInt(user.ID, 10)
	fallback := "https://i.pravatar.cc/150?u=" + userID

	photos, err := b.api.GetUserProfilePhotos(tgbotapi.NewUserProfilePhotos(user.ID))
	if err != nil {
		b.log.WithError(err).WithField("user_id", userID).Debug("could not fetch profile photos")
		return fallback
	}
	if photos.TotalCount == 0 || len(photos.Photos) == 0 || len(photos.Photos[0]) == 0 {
		return fallback
	}
	sizes := photos.Photos[0]
	largest := sizes[len(sizes)-1]
	url, err := b.api.GetFileDirectURL(largest.FileID)
	if err != nil || url == "" {
		return fallback
	}

	if b.avatars != nil {
		handle := user.UserName
		if handle == "" {
			handle = user.FirstName
		}
		mirrored, err := b.avatars.Mirror(ctx, userID, handle, url)
		if err != nil {
			b.log.WithError(err).WithField("user_id", userID).Warn("⚠️ avatar mirror failed, keeping telegram url")
			return url
		}
		return mirrored
	}
	return url
}

func (b *Bot) sendWelcome(chatID int64, firstName string) error {
	caption := fmt.Sprintf(`🌟 *Welcome to HubCoin, %s!*

Your journey to daily earnings starts now.

💰 *How to Earn:*
  - *Watch Ads:* Earn ৳%d for each ad.
  - *Refer Friends:* Get ৳%d for every referral.

💸 *Withdrawals:*
  - Easily cash out via bKash, Nagad, or Binance.`,
		tgbotapi.EscapeText(tgbotapi.ModeMarkdown, firstName), b.opts.AdReward, b.opts.ReferralBonus)

	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(b.opts.WelcomeImage))
	photo.Caption = caption
	photo.ParseMode = tgbotapi.ModeMarkdown
	photo.ReplyMarkup = b.welcomeKeyboard()
	_, err := b.api.Send(photo)
	return err
}

func (b *Bot) welcomeKeyboard() tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	if b.opts.MiniAppURL != "" {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL("🚀 Open Mini App", b.opts.MiniAppURL)))
	}
	if b.opts.ChannelURL != "" {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL("Join Channel", b.opts.ChannelURL)))
	}
	if b.opts.GuideURL != "" {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL("কিভাবে কাজ করবেন!", b.opts.GuideURL)))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func (b *Bot) reply(chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		b.log.WithError(err).WithField("chat_id", chatID).Warn("⚠️ failed to send reply")
	}
}
