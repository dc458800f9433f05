// bot/mailing.go
package bot

import (
	"context"

	"hubcoin-ledger/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	callbackConfirmBroadcast = "confirm_broadcast"
	callbackCancelBroadcast  = "cancel_broadcast"
)

// Admin broadcast flow:
//
//	/mailing                      any state             -> awaiting_message
//	message                       awaiting_message      -> awaiting_confirmation
//	confirm_broadcast             awaiting_confirmation -> idle, then send
//	cancel_broadcast              any non-idle          -> idle

func (b *Bot) isAdmin(userID int64) bool {
	return b.opts.AdminID != 0 && userID == b.opts.AdminID
}

func (b *Bot) handleMailingCommand(ctx context.Context, msg *tgbotapi.Message) {
	if !b.isAdmin(msg.From.ID) {
		b.reply(msg.Chat.ID, "Sorry, you are not authorized to use this command.")
		return
	}
	err := b.sessions.Save(ctx, &models.MailingSession{
		AdminID: msg.From.ID,
		State:   models.MailingAwaitingMessage,
	})
	if err != nil {
		b.log.WithError(err).Error("❌ failed to start mailing session")
		b.reply(msg.Chat.ID, "Could not start mailing, please try again.")
		return
	}
	b.reply(msg.Chat.ID, "❇️ Send the message you want to broadcast to all users.")
}

// handleAdminMessage captures the broadcast content. Messages from anyone
// else, or from the admin outside the flow, are ignored.
func (b *Bot) handleAdminMessage(ctx context.Context, msg *tgbotapi.Message) {
	if !b.isAdmin(msg.From.ID) {
		return
	}
	sess, err := b.sessions.Get(ctx, msg.From.ID)
	if err != nil {
		b.log.WithError(err).Error("❌ failed to load mailing session")
		return
	}
	if sess.State != models.MailingAwaitingMessage {
		return
	}

	sess.State = models.MailingAwaitingConfirmation
	sess.SourceChatID = msg.Chat.ID
	sess.SourceMessageID = msg.MessageID
	if err := b.sessions.Save(ctx, sess); err != nil {
		b.log.WithError(err).Error("❌ failed to save mailing session")
		return
	}

	b.reply(msg.Chat.ID, "❇️ Please check the message below and confirm the broadcast...")
	if _, err := b.api.Request(tgbotapi.NewCopyMessage(msg.Chat.ID, msg.Chat.ID, msg.MessageID)); err != nil {
		b.log.WithError(err).Warn("⚠️ failed to echo broadcast preview")
	}

	confirm := tgbotapi.NewMessage(msg.Chat.ID, "Are you sure you want to send this to all users?")
	confirm.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("✅ Send", callbackConfirmBroadcast),
		tgbotapi.NewInlineKeyboardButtonData("❌ Cancel", callbackCancelBroadcast),
	))
	if _, err := b.api.Send(confirm); err != nil {
		b.log.WithError(err).Warn("⚠️ failed to send broadcast confirmation")
	}
}

func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if cq.From == nil || !b.isAdmin(cq.From.ID) {
		b.answer(cq, "Sorry, you are not authorized.")
		return
	}
	b.answer(cq, "")

	switch cq.Data {
	case callbackCancelBroadcast:
		_, ok, err := b.sessions.Transition(ctx, cq.From.ID,
			[]models.MailingState{models.MailingAwaitingMessage, models.MailingAwaitingConfirmation},
			models.MailingIdle)
		if err != nil {
			b.log.WithError(err).Error("❌ failed to cancel mailing")
			return
		}
		if !ok {
			b.edit(cq, "Nothing to cancel.")
			return
		}
		b.edit(cq, "Mailing cancelled.")

	case callbackConfirmBroadcast:
		// Leaving awaiting_confirmation before sending makes a second tap a no-op.
		prev, ok, err := b.sessions.Transition(ctx, cq.From.ID,
			[]models.MailingState{models.MailingAwaitingConfirmation},
			models.MailingIdle)
		if err != nil {
			b.log.WithError(err).Error("❌ failed to confirm mailing")
			return
		}
		if !ok || prev.SourceMessageID == 0 {
			b.edit(cq, "Something went wrong. Please start over with /mailing.")
			return
		}
		b.edit(cq, "Broadcast started... I will send you a report when finished.")

		adminChat := cq.From.ID
		if cq.Message != nil && cq.Message.Chat != nil {
			adminChat = cq.Message.Chat.ID
		}
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			b.runBroadcast(ctx, adminChat, prev.SourceChatID, prev.SourceMessageID)
		}()
	}
}

func (b *Bot) runBroadcast(ctx context.Context, adminChat, fromChatID int64, messageID int) {
	report, err := b.broadcaster.Broadcast(ctx, fromChatID, messageID)
	if err != nil {
		b.log.WithError(err).Error("❌ broadcast error")
		b.reply(adminChat, "An error occurred during the broadcast.\n"+report.String())
		return
	}
	if report.Success+report.Failure == 0 {
		b.reply(adminChat, "No users found in the database.")
		return
	}
	b.reply(adminChat, report.String())
}

func (b *Bot) answer(cq *tgbotapi.CallbackQuery, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(cq.ID, text)); err != nil {
		b.log.WithError(err).Debug("failed to answer callback")
	}
}

func (b *Bot) edit(cq *tgbotapi.CallbackQuery, text string) {
	if cq.Message == nil || cq.Message.Chat == nil {
		b.reply(cq.From.ID, text)
		return
	}
	edit := tgbotapi.NewEditMessageText(cq.Message.Chat.ID, cq.Message.MessageID, text)
	if _, err := b.api.Request(edit); err != nil {
		b.log.WithError(err).Warn("⚠️ failed to edit message")
	}
}
