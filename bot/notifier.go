package bot

import (
	"context"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Messenger sends text notifications and broadcast copies through the bot API.
// It satisfies services.Notifier and workers.MessageCopier.
type Messenger struct {
	API API
}

func (m Messenger) Notify(ctx context.Context, userID, text string) error {
	chatID, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chat id %q: %w", userID, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err = m.API.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

func (m Messenger) CopyMessage(ctx context.Context, toChatID, fromChatID int64, messageID int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := m.API.Request(tgbotapi.NewCopyMessage(toChatID, fromChatID, messageID))
	return err
}
