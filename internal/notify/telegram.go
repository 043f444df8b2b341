package notify

import (
	"context"
	"fmt"
	"strconv"

	"resort/internal/domain"
	"resort/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramSender posts staff alerts. An empty recipient goes to the default chat.
type TelegramSender struct {
	bot         domain.TelegramSender
	defaultChat int64
}

func NewTelegramSender(bot domain.TelegramSender, defaultChat int64) *TelegramSender {
	return &TelegramSender{bot: bot, defaultChat: defaultChat}
}

// NewTelegramBot connects to the Bot API with the given token.
func NewTelegramBot(token string) (*tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return bot, nil
}

func (s *TelegramSender) chatID(recipient string) (int64, error) {
	if recipient == "" {
		if s.defaultChat == 0 {
			return 0, fmt.Errorf("no telegram chat configured")
		}
		return s.defaultChat, nil
	}
	id, err := strconv.ParseInt(recipient, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid telegram chat id %q: %w", recipient, err)
	}
	return id, nil
}

func (s *TelegramSender) Send(ctx context.Context, n *models.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	chatID, err := s.chatID(n.Recipient)
	if err != nil {
		return err
	}

	text := n.Body
	if n.Subject != "" {
		text = n.Subject + "\n\n" + n.Body
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true

	if _, err := s.bot.Send(msg); err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}
