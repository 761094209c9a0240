package infra

import (
	"fmt"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"
)

// Telegram posts plain-text messages to one chat.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

func NewTelegram(token string, chatID int64) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	return &Telegram{bot: bot, chatID: chatID}, nil
}

func (t *Telegram) Enviar(texto string) error {
	msg := tgbotapi.NewMessage(t.chatID, texto)
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram: send: %w", err)
	}
	return nil
}
