package service

import (
	"context"
	"fmt"
	"log"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"orb_bot/internal/modules/config"
)

// Telegram — пассивный нотифайер: пробои, брекеты, проблемы сессии.
// Никаких подтверждений — движок полностью автоматический.
type Telegram struct {
	bot    *tgbot.BotAPI
	chatID int64
}

func NewTelegram(cfg *config.Config) (*Telegram, error) {
	b, err := tgbot.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return nil, err
	}
	return &Telegram{
		bot:    b,
		chatID: cfg.Telegram.ChatID,
	}, nil
}

func (t *Telegram) SendService(ctx context.Context, format string, args ...any) {
	if t == nil || t.bot == nil || t.chatID == 0 {
		return
	}
	_, _ = t.bot.Send(tgbot.NewMessage(t.chatID, fmt.Sprintf(format, args...)))
}

// Stdout — заглушка, когда токен не настроен: всё в лог.
type Stdout struct{}

func NewStdout() *Stdout { return &Stdout{} }

func (s *Stdout) SendService(ctx context.Context, format string, args ...any) {
	log.Printf(format, args...)
}
