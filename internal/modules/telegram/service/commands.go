package service

import (
	"context"
	"fmt"
	"time"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	healthsvc "orb_bot/internal/modules/health/service"
	"orb_bot/pkg/logger"
)

// Listen — цикл команд оператора. Бот пассивный, команды только читают
// состояние; управления сессией из телеграма нет.
func (t *Telegram) Listen(ctx context.Context, state *healthsvc.State) {
	u := tgbot.NewUpdate(0)
	u.Timeout = 30

	updates := t.bot.GetUpdatesChan(u)
	for {
		select {
		case <-ctx.Done():
			t.bot.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			t.handleUpdate(ctx, update, state)
		}
	}
}

func (t *Telegram) handleUpdate(ctx context.Context, update tgbot.Update, state *healthsvc.State) {
	msg := update.Message
	if msg == nil || !msg.IsCommand() {
		return
	}
	// чужие чаты игнорируем
	if t.chatID != 0 && msg.Chat.ID != t.chatID {
		logger.Warn("telegram: command from foreign chat %d", msg.Chat.ID)
		return
	}

	switch msg.Command() {
	case "start", "status":
		t.SendService(ctx, "%s", statusText(state))
	default:
	}
}

func statusText(state *healthsvc.State) string {
	ws := "❌ отключен"
	if state.WSConnected() {
		ws = "✅ подключен"
	}
	lastTick := "—"
	if lt := state.LastTick(); !lt.IsZero() {
		lastTick = fmt.Sprintf("%s назад", time.Since(lt).Round(time.Second))
	}
	return fmt.Sprintf(
		"📊 Статус сессии\nWS: %s\nПоследний тик: %s\nПробоев: %d\nАптайм: %s",
		ws, lastTick, state.Breakouts(), state.Uptime().Round(time.Second))
}
