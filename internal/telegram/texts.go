package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/sprunkimylove-arch/timer-bot/internal/domain"
)

// UI texts
const (
	menuText = "Выбери длительность. В конце пингую того, кто запустил❗️"

	subscribedFmt   = "🔔 Подписал тебя на оповещения. Подписчиков: %d"
	unsubscribedFmt = "🔕 Отключил тебе оповещения. Подписчиков осталось: %d"

	noTimerText        = "Сейчас активного таймера нет."
	timerGoneText      = "Таймер уже завершён или не найден."
	onlyOwnerText      = "Остановить может только тот, кто запускал таймер."
	alreadyRunningText = "Уже идёт таймер. Дождись окончания."
	stoppedAnswerText  = "Таймер остановлен."
	startFailedText    = "Не получилось запустить таймер, попробуй ещё раз."
	stopFailedText     = "Не получилось остановить таймер, попробуй ещё раз."
)

// durationKeyboard: 10 and 20 share a row, 30 gets a wide row of its own.
func durationKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🕐 10 мин", domain.CallbackData(10)),
			tgbotapi.NewInlineKeyboardButtonData("🕒 20 мин", domain.CallbackData(20)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⏱️ 30 мин", domain.CallbackData(30)),
		),
	)
}

func stopKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🛑 Стоп таймера", domain.CallbackStop),
		),
	)
}
