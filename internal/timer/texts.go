package timer

import (
	"fmt"

	"github.com/sprunkimylove-arch/timer-bot/internal/domain"
)

const (
	timesUpText = "⏰ Время вышло!"
	stoppedText = "🛑 Таймер остановлен."
)

// StatusText renders the countdown line of the status message.
func StatusText(remaining int) string {
	return fmt.Sprintf("⏳ Осталось: <b>%d</b> мин.", remaining)
}

func finishedText(owner domain.User) string {
	return "⏰ Время вышло, " + owner.Mention() + "!"
}

func endedText(owner domain.User) string {
	return "✅ Выплату окончил! " + owner.Mention()
}
