package telegram

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/sprunkimylove-arch/timer-bot/internal/domain"
	"github.com/sprunkimylove-arch/timer-bot/internal/logger"
	"github.com/sprunkimylove-arch/timer-bot/internal/timer"
)

// --- Generic helpers ---

func (r *Router) reply(ctx context.Context, to *tgbotapi.Message, text string, markup any) {
	msg := tgbotapi.NewMessage(to.Chat.ID, text)
	msg.ReplyToMessageID = to.MessageID
	if markup != nil {
		msg.ReplyMarkup = markup
	}
	if _, err := r.api.Send(msg); err != nil {
		logger.FromContext(ctx, r.log).Warn("reply failed", zap.Error(err), zap.Int64("chatID", to.Chat.ID))
	}
}

func (r *Router) answerCallback(id, text string) error {
	_, err := r.api.Request(tgbotapi.NewCallback(id, text))
	return err
}

func (r *Router) alertCallback(id, text string) error {
	_, err := r.api.Request(tgbotapi.NewCallbackWithAlert(id, text))
	return err
}

// --- Commands ---

func (r *Router) handleMenu(ctx context.Context, msg *tgbotapi.Message) {
	r.reply(ctx, msg, menuText, durationKeyboard())
}

func (r *Router) handleSubscribe(ctx context.Context, msg *tgbotapi.Message) {
	n := r.subs.Subscribe(ctx, msg.Chat.ID, msg.From.ID)
	r.reply(ctx, msg, fmt.Sprintf(subscribedFmt, n), nil)
}

func (r *Router) handleUnsubscribe(ctx context.Context, msg *tgbotapi.Message) {
	n := r.subs.Unsubscribe(ctx, msg.Chat.ID, msg.From.ID)
	r.reply(ctx, msg, fmt.Sprintf(unsubscribedFmt, n), nil)
}

func (r *Router) handleCancel(ctx context.Context, msg *tgbotapi.Message) {
	_, err := r.timers.Stop(ctx, timer.StopRequest{ChatID: msg.Chat.ID, UserID: msg.From.ID})
	switch {
	case err == nil:
		// the engine posts the "ended" notice itself
	case errors.Is(err, domain.ErrNoActiveTimer):
		r.reply(ctx, msg, noTimerText, nil)
	case errors.Is(err, domain.ErrNotOwner):
		r.reply(ctx, msg, onlyOwnerText, nil)
	default:
		logger.FromContext(ctx, r.log).Error("cancel failed", zap.Error(err), zap.Int64("chatID", msg.Chat.ID))
		r.reply(ctx, msg, stopFailedText, nil)
	}
}

// --- Buttons ---

func (r *Router) handleChoice(ctx context.Context, cb *tgbotapi.CallbackQuery, data string) {
	minutes, err := domain.ParseChoice(data)
	if err != nil {
		// unsupported durations are ignored
		_ = r.answerCallback(cb.ID, "")
		return
	}

	_, err = r.timers.Start(ctx, timer.StartRequest{
		ChatID:        cb.Message.Chat.ID,
		User:          toUser(cb.From),
		Minutes:       minutes,
		MenuMessageID: cb.Message.MessageID,
	})
	switch {
	case err == nil, errors.Is(err, domain.ErrInvalidDuration):
		_ = r.answerCallback(cb.ID, "")
	case errors.Is(err, domain.ErrTimerRunning):
		_ = r.alertCallback(cb.ID, alreadyRunningText)
	default:
		logger.FromContext(ctx, r.log).Error("start failed", zap.Error(err), zap.Int64("chatID", cb.Message.Chat.ID))
		_ = r.alertCallback(cb.ID, startFailedText)
	}
}

func (r *Router) handleStopButton(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	_, err := r.timers.Stop(ctx, timer.StopRequest{
		ChatID:    cb.Message.Chat.ID,
		UserID:    cb.From.ID,
		MessageID: cb.Message.MessageID,
	})
	switch {
	case err == nil:
		_ = r.answerCallback(cb.ID, stoppedAnswerText)
	case errors.Is(err, domain.ErrNoActiveTimer):
		_ = r.alertCallback(cb.ID, timerGoneText)
	case errors.Is(err, domain.ErrNotOwner):
		_ = r.alertCallback(cb.ID, onlyOwnerText)
	default:
		logger.FromContext(ctx, r.log).Error("stop failed", zap.Error(err), zap.Int64("chatID", cb.Message.Chat.ID))
		_ = r.alertCallback(cb.ID, stopFailedText)
	}
}

// --- Service messages ---

func (r *Router) deletePinService(ctx context.Context, msg *tgbotapi.Message) {
	if _, err := r.api.Request(tgbotapi.NewDeleteMessage(msg.Chat.ID, msg.MessageID)); err != nil {
		logger.FromContext(ctx, r.log).Info("pin service message not deleted", zap.Error(err), zap.Int64("chatID", msg.Chat.ID))
	}
}
