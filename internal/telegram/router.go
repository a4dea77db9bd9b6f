package telegram

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sprunkimylove-arch/timer-bot/internal/domain"
	"github.com/sprunkimylove-arch/timer-bot/internal/logger"
	"github.com/sprunkimylove-arch/timer-bot/internal/timer"
)

// Timers is the timer engine as seen by the router.
type Timers interface {
	Start(ctx context.Context, req timer.StartRequest) (domain.Timer, error)
	Stop(ctx context.Context, req timer.StopRequest) (domain.Timer, error)
}

// Subscriptions is the subscriber store as seen by the router.
type Subscriptions interface {
	Subscribe(ctx context.Context, chatID, userID int64) int
	Unsubscribe(ctx context.Context, chatID, userID int64) int
}

// Options tune router behavior.
type Options struct {
	CleanPinService bool // delete "message pinned" service messages
}

// Router wires Telegram updates to handlers.
type Router struct {
	api    API
	log    *zap.Logger
	timers Timers
	subs   Subscriptions
	opts   Options
}

// NewRouter creates a new Telegram router.
func NewRouter(api API, log *zap.Logger, timers Timers, subs Subscriptions, opts Options) *Router {
	return &Router{
		api:    api,
		log:    log,
		timers: timers,
		subs:   subs,
		opts:   opts,
	}
}

// HandleUpdate routes a single update to appropriate handler.
// Every update gets its own correlation id in the context logger.
func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	log := r.log.With(zap.String("corr", uuid.NewString()), zap.Int("updateID", upd.UpdateID))
	ctx = logger.WithContext(ctx, log)

	if upd.Message != nil {
		msg := upd.Message
		if msg.Chat == nil {
			return
		}
		if msg.PinnedMessage != nil {
			if r.opts.CleanPinService {
				r.deletePinService(ctx, msg)
			}
			return
		}
		if !msg.IsCommand() || msg.From == nil {
			return
		}

		switch msg.Command() {
		case "start", "timer":
			r.handleMenu(ctx, msg)
		case "notifyme", "subscribe":
			r.handleSubscribe(ctx, msg)
		case "mute", "unsubscribe":
			r.handleUnsubscribe(ctx, msg)
		case "cancel":
			r.handleCancel(ctx, msg)
		default:
			// Unknown commands are ignored.
		}
		return
	}

	if upd.CallbackQuery != nil {
		cb := upd.CallbackQuery
		if cb.Message == nil || cb.Message.Chat == nil || cb.From == nil {
			_ = r.answerCallback(cb.ID, "")
			return
		}

		switch data := cb.Data; {
		case data == domain.CallbackStop:
			r.handleStopButton(ctx, cb)
		case strings.HasPrefix(data, domain.CallbackPrefix):
			r.handleChoice(ctx, cb, data)
		default:
			_ = r.answerCallback(cb.ID, "")
		}
	}
}

func toUser(u *tgbotapi.User) domain.User {
	return domain.User{ID: u.ID, Username: u.UserName, FirstName: u.FirstName}
}
