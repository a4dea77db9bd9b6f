// Package timer implements the per-chat countdown: start, tick, stop and
// finish, with at most one running timer per chat.
package timer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sprunkimylove-arch/timer-bot/internal/domain"
	"github.com/sprunkimylove-arch/timer-bot/internal/logger"
	"github.com/sprunkimylove-arch/timer-bot/internal/metrics"
)

// Messenger is the chat API used by the engine. Status variants carry the
// stop button; HTML parse mode is assumed for all texts.
type Messenger interface {
	Send(ctx context.Context, chatID int64, text string) (int, error)
	SendStatus(ctx context.Context, chatID int64, text string) (int, error)
	EditStatus(ctx context.Context, chatID int64, messageID int, text string) error
	EditText(ctx context.Context, chatID int64, messageID int, text string) error
	Pin(ctx context.Context, chatID int64, messageID int) error
	Unpin(ctx context.Context, chatID int64, messageID int) error
}

// Scheduler registers and cancels named repeating callbacks.
type Scheduler interface {
	Schedule(name string, interval, first time.Duration, job func(ctx context.Context))
	Cancel(name string) int
}

// Subscribers lists the users to alert when a timer starts.
type Subscribers interface {
	List(chatID int64) []int64
}

// Announcer delivers the start alert to subscribers.
type Announcer interface {
	Announce(ctx context.Context, chatID int64, trigger domain.User, subscribers []int64) int
}

// Deps are the engine collaborators. Metrics may be nil.
type Deps struct {
	Messenger   Messenger
	Scheduler   Scheduler
	Subscribers Subscribers
	Announcer   Announcer
	Log         *zap.Logger
	Metrics     *metrics.Metrics
}

// Options tune engine behavior.
type Options struct {
	Pin      bool          // pin the status message
	Interval time.Duration // tick cadence, domain.TickInterval when zero
}

// StartRequest asks for a new countdown. MenuMessageID, when set, is the
// duration menu message that becomes the status message.
type StartRequest struct {
	ChatID        int64
	User          domain.User
	Minutes       int
	MenuMessageID int
}

// StopRequest asks to end a countdown early. MessageID is the message whose
// stop button was pressed, zero for the cancel command.
type StopRequest struct {
	ChatID    int64
	UserID    int64
	MessageID int
}

// Engine owns the timer table. Operations on one chat are serialized by a
// per-chat lock held across that chat's collaborator calls; chats never wait
// on each other.
type Engine struct {
	msg     Messenger
	sched   Scheduler
	subs    Subscribers
	fan     Announcer
	log     *zap.Logger
	metrics *metrics.Metrics
	opts    Options
	now     func() time.Time

	mu     sync.Mutex
	timers map[int64]domain.Timer
	locks  map[int64]*sync.Mutex
}

func New(deps Deps, opts Options) *Engine {
	if opts.Interval <= 0 {
		opts.Interval = domain.TickInterval
	}
	return &Engine{
		msg:     deps.Messenger,
		sched:   deps.Scheduler,
		subs:    deps.Subscribers,
		fan:     deps.Announcer,
		log:     deps.Log,
		metrics: deps.Metrics,
		opts:    opts,
		now:     time.Now,
		timers:  make(map[int64]domain.Timer),
		locks:   make(map[int64]*sync.Mutex),
	}
}

// Active returns a copy of the chat's running timer.
func (e *Engine) Active(chatID int64) (domain.Timer, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	t, ok := e.timers[chatID]
	return t, ok
}

// Count returns the number of running timers.
func (e *Engine) Count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.timers)
}

// Start creates the chat's timer. It fails with domain.ErrInvalidDuration for
// an unsupported length and domain.ErrTimerRunning when a timer already runs;
// neither changes state. A status message that cannot be created at all
// also leaves the chat idle.
func (e *Engine) Start(ctx context.Context, req StartRequest) (domain.Timer, error) {
	log := logger.FromContext(ctx, e.log).With(zap.Int64("chatID", req.ChatID), zap.Int64("userID", req.User.ID))

	if !domain.ValidDuration(req.Minutes) {
		e.metrics.Rejected(metrics.ReasonInvalid)
		return domain.Timer{}, fmt.Errorf("%w: %d", domain.ErrInvalidDuration, req.Minutes)
	}

	unlock := e.lockChat(req.ChatID)
	if cur, ok := e.Active(req.ChatID); ok {
		unlock()
		e.metrics.Rejected(metrics.ReasonRunning)
		return cur, domain.ErrTimerRunning
	}

	job := domain.JobName(req.ChatID)
	if n := e.sched.Cancel(job); n > 0 {
		log.Warn("stale countdown jobs removed", zap.Int("jobs", n))
	}

	text := StatusText(req.Minutes)
	msgID := 0
	if req.MenuMessageID != 0 {
		if err := e.msg.EditStatus(ctx, req.ChatID, req.MenuMessageID, text); err != nil {
			log.Debug("menu message not reused", zap.Error(err))
		} else {
			msgID = req.MenuMessageID
		}
	}
	if msgID == 0 {
		id, err := e.msg.SendStatus(ctx, req.ChatID, text)
		if err != nil {
			unlock()
			log.Error("status message not sent", zap.Error(err))
			return domain.Timer{}, fmt.Errorf("send status message: %w", err)
		}
		msgID = id
	}

	t := domain.Timer{
		ChatID:          req.ChatID,
		Owner:           req.User,
		StatusMessageID: msgID,
		Remaining:       req.Minutes,
		StartedAt:       e.now(),
	}
	if e.opts.Pin {
		if err := e.msg.Pin(ctx, req.ChatID, msgID); err != nil {
			log.Info("status message not pinned", zap.Error(err), zap.Int("messageID", msgID))
		} else {
			t.PinnedMessageID = msgID
		}
	}

	e.mu.Lock()
	e.timers[req.ChatID] = t
	e.mu.Unlock()

	chatID := req.ChatID
	e.sched.Schedule(job, e.opts.Interval, e.opts.Interval, func(ctx context.Context) {
		_ = e.HandleTick(ctx, chatID)
	})
	e.metrics.Started()
	unlock()

	log.Info("timer started", zap.Int("minutes", req.Minutes), zap.Int("messageID", msgID), zap.Bool("pinned", t.Pinned()))

	if subs := e.subs.List(req.ChatID); len(subs) > 0 {
		e.fan.Announce(ctx, req.ChatID, req.User, subs)
	}
	return t, nil
}

// HandleTick advances the chat's countdown by one minute. With no running
// timer, or when ctx was canceled by a stop, it does nothing and returns an
// error describing why.
func (e *Engine) HandleTick(ctx context.Context, chatID int64) error {
	unlock := e.lockChat(chatID)
	defer unlock()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("tick canceled: %w", err)
	}
	t, ok := e.Active(chatID)
	if !ok {
		return domain.ErrNoActiveTimer
	}
	log := logger.FromContext(ctx, e.log).With(zap.Int64("chatID", chatID), zap.Int("messageID", t.StatusMessageID))
	job := domain.JobName(chatID)

	t.Remaining--
	if t.Remaining > 0 {
		if err := e.msg.EditStatus(ctx, chatID, t.StatusMessageID, StatusText(t.Remaining)); err != nil {
			e.drop(chatID)
			e.sched.Cancel(job)
			e.metrics.Aborted()
			log.Warn("status edit failed, timer dropped", zap.Error(err), zap.Int("remaining", t.Remaining))
			return fmt.Errorf("edit status: %w", err)
		}
		e.mu.Lock()
		e.timers[chatID] = t
		e.mu.Unlock()
		return nil
	}

	if err := e.msg.EditText(ctx, chatID, t.StatusMessageID, timesUpText); err != nil {
		log.Debug("final status edit failed", zap.Error(err))
	}
	if t.Pinned() {
		if err := e.msg.Unpin(ctx, chatID, t.PinnedMessageID); err != nil {
			log.Info("unpin on finish failed", zap.Error(err))
		}
	}
	if _, err := e.msg.Send(ctx, chatID, finishedText(t.Owner)); err != nil {
		log.Error("completion notice not sent", zap.Error(err))
	}
	e.drop(chatID)
	e.sched.Cancel(job)
	e.metrics.Finished()
	log.Info("timer finished", zap.Int64("ownerID", t.Owner.ID), zap.Duration("elapsed", e.now().Sub(t.StartedAt)))
	return nil
}

// Stop ends the chat's timer early. Only the owner may stop it; a stop
// button on a message other than the current status message is treated as
// belonging to a finished timer.
func (e *Engine) Stop(ctx context.Context, req StopRequest) (domain.Timer, error) {
	unlock := e.lockChat(req.ChatID)
	defer unlock()

	t, ok := e.Active(req.ChatID)
	if !ok || (req.MessageID != 0 && req.MessageID != t.StatusMessageID) {
		e.metrics.Rejected(metrics.ReasonIdle)
		return domain.Timer{}, domain.ErrNoActiveTimer
	}
	if req.UserID != t.Owner.ID {
		e.metrics.Rejected(metrics.ReasonNotOwner)
		return t, domain.ErrNotOwner
	}

	e.sched.Cancel(domain.JobName(req.ChatID))
	e.drop(req.ChatID)
	e.metrics.Stopped()

	log := logger.FromContext(ctx, e.log).With(zap.Int64("chatID", req.ChatID), zap.Int("messageID", t.StatusMessageID))
	if t.Pinned() {
		if err := e.msg.Unpin(ctx, req.ChatID, t.PinnedMessageID); err != nil {
			log.Info("unpin on stop failed", zap.Error(err))
		}
	}
	if err := e.msg.EditText(ctx, req.ChatID, t.StatusMessageID, stoppedText); err != nil {
		log.Debug("stopped status edit failed", zap.Error(err))
	}
	if _, err := e.msg.Send(ctx, req.ChatID, endedText(t.Owner)); err != nil {
		log.Error("stop notice not sent", zap.Error(err))
	}
	log.Info("timer stopped", zap.Int("remaining", t.Remaining), zap.Duration("elapsed", e.now().Sub(t.StartedAt)))
	return t, nil
}

func (e *Engine) drop(chatID int64) {
	e.mu.Lock()
	delete(e.timers, chatID)
	e.mu.Unlock()
}

// lockChat takes the chat's lock and returns its release. Locks are kept for
// the process lifetime; there is one per chat that ever used the bot.
func (e *Engine) lockChat(chatID int64) func() {
	e.mu.Lock()
	l, ok := e.locks[chatID]
	if !ok {
		l = &sync.Mutex{}
		e.locks[chatID] = l
	}
	e.mu.Unlock()

	l.Lock()
	return l.Unlock
}
