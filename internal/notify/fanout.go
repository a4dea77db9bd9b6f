// Package notify delivers "timer started" alerts to a chat's subscribers.
package notify

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/sprunkimylove-arch/timer-bot/internal/domain"
	"github.com/sprunkimylove-arch/timer-bot/internal/metrics"
)

// BatchSize bounds the number of mentions per message.
const BatchSize = 15

// Sender is the part of the messaging API the fan-out needs.
type Sender interface {
	Send(ctx context.Context, chatID int64, text string) (int, error)
}

// FanOut mentions subscribers in bounded batches.
type FanOut struct {
	sender  Sender
	log     *zap.Logger
	metrics *metrics.Metrics
}

func New(sender Sender, log *zap.Logger, m *metrics.Metrics) *FanOut {
	return &FanOut{sender: sender, log: log, metrics: m}
}

// Batches splits ids into consecutive chunks of at most size elements,
// preserving order.
func Batches(ids []int64, size int) [][]int64 {
	if size <= 0 || len(ids) == 0 {
		return nil
	}
	out := make([][]int64, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		out = append(out, ids[start:end])
	}
	return out
}

// Announce sends one message per batch of subscribers, each headed by the
// mention of trigger. A failed batch is logged and the rest still go out.
// It returns the number of messages delivered.
func (f *FanOut) Announce(ctx context.Context, chatID int64, trigger domain.User, subscribers []int64) int {
	sent := 0
	for _, batch := range Batches(subscribers, BatchSize) {
		if _, err := f.sender.Send(ctx, chatID, Text(trigger, batch)); err != nil {
			f.log.Warn("subscriber alert not sent",
				zap.Error(err), zap.Int64("chatID", chatID), zap.Int("batch", len(batch)))
			continue
		}
		f.metrics.FanoutSent()
		sent++
	}
	return sent
}

// Text renders one batch message.
func Text(trigger domain.User, batch []int64) string {
	mentions := make([]string, len(batch))
	for i, id := range batch {
		mentions[i] = domain.MentionID(id, "")
	}
	return "🔔 Таймер запущен " + trigger.Mention() + " — оповещаю подписанных:\n" + strings.Join(mentions, " ")
}
