package domain

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

var (
	ErrInvalidDuration = errors.New("invalid duration")
	ErrTimerRunning    = errors.New("timer already running")
	ErrNotOwner        = errors.New("only the starter may stop the timer")
	ErrNoActiveTimer   = errors.New("no active timer")
)

// Durations lists the selectable timer lengths in minutes, in menu order.
var Durations = []int{10, 20, 30}

// TickInterval is the countdown cadence; the first tick fires one interval after start.
const TickInterval = time.Minute

// Callback payloads of the inline buttons.
const (
	CallbackPrefix = "timer_"
	CallbackStop   = CallbackPrefix + "stop"
)

// Timer is the per-chat countdown record. At most one exists per chat.
type Timer struct {
	ChatID          int64
	Owner           User
	StatusMessageID int
	PinnedMessageID int // 0 when pinning failed or is disabled
	Remaining       int // minutes, never negative
	StartedAt       time.Time
}

// Pinned reports whether the status message was pinned.
func (t Timer) Pinned() bool { return t.PinnedMessageID != 0 }

// ValidDuration reports whether minutes is one of Durations.
func ValidDuration(minutes int) bool {
	for _, d := range Durations {
		if d == minutes {
			return true
		}
	}
	return false
}

// CallbackData returns the button payload for a duration choice.
func CallbackData(minutes int) string {
	return CallbackPrefix + strconv.Itoa(minutes)
}

// ParseChoice parses a duration button payload like "timer_20". Only the
// exact payloads produced by CallbackData are accepted.
func ParseChoice(data string) (int, error) {
	for _, d := range Durations {
		if data == CallbackData(d) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, data)
}

// JobName is the scheduler key of a chat's countdown.
func JobName(chatID int64) string {
	return "timer_" + strconv.FormatInt(chatID, 10)
}
