package telegram

import (
	"context"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/mock"

	"github.com/sprunkimylove-arch/timer-bot/internal/domain"
	"github.com/sprunkimylove-arch/timer-bot/internal/timer"
)

// fakeAPI records every Chattable it gets.
type fakeAPI struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	nextID   int
	sendErr  error
	reqErr   error
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	if f.sendErr != nil {
		return tgbotapi.Message{}, f.sendErr
	}
	f.nextID++
	return tgbotapi.Message{MessageID: f.nextID}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	if f.reqErr != nil {
		return nil, f.reqErr
	}
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) lastCallback() (tgbotapi.CallbackConfig, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.requests) - 1; i >= 0; i-- {
		if cb, ok := f.requests[i].(tgbotapi.CallbackConfig); ok {
			return cb, true
		}
	}
	return tgbotapi.CallbackConfig{}, false
}

func (f *fakeAPI) sentTexts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.sent {
		if m, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, m.Text)
		}
	}
	return out
}

type mockTimers struct{ mock.Mock }

func (m *mockTimers) Start(ctx context.Context, req timer.StartRequest) (domain.Timer, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(domain.Timer), args.Error(1)
}

func (m *mockTimers) Stop(ctx context.Context, req timer.StopRequest) (domain.Timer, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(domain.Timer), args.Error(1)
}

type mockSubs struct{ mock.Mock }

func (m *mockSubs) Subscribe(ctx context.Context, chatID, userID int64) int {
	return m.Called(ctx, chatID, userID).Int(0)
}

func (m *mockSubs) Unsubscribe(ctx context.Context, chatID, userID int64) int {
	return m.Called(ctx, chatID, userID).Int(0)
}

const testChat int64 = -1001

func commandUpdate(text string, from int64) tgbotapi.Update {
	n := len(text)
	for i, r := range text {
		if r == ' ' {
			n = i
			break
		}
	}
	return tgbotapi.Update{
		UpdateID: 1,
		Message: &tgbotapi.Message{
			MessageID: 10,
			From:      &tgbotapi.User{ID: from, UserName: "alice", FirstName: "Alice"},
			Chat:      &tgbotapi.Chat{ID: testChat},
			Text:      text,
			Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: n}},
		},
	}
}

func callbackUpdate(data string, from int64, messageID int) tgbotapi.Update {
	return tgbotapi.Update{
		UpdateID: 2,
		CallbackQuery: &tgbotapi.CallbackQuery{
			ID:   "cb-1",
			From: &tgbotapi.User{ID: from, UserName: "alice"},
			Data: data,
			Message: &tgbotapi.Message{
				MessageID: messageID,
				Chat:      &tgbotapi.Chat{ID: testChat},
			},
		},
	}
}
