package telegram

import (
	"context"
	"errors"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sprunkimylove-arch/timer-bot/internal/domain"
	"github.com/sprunkimylove-arch/timer-bot/internal/timer"
)

type routerHarness struct {
	r      *Router
	api    *fakeAPI
	timers *mockTimers
	subs   *mockSubs
}

func newRouterHarness(opts Options) *routerHarness {
	api := &fakeAPI{}
	timers := &mockTimers{}
	subs := &mockSubs{}
	return &routerHarness{
		r:      NewRouter(api, zap.NewNop(), timers, subs, opts),
		api:    api,
		timers: timers,
		subs:   subs,
	}
}

func TestStartCommand_ShowsDurationMenu(t *testing.T) {
	h := newRouterHarness(Options{})
	h.r.HandleUpdate(context.Background(), commandUpdate("/start", 7))

	require.Len(t, h.api.sent, 1)
	msg := h.api.sent[0].(tgbotapi.MessageConfig)
	assert.Equal(t, menuText, msg.Text)
	assert.Equal(t, 10, msg.ReplyToMessageID)

	kb, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	require.Len(t, kb.InlineKeyboard, 2)
	assert.Equal(t, "timer_10", *kb.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, "timer_20", *kb.InlineKeyboard[0][1].CallbackData)
	assert.Equal(t, "timer_30", *kb.InlineKeyboard[1][0].CallbackData)
}

func TestCommandWithBotSuffix(t *testing.T) {
	h := newRouterHarness(Options{})
	h.r.HandleUpdate(context.Background(), commandUpdate("/timer@countdown_bot", 7))
	assert.Equal(t, []string{menuText}, h.api.sentTexts())
}

func TestSubscribeCommands(t *testing.T) {
	h := newRouterHarness(Options{})
	h.subs.On("Subscribe", mock.Anything, testChat, int64(7)).Return(3)
	h.subs.On("Unsubscribe", mock.Anything, testChat, int64(7)).Return(2)

	h.r.HandleUpdate(context.Background(), commandUpdate("/notifyme", 7))
	h.r.HandleUpdate(context.Background(), commandUpdate("/mute", 7))
	h.r.HandleUpdate(context.Background(), commandUpdate("/subscribe", 7))
	h.r.HandleUpdate(context.Background(), commandUpdate("/unsubscribe", 7))

	assert.Equal(t, []string{
		"🔔 Подписал тебя на оповещения. Подписчиков: 3",
		"🔕 Отключил тебе оповещения. Подписчиков осталось: 2",
		"🔔 Подписал тебя на оповещения. Подписчиков: 3",
		"🔕 Отключил тебе оповещения. Подписчиков осталось: 2",
	}, h.api.sentTexts())
	h.subs.AssertNumberOfCalls(t, "Subscribe", 2)
	h.subs.AssertNumberOfCalls(t, "Unsubscribe", 2)
}

func TestCancelCommand(t *testing.T) {
	cases := []struct {
		name  string
		err   error
		texts []string
	}{
		{"success", nil, nil},
		{"idle", domain.ErrNoActiveTimer, []string{noTimerText}},
		{"not owner", domain.ErrNotOwner, []string{onlyOwnerText}},
		{"other", errors.New("boom"), []string{stopFailedText}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			h := newRouterHarness(Options{})
			h.timers.On("Stop", mock.Anything, timer.StopRequest{ChatID: testChat, UserID: 7}).
				Return(domain.Timer{}, c.err).Once()

			h.r.HandleUpdate(context.Background(), commandUpdate("/cancel", 7))

			assert.Equal(t, c.texts, h.api.sentTexts())
			h.timers.AssertExpectations(t)
		})
	}
}

func TestChoiceButton_StartsTimer(t *testing.T) {
	h := newRouterHarness(Options{})
	want := timer.StartRequest{
		ChatID:        testChat,
		User:          domain.User{ID: 7, Username: "alice"},
		Minutes:       20,
		MenuMessageID: 33,
	}
	h.timers.On("Start", mock.Anything, want).Return(domain.Timer{}, nil).Once()

	h.r.HandleUpdate(context.Background(), callbackUpdate("timer_20", 7, 33))

	h.timers.AssertExpectations(t)
	cb, ok := h.api.lastCallback()
	require.True(t, ok)
	assert.Equal(t, "cb-1", cb.CallbackQueryID)
	assert.False(t, cb.ShowAlert)
}

func TestChoiceButton_AlreadyRunning(t *testing.T) {
	h := newRouterHarness(Options{})
	h.timers.On("Start", mock.Anything, mock.Anything).Return(domain.Timer{}, domain.ErrTimerRunning)

	h.r.HandleUpdate(context.Background(), callbackUpdate("timer_10", 8, 33))

	cb, ok := h.api.lastCallback()
	require.True(t, ok)
	assert.True(t, cb.ShowAlert)
	assert.Equal(t, alreadyRunningText, cb.Text)
}

func TestChoiceButton_UnsupportedDurationIgnored(t *testing.T) {
	h := newRouterHarness(Options{})

	h.r.HandleUpdate(context.Background(), callbackUpdate("timer_45", 7, 33))

	h.timers.AssertNotCalled(t, "Start", mock.Anything, mock.Anything)
	cb, ok := h.api.lastCallback()
	require.True(t, ok)
	assert.Empty(t, cb.Text)
}

func TestStopButton(t *testing.T) {
	cases := []struct {
		name  string
		err   error
		text  string
		alert bool
	}{
		{"owner", nil, stoppedAnswerText, false},
		{"finished", domain.ErrNoActiveTimer, timerGoneText, true},
		{"stranger", domain.ErrNotOwner, onlyOwnerText, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			h := newRouterHarness(Options{})
			h.timers.On("Stop", mock.Anything, timer.StopRequest{ChatID: testChat, UserID: 7, MessageID: 33}).
				Return(domain.Timer{}, c.err).Once()

			h.r.HandleUpdate(context.Background(), callbackUpdate(domain.CallbackStop, 7, 33))

			h.timers.AssertExpectations(t)
			cb, ok := h.api.lastCallback()
			require.True(t, ok)
			assert.Equal(t, c.text, cb.Text)
			assert.Equal(t, c.alert, cb.ShowAlert)
		})
	}
}

func TestPinServiceMessageDeleted(t *testing.T) {
	upd := tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID:     44,
		Chat:          &tgbotapi.Chat{ID: testChat},
		PinnedMessage: &tgbotapi.Message{MessageID: 33},
	}}

	h := newRouterHarness(Options{CleanPinService: true})
	h.r.HandleUpdate(context.Background(), upd)
	require.Len(t, h.api.requests, 1)
	del, ok := h.api.requests[0].(tgbotapi.DeleteMessageConfig)
	require.True(t, ok)
	assert.Equal(t, 44, del.MessageID)
	assert.Equal(t, testChat, del.ChatID)

	h = newRouterHarness(Options{CleanPinService: false})
	h.r.HandleUpdate(context.Background(), upd)
	assert.Empty(t, h.api.requests)
}

func TestPlainTextIgnored(t *testing.T) {
	h := newRouterHarness(Options{})
	h.r.HandleUpdate(context.Background(), tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: 7},
		Chat:      &tgbotapi.Chat{ID: testChat},
		Text:      "hello",
	}})
	assert.Empty(t, h.api.sent)
	assert.Empty(t, h.api.requests)
}
