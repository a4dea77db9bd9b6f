package timer

import (
	"context"
	"sync"
	"time"
)

type call struct {
	op     string
	chatID int64
	msgID  int
	text   string
}

// fakeMessenger records every call; fail decides per call whether it errors.
type fakeMessenger struct {
	mu     sync.Mutex
	calls  []call
	nextID int
	fail   func(c call) error
}

func newFakeMessenger() *fakeMessenger { return &fakeMessenger{nextID: 100} }

func (m *fakeMessenger) record(c call) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, c)
	if m.fail != nil {
		return m.fail(c)
	}
	return nil
}

func (m *fakeMessenger) newID() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	return m.nextID
}

func (m *fakeMessenger) Send(_ context.Context, chatID int64, text string) (int, error) {
	if err := m.record(call{op: "send", chatID: chatID, text: text}); err != nil {
		return 0, err
	}
	return m.newID(), nil
}

func (m *fakeMessenger) SendStatus(_ context.Context, chatID int64, text string) (int, error) {
	if err := m.record(call{op: "sendStatus", chatID: chatID, text: text}); err != nil {
		return 0, err
	}
	return m.newID(), nil
}

func (m *fakeMessenger) EditStatus(_ context.Context, chatID int64, msgID int, text string) error {
	return m.record(call{op: "editStatus", chatID: chatID, msgID: msgID, text: text})
}

func (m *fakeMessenger) EditText(_ context.Context, chatID int64, msgID int, text string) error {
	return m.record(call{op: "editText", chatID: chatID, msgID: msgID, text: text})
}

func (m *fakeMessenger) Pin(_ context.Context, chatID int64, msgID int) error {
	return m.record(call{op: "pin", chatID: chatID, msgID: msgID})
}

func (m *fakeMessenger) Unpin(_ context.Context, chatID int64, msgID int) error {
	return m.record(call{op: "unpin", chatID: chatID, msgID: msgID})
}

func (m *fakeMessenger) ops(op string) []call {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []call
	for _, c := range m.calls {
		if c.op == op {
			out = append(out, c)
		}
	}
	return out
}

func (m *fakeMessenger) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

type fakeJob struct {
	interval, first time.Duration
	fn              func(context.Context)
	ctx             context.Context
	cancel          context.CancelFunc
}

// fakeScheduler never fires on its own; tests call fire.
type fakeScheduler struct {
	mu       sync.Mutex
	jobs     map[string][]*fakeJob
	canceled map[string]int
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{jobs: map[string][]*fakeJob{}, canceled: map[string]int{}}
}

func (s *fakeScheduler) Schedule(name string, interval, first time.Duration, fn func(context.Context)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ctx, cancel := context.WithCancel(context.Background())
	s.jobs[name] = append(s.jobs[name], &fakeJob{interval: interval, first: first, fn: fn, ctx: ctx, cancel: cancel})
}

func (s *fakeScheduler) Cancel(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.jobs[name])
	for _, j := range s.jobs[name] {
		j.cancel()
	}
	delete(s.jobs, name)
	s.canceled[name] += n
	return n
}

func (s *fakeScheduler) registered(name string) []*fakeJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*fakeJob(nil), s.jobs[name]...)
}

// fire runs every job registered under name once.
func (s *fakeScheduler) fire(name string) {
	for _, j := range s.registered(name) {
		j.fn(j.ctx)
	}
}

type fakeSubscribers map[int64][]int64

func (f fakeSubscribers) List(chatID int64) []int64 { return f[chatID] }
