package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type entry struct {
	cancel context.CancelFunc
}

// Scheduler runs named repeating jobs, each in its own goroutine.
// A job never overlaps itself: the next fire waits for the previous call.
type Scheduler struct {
	log *zap.Logger

	mu     sync.Mutex
	jobs   map[string][]*entry
	base   context.Context
	stop   context.CancelFunc
	wg     sync.WaitGroup
	closed bool
}

// New creates a scheduler ready to accept jobs.
func New(log *zap.Logger) *Scheduler {
	base, stop := context.WithCancel(context.Background())
	return &Scheduler{
		log:  log,
		jobs: make(map[string][]*entry),
		base: base,
		stop: stop,
	}
}

// Schedule registers job under name. It first fires after first, then every
// interval until canceled. Several jobs may share a name. The ctx passed to
// job is canceled when the registration is canceled or the scheduler stops.
func (s *Scheduler) Schedule(name string, interval, first time.Duration, job func(ctx context.Context)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		s.log.Warn("schedule after stop ignored", zap.String("job", name))
		return
	}

	ctx, cancel := context.WithCancel(s.base)
	e := &entry{cancel: cancel}
	s.jobs[name] = append(s.jobs[name], e)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.remove(name, e)
		s.loop(ctx, name, interval, first, job)
	}()
}

// Cancel stops every job registered under name and returns how many there were.
// A call already in progress finishes with a canceled context.
func (s *Scheduler) Cancel(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.jobs[name]
	for _, e := range entries {
		e.cancel()
	}
	delete(s.jobs, name)
	return len(entries)
}

// Len returns the number of registrations under name.
func (s *Scheduler) Len(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs[name])
}

// Stop cancels all jobs and waits for running calls to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.closed = true
	s.stop()
	s.jobs = make(map[string][]*entry)
	s.mu.Unlock()

	s.wg.Wait()
	s.log.Info("scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context, name string, interval, first time.Duration, job func(context.Context)) {
	timer := time.NewTimer(first)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		if ctx.Err() != nil {
			return
		}
		s.run(ctx, name, job)
		timer.Reset(interval)
	}
}

func (s *Scheduler) run(ctx context.Context, name string, job func(context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("job panicked", zap.String("job", name), zap.Any("panic", r))
		}
	}()
	job(ctx)
}

func (s *Scheduler) remove(name string, e *entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.jobs[name]
	for i, x := range entries {
		if x == e {
			s.jobs[name] = append(entries[:i], entries[i+1:]...)
			break
		}
	}
	if len(s.jobs[name]) == 0 {
		delete(s.jobs, name)
	}
}
