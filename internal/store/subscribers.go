package store

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/sprunkimylove-arch/timer-bot/internal/metrics"
)

// Subscribers is the in-memory subscriber table. It is authoritative for the
// lifetime of the process; every mutation is followed by a full snapshot
// write to the backend. Write failures are logged and swallowed.
type Subscribers struct {
	mu      sync.RWMutex
	sets    map[int64]map[int64]struct{}
	backend Backend
	log     *zap.Logger
	metrics *metrics.Metrics
}

// NewSubscribers creates an empty table persisted through backend.
// m may be nil.
func NewSubscribers(backend Backend, log *zap.Logger, m *metrics.Metrics) *Subscribers {
	return &Subscribers{
		sets:    make(map[int64]map[int64]struct{}),
		backend: backend,
		log:     log,
		metrics: m,
	}
}

// Load replaces the table with the backend contents. On failure the table
// is left empty and a warning is logged.
func (s *Subscribers) Load(ctx context.Context) {
	snap, err := s.backend.Load(ctx)
	if err != nil {
		s.log.Warn("subscribers not loaded, starting empty", zap.Error(err))
		snap = nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sets = make(map[int64]map[int64]struct{}, len(snap))
	total := 0
	for chatID, ids := range snap {
		set := make(map[int64]struct{}, len(ids))
		for _, id := range ids {
			set[id] = struct{}{}
		}
		s.sets[chatID] = set
		total += len(set)
	}
	s.log.Info("subscribers loaded", zap.Int("chats", len(s.sets)), zap.Int("subscribers", total))
}

// Subscribe adds userID to the chat's set and returns the resulting size.
func (s *Subscribers) Subscribe(ctx context.Context, chatID, userID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.sets[chatID]
	if !ok {
		set = make(map[int64]struct{})
		s.sets[chatID] = set
	}
	set[userID] = struct{}{}
	s.persistLocked(ctx)
	return len(set)
}

// Unsubscribe removes userID from the chat's set and returns the resulting size.
func (s *Subscribers) Unsubscribe(ctx context.Context, chatID, userID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	set := s.sets[chatID]
	delete(set, userID)
	if len(set) == 0 {
		delete(s.sets, chatID)
	}
	s.persistLocked(ctx)
	return len(set)
}

// List returns the chat's subscribers in ascending id order.
func (s *Subscribers) List(chatID int64) []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set := s.sets[chatID]
	ids := make([]int64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Close closes the backend.
func (s *Subscribers) Close() error {
	return s.backend.Close()
}

// persistLocked writes the whole table. Caller holds s.mu.
func (s *Subscribers) persistLocked(ctx context.Context) {
	snap := make(Snapshot, len(s.sets))
	for chatID, set := range s.sets {
		ids := make([]int64, 0, len(set))
		for id := range set {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		snap[chatID] = ids
	}
	if err := s.backend.Save(ctx, snap); err != nil {
		s.metrics.PersistFailed()
		s.log.Warn("subscribers not saved", zap.Error(err))
	}
}
