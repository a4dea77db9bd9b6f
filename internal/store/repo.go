package store

import "context"

// Snapshot is the full subscriber table: chat id -> subscribed user ids.
type Snapshot map[int64][]int64

// Backend persists whole snapshots of the subscriber table.
// Save always replaces the previous contents.
type Backend interface {
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, snap Snapshot) error
	Close() error
}
