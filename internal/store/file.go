package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// FileBackend keeps the subscriber table in a single JSON document of the
// form {"<chat id>": [user ids...]}. Every Save rewrites the whole file.
type FileBackend struct {
	path string
}

// NewFileBackend returns a backend for the JSON file at path.
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

// Load reads the file. A missing file is an empty table.
func (b *FileBackend) Load(_ context.Context) (Snapshot, error) {
	raw, err := os.ReadFile(b.path)
	if errors.Is(err, os.ErrNotExist) {
		return Snapshot{}, nil
	}
	if err != nil {
		return nil, err
	}

	var doc map[string][]int64
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", b.path, err)
	}
	snap := make(Snapshot, len(doc))
	for k, ids := range doc {
		chatID, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("decode %s: bad chat id %q", b.path, k)
		}
		snap[chatID] = ids
	}
	return snap, nil
}

// Save writes snap to a temp file next to the target and renames it over.
func (b *FileBackend) Save(_ context.Context, snap Snapshot) error {
	doc := make(map[string][]int64, len(snap))
	for chatID, ids := range snap {
		if ids == nil {
			ids = []int64{}
		}
		doc[strconv.FormatInt(chatID, 10)] = ids
	}
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(b.path)+".*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), b.path); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return nil
}

// Close is a no-op; the file is only open during Load and Save.
func (b *FileBackend) Close() error { return nil }
