package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	// Registers the "sqlite" driver (pure Go).
	_ "modernc.org/sqlite"
)

// SQLiteBackend implements Backend using an embedded SQLite database.
type SQLiteBackend struct{ db *sql.DB }

// OpenSQLite opens (or creates) the SQLite database at the given path,
// applies recommended PRAGMAs, runs SQL migrations, and returns a backend.
func OpenSQLite(ctx context.Context, path string) (*SQLiteBackend, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Single-writer engine.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyPragmas(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	return &SQLiteBackend{db: db}, nil
}

func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying database resources.
func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}

// Load returns every (chat, user) row grouped by chat.
func (b *SQLiteBackend) Load(ctx context.Context) (Snapshot, error) {
	rows, err := b.db.QueryContext(ctx, `
		SELECT chat_id, user_id
		FROM subscribers
		ORDER BY chat_id, user_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	snap := Snapshot{}
	for rows.Next() {
		var chatID, userID int64
		if err := rows.Scan(&chatID, &userID); err != nil {
			return nil, err
		}
		snap[chatID] = append(snap[chatID], userID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return snap, nil
}

// Save replaces the table contents with snap in a single transaction.
func (b *SQLiteBackend) Save(ctx context.Context, snap Snapshot) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM subscribers`); err != nil {
		_ = tx.Rollback()
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO subscribers (chat_id, user_id) VALUES (?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for chatID, ids := range snap {
		for _, userID := range ids {
			if _, err := stmt.ExecContext(ctx, chatID, userID); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("insert %d/%d: %w", chatID, userID, err)
			}
		}
	}
	return tx.Commit()
}
