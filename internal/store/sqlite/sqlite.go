// Package sqlite is the local persistent backend. It is pull-based: callers
// re-read collections after writing.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"financas/internal/store"
)

type Store struct {
	db *sql.DB
}

var (
	_ store.Store  = (*Store)(nil)
	_ store.Pinger = (*Store)(nil)
)

// Open creates the database file and its directory if needed and applies
// pending migrations.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time keeps SQLITE_BUSY away.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Create(ctx context.Context, path store.Path, data json.RawMessage) (string, error) {
	if err := path.Validate(); err != nil {
		return "", err
	}
	if !json.Valid(data) {
		return "", fmt.Errorf("create %s: invalid json", path)
	}
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO records (path, id, data) VALUES (?, ?, ?)`,
		string(path), id, string(data))
	if err != nil {
		return "", fmt.Errorf("insert into %s: %w", path, err)
	}
	slog.DebugContext(ctx, "Record saved to SQLite", "path", path, "id", id)
	return id, nil
}

func (s *Store) Delete(ctx context.Context, path store.Path, id string) error {
	if err := path.Validate(); err != nil {
		return err
	}
	if id == "" {
		return store.ErrEmptyID
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE path = ? AND id = ?`, string(path), id)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", path, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", path, id, err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ReadAll(ctx context.Context, path store.Path) ([]store.Record, error) {
	if err := path.Validate(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, data FROM records WHERE path = ? ORDER BY seq`, string(path))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	defer rows.Close()

	out := make([]store.Record, 0)
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("scan %s: %w", path, err)
		}
		out = append(out, store.Record{ID: id, Data: json.RawMessage(data)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return out, nil
}

func (s *Store) RemoveAll(ctx context.Context, path store.Path) error {
	if err := path.Validate(); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE path = ?`, string(path)); err != nil {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}
