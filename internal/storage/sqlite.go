package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStorage implements Registry on SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

var _ Registry = (*SQLiteStorage)(nil)

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Each connection would get its own empty database.
		db.SetMaxOpenConns(1)
	} else if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS uploads (
		doc_id TEXT PRIMARY KEY,
		filename TEXT NOT NULL,
		stored_path TEXT NOT NULL,
		size_bytes INTEGER NOT NULL DEFAULT 0,
		chunk_count INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_uploads_created_at ON uploads(created_at);
	CREATE INDEX IF NOT EXISTS idx_uploads_filename ON uploads(filename);
	`
	_, err := db.Exec(schema)
	return err
}

const uploadColumns = `doc_id, filename, stored_path, size_bytes, chunk_count, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanUpload(row scanner) (*Upload, error) {
	var u Upload
	if err := row.Scan(&u.DocID, &u.Filename, &u.StoredPath, &u.SizeBytes, &u.Chunks, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// Put inserts or replaces the upload for u.DocID.
func (s *SQLiteStorage) Put(ctx context.Context, u *Upload) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO uploads (`+uploadColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		u.DocID, u.Filename, u.StoredPath, u.SizeBytes, u.Chunks, u.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record upload %s: %w", u.DocID, err)
	}
	return nil
}

// Get returns the upload for docID.
func (s *SQLiteStorage) Get(ctx context.Context, docID string) (*Upload, error) {
	u, err := scanUpload(s.db.QueryRowContext(ctx,
		`SELECT `+uploadColumns+` FROM uploads WHERE doc_id = ?`, docID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrUploadNotFound, docID)
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Delete removes and returns the upload for docID.
func (s *SQLiteStorage) Delete(ctx context.Context, docID string) (*Upload, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	u, err := scanUpload(tx.QueryRowContext(ctx,
		`SELECT `+uploadColumns+` FROM uploads WHERE doc_id = ?`, docID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrUploadNotFound, docID)
	}
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM uploads WHERE doc_id = ?`, docID); err != nil {
		return nil, err
	}
	return u, tx.Commit()
}

// List returns every upload, oldest first.
func (s *SQLiteStorage) List(ctx context.Context) ([]*Upload, error) {
	return s.list(ctx, s.db)
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *SQLiteStorage) list(ctx context.Context, q querier) ([]*Upload, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+uploadColumns+` FROM uploads ORDER BY created_at, doc_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Upload
	for rows.Next() {
		u, err := scanUpload(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// Clear removes every upload row and returns the removed rows.
func (s *SQLiteStorage) Clear(ctx context.Context) ([]*Upload, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	removed, err := s.list(ctx, tx)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM uploads`); err != nil {
		return nil, err
	}
	return removed, tx.Commit()
}

// Count returns the number of registered uploads.
func (s *SQLiteStorage) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM uploads`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
