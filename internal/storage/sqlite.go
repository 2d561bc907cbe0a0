package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/tanya/internal/models"
)

// MemoryDSN opens a private database that lives only as long as the store.
const MemoryDSN = ":memory:"

// SQLiteStorage implements ChunkStore using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist. dbPath ":memory:" keeps everything in memory.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	inMemory := dbPath == MemoryDSN
	if !inMemory {
		if dir := filepath.Dir(dbPath); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if inMemory {
		// Every pooled connection would get its own empty in-memory database.
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
	CREATE TABLE IF NOT EXISTS batches (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		documents INTEGER NOT NULL,
		fingerprint TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_batches_session_id ON batches(session_id);

	CREATE TABLE IF NOT EXISTS chunks (
		id TEXT PRIMARY KEY,
		batch_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		content TEXT NOT NULL,
		FOREIGN KEY (batch_id) REFERENCES batches(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_chunks_batch_position ON chunks(batch_id, position);
	`
	_, err := db.Exec(schema)
	return err
}

// CreateBatch inserts the batch row and all its chunks in one transaction.
func (s *SQLiteStorage) CreateBatch(ctx context.Context, batch *models.Batch, chunks []models.Chunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO batches (id, session_id, documents, fingerprint, created_at) VALUES (?, ?, ?, ?, ?)`,
		batch.ID, batch.SessionID, batch.Documents, batch.Fingerprint, batch.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO chunks (id, batch_id, position, content) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, ch := range chunks {
		if _, err := stmt.ExecContext(ctx, ch.ID, batch.ID, ch.Position, ch.Text); err != nil {
			return fmt.Errorf("insert chunk %s: %w", ch.ID, err)
		}
	}
	return tx.Commit()
}

// GetBatch returns a batch by ID.
func (s *SQLiteStorage) GetBatch(ctx context.Context, id string) (*models.Batch, error) {
	var b models.Batch
	var fingerprint sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, session_id, documents, fingerprint, created_at FROM batches WHERE id = ?`, id,
	).Scan(&b.ID, &b.SessionID, &b.Documents, &fingerprint, &b.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrBatchNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	b.Fingerprint = fingerprint.String
	return &b, nil
}

// maxLookupIDs bounds the placeholders in one GetChunks query, well under
// SQLite's host parameter limit.
const maxLookupIDs = 500

// GetChunks looks up chunks by ID, maxLookupIDs at a time.
func (s *SQLiteStorage) GetChunks(ctx context.Context, ids []string) (map[string]models.Chunk, error) {
	out := make(map[string]models.Chunk, len(ids))
	for start := 0; start < len(ids); start += maxLookupIDs {
		end := min(start+maxLookupIDs, len(ids))
		if err := s.lookupChunks(ctx, ids[start:end], out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *SQLiteStorage) lookupChunks(ctx context.Context, ids []string, out map[string]models.Chunk) error {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, position, content FROM chunks WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var ch models.Chunk
		if err := rows.Scan(&ch.ID, &ch.Position, &ch.Text); err != nil {
			return err
		}
		out[ch.ID] = ch
	}
	return rows.Err()
}

// ChunksByBatch returns the chunks of a batch ordered by position.
func (s *SQLiteStorage) ChunksByBatch(ctx context.Context, batchID string) ([]models.Chunk, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, position, content FROM chunks WHERE batch_id = ? ORDER BY position`, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []models.Chunk
	for rows.Next() {
		var ch models.Chunk
		if err := rows.Scan(&ch.ID, &ch.Position, &ch.Text); err != nil {
			return nil, err
		}
		chunks = append(chunks, ch)
	}
	return chunks, rows.Err()
}

// DeleteBatch removes a batch and its chunks. Deleting an unknown batch is not an error.
func (s *SQLiteStorage) DeleteBatch(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE batch_id = ?`, id); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM batches WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete batch: %w", err)
	}
	return tx.Commit()
}

// CountBatches returns the number of live batches.
func (s *SQLiteStorage) CountBatches(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM batches`).Scan(&count)
	return count, err
}

// CountChunks returns the total number of chunks.
func (s *SQLiteStorage) CountChunks(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
