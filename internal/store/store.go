package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 1 - Initial schema (kv table with per-key versions)
const currentSchemaVersion = 1

// Store provides durable key-value storage shared by replica processes.
// Uses SQLite with WAL mode so other replicas can read during writes.
type Store struct {
	db *sql.DB

	mu           sync.Mutex
	subs         map[int]func(Event)
	nextSubID    int
	keyVersions  map[string]int64
	dataVersion  int64
}

// Open creates or opens the shared database at the given path.
// Applies required pragmas and the schema automatically.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention across replicas
//   - Foreign key enforcement
//
// This function is idempotent - safe to call multiple times.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections.
	// A stable single connection also keeps PRAGMA data_version meaningful:
	// it only moves when a different connection commits.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	s := &Store{
		db:   db,
		subs: make(map[int]func(Event)),
	}

	// Baseline for Watch: snapshot current per-key versions so pre-existing
	// keys are not reported as foreign writes on the first poll.
	versions, err := s.readVersions(context.Background())
	if err != nil {
		db.Close()
		return nil, err
	}
	s.keyVersions = versions
	if s.dataVersion, err = s.readDataVersion(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Read returns the value for a key. The second return is false when the key
// has never been written; a missing key is not an error.
func (s *Store) Read(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, &PersistenceError{Op: "read", Key: key, Err: err}
	}
	return value, true, nil
}

// Write stores the value for a key, replacing any previous value, and bumps
// the key's version. Local subscribers are notified after the commit.
//
// Writes are all-or-nothing at this boundary: callers serialize a complete
// record set, never a partial one.
func (s *Store) Write(ctx context.Context, key, value string) error {
	version, err := s.upsert(ctx, key, `
		INSERT INTO kv (key, value, version)
		VALUES (?, ?, 1)
		ON CONFLICT(key) DO UPDATE SET
			value   = excluded.value,
			version = kv.version + 1
	`, value)
	if err != nil {
		return &PersistenceError{Op: "write", Key: key, Err: err}
	}

	s.recordLocalWrite(key, version)
	return nil
}

// Append appends a line to the value under a key, creating the key if
// needed. Existing content is never rewritten, which makes the key an
// append-only log. Local subscribers are notified after the commit.
func (s *Store) Append(ctx context.Context, key, line string) error {
	version, err := s.upsert(ctx, key, `
		INSERT INTO kv (key, value, version)
		VALUES (?, ?, 1)
		ON CONFLICT(key) DO UPDATE SET
			value   = kv.value || char(10) || excluded.value,
			version = kv.version + 1
	`, line)
	if err != nil {
		return &PersistenceError{Op: "append", Key: key, Err: err}
	}

	s.recordLocalWrite(key, version)
	return nil
}

// upsert runs an insert-or-update and returns the key's resulting version
// within one transaction.
func (s *Store) upsert(ctx context.Context, key, query, value string) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if _, err := tx.ExecContext(ctx, query, key, value); err != nil {
		return 0, fmt.Errorf("exec: %w", err)
	}

	var version int64
	if err := tx.QueryRowContext(ctx, `SELECT version FROM kv WHERE key = ?`, key).Scan(&version); err != nil {
		return 0, fmt.Errorf("read version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return version, nil
}

// recordLocalWrite updates the watch baseline and fires the local signal.
// Updating the baseline first keeps Watch from re-reporting our own write
// as a foreign one.
func (s *Store) recordLocalWrite(key string, version int64) {
	s.mu.Lock()
	s.keyVersions[key] = version
	s.mu.Unlock()

	s.notify(Event{Key: key, Origin: OriginLocal})
}

// readVersions returns the current version of every key, ordered
// deterministically.
func (s *Store) readVersions(ctx context.Context) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, version FROM kv ORDER BY key ASC`)
	if err != nil {
		return nil, &PersistenceError{Op: "versions", Err: err}
	}
	defer rows.Close()

	versions := make(map[string]int64)
	for rows.Next() {
		var key string
		var version int64
		if err := rows.Scan(&key, &version); err != nil {
			return nil, &PersistenceError{Op: "versions", Err: err}
		}
		versions[key] = version
	}
	if err := rows.Err(); err != nil {
		return nil, &PersistenceError{Op: "versions", Err: err}
	}
	return versions, nil
}

// readDataVersion reads SQLite's per-connection change counter. It only
// moves when a different connection commits, making it a cheap "did anyone
// else write" guard before the per-key diff.
func (s *Store) readDataVersion(ctx context.Context) (int64, error) {
	var v int64
	if err := s.db.QueryRowContext(ctx, `PRAGMA data_version`).Scan(&v); err != nil {
		return 0, &PersistenceError{Op: "data_version", Err: err}
	}
	return v, nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist. Idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version < currentSchemaVersion {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
			return fmt.Errorf("set user_version: %w", err)
		}
	}

	return nil
}
