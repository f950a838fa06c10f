// Package cache persists reconciled remote ids between sync runs.
//
// The cache is a local SQLite database (default .todomove/todoist.db). After
// each pipeline stage the CLI stores the freshly reconciled client-id →
// remote-id pairs; before the next push it loads them back onto the graph,
// so entities that already synced are skipped instead of duplicated.
package cache

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// Cache wraps the SQLite connection holding reconciled remote ids.
type Cache struct {
	conn *sql.DB
	path string
}

// Open creates or opens the cache database at the given path. The caller
// must Close() it when done.
func Open(path string) (*Cache, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", fmt.Sprintf("file:%s", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping cache database: %w", err)
	}

	c := &Cache{conn: conn, path: path}

	// WAL keeps readers working while a sync writes.
	if _, err := c.conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := c.conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if err := c.initSchema(); err != nil {
		_ = c.Close()
		return nil, err
	}

	return c, nil
}

// Path returns the database file location.
func (c *Cache) Path() string {
	return c.path
}

// Close checkpoints the WAL and closes the connection.
func (c *Cache) Close() error {
	if c.conn == nil {
		return nil
	}
	if _, err := c.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL: %v\n", err)
	}
	if err := c.conn.Close(); err != nil {
		return fmt.Errorf("failed to close cache database: %w", err)
	}
	c.conn = nil
	return nil
}

func (c *Cache) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS remote_ids (
		client_id TEXT PRIMARY KEY,
		kind      TEXT NOT NULL,
		remote_id TEXT NOT NULL,
		synced_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_remote_ids_kind ON remote_ids(kind);
	`
	if _, err := c.conn.Exec(schema); err != nil {
		return fmt.Errorf("failed to create cache schema: %w", err)
	}
	return nil
}

// Put stores one reconciliation. Existing rows for the same client id are
// overwritten.
func (c *Cache) Put(clientID, kind, remoteID string) error {
	_, err := c.conn.Exec(`
		INSERT INTO remote_ids (client_id, kind, remote_id, synced_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(client_id) DO UPDATE SET
			kind = excluded.kind,
			remote_id = excluded.remote_id,
			synced_at = excluded.synced_at`,
		clientID, kind, remoteID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to store remote id for %s: %w", clientID, err)
	}
	return nil
}

// PutAll stores a batch of reconciliations of one kind in a single
// transaction.
func (c *Cache) PutAll(kind string, ids map[string]string) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := c.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
		INSERT INTO remote_ids (client_id, kind, remote_id, synced_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(client_id) DO UPDATE SET
			kind = excluded.kind,
			remote_id = excluded.remote_id,
			synced_at = excluded.synced_at`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for clientID, remoteID := range ids {
		if _, err := stmt.Exec(clientID, kind, remoteID, now); err != nil {
			return fmt.Errorf("failed to store remote id for %s: %w", clientID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit remote ids: %w", err)
	}
	return nil
}

// Get returns the remote id stored for a client id, or "" when absent.
func (c *Cache) Get(clientID string) (string, error) {
	var remoteID string
	err := c.conn.QueryRow(
		"SELECT remote_id FROM remote_ids WHERE client_id = ?", clientID).Scan(&remoteID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query remote id for %s: %w", clientID, err)
	}
	return remoteID, nil
}

// Load returns every stored client-id → remote-id pair.
func (c *Cache) Load() (map[string]string, error) {
	rows, err := c.conn.Query("SELECT client_id, remote_id FROM remote_ids")
	if err != nil {
		return nil, fmt.Errorf("failed to query remote ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]string)
	for rows.Next() {
		var clientID, remoteID string
		if err := rows.Scan(&clientID, &remoteID); err != nil {
			return nil, fmt.Errorf("failed to scan remote id row: %w", err)
		}
		ids[clientID] = remoteID
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate remote ids: %w", err)
	}
	return ids, nil
}

// Count returns the number of stored reconciliations.
func (c *Cache) Count() (int, error) {
	var count int
	if err := c.conn.QueryRow("SELECT COUNT(*) FROM remote_ids").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count remote ids: %w", err)
	}
	return count, nil
}

// LastSync returns the most recent synced_at timestamp, or the zero time
// when the cache is empty.
func (c *Cache) LastSync() (time.Time, error) {
	var raw sql.NullString
	if err := c.conn.QueryRow("SELECT MAX(synced_at) FROM remote_ids").Scan(&raw); err != nil {
		return time.Time{}, fmt.Errorf("failed to query last sync time: %w", err)
	}
	if !raw.Valid || raw.String == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05.999999999-07:00", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, raw.String); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("failed to parse last sync time %q", raw.String)
}
