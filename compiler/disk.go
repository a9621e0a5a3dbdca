package compiler

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

const diskSchema = `
CREATE TABLE IF NOT EXISTS results (
	key   TEXT PRIMARY KEY,
	hash  TEXT NOT NULL,
	entry BLOB NOT NULL
);`

// DiskCache persists entries in SQLite database so results survive restarts.
// Connection is not safe for concurrent use, access is serialized.
type DiskCache struct {
	log  *zap.Logger
	mu   sync.Mutex
	conn *sqlite.Conn
}

func OpenDiskCache(log *zap.Logger, dbPath string) (*DiskCache, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("unable to create cache directory: %w", err)
	}
	conn, err := sqlite.OpenConn(dbPath, sqlite.OpenReadWrite, sqlite.OpenCreate, sqlite.OpenWAL)
	if err != nil {
		return nil, fmt.Errorf("open cache database %s: %w", dbPath, err)
	}
	if err := sqlitex.ExecuteScript(conn, diskSchema, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("prepare cache database %s: %w", dbPath, err)
	}
	return &DiskCache{log: log.Named("disk-cache"), conn: conn}, nil
}

func (c *DiskCache) Get(key string) (*Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var data []byte
	err := sqlitex.Execute(c.conn, `SELECT entry FROM results WHERE key = ?`,
		&sqlitex.ExecOptions{
			Args: []any{key},
			ResultFunc: func(stmt *sqlite.Stmt) (err error) {
				data, err = io.ReadAll(stmt.ColumnReader(0))
				return err
			},
		})
	if err != nil {
		c.log.Warn("Unable to read cache entry", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	if data == nil {
		return nil, false
	}
	e := &Entry{}
	if err := jsoniter.Unmarshal(data, e); err != nil {
		c.log.Warn("Corrupted cache entry", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return e, true
}

func (c *DiskCache) Put(key string, e *Entry) error {
	data, err := jsoniter.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	err = sqlitex.Execute(c.conn, `INSERT INTO results (key, hash, entry) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET hash = excluded.hash, entry = excluded.entry`,
		&sqlitex.ExecOptions{Args: []any{key, e.Hash, data}})
	if err != nil {
		return fmt.Errorf("store cache entry %s: %w", key, err)
	}
	return nil
}

// Purge removes every stored entry.
func (c *DiskCache) Purge() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := sqlitex.Execute(c.conn, `DELETE FROM results`, nil); err != nil {
		return fmt.Errorf("purge cache: %w", err)
	}
	return nil
}

func (c *DiskCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.Close()
}
