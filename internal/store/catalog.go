package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	mderrors "github.com/Aman-CERP/mdsearch/internal/errors"
)

const schemaVersion = 1

// SQLiteCatalog persists documents and the id arena in SQLite.
type SQLiteCatalog struct {
	mu     sync.Mutex
	db     *sql.DB
	path   string
	closed bool
}

var _ Catalog = (*SQLiteCatalog)(nil)

// validateIntegrity checks an existing catalog before it is opened for
// writing. A missing file is valid.
func validateIntegrity(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	db, err := sql.Open("sqlite", path+"?mode=ro")
	if err != nil {
		return fmt.Errorf("cannot open for validation: %w", err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("database corrupted: %s", result)
	}
	return nil
}

// NewSQLiteCatalog opens or creates the catalog at path. An empty path
// opens an in-memory catalog. A catalog that fails its integrity check is
// removed and recreated empty.
func NewSQLiteCatalog(path string) (*SQLiteCatalog, error) {
	var dsn string
	if path == "" {
		dsn = ":memory:"
	} else {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}

		if validErr := validateIntegrity(path); validErr != nil {
			slog.Warn("catalog_corrupted",
				slog.String("path", path),
				slog.String("error", validErr.Error()))

			if removeErr := os.Remove(path); removeErr != nil && !os.IsNotExist(removeErr) {
				return nil, mderrors.New(mderrors.ErrCodeCorruptCatalog,
					fmt.Sprintf("catalog corrupted at %s and cannot be removed", path), removeErr)
			}
			_ = os.Remove(path + "-wal")
			_ = os.Remove(path + "-shm")

			slog.Info("catalog_cleared",
				slog.String("path", path),
				slog.String("reason", "corruption detected, index will be rebuilt"))
		}

		f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
		if err != nil {
			return nil, fmt.Errorf("failed to create catalog %s: %w", path, err)
		}
		_ = f.Close()
		if err := os.Chmod(path, 0o600); err != nil {
			return nil, fmt.Errorf("failed to set catalog permissions: %w", err)
		}

		dsn = path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single connection: one writer, and :memory: databases are per connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// DSN params may be ignored by modernc.org/sqlite
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -65536",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	c := &SQLiteCatalog{db: db, path: path}
	if err := c.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return c, nil
}

func (c *SQLiteCatalog) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS documents (
		id INTEGER PRIMARY KEY,
		path TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL,
		summary TEXT NOT NULL,
		content TEXT NOT NULL,
		mod_time INTEGER NOT NULL,
		size INTEGER NOT NULL,
		indexed_at INTEGER NOT NULL
	);

	-- Every path ever assigned an id, including deleted ones.
	CREATE TABLE IF NOT EXISTS arena (
		path TEXT PRIMARY KEY,
		id INTEGER NOT NULL UNIQUE
	);
	`
	if _, err := c.db.Exec(schema); err != nil {
		return err
	}
	_, err := c.db.Exec(`INSERT OR IGNORE INTO meta (key, value) VALUES ('schema_version', ?)`,
		fmt.Sprint(schemaVersion))
	return err
}

// Load returns every stored document and the arena.
func (c *SQLiteCatalog) Load(ctx context.Context) (*Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}

	snap := &Snapshot{Arena: make(map[string]DocID)}

	rows, err := c.db.QueryContext(ctx, `SELECT path, id FROM arena`)
	if err != nil {
		return nil, fmt.Errorf("failed to query arena: %w", err)
	}
	for rows.Next() {
		var p string
		var id int64
		if err := rows.Scan(&p, &id); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("failed to scan arena: %w", err)
		}
		snap.Arena[p] = DocID(id)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	rows, err = c.db.QueryContext(ctx,
		`SELECT id, path, title, summary, content, mod_time, size FROM documents ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var doc Document
		var id, modTime int64
		if err := rows.Scan(&id, &doc.Path, &doc.Title, &doc.Summary, &doc.Content, &modTime, &doc.Size); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		doc.ID = DocID(id)
		doc.ModTime = time.Unix(0, modTime)
		snap.Documents = append(snap.Documents, doc)
	}
	return snap, rows.Err()
}

// Put stores doc and its arena entry in one transaction.
func (c *SQLiteCatalog) Put(ctx context.Context, doc Document) error {
	return c.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE path = ? OR id = ?`,
			doc.Path, int64(doc.ID)); err != nil {
			return fmt.Errorf("failed to delete existing document %s: %w", doc.Path, err)
		}
		if err := insertDocument(ctx, tx, doc); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO arena (path, id) VALUES (?, ?)`,
			doc.Path, int64(doc.ID)); err != nil {
			return fmt.Errorf("failed to record id for %s: %w", doc.Path, err)
		}
		return nil
	})
}

// Delete removes the document stored under path.
func (c *SQLiteCatalog) Delete(ctx context.Context, path string) error {
	return c.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE path = ?`, path); err != nil {
			return fmt.Errorf("failed to delete document %s: %w", path, err)
		}
		return nil
	})
}

// DeleteAll removes every document.
func (c *SQLiteCatalog) DeleteAll(ctx context.Context) error {
	return c.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM documents`); err != nil {
			return fmt.Errorf("failed to clear documents: %w", err)
		}
		return nil
	})
}

// ReplaceAll replaces all documents and merges arena in one transaction.
func (c *SQLiteCatalog) ReplaceAll(ctx context.Context, docs []Document, arena map[string]DocID) error {
	return c.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM documents`); err != nil {
			return fmt.Errorf("failed to clear documents: %w", err)
		}

		arenaStmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO arena (path, id) VALUES (?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare arena statement: %w", err)
		}
		defer arenaStmt.Close()
		for p, id := range arena {
			if _, err := arenaStmt.ExecContext(ctx, p, int64(id)); err != nil {
				return fmt.Errorf("failed to record id for %s: %w", p, err)
			}
		}

		for _, doc := range docs {
			if err := insertDocument(ctx, tx, doc); err != nil {
				return err
			}
		}
		return nil
	})
}

// Close checkpoints the WAL and closes the database.
func (c *SQLiteCatalog) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	_, _ = c.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return c.db.Close()
}

// withTx runs fn in a transaction, retrying while the database is busy.
func (c *SQLiteCatalog) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}

	return mderrors.Retry(ctx, mderrors.StoreRetryConfig(), func() error {
		tx, err := c.db.BeginTx(ctx, nil)
		if err != nil {
			return classify(fmt.Errorf("failed to begin transaction: %w", err))
		}
		defer func() { _ = tx.Rollback() }()

		if err := fn(tx); err != nil {
			return classify(err)
		}
		return classify(tx.Commit())
	})
}

func insertDocument(ctx context.Context, tx *sql.Tx, doc Document) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO documents (id, path, title, summary, content, mod_time, size, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		int64(doc.ID), doc.Path, doc.Title, doc.Summary, doc.Content,
		doc.ModTime.UnixNano(), doc.Size, time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("failed to insert document %s: %w", doc.Path, err)
	}
	return nil
}

// classify marks lock contention as retryable.
func classify(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked") {
		return mderrors.New(mderrors.ErrCodeStoreBusy, "catalog is busy", err)
	}
	return err
}
