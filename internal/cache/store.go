// Package cache persists merged entities and dated function results in
// SQLite, classifying each read by freshness.
package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-hclog"
	_ "modernc.org/sqlite"
)

// ErrClosed is returned by operations on a closed cache.
var ErrClosed = errors.New("cache: closed")

// Options configures a Cache.
type Options struct {
	// Path is the main database file. ":memory:" keeps everything in memory.
	Path string

	// External is an optional read-only companion database with the same
	// schema, consulted when the main store misses.
	External string

	// Durations overrides the timeout class durations.
	Durations map[Timeout]time.Duration

	// Delay postpones asynchronous writes so bursts of work finish first.
	Delay time.Duration

	// Synchronous performs every write inline. Undelayed skips Delay for
	// asynchronous writes.
	Synchronous bool
	Undelayed   bool

	Logger hclog.Logger
	Clock  func() time.Time
}

// Cache is the persistent store.
type Cache struct {
	db        *sql.DB
	external  *sql.DB
	durations map[Timeout]time.Duration
	delay     time.Duration
	sync      bool
	undelayed bool
	logger    hclog.Logger
	now       func() time.Time

	writeMu sync.Mutex
	pending sync.WaitGroup
	closed  atomic.Bool
}

// Open initializes or connects to the cache database and applies migrations.
func Open(opts Options) (*Cache, error) {
	if opts.Path == "" {
		return nil, errors.New("cache path is required")
	}
	if opts.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", opts.Path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	logger := opts.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	c := &Cache{
		db:        db,
		durations: opts.Durations,
		delay:     opts.Delay,
		sync:      opts.Synchronous,
		undelayed: opts.Undelayed,
		logger:    logger,
		now:       clock,
	}
	if err := c.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	if opts.External != "" {
		if _, statErr := os.Stat(opts.External); statErr == nil {
			ext, extErr := sql.Open("sqlite", "file:"+opts.External+"?mode=ro")
			if extErr != nil {
				_ = db.Close()
				return nil, fmt.Errorf("open external cache: %w", extErr)
			}
			c.external = ext
		} else {
			logger.Warn("external cache missing", "path", opts.External)
		}
	}

	return c, nil
}

// Flush blocks until every pending asynchronous write has finished.
func (c *Cache) Flush() {
	c.pending.Wait()
}

// Close waits for pending writes and closes the databases.
func (c *Cache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	if c.closed.Swap(true) {
		return nil
	}
	c.pending.Wait()
	var errs []error
	if c.external != nil {
		errs = append(errs, c.external.Close())
	}
	errs = append(errs, c.db.Close())
	return errors.Join(errs...)
}

type migration struct {
	version string
	sql     string
}

var migrations = []migration{
	{
		version: "001_entries",
		sql: `CREATE TABLE IF NOT EXISTS entries (
            kind       TEXT NOT NULL,
            key        TEXT NOT NULL,
            data       BLOB NOT NULL,
            timeout    TEXT NOT NULL,
            incomplete INTEGER NOT NULL DEFAULT 0,
            written    INTEGER NOT NULL,
            PRIMARY KEY (kind, key)
        );
        CREATE TABLE IF NOT EXISTS aliases (
            kind     TEXT NOT NULL,
            provider TEXT NOT NULL,
            value    TEXT NOT NULL,
            season   INTEGER NOT NULL DEFAULT 0,
            episode  INTEGER NOT NULL DEFAULT 0,
            key      TEXT NOT NULL,
            PRIMARY KEY (kind, provider, value, season, episode)
        );
        CREATE INDEX IF NOT EXISTS aliases_key ON aliases (kind, key);`,
	},
	{
		version: "002_functions",
		sql: `CREATE TABLE IF NOT EXISTS functions (
            key     TEXT PRIMARY KEY,
            name    TEXT NOT NULL,
            data    BLOB NOT NULL,
            timeout TEXT NOT NULL,
            written INTEGER NOT NULL
        );`,
	},
}

func (c *Cache) applyMigrations(ctx context.Context) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY)"); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}

	for _, m := range migrations {
		var count int
		row := tx.QueryRowContext(ctx, "SELECT COUNT(1) FROM schema_migrations WHERE version = ?", m.version)
		if err := row.Scan(&count); err != nil {
			return fmt.Errorf("scan migration version: %w", err)
		}
		if count > 0 {
			continue
		}
		if _, err := tx.ExecContext(ctx, m.sql); err != nil {
			return fmt.Errorf("apply migration %s: %w", m.version, err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (?)", m.version); err != nil {
			return fmt.Errorf("record migration %s: %w", m.version, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migrations: %w", err)
	}
	return nil
}

// write runs fn under the writer lock, inline or in the background
// depending on the cache mode. wait forces an inline write.
func (c *Cache) write(ctx context.Context, wait bool, fn func(ctx context.Context) error) error {
	if c.closed.Load() {
		return ErrClosed
	}
	run := func(ctx context.Context) error {
		c.writeMu.Lock()
		defer c.writeMu.Unlock()
		return fn(ctx)
	}
	if wait || c.sync {
		return run(ctx)
	}

	c.pending.Add(1)
	go func() {
		defer c.pending.Done()
		if !c.undelayed && c.delay > 0 {
			time.Sleep(c.delay)
		}
		if err := run(context.Background()); err != nil {
			c.logger.Error("cache write failed", "error", err)
		}
	}()
	return nil
}
