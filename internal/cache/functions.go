package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
)

func functionKey(name string, args any) (string, error) {
	data, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("encode function args: %w", err)
	}
	return name + ":" + strconv.FormatUint(xxhash.Sum64(data), 16), nil
}

type functionRow struct {
	data    []byte
	timeout Timeout
	written time.Time
}

func (c *Cache) loadFunction(ctx context.Context, key string) (*functionRow, error) {
	var (
		data    []byte
		timeout string
		written int64
	)
	row := c.db.QueryRowContext(ctx, "SELECT data, timeout, written FROM functions WHERE key = ?", key)
	if err := row.Scan(&data, &timeout, &written); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select function: %w", err)
	}
	return &functionRow{data: data, timeout: Timeout(timeout), written: time.Unix(written, 0)}, nil
}

func (c *Cache) storeFunction(ctx context.Context, key, name string, data []byte, timeout Timeout, wait bool) error {
	written := c.now().Unix()
	return c.write(ctx, wait, func(ctx context.Context) error {
		_, err := c.db.ExecContext(ctx,
			`INSERT INTO functions (key, name, data, timeout, written) VALUES (?, ?, ?, ?, ?)
            ON CONFLICT(key) DO UPDATE SET data = excluded.data, timeout = excluded.timeout, written = excluded.written`,
			key, name, data, string(timeout), written)
		if err != nil {
			return fmt.Errorf("upsert function: %w", err)
		}
		return nil
	})
}

// CacheTime reports when the result of name(args) was last written.
func (c *Cache) CacheTime(ctx context.Context, name string, args any) (time.Time, bool, error) {
	if c.closed.Load() {
		return time.Time{}, false, ErrClosed
	}
	key, err := functionKey(name, args)
	if err != nil {
		return time.Time{}, false, err
	}
	row, err := c.loadFunction(ctx, key)
	if err != nil || row == nil {
		return time.Time{}, false, err
	}
	return row.written, true, nil
}

// Call returns the cached result of name(args), producing it when missing or
// expired. Stale results follow refresh: foreground renews before returning,
// background returns the stale value and renews asynchronously, none returns
// the stale value untouched. When producing fails and any earlier value
// exists, the earlier value is returned.
func Call[T any](ctx context.Context, c *Cache, name string, args any, timeout Timeout, refresh Refresh, produce func(context.Context) (T, error)) (T, error) {
	var zero T
	if c.closed.Load() {
		return zero, ErrClosed
	}
	key, err := functionKey(name, args)
	if err != nil {
		return zero, err
	}
	row, err := c.loadFunction(ctx, key)
	if err != nil {
		return zero, err
	}

	var cached T
	haveCached := false
	status := StatusInvalid
	if row != nil {
		if jsonErr := json.Unmarshal(row.data, &cached); jsonErr == nil {
			haveCached = true
			status = c.age(row.written, timeout)
		} else {
			c.logger.Warn("discarding unreadable function result", "name", name, "error", jsonErr)
		}
	}

	renew := func(ctx context.Context, wait bool) (T, error) {
		v, err := produce(ctx)
		if err != nil {
			return v, err
		}
		data, err := json.Marshal(v)
		if err != nil {
			return v, fmt.Errorf("encode function result: %w", err)
		}
		if err := c.storeFunction(ctx, key, name, data, timeout, wait); err != nil && !errors.Is(err, ErrClosed) {
			c.logger.Error("store function result failed", "name", name, "error", err)
		}
		return v, nil
	}

	switch {
	case haveCached && status == StatusFresh:
		return cached, nil
	case haveCached && refresh == RefreshNone:
		return cached, nil
	case haveCached && status == StatusStale && refresh == RefreshBackground:
		c.pending.Add(1)
		go func() {
			defer c.pending.Done()
			if _, err := renew(context.WithoutCancel(ctx), true); err != nil {
				c.logger.Warn("background refresh failed", "name", name, "error", err)
			}
		}()
		return cached, nil
	}

	v, err := renew(ctx, false)
	if err != nil {
		if haveCached {
			c.logger.Warn("refresh failed, serving cached result", "name", name, "error", err)
			return cached, nil
		}
		return zero, err
	}
	return v, nil
}

// Load returns the stored value of name(args) without producing it. The
// status classifies the write time against the stored timeout class.
func Load[T any](ctx context.Context, c *Cache, name string, args any) (T, Status, error) {
	var zero T
	if c.closed.Load() {
		return zero, StatusInvalid, ErrClosed
	}
	key, err := functionKey(name, args)
	if err != nil {
		return zero, StatusInvalid, err
	}
	row, err := c.loadFunction(ctx, key)
	if err != nil || row == nil {
		return zero, StatusInvalid, err
	}
	var v T
	if err := json.Unmarshal(row.data, &v); err != nil {
		c.logger.Warn("discarding unreadable function result", "name", name, "error", err)
		return zero, StatusInvalid, nil
	}
	return v, c.age(row.written, row.timeout), nil
}

// Store writes v as the result of name(args).
func Store(ctx context.Context, c *Cache, name string, args any, v any, timeout Timeout, wait bool) error {
	if c.closed.Load() {
		return ErrClosed
	}
	key, err := functionKey(name, args)
	if err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode function result: %w", err)
	}
	return c.storeFunction(ctx, key, name, data, timeout, wait)
}
