package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Digital-Shane/metaweave/internal/concurrency"
	"github.com/Digital-Shane/metaweave/internal/media"
)

const aliasTitle = "title"

// Record is one entity row. On Select, Entity is nil and Status is invalid
// when nothing is stored for Ref.
type Record struct {
	Ref     media.Ref
	Key     string
	Entity  *media.Entity
	Timeout Timeout
	Written time.Time
	Status  Status
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Select returns one record per ref, in order, augmented with its status.
func (c *Cache) Select(ctx context.Context, refs []media.Ref) ([]Record, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}
	out := make([]Record, len(refs))
	for i, ref := range refs {
		rec, err := c.selectOne(ctx, ref)
		if err != nil {
			return nil, err
		}
		out[i] = rec
	}
	return out, nil
}

func (c *Cache) selectOne(ctx context.Context, ref media.Ref) (Record, error) {
	rec := Record{Ref: ref, Status: StatusInvalid}

	found, err := c.load(ctx, c.db, ref, &rec)
	if err != nil {
		return rec, err
	}
	if found {
		return rec, nil
	}
	if c.external == nil {
		return rec, nil
	}

	found, err = c.load(ctx, c.external, ref, &rec)
	if err != nil {
		c.logger.Warn("external cache read failed", "error", err)
		return Record{Ref: ref, Status: StatusInvalid}, nil
	}
	if found && rec.Status != StatusInvalid {
		rec.Status = StatusExternal
	}
	return rec, nil
}

func (c *Cache) load(ctx context.Context, db querier, ref media.Ref, rec *Record) (bool, error) {
	key, ok, err := resolveKey(ctx, db, ref)
	if err != nil || !ok {
		return false, err
	}

	var (
		data       []byte
		timeout    string
		incomplete int
		written    int64
	)
	row := db.QueryRowContext(ctx,
		"SELECT data, timeout, incomplete, written FROM entries WHERE kind = ? AND key = ?",
		string(ref.Kind), key)
	if err := row.Scan(&data, &timeout, &incomplete, &written); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("select entry: %w", err)
	}

	var entity media.Entity
	if err := json.Unmarshal(data, &entity); err != nil {
		c.logger.Warn("discarding unreadable cache entry", "kind", ref.Kind, "key", key, "error", err)
		return false, nil
	}

	rec.Key = key
	rec.Entity = &entity
	rec.Timeout = Timeout(timeout)
	rec.Written = time.Unix(written, 0)
	rec.Status = c.age(rec.Written, rec.Timeout)
	if incomplete != 0 && rec.Status != StatusInvalid {
		rec.Status = StatusIncomplete
	}
	return true, nil
}

func resolveKey(ctx context.Context, db querier, ref media.Ref) (string, bool, error) {
	for _, a := range refAliases(ref) {
		var key string
		row := db.QueryRowContext(ctx,
			"SELECT key FROM aliases WHERE kind = ? AND provider = ? AND value = ? AND season = ? AND episode = ?",
			string(ref.Kind), a.provider, a.value, a.season, a.episode)
		switch err := row.Scan(&key); {
		case err == nil:
			return key, true, nil
		case errors.Is(err, sql.ErrNoRows):
			continue
		default:
			return "", false, fmt.Errorf("select alias: %w", err)
		}
	}
	return "", false, nil
}

type alias struct {
	provider string
	value    string
	season   int
	episode  int
}

func refAliases(ref media.Ref) []alias {
	season, episode := 0, 0
	switch ref.Kind {
	case media.KindSeason:
		season = ref.Season
	case media.KindEpisode:
		season, episode = ref.Season, ref.Episode
	}

	var out []alias
	for _, p := range append(append([]string{}, media.IDProviders...), "slug") {
		if v := ref.IDs.Get(p); v != "" {
			out = append(out, alias{provider: p, value: v, season: season, episode: episode})
		}
	}
	if ref.IDs.Empty() && strings.TrimSpace(ref.Title) != "" {
		out = append(out, alias{provider: aliasTitle, value: titleAlias(ref), season: season, episode: episode})
	}
	return out
}

func titleAlias(ref media.Ref) string {
	return strings.ToLower(strings.TrimSpace(ref.Title)) + "|" + strconv.Itoa(ref.Year)
}

// Insert stores records. Records with an existing alias reuse its key so an
// entity that gains identifiers keeps one row. Unless wait is set or the
// cache is synchronous, the write happens in the background.
func (c *Cache) Insert(ctx context.Context, records []Record, wait bool) error {
	if len(records) == 0 {
		return nil
	}
	payloads := make([]insertPayload, 0, len(records))
	for _, rec := range records {
		if rec.Entity == nil {
			continue
		}
		data, err := json.Marshal(rec.Entity)
		if err != nil {
			return fmt.Errorf("encode entity: %w", err)
		}
		ref := rec.Entity.Ref()
		ref.IDs = ref.IDs.Fill(rec.Ref.IDs)
		if ref.Title == "" {
			ref.Title = rec.Ref.Title
		}
		if ref.Year == 0 {
			ref.Year = rec.Ref.Year
		}
		timeout := rec.Timeout
		if timeout == "" {
			timeout = TimeoutMedium
		}
		payloads = append(payloads, insertPayload{
			ref:        ref,
			lookup:     rec.Ref,
			alias:      rec.Entity.IMDbAlias,
			data:       data,
			timeout:    timeout,
			incomplete: len(rec.Entity.Part) > 0,
		})
	}
	written := c.now().Unix()
	return c.write(ctx, wait, func(ctx context.Context) error {
		return c.insert(ctx, payloads, written)
	})
}

type insertPayload struct {
	ref        media.Ref
	lookup     media.Ref
	alias      string
	data       []byte
	timeout    Timeout
	incomplete bool
}

func (c *Cache) insert(ctx context.Context, payloads []insertPayload, written int64) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, p := range payloads {
		key, ok, err := resolveKey(ctx, tx, p.ref)
		if err != nil {
			return err
		}
		if !ok {
			key, ok, err = resolveKey(ctx, tx, p.lookup)
			if err != nil {
				return err
			}
		}
		if !ok {
			key = concurrency.Fingerprint(p.ref)
		}

		incomplete := 0
		if p.incomplete {
			incomplete = 1
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO entries (kind, key, data, timeout, incomplete, written) VALUES (?, ?, ?, ?, ?, ?)
            ON CONFLICT(kind, key) DO UPDATE SET data = excluded.data, timeout = excluded.timeout,
            incomplete = excluded.incomplete, written = excluded.written`,
			string(p.ref.Kind), key, p.data, string(p.timeout), incomplete, written); err != nil {
			return fmt.Errorf("upsert entry: %w", err)
		}

		aliases := append(refAliases(p.ref), refAliases(p.lookup)...)
		if p.alias != "" {
			extra := p.ref
			extra.IDs = media.IDs{IMDb: p.alias}
			aliases = append(aliases, refAliases(extra)...)
		}
		for _, a := range aliases {
			if _, err := tx.ExecContext(ctx,
				"INSERT OR REPLACE INTO aliases (kind, provider, value, season, episode, key) VALUES (?, ?, ?, ?, ?, ?)",
				string(p.ref.Kind), a.provider, a.value, a.season, a.episode, key); err != nil {
				return fmt.Errorf("upsert alias: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert: %w", err)
	}
	return nil
}

// Delete removes the record stored for ref along with its aliases.
func (c *Cache) Delete(ctx context.Context, ref media.Ref) error {
	return c.write(ctx, true, func(ctx context.Context) error {
		key, ok, err := resolveKey(ctx, c.db, ref)
		if err != nil || !ok {
			return err
		}
		if _, err := c.db.ExecContext(ctx, "DELETE FROM entries WHERE kind = ? AND key = ?", string(ref.Kind), key); err != nil {
			return fmt.Errorf("delete entry: %w", err)
		}
		if _, err := c.db.ExecContext(ctx, "DELETE FROM aliases WHERE kind = ? AND key = ?", string(ref.Kind), key); err != nil {
			return fmt.Errorf("delete aliases: %w", err)
		}
		return nil
	})
}
