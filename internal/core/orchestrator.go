package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Digital-Shane/metaweave/internal/cache"
	"github.com/Digital-Shane/metaweave/internal/concurrency"
	"github.com/Digital-Shane/metaweave/internal/config"
	"github.com/Digital-Shane/metaweave/internal/hardware"
	"github.com/Digital-Shane/metaweave/internal/ids"
	"github.com/Digital-Shane/metaweave/internal/image"
	"github.com/Digital-Shane/metaweave/internal/media"
	"github.com/Digital-Shane/metaweave/internal/memo"
	"github.com/Digital-Shane/metaweave/internal/merge"
	"github.com/Digital-Shane/metaweave/internal/playback"
	"github.com/Digital-Shane/metaweave/internal/provider"
	"github.com/hashicorp/go-hclog"
)

// ErrReloadOnSingleton is returned when Reload is called on the shared
// orchestrator.
var ErrReloadOnSingleton = errors.New("core: reload requires a forked orchestrator")

// Orchestrator resolves entities of every kind through the cache and the
// enabled providers. A single Metadata entrypoint routes on the kind; the
// per-kind differences live in the plans.
type Orchestrator struct {
	cache    *cache.Cache
	registry *provider.Registry
	settings config.Settings
	playback playback.Reader
	images   image.Processor
	rating   float64
	logger   hclog.Logger
	locks    *concurrency.KeyedMutex
	sem      *concurrency.Semaphore
	now      func() time.Time

	shared bool
	// wait makes foreground writes synchronous; force refreshes every item.
	wait  atomic.Bool
	force atomic.Bool

	background sync.WaitGroup

	statsMu sync.RWMutex
	stats   Stats

	failuresMu sync.Mutex
	failures   []Failure
}

// Config wires an orchestrator to its collaborators. Cache, Registry and
// Settings are required.
type Config struct {
	Cache    *cache.Cache
	Registry *provider.Registry
	Settings config.Settings
	Playback playback.Reader
	Images   image.Processor
	Hardware hardware.Rater
	Logger   hclog.Logger
	Clock    func() time.Time
	// Shared marks the process-wide instance. Reload refuses to run on it.
	Shared bool
}

// Stats counts the work done by an orchestrator since it was created.
type Stats struct {
	Requested  int
	Cached     int
	Fetched    int
	Background int
	Skipped    int
	Dropped    int
	Partial    int
	Failed     int
	Kinds      map[media.Kind]int
}

// Failure records a provider sub-request that did not complete.
type Failure struct {
	Ref      media.Ref
	Provider string
	Section  provider.Section
	Err      error
}

// New creates an orchestrator.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Cache == nil || cfg.Registry == nil || cfg.Settings == nil {
		return nil, fmt.Errorf("orchestrator requires a cache, a registry and settings")
	}
	o := &Orchestrator{
		cache:    cfg.Cache,
		registry: cfg.Registry,
		settings: cfg.Settings,
		playback: cfg.Playback,
		images:   cfg.Images,
		logger:   cfg.Logger,
		locks:    concurrency.Global,
		now:      cfg.Clock,
		shared:   cfg.Shared,
		stats:    Stats{Kinds: make(map[media.Kind]int)},
	}
	if o.playback == nil {
		o.playback = playback.NewMemory()
	}
	if o.images == nil {
		o.images = image.NewDefault(cfg.Settings.Language())
	}
	if o.logger == nil {
		o.logger = hclog.NewNullLogger()
	}
	if o.now == nil {
		o.now = time.Now
	}
	o.rating = 0.5
	if cfg.Hardware != nil {
		o.rating = cfg.Hardware.PerformanceRating()
	}
	o.sem = concurrency.NewSemaphore(concurrency.Parallelism(o.rating, false))
	return o, nil
}

// Fork returns a non-shared orchestrator over the same collaborators. Forks
// may be reloaded.
func (o *Orchestrator) Fork() *Orchestrator {
	return &Orchestrator{
		cache:    o.cache,
		registry: o.registry,
		settings: o.settings,
		playback: o.playback,
		images:   o.images,
		rating:   o.rating,
		logger:   o.logger,
		locks:    o.locks,
		sem:      o.sem,
		now:      o.now,
		stats:    Stats{Kinds: make(map[media.Kind]int)},
	}
}

// Registry returns the provider registry.
func (o *Orchestrator) Registry() *provider.Registry { return o.registry }

// Cache returns the persistent cache.
func (o *Orchestrator) Cache() *cache.Cache { return o.cache }

// Settings returns the settings the orchestrator reads.
func (o *Orchestrator) Settings() config.Settings { return o.settings }

// Playback returns the playback reader.
func (o *Orchestrator) Playback() playback.Reader { return o.playback }

// Rating returns the hardware performance rating.
func (o *Orchestrator) Rating() float64 { return o.rating }

// Now returns the orchestrator clock.
func (o *Orchestrator) Now() time.Time { return o.now() }

// Stats returns a snapshot of the work counters.
func (o *Orchestrator) Stats() Stats {
	o.statsMu.RLock()
	defer o.statsMu.RUnlock()
	out := o.stats
	out.Kinds = make(map[media.Kind]int, len(o.stats.Kinds))
	for k, v := range o.stats.Kinds {
		out.Kinds[k] = v
	}
	return out
}

func (o *Orchestrator) count(fn func(*Stats)) {
	o.statsMu.Lock()
	fn(&o.stats)
	o.statsMu.Unlock()
}

// Failures returns the sub-request failures recorded so far.
func (o *Orchestrator) Failures() []Failure {
	o.failuresMu.Lock()
	defer o.failuresMu.Unlock()
	return append([]Failure(nil), o.failures...)
}

func (o *Orchestrator) recordFailure(f Failure) {
	o.failuresMu.Lock()
	o.failures = append(o.failures, f)
	o.failuresMu.Unlock()
}

// Wait blocks until detached background refreshes finish.
func (o *Orchestrator) Wait() {
	o.background.Wait()
}

// Reload refreshes refs in the foreground with synchronous writes. Only a
// forked orchestrator may reload because it switches the write mode.
func (o *Orchestrator) Reload(ctx context.Context, kind media.Kind, refs []media.Ref) ([]*media.Entity, error) {
	if o.shared {
		o.logger.Error("reload called on the shared orchestrator", "kind", kind, "fatal", true)
		return nil, ErrReloadOnSingleton
	}
	o.force.Store(true)
	o.wait.Store(true)
	defer func() {
		o.force.Store(false)
		o.wait.Store(false)
	}()
	return o.Metadata(ctx, kind, refs, Options{})
}

type nestedKey struct{}

func nested(ctx context.Context) bool {
	v, _ := ctx.Value(nestedKey{}).(bool)
	return v
}

// Metadata returns one entity per resolvable ref, in input order. Cached
// records are returned as they are; the rest are fetched in the foreground
// or queued for a detached background refresh according to opts.Quick.
// Refs that cannot be resolved are dropped.
func (o *Orchestrator) Metadata(ctx context.Context, kind media.Kind, refs []media.Ref, opts Options) ([]*media.Entity, error) {
	results, err := o.Resolve(ctx, kind, refs, opts)
	if err != nil {
		return nil, err
	}
	out := make([]*media.Entity, 0, len(results))
	for _, e := range results {
		if e != nil {
			out = append(out, e)
		}
	}
	return out, nil
}

// Resolve is Metadata without the compaction: the result has one slot per
// ref and the slot is nil when the ref was dropped, skipped or failed.
func (o *Orchestrator) Resolve(ctx context.Context, kind media.Kind, refs []media.Ref, opts Options) ([]*media.Entity, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown kind %q", kind)
	}
	if len(refs) == 0 {
		return nil, nil
	}
	refs = append([]media.Ref(nil), refs...)
	for i := range refs {
		refs[i].Kind = kind
	}
	records, err := o.cache.Select(ctx, refs)
	if err != nil {
		return nil, fmt.Errorf("selecting %s records: %w", kind, err)
	}

	detail := o.detail(opts)
	foreground, background, skipped := partition(records, opts.Quick, o.force.Load() || opts.Force)
	o.count(func(s *Stats) {
		s.Requested += len(refs)
		s.Cached += len(refs) - len(foreground) - skipped
		s.Background += len(background)
		s.Skipped += skipped
		s.Kinds[kind] += len(refs)
	})

	results := make([]*media.Entity, len(records))
	for i, rec := range records {
		if rec.Entity != nil && (rec.Status.Usable() || rec.Status == cache.StatusIncomplete) {
			results[i] = rec.Entity
		}
	}

	calls := memo.New[*media.Entity]()
	limit := concurrency.Parallelism(o.rating, nested(ctx))
	err = concurrency.Each(ctx, len(foreground), limit, func(ctx context.Context, j int) error {
		i := foreground[j]
		e, err := o.refresh(ctx, kind, records[i], detail, opts, o.wait.Load(), calls)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			o.logger.Warn("refresh failed", "kind", kind, "ref", describe(records[i].Ref), "error", err)
			return nil
		}
		results[i] = e
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(background) > 0 {
		o.detach(ctx, kind, records, background, detail, opts)
	}
	return results, nil
}

// detach refreshes the background group after the caller returned. Writes
// use the delayed mode.
func (o *Orchestrator) detach(ctx context.Context, kind media.Kind, records []cache.Record, indexes []int, detail provider.Detail, opts Options) {
	ctx = context.WithValue(context.WithoutCancel(ctx), nestedKey{}, true)
	calls := memo.New[*media.Entity]()
	o.background.Add(1)
	go func() {
		defer o.background.Done()
		_ = concurrency.Each(ctx, len(indexes), concurrency.Parallelism(o.rating, true), func(ctx context.Context, j int) error {
			rec := records[indexes[j]]
			if _, err := o.refresh(ctx, kind, rec, detail, opts, false, calls); err != nil {
				o.logger.Debug("background refresh failed", "kind", kind, "ref", describe(rec.Ref), "error", err)
			}
			return nil
		})
	}()
}

// refresh rebuilds one record under its fingerprint lock and writes it.
// calls holds the items already settled by the same top-level call, so a
// repeated ref is built once and an unresolvable one is not retried.
func (o *Orchestrator) refresh(ctx context.Context, kind media.Kind, rec cache.Record, detail provider.Detail, opts Options, wait bool, calls *memo.Memo[*media.Entity]) (*media.Entity, error) {
	if !nested(ctx) {
		release, err := o.sem.Acquire(ctx)
		if err != nil {
			return nil, err
		}
		defer release()
	}
	key := concurrency.Fingerprint(rec.Ref)
	unlock := o.locks.Lock(key)
	defer unlock()

	if e, ok, err := calls.Get(key); ok {
		if errors.Is(err, memo.ErrNotFound) {
			return nil, nil
		}
		return e, nil
	}

	// Another worker may have refreshed the record while this one waited.
	if !o.force.Load() && !opts.Force && rec.Status != cache.StatusFresh {
		current, err := o.cache.Select(ctx, []media.Ref{rec.Ref})
		if err == nil && len(current) == 1 && current[0].Status == cache.StatusFresh && current[0].Written.After(rec.Written) {
			calls.Put(key, current[0].Entity)
			return current[0].Entity, nil
		}
	}

	e, err := o.build(ctx, kind, rec, detail, opts)
	if errors.Is(err, ids.ErrUnresolvable) {
		calls.PutNotFound(key)
		o.count(func(s *Stats) { s.Dropped++ })
		o.logger.Debug("dropping unresolvable item", "kind", kind, "ref", describe(rec.Ref))
		return nil, nil
	}
	if err != nil {
		o.count(func(s *Stats) { s.Failed++ })
		return rec.Entity, err
	}
	o.count(func(s *Stats) {
		s.Fetched++
		if merge.Partial(e) {
			s.Partial++
		}
	})

	calls.Put(key, e)

	record := cache.Record{Ref: rec.Ref, Entity: e, Timeout: timeoutFor(kind)}
	if err := o.cache.Insert(ctx, []cache.Record{record}, wait); err != nil {
		o.logger.Warn("cache write failed", "kind", kind, "ref", describe(rec.Ref), "error", err)
	}
	return e, nil
}

// timeoutFor returns the freshness class of entity records.
func timeoutFor(kind media.Kind) cache.Timeout {
	switch kind {
	case media.KindMovie, media.KindSet:
		return cache.TimeoutMedium
	}
	return cache.TimeoutShort
}

func describe(ref media.Ref) string {
	if name, value := ref.IDs.Primary(); value != "" {
		s := name + ":" + value
		switch ref.Kind {
		case media.KindSeason:
			s += fmt.Sprintf(" S%02d", ref.Season)
		case media.KindEpisode:
			s += fmt.Sprintf(" S%02dE%02d", ref.Season, ref.Episode)
		}
		return s
	}
	return fmt.Sprintf("%q (%d)", ref.Title, ref.Year)
}
