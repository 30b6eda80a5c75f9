// Package batch drives bulk metadata generation with a cool-down on global
// provider usage.
package batch

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/Digital-Shane/metaweave/internal/concurrency"
	"github.com/Digital-Shane/metaweave/internal/core"
	"github.com/Digital-Shane/metaweave/internal/log"
	"github.com/Digital-Shane/metaweave/internal/media"
)

// Status values reported in Progress.
const (
	StatusIdle     = "idle"
	StatusRunning  = "running"
	StatusCooling  = "cooling"
	StatusDone     = "done"
	StatusCanceled = "canceled"
)

const (
	defaultStart    = 0.6
	defaultStop     = 0.9
	defaultInterval = 5 * time.Second
)

// Usage is a snapshot of provider usage.
type Usage struct {
	Global float64 `json:"global"`
	Trakt  float64 `json:"trakt"`
	IMDb   float64 `json:"imdb"`
	TMDb   float64 `json:"tmdb"`
}

// Progress is the state reported to the callback after every step.
type Progress struct {
	Progress  float64            `json:"progress"`
	Status    string             `json:"status"`
	Detail    string             `json:"detail,omitempty"`
	Usage     Usage              `json:"usage"`
	Count     map[media.Kind]int `json:"count"`
	Total     int                `json:"total"`
	Processed int                `json:"processed"`
	Failed    int                `json:"failed"`
	Cooldowns int                `json:"cooldowns,omitempty"`
}

// Done reports whether the run has ended.
func (p Progress) Done() bool {
	return p.Status == StatusDone || p.Status == StatusCanceled
}

// Event carries a progress update and the error that ended the run, if any.
type Event struct {
	Progress Progress
	Err      error
}

// Config configures a Controller.
type Config struct {
	Orchestrator *core.Orchestrator
	// Items are processed kind by kind in media.Kinds order.
	Items []media.Ref

	// Start and Stop are the global usage thresholds: above Stop new
	// fetches pause until usage falls below Start.
	Start    float64
	Stop     float64
	Interval time.Duration
	// Chunk is the number of items per orchestrator call.
	Chunk int

	Callback func(Progress)
	Journal  *log.Journal
	Logger   hclog.Logger

	// Sleep waits between usage checks. It defaults to a timer honoring ctx.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Controller is one bulk generation run.
type Controller struct {
	o        *core.Orchestrator
	items    []media.Ref
	start    float64
	stop     float64
	interval time.Duration
	chunk    int
	callback func(Progress)
	journal  *log.Journal
	logger   hclog.Logger
	sleep    func(ctx context.Context, d time.Duration) error

	canceled atomic.Bool

	mu       sync.RWMutex
	progress Progress
}

// New returns a controller with defaults applied.
func New(cfg Config) (*Controller, error) {
	if cfg.Orchestrator == nil {
		return nil, fmt.Errorf("batch: orchestrator is required")
	}
	c := &Controller{
		o:        cfg.Orchestrator,
		items:    cfg.Items,
		start:    cfg.Start,
		stop:     cfg.Stop,
		interval: cfg.Interval,
		chunk:    cfg.Chunk,
		callback: cfg.Callback,
		journal:  cfg.Journal,
		logger:   cfg.Logger,
		sleep:    cfg.Sleep,
		progress: Progress{Status: StatusIdle, Count: make(map[media.Kind]int), Total: len(cfg.Items)},
	}
	if c.stop <= 0 || c.stop > 1 {
		c.stop = defaultStop
	}
	if c.start <= 0 || c.start > c.stop {
		c.start = min(defaultStart, c.stop)
	}
	if c.interval <= 0 {
		c.interval = defaultInterval
	}
	if c.chunk <= 0 {
		c.chunk = 2 * concurrency.Parallelism(c.o.Rating(), false)
	}
	if c.logger == nil {
		c.logger = hclog.NewNullLogger()
	}
	if c.sleep == nil {
		c.sleep = sleep
	}
	return c, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Cancel asks the run to stop. It is observed before every step.
func (c *Controller) Cancel() { c.canceled.Store(true) }

// Snapshot returns the latest progress.
func (c *Controller) Snapshot() Progress {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p := c.progress
	p.Count = make(map[media.Kind]int, len(c.progress.Count))
	for k, v := range c.progress.Count {
		p.Count[k] = v
	}
	return p
}

// Start runs the batch in the background and streams progress events. The
// channel closes when the run ends.
func (c *Controller) Start(ctx context.Context) <-chan Event {
	events := make(chan Event, 128)
	callback := c.callback
	c.callback = func(p Progress) {
		if callback != nil {
			callback(p)
		}
		select {
		case events <- Event{Progress: p}:
		case <-ctx.Done():
		}
	}
	go func() {
		defer close(events)
		if _, err := c.Run(ctx); err != nil {
			select {
			case events <- Event{Progress: c.Snapshot(), Err: err}:
			case <-ctx.Done():
			}
		}
	}()
	return events
}

// Run processes every item and returns the final progress.
func (c *Controller) Run(ctx context.Context) (Progress, error) {
	c.update(func(p *Progress) { p.Status = StatusRunning })

	groups := make(map[media.Kind][]media.Ref)
	for _, ref := range c.items {
		groups[ref.Kind] = append(groups[ref.Kind], ref)
	}

	for _, kind := range media.Kinds {
		refs := groups[kind]
		for begin := 0; begin < len(refs); begin += c.chunk {
			if c.canceled.Load() || ctx.Err() != nil {
				return c.finish(StatusCanceled), ctx.Err()
			}
			if err := c.gate(ctx); err != nil {
				if c.canceled.Load() {
					return c.finish(StatusCanceled), nil
				}
				return c.finish(StatusCanceled), err
			}
			end := min(begin+c.chunk, len(refs))
			if err := c.process(ctx, kind, refs[begin:end]); err != nil {
				return c.finish(StatusCanceled), err
			}
		}
	}
	c.o.Wait()
	return c.finish(StatusDone), nil
}

// gate blocks while global usage is above the stop threshold, until it
// falls below the start threshold.
func (c *Controller) gate(ctx context.Context) error {
	usage := c.usage()
	c.journal.Usage(usage.Global, false)
	if usage.Global < c.stop {
		c.update(func(p *Progress) { p.Usage = usage })
		return nil
	}

	c.logger.Info("provider usage high, cooling down", "usage", usage.Global, "resume_below", c.start)
	c.journal.Usage(usage.Global, true)
	c.update(func(p *Progress) {
		p.Status = StatusCooling
		p.Usage = usage
		p.Cooldowns++
	})
	for usage.Global >= c.start {
		if c.canceled.Load() {
			return context.Canceled
		}
		if err := c.sleep(ctx, c.interval); err != nil {
			return err
		}
		usage = c.usage()
		c.journal.Usage(usage.Global, false)
		c.update(func(p *Progress) { p.Usage = usage })
	}
	c.logger.Info("resuming", "usage", usage.Global)
	c.update(func(p *Progress) { p.Status = StatusRunning })
	return nil
}

func (c *Controller) usage() Usage {
	r := c.o.Registry()
	return Usage{
		Global: r.GlobalUsage(),
		Trakt:  r.Usage(media.ProviderTrakt),
		IMDb:   r.Usage(media.ProviderIMDb),
		TMDb:   r.Usage(media.ProviderTMDb),
	}
}

// process refreshes one chunk. Items the orchestrator drops count as
// failures.
func (c *Controller) process(ctx context.Context, kind media.Kind, refs []media.Ref) error {
	entities, err := c.o.Resolve(ctx, kind, refs, core.Options{Quick: core.Full()})
	if err != nil {
		return fmt.Errorf("refreshing %s: %w", kind, err)
	}

	failed := 0
	for i, ref := range refs {
		if entities[i] != nil {
			c.journal.Record(string(kind), describe(ref), nil)
			continue
		}
		failed++
		c.journal.Record(string(kind), describe(ref), fmt.Errorf("no metadata"))
	}

	c.update(func(p *Progress) {
		p.Processed += len(refs)
		p.Failed += failed
		p.Count[kind] += len(refs) - failed
		p.Detail = describe(refs[len(refs)-1])
		if p.Total > 0 {
			p.Progress = float64(p.Processed) / float64(p.Total)
		}
	})
	return nil
}

func (c *Controller) finish(status string) Progress {
	c.update(func(p *Progress) { p.Status = status })
	return c.Snapshot()
}

// update applies fn and reports the new state to the callback.
func (c *Controller) update(fn func(*Progress)) {
	c.mu.Lock()
	fn(&c.progress)
	c.mu.Unlock()
	if c.callback != nil {
		c.callback(c.Snapshot())
	}
}

func describe(ref media.Ref) string {
	for _, name := range media.IDProviders {
		if value := ref.IDs.Get(name); value != "" {
			if ref.Title != "" {
				return fmt.Sprintf("%s (%s:%s)", ref.Title, name, value)
			}
			return name + ":" + value
		}
	}
	return ref.Title
}
