package smart

import (
	"context"
	"errors"
	"math/rand/v2"

	"github.com/cespare/xxhash/v2"

	"github.com/Digital-Shane/metaweave/internal/cache"
	"github.com/Digital-Shane/metaweave/internal/media"
	"github.com/Digital-Shane/metaweave/internal/provider"
)

// Picks per media kind, in output order.
const (
	pickProgress  = 3
	pickHistory   = 2
	pickArrivals  = 2
	pickRecommend = 2
	pickRandom    = 1
)

type recommendArgs struct {
	Provider string     `json:"provider"`
	Media    media.Kind `json:"media"`
}

// Quick builds the Quick list from the stored Progress and Arrivals lists
// plus provider recommendations. Each kind contributes three in-progress
// items, two finished ones to rewatch, two arrivals, two recommendations and
// one random pick. The random pick is stable for a day. The kinds alternate
// pick by pick, so the first page already mixes them.
func (s *Engine) Quick(ctx context.Context, kinds ...media.Kind) ([]*media.Entity, error) {
	if len(kinds) == 0 {
		kinds = []media.Kind{media.KindMovie, media.KindShow}
	}
	groups := make([][]*media.Entity, 0, len(kinds))
	for _, kind := range kinds {
		kind = kind.Media()
		picked, err := s.quick(ctx, kind)
		if err != nil {
			return nil, err
		}
		groups = append(groups, picked)
	}
	return interleave(groups), nil
}

// interleave takes one item from each group in turn until all are drained.
func interleave(groups [][]*media.Entity) []*media.Entity {
	longest, total := 0, 0
	for _, g := range groups {
		longest = max(longest, len(g))
		total += len(g)
	}
	out := make([]*media.Entity, 0, total)
	for i := 0; i < longest; i++ {
		for _, g := range groups {
			if i < len(g) {
				out = append(out, g[i])
			}
		}
	}
	return out
}

func (s *Engine) quick(ctx context.Context, kind media.Kind) ([]*media.Entity, error) {
	unlock := s.lock(ListQuick, kind)
	defer unlock()

	progress, _, err := s.Stored(ctx, ListProgress, kind)
	if err != nil {
		return nil, err
	}
	arrivals, _, err := s.Stored(ctx, ListArrivals, kind)
	if err != nil {
		return nil, err
	}

	var watching, done []*media.Entity
	for _, e := range progress {
		switch {
		case e.Smart != nil && e.Smart.Removed:
		case finished(e):
			done = append(done, e)
		default:
			watching = append(watching, e)
		}
	}
	Apply(done, SortRewatch)

	var recent []*media.Entity
	for _, e := range arrivals {
		if e.Smart == nil || !e.Smart.Removed {
			recent = append(recent, e)
		}
	}
	Apply(recent, SortGlobal)

	p := &picker{}
	p.take(watching, pickProgress)
	p.take(done, pickHistory)
	p.take(recent, pickArrivals)
	p.take(s.recommendations(ctx, kind), pickRecommend)

	var pool []*media.Entity
	pool = append(pool, recent...)
	pool = append(pool, done...)
	day := uint64(s.o.Now().Unix() / 86400)
	rng := rand.New(rand.NewPCG(day, xxhash.Sum64String(string(kind))))
	rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	p.take(pool, pickRandom)

	items := s.hydrate(ctx, kind, p.items, false)
	if err := s.store(ctx, ListQuick, kind, items); err != nil {
		s.logger.Error("storing quick list failed", "media", kind, "error", err)
	}
	return items, nil
}

// recommendations returns the first discovering provider's recommendations.
func (s *Engine) recommendations(ctx context.Context, kind media.Kind) []*media.Entity {
	registry := s.o.Registry()
	for _, name := range registry.EnabledNames() {
		p, _ := registry.Get(name)
		d, ok := p.(provider.Discoverer)
		if !ok {
			continue
		}
		items, err := cache.Call(ctx, s.o.Cache(), "quick.recommended", recommendArgs{Provider: name, Media: kind}, cache.TimeoutQuick, cache.RefreshBackground, func(ctx context.Context) ([]*media.Entity, error) {
			return d.Discover(ctx, provider.DiscoverRequest{Media: kind, List: "recommended", Limit: bucketLimit})
		})
		if err != nil {
			if !errors.Is(err, provider.ErrUnsupported) {
				s.logger.Debug("recommendations failed", "provider", name, "error", err)
			}
			continue
		}
		if len(items) > 0 {
			return items
		}
	}
	return nil
}

// picker collects items without repeating one.
type picker struct {
	items []*media.Entity
}

func (p *picker) take(from []*media.Entity, n int) {
	for _, e := range from {
		if n == 0 {
			return
		}
		if p.has(e) {
			continue
		}
		p.items = append(p.items, e)
		n--
	}
}

func (p *picker) has(e *media.Entity) bool {
	for _, known := range p.items {
		if known.IDs.Shares(e.IDs) {
			return true
		}
	}
	return false
}
