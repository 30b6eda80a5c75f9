// Package ids reconciles the identifiers reported by several providers into
// one consensus set.
package ids

import (
	"errors"

	"github.com/Digital-Shane/metaweave/internal/media"
)

// ErrUnresolvable is returned when no identifier of any type is known.
var ErrUnresolvable = errors.New("ids: not resolvable")

// idTypes are the identifier types put to a vote.
var idTypes = []string{
	media.ProviderIMDb, media.ProviderTMDb, media.ProviderTVDb, media.ProviderTrakt, "slug",
	media.ProviderTVMaze, media.ProviderTVRage,
}

type tally struct {
	count map[string]int
	last  map[string]int
	seq   int
}

// Resolver accumulates observed identifiers. The zero value is not usable;
// call New.
type Resolver struct {
	votes map[string]*tally
	seq   int
}

// New returns an empty resolver.
func New() *Resolver {
	r := &Resolver{votes: make(map[string]*tally, len(idTypes))}
	for _, t := range idTypes {
		r.votes[t] = &tally{count: make(map[string]int), last: make(map[string]int)}
	}
	return r
}

// Observe records every identifier a provider reported.
func (r *Resolver) Observe(ids media.IDs) {
	for _, t := range idTypes {
		v := ids.Get(t)
		if v == "" {
			continue
		}
		r.seq++
		tl := r.votes[t]
		tl.count[v]++
		tl.last[v] = r.seq
	}
}

// Count returns how often value was observed for the identifier type.
func (r *Resolver) Count(idType, value string) int {
	tl, ok := r.votes[idType]
	if !ok {
		return 0
	}
	return tl.count[value]
}

// Resolve returns the consensus identifiers. For every type the most
// observed value wins; ties keep the current value when it is among them and
// otherwise take the most recently observed. Types never observed keep the
// current value.
func (r *Resolver) Resolve(current media.IDs) (media.IDs, error) {
	var out media.IDs
	for _, t := range idTypes {
		tl := r.votes[t]
		cur := current.Get(t)

		best, bestCount, bestSeq := "", 0, -1
		for v, n := range tl.count {
			switch {
			case n > bestCount:
				best, bestCount, bestSeq = v, n, tl.last[v]
			case n == bestCount && tl.last[v] > bestSeq:
				best, bestSeq = v, tl.last[v]
			}
		}
		if bestCount > 0 && cur != "" && cur != best && tl.count[cur] == bestCount {
			best = cur
		}
		if best == "" {
			best = cur
		}
		out.Set(t, best)
	}
	if out.Empty() {
		return out, ErrUnresolvable
	}
	return out, nil
}

// Apply resolves the consensus for e, replacing its identifiers. When the
// request was seeded by an IMDb id that the consensus replaced, the seed is
// kept as the entity's IMDb alias.
func (r *Resolver) Apply(e *media.Entity, seed media.IDs) error {
	resolved, err := r.Resolve(seed.Fill(e.IDs))
	if err != nil {
		return err
	}
	e.IDs = resolved
	if seed.IMDb != "" && seed.IMDb != resolved.IMDb {
		e.IMDbAlias = seed.IMDb
	}
	return nil
}
