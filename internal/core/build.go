package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Digital-Shane/metaweave/internal/cache"
	"github.com/Digital-Shane/metaweave/internal/concurrency"
	"github.com/Digital-Shane/metaweave/internal/ids"
	"github.com/Digital-Shane/metaweave/internal/media"
	"github.com/Digital-Shane/metaweave/internal/merge"
	"github.com/Digital-Shane/metaweave/internal/pack"
	"github.com/Digital-Shane/metaweave/internal/provider"
)

const (
	// maxFail bounds the retries of a partial record. Once reached, the
	// record is stored as it is until the next regular refresh.
	maxFail = 3
	// subRequests is the number of concurrent provider calls per item.
	subRequests = 4
)

// partData is the stored contribution of one provider.
type partData struct {
	Entities  []*media.Entity       `json:"entities,omitempty"`
	Documents []*media.PackDocument `json:"documents,omitempty"`
}

// contribution is what one provider delivered for an item.
type contribution struct {
	provider string
	complete bool
	reused   bool
	data     partData
}

// outcome is the result of one sub-request.
type outcome struct {
	result provider.Result
	err    error
}

// build runs the plan for one item and merges the results. Providers that
// completed during the previous attempt of an incomplete record are reused
// from its part record.
func (o *Orchestrator) build(ctx context.Context, kind media.Kind, rec cache.Record, detail provider.Detail, opts Options) (*media.Entity, error) {
	ref := rec.Ref
	steps := o.plan(kind, detail)
	names := providers(steps)

	var previous media.Part
	fail := 0
	if rec.Entity != nil && rec.Status == cache.StatusIncomplete && !o.force.Load() && !opts.Force {
		previous = rec.Entity.Part
		fail = rec.Entity.Fail
	}

	// While required images are missing, the image providers are asked again.
	imaging := make(map[string]bool)
	if previous != nil && len(merge.MissingImages(rec.Entity)) > 0 {
		for _, s := range steps {
			if s.section == provider.SectionImages {
				imaging[s.provider] = true
			}
		}
	}

	contribs := make(map[string]*contribution, len(names))
	for _, name := range names {
		c := &contribution{provider: name, complete: true}
		if entry, ok := previous[name]; ok && entry.Complete && !imaging[name] {
			if err := json.Unmarshal(entry.Data, &c.data); err == nil {
				c.reused = true
			} else {
				o.logger.Debug("discarding unreadable part", "provider", name, "error", err)
				c.data = partData{}
			}
		}
		contribs[name] = c
	}

	var pending []planned
	for _, s := range steps {
		c := contribs[s.provider]
		switch {
		case c.reused:
		case s.disabled:
			c.complete = false
		default:
			pending = append(pending, s)
		}
	}

	outcomes := make([]outcome, len(pending))
	err := concurrency.Each(ctx, len(pending), subRequests, func(ctx context.Context, i int) error {
		res, err := o.call(ctx, kind, ref, pending[i].step, detail)
		outcomes[i] = outcome{result: res, err: err}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for i, s := range pending {
		c := contribs[s.provider]
		out := outcomes[i]
		if out.err != nil {
			if provider.IsNotFound(out.err) || errors.Is(out.err, provider.ErrUnsupported) {
				continue
			}
			c.complete = false
			o.recordFailure(Failure{Ref: ref, Provider: s.provider, Section: s.section, Err: out.err})
			o.logger.Debug("sub-request incomplete", "provider", s.provider, "section", s.section, "ref", describe(ref), "error", out.err)
			continue
		}
		if !out.result.Complete {
			c.complete = false
		}
		if out.result.Entity != nil {
			c.data.Entities = append(c.data.Entities, out.result.Entity)
		}
		if out.result.Document != nil {
			c.data.Documents = append(c.data.Documents, out.result.Document)
		}
	}

	var (
		e   *media.Entity
		got bool
	)
	if kind == media.KindPack {
		e, got, err = o.assemblePack(ref, names, contribs)
	} else {
		e, got, err = o.assemble(kind, ref, names, contribs, opts)
	}
	if err != nil {
		return nil, err
	}
	if !got {
		for _, c := range contribs {
			if !c.complete {
				return nil, fmt.Errorf("no provider answered for %s", describe(ref))
			}
		}
		return nil, ids.ErrUnresolvable
	}

	track(e, names, contribs, fail)
	return e, nil
}

// call issues one sub-request. A provider that panics is treated like one
// that returned an error.
func (o *Orchestrator) call(ctx context.Context, kind media.Kind, ref media.Ref, s step, detail provider.Detail) (res provider.Result, err error) {
	p, ok := o.registry.Enabled(s.provider)
	if !ok {
		return provider.Result{}, provider.ErrNotConfigured
	}
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("provider returned an unexpected structure", "provider", s.provider, "section", s.section, "panic", r)
			err = fmt.Errorf("%s %s: %v", s.provider, s.section, r)
		}
	}()
	return p.Metadata(ctx, provider.Request{
		Kind:     kind,
		Section:  s.section,
		IDs:      ref.IDs,
		Title:    ref.Title,
		Year:     ref.Year,
		Season:   ref.Season,
		Episode:  ref.Episode,
		Language: o.settings.Language(),
		Detail:   detail,
	})
}

// assemble merges the entity contributions and resolves identifiers. The
// boolean is false when no provider returned anything.
func (o *Orchestrator) assemble(kind media.Kind, ref media.Ref, names []string, contribs map[string]*contribution, opts Options) (*media.Entity, bool, error) {
	var sources []merge.Source
	for _, name := range names {
		for _, e := range contribs[name].data.Entities {
			if e != nil {
				sources = append(sources, merge.Source{Provider: name, Entity: e})
			}
		}
	}
	if len(sources) == 0 {
		return nil, false, nil
	}

	preferred := ""
	if kind == media.KindEpisode {
		preferred = opts.preferred[media.Number{ref.Season, ref.Episode}]
	}
	e := merge.Merge(kind, merge.Precedence(kind, preferred), sources)

	resolver := ids.New()
	for _, s := range sources {
		resolver.Observe(s.Entity.IDs)
	}

	switch kind {
	case media.KindSeason, media.KindEpisode:
		show := ref.IDs
		if e.ShowIDs != nil {
			show = show.Fill(*e.ShowIDs)
		}
		e.ShowIDs = &show
		if e.ShowTitle == "" {
			e.ShowTitle = ref.Title
		}
		e.Season = ref.Season
		if kind == media.KindEpisode {
			e.Episode = ref.Episode
		}
		// Seasons and episodes are keyed by their show; their own ids are
		// optional.
		if resolved, err := resolver.Resolve(e.IDs); err == nil {
			e.IDs = resolved
		}
	default:
		if err := resolver.Apply(e, ref.IDs); err != nil {
			return nil, false, err
		}
	}

	o.images.Update(e)
	return e, true, nil
}

// assemblePack generates the pack from the provider listings.
func (o *Orchestrator) assemblePack(ref media.Ref, names []string, contribs map[string]*contribution) (*media.Entity, bool, error) {
	var docs []*media.PackDocument
	for _, name := range names {
		for _, doc := range contribs[name].data.Documents {
			if doc != nil && len(doc.Seasons) > 0 {
				if doc.Provider == "" {
					doc.Provider = name
				}
				docs = append(docs, doc)
			}
		}
	}
	if len(docs) == 0 {
		return nil, false, nil
	}

	p, err := pack.Generate(docs, pack.Options{Now: o.now()})
	if err != nil {
		return nil, false, fmt.Errorf("generating pack for %s: %w", describe(ref), err)
	}
	raw, err := p.Encode()
	if err != nil {
		return nil, false, err
	}

	show := ref.IDs.Fill(p.IDs)
	e := &media.Entity{
		Kind:      media.KindPack,
		IDs:       show,
		ShowIDs:   &show,
		Title:     p.Title,
		ShowTitle: ref.Title,
		Count: &media.Count{
			Season:  p.Summary.Count.Seasons,
			Episode: p.Summary.Count.Episodes,
			Special: p.Summary.Count.Specials,
			Aired:   p.Summary.Count.Aired,
		},
		Pack: raw,
	}
	if e.Title == "" {
		e.Title = ref.Title
	}
	if p.Summary.Time[0] > 0 {
		e.SetTime(media.TimePremiere, p.Summary.Time[0])
	}
	for _, name := range names {
		for _, ent := range contribs[name].data.Entities {
			if ent != nil {
				for source, rating := range ent.Voting.Rating {
					e.Voting.Set(source, rating, ent.Voting.Votes[source])
				}
			}
		}
	}
	e.Rating, e.Votes = merge.Rating(e.Voting)
	return e, true, nil
}

// track records the part sub-record of e. The part record is kept while e
// is partial and dropped once it is not, or once the retries run out.
func track(e *media.Entity, names []string, contribs map[string]*contribution, fail int) {
	part := make(media.Part, len(names))
	for _, name := range names {
		c := contribs[name]
		entry := media.PartEntry{Complete: c.complete}
		if c.complete {
			if data, err := json.Marshal(c.data); err == nil {
				entry.Data = data
			}
		}
		part[name] = entry
	}
	e.Part = part
	if !merge.Partial(e) {
		e.Part, e.Fail = nil, 0
		return
	}
	e.Fail = fail + 1
	if e.Fail >= maxFail {
		e.Part = nil
	}
}
