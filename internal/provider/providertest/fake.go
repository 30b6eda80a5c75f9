// Package providertest offers a scriptable provider for tests of the
// orchestration layers.
package providertest

import (
	"context"
	"sort"
	"sync"

	"github.com/Digital-Shane/metaweave/internal/media"
	"github.com/Digital-Shane/metaweave/internal/provider"
)

// Handler answers one sub-request.
type Handler func(ctx context.Context, request provider.Request) (provider.Result, error)

// Fake is a provider whose answers are set per kind and section. Unset
// combinations answer NOT_FOUND.
type Fake struct {
	name     string
	caps     provider.Capabilities
	mu       sync.Mutex
	handlers map[string]Handler
	calls    []provider.Request
	usage    float64

	Lists map[string][]*media.Entity
}

// New returns a fake provider with the given capabilities.
func New(name string, caps provider.Capabilities) *Fake {
	return &Fake{name: name, caps: caps, handlers: make(map[string]Handler), Lists: make(map[string][]*media.Entity)}
}

func key(kind media.Kind, section provider.Section) string {
	return string(kind) + "/" + string(section)
}

// Handle sets the handler for kind and section.
func (f *Fake) Handle(kind media.Kind, section provider.Section, h Handler) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[key(kind, section)] = h
	return f
}

// Entity answers kind and section with a copy of e.
func (f *Fake) Entity(kind media.Kind, section provider.Section, e *media.Entity) *Fake {
	return f.Handle(kind, section, func(context.Context, provider.Request) (provider.Result, error) {
		return provider.Result{Complete: true, Entity: e.Clone()}, nil
	})
}

// Document answers pack requests with doc.
func (f *Fake) Document(doc *media.PackDocument) *Fake {
	return f.Handle(media.KindPack, provider.SectionPack, func(context.Context, provider.Request) (provider.Result, error) {
		return provider.Result{Complete: true, Document: doc}, nil
	})
}

// Fail answers kind and section with err.
func (f *Fake) Fail(kind media.Kind, section provider.Section, err error) *Fake {
	return f.Handle(kind, section, func(context.Context, provider.Request) (provider.Result, error) {
		return provider.Result{}, err
	})
}

// SetUsage sets the value Usage reports.
func (f *Fake) SetUsage(u float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.usage = u
}

// Calls returns the requests received so far.
func (f *Fake) Calls() []provider.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]provider.Request(nil), f.calls...)
}

// Sections returns the distinct sections requested for kind, sorted.
func (f *Fake) Sections(kind media.Kind) []provider.Section {
	seen := make(map[provider.Section]bool)
	for _, c := range f.Calls() {
		if c.Kind == kind {
			seen[c.Section] = true
		}
	}
	out := make([]provider.Section, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Reset forgets recorded calls.
func (f *Fake) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

func (f *Fake) Name() string                        { return f.name }
func (f *Fake) Description() string                 { return "scripted " + f.name }
func (f *Fake) Capabilities() provider.Capabilities { return f.caps }
func (f *Fake) Configure(map[string]interface{}) error {
	return nil
}

func (f *Fake) Usage() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.usage
}

// Metadata dispatches to the handler for the request kind and section.
func (f *Fake) Metadata(ctx context.Context, request provider.Request) (provider.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, request)
	h := f.handlers[key(request.Kind, request.Section)]
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return provider.Result{}, err
	}
	if h == nil {
		return provider.Result{}, provider.NotFound(f.name, "%s %s not scripted", request.Kind, request.Section)
	}
	return h(ctx, request)
}

// Discover returns Lists["discover/<list>"].
func (f *Fake) Discover(_ context.Context, request provider.DiscoverRequest) ([]*media.Entity, error) {
	return f.list("discover/" + request.List)
}

// Search returns Lists["search/<query>"].
func (f *Fake) Search(_ context.Context, _ media.Kind, query string, _ int) ([]*media.Entity, error) {
	return f.list("search/" + query)
}

// List returns Lists["list/<slug>"].
func (f *Fake) List(_ context.Context, request provider.ListRequest) ([]*media.Entity, error) {
	return f.list("list/" + request.Slug)
}

// Person returns Lists["person/<query>"].
func (f *Fake) Person(_ context.Context, _ media.Kind, query string) ([]*media.Entity, error) {
	return f.list("person/" + query)
}

// Release returns Lists["release/<stage>"].
func (f *Fake) Release(_ context.Context, request provider.ReleaseRequest) ([]*media.Entity, error) {
	return f.list("release/" + request.Stage)
}

func (f *Fake) list(name string) ([]*media.Entity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	items, ok := f.Lists[name]
	if !ok {
		return nil, provider.Unsupported(f.name, name)
	}
	out := make([]*media.Entity, len(items))
	for i, e := range items {
		out[i] = e.Clone()
	}
	return out, nil
}

// Caps is a shorthand for building capabilities.
func Caps(priority int, kinds []media.Kind, sections ...provider.Section) provider.Capabilities {
	return provider.Capabilities{Kinds: kinds, Sections: sections, Priority: priority}
}
