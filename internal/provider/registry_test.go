package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Digital-Shane/metaweave/internal/media"
	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// MockProvider is a test provider implementation
type MockProvider struct {
	name         string
	capabilities Capabilities
	fetchFunc    func(context.Context, Request) (Result, error)
	usage        float64
	configured   bool
}

func (m *MockProvider) Name() string        { return m.name }
func (m *MockProvider) Description() string { return "Mock provider for testing" }
func (m *MockProvider) Capabilities() Capabilities {
	return m.capabilities
}
func (m *MockProvider) Configure(config map[string]interface{}) error {
	m.configured = true
	return nil
}
func (m *MockProvider) Metadata(ctx context.Context, req Request) (Result, error) {
	if m.fetchFunc != nil {
		return m.fetchFunc(ctx, req)
	}
	return Result{}, nil
}
func (m *MockProvider) Usage() float64 { return m.usage }

type mockDiscoverer struct {
	MockProvider
}

func (m *mockDiscoverer) Discover(context.Context, DiscoverRequest) ([]*media.Entity, error) {
	return nil, nil
}
func (m *mockDiscoverer) Search(context.Context, media.Kind, string, int) ([]*media.Entity, error) {
	return nil, nil
}
func (m *mockDiscoverer) List(context.Context, ListRequest) ([]*media.Entity, error) {
	return nil, nil
}
func (m *mockDiscoverer) Person(context.Context, media.Kind, string) ([]*media.Entity, error) {
	return nil, nil
}
func (m *mockDiscoverer) Release(context.Context, ReleaseRequest) ([]*media.Entity, error) {
	return nil, nil
}

func movieCaps() Capabilities {
	return Capabilities{Kinds: []media.Kind{media.KindMovie}, Sections: []Section{SectionSummary}}
}

func TestRegistry_Register(t *testing.T) {
	registry := NewRegistry()
	mock := &MockProvider{name: "test", capabilities: movieCaps()}

	if err := registry.Register("test", mock, 100); err != nil {
		t.Errorf("Register() error = %v, want nil", err)
	}
	if err := registry.Register("test", mock, 100); err == nil {
		t.Error("Register() expected error for duplicate, got nil")
	}
	if err := registry.Register("bad", &MockProvider{name: "bad"}, 1); err == nil {
		t.Error("Register() expected error for empty capabilities, got nil")
	}
}

func TestRegistry_GetAndEnabled(t *testing.T) {
	registry := NewRegistry()
	mock := &MockProvider{name: "test", capabilities: movieCaps()}
	registry.Register("test", mock, 100)

	if p, exists := registry.Get("test"); !exists || p == nil {
		t.Error("Get() did not return registered provider")
	}
	if _, exists := registry.Get("nonexistent"); exists {
		t.Error("Get() exists = true, want false")
	}
	if _, ok := registry.Enabled("test"); ok {
		t.Error("Enabled() true before Enable")
	}
	if err := registry.Enable("test"); err != nil {
		t.Fatalf("Enable() error = %v", err)
	}
	if _, ok := registry.Enabled("test"); !ok {
		t.Error("Enabled() false after Enable")
	}
	registry.Disable("test")
	if _, ok := registry.Enabled("test"); ok {
		t.Error("Enabled() true after Disable")
	}
}

func TestRegistry_ListOrder(t *testing.T) {
	registry := NewRegistry()
	registry.Register("low", &MockProvider{name: "low", capabilities: movieCaps()}, 50)
	registry.Register("high", &MockProvider{name: "high", capabilities: movieCaps()}, 100)
	registry.Register("mid", &MockProvider{name: "mid", capabilities: movieCaps()}, 75)

	if diff := cmp.Diff([]string{"high", "mid", "low"}, registry.List()); diff != "" {
		t.Errorf("List() mismatch (-want +got):\n%s", diff)
	}

	registry.Enable("low")
	registry.Enable("high")
	if diff := cmp.Diff([]string{"high", "low"}, registry.EnabledNames()); diff != "" {
		t.Errorf("EnabledNames() mismatch (-want +got):\n%s", diff)
	}
}

func TestRegistry_EnableRequiresConfig(t *testing.T) {
	registry := NewRegistry()
	caps := movieCaps()
	caps.RequiresAuth = true
	mock := &MockProvider{name: "auth", capabilities: caps}
	registry.Register("auth", mock, 10)

	if err := registry.Enable("auth"); err == nil {
		t.Error("Enable() expected error without configuration")
	}
	if err := registry.Configure("auth", map[string]interface{}{"api_key": "k"}); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}
	if !mock.configured {
		t.Error("Provider not configured")
	}
	if err := registry.Enable("auth"); err != nil {
		t.Errorf("Enable() error = %v after configure", err)
	}
	if err := registry.Configure("nonexistent", nil); err == nil {
		t.Error("Configure() expected error for nonexistent provider, got nil")
	}
}

func TestRegistry_UsageAndDiscoverers(t *testing.T) {
	registry := NewRegistry()
	registry.Register("a", &MockProvider{name: "a", capabilities: movieCaps(), usage: 0.3}, 10)
	registry.Register("b", &mockDiscoverer{MockProvider{name: "b", capabilities: movieCaps(), usage: 0.9}}, 20)
	registry.Enable("a")

	if got := registry.Usage("b"); got != 0 {
		t.Errorf("Usage(b) = %v while disabled, want 0", got)
	}
	if got := registry.GlobalUsage(); got != 0.3 {
		t.Errorf("GlobalUsage() = %v, want 0.3", got)
	}
	if n := len(registry.Discoverers()); n != 0 {
		t.Errorf("Discoverers() = %d, want 0", n)
	}

	registry.Enable("b")
	if got := registry.GlobalUsage(); got != 0.9 {
		t.Errorf("GlobalUsage() = %v, want 0.9", got)
	}
	if n := len(registry.Discoverers()); n != 1 {
		t.Errorf("Discoverers() = %d, want 1", n)
	}
}

func TestValidateCapabilities(t *testing.T) {
	tests := map[string]struct {
		caps    Capabilities
		wantErr bool
	}{
		"valid":        {caps: movieCaps()},
		"no kinds":     {caps: Capabilities{Sections: []Section{SectionSummary}}, wantErr: true},
		"no sections":  {caps: Capabilities{Kinds: []media.Kind{media.KindMovie}}, wantErr: true},
		"unknown kind": {caps: Capabilities{Kinds: []media.Kind{"album"}, Sections: []Section{SectionSummary}}, wantErr: true},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			err := ValidateCapabilities(tc.caps)
			if (err != nil) != tc.wantErr {
				t.Errorf("ValidateCapabilities() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestCapabilitiesSupports(t *testing.T) {
	caps := Capabilities{
		Kinds:    []media.Kind{media.KindShow, media.KindPack},
		Sections: []Section{SectionSummary, SectionPack},
	}
	if !caps.Supports(media.KindPack, SectionPack) {
		t.Error("Supports(pack, pack) = false")
	}
	if caps.Supports(media.KindMovie, SectionSummary) {
		t.Error("Supports(movie, summary) = true")
	}
	if caps.Supports(media.KindShow, SectionImages) {
		t.Error("Supports(show, images) = true")
	}
}

func TestProviderError(t *testing.T) {
	err := &ProviderError{
		Provider:   "tmdb",
		Code:       CodeRateLimited,
		Message:    "API rate limit exceeded",
		Retry:      true,
		RetryAfter: 10,
	}

	if !cmp.Equal(err.Error(), "API rate limit exceeded") {
		t.Errorf("Error() = %s, want 'API rate limit exceeded'", err.Error())
	}
	if !err.Transient() || !IsTransient(err) {
		t.Error("rate limit should be transient")
	}
	if !errors.Is(Unsupported("tmdb", "lists"), ErrUnsupported) {
		t.Error("Unsupported() does not match ErrUnsupported")
	}
	if !IsNotFound(NotFound("tvdb", "episode %d", 3)) {
		t.Error("NotFound() not recognized")
	}
}

func TestMapError(t *testing.T) {
	tests := map[string]struct {
		err  error
		code string
	}{
		"auth":        {err: errors.New("401 Unauthorized"), code: CodeAuthFailed},
		"rate":        {err: errors.New("Request limit reached!"), code: CodeRateLimited},
		"not found":   {err: errors.New("Movie not found!"), code: CodeNotFound},
		"unavailable": {err: errors.New("503 service unavailable"), code: CodeUnavailable},
		"network":     {err: errors.New("dial tcp: connection refused"), code: CodeNetwork},
		"other":       {err: errors.New("weird"), code: CodeUnknown},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			if got := Code(MapError("x", tc.err)); got != tc.code {
				t.Errorf("MapError() code = %s, want %s", got, tc.code)
			}
		})
	}
	if err := MapError("x", context.Canceled); !errors.Is(err, context.Canceled) {
		t.Errorf("MapError(context.Canceled) = %v", err)
	}
}

func TestCallUsesRequestCacheAndPurges(t *testing.T) {
	base := NewBase("unit", 100, time.Minute, time.Minute)
	ctx := context.Background()
	calls := 0

	fetch := func(context.Context) (string, error) {
		calls++
		return "payload", nil
	}
	for i := 0; i < 2; i++ {
		v, err := Call(ctx, base, "unit:movie:1:x", "unit:movie:1:", fetch)
		if err != nil || v != "payload" {
			t.Fatalf("Call() = %q, %v", v, err)
		}
	}
	if calls != 1 {
		t.Errorf("fetch calls = %d, want 1", calls)
	}

	before := testutil.ToFloat64(requestsTotal.WithLabelValues("unit", "unavailable"))
	_, err := Call(ctx, base, "unit:movie:1:y", "unit:movie:1:", func(context.Context) (string, error) {
		return "", &ProviderError{Provider: "unit", Code: CodeNetwork, Message: "reset"}
	})
	if err == nil {
		t.Fatal("expected network error")
	}
	if base.Cache().Len() != 0 {
		t.Errorf("request cache not purged: %d entries", base.Cache().Len())
	}
	after := testutil.ToFloat64(requestsTotal.WithLabelValues("unit", "unavailable"))
	if after-before != 1 {
		t.Errorf("unavailable counter delta = %v, want 1", after-before)
	}
	if base.Usage() <= 0 {
		t.Error("Usage() should reflect consumed budget")
	}
}
