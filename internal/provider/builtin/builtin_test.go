package builtin

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/Digital-Shane/metaweave/internal/config"
	"github.com/Digital-Shane/metaweave/internal/provider"
)

func TestLoad(t *testing.T) {
	cfg := config.Default()
	cfg.Providers.Trakt.APIKey = "client"
	cfg.Providers.Fanart.APIKey = "fanart"
	cfg.Providers.IMDb.APIKey = "omdb"
	cfg.Providers.IMDb.Enabled = false

	reg := provider.NewRegistry()
	require.NoError(t, Load(reg, &cfg, nil))

	if diff := cmp.Diff([]string{"trakt", "tmdb", "tvdb", "imdb", "fanart"}, reg.List()); diff != "" {
		t.Errorf("registered providers mismatch (-want +got):\n%s", diff)
	}
	// TMDb and TVDb have no key, IMDb is switched off.
	if diff := cmp.Diff([]string{"trakt", "fanart"}, reg.EnabledNames()); diff != "" {
		t.Errorf("enabled providers mismatch (-want +got):\n%s", diff)
	}
	require.Len(t, reg.Discoverers(), 1)
}

func TestLoadTwiceFails(t *testing.T) {
	reg := provider.NewRegistry()
	require.NoError(t, Load(reg, nil, nil))
	require.Error(t, Load(reg, nil, nil))
	require.Empty(t, reg.EnabledNames())
}
