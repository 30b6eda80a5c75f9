// Package builtin registers the bundled providers. It lives apart from
// package provider to avoid import cycles.
package builtin

import (
	"fmt"

	"github.com/hashicorp/go-hclog"

	"github.com/Digital-Shane/metaweave/internal/config"
	"github.com/Digital-Shane/metaweave/internal/provider"
	"github.com/Digital-Shane/metaweave/internal/provider/fanart"
	"github.com/Digital-Shane/metaweave/internal/provider/imdb"
	"github.com/Digital-Shane/metaweave/internal/provider/tmdb"
	"github.com/Digital-Shane/metaweave/internal/provider/trakt"
	"github.com/Digital-Shane/metaweave/internal/provider/tvdb"
)

// Providers returns a fresh instance of every bundled provider.
func Providers() []provider.Provider {
	return []provider.Provider{
		trakt.New(),
		tmdb.New(),
		tvdb.New(),
		imdb.New(),
		fanart.New(),
	}
}

// Load registers every bundled provider into reg, then configures and
// enables the ones cfg turns on. A provider that fails to configure stays
// registered but disabled; no provider is required.
func Load(reg *provider.Registry, cfg *config.Config, logger hclog.Logger) error {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	for _, p := range Providers() {
		name := p.Name()
		if err := reg.Register(name, p, p.Capabilities().Priority); err != nil {
			return fmt.Errorf("failed to register %s provider: %w", name, err)
		}
		if cfg == nil {
			continue
		}
		section, _ := cfg.Provider(name)
		if !section.Enabled {
			continue
		}
		if err := reg.Configure(name, cfg.ProviderSettings(name)); err != nil {
			logger.Warn("provider disabled", "provider", name, "error", err)
			continue
		}
		if err := reg.Enable(name); err != nil {
			logger.Warn("provider disabled", "provider", name, "error", err)
		}
	}
	return nil
}
