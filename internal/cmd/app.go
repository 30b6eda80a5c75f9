package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/Digital-Shane/metaweave/internal/cache"
	"github.com/Digital-Shane/metaweave/internal/config"
	"github.com/Digital-Shane/metaweave/internal/core"
	"github.com/Digital-Shane/metaweave/internal/hardware"
	"github.com/Digital-Shane/metaweave/internal/image"
	"github.com/Digital-Shane/metaweave/internal/log"
	"github.com/Digital-Shane/metaweave/internal/menu"
	"github.com/Digital-Shane/metaweave/internal/playback"
	"github.com/Digital-Shane/metaweave/internal/provider"
	"github.com/Digital-Shane/metaweave/internal/provider/builtin"
)

// newRegistry builds the provider registry. Tests replace it with fakes.
var newRegistry = func(cfg *config.Config, logger hclog.Logger) (*provider.Registry, error) {
	reg := provider.NewRegistry()
	if err := builtin.Load(reg, cfg, logger); err != nil {
		return nil, err
	}
	return reg, nil
}

// hostRater rates the machine. Tests pin it.
var hostRater = func() hardware.Rater { return hardware.NewHost() }

// app holds everything a command needs. Close releases it.
type app struct {
	cfg     *config.Config
	logger  hclog.Logger
	cache   *cache.Cache
	history *playback.Store
	o       *core.Orchestrator
	menu    *menu.Menu
	out     io.Writer
	metrics *http.Server
}

// loadConfig reads the configuration and applies the global flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, _, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFormat != "" {
		cfg.Logging.Format = logFormat
	}
	if detail != "" {
		cfg.Menu.Detail = detail
	}
	return cfg, nil
}

// openApp wires the cache, providers, playback history and orchestrator.
func openApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger := log.New(log.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cmd.ErrOrStderr(),
	})

	opts, err := cfg.CacheOptions()
	if err != nil {
		return nil, err
	}
	opts.Logger = logger.Named("cache")
	c, err := cache.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}

	reg, err := newRegistry(cfg, logger.Named("provider"))
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	history, err := playback.Open(cfg.Playback.Path)
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to open playback history: %w", err)
	}

	o, err := core.New(core.Config{
		Cache:    c,
		Registry: reg,
		Settings: cfg,
		Playback: history,
		Images:   image.NewDefault(cfg.Menu.Language),
		Hardware: hostRater(),
		Logger:   logger.Named("core"),
		Shared:   true,
	})
	if err != nil {
		_ = c.Close()
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		logger:  logger,
		cache:   c,
		history: history,
		o:       o,
		menu:    menu.New(o, nil, logger.Named("menu")),
		out:     cmd.OutOrStdout(),
	}
	if metricsAddr != "" {
		a.serveMetrics(metricsAddr)
	}
	logger.Debug("ready", "providers", reg.EnabledNames(), "rating", o.Rating())
	return a, nil
}

func (a *app) serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	a.metrics = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := a.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Warn("metrics server stopped", "addr", addr, "error", err)
		}
	}()
}

// Close waits for background refreshes and closes the cache.
func (a *app) Close() error {
	a.o.Wait()
	if a.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_ = a.metrics.Shutdown(ctx)
		cancel()
	}
	return a.cache.Close()
}

// options returns the orchestrator options of the global flags.
func options() core.Options {
	return core.Options{Force: force}
}

// withApp opens the app, runs fn and closes it.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	runErr := fn(cmd.Context(), a)
	if err := a.Close(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}
