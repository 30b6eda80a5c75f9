package cmd

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/Digital-Shane/metaweave/internal/config"
	configui "github.com/Digital-Shane/metaweave/internal/tui/config"
	"github.com/Digital-Shane/metaweave/internal/tui/theme"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configOverwrite bool

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with the defaults",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolvedConfigPath()
		if err != nil {
			return err
		}
		_, exists, err := config.Load(path)
		if err != nil && !configOverwrite {
			return err
		}
		if exists && !configOverwrite {
			return fmt.Errorf("%s already exists; pass --overwrite to replace it", path)
		}
		cfg := config.Default()
		if err := cfg.Save(path); err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
		return err
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), cfg)
		}
		data, err := toml.Marshal(cfg)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file location",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolvedConfigPath()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), path)
		return err
	},
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit providers, menus and batch settings interactively",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolvedConfigPath()
		if err != nil {
			return err
		}
		cfg, _, err := config.Load(path)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		model := configui.New(cfg, path, theme.Default())
		if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
			return fmt.Errorf("failed to run config UI: %w", err)
		}
		return nil
	},
}

func resolvedConfigPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	return config.DefaultPath()
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and prune the metadata cache",
}

var cacheDeleteCmd = &cobra.Command{
	Use:   "delete KIND ID...",
	Short: "Remove cached entries so the next lookup fetches them again",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind := mediaKind(args[0])
		if !kind.Valid() {
			return fmt.Errorf("invalid kind %q", args[0])
		}
		refs, err := parseRefs(kind, args[1:])
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app) error {
			var errs []error
			for _, ref := range refs {
				if err := a.cache.Delete(ctx, ref); err != nil {
					errs = append(errs, fmt.Errorf("%s: %w", formatIDs(ref.IDs), err))
					continue
				}
				fmt.Fprintf(a.out, "Deleted %s %s\n", ref.Kind, formatIDs(ref.IDs))
			}
			return errors.Join(errs...)
		})
	},
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats KIND ID...",
	Short: "Look titles up and report how much came from the cache",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind := mediaKind(args[0])
		if !kind.Valid() {
			return fmt.Errorf("invalid kind %q", args[0])
		}
		refs, err := parseRefs(kind, args[1:])
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app) error {
			if _, err := a.o.Metadata(ctx, kind, refs, options()); err != nil {
				return err
			}
			stats := a.o.Stats()
			if jsonOutput {
				return writeJSON(a.out, stats)
			}
			rows := [][]string{
				{"requested", fmt.Sprint(stats.Requested)},
				{"cached", fmt.Sprint(stats.Cached)},
				{"fetched", fmt.Sprint(stats.Fetched)},
				{"partial", fmt.Sprint(stats.Partial)},
				{"dropped", fmt.Sprint(stats.Dropped)},
				{"failed", fmt.Sprint(stats.Failed)},
			}
			if err := writeTable(a.out, []string{"COUNTER", "VALUE"}, rows); err != nil {
				return err
			}
			for _, f := range a.o.Failures() {
				fmt.Fprintf(a.out, "failure: %s %s: %v\n", f.Provider, f.Section, f.Err)
			}
			return nil
		})
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configOverwrite, "overwrite", false, "Replace an existing file")
	configCmd.AddCommand(configInitCmd, configShowCmd, configPathCmd, configEditCmd)
	cacheCmd.AddCommand(cacheDeleteCmd, cacheStatsCmd)
	rootCmd.AddCommand(configCmd, cacheCmd)
}
