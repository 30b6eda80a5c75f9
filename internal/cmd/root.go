package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "metaweave",
	Short: "Aggregate and cache movie and TV metadata",
	Long: `metaweave gathers movie, collection, show, season and episode metadata
from Trakt, TMDb, TVDb, IMDb and Fanart, merges it into one document per title
and keeps it in a local cache.

Besides direct lookups it serves discovery menus, personal smart lists built
from your playback history, and bulk generation runs that back off when the
providers get busy.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

var (
	configPath  string
	logLevel    string
	logFormat   string
	jsonOutput  bool
	detail      string
	force       bool
	metricsAddr string
)

func init() {
	// Global flags for all commands
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Configuration file (default ~/.metaweave/config.toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: trace, debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: console or json")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print results as JSON")
	rootCmd.PersistentFlags().StringVar(&detail, "detail", "", "Detail level: minimal, standard or extended")
	rootCmd.PersistentFlags().BoolVarP(&force, "force", "f", false, "Refresh cached data before answering")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "Serve provider metrics on this address while the command runs")
}
