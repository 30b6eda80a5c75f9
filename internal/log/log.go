// Package log builds the hclog logger used across the engine and keeps a
// JSON journal per batch run.
package log

import (
	"io"
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"
)

// Options configures New.
type Options struct {
	Name   string
	Level  string
	Format string
	Output io.Writer
}

// New returns a logger. Format "json" switches to JSON lines; unknown levels
// fall back to info.
func New(opts Options) hclog.Logger {
	level := hclog.LevelFromString(opts.Level)
	if level == hclog.NoLevel {
		level = hclog.Info
	}
	output := opts.Output
	if output == nil {
		output = os.Stderr
	}
	name := opts.Name
	if name == "" {
		name = "metaweave"
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:       name,
		Level:      level,
		Output:     output,
		JSONFormat: strings.EqualFold(opts.Format, "json"),
	})
}
