package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/Digital-Shane/metaweave/internal/batch"
	"github.com/Digital-Shane/metaweave/internal/log"
	"github.com/Digital-Shane/metaweave/internal/media"
	"github.com/Digital-Shane/metaweave/internal/playback"
	"github.com/Digital-Shane/metaweave/internal/tui/progress"
	"github.com/Digital-Shane/metaweave/internal/tui/theme"
)

var (
	batchKind    string
	batchFile    string
	batchHistory bool
	batchPlain   bool
)

var batchCmd = &cobra.Command{
	Use:   "batch [ID...]",
	Short: "Generate metadata for many titles",
	Long: `Fetch and cache full metadata for a list of titles.

Titles come from the arguments (all of --kind), from a file with one
"kind id" pair per line (--file), or from every movie and show in your
playback history (--history). Fetching pauses whenever provider usage
crosses the configured stop threshold and resumes once it drops below the
start threshold.

Each run writes a journal to the log directory; see "metaweave runs".`,
	RunE: runBatch,
}

func runBatch(cmd *cobra.Command, args []string) error {
	kind := mediaKind(batchKind)
	if !kind.Valid() {
		return fmt.Errorf("invalid --kind %q", batchKind)
	}
	items, err := parseRefs(kind, args)
	if err != nil {
		return err
	}
	if batchFile != "" {
		fromFile, err := readBatchFile(batchFile)
		if err != nil {
			return err
		}
		items = append(items, fromFile...)
	}

	return withApp(cmd, func(ctx context.Context, a *app) error {
		if batchHistory {
			items = append(items, historyRefs(ctx, a.history)...)
		}
		if len(items) == 0 {
			return errors.New("nothing to generate: pass identifiers, --file or --history")
		}

		if removed, err := log.CleanupOldJournals(a.cfg.Logging.Dir, a.cfg.Logging.RetentionDays, time.Now()); err != nil {
			a.logger.Warn("journal cleanup failed", "error", err)
		} else if removed > 0 {
			a.logger.Debug("removed old journals", "count", removed)
		}
		journal := log.NewJournal(a.cfg.Logging.Dir, "batch", args)

		ctrl, err := batch.New(batch.Config{
			Orchestrator: a.o,
			Items:        items,
			Start:        a.cfg.Batch.Start,
			Stop:         a.cfg.Batch.Stop,
			Interval:     time.Duration(a.cfg.Batch.IntervalSeconds) * time.Second,
			Journal:      journal,
			Logger:       a.logger.Named("batch"),
		})
		if err != nil {
			return err
		}

		var runErr error
		if interactive(a.out) && !batchPlain {
			runErr = runBatchTUI(ctrl)
		} else {
			runErr = runBatchPlain(ctx, ctrl, a.out)
		}

		path, err := journal.Close()
		if err != nil {
			a.logger.Warn("failed to write journal", "error", err)
		}
		final := ctrl.Snapshot()
		fmt.Fprintf(a.out, "%s: %d processed, %d failed, %d cool-downs\n", final.Status, final.Processed, final.Failed, final.Cooldowns)
		if path != "" {
			fmt.Fprintf(a.out, "Journal: %s\n", path)
		}
		return runErr
	})
}

func interactive(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func runBatchTUI(ctrl *batch.Controller) error {
	model := progress.NewBatchModel(ctrl, theme.Default())
	final, err := tea.NewProgram(model, tea.WithAltScreen()).Run()
	if err != nil {
		return err
	}
	if m, ok := final.(*progress.BatchModel); ok {
		return m.Err()
	}
	return nil
}

// runBatchPlain prints one line per status change or tenth of progress.
func runBatchPlain(ctx context.Context, ctrl *batch.Controller, w io.Writer) error {
	var (
		lastStatus string
		lastTenth  = -1
		runErr     error
	)
	for evt := range ctrl.Start(ctx) {
		if evt.Err != nil {
			runErr = evt.Err
			continue
		}
		p := evt.Progress
		tenth := int(p.Progress * 10)
		if p.Status == lastStatus && tenth == lastTenth {
			continue
		}
		lastStatus, lastTenth = p.Status, tenth
		fmt.Fprintf(w, "[%3.0f%%] %-8s %d/%d usage %.0f%% %s\n", 100*p.Progress, p.Status, p.Processed, p.Total, 100*p.Usage.Global, p.Detail)
	}
	return runErr
}

// readBatchFile reads "kind id" lines. Blank lines and lines starting with
// # are skipped.
func readBatchFile(path string) ([]media.Ref, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open batch file: %w", err)
	}
	defer f.Close()
	return parseBatchLines(f)
}

func parseBatchLines(r io.Reader) ([]media.Ref, error) {
	var refs []media.Ref
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != 2 {
			return nil, fmt.Errorf("line %d: want \"kind id\", got %q", line, text)
		}
		kind := mediaKind(fields[0])
		if !kind.Valid() {
			return nil, fmt.Errorf("line %d: invalid kind %q", line, fields[0])
		}
		ref, err := parseRef(kind, fields[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		refs = append(refs, ref)
	}
	return refs, scanner.Err()
}

// historyRefs lists every movie and show in the playback history.
func historyRefs(ctx context.Context, history *playback.Store) []media.Ref {
	var refs []media.Ref
	for _, kind := range []media.Kind{media.KindMovie, media.KindShow} {
		items, err := history.Items(ctx, kind, playback.Filter{History: true, Progress: true, Rating: true})
		if err != nil {
			continue
		}
		for _, it := range items {
			refs = append(refs, media.Ref{Kind: kind, IDs: it.IDs, Title: it.Title, Year: it.Year})
		}
	}
	return refs
}

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent batch runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		runs, err := log.ReadRuns(cfg.Logging.Dir, runsLimit)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if jsonOutput {
			return writeJSON(out, runs)
		}
		if len(runs) == 0 {
			_, err := fmt.Fprintln(out, "No batch runs found.")
			return err
		}
		rows := make([][]string, 0, len(runs))
		for _, run := range runs {
			m := run.Metadata
			rows = append(rows, []string{
				m.Timestamp.Local().Format("2006-01-02 15:04"),
				fmt.Sprint(m.Total),
				fmt.Sprint(m.Failed),
				fmt.Sprint(m.Cooldowns),
				fmt.Sprintf("%.0f%%", 100*m.PeakUsage),
				strings.Join(m.CommandArgs, " "),
			})
		}
		return writeTable(out, []string{"STARTED", "TOTAL", "FAILED", "COOL-DOWNS", "PEAK", "COMMAND"}, rows)
	},
}

func init() {
	batchCmd.Flags().StringVarP(&batchKind, "kind", "k", string(media.KindMovie), "Kind of the identifiers given as arguments")
	batchCmd.Flags().StringVar(&batchFile, "file", "", "Read \"kind id\" lines from this file")
	batchCmd.Flags().BoolVar(&batchHistory, "history", false, "Add every movie and show of the playback history")
	batchCmd.Flags().BoolVar(&batchPlain, "plain", false, "Print progress lines instead of the interactive view")
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 10, "Number of runs to list")

	rootCmd.AddCommand(batchCmd, runsCmd)
}
