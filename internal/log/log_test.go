package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := map[string]struct {
		opts      Options
		wantJSON  bool
		wantDebug bool
	}{
		"defaults":      {opts: Options{}},
		"json debug":    {opts: Options{Format: "JSON", Level: "debug"}, wantJSON: true, wantDebug: true},
		"unknown level": {opts: Options{Level: "loud"}},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			tc.opts.Output = &buf
			logger := New(tc.opts)
			logger.Debug("debug line", "k", 1)
			logger.Info("info line", "k", 2)

			out := buf.String()
			require.Contains(t, out, "info line")
			require.Equal(t, tc.wantDebug, bytes.Contains(buf.Bytes(), []byte("debug line")))
			if tc.wantJSON {
				first := bytes.SplitN(buf.Bytes(), []byte("\n"), 2)[0]
				var line map[string]any
				require.NoError(t, json.Unmarshal(first, &line))
				require.Equal(t, "metaweave", line["@module"])
			}
		})
	}
}

func TestJournal(t *testing.T) {
	dir := t.TempDir()
	j := NewJournal(dir, "batch", []string{"--kind", "movie"})
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	j.now = func() time.Time { return start }
	j.run.Metadata.Timestamp = start

	j.Record("movie", "tt0133093", nil)
	j.Record("movie", "tt0000001", errors.New("unresolvable"))
	j.Record("show", "tt0944947", nil)
	j.Usage(0.4, false)
	j.Usage(0.9, true)

	path, err := j.Close()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "2024-05-01_120000.000.json"), path)

	run, err := ReadRun(path)
	require.NoError(t, err)
	want := RunMetadata{
		RunID:       j.RunID(),
		CommandArgs: []string{"batch", "--kind", "movie"},
		Timestamp:   start,
		Finished:    start,
		Total:       3,
		Succeeded:   2,
		Failed:      1,
		Kinds:       map[string]int{"movie": 2, "show": 1},
		PeakUsage:   0.9,
		Cooldowns:   1,
	}
	if diff := cmp.Diff(want, run.Metadata); diff != "" {
		t.Errorf("metadata mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, "unresolvable", run.Entries[1].Error)
}

func TestNilJournal(t *testing.T) {
	var j *Journal
	j.Record("movie", "x", nil)
	j.Usage(1, true)
	path, err := j.Close()
	require.NoError(t, err)
	require.Empty(t, path)
	require.Empty(t, j.RunID())
}

func TestReadRunsAndCleanup(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()

	for i, age := range []int{40, 10, 1} {
		run := &Run{Metadata: RunMetadata{RunID: string(rune('a' + i)), Timestamp: now.AddDate(0, 0, -age)}}
		path, err := WriteRun(dir, run)
		require.NoError(t, err)
		old := now.AddDate(0, 0, -age)
		require.NoError(t, os.Chtimes(path, old, old))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "zzz-corrupt.json"), []byte("{"), 0o644))

	runs, err := ReadRuns(dir, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	require.Equal(t, "c", runs[0].Metadata.RunID)

	limited, err := ReadRuns(dir, 2)
	require.NoError(t, err)
	require.Len(t, limited, 1, "the corrupt newest file counts toward the limit")

	removed, err := CleanupOldJournals(dir, 30, now)
	require.NoError(t, err)
	require.Equal(t, 1, removed)

	runs, err = ReadRuns(filepath.Join(dir, "missing"), 0)
	require.NoError(t, err)
	require.Empty(t, runs)
}
