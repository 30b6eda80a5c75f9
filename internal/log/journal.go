package log

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Entry is one processed item of a batch run.
type Entry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Kind      string    `json:"kind"`
	Ref       string    `json:"ref"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
}

// RunMetadata summarizes a batch run.
type RunMetadata struct {
	RunID       string         `json:"run_id"`
	CommandArgs []string       `json:"command_args"`
	Timestamp   time.Time      `json:"timestamp"`
	Finished    time.Time      `json:"finished"`
	Total       int            `json:"total"`
	Succeeded   int            `json:"succeeded"`
	Failed      int            `json:"failed"`
	Kinds       map[string]int `json:"kinds,omitempty"`
	PeakUsage   float64        `json:"peak_usage,omitempty"`
	Cooldowns   int            `json:"cooldowns,omitempty"`
}

// Run is the on-disk journal document.
type Run struct {
	Metadata RunMetadata `json:"metadata"`
	Entries  []Entry     `json:"entries"`
}

// Journal collects the entries of one run and writes them on Close. A nil
// Journal discards everything.
type Journal struct {
	dir string
	now func() time.Time

	mu  sync.Mutex
	run *Run
}

// NewJournal starts a run journal stored under dir.
func NewJournal(dir, command string, args []string) *Journal {
	j := &Journal{dir: dir, now: time.Now}
	j.run = &Run{
		Metadata: RunMetadata{
			RunID:       uuid.NewString(),
			CommandArgs: append([]string{command}, args...),
			Timestamp:   j.now(),
			Kinds:       make(map[string]int),
		},
		Entries: []Entry{},
	}
	return j
}

// RunID returns the run identifier.
func (j *Journal) RunID() string {
	if j == nil {
		return ""
	}
	return j.run.Metadata.RunID
}

// Record appends the outcome of one item.
func (j *Journal) Record(kind, ref string, err error) {
	if j == nil {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	entry := Entry{
		ID:        fmt.Sprintf("%s_%d", j.run.Metadata.RunID, len(j.run.Entries)),
		Timestamp: j.now(),
		Kind:      kind,
		Ref:       ref,
		Success:   err == nil,
	}
	if err != nil {
		entry.Error = err.Error()
	}
	j.run.Entries = append(j.run.Entries, entry)
	j.run.Metadata.Kinds[kind]++
}

// Usage records a global usage sample and whether it triggered a cool-down.
func (j *Journal) Usage(usage float64, cooldown bool) {
	if j == nil {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if usage > j.run.Metadata.PeakUsage {
		j.run.Metadata.PeakUsage = usage
	}
	if cooldown {
		j.run.Metadata.Cooldowns++
	}
}

// Snapshot returns a copy of the run so far with its totals filled in.
func (j *Journal) Snapshot() Run {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.updateStats()

	out := *j.run
	out.Entries = append([]Entry(nil), j.run.Entries...)
	out.Metadata.Kinds = make(map[string]int, len(j.run.Metadata.Kinds))
	for k, v := range j.run.Metadata.Kinds {
		out.Metadata.Kinds[k] = v
	}
	return out
}

// Close writes the journal and returns its path.
func (j *Journal) Close() (string, error) {
	if j == nil {
		return "", nil
	}
	j.mu.Lock()
	j.updateStats()
	j.run.Metadata.Finished = j.now()
	j.mu.Unlock()

	run := j.Snapshot()
	return WriteRun(j.dir, &run)
}

// updateStats fills the totals. Callers hold mu.
func (j *Journal) updateStats() {
	succeeded := 0
	for _, e := range j.run.Entries {
		if e.Success {
			succeeded++
		}
	}
	j.run.Metadata.Total = len(j.run.Entries)
	j.run.Metadata.Succeeded = succeeded
	j.run.Metadata.Failed = len(j.run.Entries) - succeeded
}

// WriteRun stores run under dir in a file named by its start time.
func WriteRun(dir string, run *Run) (string, error) {
	if run == nil {
		return "", nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create journal directory: %w", err)
	}
	ts := run.Metadata.Timestamp
	name := fmt.Sprintf("%s.%03d.json", ts.Format("2006-01-02_150405"), ts.Nanosecond()/1000000)
	path := filepath.Join(dir, name)

	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal journal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write journal: %w", err)
	}
	return path, nil
}

// ReadRun loads a journal file.
func ReadRun(path string) (*Run, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}
	var run Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("failed to unmarshal journal: %w", err)
	}
	return &run, nil
}

// ReadRuns returns up to limit journals from dir, newest first. Corrupted
// files are skipped.
func ReadRuns(dir string, limit int) ([]*Run, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return []*Run{}, nil
	}
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to list journals: %w", err)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(files)))
	if limit > 0 && len(files) > limit {
		files = files[:limit]
	}

	runs := make([]*Run, 0, len(files))
	for _, file := range files {
		run, err := ReadRun(file)
		if err != nil {
			continue
		}
		runs = append(runs, run)
	}
	return runs, nil
}

// CleanupOldJournals removes journals older than retentionDays and returns
// how many were removed.
func CleanupOldJournals(dir string, retentionDays int, now time.Time) (int, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return 0, nil
	}
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return 0, fmt.Errorf("failed to list journals: %w", err)
	}

	cutoff := now.AddDate(0, 0, -retentionDays)
	removed := 0
	for _, file := range files {
		info, err := os.Stat(file)
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(file); err != nil {
				continue
			}
			removed++
		}
	}
	return removed, nil
}
