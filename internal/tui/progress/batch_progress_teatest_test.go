package progress

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/exp/teatest"
	"github.com/stretchr/testify/require"

	"github.com/Digital-Shane/metaweave/internal/batch"
	"github.com/Digital-Shane/metaweave/internal/media"
	"github.com/Digital-Shane/metaweave/internal/tui/theme"
)

// scriptedRunner replays events and, when hold is set, blocks until canceled.
type scriptedRunner struct {
	events   []batch.Event
	hold     bool
	canceled atomic.Bool
	release  chan struct{}
}

func newScriptedRunner(hold bool, events ...batch.Event) *scriptedRunner {
	return &scriptedRunner{events: events, hold: hold, release: make(chan struct{})}
}

func (r *scriptedRunner) Start(ctx context.Context) <-chan batch.Event {
	ch := make(chan batch.Event, len(r.events)+1)
	go func() {
		defer close(ch)
		for _, evt := range r.events {
			ch <- evt
		}
		if !r.hold {
			return
		}
		select {
		case <-ctx.Done():
		case <-r.release:
			ch <- batch.Event{Progress: batch.Progress{Status: batch.StatusCanceled, Total: 4, Processed: 2, Progress: 0.5}}
		}
	}()
	return ch
}

func (r *scriptedRunner) Cancel() {
	if r.canceled.CompareAndSwap(false, true) {
		close(r.release)
	}
}

func (r *scriptedRunner) Snapshot() batch.Progress {
	if len(r.events) == 0 {
		return batch.Progress{Status: batch.StatusIdle}
	}
	return r.events[len(r.events)-1].Progress
}

func running(processed, total int) batch.Event {
	return batch.Event{Progress: batch.Progress{
		Status:    batch.StatusRunning,
		Progress:  float64(processed) / float64(total),
		Total:     total,
		Processed: processed,
		Count:     map[media.Kind]int{media.KindMovie: processed},
		Usage:     batch.Usage{Global: 0.42, Trakt: 0.42, TMDb: 0.1},
		Detail:    "movie: Heat (imdb:tt0113277)",
	}}
}

func TestBatchModelRunsToCompletion(t *testing.T) {
	done := running(3, 3)
	done.Progress.Status = batch.StatusDone
	done.Progress.Failed = 1
	runner := newScriptedRunner(false, running(1, 3), running(2, 3), done)

	model := NewBatchModel(runner, theme.New(theme.WithIconSet(theme.IconSet{})))
	tm := teatest.NewTestModel(t, model, teatest.WithInitialTermSize(100, 24))

	final := tm.FinalModel(t, teatest.WithFinalTimeout(3*time.Second)).(*BatchModel)
	got := final.Progress()
	require.Equal(t, batch.StatusDone, got.Status)
	require.Equal(t, 3, got.Processed)
	require.Equal(t, 1, got.Failed)
	require.NoError(t, final.Err())

	view := final.View()
	for _, want := range []string{"Generating Metadata", "3/3 processed", "1 failed", "[M] movie: 3", "Global:  42%", "Heat"} {
		require.Contains(t, view, want)
	}
}

func TestBatchModelFirstKeyCancelsGracefully(t *testing.T) {
	runner := newScriptedRunner(true, running(2, 4))
	model := NewBatchModel(runner, theme.New(theme.WithIconSet(theme.IconSet{})))
	tm := teatest.NewTestModel(t, model, teatest.WithInitialTermSize(100, 24))

	teatest.WaitFor(t, tm.Output(), func(b []byte) bool {
		return bytes.Contains(b, []byte("2/4 processed"))
	}, teatest.WithDuration(3*time.Second))
	tm.Send(tea.KeyMsg{Type: tea.KeyCtrlC})

	final := tm.FinalModel(t, teatest.WithFinalTimeout(3*time.Second)).(*BatchModel)
	require.True(t, runner.canceled.Load())
	require.Equal(t, batch.StatusCanceled, final.Progress().Status)
	require.Contains(t, final.View(), "canceled")
}

func TestBatchModelSecondKeyAbandons(t *testing.T) {
	runner := newScriptedRunner(true, running(1, 4))
	model := NewBatchModel(&stubbornRunner{runner}, theme.Default())
	tm := teatest.NewTestModel(t, model, teatest.WithInitialTermSize(100, 24))

	teatest.WaitFor(t, tm.Output(), func(b []byte) bool {
		return bytes.Contains(b, []byte("1/4 processed"))
	}, teatest.WithDuration(3*time.Second))
	tm.Send(tea.KeyMsg{Type: tea.KeyEsc})
	teatest.WaitFor(t, tm.Output(), func(b []byte) bool {
		return bytes.Contains(b, []byte("Stopping"))
	}, teatest.WithDuration(3*time.Second))
	tm.Send(tea.KeyMsg{Type: tea.KeyEsc})

	tm.WaitFinished(t, teatest.WithFinalTimeout(3*time.Second))
}

// stubbornRunner ignores Cancel.
type stubbornRunner struct{ *scriptedRunner }

func (r *stubbornRunner) Cancel() { r.canceled.Store(true) }

func TestBatchModelShowsCooldown(t *testing.T) {
	evt := running(1, 2)
	evt.Progress.Status = batch.StatusCooling
	evt.Progress.Cooldowns = 2
	model := NewBatchModel(newScriptedRunner(false), theme.New(theme.WithIconSet(theme.IconSet{})))

	model.Update(batchEventMsg{event: evt})
	view := model.View()
	require.Contains(t, view, "cooling down")
	require.Contains(t, view, "Cool-downs: 2")
}

func TestBatchModelReportsRunError(t *testing.T) {
	boom := errors.New("cache closed")
	model := NewBatchModel(newScriptedRunner(false), theme.Default())

	model.Update(batchEventMsg{event: batch.Event{Err: boom}})
	require.ErrorIs(t, model.Err(), boom)
	require.True(t, strings.HasPrefix(model.View(), "Error: cache closed"))

	model = NewBatchModel(newScriptedRunner(false), theme.Default())
	model.Update(batchEventMsg{event: batch.Event{Err: context.Canceled}})
	require.NoError(t, model.Err())
	require.Equal(t, "Nothing to generate.\n", model.View())
}
