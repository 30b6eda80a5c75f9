// Package playback reads the user's watch history. The engine only consumes
// the Reader interface; Store is a JSON file backed implementation used by
// the CLI and in tests.
package playback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/Digital-Shane/metaweave/internal/media"
)

// Item is the playback state of one movie or show.
type Item struct {
	Kind     media.Kind `json:"kind"`
	IDs      media.IDs  `json:"ids"`
	Title    string     `json:"title,omitempty"`
	Year     int        `json:"year,omitempty"`
	Watched  int64      `json:"watched,omitempty"`
	Plays    int        `json:"plays,omitempty"`
	Progress float64    `json:"progress,omitempty"`
	Paused   int64      `json:"paused,omitempty"`
	Rating   float64    `json:"rating,omitempty"`
	Rated    int64      `json:"rated,omitempty"`
	// Last is the most recently watched episode of a show.
	Last *media.Number `json:"last,omitempty"`
}

// Episode is the watch count of one episode.
type Episode struct {
	Season  int   `json:"season"`
	Episode int   `json:"episode"`
	Plays   int   `json:"plays"`
	Watched int64 `json:"watched,omitempty"`
}

// Filter selects which items Items returns: watched ones, partially
// watched ones and rated ones.
type Filter struct {
	History  bool
	Progress bool
	Rating   bool
}

func (f Filter) match(it Item) bool {
	if !f.History && !f.Progress && !f.Rating {
		return true
	}
	return (f.History && it.Plays > 0) || (f.Progress && it.Progress > 0 && it.Progress < 100) || (f.Rating && it.Rating > 0)
}

// Reader is the read side of the playback subsystem.
type Reader interface {
	// Items returns the items of kind, most recently used first.
	Items(ctx context.Context, kind media.Kind, filter Filter) ([]Item, error)
	// History returns the per-episode watch counts of a show. Zero season
	// or episode selects all.
	History(ctx context.Context, kind media.Kind, ids media.IDs, season, episode int) ([]Episode, error)
	// Refresh synchronizes the history. Without force a recent sync is kept.
	Refresh(ctx context.Context, kind media.Kind, force bool) error
}

type record struct {
	Item     Item      `json:"item"`
	Episodes []Episode `json:"episodes,omitempty"`
}

type document struct {
	Records []record `json:"records"`
}

// Store is an in-memory Reader optionally persisted to a JSON file.
type Store struct {
	mu      sync.RWMutex
	path    string
	loaded  time.Time
	records []record
}

var _ Reader = (*Store)(nil)

// NewMemory returns a Store that is never persisted.
func NewMemory() *Store {
	return &Store{}
}

// Open loads the store at path. A missing file yields an empty store.
func Open(path string) (*Store, error) {
	s := &Store{path: path}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.records = nil
		s.loaded = time.Now()
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading playback history: %w", err)
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parsing playback history: %w", err)
	}
	s.records = doc.Records
	s.loaded = time.Now()
	return nil
}

// Save writes the store to its file.
func (s *Store) Save() error {
	if s.path == "" {
		return nil
	}
	s.mu.RLock()
	data, err := json.MarshalIndent(document{Records: s.records}, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating playback directory: %w", err)
	}
	return os.WriteFile(s.path, data, 0o644)
}

func (s *Store) find(kind media.Kind, ids media.IDs) int {
	for i, r := range s.records {
		if r.Item.Kind == kind && r.Item.IDs.Shares(ids) {
			return i
		}
	}
	return -1
}

// Put adds or replaces an item.
func (s *Store) Put(it Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.find(it.Kind, it.IDs); i >= 0 {
		it.IDs = it.IDs.Fill(s.records[i].Item.IDs)
		s.records[i].Item = it
		return
	}
	s.records = append(s.records, record{Item: it})
}

// Watch records a play of a movie, or of an episode when n is set.
func (s *Store) Watch(kind media.Kind, ids media.IDs, n *media.Number, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.find(kind, ids)
	if i < 0 {
		s.records = append(s.records, record{Item: Item{Kind: kind, IDs: ids}})
		i = len(s.records) - 1
	}
	r := &s.records[i]
	r.Item.IDs = r.Item.IDs.Fill(ids)
	r.Item.Watched = at.Unix()
	r.Item.Progress = 0
	if n == nil {
		r.Item.Plays++
		return
	}
	last := *n
	r.Item.Last = &last
	for j := range r.Episodes {
		if r.Episodes[j].Season == n.Season() && r.Episodes[j].Episode == n.Episode() {
			r.Episodes[j].Plays++
			r.Episodes[j].Watched = at.Unix()
			r.Item.Plays++
			return
		}
	}
	r.Episodes = append(r.Episodes, Episode{Season: n.Season(), Episode: n.Episode(), Plays: 1, Watched: at.Unix()})
	r.Item.Plays++
}

// Items implements Reader.
func (s *Store) Items(ctx context.Context, kind media.Kind, filter Filter) ([]Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Item
	for _, r := range s.records {
		if r.Item.Kind == kind && filter.match(r.Item) {
			it := r.Item
			if it.Last != nil {
				last := *it.Last
				it.Last = &last
			}
			out = append(out, it)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return used(out[i]) > used(out[j]) })
	return out, nil
}

func used(it Item) int64 {
	return max(it.Watched, it.Paused, it.Rated)
}

// History implements Reader.
func (s *Store) History(ctx context.Context, kind media.Kind, ids media.IDs, season, episode int) ([]Episode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.find(kind, ids)
	if i < 0 {
		return nil, nil
	}
	var out []Episode
	for _, e := range s.records[i].Episodes {
		if (season == 0 || e.Season == season) && (episode == 0 || e.Episode == episode) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(a, b int) bool {
		return media.Number{out[a].Season, out[a].Episode}.Less(media.Number{out[b].Season, out[b].Episode})
	})
	return out, nil
}

// Refresh implements Reader by reloading the file when it changed since the
// last load, or unconditionally with force.
func (s *Store) Refresh(ctx context.Context, kind media.Kind, force bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.path == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !force {
		info, err := os.Stat(s.path)
		if err != nil || !info.ModTime().After(s.loaded) {
			return nil
		}
	}
	return s.load()
}

// Plays returns the play count of one episode in a History result.
func Plays(history []Episode, n media.Number) int {
	for _, e := range history {
		if e.Season == n.Season() && e.Episode == n.Episode() {
			return e.Plays
		}
	}
	return 0
}
