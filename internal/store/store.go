// Package store holds the merged event collection and the attendee's
// ratings. Events from all sources are unioned under the natural key
// (artist, venue, day, startTime); ratings live in a separate map keyed by
// resolved identity key so identity-scheme changes never touch rating
// storage. Local state (ratings + user-added events) persists as a single
// JSON record, rewritten after every mutation.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/brian-pennington/festwiz/internal/identity"
	"github.com/brian-pennington/festwiz/internal/model"

	appLog "github.com/brian-pennington/festwiz/internal/log"
)

var (
	// ErrImmutableEvent is returned when deleting a catalog-sourced event.
	ErrImmutableEvent = errors.New("store: catalog events cannot be deleted")
	// ErrEventNotFound is returned when no event matches the natural key.
	ErrEventNotFound = errors.New("store: event not found")
	// ErrBadRating is returned for ratings outside 1..4.
	ErrBadRating = errors.New("store: rating must be between 1 and 4")
)

// State is the single persisted local record.
type State struct {
	Ratings         map[string]int `json:"ratings"`
	UserAddedEvents []model.Event  `json:"user_added_events"`
}

// Store is the merged event + rating collection. All mutating operations are
// short and fully replace derived results before the next read; a mutex
// makes that safe under concurrent HTTP handlers.
type Store struct {
	mu        sync.RWMutex
	statePath string

	events  []model.Event
	index   map[model.NaturalKey]int
	ratings map[string]int
}

// Open creates a Store backed by the given state file. A missing file is a
// first run and yields an empty store; a corrupt file is an error so the
// caller can surface it instead of silently discarding ratings.
func Open(statePath string) (*Store, error) {
	s := &Store{
		statePath: statePath,
		index:     make(map[model.NaturalKey]int),
		ratings:   make(map[string]int),
	}

	data, err := os.ReadFile(statePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return s, nil
		}
		return nil, err
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("store: corrupt state file %s: %w", statePath, err)
	}
	for k, v := range st.Ratings {
		if model.ValidRating(v) {
			s.ratings[k] = v
		}
	}
	added, skipped := s.addLocked(st.UserAddedEvents)
	appLog.Info("state loaded",
		"path", statePath,
		"ratings", len(s.ratings),
		"user_events_added", added,
		"user_events_skipped", skipped,
	)
	return s, nil
}

// Add unions events into the collection. A natural-key duplicate is silently
// dropped unless the incoming source outranks the stored one, in which case
// the record is replaced in place (still counted as skipped, not added).
func (s *Store) Add(events ...model.Event) (added, skipped int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	added, skipped = s.addLocked(events)
	if added > 0 {
		err = s.persistLocked()
	}
	return added, skipped, err
}

func (s *Store) addLocked(events []model.Event) (added, skipped int) {
	for _, ev := range events {
		if ev.ArtistName == "" || ev.Venue == "" {
			skipped++
			continue
		}
		key := ev.NaturalKey()
		if i, ok := s.index[key]; ok {
			if ev.Source.Precedence() > s.events[i].Source.Precedence() {
				s.events[i] = ev
			}
			skipped++
			continue
		}
		s.index[key] = len(s.events)
		s.events = append(s.events, ev)
		added++
	}
	return added, skipped
}

// ReplaceSource swaps out every event of one source for a fresh set, keeping
// all other sources untouched. Used by the catalog refresh pipeline.
func (s *Store) ReplaceSource(src model.Source, events []model.Event) (added int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := make([]model.Event, 0, len(s.events))
	for _, ev := range s.events {
		if ev.Source != src {
			kept = append(kept, ev)
		}
	}
	s.events = kept
	s.reindexLocked()

	added, _ = s.addLocked(events)
	return added, s.persistLocked()
}

// Delete removes an event by natural key. Only user and csv-import events
// may be deleted; catalog-sourced events are immutable from the API. The
// associated rating intentionally survives.
func (s *Store) Delete(key model.NaturalKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[key]
	if !ok {
		return ErrEventNotFound
	}
	if !s.events[i].Source.UserOwned() {
		return ErrImmutableEvent
	}
	s.events = append(s.events[:i], s.events[i+1:]...)
	s.reindexLocked()
	return s.persistLocked()
}

func (s *Store) reindexLocked() {
	s.index = make(map[model.NaturalKey]int, len(s.events))
	for i, ev := range s.events {
		s.index[ev.NaturalKey()] = i
	}
}

// Events returns a copy of the merged collection.
func (s *Store) Events() []model.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Event(nil), s.events...)
}

// EventsForDay returns all events on one festival day, in insertion order.
func (s *Store) EventsForDay(day string) []model.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Event
	for _, ev := range s.events {
		if ev.Day == day {
			out = append(out, ev)
		}
	}
	return out
}

// Get looks up a single event by natural key.
func (s *Store) Get(key model.NaturalKey) (model.Event, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[key]
	if !ok {
		return model.Event{}, false
	}
	return s.events[i], true
}

// Len reports the number of merged events.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

// SetRating stores a 1..4 rating under a resolved identity key.
func (s *Store) SetRating(key string, value int) error {
	if !model.ValidRating(value) {
		return ErrBadRating
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ratings[key] = value
	return s.persistLocked()
}

// ClearRating removes the rating stored under key, if any.
func (s *Store) ClearRating(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ratings[key]; !ok {
		return nil
	}
	delete(s.ratings, key)
	return s.persistLocked()
}

// Rating returns the stored rating for an identity key, 0 when unrated.
func (s *Store) Rating(key string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ratings[key]
}

// Ratings returns a copy of the full rating map.
func (s *Store) Ratings() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]int, len(s.ratings))
	for k, v := range s.ratings {
		out[k] = v
	}
	return out
}

// MigrateRatings moves legacy name-keyed ratings onto catalog entity keys
// for artists that now have an id. Runs after every data load; idempotent.
func (s *Store) MigrateRatings(artists []model.Artist) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	migrated := identity.MigrateRatings(s.ratings, artists)
	if migrated == 0 {
		return 0, nil
	}
	return migrated, s.persistLocked()
}

// persistLocked writes the single state record (ratings + user-added events)
// atomically: temp file in the same directory, fsync, chmod 0600, rename.
func (s *Store) persistLocked() error {
	if s.statePath == "" {
		return nil
	}

	st := State{
		Ratings:         s.ratings,
		UserAddedEvents: make([]model.Event, 0),
	}
	for _, ev := range s.events {
		if ev.Source.UserOwned() {
			st.UserAddedEvents = append(st.UserAddedEvents, ev)
		}
	}

	data, err := json.MarshalIndent(&st, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.statePath)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".festwiz-state-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, s.statePath)
}
