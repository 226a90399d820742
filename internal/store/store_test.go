package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brian-pennington/festwiz/internal/model"
)

func tempStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state.json")
	s, err := Open(path)
	require.NoError(t, err)
	return s, path
}

func ev(artist, venue, day, start string, src model.Source) model.Event {
	return model.Event{
		ID:         artist + "-" + start,
		ArtistName: artist,
		Venue:      venue,
		Day:        day,
		StartTime:  start,
		Source:     src,
	}
}

func TestAddDedupByNaturalKey(t *testing.T) {
	s, _ := tempStore(t)

	added, skipped, err := s.Add(
		ev("Band X", "Stubb's", "2026-03-18", "21:00", model.SourceUser),
		ev("Band X", "Stubb's", "2026-03-18", "21:00", model.SourceUser),
		ev("Band X", "Stubb's", "2026-03-18", "22:00", model.SourceUser),
	)
	require.NoError(t, err)
	assert.Equal(t, 2, added)
	assert.Equal(t, 1, skipped)
	assert.Equal(t, 2, s.Len())
}

func TestAddImportTwiceIsIdempotent(t *testing.T) {
	s, _ := tempStore(t)

	batch := []model.Event{
		ev("A", "V1", "d", "20:00", model.SourceCSVImport),
		ev("B", "V2", "d", "20:30", model.SourceCSVImport),
	}
	added, _, err := s.Add(batch...)
	require.NoError(t, err)
	require.Equal(t, 2, added)

	// Importing the same grid again adds nothing.
	added, skipped, err := s.Add(batch...)
	require.NoError(t, err)
	assert.Zero(t, added)
	assert.Equal(t, 2, skipped)
	assert.Equal(t, 2, s.Len())
}

func TestAddSourcePrecedence(t *testing.T) {
	s, _ := tempStore(t)

	_, _, err := s.Add(ev("Band X", "Stubb's", "d", "21:00", model.SourceCSVImport))
	require.NoError(t, err)

	// An official record at the same natural key replaces the import.
	_, skipped, err := s.Add(ev("Band X", "Stubb's", "d", "21:00", model.SourceOfficial))
	require.NoError(t, err)
	assert.Equal(t, 1, skipped)
	require.Equal(t, 1, s.Len())

	got, ok := s.Get(model.NaturalKey{ArtistName: "Band X", Venue: "Stubb's", Day: "d", StartTime: "21:00"})
	require.True(t, ok)
	assert.Equal(t, model.SourceOfficial, got.Source)

	// The reverse direction does not downgrade.
	_, _, err = s.Add(ev("Band X", "Stubb's", "d", "21:00", model.SourceUser))
	require.NoError(t, err)
	got, _ = s.Get(got.NaturalKey())
	assert.Equal(t, model.SourceOfficial, got.Source)
}

func TestDeleteOnlyUserOwned(t *testing.T) {
	s, _ := tempStore(t)

	official := ev("Catalog Act", "V", "d", "20:00", model.SourceOfficial)
	user := ev("My Act", "V", "d", "21:00", model.SourceUser)
	_, _, err := s.Add(official, user)
	require.NoError(t, err)

	assert.ErrorIs(t, s.Delete(official.NaturalKey()), ErrImmutableEvent)
	require.NoError(t, s.Delete(user.NaturalKey()))
	assert.ErrorIs(t, s.Delete(user.NaturalKey()), ErrEventNotFound)
	assert.Equal(t, 1, s.Len())
}

func TestRatingSurvivesEventDelete(t *testing.T) {
	s, _ := tempStore(t)

	user := ev("My Act", "V", "d", "21:00", model.SourceUser)
	_, _, err := s.Add(user)
	require.NoError(t, err)
	require.NoError(t, s.SetRating("name_my_act", 4))

	require.NoError(t, s.Delete(user.NaturalKey()))
	assert.Equal(t, 4, s.Rating("name_my_act"))
}

func TestRatingValidation(t *testing.T) {
	s, _ := tempStore(t)
	assert.ErrorIs(t, s.SetRating("k", 0), ErrBadRating)
	assert.ErrorIs(t, s.SetRating("k", 5), ErrBadRating)
	require.NoError(t, s.SetRating("k", 1))
	require.NoError(t, s.ClearRating("k"))
	assert.Zero(t, s.Rating("k"))
}

func TestReplaceSourceKeepsOthers(t *testing.T) {
	s, _ := tempStore(t)

	_, _, err := s.Add(
		ev("Official Act", "V", "d", "20:00", model.SourceOfficial),
		ev("My Act", "V", "d", "21:00", model.SourceUser),
	)
	require.NoError(t, err)

	added, err := s.ReplaceSource(model.SourceOfficial, []model.Event{
		ev("New Official", "V", "d", "22:00", model.SourceOfficial),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, added)
	assert.Equal(t, 2, s.Len())

	_, ok := s.Get(model.NaturalKey{ArtistName: "Official Act", Venue: "V", Day: "d", StartTime: "20:00"})
	assert.False(t, ok)
	_, ok = s.Get(model.NaturalKey{ArtistName: "My Act", Venue: "V", Day: "d", StartTime: "21:00"})
	assert.True(t, ok)
}

func TestPersistenceRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	s, err := Open(path)
	require.NoError(t, err)
	_, _, err = s.Add(
		ev("My Act", "V", "d", "21:00", model.SourceUser),
		ev("Imported", "V", "d", "22:00", model.SourceCSVImport),
		ev("Catalog Act", "V", "d", "20:00", model.SourceOfficial),
	)
	require.NoError(t, err)
	require.NoError(t, s.SetRating("eid_42", 3))

	// A fresh store sees the user events and ratings but not the catalog
	// event, which is re-fetched rather than persisted.
	reopened, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, 2, reopened.Len())
	assert.Equal(t, 3, reopened.Rating("eid_42"))

	_, ok := reopened.Get(model.NaturalKey{ArtistName: "Catalog Act", Venue: "V", Day: "d", StartTime: "20:00"})
	assert.False(t, ok)
}

func TestStateFileShape(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	s, err := Open(path)
	require.NoError(t, err)
	_, _, err = s.Add(ev("My Act", "V", "d", "21:00", model.SourceUser))
	require.NoError(t, err)
	require.NoError(t, s.SetRating("name_my_act", 2))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var st State
	require.NoError(t, json.Unmarshal(data, &st))
	assert.Equal(t, map[string]int{"name_my_act": 2}, st.Ratings)
	require.Len(t, st.UserAddedEvents, 1)
	assert.Equal(t, "My Act", st.UserAddedEvents[0].ArtistName)
}

func TestOpenCorruptState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := Open(path)
	assert.Error(t, err)
}

func TestMigrateRatingsThroughStore(t *testing.T) {
	s, _ := tempStore(t)
	require.NoError(t, s.SetRating("name_band_x", 4))

	artists := []model.Artist{{Name: "Band X", EntityID: 42}}
	migrated, err := s.MigrateRatings(artists)
	require.NoError(t, err)
	assert.Equal(t, 1, migrated)
	assert.Equal(t, 4, s.Rating("eid_42"))
	assert.Zero(t, s.Rating("name_band_x"))

	// Idempotent on the second run.
	migrated, err = s.MigrateRatings(artists)
	require.NoError(t, err)
	assert.Zero(t, migrated)
}

func TestEventsForDay(t *testing.T) {
	s, _ := tempStore(t)
	_, _, err := s.Add(
		ev("A", "V", "2026-03-18", "20:00", model.SourceUser),
		ev("B", "V", "2026-03-19", "20:00", model.SourceUser),
	)
	require.NoError(t, err)

	day := s.EventsForDay("2026-03-18")
	require.Len(t, day, 1)
	assert.Equal(t, "A", day[0].ArtistName)
}
