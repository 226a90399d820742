package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brian-pennington/festwiz/internal/model"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Band X", "band_x"},
		{"DJ/rupture", "dj_rupture"},
		{"M83", "m83"},
		{"Sigur Rós", "sigur_r_s"},
		{"", ""},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, Normalize(tc.in), tc.in)
	}
}

func TestArtistKey(t *testing.T) {
	r := NewResolver([]model.Artist{
		{Name: "Band X", EntityID: 42},
	})

	// Catalog id wins outright.
	assert.Equal(t, "eid_7", r.ArtistKey("Whoever", 7))

	// Name matching a catalog artist resolves to that artist's entity key,
	// so unofficial shows share the official rating bucket.
	assert.Equal(t, "eid_42", r.ArtistKey("Band X", 0))
	assert.Equal(t, "eid_42", r.ArtistKey("band x", 0))

	// Unknown names fall back to the name-derived key; never an error.
	assert.Equal(t, "name_garage_act", r.ArtistKey("Garage Act", 0))
}

func TestEventKey(t *testing.T) {
	r := NewResolver(nil)
	ev := model.Event{ArtistName: "Band X", EntityID: 9}
	assert.Equal(t, "eid_9", r.EventKey(ev))

	ev.EntityID = 0
	assert.Equal(t, "name_band_x", r.EventKey(ev))
}

func TestMigrateRatings(t *testing.T) {
	artists := []model.Artist{{Name: "Band X", EntityID: 42}}
	ratings := map[string]int{"name_band_x": 4}

	migrated := MigrateRatings(ratings, artists)
	require.Equal(t, 1, migrated)

	// Retrievable only under the entity key afterwards.
	assert.Equal(t, map[string]int{"eid_42": 4}, ratings)
}

func TestMigrateRatingsIdempotent(t *testing.T) {
	artists := []model.Artist{
		{Name: "Band X", EntityID: 42},
		{Name: "Solo Act", EntityID: 7},
	}
	ratings := map[string]int{
		"name_band_x":   4,
		"name_solo_act": 2,
		"name_unsigned": 3,
	}

	MigrateRatings(ratings, artists)
	first := make(map[string]int, len(ratings))
	for k, v := range ratings {
		first[k] = v
	}

	migrated := MigrateRatings(ratings, artists)
	assert.Zero(t, migrated)
	assert.Equal(t, first, ratings)

	// Unmatched name keys are untouched.
	assert.Equal(t, 3, ratings["name_unsigned"])
}

func TestMigrateRatingsKeepsExistingEntityRating(t *testing.T) {
	artists := []model.Artist{{Name: "Band X", EntityID: 42}}
	ratings := map[string]int{
		"eid_42":      3,
		"name_band_x": 1,
	}

	migrated := MigrateRatings(ratings, artists)
	assert.Zero(t, migrated)
	// The entity rating is never overwritten by a stale legacy value.
	assert.Equal(t, 3, ratings["eid_42"])
}
