// Package identity computes the stable rating-lookup key for an artist across
// data sources and migrates stored ratings when an artist's canonical
// identity changes (e.g. an unofficial act later appears in the catalog).
package identity

import (
	"strconv"
	"strings"

	"github.com/brian-pennington/festwiz/internal/model"

	appLog "github.com/brian-pennington/festwiz/internal/log"
)

const (
	entityKeyPrefix = "eid_"
	nameKeyPrefix   = "name_"
)

// Resolver maps artists and events to identity keys. It carries a
// normalized-name -> entity-id index built from the catalog so that
// unofficial or user shows by a catalog artist share the catalog's rating
// bucket.
type Resolver struct {
	idByName map[string]int64
}

// NewResolver builds a Resolver from the known catalog artists.
func NewResolver(artists []model.Artist) *Resolver {
	idx := make(map[string]int64, len(artists))
	for _, a := range artists {
		if a.EntityID <= 0 || a.Name == "" {
			continue
		}
		idx[Normalize(a.Name)] = a.EntityID
	}
	return &Resolver{idByName: idx}
}

// ArtistKey resolves the identity key for a (name, entityID) pair.
// A positive entity id wins; otherwise the name is checked against the
// catalog index; otherwise the key falls back to the normalized name.
// Resolution never fails.
func (r *Resolver) ArtistKey(name string, entityID int64) string {
	if entityID > 0 {
		return EntityKey(entityID)
	}
	norm := Normalize(name)
	if r != nil {
		if id, ok := r.idByName[norm]; ok {
			return EntityKey(id)
		}
	}
	return nameKeyPrefix + norm
}

// EventKey resolves the identity key for an event's artist.
func (r *Resolver) EventKey(ev model.Event) string {
	return r.ArtistKey(ev.ArtistName, ev.EntityID)
}

// EntityKey returns the key form of a catalog entity id.
func EntityKey(id int64) string {
	return entityKeyPrefix + strconv.FormatInt(id, 10)
}

// NameKey returns the legacy name-derived key for an artist name.
func NameKey(name string) string {
	return nameKeyPrefix + Normalize(name)
}

// Normalize lower-cases a name and replaces every character outside [a-z0-9]
// with '_'.
func Normalize(name string) string {
	lower := strings.ToLower(name)
	var b strings.Builder
	b.Grow(len(lower))
	for _, r := range lower {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

// MigrateRatings moves ratings stored under legacy name_ keys to eid_ keys
// for every artist that now has a catalog id. The copy happens only when the
// eid_ slot is still empty; the legacy entry is then removed. Running it
// twice yields the same state as running it once. Returns the number of
// migrated entries.
func MigrateRatings(ratings map[string]int, artists []model.Artist) int {
	migrated := 0
	for _, a := range artists {
		if a.EntityID <= 0 || a.Name == "" {
			continue
		}
		legacy := NameKey(a.Name)
		val, ok := ratings[legacy]
		if !ok {
			continue
		}
		canonical := EntityKey(a.EntityID)
		if _, exists := ratings[canonical]; !exists {
			ratings[canonical] = val
			delete(ratings, legacy)
			migrated++
			appLog.Debug("rating migrated to catalog key",
				"from", legacy, "to", canonical)
		}
	}
	return migrated
}
