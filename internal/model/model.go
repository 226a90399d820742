package model

// Source identifies which data feed produced an Event. Precedence on
// natural-key collisions is official > unofficial > user > csv-import.
type Source string

const (
	SourceOfficial   Source = "official"
	SourceUnofficial Source = "unofficial"
	SourceUser       Source = "user"
	SourceCSVImport  Source = "csv-import"
)

// precedence maps each source to its rank; higher wins on collision.
var precedence = map[Source]int{
	SourceOfficial:   4,
	SourceUnofficial: 3,
	SourceUser:       2,
	SourceCSVImport:  1,
}

// Precedence returns the collision rank of s (0 for unknown sources).
func (s Source) Precedence() int {
	return precedence[s]
}

// UserOwned reports whether events from this source may be deleted.
// Catalog-sourced events are immutable from the API.
func (s Source) UserOwned() bool {
	return s == SourceUser || s == SourceCSVImport
}

// Admission describes how an attendee gets into a show.
type Admission string

const (
	AdmissionBadge Admission = "badge"
	AdmissionCover Admission = "cover"
	AdmissionFree  Admission = "free"
)

// Event is a single scheduled performance.
type Event struct {
	// ID is a synthetic unique id assigned at creation.
	ID string `json:"id"`

	ArtistName string `json:"artist_name"`
	Venue      string `json:"venue"`

	// Day is the festival day as an ISO date string (YYYY-MM-DD). A set that
	// starts after midnight still belongs to the previous calendar day's
	// festival day.
	Day string `json:"day"`

	// StartTime / EndTime are wall-clock "HH:MM" strings; empty when unknown.
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time,omitempty"`

	// NoSetTime marks events whose start time is a placeholder only.
	NoSetTime bool `json:"no_set_time,omitempty"`

	Admission Admission `json:"admission,omitempty"`
	Source    Source    `json:"source"`

	ShowcaseGroup string `json:"showcase_group,omitempty"`

	// EntityID is the numeric catalog entity id; 0 when the event is not
	// linked to a catalog artist.
	EntityID int64 `json:"entity_id,omitempty"`

	Website string `json:"website,omitempty"`
}

// NaturalKey is the dedup key for Events across sources. Matching is
// case-sensitive and exact.
type NaturalKey struct {
	ArtistName string `json:"artist_name"`
	Venue      string `json:"venue"`
	Day        string `json:"day"`
	StartTime  string `json:"start_time"`
}

// NaturalKey returns the (artist, venue, day, startTime) dedup key.
func (e Event) NaturalKey() NaturalKey {
	return NaturalKey{
		ArtistName: e.ArtistName,
		Venue:      e.Venue,
		Day:        e.Day,
		StartTime:  e.StartTime,
	}
}

// Artist is a catalog performer entry. A logical performer may exist both as
// a catalog entity (EntityID > 0) and as free-text names on events.
type Artist struct {
	Name     string `json:"name"`
	EntityID int64  `json:"entity_id,omitempty"`
	Genre    string `json:"genre,omitempty"`
	Subgenre string `json:"subgenre,omitempty"`
	Website  string `json:"website,omitempty"`
}

// Rating bounds. Ratings are integers 1..4 keyed by resolved identity key.
const (
	RatingMin = 1
	RatingMax = 4
)

// ValidRating reports whether v is inside the allowed 1..4 range.
func ValidRating(v int) bool {
	return v >= RatingMin && v <= RatingMax
}
