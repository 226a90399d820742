package catalog

import (
	"encoding/json"
	"errors"

	"github.com/google/uuid"

	"github.com/brian-pennington/festwiz/internal/model"

	appLog "github.com/brian-pennington/festwiz/internal/log"
)

// rawArtist mirrors the catalog artist wire shape.
type rawArtist struct {
	Name     string   `json:"name"`
	EntityID int64    `json:"entity_id"`
	Genre    string   `json:"genre"`
	Subgenre string   `json:"subgenre"`
	Links    []string `json:"links"`
}

// rawEvent mirrors the catalog event wire shape.
type rawEvent struct {
	ArtistName string `json:"artist_name"`
	Venue      string `json:"venue"`
	Day        string `json:"day"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
	NoSetTime  bool   `json:"no_set_time"`
	Admission  string `json:"admission"`
	Source     string `json:"source"`
	Showcase   string `json:"showcase"`
	EntityID   int64  `json:"entity_id"`
	Website    string `json:"website"`
}

// ParseArtists decodes a catalog artist collection. Entries without a name
// are skipped, not fatal.
func ParseArtists(body []byte) ([]model.Artist, error) {
	if len(body) == 0 {
		return nil, errors.New("empty artist collection body")
	}
	var raw []rawArtist
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}

	artists := make([]model.Artist, 0, len(raw))
	for _, r := range raw {
		if r.Name == "" {
			continue
		}
		a := model.Artist{
			Name:     r.Name,
			EntityID: r.EntityID,
			Genre:    r.Genre,
			Subgenre: r.Subgenre,
		}
		if len(r.Links) > 0 {
			a.Website = r.Links[0]
		}
		artists = append(artists, a)
	}
	return artists, nil
}

// ParseEvents decodes a catalog event collection, stamping defaultSource on
// records that carry no recognizable source of their own. Records missing an
// artist name or venue are logged and skipped.
func ParseEvents(body []byte, defaultSource model.Source) ([]model.Event, error) {
	if len(body) == 0 {
		return nil, errors.New("empty event collection body")
	}
	var raw []rawEvent
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}

	events := make([]model.Event, 0, len(raw))
	skipped := 0
	for _, r := range raw {
		if r.ArtistName == "" || r.Venue == "" {
			skipped++
			continue
		}
		ev := model.Event{
			ID:            uuid.NewString(),
			ArtistName:    r.ArtistName,
			Venue:         r.Venue,
			Day:           r.Day,
			StartTime:     r.StartTime,
			EndTime:       r.EndTime,
			NoSetTime:     r.NoSetTime,
			Admission:     parseAdmission(r.Admission),
			Source:        parseSource(r.Source, defaultSource),
			ShowcaseGroup: r.Showcase,
			EntityID:      r.EntityID,
			Website:       r.Website,
		}
		events = append(events, ev)
	}
	if skipped > 0 {
		appLog.Debug("catalog events skipped for missing fields", "skipped", skipped)
	}
	return events, nil
}

func parseAdmission(s string) model.Admission {
	switch model.Admission(s) {
	case model.AdmissionBadge, model.AdmissionCover, model.AdmissionFree:
		return model.Admission(s)
	}
	return ""
}

func parseSource(s string, def model.Source) model.Source {
	switch model.Source(s) {
	case model.SourceOfficial, model.SourceUnofficial, model.SourceUser, model.SourceCSVImport:
		return model.Source(s)
	}
	return def
}
