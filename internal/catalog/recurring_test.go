package catalog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brian-pennington/festwiz/internal/config"
	"github.com/brian-pennington/festwiz/internal/model"
	"github.com/brian-pennington/festwiz/internal/timegrid"
)

func TestExpandRecurringDaily(t *testing.T) {
	axis := timegrid.NewAxis(9)
	days := []string{"2026-03-18", "2026-03-19", "2026-03-20"}

	entries := []config.RecurringConfig{{
		Name:      "Day Party",
		Venue:     "Hotel Patio",
		RRule:     "FREQ=DAILY",
		StartTime: "12:00",
		EndTime:   "16:00",
		Admission: "free",
	}}

	events := ExpandRecurring(entries, days, axis, time.UTC)
	require.Len(t, events, 3)

	for i, ev := range events {
		assert.Equal(t, days[i], ev.Day)
		assert.Equal(t, "Day Party", ev.ArtistName)
		assert.Equal(t, "Hotel Patio", ev.Venue)
		assert.Equal(t, "12:00", ev.StartTime)
		assert.Equal(t, "16:00", ev.EndTime)
		assert.Equal(t, model.AdmissionFree, ev.Admission)
		assert.Equal(t, model.SourceUnofficial, ev.Source)
		assert.NotEmpty(t, ev.ID)
	}
}

func TestExpandRecurringSkipsOffDays(t *testing.T) {
	axis := timegrid.NewAxis(9)
	// A gap in the configured days drops occurrences on the missing date.
	days := []string{"2026-03-18", "2026-03-20"}

	entries := []config.RecurringConfig{{
		Name:      "Nightcap",
		Venue:     "Basement",
		RRule:     "FREQ=DAILY",
		StartTime: "23:00",
	}}

	events := ExpandRecurring(entries, days, axis, time.UTC)
	require.Len(t, events, 2)
	assert.Equal(t, "2026-03-18", events[0].Day)
	assert.Equal(t, "2026-03-20", events[1].Day)
}

func TestExpandRecurringBadEntriesSkipped(t *testing.T) {
	axis := timegrid.NewAxis(9)
	days := []string{"2026-03-18"}

	entries := []config.RecurringConfig{
		{Name: "No rule", Venue: "V", StartTime: "12:00"},
		{Name: "Bad rule", Venue: "V", StartTime: "12:00", RRule: "FREQ=SOMETIMES"},
		{Name: "Bad clock", Venue: "V", StartTime: "noon", RRule: "FREQ=DAILY"},
		{Name: "OK", Venue: "V", StartTime: "12:00", RRule: "FREQ=DAILY"},
	}

	events := ExpandRecurring(entries, days, axis, time.UTC)
	require.Len(t, events, 1)
	assert.Equal(t, "OK", events[0].ArtistName)
}

func TestExpandRecurringEmpty(t *testing.T) {
	axis := timegrid.NewAxis(9)
	assert.Nil(t, ExpandRecurring(nil, []string{"2026-03-18"}, axis, time.UTC))
	assert.Nil(t, ExpandRecurring([]config.RecurringConfig{{Name: "X"}}, nil, axis, time.UTC))
}
