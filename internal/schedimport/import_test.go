package schedimport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brian-pennington/festwiz/internal/model"
)

func parseDay(t *testing.T, text string) []model.Event {
	t.Helper()
	return Parse(text, Options{Day: "2026-03-18"})
}

func TestParseBasicGrid(t *testing.T) {
	text := "Time,Venue A,Venue B\n" +
		"9:00 AM,Band X,Band Y\n" +
		",Band Z,\n"

	events := parseDay(t, text)
	require.Len(t, events, 3)

	assert.Equal(t, "Band X", events[0].ArtistName)
	assert.Equal(t, "Venue A", events[0].Venue)
	assert.Equal(t, "09:00", events[0].StartTime)

	assert.Equal(t, "Band Y", events[1].ArtistName)
	assert.Equal(t, "Venue B", events[1].Venue)
	assert.Equal(t, "09:00", events[1].StartTime)

	// Empty first field is the second half-hour under the current base time.
	assert.Equal(t, "Band Z", events[2].ArtistName)
	assert.Equal(t, "Venue A", events[2].Venue)
	assert.Equal(t, "09:30", events[2].StartTime)

	for _, ev := range events {
		assert.Equal(t, model.SourceCSVImport, ev.Source)
		assert.Equal(t, "2026-03-18", ev.Day)
		assert.Empty(t, ev.EndTime)
		assert.NotEmpty(t, ev.ID)
	}
}

func TestParseTimeOverride(t *testing.T) {
	text := "Time,Venue A\n" +
		"2:00 PM,Combo (215)\n"

	events := parseDay(t, text)
	require.Len(t, events, 1)

	// Hour digit 2 is below the PM cutoff, so 2:15 means 14:15; the
	// parenthetical is stripped from the artist name.
	assert.Equal(t, "Combo", events[0].ArtistName)
	assert.Equal(t, "14:15", events[0].StartTime)
}

func TestParseTimeOverrideFourDigits(t *testing.T) {
	text := "Time,Venue A\n" +
		"10:00 PM,Night Act (1145)\n"

	events := parseDay(t, text)
	require.Len(t, events, 1)
	assert.Equal(t, "Night Act", events[0].ArtistName)
	assert.Equal(t, "23:45", events[0].StartTime)
}

func TestParseCutoffConfigurable(t *testing.T) {
	text := "Time,Venue A\n" +
		"2:00 PM,Combo (215)\n"

	events := Parse(text, Options{Day: "2026-03-18", PMCutoffHour: 2})
	require.Len(t, events, 1)
	// With cutoff 2 the bare hour 2 is taken literally.
	assert.Equal(t, "02:15", events[0].StartTime)
}

func TestParseQuotedCommas(t *testing.T) {
	text := "Time,Venue A,Venue B\n" +
		`8:00 PM,"Crosby, Stills & Nash",Other Band` + "\n"

	events := parseDay(t, text)
	require.Len(t, events, 2)
	assert.Equal(t, "Crosby, Stills & Nash", events[0].ArtistName)
	assert.Equal(t, "20:00", events[0].StartTime)
	assert.Equal(t, "Other Band", events[1].ArtistName)
}

func TestParseSkipsAnnotationsAndNavigation(t *testing.T) {
	text := "Time,<< Venue A >>,Venue B\n" +
		"< day 2,skipped,skipped\n" +
		"day 3,skipped,skipped\n" +
		"9:00 PM,(badge only),Real Act\n" +
		",< back,no set times today\n"

	events := parseDay(t, text)
	require.Len(t, events, 1)
	assert.Equal(t, "Real Act", events[0].ArtistName)
	assert.Equal(t, "Venue B", events[0].Venue)
	assert.Equal(t, "21:00", events[0].StartTime)
}

func TestParseRowsBeforeBaseTimeSkipped(t *testing.T) {
	text := "Time,Venue A\n" +
		",Orphan Act\n" +
		"9:00 AM,Placed Act\n"

	events := parseDay(t, text)
	require.Len(t, events, 1)
	assert.Equal(t, "Placed Act", events[0].ArtistName)
}

func TestParseConsecutiveHourMarkers(t *testing.T) {
	// An hour marker followed immediately by another must not emit phantom
	// events for the empty slot.
	text := "Time,Venue A\n" +
		"9:00 PM,\n" +
		"10:00 PM,Late Act\n"

	events := parseDay(t, text)
	require.Len(t, events, 1)
	assert.Equal(t, "Late Act", events[0].ArtistName)
	assert.Equal(t, "22:00", events[0].StartTime)
}

func TestParseMidnightWraparound(t *testing.T) {
	text := "Time,Venue A\n" +
		"11:30 PM,Headliner\n" +
		",After Hours\n"

	events := parseDay(t, text)
	require.Len(t, events, 2)
	assert.Equal(t, "23:30", events[0].StartTime)
	assert.Equal(t, "00:00", events[1].StartTime)
}

func TestParseWhitespaceCellIsEmpty(t *testing.T) {
	text := "Time,Venue A,Venue B\n" +
		"9:00 PM,   ,Act\n"

	events := parseDay(t, text)
	require.Len(t, events, 1)
	assert.Equal(t, "Act", events[0].ArtistName)
}

func TestParseKeepsInternalPunctuation(t *testing.T) {
	text := "Time,Venue A\n" +
		"9:00 PM,  !!!-w/guests.  \n"

	events := parseDay(t, text)
	require.Len(t, events, 1)
	// Only surrounding whitespace is trimmed.
	assert.Equal(t, "!!!-w/guests.", events[0].ArtistName)
}

func TestParseNoonAndMidnightMarkers(t *testing.T) {
	text := "Time,Venue A\n" +
		"12:00 PM,Noon Act\n" +
		"12:30 AM,Midnight Act\n"

	events := parseDay(t, text)
	require.Len(t, events, 2)
	assert.Equal(t, "12:00", events[0].StartTime)
	assert.Equal(t, "00:30", events[1].StartTime)
}

func TestParseEmptyInput(t *testing.T) {
	assert.Empty(t, parseDay(t, ""))
	assert.Empty(t, parseDay(t, "Header Only\n"))
}
