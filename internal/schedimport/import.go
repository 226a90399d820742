// Package schedimport normalizes a human-authored venue-by-time schedule
// grid (comma-separated, quote-escaped text) into Event records. Rows are
// time slots, columns are venues; hour-marker rows set the current base time
// and a row with an empty first field is the second half-hour slot under it.
//
// The importer never fails on input shape: unrecognized rows and annotation
// cells are skipped. Dedup against the existing store is the caller's job.
package schedimport

import (
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/brian-pennington/festwiz/internal/model"
	"github.com/brian-pennington/festwiz/internal/timegrid"

	appLog "github.com/brian-pennington/festwiz/internal/log"
)

// DefaultPMCutoffHour is the hour below which a bare (HHMM) time override is
// read as PM. The grid only covers the ~9 AM - 2 AM operating window, so an
// unadorned hour below the cutoff cannot be morning.
const DefaultPMCutoffHour = 9

// slotMinutes is the half-hour step between the two slots of an hour block.
const slotMinutes = 30

// timeOverrideRe matches a trailing parenthesized 3-4 digit time override,
// e.g. "Combo (215)".
var timeOverrideRe = regexp.MustCompile(`^(.*\S)\s*\((\d{3,4})\)$`)

// Options controls a single import run.
type Options struct {
	// Day is the ISO date stamped onto every emitted Event.
	Day string

	// PMCutoffHour overrides DefaultPMCutoffHour when > 0.
	PMCutoffHour int
}

// Parse converts raw grid text into normalized Events with
// source = "csv-import". It returns the events in grid order; the caller
// deduplicates them against the store and reports parsed/added/skipped
// counts.
func Parse(text string, opts Options) []model.Event {
	cutoff := opts.PMCutoffHour
	if cutoff <= 0 {
		cutoff = DefaultPMCutoffHour
	}

	rows := splitRows(text)
	if len(rows) == 0 {
		return nil
	}

	venues := headerVenues(rows[0])
	if len(venues) == 0 {
		appLog.Debug("schedule import: header row has no venue columns")
		return nil
	}

	var (
		events   []model.Event
		baseTime string // 24-hour "HH:MM"; empty until first hour marker
		slot     int    // 0 or 1: first or second half-hour of the block
	)

	for _, fields := range rows[1:] {
		row := classifyRow(fields)
		switch row.kind {
		case rowHourMarker:
			baseTime = row.base
			slot = 0
		case rowHalfSlot:
			if baseTime == "" {
				// Data before any hour marker cannot be placed.
				continue
			}
			slot = 1
		case rowSkip:
			if first := strings.TrimSpace(fields[0]); !isNavigationHint(first) {
				appLog.Debug("schedule import: unrecognized row skipped", "first_field", first)
			}
			continue
		}

		events = append(events, emitCells(fields, venues, baseTime, slot, cutoff, opts.Day)...)
	}

	return events
}

// emitCells walks the data cells of one placed row and emits an Event per
// non-empty, non-annotation cell.
func emitCells(fields, venues []string, baseTime string, slot, cutoff int, day string) []model.Event {
	var out []model.Event

	slotTime, err := timegrid.AddMinutes(baseTime, slot*slotMinutes)
	if err != nil {
		// baseTime came from the hour-marker regexp, so this cannot happen;
		// guard anyway rather than emit garbage.
		return nil
	}

	for col := 1; col < len(fields) && col <= len(venues); col++ {
		cell := strings.TrimSpace(fields[col])
		if cell == "" || isAnnotationCell(cell) {
			continue
		}
		venue := venues[col-1]
		if venue == "" {
			continue
		}

		name, start := splitTimeOverride(cell, cutoff)
		if start == "" {
			start = slotTime
		}

		out = append(out, model.Event{
			ID:         uuid.NewString(),
			ArtistName: name,
			Venue:      venue,
			Day:        day,
			StartTime:  start,
			Source:     model.SourceCSVImport,
		})
	}
	return out
}

// isAnnotationCell reports whether a cell carries no performance: fully
// parenthesized notes, navigation glyphs, or "no set times" markers.
func isAnnotationCell(cell string) bool {
	if strings.HasPrefix(cell, "(") && strings.HasSuffix(cell, ")") {
		return true
	}
	if strings.HasPrefix(cell, "<") || strings.HasPrefix(cell, ">") {
		return true
	}
	return strings.Contains(strings.ToLower(cell), "no set times")
}

// splitTimeOverride strips a trailing "(HHMM)" override from an artist cell.
// The left 1-2 digits are the hour, the remaining 2 the minutes; an hour
// below the cutoff is shifted to the afternoon/evening (+12). Returns the
// cleaned name and the override as "HH:MM", or the cell unchanged and ""
// when no valid override is present.
func splitTimeOverride(cell string, cutoff int) (name, start string) {
	m := timeOverrideRe.FindStringSubmatch(cell)
	if m == nil {
		return cell, ""
	}
	digits := m[2]
	h := atoiFast(digits[:len(digits)-2])
	min := atoiFast(digits[len(digits)-2:])
	if min > 59 || h > 23 {
		return cell, ""
	}
	if h < cutoff {
		h += 12
	}
	return strings.TrimSpace(m[1]), timegrid.FormatClock(h%24, min)
}
