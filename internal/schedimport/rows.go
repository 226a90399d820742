package schedimport

import (
	"regexp"
	"strings"

	"github.com/brian-pennington/festwiz/internal/timegrid"
)

// rowKind classifies a grid row before any events are emitted. Keeping the
// classification separate from emission avoids branching on raw strings in
// the emit loop.
type rowKind int

const (
	// rowHourMarker carries an "H:MM AM/PM" first field that establishes the
	// current base time; its remaining fields are data cells for slot 0.
	rowHourMarker rowKind = iota
	// rowHalfSlot has an empty first field: its data cells belong to the
	// second half-hour under the current base time.
	rowHalfSlot
	// rowSkip is a day label, navigation hint, or otherwise unrecognized row.
	rowSkip
)

type classifiedRow struct {
	kind   rowKind
	base   string // 24-hour "HH:MM"; set only for rowHourMarker
	fields []string
}

var (
	hourMarkerRe = regexp.MustCompile(`(?i)^(\d{1,2}):(\d{2})\s*(AM|PM)$`)
	dayLabelRe   = regexp.MustCompile(`(?i)^day\s+\d+`)
)

// splitRows breaks raw grid text into rows of fields, honoring
// double-quote-escaped commas. A quote toggles "inside quoted field" mode;
// commas inside that mode are not delimiters. Quote characters themselves
// are not part of the field value.
func splitRows(text string) [][]string {
	lines := strings.Split(text, "\n")
	rows := make([][]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		rows = append(rows, splitFields(line))
	}
	return rows
}

func splitFields(line string) []string {
	var fields []string
	var cur strings.Builder
	inQuote := false
	for _, r := range line {
		switch {
		case r == '"':
			inQuote = !inQuote
		case r == ',' && !inQuote:
			fields = append(fields, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	fields = append(fields, cur.String())
	return fields
}

// classifyRow decides how a non-header row participates in emission based on
// its first field.
func classifyRow(fields []string) classifiedRow {
	out := classifiedRow{fields: fields}
	if len(fields) == 0 {
		out.kind = rowSkip
		return out
	}

	first := strings.TrimSpace(fields[0])
	if first == "" {
		out.kind = rowHalfSlot
		return out
	}

	if m := hourMarkerRe.FindStringSubmatch(first); m != nil {
		out.kind = rowHourMarker
		out.base = to24Hour(m[1], m[2], m[3])
		return out
	}

	// Day labels, navigation arrows, and anything else unrecognized.
	out.kind = rowSkip
	return out
}

// isNavigationHint reports whether a first field is a day label or a
// navigation glyph row rather than schedule content.
func isNavigationHint(first string) bool {
	if strings.HasPrefix(first, "<") || strings.HasPrefix(first, ">") {
		return true
	}
	return dayLabelRe.MatchString(first)
}

// to24Hour converts validated hour-marker captures to "HH:MM".
func to24Hour(hourStr, minStr, meridiem string) string {
	h := atoiFast(hourStr)
	m := atoiFast(minStr)
	switch strings.ToUpper(meridiem) {
	case "AM":
		if h == 12 {
			h = 0
		}
	case "PM":
		if h != 12 {
			h += 12
		}
	}
	return timegrid.FormatClock(h%24, m%60)
}

// atoiFast parses digit-only strings already validated by regexp capture.
func atoiFast(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		n = n*10 + int(s[i]-'0')
	}
	return n
}

// headerVenues extracts venue names from the header row, stripping
// navigation-arrow glyphs and surrounding whitespace. Field 0 is ignored.
func headerVenues(header []string) []string {
	if len(header) < 2 {
		return nil
	}
	venues := make([]string, 0, len(header)-1)
	for _, f := range header[1:] {
		f = strings.ReplaceAll(f, "<", "")
		f = strings.ReplaceAll(f, ">", "")
		venues = append(venues, strings.TrimSpace(f))
	}
	return venues
}
