package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/teambition/rrule-go"

	"github.com/brian-pennington/festwiz/internal/config"
	"github.com/brian-pennington/festwiz/internal/model"
	"github.com/brian-pennington/festwiz/internal/timegrid"

	appLog "github.com/brian-pennington/festwiz/internal/log"
)

// ExpandRecurring turns curated recurring series from the config into
// concrete Events across the festival window. Each entry's RRULE is anchored
// at the first festival day's start time and evaluated over the whole run;
// occurrences landing outside the configured days are dropped. Entries that
// fail to parse are logged and skipped.
func ExpandRecurring(entries []config.RecurringConfig, days []string, axis timegrid.Axis, loc *time.Location) []model.Event {
	if len(entries) == 0 || len(days) == 0 {
		return nil
	}
	if loc == nil {
		loc = time.Local
	}

	daySet := make(map[string]bool, len(days))
	for _, d := range days {
		daySet[d] = true
	}

	windowStart, err := time.ParseInLocation("2006-01-02", days[0], loc)
	if err != nil {
		appLog.Error("recurring: bad first festival day", err, "day", days[0])
		return nil
	}
	windowEnd, err := time.ParseInLocation("2006-01-02", days[len(days)-1], loc)
	if err != nil {
		appLog.Error("recurring: bad last festival day", err, "day", days[len(days)-1])
		return nil
	}
	// Cover the last day's past-midnight tail.
	windowEnd = windowEnd.AddDate(0, 0, 2)

	var out []model.Event
	for _, entry := range entries {
		if entry.Name == "" || entry.Venue == "" || entry.RRule == "" || entry.StartTime == "" {
			continue
		}

		dtstart, err := axis.ClockToTime(days[0], entry.StartTime, loc)
		if err != nil {
			appLog.Error("recurring: bad start time", err, "name", entry.Name, "start_time", entry.StartTime)
			continue
		}

		r, err := rrule.StrToRRule(entry.RRule)
		if err != nil {
			appLog.Error("recurring: failed to parse RRULE", err, "name", entry.Name, "rrule", entry.RRule)
			continue
		}
		r.DTStart(dtstart)

		for _, occ := range r.Between(windowStart, windowEnd, true) {
			day := axis.FestivalDay(occ)
			if !daySet[day] {
				continue
			}
			out = append(out, model.Event{
				ID:         uuid.NewString(),
				ArtistName: entry.Name,
				Venue:      entry.Venue,
				Day:        day,
				StartTime:  entry.StartTime,
				EndTime:    entry.EndTime,
				Admission:  parseAdmission(entry.Admission),
				Source:     model.SourceUnofficial,
			})
		}
	}
	return out
}
