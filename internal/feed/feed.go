// Package feed renders the attendee's rated schedule as an iCalendar feed so
// it can be subscribed to from a phone calendar.
package feed

import (
	"fmt"
	"sort"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"github.com/brian-pennington/festwiz/internal/model"
	"github.com/brian-pennington/festwiz/internal/timegrid"

	appLog "github.com/brian-pennington/festwiz/internal/log"
)

const prodID = "-//festwiz//festival schedule//EN"

// RatingFunc reports the stored rating for an event's artist, 0 when unrated.
type RatingFunc func(model.Event) int

// Build serializes every event rated at least minRating into an ICS
// calendar. Events without a concrete start time are left out. Output order
// is deterministic: day, start time, venue, artist.
func Build(events []model.Event, rating RatingFunc, minRating int, axis timegrid.Axis, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}

	picked := make([]model.Event, 0)
	for _, ev := range events {
		if ev.StartTime == "" || ev.NoSetTime {
			continue
		}
		if rating(ev) < minRating {
			continue
		}
		picked = append(picked, ev)
	}

	sort.SliceStable(picked, func(a, b int) bool {
		ea, eb := picked[a], picked[b]
		if ea.Day != eb.Day {
			return ea.Day < eb.Day
		}
		sa, _ := axis.Offset(ea.StartTime)
		sb, _ := axis.Offset(eb.StartTime)
		if sa != sb {
			return sa < sb
		}
		if ea.Venue != eb.Venue {
			return ea.Venue < eb.Venue
		}
		return ea.ArtistName < eb.ArtistName
	})

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(prodID)

	now := time.Now().In(loc)
	for _, ev := range picked {
		start, err := axis.ClockToTime(ev.Day, ev.StartTime, loc)
		if err != nil {
			appLog.Error("feed: unplaceable event skipped", err, "artist", ev.ArtistName, "day", ev.Day)
			continue
		}
		var end time.Time
		if ev.EndTime != "" {
			end, err = axis.ClockToTime(ev.Day, ev.EndTime, loc)
			if err != nil || !end.After(start) {
				end = start.Add(timegrid.SetDuration * time.Minute)
			}
		} else {
			end = start.Add(timegrid.SetDuration * time.Minute)
		}

		uid := ev.ID
		if uid == "" {
			uid = uuid.NewString()
		}

		ve := cal.AddEvent(uid)
		ve.SetDtStampTime(now)
		ve.SetStartAt(start)
		ve.SetEndAt(end)
		ve.SetSummary(ev.ArtistName)
		ve.SetLocation(ev.Venue)
		ve.SetDescription(describe(ev))
		if ev.Website != "" {
			ve.SetURL(ev.Website)
		}
	}

	return cal.Serialize()
}

func describe(ev model.Event) string {
	desc := fmt.Sprintf("source: %s", ev.Source)
	if ev.ShowcaseGroup != "" {
		desc += fmt.Sprintf("\nshowcase: %s", ev.ShowcaseGroup)
	}
	if ev.Admission != "" {
		desc += fmt.Sprintf("\nadmission: %s", ev.Admission)
	}
	return desc
}
