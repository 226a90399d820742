// Package timegrid maps wall-clock "HH:MM" strings onto a single linear
// minute axis per festival day. A festival day starts at a configurable hour
// (default 9) and runs past midnight into the following early morning, so
// string-chronological order breaks across midnight while offset order does
// not. Layout and conflict computations operate exclusively on offsets.
package timegrid

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultDayStartHour is the hour a festival day begins when the config does
// not override it.
const DefaultDayStartHour = 9

// Default durations, in minutes, applied when an event has no end time.
// SetDuration is used by layout and conflict interval arithmetic;
// UrgencyDuration is used by the now/next classification. Callers must pick
// one and never mix them within a computation.
const (
	SetDuration     = 45
	UrgencyDuration = 60
)

// Axis converts clock strings to minute offsets relative to its day-start
// hour. The zero value is unusable; construct with NewAxis.
type Axis struct {
	startHour int
}

// NewAxis returns an Axis anchored at the given day-start hour. Hours outside
// 0..23 fall back to DefaultDayStartHour.
func NewAxis(startHour int) Axis {
	if startHour < 0 || startHour > 23 {
		startHour = DefaultDayStartHour
	}
	return Axis{startHour: startHour}
}

// StartHour returns the configured day-start hour.
func (a Axis) StartHour() int {
	return a.startHour
}

// Offset maps a wall-clock "HH:MM" to minutes since the day-start hour.
// Times earlier than the day-start hour continue the previous night and are
// shifted by 24h (00:30 with day-start 9 -> (0+24-9)*60+30).
func (a Axis) Offset(clock string) (int, error) {
	h, m, err := ParseClock(clock)
	if err != nil {
		return 0, err
	}
	if h < a.startHour {
		h += 24
	}
	return (h-a.startHour)*60 + m, nil
}

// Range returns the [start, end) offsets for an event window. An empty end
// clock defaults to start + defaultDur minutes.
func (a Axis) Range(startClock, endClock string, defaultDur int) (start, end int, err error) {
	start, err = a.Offset(startClock)
	if err != nil {
		return 0, 0, err
	}
	if endClock == "" {
		return start, start + defaultDur, nil
	}
	end, err = a.Offset(endClock)
	if err != nil {
		return 0, 0, err
	}
	if end <= start {
		// An end at or before the start is treated as a missing end time.
		end = start + defaultDur
	}
	return start, end, nil
}

// OffsetOf maps an instant to the minute offset on its festival day's axis.
func (a Axis) OffsetOf(t time.Time) int {
	h := t.Hour()
	if h < a.startHour {
		h += 24
	}
	return (h-a.startHour)*60 + t.Minute()
}

// FestivalDay returns the ISO date of the festival day an instant belongs
// to: before the day-start hour the instant still counts as the previous
// calendar day's night.
func (a Axis) FestivalDay(t time.Time) string {
	if t.Hour() < a.startHour {
		t = t.AddDate(0, 0, -1)
	}
	return t.Format("2006-01-02")
}

// ClockToTime combines an ISO festival day and an "HH:MM" clock into a
// concrete instant in loc, rolling past-midnight clocks onto the next
// calendar date.
func (a Axis) ClockToTime(day, clock string, loc *time.Location) (time.Time, error) {
	d, err := time.ParseInLocation("2006-01-02", day, loc)
	if err != nil {
		return time.Time{}, err
	}
	h, m, err := ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	if h < a.startHour {
		d = d.AddDate(0, 0, 1)
	}
	return time.Date(d.Year(), d.Month(), d.Day(), h, m, 0, 0, loc), nil
}

// ParseClock parses "HH:MM" (or "H:MM") into hour and minute.
func ParseClock(clock string) (hour, minute int, err error) {
	parts := strings.SplitN(strings.TrimSpace(clock), ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("timegrid: malformed clock %q", clock)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("timegrid: malformed clock %q", clock)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("timegrid: malformed clock %q", clock)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("timegrid: clock %q out of range", clock)
	}
	return hour, minute, nil
}

// FormatClock renders an hour/minute pair as zero-padded "HH:MM".
func FormatClock(hour, minute int) string {
	return fmt.Sprintf("%02d:%02d", hour, minute)
}

// AddMinutes advances an "HH:MM" clock by mins with 24-hour wraparound.
func AddMinutes(clock string, mins int) (string, error) {
	h, m, err := ParseClock(clock)
	if err != nil {
		return "", err
	}
	total := (h*60 + m + mins) % (24 * 60)
	if total < 0 {
		total += 24 * 60
	}
	return FormatClock(total/60, total%60), nil
}

// Overlap reports whether two half-open offset ranges intersect.
func Overlap(startA, endA, startB, endB int) bool {
	return startA < endB && endA > startB
}
