// Package conflict detects time overlaps among rating-worthy events and
// buckets events into temporal and venue groupings for display.
package conflict

import (
	"sort"

	"github.com/brian-pennington/festwiz/internal/model"
	"github.com/brian-pennington/festwiz/internal/timegrid"
)

// RatingFunc reports the stored rating for an event's artist, 0 when unrated.
type RatingFunc func(model.Event) int

// Detect returns the natural keys of rated events whose offset ranges
// overlap another rated event on the same day. Unrated events cannot
// conflict. Detection is pairwise over the day's rated events; a missing end
// time defaults to start + 45 minutes.
func Detect(events []model.Event, rating RatingFunc, axis timegrid.Axis) map[model.NaturalKey]bool {
	type rated struct {
		key        model.NaturalKey
		start, end int
	}

	var candidates []rated
	for _, ev := range events {
		if ev.StartTime == "" || rating(ev) <= 0 {
			continue
		}
		start, end, err := axis.Range(ev.StartTime, ev.EndTime, timegrid.SetDuration)
		if err != nil {
			continue
		}
		candidates = append(candidates, rated{key: ev.NaturalKey(), start: start, end: end})
	}

	conflicts := make(map[model.NaturalKey]bool)
	for i := 0; i < len(candidates); i++ {
		for j := i + 1; j < len(candidates); j++ {
			a, b := candidates[i], candidates[j]
			if timegrid.Overlap(a.start, a.end, b.start, b.end) {
				conflicts[a.key] = true
				conflicts[b.key] = true
			}
		}
	}
	return conflicts
}

// Bucket names for the "what's on around now" view, rendered in this order.
const (
	BucketCurrent  = "current"
	BucketImminent = "imminent"
	BucketUpcoming = "upcoming"
)

// Lookahead parameters in minutes.
const (
	lookaheadWindow   = 120
	imminentThreshold = 45
)

// NowView is the temporal bucketing of a day's events around a reference
// instant. Within each bucket events are sorted by start offset ascending.
type NowView struct {
	Current  []model.Event `json:"current"`
	Imminent []model.Event `json:"imminent"`
	Upcoming []model.Event `json:"upcoming"`
}

// ClassifyNow buckets candidate events around the reference offset. Only
// events whose end is after the reference and whose start is within the
// 2-hour lookahead window participate. Classification uses the 60-minute
// urgency default for missing end times, not the 45-minute layout default.
func ClassifyNow(events []model.Event, nowOffset int, axis timegrid.Axis) NowView {
	type placed struct {
		ev         model.Event
		start, end int
	}
	var candidates []placed
	for _, ev := range events {
		if ev.StartTime == "" || ev.NoSetTime {
			continue
		}
		start, end, err := axis.Range(ev.StartTime, ev.EndTime, timegrid.UrgencyDuration)
		if err != nil {
			continue
		}
		if end <= nowOffset || start > nowOffset+lookaheadWindow {
			continue
		}
		candidates = append(candidates, placed{ev: ev, start: start, end: end})
	}

	sort.SliceStable(candidates, func(a, b int) bool {
		return candidates[a].start < candidates[b].start
	})

	var view NowView
	for _, c := range candidates {
		switch {
		case c.start <= nowOffset && nowOffset < c.end:
			view.Current = append(view.Current, c.ev)
		case c.start > nowOffset && c.start-nowOffset <= imminentThreshold:
			view.Imminent = append(view.Imminent, c.ev)
		default:
			view.Upcoming = append(view.Upcoming, c.ev)
		}
	}
	return view
}

// Cluster is a configured group of physically adjacent venues kept together
// in grid display.
type Cluster struct {
	Name   string
	Venues []string
}

// VenueGroup is one display group with its interest sort key.
type VenueGroup struct {
	Name      string   `json:"name"`
	Venues    []string `json:"venues"`
	MaxRating int      `json:"max_rating"`
}

// GroupVenues orders venues for grid display. Venues in a configured cluster
// stay together; venues in no cluster form singleton groups. Each group's
// sort key is the maximum rating any of its venues' events received that day
// (0 if none); groups sort by that key descending, ties alphabetically by
// group name.
func GroupVenues(events []model.Event, clusters []Cluster, rating RatingFunc) []VenueGroup {
	clusterOf := make(map[string]int)
	groups := make([]VenueGroup, 0, len(clusters))
	for i, c := range clusters {
		groups = append(groups, VenueGroup{Name: c.Name, Venues: append([]string(nil), c.Venues...)})
		for _, v := range c.Venues {
			clusterOf[v] = i
		}
	}

	// Singleton groups for venues seen on events but absent from clusters,
	// in first-seen order so the index map stays stable.
	singleton := make(map[string]int)
	for _, ev := range events {
		if ev.Venue == "" {
			continue
		}
		if _, ok := clusterOf[ev.Venue]; ok {
			continue
		}
		if _, ok := singleton[ev.Venue]; ok {
			continue
		}
		singleton[ev.Venue] = len(groups)
		groups = append(groups, VenueGroup{Name: ev.Venue, Venues: []string{ev.Venue}})
	}

	for _, ev := range events {
		idx, ok := clusterOf[ev.Venue]
		if !ok {
			idx, ok = singleton[ev.Venue]
			if !ok {
				continue
			}
		}
		if r := rating(ev); r > groups[idx].MaxRating {
			groups[idx].MaxRating = r
		}
	}

	sort.SliceStable(groups, func(a, b int) bool {
		if groups[a].MaxRating != groups[b].MaxRating {
			return groups[a].MaxRating > groups[b].MaxRating
		}
		return groups[a].Name < groups[b].Name
	})
	return groups
}
