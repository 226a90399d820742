// Package layout packs temporally overlapping events into side-by-side
// display columns. Assignment is first-fit over minute offsets and fully
// deterministic: the same input order and offsets always produce the same
// columns.
package layout

import (
	"sort"

	"github.com/brian-pennington/festwiz/internal/model"
	"github.com/brian-pennington/festwiz/internal/timegrid"
)

// Span is a half-open [Start, End) offset range on a display track.
type Span struct {
	Start int
	End   int
}

// Assignment is the horizontal slot computed for one span: Column is the
// zero-based display column, TotalColumns the size of the maximal overlap
// cluster touching the span.
type Assignment struct {
	Column       int `json:"column"`
	TotalColumns int `json:"total_columns"`
}

// Pack assigns a column to every span such that no two overlapping spans
// share a column. The result slice is index-aligned with the input.
//
// First pass: spans sorted by start offset (stable, ties keep input order)
// are given the smallest free column among the still-active assignments.
// First-fit intentionally fills low column numbers instead of balancing
// width. Second pass: TotalColumns is one plus the maximum column among all
// spans overlapping each span, scanning the full set, so the reported count
// reflects the true concurrency touching that span rather than the columns
// active at its own start.
func Pack(spans []Span) []Assignment {
	n := len(spans)
	out := make([]Assignment, n)
	if n == 0 {
		return out
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return spans[order[a]].Start < spans[order[b]].Start
	})

	type active struct {
		end    int
		column int
	}
	var actives []active

	for _, idx := range order {
		sp := spans[idx]

		// Drop finished assignments.
		kept := actives[:0]
		for _, a := range actives {
			if a.end > sp.Start {
				kept = append(kept, a)
			}
		}
		actives = kept

		// Smallest non-negative column not in use.
		col := 0
		for {
			taken := false
			for _, a := range actives {
				if a.column == col {
					taken = true
					break
				}
			}
			if !taken {
				break
			}
			col++
		}

		out[idx].Column = col
		actives = append(actives, active{end: sp.End, column: col})
	}

	for i, sp := range spans {
		maxCol := out[i].Column
		for j, other := range spans {
			if i == j {
				continue
			}
			if timegrid.Overlap(sp.Start, sp.End, other.Start, other.End) && out[j].Column > maxCol {
				maxCol = out[j].Column
			}
		}
		out[i].TotalColumns = maxCol + 1
	}

	return out
}

// PackEvents computes assignments for events sharing a display track (same
// venue and day, or the same day for a timeline). Events without a usable
// start time get a zero-width slot at column 0. A missing end time defaults
// to start + 45 minutes.
func PackEvents(events []model.Event, axis timegrid.Axis) []Assignment {
	spans := make([]Span, len(events))
	placeable := make([]bool, len(events))
	for i, ev := range events {
		if ev.StartTime == "" {
			continue
		}
		start, end, err := axis.Range(ev.StartTime, ev.EndTime, timegrid.SetDuration)
		if err != nil {
			continue
		}
		spans[i] = Span{Start: start, End: end}
		placeable[i] = true
	}

	// Pack only the placeable subset so unplaceable events cannot distort
	// cluster widths.
	idx := make([]int, 0, len(events))
	sub := make([]Span, 0, len(events))
	for i, ok := range placeable {
		if ok {
			idx = append(idx, i)
			sub = append(sub, spans[i])
		}
	}

	out := make([]Assignment, len(events))
	for i := range out {
		out[i] = Assignment{Column: 0, TotalColumns: 1}
	}
	for k, a := range Pack(sub) {
		out[idx[k]] = a
	}
	return out
}
