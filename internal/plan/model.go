package plan

import (
	"github.com/faizmokh/nibab/internal/schedule"
)

// Document is one plan file: the plan header plus every unit in index order.
type Document struct {
	Plan  schedule.Plan
	Units []schedule.ReadingUnit
}

// Remaining is the number of unread verses.
func (d Document) Remaining() int {
	return schedule.RemainingVerses(d.Units)
}

// Unit returns the unit with the given index.
func (d Document) Unit(index int) (schedule.ReadingUnit, bool) {
	for _, u := range d.Units {
		if u.Index == index {
			return u, true
		}
	}
	return schedule.ReadingUnit{}, false
}
