package schedule

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// ErrInvalidPartition is returned by Validate for unit lists that break the partition shape.
var ErrInvalidPartition = errors.New("invalid unit partition")

// NextUnit returns the pending unit with the lowest index.
func NextUnit(units []ReadingUnit) (ReadingUnit, bool) {
	var (
		next  ReadingUnit
		found bool
	)
	for _, u := range units {
		if u.State != UnitPending {
			continue
		}
		if !found || u.Index < next.Index {
			next, found = u, true
		}
	}
	return next, found
}

// MarkDelivered moves the unit at index from pending to delivered. It returns
// a new slice and whether anything changed; delivering a delivered unit is a no-op.
func MarkDelivered(units []ReadingUnit, index int, at time.Time) ([]ReadingUnit, bool, error) {
	return transition(units, index, UnitDelivered, at)
}

// MarkRead moves the unit at index to read. Reading a read unit is a no-op.
func MarkRead(units []ReadingUnit, index int, at time.Time) ([]ReadingUnit, bool, error) {
	return transition(units, index, UnitRead, at)
}

func transition(units []ReadingUnit, index int, next UnitState, at time.Time) ([]ReadingUnit, bool, error) {
	pos := slices.IndexFunc(units, func(u ReadingUnit) bool { return u.Index == index })
	if pos < 0 {
		return nil, false, fmt.Errorf("%w: #%d", ErrUnitNotFound, index)
	}

	current := units[pos]
	if current.State == next {
		return slices.Clone(units), false, nil
	}
	if current.State > next {
		return nil, false, fmt.Errorf("%w: unit #%d is %s", ErrInvalidTransition, index, current.State)
	}

	out := slices.Clone(units)
	stamp := at
	u := &out[pos]
	u.State = next
	switch next {
	case UnitDelivered:
		u.DeliveredAt = &stamp
	case UnitRead:
		u.ReadAt = &stamp
	}
	return out, true, nil
}

// DayCount is the number of verses read on one calendar day.
type DayCount struct {
	Date   time.Time
	Verses int
}

// ProgressReport summarises how much of a plan is read.
type ProgressReport struct {
	CompletedUnits  int
	TotalUnits      int
	CompletedVerses int
	TotalVerses     int
	DailyHistory    []DayCount
}

// Percent is the share of verses read, 0..100.
func (p ProgressReport) Percent() float64 {
	if p.TotalVerses == 0 {
		return 0
	}
	return float64(p.CompletedVerses) * 100 / float64(p.TotalVerses)
}

// Progress counts read units and verses and groups read verses by the
// calendar day (in loc) they were read on.
func Progress(units []ReadingUnit, loc *time.Location) ProgressReport {
	if loc == nil {
		loc = time.Local
	}

	report := ProgressReport{TotalUnits: len(units)}
	perDay := map[time.Time]int{}
	for _, u := range units {
		report.TotalVerses += u.Len()
		if u.State != UnitRead {
			continue
		}
		report.CompletedUnits++
		report.CompletedVerses += u.Len()
		if u.ReadAt != nil {
			perDay[StartOfDay(u.ReadAt.In(loc))] += u.Len()
		}
	}

	for day, verses := range perDay {
		report.DailyHistory = append(report.DailyHistory, DayCount{Date: day, Verses: verses})
	}
	slices.SortFunc(report.DailyHistory, func(a, b DayCount) int {
		return a.Date.Compare(b.Date)
	})
	return report
}

// Validate checks that units are indexed 0..n-1 without gaps and that each
// unit covers a non-empty verse range inside one chapter.
func Validate(units []ReadingUnit) error {
	ordered := slices.Clone(units)
	sortByIndex(ordered)
	for i, u := range ordered {
		if u.Index != i {
			return fmt.Errorf("%w: expected index %d, found %d", ErrInvalidPartition, i, u.Index)
		}
		if u.Book == "" || u.Chapter < 1 || u.VerseStart < 1 || u.VerseEnd < u.VerseStart {
			return fmt.Errorf("%w: unit #%d has range %s", ErrInvalidPartition, u.Index, u.Reference())
		}
	}
	return nil
}
