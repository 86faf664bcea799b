package schedule

import (
	"time"
)

// DefaultTimeLapMinutes is the spacing between deliveries when a plan sets none.
const DefaultTimeLapMinutes = 60

// Estimate is an advisory snapshot of where a plan stands. Nothing is mutated to produce it.
type Estimate struct {
	RemainingVerses       int
	RemainingDays         int
	DeliveriesPerDay      int
	Missed                int
	AdjustedVersesPerUnit int
	NextDelivery          time.Time
}

// Calculate derives remaining work and the per-unit verse count needed to
// finish by the plan's target date, plus the next instant delivery is allowed.
func Calculate(plan Plan, units []ReadingUnit, now time.Time) Estimate {
	freq := plan.frequency()
	target := now
	if plan.TargetDate != nil {
		target = *plan.TargetDate
	}

	remainingVerses := RemainingVerses(units)
	remainingDays := max(1, DaysBetween(now, target))
	deliveries := DeliveriesPerDay(plan.WorkingHours, plan.TimeLapMinutes)
	missed := MissedWorkingDays(target, now, freq)

	return Estimate{
		RemainingVerses:       remainingVerses,
		RemainingDays:         remainingDays,
		DeliveriesPerDay:      deliveries,
		Missed:                missed,
		AdjustedVersesPerUnit: AdjustedVersesPerUnit(remainingVerses, remainingDays, plan.MaxVersesPerUnit, freq, missed, deliveries),
		NextDelivery:          NextDeliveryInstant(plan.QuietHours, now),
	}
}

// RemainingVerses sums the verses of every unit that is not read yet.
func RemainingVerses(units []ReadingUnit) int {
	total := 0
	for _, u := range units {
		if u.State != UnitRead {
			total += u.Len()
		}
	}
	return total
}

// DeliveriesPerDay is how many deliveries fit in the working window at the
// given spacing, at least one.
func DeliveriesPerDay(working *TimeWindow, timeLapMinutes int) int {
	if timeLapMinutes <= 0 {
		timeLapMinutes = DefaultTimeLapMinutes
	}
	return max(1, ActiveMinutes(working)/timeLapMinutes)
}

// MissedWorkingDays returns the compensation buffer added to the remaining
// verses: the whole days (daily) or whole weeks (weekly) from now to target,
// or 0 once the target is not after now.
func MissedWorkingDays(target, now time.Time, freq Frequency) int {
	delta := DaysBetween(now, target)
	if delta <= 0 {
		return 0
	}
	if freq == Weekly {
		return delta / 7
	}
	return delta
}

// AdjustedVersesPerUnit spreads the remaining verses plus the missed buffer
// over the remaining delivery slots, clamped to [1, maxVersesPerUnit].
func AdjustedVersesPerUnit(remainingVerses, remainingDays, maxVersesPerUnit int, freq Frequency, missed, deliveriesPerDay int) int {
	maxVersesPerUnit = max(1, maxVersesPerUnit)
	if remainingDays <= 0 {
		return maxVersesPerUnit
	}
	deliveriesPerDay = max(1, deliveriesPerDay)

	var remainingUnits int
	if freq == Weekly {
		remainingUnits = max(1, (remainingDays/7)*deliveriesPerDay)
	} else {
		remainingUnits = max(1, remainingDays*deliveriesPerDay)
	}

	base := max(1, (remainingVerses+missed)/remainingUnits)
	return min(base, maxVersesPerUnit)
}

// OfferExtension reports whether keeping pace would push units to the
// configured cap, in which case the user should be offered a later deadline.
func OfferExtension(plan Plan, adjustedVersesPerUnit int) bool {
	return adjustedVersesPerUnit >= plan.MaxVersesPerUnit && adjustedVersesPerUnit > 1
}

// DaysBetween counts calendar days from a to b, using a's location for both.
func DaysBetween(a, b time.Time) int {
	loc := a.Location()
	b = b.In(loc)
	da := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	db := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
