package schedule

import (
	"fmt"
	"slices"
	"time"
)

// DefaultExtensionDays is how far a deadline moves when the caller does not say.
const DefaultExtensionDays = 7

// Outcome describes what Extend did.
type Outcome uint8

const (
	// Extended means the target date moved and the tail was re-partitioned.
	Extended Outcome = iota
	// Completed means nothing was left to read; the plan is now completed.
	Completed
	// AlreadyCompleted means the plan was completed before the call and nothing changed.
	AlreadyCompleted
)

func (o Outcome) String() string {
	switch o {
	case Extended:
		return "extended"
	case Completed:
		return "completed"
	case AlreadyCompleted:
		return "already completed"
	default:
		return fmt.Sprintf("Outcome(%d)", uint8(o))
	}
}

// ExtendResult is the desired state after an extension. Callers replace
// Superseded with Replacement and must leave Preserved untouched.
type ExtendResult struct {
	Plan        Plan
	Preserved   []ReadingUnit
	Superseded  []ReadingUnit
	Replacement []ReadingUnit
	Outcome     Outcome
}

// Units returns the full unit list after the extension, ordered by index.
func (r ExtendResult) Units() []ReadingUnit {
	out := make([]ReadingUnit, 0, len(r.Preserved)+len(r.Replacement))
	out = append(out, r.Preserved...)
	out = append(out, r.Replacement...)
	sortByIndex(out)
	return out
}

// Extend pushes the plan's target date back by additionalDays (7 when not
// positive) and re-partitions the unread tail at the unit size the new
// deadline calls for. Read units are never touched. Unread units that sit
// before the last read unit keep their range and index too, since moving them
// would collide with the read units around them; only the tail after the last
// read unit is re-segmented, starting at its first unit's position and index.
//
// The inputs are not mutated.
func Extend(provider BookMetadataProvider, plan Plan, units []ReadingUnit, additionalDays int, now time.Time) (ExtendResult, error) {
	ordered := slices.Clone(units)
	sortByIndex(ordered)

	if plan.State == PlanCompleted {
		return ExtendResult{Plan: plan.clone(), Preserved: ordered, Outcome: AlreadyCompleted}, nil
	}

	updated := plan.clone()
	remainingVerses := RemainingVerses(ordered)
	if remainingVerses == 0 {
		updated.State = PlanCompleted
		updated.UpdatedAt = now
		return ExtendResult{Plan: updated, Preserved: ordered, Outcome: Completed}, nil
	}

	if additionalDays <= 0 {
		additionalDays = DefaultExtensionDays
	}
	base := StartOfDay(now)
	if plan.TargetDate != nil {
		base = *plan.TargetDate
	}
	target := base.AddDate(0, 0, additionalDays)
	updated.TargetDate = &target
	updated.UpdatedAt = now

	split := 0
	for i, u := range ordered {
		if u.State == UnitRead {
			split = i + 1
		}
	}
	preserved, tail := ordered[:split], ordered[split:]
	result := ExtendResult{Plan: updated, Preserved: preserved, Outcome: Extended}
	if len(tail) == 0 {
		return result, nil
	}

	remainingDays := max(1, DaysBetween(now, target))
	versesPerUnit := VersesPerUnit(remainingVerses, remainingDays, plan.frequency(), plan.MaxVersesPerUnit)

	ranges, err := ResolveRanges(provider, plan.Books, plan.Boundary)
	if err != nil {
		return ExtendResult{}, err
	}

	tailVerses := RemainingVerses(tail)
	start := Position{Book: tail[0].Book, Chapter: tail[0].Chapter, Verse: tail[0].VerseStart}
	var (
		found  bool
		placed int
	)
	walk := take(from(Verses(ranges), start, &found), tailVerses, &placed)
	replacement := Pack(walk, versesPerUnit, tail[0].Index)

	if !found {
		return ExtendResult{}, fmt.Errorf("%w: %s %d:%d is outside the plan's books", ErrExhaustedRange, start.Book, start.Chapter, start.Verse)
	}
	if placed < tailVerses {
		return ExtendResult{}, fmt.Errorf("%w: placed %d of %d verses", ErrExhaustedRange, placed, tailVerses)
	}

	result.Superseded = tail
	result.Replacement = replacement
	return result, nil
}

func sortByIndex(units []ReadingUnit) {
	slices.SortStableFunc(units, func(a, b ReadingUnit) int {
		return a.Index - b.Index
	})
}
