package schedule

import (
	"fmt"
	"time"
)

const (
	// DefaultMaxVersesPerUnit caps unit size when a request sets none.
	DefaultMaxVersesPerUnit = 3
	// MaxVersesPerUnitLimit is the largest cap a plan may configure.
	MaxVersesPerUnitLimit = 50
)

// PlanRequest carries the user's choices for a new plan. Zero values take defaults.
type PlanRequest struct {
	ID               string
	Books            []string
	Boundary         *Boundary
	TargetDate       *time.Time
	Frequency        Frequency
	QuietHours       *TimeWindow
	WorkingHours     *TimeWindow
	MaxVersesPerUnit int
	TimeLapMinutes   int
}

// NewPlan validates the request, resolves the selection and returns the
// active plan with its initial pending units indexed from zero.
// No units are produced if any book is unknown.
func NewPlan(provider BookMetadataProvider, req PlanRequest, now time.Time) (Plan, []ReadingUnit, error) {
	if len(req.Books) == 0 {
		return Plan{}, nil, fmt.Errorf("%w: at least one book is required", ErrInvalidPlan)
	}

	maxVerses := req.MaxVersesPerUnit
	if maxVerses == 0 {
		maxVerses = DefaultMaxVersesPerUnit
	}
	if maxVerses < 1 || maxVerses > MaxVersesPerUnitLimit {
		return Plan{}, nil, fmt.Errorf("%w: max verses per unit %d out of range [1, %d]", ErrInvalidPlan, maxVerses, MaxVersesPerUnitLimit)
	}

	timeLap := req.TimeLapMinutes
	if timeLap == 0 {
		timeLap = DefaultTimeLapMinutes
	}
	if timeLap < 0 {
		return Plan{}, nil, fmt.Errorf("%w: time lap %d must be positive", ErrInvalidPlan, timeLap)
	}

	freq := req.Frequency
	if freq == "" {
		freq = Daily
	}
	if freq != Daily && freq != Weekly {
		return Plan{}, nil, fmt.Errorf("%w: %w %q", ErrInvalidPlan, ErrInvalidFrequency, freq)
	}

	ranges, err := ResolveRanges(provider, req.Books, req.Boundary)
	if err != nil {
		return Plan{}, nil, err
	}
	total := CountVerses(ranges)
	if total == 0 {
		return Plan{}, nil, fmt.Errorf("%w: selection contains no verses", ErrInvalidPlan)
	}

	target := now
	if req.TargetDate != nil {
		target = *req.TargetDate
	}
	days := max(1, DaysBetween(now, target))
	versesPerUnit := VersesPerUnit(total, days, freq, maxVerses)

	plan := Plan{
		ID:               req.ID,
		Books:            append([]string(nil), req.Books...),
		Boundary:         req.Boundary,
		TargetDate:       req.TargetDate,
		Frequency:        freq,
		QuietHours:       req.QuietHours,
		WorkingHours:     req.WorkingHours,
		MaxVersesPerUnit: maxVerses,
		TimeLapMinutes:   timeLap,
		State:            PlanActive,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	return plan.clone(), Pack(Verses(ranges), versesPerUnit, 0), nil
}

// PlanPatch lists the plan fields an update may change. Nil fields stay as they are.
type PlanPatch struct {
	State            *PlanState
	QuietHours       *TimeWindow
	ClearQuietHours  bool
	WorkingHours     *TimeWindow
	ClearWorking     bool
	MaxVersesPerUnit *int
	TimeLapMinutes   *int
}

// Update applies patch to a copy of plan. Active and paused plans may move
// between each other or to completed; a completed plan stays completed.
func Update(plan Plan, patch PlanPatch, now time.Time) (Plan, error) {
	updated := plan.clone()

	if patch.State != nil {
		next := *patch.State
		if _, err := ParsePlanState(string(next)); err != nil {
			return Plan{}, err
		}
		if plan.State == PlanCompleted && next != PlanCompleted {
			return Plan{}, fmt.Errorf("%w: plan is completed", ErrInvalidTransition)
		}
		updated.State = next
	}

	switch {
	case patch.ClearQuietHours:
		updated.QuietHours = nil
	case patch.QuietHours != nil:
		w := *patch.QuietHours
		updated.QuietHours = &w
	}
	switch {
	case patch.ClearWorking:
		updated.WorkingHours = nil
	case patch.WorkingHours != nil:
		w := *patch.WorkingHours
		updated.WorkingHours = &w
	}

	if patch.MaxVersesPerUnit != nil {
		n := *patch.MaxVersesPerUnit
		if n < 1 || n > MaxVersesPerUnitLimit {
			return Plan{}, fmt.Errorf("%w: max verses per unit %d out of range [1, %d]", ErrInvalidPlan, n, MaxVersesPerUnitLimit)
		}
		updated.MaxVersesPerUnit = n
	}
	if patch.TimeLapMinutes != nil {
		if *patch.TimeLapMinutes <= 0 {
			return Plan{}, fmt.Errorf("%w: time lap %d must be positive", ErrInvalidPlan, *patch.TimeLapMinutes)
		}
		updated.TimeLapMinutes = *patch.TimeLapMinutes
	}

	updated.UpdatedAt = now
	return updated, nil
}
