package schedule

import (
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func ruthChapterOnePlan(t *testing.T) (Plan, []ReadingUnit) {
	t.Helper()
	target := date(t, "2026-03-01")
	plan := Plan{
		ID:               "p1",
		Books:            []string{"Ruth"},
		Boundary:         &Boundary{ChapterEnd: intPtr(1)},
		TargetDate:       &target,
		Frequency:        Daily,
		MaxVersesPerUnit: 3,
		TimeLapMinutes:   60,
		State:            PlanActive,
	}
	units, err := Segment(testBooks, plan.Books, plan.Boundary, 3, 0)
	if err != nil {
		t.Fatalf("Segment: %v", err)
	}
	return plan, units
}

func markRead(t *testing.T, units []ReadingUnit, when time.Time, indexes ...int) []ReadingUnit {
	t.Helper()
	for _, idx := range indexes {
		var err error
		units, _, err = MarkRead(units, idx, when)
		if err != nil {
			t.Fatalf("MarkRead(%d): %v", idx, err)
		}
	}
	return units
}

func TestExtendRepartitionsUnreadTail(t *testing.T) {
	plan, units := ruthChapterOnePlan(t)
	now := at(t, "2026-02-22 09:00")
	units = markRead(t, units, now, 0, 1)
	before := slices.Clone(units)

	res, err := Extend(testBooks, plan, units, 7, now)
	if err != nil {
		t.Fatalf("Extend: %v", err)
	}

	if res.Outcome != Extended {
		t.Fatalf("Outcome = %v, want extended", res.Outcome)
	}
	if want := date(t, "2026-03-08"); !res.Plan.TargetDate.Equal(want) {
		t.Fatalf("TargetDate = %s, want %s", res.Plan.TargetDate, want)
	}
	if !res.Plan.UpdatedAt.Equal(now) {
		t.Fatalf("UpdatedAt = %s, want %s", res.Plan.UpdatedAt, now)
	}
	if diff := cmp.Diff(before[:2], res.Preserved); diff != "" {
		t.Fatalf("read units changed (-before +after):\n%s", diff)
	}
	if diff := cmp.Diff(before[2:], res.Superseded); diff != "" {
		t.Fatalf("superseded units mismatch:\n%s", diff)
	}

	// 16 verses over 14 days caps out at one verse per unit.
	if len(res.Replacement) != 16 {
		t.Fatalf("Replacement has %d units, want 16", len(res.Replacement))
	}
	if diff := cmp.Diff(flatten(before[2:]), flatten(res.Replacement)); diff != "" {
		t.Fatalf("replacement does not cover the unread verses:\n%s", diff)
	}
	if err := Validate(res.Units()); err != nil {
		t.Fatalf("Validate(after extend): %v", err)
	}
	if diff := cmp.Diff(before, units); diff != "" {
		t.Fatalf("Extend mutated its input:\n%s", diff)
	}
	if !plan.TargetDate.Equal(date(t, "2026-03-01")) {
		t.Fatalf("Extend mutated the input plan's target date")
	}
}

func TestExtendGrowsUnitsWhenDeadlineIsTight(t *testing.T) {
	target := date(t, "2026-02-23")
	plan := Plan{
		Books:            []string{"Jonah"},
		TargetDate:       &target,
		Frequency:        Daily,
		MaxVersesPerUnit: 10,
		State:            PlanActive,
	}
	units, err := Segment(testBooks, plan.Books, nil, 1, 0)
	if err != nil {
		t.Fatalf("Segment: %v", err)
	}
	now := at(t, "2026-02-22 09:00")

	res, err := Extend(testBooks, plan, units, 1, now)
	if err != nil {
		t.Fatalf("Extend: %v", err)
	}
	// 48 verses over 2 days: 24 per unit, capped at 10 and split per chapter.
	for _, u := range res.Replacement {
		if u.Len() > 10 {
			t.Fatalf("unit %s exceeds cap", u.Reference())
		}
	}
	if res.Replacement[0] != unit("Jonah", 1, 1, 10, 0) {
		t.Fatalf("first replacement = %+v", res.Replacement[0])
	}
	if diff := cmp.Diff(flatten(units), flatten(res.Units())); diff != "" {
		t.Fatalf("coverage changed:\n%s", diff)
	}
}

func TestExtendKeepsUnitsBeforeLastRead(t *testing.T) {
	plan, units := ruthChapterOnePlan(t)
	now := at(t, "2026-02-22 09:00")
	units = markRead(t, units, now, 0, 2)
	before := slices.Clone(units)

	res, err := Extend(testBooks, plan, units, 0, now)
	if err != nil {
		t.Fatalf("Extend: %v", err)
	}

	if diff := cmp.Diff(before[:3], res.Preserved); diff != "" {
		t.Fatalf("preserved mismatch (-want +got):\n%s", diff)
	}
	if got := res.Replacement[0]; got.Index != 3 || got.VerseStart != 10 {
		t.Fatalf("replacement starts at %+v, want index 3 at 1:10", got)
	}
	if err := Validate(res.Units()); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if diff := cmp.Diff(flatten(before), flatten(res.Units())); diff != "" {
		t.Fatalf("coverage changed:\n%s", diff)
	}
	if want := date(t, "2026-03-08"); !res.Plan.TargetDate.Equal(want) {
		t.Fatalf("default extension moved target to %s, want %s", res.Plan.TargetDate, want)
	}
}

func TestExtendWithoutTargetStartsFromToday(t *testing.T) {
	plan, units := ruthChapterOnePlan(t)
	plan.TargetDate = nil
	now := at(t, "2026-02-22 09:00")

	res, err := Extend(testBooks, plan, units, 3, now)
	if err != nil {
		t.Fatalf("Extend: %v", err)
	}
	if want := date(t, "2026-02-25"); !res.Plan.TargetDate.Equal(want) {
		t.Fatalf("TargetDate = %s, want %s", res.Plan.TargetDate, want)
	}
}

func TestExtendCompletesWhenNothingRemains(t *testing.T) {
	plan, units := ruthChapterOnePlan(t)
	now := at(t, "2026-02-22 09:00")
	for _, u := range slices.Clone(units) {
		units = markRead(t, units, now, u.Index)
	}

	res, err := Extend(testBooks, plan, units, 7, now)
	if err != nil {
		t.Fatalf("Extend: %v", err)
	}
	if res.Outcome != Completed || res.Plan.State != PlanCompleted {
		t.Fatalf("Extend() = %v / %s, want completed", res.Outcome, res.Plan.State)
	}
	if !res.Plan.TargetDate.Equal(*plan.TargetDate) {
		t.Fatalf("completed plan target moved to %s", res.Plan.TargetDate)
	}
	if len(res.Replacement) != 0 || len(res.Preserved) != len(units) {
		t.Fatalf("completed plan should keep every unit and replace none")
	}
}

func TestExtendOnCompletedPlanIsNoop(t *testing.T) {
	plan, units := ruthChapterOnePlan(t)
	plan.State = PlanCompleted

	res, err := Extend(testBooks, plan, units, 7, at(t, "2026-02-22 09:00"))
	if err != nil {
		t.Fatalf("Extend: %v", err)
	}
	if res.Outcome != AlreadyCompleted {
		t.Fatalf("Outcome = %v, want already completed", res.Outcome)
	}
	if diff := cmp.Diff(plan, res.Plan); diff != "" {
		t.Fatalf("plan changed:\n%s", diff)
	}
	if diff := cmp.Diff(units, res.Units()); diff != "" {
		t.Fatalf("units changed:\n%s", diff)
	}
}

func TestExtendExhaustedRange(t *testing.T) {
	target := date(t, "2026-03-01")
	plan := Plan{Books: []string{"Jude"}, TargetDate: &target, MaxVersesPerUnit: 3, State: PlanActive}
	now := at(t, "2026-02-22 09:00")

	t.Run("walk runs out of verses", func(t *testing.T) {
		units := []ReadingUnit{unit("Jude", 1, 20, 25, 0), unit("Jude", 1, 26, 30, 1)}
		_, err := Extend(testBooks, plan, units, 7, now)
		if !errors.Is(err, ErrExhaustedRange) {
			t.Fatalf("Extend() error = %v, want ErrExhaustedRange", err)
		}
	})

	t.Run("start outside the plan's books", func(t *testing.T) {
		units := []ReadingUnit{unit("Ruth", 1, 1, 3, 0)}
		_, err := Extend(testBooks, plan, units, 7, now)
		if !errors.Is(err, ErrExhaustedRange) {
			t.Fatalf("Extend() error = %v, want ErrExhaustedRange", err)
		}
	})
}

func TestExtendUnknownBook(t *testing.T) {
	target := date(t, "2026-03-01")
	plan := Plan{Books: []string{"Jude", "Baruch"}, TargetDate: &target, MaxVersesPerUnit: 3, State: PlanActive}
	units := []ReadingUnit{unit("Jude", 1, 1, 3, 0)}

	_, err := Extend(testBooks, plan, units, 7, at(t, "2026-02-22 09:00"))
	if !errors.Is(err, ErrBookNotFound) {
		t.Fatalf("Extend() error = %v, want ErrBookNotFound", err)
	}
}
