package plan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/faizmokh/nibab/internal/bible"
	"github.com/faizmokh/nibab/internal/files"
	"github.com/faizmokh/nibab/internal/schedule"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func newTestStore(t *testing.T) (*Store, *files.Manager, *testClock) {
	t.Helper()
	mgr, err := files.NewManager(t.TempDir())
	require.NoError(t, err)

	clock := &testClock{now: time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)}
	store := NewStore(mgr, bible.Builtin(),
		WithClock(clock.Now),
		WithLocation(time.UTC),
		WithLogger(slog.New(slog.DiscardHandler)),
	)
	return store, mgr, clock
}

func datePtr(t *testing.T, value string) *time.Time {
	t.Helper()
	d, err := time.ParseInLocation("2006-01-02", value, time.UTC)
	require.NoError(t, err)
	return &d
}

func eventNames(t *testing.T, store *Store, id string) []string {
	t.Helper()
	events, err := store.Events(context.Background(), id)
	require.NoError(t, err)
	names := make([]string, 0, len(events))
	for _, e := range events {
		names = append(names, e.Event)
	}
	return names
}

func TestStoreCreateAndLoad(t *testing.T) {
	store, mgr, _ := newTestStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, schedule.PlanRequest{
		Books:      []string{"Ruth"},
		TargetDate: datePtr(t, "2026-10-26"),
		QuietHours: &schedule.TimeWindow{Start: "22:00", End: "06:00"},
	})
	require.NoError(t, err)

	id, err := uuid.Parse(created.Plan.ID)
	require.NoError(t, err)
	require.Equal(t, uuid.Version(7), id.Version())
	require.Len(t, created.Units, 30)

	data, err := os.ReadFile(mgr.PlanPath(created.Plan.ID))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(data), "# Reading plan "+created.Plan.ID+"\n"))
	require.Contains(t, string(data), "- [ ] #29 Ruth 4:22-22\n")

	loaded, err := store.Load(ctx, created.Plan.ID)
	require.NoError(t, err)
	if diff := cmp.Diff(created, loaded); diff != "" {
		t.Fatalf("loaded plan differs (-created +loaded):\n%s", diff)
	}

	require.Equal(t, []string{EventPlanCreated}, eventNames(t, store, created.Plan.ID))
}

func TestStoreCreateFailures(t *testing.T) {
	store, mgr, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.Create(ctx, schedule.PlanRequest{ID: "p1", Books: []string{"Ruth", "Tobit"}})
	require.ErrorIs(t, err, schedule.ErrBookNotFound)
	_, statErr := os.Stat(mgr.PlanPath("p1"))
	require.ErrorIs(t, statErr, os.ErrNotExist)

	_, err = store.Create(ctx, schedule.PlanRequest{ID: "p1", Books: []string{"Jude"}})
	require.NoError(t, err)
	_, err = store.Create(ctx, schedule.PlanRequest{ID: "p1", Books: []string{"Jude"}})
	require.ErrorIs(t, err, ErrPlanExists)

	_, err = store.Create(ctx, schedule.PlanRequest{ID: "../escape", Books: []string{"Jude"}})
	require.ErrorIs(t, err, files.ErrInvalidPlanID)
}

func TestStoreLoadErrors(t *testing.T) {
	store, mgr, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.Load(ctx, "missing")
	require.ErrorIs(t, err, ErrPlanNotFound)

	_, err = mgr.EnsurePlansDir()
	require.NoError(t, err)
	content := "# Reading plan other\n- books: Jude\n- state: active\n- created: 2026-10-19T08:00:00Z\n"
	require.NoError(t, os.WriteFile(mgr.PlanPath("mine"), []byte(content), 0o644))
	_, err = store.Load(ctx, "mine")
	require.ErrorIs(t, err, ErrMalformedPlan)

	gap := "# Reading plan gap\n- books: Jude\n- state: active\n- created: 2026-10-19T08:00:00Z\n\n## Units\n- [ ] #0 Jude 1:1-3\n- [ ] #2 Jude 1:4-6\n"
	require.NoError(t, os.WriteFile(mgr.PlanPath("gap"), []byte(gap), 0o644))
	_, err = store.Load(ctx, "gap")
	require.ErrorIs(t, err, ErrMalformedPlan)
	require.ErrorIs(t, err, schedule.ErrInvalidPartition)
}

func TestStoreDeliverAndReadCompletesPlan(t *testing.T) {
	store, _, clock := newTestStore(t)
	ctx := context.Background()

	doc, err := store.Create(ctx, schedule.PlanRequest{ID: "jude", Books: []string{"Jude"}, MaxVersesPerUnit: 50})
	require.NoError(t, err)
	require.Len(t, doc.Units, 1)

	clock.Set(time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC))
	mark, err := store.DeliverNext(ctx, "jude", false)
	require.NoError(t, err)
	require.True(t, mark.Changed)
	require.Equal(t, schedule.UnitDelivered, mark.Unit.State)

	_, err = store.DeliverNext(ctx, "jude", false)
	require.ErrorIs(t, err, ErrNothingPending)

	clock.Set(time.Date(2026, 10, 19, 21, 5, 0, 0, time.UTC))
	mark, err = store.MarkRead(ctx, "jude", 0)
	require.NoError(t, err)
	require.True(t, mark.Changed)
	require.True(t, mark.Completed)
	require.Equal(t, schedule.PlanCompleted, mark.Document.Plan.State)

	loaded, err := store.Load(ctx, "jude")
	require.NoError(t, err)
	require.Equal(t, schedule.PlanCompleted, loaded.Plan.State)
	unit := loaded.Units[0]
	require.Equal(t, schedule.UnitRead, unit.State)
	require.True(t, unit.DeliveredAt.Equal(time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC)))
	require.True(t, unit.ReadAt.Equal(time.Date(2026, 10, 19, 21, 5, 0, 0, time.UTC)))

	// Reading again is a no-op and records nothing.
	mark, err = store.MarkRead(ctx, "jude", 0)
	require.NoError(t, err)
	require.False(t, mark.Changed)

	require.Equal(t, []string{EventPlanCreated, EventUnitDelivered, EventUnitRead, EventPlanCompleted}, eventNames(t, store, "jude"))
}

func TestStoreDeliverNextRespectsQuietHoursAndState(t *testing.T) {
	store, _, clock := newTestStore(t)
	ctx := context.Background()

	_, err := store.Create(ctx, schedule.PlanRequest{
		ID:         "quiet",
		Books:      []string{"Jude"},
		QuietHours: &schedule.TimeWindow{Start: "22:00", End: "06:00"},
	})
	require.NoError(t, err)

	clock.Set(time.Date(2026, 10, 19, 23, 0, 0, 0, time.UTC))
	_, err = store.DeliverNext(ctx, "quiet", false)
	require.ErrorIs(t, err, ErrQuietHours)
	require.Contains(t, err.Error(), "2026-10-20 06:00")

	mark, err := store.DeliverNext(ctx, "quiet", true)
	require.NoError(t, err)
	require.Equal(t, 0, mark.Unit.Index)

	paused := schedule.PlanPaused
	_, err = store.Update(ctx, "quiet", schedule.PlanPatch{State: &paused})
	require.NoError(t, err)

	clock.Set(time.Date(2026, 10, 20, 12, 0, 0, 0, time.UTC))
	_, err = store.DeliverNext(ctx, "quiet", false)
	require.ErrorIs(t, err, ErrPlanNotActive)
}

func TestStoreMarkErrors(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.Create(ctx, schedule.PlanRequest{ID: "p", Books: []string{"Jude"}})
	require.NoError(t, err)

	_, err = store.MarkRead(ctx, "p", 99)
	require.ErrorIs(t, err, schedule.ErrUnitNotFound)

	_, err = store.MarkRead(ctx, "p", 0)
	require.NoError(t, err)
	_, err = store.MarkDelivered(ctx, "p", 0)
	require.ErrorIs(t, err, schedule.ErrInvalidTransition)

	_, err = store.MarkRead(ctx, "nope", 0)
	require.ErrorIs(t, err, ErrPlanNotFound)
}

func TestStoreExtendRepartitionsTail(t *testing.T) {
	store, mgr, clock := newTestStore(t)
	ctx := context.Background()

	_, err := store.Create(ctx, schedule.PlanRequest{
		ID:               "ruth",
		Books:            []string{"Ruth"},
		TargetDate:       datePtr(t, "2026-10-26"),
		MaxVersesPerUnit: 10,
	})
	require.NoError(t, err)
	_, err = store.MarkRead(ctx, "ruth", 0)
	require.NoError(t, err)
	_, err = store.MarkRead(ctx, "ruth", 1)
	require.NoError(t, err)
	before, err := store.Load(ctx, "ruth")
	require.NoError(t, err)

	clock.Set(time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC))
	res, err := store.Extend(ctx, "ruth", 7)
	require.NoError(t, err)
	require.Equal(t, schedule.Extended, res.Outcome)
	require.True(t, res.Plan.TargetDate.Equal(*datePtr(t, "2026-11-02")))

	// 65 verses over 14 days: four verses per unit, starting where the tail did.
	require.Equal(t, schedule.ReadingUnit{Book: "Ruth", Chapter: 1, VerseStart: 21, VerseEnd: 22, Index: 2}, res.Replacement[0])
	for _, u := range res.Replacement {
		require.LessOrEqual(t, u.Len(), 4)
	}

	after, err := store.Load(ctx, "ruth")
	require.NoError(t, err)
	if diff := cmp.Diff(before.Units[:2], after.Units[:2]); diff != "" {
		t.Fatalf("read units changed:\n%s", diff)
	}
	if diff := cmp.Diff(res.Units(), after.Units); diff != "" {
		t.Fatalf("stored units differ from the extension result:\n%s", diff)
	}
	require.Equal(t, before.Remaining(), after.Remaining())
	require.Contains(t, eventNames(t, store, "ruth"), EventPlanExtended)

	data, err := os.ReadFile(mgr.PlanPath("ruth"))
	require.NoError(t, err)
	require.Contains(t, string(data), "- target: 2026-11-02\n")
}

func TestStoreExtendCompletedPlanLeavesFileAlone(t *testing.T) {
	store, mgr, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.Create(ctx, schedule.PlanRequest{ID: "done", Books: []string{"Jude"}, MaxVersesPerUnit: 50})
	require.NoError(t, err)
	_, err = store.MarkRead(ctx, "done", 0)
	require.NoError(t, err)

	before, err := os.ReadFile(mgr.PlanPath("done"))
	require.NoError(t, err)

	res, err := store.Extend(ctx, "done", 7)
	require.NoError(t, err)
	require.Equal(t, schedule.AlreadyCompleted, res.Outcome)

	after, err := os.ReadFile(mgr.PlanPath("done"))
	require.NoError(t, err)
	require.Equal(t, string(before), string(after))
}

func TestStoreSaveProtectsReadUnits(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.Create(ctx, schedule.PlanRequest{ID: "p", Books: []string{"Jude"}})
	require.NoError(t, err)
	_, err = store.MarkRead(ctx, "p", 0)
	require.NoError(t, err)

	doc, err := store.Load(ctx, "p")
	require.NoError(t, err)

	changed := doc
	changed.Units = append([]schedule.ReadingUnit(nil), doc.Units...)
	changed.Units[0].VerseEnd++
	changed.Units[1].VerseStart++
	require.ErrorIs(t, store.Save(ctx, changed), ErrReadUnitChanged)

	dropped := doc
	dropped.Units = append([]schedule.ReadingUnit(nil), doc.Units[1:]...)
	for i := range dropped.Units {
		dropped.Units[i].Index--
	}
	require.ErrorIs(t, store.Save(ctx, dropped), ErrReadUnitChanged)

	renamed := doc
	renamed.Plan.ID = "other"
	require.ErrorIs(t, store.Save(ctx, renamed), ErrPlanNotFound)

	doc.Plan.TimeLapMinutes = 15
	require.NoError(t, store.Save(ctx, doc))
	reloaded, err := store.Load(ctx, "p")
	require.NoError(t, err)
	require.Equal(t, 15, reloaded.Plan.TimeLapMinutes)
}

func TestStoreUpdate(t *testing.T) {
	store, _, clock := newTestStore(t)
	ctx := context.Background()

	_, err := store.Create(ctx, schedule.PlanRequest{ID: "p", Books: []string{"Jude"}})
	require.NoError(t, err)

	clock.Set(time.Date(2026, 10, 20, 7, 0, 0, 0, time.UTC))
	window := schedule.TimeWindow{Start: "08:00", End: "17:00"}
	doc, err := store.Update(ctx, "p", schedule.PlanPatch{WorkingHours: &window})
	require.NoError(t, err)
	require.Equal(t, "08:00-17:00", doc.Plan.WorkingHours.String())

	loaded, err := store.Load(ctx, "p")
	require.NoError(t, err)
	require.Equal(t, "08:00-17:00", loaded.Plan.WorkingHours.String())
	require.True(t, loaded.Plan.UpdatedAt.Equal(clock.Now()))

	completed := schedule.PlanCompleted
	_, err = store.Update(ctx, "p", schedule.PlanPatch{State: &completed})
	require.NoError(t, err)
	active := schedule.PlanActive
	_, err = store.Update(ctx, "p", schedule.PlanPatch{State: &active})
	require.ErrorIs(t, err, schedule.ErrInvalidTransition)
}

func TestStoreResolveListAndLatest(t *testing.T) {
	store, _, clock := newTestStore(t)
	ctx := context.Background()

	for i, id := range []string{"alpha-1", "alpha-2", "beta"} {
		clock.Set(time.Date(2026, 10, 19, 8, i, 0, 0, time.UTC))
		_, err := store.Create(ctx, schedule.PlanRequest{ID: id, Books: []string{"Jude"}})
		require.NoError(t, err)
	}

	got, err := store.Resolve(ctx, "alpha-1")
	require.NoError(t, err)
	require.Equal(t, "alpha-1", got)

	got, err = store.Resolve(ctx, "b")
	require.NoError(t, err)
	require.Equal(t, "beta", got)

	_, err = store.Resolve(ctx, "alp")
	require.ErrorIs(t, err, ErrAmbiguousID)
	_, err = store.Resolve(ctx, "zzz")
	require.ErrorIs(t, err, ErrPlanNotFound)

	docs, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 3)
	require.Equal(t, "alpha-1", docs[0].Plan.ID)

	latest, err := store.Latest(ctx)
	require.NoError(t, err)
	require.Equal(t, "beta", latest.Plan.ID)

	paused := schedule.PlanPaused
	_, err = store.Update(ctx, "beta", schedule.PlanPatch{State: &paused})
	require.NoError(t, err)
	latest, err = store.Latest(ctx)
	require.NoError(t, err)
	require.Equal(t, "alpha-2", latest.Plan.ID)
}

func TestStoreLatestWithoutPlans(t *testing.T) {
	store, _, _ := newTestStore(t)
	_, err := store.Latest(context.Background())
	require.ErrorIs(t, err, ErrPlanNotFound)
}

func TestStoreSerialisesConcurrentWriters(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()

	doc, err := store.Create(ctx, schedule.PlanRequest{ID: "busy", Books: []string{"Ruth"}, TargetDate: datePtr(t, "2026-10-26")})
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, len(doc.Units))
	for _, u := range doc.Units {
		wg.Add(1)
		go func(index int) {
			defer wg.Done()
			if _, err := store.MarkRead(ctx, "busy", index); err != nil {
				errs <- fmt.Errorf("unit %d: %w", index, err)
			}
		}(u.Index)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}

	loaded, err := store.Load(ctx, "busy")
	require.NoError(t, err)
	require.Zero(t, loaded.Remaining())
	require.Equal(t, schedule.PlanCompleted, loaded.Plan.State)
}

func TestStoreRespectsCancelledContext(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Create(ctx, schedule.PlanRequest{Books: []string{"Jude"}})
	require.True(t, errors.Is(err, context.Canceled))
}
