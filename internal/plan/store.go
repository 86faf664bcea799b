package plan

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/faizmokh/nibab/internal/files"
	"github.com/faizmokh/nibab/internal/schedule"
)

// Store persists plans as Markdown files under the data directory. Every
// mutation holds the plan's lock file for the whole read-modify-write.
type Store struct {
	manager *files.Manager
	books   schedule.BookMetadataProvider
	loc     *time.Location
	now     func() time.Time
	logger  *slog.Logger
}

// Option customises a Store.
type Option func(*Store)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLocation sets the zone used for calendar dates and unit timestamps.
func WithLocation(loc *time.Location) Option {
	return func(s *Store) { s.loc = loc }
}

// WithLogger sets the diagnostics logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// NewStore wires a store over manager using books for chapter metadata.
func NewStore(manager *files.Manager, books schedule.BookMetadataProvider, opts ...Option) *Store {
	s := &Store{
		manager: manager,
		books:   books,
		loc:     time.Local,
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// At returns a copy of the store whose clock is fixed at t.
func (s *Store) At(t time.Time) *Store {
	c := *s
	c.now = func() time.Time { return t }
	return &c
}

// Books returns the metadata provider the store schedules against.
func (s *Store) Books() schedule.BookMetadataProvider {
	return s.books
}

// Location is the zone dates are interpreted in.
func (s *Store) Location() *time.Location {
	return s.loc
}

// Now is the store clock in its location, truncated to the second.
func (s *Store) Now() time.Time {
	return s.now().In(s.loc).Truncate(time.Second)
}

// Mark describes the outcome of a unit state change.
type Mark struct {
	Document  Document
	Unit      schedule.ReadingUnit
	Changed   bool
	Completed bool
}

// Create builds a new plan from req and writes it. An empty req.ID gets a
// time-ordered UUID.
func (s *Store) Create(ctx context.Context, req schedule.PlanRequest) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	if req.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return Document{}, fmt.Errorf("generate id: %w", err)
		}
		req.ID = id.String()
	}

	now := s.Now()
	p, units, err := schedule.NewPlan(s.books, req, now)
	if err != nil {
		return Document{}, err
	}
	doc := Document{Plan: p, Units: units}

	err = s.withLock(ctx, req.ID, func() error {
		path := s.manager.PlanPath(req.ID)
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s", ErrPlanExists, req.ID)
		}
		return writeFile(path, Format(doc))
	})
	if err != nil {
		return Document{}, err
	}

	s.record(req.ID, now, EventPlanCreated, map[string]any{
		"books":  p.Books,
		"units":  len(units),
		"verses": doc.Remaining(),
	})
	s.logger.Debug("plan created", "id", req.ID, "units", len(units))
	return doc, nil
}

// Load reads one plan.
func (s *Store) Load(ctx context.Context, id string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	if err := files.ValidateID(id); err != nil {
		return Document{}, err
	}
	return s.load(id)
}

func (s *Store) load(id string) (Document, error) {
	path := s.manager.PlanPath(id)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Document{}, fmt.Errorf("%w: %s", ErrPlanNotFound, id)
		}
		return Document{}, err
	}

	doc, err := Parse(bytes.NewReader(data), s.loc)
	if err != nil {
		return Document{}, fmt.Errorf("%s: %w", path, err)
	}
	if doc.Plan.ID != id {
		return Document{}, fmt.Errorf("%s: %w: title names plan %s", path, ErrMalformedPlan, doc.Plan.ID)
	}
	if err := schedule.Validate(doc.Units); err != nil {
		return Document{}, fmt.Errorf("%s: %w: %w", path, ErrMalformedPlan, err)
	}
	return doc, nil
}

// Resolve maps a full id or a unique id prefix to the plan id.
func (s *Store) Resolve(ctx context.Context, ref string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := files.ValidateID(ref); err != nil {
		return "", err
	}
	ids, err := s.manager.PlanIDs()
	if err != nil {
		return "", err
	}
	if slices.Contains(ids, ref) {
		return ref, nil
	}

	var matches []string
	for _, id := range ids {
		if strings.HasPrefix(id, ref) {
			matches = append(matches, id)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: %s", ErrPlanNotFound, ref)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("%w: %s matches %d plans", ErrAmbiguousID, ref, len(matches))
	}
}

// List loads every plan in id order, which for generated ids is creation order.
func (s *Store) List(ctx context.Context) ([]Document, error) {
	ids, err := s.manager.PlanIDs()
	if err != nil {
		return nil, err
	}
	docs := make([]Document, 0, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		doc, err := s.load(id)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Latest returns the most recently updated active plan.
func (s *Store) Latest(ctx context.Context) (Document, error) {
	docs, err := s.List(ctx)
	if err != nil {
		return Document{}, err
	}
	var (
		latest Document
		found  bool
	)
	for _, doc := range docs {
		if doc.Plan.State != schedule.PlanActive {
			continue
		}
		if !found || doc.Plan.UpdatedAt.After(latest.Plan.UpdatedAt) {
			latest, found = doc, true
		}
	}
	if !found {
		return Document{}, fmt.Errorf("%w: no active plans", ErrPlanNotFound)
	}
	return latest, nil
}

// Save replaces an existing plan file with doc. Read units on disk must
// appear unchanged in doc.
func (s *Store) Save(ctx context.Context, doc Document) error {
	_, err := s.mutate(ctx, doc.Plan.ID, func(c *change) (bool, error) {
		*c.doc = doc
		return true, nil
	})
	return err
}

// MarkDelivered moves one unit to delivered.
func (s *Store) MarkDelivered(ctx context.Context, id string, index int) (Mark, error) {
	var mark Mark
	doc, err := s.mutate(ctx, id, func(c *change) (bool, error) {
		return deliver(c, index, &mark)
	})
	mark.Document = doc
	return mark, err
}

// DeliverNext delivers the lowest pending unit. Paused and completed plans
// refuse, and so do plans inside quiet hours unless force is set.
func (s *Store) DeliverNext(ctx context.Context, id string, force bool) (Mark, error) {
	var mark Mark
	doc, err := s.mutate(ctx, id, func(c *change) (bool, error) {
		p := c.doc.Plan
		if p.State != schedule.PlanActive {
			return false, fmt.Errorf("%w: %s is %s", ErrPlanNotActive, id, p.State)
		}
		if !force && schedule.InQuietHours(p.QuietHours, c.now) {
			next := schedule.NextDeliveryInstant(p.QuietHours, c.now)
			return false, fmt.Errorf("%w (%s) until %s", ErrQuietHours, p.QuietHours, next.Format(stampLayout))
		}
		next, ok := schedule.NextUnit(c.doc.Units)
		if !ok {
			return false, fmt.Errorf("%w: %s", ErrNothingPending, id)
		}
		return deliver(c, next.Index, &mark)
	})
	mark.Document = doc
	return mark, err
}

func deliver(c *change, index int, mark *Mark) (bool, error) {
	units, changed, err := schedule.MarkDelivered(c.doc.Units, index, c.now)
	if err != nil {
		return false, err
	}
	c.doc.Units = units
	mark.Unit, _ = c.doc.Unit(index)
	mark.Changed = changed
	if changed {
		c.doc.Plan.UpdatedAt = c.now
		c.emit(EventUnitDelivered, map[string]any{
			"index": index,
			"unit":  mark.Unit.Reference(),
		})
	}
	return changed, nil
}

// MarkRead moves one unit to read. Reading the last unread unit completes the plan.
func (s *Store) MarkRead(ctx context.Context, id string, index int) (Mark, error) {
	var mark Mark
	doc, err := s.mutate(ctx, id, func(c *change) (bool, error) {
		units, changed, err := schedule.MarkRead(c.doc.Units, index, c.now)
		if err != nil {
			return false, err
		}
		c.doc.Units = units
		mark.Unit, _ = c.doc.Unit(index)
		mark.Changed = changed
		if !changed {
			return false, nil
		}

		c.doc.Plan.UpdatedAt = c.now
		c.emit(EventUnitRead, map[string]any{
			"index": index,
			"unit":  mark.Unit.Reference(),
		})
		if c.doc.Remaining() == 0 && c.doc.Plan.State != schedule.PlanCompleted {
			c.doc.Plan.State = schedule.PlanCompleted
			mark.Completed = true
			c.emit(EventPlanCompleted, map[string]any{"units": len(c.doc.Units)})
		}
		return true, nil
	})
	mark.Document = doc
	return mark, err
}

// Extend pushes the target date back by days (the default extension when not
// positive) and re-partitions the unread tail.
func (s *Store) Extend(ctx context.Context, id string, days int) (schedule.ExtendResult, error) {
	var result schedule.ExtendResult
	_, err := s.mutate(ctx, id, func(c *change) (bool, error) {
		res, err := schedule.Extend(s.books, c.doc.Plan, c.doc.Units, days, c.now)
		if err != nil {
			return false, err
		}
		result = res
		if res.Outcome == schedule.AlreadyCompleted {
			return false, nil
		}

		c.doc.Plan = res.Plan
		c.doc.Units = res.Units()
		if res.Outcome == schedule.Completed {
			c.emit(EventPlanCompleted, map[string]any{"units": len(c.doc.Units)})
			return true, nil
		}
		c.emit(EventPlanExtended, map[string]any{
			"target":      formatTarget(res.Plan.TargetDate),
			"superseded":  len(res.Superseded),
			"replacement": len(res.Replacement),
		})
		return true, nil
	})
	if err != nil {
		return schedule.ExtendResult{}, err
	}
	s.logger.Debug("plan extended", "id", id, "outcome", result.Outcome.String())
	return result, nil
}

// Update applies patch to the plan header.
func (s *Store) Update(ctx context.Context, id string, patch schedule.PlanPatch) (Document, error) {
	return s.mutate(ctx, id, func(c *change) (bool, error) {
		updated, err := schedule.Update(c.doc.Plan, patch, c.now)
		if err != nil {
			return false, err
		}
		c.doc.Plan = updated
		c.emit(EventPlanUpdated, map[string]any{
			"state":         string(updated.State),
			"quiet_hours":   formatWindow(updated.QuietHours),
			"working_hours": formatWindow(updated.WorkingHours),
		})
		return true, nil
	})
}

// Events returns the plan's history.
func (s *Store) Events(ctx context.Context, id string) ([]Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := files.ValidateID(id); err != nil {
		return nil, err
	}
	return NewEventLog(s.manager.EventsPath(id)).Events()
}

// change is the working copy handed to a mutation. Events are only written
// once the plan file is.
type change struct {
	doc    *Document
	now    time.Time
	events []Event
}

func (c *change) emit(event string, data map[string]any) {
	c.events = append(c.events, Event{Timestamp: c.now, Event: event, Data: data})
}

// mutate runs fn over the current document under the plan lock and writes
// the result when fn reports a change.
func (s *Store) mutate(ctx context.Context, id string, fn func(c *change) (bool, error)) (Document, error) {
	var out Document
	err := s.withLock(ctx, id, func() error {
		doc, err := s.load(id)
		if err != nil {
			return err
		}
		before := slices.Clone(doc.Units)

		c := &change{doc: &doc, now: s.Now()}
		changed, err := fn(c)
		if err != nil {
			return err
		}
		out = doc
		if !changed {
			return nil
		}

		if doc.Plan.ID != id {
			return fmt.Errorf("%w: document names plan %s", ErrMalformedPlan, doc.Plan.ID)
		}
		if err := checkReadUnits(before, doc.Units); err != nil {
			return err
		}
		if err := schedule.Validate(doc.Units); err != nil {
			return err
		}
		if err := writeFile(s.manager.PlanPath(id), Format(doc)); err != nil {
			return err
		}
		for _, e := range c.events {
			s.record(id, e.Timestamp, e.Event, e.Data)
		}
		return nil
	})
	return out, err
}

func (s *Store) withLock(ctx context.Context, id string, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := files.ValidateID(id); err != nil {
		return err
	}
	if _, err := s.manager.EnsurePlansDir(); err != nil {
		return err
	}

	lock, err := acquireLock(ctx, s.manager.LockPath(id), LockTimeout)
	if err != nil {
		return err
	}
	defer lock.release()
	return fn()
}

func (s *Store) record(id string, at time.Time, event string, data map[string]any) {
	if err := NewEventLog(s.manager.EventsPath(id)).Log(at, event, data); err != nil {
		s.logger.Warn("write plan event", "id", id, "event", event, "err", err)
	}
}

// checkReadUnits fails when a unit that was read in before is missing from
// after or would be written differently.
func checkReadUnits(before, after []schedule.ReadingUnit) error {
	written := make(map[int]string, len(after))
	for _, u := range after {
		written[u.Index] = formatUnit(u)
	}
	for _, u := range before {
		if u.State != schedule.UnitRead {
			continue
		}
		if written[u.Index] != formatUnit(u) {
			return fmt.Errorf("%w: unit #%d %s", ErrReadUnitChanged, u.Index, u.Reference())
		}
	}
	return nil
}
