package schedule

import (
	"fmt"
	"strings"
	"time"
)

// Frequency controls how many reading sessions a plan expects per week.
type Frequency string

const (
	// Daily plans expect one session per day.
	Daily Frequency = "daily"
	// Weekly plans expect one session per week.
	Weekly Frequency = "weekly"
)

// ParseFrequency accepts "daily" or "weekly" (case-insensitive). Empty input means Daily.
func ParseFrequency(value string) (Frequency, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", string(Daily):
		return Daily, nil
	case string(Weekly):
		return Weekly, nil
	default:
		return "", fmt.Errorf("%w %q (expected daily|weekly)", ErrInvalidFrequency, value)
	}
}

// unitsPerDay is the number of target units one remaining day is worth when
// sizing units at creation or extension time.
func (f Frequency) unitsPerDay() int {
	if f == Weekly {
		return 7
	}
	return 1
}

// UnitState tracks a unit through pending -> delivered -> read.
type UnitState uint8

const (
	// UnitPending units have not been sent yet.
	UnitPending UnitState = iota
	// UnitDelivered units were sent but not confirmed as read.
	UnitDelivered
	// UnitRead units are done and frozen.
	UnitRead
)

func (s UnitState) String() string {
	switch s {
	case UnitPending:
		return "pending"
	case UnitDelivered:
		return "delivered"
	case UnitRead:
		return "read"
	default:
		return fmt.Sprintf("UnitState(%d)", uint8(s))
	}
}

// PlanState is the lifecycle state of a plan.
type PlanState string

const (
	PlanActive    PlanState = "active"
	PlanPaused    PlanState = "paused"
	PlanCompleted PlanState = "completed"
)

// ParsePlanState validates a stored or user supplied plan state.
func ParsePlanState(value string) (PlanState, error) {
	switch s := PlanState(strings.ToLower(strings.TrimSpace(value))); s {
	case PlanActive, PlanPaused, PlanCompleted:
		return s, nil
	default:
		return "", fmt.Errorf("%w %q (expected active|paused|completed)", ErrInvalidState, value)
	}
}

// BookExtent lists the verse count of every chapter of a book. Verses[0] is chapter 1.
type BookExtent struct {
	Name   string
	Verses []int
}

// Chapters returns the number of chapters in the book.
func (b BookExtent) Chapters() int {
	return len(b.Verses)
}

// VersesIn returns the verse count of a 1-indexed chapter, or 0 when out of range.
func (b BookExtent) VersesIn(chapter int) int {
	if chapter < 1 || chapter > len(b.Verses) {
		return 0
	}
	return b.Verses[chapter-1]
}

// BookMetadataProvider supplies chapter/verse metadata for a book name.
// Unknown names must return an error wrapping ErrBookNotFound.
type BookMetadataProvider interface {
	Extent(name string) (BookExtent, error)
}

// Boundary narrows a book selection to a chapter/verse window.
// Zero ChapterStart/VerseStart mean 1; nil ends mean "to the end".
type Boundary struct {
	ChapterStart int
	VerseStart   int
	ChapterEnd   *int
	VerseEnd     *int
}

func (b *Boundary) start() (int, int) {
	ch, v := 1, 1
	if b == nil {
		return ch, v
	}
	if b.ChapterStart > 0 {
		ch = b.ChapterStart
	}
	if b.VerseStart > 0 {
		v = b.VerseStart
	}
	return ch, v
}

// ReadingUnit is one delivery: a contiguous verse range inside a single chapter.
type ReadingUnit struct {
	Book        string
	Chapter     int
	VerseStart  int
	VerseEnd    int
	Index       int
	State       UnitState
	DeliveredAt *time.Time
	ReadAt      *time.Time
}

// Len is the number of verses in the unit.
func (u ReadingUnit) Len() int {
	if u.VerseEnd < u.VerseStart {
		return 0
	}
	return u.VerseEnd - u.VerseStart + 1
}

// Reference renders the unit as "Book C:V-V".
func (u ReadingUnit) Reference() string {
	return fmt.Sprintf("%s %d:%d-%d", u.Book, u.Chapter, u.VerseStart, u.VerseEnd)
}

// Plan holds the parameters a schedule is derived from.
type Plan struct {
	ID               string
	Books            []string
	Boundary         *Boundary
	TargetDate       *time.Time
	Frequency        Frequency
	QuietHours       *TimeWindow
	WorkingHours     *TimeWindow
	MaxVersesPerUnit int
	TimeLapMinutes   int
	State            PlanState
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (p Plan) frequency() Frequency {
	if p.Frequency == "" {
		return Daily
	}
	return p.Frequency
}

func (p Plan) clone() Plan {
	c := p
	c.Books = append([]string(nil), p.Books...)
	if p.Boundary != nil {
		b := *p.Boundary
		c.Boundary = &b
	}
	if p.TargetDate != nil {
		t := *p.TargetDate
		c.TargetDate = &t
	}
	if p.QuietHours != nil {
		w := *p.QuietHours
		c.QuietHours = &w
	}
	if p.WorkingHours != nil {
		w := *p.WorkingHours
		c.WorkingHours = &w
	}
	return c
}
