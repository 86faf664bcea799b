package plan

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/natefinch/atomic"

	"github.com/faizmokh/nibab/internal/schedule"
)

const filePermissions = 0o644

// Format renders a document in the Markdown plan layout. Units are written
// in index order.
func Format(doc Document) string {
	p := doc.Plan

	var b strings.Builder
	fmt.Fprintf(&b, "# Reading plan %s\n\n", p.ID)
	fmt.Fprintf(&b, "- books: %s\n", strings.Join(p.Books, " | "))
	fmt.Fprintf(&b, "- boundary: %s\n", formatBoundary(p.Boundary))
	fmt.Fprintf(&b, "- target: %s\n", formatTarget(p.TargetDate))
	fmt.Fprintf(&b, "- frequency: %s\n", p.Frequency)
	fmt.Fprintf(&b, "- quiet-hours: %s\n", formatWindow(p.QuietHours))
	fmt.Fprintf(&b, "- working-hours: %s\n", formatWindow(p.WorkingHours))
	fmt.Fprintf(&b, "- max-verses: %d\n", p.MaxVersesPerUnit)
	fmt.Fprintf(&b, "- time-lap: %d\n", p.TimeLapMinutes)
	fmt.Fprintf(&b, "- state: %s\n", p.State)
	fmt.Fprintf(&b, "- created: %s\n", p.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "- updated: %s\n", p.UpdatedAt.Format(time.RFC3339))

	b.WriteString("\n" + unitsHeading + "\n")
	units := slices.Clone(doc.Units)
	slices.SortStableFunc(units, func(a, b schedule.ReadingUnit) int { return a.Index - b.Index })
	for _, u := range units {
		b.WriteString(formatUnit(u))
		b.WriteByte('\n')
	}
	return b.String()
}

func formatUnit(u schedule.ReadingUnit) string {
	mark := ' '
	switch u.State {
	case schedule.UnitDelivered:
		mark = '>'
	case schedule.UnitRead:
		mark = 'x'
	}

	var b strings.Builder
	b.Grow(48 + len(u.Book))
	fmt.Fprintf(&b, "- [%c] #%d %s", mark, u.Index, u.Reference())

	var notes []string
	if u.DeliveredAt != nil {
		notes = append(notes, "delivered "+u.DeliveredAt.Format(stampLayout))
	}
	if u.ReadAt != nil {
		notes = append(notes, "read "+u.ReadAt.Format(stampLayout))
	}
	if len(notes) > 0 {
		b.WriteString(" (")
		b.WriteString(strings.Join(notes, ", "))
		b.WriteByte(')')
	}
	return b.String()
}

func formatBoundary(b *schedule.Boundary) string {
	if b == nil {
		return "none"
	}
	start := strconv.Itoa(max(1, b.ChapterStart)) + ":" + strconv.Itoa(max(1, b.VerseStart))

	var end string
	switch {
	case b.ChapterEnd != nil && b.VerseEnd != nil:
		end = fmt.Sprintf("%d:%d", *b.ChapterEnd, *b.VerseEnd)
	case b.ChapterEnd != nil:
		end = strconv.Itoa(*b.ChapterEnd)
	case b.VerseEnd != nil:
		end = ":" + strconv.Itoa(*b.VerseEnd)
	}
	return start + "-" + end
}

func formatTarget(t *time.Time) string {
	if t == nil {
		return "none"
	}
	return t.Format(dateLayout)
}

func formatWindow(w *schedule.TimeWindow) string {
	if w == nil {
		return "none"
	}
	return w.String()
}

func writeFile(path, content string) error {
	if err := atomic.WriteFile(path, strings.NewReader(content)); err != nil {
		return err
	}
	// atomic.WriteFile leaves new files with the temp file's mode.
	return os.Chmod(path, filePermissions)
}
