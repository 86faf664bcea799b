package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/faizmokh/nibab/internal/plan"
	"github.com/faizmokh/nibab/internal/schedule"
)

const (
	dateLayout  = "2006-01-02"
	stampLayout = "2006-01-02 15:04"
)

// resolvePlan loads the plan named by ref, which may be an id prefix. An
// empty ref picks the most recently updated active plan.
func resolvePlan(ctx context.Context, e *env, ref string) (plan.Document, error) {
	if ref == "" {
		return e.store.Latest(ctx)
	}
	id, err := e.store.Resolve(ctx, ref)
	if err != nil {
		return plan.Document{}, err
	}
	return e.store.Load(ctx, id)
}

func resolveID(ctx context.Context, e *env, ref string) (string, error) {
	if ref == "" {
		doc, err := e.store.Latest(ctx)
		if err != nil {
			return "", err
		}
		return doc.Plan.ID, nil
	}
	return e.store.Resolve(ctx, ref)
}

// storeAt returns the store, pinned to nowFlag when one was given.
func storeAt(e *env, nowFlag string) (*plan.Store, error) {
	if nowFlag == "" {
		return e.store, nil
	}
	now, err := time.Parse(time.RFC3339, nowFlag)
	if err != nil {
		return nil, fmt.Errorf("parse --now: %w", err)
	}
	return e.store.At(now.In(e.store.Location())), nil
}

func parseDate(value string, loc *time.Location) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	parsed, err := time.ParseInLocation(dateLayout, value, loc)
	if err != nil {
		return nil, fmt.Errorf("parse date: %w", err)
	}
	return &parsed, nil
}

// parseBoundary builds a boundary from the --from and --to references.
func parseBoundary(from, to string) (*schedule.Boundary, error) {
	if from == "" && to == "" {
		return nil, nil
	}

	b := &schedule.Boundary{}
	if from != "" {
		ch, v, err := plan.ParseRef(from)
		if err != nil {
			return nil, fmt.Errorf("--from: %w", err)
		}
		if ch != nil {
			b.ChapterStart = *ch
		}
		if v != nil {
			b.VerseStart = *v
		}
	}
	if to != "" {
		ch, v, err := plan.ParseRef(to)
		if err != nil {
			return nil, fmt.Errorf("--to: %w", err)
		}
		b.ChapterEnd, b.VerseEnd = ch, v
	}
	return b, nil
}

// frequencyValue is a pflag.Value restricted to daily|weekly.
type frequencyValue schedule.Frequency

var _ pflag.Value = (*frequencyValue)(nil)

func (f *frequencyValue) String() string { return string(*f) }

func (f *frequencyValue) Set(value string) error {
	parsed, err := schedule.ParseFrequency(value)
	if err != nil {
		return err
	}
	*f = frequencyValue(parsed)
	return nil
}

func (f *frequencyValue) Type() string { return "daily|weekly" }

// windowValue is a pflag.Value for HH:MM-HH:MM windows. "none" clears it.
type windowValue struct {
	window *schedule.TimeWindow
	set    bool
}

var _ pflag.Value = (*windowValue)(nil)

func (w *windowValue) String() string {
	if w.window == nil {
		return ""
	}
	return w.window.String()
}

func (w *windowValue) Set(value string) error {
	parsed, err := schedule.ParseWindow(value)
	if err != nil {
		return err
	}
	w.window, w.set = parsed, true
	return nil
}

func (w *windowValue) Type() string { return "HH:MM-HH:MM" }

func unitMark(state schedule.UnitState) string {
	switch state {
	case schedule.UnitDelivered:
		return "[>]"
	case schedule.UnitRead:
		return "[x]"
	default:
		return "[ ]"
	}
}

func formatUnit(u schedule.ReadingUnit) string {
	builder := strings.Builder{}
	builder.Grow(40 + len(u.Book))

	builder.WriteString(unitMark(u.State))
	fmt.Fprintf(&builder, " #%d %s", u.Index, u.Reference())
	if u.ReadAt != nil {
		builder.WriteString(" read ")
		builder.WriteString(u.ReadAt.Format(stampLayout))
	} else if u.DeliveredAt != nil {
		builder.WriteString(" delivered ")
		builder.WriteString(u.DeliveredAt.Format(stampLayout))
	}
	return builder.String()
}

func formatTarget(target *time.Time, now time.Time) string {
	if target == nil {
		return "none"
	}
	return fmt.Sprintf("%s (%s)", target.Format(dateLayout), humanize.RelTime(*target, now, "ago", "from now"))
}

func formatWindow(w *schedule.TimeWindow) string {
	if w == nil {
		return "none"
	}
	return w.String()
}

func percent(doc plan.Document) float64 {
	return schedule.Progress(doc.Units, nil).Percent()
}

func printHeader(cmd *cobra.Command, doc plan.Document, now time.Time) {
	out := cmd.OutOrStdout()
	p := doc.Plan
	fmt.Fprintf(out, "Plan %s (%s)\n", p.ID, p.State)
	fmt.Fprintf(out, "Books: %s\n", strings.Join(p.Books, ", "))
	if p.Boundary != nil {
		fmt.Fprintf(out, "Boundary: %s\n", describeBoundary(p.Boundary))
	}
	fmt.Fprintf(out, "Target: %s\n", formatTarget(p.TargetDate, now))
	fmt.Fprintf(out, "Frequency: %s, up to %d verses per unit, every %d minutes\n", p.Frequency, p.MaxVersesPerUnit, p.TimeLapMinutes)
	fmt.Fprintf(out, "Quiet hours: %s, working hours: %s\n", formatWindow(p.QuietHours), formatWindow(p.WorkingHours))
	fmt.Fprintf(out, "Remaining: %s verses, %.0f%% read\n", humanize.Comma(int64(doc.Remaining())), percent(doc))
}

func describeBoundary(b *schedule.Boundary) string {
	start := fmt.Sprintf("%d:%d", max(1, b.ChapterStart), max(1, b.VerseStart))
	switch {
	case b.ChapterEnd != nil && b.VerseEnd != nil:
		return fmt.Sprintf("%s to %d:%d", start, *b.ChapterEnd, *b.VerseEnd)
	case b.ChapterEnd != nil:
		return fmt.Sprintf("%s to chapter %d", start, *b.ChapterEnd)
	case b.VerseEnd != nil:
		return fmt.Sprintf("%s to verse %d", start, *b.VerseEnd)
	default:
		return start + " to the end"
	}
}
