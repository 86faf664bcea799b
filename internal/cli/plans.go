package cli

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/faizmokh/nibab/internal/schedule"
)

func newCreateCommand(ctx context.Context, e *env) *cobra.Command {
	var (
		books       []string
		id          string
		fromFlag    string
		toFlag      string
		targetFlag  string
		frequency   frequencyValue
		maxVerses   int
		timeLap     int
		quietFlag   windowValue
		workingFlag windowValue
	)

	cmd := &cobra.Command{
		Use:   "create --books <book,...>",
		Short: "Create a reading plan over one or more books.",
		Long: "create splits the selected books into reading units sized so the plan finishes by the target date.\n" +
			"Flags left unset fall back to config.json and then to the built-in defaults.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(books) == 0 {
				return fmt.Errorf("--books is required")
			}
			names, err := e.catalog.Canonical(books)
			if err != nil {
				return err
			}
			boundary, err := parseBoundary(fromFlag, toFlag)
			if err != nil {
				return err
			}
			target, err := parseDate(targetFlag, e.store.Location())
			if err != nil {
				return err
			}

			req := schedule.PlanRequest{
				ID:               id,
				Books:            names,
				Boundary:         boundary,
				TargetDate:       target,
				Frequency:        schedule.Frequency(frequency),
				QuietHours:       e.config.QuietHours.TimeWindow(),
				WorkingHours:     e.config.WorkingHours.TimeWindow(),
				MaxVersesPerUnit: e.config.MaxVersesPerUnit,
				TimeLapMinutes:   e.config.TimeLapMinutes,
			}
			if req.Frequency == "" {
				req.Frequency = e.config.PlanFrequency()
			}
			if cmd.Flags().Changed("max-verses") {
				req.MaxVersesPerUnit = maxVerses
			}
			if cmd.Flags().Changed("time-lap") {
				req.TimeLapMinutes = timeLap
			}
			if quietFlag.set {
				req.QuietHours = quietFlag.window
			}
			if workingFlag.set {
				req.WorkingHours = workingFlag.window
			}

			doc, err := e.store.Create(ctx, req)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Created plan %s with %d units (%s verses)\n",
				doc.Plan.ID, len(doc.Units), humanize.Comma(int64(doc.Remaining())))
			if first, ok := schedule.NextUnit(doc.Units); ok {
				fmt.Fprintf(cmd.OutOrStdout(), "First unit: %s\n", first.Reference())
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringSliceVar(&books, "books", nil, "Books to read, comma separated")
	flags.StringVar(&id, "id", "", "Plan id (default: generated)")
	flags.StringVar(&fromFlag, "from", "", "Start reference as C or C:V")
	flags.StringVar(&toFlag, "to", "", "End reference as C, C:V or :V")
	flags.StringVar(&targetFlag, "target", "", "Target date in YYYY-MM-DD (default: a single day)")
	flags.Var(&frequency, "frequency", "Reading frequency (default from config)")
	flags.IntVar(&maxVerses, "max-verses", 0, "Upper bound on verses per unit")
	flags.IntVar(&timeLap, "time-lap", 0, "Minutes between deliveries")
	flags.Var(&quietFlag, "quiet", "Quiet hours, or none")
	flags.Var(&workingFlag, "working", "Working hours, or none")

	return cmd
}

func newListCommand(ctx context.Context, e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List plans with their state and progress.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			docs, err := e.store.List(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(docs) == 0 {
				fmt.Fprintln(out, "No plans yet")
				return nil
			}

			now := e.store.Now()
			for _, doc := range docs {
				report := schedule.Progress(doc.Units, e.store.Location())
				fmt.Fprintf(out, "%s  %-9s %3.0f%%  %d/%d units  %s  target %s\n",
					doc.Plan.ID,
					doc.Plan.State,
					report.Percent(),
					report.CompletedUnits,
					report.TotalUnits,
					strings.Join(doc.Plan.Books, ", "),
					formatTarget(doc.Plan.TargetDate, now),
				)
			}
			return nil
		},
	}
}

func newShowCommand(ctx context.Context, e *env) *cobra.Command {
	var pendingOnly bool

	cmd := &cobra.Command{
		Use:   "show [id]",
		Short: "Show a plan's settings and units.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := resolvePlan(ctx, e, firstArg(args))
			if err != nil {
				return err
			}

			printHeader(cmd, doc, e.store.Now())
			out := cmd.OutOrStdout()
			fmt.Fprintln(out)
			for _, u := range doc.Units {
				if pendingOnly && u.State == schedule.UnitRead {
					continue
				}
				fmt.Fprintln(out, formatUnit(u))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&pendingOnly, "unread", false, "Hide units already read")

	return cmd
}

func newStateCommand(ctx context.Context, e *env, use, short, verb string) *cobra.Command {
	state := schedule.PlanActive
	if use == "pause" {
		state = schedule.PlanPaused
	}

	return &cobra.Command{
		Use:   use + " [id]",
		Short: short,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := stateTarget(ctx, e, firstArg(args))
			if err != nil {
				return err
			}
			doc, err := e.store.Update(ctx, id, schedule.PlanPatch{State: &state})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s plan %s\n", verb, doc.Plan.ID)
			return nil
		},
	}
}

// stateTarget resolves ref like resolveID but, without a ref, also accepts
// the only plan when it is paused so resume works without an id.
func stateTarget(ctx context.Context, e *env, ref string) (string, error) {
	if ref != "" {
		return e.store.Resolve(ctx, ref)
	}
	docs, err := e.store.List(ctx)
	if err != nil {
		return "", err
	}
	if len(docs) == 1 {
		return docs[0].Plan.ID, nil
	}
	return resolveID(ctx, e, "")
}

func newHistoryCommand(ctx context.Context, e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "history [id]",
		Short: "Print the event history of a plan.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := resolveID(ctx, e, firstArg(args))
			if err != nil {
				return err
			}
			events, err := e.store.Events(ctx, id)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(events) == 0 {
				fmt.Fprintf(out, "No history for %s\n", id)
				return nil
			}
			for _, ev := range events {
				fmt.Fprintf(out, "%s %s", ev.Timestamp.In(e.store.Location()).Format(stampLayout), ev.Event)
				for _, key := range slices.Sorted(maps.Keys(ev.Data)) {
					fmt.Fprintf(out, " %s=%v", key, ev.Data[key])
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
