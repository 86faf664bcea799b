package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/faizmokh/nibab/internal/schedule"
)

func newCalcCommand(ctx context.Context, e *env) *cobra.Command {
	var nowFlag string

	cmd := &cobra.Command{
		Use:   "calc [id]",
		Short: "Estimate the unit size needed to finish on time.",
		Long:  "calc recomputes remaining work against the target date. It never changes the plan.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := storeAt(e, nowFlag)
			if err != nil {
				return err
			}
			doc, err := resolvePlan(ctx, e, firstArg(args))
			if err != nil {
				return err
			}

			est := schedule.Calculate(doc.Plan, doc.Units, store.Now())
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Remaining verses: %s\n", humanize.Comma(int64(est.RemainingVerses)))
			fmt.Fprintf(out, "Remaining days: %d\n", est.RemainingDays)
			fmt.Fprintf(out, "Adjusted verses per unit: %d\n", est.AdjustedVersesPerUnit)
			fmt.Fprintf(out, "Next delivery: %s\n", est.NextDelivery.Format(stampLayout))
			e.logger.Debug("estimate",
				"id", doc.Plan.ID,
				"missed", est.Missed,
				"deliveries_per_day", est.DeliveriesPerDay,
			)
			if schedule.OfferExtension(doc.Plan, est.AdjustedVersesPerUnit) {
				fmt.Fprintf(out, "Units would exceed %d verses; consider `nibab extend %s`\n", doc.Plan.MaxVersesPerUnit, doc.Plan.ID)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&nowFlag, "now", "", "Evaluate at this RFC3339 instant (default: now)")

	return cmd
}

func newExtendCommand(ctx context.Context, e *env) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "extend [id]",
		Short: "Push the target date back and resize unread units.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := resolveID(ctx, e, firstArg(args))
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("days") {
				days = e.config.ExtensionDays
			}

			res, err := e.store.Extend(ctx, id, days)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch res.Outcome {
			case schedule.AlreadyCompleted:
				fmt.Fprintf(out, "Plan %s is already completed\n", id)
			case schedule.Completed:
				fmt.Fprintf(out, "Nothing left to read; plan %s completed\n", id)
			default:
				fmt.Fprintf(out, "Extended plan %s to %s\n", id, res.Plan.TargetDate.Format(dateLayout))
				fmt.Fprintf(out, "Replaced %d units with %d\n", len(res.Superseded), len(res.Replacement))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 0, "Days to add to the target date (default from config)")

	return cmd
}

func newNextCommand(ctx context.Context, e *env) *cobra.Command {
	var nowFlag string

	cmd := &cobra.Command{
		Use:   "next [id]",
		Short: "Show the next unit due and whether it can be delivered now.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := storeAt(e, nowFlag)
			if err != nil {
				return err
			}
			doc, err := resolvePlan(ctx, e, firstArg(args))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			next, ok := schedule.NextUnit(doc.Units)
			if !ok {
				fmt.Fprintf(out, "Nothing pending for %s\n", doc.Plan.ID)
				return nil
			}

			now := store.Now()
			quiet := doc.Plan.QuietHours
			fmt.Fprintf(out, "Next: #%d %s\n", next.Index, next.Reference())
			fmt.Fprintf(out, "Time of day: %s\n", schedule.TimeOfDay(now))
			switch {
			case quiet == nil:
				fmt.Fprintln(out, "Quiet hours: none")
			case schedule.InQuietHours(quiet, now):
				fmt.Fprintf(out, "Quiet hours: %s (inside)\n", quiet)
			default:
				fmt.Fprintf(out, "Quiet hours: %s (outside)\n", quiet)
			}
			fmt.Fprintf(out, "Next delivery: %s\n", schedule.NextDeliveryInstant(quiet, now).Format(stampLayout))
			return nil
		},
	}

	cmd.Flags().StringVar(&nowFlag, "now", "", "Evaluate at this RFC3339 instant (default: now)")

	return cmd
}

func newDeliverCommand(ctx context.Context, e *env) *cobra.Command {
	var (
		nowFlag string
		force   bool
	)

	cmd := &cobra.Command{
		Use:   "deliver [id]",
		Short: "Mark the next pending unit as delivered.",
		Long:  "deliver refuses inside the plan's quiet hours unless --force is given, and always refuses for paused or completed plans.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := storeAt(e, nowFlag)
			if err != nil {
				return err
			}
			id, err := resolveID(ctx, e, firstArg(args))
			if err != nil {
				return err
			}

			mark, err := store.DeliverNext(ctx, id, force)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Delivered #%d %s\n", mark.Unit.Index, mark.Unit.Reference())
			return nil
		},
	}

	cmd.Flags().StringVar(&nowFlag, "now", "", "Deliver as of this RFC3339 instant (default: now)")
	cmd.Flags().BoolVar(&force, "force", false, "Deliver even inside quiet hours")

	return cmd
}

func newReadCommand(ctx context.Context, e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "read <id> <index>",
		Short: "Mark a unit as read.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[1])
			if err != nil || index < 0 {
				return fmt.Errorf("index must be a non-negative integer")
			}
			id, err := resolveID(ctx, e, args[0])
			if err != nil {
				return err
			}

			mark, err := e.store.MarkRead(ctx, id, index)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !mark.Changed {
				fmt.Fprintf(out, "Unit #%d %s was already read\n", index, mark.Unit.Reference())
				return nil
			}
			fmt.Fprintf(out, "Read #%d %s\n", index, mark.Unit.Reference())
			if mark.Completed {
				fmt.Fprintf(out, "Plan %s completed\n", id)
			}
			return nil
		},
	}
}

func newProgressCommand(ctx context.Context, e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "progress [id]",
		Short: "Summarise how much of a plan is read, day by day.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := resolvePlan(ctx, e, firstArg(args))
			if err != nil {
				return err
			}

			report := schedule.Progress(doc.Units, e.store.Location())
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Progress: %d/%d units, %s/%s verses (%.1f%%)\n",
				report.CompletedUnits,
				report.TotalUnits,
				humanize.Comma(int64(report.CompletedVerses)),
				humanize.Comma(int64(report.TotalVerses)),
				report.Percent(),
			)
			for _, day := range report.DailyHistory {
				fmt.Fprintf(out, "%s  %d verses\n", day.Date.Format(dateLayout), day.Verses)
			}
			return nil
		},
	}
}
