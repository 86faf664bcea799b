package cli

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/faizmokh/nibab/internal/config"
	"github.com/faizmokh/nibab/internal/schedule"
)

func newBooksCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "books",
		Short: "List the books in the catalog.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			total := 0
			books := e.catalog.Books()
			for _, book := range books {
				verses := 0
				for _, n := range book.Verses {
					verses += n
				}
				total += verses
				fmt.Fprintf(out, "%-16s %3d chapters %6s verses\n", book.Name, len(book.Verses), humanize.Comma(int64(verses)))
			}
			fmt.Fprintf(out, "%s: %d books, %s verses\n", e.catalog.Name, len(books), humanize.Comma(int64(total)))
			return nil
		},
	}
}

func newConfigCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as JSON.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := config.Format(e.config)
			if err != nil {
				return err
			}
			if e.config.Source == "" {
				e.logger.Info("no config file, showing defaults")
			}
			fmt.Fprint(cmd.OutOrStdout(), text)
			return nil
		},
	}
}

func newQuietCommand() *cobra.Command {
	var (
		window windowValue
		atFlag string
	)

	cmd := &cobra.Command{
		Use:   "quiet --window HH:MM-HH:MM",
		Short: "Check a quiet-hours window against a time of day.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if window.window == nil {
				return fmt.Errorf("--window is required")
			}

			at := time.Now()
			if atFlag != "" {
				offset, err := schedule.ParseClock(atFlag)
				if err != nil {
					return err
				}
				at = schedule.StartOfDay(at).Add(offset)
			}

			out := cmd.OutOrStdout()
			state := "open"
			if schedule.InQuietHours(window.window, at) {
				state = "quiet"
			}
			fmt.Fprintf(out, "%s at %s is %s\n", window.window, at.Format("15:04"), state)
			fmt.Fprintf(out, "Next delivery: %s\n", schedule.NextDeliveryInstant(window.window, at).Format(stampLayout))
			fmt.Fprintf(out, "Quiet for %d minutes a day\n", schedule.ActiveMinutes(window.window))
			return nil
		},
	}

	cmd.Flags().Var(&window, "window", "Quiet hours to evaluate")
	cmd.Flags().StringVar(&atFlag, "at", "", "Time of day in HH:MM (default: now)")

	return cmd
}
