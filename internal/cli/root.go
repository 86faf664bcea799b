package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/faizmokh/nibab/internal/bible"
	"github.com/faizmokh/nibab/internal/config"
	"github.com/faizmokh/nibab/internal/files"
	"github.com/faizmokh/nibab/internal/plan"
	"github.com/faizmokh/nibab/internal/ui"
	"github.com/faizmokh/nibab/internal/version"
)

// env is what every subcommand runs against. The root command fills it in
// before any subcommand's RunE.
type env struct {
	store   *plan.Store
	catalog *bible.Catalog
	config  config.Config
	logger  *slog.Logger
}

type globalOptions struct {
	home    string
	catalog string
	verbose bool
}

func newEnv(opts globalOptions, stderr io.Writer) (*env, error) {
	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	manager, err := files.NewManager(opts.home)
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(manager.ConfigPath())
	if err != nil {
		return nil, err
	}

	catalogPath := cfg.Catalog
	if opts.catalog != "" {
		catalogPath = opts.catalog
	}
	catalog := bible.Builtin()
	if catalogPath != "" {
		catalog, err = bible.LoadCatalog(catalogPath)
		if err != nil {
			return nil, err
		}
	}

	logger.Debug("environment ready",
		"home", manager.BasePath(),
		"config", cfg.Source,
		"catalog", catalog.Name,
	)
	return &env{
		store:   plan.NewStore(manager, catalog, plan.WithLogger(logger)),
		catalog: catalog,
		config:  cfg,
		logger:  logger,
	}, nil
}

// NewRootCommand creates the top-level Cobra command to host subcommands and TUI launcher.
func NewRootCommand(ctx context.Context) *cobra.Command {
	var (
		opts    globalOptions
		planRef string
	)
	e := &env{}

	cmd := &cobra.Command{
		Use:     "nibab",
		Short:   "Schedule Bible reading plans and track them from your terminal.",
		Version: version.Info(),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := newEnv(opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			*e = *loaded
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := resolvePlan(ctx, e, planRef)
			if err != nil {
				return err
			}
			m := ui.NewModel(ctx, e.store, doc.Plan.ID, e.config.ExtensionDays)
			if _, err := tea.NewProgram(m).Run(); err != nil {
				return fmt.Errorf("run TUI: %w", err)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.home, "home", "", "Data directory (default: $"+files.HomeEnv+" or ~/"+files.DefaultDirName+")")
	flags.StringVar(&opts.catalog, "catalog", "", "Book catalog file in JSON or JSONC (default: built-in KJV)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Log diagnostics to stderr")
	cmd.Flags().StringVar(&planRef, "plan", "", "Plan id or prefix to open (default: latest active plan)")

	cmd.AddCommand(
		newCreateCommand(ctx, e),
		newListCommand(ctx, e),
		newShowCommand(ctx, e),
		newCalcCommand(ctx, e),
		newExtendCommand(ctx, e),
		newNextCommand(ctx, e),
		newDeliverCommand(ctx, e),
		newReadCommand(ctx, e),
		newProgressCommand(ctx, e),
		newStateCommand(ctx, e, "pause", "Pause deliveries for a plan.", "Paused"),
		newStateCommand(ctx, e, "resume", "Resume deliveries for a paused plan.", "Resumed"),
		newHistoryCommand(ctx, e),
		newBooksCommand(e),
		newConfigCommand(e),
		newQuietCommand(),
	)

	return cmd
}

// ExecuteCommand is a thin wrapper that executes the Cobra root command.
func ExecuteCommand(ctx context.Context) error {
	return NewRootCommand(ctx).ExecuteContext(ctx)
}

// Main is a helper used by cmd/nibab/main.go to keep wiring contained in one package.
func Main(ctx context.Context) {
	if err := ExecuteCommand(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
