package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/esungul/UniveralValidator/internal/engine"
	"github.com/esungul/UniveralValidator/internal/rules"
	"github.com/esungul/UniveralValidator/internal/store"
)

// BatchOptions holds flags for the batch command.
type BatchOptions struct {
	*RootOptions
	SourceOptions
	Save        bool
	Concurrency int
}

// NewBatchCommand creates the batch command.
func NewBatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Validate every subscriber in a snapshot source",
		Long: `Validate every subscriber found in --input or --db concurrently and
print the results with a run summary. --save records the run in the
database given by --db.

The output format defaults to bulk.output_format when --format is not
given; csv writes one row per subscriber.

Exit codes:
  0 - No subscriber failed or errored
  1 - At least one fail or error result, or the rule file has issues
  2 - Command error

Examples:
  uov batch --rules rules.yaml --input snapshots.json --format csv
  uov batch --rules rules.yaml --db uov.db --save`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(opts, cmd)
		},
	}

	addSourceFlags(cmd, &opts.SourceOptions)
	cmd.Flags().BoolVar(&opts.Save, "save", false, "persist the run into --db")
	cmd.Flags().IntVar(&opts.Concurrency, "concurrency", 0, "maximum subscribers validated at once (defaults to bulk.max_concurrent_requests)")
	return cmd
}

func runBatch(opts *BatchOptions, cmd *cobra.Command) error {
	cfg, err := opts.settings()
	if err != nil {
		return err
	}
	if fl := cmd.Flags().Lookup("format"); fl != nil && !fl.Changed {
		opts.Format = cfg.Bulk.OutputFormat
	}
	f := opts.formatter(cmd)

	if opts.Save && opts.DBPath == "" {
		return f.fail(ExitCommandError, ErrCodeInput, "--save requires --db", nil, nil)
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = cfg.Bulk.MaxConcurrentRequests
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rs, err := loadRules(f, opts.rulesPath(opts.RootOptions))
	if err != nil {
		return err
	}
	snaps, err := opts.loadSnapshots(ctx, f)
	if err != nil {
		return err
	}

	eng := engine.New(rules.NewRegistry(rs),
		engine.WithLogger(opts.logger(f.GetErrWriter())),
		engine.WithMaxConcurrent(concurrency),
	)
	run := eng.ValidateAll(ctx, snaps)

	if opts.Save {
		if err := saveRun(ctx, opts.DBPath, run); err != nil {
			return f.fail(ExitCommandError, ErrCodeStore, err.Error(), nil, err)
		}
	}

	ok := run.Summary.Failed == 0 && run.Summary.Errors == 0
	if f.Format == "csv" {
		if err := writeRunCSV(f.Writer, run); err != nil {
			return err
		}
	} else if err := f.Result(ok, run, func(w io.Writer) {
		writeRunText(w, run, opts.Verbose)
	}); err != nil {
		return err
	}
	if !ok {
		return NewExitError(ExitFailure, fmt.Sprintf("run %s: %d failed, %d error(s)", run.ID, run.Summary.Failed, run.Summary.Errors))
	}
	return nil
}

func saveRun(ctx context.Context, dbPath string, run engine.Run) error {
	st, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer st.Close()
	if err := st.WriteRun(ctx, run); err != nil {
		return fmt.Errorf("save run %s: %w", run.ID, err)
	}
	return nil
}
