package cli

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/esungul/UniveralValidator/internal/engine"
	"github.com/esungul/UniveralValidator/internal/ir"
	"github.com/esungul/UniveralValidator/internal/rules"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	SourceOptions
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <subscriber>",
		Short: "Validate one subscriber's latest order",
		Long: `Validate the latest order of one subscriber against its asset
hierarchy. A subscriber with no snapshot is reported as NO_ORDERS.

Exit codes:
  0 - pass, pass-with-warnings or not-validated
  1 - fail or error, or the rule file has issues
  2 - Command error

Examples:
  uov validate 12218071145 --rules rules.yaml --input snapshots.json
  uov validate 12218071145 --rules rules.yaml --db uov.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	addSourceFlags(cmd, &opts.SourceOptions)
	return cmd
}

func addSourceFlags(cmd *cobra.Command, src *SourceOptions) {
	cmd.Flags().StringVar(&src.RulesPath, "rules", "", "rule file (defaults to rules_path)")
	cmd.Flags().StringVar(&src.InputPath, "input", "", "snapshot file (JSON or YAML)")
	cmd.Flags().StringVar(&src.DBPath, "db", "", "SQLite database written by import")
}

func runValidate(opts *ValidateOptions, subscriber string, cmd *cobra.Command) error {
	if _, err := opts.settings(); err != nil {
		return err
	}
	f := opts.formatter(cmd)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rs, err := loadRules(f, opts.rulesPath(opts.RootOptions))
	if err != nil {
		return err
	}
	snaps, err := opts.loadSnapshots(ctx, f, subscriber)
	if err != nil {
		return err
	}
	snap := ir.Snapshot{Subscriber: subscriber}
	if len(snaps) > 0 {
		snap = snaps[0]
	}

	eng := engine.New(rules.NewRegistry(rs), engine.WithLogger(opts.logger(f.GetErrWriter())))
	result := eng.Validate(ctx, snap)

	if err := f.Result(!failed(result), result, func(w io.Writer) {
		writeResultText(w, result, opts.Verbose)
	}); err != nil {
		return err
	}
	if failed(result) {
		return NewExitError(ExitFailure, fmt.Sprintf("subscriber %s: %s", subscriber, result.Status))
	}
	return nil
}
