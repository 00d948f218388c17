package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/esungul/UniveralValidator/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "text" | "json" | "csv"
	ConfigPath string

	// Config is resolved before any subcommand runs. Commands built on
	// their own (tests) resolve it lazily through settings.
	Config *config.Config
}

// ValidFormats defines the allowed output formats. csv only changes the
// output of batch; other commands print text for it.
var ValidFormats = []string{"text", "json", "csv"}

// NewRootCommand creates the root command for the uov CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "uov",
		Short: "uov - order validation engine",
		Long: `Validate a subscriber's latest telecom order against its asset
hierarchy using a declarative rule file.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			if err := config.LoadDotEnv(".env"); err != nil {
				return WrapExitError(ExitCommandError, "load .env", err)
			}
			cfg, err := config.Load(opts.ConfigPath)
			if err != nil {
				return WrapExitError(ExitCommandError, "load config", err)
			}
			opts.Config = cfg
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json|csv)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "process configuration file (YAML)")

	cmd.AddCommand(NewCheckCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewBatchCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewScheduleCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

// settings returns the resolved configuration, loading defaults and
// environment overrides when the root hook did not run.
func (o *RootOptions) settings() (*config.Config, error) {
	if o.Config != nil {
		return o.Config, nil
	}
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "load config", err)
	}
	o.Config = cfg
	return cfg, nil
}

// logger writes text logs to w. --verbose forces debug; otherwise the
// configured log_level applies.
func (o *RootOptions) logger(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if o.Config != nil {
		if l, err := config.ParseLevel(o.Config.LogLevel); err == nil {
			level = l
		}
	}
	if o.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}
