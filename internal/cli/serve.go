package cli

import (
	"cmp"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/esungul/UniveralValidator/internal/engine"
	"github.com/esungul/UniveralValidator/internal/rules"
	"github.com/esungul/UniveralValidator/internal/server"
	"github.com/esungul/UniveralValidator/internal/store"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	RulesPath string
	DBPath    string
	Addr      string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the validation HTTP API",
		Long: `Serve the validation API until SIGINT or SIGTERM.

Routes:
  GET  /healthz
  GET  /v1/rules
  POST /v1/rules/reload
  POST /v1/validate
  POST /v1/validate/batch[?save=true]

Saving batches needs --db.

Examples:
  uov serve --rules rules.yaml --addr :8080
  uov serve --config uov.yaml --db uov.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.RulesPath, "rules", "", "rule file (defaults to rules_path)")
	cmd.Flags().StringVar(&opts.DBPath, "db", "", "SQLite database for saved runs")
	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (defaults to server.addr)")
	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	cfg, err := opts.settings()
	if err != nil {
		return err
	}
	f := opts.formatter(cmd)
	logger := opts.logger(f.GetErrWriter())

	rulesPath := cmp.Or(opts.RulesPath, cfg.RulesPath)
	addr := cmp.Or(opts.Addr, cfg.Server.Addr)

	rs, err := loadRules(f, rulesPath)
	if err != nil {
		return err
	}
	reg := rules.NewRegistry(rs)
	eng := engine.New(reg,
		engine.WithLogger(logger),
		engine.WithMaxConcurrent(cfg.Bulk.MaxConcurrentRequests),
	)

	serverOpts := []server.Option{
		server.WithLogger(logger),
		server.WithRulesPath(rulesPath),
		server.WithRequestTimeout(cfg.Server.RequestTimeout),
	}
	if opts.DBPath != "" {
		st, err := store.Open(opts.DBPath)
		if err != nil {
			return f.fail(ExitCommandError, ErrCodeStore, err.Error(), nil, err)
		}
		defer st.Close()
		serverOpts = append(serverOpts, server.WithStore(st))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.New(reg, eng, serverOpts...).ListenAndServe(ctx, addr); err != nil {
		return WrapExitError(ExitCommandError, "serve", err)
	}
	return nil
}
