package cli

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/esungul/UniveralValidator/internal/engine"
	"github.com/esungul/UniveralValidator/internal/rules"
	"github.com/esungul/UniveralValidator/internal/store"
)

// BatchJob validates every stored subscriber and records the run. The
// rule file is reloaded before each batch; a broken file keeps the rules
// already loaded.
type BatchJob struct {
	registry  *rules.Registry
	engine    *engine.Engine
	store     *store.Store
	rulesPath string
	cron      *cron.Cron
	logger    *slog.Logger
}

// NewBatchJob creates a job over st. The engine must read its rules from
// reg so reloads take effect.
func NewBatchJob(reg *rules.Registry, eng *engine.Engine, st *store.Store, rulesPath string, logger *slog.Logger) *BatchJob {
	return &BatchJob{
		registry:  reg,
		engine:    eng,
		store:     st,
		rulesPath: rulesPath,
		cron:      cron.New(),
		logger:    logger.With("component", "batch_job"),
	}
}

// RunOnce runs a single batch and returns it after it is saved.
func (j *BatchJob) RunOnce(ctx context.Context) (engine.Run, error) {
	if j.rulesPath != "" {
		if rs, err := j.registry.ReloadFile(j.rulesPath); err != nil {
			j.logger.ErrorContext(ctx, "rule reload failed, keeping current rules", "path", j.rulesPath, "error", err)
		} else {
			j.logger.DebugContext(ctx, "rules reloaded", "digest", rs.Digest())
		}
	}

	snaps, err := j.store.ReadSnapshots(ctx)
	if err != nil {
		return engine.Run{}, fmt.Errorf("read snapshots: %w", err)
	}
	run := j.engine.ValidateAll(ctx, snaps)
	if err := j.store.WriteRun(ctx, run); err != nil {
		return run, fmt.Errorf("save run %s: %w", run.ID, err)
	}
	return run, nil
}

// Start schedules RunOnce on spec (standard five-field cron syntax).
func (j *BatchJob) Start(ctx context.Context, spec string) error {
	_, err := j.cron.AddFunc(spec, func() {
		run, err := j.RunOnce(ctx)
		if err != nil {
			j.logger.ErrorContext(ctx, "scheduled batch failed", "error", err)
			return
		}
		j.logger.InfoContext(ctx, "scheduled batch saved", "run_id", run.ID, "total", run.Summary.Total)
	})
	if err != nil {
		return fmt.Errorf("schedule %q: %w", spec, err)
	}

	j.cron.Start()
	j.logger.InfoContext(ctx, "batch job started", "cron", spec)
	return nil
}

// Stop stops scheduling and waits for a running batch to finish.
func (j *BatchJob) Stop() {
	<-j.cron.Stop().Done()
	j.logger.Info("batch job stopped")
}

// ScheduleOptions holds flags for the schedule command.
type ScheduleOptions struct {
	*RootOptions
	RulesPath string
	DBPath    string
	Cron      string
	Once      bool
}

// NewScheduleCommand creates the schedule command.
func NewScheduleCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ScheduleOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Validate stored subscribers on a cron schedule",
		Long: `Validate every subscriber in the database on a cron schedule and save
each run, until SIGINT or SIGTERM. --once runs a single batch and exits.

Examples:
  uov schedule --rules rules.yaml --db uov.db --cron "0 2 * * *"
  uov schedule --rules rules.yaml --db uov.db --once`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchedule(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.RulesPath, "rules", "", "rule file (defaults to rules_path)")
	cmd.Flags().StringVar(&opts.DBPath, "db", "", "SQLite database (defaults to database_path)")
	cmd.Flags().StringVar(&opts.Cron, "cron", "", "cron spec (defaults to schedule.cron)")
	cmd.Flags().BoolVar(&opts.Once, "once", false, "run one batch now and exit")
	return cmd
}

func runSchedule(opts *ScheduleOptions, cmd *cobra.Command) error {
	cfg, err := opts.settings()
	if err != nil {
		return err
	}
	f := opts.formatter(cmd)
	logger := opts.logger(f.GetErrWriter())

	rulesPath := cmp.Or(opts.RulesPath, cfg.RulesPath)
	dbPath := cmp.Or(opts.DBPath, cfg.DatabasePath)
	spec := cmp.Or(opts.Cron, cfg.Schedule.Cron)

	rs, err := loadRules(f, rulesPath)
	if err != nil {
		return err
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return f.fail(ExitCommandError, ErrCodeStore, err.Error(), nil, err)
	}
	defer st.Close()

	reg := rules.NewRegistry(rs)
	eng := engine.New(reg,
		engine.WithLogger(logger),
		engine.WithMaxConcurrent(cfg.Bulk.MaxConcurrentRequests),
	)
	job := NewBatchJob(reg, eng, st, rulesPath, logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opts.Once {
		run, err := job.RunOnce(ctx)
		if err != nil {
			return f.fail(ExitCommandError, ErrCodeStore, err.Error(), nil, err)
		}
		return f.Success(run.Summary, func(w io.Writer) {
			fmt.Fprintf(w, "✓ Saved run %s: %d subscriber(s), success rate %.2f%%\n",
				run.ID, run.Summary.Total, run.Summary.SuccessRate)
		})
	}

	if err := job.Start(ctx, spec); err != nil {
		return f.fail(ExitCommandError, ErrCodeInput, err.Error(), nil, err)
	}
	<-ctx.Done()
	job.Stop()
	return nil
}
