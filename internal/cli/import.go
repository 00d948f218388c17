package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/esungul/UniveralValidator/internal/store"
)

// ImportResult counts the records written by import.
type ImportResult struct {
	Database    string `json:"database"`
	Subscribers int    `json:"subscribers"`
	Orders      int    `json:"orders"`
	Assets      int    `json:"assets"`
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "import <snapshot-file>",
		Short: "Load a snapshot file into the database",
		Long: `Load subscriber orders and assets from a snapshot file (JSON or YAML)
into SQLite. Records are upserted by subscriber and id, so importing the
same file twice leaves one copy.

Examples:
  uov import snapshots.json --db uov.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(rootOpts, args[0], dbPath, cmd)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database (defaults to database_path)")
	return cmd
}

func runImport(opts *RootOptions, path, dbPath string, cmd *cobra.Command) error {
	cfg, err := opts.settings()
	if err != nil {
		return err
	}
	if dbPath == "" {
		dbPath = cfg.DatabasePath
	}
	f := opts.formatter(cmd)

	snaps, err := ReadSnapshotFile(path)
	if err != nil {
		return f.fail(ExitCommandError, ErrCodeInput, err.Error(), nil, err)
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return f.fail(ExitCommandError, ErrCodeStore, err.Error(), nil, err)
	}
	defer st.Close()

	if err := st.WriteSnapshots(cmd.Context(), snaps...); err != nil {
		return f.fail(ExitCommandError, ErrCodeStore, err.Error(), nil, err)
	}

	result := ImportResult{Database: dbPath, Subscribers: len(snaps)}
	for _, snap := range snaps {
		result.Orders += len(snap.Orders)
		result.Assets += len(snap.Assets)
	}
	return f.Success(result, func(w io.Writer) {
		fmt.Fprintf(w, "✓ Imported %d subscriber(s), %d order(s), %d asset(s) into %s\n",
			result.Subscribers, result.Orders, result.Assets, result.Database)
	})
}
