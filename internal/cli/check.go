package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/esungul/UniveralValidator/internal/rules"
)

// CheckResult describes a rule file that loaded cleanly.
type CheckResult struct {
	Path       string   `json:"path"`
	Digest     string   `json:"digest"`
	OrderTypes []string `json:"order_types"`
	Rules      int      `json:"rules"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check <rules-file>",
		Short: "Load a rule file and report every issue",
		Long: `Load a rule file (.yaml, .yml, .json or .cue) and report every
configuration issue found. Nothing is validated.

Exit codes:
  0 - Rule file is valid
  1 - Rule file has issues
  2 - Command error

Examples:
  uov check rules.yaml
  uov check rules.cue --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(rootOpts, args[0], cmd)
		},
	}
}

func runCheck(opts *RootOptions, path string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	rs, err := rules.LoadFile(path)
	var cfgErr *rules.ConfigError
	switch {
	case errors.As(err, &cfgErr):
		if f.JSON() {
			return f.fail(ExitFailure, ErrCodeConfig, fmt.Sprintf("%d issue(s) in %s", len(cfgErr.Issues), path), cfgErr.Issues, err)
		}
		w := f.Writer
		fmt.Fprintf(w, "✗ %s: %d issue(s)\n", path, len(cfgErr.Issues))
		for _, issue := range cfgErr.Issues {
			fmt.Fprintf(w, "  %s\n", issue.Error())
		}
		return WrapExitError(ExitFailure, "invalid rule file", err)
	case err != nil:
		return f.fail(ExitCommandError, ErrCodeInput, err.Error(), nil, err)
	}

	result := CheckResult{
		Path:       path,
		Digest:     rs.Digest(),
		OrderTypes: rs.OrderTypes(),
		Rules:      rs.Len(),
	}
	return f.Success(result, func(w io.Writer) {
		fmt.Fprintf(w, "✓ %s: %d rule(s) across %d order type(s)\n", path, result.Rules, len(result.OrderTypes))
		fmt.Fprintf(w, "  digest %s\n", result.Digest)
	})
}
