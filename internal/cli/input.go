package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/esungul/UniveralValidator/internal/ir"
	"github.com/esungul/UniveralValidator/internal/rules"
	"github.com/esungul/UniveralValidator/internal/store"
)

// SourceOptions selects where snapshots come from: a snapshot file or a
// SQLite database written by import.
type SourceOptions struct {
	RulesPath string
	InputPath string
	DBPath    string
}

// rulesPath prefers the flag over rules_path from configuration.
func (o *SourceOptions) rulesPath(root *RootOptions) string {
	if o.RulesPath != "" {
		return o.RulesPath
	}
	if root.Config != nil {
		return root.Config.RulesPath
	}
	return ""
}

// loadRules loads the rule file. Rule issues are validation failures
// (exit 1); a missing path is a command error.
func loadRules(f *OutputFormatter, path string) (*rules.RuleSet, error) {
	if path == "" {
		return nil, f.fail(ExitCommandError, ErrCodeInput, "rules file is required (--rules or rules_path)", nil, nil)
	}
	rs, err := rules.LoadFile(path)
	if err != nil {
		var cfgErr *rules.ConfigError
		if errors.As(err, &cfgErr) {
			return nil, f.fail(ExitFailure, ErrCodeConfig, fmt.Sprintf("%s: %d issue(s)", path, len(cfgErr.Issues)), cfgErr.Issues, err)
		}
		return nil, f.fail(ExitCommandError, ErrCodeInput, err.Error(), nil, err)
	}
	return rs, nil
}

// loadSnapshots reads snapshots from --input or --db. With subscribers
// set only those are returned.
func (o *SourceOptions) loadSnapshots(ctx context.Context, f *OutputFormatter, subscribers ...string) ([]ir.Snapshot, error) {
	switch {
	case o.InputPath != "":
		snaps, err := ReadSnapshotFile(o.InputPath)
		if err != nil {
			return nil, f.fail(ExitCommandError, ErrCodeInput, err.Error(), nil, err)
		}
		return keepSubscribers(snaps, subscribers), nil
	case o.DBPath != "":
		st, err := store.Open(o.DBPath)
		if err != nil {
			return nil, f.fail(ExitCommandError, ErrCodeStore, err.Error(), nil, err)
		}
		defer st.Close()
		snaps, err := st.ReadSnapshots(ctx, subscribers...)
		if err != nil {
			return nil, f.fail(ExitCommandError, ErrCodeStore, err.Error(), nil, err)
		}
		return snaps, nil
	}
	return nil, f.fail(ExitCommandError, ErrCodeInput, "one of --input or --db is required", nil, nil)
}

func keepSubscribers(snaps []ir.Snapshot, subscribers []string) []ir.Snapshot {
	if len(subscribers) == 0 {
		return snaps
	}
	want := make(map[string]bool, len(subscribers))
	for _, s := range subscribers {
		want[s] = true
	}
	kept := make([]ir.Snapshot, 0, len(subscribers))
	for _, snap := range snaps {
		if want[snap.Subscriber] {
			kept = append(kept, snap)
		}
	}
	return kept
}

// ReadSnapshotFile reads a list of snapshots. .yaml and .yml files are
// YAML; anything else is JSON. A file holding a single snapshot object is
// accepted too.
func ReadSnapshotFile(path string) ([]ir.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshots: %w", err)
	}

	var snaps []ir.Snapshot
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &snaps); err != nil {
			var one ir.Snapshot
			if yaml.Unmarshal(data, &one) != nil {
				return nil, fmt.Errorf("parse snapshots %s: %w", path, err)
			}
			snaps = []ir.Snapshot{one}
		}
	default:
		trimmed := bytes.TrimSpace(data)
		if len(trimmed) > 0 && trimmed[0] == '{' {
			var one ir.Snapshot
			if err := json.Unmarshal(trimmed, &one); err != nil {
				return nil, fmt.Errorf("parse snapshots %s: %w", path, err)
			}
			snaps = []ir.Snapshot{one}
			break
		}
		if err := json.Unmarshal(trimmed, &snaps); err != nil {
			return nil, fmt.Errorf("parse snapshots %s: %w", path, err)
		}
	}

	for i, snap := range snaps {
		if snap.Subscriber == "" {
			return nil, fmt.Errorf("parse snapshots %s: entry %d has no subscriber", path, i)
		}
	}
	return snaps, nil
}
