package cli

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/esungul/UniveralValidator/internal/store"
)

func TestValidate_Pass(t *testing.T) {
	out, err := execute(t, NewValidateCommand(&RootOptions{Format: "text"}),
		passingSubscriber, "--rules", telecomRules, "--input", snapshotsJSON)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ 12218071145 pass (order O1, change-device)")
	assert.NotContains(t, out, "device-matches-order")
}

func TestValidate_VerboseListsEveryOutcome(t *testing.T) {
	out, err := execute(t, NewValidateCommand(&RootOptions{Format: "text", Verbose: true}),
		passingSubscriber, "--rules", telecomRules, "--input", snapshotsJSON)
	require.NoError(t, err)
	assert.Contains(t, out, "device-matches-order")
	assert.Contains(t, out, "device-class-allowed [advisory]")
}

func TestValidate_FailJSON(t *testing.T) {
	out, err := execute(t, NewValidateCommand(&RootOptions{Format: "json"}),
		failingSubscriber, "--rules", telecomRules, "--input", snapshotsJSON)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp := decodeResponse(t, out)
	assert.Equal(t, "error", resp.Status)
	result := resp.Data.(map[string]any)
	assert.Equal(t, "fail", result["status"])
	assert.Equal(t, "O7", result["order_id"])
	assert.NotEmpty(t, result["digest"])
}

func TestValidate_FailText(t *testing.T) {
	out, err := execute(t, NewValidateCommand(&RootOptions{Format: "text"}),
		failingSubscriber, "--rules", telecomRules, "--input", snapshotsJSON)
	require.Error(t, err)
	assert.Contains(t, out, "✗ 12218071146 fail")
	assert.Contains(t, out, `device-matches-order: order has "smartphone" but hierarchy has "tablet" (asset D9)`)
}

func TestValidate_UnknownSubscriberHasNoOrders(t *testing.T) {
	out, err := execute(t, NewValidateCommand(&RootOptions{Format: "text"}),
		"19999999999", "--rules", telecomRules, "--input", snapshotsJSON)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "19999999999 error")
	assert.Contains(t, out, "NO_ORDERS")
}

func TestValidate_CommandErrors(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantCode int
		wantOut  string
	}{
		{
			name:     "no rules",
			args:     []string{passingSubscriber, "--input", snapshotsJSON},
			wantCode: ExitCommandError,
			wantOut:  "rules file is required",
		},
		{
			name:     "no source",
			args:     []string{passingSubscriber, "--rules", telecomRules},
			wantCode: ExitCommandError,
			wantOut:  "one of --input or --db is required",
		},
		{
			name:     "missing input",
			args:     []string{passingSubscriber, "--rules", telecomRules, "--input", "absent.json"},
			wantCode: ExitCommandError,
			wantOut:  "read snapshots",
		},
		{
			name:     "broken rules",
			args:     []string{passingSubscriber, "--rules", "absent.yaml", "--input", snapshotsJSON},
			wantCode: ExitFailure,
			wantOut:  ErrCodeConfig,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, NewValidateCommand(&RootOptions{Format: "text"}), tt.args...)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, GetExitCode(err))
			assert.Contains(t, out, tt.wantOut)
		})
	}
}

func TestValidate_FromDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "uov.db")
	_, err := execute(t, NewImportCommand(&RootOptions{Format: "text"}), snapshotsJSON, "--db", dbPath)
	require.NoError(t, err)

	out, err := execute(t, NewValidateCommand(&RootOptions{Format: "text"}),
		passingSubscriber, "--rules", telecomRules, "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "pass (order O1, change-device)")
}

func TestImport(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "uov.db")

	out, err := execute(t, NewImportCommand(&RootOptions{Format: "json"}), snapshotsJSON, "--db", dbPath)
	require.NoError(t, err)
	resp := decodeResponse(t, out)
	data := resp.Data.(map[string]any)
	assert.Equal(t, float64(2), data["subscribers"])
	assert.Equal(t, float64(2), data["orders"])
	assert.Equal(t, float64(5), data["assets"])

	// Importing twice keeps one copy of each record.
	_, err = execute(t, NewImportCommand(&RootOptions{Format: "text"}), snapshotsJSON, "--db", dbPath)
	require.NoError(t, err)

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()
	snaps, err := st.ReadSnapshots(context.Background())
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Len(t, snaps[0].Assets, 3)
}

func TestImport_YAMLSingleSnapshot(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "one.yaml")
	writeTestFile(t, path, `
subscriber: "12218071150"
orders:
  - {id: O1, type: Change Plan, created_at: 2025-01-01T09:00:00Z, fields: {newPlan: P-100}}
assets:
  - {id: L1, type: line}
`)
	out, err := execute(t, NewImportCommand(&RootOptions{Format: "text"}), path, "--db", filepath.Join(dir, "uov.db"))
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 1 subscriber(s), 1 order(s), 1 asset(s)")
}

func TestReadSnapshotFile_Errors(t *testing.T) {
	dir := t.TempDir()

	noSubscriber := filepath.Join(dir, "bad.json")
	writeTestFile(t, noSubscriber, `[{"orders": []}]`)
	_, err := ReadSnapshotFile(noSubscriber)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "entry 0 has no subscriber")

	malformed := filepath.Join(dir, "broken.json")
	writeTestFile(t, malformed, `[{"subscriber": `)
	_, err = ReadSnapshotFile(malformed)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse snapshots")
}
