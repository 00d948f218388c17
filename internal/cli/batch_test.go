package cli

import (
	"context"
	"encoding/csv"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/esungul/UniveralValidator/internal/store"
)

func TestBatch_Text(t *testing.T) {
	out, err := execute(t, NewBatchCommand(&RootOptions{Format: "text"}),
		"--rules", telecomRules, "--input", snapshotsJSON)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "1 failed, 0 error(s)")

	assert.Contains(t, out, "✓ 12218071145 pass")
	assert.Contains(t, out, "✗ 12218071146 fail")
	assert.Contains(t, out, "2 subscriber(s), 1 passed, 0 with warnings, 1 failed, 0 not validated, 0 error(s), success rate 50.00%")
}

func TestBatch_JSON(t *testing.T) {
	out, err := execute(t, NewBatchCommand(&RootOptions{Format: "json"}),
		"--rules", telecomRules, "--input", snapshotsJSON, "--concurrency", "1")
	require.Error(t, err)

	resp := decodeResponse(t, out)
	assert.Equal(t, "error", resp.Status)
	run := resp.Data.(map[string]any)
	assert.NotEmpty(t, run["run_id"])
	results := run["results"].([]any)
	require.Len(t, results, 2)
	assert.Equal(t, passingSubscriber, results[0].(map[string]any)["subscriber"])
	assert.Equal(t, run["run_id"], results[1].(map[string]any)["run_id"])
	summary := run["summary"].(map[string]any)
	assert.Equal(t, float64(50), summary["success_rate"])
}

func TestBatch_CSV(t *testing.T) {
	out, err := execute(t, NewBatchCommand(&RootOptions{Format: "csv"}),
		"--rules", telecomRules, "--input", snapshotsJSON)
	require.Error(t, err)

	records, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, csvHeader, records[0])
	assert.Equal(t, []string{passingSubscriber, "O1", "change-device", "pass", "false", "1", "100.00%", ""}, records[1])

	failing := records[2]
	assert.Equal(t, "fail", failing[3])
	assert.Contains(t, failing[7], "line-not-disconnected: value must not equal")
	assert.Contains(t, failing[7], "; device-matches-order: ")
}

func TestBatch_AllPassExitsZero(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "one.json")
	writeTestFile(t, input, `[{"subscriber": "12218071145", "orders": [{"id": "O1", "type": "Change Device",
		"created_at": "2025-01-01T10:00:00Z", "fields": {"order_number": 1, "newDeviceType": "smartphone"}}],
		"assets": [{"id": "L1", "type": "line", "status": "active"}, {"id": "S1", "type": "sim", "parent_id": "L1", "fields": {"iccid": "1"}},
		{"id": "D1", "type": "device", "parent_id": "L1", "fields": {"deviceType": "smartphone", "productClass": "tablet"}}]}]`)

	out, err := execute(t, NewBatchCommand(&RootOptions{Format: "text"}), "--rules", telecomRules, "--input", input)
	require.NoError(t, err)
	assert.Contains(t, out, "success rate 100.00%")
}

func TestBatch_SaveRequiresDB(t *testing.T) {
	out, err := execute(t, NewBatchCommand(&RootOptions{Format: "text"}),
		"--rules", telecomRules, "--input", snapshotsJSON, "--save")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "--save requires --db")
}

func TestBatch_SaveFromDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "uov.db")
	_, err := execute(t, NewImportCommand(&RootOptions{Format: "text"}), snapshotsJSON, "--db", dbPath)
	require.NoError(t, err)

	_, err = execute(t, NewBatchCommand(&RootOptions{Format: "json"}),
		"--rules", telecomRules, "--db", dbPath, "--save")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	runs, err := st.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 2, runs[0].Summary.Total)
	assert.Equal(t, 1, runs[0].Summary.Failed)

	history, err := st.SubscriberHistory(context.Background(), failingSubscriber)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, runs[0].ID, history[0].RunID)
}

func TestBatch_FormatDefaultsToConfig(t *testing.T) {
	t.Setenv("UOV_BULK_OUTPUT_FORMAT", "csv")

	out, err := execute(t, NewRootCommand(), "batch", "--rules", telecomRules, "--input", snapshotsJSON)
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(out, "MSISDN,"), out)

	out, err = execute(t, NewRootCommand(), "batch", "--rules", telecomRules, "--input", snapshotsJSON, "--format", "text")
	require.Error(t, err)
	assert.Contains(t, out, "success rate 50.00%")
}
