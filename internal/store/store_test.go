package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_Pragmas(t *testing.T) {
	s := createTestStore(t)

	assert.NoError(t, s.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, s.verifyPragma("synchronous", "1"))
	assert.NoError(t, s.verifyPragma("busy_timeout", "5000"))
	assert.NoError(t, s.verifyPragma("foreign_keys", "1"))
	assert.NoError(t, s.verifyPragma("user_version", "1"))
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()
	assert.NoError(t, s2.verifyPragma("user_version", "1"))
}

func TestOpen_CreatesTablesAndIndex(t *testing.T) {
	s := createTestStore(t)

	for _, name := range []string{"orders", "assets", "runs", "results", "idx_results_subscriber"} {
		var count int
		err := s.db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE name = ?`, name).Scan(&count)
		require.NoError(t, err)
		assert.Equal(t, 1, count, name)
	}
}

func TestOpen_BadPath(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing", "dir", "test.db"))
	assert.Error(t, err)
}

func TestClose_ZeroStore(t *testing.T) {
	assert.NoError(t, (&Store{}).Close())
}

func TestEmptyReads(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	snaps, err := s.ReadSnapshots(ctx)
	require.NoError(t, err)
	assert.NotNil(t, snaps)
	assert.Empty(t, snaps)

	subs, err := s.Subscribers(ctx)
	require.NoError(t, err)
	assert.NotNil(t, subs)
	assert.Empty(t, subs)

	runs, err := s.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.NotNil(t, runs)
	assert.Empty(t, runs)
}
