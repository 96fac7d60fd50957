package storage_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	raft "github.com/coral-raft/raft"
	"github.com/coral-raft/raft/storage"
)

// Whitebox test: checks the exact on-disk JSON shape, matching the
// teacher's rps/jsonfilerps_test.go expectations (field order
// currentTerm, votedFor; written only on change).
func TestFileStore_Whitebox(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")

	fs, err := storage.NewFileStore(path)
	require.NoError(t, err)

	// Non-existent file means first boot.
	require.Equal(t, raft.TermNo(0), fs.CurrentTerm())
	require.Equal(t, raft.NodeID(""), fs.VotedFor())
	require.False(t, fs.Exists())

	// No file written yet for no changes.
	_, err = os.ReadFile(path)
	require.True(t, os.IsNotExist(err))

	require.NoError(t, fs.Update(1, ""))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.JSONEq(t, `{"currentTerm":1,"votedFor":""}`, string(data))

	require.NoError(t, fs.Update(1, "s2:7000"))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	require.JSONEq(t, `{"currentTerm":1,"votedFor":"s2:7000"}`, string(data))
}

// Blackbox test: a restart must observe at least the last durably written
// values.
func TestFileStore_SurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")

	fs1, err := storage.NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, fs1.Update(4, "s3:7000"))

	fs2, err := storage.NewFileStore(path)
	require.NoError(t, err)
	require.Equal(t, raft.TermNo(4), fs2.CurrentTerm())
	require.Equal(t, raft.NodeID("s3:7000"), fs2.VotedFor())
	require.True(t, fs2.Exists())
}

func TestFileStore_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o600))

	_, err := storage.NewFileStore(path)
	require.Error(t, err)
}
