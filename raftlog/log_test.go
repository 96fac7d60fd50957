package raftlog_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	raft "github.com/coral-raft/raft"
	"github.com/coral-raft/raft/raftlog"
)

func TestFileLog_AppendAndReplay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.dat")

	l, err := raftlog.OpenFileLog(path)
	require.NoError(t, err)
	require.Equal(t, raft.LogIndex(0), l.LastIndex())
	require.Equal(t, raft.TermNo(0), l.LastTerm())

	_, err = l.Append(1, raft.Command{Name: "x", Value: float64(1)})
	require.NoError(t, err)
	_, err = l.Append(1, raft.Command{Name: "y", Value: float64(2)})
	require.NoError(t, err)
	_, err = l.Append(2, raft.Command{Name: "x", Value: float64(3)})
	require.NoError(t, err)

	require.Equal(t, raft.LogIndex(3), l.LastIndex())
	require.Equal(t, raft.TermNo(2), l.LastTerm())
	require.NoError(t, l.Close())

	// Reopen: replay must reproduce the same entries.
	l2, err := raftlog.OpenFileLog(path)
	require.NoError(t, err)
	require.Equal(t, raft.LogIndex(3), l2.LastIndex())
	require.Equal(t, raft.Command{Name: "x", Value: float64(1)}, l2.Entry(1).Command)
	require.Equal(t, raft.Command{Name: "y", Value: float64(2)}, l2.Entry(2).Command)
	require.Equal(t, raft.TermNo(2), l2.Entry(3).Term)
}

func TestFileLog_EraseFrom(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.dat")
	l, err := raftlog.OpenFileLog(path)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err := l.Append(1, raft.Command{Name: "k", Value: i})
		require.NoError(t, err)
	}
	require.NoError(t, l.EraseFrom(3))
	require.Equal(t, raft.LogIndex(2), l.LastIndex())

	_, err = l.Append(2, raft.Command{Name: "k", Value: 99})
	require.NoError(t, err)
	require.Equal(t, raft.LogIndex(3), l.LastIndex())
	require.Equal(t, raft.TermNo(2), l.Entry(3).Term)

	// Survives a reopen too.
	require.NoError(t, l.Close())
	l2, err := raftlog.OpenFileLog(path)
	require.NoError(t, err)
	require.Equal(t, raft.LogIndex(3), l2.LastIndex())
}

func TestFileLog_EntryOutOfRangePanics(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.dat")
	l, err := raftlog.OpenFileLog(path)
	require.NoError(t, err)

	require.Panics(t, func() { l.Entry(1) })
}

func TestMemLogWithTerms(t *testing.T) {
	// Figure 7 leader-line terms from the Raft paper, same layout the
	// teacher's testdata package used for its scenario fixtures.
	l := raftlog.NewMemLogWithTerms([]raft.TermNo{1, 1, 1, 4, 4, 5, 5, 6, 6, 6})
	require.Equal(t, raft.LogIndex(10), l.LastIndex())
	require.Equal(t, raft.TermNo(6), l.LastTerm())
	require.Equal(t, raft.TermNo(4), l.Entry(4).Term)
}
