package raftconf_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	raft "github.com/coral-raft/raft"
	"github.com/coral-raft/raft/raftconf"
)

const sampleYAML = `
node_id: "s1:7000"
peers:
  - "s2:7000"
  - "s3:7000"
log_path: /tmp/raft-data
heartbeat_interval: 100ms
election_interval:
  low: 300ms
  high: 600ms
`

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cluster.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o600))

	cfg, err := raftconf.Load(path)
	require.NoError(t, err)

	require.Equal(t, raft.NodeID("s1:7000"), cfg.NodeID)
	require.Equal(t, []raft.NodeID{"s2:7000", "s3:7000"}, cfg.Peers)
	require.Equal(t, "/tmp/raft-data", cfg.LogPath)
	require.Equal(t, 100*time.Millisecond, cfg.HeartbeatInterval)
	require.Equal(t, 300*time.Millisecond, cfg.ElectionInterval.Low)
	require.Equal(t, 600*time.Millisecond, cfg.ElectionInterval.High)
}

func TestLoad_OmittedFieldsKeepDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cluster.yaml")
	require.NoError(t, os.WriteFile(path, []byte("node_id: \"s1:7000\"\n"), 0o600))

	cfg, err := raftconf.Load(path)
	require.NoError(t, err)
	require.Equal(t, raftconf.Default().HeartbeatInterval, cfg.HeartbeatInterval)
}

func TestValidate_RejectsBadTiming(t *testing.T) {
	cfg := raftconf.Default()
	cfg.NodeID = "s1:7000"
	cfg.HeartbeatInterval = cfg.ElectionInterval.Low // violates heartbeat < low
	require.Error(t, cfg.Validate())
}

func TestClusterInfo(t *testing.T) {
	cfg := raftconf.Default()
	cfg.NodeID = "s1:7000"
	cfg.Peers = []raft.NodeID{"s2:7000", "s3:7000"}

	ci, err := cfg.ClusterInfo()
	require.NoError(t, err)
	require.Equal(t, uint(3), ci.ClusterSize())
	require.Equal(t, uint(2), ci.QuorumSize())
}

func TestEncryptionEnabled(t *testing.T) {
	cfg := raftconf.Default()
	require.False(t, cfg.EncryptionEnabled())
	cfg.SecretKey = "k"
	require.False(t, cfg.EncryptionEnabled())
	cfg.Salt = "s"
	require.True(t, cfg.EncryptionEnabled())
}
