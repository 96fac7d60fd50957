package node_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	raft "github.com/coral-raft/raft"
	"github.com/coral-raft/raft/consensus"
	"github.com/coral-raft/raft/kvstore"
	"github.com/coral-raft/raft/node"
	"github.com/coral-raft/raft/raftlog"
	"github.com/coral-raft/raft/storage"
	"github.com/coral-raft/raft/transport"
)

func TestNode_StartDeliversFramesToModule(t *testing.T) {
	net := transport.NewMemNetwork()

	ids := []raft.NodeID{"a", "b"}
	clusterA, err := raft.NewClusterInfo(ids, "a")
	require.NoError(t, err)
	clusterB, err := raft.NewClusterInfo(ids, "b")
	require.NoError(t, err)

	timing := consensus.TimeSettings{
		HeartbeatInterval: 5 * time.Millisecond,
		ElectionLow:       30 * time.Millisecond,
		ElectionHigh:      40 * time.Millisecond,
	}

	transportA := transport.NewMemTransport(net, "a")
	modA := consensus.New(storage.NewMemStore(), raftlog.NewMemLog(), kvstore.New(), transportA, clusterA, timing, nil)
	nodeA := node.New(transportA, modA)

	transportB := transport.NewMemTransport(net, "b")
	modB := consensus.New(storage.NewMemStore(), raftlog.NewMemLog(), kvstore.New(), transportB, clusterB, timing, nil)
	nodeB := node.New(transportB, modB)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, nodeA.Start(ctx))
	require.NoError(t, nodeB.Start(ctx))

	require.Eventually(t, func() bool {
		return modA.GetRole() == raft.Leader || modB.GetRole() == raft.Leader
	}, time.Second, 5*time.Millisecond, "one of the two nodes should become leader")

	require.NoError(t, nodeA.Stop())
	require.NoError(t, nodeB.Stop())
}

func TestNode_Module(t *testing.T) {
	net := transport.NewMemNetwork()
	cluster, err := raft.NewClusterInfo([]raft.NodeID{"solo"}, "solo")
	require.NoError(t, err)

	tr := transport.NewMemTransport(net, "solo")
	mod := consensus.New(storage.NewMemStore(), raftlog.NewMemLog(), kvstore.New(), tr, cluster,
		consensus.TimeSettings{HeartbeatInterval: time.Millisecond, ElectionLow: 10 * time.Millisecond, ElectionHigh: 15 * time.Millisecond}, nil)
	n := node.New(tr, mod)
	require.Same(t, mod, n.Module())
}
