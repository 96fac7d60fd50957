package raftkv_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	raft "github.com/coral-raft/raft"
	"github.com/coral-raft/raft/consensus"
	"github.com/coral-raft/raft/kvstore"
	"github.com/coral-raft/raft/node"
	"github.com/coral-raft/raft/raftkv"
	"github.com/coral-raft/raft/raftlog"
	"github.com/coral-raft/raft/storage"
	"github.com/coral-raft/raft/transport"
)

func TestClient_SetThenGet(t *testing.T) {
	net := transport.NewMemNetwork()
	cluster, err := raft.NewClusterInfo([]raft.NodeID{"solo"}, "solo")
	require.NoError(t, err)

	tr := transport.NewMemTransport(net, "solo")
	sm := kvstore.New()
	mod := consensus.New(storage.NewMemStore(), raftlog.NewMemLog(), sm, tr, cluster,
		consensus.TimeSettings{HeartbeatInterval: time.Millisecond, ElectionLow: 10 * time.Millisecond, ElectionHigh: 15 * time.Millisecond}, nil)
	n := node.New(tr, mod)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, n.Start(ctx))

	require.NoError(t, mod.WaitUntilLeader(ctx))

	client := raftkv.New(mod, sm)
	leaderID, known := client.GetLeader()
	require.True(t, known)
	require.Equal(t, raft.NodeID("solo"), leaderID)

	writeCtx, writeCancel := context.WithTimeout(context.Background(), time.Second)
	defer writeCancel()
	require.NoError(t, client.Set(writeCtx, "x", float64(42)))

	v, ok := client.Get("x")
	require.True(t, ok)
	require.Equal(t, float64(42), v)

	missing, ok := client.Get("y")
	require.False(t, ok)
	require.Nil(t, missing)
}

func TestValue_BindGetSet(t *testing.T) {
	net := transport.NewMemNetwork()
	cluster, err := raft.NewClusterInfo([]raft.NodeID{"solo"}, "solo")
	require.NoError(t, err)

	tr := transport.NewMemTransport(net, "solo")
	sm := kvstore.New()
	mod := consensus.New(storage.NewMemStore(), raftlog.NewMemLog(), sm, tr, cluster,
		consensus.TimeSettings{HeartbeatInterval: time.Millisecond, ElectionLow: 10 * time.Millisecond, ElectionHigh: 15 * time.Millisecond}, nil)
	n := node.New(tr, mod)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, n.Start(ctx))
	require.NoError(t, mod.WaitUntilLeader(ctx))

	client := raftkv.New(mod, sm)
	counter := client.Bind("counter")

	require.Equal(t, 0, counter.Get(0))

	writeCtx, writeCancel := context.WithTimeout(context.Background(), time.Second)
	defer writeCancel()
	require.NoError(t, counter.Set(writeCtx, 7))
	require.Equal(t, 7, counter.Get(0))
}
