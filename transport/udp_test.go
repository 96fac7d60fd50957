package transport_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	raft "github.com/coral-raft/raft"
	"github.com/coral-raft/raft/transport"
	"github.com/coral-raft/raft/wire"
)

func TestUDPTransport_SendReceive(t *testing.T) {
	var ser wire.JSONSerializer

	a, err := transport.Listen("127.0.0.1:0", ser, nil)
	require.NoError(t, err)
	defer a.Close()
	b, err := transport.Listen("127.0.0.1:0", ser, nil)
	require.NoError(t, err)
	defer b.Close()

	received := make(chan raft.Frame, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, a.Start(ctx, func(raft.Frame) {}))
	require.NoError(t, b.Start(ctx, func(f raft.Frame) { received <- f }))

	a.Send(raft.Frame{
		Type:    raft.TypeRequestVoteResponse,
		Payload: &raft.RequestVoteResponse{Term: 1, VoteGranted: true},
	}, raft.NodeID(b.LocalAddr().String()))

	select {
	case f := <-received:
		require.Equal(t, raft.TypeRequestVoteResponse, f.Type)
		require.NotEmpty(t, f.Sender, "sender must be stamped from the UDP source address")
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for datagram")
	}
}
