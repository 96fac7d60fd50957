// Package node is the thin shell that wires a raft.Transport to a
// consensus.Module: it starts the transport, feeds every inbound frame to
// the module's dispatcher, and starts the module's own event loop.
// Grounded on the teacher's top-level ConsensusModule/RaftNode split
// (divtxt/raft), generalized here into a single small adapter since this
// engine's Module already owns its event loop and RPC handlers directly;
// Node's only job is lifecycle: start both halves together, stop both
// halves together.
package node

import (
	"context"

	raft "github.com/coral-raft/raft"
	"github.com/coral-raft/raft/consensus"
)

// Node binds a raft.Transport to a consensus.Module for the lifetime of a
// running server process.
type Node struct {
	transport raft.Transport
	module    *consensus.Module
}

// New wires transport to module. It does not start anything; call Start.
func New(transport raft.Transport, module *consensus.Module) *Node {
	return &Node{transport: transport, module: module}
}

// Start starts the consensus module's event loop and begins receiving
// frames from the transport, handing each to the module's dispatcher.
func (n *Node) Start(ctx context.Context) error {
	n.module.Start(ctx)
	return n.transport.Start(ctx, n.module.HandleFrame)
}

// Module returns the underlying consensus module, for callers (raftkv,
// cmd/raftd) that need ExecuteCommand/GetLeader/WaitUntilLeader.
func (n *Node) Module() *consensus.Module {
	return n.module
}

// Stop halts the consensus module and closes the transport.
func (n *Node) Stop() error {
	n.module.Stop()
	return n.transport.Close()
}
