// Package raftkv is the replicated key/value facade described in spec
// §4.6: a thin client over a consensus.Module that turns Get/Set calls
// into Command submissions and StateMachine reads, and exposes
// GetLeader/WaitUntilLeader for callers that need to find or await a
// leader before writing. Grounded on original_source/raftos's top-level
// `register`/`Replicated` API: a package-level handle bound to a name,
// backed by the cluster's state machine rather than a local variable.
package raftkv

import (
	"context"
	"fmt"

	raft "github.com/coral-raft/raft"
	"github.com/coral-raft/raft/consensus"
)

// Client is the application-facing entry point for one node's cluster
// membership: reads never leave this process, writes go through the
// consensus module and block until applied.
type Client struct {
	module *consensus.Module
	sm     raft.StateMachine
}

// New returns a Client bound to module's consensus group and sm's local
// replica of the state machine.
func New(module *consensus.Module, sm raft.StateMachine) *Client {
	return &Client{module: module, sm: sm}
}

// GetLeader returns the node currently believed to be leader, and whether
// one is known.
func (c *Client) GetLeader() (raft.NodeID, bool) {
	return c.module.GetLeader()
}

// WaitUntilLeader blocks until this node's module becomes leader, ctx is
// done, or the node stops.
func (c *Client) WaitUntilLeader(ctx context.Context) error {
	return c.module.WaitUntilLeader(ctx)
}

// Bind returns a Value handle for the named key, so callers don't have to
// repeat the name on every Get/Set.
func (c *Client) Bind(name string) *Value {
	return &Value{client: c, name: name}
}

// Set replicates an assignment of name to val. It must be called on the
// leader; on any other node it returns raft.ErrNotALeader carrying a hint
// at the current leader, if known.
func (c *Client) Set(ctx context.Context, name string, val interface{}) error {
	return c.module.ExecuteCommand(ctx, raft.Command{Name: name, Value: val})
}

// Get returns the locally-applied value for name, and whether it is
// present. Reads are always served from this node's own state machine
// replica and are not linearizable: a follower may lag the leader, and
// there is no read-lease mechanism to bound the staleness.
func (c *Client) Get(name string) (interface{}, bool) {
	return c.sm.Get(name)
}

// Value is a convenience handle bound to one key name.
type Value struct {
	client *Client
	name   string
}

// Get returns the current value, or def if the key has never been set.
func (v *Value) Get(def interface{}) interface{} {
	if val, ok := v.client.sm.Get(v.name); ok {
		return val
	}
	return def
}

// Set replicates a new value for this key. See Client.Set.
func (v *Value) Set(ctx context.Context, val interface{}) error {
	return v.client.Set(ctx, v.name, val)
}

// String is a formatting convenience for logging/debugging.
func (v *Value) String() string {
	return fmt.Sprintf("raftkv.Value(%s)", v.name)
}
