package transport

import (
	"context"
	"sync"

	raft "github.com/coral-raft/raft"
)

// MemNetwork is a shared in-process "wire" that a set of MemTransports
// send datagrams over. It exists purely for tests and simulation: it lets
// integration tests exercise the full consensus module, including
// partitions and message drop, without opening real sockets.
type MemNetwork struct {
	mu        sync.Mutex
	nodes     map[raft.NodeID]*MemTransport
	partition map[raft.NodeID]bool // nodes currently cut off from all peers
}

// NewMemNetwork returns an empty MemNetwork.
func NewMemNetwork() *MemNetwork {
	return &MemNetwork{
		nodes:     make(map[raft.NodeID]*MemTransport),
		partition: make(map[raft.NodeID]bool),
	}
}

// Partition cuts id off from every other node: sends to and from it are
// silently dropped, simulating a network partition (spec §8 scenario 4).
func (n *MemNetwork) Partition(id raft.NodeID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.partition[id] = true
}

// Heal reverses a prior Partition.
func (n *MemNetwork) Heal(id raft.NodeID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.partition, id)
}

func (n *MemNetwork) isReachable(from, to raft.NodeID) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return !n.partition[from] && !n.partition[to]
}

func (n *MemNetwork) register(id raft.NodeID, t *MemTransport) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.nodes[id] = t
}

func (n *MemNetwork) lookup(id raft.NodeID) (*MemTransport, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	t, ok := n.nodes[id]
	return t, ok
}

// MemTransport is a raft.Transport over a MemNetwork. It never duplicates
// or reorders messages; it drops them only across a MemNetwork.Partition,
// to an unregistered destination, or when the destination's inbound queue
// is full.
type MemTransport struct {
	id      raft.NodeID
	net     *MemNetwork
	inbound chan raft.Frame
	done    chan struct{}
}

// NewMemTransport registers a new MemTransport for id on net.
func NewMemTransport(net *MemNetwork, id raft.NodeID) *MemTransport {
	t := &MemTransport{
		id:      id,
		net:     net,
		inbound: make(chan raft.Frame, 256),
		done:    make(chan struct{}),
	}
	net.register(id, t)
	return t
}

func (t *MemTransport) Start(ctx context.Context, handler func(raft.Frame)) error {
	go func() {
		for {
			select {
			case f := <-t.inbound:
				handler(f)
			case <-ctx.Done():
				return
			case <-t.done:
				return
			}
		}
	}()
	return nil
}

func (t *MemTransport) Send(frame raft.Frame, destination raft.NodeID) {
	if !t.net.isReachable(t.id, destination) {
		return
	}
	dest, ok := t.net.lookup(destination)
	if !ok {
		return
	}
	frame.Sender = t.id
	select {
	case dest.inbound <- frame:
	default:
		// full inbound queue: drop, same as a lost datagram.
	}
}

func (t *MemTransport) Close() error {
	select {
	case <-t.done:
	default:
		close(t.done)
	}
	return nil
}
