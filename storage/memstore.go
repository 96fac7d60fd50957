package storage

import raft "github.com/coral-raft/raft"

// MemStore is an in-memory raft.Storage for tests and single-process
// simulation. It has no durability guarantee at all; never use it for a
// real node.
type MemStore struct {
	term     raft.TermNo
	votedFor raft.NodeID
	exists   bool
}

// NewMemStore returns a MemStore at the zero value, as a brand-new node
// would see on first boot.
func NewMemStore() *MemStore {
	return &MemStore{}
}

func (m *MemStore) CurrentTerm() raft.TermNo { return m.term }

func (m *MemStore) VotedFor() raft.NodeID { return m.votedFor }

func (m *MemStore) Exists() bool { return m.exists }

func (m *MemStore) Update(term raft.TermNo, votedFor raft.NodeID) error {
	m.term = term
	m.votedFor = votedFor
	m.exists = true
	return nil
}
