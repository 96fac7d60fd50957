package consensus

import (
	raft "github.com/coral-raft/raft"
)

// onAppendEntries handles an incoming AppendEntries RPC: the consistency
// check, conflicting-entry truncation, append, and commit index
// advancement. Handling is role-independent once the step-down rule
// below has run: by the time this body executes, the module is always a
// Follower.
func (m *Module) onAppendEntries(sender raft.NodeID, rpc *raft.AppendEntries) {
	proceed := m.checkTerm(rpc.Term, true, func(term raft.TermNo) {
		m.replyAppendEntries(sender, term, false, 0)
	})
	if !proceed {
		return
	}

	// A same-term AppendEntries from a different node proves a leader was
	// elected this term; a Candidate (or, defensively, a Leader that
	// should not exist per election safety) steps down.
	if m.role != raft.Follower {
		m.enterFollower(m.currentTerm)
	}

	m.leaderHint = rpc.LeaderID
	m.armElectionTimer()

	if !m.logConsistent(rpc.PrevLogIndex, rpc.PrevLogTerm) {
		m.replyAppendEntries(sender, m.currentTerm, false, 0)
		return
	}

	lastNewIndex, err := m.mergeEntries(rpc.PrevLogIndex, rpc.Entries)
	if err != nil {
		m.fatal(err)
		return
	}

	if rpc.CommitIndex > m.commitIndex {
		m.commitIndex = rpc.CommitIndex
		if m.commitIndex > lastNewIndex {
			m.commitIndex = lastNewIndex
		}
		m.metrics.SetCommitIndex(m.commitIndex)
		m.applyCommitted()
	}

	m.replyAppendEntries(sender, m.currentTerm, true, lastNewIndex)
}

func (m *Module) logConsistent(prevLogIndex raft.LogIndex, prevLogTerm raft.TermNo) bool {
	if prevLogIndex == 0 {
		return true
	}
	if prevLogIndex > m.log.LastIndex() {
		return false
	}
	return m.log.Entry(prevLogIndex).Term == prevLogTerm
}

// mergeEntries reconciles the local log with the leader's entries
// starting at prevLogIndex+1: entries already present with a matching
// term are left alone (idempotent under duplicate/reordered delivery,
// spec §8), the first mismatch truncates everything from that point
// (spec §4.2 "a follower ... discards its own entry and everything after
// it"), and anything beyond the local log is appended.
func (m *Module) mergeEntries(prevLogIndex raft.LogIndex, entries []raft.LogEntry) (raft.LogIndex, error) {
	index := prevLogIndex
	for i, entry := range entries {
		index = prevLogIndex + raft.LogIndex(i) + 1
		if index <= m.log.LastIndex() {
			if m.log.Entry(index).Term == entry.Term {
				continue
			}
			if err := m.log.EraseFrom(index); err != nil {
				return 0, err
			}
		}
		if _, err := m.log.Append(entry.Term, entry.Command); err != nil {
			return 0, err
		}
	}
	return prevLogIndex + raft.LogIndex(len(entries)), nil
}

func (m *Module) replyAppendEntries(destination raft.NodeID, term raft.TermNo, success bool, lastNewEntryIndex raft.LogIndex) {
	m.sender.Send(raft.Frame{
		Type: raft.TypeAppendEntriesResponse,
		Payload: &raft.AppendEntriesResponse{
			Term:              term,
			Success:           success,
			LastNewEntryIndex: lastNewEntryIndex,
		},
	}, destination)
}

// onAppendEntriesResponse updates leader volatile state and retries or
// advances replication for the responding peer (spec §4.5 Leader).
func (m *Module) onAppendEntriesResponse(sender raft.NodeID, rpc *raft.AppendEntriesResponse) {
	if !m.checkTerm(rpc.Term, false, nil) {
		return
	}
	if m.role != raft.Leader || rpc.Term != m.currentTerm {
		return
	}

	if rpc.Success {
		if rpc.LastNewEntryIndex > m.matchIndex[sender] {
			m.matchIndex[sender] = rpc.LastNewEntryIndex
		}
		m.nextIndex[sender] = rpc.LastNewEntryIndex + 1
		m.advanceCommitIndex()
		if m.nextIndex[sender] <= m.log.LastIndex() {
			m.sendAppendEntriesTo(sender)
		}
		return
	}

	if m.nextIndex[sender] > 1 {
		m.nextIndex[sender]--
	}
	m.sendAppendEntriesTo(sender)
}

// advanceCommitIndex implements the Raft paper §5.3/§5.4.2 commit rule: the
// leader may only commit an entry from its own current term, and only once
// a majority of the cluster (counting itself) has replicated it.
func (m *Module) advanceCommitIndex() {
	lastIndex := m.log.LastIndex()
	for n := lastIndex; n > m.commitIndex; n-- {
		if m.log.Entry(n).Term != m.currentTerm {
			continue
		}
		replicatedCount := uint(1) // self
		for _, peer := range m.cluster.PeerNodeIDs() {
			if m.matchIndex[peer] >= n {
				replicatedCount++
			}
		}
		if replicatedCount >= m.cluster.QuorumSize() {
			m.commitIndex = n
			m.metrics.SetCommitIndex(n)
			m.applyCommitted()
			return
		}
	}
}

func (m *Module) sendAppendEntriesTo(peer raft.NodeID) {
	nextIdx := m.nextIndex[peer]
	if nextIdx == 0 {
		nextIdx = 1
	}
	prevIndex := nextIdx - 1
	var prevTerm raft.TermNo
	if prevIndex > 0 {
		prevTerm = m.log.Entry(prevIndex).Term
	}

	var entries []raft.LogEntry
	for idx := nextIdx; idx <= m.log.LastIndex(); idx++ {
		entries = append(entries, m.log.Entry(idx))
	}

	m.sender.Send(raft.Frame{
		Type: raft.TypeAppendEntries,
		Payload: &raft.AppendEntries{
			Term:         m.currentTerm,
			LeaderID:     m.cluster.ThisNodeID(),
			PrevLogIndex: prevIndex,
			PrevLogTerm:  prevTerm,
			CommitIndex:  m.commitIndex,
			Entries:      entries,
		},
	}, peer)
	m.metrics.IncAppendEntriesSent()
}

func (m *Module) broadcastAppendEntries() {
	m.cluster.ForEachPeer(func(peer raft.NodeID) error {
		m.sendAppendEntriesTo(peer)
		return nil
	})
}
