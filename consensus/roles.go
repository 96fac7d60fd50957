package consensus

import (
	"time"

	raft "github.com/coral-raft/raft"
	"github.com/coral-raft/raft/rafttimer"
)

// enterFollower switches to the Follower role at the given term: clears
// candidate/leader volatile state, cancels the heartbeat timer, and
// (re)arms the randomized election timer. Called on Start, and whenever a
// Candidate or Leader steps down (on a higher term or a same-term
// AppendEntries). A Follower that sees a higher term only has its term
// updated, by becomeFollowerWithTerm.
func (m *Module) enterFollower(term raft.TermNo) {
	m.role = raft.Follower
	m.currentTerm = term
	m.votesGranted = nil
	m.requiredVotes = 0
	m.nextIndex = nil
	m.matchIndex = nil

	if m.heartbeatTimer != nil {
		m.heartbeatTimer.Stop()
		m.heartbeatTimer = nil
	}
	m.armElectionTimer()

	m.metrics.SetRole(raft.Follower)
	m.metrics.SetTerm(term)
	m.logger.Infow("became follower", "term", term)
}

func (m *Module) armElectionTimer() {
	if m.electionTimer != nil {
		m.electionTimer.Stop()
	}
	interval := func() time.Duration { return m.time.randomElectionInterval() }
	m.electionTimer = rafttimer.New(interval, func() {
		m.runInLoop(m.onElectionTimeout)
	})
	m.electionTimer.Start()
}

func (m *Module) onElectionTimeout() {
	if m.stopped || m.role == raft.Leader {
		return
	}
	m.becomeCandidate()
}

// becomeCandidate starts a new election: increments the term, votes for
// self, resets the vote tally, broadcasts RequestVote to every peer, and
// rearms the election timer. Entered from Follower on timeout, and
// re-entered by a Candidate whose own election times out without a
// decision.
func (m *Module) becomeCandidate() {
	newTerm := m.currentTerm + 1
	if err := m.storage.Update(newTerm, m.cluster.ThisNodeID()); err != nil {
		m.fatal(err)
		return
	}

	m.role = raft.Candidate
	m.currentTerm = newTerm
	m.leaderHint = ""
	m.votesGranted = map[raft.NodeID]bool{m.cluster.ThisNodeID(): true}
	m.requiredVotes = m.cluster.QuorumSize()
	m.nextIndex = nil
	m.matchIndex = nil

	if m.heartbeatTimer != nil {
		m.heartbeatTimer.Stop()
		m.heartbeatTimer = nil
	}
	m.armElectionTimer()

	m.metrics.SetRole(raft.Candidate)
	m.metrics.SetTerm(newTerm)
	m.metrics.IncElectionsStarted()
	m.logger.Infow("became candidate, starting election", "term", newTerm)

	rv := &raft.RequestVote{
		Term:         newTerm,
		CandidateID:  m.cluster.ThisNodeID(),
		LastLogIndex: m.log.LastIndex(),
		LastLogTerm:  m.log.LastTerm(),
	}
	m.cluster.ForEachPeer(func(peer raft.NodeID) error {
		m.sender.Send(raft.Frame{Type: raft.TypeRequestVote, Payload: rv}, peer)
		return nil
	})

	// A lone node (cluster size 1) is its own quorum: win immediately
	// instead of waiting out an election timeout that can never resolve.
	if uint(len(m.votesGranted)) >= m.requiredVotes {
		m.becomeLeader()
	}
}

// becomeLeader initializes leader volatile state (nextIndex/matchIndex),
// cancels the election timer, and sends an immediate heartbeat round.
func (m *Module) becomeLeader() {
	m.role = raft.Leader
	m.leaderHint = m.cluster.ThisNodeID()
	m.votesGranted = nil
	m.requiredVotes = 0

	if m.electionTimer != nil {
		m.electionTimer.Stop()
		m.electionTimer = nil
	}

	lastIndex := m.log.LastIndex()
	m.nextIndex = make(map[raft.NodeID]raft.LogIndex)
	m.matchIndex = make(map[raft.NodeID]raft.LogIndex)
	m.cluster.ForEachPeer(func(peer raft.NodeID) error {
		m.nextIndex[peer] = lastIndex + 1
		m.matchIndex[peer] = 0
		return nil
	})

	m.metrics.SetRole(raft.Leader)
	m.logger.Infow("became leader", "term", m.currentTerm)

	m.broadcastAppendEntries()

	m.heartbeatTimer = rafttimer.New(rafttimer.Constant(m.time.HeartbeatInterval), func() {
		m.runInLoop(func() {
			if m.role == raft.Leader {
				m.broadcastAppendEntries()
			}
		})
	})
	m.heartbeatTimer.Start()

	for _, ch := range m.leaderWaiters {
		close(ch)
	}
	m.leaderWaiters = nil
}
