package consensus

import (
	raft "github.com/coral-raft/raft"
)

// onRequestVote handles an incoming RequestVote RPC. Vote-granting logic
// is role-independent: a Candidate or Leader that has already voted for
// itself this term will naturally refuse (votedFor is already set), so
// there is no separate per-role branch here.
func (m *Module) onRequestVote(sender raft.NodeID, rpc *raft.RequestVote) {
	proceed := m.checkTerm(rpc.Term, true, func(term raft.TermNo) {
		m.replyRequestVote(sender, term, false)
	})
	if !proceed {
		return
	}

	grant := m.canGrantVote(rpc)
	if grant {
		if err := m.storage.Update(m.currentTerm, rpc.CandidateID); err != nil {
			m.fatal(err)
			return
		}
		// Granting a vote is evidence of an active candidate: defer our
		// own election timeout so we don't immediately compete with the
		// candidate we just voted for.
		m.armElectionTimer()
		m.metrics.IncVotesGranted()
		m.logger.Infow("granted vote", "term", m.currentTerm, "candidate", rpc.CandidateID)
	} else {
		m.metrics.IncVotesDenied()
	}

	m.replyRequestVote(sender, m.currentTerm, grant)
}

func (m *Module) canGrantVote(rpc *raft.RequestVote) bool {
	votedFor := m.storage.VotedFor()
	if votedFor != "" && votedFor != rpc.CandidateID {
		return false
	}
	return m.candidateLogIsUpToDate(rpc.LastLogTerm, rpc.LastLogIndex)
}

// candidateLogIsUpToDate implements the Raft paper §5.4.1 up-to-date
// comparison: higher last-log term wins; on a tie, longer log wins.
func (m *Module) candidateLogIsUpToDate(lastLogTerm raft.TermNo, lastLogIndex raft.LogIndex) bool {
	ourLastTerm := m.log.LastTerm()
	if lastLogTerm != ourLastTerm {
		return lastLogTerm > ourLastTerm
	}
	return lastLogIndex >= m.log.LastIndex()
}

func (m *Module) replyRequestVote(destination raft.NodeID, term raft.TermNo, granted bool) {
	m.sender.Send(raft.Frame{
		Type: raft.TypeRequestVoteResponse,
		Payload: &raft.RequestVoteResponse{
			Term:        term,
			VoteGranted: granted,
		},
	}, destination)
}

// onRequestVoteResponse tallies a vote reply. Responses for a stale term,
// or arriving after this module has left Candidate, are ignored: the
// common term rule may have already advanced currentTerm or stepped this
// module down to Follower, which is itself the correct handling of a
// response that no longer matters.
func (m *Module) onRequestVoteResponse(sender raft.NodeID, rpc *raft.RequestVoteResponse) {
	if !m.checkTerm(rpc.Term, false, nil) {
		return
	}
	if m.role != raft.Candidate || rpc.Term != m.currentTerm {
		return
	}
	if !rpc.VoteGranted {
		return
	}

	m.votesGranted[sender] = true
	if uint(len(m.votesGranted)) >= m.requiredVotes {
		m.becomeLeader()
	}
}
