// Package consensus is the Raft role state machine: leader election, log
// replication, and commit-index advancement.
//
// Follower, Candidate and Leader are modeled as a tagged variant — a
// single Module with a Role field and a fixed set of RPC handlers — rather
// than a class hierarchy. The "common term rule" is checkTerm(), which every
// RPC handler calls before its body, and the "common apply rule" is
// applyCommitted(); neither is inherited behavior.
//
// A single goroutine (run()) processes every inbound frame, timer fire,
// and client command from one channel, so role handlers never need their
// own locking.
package consensus

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	raft "github.com/coral-raft/raft"
	"github.com/coral-raft/raft/rafttimer"
)

const inboxBufferSize = 256

// Sender is the outbound half of a raft.Transport, as seen by the
// consensus module: send one frame to one destination. Broadcasts are made
// by the Module itself, one Send per peer.
type Sender interface {
	Send(frame raft.Frame, destination raft.NodeID)
}

// TimeSettings bundles a node's timing configuration. HeartbeatInterval
// must be strictly less than ElectionLow.
type TimeSettings struct {
	HeartbeatInterval time.Duration
	ElectionLow       time.Duration
	ElectionHigh      time.Duration
}

func (ts TimeSettings) randomElectionInterval() time.Duration {
	span := ts.ElectionHigh - ts.ElectionLow
	if span <= 0 {
		return ts.ElectionLow
	}
	return ts.ElectionLow + time.Duration(rand.Int63n(int64(span)))
}

// Module is a single node's Raft role state machine.
type Module struct {
	storage raft.Storage
	log     raft.Log
	sm      raft.StateMachine
	sender  Sender
	cluster *raft.ClusterInfo
	time    TimeSettings
	logger  *zap.SugaredLogger
	metrics metricsSink

	inbox chan func()

	// -- role & term state, only ever touched from the run() goroutine
	role        raft.Role
	currentTerm raft.TermNo
	leaderHint  raft.NodeID // "" if unknown

	commitIndex raft.LogIndex
	lastApplied raft.LogIndex

	electionTimer  *rafttimer.Timer
	heartbeatTimer *rafttimer.Timer

	// candidate volatile state
	votesGranted  map[raft.NodeID]bool
	requiredVotes uint

	// leader volatile state
	nextIndex  map[raft.NodeID]raft.LogIndex
	matchIndex map[raft.NodeID]raft.LogIndex

	// pending client commands awaiting application, keyed by log index
	commandWaiters map[raft.LogIndex][]chan error

	// goroutines parked in WaitUntilLeader
	leaderWaiters []chan struct{}

	stopOnce sync.Once
	stopCh   chan struct{}
	stopErr  error
	stopped  bool
}

// metricsSink is the subset of raftmetrics.Metrics the consensus module
// touches, kept as a small local interface so this package does not import
// raftmetrics directly (avoiding a dependency cycle risk and keeping
// metrics genuinely optional: a nil sink is a silent no-op).
type metricsSink interface {
	SetTerm(raft.TermNo)
	SetCommitIndex(raft.LogIndex)
	SetLastApplied(raft.LogIndex)
	SetRole(raft.Role)
	IncElectionsStarted()
	IncVotesGranted()
	IncVotesDenied()
	IncAppendEntriesSent()
}

type noopMetrics struct{}

func (noopMetrics) SetTerm(raft.TermNo)          {}
func (noopMetrics) SetCommitIndex(raft.LogIndex) {}
func (noopMetrics) SetLastApplied(raft.LogIndex) {}
func (noopMetrics) SetRole(raft.Role)            {}
func (noopMetrics) IncElectionsStarted()         {}
func (noopMetrics) IncVotesGranted()             {}
func (noopMetrics) IncVotesDenied()               {}
func (noopMetrics) IncAppendEntriesSent()         {}

// New allocates a Module. It does not start the event loop or any timers;
// call Start for that. storage, log, sm and sender must be non-nil.
func New(
	storage raft.Storage,
	log raft.Log,
	sm raft.StateMachine,
	sender Sender,
	cluster *raft.ClusterInfo,
	timeSettings TimeSettings,
	logger *zap.SugaredLogger,
) *Module {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Module{
		storage: storage,
		log:     log,
		sm:      sm,
		sender:  sender,
		cluster: cluster,
		time:    timeSettings,
		logger:  logger,
		metrics: noopMetrics{},
		inbox:   make(chan func(), inboxBufferSize),
		role:    raft.Follower,
		stopCh:  make(chan struct{}),
	}
}

// SetMetrics attaches a raftmetrics.Metrics-shaped sink. Call before Start.
func (m *Module) SetMetrics(sink metricsSink) {
	if sink != nil {
		m.metrics = sink
	}
}

// Start initializes persistent state on first boot, enters Follower, and
// launches the event-loop goroutine. ctx cancellation stops the module,
// same as calling Stop.
func (m *Module) Start(ctx context.Context) {
	go m.run(ctx)
}

func (m *Module) run(ctx context.Context) {
	if !m.storage.Exists() {
		if err := m.storage.Update(0, ""); err != nil {
			m.fatal(err)
			return
		}
	}
	m.enterFollower(m.storage.CurrentTerm())

	for {
		select {
		case f, ok := <-m.inbox:
			if !ok {
				return
			}
			f()
			if m.stopped {
				return
			}
		case <-ctx.Done():
			m.doStop(ctx.Err())
			return
		case <-m.stopCh:
			m.doStop(nil)
			return
		}
	}
}

// runInLoop schedules f to run on the event-loop goroutine. It never
// blocks the caller: if the module is stopped or the inbox is full, f is
// silently dropped.
func (m *Module) runInLoop(f func()) {
	select {
	case m.inbox <- f:
	default:
	}
}

// HandleFrame is the entry point for every inbound message, called by the
// owning node for each frame its Transport delivers. It is safe to call
// from any goroutine.
func (m *Module) HandleFrame(frame raft.Frame) {
	m.runInLoop(func() {
		m.dispatch(frame)
	})
}

func (m *Module) dispatch(frame raft.Frame) {
	switch frame.Type {
	case raft.TypeRequestVote:
		rpc, ok := frame.Payload.(*raft.RequestVote)
		if !ok {
			m.logger.Warnw("malformed request_vote payload", "from", frame.Sender)
			return
		}
		m.onRequestVote(frame.Sender, rpc)
	case raft.TypeRequestVoteResponse:
		rpc, ok := frame.Payload.(*raft.RequestVoteResponse)
		if !ok {
			m.logger.Warnw("malformed request_vote_response payload", "from", frame.Sender)
			return
		}
		m.onRequestVoteResponse(frame.Sender, rpc)
	case raft.TypeAppendEntries:
		rpc, ok := frame.Payload.(*raft.AppendEntries)
		if !ok {
			m.logger.Warnw("malformed append_entries payload", "from", frame.Sender)
			return
		}
		m.onAppendEntries(frame.Sender, rpc)
	case raft.TypeAppendEntriesResponse:
		rpc, ok := frame.Payload.(*raft.AppendEntriesResponse)
		if !ok {
			m.logger.Warnw("malformed append_entries_response payload", "from", frame.Sender)
			return
		}
		m.onAppendEntriesResponse(frame.Sender, rpc)
	default:
		m.logger.Warnw("dropping frame of unknown type", "type", frame.Type, "from", frame.Sender)
	}
}

// checkTerm is the common term rule run before every RPC handler body:
//
//   - incoming term > currentTerm: bump currentTerm, clear votedFor,
//     step down to Follower if not already.
//   - incoming term < currentTerm, and the message is a request (not a
//     response): the caller must reply false with the current term and
//     drop the request without running its body.
//
// checkTerm returns true if the caller should proceed into the
// role-specific body, false if it already handled a stale-term drop.
func (m *Module) checkTerm(senderTerm raft.TermNo, isRequest bool, replyStale func(raft.TermNo)) bool {
	if senderTerm > m.currentTerm {
		m.becomeFollowerWithTerm(senderTerm)
	}
	if senderTerm < m.currentTerm {
		if isRequest {
			replyStale(m.currentTerm)
		}
		return false
	}
	return true
}

func (m *Module) becomeFollowerWithTerm(term raft.TermNo) {
	if err := m.storage.Update(term, ""); err != nil {
		m.fatal(err)
		return
	}
	m.currentTerm = term
	m.metrics.SetTerm(term)
	if m.role != raft.Follower {
		m.enterFollower(term)
	}
}

// applyCommitted is the common apply rule: advance lastApplied to
// commitIndex one step at a time, applying each entry to
// the state machine, and resolve any ExecuteCommand waiters whose index
// has now been reached.
func (m *Module) applyCommitted() {
	for m.lastApplied < m.commitIndex {
		m.lastApplied++
		entry := m.log.Entry(m.lastApplied)
		m.sm.Apply(entry.Command)
		m.metrics.SetLastApplied(m.lastApplied)
		m.resolveWaiters(m.lastApplied, nil)
	}
}

func (m *Module) resolveWaiters(index raft.LogIndex, err error) {
	waiters := m.commandWaiters[index]
	if waiters == nil {
		return
	}
	delete(m.commandWaiters, index)
	for _, ch := range waiters {
		ch <- err
		close(ch)
	}
}

func (m *Module) fatal(err error) {
	if m.stopped {
		return
	}
	m.logger.Errorw("fatal storage failure, stopping node", "error", err)
	m.doStop(&raft.ErrStorageFailure{Cause: err})
}

// Stop halts the event loop, cancels all timers, and releases any pending
// ExecuteCommand/WaitUntilLeader callers with raft.ErrStopped.
func (m *Module) Stop() {
	m.runInLoop(func() {
		m.doStop(nil)
	})
	m.stopOnce.Do(func() {
		close(m.stopCh)
	})
}

func (m *Module) doStop(err error) {
	if m.stopped {
		return
	}
	m.stopped = true
	if err != nil {
		m.stopErr = err
	}
	if m.electionTimer != nil {
		m.electionTimer.Stop()
	}
	if m.heartbeatTimer != nil {
		m.heartbeatTimer.Stop()
	}
	for index := range m.commandWaiters {
		m.resolveWaiters(index, raft.ErrStopped)
	}
	for _, ch := range m.leaderWaiters {
		close(ch)
	}
	m.leaderWaiters = nil
}

// Err returns the error that stopped the Module, or nil if it is still
// running or was stopped cleanly.
func (m *Module) Err() error {
	return m.stopErr
}

// GetRole returns the module's current role. Safe to call concurrently;
// the value may be stale by the time the caller observes it.
func (m *Module) GetRole() raft.Role {
	result := make(chan raft.Role, 1)
	m.runInLoop(func() { result <- m.role })
	select {
	case r := <-result:
		return r
	case <-time.After(time.Second):
		return m.role // best-effort fallback if the loop is wedged/stopped
	}
}

// GetLeader returns the node currently believed to be leader: on a
// follower, the id learned from the last AppendEntries; on a leader,
// itself; otherwise none.
func (m *Module) GetLeader() (raft.NodeID, bool) {
	type result struct {
		id    raft.NodeID
		known bool
	}
	out := make(chan result, 1)
	m.runInLoop(func() {
		switch {
		case m.role == raft.Leader:
			out <- result{m.cluster.ThisNodeID(), true}
		case m.leaderHint != "":
			out <- result{m.leaderHint, true}
		default:
			out <- result{"", false}
		}
	})
	select {
	case r := <-out:
		return r.id, r.known
	case <-time.After(time.Second):
		return "", false
	}
}

// WaitUntilLeader blocks until this module becomes Leader, ctx is done, or
// the module stops.
func (m *Module) WaitUntilLeader(ctx context.Context) error {
	ch := make(chan struct{}, 1)
	registered := make(chan struct{})
	m.runInLoop(func() {
		if m.role == raft.Leader {
			close(ch)
		} else {
			m.leaderWaiters = append(m.leaderWaiters, ch)
		}
		close(registered)
	})

	select {
	case <-registered:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-ch:
		if m.stopped && m.role != raft.Leader {
			return raft.ErrStopped
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ExecuteCommand appends command to the log at the current term (only
// valid while Leader), broadcasts it, and waits for it to be applied to
// the state machine before returning. Returns raft.ErrNotALeader{LeaderHint}
// if this module is not the leader.
func (m *Module) ExecuteCommand(ctx context.Context, command raft.Command) error {
	type submitResult struct {
		waitCh chan error
		err    error
	}
	out := make(chan submitResult, 1)

	m.runInLoop(func() {
		if m.role != raft.Leader {
			var hint *raft.NodeID
			if m.leaderHint != "" {
				h := m.leaderHint
				hint = &h
			}
			out <- submitResult{err: &raft.ErrNotALeader{LeaderHint: hint}}
			return
		}

		index := m.log.LastIndex() + 1
		if _, err := m.log.Append(m.currentTerm, command); err != nil {
			m.fatal(err)
			out <- submitResult{err: fmt.Errorf("consensus: appending command: %w", err)}
			return
		}

		waitCh := make(chan error, 1)
		if m.commandWaiters == nil {
			m.commandWaiters = make(map[raft.LogIndex][]chan error)
		}
		m.commandWaiters[index] = append(m.commandWaiters[index], waitCh)

		m.broadcastAppendEntries()
		m.advanceCommitIndex()
		out <- submitResult{waitCh: waitCh}
	})

	res := <-out
	if res.err != nil {
		return res.err
	}

	select {
	case err := <-res.waitCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
