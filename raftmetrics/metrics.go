// Package raftmetrics exposes Prometheus instruments for a running node:
// current term, commit index, elections started, votes granted and denied,
// and append-entries sent. These are additive observability, not a
// protocol feature, so spec §1's Non-goals (which scope out membership
// change, snapshots, read leases, peer authn/z, geo routing and BFT) do
// not exclude them; see SPEC_FULL.md §4.12.
package raftmetrics

import (
	"github.com/prometheus/client_golang/prometheus"

	raft "github.com/coral-raft/raft"
)

// Metrics is a per-node set of registered Prometheus instruments.
type Metrics struct {
	Term             prometheus.Gauge
	CommitIndex      prometheus.Gauge
	LastApplied      prometheus.Gauge
	Role             prometheus.Gauge
	ElectionsStarted prometheus.Counter
	VotesGranted     prometheus.Counter
	VotesDenied      prometheus.Counter
	AppendEntriesSent prometheus.Counter
}

// New creates and registers a Metrics set for nodeID against reg. Pass
// prometheus.NewRegistry() for isolated test registries, or
// prometheus.DefaultRegisterer for a single-process daemon.
func New(reg prometheus.Registerer, nodeID raft.NodeID) *Metrics {
	labels := prometheus.Labels{"node_id": string(nodeID)}
	factory := prometheus.WrapRegistererWith(labels, reg)

	m := &Metrics{
		Term: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "raft", Name: "current_term", Help: "Current Raft term.",
		}),
		CommitIndex: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "raft", Name: "commit_index", Help: "Highest log index known committed.",
		}),
		LastApplied: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "raft", Name: "last_applied", Help: "Highest log index applied to the state machine.",
		}),
		Role: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "raft", Name: "role", Help: "Current role (0=follower, 1=candidate, 2=leader).",
		}),
		ElectionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "raft", Name: "elections_started_total", Help: "Number of elections this node has started.",
		}),
		VotesGranted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "raft", Name: "votes_granted_total", Help: "Number of RequestVote RPCs this node granted.",
		}),
		VotesDenied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "raft", Name: "votes_denied_total", Help: "Number of RequestVote RPCs this node denied.",
		}),
		AppendEntriesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "raft", Name: "append_entries_sent_total", Help: "Number of AppendEntries RPCs sent as leader.",
		}),
	}

	factory.MustRegister(
		m.Term, m.CommitIndex, m.LastApplied, m.Role,
		m.ElectionsStarted, m.VotesGranted, m.VotesDenied, m.AppendEntriesSent,
	)
	return m
}

// SetRole records the current role as a gauge value for dashboards that
// can't easily graph an enum directly.
func (m *Metrics) SetRole(r raft.Role) {
	m.Role.Set(float64(r))
}

// SetTerm records the current term.
func (m *Metrics) SetTerm(term raft.TermNo) {
	m.Term.Set(float64(term))
}

// SetCommitIndex records the current commit index.
func (m *Metrics) SetCommitIndex(index raft.LogIndex) {
	m.CommitIndex.Set(float64(index))
}

// SetLastApplied records the highest index applied to the state machine.
func (m *Metrics) SetLastApplied(index raft.LogIndex) {
	m.LastApplied.Set(float64(index))
}

// IncElectionsStarted increments the elections-started counter.
func (m *Metrics) IncElectionsStarted() {
	m.ElectionsStarted.Inc()
}

// IncVotesGranted increments the votes-granted counter.
func (m *Metrics) IncVotesGranted() {
	m.VotesGranted.Inc()
}

// IncVotesDenied increments the votes-denied counter.
func (m *Metrics) IncVotesDenied() {
	m.VotesDenied.Inc()
}

// IncAppendEntriesSent increments the append-entries-sent counter.
func (m *Metrics) IncAppendEntriesSent() {
	m.AppendEntriesSent.Inc()
}
