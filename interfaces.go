package raft

import "context"

// Storage is the durable term/vote record described in spec §4.1.
//
// Update must not return until the new values are flushed to stable
// storage: a subsequent restart must observe at least the values from the
// most recent successful Update call, and never a partial write.
//
// Concurrency: the consensus Module only ever calls Storage from its own
// goroutine.
type Storage interface {
	// CurrentTerm returns the last durably-written term, or 0 if none has
	// ever been written.
	CurrentTerm() TermNo

	// VotedFor returns the last durably-written vote for the current
	// term, or "" if none has been cast.
	VotedFor() NodeID

	// Exists reports whether any value has ever been durably written
	// (used to detect first boot).
	Exists() bool

	// Update durably persists the given term and voted-for values
	// together, atomically: a crash must never leave one updated without
	// the other.
	Update(term TermNo, votedFor NodeID) error
}

// Log is the durable, ordered sequence of log entries described in spec
// §4.2. Appends must be durable before a follower acknowledges them, or
// before a leader considers them replicable.
//
// Index 1 is the first entry. LastIndex()==0 means the log is empty.
type Log interface {
	// LastIndex returns the index of the last entry in the log, or 0 if
	// empty.
	LastIndex() LogIndex

	// LastTerm returns the term of the last entry, or 0 if the log is
	// empty.
	LastTerm() TermNo

	// Entry returns the LogEntry at the given 1-based index. It panics
	// if index is 0 or beyond LastIndex().
	Entry(index LogIndex) LogEntry

	// Append durably appends a new entry at LastIndex()+1 with the given
	// term, and returns it.
	Append(term TermNo, command Command) (LogEntry, error)

	// EraseFrom durably removes the entry at the given index and all
	// that follow. Only ever called by a follower, before accepting
	// conflicting entries sent by a leader (spec §4.2).
	EraseFrom(index LogIndex) error
}

// StateMachine is the keyed value map described in spec §4.3. Apply must
// be deterministic and idempotent for a given index: replaying the log
// from the start must always reproduce the same map (spec §8, property 6).
type StateMachine interface {
	// Apply applies a committed command to the map.
	Apply(command Command)

	// Get returns the current value for name, and whether it is present.
	Get(name string) (interface{}, bool)
}

// Serializer packs and unpacks wire Frames. Implementations must satisfy
// the round-trip property in spec §8: Unpack(Pack(x)) == x.
type Serializer interface {
	Pack(frame Frame) ([]byte, error)
	Unpack(data []byte) (Frame, error)
}

// Transport carries opaque frames between nodes. Delivery is assumed
// unreliable, unordered and possibly duplicated (spec §1); handlers built
// on top of a Transport must be idempotent.
type Transport interface {
	// Start begins receiving datagrams and delivering them to handler.
	// handler is called with the sender's NodeID already filled in.
	Start(ctx context.Context, handler func(Frame)) error

	// Send enqueues a frame for delivery to destination. It may return
	// before the frame is actually on the wire.
	Send(frame Frame, destination NodeID)

	// Close stops the transport and releases its socket.
	Close() error
}
