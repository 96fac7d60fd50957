// Package raft defines the shared types and interfaces of a Raft consensus
// engine: node identity, persistent and log entry types, wire RPC structs,
// the cluster membership helper, and the collaborator interfaces
// (Storage, Log, StateMachine, Transport, Serializer) that the consensus
// module in package consensus is built against.
//
// This package has no goroutines and does no I/O of its own; it exists so
// that consensus, storage, raftlog, transport, and node can all depend on a
// single, stable vocabulary without import cycles.
//
// Implementers of the Storage, Log and StateMachine interfaces should note:
//
//   - Concurrency: the consensus Module only ever calls these interfaces
//     from its own single goroutine. Implementations do not need their own
//     locking to be safe against the Module, though they may still need it
//     if exposed to other callers (e.g. a client facade reading the state
//     machine directly).
//   - Errors: a Storage error is fatal. Returning one will stop the owning
//     Module's event loop; see ErrStorageFailure.
package raft
