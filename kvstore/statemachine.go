// Package kvstore implements raft.StateMachine: the in-memory name->value
// map that committed commands are applied to.
package kvstore

import (
	"sync"

	raft "github.com/coral-raft/raft"
)

// StateMachine is a mutex-guarded map. Apply is deterministic and total
// for any Command: it simply assigns Value at Name, which makes replaying
// the log from index 1 always reproduce the same map.
type StateMachine struct {
	mu     sync.RWMutex
	values map[string]interface{}
}

// New returns an empty StateMachine.
func New() *StateMachine {
	return &StateMachine{values: make(map[string]interface{})}
}

func (sm *StateMachine) Apply(command raft.Command) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.values[command.Name] = command.Value
}

func (sm *StateMachine) Get(name string) (interface{}, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	v, ok := sm.values[name]
	return v, ok
}

// Snapshot returns a shallow copy of the current map, mostly for tests and
// debugging. Not part of raft.StateMachine.
func (sm *StateMachine) Snapshot() map[string]interface{} {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	out := make(map[string]interface{}, len(sm.values))
	for k, v := range sm.values {
		out[k] = v
	}
	return out
}
