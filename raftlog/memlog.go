package raftlog

import (
	"fmt"
	"sync"

	raft "github.com/coral-raft/raft"
)

// MemLog is an in-memory raft.Log for tests and simulation. No durability
// at all; never use it for a real node.
type MemLog struct {
	mu      sync.Mutex
	entries []raft.LogEntry
}

// NewMemLog returns an empty MemLog.
func NewMemLog() *MemLog {
	return &MemLog{}
}

// NewMemLogWithTerms seeds a MemLog with one entry per given term, in
// order, each with an empty command. Handy for tests that only care about
// term layout.
func NewMemLogWithTerms(terms []raft.TermNo) *MemLog {
	entries := make([]raft.LogEntry, 0, len(terms))
	for _, t := range terms {
		entries = append(entries, raft.LogEntry{Term: t, Command: raft.Command{}})
	}
	return &MemLog{entries: entries}
}

func (l *MemLog) LastIndex() raft.LogIndex {
	l.mu.Lock()
	defer l.mu.Unlock()
	return raft.LogIndex(len(l.entries))
}

func (l *MemLog) LastTerm() raft.TermNo {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.entries) == 0 {
		return 0
	}
	return l.entries[len(l.entries)-1].Term
}

func (l *MemLog) Entry(index raft.LogIndex) raft.LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	if index == 0 || int(index) > len(l.entries) {
		panic(fmt.Sprintf("raftlog: index %d out of range (last=%d)", index, len(l.entries)))
	}
	return l.entries[index-1]
}

func (l *MemLog) Append(term raft.TermNo, command raft.Command) (raft.LogEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry := raft.LogEntry{Term: term, Command: command}
	l.entries = append(l.entries, entry)
	return entry, nil
}

func (l *MemLog) EraseFrom(index raft.LogIndex) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if index == 0 {
		l.entries = nil
		return nil
	}
	if int(index) <= len(l.entries) {
		l.entries = l.entries[:index-1]
	}
	return nil
}
