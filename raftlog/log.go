// Package raftlog implements raft.Log: the ordered, durable sequence of log
// entries.
package raftlog

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	raft "github.com/coral-raft/raft"
)

// FileLog is a raft.Log backed by an append-only file of length-prefixed,
// JSON-encoded entries. The full entry list is also kept in memory for
// fast random access; on open, the file is replayed once to rebuild it.
//
// commit_index and last_applied are NOT part of FileLog: they are
// volatile and rebuilt by the consensus module re-applying the log after
// open.
type FileLog struct {
	mu      sync.Mutex
	path    string
	file    *os.File
	entries []raft.LogEntry
}

// OpenFileLog opens (creating if needed) the log file at path and replays
// it into memory.
func OpenFileLog(path string) (*FileLog, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("raftlog: open %s: %w", path, err)
	}

	entries, err := replay(f)
	if err != nil {
		f.Close()
		return nil, err
	}

	return &FileLog{path: path, file: f, entries: entries}, nil
}

func replay(f *os.File) ([]raft.LogEntry, error) {
	if _, err := f.Seek(0, 0); err != nil {
		return nil, err
	}
	r := bufio.NewReader(f)
	var entries []raft.LogEntry
	var lenBuf [4]byte
	for {
		if _, err := readFull(r, lenBuf[:]); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("raftlog: reading length prefix: %w", err)
		}
		n := binary.BigEndian.Uint32(lenBuf[:])
		buf := make([]byte, n)
		if _, err := readFull(r, buf); err != nil {
			return nil, fmt.Errorf("raftlog: reading record: %w", err)
		}
		var e raft.LogEntry
		if err := json.Unmarshal(buf, &e); err != nil {
			return nil, fmt.Errorf("raftlog: decoding record: %w", err)
		}
		entries = append(entries, e)
	}
	if _, err := f.Seek(0, 2); err != nil {
		return nil, err
	}
	return entries, nil
}

func readFull(r *bufio.Reader, buf []byte) (int, error) {
	n, err := io.ReadFull(r, buf)
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return n, fmt.Errorf("raftlog: truncated record (got %d of %d bytes): %w", n, len(buf), err)
		}
		return n, err // io.EOF when nothing at all was read
	}
	return n, nil
}

func (l *FileLog) LastIndex() raft.LogIndex {
	l.mu.Lock()
	defer l.mu.Unlock()
	return raft.LogIndex(len(l.entries))
}

func (l *FileLog) LastTerm() raft.TermNo {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.entries) == 0 {
		return 0
	}
	return l.entries[len(l.entries)-1].Term
}

func (l *FileLog) Entry(index raft.LogIndex) raft.LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	if index == 0 || int(index) > len(l.entries) {
		panic(fmt.Sprintf("raftlog: index %d out of range (last=%d)", index, len(l.entries)))
	}
	return l.entries[index-1]
}

// Append durably appends a new entry at LastIndex()+1. The record is
// written and fsynced before this call returns.
func (l *FileLog) Append(term raft.TermNo, command raft.Command) (raft.LogEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry := raft.LogEntry{Term: term, Command: command}
	if err := l.writeRecord(entry); err != nil {
		return raft.LogEntry{}, err
	}
	l.entries = append(l.entries, entry)
	return entry, nil
}

func (l *FileLog) writeRecord(entry raft.LogEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("raftlog: marshal entry: %w", err)
	}
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(data)))

	if _, err := l.file.Write(lenBuf[:]); err != nil {
		return fmt.Errorf("raftlog: write length prefix: %w", err)
	}
	if _, err := l.file.Write(data); err != nil {
		return fmt.Errorf("raftlog: write record: %w", err)
	}
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("raftlog: fsync: %w", err)
	}
	return nil
}

// EraseFrom durably truncates the log so that index-1 is the new last
// entry, discarding index and everything after it. Only ever called by a
// follower reconciling with a leader's AppendEntries.
func (l *FileLog) EraseFrom(index raft.LogIndex) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if index == 0 {
		l.entries = nil
	} else if int(index) <= len(l.entries) {
		l.entries = l.entries[:index-1]
	} else {
		return nil
	}

	// Rewrite the file from scratch with the retained prefix. The log is
	// expected to stay small in this engine (no compaction, per spec
	// §1 Non-goals), so a full rewrite on the rare conflicting-append
	// path is an acceptable trade for simplicity.
	tmp, err := os.CreateTemp("", "raftlog-*.tmp")
	if err != nil {
		return fmt.Errorf("raftlog: create temp file: %w", err)
	}
	for _, e := range l.entries {
		data, err := json.Marshal(e)
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
			return err
		}
		var lenBuf [4]byte
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(data)))
		if _, err := tmp.Write(lenBuf[:]); err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
			return err
		}
		if _, err := tmp.Write(data); err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
			return err
		}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	tmpName := tmp.Name()
	tmp.Close()

	l.file.Close()
	if err := os.Rename(tmpName, l.path); err != nil {
		return fmt.Errorf("raftlog: rename truncated log into place: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_RDWR, 0o600)
	if err != nil {
		return fmt.Errorf("raftlog: reopen truncated log: %w", err)
	}
	if _, err := f.Seek(0, 2); err != nil {
		f.Close()
		return err
	}
	l.file = f
	return nil
}

// Close releases the underlying file handle.
func (l *FileLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}
