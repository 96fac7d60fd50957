// Package storage implements raft.Storage: the durable record of
// current_term and voted_for.
//
// FileStore persists current_term and voted_for as a small JSON file
// (`{"currentTerm":1,"votedFor":"s2:7000"}`), written only when a value actually
// changes, using an atomic temp-write-rename-fsync sequence.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	raft "github.com/coral-raft/raft"
)

type persistedState struct {
	CurrentTerm raft.TermNo `json:"currentTerm"`
	VotedFor    raft.NodeID `json:"votedFor"`
}

// FileStore is a raft.Storage backed by a single JSON file. It is not safe
// for concurrent use from more than one goroutine, matching the "consensus
// Module only ever calls Storage from its own goroutine" contract in
// raft.Storage's doc comment.
type FileStore struct {
	path    string
	exists  bool
	current persistedState
}

// NewFileStore opens (or initializes) a FileStore at path. If the file
// does not exist, the store starts at the zero value (term 0, no vote) and
// Exists() returns false until the first Update.
func NewFileStore(path string) (*FileStore, error) {
	fs := &FileStore{path: path}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var ps persistedState
		if err := json.Unmarshal(data, &ps); err != nil {
			return nil, fmt.Errorf("storage: corrupt state file %s: %w", path, err)
		}
		fs.current = ps
		fs.exists = true
	case os.IsNotExist(err):
		// First boot: leave the zero value in place, exists=false.
	default:
		return nil, fmt.Errorf("storage: reading %s: %w", path, err)
	}

	return fs, nil
}

func (fs *FileStore) CurrentTerm() raft.TermNo { return fs.current.CurrentTerm }

func (fs *FileStore) VotedFor() raft.NodeID { return fs.current.VotedFor }

func (fs *FileStore) Exists() bool { return fs.exists }

// Update durably persists term and votedFor together. The write is a
// temp-file-write, fsync, rename, directory-fsync sequence so that a crash
// at any point leaves either the old or the new content in place, never a
// partial file.
func (fs *FileStore) Update(term raft.TermNo, votedFor raft.NodeID) error {
	next := persistedState{CurrentTerm: term, VotedFor: votedFor}
	if fs.exists && next == fs.current {
		return nil
	}

	data, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("storage: marshal state: %w", err)
	}

	dir := filepath.Dir(fs.path)
	tmp, err := os.CreateTemp(dir, ".state-*.tmp")
	if err != nil {
		return fmt.Errorf("storage: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op once renamed

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("storage: write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("storage: fsync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp file: %w", err)
	}
	if err := os.Rename(tmpName, fs.path); err != nil {
		return fmt.Errorf("storage: rename into place: %w", err)
	}
	if dirF, err := os.Open(dir); err == nil {
		_ = dirF.Sync()
		dirF.Close()
	}

	fs.current = next
	fs.exists = true
	return nil
}
