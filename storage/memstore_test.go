package storage_test

import (
	"testing"

	raft "github.com/coral-raft/raft"
	"github.com/coral-raft/raft/storage"
)

func TestMemStore(t *testing.T) {
	ms := storage.NewMemStore()
	if ms.Exists() {
		t.Fatal("new MemStore should not exist")
	}
	if ms.CurrentTerm() != 0 {
		t.Fatal()
	}
	if err := ms.Update(5, raft.NodeID("s2:7000")); err != nil {
		t.Fatal(err)
	}
	if !ms.Exists() {
		t.Fatal()
	}
	if ms.CurrentTerm() != 5 {
		t.Fatal()
	}
	if ms.VotedFor() != "s2:7000" {
		t.Fatal()
	}
}
