package kvstore_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	raft "github.com/coral-raft/raft"
	"github.com/coral-raft/raft/kvstore"
)

func TestStateMachine_ApplyAndGet(t *testing.T) {
	sm := kvstore.New()

	_, ok := sm.Get("x")
	require.False(t, ok)

	sm.Apply(raft.Command{Name: "x", Value: float64(42)})
	v, ok := sm.Get("x")
	require.True(t, ok)
	require.Equal(t, float64(42), v)

	// Re-applying the same command is idempotent.
	sm.Apply(raft.Command{Name: "x", Value: float64(42)})
	v, ok = sm.Get("x")
	require.True(t, ok)
	require.Equal(t, float64(42), v)
}

func TestStateMachine_ReplayIsDeterministic(t *testing.T) {
	commands := []raft.Command{
		{Name: "x", Value: float64(1)},
		{Name: "y", Value: "a"},
		{Name: "x", Value: float64(2)},
	}

	sm1 := kvstore.New()
	sm2 := kvstore.New()
	for _, c := range commands {
		sm1.Apply(c)
	}
	for _, c := range commands {
		sm2.Apply(c)
	}

	require.Equal(t, sm1.Snapshot(), sm2.Snapshot())
}
