package rafttimer_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/coral-raft/raft/rafttimer"
)

func TestTimer_FiresAndRearms(t *testing.T) {
	var fires int32
	tm := rafttimer.New(rafttimer.Constant(5*time.Millisecond), func() {
		atomic.AddInt32(&fires, 1)
	})
	tm.Start()
	defer tm.Stop()

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&fires) >= 3
	}, 200*time.Millisecond, time.Millisecond)
}

func TestTimer_StopSuppressesFutureFires(t *testing.T) {
	var fires int32
	tm := rafttimer.New(rafttimer.Constant(5*time.Millisecond), func() {
		atomic.AddInt32(&fires, 1)
	})
	tm.Start()
	time.Sleep(12 * time.Millisecond)
	tm.Stop()
	after := atomic.LoadInt32(&fires)

	time.Sleep(30 * time.Millisecond)
	require.Equal(t, after, atomic.LoadInt32(&fires), "no callback should fire after Stop")
}

func TestTimer_StopIsIdempotent(t *testing.T) {
	tm := rafttimer.New(rafttimer.Constant(time.Millisecond), func() {})
	tm.Start()
	tm.Stop()
	require.NotPanics(t, func() {
		tm.Stop()
		tm.Stop()
	})
}

func TestTimer_Reset(t *testing.T) {
	var fires int32
	tm := rafttimer.New(rafttimer.Constant(20*time.Millisecond), func() {
		atomic.AddInt32(&fires, 1)
	})
	tm.Start()
	time.Sleep(5 * time.Millisecond)
	tm.Reset() // pushes the deadline back out
	time.Sleep(10 * time.Millisecond)
	require.Equal(t, int32(0), atomic.LoadInt32(&fires), "reset should have pushed the fire out")
}

func TestTimer_IntervalFunc(t *testing.T) {
	low, high := 10*time.Millisecond, 20*time.Millisecond
	interval := func() time.Duration {
		return low + time.Duration(int64(high-low)/2)
	}
	var fired atomic.Bool
	tm := rafttimer.New(interval, func() { fired.Store(true) })
	tm.Start()
	defer tm.Stop()
	require.Eventually(t, fired.Load, 200*time.Millisecond, time.Millisecond)
}
