package breaker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"replog/internal/health"
	"replog/internal/logging"
	"replog/internal/retry"
)

type fakeMembership struct {
	mu      sync.Mutex
	added   []string
	deleted []string
	synced  []string
}

func (f *fakeMembership) AddNode(name, address string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.added = append(f.added, name)
}

func (f *fakeMembership) DelNode(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, name)
}

func (f *fakeMembership) IncrementSuspected() {}
func (f *fakeMembership) DecrementSuspected() {}

func (f *fakeMembership) SyncNode(ctx context.Context, name, address string, fromOrder uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.synced = append(f.synced, name)
	return nil
}

func (f *fakeMembership) deletedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.deleted)
}

type fakeTransport struct {
	pingFail atomic.Bool
	syncs    atomic.Int32
}

func (f *fakeTransport) Ping(ctx context.Context, address string) error {
	if f.pingFail.Load() {
		return errors.New("down")
	}
	return nil
}

func (f *fakeTransport) RequestSync(ctx context.Context, address string) error {
	f.syncs.Add(1)
	return nil
}

func testConfig() Config {
	return Config{
		Health: health.Config{
			FailBudget:       1,
			Interval:         10 * time.Millisecond,
			RequestTimeout:   5 * time.Millisecond,
			PostFailInterval: 10 * time.Millisecond,
			EmitSendTimeout:  time.Second,
		},
		StallNodeLifetime: time.Second,
		AbortCmdTimeout:   time.Second,
		Retry:             retry.Config{MaxRetries: 1, InitBackoff: time.Millisecond, Factor: 1, MaxBackoff: time.Millisecond},
	}
}

func TestBreaker_ConnectAddsAndSyncs(t *testing.T) {
	member := &fakeMembership{}
	transport := &fakeTransport{}
	b := New(testConfig(), member, transport, logging.New("test", 3))

	require.NoError(t, b.Connect(context.Background(), "s1", "http://s1", 5))
	assert.Contains(t, member.added, "s1")
	assert.Contains(t, member.synced, "s1")
}

// TestBreaker_WatchBreaksAndRecovers drives a full Active -> Stalled ->
// recovered cycle: the prober exhausts its fail budget and declares the
// node Failed, breakNode removes it from the active set, and once pings
// start succeeding again the reverse-sync recovery path fires.
func TestBreaker_WatchBreaksAndRecovers(t *testing.T) {
	member := &fakeMembership{}
	transport := &fakeTransport{}
	transport.pingFail.Store(true)
	b := New(testConfig(), member, transport, logging.New("test", 3))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	done := make(chan struct{})
	go func() {
		b.Watch(ctx, "s1", "http://s1")
		close(done)
	}()

	require.Eventually(t, func() bool { return member.deletedCount() == 1 }, time.Second, 5*time.Millisecond)

	transport.pingFail.Store(false) // node becomes reachable again

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not return after recovery")
	}
	assert.Equal(t, int32(1), transport.syncs.Load())
}

// TestBreaker_TryUnwatchOldAbortsStall exercises the rejoin-during-stall
// branch: a node breaks, enters the stall table, and TryUnwatchOld (the
// first step of a fresh Connect for the same name) fires the abort signal
// before the stall lifetime or recovery poll would otherwise resolve it.
func TestBreaker_TryUnwatchOldAbortsStall(t *testing.T) {
	member := &fakeMembership{}
	transport := &fakeTransport{}
	transport.pingFail.Store(true)
	cfg := testConfig()
	cfg.StallNodeLifetime = 5 * time.Second
	b := New(cfg, member, transport, logging.New("test", 3))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	done := make(chan struct{})
	go func() {
		b.Watch(ctx, "s1", "http://s1")
		close(done)
	}()

	require.Eventually(t, func() bool { return len(b.StalledNodes()) == 1 }, time.Second, 5*time.Millisecond)

	b.TryUnwatchOld("s1")

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watch did not return after unwatch")
	}
	assert.Empty(t, b.StalledNodes())
}

// TestBreaker_StallLifetimeForgetsNode exercises the timed-out branch: no
// rejoin and no recovered ping before the stall lifetime elapses means the
// node is forgotten.
func TestBreaker_StallLifetimeForgetsNode(t *testing.T) {
	member := &fakeMembership{}
	transport := &fakeTransport{}
	transport.pingFail.Store(true)
	cfg := testConfig()
	cfg.StallNodeLifetime = 30 * time.Millisecond
	b := New(cfg, member, transport, logging.New("test", 3))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	done := make(chan struct{})
	go func() {
		b.Watch(ctx, "s1", "http://s1")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watch did not return once the stall lifetime elapsed")
	}
	assert.Empty(t, b.StalledNodes())
	assert.Equal(t, int32(0), transport.syncs.Load()) // forgotten, never recovered
}
