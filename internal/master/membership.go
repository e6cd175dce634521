// Package master implements the master-side replication engine: the
// membership table, the replication coordinator, admission gate, and the
// join server.
package master

import (
	"sync"
	"sync/atomic"
	"time"

	"replog/internal/model"
)

// Table is the master's active membership set: name -> address, guarded by
// its own mutex with short critical sections. It also holds the
// process-wide suspected-node count as a saturating atomic.
type Table struct {
	mu    sync.RWMutex
	nodes map[string]*model.MembershipEntry
	acked map[string]uint32 // highest order each active node is known to have applied

	suspected atomic.Int32
}

// NewTable returns an empty membership table.
func NewTable() *Table {
	return &Table{nodes: make(map[string]*model.MembershipEntry), acked: make(map[string]uint32)}
}

// AddNode registers name -> address as active.
func (t *Table) AddNode(name, address string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nodes[name] = &model.MembershipEntry{Name: name, Address: address, JoinedAt: time.Now()}
}

// DelNode removes name from the active set. The active set and the stall
// set (internal/breaker) are disjoint at all times.
func (t *Table) DelNode(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.nodes, name)
	delete(t.acked, name)
}

// RecordAcked records that name has successfully applied replicas up to and
// including order, used by the stash's bounded retention policy.
func (t *Table) RecordAcked(name string, order uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, active := t.nodes[name]; !active {
		return
	}
	if cur, ok := t.acked[name]; !ok || order > cur {
		t.acked[name] = order
	}
}

// MinAcked returns the lowest acked order across every active node, and
// whether a meaningful minimum exists. It returns false when the active
// set is empty or when any active node has not yet acked anything, so the
// stash is never pruned past a node that hasn't caught up.
func (t *Table) MinAcked() (uint32, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.nodes) == 0 {
		return 0, false
	}
	min := uint32(0)
	first := true
	for name := range t.nodes {
		order, ok := t.acked[name]
		if !ok {
			return 0, false
		}
		if first || order < min {
			min = order
			first = false
		}
	}
	return min, true
}

// Snapshot returns a copy of the active set's entries, taken under the
// mutex and then handed to callers who drop the lock before doing any I/O.
func (t *Table) Snapshot() []model.MembershipEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]model.MembershipEntry, 0, len(t.nodes))
	for _, e := range t.nodes {
		out = append(out, *e)
	}
	return out
}

// Count returns the number of active members.
func (t *Table) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.nodes)
}

// Get returns the entry for name, if active.
func (t *Table) Get(name string) (model.MembershipEntry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.nodes[name]
	if !ok {
		return model.MembershipEntry{}, false
	}
	return *e, true
}

// IncrementSuspected bumps the process-wide suspected count.
func (t *Table) IncrementSuspected() { t.suspected.Add(1) }

// DecrementSuspected decrements the suspected count, saturating at zero.
func (t *Table) DecrementSuspected() {
	for {
		cur := t.suspected.Load()
		if cur <= 0 {
			return
		}
		if t.suspected.CompareAndSwap(cur, cur-1) {
			return
		}
	}
}

// Suspected returns the current suspected-node count.
func (t *Table) Suspected() int { return int(t.suspected.Load()) }
