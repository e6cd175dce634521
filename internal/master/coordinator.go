package master

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"replog/internal/logstore"
	"replog/internal/model"
	"replog/internal/retry"
)

// Transport is the outbound RPC surface the coordinator needs to reach a
// secondary: the replicate call itself.
type Transport interface {
	Replicate(ctx context.Context, address string, r model.Replica) error
}

// Config holds the coordinator's tunables.
type Config struct {
	WriteQuorum            int
	RequestBlockTimeOnSync time.Duration
	Retry                  retry.Config
}

func DefaultConfig() Config {
	return Config{
		WriteQuorum:            1,
		RequestBlockTimeOnSync: 30 * time.Second,
		Retry:                  retry.DefaultConfig(),
	}
}

// Coordinator is the master-side replication coordinator (C9). It also
// implements breaker.Membership so the circuit breaker can drive it
// directly.
type Coordinator struct {
	cfg       Config
	table     *Table
	stash     *Stash
	transport Transport
	log       zerolog.Logger
	globalLog *logstore.Log // the master's own local log (C11)

	globalOrder atomic.Uint32

	syncMu      sync.Mutex
	syncSignals map[string]chan struct{}
}

// NewCoordinator wires a Coordinator over an active-node Table, a Stash,
// and a Transport. globalOrder is seeded at 0 so the first assigned order
// is 1 (spec.md §9's "first assigned order is 1" invariant).
func NewCoordinator(cfg Config, table *Table, stash *Stash, transport Transport, localLog *logstore.Log, log zerolog.Logger) *Coordinator {
	return &Coordinator{
		cfg:         cfg,
		table:       table,
		stash:       stash,
		transport:   transport,
		log:         log,
		globalLog:   localLog,
		syncSignals: make(map[string]chan struct{}),
	}
}

// breaker.Membership ---------------------------------------------------

func (c *Coordinator) AddNode(name, address string) { c.table.AddNode(name, address) }
func (c *Coordinator) DelNode(name string)          { c.table.DelNode(name) }
func (c *Coordinator) IncrementSuspected()           { c.table.IncrementSuspected() }
func (c *Coordinator) DecrementSuspected()           { c.table.DecrementSuspected() }

// VerifyQuorum is C10's admission gate: |active| - suspected_count >= wc.
func (c *Coordinator) VerifyQuorum(writeQuorum int) bool {
	return c.table.Count()-c.table.Suspected() >= writeQuorum
}

// clampWriteConcern implements wc_eff = clamp(wc_requested, 1, |active|+1).
func clampWriteConcern(wc, active int) int {
	max := active + 1
	if wc < 1 {
		return 1
	}
	if wc > max {
		return max
	}
	return wc
}

// Replicate is C9's public fan-out entry point. It assigns a fresh Replica
// (UUID id, fetch-and-increment order unless ordering is supplied for test
// replay), appends it to the master's own log, fans it out to every active
// member, and returns once the write-concern barrier opens.
//
// Per DESIGN.md's Open Question #1, a per-node task arrives at the barrier
// whether its retry loop succeeded or was exhausted in failure — write
// concern bounds client latency, it does not guarantee wc-many successful
// remote acknowledgments.
func (c *Coordinator) Replicate(ctx context.Context, content string, wc int, ordering *uint32) error {
	order := c.nextOrder(ordering)
	replica := model.Replica{ID: uuid.NewString(), Order: order, Content: content}

	c.stash.Insert(replica)
	c.globalLog.Append(content)

	members := c.table.Snapshot()
	wcEff := clampWriteConcern(wc, len(members))

	arrived := make(chan struct{}, len(members)+1)
	arrived <- struct{}{} // the master's own append counts toward the barrier

	// Fan-out tasks run under a detached root, never under ctx: ctx is the
	// inbound HTTP request's context, and gin cancels it the instant the
	// handler returns. A wc=1 write returns to the client as soon as the
	// barrier opens, which would otherwise cancel every in-flight retry to
	// the remaining members before it had a chance to succeed. ctx is used
	// below only to bound how long this call waits on the barrier, not the
	// replication itself (see joinserver.go for the same pattern).
	for _, m := range members {
		m := m
		go func() {
			c.replicateToMember(context.Background(), m, replica)
			arrived <- struct{}{}
		}()
	}

	received := 0
	for received < wcEff {
		select {
		case <-arrived:
			received++
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// replicateToMember implements fan-out steps 1-2 per spec.md §4.5: block on
// an in-flight sync signal for this node (bounded by
// RequestBlockTimeOnSync), then invoke replicatePerNode.
func (c *Coordinator) replicateToMember(ctx context.Context, member model.MembershipEntry, replica model.Replica) {
	c.waitOnSync(ctx, member.Name)
	if err := c.replicatePerNode(ctx, member.Name, member.Address, replica); err != nil {
		c.log.Warn().Str("node", member.Name).Err(err).Msg("replication exhausted retries, leaving replica in stash")
		return
	}
	c.table.RecordAcked(member.Name, replica.Order)
	c.pruneStash()
}

// pruneStash implements the stash's bounded retention policy (DESIGN.md
// "Unbounded stash"): drop every stashed replica at or below the order
// acknowledged by every currently active node.
func (c *Coordinator) pruneStash() {
	if min, ok := c.table.MinAcked(); ok {
		c.stash.Prune(min)
	}
}

func (c *Coordinator) waitOnSync(ctx context.Context, name string) {
	c.syncMu.Lock()
	sig, ok := c.syncSignals[name]
	c.syncMu.Unlock()
	if !ok {
		return
	}
	timer := time.NewTimer(c.cfg.RequestBlockTimeOnSync)
	defer timer.Stop()
	select {
	case <-sig:
	case <-timer.C:
	case <-ctx.Done():
	}
}

// replicatePerNode loops under the retry policy, sending replica over the
// replication RPC, stopping on first success. On exhaustion it logs and
// leaves the replica in the stash (already inserted by Replicate) for
// future catch-up.
func (c *Coordinator) replicatePerNode(ctx context.Context, name, address string, replica model.Replica) error {
	return retry.Do(ctx, c.cfg.Retry, func(ctx context.Context) error {
		return c.transport.Replicate(ctx, address, replica)
	})
}

// SyncNode implements C9's sync_node(name, channel, from_order) catch-up:
// publish a one-shot sync signal, replay every stashed replica with
// Order > fromOrder against this node, await completion, then release the
// signal so blocked fan-out tasks proceed.
func (c *Coordinator) SyncNode(ctx context.Context, name, address string, fromOrder uint32) error {
	sig := make(chan struct{})
	c.syncMu.Lock()
	c.syncSignals[name] = sig
	c.syncMu.Unlock()

	defer func() {
		c.syncMu.Lock()
		delete(c.syncSignals, name)
		c.syncMu.Unlock()
		close(sig)
	}()

	replicas := c.stash.Since(fromOrder)
	var wg sync.WaitGroup
	for _, r := range replicas {
		r := r
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := c.replicatePerNode(ctx, name, address, r); err != nil {
				c.log.Warn().Str("node", name).Uint32("order", r.Order).Err(err).Msg("catch-up replica delivery exhausted retries")
				return
			}
			c.table.RecordAcked(name, r.Order)
		}()
	}
	wg.Wait()
	c.pruneStash()
	return nil
}

func (c *Coordinator) nextOrder(ordering *uint32) uint32 {
	if ordering != nil {
		return *ordering
	}
	return c.globalOrder.Add(1)
}

// LocalLog exposes the master's own log for the HTTP read endpoint.
func (c *Coordinator) LocalLog() *logstore.Log { return c.globalLog }

// Table exposes the membership table for the join server / diagnostics.
func (c *Coordinator) Table() *Table { return c.table }

// StashLen reports the stash size, for diagnostics and tests.
func (c *Coordinator) StashLen() int { return c.stash.Len() }
