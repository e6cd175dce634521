// Package breaker implements the master-side membership lifecycle and
// circuit breaker: join acceptance wiring, a health.Prober per active node,
// a stall table of abort signals for nodes pending removal, and the
// reverse-sync recovery path.
package breaker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"replog/internal/health"
	"replog/internal/model"
	"replog/internal/retry"
)

// Membership is the subset of the master's membership/coordinator surface
// the breaker mutates. Implemented by internal/master.Coordinator; kept as
// an interface here so this package never imports internal/master (the
// dependency runs the other way).
type Membership interface {
	AddNode(name, address string)
	DelNode(name string)
	IncrementSuspected()
	DecrementSuspected()
	SyncNode(ctx context.Context, name, address string, fromOrder uint32) error
}

// Transport is the node-facing RPC surface the breaker needs: a liveness
// ping for the prober, and the outbound SyncRequest used on the recovery
// path to ask a node to rejoin.
type Transport interface {
	Ping(ctx context.Context, address string) error
	RequestSync(ctx context.Context, address string) error
}

// Config holds the breaker's tunables.
type Config struct {
	Health            health.Config
	StallNodeLifetime time.Duration
	AbortCmdTimeout   time.Duration
	Retry             retry.Config
}

func DefaultConfig() Config {
	return Config{
		Health:            health.DefaultConfig(),
		StallNodeLifetime: time.Hour,
		AbortCmdTimeout:   10 * time.Second,
		Retry:             retry.DefaultConfig(),
	}
}

// stallEntry is a single stall-table row: an abort channel closed (at most
// once) by a rejoining node, and the wall-clock deadline by which the node
// is forgotten if nobody rejoins.
type stallEntry struct {
	abort    chan struct{}
	once     sync.Once
	deadline time.Time
}

// Breaker owns the stall table and drives watch/connect for every node.
type Breaker struct {
	cfg       Config
	member    Membership
	transport Transport
	log       zerolog.Logger

	mu    sync.Mutex
	stall map[string]*stallEntry
}

// New constructs a Breaker bound to a Membership and a Transport.
func New(cfg Config, member Membership, transport Transport, log zerolog.Logger) *Breaker {
	return &Breaker{cfg: cfg, member: member, transport: transport, log: log, stall: make(map[string]*stallEntry)}
}

// TryUnwatchOld fires the abort signal of any prior stall entry for name,
// letting a watch goroutine blocked in its post-break select exit
// immediately. It is a no-op if name has no stall entry.
func (b *Breaker) TryUnwatchOld(name string) {
	b.mu.Lock()
	entry, ok := b.stall[name]
	if ok {
		delete(b.stall, name)
	}
	b.mu.Unlock()
	if ok {
		entry.once.Do(func() { close(entry.abort) })
	}
}

// Connect unwatches any stale stall entry, registers the node as active,
// then replays its catch-up via SyncNode. Invoked on a join request.
func (b *Breaker) Connect(ctx context.Context, name, address string, nodeOrdering uint32) error {
	b.TryUnwatchOld(name)
	b.member.AddNode(name, address)
	return b.member.SyncNode(ctx, name, address, nodeOrdering)
}

// Watch runs the per-node lifecycle: spawn a prober, drain its signals into
// suspicion accounting, and on a Failed/closed signal, break the node out
// of the active set and enter the stall/recover/forget branch. It blocks
// until the node is either forgotten or recovered; callers spawn it as a
// goroutine.
func (b *Breaker) Watch(ctx context.Context, name, address string) {
	prober := health.New(b.cfg.Health, name, func(pingCtx context.Context) error {
		return b.transport.Ping(pingCtx, address)
	}, b.log)

	go prober.Run(ctx)

	for status := range prober.Signals {
		switch status {
		case model.Healthy:
			b.member.DecrementSuspected()
		case model.Suspected:
			b.member.IncrementSuspected()
		case model.Failed:
			// fall through to the break branch below, after the drain loop.
		}
		if status == model.Failed {
			break
		}
	}

	b.breakNode(ctx, name, address)
}

// breakNode removes the node from the active set, enters the stall table,
// and selects on abort / stall-timeout / recovery poll. The recovery poll
// is a background ping loop restarted for the stalled node — it completes
// the moment the node answers a liveness ping again, which this branch
// interprets as recovery and drives the reverse-sync.
func (b *Breaker) breakNode(ctx context.Context, name, address string) {
	b.log.Info().Str("node", name).Msg("breaking node out of active set")
	b.member.DelNode(name)

	entry := &stallEntry{abort: make(chan struct{}), deadline: time.Now().Add(b.cfg.StallNodeLifetime)}
	b.mu.Lock()
	b.stall[name] = entry
	b.mu.Unlock()

	timer := time.NewTimer(b.cfg.StallNodeLifetime)
	defer timer.Stop()

	stallCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	recovered := make(chan struct{})
	go func() {
		defer close(recovered)
		b.pollForRecovery(stallCtx, address)
	}()

	select {
	case <-entry.abort:
		b.log.Info().Str("node", name).Msg("node rejoined during stall, abandoning recovery watch")
		return
	case <-timer.C:
		b.forget(name)
		return
	case <-recovered:
		b.mu.Lock()
		delete(b.stall, name)
		b.mu.Unlock()
		if err := b.Recover(ctx, name, address); err != nil {
			b.log.Warn().Str("node", name).Err(err).Msg("recovery sync request failed")
		}
		return
	case <-ctx.Done():
		return
	}
}

// pollForRecovery pings address on the prober's interval until it succeeds
// or ctx is canceled; its completion is what the stall select branch
// waits on.
func (b *Breaker) pollForRecovery(ctx context.Context, address string) {
	ticker := time.NewTicker(b.cfg.Health.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		pingCtx, cancel := context.WithTimeout(ctx, b.cfg.Health.RequestTimeout)
		err := b.transport.Ping(pingCtx, address)
		cancel()
		if err == nil {
			return
		}
	}
}

// forget drops a stall entry whose lifetime has elapsed without a rejoin.
func (b *Breaker) forget(name string) {
	b.mu.Lock()
	delete(b.stall, name)
	b.mu.Unlock()
	b.log.Info().Str("node", name).Msg("stall lifetime elapsed, node forgotten")
}

// Recover is invoked once a node's transport becomes reachable again after
// a Failed break but before the stall lifetime elapses. It sends a sync
// request under the retry policy asking the node to rejoin at its
// current order.
func (b *Breaker) Recover(ctx context.Context, name, address string) error {
	return retry.Do(ctx, b.cfg.Retry, func(ctx context.Context) error {
		return b.transport.RequestSync(ctx, address)
	})
}

// StalledNodes returns the names currently in the stall table, for
// diagnostics and tests.
func (b *Breaker) StalledNodes() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.stall))
	for name := range b.stall {
		out = append(out, name)
	}
	return out
}
