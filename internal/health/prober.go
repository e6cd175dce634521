// Package health implements the master-side liveness prober: a periodic
// ping loop that emits NodeHealth transitions onto a bounded signal stream,
// with a failure budget and post-fail interval widening.
package health

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"replog/internal/model"
)

// Config holds the prober's tunables.
type Config struct {
	FailBudget        int
	Interval          time.Duration
	RequestTimeout    time.Duration
	PostFailInterval  time.Duration
	EmitSendTimeout   time.Duration // bounded timeout for delivering a signal (10s default)
}

func DefaultConfig() Config {
	return Config{
		FailBudget:       5,
		Interval:         5 * time.Second,
		RequestTimeout:   3 * time.Second,
		PostFailInterval: 60 * time.Second,
		EmitSendTimeout:  10 * time.Second,
	}
}

// Ping performs one liveness check against a node, honoring the deadline
// carried on ctx. A non-nil error is treated as a probe failure.
type Ping func(ctx context.Context) error

// Prober drives the per-node liveness protocol. It owns no membership
// state itself — it only emits NodeHealth transitions onto Signals for the
// circuit breaker (internal/breaker) to consume.
type Prober struct {
	cfg     Config
	ping    Ping
	log     zerolog.Logger
	name    string
	Signals chan model.NodeHealth // bounded so a stalled consumer cannot block the prober indefinitely
}

// New constructs a Prober for node name, using ping as the liveness check.
func New(cfg Config, name string, ping Ping, log zerolog.Logger) *Prober {
	return &Prober{
		cfg:     cfg,
		ping:    ping,
		log:     log,
		name:    name,
		Signals: make(chan model.NodeHealth, 10),
	}
}

// Run drives the per-tick outcome rules until the node is declared Failed
// (and that signal is delivered) or ctx is canceled. It closes Signals on
// return, so Watch's drain loop terminates cleanly whichever way Run
// exits. Run always terminates after a Failed emission rather than
// continuing to tick; the circuit breaker is responsible for starting a
// fresh Prober on recovery (see DESIGN.md).
func (p *Prober) Run(ctx context.Context) {
	defer close(p.Signals)

	status := model.Healthy
	budget := p.cfg.FailBudget
	interval := p.cfg.Interval

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		pingCtx, cancel := context.WithTimeout(ctx, p.cfg.RequestTimeout)
		err := p.ping(pingCtx)
		cancel()

		if err == nil {
			if status == model.Failed {
				p.log.Debug().Str("node", p.name).Msg("prober terminating after recovered ping")
				return
			}
			if status != model.Healthy {
				status = model.Healthy
				budget = p.cfg.FailBudget
				if !p.emit(ctx, model.Healthy) {
					return
				}
			}
			continue
		}

		if budget > 0 {
			budget--
			if status != model.Suspected {
				status = model.Suspected
				if !p.emit(ctx, model.Suspected) {
					return
				}
			}
			continue
		}

		status = model.Failed
		if !p.emit(ctx, model.Failed) {
			return
		}
		// Widen the interval once, await one more tick, then exit.
		ticker.Reset(p.cfg.PostFailInterval)
		select {
		case <-ticker.C:
		case <-ctx.Done():
		}
		return
	}
}

// emit delivers status onto Signals with a bounded timeout so an
// unresponsive consumer cannot wedge the prober. It returns false if the
// send could not complete (timeout or ctx canceled), signaling Run to
// abandon the loop.
func (p *Prober) emit(ctx context.Context, status model.NodeHealth) bool {
	t := time.NewTimer(p.cfg.EmitSendTimeout)
	defer t.Stop()
	select {
	case p.Signals <- status:
		return true
	case <-t.C:
		p.log.Warn().Str("node", p.name).Str("status", status.String()).Msg("dropped health signal: consumer not draining")
		return false
	case <-ctx.Done():
		return false
	}
}
