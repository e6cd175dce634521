// Package secondary implements the secondary-side replication RPC server,
// join client, and sync server.
package secondary

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"replog/internal/logstore"
	"replog/internal/model"
	"replog/internal/ordering"
	"replog/internal/rerrors"
)

// Config holds the tunables Server needs beyond ordering.Config: the
// artificial processing delay every accepted replica sleeps before append,
// a deliberate test knob (REPLICATION_DELAY).
type Config struct {
	Ordering           ordering.Config
	ReplicationDelay   time.Duration
}

func DefaultConfig() Config {
	return Config{Ordering: ordering.DefaultConfig(), ReplicationDelay: 5 * time.Second}
}

// Server applies validated replicas to the local log, with the artificial
// delay and sabotage toggle as deliberate test hooks.
type Server struct {
	cfg      Config
	state    *ordering.State
	log      *logstore.Log
	sabotage atomic.Bool
	zlog     zerolog.Logger
}

// NewServer constructs a Server over a fresh (or restored) ordering.State
// and a local log.
func NewServer(cfg Config, state *ordering.State, localLog *logstore.Log, zlog zerolog.Logger) *Server {
	return &Server{cfg: cfg, state: state, log: localLog, zlog: zlog}
}

// SetSabotage flips the process-wide sabotage flag, served by the
// POST /api/v1/sabotage endpoint.
func (s *Server) SetSabotage(on bool) { s.sabotage.Store(on) }

// Sabotage reports the current sabotage state.
func (s *Server) Sabotage() bool { return s.sabotage.Load() }

// Replicate classifies the incoming replica, registers its id, gap-waits if
// Disordered, sleeps the artificial delay, appends, advances
// current_ordering unless Belated, then honors the sabotage toggle. It
// returns a *rerrors.Error of KindValidationInvalid for a rejected
// (duplicate/repeat) replica and KindRemoteReject when sabotage is active —
// the sabotage case still applies the replica locally, the invalid case
// does not.
func (s *Server) Replicate(ctx context.Context, replica model.Replica) error {
	verdict := ordering.Classify(s.state, replica)
	if verdict == ordering.Invalid {
		return rerrors.ValidationInvalid("replicate", nil)
	}

	if err := ordering.Apply(ctx, s.cfg.Ordering, s.state, replica, verdict, func(content string) {
		s.sleepDelay(ctx)
		s.log.Append(content)
	}); err != nil {
		return err
	}

	if s.sabotage.Load() {
		return rerrors.RemoteReject("replicate", nil)
	}
	return nil
}

func (s *Server) sleepDelay(ctx context.Context) {
	if s.cfg.ReplicationDelay <= 0 {
		return
	}
	t := time.NewTimer(s.cfg.ReplicationDelay)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

// State exposes the ordering state for the sync server and diagnostics.
func (s *Server) State() *ordering.State { return s.state }

// Log exposes the local log for the HTTP read endpoint.
func (s *Server) Log() *logstore.Log { return s.log }
