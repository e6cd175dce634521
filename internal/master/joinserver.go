package master

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"replog/internal/breaker"
)

// JoinServer accepts membership announcements and hands the node off to the
// circuit breaker for health tracking.
type JoinServer struct {
	coordinator *Coordinator
	breaker     *breaker.Breaker
	transport   breaker.Transport
	log         zerolog.Logger
}

// NewJoinServer wires a JoinServer over the coordinator's membership and
// the circuit breaker that will watch newly joined nodes.
func NewJoinServer(coordinator *Coordinator, b *breaker.Breaker, transport breaker.Transport, log zerolog.Logger) *JoinServer {
	return &JoinServer{coordinator: coordinator, breaker: b, transport: transport, log: log}
}

// HandleJoin dials address with a 10s connect timeout; on success, it calls
// Connect then spawns Watch; it returns success=true iff dialing succeeded.
// ctx should carry the request's own deadline; HandleJoin further bounds
// the dial attempt to 10s.
func (j *JoinServer) HandleJoin(ctx context.Context, name, address string, ordering uint32) bool {
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := j.transport.Ping(dialCtx, address); err != nil {
		j.log.Warn().Str("node", name).Str("address", address).Err(err).Msg("join dial failed")
		return false
	}

	if err := j.breaker.Connect(context.Background(), name, address, ordering); err != nil {
		j.log.Warn().Str("node", name).Err(err).Msg("connect/sync_node failed during join")
	}
	go j.breaker.Watch(context.Background(), name, address)

	j.log.Info().Str("node", name).Str("address", address).Msg("node joined")
	return true
}
