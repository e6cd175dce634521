package secondary

import (
	"context"

	"github.com/rs/zerolog"
)

// SyncServer implements the server side of the sync wire contract
// (SyncClaim{} -> EmptyAck{}): on receipt, iff sync-mode is false, flip it
// true and asynchronously invoke TryJoin(current_ordering); flip it back on
// completion. It always responds immediately, regardless of outcome.
type SyncServer struct {
	server *Server
	join   *JoinClient
	log    zerolog.Logger
}

// NewSyncServer wires a SyncServer over the replication Server's ordering
// state and a JoinClient used to re-announce this node.
func NewSyncServer(server *Server, join *JoinClient, log zerolog.Logger) *SyncServer {
	return &SyncServer{server: server, join: join, log: log}
}

// HandleSync begins sync-mode if not already in progress, asynchronously
// re-joins at the current order, and always responds immediately.
func (s *SyncServer) HandleSync(ctx context.Context) {
	if !s.server.State().BeginSync() {
		return // already in sync, nothing further to do
	}
	go func() {
		defer s.server.State().EndSync()
		if !s.join.TryJoin(context.Background(), s.server.State().CurrentOrdering()) {
			s.log.Warn().Msg("resync join attempt failed")
		}
	}()
}
