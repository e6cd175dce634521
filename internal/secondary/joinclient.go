package secondary

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"replog/internal/model"
	"replog/internal/retry"
)

// MasterTransport is the outbound RPC surface the join client needs: the
// master's join endpoint.
type MasterTransport interface {
	Join(ctx context.Context, masterAddr string, state model.NodeState) (model.Ack, error)
}

// JoinClient dials the master, announces this node's hostname, the port its
// own HTTP/RPC listener is bound to, and its current order, and retries
// under the retry policy.
type JoinClient struct {
	transport  MasterTransport
	masterAddr string
	port       int // this node's own listening port, announced so the master can dial it back
	retryCfg   retry.Config
	log        zerolog.Logger
}

// NewJoinClient constructs a JoinClient targeting masterAddr, the master's
// base URL including scheme and port (e.g. http://localhost:10000), and
// announcing port as this node's own listener.
func NewJoinClient(transport MasterTransport, masterAddr string, port int, retryCfg retry.Config, log zerolog.Logger) *JoinClient {
	return &JoinClient{transport: transport, masterAddr: masterAddr, port: port, retryCfg: retryCfg, log: log}
}

// TryJoin submits {host, port, ordering} to the master, retrying under the
// policy, and returns whether any attempt succeeded.
func (j *JoinClient) TryJoin(ctx context.Context, ordering uint32) bool {
	host := bestEffortHostname()
	var ack model.Ack
	err := retry.Do(ctx, j.retryCfg, func(ctx context.Context) error {
		a, err := j.transport.Join(ctx, j.masterAddr, model.NodeState{Host: host, Port: j.port, Ordering: ordering})
		if err != nil {
			return err
		}
		if !a.Success {
			return errors.New("join rejected by master")
		}
		ack = a
		return nil
	})
	if err != nil {
		j.log.Warn().Err(err).Msg("join attempts exhausted")
		return false
	}
	return ack.Success
}

// bestEffortHostname reads /etc/hostname, falling back to os.Hostname, and
// finally to an empty string so the master can derive the address from the
// observed peer.
func bestEffortHostname() string {
	if b, err := os.ReadFile("/etc/hostname"); err == nil {
		if h := strings.TrimSpace(string(b)); h != "" {
			return h
		}
	}
	if h, err := os.Hostname(); err == nil {
		return h
	}
	return ""
}
