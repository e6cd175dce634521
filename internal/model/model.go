// Package model holds the wire and domain types shared between the master
// and secondary processes: messages, replicas, node health signals, and the
// membership records the coordinator and circuit breaker operate on.
package model

import "time"

// Message is the payload a client submits for replication.
type Message struct {
	Content string `json:"content"`
}

// Replica is the unit of wire replication. Id dedupes; Order defines total
// order on the master.
type Replica struct {
	ID      string `json:"id"`
	Order   uint32 `json:"order"`
	Content string `json:"content"`
}

// NodeHealth is one of Healthy, Suspected, Failed, emitted by the prober as
// a stream per node.
type NodeHealth int

const (
	Healthy NodeHealth = iota
	Suspected
	Failed
)

func (s NodeHealth) String() string {
	switch s {
	case Healthy:
		return "healthy"
	case Suspected:
		return "suspected"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// MembershipEntry maps a joined node's hostname to the address the master
// dials to reach it.
type MembershipEntry struct {
	Name     string
	Address  string
	JoinedAt time.Time
}

// NodeState is the join request body: a secondary announcing its hostname,
// the port its own HTTP/RPC listener is bound to (so the master can dial
// it back), and the last order it has applied (0 on first boot). Port is
// optional; a zero value means "use the master's configured default RPC
// port" (see internal/master.BuildAddress).
type NodeState struct {
	Host     string `json:"host"`
	Port     int    `json:"port,omitempty"`
	Ordering uint32 `json:"ordering"`
}

// Ack is the generic boolean-result RPC response.
type Ack struct {
	Success bool `json:"success"`
}

// SyncClaim is the (empty) body of a master-initiated resync request.
type SyncClaim struct{}

// EmptyAck is the sync RPC's immediate acknowledgment.
type EmptyAck struct{}
