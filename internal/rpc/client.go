// Package rpc implements the inter-node wire layer: the replicate, join,
// and sync calls, carried over HTTP+JSON via net/http (see DESIGN.md for
// why this repository does not reach for a protobuf/gRPC stack instead).
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"replog/internal/model"
	"replog/internal/rerrors"
)

// Client is a single HTTP client shared across every inter-node call this
// process makes. It implements master.Transport, breaker.Transport, and
// secondary.MasterTransport simultaneously — each of those packages only
// names the methods it needs.
type Client struct {
	http *http.Client
}

// NewClient builds a Client with the given per-call timeout: every
// outbound network call carries a deadline, never an unbounded wait.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{http: &http.Client{Timeout: timeout}}
}

// Replicate implements master.Transport: POST the replica to address's
// replication RPC endpoint and translate a false Ack into a RemoteReject
// error, which the caller's retry policy treats like a transport failure.
func (c *Client) Replicate(ctx context.Context, address string, r model.Replica) error {
	var ack model.Ack
	if err := c.postJSON(ctx, address+"/rpc/replicate", r, &ack); err != nil {
		return rerrors.Transport("replicate", err)
	}
	if !ack.Success {
		return rerrors.RemoteReject("replicate", nil)
	}
	return nil
}

// Ping implements breaker.Transport's liveness check against the
// secondary's standard liveness endpoint.
func (c *Client) Ping(ctx context.Context, address string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, address+"/rpc/health", nil)
	if err != nil {
		return rerrors.Transport("ping", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return rerrors.Transport("ping", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return rerrors.Transport("ping", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}
	return nil
}

// RequestSync implements breaker.Transport's reverse-sync recovery call.
func (c *Client) RequestSync(ctx context.Context, address string) error {
	var ack model.EmptyAck
	if err := c.postJSON(ctx, address+"/rpc/sync", model.SyncClaim{}, &ack); err != nil {
		return rerrors.Transport("request_sync", err)
	}
	return nil
}

// Join implements secondary.MasterTransport: submit this node's join
// announcement to the master.
func (c *Client) Join(ctx context.Context, masterAddr string, state model.NodeState) (model.Ack, error) {
	var ack model.Ack
	if err := c.postJSON(ctx, masterAddr+"/rpc/join", state, &ack); err != nil {
		return model.Ack{}, rerrors.Transport("join", err)
	}
	return ack, nil
}

func (c *Client) postJSON(ctx context.Context, url string, body, out interface{}) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
