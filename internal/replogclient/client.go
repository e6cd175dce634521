// Package replogclient provides a Go SDK for talking to a replog master or
// secondary's client-facing HTTP API.
//
// Big idea:
//
// Instead of writing raw HTTP requests everywhere, wrap them inside a
// clean Go API. Users call client.Write(ctx, "hello", 2) instead of
// building JSON bodies and checking status codes by hand.
package replogclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client talks to ONE node (master or secondary). It does not implement
// distributed logic itself — that lives entirely on the server side.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a new Client. timeout protects every call from hanging
// forever; the distributed-systems rule is: never call network without a
// timeout.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{baseURL: baseURL, httpClient: &http.Client{Timeout: timeout}}
}

// WriteResponse is returned after a write against the master.
type WriteResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
}

// Message is one entry in the replicated log.
type Message struct {
	Content string `json:"content"`
}

// Write submits a message to the master with the given write concern. It
// returns ErrQuorumUnmet when the master responds 503.
func (c *Client) Write(ctx context.Context, message string, wc int) (*WriteResponse, error) {
	body, _ := json.Marshal(map[string]interface{}{"message": message, "wc": wc})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/api/v1/messages", c.baseURL), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("write request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusServiceUnavailable {
		return nil, ErrQuorumUnmet
	}
	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var result WriteResponse
	return &result, json.NewDecoder(resp.Body).Decode(&result)
}

// Messages lists every message currently appended, in insertion order.
func (c *Client) Messages(ctx context.Context) ([]Message, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/api/v1/messages", c.baseURL), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("messages request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var result []Message
	return result, json.NewDecoder(resp.Body).Decode(&result)
}

// Node is one entry of the master's active membership set.
type Node struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

// ClusterNodes lists the master's currently active secondaries.
func (c *Client) ClusterNodes(ctx context.Context) ([]Node, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/api/v1/cluster/nodes", c.baseURL), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cluster nodes request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var result []Node
	return result, json.NewDecoder(resp.Body).Decode(&result)
}

// ToggleSabotage flips a secondary's sabotage test-hook flag.
func (c *Client) ToggleSabotage(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/api/v1/sabotage", c.baseURL), nil)
	if err != nil {
		return false, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return false, err
	}
	var result struct {
		Sabotage bool `json:"sabotage"`
	}
	return result.Sabotage, json.NewDecoder(resp.Body).Decode(&result)
}

// ─── Errors ───────────────────────────────────────────────────────────────────

// ErrQuorumUnmet is returned when the master rejects a write for lack of
// healthy nodes.
var ErrQuorumUnmet = fmt.Errorf("write concern could not be met: quorum unavailable")

// APIError carries the HTTP status and the error message from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Message)
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(resp.Body)
	var apiErr struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	_ = json.Unmarshal(body, &apiErr)
	msg := apiErr.Message
	if msg == "" {
		msg = apiErr.Error
	}
	if msg == "" {
		msg = string(body)
	}
	return &APIError{Status: resp.StatusCode, Message: msg}
}
