package client

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/maumercado/localtaskd/internal/rpc"
	"github.com/maumercado/localtaskd/internal/task"
)

// Client speaks the backend's line-delimited JSON-over-TCP protocol over
// a single connection. One request/response round trip per method call;
// concurrent calls on one Client are serialized by an internal mutex, so
// each waits for the round trip in progress to finish.
type Client struct {
	addr string
	opts *options

	mu     sync.Mutex
	conn   net.Conn
	reader *bufio.Reader
}

// New dials addr and returns a connected Client.
func New(addr string, opts ...Option) (*Client, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	conn, err := net.DialTimeout("tcp", addr, o.dialTimeout)
	if err != nil {
		return nil, newConnectError(addr, err)
	}

	return &Client{
		addr:   addr,
		opts:   o,
		conn:   conn,
		reader: bufio.NewReader(conn),
	}, nil
}

// Close closes the underlying TCP connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.Close()
}

// Submit sends a submit-task request. The task id is generated locally
// (random 128-bit, hex) and sent in the request. Submit returns the id
// only after the server has replied; the caller does not see it before
// the round trip completes, and gets no id when the submission fails.
func (c *Client) Submit(ctx context.Context, script, workingDir string, env map[string]string, resources task.Resources, dependencies []string) (string, error) {
	id := strings.ReplaceAll(uuid.New().String(), "-", "")

	req := rpc.Request{
		Type:         rpc.TypeSubmitTask,
		ID:           id,
		Script:       script,
		WorkingDir:   workingDir,
		Env:          env,
		Resources:    &resources,
		Dependencies: dependencies,
	}

	resp, err := c.roundTrip(ctx, req)
	if err != nil {
		return "", err
	}
	if resp.Type == rpc.TypeError {
		return "", fmt.Errorf("submit-task rejected: %s", resp.Error)
	}
	return id, nil
}

// Cancel sends a cancel-task request for id.
func (c *Client) Cancel(ctx context.Context, id string) error {
	_, err := c.roundTrip(ctx, rpc.Request{Type: rpc.TypeCancelTask, ID: id})
	return err
}

// Status sends a get-status request for id and returns the reported
// TaskStatus.
func (c *Client) Status(ctx context.Context, id string) (task.TaskStatus, error) {
	resp, err := c.roundTrip(ctx, rpc.Request{Type: rpc.TypeGetStatus, ID: id})
	if err != nil {
		return task.StatusUnknown, err
	}
	return task.ParseTaskStatus(resp.Status), nil
}

func (c *Client) roundTrip(ctx context.Context, req rpc.Request) (rpc.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetDeadline(deadline)
		defer c.conn.SetDeadline(time.Time{})
	}

	data, err := json.Marshal(req)
	if err != nil {
		return rpc.Response{}, fmt.Errorf("failed to encode request: %w", err)
	}
	data = append(data, '\n')

	if _, err := c.conn.Write(data); err != nil {
		return rpc.Response{}, newConnectError(c.addr, err)
	}

	line, err := c.reader.ReadBytes('\n')
	if err != nil {
		return rpc.Response{}, newConnectError(c.addr, err)
	}

	var resp rpc.Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return rpc.Response{}, fmt.Errorf("failed to decode response: %w", err)
	}
	return resp, nil
}
