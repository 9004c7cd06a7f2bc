package client

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maumercado/localtaskd/internal/rpc"
	"github.com/maumercado/localtaskd/internal/task"
)

// fakeServer accepts exactly one connection and replies to each request
// using a caller-supplied handler, enough to exercise the client's wire
// framing without standing up the full RPC server.
func fakeServer(t *testing.T, handle func(rpc.Request) rpc.Response) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		scanner := bufio.NewScanner(conn)
		for scanner.Scan() {
			var req rpc.Request
			if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
				return
			}
			resp := handle(req)
			data, _ := json.Marshal(resp)
			conn.Write(append(data, '\n'))
		}
	}()

	return ln.Addr().String()
}

func TestClientSubmitGeneratesIDLocally(t *testing.T) {
	var seen rpc.Request
	addr := fakeServer(t, func(req rpc.Request) rpc.Response {
		seen = req
		return rpc.Response{Type: rpc.TypeOK}
	})

	c, err := New(addr)
	require.NoError(t, err)
	defer c.Close()

	id, err := c.Submit(context.Background(), "exit 0", "/tmp", nil, task.DefaultResources(), nil)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, id, seen.ID)
	assert.Equal(t, rpc.TypeSubmitTask, seen.Type)
}

func TestClientSubmitRejected(t *testing.T) {
	addr := fakeServer(t, func(req rpc.Request) rpc.Response {
		return rpc.Response{Type: rpc.TypeError, Error: "unknown dependency"}
	})

	c, err := New(addr)
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Submit(context.Background(), "exit 0", "/tmp", nil, task.DefaultResources(), nil)
	assert.Error(t, err)
}

func TestClientCancel(t *testing.T) {
	var seen rpc.Request
	addr := fakeServer(t, func(req rpc.Request) rpc.Response {
		seen = req
		return rpc.Response{Type: rpc.TypeOK}
	})

	c, err := New(addr)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Cancel(context.Background(), "abc123"))
	assert.Equal(t, rpc.TypeCancelTask, seen.Type)
	assert.Equal(t, "abc123", seen.ID)
}

func TestClientStatus(t *testing.T) {
	addr := fakeServer(t, func(req rpc.Request) rpc.Response {
		return rpc.Response{Type: rpc.TypeStatus, Status: "RUNNING"}
	})

	c, err := New(addr)
	require.NoError(t, err)
	defer c.Close()

	status, err := c.Status(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, task.StatusRunning, status)
}

func TestClientConnectFailureIsBackendError(t *testing.T) {
	_, err := New("127.0.0.1:1", WithDialTimeout(200*time.Millisecond))
	require.Error(t, err)
	var backendErr *BackendError
	assert.ErrorAs(t, err, &backendErr)
}
