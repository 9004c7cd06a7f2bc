//go:build integration
// +build integration

// Package integration drives a real workers server end-to-end over its
// TCP RPC protocol: a live Scheduler and rpc.Server bound to an
// ephemeral loopback port, exercised through pkg/client the same way a
// real caller would be.
package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maumercado/localtaskd/internal/logger"
	"github.com/maumercado/localtaskd/internal/logmanager"
	"github.com/maumercado/localtaskd/internal/rpc"
	"github.com/maumercado/localtaskd/internal/scheduler"
	"github.com/maumercado/localtaskd/internal/task"
	"github.com/maumercado/localtaskd/pkg/client"
)

func init() {
	logger.Init("error", false)
}

// testServer wires a Scheduler, its admission loop, and an rpc.Server
// bound to an ephemeral loopback port, the same components cmd/workers
// wires together for the real binary.
type testServer struct {
	addr  string
	sched *scheduler.Scheduler
	rpc   *rpc.Server
}

func startTestServer(t *testing.T, maxCores int) *testServer {
	t.Helper()

	lm, err := logmanager.NewFileLogManager(t.TempDir())
	require.NoError(t, err)

	sched := scheduler.New(maxCores, 2*time.Second, lm)
	srv := rpc.New("127.0.0.1:0", sched)
	require.NoError(t, srv.Start())

	go sched.ScheduleForever()

	ts := &testServer{addr: srv.Addr().String(), sched: sched, rpc: srv}
	t.Cleanup(func() {
		_ = ts.rpc.Shutdown()
		ts.sched.Shutdown()
		ts.sched.Wait()
	})
	return ts
}

func dial(t *testing.T, ts *testServer) *client.Client {
	t.Helper()
	c, err := client.New(ts.addr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func waitForStatus(t *testing.T, c *client.Client, id string, want task.TaskStatus, timeout time.Duration) task.TaskStatus {
	t.Helper()
	ctx := context.Background()
	deadline := time.Now().Add(timeout)
	var got task.TaskStatus
	for time.Now().Before(deadline) {
		st, err := c.Status(ctx, id)
		require.NoError(t, err)
		got = st
		if st == want {
			return st
		}
		time.Sleep(20 * time.Millisecond)
	}
	require.Equal(t, want, got, "task %s never reached %s", id, want)
	return got
}

func TestTaskLifecycle_SingleTaskSuccess(t *testing.T) {
	ts := startTestServer(t, 2)
	c := dial(t, ts)
	ctx := context.Background()

	id, err := c.Submit(ctx, "exit 0", t.TempDir(), nil, task.Resources{Cores: 1}, nil)
	require.NoError(t, err)

	waitForStatus(t, c, id, task.StatusCompleted, 3*time.Second)
	assert.Equal(t, 2, ts.sched.AvailableCores())
}

func TestTaskLifecycle_FailurePropagation(t *testing.T) {
	ts := startTestServer(t, 2)
	c := dial(t, ts)
	ctx := context.Background()

	a, err := c.Submit(ctx, "exit 1", t.TempDir(), nil, task.Resources{Cores: 1}, nil)
	require.NoError(t, err)

	waitForStatus(t, c, a, task.StatusFailed, 3*time.Second)

	b, err := c.Submit(ctx, "exit 0", t.TempDir(), nil, task.Resources{Cores: 1}, []string{a})
	require.NoError(t, err)

	waitForStatus(t, c, b, task.StatusFailed, 3*time.Second)
}

func TestTaskLifecycle_CancelRunning(t *testing.T) {
	ts := startTestServer(t, 2)
	c := dial(t, ts)
	ctx := context.Background()

	id, err := c.Submit(ctx, "sleep 60", t.TempDir(), nil, task.Resources{Cores: 1}, nil)
	require.NoError(t, err)

	waitForStatus(t, c, id, task.StatusRunning, 3*time.Second)

	require.NoError(t, c.Cancel(ctx, id))
	waitForStatus(t, c, id, task.StatusCancelled, 15*time.Second)
}

func TestTaskLifecycle_CoreAdmission(t *testing.T) {
	ts := startTestServer(t, 2)
	c := dial(t, ts)
	ctx := context.Background()

	ids := make([]string, 3)
	for i := range ids {
		id, err := c.Submit(ctx, "sleep 1", t.TempDir(), nil, task.Resources{Cores: 1}, nil)
		require.NoError(t, err)
		ids[i] = id
	}

	// At any instant at most two of the three may be RUNNING, since
	// max_cores is 2; the third sits SUBMITTED behind the other two.
	deadline := time.Now().Add(2 * time.Second)
	sawRunning := false
	for time.Now().Before(deadline) {
		running := 0
		for _, id := range ids {
			st, err := c.Status(ctx, id)
			require.NoError(t, err)
			if st == task.StatusRunning {
				running++
			}
		}
		assert.LessOrEqual(t, running, 2)
		if running > 0 {
			sawRunning = true
		}
		time.Sleep(20 * time.Millisecond)
	}
	assert.True(t, sawRunning, "expected to observe at least one task RUNNING")

	for _, id := range ids {
		waitForStatus(t, c, id, task.StatusCompleted, 5*time.Second)
	}
}

func TestTaskLifecycle_UnknownDependencyClosesConnection(t *testing.T) {
	ts := startTestServer(t, 2)
	c := dial(t, ts)
	ctx := context.Background()

	_, err := c.Submit(ctx, "exit 0", t.TempDir(), nil, task.Resources{Cores: 1}, []string{"never-submitted"})
	assert.Error(t, err)

	// The server closed the connection after its error reply, so the next
	// round trip on the same client fails.
	_, err = c.Status(ctx, "never-submitted")
	assert.Error(t, err)
}
