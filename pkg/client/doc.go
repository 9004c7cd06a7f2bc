// Package client implements the line-delimited JSON-over-TCP protocol
// spoken by the local task-execution backend's RPC server.
//
// # Basic usage
//
//	c, err := client.New("127.0.0.1:12345")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer c.Close()
//
//	id, err := c.Submit(ctx, "echo hi", "/tmp", nil, task.DefaultResources(), nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	status, err := c.Status(ctx, id)
//
// Call Close when done with the client; there is no connection pooling,
// and each Client wraps exactly one TCP connection.
package client
