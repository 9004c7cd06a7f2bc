package rpc

import (
	"bufio"
	"encoding/json"
	"errors"
	"net"
	"sync"

	"github.com/maumercado/localtaskd/internal/logger"
	"github.com/maumercado/localtaskd/internal/metrics"
	"github.com/maumercado/localtaskd/internal/scheduler"
	"github.com/maumercado/localtaskd/internal/task"
)

// maxLineSize bounds a single line-delimited message; it exists only to
// keep a misbehaving peer from exhausting memory, not as a protocol
// framing mechanism (framing is the newline itself).
const maxLineSize = 1 << 20

// Scheduler is the subset of *scheduler.Scheduler the RPC layer depends
// on, narrowed to keep this package testable against a fake.
type Scheduler interface {
	EnqueueTask(t *task.Task) error
	CancelTask(id string)
	GetStatus(id string) task.TaskStatus
}

var _ Scheduler = (*scheduler.Scheduler)(nil)

// Server accepts TCP connections and serves the line-delimited JSON
// protocol against a single shared Scheduler. One goroutine handles each
// accepted connection; all handlers share the one scheduler instance.
type Server struct {
	addr      string
	scheduler Scheduler

	mu       sync.Mutex
	listener net.Listener
	wg       sync.WaitGroup
}

// New creates a Server that will listen on addr and dispatch requests to
// sched.
func New(addr string, sched Scheduler) *Server {
	return &Server{addr: addr, scheduler: sched}
}

// Start binds the listener and launches the accept loop on its own
// goroutine. It returns once the listener is bound, so callers can rely
// on the address being ready immediately after Start returns.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	logger.Info().Str("addr", ln.Addr().String()).Msg("rpc server listening")

	s.wg.Add(1)
	go s.acceptLoop(ln)
	return nil
}

// Addr returns the bound listener's address. Only valid after Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) acceptLoop(ln net.Listener) {
	defer s.wg.Done()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			logger.Warn().Err(err).Msg("rpc accept failed")
			continue
		}
		metrics.RecordRPCConnection()
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(conn)
		}()
	}
}

// Shutdown stops accepting new connections and closes the listener. It
// does not forcibly close connections already in flight; it waits for
// the accept loop and every connection handler to return, so it blocks
// until each open connection's peer disconnects.
func (s *Server) Shutdown() error {
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()
	if ln == nil {
		return nil
	}
	err := ln.Close()
	s.wg.Wait()
	return err
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	remote := conn.RemoteAddr().String()
	log := logger.WithConn(remote)
	log.Debug().Msg("accepted rpc connection")

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 4096), maxLineSize)

	for scanner.Scan() {
		resp, ok := s.dispatch(scanner.Bytes())
		if resp.Type != "" {
			data, err := json.Marshal(resp)
			if err == nil {
				if _, err := conn.Write(append(data, '\n')); err != nil {
					return
				}
			}
		}
		if !ok {
			return
		}
	}
}

// dispatch decodes and applies one request. The bool return reports
// whether the connection should stay open: malformed messages and a
// submit-task naming an unknown dependency close it, matching the wire
// contract (errors never propagate to a peer except this one best-effort
// diagnostic write before close).
func (s *Server) dispatch(line []byte) (Response, bool) {
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		return Response{}, false
	}

	metrics.RecordRPCRequest(req.Type)

	switch req.Type {
	case TypeSubmitTask:
		resources := task.DefaultResources()
		if req.Resources != nil {
			resources = *req.Resources
		}
		t := task.New(req.ID, req.Script, req.WorkingDir, req.Env, resources, req.Dependencies)
		if err := s.scheduler.EnqueueTask(t); err != nil {
			logger.Warn().Err(err).Str("task_id", req.ID).Msg("submit-task rejected")
			return errorResponse(err.Error()), false
		}
		return okResponse(), true

	case TypeCancelTask:
		s.scheduler.CancelTask(req.ID)
		return okResponse(), true

	case TypeGetStatus:
		return statusResponse(s.scheduler.GetStatus(req.ID)), true

	default:
		return Response{}, false
	}
}
