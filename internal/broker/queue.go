// Package broker implements the connection broker: the socket-accept queue,
// the registry of admitted sessions, the manager that serializes admissions,
// and the per-client session lifecycle.
package broker

import (
	"errors"
	"log"
	"net"
	"sync"
)

// ErrQueueClosed is returned by Next once the queue has been shut down.
var ErrQueueClosed = errors.New("broker: socket queue closed")

// SocketQueue accepts inbound connections in the background and hands them
// out in FIFO order, decoupling accept latency from handshake processing.
type SocketQueue struct {
	listener net.Listener
	logger   *log.Logger

	mu      sync.Mutex
	ready   *sync.Cond
	pending []net.Conn
	closed  bool
}

// NewSocketQueue binds a listener on addr and starts the accept loop.
func NewSocketQueue(addr string, logger *log.Logger) (*SocketQueue, error) {
	if logger == nil {
		logger = log.Default()
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	q := &SocketQueue{
		listener: listener,
		logger:   logger,
	}
	q.ready = sync.NewCond(&q.mu)

	go q.acceptLoop()
	return q, nil
}

// Addr returns the bound listener address.
func (q *SocketQueue) Addr() net.Addr {
	return q.listener.Addr()
}

// acceptLoop feeds accepted connections into the queue until the listener
// fails. A dead listener ends the loop without disturbing connections already
// queued.
func (q *SocketQueue) acceptLoop() {
	for {
		conn, err := q.listener.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				q.logger.Printf("broker: accept error: %v", err)
			}
			return
		}

		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			conn.Close()
			return
		}
		q.pending = append(q.pending, conn)
		q.ready.Signal()
		q.mu.Unlock()
	}
}

// Next blocks until a connection is available and removes it from the queue.
// After Close it returns ErrQueueClosed.
func (q *SocketQueue) Next() (net.Conn, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.pending) == 0 && !q.closed {
		q.ready.Wait()
	}
	if q.closed {
		return nil, ErrQueueClosed
	}

	conn := q.pending[0]
	q.pending = q.pending[1:]
	return conn, nil
}

// Close shuts the listener and every connection still waiting in the queue,
// releasing any caller blocked in Next.
func (q *SocketQueue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	pending := q.pending
	q.pending = nil
	q.ready.Broadcast()
	q.mu.Unlock()

	err := q.listener.Close()
	for _, conn := range pending {
		conn.Close()
	}
	return err
}
