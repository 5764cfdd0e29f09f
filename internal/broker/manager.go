package broker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"sync/atomic"

	"github.com/lkarlsen/binchat/internal/history"
)

// Manager owns the listening port and sequences admissions: one socket is
// dequeued, handed a session, and the next socket waits until that session's
// handshake and bootstrap have resolved. Bounding admission to one in-flight
// handshake is what makes duplicate-username races impossible.
type Manager struct {
	addr     string
	registry *Registry
	store    *history.Store
	logger   *log.Logger

	queue  *SocketQueue
	online atomic.Bool
}

// NewManager creates a manager serving addr and persisting histories through
// store.
func NewManager(addr string, store *history.Store, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.Default()
	}
	return &Manager{
		addr:     addr,
		registry: NewRegistry(),
		store:    store,
		logger:   logger,
	}
}

// Listen binds the accept queue. Failing to bind is fatal to the broker;
// there is nothing to recover into.
func (m *Manager) Listen() error {
	queue, err := NewSocketQueue(m.addr, m.logger)
	if err != nil {
		return fmt.Errorf("broker: listen %q: %w", m.addr, err)
	}
	m.queue = queue
	m.online.Store(true)
	m.logger.Printf("broker: listening on %s", queue.Addr())
	return nil
}

// Addr returns the bound listener address. Valid after Listen.
func (m *Manager) Addr() net.Addr {
	return m.queue.Addr()
}

// Online reports whether the admission loop is still running.
func (m *Manager) Online() bool {
	return m.online.Load()
}

// Serve runs the admission loop until the context is cancelled or the queue
// shuts down. Each iteration admits at most one session and blocks on its
// gates; a client that never sends its opening envelope stalls admission for
// everyone behind it. That is the documented liveness boundary of the
// protocol, not something Serve papers over.
func (m *Manager) Serve(ctx context.Context) error {
	if m.queue == nil {
		return errors.New("broker: Serve called before Listen")
	}

	stop := context.AfterFunc(ctx, func() {
		m.queue.Close()
	})
	defer stop()

	for {
		conn, err := m.queue.Next()
		if err != nil {
			m.online.Store(false)
			m.logger.Printf("broker: offline: %v", err)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		m.logger.Printf("broker: new connection from %s", conn.RemoteAddr())

		session := NewSession(conn, m.registry.Snapshot(), m.registry, m.store, m.logger)
		go session.run()

		if session.Connected() {
			if session.Active() {
				m.registry.Add(session)
				m.registry.Refresh()
				m.registry.BroadcastList()
				session.admit(true)
			} else {
				session.admit(false)
			}
		}

		session.Loaded()
	}
}

// Close shuts down the accept queue, which in turn ends Serve. Sessions
// already admitted keep running on their own sockets.
func (m *Manager) Close() error {
	if m.queue == nil {
		return nil
	}
	return m.queue.Close()
}
