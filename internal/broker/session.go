package broker

import (
	"errors"
	"log"
	"net"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/lkarlsen/binchat/internal/history"
	"github.com/lkarlsen/binchat/pkg/wire"
)

const (
	verdictAccepted = "OK"
	verdictDenied   = "DENIED"
)

var (
	errIdentityMissing = errors.New("broker: first envelope carried no sender identity")
	errIdentityTaken   = errors.New("broker: username already connected")
	errNotAdmitted     = errors.New("broker: session was not admitted")
)

// Session is the server side of one client connection: handshake, bootstrap,
// steady-state routing loop, and teardown.
type Session struct {
	id       string
	conn     net.Conn
	enc      *wire.Encoder
	dec      *wire.Decoder
	registry *Registry
	store    *history.Store
	logger   *log.Logger

	userMu sync.RWMutex
	user   wire.User

	peersMu sync.RWMutex
	peers   []*Session

	histMu sync.Mutex
	hist   *wire.ChatHistory

	connected *gate
	admitted  *gate
	loaded    *gate
	active    atomic.Bool
	closeOnce sync.Once
}

// NewSession wraps an accepted connection. The snapshot is the registry state
// at construction time; validation runs against it, so it stays authoritative
// until this session's handshake resolves.
func NewSession(conn net.Conn, snapshot []*Session, registry *Registry, store *history.Store, logger *log.Logger) *Session {
	if logger == nil {
		logger = log.Default()
	}

	s := &Session{
		id:        uuid.NewString(),
		conn:      conn,
		enc:       wire.NewEncoder(conn),
		dec:       wire.NewDecoder(conn),
		registry:  registry,
		store:     store,
		logger:    logger,
		peers:     append([]*Session(nil), snapshot...),
		connected: newGate(),
		admitted:  newGate(),
		loaded:    newGate(),
	}
	s.active.Store(true)
	return s
}

// ID returns the session's log-correlation identifier.
func (s *Session) ID() string {
	return s.id
}

// User returns the identity bound during handshake. Zero until then.
func (s *Session) User() wire.User {
	s.userMu.RLock()
	defer s.userMu.RUnlock()
	return s.user
}

func (s *Session) setUser(u wire.User) {
	s.userMu.Lock()
	s.user = u
	s.userMu.Unlock()
}

// Active reports whether the socket has not yet been closed.
func (s *Session) Active() bool {
	return s.active.Load()
}

// Connected blocks until the handshake outcome is known and reports whether
// the client was accepted.
func (s *Session) Connected() bool {
	return s.connected.Wait()
}

// Loaded blocks until bootstrap has finished or the session tore down. The
// manager uses it purely as the gate for dequeuing the next socket.
func (s *Session) Loaded() bool {
	return s.loaded.Wait()
}

// admit resolves the admission gate. Set false when the manager decides not
// to register a session whose handshake succeeded.
func (s *Session) admit(ok bool) {
	s.admitted.Set(ok)
}

// UpdateConnectionList atomically replaces this session's view of its peers.
// Called by the registry after every admission change.
func (s *Session) UpdateConnectionList(peers []*Session) {
	s.peersMu.Lock()
	s.peers = peers
	s.peersMu.Unlock()
}

func (s *Session) peersView() []*Session {
	s.peersMu.RLock()
	defer s.peersMu.RUnlock()
	return s.peers
}

// Send writes one envelope to the client. Best effort: a write failure is
// logged and the read loop discovers the dead socket on its own.
func (s *Session) Send(msg wire.Message) {
	if err := s.enc.Encode(msg); err != nil {
		s.logger.Printf("broker: session %s: send %s failed: %v", s.id, msg.Type, err)
	}
}

// run drives the session lifecycle to completion. Started by the manager on
// its own goroutine.
func (s *Session) run() {
	defer s.teardown()

	if err := s.handshake(); err != nil {
		if !errors.Is(err, errIdentityTaken) {
			s.logger.Printf("broker: session %s: handshake: %v", s.id, err)
		}
		return
	}

	if !s.admitted.Wait() {
		s.logger.Printf("broker: session %s: %v", s.id, errNotAdmitted)
		return
	}

	s.bootstrap()
	s.loaded.Set(true)

	s.readLoop()
}

// handshake reads the opening identity envelope, validates the claimed name
// against the registry snapshot, and answers with the OK/DENIED verdict.
func (s *Session) handshake() error {
	env, err := s.dec.Decode()
	if err != nil {
		s.connected.Set(false)
		return err
	}
	if env.Sender == nil {
		s.Send(verdict(verdictDenied))
		s.connected.Set(false)
		return errIdentityMissing
	}

	s.setUser(*env.Sender)
	ok := s.validate()

	if ok {
		s.Send(verdict(verdictAccepted))
	} else {
		s.Send(verdict(verdictDenied))
	}
	s.connected.Set(ok)

	if !ok {
		s.logger.Printf("broker: session %s: denied duplicate username %q", s.id, s.User())
		return errIdentityTaken
	}
	s.logger.Printf("broker: session %s: %q connected", s.id, s.User())
	return nil
}

// validate rejects the claimed identity when any session in the snapshot
// already holds a user with the same name.
func (s *Session) validate() bool {
	claimed := s.User()
	for _, peer := range s.peersView() {
		if peer != s && peer.User() == claimed {
			return false
		}
	}
	return true
}

// bootstrap loads (or creates) the user's persisted history and sends it as a
// ChatHistoryMessage. A corrupt snapshot is logged and the session proceeds
// with an empty history rather than dying.
func (s *Session) bootstrap() {
	hist, err := s.store.Load(s.User())
	if err != nil {
		s.logger.Printf("broker: session %s: load history: %v", s.id, err)
	}
	if hist == nil {
		hist = wire.NewChatHistory(s.User())
	}

	s.histMu.Lock()
	s.hist = hist
	s.histMu.Unlock()

	s.Send(wire.NewMessage().
		Type(wire.ChatHistoryMessage).
		History(hist).
		Build())
}

// readLoop is the steady state: block on the next envelope, route regular
// messages, ignore every other tag. Any read failure ends the session.
func (s *Session) readLoop() {
	for {
		env, err := s.dec.Decode()
		if err != nil {
			return
		}
		if env.Type == wire.RegularMessage {
			s.route(env)
		}
	}
}

// route forwards a regular message to the registered session bound to its
// receiver, persisting it on both sides first. No matching session means the
// message is silently dropped: live delivery only, nothing persisted.
func (s *Session) route(env wire.Message) {
	if env.Sender == nil || env.Receiver == nil {
		return
	}

	for _, peer := range s.peersView() {
		if peer == s || !peer.Active() || peer.User() != *env.Receiver {
			continue
		}
		s.appendHistory(env)
		peer.appendHistory(env)
		peer.Send(env)
		return
	}
}

// appendHistory records the message in this session's history and rewrites
// the owner's snapshot file. A failed rewrite is logged, not fatal.
func (s *Session) appendHistory(env wire.Message) {
	s.histMu.Lock()
	defer s.histMu.Unlock()
	if s.hist == nil {
		s.hist = wire.NewChatHistory(s.User())
	}
	s.hist.Append(*env.Sender, *env.Receiver, env)
	if err := s.store.Save(s.hist); err != nil {
		s.logger.Printf("broker: session %s: save history: %v", s.id, err)
	}
}

// teardown releases everything the session holds: deregisters it, announces
// the shrunk user list, opens the gates any manager thread may still be
// blocked on, and closes the socket. Safe to reach from every exit path.
func (s *Session) teardown() {
	s.closeOnce.Do(func() {
		s.active.Store(false)
		s.conn.Close()
		s.connected.Set(false)
		s.admitted.Set(false)

		if s.registry.Remove(s) {
			s.logger.Printf("broker: session %s: %q disconnected", s.id, s.User())
			s.registry.Refresh()
			s.registry.BroadcastList()
		}

		s.loaded.Set(true)
	})
}

func verdict(text string) wire.Message {
	return wire.NewMessage().
		Type(wire.ClientInfo).
		Text(text).
		Build()
}
