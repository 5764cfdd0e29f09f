package broker

import (
	"sync"

	"github.com/lkarlsen/binchat/pkg/wire"
)

// Registry holds the canonical list of admitted sessions. All mutation goes
// through its lock; readers work from snapshots.
type Registry struct {
	mu       sync.Mutex
	sessions []*Session
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Snapshot returns a stable copy of the current member list.
func (r *Registry) Snapshot() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Session(nil), r.sessions...)
}

// Add appends a freshly admitted session.
func (r *Registry) Add(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions = append(r.sessions, s)
}

// Remove deletes the session if present and reports whether it was a member.
func (r *Registry) Remove(s *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, member := range r.sessions {
		if member == s {
			r.sessions = append(r.sessions[:i], r.sessions[i+1:]...)
			return true
		}
	}
	return false
}

// Refresh drops members whose sockets have closed and pushes the surviving
// list to every remaining session as its new routing view.
func (r *Registry) Refresh() {
	r.mu.Lock()
	kept := r.sessions[:0]
	for _, member := range r.sessions {
		if member.Active() {
			kept = append(kept, member)
		}
	}
	r.sessions = kept
	view := append([]*Session(nil), kept...)
	r.mu.Unlock()

	for _, member := range view {
		member.UpdateConnectionList(view)
	}
}

// BroadcastList sends a ClientList envelope with the current member set to
// every member. Entries whose sockets have closed are skipped; the next
// Refresh sweeps them out.
func (r *Registry) BroadcastList() {
	view := r.Snapshot()

	users := make([]wire.User, 0, len(view))
	for _, member := range view {
		if member.Active() {
			users = append(users, member.User())
		}
	}

	msg := wire.NewMessage().
		Type(wire.ClientList).
		OnlineUsers(users).
		Build()

	for _, member := range view {
		if member.Active() {
			member.Send(msg)
		}
	}
}
