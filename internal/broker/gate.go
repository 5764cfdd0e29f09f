package broker

import "sync"

// gate is a one-shot boolean signal. The first Set wins; Wait blocks every
// caller until then and returns the recorded outcome. It replaces the
// wait/notify flag pairs that gate admission ordering.
type gate struct {
	once sync.Once
	done chan struct{}
	ok   bool
}

func newGate() *gate {
	return &gate{done: make(chan struct{})}
}

// Set records the outcome and releases all waiters. Later calls are no-ops.
func (g *gate) Set(ok bool) {
	g.once.Do(func() {
		g.ok = ok
		close(g.done)
	})
}

// Wait blocks until Set has been called and returns its outcome. There is no
// timeout; a gate that is never set blocks its waiter forever.
func (g *gate) Wait() bool {
	<-g.done
	return g.ok
}
